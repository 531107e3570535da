package ooxml

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// ParseDocument parses a WordprocessingML part.
func ParseDocument(data []byte) (*etree.Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.PreserveCData = true
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to parse document part: %w", err)
	}
	return doc, nil
}

// Body returns the w:body element, or nil.
func Body(doc *etree.Document) *etree.Element {
	root := doc.Root()
	if root == nil {
		return nil
	}
	return root.SelectElement("w:body")
}

// BodyBlocks returns the top-level paragraphs and tables of the body in
// document order. Content controls (w:sdt) are looked through.
func BodyBlocks(body *etree.Element) []*etree.Element {
	var blocks []*etree.Element
	var walk func(parent *etree.Element)
	walk = func(parent *etree.Element) {
		for _, el := range parent.ChildElements() {
			switch el.Tag {
			case "p", "tbl":
				blocks = append(blocks, el)
			case "sdt":
				if content := el.SelectElement("w:sdtContent"); content != nil {
					walk(content)
				}
			}
		}
	}
	walk(body)
	return blocks
}

// Tables returns the top-level tables of the body in document order.
func Tables(body *etree.Element) []*etree.Element {
	var tables []*etree.Element
	for _, el := range BodyBlocks(body) {
		if el.Tag == "tbl" {
			tables = append(tables, el)
		}
	}
	return tables
}

// Rows returns the w:tr children of a table.
func Rows(tbl *etree.Element) []*etree.Element {
	return tbl.SelectElements("w:tr")
}

// ParagraphText returns the visible text of a paragraph. Tabs become "\t" and
// breaks "\n". Text-box content anchored in the paragraph is not part of its
// text and is skipped, as is the VML fallback copy of drawings.
func ParagraphText(p *etree.Element) string {
	var b strings.Builder
	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		switch el.Tag {
		case "t":
			b.WriteString(el.Text())
			return
		case "tab":
			b.WriteString("\t")
			return
		case "br", "cr":
			b.WriteString("\n")
			return
		case "txbxContent", "Fallback", "instrText", "delText", "pPr", "rPr":
			return
		}
		for _, c := range el.ChildElements() {
			walk(c)
		}
	}
	walk(p)
	return b.String()
}

// CellText joins the paragraphs of a table cell with "\n".
func CellText(tc *etree.Element) string {
	paras := tc.SelectElements("w:p")
	lines := make([]string, 0, len(paras))
	for _, p := range paras {
		lines = append(lines, ParagraphText(p))
	}
	return strings.Join(lines, "\n")
}

// GridSpan returns the number of grid columns a cell covers.
func GridSpan(tc *etree.Element) int {
	if span := tc.FindElement("./w:tcPr/w:gridSpan"); span != nil {
		if n, err := strconv.Atoi(span.SelectAttrValue("w:val", "1")); err == nil && n > 1 {
			return n
		}
	}
	return 1
}

// continuesVerticalMerge reports whether a cell continues a vertical merge
// from the row above.
func continuesVerticalMerge(tc *etree.Element) bool {
	vm := tc.FindElement("./w:tcPr/w:vMerge")
	if vm == nil {
		return false
	}
	return vm.SelectAttrValue("w:val", "continue") == "continue"
}

// GridCells expands a row into one entry per grid column. A cell spanning
// several grid columns appears that many times as the same *etree.Element,
// so a horizontally merged cell can be recognised by identity. A cell that
// continues a vertical merge is replaced by the originating cell from above
// (taken from the previous row's expansion, which may be nil).
func GridCells(tr *etree.Element, above []*etree.Element) []*etree.Element {
	var cells []*etree.Element
	for _, tc := range tr.SelectElements("w:tc") {
		span := GridSpan(tc)
		origin := tc
		if continuesVerticalMerge(tc) && len(cells) < len(above) && above[len(cells)] != nil {
			origin = above[len(cells)]
		}
		for i := 0; i < span; i++ {
			cells = append(cells, origin)
		}
	}
	return cells
}

// TableGrid expands every row of a table with GridCells.
func TableGrid(tbl *etree.Element) [][]*etree.Element {
	rows := Rows(tbl)
	grid := make([][]*etree.Element, len(rows))
	var above []*etree.Element
	for i, tr := range rows {
		grid[i] = GridCells(tr, above)
		above = grid[i]
	}
	return grid
}

// LogicalCells drops grid entries that repeat the cell immediately before
// them, so a horizontally merged cell counts once whatever its span.
func LogicalCells(cells []*etree.Element) []*etree.Element {
	out := make([]*etree.Element, 0, len(cells))
	var prev *etree.Element
	for _, c := range cells {
		if c == prev {
			continue
		}
		prev = c
		out = append(out, c)
	}
	return out
}

// LogicalRow returns the text of each cell of LogicalCells. Applied to a row
// without merges it returns the row unchanged.
func LogicalRow(cells []*etree.Element) []string {
	logical := LogicalCells(cells)
	out := make([]string, 0, len(logical))
	for _, c := range logical {
		out = append(out, CellText(c))
	}
	return out
}
