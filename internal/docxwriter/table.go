package docxwriter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/ginjaninja78/invoice-ledger/internal/canonical"
	"github.com/ginjaninja78/invoice-ledger/internal/locale"
	"github.com/ginjaninja78/invoice-ledger/internal/ooxml"
	"github.com/ginjaninja78/invoice-ledger/internal/types"
)

// DefaultColumns maps item fields to the logical columns of the stock
// invoice table: STT, name, unit, quantity, price, amount.
func DefaultColumns() map[canonical.Field]int {
	return map[canonical.Field]int{
		canonical.FieldOrdinal:        0,
		canonical.FieldItemName:       1,
		canonical.FieldUnit:           2,
		canonical.FieldQuantity:       3,
		canonical.FieldPrice:          4,
		canonical.FieldOriginalAmount: 5,
	}
}

// findItemTable returns the table at the 1-based index, or with index 0 the
// first table whose first row mentions STT.
func findItemTable(body *etree.Element, index int) (*etree.Element, error) {
	tables := ooxml.Tables(body)
	if index > 0 {
		if index > len(tables) {
			return nil, types.Structuralf("template has %d tables, item table %d requested", len(tables), index)
		}
		return tables[index-1], nil
	}
	for _, tbl := range tables {
		rows := ooxml.Rows(tbl)
		if len(rows) == 0 {
			continue
		}
		for _, cell := range ooxml.LogicalRow(ooxml.GridCells(rows[0], nil)) {
			if strings.Contains(strings.ToUpper(cell), "STT") {
				return tbl, nil
			}
		}
	}
	return nil, types.Structuralf("no item table: no table header contains STT")
}

// =============================================================================
// ROW CURSOR
// =============================================================================

// rowCursor resolves logical columns to the distinct cells of one table
// row. A merged cell occupies one logical column whatever its grid span, so
// two values never land in the same merged cell.
type rowCursor struct {
	cells []*etree.Element
}

func newRowCursor(tr *etree.Element) *rowCursor {
	return &rowCursor{cells: ooxml.LogicalCells(ooxml.GridCells(tr, nil))}
}

// cell returns the cell for logical column col, or nil past the row end.
func (c *rowCursor) cell(col int) *etree.Element {
	if col < 0 || col >= len(c.cells) {
		return nil
	}
	return c.cells[col]
}

type column struct {
	field canonical.Field
	index int
}

func sortedColumns(columns map[canonical.Field]int) []column {
	out := make([]column, 0, len(columns))
	for f, i := range columns {
		out = append(out, column{field: f, index: i})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].index != out[b].index {
			return out[a].index < out[b].index
		}
		return out[a].field < out[b].field
	})
	return out
}

// =============================================================================
// CELL TEXT
// =============================================================================

// setCellText replaces the text of a cell and keeps the formatting of its
// first run. Further paragraphs and runs are removed.
func setCellText(tc *etree.Element, text string) {
	paras := tc.SelectElements("w:p")
	var p *etree.Element
	if len(paras) == 0 {
		p = tc.CreateElement("w:p")
	} else {
		p = paras[0]
		for _, extra := range paras[1:] {
			tc.RemoveChild(extra)
		}
	}

	runs := p.SelectElements("w:r")
	var r *etree.Element
	if len(runs) == 0 {
		r = p.CreateElement("w:r")
	} else {
		r = runs[0]
		for _, extra := range runs[1:] {
			p.RemoveChild(extra)
		}
	}
	for _, child := range r.ChildElements() {
		if child.Tag != "rPr" {
			r.RemoveChild(child)
		}
	}
	if text == "" {
		return
	}
	t := r.CreateElement("w:t")
	t.SetText(text)
	preserveSpace(t)
}

func clearRow(tr *etree.Element) {
	for _, tc := range tr.SelectElements("w:tc") {
		setCellText(tc, "")
	}
}

// cellValue renders one field of an item row as table text.
func cellValue(row canonical.Row, field canonical.Field, ordinal int, conv locale.Convention) string {
	amount := func(a types.Amount) string {
		if !a.Known {
			return ""
		}
		return locale.FormatGrouped(a.Value, conv)
	}
	switch field {
	case canonical.FieldOrdinal:
		return strconv.Itoa(ordinal)
	case canonical.FieldQuantity:
		return amount(row.Quantity)
	case canonical.FieldPrice:
		return amount(row.Price)
	case canonical.FieldOriginalAmount:
		return amount(row.OriginalAmount)
	case canonical.FieldConvertedAmount:
		return amount(row.ConvertedAmount)
	case canonical.FieldExchangeRate:
		if row.ExchangeRate.IsZero() {
			return ""
		}
		return locale.FormatGrouped(row.ExchangeRate, conv)
	}
	if v := row.Value(field); v != nil {
		return fmt.Sprint(v)
	}
	return ""
}
