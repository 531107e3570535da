// =============================================================================
// Invoice Ledger - PDF Page Layout
// =============================================================================
//
// A PDF text layer is a bag of positioned glyph runs with no notion of lines,
// paragraphs or tables. This file turns one document into a Layout (glyphs and
// filled rectangles per page) and rebuilds reading-order lines from it.
//
// Coordinates are PDF user space: the origin is bottom-left, so a larger Y is
// higher on the page.
//
// =============================================================================

package pdfinvoice

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/ginjaninja78/invoice-ledger/internal/locale"
)

// Glyph is one positioned text run as reported by the content stream.
type Glyph struct {
	X, Y     float64
	W        float64
	FontSize float64
	S        string
}

// Box is a filled or stroked rectangle. Table rulings arrive as thin boxes,
// cell borders as full ones.
type Box struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// Page holds the layout of one page.
type Page struct {
	Number int
	Glyphs []Glyph
	Boxes  []Box
}

// Layout is the positioned content of a whole document.
type Layout struct {
	Pages []Page
}

// HasText reports whether any page carries a non-blank glyph.
func (l *Layout) HasText() bool {
	for _, p := range l.Pages {
		for _, g := range p.Glyphs {
			if strings.TrimSpace(g.S) != "" {
				return true
			}
		}
	}
	return false
}

// ReadLayout reads glyphs and rectangles from every page.
func ReadLayout(data []byte) (layout *Layout, err error) {
	// Malformed files make the reader panic rather than fail.
	defer func() {
		if rec := recover(); rec != nil {
			layout, err = nil, fmt.Errorf("failed to read PDF content: %v", rec)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	layout = &Layout{}
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		content := p.Content()

		page := Page{Number: i}
		for _, t := range content.Text {
			page.Glyphs = append(page.Glyphs, Glyph{X: t.X, Y: t.Y, W: t.W, FontSize: t.FontSize, S: t.S})
		}
		for _, rc := range content.Rect {
			page.Boxes = append(page.Boxes, Box{
				MinX: math.Min(rc.Min.X, rc.Max.X), MinY: math.Min(rc.Min.Y, rc.Max.Y),
				MaxX: math.Max(rc.Min.X, rc.Max.X), MaxY: math.Max(rc.Min.Y, rc.Max.Y),
			})
		}
		layout.Pages = append(layout.Pages, page)
	}
	return layout, nil
}

// =============================================================================
// READING ORDER
// =============================================================================

// Line is one run of text on a single baseline. Runs on the same baseline
// separated by a wide gap are distinct lines, so two-column headers read as
// separate lines rather than one interleaved string.
type Line struct {
	Page int
	X, Y float64
	Text string
}

const (
	// A gap wider than spaceGap x font size between runs is a word break.
	spaceGap = 0.2

	// A gap wider than blockGap x font size starts a new line.
	blockGap = 2.5

	// Runs whose baselines differ by at most rowTolerance x font size
	// share a row.
	rowTolerance = 0.4

	defaultFontSize = 10
)

// Lines rebuilds reading order over all pages: rows top to bottom, lines
// left to right within a row. Blank lines are dropped and text is cleaned.
func Lines(l *Layout) []string {
	var out []string
	for _, ln := range layoutLines(l) {
		out = append(out, ln.Text)
	}
	return out
}

func layoutLines(l *Layout) []Line {
	var out []Line
	for _, p := range l.Pages {
		for _, row := range groupRows(p.Glyphs) {
			for _, seg := range splitRow(row.glyphs, true) {
				if seg.text == "" {
					continue
				}
				out = append(out, Line{Page: p.Number, X: seg.x, Y: row.y, Text: seg.text})
			}
		}
	}
	return out
}

type glyphRow struct {
	y      float64
	glyphs []Glyph
}

// groupRows clusters glyphs into rows by baseline, returned top to bottom.
func groupRows(glyphs []Glyph) []glyphRow {
	sorted := make([]Glyph, 0, len(glyphs))
	for _, g := range glyphs {
		if g.S != "" {
			sorted = append(sorted, g)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y != sorted[j].Y {
			return sorted[i].Y > sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	var rows []glyphRow
	for _, g := range sorted {
		n := len(rows)
		if n > 0 && math.Abs(rows[n-1].y-g.Y) <= rowTolerance*fontSize(g) {
			rows[n-1].glyphs = append(rows[n-1].glyphs, g)
			continue
		}
		rows = append(rows, glyphRow{y: g.Y, glyphs: []Glyph{g}})
	}
	for i := range rows {
		sort.SliceStable(rows[i].glyphs, func(a, b int) bool { return rows[i].glyphs[a].X < rows[i].glyphs[b].X })
	}
	return rows
}

type segment struct {
	x    float64
	text string
}

// splitRow joins the glyphs of one row into text, inserting spaces at word
// gaps. With split set, wide gaps start a new segment.
func splitRow(glyphs []Glyph, split bool) []segment {
	var segs []segment
	var b strings.Builder
	start := 0.0
	end := 0.0

	flush := func() {
		if text := locale.Squash(b.String()); text != "" {
			segs = append(segs, segment{x: start, text: text})
		}
		b.Reset()
	}

	for i, g := range glyphs {
		if i == 0 {
			start = g.X
		} else {
			gap := g.X - end
			size := fontSize(g)
			switch {
			case split && gap > blockGap*size:
				flush()
				start = g.X
			case gap > spaceGap*size:
				b.WriteByte(' ')
			}
		}
		b.WriteString(g.S)
		if i == 0 || g.X+g.W > end {
			end = g.X + g.W
		}
	}
	flush()
	return segs
}

func fontSize(g Glyph) float64 {
	if g.FontSize > 0 {
		return g.FontSize
	}
	return defaultFontSize
}
