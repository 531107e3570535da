package pdfinvoice_test

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/invoice-ledger/internal/overrides"
	"github.com/ginjaninja78/invoice-ledger/internal/pdfinvoice"
	"github.com/ginjaninja78/invoice-ledger/internal/types"
)

// =============================================================================
// SYNTHETIC LAYOUTS
// =============================================================================

const size = 10.0

var self = types.NewParty("CÔNG TY TNHH SỔ CÁI", "0312345678", "")

// words lays text out as one glyph run per word, 5pt per rune, 3pt apart.
func words(x, y float64, text string) []pdfinvoice.Glyph {
	var out []pdfinvoice.Glyph
	for _, w := range strings.Fields(text) {
		width := float64(utf8.RuneCountInString(w)) * size / 2
		out = append(out, pdfinvoice.Glyph{X: x, Y: y, W: width, FontSize: size, S: w})
		x += width + 3
	}
	return out
}

type run struct {
	x, y float64
	text string
}

func glyphs(runs ...run) []pdfinvoice.Glyph {
	var out []pdfinvoice.Glyph
	for _, r := range runs {
		out = append(out, words(r.x, r.y, r.text)...)
	}
	return out
}

func headerRuns() []run {
	return []run{
		{50, 800, "CÔNG TY CỔ PHẦN CUNG ỨNG"},
		{50, 785, "Mã số thuế (Tax code): 0101234567"},
		{50, 770, "HÓA ĐƠN GIÁ TRỊ GIA TĂNG"},
		{350, 770, "Ký hiệu (Serial): 1C24TAA"},
		{50, 755, "Ngày 15 tháng 03 năm 2024"},
		{350, 755, "Số (No.): 00000123"},
		{50, 740, "Họ tên người mua hàng (Buyer): Nguyễn Văn A"},
		{50, 725, "Tên đơn vị (Company): CÔNG TY TNHH SỔ CÁI"},
		{50, 710, "Mã số thuế (Tax code): 0312345678"},
	}
}

func footerRuns() []run {
	return []run{
		{80, 560, "Cộng tiền hàng:"},
		{460, 560, "300.000"},
		{80, 545, "Thuế suất GTGT: 10%"},
		{300, 545, "Tiền thuế GTGT: 30.000"},
		{80, 530, "Tổng cộng tiền thanh toán:"},
		{460, 530, "330.000"},
	}
}

// streamLayout has no rulings: columns come from the header run positions.
func streamLayout() *pdfinvoice.Layout {
	runs := headerRuns()
	runs = append(runs,
		run{30, 680, "STT"}, run{80, 680, "Tên hàng hóa"}, run{240, 680, "ĐVT"},
		run{300, 680, "Số lượng"}, run{380, 680, "Đơn giá"}, run{460, 680, "Thành tiền"},

		run{30, 665, "1"}, run{80, 665, "Bút bi"}, run{240, 665, "Cái"},
		run{300, 665, "10"}, run{380, 665, "10.000"}, run{460, 665, "100.000"},

		run{30, 650, "2"}, run{80, 650, "Giấy A4 loại"}, run{240, 650, "Ram"},
		run{300, 650, "4"}, run{380, 650, "50.000"}, run{460, 650, "200.000"},
		run{80, 640, "tốt"},
	)
	runs = append(runs, footerRuns()...)
	return &pdfinvoice.Layout{Pages: []pdfinvoice.Page{{Number: 1, Glyphs: glyphs(runs...)}}}
}

var (
	latticeXs = []float64{25, 70, 230, 290, 370, 450, 530}
	latticeYs = []float64{690, 670, 650, 620, 590}
)

// latticeLayout draws every cell as a box. Row 2 wraps its description;
// row 3 holds two items stacked in one visual row.
func latticeLayout() *pdfinvoice.Layout {
	var boxes []pdfinvoice.Box
	for i := 0; i+1 < len(latticeYs); i++ {
		for j := 0; j+1 < len(latticeXs); j++ {
			boxes = append(boxes, pdfinvoice.Box{MinX: latticeXs[j], MinY: latticeYs[i+1], MaxX: latticeXs[j+1], MaxY: latticeYs[i]})
		}
	}

	cellRow := func(y float64, cells ...string) []run {
		var out []run
		for j, c := range cells {
			if c != "" {
				out = append(out, run{latticeXs[j] + 5, y, c})
			}
		}
		return out
	}

	runs := headerRuns()
	runs = append(runs, cellRow(676, "STT", "Tên hàng hóa, dịch vụ", "ĐVT", "Số lượng", "Đơn giá", "Thành tiền")...)
	runs = append(runs, cellRow(656, "1", "Bút bi", "Cái", "10", "10.000", "100.000")...)
	runs = append(runs, cellRow(636, "2", "Giấy A4 loại", "Ram", "4", "50.000", "200.000")...)
	runs = append(runs, cellRow(626, "", "tốt")...)
	runs = append(runs, cellRow(606, "3", "Thước kẻ", "Cái", "2", "5.000", "10.000")...)
	runs = append(runs, cellRow(596, "4", "Tẩy", "Cái", "1", "2.000", "2.000")...)
	runs = append(runs, footerRuns()...)

	return &pdfinvoice.Layout{Pages: []pdfinvoice.Page{{Number: 1, Glyphs: glyphs(runs...), Boxes: boxes}}}
}

func tableLayout(header []run, rows ...[]run) *pdfinvoice.Layout {
	runs := append([]run{}, header...)
	for _, r := range rows {
		runs = append(runs, r...)
	}
	return &pdfinvoice.Layout{Pages: []pdfinvoice.Page{{Number: 1, Glyphs: glyphs(runs...)}}}
}

func regexpMust(expr string) *regexp.Regexp {
	return regexp.MustCompile(expr)
}

func newExtractor(table *overrides.Table) *pdfinvoice.Extractor {
	return pdfinvoice.New(pdfinvoice.Options{Self: self, Overrides: table})
}

// =============================================================================
// EXTRACTION
// =============================================================================

func TestExtractLayout_HeaderFields(t *testing.T) {
	doc, err := newExtractor(nil).ExtractLayout(context.Background(), "inv.pdf", streamLayout())
	require.NoError(t, err)

	assert.Equal(t, types.FormatPDF, doc.Format)
	assert.Equal(t, "1C24TAA", doc.Header.Series)
	assert.Equal(t, "00000123", doc.Header.Number)
	assert.Equal(t, types.Date{Day: 15, Month: 3, Year: 2024}, doc.Header.IssueDate)
	assert.Equal(t, "CÔNG TY CỔ PHẦN CUNG ỨNG", doc.Seller.Name)
	assert.Equal(t, "0101234567", doc.Seller.TaxCode)
	assert.Equal(t, "CÔNG TY TNHH SỔ CÁI", doc.Buyer.Name)
	assert.Equal(t, "0312345678", doc.Buyer.TaxCode)

	assert.Equal(t, "30000", doc.VATTotal.String())
	assert.Equal(t, "300000", doc.DeclaredNetTotal.String())
	assert.Equal(t, "330000", doc.DeclaredGrandTotal.String())
	assert.Empty(t, doc.Warnings)
}

func TestExtractLayout_UnlabelledNumberWarns(t *testing.T) {
	layout := streamLayout()
	page := &layout.Pages[0]
	var kept []pdfinvoice.Glyph
	for _, g := range page.Glyphs {
		if g.Y == 755 && g.X >= 350 {
			continue
		}
		kept = append(kept, g)
	}
	page.Glyphs = append(kept, words(350, 755, "00000123")...)

	doc, err := newExtractor(nil).ExtractLayout(context.Background(), "inv.pdf", layout)
	require.NoError(t, err)
	assert.Equal(t, "00000123", doc.Header.Number)

	require.Len(t, doc.Warnings, 1)
	w := doc.Warnings[0]
	assert.Equal(t, types.WarnAmbiguousField, w.Kind)
	assert.Equal(t, "number", w.Field)
	assert.Equal(t, "inv.pdf", w.Source)
	assert.Equal(t, types.ConfidenceFallback, w.Confidence)
	assert.Contains(t, w.Message, "00000123")
}

func TestExtractLayout_DeclaredTotals(t *testing.T) {
	tests := []struct {
		name     string
		extra    []run
		expected string
	}{
		{name: "VND totals are whole units", expected: "330001"},
		{name: "foreign currency keeps the fraction", extra: []run{{80, 515, "Tỷ giá: 24.500"}}, expected: "330000.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layout := streamLayout()
			page := &layout.Pages[0]
			for i, g := range page.Glyphs {
				if g.S == "330.000" {
					page.Glyphs[i].S = "330.000,5"
				}
			}
			page.Glyphs = append(page.Glyphs, glyphs(tt.extra...)...)

			doc, err := newExtractor(nil).ExtractLayout(context.Background(), "inv.pdf", layout)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, doc.DeclaredGrandTotal.String())
		})
	}
}

func TestExtractLayout_StreamTable(t *testing.T) {
	doc, err := newExtractor(nil).ExtractLayout(context.Background(), "inv.pdf", streamLayout())
	require.NoError(t, err)

	require.Len(t, doc.Items, 2)
	assert.Equal(t, 1, doc.Items[0].Ordinal)
	assert.Equal(t, "Bút bi", doc.Items[0].Description)
	assert.Equal(t, "100000", doc.Items[0].LineTotal.String())
	assert.Equal(t, "10000", doc.Items[0].UnitPrice.String())
	assert.Equal(t, "0.1", doc.Items[0].TaxRate.String())
	assert.Equal(t, "Giấy A4 loại tốt", doc.Items[1].Description, "wrapped line joins its item")
	assert.Equal(t, "Ram", doc.Items[1].Unit)
}

func TestExtractLayout_LatticeTable(t *testing.T) {
	doc, err := newExtractor(nil).ExtractLayout(context.Background(), "grid.pdf", latticeLayout())
	require.NoError(t, err)

	require.Len(t, doc.Items, 4)
	assert.Equal(t, "Giấy A4 loại tốt", doc.Items[1].Description)
	assert.Equal(t, 3, doc.Items[2].Ordinal)
	assert.Equal(t, "Thước kẻ", doc.Items[2].Description)
	assert.Equal(t, "10000", doc.Items[2].LineTotal.String())
	assert.Equal(t, 4, doc.Items[3].Ordinal)
	assert.Equal(t, "Tẩy", doc.Items[3].Description)
	assert.Equal(t, "2000", doc.Items[3].LineTotal.String())
}

func TestExtractLayout_SixColumnsNeedNoOverride(t *testing.T) {
	_, err := newExtractor(nil).ExtractLayout(context.Background(), "six.pdf", streamLayout())
	assert.NoError(t, err)
}

var wideHeader = []run{
	{30, 680, "STT"}, {75, 680, "Mã hàng"}, {140, 680, "Tên hàng"}, {220, 680, "ĐVT"},
	{270, 680, "SL"}, {320, 680, "Đơn giá"}, {400, 680, "CK"}, {460, 680, "Thành tiền"},
}

var wideRow = []run{
	{30, 665, "1"}, {75, 665, "SP01"}, {140, 665, "Bút"}, {220, 665, "Cái"},
	{270, 665, "2"}, {320, 665, "50.000"}, {400, 665, "0"}, {460, 665, "100.000"},
}

func TestExtractLayout_WideTableWithoutOverrideFails(t *testing.T) {
	_, err := newExtractor(nil).ExtractLayout(context.Background(), "wide.pdf", tableLayout(wideHeader, wideRow))
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrConfiguration))
	assert.False(t, errors.Is(err, types.ErrMissingRequiredField))
}

func TestExtractLayout_WideTableWithOverride(t *testing.T) {
	table, err := overrides.Parse(strings.NewReader(`"wide.pdf": 1,3,4,5,6,8`))
	require.NoError(t, err)

	doc, err := newExtractor(table).ExtractLayout(context.Background(), "wide.pdf", tableLayout(wideHeader, wideRow))
	require.NoError(t, err)
	require.Len(t, doc.Items, 1)
	item := doc.Items[0]
	assert.Equal(t, "Bút", item.Description)
	assert.Equal(t, "Cái", item.Unit)
	assert.Equal(t, "2", item.Quantity.String())
	assert.Equal(t, "50000", item.UnitPrice.String())
	assert.Equal(t, "100000", item.LineTotal.String())
}

func TestExtractLayout_OverrideOutOfRange(t *testing.T) {
	table, err := overrides.Parse(strings.NewReader(`"wide.pdf": 1,3,4,5,6,9`))
	require.NoError(t, err)
	_, err = newExtractor(table).ExtractLayout(context.Background(), "wide.pdf", tableLayout(wideHeader, wideRow))
	assert.True(t, errors.Is(err, types.ErrConfiguration))
}

var narrowHeader = []run{
	{30, 680, "STT"}, {80, 680, "Tên hàng"}, {240, 680, "ĐVT"},
	{300, 680, "SL"}, {380, 680, "Đơn giá"}, {460, 680, "Thành tiền"},
}

func TestExtractLayout_UnparsableAmountIsFatal(t *testing.T) {
	row := []run{{30, 665, "1"}, {80, 665, "Bút"}, {240, 665, "Cái"}, {300, 665, "1"}, {380, 665, "100"}, {460, 665, "n/a"}}
	_, err := newExtractor(nil).ExtractLayout(context.Background(), "amt.pdf", tableLayout(narrowHeader, row))
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrMissingRequiredField))

	var xerr *types.ExtractionError
	require.True(t, errors.As(err, &xerr))
	assert.Equal(t, "amount", xerr.Field)
}

func TestExtractLayout_NonItemRowSkippedWithWarning(t *testing.T) {
	good := []run{{30, 665, "1"}, {80, 665, "Bút"}, {240, 665, "Cái"}, {300, 665, "1"}, {380, 665, "100"}, {460, 665, "100"}}
	junk := []run{{30, 650, "2"}, {460, 650, "xem tiếp"}}
	doc, err := newExtractor(nil).ExtractLayout(context.Background(), "skip.pdf", tableLayout(narrowHeader, good, junk))
	require.NoError(t, err)

	require.Len(t, doc.Items, 1)
	var skipped int
	for _, w := range doc.Warnings {
		if w.Kind == types.WarnAmbiguousField && w.Field == "items" {
			skipped++
		}
	}
	assert.Equal(t, 1, skipped)
}

func TestExtractLayout_NoTextLayer(t *testing.T) {
	layout := &pdfinvoice.Layout{Pages: []pdfinvoice.Page{{Number: 1, Boxes: []pdfinvoice.Box{{MinX: 0, MinY: 0, MaxX: 500, MaxY: 700}}}}}
	_, err := newExtractor(nil).ExtractLayout(context.Background(), "scan.pdf", layout)
	assert.True(t, errors.Is(err, types.ErrMissingRequiredField))
}

func TestExtractLayout_NoTable(t *testing.T) {
	layout := &pdfinvoice.Layout{Pages: []pdfinvoice.Page{{Number: 1, Glyphs: glyphs(headerRuns()...)}}}
	_, err := newExtractor(nil).ExtractLayout(context.Background(), "notable.pdf", layout)
	assert.True(t, errors.Is(err, types.ErrMissingRequiredField))
}

func TestExtract_NotAPDF(t *testing.T) {
	_, err := newExtractor(nil).Extract(context.Background(), types.Source{Name: "x.pdf", Data: []byte("hello")})
	assert.True(t, errors.Is(err, types.ErrMissingRequiredField))
}

// =============================================================================
// BUILDING BLOCKS
// =============================================================================

func TestLines_ReadingOrder(t *testing.T) {
	layout := &pdfinvoice.Layout{Pages: []pdfinvoice.Page{{Number: 1, Glyphs: glyphs(
		run{350, 770, "Ký hiệu: 1C24TAA"},
		run{50, 770, "HÓA ĐƠN"},
		run{50, 790, "CÔNG TY A"},
		run{50, 769, " "},
	)}}}
	assert.Equal(t, []string{"CÔNG TY A", "HÓA ĐƠN", "Ký hiệu: 1C24TAA"}, pdfinvoice.Lines(layout))
}

func TestLines_DecomposedText(t *testing.T) {
	layout := &pdfinvoice.Layout{Pages: []pdfinvoice.Page{{Number: 1, Glyphs: []pdfinvoice.Glyph{
		{X: 10, Y: 100, W: 20, FontSize: size, S: "CO\u0302NG"},
	}}}}
	assert.Equal(t, []string{"CÔNG"}, pdfinvoice.Lines(layout))
}

func TestFindAndExtract(t *testing.T) {
	lines := []string{
		"CÔNG TY A",
		"Mã số thuế: 0312345678",
		"Địa chỉ: Hà Nội",
		"Mã số thuế: 0101234567",
		"Số: 0000042",
	}
	tax := pdfinvoice.FieldSpec{
		Name:     "tax",
		Start:    regexpMust(`Mã số thuế`),
		Value:    regexpMust(`^\d{10}$`),
		Fallback: true,
	}

	res := pdfinvoice.FindAndExtract(lines, tax)
	assert.Equal(t, "0312345678", res.Value)
	assert.Equal(t, types.ConfidenceAnchored, res.Confidence)

	tax.Ignore = map[string]bool{"0312345678": true}
	res = pdfinvoice.FindAndExtract(lines, tax)
	assert.Equal(t, "0101234567", res.Value, "own tax code is skipped")

	tax.Start = regexpMust(`Tax code`)
	res = pdfinvoice.FindAndExtract(lines, tax)
	assert.Equal(t, "0101234567", res.Value)
	assert.Equal(t, types.ConfidenceFallback, res.Confidence)

	tax.Fallback = false
	res = pdfinvoice.FindAndExtract(lines, tax)
	assert.False(t, res.Found())
	assert.Equal(t, types.ConfidenceMissing, res.Confidence)

	number := pdfinvoice.FieldSpec{Start: regexpMust(`^Số`), Value: regexpMust(`^\d{7,8}$`), Window: 1}
	assert.Equal(t, "0000042", pdfinvoice.FindAndExtract(lines, number).Value)
}

func TestSellerName(t *testing.T) {
	cases := []struct {
		name  string
		lines []string
		want  string
	}{
		{"label prefix", []string{"Đơn vị bán hàng (Seller): CÔNG TY CỔ PHẦN ABC", "Mã số thuế: 0101234567"}, "CÔNG TY CỔ PHẦN ABC"},
		{"trailing MST", []string{"CÔNG TY TNHH XYZ MST: 0101234567"}, "CÔNG TY TNHH XYZ"},
		{"name continues on next line", []string{"CÔNG TY TNHH THƯƠNG MẠI", "DỊCH VỤ & VẬN TẢI", "Địa chỉ: Hà Nội"}, "CÔNG TY TNHH THƯƠNG MẠI DỊCH VỤ & VẬN TẢI"},
		{"self skipped", []string{"CÔNG TY TNHH SỔ CÁI", "MST: 0312345678", "CÔNG TY CP ĐỐI TÁC", "Mã số thuế: 0101234567"}, "CÔNG TY CP ĐỐI TÁC"},
		{"none", []string{"Hóa đơn bán hàng"}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, pdfinvoice.SellerName(tc.lines, self))
		})
	}
}

func TestItemRows_SubHeaderRules(t *testing.T) {
	header := []string{"STT", "Tên", "ĐVT", "SL", "Đơn giá", "Thành tiền"}
	cases := []struct {
		name string
		grid [][]string
		want int
	}{
		{"letter sub-row", [][]string{header, {"A", "B", "C", "D", "E", "F"}, {"1", "Bút", "Cái", "1", "1", "1"}}, 1},
		{"column numbers", [][]string{header, {"1", "2", "3", "4", "5", "6=4x5"}, {"1", "Bút", "Cái", "1", "1", "1"}}, 1},
		{"no sub-row", [][]string{header, {"1", "Bút", "Cái", "1", "1", "1"}, {"2", "Thước", "Cái", "1", "1", "1"}}, 2},
		{"stops at footer", [][]string{header, {"1", "Bút", "Cái", "1", "1", "1"}, {"Cộng", "", "", "", "", "1"}, {"9", "x", "", "", "", ""}}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, rows, ok := pdfinvoice.ItemRows(tc.grid)
			require.True(t, ok)
			assert.Len(t, rows, tc.want)
		})
	}
}

func TestItemRows_DropsUnlabeledColumns(t *testing.T) {
	grid := [][]string{
		{"", "", ""},
		{"STT", "", "Tên"},
		{"1", "stray", "Bút"},
	}
	header, rows, ok := pdfinvoice.ItemRows(grid)
	require.True(t, ok)
	assert.Equal(t, []string{"STT", "Tên"}, header)
	assert.Equal(t, [][]string{{"1", "Bút"}}, rows)
}

func TestItemRows_TransposesStackedItems(t *testing.T) {
	grid := [][]string{
		{"STT", "Tên", "Thành tiền"},
		{"1\n\n2", "Bút bi\nxanh\nThước", "100\n\n200"},
	}
	_, rows, ok := pdfinvoice.ItemRows(grid)
	require.True(t, ok)
	assert.Equal(t, [][]string{
		{"1", "Bút bi xanh", "100"},
		{"2", "Thước", "200"},
	}, rows)
}

func TestDetectTable_LatticeGrid(t *testing.T) {
	grid := pdfinvoice.DetectTable(latticeLayout().Pages[0])
	require.Len(t, grid, 4)
	assert.Equal(t, "STT", grid[0][0])
	assert.Equal(t, "Giấy A4 loại\ntốt", grid[2][1])
	assert.Equal(t, "3\n4", grid[3][0])
}
