package docxwriter_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/invoice-ledger/internal/canonical"
	"github.com/ginjaninja78/invoice-ledger/internal/docxwriter"
	"github.com/ginjaninja78/invoice-ledger/internal/ooxml"
	"github.com/ginjaninja78/invoice-ledger/internal/types"
)

// =============================================================================
// FIXTURES
// =============================================================================

func run(text string) string {
	return fmt.Sprintf(`<w:r><w:t xml:space="preserve">%s</w:t></w:r>`, text)
}

func boldRun(text string) string {
	return fmt.Sprintf(`<w:r><w:rPr><w:b/></w:rPr><w:t xml:space="preserve">%s</w:t></w:r>`, text)
}

func para(runs ...string) string {
	return "<w:p>" + strings.Join(runs, "") + "</w:p>"
}

func textBox(text string) string {
	return para(`<w:r><w:pict><v:shape><v:textbox><w:txbxContent>` + para(run(text)) +
		`</w:txbxContent></v:textbox></v:shape></w:pict></w:r>`)
}

func tc(text string) string {
	return "<w:tc>" + para(run(text)) + "</w:tc>"
}

func span(text string, n int) string {
	return fmt.Sprintf(`<w:tc><w:tcPr><w:gridSpan w:val="%d"/></w:tcPr>%s</w:tc>`, n, para(run(text)))
}

func tr(cells ...string) string {
	return "<w:tr>" + strings.Join(cells, "") + "</w:tr>"
}

var (
	headerRow = tr(tc("STT"), tc("Tên hàng"), tc("ĐVT"), tc("Số lượng"), tc("Đơn giá"), tc("Thành tiền"))
	sampleRow = tr(tc("1"), tc("Mẫu"), tc("cái"), tc("1"), tc("1.000"), tc("1.000"))
	trailing  = []string{
		tr(span("Cộng tiền hàng", 5), tc("0")),
		tr(span("Tiền thuế GTGT", 5), tc("0")),
		tr(span("Tổng cộng tiền thanh toán", 5), tc("0")),
		tr(span("Số tiền viết bằng chữ: không đồng", 6)),
	}
)

func itemTable(dataRows ...string) string {
	rows := append([]string{headerRow}, dataRows...)
	return "<w:tbl>" + strings.Join(append(rows, trailing...), "") + "</w:tbl>"
}

func template(t *testing.T, body ...string) []byte {
	t.Helper()
	data, err := ooxml.BuildDocx(strings.Join(body, ""))
	require.NoError(t, err)
	return data
}

func standardTemplate(t *testing.T, dataRows ...string) []byte {
	return template(t,
		textBox("Số: 00000000"),
		para(run("HÓA ĐƠN GIÁ TRỊ GIA TĂNG")),
		para(run("Ngày 01/01/2000")),
		para(run("Mã số thuế: "), boldRun("0000000000")),
		para(run("Thuế suất GTGT: 10%")),
		itemTable(dataRows...),
	)
}

func invoiceRows(amounts ...int64) []canonical.Row {
	doc := types.NewDocument("inv.docx", types.FormatDOCX)
	doc.Header.Series = "C24TAA"
	doc.Header.Number = "123"
	doc.Header.IssueDate = types.Date{Day: 15, Month: 3, Year: 2024}
	doc.Seller = types.NewParty("CÔNG TY A", "0101234567", "")
	for i, a := range amounts {
		doc.Items = append(doc.Items, types.LineItem{
			Ordinal:     i + 1,
			Description: fmt.Sprintf("Hàng %d", i+1),
			Unit:        "cái",
			Quantity:    types.KnownInt(2),
			UnitPrice:   types.KnownInt(a / 2),
			LineTotal:   types.KnownInt(a),
			TaxRate:     types.Known(decimal.RequireFromString("0.08")),
		})
	}
	return canonical.NewBatch(canonical.DefaultOptions()).Add(doc)
}

type rendered struct {
	body  *etree.Element
	table [][]string
}

func render(t *testing.T, data []byte) rendered {
	t.Helper()
	pkg, err := ooxml.Open(data)
	require.NoError(t, err)
	part, ok := pkg.Part(ooxml.DocumentPart)
	require.True(t, ok)
	doc, err := ooxml.ParseDocument(part)
	require.NoError(t, err)
	body := ooxml.Body(doc)
	tables := ooxml.Tables(body)
	require.Len(t, tables, 1)

	var rows [][]string
	for _, cells := range ooxml.TableGrid(tables[0]) {
		rows = append(rows, ooxml.LogicalRow(cells))
	}
	return rendered{body: body, table: rows}
}

func (r rendered) paragraphs() []string {
	var out []string
	for _, p := range r.body.FindElements(".//w:p") {
		out = append(out, ooxml.ParagraphText(p))
	}
	return out
}

func newWriter(t *testing.T, opts docxwriter.Options) *docxwriter.Writer {
	t.Helper()
	w, err := docxwriter.New(opts)
	require.NoError(t, err)
	return w
}

// =============================================================================
// TESTS
// =============================================================================

func TestWrite_ClonesRowsAndWritesTotals(t *testing.T) {
	out, report, err := newWriter(t, docxwriter.Options{}).
		Write(standardTemplate(t, sampleRow, sampleRow), invoiceRows(100000, 200000, 300000))
	require.NoError(t, err)
	assert.Equal(t, 3, report.Items)
	assert.Equal(t, 1, report.Cloned)

	table := render(t, out).table
	require.Len(t, table, 1+3+4)
	assert.Equal(t, []string{"1", "Hàng 1", "cái", "2", "50.000", "100.000"}, table[1])
	assert.Equal(t, []string{"2", "Hàng 2", "cái", "2", "100.000", "200.000"}, table[2])
	assert.Equal(t, []string{"3", "Hàng 3", "cái", "2", "150.000", "300.000"}, table[3])

	assert.Equal(t, []string{"Cộng tiền hàng", "600.000"}, table[4])
	assert.Equal(t, []string{"Tiền thuế GTGT", "48.000"}, table[5])
	assert.Equal(t, []string{"Tổng cộng tiền thanh toán", "648.000"}, table[6])
	assert.Equal(t, []string{""}, table[7], "last trailing row blanked")
}

func TestWrite_ClearsSurplusRows(t *testing.T) {
	out, report, err := newWriter(t, docxwriter.Options{}).
		Write(standardTemplate(t, sampleRow, sampleRow, sampleRow), invoiceRows(100000))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Cloned)

	table := render(t, out).table
	require.Len(t, table, 1+3+4, "pre-existing rows are kept")
	assert.Equal(t, "Hàng 1", table[1][1])
	assert.Equal(t, []string{"", "", "", "", "", ""}, table[2])
	assert.Equal(t, []string{"", "", "", "", "", ""}, table[3])
	assert.Equal(t, "100.000", table[4][1])
}

func TestWrite_MergedCellShiftsLaterColumns(t *testing.T) {
	merged := tr(tc("1"), span("Mẫu", 2), tc("cái"), tc("1"), tc("1.000"), tc("1.000"))
	out, _, err := newWriter(t, docxwriter.Options{}).
		Write(standardTemplate(t, merged), invoiceRows(100000))
	require.NoError(t, err)

	table := render(t, out).table
	assert.Equal(t, []string{"1", "Hàng 1", "cái", "2", "50.000", "100.000"}, table[1],
		"the name fills the merged pair; unit and later fields move right")
}

func TestWrite_WideMergeCountsAsOneColumn(t *testing.T) {
	merged := tr(tc("1"), span("Mẫu", 3), tc("cái"), tc("1"), tc("1.000"), tc("1.000"))
	out, _, err := newWriter(t, docxwriter.Options{}).
		Write(standardTemplate(t, merged), invoiceRows(100000))
	require.NoError(t, err)

	table := render(t, out).table
	assert.Equal(t, []string{"1", "Hàng 1", "cái", "2", "50.000", "100.000"}, table[1])
}

func TestWrite_SparseColumnsPastMerge(t *testing.T) {
	merged := tr(tc("1"), span("Mẫu", 2), tc("cái"), tc("1"), tc("1.000"), tc("1.000"))
	w := newWriter(t, docxwriter.Options{Columns: map[canonical.Field]int{
		canonical.FieldOrdinal:        0,
		canonical.FieldOriginalAmount: 5,
	}})
	out, _, err := w.Write(standardTemplate(t, merged, merged), invoiceRows(100000, 300000))
	require.NoError(t, err)

	table := render(t, out).table
	assert.Equal(t, []string{"1", "", "", "", "", "100.000"}, table[1], "unmapped sample text is cleared")
	assert.Equal(t, []string{"2", "", "", "", "", "300.000"}, table[2])
}

func TestWrite_Placeholders(t *testing.T) {
	out, report, err := newWriter(t, docxwriter.Options{}).
		Write(standardTemplate(t, sampleRow), invoiceRows(100000))
	require.NoError(t, err)
	assert.Equal(t, 1, report.TextBoxReplacements)
	assert.Equal(t, 3, report.RunReplacements)

	r := render(t, out)
	paras := strings.Join(r.paragraphs(), "\n")
	assert.Contains(t, paras, "Số: 00000123", "text box, padded like the sample")
	assert.Contains(t, paras, "Ngày 15/03/2024")
	assert.Contains(t, paras, "Mã số thuế: 0101234567")
	assert.Contains(t, paras, "Thuế suất GTGT: 8%")
	assert.NotContains(t, paras, "01/01/2000")

	// The run keeps its formatting.
	var bold *etree.Element
	for _, el := range r.body.FindElements(".//w:r") {
		if tx := el.SelectElement("w:t"); tx != nil && tx.Text() == "0101234567" {
			bold = el
		}
	}
	require.NotNil(t, bold)
	assert.NotNil(t, bold.FindElement("./w:rPr/w:b"))
}

func TestWrite_ConfiguredTableAndLayout(t *testing.T) {
	doc := template(t,
		"<w:tbl>"+tr(tc("Người bán"), tc("CÔNG TY A"))+"</w:tbl>",
		"<w:tbl>"+tr(tc("Hàng"), tc("Tiền"))+tr(tc("Ghi chú"), tc(""))+tr(tc("x"), tc("0"))+tr(tc("Cộng"), tc("0"))+"</w:tbl>",
	)
	w := newWriter(t, docxwriter.Options{
		ItemTable:    2,
		FirstDataRow: 2,
		TrailingRows: 1,
		Columns: map[canonical.Field]int{
			canonical.FieldItemName:       0,
			canonical.FieldOriginalAmount: 1,
		},
		Placeholders: []docxwriter.Placeholder{},
	})
	out, _, err := w.Write(doc, invoiceRows(1500))
	require.NoError(t, err)

	pkg, err := ooxml.Open(out)
	require.NoError(t, err)
	part, _ := pkg.Part(ooxml.DocumentPart)
	parsed, err := ooxml.ParseDocument(part)
	require.NoError(t, err)
	tables := ooxml.Tables(ooxml.Body(parsed))
	require.Len(t, tables, 2)

	grid := ooxml.TableGrid(tables[1])
	assert.Equal(t, []string{"Ghi chú", ""}, ooxml.LogicalRow(grid[1]), "header rows untouched")
	assert.Equal(t, []string{"Hàng 1", "1.500"}, ooxml.LogicalRow(grid[2]))
	assert.Equal(t, []string{"Cộng", "1.500"}, ooxml.LogicalRow(grid[3]))
}

func TestWrite_StructuralErrors(t *testing.T) {
	tests := []struct {
		name     string
		template []byte
		opts     docxwriter.Options
	}{
		{"not a document", []byte("nope"), docxwriter.Options{}},
		{"no STT table", template(t, "<w:tbl>"+tr(tc("A"), tc("B"))+"</w:tbl>"), docxwriter.Options{}},
		{"table index out of range", standardTemplate(t, sampleRow), docxwriter.Options{ItemTable: 3}},
		{"no data row", standardTemplate(t), docxwriter.Options{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := newWriter(t, tt.opts).Write(tt.template, invoiceRows(100))
			require.Error(t, err)
			assert.True(t, errors.Is(err, types.ErrStructural), "got %v", err)
		})
	}
}

func TestNew_UnknownFact(t *testing.T) {
	_, err := docxwriter.New(docxwriter.Options{
		Placeholders: []docxwriter.Placeholder{{Token: "X", Fact: "buyer_shoe_size"}},
	})
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	facts := docxwriter.Facts{
		InvoiceDate:   types.Date{Day: 5, Month: 3, Year: 2024},
		InvoiceNumber: "123",
		PartyTaxCode:  "0101234567",
		VATRate:       types.Known(decimal.RequireFromString("0.085")),
		Net:           decimal.NewFromInt(1234567),
		VAT:           decimal.NewFromInt(100),
	}
	tests := []struct {
		token string
		fact  docxwriter.Fact
		want  string
	}{
		{"01/01/2000", docxwriter.FactInvoiceDate, "05/03/2024"},
		{"01-01-2000", docxwriter.FactInvoiceDate, "05-03-2024"},
		{"00000000", docxwriter.FactInvoiceNumber, "00000123"},
		{"0000", docxwriter.FactInvoiceNumber, "0123"},
		{"0000000000", docxwriter.FactPartyTaxCode, "0101234567"},
		{"10%", docxwriter.FactVATRate, "8,5%"},
		{"10.5%", docxwriter.FactVATRate, "8.5%"},
		{"1.000.000", docxwriter.FactNetTotal, "1.234.567"},
		{"1,000,000", docxwriter.FactNetTotal, "1,234,567"},
		{"1000", docxwriter.FactGrandTotal, "1234667"},
	}
	for _, tt := range tests {
		t.Run(tt.token+"/"+string(tt.fact), func(t *testing.T) {
			assert.Equal(t, tt.want, docxwriter.Render(tt.token, tt.fact, facts))
		})
	}
}

func TestCollectFacts(t *testing.T) {
	f := docxwriter.CollectFacts(invoiceRows(100000, 200000))
	assert.Equal(t, "123", f.InvoiceNumber)
	assert.Equal(t, "C24TAA", f.Series)
	assert.Equal(t, "CÔNG TY A", f.PartyName)
	assert.True(t, f.VATRate.Known)
	assert.Equal(t, "0.08", f.VATRate.Value.String())
	assert.Equal(t, "300000", f.Net.String())
	assert.Equal(t, "24000", f.VAT.String())
	assert.Equal(t, "324000", f.Grand().String())
}
