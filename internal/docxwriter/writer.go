// =============================================================================
// Invoice Ledger - Word Template Writer
// =============================================================================
//
// Renders one invoice into a .docx template. The template is an ordinary
// Word document holding sample values (a date, an invoice number, a tax code,
// a rate) and an item table:
//
//	| STT | Tên hàng | ĐVT | SL | Đơn giá | Thành tiền |   <- header row(s)
//	| 1   | sample   | ... |    |         |            |   <- data rows
//	| ... |                                             |
//	| Cộng tiền hàng                      | total      |   <- trailing rows
//	| Thuế GTGT                           | total      |
//	| Tổng cộng                           | total      |
//	| Số tiền viết bằng chữ                            |   <- blanked
//
// PROCESSING STEPS:
//   1. Replace placeholders inside text boxes on the raw document part
//   2. Parse the rewritten part and replace placeholders in ordinary runs
//   3. Fill the item table, cloning the first data row as needed
//   4. Clear surplus data rows and write the trailing totals
//
// =============================================================================

package docxwriter

import (
	"fmt"

	"github.com/beevik/etree"

	"github.com/ginjaninja78/invoice-ledger/internal/canonical"
	"github.com/ginjaninja78/invoice-ledger/internal/locale"
	"github.com/ginjaninja78/invoice-ledger/internal/ooxml"
	"github.com/ginjaninja78/invoice-ledger/internal/types"
)

// Options configures the writer.
type Options struct {
	// ItemTable is the 1-based index of the item table. Zero picks the first
	// table whose first row contains STT.
	ItemTable int

	// FirstDataRow is the 0-based index of the first data row. Default: 1.
	FirstDataRow int

	// TrailingRows at the end of the table hold the totals: net, VAT,
	// grand, then one row that is blanked. Default: 4.
	TrailingRows int

	// Columns maps fields to logical table columns. Default: DefaultColumns.
	Columns map[canonical.Field]int

	// Placeholders to replace. Default: DefaultPlaceholders.
	Placeholders []Placeholder

	// Convention formats amounts in the table and the totals.
	Convention locale.Convention
}

// Writer renders canonical rows into a Word template.
type Writer struct {
	opts    Options
	columns []column
}

// New creates a Writer. It fails when a placeholder names an unknown fact.
func New(opts Options) (*Writer, error) {
	if opts.FirstDataRow <= 0 {
		opts.FirstDataRow = 1
	}
	if opts.TrailingRows <= 0 {
		opts.TrailingRows = 4
	}
	if len(opts.Columns) == 0 {
		opts.Columns = DefaultColumns()
	}
	if opts.Placeholders == nil {
		opts.Placeholders = DefaultPlaceholders()
	}
	for _, p := range opts.Placeholders {
		if !knownFacts[p.Fact] {
			return nil, fmt.Errorf("placeholder %q: unknown fact %q", p.Token, p.Fact)
		}
	}
	return &Writer{opts: opts, columns: sortedColumns(opts.Columns)}, nil
}

// Report describes a completed write.
type Report struct {
	// TextBoxReplacements and RunReplacements count the rewritten text
	// nodes.
	TextBoxReplacements int
	RunReplacements     int

	// Items is the number of item rows written; Cloned of those needed a
	// new table row.
	Items  int
	Cloned int

	Facts Facts
}

// Write renders the rows of one document into template.
//
// PARAMETERS:
//   - template: the .docx template bytes; never modified.
//   - rows: the canonical rows of one document (item rows and its VAT row).
//
// RETURNS:
//   - The document bytes and a report, or an error. Errors of kind
//     types.ErrStructural mean the template cannot be used.
func (w *Writer) Write(template []byte, rows []canonical.Row) ([]byte, *Report, error) {
	pkg, err := ooxml.Open(template)
	if err != nil {
		return nil, nil, types.Structuralf("template is not a readable document: %v", err)
	}
	part, _ := pkg.Part(ooxml.DocumentPart)

	facts := CollectFacts(rows)
	report := &Report{Facts: facts}

	// =========================================================================
	// PLACEHOLDERS
	// =========================================================================

	part, report.TextBoxReplacements = replaceInTextBoxes(part, replacer(w.opts.Placeholders, facts, true))

	doc, err := ooxml.ParseDocument(part)
	if err != nil {
		return nil, nil, types.Structuralf("template document part: %v", err)
	}
	body := ooxml.Body(doc)
	if body == nil {
		return nil, nil, types.Structuralf("template has no document body")
	}
	report.RunReplacements = replaceInRuns(body, replacer(w.opts.Placeholders, facts, false))

	// =========================================================================
	// ITEM TABLE
	// =========================================================================

	tbl, err := findItemTable(body, w.opts.ItemTable)
	if err != nil {
		return nil, nil, err
	}
	tableRows := ooxml.Rows(tbl)
	slots := len(tableRows) - w.opts.FirstDataRow - w.opts.TrailingRows
	if slots < 1 {
		return nil, nil, types.Structuralf("item table has %d rows, need a header of %d, one data row and %d trailing rows",
			len(tableRows), w.opts.FirstDataRow, w.opts.TrailingRows)
	}
	sample := tableRows[w.opts.FirstDataRow].Copy()
	lastData := tableRows[w.opts.FirstDataRow+slots-1]

	var items []canonical.Row
	for _, r := range rows {
		if r.Kind == canonical.KindItem {
			items = append(items, r)
		}
	}

	for i, item := range items {
		var tr *etree.Element
		if i < slots {
			tr = tableRows[w.opts.FirstDataRow+i]
		} else {
			tr = sample.Copy()
			tbl.InsertChildAt(lastData.Index()+1, tr)
			lastData = tr
			report.Cloned++
		}

		clearRow(tr)
		cursor := newRowCursor(tr)
		for _, col := range w.columns {
			if tc := cursor.cell(col.index); tc != nil {
				setCellText(tc, cellValue(item, col.field, i+1, w.opts.Convention))
			}
		}
	}
	for i := len(items); i < slots; i++ {
		clearRow(tableRows[w.opts.FirstDataRow+i])
	}
	report.Items = len(items)

	w.writeTotals(ooxml.Rows(tbl), facts)

	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to serialise document part: %w", err)
	}
	pkg.SetPart(ooxml.DocumentPart, out)
	data, err := pkg.Bytes()
	if err != nil {
		return nil, nil, err
	}
	return data, report, nil
}

// writeTotals fills the last cell of the first three trailing rows with net,
// VAT and grand total and blanks the row after them.
func (w *Writer) writeTotals(tableRows []*etree.Element, facts Facts) {
	trailing := tableRows[len(tableRows)-w.opts.TrailingRows:]
	totals := []string{
		locale.FormatGrouped(facts.Net, w.opts.Convention),
		locale.FormatGrouped(facts.VAT, w.opts.Convention),
		locale.FormatGrouped(facts.Grand(), w.opts.Convention),
	}
	for i, tr := range trailing {
		if i < len(totals) {
			if cells := tr.SelectElements("w:tc"); len(cells) > 0 {
				setCellText(cells[len(cells)-1], totals[i])
			}
			continue
		}
		if i == len(trailing)-1 {
			clearRow(tr)
		}
	}
}
