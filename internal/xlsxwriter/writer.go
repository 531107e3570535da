// =============================================================================
// Invoice Ledger - Spreadsheet Template Writer
// =============================================================================
//
// Fills a ledger template with canonical rows while keeping everything the
// bookkeeper set up around the data: title, header, column formats, merged
// cells and the totals section below the block.
//
// PROCESSING STEPS:
//   1. Read the sheet layout (header binding, anchor, data block)
//   2. Check that every configured totals column is bound
//   3. Capture the ColumnStyleTemplate from the anchor row
//   4. Remove the old data block, bottom-up
//   5. Insert one row per canonical row at the anchor and style it
//   6. Index merged regions and write values through the index
//   7. Write totals at their offsets below the new block
//
// Steps 1-3 fail with a structural error before the workbook is touched.
//
// =============================================================================

package xlsxwriter

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/invoice-ledger/internal/canonical"
	"github.com/ginjaninja78/invoice-ledger/internal/types"
)

// TotalValue names a sum written below the data block.
type TotalValue string

const (
	TotalNet            TotalValue = "net"
	TotalVAT            TotalValue = "vat"
	TotalGrand          TotalValue = "grand"
	TotalNetConverted   TotalValue = "net_converted"
	TotalVATConverted   TotalValue = "vat_converted"
	TotalGrandConverted TotalValue = "grand_converted"
)

// Pick returns the named sum.
func (v TotalValue) Pick(t canonical.Totals) (decimal.Decimal, bool) {
	switch v {
	case TotalNet:
		return t.Net, true
	case TotalVAT:
		return t.VAT, true
	case TotalGrand:
		return t.Grand, true
	case TotalNetConverted:
		return t.NetConverted, true
	case TotalVATConverted:
		return t.VATConverted, true
	case TotalGrandConverted:
		return t.GrandConverted, true
	}
	return decimal.Zero, false
}

// TotalCell places one sum in the column bound to Field, Offset rows below
// the last data row (1 is the row immediately after the block).
type TotalCell struct {
	Field  canonical.Field `yaml:"field"`
	Offset int             `yaml:"offset"`
	Value  TotalValue      `yaml:"value"`
}

// DefaultTotals writes the grand totals on the row after the block.
func DefaultTotals() []TotalCell {
	return []TotalCell{
		{Field: canonical.FieldOriginalAmount, Offset: 1, Value: TotalGrand},
		{Field: canonical.FieldConvertedAmount, Offset: 1, Value: TotalGrandConverted},
	}
}

// Options configures the writer.
type Options struct {
	// Sheet to fill. Empty means the first sheet.
	Sheet string

	// HeaderLabels overrides the recognised header texts per field.
	// Fields missing from the map keep their defaults.
	HeaderLabels map[canonical.Field][]string

	// StopLabels end the data block. Default: DefaultStopLabels.
	StopLabels []string

	// Totals to write. Default: DefaultTotals.
	Totals []TotalCell
}

// Writer renders canonical rows into a spreadsheet template.
type Writer struct {
	opts   Options
	labels map[canonical.Field][]string
}

// New creates a Writer.
func New(opts Options) *Writer {
	labels := DefaultHeaderLabels()
	for f, l := range opts.HeaderLabels {
		if len(l) > 0 {
			labels[f] = l
		}
	}
	if opts.StopLabels == nil {
		opts.StopLabels = DefaultStopLabels
	}
	if opts.Totals == nil {
		opts.Totals = DefaultTotals()
	}
	return &Writer{opts: opts, labels: labels}
}

// Report describes a completed write.
type Report struct {
	Sheet string

	// Layout is the template layout as found before writing.
	Layout *Layout

	// Rows is the number of data rows written.
	Rows int

	Totals canonical.Totals
}

// Write fills template with rows and returns the new workbook.
//
// PARAMETERS:
//   - template: the .xlsx template bytes; never modified.
//   - rows: canonical rows in ledger order, closing rows included.
//
// RETURNS:
//   - The workbook bytes and a report, or an error. Errors of kind
//     types.ErrStructural mean the template cannot be used.
func (w *Writer) Write(template []byte, rows []canonical.Row) ([]byte, *Report, error) {
	f, err := excelize.OpenReader(bytes.NewReader(template))
	if err != nil {
		return nil, nil, types.Structuralf("template is not a readable workbook: %v", err)
	}
	defer f.Close()

	sheet := w.opts.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, nil, types.Structuralf("template has no sheet %q", sheet)
	}

	content, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read template rows: %w", err)
	}
	layout, err := readLayout(content, w.labels, w.opts.StopLabels)
	if err != nil {
		return nil, nil, err
	}
	for _, tc := range w.opts.Totals {
		if _, ok := layout.Columns[tc.Field]; !ok {
			return nil, nil, types.Structuralf("no header column for totals field %q", tc.Field)
		}
		if _, ok := tc.Value.Pick(canonical.Totals{}); !ok {
			return nil, nil, types.Structuralf("unknown totals value %q", tc.Value)
		}
	}

	styles, err := CaptureColumnStyles(f, sheet, layout.Anchor, layout.Width)
	if err != nil {
		return nil, nil, err
	}

	// =========================================================================
	// REPLACE THE DATA BLOCK
	// =========================================================================

	for r := layout.BlockEnd; r >= layout.Anchor; r-- {
		if err := f.RemoveRow(sheet, r); err != nil {
			return nil, nil, fmt.Errorf("failed to remove template row %d: %w", r, err)
		}
	}
	if len(rows) > 0 {
		if err := f.InsertRows(sheet, layout.Anchor, len(rows)); err != nil {
			return nil, nil, fmt.Errorf("failed to insert %d rows: %w", len(rows), err)
		}
	}
	for i := range rows {
		if err := styles.Apply(f, sheet, layout.Anchor+i); err != nil {
			return nil, nil, err
		}
	}

	// =========================================================================
	// WRITE VALUES
	// =========================================================================

	merged, err := NewMergedRegionIndex(f, sheet)
	if err != nil {
		return nil, nil, err
	}
	for i, row := range rows {
		for _, field := range canonical.Fields {
			col, ok := layout.Columns[field]
			if !ok {
				continue
			}
			if v := row.Value(field); v != nil {
				if err := setCell(f, sheet, merged, col, layout.Anchor+i, v); err != nil {
					return nil, nil, err
				}
			}
		}
	}

	totals := canonical.Summarize(rows)
	last := layout.Anchor + len(rows) - 1
	for _, tc := range w.opts.Totals {
		v, _ := tc.Value.Pick(totals)
		if err := setCell(f, sheet, merged, layout.Columns[tc.Field], last+tc.Offset, v.InexactFloat64()); err != nil {
			return nil, nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to serialise workbook: %w", err)
	}
	return buf.Bytes(), &Report{Sheet: sheet, Layout: layout, Rows: len(rows), Totals: totals}, nil
}

func setCell(f *excelize.File, sheet string, merged *MergedRegionIndex, col, row int, v interface{}) error {
	cell, err := excelize.CoordinatesToCellName(merged.Resolve(col, row))
	if err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, cell, v); err != nil {
		return fmt.Errorf("failed to write %s: %w", cell, err)
	}
	return nil
}
