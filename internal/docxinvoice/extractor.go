// =============================================================================
// Invoice Ledger - Table-Document Invoice Extractor
// =============================================================================
//
// Reads invoices typed into a word-processing document: a header region of
// labeled "key: value" paragraphs under an invoice title, followed by a table
// whose body rows are the line items.
//
// Item tables in these documents are hand-built and routinely merge cells
// horizontally (a wide description column) and vertically (a notes column).
// Rows are therefore read through the table grid and deduplicated by cell
// identity, so that a merged cell counts as one logical column.
//
// =============================================================================

package docxinvoice

import (
	"context"
	"regexp"
	"strings"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/invoice-ledger/internal/locale"
	"github.com/ginjaninja78/invoice-ledger/internal/ooxml"
	"github.com/ginjaninja78/invoice-ledger/internal/overrides"
	"github.com/ginjaninja78/invoice-ledger/internal/types"
)

// DefaultTitleMarkers are the invoice titles the header scan starts after.
var DefaultTitleMarkers = []string{
	"HÓA ĐƠN GIÁ TRỊ GIA TĂNG",
	"HOÁ ĐƠN GIÁ TRỊ GIA TĂNG",
	"HÓA ĐƠN BÁN HÀNG",
	"HOÁ ĐƠN BÁN HÀNG",
	"VAT INVOICE",
}

// Options configures the extractor.
type Options struct {
	// Convention of printed numbers. Word invoices are typed by hand in
	// the vi-VN layout, so DotGrouping is the usual value.
	Convention locale.Convention

	// TitleMarkers override DefaultTitleMarkers when non-empty.
	TitleMarkers []string

	// Columns maps the six item roles onto logical table columns.
	Columns overrides.Mapping
}

// Extractor implements the DOCX source format.
type Extractor struct {
	opts Options
}

// New creates an extractor. Zero-valued options fall back to defaults.
func New(opts Options) *Extractor {
	if len(opts.TitleMarkers) == 0 {
		opts.TitleMarkers = DefaultTitleMarkers
	}
	if opts.Columns == (overrides.Mapping{}) {
		opts.Columns = overrides.Default
	}
	return &Extractor{opts: opts}
}

// Format reports types.FormatDOCX.
func (e *Extractor) Format() types.Format {
	return types.FormatDOCX
}

// Extract parses one word-processing invoice.
//
// RETURNS:
//   - MissingRequiredField when the package is unreadable, has no table,
//     or the table has no item rows
func (e *Extractor) Extract(ctx context.Context, src types.Source) (*types.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pkg, err := ooxml.Open(src.Data)
	if err != nil {
		return nil, types.MissingFieldWrap(src.Name, "document", err, "not a word-processing package")
	}
	part, _ := pkg.Part(ooxml.DocumentPart)
	xml, err := ooxml.ParseDocument(part)
	if err != nil {
		return nil, types.MissingFieldWrap(src.Name, "document", err, "unreadable document part")
	}
	body := ooxml.Body(xml)
	if body == nil {
		return nil, types.MissingField(src.Name, "document", "document has no body")
	}

	doc := types.NewDocument(src.Name, types.FormatDOCX)
	blocks := ooxml.BodyBlocks(body)

	e.readHeader(doc, blocks)

	tables := ooxml.Tables(body)
	if len(tables) == 0 {
		return nil, types.MissingField(src.Name, "table", "no item table found")
	}
	rows := ReadRows(tables[0])
	if err := e.readItems(doc, rows); err != nil {
		return nil, err
	}
	return doc, nil
}

// =============================================================================
// ITEM TABLE
// =============================================================================

// ReadRows returns the logical rows of a table: merged cells collapsed to
// one column each and every cell text squashed. Applied to a table without
// merges it returns the rows as typed.
func ReadRows(tbl *etree.Element) [][]string {
	grid := ooxml.TableGrid(tbl)
	rows := make([][]string, len(grid))
	for i, cells := range grid {
		row := ooxml.LogicalRow(cells)
		for j := range row {
			row[j] = locale.Squash(row[j])
		}
		rows[i] = row
	}
	return rows
}

// itemStart picks the first item row: index 2 when the table has a two-row
// header (row 2 already holds item "1"), index 1 otherwise.
func itemStart(rows [][]string) int {
	if len(rows) > 2 && first(rows[2]) == "1" {
		return 2
	}
	return 1
}

// readItems scans rows from the item start until the first row whose first
// logical cell is not purely numeric. A footer row starting with a bare
// number is read as an item.
func (e *Extractor) readItems(doc *types.Document, rows [][]string) error {
	start := itemStart(rows)
	end := start
	for end < len(rows) && types.IsDigits(first(rows[end])) {
		end++
	}
	if end == start {
		return types.MissingField(doc.Source, "items", "no item rows below the table header")
	}

	cols := e.opts.Columns
	for _, row := range rows[start:end] {
		item := types.LineItem{
			Description: cell(row, cols[overrides.Name]),
			Unit:        cell(row, cols[overrides.Unit]),
			Quantity:    e.decimal(cell(row, cols[overrides.Quantity])),
			UnitPrice:   e.decimal(cell(row, cols[overrides.Price])),
			LineTotal:   e.decimal(cell(row, cols[overrides.Amount])),
		}
		if n, err := locale.ParseInteger(cell(row, cols[overrides.Ordinal])); err == nil {
			item.Ordinal = int(n)
		}
		if raw := cell(row, cols[overrides.Amount]); !item.LineTotal.Known {
			doc.Warn(types.WarnInvalidValue, "amount", types.ConfidenceMissing, "line %d amount %q is not a number", item.Ordinal, raw)
		}
		doc.Items = append(doc.Items, item)
	}

	if rate, ok := taxRate(rows); ok {
		for i := range doc.Items {
			doc.Items[i].TaxRate = types.Known(rate)
		}
	}
	e.readFooter(doc, rows[end:])
	return nil
}

var percentPattern = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*%`)

// taxRate scans upward from the third-from-last row for the first percent
// figure. The rate row sits in the totals footer, just above the tax amount
// and grand total rows.
func taxRate(rows [][]string) (decimal.Decimal, bool) {
	for i := len(rows) - 3; i >= 0; i-- {
		m := percentPattern.FindStringSubmatch(strings.Join(rows[i], " "))
		if m == nil {
			continue
		}
		if rate, err := locale.ParsePercent(m[1] + "%"); err == nil {
			return rate, true
		}
	}
	return decimal.Zero, false
}

// readFooter picks the printed totals out of the rows below the items.
// Labels and amounts may share one cell or sit in neighbouring cells; the
// last cell that parses as an amount is taken.
func (e *Extractor) readFooter(doc *types.Document, footer [][]string) {
	for _, row := range footer {
		label := locale.Fold(strings.Join(row, " "))
		target := footerTarget(doc, label)
		if target == nil || target.Known {
			continue
		}
		for i := len(row) - 1; i >= 0; i-- {
			value := row[i]
			if idx := strings.LastIndex(value, ":"); idx >= 0 {
				value = value[idx+1:]
			}
			if strings.Contains(value, "%") {
				continue
			}
			if amount := e.total(doc, value); amount.Known {
				*target = amount
				break
			}
		}
	}
}

func footerTarget(doc *types.Document, label string) *types.Amount {
	switch {
	case strings.Contains(label, "tổng cộng tiền thanh toán"), strings.Contains(label, "tổng tiền thanh toán"):
		return &doc.DeclaredGrandTotal
	case strings.Contains(label, "tiền thuế"):
		return &doc.VATTotal
	case strings.Contains(label, "cộng tiền hàng"):
		return &doc.DeclaredNetTotal
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (e *Extractor) decimal(raw string) types.Amount {
	if raw == "" {
		return types.Unknown
	}
	d, err := locale.ParseDecimal(raw, e.opts.Convention)
	if err != nil {
		return types.Unknown
	}
	return types.Known(d)
}

// total parses a printed document total. Without an exchange rate the
// invoice is in VND and its totals are whole currency units.
func (e *Extractor) total(doc *types.Document, raw string) types.Amount {
	if raw == "" || !doc.Header.ExchangeRate.IsZero() {
		return e.decimal(raw)
	}
	n, err := locale.ParseGroupedAmount(raw, e.opts.Convention)
	if err != nil {
		return types.Unknown
	}
	return types.KnownInt(n)
}

func first(row []string) string {
	return cell(row, 0)
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
