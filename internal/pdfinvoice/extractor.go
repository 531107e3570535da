// =============================================================================
// Invoice Ledger - PDF Layout Invoice Extractor
// =============================================================================
//
// Reads invoices that exist only as a PDF text layer. Header facts are found
// by anchored search over reading-order lines, the item table by geometric
// detection on the first page.
//
// PROCESSING STEPS:
//   1. Decrypt the document when it carries a security handler
//   2. Read glyphs and rulings per page
//   3. Rebuild reading-order lines
//   4. Recover header fields with FindAndExtract and the seller name
//   5. Detect the table on page 1, map its columns, parse the item rows
//
// Scanned pages without a text layer are not supported.
//
// =============================================================================

package pdfinvoice

import (
	"context"
	"regexp"
	"strings"

	"github.com/ginjaninja78/invoice-ledger/internal/locale"
	"github.com/ginjaninja78/invoice-ledger/internal/overrides"
	"github.com/ginjaninja78/invoice-ledger/internal/types"
)

// Options configures the extractor.
type Options struct {
	Convention locale.Convention

	// Self is excluded from counterparty matches.
	Self types.Party

	// Password opens encrypted documents.
	Password string

	// Overrides supplies column mappings for tables wider than six columns.
	Overrides *overrides.Table
}

// Extractor implements the PDF source format.
type Extractor struct {
	opts Options
}

// New creates a PDF extractor.
func New(opts Options) *Extractor {
	return &Extractor{opts: opts}
}

// Format reports types.FormatPDF.
func (e *Extractor) Format() types.Format {
	return types.FormatPDF
}

// Extract parses one PDF invoice.
func (e *Extractor) Extract(ctx context.Context, src types.Source) (*types.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := decrypt(src.Data, e.opts.Password)
	if err != nil {
		return nil, &types.ExtractionError{Kind: types.ErrConfiguration, Source: src.Name, Field: "pdf.password", Msg: "cannot open encrypted document", Err: err}
	}

	layout, err := ReadLayout(data)
	if err != nil {
		return nil, types.MissingFieldWrap(src.Name, "document", err, "unreadable PDF")
	}
	return e.ExtractLayout(ctx, src.Name, layout)
}

// ExtractLayout runs field and table extraction on an already read layout.
func (e *Extractor) ExtractLayout(ctx context.Context, name string, layout *Layout) (*types.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !layout.HasText() {
		return nil, types.MissingField(name, "text", "document has no text layer")
	}

	doc := types.NewDocument(name, types.FormatPDF)
	lines := Lines(layout)
	rate := e.readHeader(doc, lines)

	grid := DetectTable(layout.Pages[0])
	header, rows, ok := ItemRows(grid)
	if !ok {
		return nil, types.MissingField(name, "table", "no table with an STT header on page 1")
	}

	mapping, err := e.mapping(name, header)
	if err != nil {
		return nil, err
	}
	if err := e.readItems(doc, rows, mapping, rate); err != nil {
		return nil, err
	}
	if len(doc.Items) == 0 {
		return nil, types.MissingField(name, "items", "table has no item rows")
	}
	return doc, nil
}

// =============================================================================
// HEADER FIELDS
// =============================================================================

var (
	seriesPattern  = regexp.MustCompile(`^(?:\d?[A-Z]\d{2}[A-Z]{2,3}|[A-Z]{2}/\d{2}[A-Z])$`)
	numberPattern  = regexp.MustCompile(`^\d{7,8}$`)
	taxCodePattern = regexp.MustCompile(`^\d{10}(?:-?\d{3})?$`)
	datePattern    = regexp.MustCompile(`(?i)(?:ngày|day)\D{0,24}\d{1,2}\D{0,24}(?:tháng|month)\D{0,24}\d{1,2}\D{0,24}(?:năm|year)\D{0,24}\d{4}|\b\d{1,2}/\d{1,2}/\d{4}\b`)
	ratePattern    = regexp.MustCompile(`^(?:\d{1,2}(?:[.,]\d+)?\s*%|KCT|KKKNT)$`)
	amountPattern  = regexp.MustCompile(`^-?\d[\d., ]*$`)
	anyText        = regexp.MustCompile(`^.+$`)
)

var (
	seriesLabel  = regexp.MustCompile(`(?i)k[ýí] hiệu|serial`)
	numberLabel  = regexp.MustCompile(`(?i)^số\s*(?:\(no\.?\))?\s*:|số hóa đơn|số hoá đơn|invoice no`)
	dateLabel    = regexp.MustCompile(`(?i)ngày|date`)
	taxLabel     = regexp.MustCompile(`(?i)mã số thuế|tax code|\bMST\b`)
	buyerLabel   = regexp.MustCompile(`(?i)người mua|đơn vị mua|buyer`)
	buyerNameTag = regexp.MustCompile(`(?i)tên đơn vị|company`)
	rateLabel    = regexp.MustCompile(`(?i)thuế suất|vat rate|tax rate`)
	vatLabel     = regexp.MustCompile(`(?i)tiền thuế|vat amount`)
	fxLabel      = regexp.MustCompile(`(?i)tỷ giá|exchange rate`)
	netLabel     = regexp.MustCompile(`(?i)^cộng tiền hàng|total amount before`)
	grandLabel   = regexp.MustCompile(`(?i)tổng cộng tiền thanh toán|tổng tiền thanh toán|total payment`)
)

// readHeader fills header and party fields and returns the VAT rate, which
// applies to every item.
func (e *Extractor) readHeader(doc *types.Document, lines []string) types.Amount {
	ignoreSelf := map[string]bool{}
	if e.opts.Self.TaxCode != "" {
		ignoreSelf[e.opts.Self.TaxCode] = true
	}

	h := &doc.Header
	h.Series = e.field(doc, lines, FieldSpec{Name: "series", Start: seriesLabel, Value: seriesPattern, Compact: true, Fallback: true})
	h.Number = e.field(doc, lines, FieldSpec{Name: "number", Start: numberLabel, Value: numberPattern, Window: 3, Fallback: true})

	if raw := e.field(doc, lines, FieldSpec{Name: "issue_date", Start: dateLabel, Value: datePattern, Fallback: true}); raw != "" {
		if date, err := locale.ParseDate(raw, locale.WordsDate, locale.SlashDate); err == nil {
			h.IssueDate = date
		}
	}

	sellerTax := e.field(doc, lines, FieldSpec{Name: "seller.tax_code", Start: taxLabel, Value: taxCodePattern, Ignore: ignoreSelf, Compact: true, Fallback: true})
	doc.Seller = types.NewParty(SellerName(lines, e.opts.Self), sellerTax, "")
	if doc.Seller.Name == "" {
		doc.Warn(types.WarnInvalidValue, "seller.name", types.ConfidenceMissing, "no company name line found")
	}

	buyerLines := fromAnchor(lines, buyerLabel)
	buyerName := e.field(doc, buyerLines, FieldSpec{Name: "buyer.name", Start: buyerNameTag, Value: anyText, Window: 1})
	if buyerName == "" {
		buyerName = e.field(doc, buyerLines, FieldSpec{Name: "buyer.name", Start: buyerLabel, Value: anyText, Window: 1})
	}
	buyerTax := e.field(doc, buyerLines, FieldSpec{Name: "buyer.tax_code", Start: taxLabel, Value: taxCodePattern, Compact: true, Window: 2})
	doc.Buyer = types.NewParty(buyerName, buyerTax, "")

	if raw := e.field(doc, lines, FieldSpec{Name: "exchange_rate", Start: fxLabel, Value: amountPattern, Window: 2}); raw != "" {
		if rate, err := locale.ParseDecimal(raw, e.opts.Convention); err == nil && rate.IsPositive() {
			h.ExchangeRate = rate
		}
	}

	var rate types.Amount
	if raw := e.field(doc, lines, FieldSpec{Name: "vat_rate", Start: rateLabel, Value: ratePattern, Window: 2}); raw != "" {
		if r, err := locale.ParsePercent(raw); err == nil {
			rate = types.Known(r)
		}
	}
	doc.VATTotal = e.total(doc, e.field(doc, lines, FieldSpec{Name: "vat_amount", Start: vatLabel, Value: amountPattern, Window: 2}))
	doc.DeclaredNetTotal = e.total(doc, e.field(doc, lines, FieldSpec{Name: "net_total", Start: netLabel, Value: amountPattern, Window: 2}))
	doc.DeclaredGrandTotal = e.total(doc, e.field(doc, lines, FieldSpec{Name: "grand_total", Start: grandLabel, Value: amountPattern, Window: 2}))
	return rate
}

// field runs FindAndExtract and records a fallback hit as a warning.
func (e *Extractor) field(doc *types.Document, lines []string, spec FieldSpec) string {
	res := FindAndExtract(lines, spec)
	if res.Confidence == types.ConfidenceFallback {
		doc.Warn(types.WarnAmbiguousField, spec.Name, types.ConfidenceFallback,
			"label not found, %q taken from a global search; value may be wrong, verify", res.Value)
	}
	return res.Value
}

func fromAnchor(lines []string, start *regexp.Regexp) []string {
	for i, line := range lines {
		if start.MatchString(line) {
			return lines[i:]
		}
	}
	return nil
}

func (e *Extractor) amount(raw string) types.Amount {
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
		return e.amount(raw)
	}
	n, err := locale.ParseGroupedAmount(raw, e.opts.Convention)
	if err != nil {
		return types.Unknown
	}
	return types.KnownInt(n)
}

// =============================================================================
// ITEM TABLE
// =============================================================================

// mapping picks the column roles for a table with the given kept header.
func (e *Extractor) mapping(name string, header []string) (overrides.Mapping, error) {
	if len(header) <= overrides.Columns {
		return overrides.Default, nil
	}
	m, ok := e.opts.Overrides.Lookup(name)
	if !ok {
		return overrides.Mapping{}, types.Configurationf(name,
			"table has %d columns (%s); a column mapping override is required", len(header), strings.Join(header, " | "))
	}
	if m.Max() >= len(header) {
		return overrides.Mapping{}, types.Configurationf(name,
			"column mapping override references column %d but the table has %d", m.Max()+1, len(header))
	}
	return m, nil
}

// readItems converts logical rows into line items.
//
// A row whose amount does not parse is fatal for the document when its
// ordinal, name and at least one of quantity or price did parse. A row where
// more than the amount failed is not an item row and is skipped with a
// warning.
func (e *Extractor) readItems(doc *types.Document, rows [][]string, m overrides.Mapping, rate types.Amount) error {
	for _, row := range rows {
		cell := func(role int) string {
			if m[role] < len(row) {
				return row[m[role]]
			}
			return ""
		}

		item := types.LineItem{
			Description: cell(overrides.Name),
			Unit:        cell(overrides.Unit),
			Quantity:    e.amount(cell(overrides.Quantity)),
			UnitPrice:   e.amount(cell(overrides.Price)),
			LineTotal:   e.amount(cell(overrides.Amount)),
			TaxRate:     rate,
		}
		n, ordErr := locale.ParseInteger(strings.TrimSuffix(cell(overrides.Ordinal), "."))
		item.Ordinal = int(n)

		if !item.LineTotal.Known {
			othersOK := ordErr == nil && item.Description != "" && (item.Quantity.Known || item.UnitPrice.Known)
			if othersOK {
				return types.MissingField(doc.Source, "amount", "line %d amount %q is not a number", item.Ordinal, cell(overrides.Amount))
			}
			doc.Warn(types.WarnAmbiguousField, "items", types.ConfidenceFallback,
				"row %q skipped: not a parsable item row", strings.Join(row, " | "))
			continue
		}
		doc.Items = append(doc.Items, item)
	}
	return nil
}
