package canonical

import (
	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/invoice-ledger/internal/locale"
	"github.com/ginjaninja78/invoice-ledger/internal/types"
)

// =============================================================================
// BATCH ACCUMULATOR
// =============================================================================

// Options controls labels and rounding.
type Options struct {
	// SellerLabel fills the category column when the counterparty sold to us.
	// Default: "Người bán"
	SellerLabel string

	// BuyerLabel fills the category column after a role swap.
	// Default: "Người mua"
	BuyerLabel string

	// VATLabel is the item name of the per-document VAT row.
	// Default: "Thuế GTGT"
	VATLabel string

	// GrandTotalLabel is the item name of the closing totals row.
	// Default: "Tổng cộng"
	GrandTotalLabel string

	// Debit and Credit fill the account placeholder columns.
	Debit  string
	Credit string

	// RoundingPlaces is the precision of converted amounts. Default 0 (VND).
	RoundingPlaces int32
}

// DefaultOptions returns the Vietnamese ledger labels.
func DefaultOptions() Options {
	return Options{
		SellerLabel:     "Người bán",
		BuyerLabel:      "Người mua",
		VATLabel:        "Thuế GTGT",
		GrandTotalLabel: "Tổng cộng",
	}
}

// Batch accumulates rows for one run. Documents must be added in the batch's
// deterministic input order; Close renumbers and appends the closing rows.
//
// EXAMPLE:
//
//	b := canonical.NewBatch(canonical.DefaultOptions())
//	for _, doc := range docs {
//	    b.Add(doc)
//	}
//	rows := b.Close()
type Batch struct {
	opts   Options
	rows   []Row
	docs   int
	closed bool
}

// NewBatch creates an empty batch. Empty labels take their defaults.
func NewBatch(opts Options) *Batch {
	def := DefaultOptions()
	if opts.SellerLabel == "" {
		opts.SellerLabel = def.SellerLabel
	}
	if opts.BuyerLabel == "" {
		opts.BuyerLabel = def.BuyerLabel
	}
	if opts.VATLabel == "" {
		opts.VATLabel = def.VATLabel
	}
	if opts.GrandTotalLabel == "" {
		opts.GrandTotalLabel = def.GrandTotalLabel
	}
	return &Batch{opts: opts}
}

// Add flattens one document into item rows plus its VAT row and returns the
// rows added. The returned rows are a copy and keep their per-document
// ordinals; the batch renumbers its own rows on Close.
//
// Add panics when called after Close.
func (b *Batch) Add(doc *types.Document) []Row {
	if b.closed {
		panic("canonical: Add on a closed batch")
	}

	base := b.context(doc)
	rate := doc.Header.Rate()

	start := len(b.rows)
	for i, item := range doc.Items {
		row := base
		row.Kind = KindItem
		row.Ordinal = i + 1
		row.ItemName = item.Description
		row.Quantity = item.Quantity
		row.Unit = item.Unit
		row.Price = item.UnitPrice
		row.OriginalAmount = item.LineTotal
		row.ConvertedAmount = b.convert(item.LineTotal, rate)
		b.rows = append(b.rows, row)
	}

	vat := base
	vat.Kind = KindVAT
	vat.Ordinal = len(doc.Items) + 1
	vat.ItemName = b.opts.VATLabel
	vat.OriginalAmount = types.Known(VATAmount(doc))
	vat.ConvertedAmount = b.convert(vat.OriginalAmount, rate)
	if r, ok := commonRate(doc.Items); ok {
		vat.Note = locale.FormatPercent(r, locale.DotGrouping)
	}
	b.rows = append(b.rows, vat)

	b.docs++
	return append([]Row(nil), b.rows[start:]...)
}

// context holds the columns shared by every row of a document.
func (b *Batch) context(doc *types.Document) Row {
	category := b.opts.SellerLabel
	if doc.Role == types.RoleBuyerOfRecord {
		category = b.opts.BuyerLabel
	}
	return Row{
		Source:         doc.Source,
		DocumentDate:   doc.Header.IssueDate,
		DocumentNumber: doc.Header.Series,
		InvoiceDate:    doc.Header.IssueDate,
		InvoiceNumber:  doc.Header.Number,
		ExchangeRate:   doc.Header.Rate(),
		Debit:          b.opts.Debit,
		Credit:         b.opts.Credit,
		Category:       category,
		PartyName:      doc.Seller.Name,
		PartyTaxCode:   doc.Seller.TaxCode,
	}
}

func (b *Batch) convert(original types.Amount, rate decimal.Decimal) types.Amount {
	if !original.Known {
		return types.Unknown
	}
	return types.Known(original.Value.Mul(rate).Round(b.opts.RoundingPlaces))
}

// Documents reports how many documents were added.
func (b *Batch) Documents() int {
	return b.docs
}

// Rows returns the rows accumulated so far.
func (b *Batch) Rows() []Row {
	return b.rows
}

// Close renumbers item and VAT rows 1..N across the whole batch, then
// appends a blank separator row and a grand-total row carrying the original
// and converted sums. Calling Close again returns the same rows.
func (b *Batch) Close() []Row {
	if b.closed {
		return b.rows
	}
	b.closed = true

	totals := Summarize(b.rows)
	for i := range b.rows {
		b.rows[i].Ordinal = i + 1
	}

	b.rows = append(b.rows,
		Row{Kind: KindSeparator},
		Row{
			Kind:            KindGrandTotal,
			ItemName:        b.opts.GrandTotalLabel,
			OriginalAmount:  types.Known(totals.Grand),
			ConvertedAmount: types.Known(totals.GrandConverted),
		},
	)
	return b.rows
}

// =============================================================================
// TOTALS
// =============================================================================

// Totals are sums over item and VAT rows. Separator and grand-total rows
// are ignored so Summarize can run on closed and open row sets alike.
type Totals struct {
	Net, VAT, Grand                            decimal.Decimal
	NetConverted, VATConverted, GrandConverted decimal.Decimal
}

// Summarize sums the amounts of rows.
func Summarize(rows []Row) Totals {
	var t Totals
	for _, r := range rows {
		original := r.OriginalAmount.Or(decimal.Zero)
		converted := r.ConvertedAmount.Or(decimal.Zero)
		switch r.Kind {
		case KindItem:
			t.Net = t.Net.Add(original)
			t.NetConverted = t.NetConverted.Add(converted)
		case KindVAT:
			t.VAT = t.VAT.Add(original)
			t.VATConverted = t.VATConverted.Add(converted)
		}
	}
	t.Grand = t.Net.Add(t.VAT)
	t.GrandConverted = t.NetConverted.Add(t.VATConverted)
	return t
}

// VATAmount is the document's VAT in the original currency: its own VAT
// total when stated, otherwise the sum over items of the item tax amount or,
// failing that, line total times tax rate.
func VATAmount(doc *types.Document) decimal.Decimal {
	if doc.VATTotal.Known {
		return doc.VATTotal.Value
	}
	sum := decimal.Zero
	for _, it := range doc.Items {
		switch {
		case it.TaxAmount.Known:
			sum = sum.Add(it.TaxAmount.Value)
		case it.LineTotal.Known && it.TaxRate.Known:
			sum = sum.Add(it.LineTotal.Value.Mul(it.TaxRate.Value))
		}
	}
	return sum
}

// commonRate returns the tax rate shared by every item that has one.
func commonRate(items []types.LineItem) (decimal.Decimal, bool) {
	var rate decimal.Decimal
	found := false
	for _, it := range items {
		if !it.TaxRate.Known {
			continue
		}
		if found && !it.TaxRate.Value.Equal(rate) {
			return decimal.Zero, false
		}
		rate, found = it.TaxRate.Value, true
	}
	return rate, found
}
