// =============================================================================
// Invoice Ledger - Canonical Rows
// =============================================================================
//
// Every extractor produces a types.Document. This package flattens documents
// into one fixed row schema shared by the spreadsheet ledger, the word
// invoices and the proof PDF:
//
//	ordinal | document date | document number | invoice date | invoice number |
//	item name | quantity | unit | price | exchange rate | original amount |
//	converted amount | debit | credit | category | party name |
//	party tax code | note
//
// Writers bind to these columns through the Field vocabulary below and never
// look at the source document again.
//
// =============================================================================

package canonical

import (
	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/invoice-ledger/internal/types"
)

// =============================================================================
// FIELD VOCABULARY
// =============================================================================

// Field names one column of the canonical schema.
type Field string

const (
	FieldOrdinal         Field = "ordinal"
	FieldDocumentDate    Field = "document_date"
	FieldDocumentNumber  Field = "document_number"
	FieldInvoiceDate     Field = "invoice_date"
	FieldInvoiceNumber   Field = "invoice_number"
	FieldItemName        Field = "item_name"
	FieldQuantity        Field = "quantity"
	FieldUnit            Field = "unit"
	FieldPrice           Field = "price"
	FieldExchangeRate    Field = "exchange_rate"
	FieldOriginalAmount  Field = "original_amount"
	FieldConvertedAmount Field = "converted_amount"
	FieldDebit           Field = "debit"
	FieldCredit          Field = "credit"
	FieldCategory        Field = "category"
	FieldPartyName       Field = "party_name"
	FieldPartyTaxCode    Field = "party_tax_code"
	FieldNote            Field = "note"
)

// Fields lists the vocabulary in column order.
var Fields = []Field{
	FieldOrdinal, FieldDocumentDate, FieldDocumentNumber, FieldInvoiceDate,
	FieldInvoiceNumber, FieldItemName, FieldQuantity, FieldUnit, FieldPrice,
	FieldExchangeRate, FieldOriginalAmount, FieldConvertedAmount, FieldDebit,
	FieldCredit, FieldCategory, FieldPartyName, FieldPartyTaxCode, FieldNote,
}

// ParseField validates a field name from configuration.
func ParseField(s string) (Field, bool) {
	for _, f := range Fields {
		if string(f) == s {
			return f, true
		}
	}
	return "", false
}

// =============================================================================
// ROW
// =============================================================================

// Kind tells item rows from the synthetic rows the normalizer adds.
type Kind int

const (
	KindItem Kind = iota
	KindVAT
	KindSeparator
	KindGrandTotal
)

func (k Kind) String() string {
	switch k {
	case KindItem:
		return "item"
	case KindVAT:
		return "vat"
	case KindSeparator:
		return "separator"
	case KindGrandTotal:
		return "grand_total"
	}
	return "unknown"
}

// Row is one line of the ledger. Rows are immutable once added to a batch,
// except for Ordinal which is renumbered when the batch closes.
type Row struct {
	Kind Kind

	// Source is the document the row came from. Empty for closing rows.
	Source string

	Ordinal        int
	DocumentDate   types.Date
	DocumentNumber string
	InvoiceDate    types.Date
	InvoiceNumber  string

	ItemName string
	Quantity types.Amount
	Unit     string
	Price    types.Amount

	ExchangeRate    decimal.Decimal
	OriginalAmount  types.Amount
	ConvertedAmount types.Amount

	Debit  string
	Credit string

	Category     string
	PartyName    string
	PartyTaxCode string
	Note         string
}

// Value returns the cell value for f: int for the ordinal, float64 for
// numbers, string for text and dates, nil when empty.
func (r Row) Value(f Field) interface{} {
	switch f {
	case FieldOrdinal:
		if r.Ordinal == 0 {
			return nil
		}
		return r.Ordinal
	case FieldDocumentDate:
		return text(r.DocumentDate.String())
	case FieldDocumentNumber:
		return text(r.DocumentNumber)
	case FieldInvoiceDate:
		return text(r.InvoiceDate.String())
	case FieldInvoiceNumber:
		return text(r.InvoiceNumber)
	case FieldItemName:
		return text(r.ItemName)
	case FieldQuantity:
		return number(r.Quantity)
	case FieldUnit:
		return text(r.Unit)
	case FieldPrice:
		return number(r.Price)
	case FieldExchangeRate:
		if r.ExchangeRate.IsZero() {
			return nil
		}
		return r.ExchangeRate.InexactFloat64()
	case FieldOriginalAmount:
		return number(r.OriginalAmount)
	case FieldConvertedAmount:
		return number(r.ConvertedAmount)
	case FieldDebit:
		return text(r.Debit)
	case FieldCredit:
		return text(r.Credit)
	case FieldCategory:
		return text(r.Category)
	case FieldPartyName:
		return text(r.PartyName)
	case FieldPartyTaxCode:
		return text(r.PartyTaxCode)
	case FieldNote:
		return text(r.Note)
	}
	return nil
}

func text(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func number(a types.Amount) interface{} {
	if !a.Known {
		return nil
	}
	return a.Value.InexactFloat64()
}
