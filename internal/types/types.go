// =============================================================================
// Invoice Ledger - Shared Types
// =============================================================================
//
// This package contains the data model shared by every extractor, the
// canonical row normalizer and the template writers. Keeping it in one leaf
// package avoids import cycles between:
//   - xmlinvoice, docxinvoice, pdfinvoice (producers of Document)
//   - validation (inspects Document)
//   - canonical (flattens Document into rows)
//   - converter (orchestrates all of the above)
//
// =============================================================================

package types

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SOURCE FORMATS
// =============================================================================

// Format identifies which extractor understands a source document.
type Format string

const (
	FormatXML  Format = "xml"
	FormatDOCX Format = "docx"
	FormatPDF  Format = "pdf"
)

// FormatFromPath maps a file extension to a Format.
// The second return value is false for extensions no extractor handles.
func FormatFromPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		return FormatXML, true
	case ".docx":
		return FormatDOCX, true
	case ".pdf":
		return FormatPDF, true
	}
	return "", false
}

// Source is one input document handed to an extractor.
type Source struct {
	// Name identifies the document in warnings, errors and override lookups.
	// Normally the base file name.
	Name string

	Data []byte
}

// =============================================================================
// VALUE TYPES
// =============================================================================

// Date is a calendar date as printed on an invoice. The zero value means the
// date could not be determined.
type Date struct {
	Day   int
	Month int
	Year  int
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d.Day == 0 && d.Month == 0 && d.Year == 0
}

// String renders the date as DD/MM/YYYY, the layout used on Vietnamese ledgers.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%02d/%02d/%04d", d.Day, d.Month, d.Year)
}

// Time converts the date to a time.Time at midnight UTC.
func (d Date) Time() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

// MarshalYAML renders the date in its ledger layout.
func (d Date) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// Amount is a numeric field that may be unknown. Extractors never store a
// malformed string: a value either parsed (Known) or it is the unknown marker.
type Amount struct {
	Value decimal.Decimal
	Known bool
}

// Known wraps a parsed value.
func Known(d decimal.Decimal) Amount {
	return Amount{Value: d, Known: true}
}

// KnownInt wraps an integer value.
func KnownInt(n int64) Amount {
	return Known(decimal.NewFromInt(n))
}

// Unknown is the empty/unknown marker.
var Unknown = Amount{}

// Or returns the value when known and def otherwise.
func (a Amount) Or(def decimal.Decimal) decimal.Decimal {
	if a.Known {
		return a.Value
	}
	return def
}

// String renders known values in plain machine form and unknown as "".
func (a Amount) String() string {
	if !a.Known {
		return ""
	}
	return a.Value.String()
}

// MarshalYAML renders unknown amounts as null.
func (a Amount) MarshalYAML() (interface{}, error) {
	if !a.Known {
		return nil, nil
	}
	return a.Value.String(), nil
}

// =============================================================================
// INVOICE MODEL
// =============================================================================

// InvoiceHeader holds the identifying facts of one invoice.
type InvoiceHeader struct {
	// Template is the invoice template code (KHMSHDon), when the source has one.
	Template string `yaml:"template,omitempty"`

	// Series is the invoice symbol, e.g. "1C24TAA".
	Series string `yaml:"series"`

	// Number is the invoice number as printed, leading zeros preserved.
	Number string `yaml:"number"`

	IssueDate Date `yaml:"issue_date"`

	// ExchangeRate converts the original currency into the ledger currency.
	// Always > 0; extractors store 1 when the document has none.
	ExchangeRate decimal.Decimal `yaml:"exchange_rate"`

	// Currency is the ISO code of the original currency. Empty means VND.
	Currency string `yaml:"currency,omitempty"`
}

// Rate returns the exchange rate, substituting 1 for a non-positive value.
func (h InvoiceHeader) Rate() decimal.Decimal {
	if h.ExchangeRate.IsPositive() {
		return h.ExchangeRate
	}
	return decimal.NewFromInt(1)
}

// Party is one side of an invoice.
type Party struct {
	Name string `yaml:"name"`

	// TaxCode holds digits only.
	TaxCode string `yaml:"tax_code"`

	Address string `yaml:"address,omitempty"`
}

// NewParty builds a Party with its tax code normalized.
func NewParty(name, taxCode, address string) Party {
	return Party{
		Name:    strings.TrimSpace(name),
		TaxCode: NormalizeTaxCode(taxCode),
		Address: strings.TrimSpace(address),
	}
}

// IsZero reports whether nothing is known about the party.
func (p Party) IsZero() bool {
	return p.Name == "" && p.TaxCode == "" && p.Address == ""
}

// NormalizeTaxCode strips every non-digit character.
// Branch suffixes such as "0101234567-001" become "0101234567001".
func NormalizeTaxCode(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// LineItem is one goods/service line of an invoice.
type LineItem struct {
	Ordinal     int    `yaml:"ordinal"`
	Description string `yaml:"description"`
	Unit        string `yaml:"unit,omitempty"`
	Quantity    Amount `yaml:"quantity"`
	UnitPrice   Amount `yaml:"unit_price"`

	// LineTotal is in the original currency.
	LineTotal Amount `yaml:"line_total"`

	// TaxRate is a fraction: 0.1 for 10%.
	TaxRate   Amount `yaml:"tax_rate"`
	TaxAmount Amount `yaml:"tax_amount"`
}

// Role labels which side of the invoice the counterparty sits on.
type Role string

const (
	// RoleSellerOfRecord: the counterparty sold to us (a purchase invoice).
	RoleSellerOfRecord Role = "seller_of_record"

	// RoleBuyerOfRecord: we sold to the counterparty; seller and buyer were
	// swapped so that Seller still holds the counterparty.
	RoleBuyerOfRecord Role = "buyer_of_record"
)

// Document is the output of every extractor.
type Document struct {
	// Source identifies the input, normally its base file name.
	Source string `yaml:"source"`
	Format Format `yaml:"format"`

	Header InvoiceHeader `yaml:"header"`

	// Seller is always the counterparty after role reconciliation.
	Seller Party `yaml:"seller"`
	Buyer  Party `yaml:"buyer"`
	Role   Role  `yaml:"role"`

	Items []LineItem `yaml:"items"`

	// VATTotal is the document's own VAT figure; Unknown when the document
	// did not state one.
	VATTotal Amount `yaml:"vat_total"`

	// DeclaredNetTotal is the VAT-exclusive total printed on the document.
	DeclaredNetTotal Amount `yaml:"declared_net_total"`

	// DeclaredGrandTotal is the VAT-inclusive total printed on the document.
	DeclaredGrandTotal Amount `yaml:"declared_grand_total"`

	Warnings []Warning `yaml:"warnings,omitempty"`
}

// NewDocument returns an empty document for the given source with the
// defaults every extractor starts from.
func NewDocument(source string, format Format) *Document {
	return &Document{
		Source: source,
		Format: format,
		Role:   RoleSellerOfRecord,
		Header: InvoiceHeader{ExchangeRate: decimal.NewFromInt(1)},
	}
}

// Warn appends a warning attributed to this document.
func (d *Document) Warn(kind WarningKind, field string, confidence Confidence, format string, args ...interface{}) {
	d.Warnings = append(d.Warnings, Warning{
		Kind:       kind,
		Source:     d.Source,
		Field:      field,
		Confidence: confidence,
		Message:    fmt.Sprintf(format, args...),
	})
}

// ItemsTotal sums the known line totals.
func (d *Document) ItemsTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range d.Items {
		sum = sum.Add(it.LineTotal.Or(decimal.Zero))
	}
	return sum
}

// =============================================================================
// WARNINGS AND CONFIDENCE
// =============================================================================

// WarningKind classifies non-fatal findings.
type WarningKind string

const (
	WarnNameMismatch      WarningKind = "name_mismatch"
	WarnTaxCodeMismatch   WarningKind = "tax_code_mismatch"
	WarnRoleInconsistency WarningKind = "role_inconsistency"
	WarnAmbiguousField    WarningKind = "ambiguous_field"
	WarnTotalMismatch     WarningKind = "total_mismatch"
	WarnInvalidValue      WarningKind = "invalid_value"
)

// Confidence grades how a field value was obtained.
type Confidence int

const (
	// ConfidenceAnchored: found next to its label.
	ConfidenceAnchored Confidence = iota

	// ConfidenceFallback: recovered by a global search or heuristic; verify.
	ConfidenceFallback

	// ConfidenceMissing: not found at all.
	ConfidenceMissing
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceAnchored:
		return "anchored"
	case ConfidenceFallback:
		return "fallback"
	case ConfidenceMissing:
		return "missing"
	}
	return "unknown"
}

// MarshalYAML renders the confidence by name.
func (c Confidence) MarshalYAML() (interface{}, error) {
	return c.String(), nil
}

// Warning is a human-readable, non-fatal finding about one document.
type Warning struct {
	Kind       WarningKind `yaml:"kind"`
	Source     string      `yaml:"source"`
	Field      string      `yaml:"field,omitempty"`
	Confidence Confidence  `yaml:"confidence"`
	Message    string      `yaml:"message"`
}

func (w Warning) String() string {
	if w.Field == "" {
		return fmt.Sprintf("%s: %s", w.Source, w.Message)
	}
	return fmt.Sprintf("%s: %s: %s", w.Source, w.Field, w.Message)
}

// =============================================================================
// TEXT HELPERS
// =============================================================================

// IsDigits reports whether s is non-empty and made of ASCII digits only.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// HasUpper reports whether s contains an upper-case letter and no lower-case one.
func HasUpper(s string) bool {
	upper := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			upper = true
		}
	}
	return upper
}
