package docxwriter

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/invoice-ledger/internal/canonical"
	"github.com/ginjaninja78/invoice-ledger/internal/locale"
	"github.com/ginjaninja78/invoice-ledger/internal/types"
)

// =============================================================================
// FACTS
// =============================================================================

// Fact names a value a placeholder can be replaced with.
type Fact string

const (
	FactInvoiceDate   Fact = "invoice_date"
	FactInvoiceNumber Fact = "invoice_number"
	FactSeries        Fact = "series"
	FactPartyName     Fact = "party_name"
	FactPartyTaxCode  Fact = "party_tax_code"
	FactVATRate       Fact = "vat_rate"
	FactNetTotal      Fact = "net_total"
	FactVATTotal      Fact = "vat_total"
	FactGrandTotal    Fact = "grand_total"
)

var knownFacts = map[Fact]bool{
	FactInvoiceDate: true, FactInvoiceNumber: true, FactSeries: true,
	FactPartyName: true, FactPartyTaxCode: true, FactVATRate: true,
	FactNetTotal: true, FactVATTotal: true, FactGrandTotal: true,
}

// Placeholder is a literal sample text in the template and the fact that
// replaces it. The replacement copies the sample's digit width, date
// separator and grouping marks.
type Placeholder struct {
	Token string `yaml:"token"`
	Fact  Fact   `yaml:"fact"`
}

// DefaultPlaceholders are the sample tokens of the stock invoice template.
func DefaultPlaceholders() []Placeholder {
	return []Placeholder{
		{Token: "01/01/2000", Fact: FactInvoiceDate},
		{Token: "00000000", Fact: FactInvoiceNumber},
		{Token: "0000000000", Fact: FactPartyTaxCode},
		{Token: "10%", Fact: FactVATRate},
	}
}

// Facts are the values of one invoice, collected from its canonical rows.
type Facts struct {
	InvoiceDate   types.Date
	InvoiceNumber string
	Series        string
	PartyName     string
	PartyTaxCode  string
	VATRate       types.Amount
	Net           decimal.Decimal
	VAT           decimal.Decimal
}

// Grand is Net plus VAT.
func (f Facts) Grand() decimal.Decimal {
	return f.Net.Add(f.VAT)
}

// CollectFacts reads the invoice facts from the rows of one document. The
// first row supplies the document context; item rows sum into Net and the
// VAT row supplies VAT and, through its note, the rate.
func CollectFacts(rows []canonical.Row) Facts {
	var f Facts
	if len(rows) == 0 {
		return f
	}
	first := rows[0]
	f.InvoiceDate = first.InvoiceDate
	f.InvoiceNumber = first.InvoiceNumber
	f.Series = first.DocumentNumber
	f.PartyName = first.PartyName
	f.PartyTaxCode = first.PartyTaxCode

	for _, r := range rows {
		switch r.Kind {
		case canonical.KindItem:
			f.Net = f.Net.Add(r.OriginalAmount.Or(decimal.Zero))
		case canonical.KindVAT:
			f.VAT = f.VAT.Add(r.OriginalAmount.Or(decimal.Zero))
			if rate, err := locale.ParsePercent(r.Note); err == nil && r.Note != "" {
				f.VATRate = types.Known(rate)
			}
		}
	}
	return f
}

// =============================================================================
// FORMATTING LIKE THE SAMPLE
// =============================================================================

var sampleDate = regexp.MustCompile(`^\d{1,2}([/.\-])\d{1,2}([/.\-])\d{4}$`)

// Render formats fact like the sample token.
//
// EXAMPLE:
//
//	Render("00000000", FactInvoiceNumber, f)   -> "00000123"
//	Render("01-01-2000", FactInvoiceDate, f)   -> "15-03-2024"
//	Render("1.000.000", FactGrandTotal, f)     -> "1.234.567"
//	Render("10%", FactVATRate, f)              -> "8%"
func Render(token string, fact Fact, f Facts) string {
	switch fact {
	case FactInvoiceDate:
		if f.InvoiceDate.IsZero() {
			return ""
		}
		sep := "/"
		if m := sampleDate.FindStringSubmatch(token); m != nil {
			sep = m[1]
		}
		d := f.InvoiceDate
		return fmt.Sprintf("%02d%s%02d%s%04d", d.Day, sep, d.Month, sep, d.Year)
	case FactInvoiceNumber:
		return digitsLike(token, f.InvoiceNumber)
	case FactSeries:
		return f.Series
	case FactPartyName:
		return f.PartyName
	case FactPartyTaxCode:
		return digitsLike(token, f.PartyTaxCode)
	case FactVATRate:
		if !f.VATRate.Known {
			return ""
		}
		conv, _ := sampleConvention(token)
		out := locale.FormatPercent(f.VATRate.Value, conv)
		if !strings.HasSuffix(strings.TrimSpace(token), "%") {
			out = strings.TrimSuffix(out, "%")
		}
		return out
	case FactNetTotal:
		return amountLike(token, f.Net)
	case FactVATTotal:
		return amountLike(token, f.VAT)
	case FactGrandTotal:
		return amountLike(token, f.Grand())
	}
	return token
}

// digitsLike left-pads an all-digit value with zeros to the sample width.
func digitsLike(token, value string) string {
	if types.IsDigits(token) && types.IsDigits(value) {
		return locale.PadLeft(value, len(token), '0')
	}
	return value
}

func amountLike(token string, d decimal.Decimal) string {
	conv, grouped := sampleConvention(token)
	if !grouped {
		return d.String()
	}
	return locale.FormatGrouped(d, conv)
}

// sampleConvention infers the separator convention from a sample number.
// A mark followed by exactly three digits groups thousands; when both marks
// appear the later one is the decimal mark. Samples without a grouping mark
// report grouped=false.
func sampleConvention(token string) (conv locale.Convention, grouped bool) {
	s := strings.TrimSuffix(strings.TrimSpace(token), "%")
	dot, comma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0:
		if comma > dot {
			return locale.DotGrouping, true
		}
		return locale.CommaGrouping, true
	case dot >= 0:
		if len(s)-dot-1 == 3 {
			return locale.DotGrouping, true
		}
		return locale.CommaGrouping, false
	case comma >= 0:
		if len(s)-comma-1 == 3 {
			return locale.CommaGrouping, true
		}
		return locale.DotGrouping, false
	}
	return locale.DotGrouping, false
}

// =============================================================================
// SUBSTITUTION
// =============================================================================

// replacer builds a single-pass replacer over all placeholders. Longer
// tokens come first so a token that contains another wins, and replaced
// values are never scanned again.
func replacer(placeholders []Placeholder, f Facts, escape bool) *strings.Replacer {
	sorted := append([]Placeholder(nil), placeholders...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Token) > len(sorted[j].Token)
	})
	pairs := make([]string, 0, 2*len(sorted))
	for _, p := range sorted {
		if p.Token == "" {
			continue
		}
		old, value := p.Token, Render(p.Token, p.Fact, f)
		if escape {
			old, value = escapeText(old), escapeText(value)
		}
		pairs = append(pairs, old, value)
	}
	return strings.NewReplacer(pairs...)
}

func escapeText(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

var (
	textBox = regexp.MustCompile(`(?s)<w:txbxContent\b.*?</w:txbxContent>`)
	textRun = regexp.MustCompile(`(?s)(<w:t(?:\s[^>]*)?>)([^<]*)(</w:t>)`)
)

// replaceInTextBoxes rewrites the w:t text inside every text box of a raw
// document part. Both the drawing and the VML fallback copy are covered.
func replaceInTextBoxes(part []byte, r *strings.Replacer) ([]byte, int) {
	count := 0
	out := textBox.ReplaceAllFunc(part, func(box []byte) []byte {
		return textRun.ReplaceAllFunc(box, func(run []byte) []byte {
			m := textRun.FindSubmatch(run)
			replaced := r.Replace(string(m[2]))
			if replaced == string(m[2]) {
				return run
			}
			count++
			return []byte(string(m[1]) + replaced + string(m[3]))
		})
	})
	return out, count
}

// replaceInRuns substitutes placeholders in the w:t elements of ordinary
// paragraphs and table cells. Only the text node changes; run properties
// stay as they are. Text boxes were handled on the raw part and are skipped.
func replaceInRuns(body *etree.Element, r *strings.Replacer) int {
	count := 0
	for _, t := range body.FindElements(".//w:t") {
		if insideTextBox(t) {
			continue
		}
		text := t.Text()
		if replaced := r.Replace(text); replaced != text {
			t.SetText(replaced)
			preserveSpace(t)
			count++
		}
	}
	return count
}

func insideTextBox(el *etree.Element) bool {
	for p := el.Parent(); p != nil; p = p.Parent() {
		if p.Tag == "txbxContent" {
			return true
		}
	}
	return false
}

func preserveSpace(t *etree.Element) {
	if t.SelectAttr("xml:space") == nil {
		t.CreateAttr("xml:space", "preserve")
	}
}
