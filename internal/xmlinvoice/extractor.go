// =============================================================================
// Invoice Ledger - XML Invoice Extractor
// =============================================================================
//
// Reads Vietnamese e-invoices (the HDon/DLHDon layout issued under Circular
// 78). The schema is walked along fixed element paths:
//
//	DLHDon/TTChung            header: KHMSHDon, KHHDon, SHDon, NLap, DVTTe, TGia
//	DLHDon/NDHDon/NBan        seller: Ten, MST, DChi
//	DLHDon/NDHDon/NMua        buyer:  Ten, MST, DChi, HVTNMHang
//	DLHDon/NDHDon/DSHHDVu     items:  HHDVu{STT, THHDVu, DVTinh, SLuong, DGia,
//	                                  ThTien, TSuat, TThue | TTKhac/TTin}
//	DLHDon/NDHDon/TToan       totals: TgTCThue, TgTThue, TgTTTBSo
//
// The invoice block may be the document root or wrapped in transmission
// envelopes (TDiep/DLieu/HDon); it is located by search. Missing optional
// elements yield empty values; only a missing DLHDon block fails the document.
//
// =============================================================================

package xmlinvoice

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"

	"github.com/ginjaninja78/invoice-ledger/internal/locale"
	"github.com/ginjaninja78/invoice-ledger/internal/types"
)

// Extractor implements the XML source format.
type Extractor struct {
	self types.Party
}

// New returns an XML extractor that reconciles roles against self.
func New(self types.Party) *Extractor {
	return &Extractor{self: self}
}

// Format reports types.FormatXML.
func (e *Extractor) Format() types.Format {
	return types.FormatXML
}

// Extract parses one XML invoice. Role reconciliation is not applied here:
// it depends on batch order and is done through Reconcile.
func (e *Extractor) Extract(ctx context.Context, src types.Source) (*types.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader
	if err := doc.ReadFromBytes(src.Data); err != nil {
		return nil, types.MissingFieldWrap(src.Name, "document", err, "not well-formed XML")
	}

	inv := doc.FindElement("//DLHDon")
	if inv == nil {
		return nil, types.MissingField(src.Name, "DLHDon", "invoice data block not found")
	}

	out := types.NewDocument(src.Name, types.FormatXML)
	readHeader(out, inv.SelectElement("TTChung"))

	content := inv.SelectElement("NDHDon")
	out.Seller = readParty(child(content, "NBan"))
	out.Buyer = readParty(child(content, "NMua"))
	if out.Buyer.Name == "" {
		out.Buyer.Name = text(child(content, "NMua"), "HVTNMHang")
	}

	if list := child(content, "DSHHDVu"); list != nil {
		for i, el := range list.SelectElements("HHDVu") {
			if item, ok := readItem(out, el, i); ok {
				out.Items = append(out.Items, item)
			}
		}
	}

	readTotals(out, child(content, "TToan"))
	return out, nil
}

// Reconcile applies role reconciliation to a document this extractor
// produced, advancing the batch tally.
func (e *Extractor) Reconcile(doc *types.Document, tally *RoleTally) {
	Reconcile(doc, e.self, tally)
}

// =============================================================================
// BLOCK READERS
// =============================================================================

func readHeader(out *types.Document, ttc *etree.Element) {
	h := &out.Header
	h.Template = text(ttc, "KHMSHDon")
	h.Series = text(ttc, "KHHDon")
	h.Number = text(ttc, "SHDon")
	h.Currency = text(ttc, "DVTTe")

	if raw := text(ttc, "NLap"); raw != "" {
		date, err := locale.ParseDate(raw, locale.ISODate)
		if err != nil {
			out.Warn(types.WarnInvalidValue, "NLap", types.ConfidenceMissing, "issue date left empty: %v", err)
		} else {
			h.IssueDate = date
		}
	}

	if raw := text(ttc, "TGia"); raw != "" {
		rate, err := locale.ParseNumber(raw)
		if err != nil || !rate.IsPositive() {
			out.Warn(types.WarnInvalidValue, "TGia", types.ConfidenceFallback, "exchange rate %q unusable, using 1", raw)
		} else {
			h.ExchangeRate = rate
		}
	}
}

func readParty(el *etree.Element) types.Party {
	return types.NewParty(text(el, "Ten"), text(el, "MST"), text(el, "DChi"))
}

// readItem returns false for note-only lines (TChat 4), which carry no
// amounts.
func readItem(out *types.Document, el *etree.Element, index int) (types.LineItem, bool) {
	if text(el, "TChat") == "4" {
		return types.LineItem{}, false
	}

	item := types.LineItem{
		Ordinal:     index + 1,
		Description: text(el, "THHDVu"),
		Unit:        text(el, "DVTinh"),
		Quantity:    number(text(el, "SLuong")),
		UnitPrice:   number(text(el, "DGia")),
		LineTotal:   number(text(el, "ThTien")),
	}
	if n, err := locale.ParseInteger(text(el, "STT")); err == nil {
		item.Ordinal = int(n)
	}
	if raw := text(el, "ThTien"); raw != "" && !item.LineTotal.Known {
		out.Warn(types.WarnInvalidValue, "ThTien", types.ConfidenceMissing, "line %d amount %q is not a number", item.Ordinal, raw)
	}

	if raw := text(el, "TSuat"); raw != "" {
		if rate, err := locale.ParsePercent(raw); err == nil {
			item.TaxRate = types.Known(rate)
		}
	}
	item.TaxAmount = number(itemTaxAmount(el))
	return item, true
}

// itemTaxAmount finds the per-line VAT. Issuers put it either in a TThue
// child or in the TTKhac extension block as a TTin whose TTruong names it.
func itemTaxAmount(el *etree.Element) string {
	if v := text(el, "TThue"); v != "" {
		return v
	}
	extra := el.SelectElement("TTKhac")
	if extra == nil {
		return ""
	}
	for _, info := range extra.SelectElements("TTin") {
		switch locale.Fold(text(info, "TTruong")) {
		case "vatamount", "tthue", "tiền thuế", "tien thue", "tiền thuế gtgt":
			return text(info, "DLieu")
		}
	}
	return ""
}

func readTotals(out *types.Document, el *etree.Element) {
	out.DeclaredNetTotal = number(text(el, "TgTCThue"))
	out.DeclaredGrandTotal = number(text(el, "TgTTTBSo"))

	if raw := text(el, "TgTThue"); raw != "" {
		out.VATTotal = number(raw)
		if out.VATTotal.Known {
			return
		}
		out.Warn(types.WarnInvalidValue, "TgTThue", types.ConfidenceMissing, "VAT total %q is not a number", raw)
	}

	// No usable VAT total. Some issuers list the VAT as a final pseudo item
	// ("Thuế GTGT 10%"); treat such a line as the VAT figure.
	if n := len(out.Items); n > 0 && strings.Contains(out.Items[n-1].Description, "%") && out.Items[n-1].LineTotal.Known {
		last := out.Items[n-1]
		out.Items = out.Items[:n-1]
		out.VATTotal = last.LineTotal
		out.Warn(types.WarnAmbiguousField, "TgTThue", types.ConfidenceFallback,
			"VAT total taken from last line %q; value may be wrong, verify", last.Description)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func child(el *etree.Element, tag string) *etree.Element {
	if el == nil {
		return nil
	}
	return el.SelectElement(tag)
}

func text(el *etree.Element, path string) string {
	if el == nil {
		return ""
	}
	if found := el.FindElement(path); found != nil {
		return strings.TrimSpace(found.Text())
	}
	return ""
}

func number(raw string) types.Amount {
	if raw == "" {
		return types.Unknown
	}
	d, err := locale.ParseNumber(raw)
	if err != nil {
		return types.Unknown
	}
	return types.Known(d)
}

// charsetReader decodes legacy encodings declared in the XML prolog.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	var enc encoding.Encoding
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "windows-1258", "cp1258":
		enc = charmap.Windows1258
	default:
		var err error
		enc, err = ianaindex.IANA.Encoding(label)
		if err != nil {
			return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
		}
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}
