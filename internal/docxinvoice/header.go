package docxinvoice

import (
	"regexp"
	"strings"

	"github.com/beevik/etree"

	"github.com/ginjaninja78/invoice-ledger/internal/locale"
	"github.com/ginjaninja78/invoice-ledger/internal/ooxml"
	"github.com/ginjaninja78/invoice-ledger/internal/types"
)

// segmentSplit separates label/value pairs typed on one line with tabs or
// runs of spaces ("Ký hiệu: 1C24TAA        Số: 0000123").
var segmentSplit = regexp.MustCompile("[\t\n]+|[ \u00a0]{2,}")

type section int

const (
	sellerSection section = iota
	buyerSection
)

// headerState tracks which party the labeled paragraphs currently describe.
type headerState struct {
	doc     *types.Document
	conv    locale.Convention
	section section
	date    bool
}

// readHeader scans the paragraphs between the invoice title and the first
// table. A document without a recognised title is scanned from the top with
// an ambiguity warning.
func (e *Extractor) readHeader(doc *types.Document, blocks []*etree.Element) {
	start := e.titleIndex(blocks)
	if start < 0 {
		doc.Warn(types.WarnAmbiguousField, "title", types.ConfidenceFallback,
			"invoice title not found, header read from the document start; verify")
		start = 0
	} else {
		start++
	}

	st := &headerState{doc: doc, conv: e.opts.Convention}
	for _, block := range blocks[start:] {
		if block.Tag == "tbl" {
			break
		}
		st.paragraph(ooxml.ParagraphText(block))
	}

	if !st.date {
		doc.Warn(types.WarnInvalidValue, "issue_date", types.ConfidenceMissing, "no \"Ngày ... tháng ... năm ...\" line in the header")
	}
	doc.Seller = types.NewParty(doc.Seller.Name, doc.Seller.TaxCode, doc.Seller.Address)
	doc.Buyer = types.NewParty(doc.Buyer.Name, doc.Buyer.TaxCode, doc.Buyer.Address)
}

func (e *Extractor) titleIndex(blocks []*etree.Element) int {
	for i, block := range blocks {
		if block.Tag == "tbl" {
			return -1
		}
		text := locale.Fold(ooxml.ParagraphText(block))
		for _, marker := range e.opts.TitleMarkers {
			if strings.Contains(text, locale.Fold(marker)) {
				return i
			}
		}
	}
	return -1
}

func (st *headerState) paragraph(raw string) {
	if !st.date {
		if date, err := locale.ParseDate(raw, locale.WordsDate); err == nil {
			st.doc.Header.IssueDate = date
			st.date = true
		}
	}
	for _, seg := range segmentSplit.Split(raw, -1) {
		label, value, found := strings.Cut(locale.Squash(seg), ":")
		if !found {
			continue
		}
		st.field(locale.Fold(label), strings.TrimSpace(value))
	}
}

// field assigns one labeled value. Labels are matched on their folded
// Vietnamese text, with the English captions bilingual templates print in
// parentheses accepted as well.
func (st *headerState) field(label, value string) {
	h := &st.doc.Header
	switch {
	case strings.Contains(label, "mẫu số") || strings.Contains(label, "form"):
		setOnce(&h.Template, value)
	case strings.Contains(label, "ký hiệu") || strings.Contains(label, "kí hiệu") || strings.Contains(label, "serial"):
		setOnce(&h.Series, strings.ReplaceAll(value, " ", ""))
	case isNumberLabel(label):
		setOnce(&h.Number, strings.ReplaceAll(value, " ", ""))
	case strings.Contains(label, "đơn vị bán") || strings.Contains(label, "người bán") || strings.Contains(label, "seller"):
		st.section = sellerSection
		setOnce(&st.doc.Seller.Name, value)
	case strings.Contains(label, "người mua") || strings.Contains(label, "buyer"):
		st.section = buyerSection
		setOnce(&st.doc.Buyer.Name, value)
	case strings.Contains(label, "tên đơn vị") || strings.Contains(label, "company"):
		st.section = buyerSection
		if value != "" {
			st.doc.Buyer.Name = value
		}
	case strings.Contains(label, "mã số thuế") || strings.Contains(label, "tax code"):
		setOnce(&st.party().TaxCode, value)
	case strings.Contains(label, "địa chỉ") || strings.Contains(label, "address"):
		setOnce(&st.party().Address, value)
	case strings.Contains(label, "tỷ giá") || strings.Contains(label, "exchange rate"):
		if value == "" {
			return
		}
		rate, err := locale.ParseDecimal(value, st.conv)
		if err != nil || !rate.IsPositive() {
			st.doc.Warn(types.WarnInvalidValue, "exchange_rate", types.ConfidenceFallback, "exchange rate %q unusable, using 1", value)
			return
		}
		h.ExchangeRate = rate
	}
}

func (st *headerState) party() *types.Party {
	if st.section == buyerSection {
		return &st.doc.Buyer
	}
	return &st.doc.Seller
}

func isNumberLabel(label string) bool {
	label = strings.TrimSpace(label)
	if strings.Contains(label, "số hóa đơn") || strings.Contains(label, "số hoá đơn") {
		return true
	}
	return label == "số" || label == "no" || label == "no." ||
		strings.HasPrefix(label, "số (") || strings.HasPrefix(label, "số(")
}

func setOnce(dst *string, value string) {
	if *dst == "" {
		*dst = value
	}
}
