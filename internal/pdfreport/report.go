// =============================================================================
// Invoice Ledger - Ledger Proof
// =============================================================================
//
// Prints the canonical rows of a run as a one-table A4 PDF so a bookkeeper can
// check the batch before importing the spreadsheet.
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  TITLE                                      N documents     │
//	│  ─────────────────────────────────────────────────────────  │
//	│  STT | Ngày HĐ | Số HĐ | Tên hàng | Đối tượng | Thành tiền  │
//	│  item rows, VAT rows (bold), separator, grand total (bold)  │
//	│  ─────────────────────────────────────────────────────────  │
//	│  Net / VAT / Grand                                           │
//	└─────────────────────────────────────────────────────────────┘
//
// The core PDF fonts have no Vietnamese glyphs, so text is printed without
// diacritics.
//
// =============================================================================

package pdfreport

import (
	"fmt"
	"strings"
	"unicode"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/ginjaninja78/invoice-ledger/internal/canonical"
	"github.com/ginjaninja78/invoice-ledger/internal/locale"
)

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// Options configures the proof.
type Options struct {
	// Title heads the page. Default: "SO CHI TIET MUA HANG".
	Title string

	// Documents is printed next to the title when positive.
	Documents int

	// Convention formats amounts.
	Convention locale.Convention
}

// Render prints rows as a PDF and returns its bytes.
func Render(rows []canonical.Row, opts Options) ([]byte, error) {
	if opts.Title == "" {
		opts.Title = "SO CHI TIET MUA HANG"
	}

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 8}).
		WithTitle(Transliterate(opts.Title), true).
		Build()

	m := maroto.New(cfg)
	m.AddRows(titleRow(opts))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(headerRow())
	for _, r := range rows {
		if r.Kind == canonical.KindSeparator {
			m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.2}))
			continue
		}
		m.AddRows(ledgerRow(r, opts.Convention))
	}
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(canonical.Summarize(rows), opts.Convention))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate ledger proof: %w", err)
	}
	return doc.GetBytes(), nil
}

func titleRow(opts Options) core.Row {
	right := ""
	if opts.Documents > 0 {
		right = fmt.Sprintf("%d documents", opts.Documents)
	}
	return row.New(12).Add(
		col.New(8).Add(text.New(Transliterate(opts.Title), props.Text{
			Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 2,
		})),
		col.New(4).Add(text.New(right, props.Text{
			Size: 8, Align: align.Right, Color: colorGray, Top: 4,
		})),
	)
}

func headerRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Color: colorPrimary, Top: 1,
		}))
	}
	return row.New(7).Add(
		h("STT", 1, align.Center),
		h("Ngay HD", 2, align.Left),
		h("So HD", 2, align.Left),
		h("Ten hang", 3, align.Left),
		h("Doi tuong", 2, align.Left),
		h("Thanh tien", 2, align.Right),
	)
}

func ledgerRow(r canonical.Row, conv locale.Convention) core.Row {
	style := fontstyle.Normal
	if r.Kind != canonical.KindItem {
		style = fontstyle.Bold
	}
	cell := func(s string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(Transliterate(s), props.Text{
			Style: style, Size: 7, Align: a, Top: 1,
		}))
	}
	ordinal := ""
	if r.Ordinal > 0 {
		ordinal = fmt.Sprint(r.Ordinal)
	}
	amount := ""
	if r.ConvertedAmount.Known {
		amount = locale.FormatGrouped(r.ConvertedAmount.Value, conv)
	}
	return row.New(6).Add(
		cell(ordinal, 1, align.Center),
		cell(r.InvoiceDate.String(), 2, align.Left),
		cell(r.InvoiceNumber, 2, align.Left),
		cell(r.ItemName, 3, align.Left),
		cell(r.PartyName, 2, align.Left),
		cell(amount, 2, align.Right),
	)
}

func totalsRow(t canonical.Totals, conv locale.Convention) core.Row {
	label := func(s string) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2})
	}
	value := func(d decimal.Decimal, top float64) core.Component {
		return text.New(locale.FormatGrouped(d, conv), props.Text{Size: 9, Align: align.Right, Top: top})
	}
	return row.New(18).Add(
		col.New(6),
		col.New(3).Add(
			label("Tien hang:"),
			text.New("Thue GTGT:", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2, Top: 5}),
			text.New("Tong cong:", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2, Top: 10, Color: colorPrimary}),
		),
		col.New(3).Add(
			value(t.NetConverted, 0),
			value(t.VATConverted, 5),
			value(t.GrandConverted, 10),
		),
	)
}

var stripMarks = runes.Remove(runes.In(unicode.Mn))

// Transliterate removes diacritics: "Thuế GTGT" -> "Thue GTGT". The stroked
// Đ/đ has no decomposition and is mapped by hand.
func Transliterate(s string) string {
	out, _, err := transform.String(transform.Chain(norm.NFD, stripMarks, norm.NFC), s)
	if err != nil {
		out = s
	}
	return strings.NewReplacer("Đ", "D", "đ", "d").Replace(out)
}
