// =============================================================================
// Invoice Ledger - Spreadsheet Template Layout
// =============================================================================
//
// A ledger template is an ordinary workbook that a bookkeeper maintains by
// hand. Nothing in it is addressed by fixed coordinates; the writer reads
// its layout from the content:
//
//	| Row  | A    | B            | C          | D-E (merged) | ... |
//	|------|------|--------------|------------|--------------|-----|
//	| 1-2  | title, company name, period                          |
//	| 3    | STT  | Ngày hóa đơn | Số hóa đơn | Tên hàng     | ... |   <- header
//	| 4    | 1    | sample       | sample     | sample       | ... |   <- anchor
//	| 5-6  | 2, 3 | ...                                          |   <- data block
//	| 7    | Cộng |              |            |              | ... |   <- totals
//
// HEADER BINDING:
//   Header cells from row 1 down to the anchor are folded (NFC, squashed,
//   lower-cased) and compared with the label list of every canonical field.
//   The first cell matching a field binds it. A field without a matching
//   column is not written.
//
// ANCHOR:
//   The first row below the marker (ordinal) header cell whose marker cell
//   holds an integer-like value. A row numbering the columns (1, 2, 3, ...)
//   is still header.
//
// DATA BLOCK:
//   Rows from the anchor down while the marker cell is integer-like or
//   empty. The block ends before a row whose marker cell holds other text,
//   a fully blank row, or a row starting with a totals label.
//
// =============================================================================

package xlsxwriter

import (
	"strconv"
	"strings"

	"github.com/ginjaninja78/invoice-ledger/internal/canonical"
	"github.com/ginjaninja78/invoice-ledger/internal/locale"
	"github.com/ginjaninja78/invoice-ledger/internal/types"
)

// DefaultHeaderLabels are the header texts recognised for each field, in
// folded form.
func DefaultHeaderLabels() map[canonical.Field][]string {
	return map[canonical.Field][]string{
		canonical.FieldOrdinal:         {"stt", "số thứ tự", "tt"},
		canonical.FieldDocumentDate:    {"ngày chứng từ", "ngày ct", "ngày ghi sổ"},
		canonical.FieldDocumentNumber:  {"số chứng từ", "số ct", "ký hiệu", "ký hiệu hóa đơn", "ký hiệu hoá đơn"},
		canonical.FieldInvoiceDate:     {"ngày hóa đơn", "ngày hoá đơn", "ngày hđ"},
		canonical.FieldInvoiceNumber:   {"số hóa đơn", "số hoá đơn", "số hđ"},
		canonical.FieldItemName:        {"tên hàng", "tên hàng hóa", "tên hàng hoá", "tên hàng hóa, dịch vụ", "diễn giải"},
		canonical.FieldQuantity:        {"số lượng", "sl"},
		canonical.FieldUnit:            {"đvt", "đơn vị tính"},
		canonical.FieldPrice:           {"đơn giá"},
		canonical.FieldExchangeRate:    {"tỷ giá", "tỉ giá"},
		canonical.FieldOriginalAmount:  {"nguyên tệ", "tiền nguyên tệ", "số tiền nguyên tệ"},
		canonical.FieldConvertedAmount: {"thành tiền", "số tiền", "quy đổi", "số tiền quy đổi"},
		canonical.FieldDebit:           {"tk nợ", "nợ"},
		canonical.FieldCredit:          {"tk có", "có"},
		canonical.FieldCategory:        {"đối tượng", "loại đối tượng", "phân loại"},
		canonical.FieldPartyName:       {"tên đối tượng", "tên khách hàng", "tên nhà cung cấp", "tên đơn vị"},
		canonical.FieldPartyTaxCode:    {"mã số thuế", "mst"},
		canonical.FieldNote:            {"ghi chú"},
	}
}

// DefaultStopLabels end the data block when a row's first non-empty cell
// starts with one of them.
var DefaultStopLabels = []string{"cộng", "tổng cộng", "tổng"}

// Layout is what the writer learned about a template sheet. Rows and
// columns are 1-based as in excelize.
type Layout struct {
	// Columns binds each found field to its column.
	Columns map[canonical.Field]int

	// MarkerColumn is the column of the ordinal field.
	MarkerColumn int

	// Anchor is the first data row.
	Anchor int

	// BlockEnd is the last row of the existing data block.
	BlockEnd int

	// Width is the number of columns in use by the header and anchor rows.
	Width int
}

// BlockRows is the size of the existing data block.
func (l *Layout) BlockRows() int {
	return l.BlockEnd - l.Anchor + 1
}

// readLayout binds header labels and locates the anchor and data block.
//
// PARAMETERS:
//   - rows: sheet content as returned by GetRows (0-based, ragged).
//   - labels: folded header labels per field.
//   - stop: folded totals labels ending the data block.
//
// RETURNS:
//   - The layout, or a structural error when the marker column or the
//     anchor row cannot be found.
func readLayout(rows [][]string, labels map[canonical.Field][]string, stop []string) (*Layout, error) {
	lookup := make(map[string]canonical.Field)
	for _, f := range canonical.Fields {
		for _, label := range labels[f] {
			if _, taken := lookup[locale.Fold(label)]; !taken {
				lookup[locale.Fold(label)] = f
			}
		}
	}

	l := &Layout{Columns: make(map[canonical.Field]int)}
	for r, row := range rows {
		if l.MarkerColumn > 0 && isInteger(cellAt(row, l.MarkerColumn)) && !columnNumbers(row, l.MarkerColumn) {
			l.Anchor = r + 1
			break
		}
		for c, cell := range row {
			f, ok := lookup[locale.Fold(cell)]
			if !ok {
				continue
			}
			if _, bound := l.Columns[f]; !bound {
				l.Columns[f] = c + 1
			}
		}
		if col, ok := l.Columns[canonical.FieldOrdinal]; ok && l.MarkerColumn == 0 {
			l.MarkerColumn = col
		}
		if len(row) > l.Width {
			l.Width = len(row)
		}
	}

	if l.MarkerColumn == 0 {
		return nil, types.Structuralf("no ordinal (STT) header column found")
	}
	if l.Anchor == 0 {
		return nil, types.Structuralf("no anchor row: no integer below the STT header in column %d", l.MarkerColumn)
	}
	if anchor := rows[l.Anchor-1]; len(anchor) > l.Width {
		l.Width = len(anchor)
	}
	for _, col := range l.Columns {
		if col > l.Width {
			l.Width = col
		}
	}

	l.BlockEnd = l.Anchor
	for r := l.Anchor; r < len(rows); r++ {
		row := rows[r]
		marker := strings.TrimSpace(cellAt(row, l.MarkerColumn))
		if marker != "" && !isInteger(marker) {
			break
		}
		if blank(row) || startsWithLabel(row, stop) {
			break
		}
		l.BlockEnd = r + 1
	}
	return l, nil
}

func cellAt(row []string, col int) string {
	if col-1 < len(row) {
		return row[col-1]
	}
	return ""
}

func isInteger(s string) bool {
	return types.IsDigits(strings.TrimSuffix(strings.TrimSpace(s), "."))
}

// columnNumbers reports a header sub-row numbering the columns (1, 2, 3
// from the marker column on) rather than a data row.
func columnNumbers(row []string, marker int) bool {
	n, err := strconv.Atoi(strings.TrimSpace(cellAt(row, marker)))
	if err != nil {
		return false
	}
	for k := 1; k <= 2; k++ {
		if strings.TrimSpace(cellAt(row, marker+k)) != strconv.Itoa(n+k) {
			return false
		}
	}
	return true
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func startsWithLabel(row []string, stop []string) bool {
	for _, cell := range row {
		folded := locale.Fold(cell)
		if folded == "" {
			continue
		}
		for _, label := range stop {
			if strings.HasPrefix(folded, locale.Fold(label)) {
				return true
			}
		}
		return false
	}
	return false
}
