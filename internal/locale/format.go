package locale

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatGrouped renders d with thousands grouping in the given convention.
// The fraction is kept as stored; round before calling for whole units.
//
// EXAMPLE:
//
//	FormatGrouped(decimal.NewFromInt(1234567), DotGrouping)    -> "1.234.567"
//	FormatGrouped(decimal.RequireFromString("1234.5"), CommaGrouping) -> "1,234.5"
func FormatGrouped(d decimal.Decimal, conv Convention) string {
	group, mark := conv.Marks()

	s := d.String()
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")

	var b strings.Builder
	b.WriteString(sign)
	lead := len(intPart) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(intPart[:lead])
	for i := lead; i < len(intPart); i += 3 {
		b.WriteString(group)
		b.WriteString(intPart[i : i+3])
	}
	if hasFrac {
		b.WriteString(mark)
		b.WriteString(frac)
	}
	return b.String()
}

// PadLeft pads s on the left with padChar to reach length runes.
func PadLeft(s string, length int, padChar rune) string {
	n := len([]rune(s))
	if n >= length {
		return s
	}
	return strings.Repeat(string(padChar), length-n) + s
}

// FormatPercent renders a fraction as a whole-number percentage: 0.1 -> "10%".
// Non-integral percentages keep up to two decimals in the given convention.
func FormatPercent(rate decimal.Decimal, conv Convention) string {
	p := rate.Mul(decimal.NewFromInt(100)).Round(2)
	if p.IsInteger() {
		return p.StringFixed(0) + "%"
	}
	_, mark := conv.Marks()
	return strings.Replace(p.String(), ".", mark, 1) + "%"
}
