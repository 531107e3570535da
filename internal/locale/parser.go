// =============================================================================
// Invoice Ledger - Locale Value Parser
// =============================================================================
//
// Parses the numbers, amounts and percentages printed on invoices. Source
// documents disagree on separators: Vietnamese layouts group thousands with
// "." and use "," as the decimal mark, while machine-generated or foreign
// documents use the reverse. Every extractor therefore carries its own
// Convention instead of relying on one global rule.
//
// Parsing is tolerant of surrounding whitespace, non-breaking spaces and
// decomposed Unicode, but never returns a partially parsed value: callers get
// either a number or a *ValueError they can degrade to "unknown".
//
// =============================================================================

package locale

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SEPARATOR CONVENTIONS
// =============================================================================

// Convention decides which of "." and "," groups thousands.
type Convention int

const (
	// DotGrouping: "1.234.567,5" (vi-VN).
	DotGrouping Convention = iota

	// CommaGrouping: "1,234,567.5" (en-US, most machine output).
	CommaGrouping
)

// ParseConvention maps a configuration value to a Convention.
// Accepted values: "dot", "comma" (case-insensitive).
func ParseConvention(s string) (Convention, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dot", "vi", "dot_grouping":
		return DotGrouping, nil
	case "comma", "en", "comma_grouping":
		return CommaGrouping, nil
	}
	return DotGrouping, fmt.Errorf("unknown separator convention %q (want \"dot\" or \"comma\")", s)
}

func (c Convention) String() string {
	if c == CommaGrouping {
		return "comma"
	}
	return "dot"
}

// Marks returns the grouping and decimal marks of the convention.
func (c Convention) Marks() (group, decimalMark string) {
	if c == CommaGrouping {
		return ",", "."
	}
	return ".", ","
}

// =============================================================================
// ERRORS
// =============================================================================

// ValueError reports text that is not a number of the requested kind.
type ValueError struct {
	Text string
	Kind string
	Err  error
}

func (e *ValueError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s %q: %v", e.Kind, e.Text, e.Err)
	}
	return fmt.Sprintf("invalid %s %q", e.Kind, e.Text)
}

func (e *ValueError) Unwrap() error { return e.Err }

// =============================================================================
// PARSERS
// =============================================================================

// ParseInteger parses a plain base-10 integer with optional sign.
func ParseInteger(text string) (int64, error) {
	s := strings.TrimSpace(Clean(text))
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, &ValueError{Text: text, Kind: "integer", Err: err}
	}
	return n, nil
}

// ParseNumber parses machine-formatted numbers such as those in XML invoices
// ("1500", "1500.75", "-3"). Integer syntax is tried first so integral values
// keep an exponent of zero; anything else falls back to decimal syntax.
func ParseNumber(text string) (decimal.Decimal, error) {
	if n, err := ParseInteger(text); err == nil {
		return decimal.NewFromInt(n), nil
	}
	s := strings.TrimSpace(Clean(text))
	if s == "" || strings.ContainsAny(s, "eE") {
		return decimal.Zero, &ValueError{Text: text, Kind: "number"}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &ValueError{Text: text, Kind: "number", Err: err}
	}
	return d, nil
}

// ParseGroupedAmount parses a printed money amount into an integer. Grouping
// marks and spaces are stripped; a fractional part after the decimal mark is
// rounded half-up, since ledger amounts are whole currency units.
//
// EXAMPLE:
//
//	ParseGroupedAmount("1.234.567", DotGrouping)  -> 1234567
//	ParseGroupedAmount("1,234", CommaGrouping)    -> 1234
//	ParseGroupedAmount("1.234,50", DotGrouping)   -> 1235
func ParseGroupedAmount(text string, conv Convention) (int64, error) {
	d, err := parseLocalized(text, conv, "amount")
	if err != nil {
		return 0, err
	}
	return d.Round(0).IntPart(), nil
}

// ParseDecimal parses a printed quantity, price or rate, keeping the fraction.
func ParseDecimal(text string, conv Convention) (decimal.Decimal, error) {
	return parseLocalized(text, conv, "decimal")
}

func parseLocalized(text string, conv Convention, kind string) (decimal.Decimal, error) {
	group, mark := conv.Marks()
	s := strings.Join(strings.Fields(Clean(text)), "")
	s = strings.ReplaceAll(s, group, "")
	if s == "" {
		return decimal.Zero, &ValueError{Text: text, Kind: kind}
	}

	intPart, frac, hasFrac := strings.Cut(s, mark)
	sign := ""
	if strings.HasPrefix(intPart, "-") {
		sign, intPart = "-", intPart[1:]
	}
	if intPart == "" && hasFrac {
		intPart = "0"
	}
	if !isDigits(intPart) || (hasFrac && !isDigits(frac)) {
		return decimal.Zero, &ValueError{Text: text, Kind: kind}
	}

	plain := sign + intPart
	if hasFrac {
		plain += "." + frac
	}
	d, err := decimal.NewFromString(plain)
	if err != nil {
		return decimal.Zero, &ValueError{Text: text, Kind: kind, Err: err}
	}
	return d, nil
}

// ParsePercent parses a tax rate into a fraction.
//
// "10%", "10" and "0.1" all yield 0.1. The Vietnamese markers for goods not
// subject to VAT ("KCT", "KKKNT") yield zero.
func ParsePercent(text string) (decimal.Decimal, error) {
	s := strings.TrimSpace(Clean(text))
	switch strings.ToUpper(s) {
	case "KCT", "KKKNT":
		return decimal.Zero, nil
	}

	hadSign := strings.HasSuffix(s, "%")
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	s = strings.ReplaceAll(s, ",", ".")

	d, err := ParseNumber(s)
	if err != nil {
		return decimal.Zero, &ValueError{Text: text, Kind: "percentage", Err: err}
	}
	if d.IsNegative() {
		return decimal.Zero, &ValueError{Text: text, Kind: "percentage"}
	}
	if hadSign || d.GreaterThan(decimal.NewFromInt(1)) {
		d = d.Div(decimal.NewFromInt(100))
	}
	return d, nil
}

func isDigits(s string) bool {
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
