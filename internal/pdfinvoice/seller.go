package pdfinvoice

import (
	"strings"
	"unicode"

	"github.com/ginjaninja78/invoice-ledger/internal/types"
)

// SellerName recovers the counterparty company name from the header lines.
//
// The first line containing both "CÔNG" and "TY" whose two-line span does
// not mention self is taken. The span is cut down to the contiguous run of
// upper-case and punctuation tokens starting at its first upper-case token,
// and a trailing "MST" label is dropped. Returns "" when no line qualifies.
//
// EXAMPLE:
//
//	"Đơn vị bán hàng: CÔNG TY CỔ PHẦN ABC"   -> "CÔNG TY CỔ PHẦN ABC"
//	"CÔNG TY TNHH XYZ MST: 0101234567"       -> "CÔNG TY TNHH XYZ"
func SellerName(lines []string, self types.Party) string {
	for i, line := range lines {
		if !strings.Contains(line, "CÔNG") || !strings.Contains(line, "TY") {
			continue
		}
		span := line
		if i+1 < len(lines) {
			span += " " + lines[i+1]
		}
		if mentionsSelf(span, self) {
			continue
		}
		if name := upperRun(span); name != "" {
			return name
		}
	}
	return ""
}

func mentionsSelf(text string, self types.Party) bool {
	if self.Name != "" && strings.Contains(text, self.Name) {
		return true
	}
	return self.TaxCode != "" && strings.Contains(types.NormalizeTaxCode(text), self.TaxCode)
}

func upperRun(text string) string {
	tokens := strings.Fields(text)
	start := -1
	for i, tok := range tokens {
		if types.HasUpper(tok) {
			start = i
			break
		}
	}
	if start < 0 {
		return ""
	}

	end := start
	for end < len(tokens) && nameToken(tokens[end]) {
		end++
	}
	run := tokens[start:end]
	for len(run) > 0 && strings.TrimRight(run[len(run)-1], ":.") == "MST" {
		run = run[:len(run)-1]
	}
	return strings.TrimRight(strings.Join(run, " "), " ,;:-")
}

// nameToken accepts upper-case words and bare punctuation. Digits end the
// run: a name never continues into the tax code printed after it.
func nameToken(tok string) bool {
	if types.HasUpper(tok) {
		return true
	}
	for _, r := range tok {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
			return false
		}
	}
	return true
}
