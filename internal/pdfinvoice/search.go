package pdfinvoice

import (
	"regexp"
	"strings"

	"github.com/ginjaninja78/invoice-ledger/internal/types"
)

// FieldSpec describes one header field recovered by anchored search.
type FieldSpec struct {
	Name string

	// Start matches the label line the search is anchored on.
	Start *regexp.Regexp

	// Value must match a candidate for it to be accepted. The matched text
	// is the extracted value.
	Value *regexp.Regexp

	// Ignore lists values that are never accepted, such as our own tax code
	// when looking for the counterparty's.
	Ignore map[string]bool

	// Window limits how many lines from the anchor are examined; zero scans
	// to the end of the document.
	Window int

	// Compact removes spaces from candidates before matching. Tax codes are
	// often printed one digit per box.
	Compact bool

	// Fallback enables the global search when the anchored one fails.
	Fallback bool
}

// FieldResult is the outcome of FindAndExtract.
type FieldResult struct {
	Value      string
	Confidence types.Confidence
}

// Found reports whether a value was extracted at any confidence.
func (r FieldResult) Found() bool {
	return r.Confidence != types.ConfidenceMissing
}

// FindAndExtract runs the two-tier search for one field.
//
// Tier one finds the first line matching spec.Start and scans forward from
// it (the anchor line included). A "label: value" line offers its value,
// any other line offers itself; the first candidate matching spec.Value
// that is not ignored wins with ConfidenceAnchored.
//
// Tier two, when enabled, runs the same candidate test over every line and
// returns the first hit with ConfidenceFallback. Callers surface such
// values as warnings.
func FindAndExtract(lines []string, spec FieldSpec) FieldResult {
	anchor := -1
	for i, line := range lines {
		if spec.Start.MatchString(line) {
			anchor = i
			break
		}
	}

	if anchor >= 0 {
		end := len(lines)
		if spec.Window > 0 && anchor+spec.Window < end {
			end = anchor + spec.Window
		}
		for _, line := range lines[anchor:end] {
			if v, ok := spec.candidate(line); ok {
				return FieldResult{Value: v, Confidence: types.ConfidenceAnchored}
			}
		}
	}

	if spec.Fallback {
		for _, line := range lines {
			if v, ok := spec.candidate(line); ok {
				return FieldResult{Value: v, Confidence: types.ConfidenceFallback}
			}
		}
	}
	return FieldResult{Confidence: types.ConfidenceMissing}
}

func (spec FieldSpec) candidate(line string) (string, bool) {
	text := line
	if _, value, ok := strings.Cut(line, ":"); ok {
		text = value
	}
	text = strings.TrimSpace(text)
	if spec.Compact {
		text = strings.ReplaceAll(text, " ", "")
	}
	v := spec.Value.FindString(text)
	if v == "" || spec.Ignore[v] {
		return "", false
	}
	return v, true
}
