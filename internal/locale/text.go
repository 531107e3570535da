package locale

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

var spaceReplacer = strings.NewReplacer(
	"\u00a0", " ", // no-break space
	"\u202f", " ", // narrow no-break space
	"\u2007", " ", // figure space
	"\t", " ",
)

// Clean composes text to NFC and turns the no-break spaces PDF and Word
// producers emit into plain spaces. Vietnamese text extracted from PDFs is
// frequently decomposed (base letter plus combining marks), which would
// otherwise defeat every literal match such as "CÔNG TY" or "Ngày".
func Clean(s string) string {
	return spaceReplacer.Replace(norm.NFC.String(s))
}

// Squash cleans s and collapses runs of whitespace to one space.
func Squash(s string) string {
	return strings.Join(strings.Fields(Clean(s)), " ")
}

// Fold is the comparison key used for header and label matching:
// squashed and lower-cased.
func Fold(s string) string {
	return strings.ToLower(Squash(s))
}
