package locale

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ginjaninja78/invoice-ledger/internal/types"
)

// DateHint names one accepted date layout.
type DateHint int

const (
	// ISODate: "2024-03-15", optionally followed by a time part (XML).
	ISODate DateHint = iota

	// SlashDate: "15/03/2024", also with "-" or "." separators.
	SlashDate

	// WordsDate: "Ngày 15 tháng 03 năm 2024" or "day 15 month 3 year 2024",
	// bilingual labels in parentheses tolerated.
	WordsDate
)

func (h DateHint) String() string {
	switch h {
	case ISODate:
		return "YYYY-MM-DD"
	case SlashDate:
		return "DD/MM/YYYY"
	case WordsDate:
		return "Ngày D tháng M năm Y"
	}
	return "unknown"
}

// AllDateHints is the order used when the caller gives none.
var AllDateHints = []DateHint{ISODate, SlashDate, WordsDate}

var (
	isoDatePattern   = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})(?:[T ].*)?$`)
	slashDatePattern = regexp.MustCompile(`\b(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{4})\b`)
	wordsDatePattern = regexp.MustCompile(`(?i)(?:ngày|day)[^\d]{0,24}?(\d{1,2})[^\d]{0,24}?(?:tháng|month)[^\d]{0,24}?(\d{1,2})[^\d]{0,24}?(?:năm|year)[^\d]{0,24}?(\d{4})`)
)

// DateFormatError reports text matching none of the hints tried.
type DateFormatError struct {
	Text  string
	Hints []DateHint
}

func (e *DateFormatError) Error() string {
	names := make([]string, len(e.Hints))
	for i, h := range e.Hints {
		names[i] = h.String()
	}
	return fmt.Sprintf("date %q matches none of [%s]", e.Text, strings.Join(names, ", "))
}

// ParseDate extracts a day/month/year from text using the first hint that
// matches. With no hints all layouts are tried in AllDateHints order.
func ParseDate(text string, hints ...DateHint) (types.Date, error) {
	if len(hints) == 0 {
		hints = AllDateHints
	}
	s := strings.TrimSpace(Clean(text))

	for _, h := range hints {
		var m []string
		var d, mo, y string
		switch h {
		case ISODate:
			if m = isoDatePattern.FindStringSubmatch(s); m != nil {
				y, mo, d = m[1], m[2], m[3]
			}
		case SlashDate:
			if m = slashDatePattern.FindStringSubmatch(s); m != nil {
				d, mo, y = m[1], m[2], m[3]
			}
		case WordsDate:
			if m = wordsDatePattern.FindStringSubmatch(s); m != nil {
				d, mo, y = m[1], m[2], m[3]
			}
		}
		if m == nil {
			continue
		}
		if date, ok := validDate(d, mo, y); ok {
			return date, nil
		}
	}
	return types.Date{}, &DateFormatError{Text: text, Hints: hints}
}

func validDate(d, m, y string) (types.Date, bool) {
	day, _ := strconv.Atoi(d)
	month, _ := strconv.Atoi(m)
	year, _ := strconv.Atoi(y)
	if month < 1 || month > 12 || day < 1 || day > 31 || year < 1 {
		return types.Date{}, false
	}
	// time.Date normalizes 31/02 into March; reject instead.
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		return types.Date{}, false
	}
	return types.Date{Day: day, Month: month, Year: year}, true
}
