package types

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Match with errors.Is.
var (
	// ErrMissingRequiredField: the document lacks something its schema
	// requires (no table, no anchor row, no amount). Fatal for the document.
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrConfiguration: the document needs configuration that was not
	// supplied, such as a column-mapping override.
	ErrConfiguration = errors.New("configuration error")

	// ErrStructural: a template lacks the structure a writer depends on.
	// Aborts the whole write.
	ErrStructural = errors.New("structural error")

	// ErrUnsupportedFormat: no extractor handles the input.
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// ExtractionError carries one of the kinds above plus the document and field
// it concerns.
type ExtractionError struct {
	Kind   error
	Source string
	Field  string
	Msg    string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e == nil {
		return ""
	}
	parts := []string{e.Kind.Error()}
	if e.Source != "" {
		parts = append(parts, e.Source)
	}
	if e.Field != "" {
		parts = append(parts, e.Field)
	}
	if e.Msg != "" {
		parts = append(parts, e.Msg)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *ExtractionError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// MissingField reports a required field that could not be determined.
func MissingField(source, field, format string, args ...interface{}) error {
	return &ExtractionError{Kind: ErrMissingRequiredField, Source: source, Field: field, Msg: fmt.Sprintf(format, args...)}
}

// MissingFieldWrap is MissingField with an underlying cause.
func MissingFieldWrap(source, field string, err error, format string, args ...interface{}) error {
	return &ExtractionError{Kind: ErrMissingRequiredField, Source: source, Field: field, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Configurationf reports missing or invalid configuration for a document.
func Configurationf(source, format string, args ...interface{}) error {
	return &ExtractionError{Kind: ErrConfiguration, Source: source, Msg: fmt.Sprintf(format, args...)}
}

// Structuralf reports a template the writers cannot work with.
func Structuralf(format string, args ...interface{}) error {
	return &ExtractionError{Kind: ErrStructural, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the taxonomy kind of err, or nil when err is not classified.
func KindOf(err error) error {
	for _, k := range []error{ErrMissingRequiredField, ErrConfiguration, ErrStructural, ErrUnsupportedFormat} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
