// =============================================================================
// Invoice Ledger - Validation Engine
// =============================================================================
//
// This module checks extracted documents before they enter the ledger.
// Extractors already reject documents they cannot read at all; validation
// catches what a readable document can still get wrong:
//   - Required facts (at least one item, every item with an amount)
//   - Identity facts (seller tax code shape, invoice number, issue date)
//   - Arithmetic (items against the printed net total, net plus VAT against
//     the printed grand total)
//
// ERROR HANDLING:
//   - Findings are collected, not returned one at a time
//   - Each finding names the document, field, item and offending value
//   - Severity "error" rejects the document; "warning" is reported and the
//     document continues into the ledger
//
// =============================================================================

package validation

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/invoice-ledger/internal/canonical"
	"github.com/ginjaninja78/invoice-ledger/internal/types"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single validation finding.
type ValidationError struct {
	// Severity indicates the severity of the finding.
	// "error" = the document is rejected
	// "warning" = non-fatal, the document continues
	Severity string

	// Source is the document the finding concerns.
	Source string

	// Field is the name of the field that failed validation.
	Field string

	// Value is the actual value that failed validation.
	Value string

	// Rule is the validation rule that was violated.
	Rule string

	// Message is a human-readable message.
	Message string

	// Item is the 1-based line item ordinal, 0 for document-level findings.
	Item int
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	where := e.Source
	if e.Item > 0 {
		where = fmt.Sprintf("%s, item %d", e.Source, e.Item)
	}
	return fmt.Sprintf("[%s] %s, Field '%s': %s (value: '%s')",
		strings.ToUpper(e.Severity), where, e.Field, e.Message, e.Value)
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the results of validating one document.
type ValidationResult struct {
	// IsValid is true if there are no fatal errors.
	IsValid bool

	// Errors contains all findings (including warnings).
	Errors []*ValidationError

	ErrorCount   int
	WarningCount int
}

// Warnings returns only the non-fatal findings.
func (r *ValidationResult) Warnings() []*ValidationError {
	var out []*ValidationError
	for _, e := range r.Errors {
		if e.Severity == SeverityWarning {
			out = append(out, e)
		}
	}
	return out
}

// =============================================================================
// VALIDATOR
// =============================================================================

// ValidationOptions contains options for validation.
type ValidationOptions struct {
	// TreatWarningsAsErrors rejects documents with any warning.
	// Default: false
	TreatWarningsAsErrors bool

	// Tolerance is the largest difference accepted between computed and
	// printed totals. Default: 1 (one đồng of rounding).
	Tolerance decimal.Decimal
}

// DefaultValidationOptions returns the default validation options.
func DefaultValidationOptions() ValidationOptions {
	return ValidationOptions{
		Tolerance: decimal.NewFromInt(1),
	}
}

// Validator checks documents.
type Validator struct {
	options ValidationOptions
}

// NewValidator creates a Validator with default options.
func NewValidator() *Validator {
	return &Validator{options: DefaultValidationOptions()}
}

// NewValidatorWithOptions creates a Validator with custom options.
func NewValidatorWithOptions(options ValidationOptions) *Validator {
	return &Validator{options: options}
}

// =============================================================================
// MAIN VALIDATION FUNCTION
// =============================================================================

// ValidateDocument runs every rule against doc.
//
// PARAMETERS:
//   - doc: an extracted document, after role reconciliation.
//
// RETURNS:
//   - The findings; IsValid is false when any has severity "error".
func (v *Validator) ValidateDocument(doc *types.Document) *ValidationResult {
	var errs []*ValidationError
	add := func(severity, field, value, rule string, item int, format string, args ...interface{}) {
		errs = append(errs, &ValidationError{
			Severity: severity,
			Source:   doc.Source,
			Field:    field,
			Value:    value,
			Rule:     rule,
			Message:  fmt.Sprintf(format, args...),
			Item:     item,
		})
	}

	// =========================================================================
	// REQUIRED FIELD VALIDATION
	// =========================================================================

	if len(doc.Items) == 0 {
		add(SeverityError, "items", "", "required", 0, "Document has no line items")
	}
	for _, it := range doc.Items {
		if !it.LineTotal.Known {
			add(SeverityError, "line_total", "", "required", it.Ordinal, "Line item has no amount")
		}
	}

	// =========================================================================
	// IDENTITY VALIDATION
	// =========================================================================

	if n := len(doc.Seller.TaxCode); n != 0 && n != 10 && n != 13 {
		add(SeverityWarning, "seller.tax_code", doc.Seller.TaxCode, "tax_code", 0,
			"Tax code should have 10 or 13 digits (actual: %d)", n)
	}
	if doc.Seller.TaxCode == "" {
		add(SeverityWarning, "seller.tax_code", "", "tax_code", 0, "Counterparty tax code is empty")
	}
	if doc.Header.Number == "" {
		add(SeverityWarning, "number", "", "invoice_number", 0, "Invoice number is empty")
	}
	if doc.Header.IssueDate.IsZero() {
		add(SeverityWarning, "issue_date", "", "date", 0, "Issue date is empty")
	}

	// =========================================================================
	// ARITHMETIC VALIDATION
	// =========================================================================

	net := doc.ItemsTotal()
	if doc.DeclaredNetTotal.Known && !v.close(net, doc.DeclaredNetTotal.Value) {
		add(SeverityWarning, "net_total", doc.DeclaredNetTotal.String(), "total", 0,
			"Line items sum to %s but the document states %s", net, doc.DeclaredNetTotal)
	}
	if doc.DeclaredGrandTotal.Known {
		grand := net.Add(canonical.VATAmount(doc))
		if !v.close(grand, doc.DeclaredGrandTotal.Value) {
			add(SeverityWarning, "grand_total", doc.DeclaredGrandTotal.String(), "total", 0,
				"Items plus VAT come to %s but the document states %s", grand, doc.DeclaredGrandTotal)
		}
	}

	result := &ValidationResult{IsValid: true, Errors: errs}
	for _, e := range errs {
		if e.Severity == SeverityError {
			result.ErrorCount++
			result.IsValid = false
			continue
		}
		result.WarningCount++
		if v.options.TreatWarningsAsErrors {
			result.IsValid = false
		}
	}
	return result
}

func (v *Validator) close(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(v.options.Tolerance)
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// FormatErrors formats validation findings for display or logging.
func FormatErrors(errors []*ValidationError) string {
	if len(errors) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Validation completed with %d finding(s):\n\n", len(errors)))
	for i, err := range errors {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}
	return builder.String()
}

// WriteErrorLog writes validation findings to a log file.
//
// PARAMETERS:
//   - errors: The findings to write.
//   - filePath: The path to the output file.
//
// RETURNS:
//   - An error if writing fails.
func WriteErrorLog(errors []*ValidationError, filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create validation log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	fmt.Fprintf(writer, "Validation log - %s\n\n", time.Now().Format(time.RFC3339))
	writer.WriteString(FormatErrors(errors))
	return writer.Flush()
}
