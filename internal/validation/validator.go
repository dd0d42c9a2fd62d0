// =============================================================================
// CI Load Engine - Entry Validation
// =============================================================================
//
// Validation covers the key-field contract only: the fields every record of
// the EDI target is joined on. Business-rule validation of the shipment is
// not done here.
//
// SEVERITY:
//   - error:   the Entry must not be emitted (no partial document)
//   - warning: the problem is reported and generation continues
//
// =============================================================================

package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ginjaninja78/ci-load-engine/internal/ciload"
)

// Sentinel errors for entry-aborting problems.
var (
	ErrMissingCustomerNumber = errors.New("missing customer number")
	ErrMissingFileNumber     = errors.New("missing file number")
	ErrMissingEdiIdentifier  = errors.New("missing EDI identifier")
	ErrNoInvoices            = errors.New("entry has no invoices")
	ErrMissingInvoiceNumber  = errors.New("missing invoice number")
	ErrDuplicateInvoice      = errors.New("duplicate invoice")
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError is a single finding about an Entry.
type ValidationError struct {
	Severity string

	// Field is the key field that failed, e.g. "custNo".
	Field string
	Value string

	Message string

	// Invoice is the invoice number, when the finding is below entry level.
	Invoice string
	// Line is the 1-based line number within the invoice, 0 for none.
	Line int

	Err error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(strings.ToUpper(e.Severity))
	b.WriteString("] ")
	if e.Invoice != "" {
		fmt.Fprintf(&b, "invoice %s, ", e.Invoice)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, "line %d, ", e.Line)
	}
	fmt.Fprintf(&b, "field '%s': %s", e.Field, e.Message)
	if e.Value != "" {
		fmt.Fprintf(&b, " (value: '%s')", e.Value)
	}
	return b.String()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Fatal reports whether the finding aborts the Entry.
func (e *ValidationError) Fatal() bool {
	return e.Severity == SeverityError
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// Result collects the findings for one Entry.
type Result struct {
	// IsValid is true if there are no fatal errors.
	IsValid bool

	Errors []*ValidationError

	ErrorCount   int
	WarningCount int
}

func (r *Result) add(e *ValidationError) {
	r.Errors = append(r.Errors, e)
	if e.Fatal() {
		r.ErrorCount++
		r.IsValid = false
	} else {
		r.WarningCount++
	}
}

// Err joins the fatal findings into one error, or returns nil. The sentinel
// of each finding stays reachable through errors.Is.
func (r *Result) Err() error {
	var fatal []error
	for _, e := range r.Errors {
		if e.Fatal() {
			fatal = append(fatal, e)
		}
	}
	return errors.Join(fatal...)
}

// Warnings returns the non-fatal findings.
func (r *Result) Warnings() []*ValidationError {
	var out []*ValidationError
	for _, e := range r.Errors {
		if !e.Fatal() {
			out = append(out, e)
		}
	}
	return out
}

// =============================================================================
// VALIDATOR
// =============================================================================

// Options tune entry validation.
type Options struct {
	// AllowDuplicateInvoices accepts repeated (file, invoice, date) keys.
	AllowDuplicateInvoices bool
}

// ValidateEntry checks the key-field contract of an Entry.
//
// PARAMETERS:
//   - entry: The entry snapshot.
//   - opts: Validation options.
//
// RETURNS:
//   - A Result. Result.Err() is non-nil when the entry must not be emitted.
func ValidateEntry(entry ciload.Entry, opts Options) *Result {
	result := &Result{IsValid: true}

	if strings.TrimSpace(entry.CustomerNumber) == "" {
		result.add(&ValidationError{
			Severity: SeverityError,
			Field:    "custNo",
			Message:  "customer number is required",
			Err:      ErrMissingCustomerNumber,
		})
	}
	if strings.TrimSpace(entry.FileNumber) == "" {
		result.add(&ValidationError{
			Severity: SeverityError,
			Field:    "fileNo",
			Message:  "file number is required",
			Err:      ErrMissingFileNumber,
		})
	}
	if _, ok := entry.ResolveEdiIdentifier(); !ok {
		result.add(&ValidationError{
			Severity: SeverityError,
			Field:    "ediIdentifier",
			Message:  "no bill number on the entry or its first bill of lading",
			Err:      ErrMissingEdiIdentifier,
		})
	}
	if len(entry.Invoices) == 0 {
		result.add(&ValidationError{
			Severity: SeverityError,
			Field:    "invoices",
			Message:  "at least one invoice is required",
			Err:      ErrNoInvoices,
		})
	}

	seen := make(map[ciload.InvoiceKey]bool)
	for _, inv := range entry.Invoices {
		key := inv.Key(entry.FileNumber)
		if key.InvoiceNumber == "" {
			result.add(&ValidationError{
				Severity: SeverityError,
				Field:    "invoiceNo",
				Message:  "invoice number is required",
				Err:      ErrMissingInvoiceNumber,
			})
			continue
		}
		if seen[key] && !opts.AllowDuplicateInvoices {
			result.add(&ValidationError{
				Severity: SeverityError,
				Field:    "invoiceNo",
				Value:    key.String(),
				Message:  "invoice key appears more than once",
				Invoice:  key.InvoiceNumber,
				Err:      ErrDuplicateInvoice,
			})
		}
		seen[key] = true

		validateLines(result, key.InvoiceNumber, inv.Lines)
	}

	return result
}

// validateLines reports line problems that do not abort the entry.
func validateLines(result *Result, invoice string, lines []ciload.InvoiceLine) {
	if len(lines) == 0 {
		result.add(&ValidationError{
			Severity: SeverityWarning,
			Field:    "lines",
			Message:  "invoice has no lines",
			Invoice:  invoice,
		})
	}
	for i, line := range lines {
		if strings.TrimSpace(line.PartNumber) == "" && strings.TrimSpace(line.StyleNumber) == "" {
			result.add(&ValidationError{
				Severity: SeverityWarning,
				Field:    "partNo",
				Message:  "line has neither part nor style number",
				Invoice:  invoice,
				Line:     i + 1,
			})
		}
	}
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// FormatErrors formats findings for display or an error log.
func FormatErrors(errs []*ValidationError) string {
	if len(errs) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "Validation completed with %d finding(s):\n\n", len(errs))
	for i, err := range errs {
		fmt.Fprintf(&builder, "%d. %s\n", i+1, err.Error())
	}
	return builder.String()
}
