package registry

import (
	"errors"
	"time"
)

// ErrorKind classifies a failed validation.
type ErrorKind string

const (
	KindEmpty                  ErrorKind = "EMPTY"
	KindFormat                 ErrorKind = "FORMAT"
	KindLength                 ErrorKind = "LENGTH"
	KindTooLong                ErrorKind = "TOO_LONG"
	KindRange                  ErrorKind = "RANGE"
	KindRangeOrder             ErrorKind = "RANGE_ORDER"
	KindInvalidDate            ErrorKind = "INVALID_DATE"
	KindChecksum               ErrorKind = "CHECKSUM"
	KindDuplicate              ErrorKind = "DUPLICATE"
	KindDuplicateYear          ErrorKind = "DUPLICATE_YEAR"
	KindDuplicateYearInSession ErrorKind = "DUPLICATE_YEAR_IN_SESSION"
	KindDateOverlap            ErrorKind = "DATE_OVERLAP"
	KindDateOverlapInSession   ErrorKind = "DATE_OVERLAP_IN_SESSION"
)

// Result is the outcome of a validation rule. Failed rules are values, not
// errors; the error return of a rule is reserved for storage failures.
type Result struct {
	OK      bool      `json:"ok"`
	Kind    ErrorKind `json:"kind,omitempty"`
	Field   string    `json:"field,omitempty"`
	Message string    `json:"message,omitempty"`
	// Date holds the parsed calendar date after a successful ValidateDate.
	Date time.Time `json:"-"`
}

func pass() Result { return Result{OK: true} }

func fail(kind ErrorKind, field, message string) Result {
	return Result{Kind: kind, Field: field, Message: message}
}

// Field names used in results, matching the entry form.
const (
	FieldCompanyName        = "companyName"
	FieldRegistrationNumber = "registrationNumber"
	FieldFiscalYear         = "fiscalYear"
	FieldStartDate          = "startDate"
	FieldEndDate            = "endDate"
	FieldRemarks            = "remarks"
)

var (
	// ErrStorage wraps every backend or serialization failure.
	ErrStorage = errors.New("registry: storage failure")
	// ErrCompanyNotFound indicates no company matched the lookup.
	ErrCompanyNotFound = errors.New("registry: company not found")
	// ErrFiscalYearNotFound indicates a submitted row ID that is unknown or
	// belongs to another company.
	ErrFiscalYearNotFound = errors.New("registry: fiscal year not found")
	// ErrCriteriaRequired indicates a query without name or registration number.
	ErrCriteriaRequired = errors.New("registry: company name or registration number required")
	// ErrCompanyIDRequired indicates an operation that needs a selected company.
	ErrCompanyIDRequired = errors.New("registry: company id required")
	// ErrNothingToExport indicates an export over an empty registry.
	ErrNothingToExport = errors.New("registry: nothing to export")
)
