package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrInvalidAnalysisStatus = NewDomainError(ErrCodeValidation, "invalid analysis status")
	ErrInvalidComplexity     = NewDomainError(ErrCodeValidation, "invalid implementation complexity")
	ErrMissingRequiredField  = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrSourceFileNotFound     = NewDomainError(ErrCodeNotFound, "source file not found")
	ErrAnalysisNotFound       = NewDomainError(ErrCodeNotFound, "analysis record not found")
	ErrKnowledgeNotFound      = NewDomainError(ErrCodeNotFound, "document knowledge not found")
	ErrKnowledgeAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "document knowledge already exists for file")
)

// Claim errors
var (
	// ErrFileNotClaimable is returned when the conditional claim update
	// matches no row: another worker owns the file, or it is already
	// mapped. Callers treat this as "someone else owns this", not a fault.
	ErrFileNotClaimable = NewDomainError(ErrCodeConflict, "source file is not claimable for mapping")
)
