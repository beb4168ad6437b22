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

// Is matches DomainErrors by code and message so wrapped causes still
// compare equal to their sentinel.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
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
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeDeletionBlocked  = "DELETION_BLOCKED"
	ErrCodeAlreadyClustered = "ALREADY_CLUSTERED"
	ErrCodeStorage          = "STORAGE_ERROR"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrInvalidSourceKind    = NewDomainError(ErrCodeValidation, "invalid source kind")
	ErrInvalidConfidence    = NewDomainError(ErrCodeValidation, "invalid confidence level")
	ErrInvalidJobStatus     = NewDomainError(ErrCodeValidation, "invalid embedding job status")
	ErrEmbeddingDimension   = NewDomainError(ErrCodeValidation, "embedding dimensionality does not match configured dimension")
	ErrInvalidSearchLimit   = NewDomainError(ErrCodeValidation, "search limit must be at least 1")
	ErrInvalidMinSimilarity = NewDomainError(ErrCodeValidation, "minimum similarity must be within [-1, 1]")
	ErrEmptyQueryEmbedding  = NewDomainError(ErrCodeValidation, "query embedding is required")
)

// Not found errors. Soft-deleted records are reported with the same
// sentinels as physically absent rows.
var (
	ErrFragmentNotFound      = NewDomainError(ErrCodeNotFound, "fragment not found")
	ErrKnowledgeUnitNotFound = NewDomainError(ErrCodeNotFound, "knowledge unit not found")
	ErrCategoryNotFound      = NewDomainError(ErrCodeNotFound, "category not found")
	ErrSourceNotFound        = NewDomainError(ErrCodeNotFound, "source not found")
	ErrEmbeddingJobNotFound  = NewDomainError(ErrCodeNotFound, "embedding job not found")
)

// Clustering and deletion outcomes
var (
	// ErrFragmentClustered is returned when deletion is attempted on a
	// fragment that is a member of a knowledge unit. Callers surface this
	// as "unlink from knowledge unit first".
	ErrFragmentClustered = NewDomainError(ErrCodeDeletionBlocked, "fragment belongs to a knowledge unit and cannot be deleted")

	// ErrAlreadyClustered is the benign outcome of losing an assignment
	// race: the fragment already has a cluster.
	ErrAlreadyClustered = NewDomainError(ErrCodeAlreadyClustered, "fragment is already assigned to a knowledge unit")
)

// ErrStorage marks infrastructure failures so callers can distinguish
// "no result" from "store unavailable".
var ErrStorage = NewDomainError(ErrCodeStorage, "storage operation failed")

// NewStorageError wraps an infrastructure failure in the storage sentinel.
func NewStorageError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeStorage, "storage operation failed", err)
}
