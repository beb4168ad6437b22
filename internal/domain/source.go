package domain

import (
	"time"
)

// SourceKind identifies where a source document came from
type SourceKind string

const (
	SourceKindTranscript SourceKind = "transcript"
	SourceKindDocument   SourceKind = "document"
)

// Source is the originating transcript or document a fragment was
// extracted from. A fragment belongs primarily to its source; cluster
// membership is secondary.
type Source struct {
	ID   string
	Kind SourceKind
	Name string
	// StorageKey points at the archived raw payload in object storage.
	// Empty when the payload was not archived.
	StorageKey string
	CreatedAt  time.Time
}

// NewSource creates a new Source instance
func NewSource(id string, kind SourceKind, name string, createdAt time.Time) *Source {
	return &Source{
		ID:        id,
		Kind:      kind,
		Name:      name,
		CreatedAt: createdAt,
	}
}

// ValidateSource validates a Source instance
func ValidateSource(s *Source) error {
	if s == nil {
		return NewDomainError(ErrCodeValidation, "source cannot be nil")
	}

	if s.ID == "" {
		return NewDomainError(ErrCodeValidation, "source ID is required")
	}

	if s.Name == "" {
		return NewDomainError(ErrCodeValidation, "source Name is required")
	}

	if !isValidSourceKind(s.Kind) {
		return ErrInvalidSourceKind
	}

	return nil
}

// isValidSourceKind checks if a SourceKind is valid
func isValidSourceKind(k SourceKind) bool {
	switch k {
	case SourceKindTranscript, SourceKindDocument:
		return true
	}
	return false
}
