package domain

import (
	"time"
)

// Fragment represents an atomic unit of content extracted from a meeting
// transcript or document. Fragments are the smallest unit of similarity
// search and the input to knowledge unit consolidation.
type Fragment struct {
	ID         string
	SourceID   string
	CategoryID string
	Title      string
	Summary    string
	Content    string
	// Embedding is the fixed-dimension vector for this fragment. A nil
	// embedding means "not yet indexed"; such fragments never participate
	// in similarity ranking.
	Embedding []float32
	// ClusterID is a weak reference to the owning KnowledgeUnit. It is set
	// at most once (nil -> value) and never reassigned.
	ClusterID *string
	IsDeleted bool
	CreatedAt time.Time
}

// NewFragment creates a new Fragment instance
func NewFragment(
	id, sourceID, categoryID string,
	title, summary, content string,
	embedding []float32,
	createdAt time.Time,
) *Fragment {
	return &Fragment{
		ID:         id,
		SourceID:   sourceID,
		CategoryID: categoryID,
		Title:      title,
		Summary:    summary,
		Content:    content,
		Embedding:  embedding,
		ClusterID:  nil,
		IsDeleted:  false,
		CreatedAt:  createdAt,
	}
}

// IsClustered reports whether the fragment has been assigned to a
// knowledge unit.
func (f *Fragment) IsClustered() bool {
	return f.ClusterID != nil
}

// ValidateFragment validates a Fragment instance. Embedding dimensionality
// is validated against dims; dims <= 0 skips the dimension check.
func ValidateFragment(f *Fragment, dims int) error {
	if f == nil {
		return NewDomainError(ErrCodeValidation, "fragment cannot be nil")
	}

	if f.ID == "" {
		return NewDomainError(ErrCodeValidation, "fragment ID is required")
	}

	if f.SourceID == "" {
		return NewDomainError(ErrCodeValidation, "fragment SourceID is required")
	}

	if f.CategoryID == "" {
		return NewDomainError(ErrCodeValidation, "fragment CategoryID is required")
	}

	if f.Title == "" {
		return NewDomainError(ErrCodeValidation, "fragment Title is required")
	}

	if f.Content == "" {
		return NewDomainError(ErrCodeValidation, "fragment Content is required")
	}

	if f.Embedding != nil && dims > 0 && len(f.Embedding) != dims {
		return ErrEmbeddingDimension
	}

	return nil
}
