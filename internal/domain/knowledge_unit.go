package domain

import (
	"time"
)

// Confidence expresses how certain the system is that a knowledge unit is
// an accurate consolidation of its member fragments.
type Confidence string

const (
	ConfidenceUnclear Confidence = "unclear"
	ConfidenceLow     Confidence = "low"
	ConfidenceMedium  Confidence = "medium"
	ConfidenceHigh    Confidence = "high"
	ConfidenceCertain Confidence = "certain"
)

// confidenceRank orders the graded levels; the unclear sentinel sits below
// all of them.
var confidenceRank = map[Confidence]int{
	ConfidenceUnclear: 0,
	ConfidenceLow:     1,
	ConfidenceMedium:  2,
	ConfidenceHigh:    3,
	ConfidenceCertain: 4,
}

// Rank returns the ordinal position of the confidence level. Unknown values
// rank as unclear.
func (c Confidence) Rank() int {
	return confidenceRank[c]
}

// AtLeast reports whether c is at least as confident as other.
func (c Confidence) AtLeast(other Confidence) bool {
	return c.Rank() >= other.Rank()
}

// KnowledgeUnit is a consolidated, de-duplicated representation of one or
// more similar fragments. Membership is a weak back-reference: fragments
// point at the unit via ClusterID, the unit does not embed its members.
type KnowledgeUnit struct {
	ID         string
	CategoryID string
	Title      string
	Summary    string
	Content    string
	Confidence Confidence
	// Embedding is computed independently for the unit, never derived
	// automatically from member fragments.
	Embedding []float32
	IsDeleted bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewKnowledgeUnit creates a new KnowledgeUnit instance
func NewKnowledgeUnit(
	id, categoryID string,
	title, summary, content string,
	confidence Confidence,
	createdAt time.Time,
) *KnowledgeUnit {
	return &KnowledgeUnit{
		ID:         id,
		CategoryID: categoryID,
		Title:      title,
		Summary:    summary,
		Content:    content,
		Confidence: confidence,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
}

// ValidateKnowledgeUnit validates a KnowledgeUnit instance. Embedding
// dimensionality is validated against dims; dims <= 0 skips the check.
func ValidateKnowledgeUnit(u *KnowledgeUnit, dims int) error {
	if u == nil {
		return NewDomainError(ErrCodeValidation, "knowledge unit cannot be nil")
	}

	if u.ID == "" {
		return NewDomainError(ErrCodeValidation, "knowledge unit ID is required")
	}

	if u.CategoryID == "" {
		return NewDomainError(ErrCodeValidation, "knowledge unit CategoryID is required")
	}

	if u.Title == "" {
		return NewDomainError(ErrCodeValidation, "knowledge unit Title is required")
	}

	if u.Content == "" {
		return NewDomainError(ErrCodeValidation, "knowledge unit Content is required")
	}

	if !isValidConfidence(u.Confidence) {
		return ErrInvalidConfidence
	}

	if u.Embedding != nil && dims > 0 && len(u.Embedding) != dims {
		return ErrEmbeddingDimension
	}

	return nil
}

// isValidConfidence checks if a Confidence level is valid
func isValidConfidence(c Confidence) bool {
	switch c {
	case ConfidenceUnclear, ConfidenceLow, ConfidenceMedium,
		ConfidenceHigh, ConfidenceCertain:
		return true
	}
	return false
}
