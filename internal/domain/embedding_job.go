package domain

import (
	"time"
)

// EmbeddingJobStatus represents the status of an embedding job
type EmbeddingJobStatus string

const (
	EmbeddingJobStatusPending    EmbeddingJobStatus = "pending"
	EmbeddingJobStatusProcessing EmbeddingJobStatus = "processing"
	EmbeddingJobStatusCompleted  EmbeddingJobStatus = "completed"
	EmbeddingJobStatusFailed     EmbeddingJobStatus = "failed"
)

// EmbeddingJob represents an async embedding generation job for a fragment
// or a knowledge unit.
type EmbeddingJob struct {
	ID          string
	FragmentID  string // Set for fragment embeddings
	UnitID      string // Set for knowledge unit embeddings
	Status      EmbeddingJobStatus
	Retries     int32
	Error       string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// NewEmbeddingJob creates a pending EmbeddingJob for a fragment.
func NewEmbeddingJob(id, fragmentID string, createdAt time.Time) *EmbeddingJob {
	return &EmbeddingJob{
		ID:         id,
		FragmentID: fragmentID,
		Status:     EmbeddingJobStatusPending,
		CreatedAt:  createdAt,
	}
}

// NewUnitEmbeddingJob creates a pending EmbeddingJob for a knowledge unit.
func NewUnitEmbeddingJob(id, unitID string, createdAt time.Time) *EmbeddingJob {
	return &EmbeddingJob{
		ID:        id,
		UnitID:    unitID,
		Status:    EmbeddingJobStatusPending,
		CreatedAt: createdAt,
	}
}

// ValidateEmbeddingJob validates an EmbeddingJob instance
func ValidateEmbeddingJob(j *EmbeddingJob) error {
	if j == nil {
		return NewDomainError(ErrCodeValidation, "embedding job cannot be nil")
	}

	if j.ID == "" {
		return NewDomainError(ErrCodeValidation, "embedding job ID is required")
	}

	if j.FragmentID == "" && j.UnitID == "" {
		return NewDomainError(ErrCodeValidation, "embedding job must have either FragmentID or UnitID")
	}

	if j.FragmentID != "" && j.UnitID != "" {
		return NewDomainError(ErrCodeValidation, "embedding job cannot have both FragmentID and UnitID")
	}

	if !isValidEmbeddingJobStatus(j.Status) {
		return ErrInvalidJobStatus
	}

	if j.Retries < 0 {
		return NewDomainError(ErrCodeValidation, "embedding job Retries cannot be negative")
	}

	return nil
}

// isValidEmbeddingJobStatus checks if an EmbeddingJobStatus is valid
func isValidEmbeddingJobStatus(s EmbeddingJobStatus) bool {
	switch s {
	case EmbeddingJobStatusPending, EmbeddingJobStatusProcessing,
		EmbeddingJobStatusCompleted, EmbeddingJobStatusFailed:
		return true
	}
	return false
}
