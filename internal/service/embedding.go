package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/kanso-ai/kanso/internal/domain"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingFragmentRepository defines the repository interface for fragment
// embedding operations.
type EmbeddingFragmentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Fragment, error)
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
}

// EmbeddingUnitRepository defines the repository interface for knowledge
// unit embedding operations.
type EmbeddingUnitRepository interface {
	GetByID(ctx context.Context, id string) (*domain.KnowledgeUnit, error)
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
}

// EmbeddingService generates and stores embeddings for fragments and
// knowledge units. It is called by the background worker.
type EmbeddingService struct {
	client       EmbeddingClient
	fragmentRepo EmbeddingFragmentRepository
	unitRepo     EmbeddingUnitRepository
}

// NewEmbeddingService creates a new EmbeddingService instance
func NewEmbeddingService(
	client EmbeddingClient,
	fragmentRepo EmbeddingFragmentRepository,
	unitRepo EmbeddingUnitRepository,
) *EmbeddingService {
	return &EmbeddingService{
		client:       client,
		fragmentRepo: fragmentRepo,
		unitRepo:     unitRepo,
	}
}

// GenerateFragmentEmbedding generates and stores an embedding for the given
// fragment ID.
func (s *EmbeddingService) GenerateFragmentEmbedding(ctx context.Context, fragmentID string) error {
	fragment, err := s.fragmentRepo.GetByID(ctx, fragmentID)
	if err != nil {
		return err
	}

	text := buildFragmentEmbeddingText(fragment)

	embedding, err := s.client.GenerateEmbedding(ctx, text)
	if err != nil {
		return fmt.Errorf("failed to generate embedding: %w", err)
	}

	if err := s.fragmentRepo.UpdateEmbedding(ctx, fragmentID, embedding); err != nil {
		return fmt.Errorf("failed to update embedding: %w", err)
	}

	return nil
}

// GenerateUnitEmbedding generates and stores an embedding for the given
// knowledge unit ID. The unit's text alone is embedded; member fragments do
// not contribute.
func (s *EmbeddingService) GenerateUnitEmbedding(ctx context.Context, unitID string) error {
	if s.unitRepo == nil {
		return fmt.Errorf("knowledge unit repository not configured")
	}

	unit, err := s.unitRepo.GetByID(ctx, unitID)
	if err != nil {
		return err
	}

	text := buildUnitEmbeddingText(unit)

	embedding, err := s.client.GenerateEmbedding(ctx, text)
	if err != nil {
		return fmt.Errorf("failed to generate embedding: %w", err)
	}

	if err := s.unitRepo.UpdateEmbedding(ctx, unitID, embedding); err != nil {
		return fmt.Errorf("failed to update embedding: %w", err)
	}

	return nil
}

func buildFragmentEmbeddingText(f *domain.Fragment) string {
	var parts []string

	if f.Title != "" {
		parts = append(parts, f.Title)
	}
	if f.Summary != "" {
		parts = append(parts, f.Summary)
	}
	if f.Content != "" {
		parts = append(parts, f.Content)
	}

	return strings.Join(parts, "\n\n")
}

func buildUnitEmbeddingText(u *domain.KnowledgeUnit) string {
	var parts []string

	if u.Title != "" {
		parts = append(parts, u.Title)
	}
	if u.Summary != "" {
		parts = append(parts, u.Summary)
	}
	if u.Content != "" {
		parts = append(parts, u.Content)
	}

	return strings.Join(parts, "\n\n")
}
