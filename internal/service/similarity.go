package service

import (
	"context"

	"github.com/kanso-ai/kanso/internal/domain"
	"github.com/kanso-ai/kanso/internal/telemetry"
)

// SearchOptions controls a similarity ranking query.
type SearchOptions struct {
	// Limit is the maximum number of results to return; must be >= 1.
	Limit int
	// MinSimilarity, when set, drops results whose similarity (1 - distance)
	// falls below it. Applied before Limit truncation.
	MinSimilarity *float32
	// ExcludeClustered drops fragments that already belong to a knowledge
	// unit. Fragment search only; knowledge unit search ignores it.
	ExcludeClustered bool
}

// FragmentMatch pairs a fragment with its cosine distance to the query.
type FragmentMatch struct {
	Fragment *domain.Fragment
	Distance float32
}

// Similarity converts the cosine distance to a similarity score.
func (m *FragmentMatch) Similarity() float32 {
	return 1 - m.Distance
}

// UnitMatch pairs a knowledge unit with its cosine distance to the query.
type UnitMatch struct {
	Unit     *domain.KnowledgeUnit
	Distance float32
}

// Similarity converts the cosine distance to a similarity score.
func (m *UnitMatch) Similarity() float32 {
	return 1 - m.Distance
}

// SimilarityFragmentRepository defines the fragment ranking query.
// Implementations must exclude soft-deleted and embedding-less rows and
// order results by distance ASC, created_at ASC, id ASC.
type SimilarityFragmentRepository interface {
	SearchByEmbedding(ctx context.Context, query []float32, opts SearchOptions) ([]*FragmentMatch, error)
}

// SimilarityUnitRepository defines the knowledge unit ranking query.
type SimilarityUnitRepository interface {
	SearchByEmbedding(ctx context.Context, query []float32, opts SearchOptions) ([]*UnitMatch, error)
}

// SimilarityService ranks records by vector closeness to a query embedding.
// It is read-only and safe for concurrent use.
type SimilarityService struct {
	fragmentRepo SimilarityFragmentRepository
	unitRepo     SimilarityUnitRepository
	dims         int
}

// NewSimilarityService creates a new SimilarityService. dims is the fixed
// embedding dimension every query vector is validated against.
func NewSimilarityService(
	fragmentRepo SimilarityFragmentRepository,
	unitRepo SimilarityUnitRepository,
	dims int,
) *SimilarityService {
	return &SimilarityService{
		fragmentRepo: fragmentRepo,
		unitRepo:     unitRepo,
		dims:         dims,
	}
}

// FindSimilarFragments returns fragments ranked by ascending distance to the
// query embedding. A query is not excluded from matching its own stored
// duplicate; callers that ingest and immediately search will see the
// original at distance zero.
func (s *SimilarityService) FindSimilarFragments(ctx context.Context, query []float32, opts SearchOptions) ([]*FragmentMatch, error) {
	ctx, span := telemetry.StartSpan(ctx, "SimilarityService.FindSimilarFragments", telemetry.SpanAttributes{
		Operation: "search",
	})
	defer span.End()

	if err := s.validate(query, opts); err != nil {
		return nil, err
	}

	return s.fragmentRepo.SearchByEmbedding(ctx, query, opts)
}

// FindSimilarUnits returns knowledge units ranked by ascending distance to
// the query embedding. ExcludeClustered has no meaning for units and is
// ignored.
func (s *SimilarityService) FindSimilarUnits(ctx context.Context, query []float32, opts SearchOptions) ([]*UnitMatch, error) {
	ctx, span := telemetry.StartSpan(ctx, "SimilarityService.FindSimilarUnits", telemetry.SpanAttributes{
		Operation: "search",
	})
	defer span.End()

	if err := s.validate(query, opts); err != nil {
		return nil, err
	}

	return s.unitRepo.SearchByEmbedding(ctx, query, opts)
}

func (s *SimilarityService) validate(query []float32, opts SearchOptions) error {
	if len(query) == 0 {
		return domain.ErrEmptyQueryEmbedding
	}
	if s.dims > 0 && len(query) != s.dims {
		return domain.ErrEmbeddingDimension
	}
	if opts.Limit < 1 {
		return domain.ErrInvalidSearchLimit
	}
	if opts.MinSimilarity != nil {
		if *opts.MinSimilarity < -1 || *opts.MinSimilarity > 1 {
			return domain.ErrInvalidMinSimilarity
		}
	}
	return nil
}
