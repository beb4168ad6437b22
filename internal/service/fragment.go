package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kanso-ai/kanso/internal/domain"
	"github.com/kanso-ai/kanso/internal/pagination"
	"github.com/kanso-ai/kanso/internal/telemetry"
)

// FragmentFilter narrows fragment listing and counting. Zero values mean
// "no constraint". The soft-delete guard is applied by the repository before
// any of these predicates.
type FragmentFilter struct {
	SourceID    string
	CategoryID  string
	ClusterID   string
	Unclustered bool
}

// FragmentPageResult is one page of a cursor-paginated fragment listing.
type FragmentPageResult struct {
	Items      []*domain.Fragment
	NextCursor string
	HasMore    bool
}

// FragmentRepositoryInterface defines the repository interface for fragment
// persistence.
type FragmentRepositoryInterface interface {
	Create(ctx context.Context, f *domain.Fragment) error
	GetByID(ctx context.Context, id string) (*domain.Fragment, error)
	List(ctx context.Context, filter FragmentFilter) ([]*domain.Fragment, error)
	Count(ctx context.Context, filter FragmentFilter) (int, error)
	ListIncludingDeleted(ctx context.Context, filter FragmentFilter) ([]*domain.Fragment, error)
	ListWithCursor(ctx context.Context, filter FragmentFilter, cursor *pagination.Cursor, limit int) (*FragmentPageResult, error)
	Update(ctx context.Context, f *domain.Fragment) error
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
	// SoftDelete marks the fragment deleted unless it belongs to a
	// knowledge unit, in which case it returns ErrFragmentClustered and
	// changes nothing.
	SoftDelete(ctx context.Context, id string) error
}

// CategoryRepositoryInterface is the category lookup needed for validation.
type CategoryRepositoryInterface interface {
	GetByID(ctx context.Context, id string) (*domain.Category, error)
}

// SourceRepositoryInterface is the source lookup needed for validation.
type SourceRepositoryInterface interface {
	GetByID(ctx context.Context, id string) (*domain.Source, error)
}

// EmbeddingJobRepositoryInterface defines the repository interface for
// embedding job persistence.
type EmbeddingJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.EmbeddingJob) error
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// FragmentService handles ingestion-facing business logic for fragments.
type FragmentService struct {
	fragmentRepo FragmentRepositoryInterface
	categoryRepo CategoryRepositoryInterface
	sourceRepo   SourceRepositoryInterface
	jobRepo      EmbeddingJobRepositoryInterface
	uuidGen      UUIDGenerator
	dims         int
}

// NewFragmentService creates a new FragmentService instance
func NewFragmentService(
	fragmentRepo FragmentRepositoryInterface,
	categoryRepo CategoryRepositoryInterface,
	sourceRepo SourceRepositoryInterface,
	jobRepo EmbeddingJobRepositoryInterface,
	dims int,
) *FragmentService {
	return &FragmentService{
		fragmentRepo: fragmentRepo,
		categoryRepo: categoryRepo,
		sourceRepo:   sourceRepo,
		jobRepo:      jobRepo,
		uuidGen:      &DefaultUUIDGenerator{},
		dims:         dims,
	}
}

// NewFragmentServiceWithUUIDGen creates a FragmentService with a custom UUID
// generator (for testing).
func NewFragmentServiceWithUUIDGen(
	fragmentRepo FragmentRepositoryInterface,
	categoryRepo CategoryRepositoryInterface,
	sourceRepo SourceRepositoryInterface,
	jobRepo EmbeddingJobRepositoryInterface,
	dims int,
	uuidGen UUIDGenerator,
) *FragmentService {
	svc := NewFragmentService(fragmentRepo, categoryRepo, sourceRepo, jobRepo, dims)
	svc.uuidGen = uuidGen
	return svc
}

// CreateFragmentInput represents the input for creating a fragment
type CreateFragmentInput struct {
	SourceID   string
	CategoryID string
	Title      string
	Summary    string
	Content    string
	// Embedding may be attached at creation; when nil an embedding job is
	// queued instead.
	Embedding []float32
}

// ListFragmentsInput represents a cursor-paginated listing request
type ListFragmentsInput struct {
	Filter FragmentFilter
	Cursor string
	Limit  int
}

// ListFragmentsOutput is the paginated listing response
type ListFragmentsOutput struct {
	Items   []*domain.Fragment
	Cursor  string
	HasMore bool
}

// Create validates and persists a new fragment. The category and source
// must exist; an embedding, if present, must match the configured dimension.
func (s *FragmentService) Create(ctx context.Context, input CreateFragmentInput) (*domain.Fragment, error) {
	ctx, span := telemetry.StartSpan(ctx, "FragmentService.Create", telemetry.SpanAttributes{
		SourceID:  input.SourceID,
		Operation: "create",
	})
	defer span.End()

	now := time.Now().UTC()
	fragment := domain.NewFragment(
		s.uuidGen.NewString(),
		input.SourceID,
		input.CategoryID,
		input.Title,
		input.Summary,
		input.Content,
		input.Embedding,
		now,
	)

	if err := domain.ValidateFragment(fragment, s.dims); err != nil {
		return nil, err
	}

	if _, err := s.categoryRepo.GetByID(ctx, fragment.CategoryID); err != nil {
		return nil, err
	}

	if _, err := s.sourceRepo.GetByID(ctx, fragment.SourceID); err != nil {
		return nil, err
	}

	if err := s.fragmentRepo.Create(ctx, fragment); err != nil {
		return nil, err
	}

	if fragment.Embedding == nil && s.jobRepo != nil {
		job := domain.NewEmbeddingJob(s.uuidGen.NewString(), fragment.ID, now)
		if err := s.jobRepo.Create(ctx, job); err != nil {
			return nil, err
		}
	}

	return fragment, nil
}

// GetByID retrieves a fragment by ID. Soft-deleted fragments behave as
// absent.
func (s *FragmentService) GetByID(ctx context.Context, id string) (*domain.Fragment, error) {
	ctx, span := telemetry.StartSpan(ctx, "FragmentService.GetByID", telemetry.SpanAttributes{
		FragmentID: id,
		Operation:  "get",
	})
	defer span.End()

	return s.fragmentRepo.GetByID(ctx, id)
}

// List retrieves visible fragments matching the filter.
func (s *FragmentService) List(ctx context.Context, filter FragmentFilter) ([]*domain.Fragment, error) {
	return s.fragmentRepo.List(ctx, filter)
}

// Count returns the number of visible fragments matching the filter.
func (s *FragmentService) Count(ctx context.Context, filter FragmentFilter) (int, error) {
	return s.fragmentRepo.Count(ctx, filter)
}

// ListIncludingDeleted disables the soft-delete guard. Audit and recovery
// tooling only.
func (s *FragmentService) ListIncludingDeleted(ctx context.Context, filter FragmentFilter) ([]*domain.Fragment, error) {
	return s.fragmentRepo.ListIncludingDeleted(ctx, filter)
}

// ListFragments retrieves a page of visible fragments.
func (s *FragmentService) ListFragments(ctx context.Context, input ListFragmentsInput) (*ListFragmentsOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "FragmentService.ListFragments", telemetry.SpanAttributes{
		Operation: "list",
	})
	defer span.End()

	cursor, _ := pagination.DecodeCursor(input.Cursor)
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	result, err := s.fragmentRepo.ListWithCursor(ctx, input.Filter, cursor, limit)
	if err != nil {
		return nil, err
	}

	return &ListFragmentsOutput{
		Items:   result.Items,
		Cursor:  result.NextCursor,
		HasMore: result.HasMore,
	}, nil
}

// Delete soft-deletes a fragment. Fragments that belong to a knowledge unit
// cannot be deleted; the caller receives ErrFragmentClustered and must
// surface it, never override it.
func (s *FragmentService) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "FragmentService.Delete", telemetry.SpanAttributes{
		FragmentID: id,
		Operation:  "delete",
	})
	defer span.End()

	return s.fragmentRepo.SoftDelete(ctx, id)
}
