package service

import (
	"context"
	"errors"
	"time"

	"github.com/kanso-ai/kanso/internal/domain"
	"github.com/kanso-ai/kanso/internal/telemetry"
	"github.com/rs/zerolog"
)

// ClusterFragmentRepository defines the fragment operations needed for
// cluster assignment.
type ClusterFragmentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Fragment, error)
	List(ctx context.Context, filter FragmentFilter) ([]*domain.Fragment, error)
	// AssignCluster sets cluster_id only if it is currently null, as a
	// single atomic conditional update.
	AssignCluster(ctx context.Context, fragmentID, unitID string) error
}

// ClusterUnitRepository defines the knowledge unit operations needed for
// cluster assignment.
type ClusterUnitRepository interface {
	Create(ctx context.Context, u *domain.KnowledgeUnit) error
	GetByID(ctx context.Context, id string) (*domain.KnowledgeUnit, error)
}

// AssignmentStatus is the per-fragment outcome of a batch consolidation.
type AssignmentStatus string

const (
	AssignmentAssigned         AssignmentStatus = "assigned"
	AssignmentAlreadyClustered AssignmentStatus = "already_clustered"
	AssignmentNotFound         AssignmentStatus = "not_found"
)

// AssignmentOutcome reports what happened to one fragment during
// CreateClusterFromFragments, so partial success is observable.
type AssignmentOutcome struct {
	FragmentID string
	Status     AssignmentStatus
}

// CreateClusterInput carries the attributes of the knowledge unit to create
// and the fragments to consolidate into it.
type CreateClusterInput struct {
	FragmentIDs []string
	CategoryID  string
	Title       string
	Summary     string
	Content     string
	Confidence  domain.Confidence
}

// ClusterService consolidates unclustered fragments into knowledge units.
// Assignment is a one-way transition: once a fragment has a cluster it is
// never unset or reassigned here.
type ClusterService struct {
	fragmentRepo ClusterFragmentRepository
	unitRepo     ClusterUnitRepository
	jobRepo      EmbeddingJobRepositoryInterface
	tx           TxRunner
	uuidGen      UUIDGenerator
	dims         int
	log          zerolog.Logger
}

// NewClusterService creates a new ClusterService instance
func NewClusterService(
	fragmentRepo ClusterFragmentRepository,
	unitRepo ClusterUnitRepository,
	jobRepo EmbeddingJobRepositoryInterface,
	tx TxRunner,
	dims int,
	log zerolog.Logger,
) *ClusterService {
	return &ClusterService{
		fragmentRepo: fragmentRepo,
		unitRepo:     unitRepo,
		jobRepo:      jobRepo,
		tx:           tx,
		uuidGen:      &DefaultUUIDGenerator{},
		dims:         dims,
		log:          log,
	}
}

// NewClusterServiceWithUUIDGen creates a ClusterService with a custom UUID
// generator (for testing).
func NewClusterServiceWithUUIDGen(
	fragmentRepo ClusterFragmentRepository,
	unitRepo ClusterUnitRepository,
	jobRepo EmbeddingJobRepositoryInterface,
	tx TxRunner,
	dims int,
	log zerolog.Logger,
	uuidGen UUIDGenerator,
) *ClusterService {
	svc := NewClusterService(fragmentRepo, unitRepo, jobRepo, tx, dims, log)
	svc.uuidGen = uuidGen
	return svc
}

// AssignToCluster attaches a fragment to an existing knowledge unit. Exactly
// one of two concurrent callers can win; the loser gets ErrAlreadyClustered
// and the fragment keeps the winner's cluster.
func (s *ClusterService) AssignToCluster(ctx context.Context, fragmentID, unitID string) error {
	ctx, span := telemetry.StartSpan(ctx, "ClusterService.AssignToCluster", telemetry.SpanAttributes{
		FragmentID: fragmentID,
		UnitID:     unitID,
		Operation:  "assign",
	})
	defer span.End()

	if fragmentID == "" || unitID == "" {
		return domain.ErrMissingRequiredField
	}

	// The target unit must exist and be visible.
	if _, err := s.unitRepo.GetByID(ctx, unitID); err != nil {
		return err
	}

	return s.fragmentRepo.AssignCluster(ctx, fragmentID, unitID)
}

// CreateClusterFromFragments creates a knowledge unit and assigns each given
// fragment to it. Fragments that lost an assignment race or are invisible
// are skipped, not fatal; the per-fragment outcomes report exactly what
// happened. The unit and all assignments commit atomically.
func (s *ClusterService) CreateClusterFromFragments(ctx context.Context, input CreateClusterInput) (*domain.KnowledgeUnit, []AssignmentOutcome, error) {
	ctx, span := telemetry.StartSpan(ctx, "ClusterService.CreateClusterFromFragments", telemetry.SpanAttributes{
		Operation: "consolidate",
	})
	defer span.End()

	now := time.Now().UTC()
	unit := domain.NewKnowledgeUnit(
		s.uuidGen.NewString(),
		input.CategoryID,
		input.Title,
		input.Summary,
		input.Content,
		input.Confidence,
		now,
	)
	if unit.Confidence == "" {
		unit.Confidence = domain.ConfidenceUnclear
	}

	if err := domain.ValidateKnowledgeUnit(unit, s.dims); err != nil {
		return nil, nil, err
	}

	outcomes := make([]AssignmentOutcome, 0, len(input.FragmentIDs))

	err := s.tx.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Units().Create(ctx, unit); err != nil {
			return err
		}

		for _, fragmentID := range input.FragmentIDs {
			err := repos.Fragments().AssignCluster(ctx, fragmentID, unit.ID)
			switch {
			case err == nil:
				outcomes = append(outcomes, AssignmentOutcome{FragmentID: fragmentID, Status: AssignmentAssigned})
			case errors.Is(err, domain.ErrAlreadyClustered):
				s.log.Info().
					Str("fragment_id", fragmentID).
					Str("unit_id", unit.ID).
					Msg("fragment already clustered, skipping")
				outcomes = append(outcomes, AssignmentOutcome{FragmentID: fragmentID, Status: AssignmentAlreadyClustered})
			case errors.Is(err, domain.ErrFragmentNotFound):
				s.log.Warn().
					Str("fragment_id", fragmentID).
					Str("unit_id", unit.ID).
					Msg("fragment not found during consolidation, skipping")
				outcomes = append(outcomes, AssignmentOutcome{FragmentID: fragmentID, Status: AssignmentNotFound})
			default:
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	// The unit's embedding is computed independently, never derived from
	// member fragments.
	if s.jobRepo != nil {
		job := domain.NewUnitEmbeddingJob(s.uuidGen.NewString(), unit.ID, now)
		if err := s.jobRepo.Create(ctx, job); err != nil {
			return nil, nil, err
		}
	}

	return unit, outcomes, nil
}

// ListMembers returns the visible member fragments of a knowledge unit.
// Soft-deleted members stay linked by cluster_id but never surface here.
func (s *ClusterService) ListMembers(ctx context.Context, unitID string) ([]*domain.Fragment, error) {
	ctx, span := telemetry.StartSpan(ctx, "ClusterService.ListMembers", telemetry.SpanAttributes{
		UnitID:    unitID,
		Operation: "list_members",
	})
	defer span.End()

	if _, err := s.unitRepo.GetByID(ctx, unitID); err != nil {
		return nil, err
	}

	return s.fragmentRepo.List(ctx, FragmentFilter{ClusterID: unitID})
}
