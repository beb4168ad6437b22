package jobs

import (
	"context"
	"fmt"

	"github.com/kanso-ai/kanso/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	// MaxRetries is the maximum number of retries for a failed job
	MaxRetries = 3
)

// EmbeddingJobRepository defines the interface for embedding job persistence
type EmbeddingJobRepository interface {
	// ClaimPending retrieves pending jobs and marks them processing
	ClaimPending(ctx context.Context, limit int) ([]*domain.EmbeddingJob, error)

	// UpdateStatus updates the status of an embedding job
	UpdateStatus(ctx context.Context, jobID string, status domain.EmbeddingJobStatus, errMsg string) error

	// IncrementRetries increments the retry count for a job
	IncrementRetries(ctx context.Context, jobID string) error
}

// EmbeddingGenerator defines the interface for generating embeddings
type EmbeddingGenerator interface {
	GenerateFragmentEmbedding(ctx context.Context, fragmentID string) error
	GenerateUnitEmbedding(ctx context.Context, unitID string) error
}

// EmbeddingWorker processes embedding jobs with bounded parallelism.
type EmbeddingWorker struct {
	repo        EmbeddingJobRepository
	generator   EmbeddingGenerator
	batchSize   int
	concurrency int
	log         zerolog.Logger
}

// NewEmbeddingWorker creates a new EmbeddingWorker instance
func NewEmbeddingWorker(repo EmbeddingJobRepository, generator EmbeddingGenerator, batchSize, concurrency int, log zerolog.Logger) *EmbeddingWorker {
	if batchSize <= 0 {
		batchSize = 20
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &EmbeddingWorker{
		repo:        repo,
		generator:   generator,
		batchSize:   batchSize,
		concurrency: concurrency,
		log:         log,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *EmbeddingWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.repo.ClaimPending(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("failed to claim pending jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	w.log.Info().Int("count", len(jobs)).Msg("processing claimed embedding jobs")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			if err := w.processJob(gctx, job); err != nil {
				w.log.Error().Err(err).Str("job_id", job.ID).Msg("error processing job")
			}
			// Per-job failures are recorded on the job row, not fatal to
			// the batch.
			return nil
		})
	}
	return g.Wait()
}

func (w *EmbeddingWorker) processJob(ctx context.Context, job *domain.EmbeddingJob) error {
	var err error
	switch {
	case job.FragmentID != "":
		err = w.generator.GenerateFragmentEmbedding(ctx, job.FragmentID)
	case job.UnitID != "":
		err = w.generator.GenerateUnitEmbedding(ctx, job.UnitID)
	default:
		return fmt.Errorf("job %s has neither fragment_id nor unit_id", job.ID)
	}

	if err != nil {
		return w.handleJobFailure(ctx, job, err)
	}

	if err := w.repo.UpdateStatus(ctx, job.ID, domain.EmbeddingJobStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	w.log.Debug().Str("job_id", job.ID).Msg("job completed")
	return nil
}

// handleJobFailure handles a failed job with retry logic
func (w *EmbeddingWorker) handleJobFailure(ctx context.Context, job *domain.EmbeddingJob, jobErr error) error {
	w.log.Warn().Err(jobErr).Str("job_id", job.ID).Msg("job failed")

	if err := w.repo.IncrementRetries(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to increment retries: %w", err)
	}

	if job.Retries+1 >= MaxRetries {
		w.log.Error().Str("job_id", job.ID).Int("max_retries", MaxRetries).Msg("job exceeded max retries, marking failed")
		errMsg := fmt.Sprintf("max retries exceeded: %v", jobErr)
		if err := w.repo.UpdateStatus(ctx, job.ID, domain.EmbeddingJobStatusFailed, errMsg); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		return nil
	}

	errMsg := fmt.Sprintf("retry %d: %v", job.Retries+1, jobErr)
	if err := w.repo.UpdateStatus(ctx, job.ID, domain.EmbeddingJobStatusPending, errMsg); err != nil {
		return fmt.Errorf("failed to reset job status to pending: %w", err)
	}

	return nil
}
