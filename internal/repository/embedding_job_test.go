//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kanso-ai/kanso/internal/domain"
	"github.com/kanso-ai/kanso/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedFragmentForJobs(ctx context.Context, t *testing.T, catRepo *CategoryRepository, srcRepo *SourceRepository, fragRepo *FragmentRepository) string {
	catID, srcID := setupCategoryAndSource(ctx, t, catRepo, srcRepo)
	f := newFragment(catID, srcID, nil, time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, fragRepo.Create(ctx, f))
	return f.ID
}

func TestEmbeddingJobRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	catRepo := NewCategoryRepository(pool)
	srcRepo := NewSourceRepository(pool)
	fragRepo := NewFragmentRepository(pool, testDims)
	jobRepo := NewEmbeddingJobRepository(pool)

	fragmentID := seedFragmentForJobs(ctx, t, catRepo, srcRepo, fragRepo)

	now := time.Now().UTC().Truncate(time.Microsecond)
	job := domain.NewEmbeddingJob(uuid.NewString(), fragmentID, now)
	require.NoError(t, jobRepo.Create(ctx, job))

	got, err := jobRepo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, fragmentID, got.FragmentID)
	assert.Empty(t, got.UnitID)
	assert.Equal(t, domain.EmbeddingJobStatusPending, got.Status)
	assert.Equal(t, int32(0), got.Retries)
	assert.Nil(t, got.ProcessedAt)
}

func TestEmbeddingJobRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	jobRepo := NewEmbeddingJobRepository(pool)

	_, err := jobRepo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrEmbeddingJobNotFound)
}

func TestEmbeddingJobRepository_ClaimPending(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	catRepo := NewCategoryRepository(pool)
	srcRepo := NewSourceRepository(pool)
	fragRepo := NewFragmentRepository(pool, testDims)
	unitRepo := NewKnowledgeUnitRepository(pool, testDims)
	jobRepo := NewEmbeddingJobRepository(pool)

	catID, srcID := setupCategoryAndSource(ctx, t, catRepo, srcRepo)
	base := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

	var jobIDs []string
	for i := 0; i < 3; i++ {
		f := newFragment(catID, srcID, nil, base)
		require.NoError(t, fragRepo.Create(ctx, f))
		job := domain.NewEmbeddingJob(uuid.NewString(), f.ID, base.Add(time.Duration(i)*time.Second))
		require.NoError(t, jobRepo.Create(ctx, job))
		jobIDs = append(jobIDs, job.ID)
	}

	unit := domain.NewKnowledgeUnit(uuid.NewString(), catID, "Unit", "", "Content", domain.ConfidenceMedium, base)
	require.NoError(t, unitRepo.Create(ctx, unit))
	unitJob := domain.NewUnitEmbeddingJob(uuid.NewString(), unit.ID, base.Add(3*time.Second))
	require.NoError(t, jobRepo.Create(ctx, unitJob))

	// Oldest jobs are claimed first and flipped to processing.
	claimed, err := jobRepo.ClaimPending(ctx, 2)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	assert.Equal(t, jobIDs[0], claimed[0].ID)
	assert.Equal(t, jobIDs[1], claimed[1].ID)
	for _, job := range claimed {
		assert.Equal(t, domain.EmbeddingJobStatusProcessing, job.Status)
	}

	// Claimed jobs are gone from the pending pool.
	rest, err := jobRepo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Equal(t, jobIDs[2], rest[0].ID)
	assert.Equal(t, unitJob.ID, rest[1].ID)
	assert.Equal(t, unit.ID, rest[1].UnitID)

	// Nothing left.
	empty, err := jobRepo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestEmbeddingJobRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	catRepo := NewCategoryRepository(pool)
	srcRepo := NewSourceRepository(pool)
	fragRepo := NewFragmentRepository(pool, testDims)
	jobRepo := NewEmbeddingJobRepository(pool)

	fragmentID := seedFragmentForJobs(ctx, t, catRepo, srcRepo, fragRepo)

	t.Run("completed sets processed_at and clears error", func(t *testing.T) {
		job := domain.NewEmbeddingJob(uuid.NewString(), fragmentID, time.Now().UTC())
		require.NoError(t, jobRepo.Create(ctx, job))

		require.NoError(t, jobRepo.UpdateStatus(ctx, job.ID, domain.EmbeddingJobStatusCompleted, ""))

		got, err := jobRepo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.EmbeddingJobStatusCompleted, got.Status)
		assert.Empty(t, got.Error)
		require.NotNil(t, got.ProcessedAt)
	})

	t.Run("failed records the error", func(t *testing.T) {
		job := domain.NewEmbeddingJob(uuid.NewString(), fragmentID, time.Now().UTC())
		require.NoError(t, jobRepo.Create(ctx, job))

		require.NoError(t, jobRepo.UpdateStatus(ctx, job.ID, domain.EmbeddingJobStatusFailed, "provider unavailable"))

		got, err := jobRepo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.EmbeddingJobStatusFailed, got.Status)
		assert.Equal(t, "provider unavailable", got.Error)
		require.NotNil(t, got.ProcessedAt)
	})

	t.Run("pending reset keeps processed_at empty", func(t *testing.T) {
		job := domain.NewEmbeddingJob(uuid.NewString(), fragmentID, time.Now().UTC())
		require.NoError(t, jobRepo.Create(ctx, job))

		require.NoError(t, jobRepo.UpdateStatus(ctx, job.ID, domain.EmbeddingJobStatusPending, "transient failure"))

		got, err := jobRepo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.EmbeddingJobStatusPending, got.Status)
		assert.Equal(t, "transient failure", got.Error)
		assert.Nil(t, got.ProcessedAt)
	})

	t.Run("missing job", func(t *testing.T) {
		err := jobRepo.UpdateStatus(ctx, uuid.NewString(), domain.EmbeddingJobStatusCompleted, "")
		assert.ErrorIs(t, err, domain.ErrEmbeddingJobNotFound)
	})
}

func TestEmbeddingJobRepository_IncrementRetries(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	catRepo := NewCategoryRepository(pool)
	srcRepo := NewSourceRepository(pool)
	fragRepo := NewFragmentRepository(pool, testDims)
	jobRepo := NewEmbeddingJobRepository(pool)

	fragmentID := seedFragmentForJobs(ctx, t, catRepo, srcRepo, fragRepo)

	job := domain.NewEmbeddingJob(uuid.NewString(), fragmentID, time.Now().UTC())
	require.NoError(t, jobRepo.Create(ctx, job))

	require.NoError(t, jobRepo.IncrementRetries(ctx, job.ID))
	require.NoError(t, jobRepo.IncrementRetries(ctx, job.ID))

	got, err := jobRepo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(2), got.Retries)

	err = jobRepo.IncrementRetries(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrEmbeddingJobNotFound)
}
