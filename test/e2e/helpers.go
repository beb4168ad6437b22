//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/kanso-ai/kanso/internal/jobs"
	"github.com/kanso-ai/kanso/internal/repository"
	"github.com/kanso-ai/kanso/internal/service"
	"github.com/kanso-ai/kanso/internal/testutil"
)

const embeddingDims = 1536

// Env bundles a running pgvector container with fully wired services. The
// embedding provider is stubbed so similarity geometry is controlled by the
// test, not by a remote model.
type Env struct {
	t    *testing.T
	pc   *testutil.PostgresContainer
	Pool *pgxpool.Pool

	Embeddings *stubEmbeddingClient

	CategoryRepo *repository.CategoryRepository
	SourceRepo   *repository.SourceRepository
	FragmentRepo *repository.FragmentRepository
	UnitRepo     *repository.KnowledgeUnitRepository
	JobRepo      *repository.EmbeddingJobRepository

	Sources    *service.SourceService
	Fragments  *service.FragmentService
	Clusters   *service.ClusterService
	Similarity *service.SimilarityService

	Worker *jobs.EmbeddingWorker
}

// SetupE2EEnv starts a database container and wires the full service stack
// against it.
func SetupE2EEnv(t *testing.T) *Env {
	ctx := context.Background()

	pc := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")

	categoryRepo := repository.NewCategoryRepository(pool)
	sourceRepo := repository.NewSourceRepository(pool)
	fragmentRepo := repository.NewFragmentRepository(pool, embeddingDims)
	unitRepo := repository.NewKnowledgeUnitRepository(pool, embeddingDims)
	jobRepo := repository.NewEmbeddingJobRepository(pool)
	txRunner := repository.NewTxRunner(pool, embeddingDims)

	embeddings := newStubEmbeddingClient()
	embeddingSvc := service.NewEmbeddingService(embeddings, fragmentRepo, unitRepo)

	log := zerolog.Nop()

	return &Env{
		t:            t,
		pc:           pc,
		Pool:         pool,
		Embeddings:   embeddings,
		CategoryRepo: categoryRepo,
		SourceRepo:   sourceRepo,
		FragmentRepo: fragmentRepo,
		UnitRepo:     unitRepo,
		JobRepo:      jobRepo,
		Sources:      service.NewSourceService(sourceRepo, nil),
		Fragments:    service.NewFragmentService(fragmentRepo, categoryRepo, sourceRepo, jobRepo, embeddingDims),
		Clusters:     service.NewClusterService(fragmentRepo, unitRepo, jobRepo, txRunner, embeddingDims, log),
		Similarity:   service.NewSimilarityService(fragmentRepo, unitRepo, embeddingDims),
		Worker:       jobs.NewEmbeddingWorker(jobRepo, embeddingSvc, 50, 4, log),
	}
}

// Cleanup tears down the pool and the container.
func (e *Env) Cleanup() {
	e.Pool.Close()
	if err := e.pc.Terminate(context.Background()); err != nil {
		e.t.Logf("terminating container: %v", err)
	}
}

// Vec pads the given components to the embedding dimension.
func Vec(vals ...float32) []float32 {
	v := make([]float32, embeddingDims)
	copy(v, vals)
	return v
}

// stubEmbeddingClient returns a registered vector when the text contains the
// matching marker, or fails when the text contains a registered failure
// marker. Unmatched text gets a deterministic unit vector derived from its
// hash.
type stubEmbeddingClient struct {
	mu       sync.Mutex
	vectors  map[string][]float32
	failures map[string]error
}

func newStubEmbeddingClient() *stubEmbeddingClient {
	return &stubEmbeddingClient{
		vectors:  make(map[string][]float32),
		failures: make(map[string]error),
	}
}

// Register maps texts containing marker to the given vector.
func (c *stubEmbeddingClient) Register(marker string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vectors[marker] = vec
}

// FailOn makes texts containing marker return err.
func (c *stubEmbeddingClient) FailOn(marker string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[marker] = err
}

func (c *stubEmbeddingClient) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for marker, err := range c.failures {
		if strings.Contains(text, marker) {
			return nil, fmt.Errorf("embedding provider: %w", err)
		}
	}
	for marker, vec := range c.vectors {
		if strings.Contains(text, marker) {
			return vec, nil
		}
	}

	h := fnv.New32a()
	h.Write([]byte(text))
	v := make([]float32, embeddingDims)
	v[int(h.Sum32())%embeddingDims] = 1
	return v, nil
}
