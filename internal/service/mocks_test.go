package service

import (
	"context"

	"github.com/kanso-ai/kanso/internal/domain"
	"github.com/kanso-ai/kanso/internal/pagination"
	"github.com/stretchr/testify/mock"
)

// MockFragmentRepository is a mock implementation of the fragment repository
// interfaces used across the service package.
type MockFragmentRepository struct {
	mock.Mock
}

func (m *MockFragmentRepository) Create(ctx context.Context, f *domain.Fragment) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

func (m *MockFragmentRepository) GetByID(ctx context.Context, id string) (*domain.Fragment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Fragment), args.Error(1)
}

func (m *MockFragmentRepository) List(ctx context.Context, filter FragmentFilter) ([]*domain.Fragment, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Fragment), args.Error(1)
}

func (m *MockFragmentRepository) Count(ctx context.Context, filter FragmentFilter) (int, error) {
	args := m.Called(ctx, filter)
	return args.Int(0), args.Error(1)
}

func (m *MockFragmentRepository) ListIncludingDeleted(ctx context.Context, filter FragmentFilter) ([]*domain.Fragment, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Fragment), args.Error(1)
}

func (m *MockFragmentRepository) ListWithCursor(ctx context.Context, filter FragmentFilter, cursor *pagination.Cursor, limit int) (*FragmentPageResult, error) {
	args := m.Called(ctx, filter, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*FragmentPageResult), args.Error(1)
}

func (m *MockFragmentRepository) Update(ctx context.Context, f *domain.Fragment) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

func (m *MockFragmentRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	args := m.Called(ctx, id, embedding)
	return args.Error(0)
}

func (m *MockFragmentRepository) SoftDelete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockFragmentRepository) AssignCluster(ctx context.Context, fragmentID, unitID string) error {
	args := m.Called(ctx, fragmentID, unitID)
	return args.Error(0)
}

func (m *MockFragmentRepository) SearchByEmbedding(ctx context.Context, query []float32, opts SearchOptions) ([]*FragmentMatch, error) {
	args := m.Called(ctx, query, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*FragmentMatch), args.Error(1)
}

// MockUnitRepository is a mock implementation of the knowledge unit
// repository interfaces.
type MockUnitRepository struct {
	mock.Mock
}

func (m *MockUnitRepository) Create(ctx context.Context, u *domain.KnowledgeUnit) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUnitRepository) GetByID(ctx context.Context, id string) (*domain.KnowledgeUnit, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeUnit), args.Error(1)
}

func (m *MockUnitRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	args := m.Called(ctx, id, embedding)
	return args.Error(0)
}

func (m *MockUnitRepository) SearchByEmbedding(ctx context.Context, query []float32, opts SearchOptions) ([]*UnitMatch, error) {
	args := m.Called(ctx, query, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*UnitMatch), args.Error(1)
}

// MockCategoryRepository is a mock implementation of CategoryRepositoryInterface
type MockCategoryRepository struct {
	mock.Mock
}

func (m *MockCategoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

// MockSourceRepository is a mock implementation of SourceRepositoryInterface
type MockSourceRepository struct {
	mock.Mock
}

func (m *MockSourceRepository) GetByID(ctx context.Context, id string) (*domain.Source, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Source), args.Error(1)
}

func (m *MockSourceRepository) Create(ctx context.Context, src *domain.Source) error {
	args := m.Called(ctx, src)
	return args.Error(0)
}

func (m *MockSourceRepository) UpdateStorageKey(ctx context.Context, id, storageKey string) error {
	args := m.Called(ctx, id, storageKey)
	return args.Error(0)
}

// MockEmbeddingJobRepository is a mock implementation of EmbeddingJobRepositoryInterface
type MockEmbeddingJobRepository struct {
	mock.Mock
}

func (m *MockEmbeddingJobRepository) Create(ctx context.Context, job *domain.EmbeddingJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

// MockEmbeddingClient is a mock implementation of EmbeddingClient
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// MockStorageClient is a mock implementation of StorageClientInterface
type MockStorageClient struct {
	mock.Mock
}

func (m *MockStorageClient) PutObject(ctx context.Context, key, contentType string, body []byte) error {
	args := m.Called(ctx, key, contentType, body)
	return args.Error(0)
}

func (m *MockStorageClient) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockStorageClient) DeleteObject(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockUUIDGenerator is a mock implementation of UUIDGenerator
type MockUUIDGenerator struct {
	callCount int
	uuids     []string
}

func NewMockUUIDGenerator(uuids ...string) *MockUUIDGenerator {
	return &MockUUIDGenerator{uuids: uuids}
}

func (m *MockUUIDGenerator) NewString() string {
	if m.callCount < len(m.uuids) {
		id := m.uuids[m.callCount]
		m.callCount++
		return id
	}
	return "default-uuid"
}

// fakeTxRunner executes the transaction function directly against the given
// mocks, without a real transaction.
type fakeTxRunner struct {
	fragments *MockFragmentRepository
	units     *MockUnitRepository
}

func (r *fakeTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	return fn(r)
}

func (r *fakeTxRunner) Fragments() ClusterFragmentRepository {
	return r.fragments
}

func (r *fakeTxRunner) Units() ClusterUnitRepository {
	return r.units
}
