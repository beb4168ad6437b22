package service

import (
	"context"
	"testing"
	"time"

	"github.com/kanso-ai/kanso/internal/domain"
	"github.com/kanso-ai/kanso/internal/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newFragmentServiceDeps() (*MockFragmentRepository, *MockCategoryRepository, *MockSourceRepository, *MockEmbeddingJobRepository) {
	return new(MockFragmentRepository), new(MockCategoryRepository), new(MockSourceRepository), new(MockEmbeddingJobRepository)
}

func TestFragmentService_Create(t *testing.T) {
	ctx := context.Background()

	input := CreateFragmentInput{
		SourceID:   "src-1",
		CategoryID: "cat-1",
		Title:      "Standup notes",
		Summary:    "Tuesday standup",
		Content:    "We agreed to ship weekly.",
	}

	t.Run("creates fragment and queues embedding job", func(t *testing.T) {
		fragRepo, catRepo, srcRepo, jobRepo := newFragmentServiceDeps()
		uuidGen := NewMockUUIDGenerator("frag-id-1", "job-id-1")
		svc := NewFragmentServiceWithUUIDGen(fragRepo, catRepo, srcRepo, jobRepo, 3, uuidGen)

		catRepo.On("GetByID", mock.Anything, "cat-1").Return(&domain.Category{ID: "cat-1"}, nil)
		srcRepo.On("GetByID", mock.Anything, "src-1").Return(&domain.Source{ID: "src-1"}, nil)
		fragRepo.On("Create", mock.Anything, mock.MatchedBy(func(f *domain.Fragment) bool {
			return f.ID == "frag-id-1" &&
				f.SourceID == "src-1" &&
				f.CategoryID == "cat-1" &&
				f.Embedding == nil &&
				f.ClusterID == nil &&
				!f.IsDeleted
		})).Return(nil)
		jobRepo.On("Create", mock.Anything, mock.MatchedBy(func(job *domain.EmbeddingJob) bool {
			return job.ID == "job-id-1" &&
				job.FragmentID == "frag-id-1" &&
				job.UnitID == "" &&
				job.Status == domain.EmbeddingJobStatusPending
		})).Return(nil)

		fragment, err := svc.Create(ctx, input)
		require.NoError(t, err)
		assert.Equal(t, "frag-id-1", fragment.ID)

		fragRepo.AssertExpectations(t)
		jobRepo.AssertExpectations(t)
	})

	t.Run("no job queued when embedding is supplied", func(t *testing.T) {
		fragRepo, catRepo, srcRepo, jobRepo := newFragmentServiceDeps()
		uuidGen := NewMockUUIDGenerator("frag-id-1")
		svc := NewFragmentServiceWithUUIDGen(fragRepo, catRepo, srcRepo, jobRepo, 3, uuidGen)

		catRepo.On("GetByID", mock.Anything, "cat-1").Return(&domain.Category{ID: "cat-1"}, nil)
		srcRepo.On("GetByID", mock.Anything, "src-1").Return(&domain.Source{ID: "src-1"}, nil)
		fragRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

		embedded := input
		embedded.Embedding = []float32{0.1, 0.2, 0.3}
		_, err := svc.Create(ctx, embedded)
		require.NoError(t, err)

		jobRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("rejects embedding with wrong dimension", func(t *testing.T) {
		fragRepo, catRepo, srcRepo, jobRepo := newFragmentServiceDeps()
		svc := NewFragmentService(fragRepo, catRepo, srcRepo, jobRepo, 3)

		bad := input
		bad.Embedding = []float32{0.1}
		_, err := svc.Create(ctx, bad)
		assert.ErrorIs(t, err, domain.ErrEmbeddingDimension)
		fragRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("fails when category does not exist", func(t *testing.T) {
		fragRepo, catRepo, srcRepo, jobRepo := newFragmentServiceDeps()
		svc := NewFragmentService(fragRepo, catRepo, srcRepo, jobRepo, 3)

		catRepo.On("GetByID", mock.Anything, "cat-1").Return(nil, domain.ErrCategoryNotFound)

		_, err := svc.Create(ctx, input)
		assert.ErrorIs(t, err, domain.ErrCategoryNotFound)
		fragRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("fails when source does not exist", func(t *testing.T) {
		fragRepo, catRepo, srcRepo, jobRepo := newFragmentServiceDeps()
		svc := NewFragmentService(fragRepo, catRepo, srcRepo, jobRepo, 3)

		catRepo.On("GetByID", mock.Anything, "cat-1").Return(&domain.Category{ID: "cat-1"}, nil)
		srcRepo.On("GetByID", mock.Anything, "src-1").Return(nil, domain.ErrSourceNotFound)

		_, err := svc.Create(ctx, input)
		assert.ErrorIs(t, err, domain.ErrSourceNotFound)
		fragRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestFragmentService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("soft deletes unclustered fragment", func(t *testing.T) {
		fragRepo, catRepo, srcRepo, jobRepo := newFragmentServiceDeps()
		svc := NewFragmentService(fragRepo, catRepo, srcRepo, jobRepo, 3)

		fragRepo.On("SoftDelete", mock.Anything, "frag-1").Return(nil)

		require.NoError(t, svc.Delete(ctx, "frag-1"))
		fragRepo.AssertExpectations(t)
	})

	t.Run("clustered fragment deletion is blocked", func(t *testing.T) {
		fragRepo, catRepo, srcRepo, jobRepo := newFragmentServiceDeps()
		svc := NewFragmentService(fragRepo, catRepo, srcRepo, jobRepo, 3)

		fragRepo.On("SoftDelete", mock.Anything, "frag-1").Return(domain.ErrFragmentClustered)

		err := svc.Delete(ctx, "frag-1")
		assert.ErrorIs(t, err, domain.ErrFragmentClustered)
	})

	t.Run("deleting a missing fragment reports not found", func(t *testing.T) {
		fragRepo, catRepo, srcRepo, jobRepo := newFragmentServiceDeps()
		svc := NewFragmentService(fragRepo, catRepo, srcRepo, jobRepo, 3)

		fragRepo.On("SoftDelete", mock.Anything, "frag-gone").Return(domain.ErrFragmentNotFound)

		err := svc.Delete(ctx, "frag-gone")
		assert.ErrorIs(t, err, domain.ErrFragmentNotFound)
	})
}

func TestFragmentService_ListFragments(t *testing.T) {
	ctx := context.Background()

	t.Run("applies default limit and decodes cursor", func(t *testing.T) {
		fragRepo, catRepo, srcRepo, jobRepo := newFragmentServiceDeps()
		svc := NewFragmentService(fragRepo, catRepo, srcRepo, jobRepo, 3)

		now := time.Now().UTC().Truncate(time.Microsecond)
		cursor := pagination.EncodeCursor("frag-5", now)

		fragRepo.On("ListWithCursor", mock.Anything, FragmentFilter{}, mock.MatchedBy(func(c *pagination.Cursor) bool {
			return c != nil && c.LastID == "frag-5" && c.Timestamp.Equal(now)
		}), 20).Return(&FragmentPageResult{Items: []*domain.Fragment{}, HasMore: false}, nil)

		out, err := svc.ListFragments(ctx, ListFragmentsInput{Cursor: cursor})
		require.NoError(t, err)
		assert.False(t, out.HasMore)
		fragRepo.AssertExpectations(t)
	})

	t.Run("passes filter through", func(t *testing.T) {
		fragRepo, catRepo, srcRepo, jobRepo := newFragmentServiceDeps()
		svc := NewFragmentService(fragRepo, catRepo, srcRepo, jobRepo, 3)

		filter := FragmentFilter{CategoryID: "cat-1", Unclustered: true}
		fragRepo.On("ListWithCursor", mock.Anything, filter, (*pagination.Cursor)(nil), 5).
			Return(&FragmentPageResult{Items: []*domain.Fragment{{ID: "frag-1"}}, NextCursor: "next", HasMore: true}, nil)

		out, err := svc.ListFragments(ctx, ListFragmentsInput{Filter: filter, Limit: 5})
		require.NoError(t, err)
		assert.True(t, out.HasMore)
		assert.Equal(t, "next", out.Cursor)
		require.Len(t, out.Items, 1)
	})
}
