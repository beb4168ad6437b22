package openai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockEmbeddingAPI struct {
	mock.Mock
}

func (m *MockEmbeddingAPI) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func TestClient_GenerateEmbedding(t *testing.T) {
	ctx := context.Background()

	t.Run("returns embedding from API", func(t *testing.T) {
		mockAPI := new(MockEmbeddingAPI)
		client := &Client{api: mockAPI, dimensions: 3}

		expected := []float32{0.1, 0.2, 0.3}
		mockAPI.On("CreateEmbeddings", mock.Anything, "hello").Return(expected, nil)

		embedding, err := client.GenerateEmbedding(ctx, "hello")
		require.NoError(t, err)
		assert.Equal(t, expected, embedding)
	})

	t.Run("rejects empty text", func(t *testing.T) {
		client := &Client{api: new(MockEmbeddingAPI), dimensions: 3}

		_, err := client.GenerateEmbedding(ctx, "")
		assert.ErrorIs(t, err, ErrEmptyText)
	})

	t.Run("rejects wrong dimensions", func(t *testing.T) {
		mockAPI := new(MockEmbeddingAPI)
		client := &Client{api: mockAPI, dimensions: 3}

		mockAPI.On("CreateEmbeddings", mock.Anything, "hello").Return([]float32{0.1, 0.2}, nil)

		_, err := client.GenerateEmbedding(ctx, "hello")
		assert.ErrorIs(t, err, ErrWrongDimensions)
	})

	t.Run("wraps API errors", func(t *testing.T) {
		mockAPI := new(MockEmbeddingAPI)
		client := &Client{api: mockAPI, dimensions: 3}

		mockAPI.On("CreateEmbeddings", mock.Anything, "hello").Return(nil, assert.AnError)

		_, err := client.GenerateEmbedding(ctx, "hello")
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestNewClientWithConfig(t *testing.T) {
	t.Run("defaults dimensions", func(t *testing.T) {
		client := NewClientWithConfig(Config{APIKey: "sk-test"})
		assert.Equal(t, DefaultEmbeddingDimensions, client.dimensions)
	})

	t.Run("honors explicit dimensions", func(t *testing.T) {
		client := NewClientWithConfig(Config{APIKey: "sk-test", EmbeddingDimensions: 768})
		assert.Equal(t, 768, client.dimensions)
	})
}
