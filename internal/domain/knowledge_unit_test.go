package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfidence_Rank(t *testing.T) {
	assert.Equal(t, 0, ConfidenceUnclear.Rank())
	assert.Equal(t, 1, ConfidenceLow.Rank())
	assert.Equal(t, 2, ConfidenceMedium.Rank())
	assert.Equal(t, 3, ConfidenceHigh.Rank())
	assert.Equal(t, 4, ConfidenceCertain.Rank())

	// Unknown values rank at the bottom.
	assert.Equal(t, 0, Confidence("bogus").Rank())
}

func TestConfidence_AtLeast(t *testing.T) {
	assert.True(t, ConfidenceHigh.AtLeast(ConfidenceMedium))
	assert.True(t, ConfidenceMedium.AtLeast(ConfidenceMedium))
	assert.False(t, ConfidenceLow.AtLeast(ConfidenceMedium))
	assert.True(t, ConfidenceLow.AtLeast(ConfidenceUnclear))
}

func TestValidateKnowledgeUnit(t *testing.T) {
	now := time.Now().UTC()

	valid := func() *KnowledgeUnit {
		return NewKnowledgeUnit("unit-1", "cat-1", "Title", "Summary", "Content", ConfidenceMedium, now)
	}

	t.Run("valid unit", func(t *testing.T) {
		u := valid()
		require.NoError(t, ValidateKnowledgeUnit(u, 3))
		assert.Equal(t, now, u.UpdatedAt)
	})

	t.Run("nil unit", func(t *testing.T) {
		require.Error(t, ValidateKnowledgeUnit(nil, 3))
	})

	t.Run("missing required fields", func(t *testing.T) {
		cases := []struct {
			name   string
			mutate func(u *KnowledgeUnit)
		}{
			{"missing ID", func(u *KnowledgeUnit) { u.ID = "" }},
			{"missing CategoryID", func(u *KnowledgeUnit) { u.CategoryID = "" }},
			{"missing Title", func(u *KnowledgeUnit) { u.Title = "" }},
			{"missing Content", func(u *KnowledgeUnit) { u.Content = "" }},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				u := valid()
				tc.mutate(u)
				err := ValidateKnowledgeUnit(u, 3)
				require.Error(t, err)
				var de *DomainError
				require.ErrorAs(t, err, &de)
				assert.Equal(t, ErrCodeValidation, de.Code)
			})
		}
	})

	t.Run("invalid confidence", func(t *testing.T) {
		u := valid()
		u.Confidence = "sorta"
		assert.ErrorIs(t, ValidateKnowledgeUnit(u, 3), ErrInvalidConfidence)
	})

	t.Run("wrong embedding dimension", func(t *testing.T) {
		u := valid()
		u.Embedding = []float32{0.5}
		assert.ErrorIs(t, ValidateKnowledgeUnit(u, 3), ErrEmbeddingDimension)
	})
}
