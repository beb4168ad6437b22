package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeCursor(t *testing.T) {
	ts := time.Date(2026, 8, 25, 10, 30, 0, 123456000, time.UTC)

	encoded := EncodeCursor("frag-42", ts)
	require.NotEmpty(t, encoded)

	cursor, err := DecodeCursor(encoded)
	require.NoError(t, err)
	require.NotNil(t, cursor)
	assert.Equal(t, "frag-42", cursor.LastID)
	assert.True(t, cursor.Timestamp.Equal(ts))
}

func TestEncodeCursor_EmptyID(t *testing.T) {
	assert.Empty(t, EncodeCursor("", time.Now()))
}

func TestDecodeCursor_Empty(t *testing.T) {
	cursor, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, cursor)
}

func TestDecodeCursor_Invalid(t *testing.T) {
	t.Run("not base64", func(t *testing.T) {
		_, err := DecodeCursor("not-base64!!!")
		assert.ErrorIs(t, err, ErrInvalidCursor)
	})

	t.Run("missing separator", func(t *testing.T) {
		encoded := base64.StdEncoding.EncodeToString([]byte("no-separator"))
		_, err := DecodeCursor(encoded)
		assert.ErrorIs(t, err, ErrInvalidCursor)
	})

	t.Run("bad timestamp", func(t *testing.T) {
		encoded := base64.StdEncoding.EncodeToString([]byte("id|not-a-time"))
		_, err := DecodeCursor(encoded)
		assert.ErrorIs(t, err, ErrInvalidCursor)
	})
}
