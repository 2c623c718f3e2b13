package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	createdAt := time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC)
	id := uuid.New()

	gotTime, gotID, err := Decode(Encode(createdAt, id))
	require.NoError(t, err)
	assert.True(t, createdAt.Equal(gotTime))
	assert.Equal(t, id, gotID)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, cursor := range []string{"", "!!!", "bm90LWEtY3Vyc29y", "MTIzNA"} {
		_, _, err := Decode(cursor)
		assert.ErrorIs(t, err, ErrInvalidCursor, "cursor %q", cursor)
	}
}
