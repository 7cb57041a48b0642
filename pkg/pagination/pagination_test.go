package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	in := Cursor{CreatedAt: time.Date(2026, 3, 4, 5, 6, 7, 890, time.UTC), ID: uuid.New()}
	token := EncodeCursor(in)
	assert.NotContains(t, token, "=")

	out, err := ParseCursor(token)
	require.NoError(t, err)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	assert.Equal(t, in.ID, out.ID)
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	got, err := ParseCursor("")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = ParseCursor("!!!")
	assert.Error(t, err)
}

func TestLimits(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+10))
	assert.Equal(t, 11, LimitWithBuffer(10))
}

func TestFromQuery(t *testing.T) {
	params, err := FromQuery("25", " abc ")
	require.NoError(t, err)
	assert.Equal(t, Params{Limit: 25, Cursor: "abc"}, params)

	_, err = FromQuery("many", "")
	assert.Error(t, err)
}
