package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, DefaultLimit, NormalizeLimit(-4))
	assert.Equal(t, 10, NormalizeLimit(10))
	assert.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+50))
	assert.Equal(t, 11, LimitWithBuffer(10))
}

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2024, 3, 9, 18, 45, 0, 0, time.UTC)
	encoded := EncodeCursor(Cursor{At: at, ID: "CNR1234567"})

	decoded, err := ParseCursor(encoded)
	require.NoError(t, err)
	require.NotNil(t, decoded)
	assert.True(t, decoded.At.Equal(at))
	assert.Equal(t, "CNR1234567", decoded.ID)
}

func TestParseCursorEmpty(t *testing.T) {
	cursor, err := ParseCursor("  ")
	require.NoError(t, err)
	assert.Nil(t, cursor)
}

func TestParseCursorRejectsMalformed(t *testing.T) {
	_, err := ParseCursor("%%%")
	assert.Error(t, err)

	_, err = ParseCursor(base64.StdEncoding.EncodeToString([]byte("no-separator")))
	assert.Error(t, err)

	_, err = ParseCursor(base64.StdEncoding.EncodeToString([]byte("yesterday|CNR1")))
	assert.Error(t, err)

	_, err = ParseCursor(base64.StdEncoding.EncodeToString([]byte("2024-03-09T18:45:00Z|")))
	assert.Error(t, err)
}
