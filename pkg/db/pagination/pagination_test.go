package pagination

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID        int64
	CreatedAt time.Time
}

func cursorOf(r *row) Cursor {
	return Cursor{ID: strconv.FormatInt(r.ID, 10), CreatedAt: r.CreatedAt.Format(time.RFC3339Nano)}
}

func TestPage_TrimsAndEncodesNextToken(t *testing.T) {
	base := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	rows := []*row{
		{ID: 3, CreatedAt: base.Add(3 * time.Hour)},
		{ID: 2, CreatedAt: base.Add(2 * time.Hour)},
		{ID: 1, CreatedAt: base.Add(time.Hour)},
	}

	items, info := Page(rows, 2, cursorOf)
	require.Len(t, items, 2)
	assert.True(t, info.HasMore)

	cursor, err := ParseTimeCursor(info.NextPageToken, func(s string) (int64, error) {
		return strconv.ParseInt(s, 10, 64)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), cursor.ID)
	assert.True(t, cursor.CreatedAt.Equal(base.Add(2*time.Hour)))
}

func TestPage_LastPageHasNoToken(t *testing.T) {
	rows := []*row{{ID: 1, CreatedAt: time.Now()}}
	items, info := Page(rows, 5, cursorOf)
	assert.Len(t, items, 1)
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)
}

func TestParseTimeCursor_RejectsGarbage(t *testing.T) {
	_, err := ParseTimeCursor("not-base64!!", func(s string) (int64, error) { return 1, nil })
	assert.ErrorIs(t, err, ErrInvalidPageToken)

	cursor, err := ParseTimeCursor("", nil)
	assert.NoError(t, err)
	assert.Nil(t, cursor)
}

func TestPagination_Limit(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Pagination{}.Limit())
	assert.Equal(t, MaxPageSize, Pagination{PageSize: 1000}.Limit())
	assert.Equal(t, 7, Pagination{PageSize: 7}.Limit())
}
