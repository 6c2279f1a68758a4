package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct{ id int64 }

func TestBuildCursorPageInfo(t *testing.T) {
	rows := []*row{{id: 9}, {id: 8}, {id: 7}}

	page, info := BuildCursorPageInfo(rows, 2, func(r *row) int64 { return r.id })
	assert.Len(t, page, 2)
	assert.True(t, info.HasMore)

	cursor, err := DecodeCursor(info.NextPageToken)
	require.NoError(t, err)
	assert.Equal(t, int64(8), cursor.ID)

	page, info = BuildCursorPageInfo(rows, 5, func(r *row) int64 { return r.id })
	assert.Len(t, page, 3)
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	_, err := DecodeCursor("%%%")
	assert.ErrorIs(t, err, ErrInvalidPageToken)

	cursor, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Zero(t, cursor.ID)
}

func TestPaginationSize(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Pagination{}.Size())
	assert.Equal(t, MaxPageSize, Pagination{PageSize: 9000}.Size())
	assert.Equal(t, 7, Pagination{PageSize: 7}.Size())
}
