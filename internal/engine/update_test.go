package engine

import (
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vectable/errs"
	"github.com/hupe1980/vectable/table"
	"github.com/hupe1980/vectable/testutil"
)

// scanIDs returns the ids in storage order.
func scanIDs(t *testing.T, tbl table.Table) []int64 {
	t.Helper()
	r, err := tbl.Search(context.Background(), table.Query{Columns: []string{"id"}, Limit: 100000})
	require.NoError(t, err)
	defer r.Release()

	var ids []int64
	for r.Next() {
		ids = append(ids, r.Record().Column(0).(*array.Int64).Int64Values()...)
	}
	require.NoError(t, r.Err())
	return ids
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	db := newDB(t)
	tbl := createTable(t, db, "items", fixture(0, 1))
	require.NoError(t, tbl.Add(ctx, testutil.Reader(fixture(1, 1), dim), table.ModeAppend))
	assert.Equal(t, uint64(2), latest(t, tbl))

	err := tbl.Update(ctx, "id = 0", map[string]string{"vector": "[1.1, 1.1, 1.1, 1.1]"})
	require.NoError(t, err)

	n, err := tbl.CountRows(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, uint64(3), latest(t, tbl))
	assert.Equal(t, []int64{1, 0}, scanIDs(t, tbl))

	rows := readRows(t, tbl)
	assert.Equal(t, []float32{1.1, 1.1, 1.1, 1.1}, rows[0].Vector)
	assert.Equal(t, fixture(1, 1)[0], rows[1])
}

func TestUpdateExpressions(t *testing.T) {
	ctx := context.Background()
	db := newDB(t)
	tbl := createTable(t, db, "items", fixture(1, 4))

	err := tbl.Update(ctx, "id >= 3", map[string]string{
		"id":     "id * 10",
		"region": "NULL",
		"text":   "'moved'",
	})
	require.NoError(t, err)

	rows := readRows(t, tbl)
	require.Len(t, rows, 4)
	assert.Equal(t, []int64{1, 2, 30, 40}, testutil.IDs(rows))
	assert.Equal(t, "east", rows[0].Region)
	for _, r := range rows[2:] {
		assert.Empty(t, r.Region)
		assert.Equal(t, "moved", r.Text)
	}
	assert.Equal(t, rows[2].Vector, []float32{3, 0, 0, 0})

	n, err := tbl.CountRows(ctx, "region IS NULL")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestUpdateWithoutPredicateUpdatesAllRows(t *testing.T) {
	ctx := context.Background()
	db := newDB(t)
	tbl := createTable(t, db, "items", fixture(1, 3))

	require.NoError(t, tbl.Update(ctx, "", map[string]string{"region": "'south'"}))

	n, err := tbl.CountRows(ctx, "region = 'south'")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestUpdateMatchingNothingCommitsNothing(t *testing.T) {
	ctx := context.Background()
	db := newDB(t)
	tbl := createTable(t, db, "items", fixture(1, 3))

	require.NoError(t, tbl.Update(ctx, "id > 100", map[string]string{"text": "'x'"}))
	assert.Equal(t, uint64(1), latest(t, tbl))
}

func TestUpdateRejectsInvalidValues(t *testing.T) {
	ctx := context.Background()
	db := newDB(t)
	tbl := createTable(t, db, "items", fixture(1, 3))

	tests := []struct {
		name   string
		where  string
		values map[string]string
	}{
		{"NoValues", "id = 1", nil},
		{"UnknownColumn", "id = 1", map[string]string{"missing": "1"}},
		{"UnknownFilterColumn", "missing = 1", map[string]string{"text": "'x'"}},
		{"WrongDimension", "id = 1", map[string]string{"vector": "[1, 2]"}},
		{"NotAVector", "id = 1", map[string]string{"vector": "'abc'"}},
		{"NullIntoRequiredColumn", "id = 1", map[string]string{"id": "NULL"}},
		{"NumberIntoText", "id = 1", map[string]string{"text": "5"}},
		{"FractionIntoInteger", "id = 1", map[string]string{"id": "1.5"}},
		{"BadExpression", "id = 1", map[string]string{"text": "'a' +"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tbl.Update(ctx, tt.where, tt.values)
			assert.ErrorIs(t, err, errs.ErrInvalidInput)
		})
	}
	assert.Equal(t, uint64(1), latest(t, tbl))
	assert.Equal(t, fixture(1, 3), readRows(t, tbl))
}

func TestUpdateKeepsDeletedRowsDeleted(t *testing.T) {
	ctx := context.Background()
	db := newDB(t)
	tbl := createTable(t, db, "items", fixture(1, 4))
	require.NoError(t, tbl.Delete(ctx, "id = 2"))

	require.NoError(t, tbl.Update(ctx, "id <= 2", map[string]string{"text": "'first'"}))

	rows := readRows(t, tbl)
	assert.Equal(t, []int64{1, 3, 4}, testutil.IDs(rows))
	assert.Equal(t, "first", rows[0].Text)
	assert.Equal(t, "row 3", rows[1].Text)
}
