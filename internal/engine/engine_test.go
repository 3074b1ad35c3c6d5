package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vectable/blobstore"
	"github.com/hupe1980/vectable/errs"
	"github.com/hupe1980/vectable/internal/compress"
	"github.com/hupe1980/vectable/metrics"
	"github.com/hupe1980/vectable/table"
	"github.com/hupe1980/vectable/testutil"
)

const dim = 4

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newDB(t *testing.T, opts ...Option) *Database {
	t.Helper()
	return Open(blobstore.NewMemoryStore(), "db", opts...)
}

// fixture returns rows with ids start..start+n-1, alternating east and west,
// and vector [id, 0, 0, 0].
func fixture(start int64, n int) []testutil.Row {
	rows := make([]testutil.Row, n)
	for i := range rows {
		id := start + int64(i)
		region := "east"
		if i%2 == 1 {
			region = "west"
		}
		rows[i] = testutil.Row{
			ID:     id,
			Region: region,
			Text:   fmt.Sprintf("row %d", id),
			Vector: []float32{float32(id), 0, 0, 0},
		}
	}
	return rows
}

func createTable(t *testing.T, db *Database, name string, rows []testutil.Row) *Table {
	t.Helper()
	tbl, err := db.CreateTable(context.Background(), name, testutil.Reader(rows, dim), table.ModeCreate)
	require.NoError(t, err)
	return tbl.(*Table)
}

func readRows(t *testing.T, tbl table.Table) []testutil.Row {
	t.Helper()
	r, err := tbl.Search(context.Background(), table.Query{Limit: 100000})
	require.NoError(t, err)
	return testutil.ReadRows(t, r)
}

func latest(t *testing.T, tbl *Table) uint64 {
	t.Helper()
	v, err := tbl.Version(context.Background())
	require.NoError(t, err)
	return v
}

func TestCreateAndOpenTable(t *testing.T) {
	ctx := context.Background()
	db := newDB(t)
	createTable(t, db, "items", fixture(1, 6))

	names, err := db.TableNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"items"}, names)

	tbl, err := db.OpenTable(ctx, "items")
	require.NoError(t, err)
	assert.Equal(t, "items", tbl.Name())

	v, err := tbl.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)

	schema, err := tbl.Schema(ctx)
	require.NoError(t, err)
	assert.True(t, schema.Equal(testutil.Schema(dim)))

	n, err := tbl.CountRows(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)
	assert.Equal(t, fixture(1, 6), readRows(t, tbl))
}

func TestCreateTableModes(t *testing.T) {
	ctx := context.Background()
	db := newDB(t)
	createTable(t, db, "items", fixture(1, 3))

	_, err := db.CreateTable(ctx, "items", testutil.Reader(fixture(1, 3), dim), table.ModeCreate)
	assert.ErrorIs(t, err, errs.ErrAlreadyExists)

	tbl, err := db.CreateTable(ctx, "items", testutil.Reader(fixture(10, 2), dim), table.ModeOverwrite)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 11}, testutil.IDs(readRows(t, tbl)))

	tbl, err = db.CreateTable(ctx, "items", testutil.Reader(fixture(20, 1), dim), table.ModeAppend)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 11, 20}, testutil.IDs(readRows(t, tbl)))
	assert.Equal(t, uint64(3), latest(t, tbl.(*Table)))

	fresh, err := db.CreateTable(ctx, "fresh", testutil.Reader(fixture(1, 2), dim), table.ModeAppend)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), latest(t, fresh.(*Table)))
}

func TestOverwriteReplacesSchema(t *testing.T) {
	ctx := context.Background()
	db := newDB(t)
	tbl := createTable(t, db, "items", fixture(1, 3))
	require.NoError(t, tbl.CreateIndex(ctx, "vector", nil))

	rec := idOnlyRecord(t, 7, 8)
	rdr, err := array.NewRecordReader(rec.Schema(), []arrow.Record{rec})
	require.NoError(t, err)
	rec.Release()

	_, err = db.CreateTable(ctx, "items", rdr, table.ModeOverwrite)
	require.NoError(t, err)

	schema, err := tbl.Schema(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, schema.NumFields())
	indices, err := tbl.ListIndices(ctx)
	require.NoError(t, err)
	assert.Empty(t, indices)
}

func idOnlyRecord(t *testing.T, ids ...int64) arrow.Record {
	t.Helper()
	schema := arrow.NewSchema([]arrow.Field{{Name: "id", Type: arrow.PrimitiveTypes.Int64}}, nil)
	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()
	b.Field(0).(*array.Int64Builder).AppendValues(ids, nil)
	return b.NewRecord()
}

func TestTableNameValidation(t *testing.T) {
	ctx := context.Background()
	db := newDB(t)

	for _, name := range []string{"", "a/b", "white space", "ü"} {
		_, err := db.CreateTable(ctx, name, testutil.Reader(fixture(1, 1), dim), table.ModeCreate)
		assert.ErrorIs(t, err, errs.ErrInvalidInput, name)
	}
	_, err := db.CreateTable(ctx, "ok-name_1.v2", testutil.Reader(fixture(1, 1), dim), table.ModeCreate)
	assert.NoError(t, err)
}

func TestOpenAndDropMissingTable(t *testing.T) {
	ctx := context.Background()
	db := newDB(t)

	_, err := db.OpenTable(ctx, "missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.ErrorIs(t, db.DropTable(ctx, "missing"), errs.ErrNotFound)

	createTable(t, db, "items", fixture(1, 2))
	require.NoError(t, db.DropTable(ctx, "items"))

	names, err := db.TableNames(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
	infos, err := db.Store().List(ctx, "db/")
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestClosedDatabase(t *testing.T) {
	db := newDB(t)
	require.NoError(t, db.Close())
	_, err := db.TableNames(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestAddModes(t *testing.T) {
	ctx := context.Background()
	db := newDB(t)
	tbl := createTable(t, db, "items", fixture(1, 2))
	require.NoError(t, tbl.CreateIndex(ctx, "vector", nil))

	require.NoError(t, tbl.Add(ctx, testutil.Reader(fixture(3, 2), dim), table.ModeAppend))
	assert.Equal(t, []int64{1, 2, 3, 4}, testutil.IDs(readRows(t, tbl)))

	err := tbl.Add(ctx, testutil.Reader(fixture(5, 1), dim), table.ModeCreate)
	assert.ErrorIs(t, err, errs.ErrAlreadyExists)

	require.NoError(t, tbl.Add(ctx, testutil.Reader(fixture(9, 1), dim), table.ModeOverwrite))
	assert.Equal(t, []int64{9}, testutil.IDs(readRows(t, tbl)))

	stats, err := tbl.IndexStats(ctx, "vector_idx")
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.NumIndexedRows)
	assert.Equal(t, int64(1), stats.NumUnindexedRows)
}

func TestAddReordersColumns(t *testing.T) {
	ctx := context.Background()
	db := newDB(t)
	tbl := createTable(t, db, "items", fixture(1, 1))

	rec := testutil.Record(fixture(2, 2), dim)
	defer rec.Release()
	fields := rec.Schema().Fields()
	n := len(fields)
	revFields := make([]arrow.Field, n)
	revCols := make([]arrow.Array, n)
	for i := range fields {
		revFields[i] = fields[n-1-i]
		revCols[i] = rec.Column(n - 1 - i)
	}
	reversed := array.NewRecord(arrow.NewSchema(revFields, nil), revCols, rec.NumRows())
	rdr, err := array.NewRecordReader(reversed.Schema(), []arrow.Record{reversed})
	require.NoError(t, err)
	reversed.Release()

	require.NoError(t, tbl.Add(ctx, rdr, table.ModeAppend))
	assert.Equal(t, fixture(2, 2), readRows(t, tbl)[1:])
}

func TestAddRejectsSchemaMismatch(t *testing.T) {
	ctx := context.Background()
	db := newDB(t)
	tbl := createTable(t, db, "items", fixture(1, 1))

	rec := idOnlyRecord(t, 5)
	rdr, err := array.NewRecordReader(rec.Schema(), []arrow.Record{rec})
	require.NoError(t, err)
	rec.Release()

	err = tbl.Add(ctx, rdr, table.ModeAppend)
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
	assert.Equal(t, uint64(1), latest(t, tbl))
}

func TestCountRowsAndDelete(t *testing.T) {
	ctx := context.Background()
	db := newDB(t)
	tbl := createTable(t, db, "items", fixture(1, 6))

	n, err := tbl.CountRows(ctx, "region = 'west'")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	require.NoError(t, tbl.Delete(ctx, "region = 'west'"))
	assert.Equal(t, []int64{1, 3, 5}, testutil.IDs(readRows(t, tbl)))
	assert.Equal(t, uint64(2), latest(t, tbl))

	n, err = tbl.CountRows(ctx, "id > 1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// Nothing matches: no new version.
	require.NoError(t, tbl.Delete(ctx, "id > 100"))
	assert.Equal(t, uint64(2), latest(t, tbl))

	assert.ErrorIs(t, tbl.Delete(ctx, " "), errs.ErrInvalidInput)
	assert.ErrorIs(t, tbl.Delete(ctx, "nope = 1"), errs.ErrInvalidInput)
	_, err = tbl.CountRows(ctx, "nope = 1")
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestDeleteDropsEmptyFragments(t *testing.T) {
	ctx := context.Background()
	db := newDB(t)
	tbl := createTable(t, db, "items", fixture(1, 2))
	require.NoError(t, tbl.Add(ctx, testutil.Reader(fixture(3, 2), dim), table.ModeAppend))

	require.NoError(t, tbl.Delete(ctx, "id <= 2 OR id = 3"))

	m, err := tbl.manifests.Latest(ctx)
	require.NoError(t, err)
	require.Len(t, m.Fragments, 1)
	assert.Equal(t, int64(1), m.Fragments[0].NumDeleted)
	assert.NotEmpty(t, m.Fragments[0].DeletionFile)
	assert.Equal(t, []int64{4}, testutil.IDs(readRows(t, tbl)))
}

func TestCompressionCodecs(t *testing.T) {
	for _, codec := range []compress.Codec{compress.None, compress.LZ4, compress.ZSTD} {
		t.Run(codec.String(), func(t *testing.T) {
			db := newDB(t, WithCompression(codec))
			tbl := createTable(t, db, "items", fixture(1, 5))
			assert.Equal(t, fixture(1, 5), readRows(t, tbl))
		})
	}
}

func TestMetricsAreRecorded(t *testing.T) {
	ctx := context.Background()
	m := &metrics.Basic{}
	db := newDB(t, WithMetricsCollector(m))
	tbl := createTable(t, db, "items", fixture(1, 4))
	require.NoError(t, tbl.Delete(ctx, "id = 1"))

	stats := m.Stats()
	assert.Equal(t, int64(1), stats.AddCount)
	assert.Equal(t, int64(4), stats.AddRows)
	assert.Equal(t, int64(1), stats.DeleteRows)
}

func TestConcurrentWritersAcrossDatabases(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	a := Open(store, "db", WithMaxCommitRetries(50))
	b := Open(store, "db", WithMaxCommitRetries(50))
	createTable(t, a, "items", fixture(0, 1))

	var wg sync.WaitGroup
	for w, db := range []*Database{a, b} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tbl, err := db.OpenTable(ctx, "items")
			if !assert.NoError(t, err) {
				return
			}
			for i := 0; i < 5; i++ {
				id := int64(100*(w+1) + i)
				assert.NoError(t, tbl.Add(ctx, testutil.Reader(fixture(id, 1), dim), table.ModeAppend))
			}
		}()
	}
	wg.Wait()

	tbl, err := a.OpenTable(ctx, "items")
	require.NoError(t, err)
	n, err := tbl.CountRows(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(11), n)
	v, err := tbl.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), v)
}

// conflictStore makes every manifest commit lose the race.
type conflictStore struct {
	blobstore.Store
}

func (s conflictStore) PutIfAbsent(ctx context.Context, name string, data []byte) error {
	if strings.Contains(name, "/_versions/") {
		return blobstore.ErrAlreadyExists
	}
	return s.Store.PutIfAbsent(ctx, name, data)
}

func TestCommitConflictExhaustsRetries(t *testing.T) {
	ctx := context.Background()
	inner := blobstore.NewMemoryStore()
	createTable(t, Open(inner, "db"), "items", fixture(1, 2))

	db := Open(conflictStore{inner}, "db", WithMaxCommitRetries(3))
	tbl, err := db.OpenTable(ctx, "items")
	require.NoError(t, err)

	before, err := inner.List(ctx, "db/items.lance/data/")
	require.NoError(t, err)

	err = tbl.Add(ctx, testutil.Reader(fixture(3, 2), dim), table.ModeAppend)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrConflict)

	after, err := inner.List(ctx, "db/items.lance/data/")
	require.NoError(t, err)
	assert.Len(t, after, len(before))

	err = tbl.Delete(ctx, "id = 1")
	assert.True(t, errors.Is(err, errs.ErrConflict))
	deletions, err := inner.List(ctx, "db/items.lance/_deletions/")
	require.NoError(t, err)
	assert.Empty(t, deletions)
}

func TestLocalStoreCommitLock(t *testing.T) {
	ctx := context.Background()
	store, err := blobstore.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	db := Open(store, "")

	tbl, err := db.CreateTable(ctx, "items", testutil.Reader(fixture(1, 3), dim), table.ModeCreate)
	require.NoError(t, err)
	require.NoError(t, tbl.Delete(ctx, "id = 2"))
	assert.Equal(t, []int64{1, 3}, testutil.IDs(readRows(t, tbl)))

	names, err := db.TableNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"items"}, names)
}
