package remote

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	gojson "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vectable/errs"
	"github.com/hupe1980/vectable/index"
	"github.com/hupe1980/vectable/table"
	"github.com/hupe1980/vectable/testutil"
)

const dim = 4

type call struct {
	path  string
	query map[string][]string
	body  []byte
	rows  []testutil.Row
}

// fakeServer answers by path and records every call.
type fakeServer struct {
	t      *testing.T
	routes map[string]func(c call) *http.Response
	calls  []call
}

func newFakeServer(t *testing.T) *fakeServer {
	return &fakeServer{t: t, routes: make(map[string]func(call) *http.Response)}
}

func (s *fakeServer) handle(path string, fn func(c call) *http.Response) {
	s.routes[path] = fn
}

func (s *fakeServer) send(req *http.Request) (*http.Response, error) {
	c := call{path: req.URL.Path, query: req.URL.Query()}
	if req.Body != nil {
		data, err := io.ReadAll(req.Body)
		require.NoError(s.t, err)
		c.body = data
	}
	if req.Header.Get("Content-Type") == ContentTypeArrowStream {
		r, err := ipc.NewReader(bytes.NewReader(c.body))
		require.NoError(s.t, err)
		c.rows = testutil.ReadRows(s.t, r)
	}
	s.calls = append(s.calls, c)

	fn, ok := s.routes[c.path]
	if !ok {
		return respond(http.StatusNotFound, "no route "+c.path), nil
	}
	return fn(c), nil
}

func (s *fakeServer) connection(t *testing.T) *Connection {
	conn, err := Connect("db://mydb", "key", "us-east-1",
		WithHostOverride("http://localhost"), WithSender(SenderFunc(s.send)))
	require.NoError(t, err)
	return conn
}

func jsonResponse(t *testing.T, v any) *http.Response {
	data, err := gojson.Marshal(v)
	require.NoError(t, err)
	return respond(http.StatusOK, string(data))
}

func describe(t *testing.T, version uint64) func(call) *http.Response {
	schema, err := NewJSONSchema(testutil.Schema(dim))
	require.NoError(t, err)
	return func(call) *http.Response {
		return jsonResponse(t, describeResponse{Table: "items", Version: version, Schema: schema})
	}
}

func fixture(start int64, n int) []testutil.Row {
	rows := make([]testutil.Row, n)
	for i := range rows {
		id := start + int64(i)
		rows[i] = testutil.Row{ID: id, Region: "east", Text: "row", Vector: []float32{float32(id), 0, 0, 0}}
	}
	return rows
}

func TestTableNamesPages(t *testing.T) {
	srv := newFakeServer(t)
	srv.handle("/v1/table/", func(c call) *http.Response {
		if c.query["page_token"] == nil {
			return respond(http.StatusOK, `{"tables":["b","a"],"page_token":"a"}`)
		}
		return respond(http.StatusOK, `{"tables":["c"]}`)
	})

	names, err := srv.connection(t).TableNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, names)
	require.Len(t, srv.calls, 2)
	assert.Equal(t, []string{"a"}, srv.calls[1].query["page_token"])
}

func TestCreateOpenDropTable(t *testing.T) {
	ctx := context.Background()
	srv := newFakeServer(t)
	srv.handle("/v1/table/items/create/", func(call) *http.Response { return respond(http.StatusOK, "") })
	srv.handle("/v1/table/items/describe/", describe(t, 3))
	srv.handle("/v1/table/items/drop/", func(call) *http.Response { return respond(http.StatusOK, "") })
	conn := srv.connection(t)

	rows := fixture(1, 3)
	tbl, err := conn.CreateTable(ctx, "items", testutil.Reader(rows, dim), table.ModeOverwrite)
	require.NoError(t, err)
	assert.Equal(t, "items", tbl.Name())
	assert.Equal(t, []string{"overwrite"}, srv.calls[0].query["mode"])
	assert.Equal(t, rows, srv.calls[0].rows)

	tbl, err = conn.OpenTable(ctx, "items")
	require.NoError(t, err)
	schema, err := tbl.Schema(ctx)
	require.NoError(t, err)
	assert.True(t, schema.Equal(testutil.Schema(dim)), schema.String())
	version, err := tbl.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), version)

	_, err = conn.OpenTable(ctx, "missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, conn.DropTable(ctx, "items"))
	assert.ErrorIs(t, conn.DropTable(ctx, "missing"), errs.ErrNotFound)
}

func TestAddCountDelete(t *testing.T) {
	ctx := context.Background()
	srv := newFakeServer(t)
	srv.handle("/v1/table/items/insert/", func(call) *http.Response { return respond(http.StatusOK, "") })
	srv.handle("/v1/table/items/count_rows/", func(call) *http.Response { return respond(http.StatusOK, "42") })
	srv.handle("/v1/table/items/delete/", func(call) *http.Response { return respond(http.StatusOK, "") })
	tbl := newTable(srv.connection(t).Client(), "items")

	require.NoError(t, tbl.Add(ctx, testutil.Reader(fixture(1, 2), dim), table.ModeAppend))
	assert.Equal(t, []string{"append"}, srv.calls[0].query["mode"])
	assert.Len(t, srv.calls[0].rows, 2)

	err := tbl.Add(ctx, testutil.Reader(fixture(1, 2), dim), table.ModeCreate)
	assert.ErrorIs(t, err, errs.ErrAlreadyExists)

	n, err := tbl.CountRows(ctx, "region = 'east'")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
	assert.JSONEq(t, `{"predicate":"region = 'east'"}`, string(srv.calls[1].body))

	require.NoError(t, tbl.Delete(ctx, "id > 1"))
	assert.JSONEq(t, `{"predicate":"id > 1"}`, string(srv.calls[2].body))
	assert.ErrorIs(t, tbl.Delete(ctx, ""), errs.ErrInvalidInput)
}

func TestMergeInsertParameters(t *testing.T) {
	srv := newFakeServer(t)
	srv.handle("/v1/table/items/merge_insert/", func(call) *http.Response { return respond(http.StatusOK, "") })
	tbl := newTable(srv.connection(t).Client(), "items")

	b, err := tbl.MergeInsert("id")
	require.NoError(t, err)
	rows := fixture(5, 2)
	err = b.WhenMatchedUpdateAll().
		WhenNotMatchedInsertAll().
		WhenNotMatchedBySourceDelete("region = 'west'").
		Execute(context.Background(), testutil.Reader(rows, dim))
	require.NoError(t, err)

	require.Len(t, srv.calls, 1)
	q := srv.calls[0].query
	assert.Equal(t, []string{"id"}, q["on"])
	assert.Equal(t, []string{"true"}, q["when_matched_update_all"])
	assert.Equal(t, []string{"true"}, q["when_not_matched_insert_all"])
	assert.Equal(t, []string{"true"}, q["when_not_matched_by_source_delete"])
	assert.Equal(t, []string{"region = 'west'"}, q["when_not_matched_by_source_delete_filt"])
	assert.Equal(t, rows, srv.calls[0].rows)
}

func TestMergeInsertServerError(t *testing.T) {
	srv := newFakeServer(t)
	srv.handle("/v1/table/items/merge_insert/", func(call) *http.Response {
		return respond(http.StatusBadRequest, "column bogus not found")
	})
	tbl := newTable(srv.connection(t).Client(), "items")

	b, err := tbl.MergeInsert("bogus")
	require.NoError(t, err)
	err = b.WhenNotMatchedInsertAll().Execute(context.Background(), testutil.Reader(fixture(1, 1), dim))
	require.ErrorIs(t, err, errs.ErrInvalidInput)
	assert.Contains(t, err.Error(), "column bogus not found")
}

func TestCreateIndexRequests(t *testing.T) {
	ctx := context.Background()
	srv := newFakeServer(t)
	srv.handle("/v1/table/items/describe/", describe(t, 1))
	srv.handle("/v1/table/items/create_index/", func(call) *http.Response { return respond(http.StatusOK, "") })
	tbl := newTable(srv.connection(t).Client(), "items")

	require.NoError(t, tbl.CreateIndex(ctx, "vector", nil))
	var got createIndexRequest
	require.NoError(t, gojson.Unmarshal(srv.calls[1].body, &got))
	assert.Equal(t, "vector", got.Column)
	assert.Equal(t, "IVF_PQ", got.IndexType)
	assert.Equal(t, "vector_idx", got.Name)
	assert.Equal(t, "l2", got.DistanceType)
	assert.True(t, got.Replace)

	err := tbl.CreateIndex(ctx, "text", index.FTSParams{Language: index.Ptr("german")},
		table.WithIndexName("text_fts"), table.WithReplace(false))
	require.NoError(t, err)
	got = createIndexRequest{}
	require.NoError(t, gojson.Unmarshal(srv.calls[2].body, &got))
	assert.Equal(t, "FTS", got.IndexType)
	assert.Equal(t, "text_fts", got.Name)
	assert.False(t, got.Replace)
	assert.Empty(t, got.DistanceType)
	assert.Contains(t, string(got.Params), `"language":"German"`)

	err = tbl.CreateIndex(ctx, "missing", nil)
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	calls := len(srv.calls)
	err = tbl.CreateIndex(ctx, "vector", index.RawDescriptor{Type: "Foo"})
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
	assert.Len(t, srv.calls, calls)
}

func TestListIndicesAndStats(t *testing.T) {
	ctx := context.Background()
	srv := newFakeServer(t)
	srv.handle("/v1/table/items/index/list/", func(call) *http.Response {
		return respond(http.StatusOK, `{"indexes":[{"index_name":"vector_idx","columns":["vector"],"index_type":"IVF_PQ"}]}`)
	})
	srv.handle("/v1/table/items/index/vector_idx/stats/", func(call) *http.Response {
		return respond(http.StatusOK, `{"index_type":"IVF_PQ","distance_type":"l2","num_indexed_rows":10,"num_unindexed_rows":2,"num_indices":1}`)
	})
	tbl := newTable(srv.connection(t).Client(), "items")

	indices, err := tbl.ListIndices(ctx)
	require.NoError(t, err)
	assert.Equal(t, []index.IndexConfig{{IndexType: "IVF_PQ", Columns: []string{"vector"}, Name: "vector_idx"}}, indices)

	stats, err := tbl.IndexStats(ctx, "vector_idx")
	require.NoError(t, err)
	assert.Equal(t, index.Statistics{
		IndexType:        "IVF_PQ",
		DistanceType:     "l2",
		NumIndexedRows:   10,
		NumUnindexedRows: 2,
		NumIndices:       1,
	}, stats)

	_, err = tbl.IndexStats(ctx, "missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestSearchDecodesIPCFile(t *testing.T) {
	rows := fixture(1, 3)

	var buf bytes.Buffer
	w, err := ipc.NewFileWriter(&buf, ipc.WithSchema(testutil.Schema(dim)), ipc.WithAllocator(memory.DefaultAllocator))
	require.NoError(t, err)
	for _, batch := range [][]testutil.Row{rows[:2], rows[2:]} {
		rec := testutil.Record(batch, dim)
		require.NoError(t, w.Write(rec))
		rec.Release()
	}
	require.NoError(t, w.Close())

	srv := newFakeServer(t)
	srv.handle("/v1/table/items/query/", func(call) *http.Response {
		resp := respond(http.StatusOK, "")
		resp.Body = io.NopCloser(bytes.NewReader(buf.Bytes()))
		return resp
	})
	tbl := newTable(srv.connection(t).Client(), "items")

	r, err := tbl.Search(context.Background(), table.Query{
		Vector: []float32{1, 0, 0, 0},
		Filter: "region = 'east'",
		Limit:  3,
	})
	require.NoError(t, err)
	assert.Equal(t, rows, testutil.ReadRows(t, r))

	var q queryRequest
	require.NoError(t, gojson.Unmarshal(srv.calls[0].body, &q))
	assert.Equal(t, []float32{1, 0, 0, 0}, q.Vector)
	assert.Equal(t, "region = 'east'", q.Filter)
	assert.Equal(t, 3, q.K)
	assert.True(t, q.Prefilter)
	assert.Nil(t, q.FullTextQuery)

	_, err = tbl.Search(context.Background(), table.Query{FullText: "row", Column: "text"})
	require.NoError(t, err)
	q = queryRequest{}
	require.NoError(t, gojson.Unmarshal(srv.calls[1].body, &q))
	require.NotNil(t, q.FullTextQuery)
	assert.Equal(t, "row", q.FullTextQuery.Query)
	assert.Equal(t, []string{"text"}, q.FullTextQuery.Columns)
	assert.Equal(t, table.DefaultLimit, q.K)
}

func TestMaintenanceNotSupported(t *testing.T) {
	tbl := newTable(newFakeServer(t).connection(t).Client(), "items")

	_, err := tbl.Compact(context.Background(), table.CompactionOptions{})
	assert.ErrorIs(t, err, errs.ErrNotSupported)
	_, err = tbl.CleanupOlderThan(context.Background(), 0, false)
	assert.ErrorIs(t, err, errs.ErrNotSupported)
}

func TestJSONSchemaRoundTrip(t *testing.T) {
	schema := testutil.Schema(dim)
	js, err := NewJSONSchema(schema)
	require.NoError(t, err)
	assert.Equal(t, "fixed_size_list", js.Fields[3].Type.Type)
	assert.Equal(t, dim, *js.Fields[3].Type.Length)

	back, err := js.ArrowSchema()
	require.NoError(t, err)
	assert.True(t, back.Equal(schema))

	_, err = JSONSchema{Fields: []JSONField{{Name: "x", Type: JSONType{Type: "decimal"}}}}.ArrowSchema()
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
	assert.True(t, strings.Contains(err.Error(), "decimal"))
}

func TestUpdateRequest(t *testing.T) {
	ctx := context.Background()
	srv := newFakeServer(t)
	srv.handle("/v1/table/items/update/", func(call) *http.Response { return respond(http.StatusOK, "") })
	tbl := newTable(srv.connection(t).Client(), "items")

	err := tbl.Update(ctx, "id = 0", map[string]string{"vector": "[1.1, 1.1]", "text": "'moved'"})
	require.NoError(t, err)
	require.Len(t, srv.calls, 1)
	assert.JSONEq(t, `{"predicate":"id = 0","updates":[["text","'moved'"],["vector","[1.1, 1.1]"]]}`, string(srv.calls[0].body))

	assert.ErrorIs(t, tbl.Update(ctx, "id = 0", nil), errs.ErrInvalidInput)
	assert.Len(t, srv.calls, 1)
}

func TestVersionRequests(t *testing.T) {
	ctx := context.Background()
	srv := newFakeServer(t)
	srv.handle("/v1/table/items/version/list/", func(call) *http.Response {
		return respond(http.StatusOK, `{"versions":[
			{"version":2,"timestamp":"2024-03-01T12:01:00Z","operation":"append"},
			{"version":1,"timestamp":"2024-03-01T12:00:00Z","operation":"create"}]}`)
	})
	srv.handle("/v1/table/items/describe/", func(c call) *http.Response {
		if strings.Contains(string(c.body), `"version":9`) {
			return respond(http.StatusNotFound, "version 9 not found")
		}
		return describe(t, 2)(c)
	})
	srv.handle("/v1/table/items/restore/", func(call) *http.Response { return respond(http.StatusOK, "") })
	srv.handle("/v1/table/items/count_rows/", func(call) *http.Response { return respond(http.StatusOK, "3") })
	tbl := newTable(srv.connection(t).Client(), "items")

	versions, err := tbl.ListVersions(ctx)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, uint64(1), versions[0].Version)
	assert.Equal(t, "create", versions[0].Operation)
	assert.Equal(t, uint64(2), versions[1].Version)

	old, err := tbl.Checkout(ctx, 1)
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":1}`, string(srv.calls[1].body))

	v, err := old.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)

	n, err := old.CountRows(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.JSONEq(t, `{"version":1}`, string(srv.calls[len(srv.calls)-1].body))

	oldVersions, err := old.ListVersions(ctx)
	require.NoError(t, err)
	require.Len(t, oldVersions, 1)
	assert.Equal(t, uint64(1), oldVersions[0].Version)

	calls := len(srv.calls)
	assert.ErrorIs(t, old.Delete(ctx, "id = 1"), errs.ErrNotSupported)
	assert.ErrorIs(t, old.Update(ctx, "", map[string]string{"text": "'x'"}), errs.ErrNotSupported)
	assert.ErrorIs(t, old.Restore(ctx, 1), errs.ErrNotSupported)
	assert.ErrorIs(t, old.Add(ctx, testutil.Reader(fixture(1, 1), dim), table.ModeAppend), errs.ErrNotSupported)
	assert.Len(t, srv.calls, calls)

	_, err = tbl.Checkout(ctx, 9)
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
	_, err = tbl.Checkout(ctx, 0)
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	require.NoError(t, tbl.Restore(ctx, 1))
	assert.JSONEq(t, `{"version":1}`, string(srv.calls[len(srv.calls)-1].body))
	assert.ErrorIs(t, tbl.Restore(ctx, 0), errs.ErrInvalidInput)
}
