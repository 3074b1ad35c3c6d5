package vectable_test

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vectable"
	"github.com/hupe1980/vectable/remote"
	"github.com/hupe1980/vectable/testutil"
)

func fixtureRows() []testutil.Row {
	return []testutil.Row{
		{ID: 1, Region: "east", Text: "red apple", Vector: []float32{0, 0}},
		{ID: 2, Region: "west", Text: "green pear", Vector: []float32{1, 0}},
		{ID: 3, Region: "east", Text: "red cherry", Vector: []float32{5, 5}},
	}
}

// exercise runs the same workflow against any local backend.
func exercise(t *testing.T, db *vectable.Connection) {
	t.Helper()
	ctx := context.Background()

	tbl, err := db.CreateTable(ctx, "items", testutil.Reader(fixtureRows(), 2), vectable.ModeCreate)
	require.NoError(t, err)

	_, err = db.CreateTable(ctx, "items", testutil.Reader(fixtureRows(), 2), vectable.ModeCreate)
	assert.ErrorIs(t, err, vectable.ErrAlreadyExists)

	names, err := db.TableNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"items"}, names)

	m, err := tbl.MergeInsert("id")
	require.NoError(t, err)
	err = m.WhenMatchedUpdateAll().
		WhenNotMatchedInsertAll().
		Execute(ctx, testutil.Reader([]testutil.Row{
			{ID: 2, Region: "north", Text: "yellow pear", Vector: []float32{1, 1}},
			{ID: 4, Region: "south", Text: "blue plum", Vector: []float32{9, 9}},
		}, 2))
	require.NoError(t, err)

	n, err := tbl.CountRows(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	n, err = tbl.CountRows(ctx, "region = 'east'")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, tbl.CreateIndex(ctx, "vector", nil))
	indices, err := tbl.ListIndices(ctx)
	require.NoError(t, err)
	require.Len(t, indices, 1)
	assert.Equal(t, "IVF_PQ", indices[0].IndexType)

	res, err := tbl.Search(ctx, vectable.Query{Vector: []float32{1, 1}, Limit: 1})
	require.NoError(t, err)
	rows := testutil.ReadRows(t, res)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2), rows[0].ID)
	assert.Equal(t, "north", rows[0].Region)

	reopened, err := db.OpenTable(ctx, "items")
	require.NoError(t, err)
	version, err := reopened.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), version)

	require.NoError(t, db.DropTable(ctx, "items"))
	_, err = db.OpenTable(ctx, "items")
	assert.ErrorIs(t, err, vectable.ErrNotFound)
}

func TestConnectMemory(t *testing.T) {
	m := &vectable.BasicMetricsCollector{}
	db, err := vectable.Connect(context.Background(), "memory://test",
		vectable.WithMetricsCollector(m),
		vectable.WithCompression(vectable.CompressionLZ4),
	)
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, "memory://test", db.URI())
	exercise(t, db)

	stats := m.Stats()
	assert.Equal(t, int64(1), stats.MergeCount)
	assert.Equal(t, int64(1), stats.MergeInserted)
	assert.Equal(t, int64(1), stats.MergeUpdated)
	assert.Equal(t, int64(1), stats.IndexCount)
}

func TestConnectLocalDirectory(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	db, err := vectable.Connect(ctx, dir, vectable.WithBlobCache(1<<20))
	require.NoError(t, err)
	exercise(t, db)

	_, err = db.CreateTable(ctx, "kept", testutil.Reader(fixtureRows(), 2), vectable.ModeCreate)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// The same directory opened through a file URI sees the table.
	db, err = vectable.Connect(ctx, "file://"+filepath.ToSlash(dir))
	require.NoError(t, err)
	defer db.Close()

	tbl, err := db.OpenTable(ctx, "kept")
	require.NoError(t, err)
	n, err := tbl.CountRows(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestConnectBadgerInMemory(t *testing.T) {
	db, err := vectable.Connect(context.Background(), "badger://",
		vectable.WithResourceConfig(vectable.ResourceConfig{MaxWorkers: 2}),
		vectable.WithMaxCommitRetries(3),
	)
	require.NoError(t, err)
	exercise(t, db)
	require.NoError(t, db.Close())
}

func TestConnectRemote(t *testing.T) {
	t.Setenv(vectable.EnvAPIKey, "")
	t.Setenv(vectable.EnvLanceAPIKey, "sk-test")
	t.Setenv(vectable.EnvRegion, "eu-west-1")
	t.Setenv(vectable.EnvHostOverride, "")

	var got *http.Request
	sender := remote.SenderFunc(func(req *http.Request) (*http.Response, error) {
		got = req
		return &http.Response{
			StatusCode: http.StatusOK,
			Status:     "200 OK",
			Body:       io.NopCloser(strings.NewReader(`{"tables":["b","a"]}`)),
		}, nil
	})

	db, err := vectable.Connect(context.Background(), "db://mydb", vectable.WithRemoteOptions(remote.WithSender(sender)))
	require.NoError(t, err)
	defer db.Close()

	names, err := db.TableNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)

	require.NotNil(t, got)
	assert.Equal(t, "mydb.eu-west-1.api.lancedb.com", got.URL.Host)
	assert.Equal(t, "sk-test", got.Header.Get("x-api-key"))
}

func TestConnectRemoteOptionsOverrideEnvironment(t *testing.T) {
	t.Setenv(vectable.EnvAPIKey, "from-env")
	t.Setenv(vectable.EnvHostOverride, "")

	var got *http.Request
	sender := remote.SenderFunc(func(req *http.Request) (*http.Response, error) {
		got = req
		return &http.Response{
			StatusCode: http.StatusOK,
			Status:     "200 OK",
			Body:       io.NopCloser(strings.NewReader(`{"tables":[]}`)),
		}, nil
	})

	db, err := vectable.Connect(context.Background(), "db://mydb",
		vectable.WithAPIKey("explicit"),
		vectable.WithHostOverride("http://localhost:10024/"),
		vectable.WithRemoteOptions(remote.WithSender(sender)),
	)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.TableNames(context.Background())
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "localhost:10024", got.URL.Host)
	assert.Equal(t, "explicit", got.Header.Get("x-api-key"))
	assert.Equal(t, "mydb", got.Header.Get("x-lancedb-database"))
}

func TestConnectMinio(t *testing.T) {
	db, err := vectable.Connect(context.Background(), "minio://localhost:9000/bucket/prefix",
		vectable.WithMinioCredentials("access", "secret", false))
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestConnectInvalidURI(t *testing.T) {
	tests := []struct {
		name string
		uri  string
	}{
		{"unsupported scheme", "ftp://host/db"},
		{"s3 without bucket", "s3:///prefix"},
		{"minio without bucket", "minio://localhost:9000"},
		{"remote without name", "db://"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := vectable.Connect(context.Background(), tt.uri)
			assert.ErrorIs(t, err, vectable.ErrInvalidInput)
		})
	}
}
