package remote

import (
	"bytes"
	"cmp"
	"context"
	"io"
	"log/slog"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	gojson "github.com/goccy/go-json"

	"github.com/hupe1980/vectable/errs"
	"github.com/hupe1980/vectable/index"
	"github.com/hupe1980/vectable/table"
)

// Table is a table of a remote database.
//
// Compaction and cleanup run server side and are not exposed.
type Table struct {
	client *Client
	name   string
	// version is pinned by Checkout. 0 follows the latest version.
	version uint64
}

var (
	_ table.Table           = (*Table)(nil)
	_ table.LoggingExecutor = (*Table)(nil)
)

func newTable(c *Client, name string) *Table {
	return &Table{client: c, name: name}
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Logger returns the client logger scoped to this table.
func (t *Table) Logger() *slog.Logger { return t.client.logger.WithTable(t.name).Logger }

// writable fails for checked out views.
func (t *Table) writable() error {
	if t.version != 0 {
		return errs.NotSupported("table %s is checked out at version %d and cannot be modified", t.name, t.version)
	}
	return nil
}

// pinned returns the checked out version for request bodies.
func (t *Table) pinned() *uint64 {
	if t.version == 0 {
		return nil
	}
	return &t.version
}

type versionRequest struct {
	Version *uint64 `json:"version,omitempty"`
}

type describeResponse struct {
	Table   string     `json:"table"`
	Version uint64     `json:"version"`
	Schema  JSONSchema `json:"schema"`
}

func (t *Table) describe(ctx context.Context) (describeResponse, error) {
	var out describeResponse
	req := t.client.Post(tablePath(t.name, "describe"))
	if t.version != 0 {
		req.JSON(versionRequest{Version: t.pinned()})
	}
	err := t.client.doNotFound(ctx, req, &out,
		errs.NotFound("table %s was not found", t.name))
	return out, err
}

// Schema returns the table schema.
func (t *Table) Schema(ctx context.Context) (*arrow.Schema, error) {
	d, err := t.describe(ctx)
	if err != nil {
		return nil, err
	}
	return d.Schema.ArrowSchema()
}

// Version returns the latest version, or the checked out one.
func (t *Table) Version(ctx context.Context) (uint64, error) {
	if t.version != 0 {
		return t.version, nil
	}
	d, err := t.describe(ctx)
	if err != nil {
		return 0, err
	}
	return d.Version, nil
}

// Add uploads rows.
func (t *Table) Add(ctx context.Context, rows array.RecordReader, mode table.WriteMode) error {
	if err := t.writable(); err != nil {
		rows.Release()
		return err
	}
	if mode == table.ModeCreate {
		rows.Release()
		return errs.New(errs.ErrAlreadyExists, "table %s already exists", t.name)
	}
	req := t.client.Post(tablePath(t.name, "insert")).
		Query("mode", mode.String()).
		Arrow(rows)
	return t.client.do(ctx, req, nil)
}

type predicateRequest struct {
	Predicate string  `json:"predicate,omitempty"`
	Version   *uint64 `json:"version,omitempty"`
}

// CountRows counts the rows matching filter.
func (t *Table) CountRows(ctx context.Context, filter string) (int64, error) {
	var n int64
	req := t.client.Post(tablePath(t.name, "count_rows")).
		JSON(predicateRequest{Predicate: filter, Version: t.pinned()})
	if err := t.client.do(ctx, req, &n); err != nil {
		return 0, err
	}
	return n, nil
}

// Delete removes the rows matching predicate.
func (t *Table) Delete(ctx context.Context, predicate string) error {
	if err := t.writable(); err != nil {
		return err
	}
	if predicate == "" {
		return errs.InvalidInput("delete requires a predicate")
	}
	req := t.client.Post(tablePath(t.name, "delete")).JSON(predicateRequest{Predicate: predicate})
	return t.client.do(ctx, req, nil)
}

type updateRequest struct {
	Predicate string `json:"predicate,omitempty"`
	// Updates holds [column, SQL expression] pairs.
	Updates [][2]string `json:"updates"`
}

// Update sets columns of the rows matching where. The expressions are
// evaluated by the server.
func (t *Table) Update(ctx context.Context, where string, values map[string]string) error {
	if err := t.writable(); err != nil {
		return err
	}
	if len(values) == 0 {
		return errs.InvalidInput("update requires at least one column value")
	}
	columns := make([]string, 0, len(values))
	for col := range values {
		columns = append(columns, col)
	}
	slices.Sort(columns)

	body := updateRequest{Predicate: where, Updates: make([][2]string, len(columns))}
	for i, col := range columns {
		body.Updates[i] = [2]string{col, values[col]}
	}
	return t.client.do(ctx, t.client.Post(tablePath(t.name, "update")).JSON(body), nil)
}

type listVersionsResponse struct {
	Versions []table.VersionInfo `json:"versions"`
}

// ListVersions lists the versions kept by the server, oldest first.
func (t *Table) ListVersions(ctx context.Context) ([]table.VersionInfo, error) {
	var resp listVersionsResponse
	err := t.client.doNotFound(ctx, t.client.Post(tablePath(t.name, "version/list")), &resp,
		errs.NotFound("table %s was not found", t.name))
	if err != nil {
		return nil, err
	}
	versions := resp.Versions[:0]
	for _, v := range resp.Versions {
		if t.version == 0 || v.Version <= t.version {
			versions = append(versions, v)
		}
	}
	slices.SortFunc(versions, func(a, b table.VersionInfo) int {
		return cmp.Compare(a.Version, b.Version)
	})
	return versions, nil
}

// Checkout returns a read-only view pinned to version. The server confirms
// that the version exists.
func (t *Table) Checkout(ctx context.Context, version uint64) (table.Table, error) {
	if version == 0 {
		return nil, errs.InvalidInput("version must be at least 1")
	}
	view := &Table{client: t.client, name: t.name, version: version}
	req := t.client.Post(tablePath(t.name, "describe")).JSON(versionRequest{Version: &version})
	err := t.client.doNotFound(ctx, req, nil,
		errs.InvalidInput("version %d of table %s does not exist", version, t.name))
	if err != nil {
		return nil, err
	}
	return view, nil
}

// Restore asks the server to commit version as the new latest version.
func (t *Table) Restore(ctx context.Context, version uint64) error {
	if err := t.writable(); err != nil {
		return err
	}
	if version == 0 {
		return errs.InvalidInput("version must be at least 1")
	}
	req := t.client.Post(tablePath(t.name, "restore")).JSON(versionRequest{Version: &version})
	return t.client.doNotFound(ctx, req, nil,
		errs.InvalidInput("version %d of table %s does not exist", version, t.name))
}

// MergeInsert starts a merge insert joined on the given key columns.
func (t *Table) MergeInsert(on ...string) (*table.MergeInsertBuilder, error) {
	return table.NewMergeInsertBuilder(t, on)
}

// ExecuteMergeInsert uploads source with the merge policies as query
// parameters.
func (t *Table) ExecuteMergeInsert(ctx context.Context, m table.MergeInsert, source array.RecordReader) error {
	if err := t.writable(); err != nil {
		return err
	}
	req := t.client.Post(tablePath(t.name, "merge_insert"))
	for _, col := range m.On {
		req.Query("on", col)
	}
	req.Query("when_matched_update_all", strconv.FormatBool(m.WhenMatchedUpdateAll)).
		Query("when_not_matched_insert_all", strconv.FormatBool(m.WhenNotMatchedInsertAll)).
		Query("when_not_matched_by_source_delete", strconv.FormatBool(m.WhenNotMatchedBySourceDelete))
	if m.WhenNotMatchedBySourceDeleteFilter != nil {
		req.Query("when_not_matched_by_source_delete_filt", *m.WhenNotMatchedBySourceDeleteFilter)
	}

	// Arrow releases what it encodes; the caller owns source.
	source.Retain()
	return t.client.do(ctx, req.Arrow(source), nil)
}

type createIndexRequest struct {
	Column       string            `json:"column"`
	IndexType    string            `json:"index_type"`
	Name         string            `json:"name"`
	Replace      bool              `json:"replace"`
	DistanceType string            `json:"metric_type,omitempty"`
	Params       gojson.RawMessage `json:"params,omitempty"`
}

// CreateIndex resolves desc locally and asks the server to build the index.
// Auto is resolved against the column type from the table description.
func (t *Table) CreateIndex(ctx context.Context, column string, desc index.Descriptor, opts ...table.IndexOption) error {
	if err := t.writable(); err != nil {
		return err
	}
	idx, err := index.Resolve(desc)
	if err != nil {
		return err
	}
	o := table.ApplyIndexOptions(column, opts)

	if _, ok := idx.(index.Auto); ok {
		schema, err := t.Schema(ctx)
		if err != nil {
			return err
		}
		fields, ok := schema.FieldsByName(column)
		if !ok {
			return errs.InvalidInput("column %q does not exist in table %s", column, t.name)
		}
		if idx, err = index.ForColumn(idx, fields[0].Type); err != nil {
			return err
		}
	}

	params, err := index.Marshal(idx)
	if err != nil {
		return errs.Wrap(errs.ErrInvalidInput, err, "encode index parameters")
	}
	body := createIndexRequest{
		Column:    column,
		IndexType: idx.Type().WireName(),
		Name:      o.Name,
		Replace:   o.Replace,
		Params:    gojson.RawMessage(params),
	}
	if dt, ok := index.DistanceOf(idx); ok {
		body.DistanceType = dt.String()
	}
	return t.client.do(ctx, t.client.Post(tablePath(t.name, "create_index")).JSON(body), nil)
}

type listIndicesResponse struct {
	Indexes []struct {
		Name      string   `json:"index_name"`
		Columns   []string `json:"columns"`
		IndexType string   `json:"index_type"`
	} `json:"indexes"`
}

// ListIndices lists the indices of the table.
func (t *Table) ListIndices(ctx context.Context) ([]index.IndexConfig, error) {
	var resp listIndicesResponse
	if err := t.client.do(ctx, t.client.Post(tablePath(t.name, "index/list")), &resp); err != nil {
		return nil, err
	}
	out := make([]index.IndexConfig, 0, len(resp.Indexes))
	for _, idx := range resp.Indexes {
		out = append(out, index.IndexConfig{IndexType: idx.IndexType, Columns: idx.Columns, Name: idx.Name})
	}
	return out, nil
}

// IndexStats returns the coverage of an index.
func (t *Table) IndexStats(ctx context.Context, name string) (index.Statistics, error) {
	var stats index.Statistics
	req := t.client.Post(tablePath(t.name, "index/"+url.PathEscape(name)+"/stats"))
	err := t.client.doNotFound(ctx, req, &stats, errs.NotFound("index %s was not found", name))
	return stats, err
}

type fullTextQuery struct {
	Columns []string `json:"columns,omitempty"`
	Query   string   `json:"query"`
}

type queryRequest struct {
	Vector        []float32      `json:"vector,omitempty"`
	VectorColumn  string         `json:"vector_column,omitempty"`
	FullTextQuery *fullTextQuery `json:"full_text_query,omitempty"`
	Filter        string         `json:"filter,omitempty"`
	Columns       []string       `json:"columns,omitempty"`
	K             int            `json:"k"`
	DistanceType  string         `json:"distance_type,omitempty"`
	Prefilter     bool           `json:"prefilter"`
	Version       *uint64        `json:"version,omitempty"`
}

// Search runs q on the server. The response is an Arrow IPC file.
func (t *Table) Search(ctx context.Context, q table.Query) (array.RecordReader, error) {
	q, err := q.Validate()
	if err != nil {
		return nil, err
	}
	body := queryRequest{
		Vector:    q.Vector,
		Filter:    q.Filter,
		Columns:   q.Columns,
		K:         q.Limit,
		Prefilter: true,
		Version:   t.pinned(),
	}
	if len(q.Vector) > 0 {
		body.VectorColumn = q.Column
	}
	if q.FullText != "" {
		body.FullTextQuery = &fullTextQuery{Query: q.FullText}
		if q.Column != "" {
			body.FullTextQuery.Columns = []string{q.Column}
		}
	}
	if q.DistanceType != nil {
		body.DistanceType = q.DistanceType.String()
	}

	req := t.client.Post(tablePath(t.name, "query")).
		Header("Accept", ContentTypeArrowFile).
		JSON(body)
	resp, err := t.client.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := CheckResponse(resp); err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.ErrRuntime, err, "read query result of %s", t.name)
	}
	return readIPCFile(data)
}

// readIPCFile decodes every batch of an Arrow IPC file into a reader owning
// them.
func readIPCFile(data []byte) (array.RecordReader, error) {
	r, err := ipc.NewFileReader(bytes.NewReader(data), ipc.WithAllocator(memory.DefaultAllocator))
	if err != nil {
		return nil, errs.Wrap(errs.ErrRuntime, err, "decode query result")
	}
	defer r.Close()

	recs := make([]arrow.Record, 0, r.NumRecords())
	defer func() {
		for _, rec := range recs {
			rec.Release()
		}
	}()
	for i := 0; i < r.NumRecords(); i++ {
		rec, err := r.RecordAt(i)
		if err != nil {
			return nil, errs.Wrap(errs.ErrRuntime, err, "decode query result batch %d", i)
		}
		recs = append(recs, rec)
	}

	rr, err := array.NewRecordReader(r.Schema(), recs)
	if err != nil {
		return nil, errs.Wrap(errs.ErrRuntime, err, "decode query result")
	}
	return rr, nil
}

// Compact is not offered by remote databases.
func (t *Table) Compact(context.Context, table.CompactionOptions) (table.CompactionStats, error) {
	return table.CompactionStats{}, errs.NotSupported("compaction of remote table %s runs on the server", t.name)
}

// CleanupOlderThan is not offered by remote databases.
func (t *Table) CleanupOlderThan(context.Context, time.Duration, bool) (table.CleanupStats, error) {
	return table.CleanupStats{}, errs.NotSupported("cleanup of remote table %s runs on the server", t.name)
}
