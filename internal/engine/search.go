package engine

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/hupe1980/vectable/distance"
	"github.com/hupe1980/vectable/errs"
	"github.com/hupe1980/vectable/index"
	"github.com/hupe1980/vectable/internal/manifest"
	"github.com/hupe1980/vectable/internal/predicate"
	"github.com/hupe1980/vectable/lexical"
	"github.com/hupe1980/vectable/lexical/bm25"
	"github.com/hupe1980/vectable/table"
)

// Search kinds reported to metrics and logs.
const (
	searchVector   = "vector"
	searchFullText = "fts"
	searchScan     = "scan"
)

type hit struct {
	frag  int
	row   int
	score float32
}

// Search runs q against the latest version. Vector searches scan every live
// row; the filter is applied before ranking.
func (t *Table) Search(ctx context.Context, q table.Query) (_ array.RecordReader, err error) {
	start := time.Now()
	kind := searchScan
	switch {
	case len(q.Vector) > 0:
		kind = searchVector
	case q.FullText != "":
		kind = searchFullText
	}
	var returned int
	defer func() {
		t.db.opts.metrics.RecordSearch(kind, returned, time.Since(start), err)
		t.logger.LogSearch(ctx, kind, q.Limit, err)
	}()

	if q, err = q.Validate(); err != nil {
		return nil, err
	}
	m, err := t.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	schema, err := decodeSchema(m.Schema)
	if err != nil {
		return nil, err
	}
	filter, err := compileFilter(q.Filter, schema)
	if err != nil {
		return nil, err
	}
	proj, err := projection(schema, q.Columns)
	if err != nil {
		return nil, err
	}

	frags, err := t.loadFragments(ctx, m)
	if err != nil {
		return nil, err
	}
	defer releaseFragments(frags)

	var (
		hits  []hit
		extra string
	)
	switch kind {
	case searchVector:
		extra = table.DistanceColumn
		hits, err = vectorHits(m, schema, frags, q, filter)
	case searchFullText:
		extra = table.ScoreColumn
		hits, err = t.fullTextHits(m, schema, frags, q, filter)
	default:
		hits, err = scanHits(frags, q.Limit, filter)
	}
	if err != nil {
		return nil, err
	}
	returned = len(hits)

	rec, err := buildResult(schema, proj, frags, hits, extra)
	if err != nil {
		return nil, err
	}
	defer rec.Release()
	return array.NewRecordReader(rec.Schema(), []arrow.Record{rec})
}

func projection(schema *arrow.Schema, columns []string) ([]int, error) {
	if len(columns) == 0 {
		return allColumns(schema), nil
	}
	proj := make([]int, len(columns))
	for i, name := range columns {
		idx, err := fieldIndex(schema, name)
		if err != nil {
			return nil, err
		}
		proj[i] = idx
	}
	return proj, nil
}

func buildResult(schema *arrow.Schema, proj []int, frags []*fragment, hits []hit, extra string) (arrow.Record, error) {
	fields := make([]arrow.Field, len(proj))
	for i, c := range proj {
		fields[i] = schema.Field(c)
	}
	projected := arrow.NewSchema(fields, nil)

	refs := make([]rowRef, len(hits))
	for i, h := range hits {
		refs[i] = rowRef{rec: frags[h.frag].rec, row: h.row}
	}
	rec, err := gather(projected, proj, refs)
	if err != nil || extra == "" {
		return rec, err
	}
	defer rec.Release()

	b := array.NewFloat32Builder(allocator)
	defer b.Release()
	for _, h := range hits {
		b.Append(h.score)
	}
	scores := b.NewArray()
	defer scores.Release()

	out := arrow.NewSchema(append(fields, arrow.Field{Name: extra, Type: arrow.PrimitiveTypes.Float32}), nil)
	cols := append(slices.Clone(rec.Columns()), scores)
	return array.NewRecord(out, cols, rec.NumRows()), nil
}

func scanHits(frags []*fragment, limit int, filter *predicate.Predicate) ([]hit, error) {
	var hits []hit
	for fi, f := range frags {
		rows, err := liveMatches(f, filter)
		if err != nil {
			return nil, err
		}
		it := rows.Iterator()
		for it.HasNext() {
			if len(hits) == limit {
				return hits, nil
			}
			hits = append(hits, hit{frag: fi, row: int(it.Next())})
		}
	}
	return hits, nil
}

// vectorColumn picks the searched vector column.
func vectorColumn(schema *arrow.Schema, name string) (int, vectorType, error) {
	if name != "" {
		idx, err := fieldIndex(schema, name)
		if err != nil {
			return 0, vectorType{}, err
		}
		vt, ok := asVectorType(schema.Field(idx).Type)
		if !ok {
			return 0, vectorType{}, errs.InvalidInput("column %q of type %s is not a vector column", name, schema.Field(idx).Type)
		}
		return idx, vt, nil
	}

	found := -1
	var foundType vectorType
	for i, f := range schema.Fields() {
		if vt, ok := asVectorType(f.Type); ok {
			if found >= 0 {
				return 0, vectorType{}, errs.InvalidInput("table has several vector columns, specify one")
			}
			found, foundType = i, vt
		}
	}
	if found < 0 {
		return 0, vectorType{}, errs.InvalidInput("table has no vector column")
	}
	return found, foundType, nil
}

func vectorHits(m *manifest.Manifest, schema *arrow.Schema, frags []*fragment, q table.Query, filter *predicate.Predicate) ([]hit, error) {
	col, vt, err := vectorColumn(schema, q.Column)
	if err != nil {
		return nil, err
	}
	if vt.dim > 0 && len(q.Vector) != vt.dim {
		return nil, errs.InvalidInput("query vector has %d dimensions, column %q has %d", len(q.Vector), schema.Field(col).Name, vt.dim)
	}

	dt := vt.defaultDistance()
	if q.DistanceType != nil {
		dt = *q.DistanceType
	} else if idx, ok := vectorIndexOn(m, schema.Field(col).Name); ok {
		dt, _ = index.DistanceOf(idx)
	}
	if err := vt.checkDistance(dt); err != nil {
		return nil, err
	}

	var score func(r *vectorReader, row int) (float32, bool)
	if vt.elem == arrow.UINT8 {
		qb, err := toBytes(q.Vector)
		if err != nil {
			return nil, err
		}
		score = func(r *vectorReader, row int) (float32, bool) {
			v := r.bytesAt(row)
			if len(v) != len(qb) {
				return 0, false
			}
			return distance.HammingBytes(qb, v), true
		}
	} else {
		fn, err := distance.Provider(dt)
		if err != nil {
			return nil, err
		}
		offset := float32(0)
		if dt == distance.Dot {
			offset = 1
		}
		score = func(r *vectorReader, row int) (float32, bool) {
			v := r.float32At(row)
			if len(v) != len(q.Vector) {
				return 0, false
			}
			return offset + fn(q.Vector, v), true
		}
	}

	var hits []hit
	for fi, f := range frags {
		r, err := newVectorReader(f.rec.Column(col))
		if err != nil {
			return nil, err
		}
		rows, err := liveMatches(f, filter)
		if err != nil {
			return nil, err
		}
		it := rows.Iterator()
		for it.HasNext() {
			row := int(it.Next())
			if d, ok := score(r, row); ok {
				hits = append(hits, hit{frag: fi, row: row, score: d})
			}
		}
	}

	slices.SortStableFunc(hits, func(a, b hit) int {
		return cmp.Compare(a.score, b.score)
	})
	return hits[:min(len(hits), q.Limit)], nil
}

func vectorIndexOn(m *manifest.Manifest, column string) (index.Index, bool) {
	for _, entry := range m.Indices {
		if entry.Column != column {
			continue
		}
		idx, err := indexOf(entry)
		if err == nil && idx.Type().IsVector() {
			return idx, true
		}
	}
	return nil, false
}

type ftsEntry struct {
	version uint64
	index   *bm25.MemoryIndex
}

func (t *Table) forgetFTS(name string) {
	t.ftsMu.Lock()
	defer t.ftsMu.Unlock()
	delete(t.fts, name)
}

// ftsIndex returns the FTS index on column, or the only one if column is "".
func ftsIndex(m *manifest.Manifest, column string) (manifest.Index, index.FTS, error) {
	var (
		found manifest.Index
		cfg   index.FTS
		n     int
	)
	for _, entry := range m.Indices {
		if column != "" && entry.Column != column {
			continue
		}
		idx, err := indexOf(entry)
		if err != nil {
			return manifest.Index{}, index.FTS{}, err
		}
		if fts, ok := idx.(index.FTS); ok {
			found, cfg = entry, fts
			n++
		}
	}
	switch {
	case n == 0 && column != "":
		return manifest.Index{}, index.FTS{}, errs.InvalidInput("no FTS index on column %q", column)
	case n == 0:
		return manifest.Index{}, index.FTS{}, errs.InvalidInput("full-text search requires an FTS index")
	case n > 1 && column == "":
		return manifest.Index{}, index.FTS{}, errs.InvalidInput("table has several FTS indices, specify a column")
	}
	return found, cfg, nil
}

func (t *Table) fullTextHits(m *manifest.Manifest, schema *arrow.Schema, frags []*fragment, q table.Query, filter *predicate.Predicate) ([]hit, error) {
	entry, cfg, err := ftsIndex(m, q.Column)
	if err != nil {
		return nil, err
	}
	col, err := fieldIndex(schema, entry.Column)
	if err != nil {
		return nil, err
	}
	idx, err := t.ftsFor(m.Version, entry.Name, cfg, col, frags)
	if err != nil {
		return nil, err
	}
	scores, err := idx.Search(q.FullText)
	if err != nil {
		return nil, err
	}

	byID := make(map[uint64]int, len(frags))
	for fi, f := range frags {
		byID[f.meta.ID] = fi
	}
	allowed := make(map[int]func(uint32) bool)
	var hits []hit
	for addr, score := range scores {
		fi, ok := byID[addr>>32]
		if !ok {
			continue
		}
		row := uint32(addr)
		contains, ok := allowed[fi]
		if !ok {
			rows, err := liveMatches(frags[fi], filter)
			if err != nil {
				return nil, err
			}
			contains = rows.Contains
			allowed[fi] = contains
		}
		if contains(row) {
			hits = append(hits, hit{frag: fi, row: int(row), score: score})
		}
	}

	slices.SortFunc(hits, func(a, b hit) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		if c := cmp.Compare(a.frag, b.frag); c != 0 {
			return c
		}
		return cmp.Compare(a.row, b.row)
	})
	return hits[:min(len(hits), q.Limit)], nil
}

// ftsFor returns the BM25 index of a version, building it on first use.
func (t *Table) ftsFor(version uint64, name string, cfg index.FTS, col int, frags []*fragment) (*bm25.MemoryIndex, error) {
	t.ftsMu.Lock()
	defer t.ftsMu.Unlock()
	if e, ok := t.fts[name]; ok && e.version == version {
		return e.index, nil
	}

	tok, err := lexical.NewTokenizer(cfg)
	if err != nil {
		return nil, err
	}
	idx := bm25.New(tok)
	for _, f := range frags {
		texts, ok := f.rec.Column(col).(interface {
			arrow.Array
			Value(int) string
		})
		if !ok {
			return nil, errs.InvalidInput("column of type %s cannot be searched", f.rec.Column(col).DataType())
		}
		for i := 0; i < texts.Len(); i++ {
			if !f.live(i) || texts.IsNull(i) {
				continue
			}
			if err := idx.Add(rowAddress(f.meta.ID, i), texts.Value(i)); err != nil {
				return nil, err
			}
		}
	}

	if t.fts == nil {
		t.fts = make(map[string]*ftsEntry)
	}
	t.fts[name] = &ftsEntry{version: version, index: idx}
	return idx, nil
}
