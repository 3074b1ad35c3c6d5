package engine

import (
	"context"
	"encoding/binary"
	"math"
	"strconv"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/hupe1980/vectable/errs"
	"github.com/hupe1980/vectable/internal/manifest"
	"github.com/hupe1980/vectable/internal/predicate"
	"github.com/hupe1980/vectable/table"
)

// mergeCounts tallies the effect of a merge insert.
type mergeCounts struct {
	inserted, updated, deleted int64
}

// ExecuteMergeInsert joins source against the live rows on m.On and applies
// m in a single commit. Rows whose key has a null component never match.
func (t *Table) ExecuteMergeInsert(ctx context.Context, m table.MergeInsert, source array.RecordReader) (err error) {
	start := time.Now()
	var counts mergeCounts
	defer func() {
		t.db.opts.metrics.RecordMergeInsert(counts.inserted, counts.updated, counts.deleted, time.Since(start), err)
		t.logger.LogMergeInsert(ctx, m.On, counts.inserted, counts.updated, counts.deleted, err)
	}()

	if err := t.writable(); err != nil {
		return err
	}
	if len(m.On) == 0 {
		return errs.InvalidInput("merge insert requires at least one join key column")
	}

	recs, err := drain(source)
	if err != nil {
		return err
	}
	defer releaseAll(recs)

	var buffered int64
	for _, rec := range recs {
		buffered += recordSize(rec)
	}
	if err := t.db.opts.resources.TryAcquireMemory(buffered); err != nil {
		return errs.Wrap(errs.ErrRuntime, err, "buffer merge source of %d bytes", buffered)
	}
	defer t.db.opts.resources.ReleaseMemory(buffered)

	_, err = t.commit(ctx, func(ctx context.Context, cur *manifest.Manifest) (*manifest.Manifest, []string, error) {
		counts = mergeCounts{}
		if cur == nil {
			return nil, nil, errs.NotFound("table %s was not found", t.name)
		}
		return t.planMerge(ctx, cur, m, recs, &counts)
	})
	return err
}

func (t *Table) planMerge(ctx context.Context, cur *manifest.Manifest, m table.MergeInsert, recs []arrow.Record, counts *mergeCounts) (*manifest.Manifest, []string, error) {
	schema, err := decodeSchema(cur.Schema)
	if err != nil {
		return nil, nil, err
	}
	src, err := prepare(schema, recs)
	if err != nil {
		return nil, nil, err
	}
	defer src.Release()

	keys := make([]int, len(m.On))
	for i, name := range m.On {
		if keys[i], err = fieldIndex(schema, name); err != nil {
			return nil, nil, errs.InvalidInput("merge insert join key %q does not exist in the table", name)
		}
	}

	var deleteFilter *predicate.Predicate
	if m.WhenNotMatchedBySourceDelete && m.WhenNotMatchedBySourceDeleteFilter != nil {
		if deleteFilter, err = compileFilter(*m.WhenNotMatchedBySourceDeleteFilter, schema); err != nil {
			return nil, nil, err
		}
	}

	bySource := make(map[string][]int)
	for i := 0; i < int(src.NumRows()); i++ {
		if k, ok := joinKey(src, keys, i); ok {
			bySource[k] = append(bySource[k], i)
		}
	}

	frags, err := t.loadFragments(ctx, cur)
	if err != nil {
		return nil, nil, err
	}
	defer releaseFragments(frags)

	matched := make([]bool, src.NumRows())
	removals := make(map[uint64]*roaring.Bitmap)
	var rows []rowRef
	for _, f := range frags {
		var filtered *roaring.Bitmap
		if deleteFilter != nil {
			if filtered, err = deleteFilter.Evaluate(f.rec); err != nil {
				return nil, nil, err
			}
		}

		removed := roaring.New()
		for i := 0; i < int(f.rec.NumRows()); i++ {
			if !f.live(i) {
				continue
			}
			var hits []int
			if k, ok := joinKey(f.rec, keys, i); ok {
				hits = bySource[k]
			}

			if len(hits) > 0 {
				for _, h := range hits {
					matched[h] = true
				}
				if m.WhenMatchedUpdateAll {
					if len(hits) > 1 {
						return nil, nil, errs.InvalidInput("merge insert source has %d rows matching the same target row; keys must be unique in the source", len(hits))
					}
					removed.Add(uint32(i))
					rows = append(rows, rowRef{rec: src, row: hits[0]})
					counts.updated++
				}
				continue
			}

			if m.WhenNotMatchedBySourceDelete && (filtered == nil || filtered.Contains(uint32(i))) {
				removed.Add(uint32(i))
				counts.deleted++
			}
		}
		if !removed.IsEmpty() {
			removals[f.meta.ID] = removed
		}
	}

	if m.WhenNotMatchedInsertAll {
		for i, ok := range matched {
			if !ok {
				rows = append(rows, rowRef{rec: src, row: i})
				counts.inserted++
			}
		}
	}

	if len(removals) == 0 && len(rows) == 0 {
		return nil, nil, nil
	}

	next := cur.Next(opMerge)
	written, err := t.applyDeletions(ctx, next, frags, removals)
	if err != nil {
		return nil, written, err
	}
	if len(rows) > 0 {
		data, err := gather(schema, allColumns(schema), rows)
		if err != nil {
			return nil, written, err
		}
		added, err := t.writeFragments(ctx, data, defaultRowsPerGroup)
		data.Release()
		if err != nil {
			return nil, written, err
		}
		for _, f := range added {
			next.AddFragment(f)
			written = append(written, f.Path)
		}
	}
	return next, written, nil
}

// joinKey encodes the key columns of row i. It reports false if any
// component is null or NaN, since neither equals anything.
func joinKey(rec arrow.Record, keys []int, i int) (string, bool) {
	var buf []byte
	for _, k := range keys {
		v, ok := keyComponent(rec.Column(k), i)
		if !ok {
			return "", false
		}
		buf = binary.AppendUvarint(buf, uint64(len(v)))
		buf = append(buf, v...)
	}
	return string(buf), true
}

// keyComponent renders one key value so that equal values encode equally.
// Floats are canonicalized: -0 folds into 0.
func keyComponent(col arrow.Array, i int) (string, bool) {
	if col.IsNull(i) {
		return "", false
	}
	switch c := col.(type) {
	case *array.Float64:
		return floatKey(c.Value(i))
	case *array.Float32:
		return floatKey(float64(c.Value(i)))
	case *array.Float16:
		return floatKey(float64(c.Value(i).Float32()))
	}
	return col.ValueStr(i), true
}

func floatKey(v float64) (string, bool) {
	if math.IsNaN(v) {
		return "", false
	}
	if v == 0 {
		v = 0
	}
	return strconv.FormatFloat(v, 'g', -1, 64), true
}

func allColumns(schema *arrow.Schema) []int {
	cols := make([]int, schema.NumFields())
	for i := range cols {
		cols[i] = i
	}
	return cols
}
