package engine

import (
	"context"
	"math"
	"slices"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	gojson "github.com/goccy/go-json"

	"github.com/hupe1980/vectable/errs"
	"github.com/hupe1980/vectable/internal/manifest"
	"github.com/hupe1980/vectable/internal/predicate"
)

// Update rewrites the live rows matching where with the given column values
// in a single commit. Updated rows move to a new fragment at the end of the
// table. An update matching nothing commits no new version.
func (t *Table) Update(ctx context.Context, where string, values map[string]string) (err error) {
	columns := make([]string, 0, len(values))
	for name := range values {
		columns = append(columns, name)
	}
	slices.Sort(columns)

	var updated int64
	defer func() {
		t.logger.LogUpdate(ctx, where, columns, updated, err)
	}()

	if err := t.writable(); err != nil {
		return err
	}
	if len(values) == 0 {
		return errs.InvalidInput("update requires at least one column value")
	}

	_, err = t.commit(ctx, func(ctx context.Context, cur *manifest.Manifest) (*manifest.Manifest, []string, error) {
		updated = 0
		if cur == nil {
			return nil, nil, errs.NotFound("table %s was not found", t.name)
		}
		schema, err := decodeSchema(cur.Schema)
		if err != nil {
			return nil, nil, err
		}
		p, err := compileFilter(where, schema)
		if err != nil {
			return nil, nil, err
		}
		setters, err := compileSetters(schema, columns, values)
		if err != nil {
			return nil, nil, err
		}

		frags, err := t.loadFragments(ctx, cur)
		if err != nil {
			return nil, nil, err
		}
		defer releaseFragments(frags)

		removals := make(map[uint64]*roaring.Bitmap)
		var refs []rowRef
		for _, f := range frags {
			rows, err := liveMatches(f, p)
			if err != nil {
				return nil, nil, err
			}
			if rows.IsEmpty() {
				continue
			}
			removals[f.meta.ID] = rows
			it := rows.Iterator()
			for it.HasNext() {
				refs = append(refs, rowRef{rec: f.rec, row: int(it.Next())})
			}
		}
		if len(refs) == 0 {
			return nil, nil, nil
		}

		old, err := gather(schema, allColumns(schema), refs)
		if err != nil {
			return nil, nil, err
		}
		defer old.Release()
		data, err := applySetters(schema, old, setters)
		if err != nil {
			return nil, nil, err
		}
		defer data.Release()

		next := cur.Next(opUpdate)
		written, err := t.applyDeletions(ctx, next, frags, removals)
		if err != nil {
			return nil, written, err
		}
		added, err := t.writeFragments(ctx, data, defaultRowsPerGroup)
		if err != nil {
			return nil, written, err
		}
		for _, f := range added {
			next.AddFragment(f)
			written = append(written, f.Path)
		}
		updated = int64(len(refs))
		return next, written, nil
	})
	return err
}

// setter computes the new values of one column.
type setter struct {
	col   int
	field arrow.Field
	// expr is set for scalar columns.
	expr *predicate.Expr
	// vector is the literal assigned to a vector column; nil means NULL.
	vector []float64
}

func compileSetters(schema *arrow.Schema, columns []string, values map[string]string) ([]setter, error) {
	setters := make([]setter, 0, len(columns))
	for _, name := range columns {
		col, err := fieldIndex(schema, name)
		if err != nil {
			return nil, errs.InvalidInput("update column %q does not exist", name)
		}
		s := setter{col: col, field: schema.Field(col)}
		src := strings.TrimSpace(values[name])

		if vt, ok := asVectorType(s.field.Type); ok {
			if s.vector, err = vectorLiteral(s.field, vt, src); err != nil {
				return nil, err
			}
			setters = append(setters, s)
			continue
		}

		if s.expr, err = predicate.ParseExpr(src); err != nil {
			return nil, err
		}
		if err := s.expr.Validate(schema); err != nil {
			return nil, err
		}
		setters = append(setters, s)
	}
	return setters, nil
}

// vectorLiteral parses a JSON array such as "[1.1, 1.1]", or NULL.
func vectorLiteral(field arrow.Field, vt vectorType, src string) ([]float64, error) {
	if strings.EqualFold(src, "null") {
		if !field.Nullable {
			return nil, errs.InvalidInput("column %q is not nullable", field.Name)
		}
		return nil, nil
	}
	var vec []float64
	if err := gojson.Unmarshal([]byte(src), &vec); err != nil || vec == nil {
		return nil, errs.InvalidInput("value %q for vector column %q is not an array of numbers", src, field.Name)
	}
	if vt.dim > 0 && len(vec) != vt.dim {
		return nil, errs.InvalidInput("value for vector column %q has %d dimensions, want %d", field.Name, len(vec), vt.dim)
	}
	if vt.elem == arrow.UINT8 {
		for _, x := range vec {
			if x != math.Trunc(x) || x < 0 || x > math.MaxUint8 {
				return nil, errs.InvalidInput("value for vector column %q must hold bytes, got %v", field.Name, x)
			}
		}
	}
	return vec, nil
}

// applySetters returns old with the set columns replaced.
func applySetters(schema *arrow.Schema, old arrow.Record, setters []setter) (arrow.Record, error) {
	cols := slices.Clone(old.Columns())
	var built []arrow.Array
	defer func() {
		for _, a := range built {
			a.Release()
		}
	}()
	for _, s := range setters {
		var (
			a   arrow.Array
			err error
		)
		if s.expr != nil {
			a, err = s.buildScalar(old)
		} else {
			a = s.buildVector(int(old.NumRows()))
		}
		if err != nil {
			return nil, err
		}
		built = append(built, a)
		cols[s.col] = a
	}
	return array.NewRecord(schema, cols, old.NumRows()), nil
}

func (s setter) buildVector(n int) arrow.Array {
	b := array.NewBuilder(allocator, s.field.Type)
	defer b.Release()

	lb := b.(interface {
		array.Builder
		Append(bool)
		ValueBuilder() array.Builder
	})
	for i := 0; i < n; i++ {
		if s.vector == nil {
			lb.AppendNull()
			continue
		}
		lb.Append(true)
		switch vb := lb.ValueBuilder().(type) {
		case *array.Float32Builder:
			for _, x := range s.vector {
				vb.Append(float32(x))
			}
		case *array.Uint8Builder:
			for _, x := range s.vector {
				vb.Append(uint8(x))
			}
		}
	}
	return b.NewArray()
}

func (s setter) buildScalar(old arrow.Record) (arrow.Array, error) {
	vals, err := s.expr.Values(old)
	if err != nil {
		return nil, err
	}

	b := array.NewBuilder(allocator, s.field.Type)
	defer b.Release()
	for _, v := range vals {
		if v == nil {
			if !s.field.Nullable {
				return nil, errs.InvalidInput("column %q is not nullable", s.field.Name)
			}
			b.AppendNull()
			continue
		}
		if err := appendValue(b, v); err != nil {
			return nil, errs.InvalidInput("update column %q: %v", s.field.Name, err)
		}
	}
	return b.NewArray(), nil
}

// appendValue appends an evaluated SQL value, converting it to the
// builder's type.
func appendValue(b array.Builder, v any) error {
	switch b := b.(type) {
	case *array.BooleanBuilder:
		x, err := toInt(v, 0, 1)
		if err != nil {
			return err
		}
		b.Append(x == 1)
	case *array.Int8Builder:
		x, err := toInt(v, math.MinInt8, math.MaxInt8)
		if err != nil {
			return err
		}
		b.Append(int8(x))
	case *array.Int16Builder:
		x, err := toInt(v, math.MinInt16, math.MaxInt16)
		if err != nil {
			return err
		}
		b.Append(int16(x))
	case *array.Int32Builder:
		x, err := toInt(v, math.MinInt32, math.MaxInt32)
		if err != nil {
			return err
		}
		b.Append(int32(x))
	case *array.Int64Builder:
		x, err := toInt(v, math.MinInt64, math.MaxInt64)
		if err != nil {
			return err
		}
		b.Append(x)
	case *array.Uint8Builder:
		x, err := toInt(v, 0, math.MaxUint8)
		if err != nil {
			return err
		}
		b.Append(uint8(x))
	case *array.Uint16Builder:
		x, err := toInt(v, 0, math.MaxUint16)
		if err != nil {
			return err
		}
		b.Append(uint16(x))
	case *array.Uint32Builder:
		x, err := toInt(v, 0, math.MaxUint32)
		if err != nil {
			return err
		}
		b.Append(uint32(x))
	case *array.Uint64Builder:
		x, err := toInt(v, 0, math.MaxInt64)
		if err != nil {
			return err
		}
		b.Append(uint64(x))
	case *array.Float32Builder:
		x, err := toFloat(v)
		if err != nil {
			return err
		}
		b.Append(float32(x))
	case *array.Float64Builder:
		x, err := toFloat(v)
		if err != nil {
			return err
		}
		b.Append(x)
	case *array.StringBuilder:
		x, ok := v.(string)
		if !ok {
			return errs.InvalidInput("%v is not a string", v)
		}
		b.Append(x)
	case *array.LargeStringBuilder:
		x, ok := v.(string)
		if !ok {
			return errs.InvalidInput("%v is not a string", v)
		}
		b.Append(x)
	case *array.Date32Builder:
		x, err := toInt(v, math.MinInt32, math.MaxInt32)
		if err != nil {
			return err
		}
		b.Append(arrow.Date32(x))
	case *array.Date64Builder:
		x, err := toInt(v, math.MinInt64, math.MaxInt64)
		if err != nil {
			return err
		}
		b.Append(arrow.Date64(x))
	case *array.TimestampBuilder:
		x, err := toInt(v, math.MinInt64, math.MaxInt64)
		if err != nil {
			return err
		}
		b.Append(arrow.Timestamp(x))
	default:
		return errs.NotSupported("columns of type %s cannot be updated", b.Type())
	}
	return nil
}

func toInt(v any, lo, hi int64) (int64, error) {
	var x int64
	switch v := v.(type) {
	case bool:
		if v {
			x = 1
		}
	case int64:
		x = v
	case float64:
		if v != math.Trunc(v) || v < float64(lo) || v > float64(hi) {
			return 0, errs.InvalidInput("%v is not an integer in [%d, %d]", v, lo, hi)
		}
		x = int64(v)
	default:
		return 0, errs.InvalidInput("%v is not a number", v)
	}
	if x < lo || x > hi {
		return 0, errs.InvalidInput("%d is out of range [%d, %d]", x, lo, hi)
	}
	return x, nil
}

func toFloat(v any) (float64, error) {
	switch v := v.(type) {
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	default:
		return 0, errs.InvalidInput("%v is not a number", v)
	}
}
