package engine

import (
	"bytes"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hupe1980/vectable/errs"
)

var allocator = memory.DefaultAllocator

func encodeSchema(schema *arrow.Schema) ([]byte, error) {
	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(schema), ipc.WithAllocator(allocator))
	if err := w.Close(); err != nil {
		return nil, errs.Wrap(errs.ErrRuntime, err, "encode schema")
	}
	return buf.Bytes(), nil
}

func decodeSchema(data []byte) (*arrow.Schema, error) {
	r, err := ipc.NewReader(bytes.NewReader(data), ipc.WithAllocator(allocator))
	if err != nil {
		return nil, errs.Wrap(errs.ErrRuntime, err, "decode schema")
	}
	defer r.Release()
	return r.Schema(), nil
}

// drain reads every record of r. The caller releases the returned records.
func drain(r array.RecordReader) ([]arrow.Record, error) {
	var recs []arrow.Record
	for r.Next() {
		rec := r.Record()
		rec.Retain()
		recs = append(recs, rec)
	}
	if err := r.Err(); err != nil {
		releaseAll(recs)
		return nil, errs.Wrap(errs.ErrRuntime, err, "read source rows")
	}
	return recs, nil
}

func releaseAll(recs []arrow.Record) {
	for _, rec := range recs {
		rec.Release()
	}
}

// conform checks that rec carries exactly the fields of schema with equal
// types and returns it with its columns in schema order.
func conform(schema *arrow.Schema, rec arrow.Record) (arrow.Record, error) {
	src := rec.Schema()
	if src.NumFields() != schema.NumFields() {
		return nil, errs.InvalidInput("schema mismatch: table has %d fields, data has %d", schema.NumFields(), src.NumFields())
	}
	cols := make([]arrow.Array, schema.NumFields())
	for i, field := range schema.Fields() {
		idx := src.FieldIndices(field.Name)
		if len(idx) != 1 {
			return nil, errs.InvalidInput("schema mismatch: field %q missing from data", field.Name)
		}
		col := rec.Column(idx[0])
		if !arrow.TypeEqual(field.Type, col.DataType()) {
			return nil, errs.InvalidInput("schema mismatch: field %q has type %s, data has %s", field.Name, field.Type, col.DataType())
		}
		if !field.Nullable && col.NullN() > 0 {
			return nil, errs.InvalidInput("field %q is not nullable but data contains nulls", field.Name)
		}
		cols[i] = col
	}
	return array.NewRecord(schema, cols, rec.NumRows()), nil
}

func emptyRecord(schema *arrow.Schema) arrow.Record {
	cols := make([]arrow.Array, schema.NumFields())
	for i, f := range schema.Fields() {
		cols[i] = array.MakeArrayOfNull(allocator, f.Type, 0)
	}
	rec := array.NewRecord(schema, cols, 0)
	for _, c := range cols {
		c.Release()
	}
	return rec
}

// concat merges records sharing schema into one.
func concat(schema *arrow.Schema, recs []arrow.Record) (arrow.Record, error) {
	switch len(recs) {
	case 0:
		return emptyRecord(schema), nil
	case 1:
		rec := recs[0]
		rec.Retain()
		return rec, nil
	}
	cols := make([]arrow.Array, schema.NumFields())
	defer func() {
		for _, c := range cols {
			if c != nil {
				c.Release()
			}
		}
	}()
	var rows int64
	for _, rec := range recs {
		rows += rec.NumRows()
	}
	parts := make([]arrow.Array, len(recs))
	for i := range cols {
		for j, rec := range recs {
			parts[j] = rec.Column(i)
		}
		col, err := array.Concatenate(parts, allocator)
		if err != nil {
			return nil, errs.Wrap(errs.ErrRuntime, err, "concatenate column %q", schema.Field(i).Name)
		}
		cols[i] = col
	}
	return array.NewRecord(schema, cols, rows), nil
}

// rowRef addresses one row of a loaded record.
type rowRef struct {
	rec arrow.Record
	row int
}

// gather copies the referenced rows, in order, into a new record of schema
// built from the given source columns. Consecutive rows of one record are copied as a single slice.
func gather(schema *arrow.Schema, cols []int, refs []rowRef) (arrow.Record, error) {
	if len(refs) == 0 {
		return emptyRecord(schema), nil
	}

	type run struct {
		rec        arrow.Record
		start, end int
	}
	var runs []run
	for _, ref := range refs {
		if n := len(runs); n > 0 && runs[n-1].rec == ref.rec && runs[n-1].end == ref.row {
			runs[n-1].end++
			continue
		}
		runs = append(runs, run{rec: ref.rec, start: ref.row, end: ref.row + 1})
	}

	out := make([]arrow.Array, len(cols))
	defer func() {
		for _, c := range out {
			if c != nil {
				c.Release()
			}
		}
	}()
	for i, c := range cols {
		slices := make([]arrow.Array, len(runs))
		for j, r := range runs {
			slices[j] = array.NewSlice(r.rec.Column(c), int64(r.start), int64(r.end))
		}
		col, err := array.Concatenate(slices, allocator)
		for _, s := range slices {
			s.Release()
		}
		if err != nil {
			return nil, errs.Wrap(errs.ErrRuntime, err, "gather column %q", schema.Field(i).Name)
		}
		out[i] = col
	}
	return array.NewRecord(schema, out, int64(len(refs))), nil
}

// recordSize approximates the memory held by rec.
func recordSize(rec arrow.Record) int64 {
	var n int64
	for _, col := range rec.Columns() {
		n += dataSize(col.Data())
	}
	return n
}

func dataSize(d arrow.ArrayData) int64 {
	var n int64
	for _, buf := range d.Buffers() {
		if buf != nil {
			n += int64(buf.Len())
		}
	}
	for _, child := range d.Children() {
		n += dataSize(child)
	}
	return n
}

func fieldIndex(schema *arrow.Schema, name string) (int, error) {
	idx := schema.FieldIndices(name)
	if len(idx) == 0 {
		return 0, errs.InvalidInput("column %q does not exist", name)
	}
	return idx[0], nil
}
