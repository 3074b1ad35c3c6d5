package testutil

import (
	"fmt"
	"sort"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"
)

// Row is one row of the fixture schema.
type Row struct {
	ID     int64
	Region string
	Text   string
	Vector []float32
}

// Schema returns the fixture schema: id int64, region utf8 (nullable),
// text utf8, vector fixed_size_list<float32>[dim].
func Schema(dim int) *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "region", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "text", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "vector", Type: arrow.FixedSizeListOf(int32(dim), arrow.PrimitiveTypes.Float32)},
	}, nil)
}

// Record builds a record batch of rows. An empty Region is stored as null.
func Record(rows []Row, dim int) arrow.Record {
	b := array.NewRecordBuilder(memory.DefaultAllocator, Schema(dim))
	defer b.Release()

	ids := b.Field(0).(*array.Int64Builder)
	regions := b.Field(1).(*array.StringBuilder)
	texts := b.Field(2).(*array.StringBuilder)
	vectors := b.Field(3).(*array.FixedSizeListBuilder)
	values := vectors.ValueBuilder().(*array.Float32Builder)

	for _, r := range rows {
		if len(r.Vector) != dim {
			panic(fmt.Sprintf("testutil: row %d has %d dimensions, want %d", r.ID, len(r.Vector), dim))
		}
		ids.Append(r.ID)
		if r.Region == "" {
			regions.AppendNull()
		} else {
			regions.Append(r.Region)
		}
		texts.Append(r.Text)
		vectors.Append(true)
		values.AppendValues(r.Vector, nil)
	}
	return b.NewRecord()
}

// Reader wraps rows into a single-batch record reader.
func Reader(rows []Row, dim int) array.RecordReader {
	rec := Record(rows, dim)
	defer rec.Release()
	rdr, err := array.NewRecordReader(rec.Schema(), []arrow.Record{rec})
	if err != nil {
		panic(err)
	}
	return rdr
}

// Rows generates n rows with ids start..start+n-1, cycling regions and
// random vectors.
func Rows(rng *RNG, start int64, n, dim int, regions ...string) []Row {
	if len(regions) == 0 {
		regions = []string{"east", "west"}
	}
	vecs := rng.UniformVectors(n, dim)
	rows := make([]Row, n)
	for i := range rows {
		id := start + int64(i)
		rows[i] = Row{
			ID:     id,
			Region: regions[i%len(regions)],
			Text:   fmt.Sprintf("document %d", id),
			Vector: vecs[i],
		}
	}
	return rows
}

// ReadRows drains reader into rows sorted by id and releases it. Columns
// missing from the reader's schema stay zero.
func ReadRows(t testing.TB, reader array.RecordReader) []Row {
	t.Helper()
	defer reader.Release()

	var rows []Row
	for reader.Next() {
		rows = append(rows, recordRows(t, reader.Record())...)
	}
	require.NoError(t, reader.Err())
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows
}

func recordRows(t testing.TB, rec arrow.Record) []Row {
	t.Helper()
	rows := make([]Row, rec.NumRows())
	for c, field := range rec.Schema().Fields() {
		col := rec.Column(c)
		for i := range rows {
			switch field.Name {
			case "id":
				rows[i].ID = col.(*array.Int64).Value(i)
			case "region":
				if col.IsValid(i) {
					rows[i].Region = col.(*array.String).Value(i)
				}
			case "text":
				if col.IsValid(i) {
					rows[i].Text = col.(*array.String).Value(i)
				}
			case "vector":
				list := col.(*array.FixedSizeList)
				values := list.ListValues().(*array.Float32).Float32Values()
				start, end := list.ValueOffsets(i)
				rows[i].Vector = append([]float32(nil), values[start:end]...)
			}
		}
	}
	return rows
}

// IDs returns the ids of rows in order.
func IDs(rows []Row) []int64 {
	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids
}
