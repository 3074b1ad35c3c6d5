package engine

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/hupe1980/vectable/distance"
	"github.com/hupe1980/vectable/errs"
)

// vectorType describes a column holding vectors: a fixed size or variable
// list of float32 or uint8.
type vectorType struct {
	elem arrow.Type
	// dim is 0 for variable length lists.
	dim int
}

func asVectorType(dt arrow.DataType) (vectorType, bool) {
	var (
		elem arrow.DataType
		dim  int
	)
	switch t := dt.(type) {
	case *arrow.FixedSizeListType:
		elem, dim = t.Elem(), int(t.Len())
	case *arrow.ListType:
		elem = t.Elem()
	default:
		return vectorType{}, false
	}
	switch elem.ID() {
	case arrow.FLOAT32, arrow.UINT8:
		return vectorType{elem: elem.ID(), dim: dim}, true
	default:
		return vectorType{}, false
	}
}

// checkDistance validates a distance type against the element type.
func (v vectorType) checkDistance(dt distance.Type) error {
	if v.elem == arrow.UINT8 && dt != distance.Hamming {
		return errs.InvalidInput("distance type %s is not supported for uint8 vectors, use hamming", dt)
	}
	if v.elem == arrow.FLOAT32 && dt == distance.Hamming {
		return errs.InvalidInput("hamming distance requires uint8 vectors")
	}
	return nil
}

func (v vectorType) defaultDistance() distance.Type {
	if v.elem == arrow.UINT8 {
		return distance.Hamming
	}
	return distance.L2
}

type listArray interface {
	arrow.Array
	ValueOffsets(i int) (start, end int64)
	ListValues() arrow.Array
}

// vectorReader reads the vectors of one column.
type vectorReader struct {
	list listArray
	f32  []float32
	u8   []uint8
}

func newVectorReader(col arrow.Array) (*vectorReader, error) {
	list, ok := col.(listArray)
	if !ok {
		return nil, errs.InvalidInput("column of type %s does not hold vectors", col.DataType())
	}
	r := &vectorReader{list: list}
	switch values := list.ListValues().(type) {
	case *array.Float32:
		r.f32 = values.Float32Values()
	case *array.Uint8:
		r.u8 = values.Uint8Values()
	default:
		return nil, errs.InvalidInput("vector elements of type %s are not supported", values.DataType())
	}
	return r, nil
}

// float32At returns the vector of row i, or nil for a null row.
func (r *vectorReader) float32At(i int) []float32 {
	if r.list.IsNull(i) {
		return nil
	}
	start, end := r.list.ValueOffsets(i)
	return r.f32[start:end]
}

// bytesAt returns the vector of row i, or nil for a null row.
func (r *vectorReader) bytesAt(i int) []byte {
	if r.list.IsNull(i) {
		return nil
	}
	start, end := r.list.ValueOffsets(i)
	return r.u8[start:end]
}

// toBytes converts a query vector for a uint8 column.
func toBytes(q []float32) ([]byte, error) {
	out := make([]byte, len(q))
	for i, v := range q {
		if v < 0 || v > 255 || v != float32(int(v)) {
			return nil, errs.InvalidInput("query value %v at %d is not a byte", v, i)
		}
		out[i] = byte(v)
	}
	return out, nil
}
