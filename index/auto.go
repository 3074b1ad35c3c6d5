package index

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/hupe1980/vectable/distance"
)

// ForColumn resolves Auto for a column of type dt. Vector columns (lists of
// floats, or of uint8 compared by hamming distance) get IvfPq defaults and
// every other column a BTree. Other variants are returned unchanged.
func ForColumn(idx Index, dt arrow.DataType) (Index, error) {
	if _, ok := idx.(Auto); !ok {
		return idx, nil
	}
	elem, ok := vectorElem(dt)
	if !ok {
		return BTree{}, nil
	}
	if elem == arrow.UINT8 {
		return Resolve(IvfPqParams{DistanceType: Ptr(distance.Hamming.String())})
	}
	return Resolve(IvfPqParams{})
}

func vectorElem(dt arrow.DataType) (arrow.Type, bool) {
	var elem arrow.DataType
	switch t := dt.(type) {
	case *arrow.FixedSizeListType:
		elem = t.Elem()
	case *arrow.ListType:
		elem = t.Elem()
	default:
		return 0, false
	}
	switch elem.ID() {
	case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64, arrow.UINT8:
		return elem.ID(), true
	}
	return 0, false
}
