package index

import (
	"fmt"
	"strings"

	"github.com/hupe1980/vectable/distance"
	"github.com/hupe1980/vectable/errs"
)

// Type discriminates the index variants.
type Type int

const (
	TypeAuto Type = iota
	TypeBTree
	TypeBitmap
	TypeLabelList
	TypeFTS
	TypeIvfPq
	TypeIvfHnswPq
	TypeIvfHnswSq
)

var typeNames = map[Type]string{
	TypeAuto:      "Auto",
	TypeBTree:     "BTree",
	TypeBitmap:    "Bitmap",
	TypeLabelList: "LabelList",
	TypeFTS:       "FTS",
	TypeIvfPq:     "IvfPq",
	TypeIvfHnswPq: "IvfHnswPq",
	TypeIvfHnswSq: "IvfHnswSq",
}

// wireNames are the index type names of the REST API.
var wireNames = map[Type]string{
	TypeBTree:     "BTREE",
	TypeBitmap:    "BITMAP",
	TypeLabelList: "LABEL_LIST",
	TypeFTS:       "FTS",
	TypeIvfPq:     "IVF_PQ",
	TypeIvfHnswPq: "IVF_HNSW_PQ",
	TypeIvfHnswSq: "IVF_HNSW_SQ",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// WireName returns the REST API name of t. Auto has none.
func (t Type) WireName() string {
	return wireNames[t]
}

// IsVector reports whether t is a vector index family.
func (t Type) IsVector() bool {
	return t == TypeIvfPq || t == TypeIvfHnswPq || t == TypeIvfHnswSq
}

// ParseType accepts both display names ("IvfPq") and wire names ("IVF_PQ").
func ParseType(s string) (Type, error) {
	for t, name := range typeNames {
		if strings.EqualFold(name, s) {
			return t, nil
		}
	}
	for t, name := range wireNames {
		if strings.EqualFold(name, s) {
			return t, nil
		}
	}
	return 0, errs.InvalidInput("unknown index type %q", s)
}

// Index is a fully resolved index configuration. Exactly one of the variant
// types of this package implements it.
type Index interface {
	Type() Type
	isIndex()
}

// Auto lets the storage engine choose an index based on the column type.
type Auto struct{}

// BTree is a scalar index for range and equality lookups.
type BTree struct{}

// Bitmap is a scalar index for low-cardinality columns.
type Bitmap struct{}

// LabelList is a scalar index over list columns for array_has_any/all filters.
type LabelList struct{}

// FTS is a full-text index.
type FTS struct {
	WithPosition  bool   `json:"with_position"`
	BaseTokenizer string `json:"base_tokenizer"`
	Language      string `json:"language"`
	// MaxTokenLength drops tokens longer than the cap. Nil means unlimited.
	MaxTokenLength  *int `json:"max_token_length"`
	LowerCase       bool `json:"lower_case"`
	Stem            bool `json:"stem"`
	RemoveStopWords bool `json:"remove_stop_words"`
	ASCIIFolding    bool `json:"ascii_folding"`
}

// IvfPq is an IVF index with product quantization.
//
// NumPartitions and NumSubVectors are nil when the engine should pick them
// from row count and dimensionality.
type IvfPq struct {
	DistanceType  distance.Type `json:"distance_type"`
	NumPartitions *uint32       `json:"num_partitions,omitempty"`
	NumSubVectors *uint32       `json:"num_sub_vectors,omitempty"`
	NumBits       uint32        `json:"num_bits"`
	MaxIterations uint32        `json:"max_iterations"`
	SampleRate    uint32        `json:"sample_rate"`
}

// IvfHnswPq is an IVF index with an HNSW graph per partition and product
// quantization.
type IvfHnswPq struct {
	DistanceType   distance.Type `json:"distance_type"`
	NumPartitions  *uint32       `json:"num_partitions,omitempty"`
	NumSubVectors  *uint32       `json:"num_sub_vectors,omitempty"`
	NumBits        uint32        `json:"num_bits"`
	MaxIterations  uint32        `json:"max_iterations"`
	SampleRate     uint32        `json:"sample_rate"`
	NumEdges       uint32        `json:"m"`
	EfConstruction uint32        `json:"ef_construction"`
}

// IvfHnswSq is an IVF index with an HNSW graph per partition and scalar
// quantization.
type IvfHnswSq struct {
	DistanceType   distance.Type `json:"distance_type"`
	NumPartitions  *uint32       `json:"num_partitions,omitempty"`
	MaxIterations  uint32        `json:"max_iterations"`
	SampleRate     uint32        `json:"sample_rate"`
	NumEdges       uint32        `json:"m"`
	EfConstruction uint32        `json:"ef_construction"`
}

func (Auto) Type() Type      { return TypeAuto }
func (BTree) Type() Type     { return TypeBTree }
func (Bitmap) Type() Type    { return TypeBitmap }
func (LabelList) Type() Type { return TypeLabelList }
func (FTS) Type() Type       { return TypeFTS }
func (IvfPq) Type() Type     { return TypeIvfPq }
func (IvfHnswPq) Type() Type { return TypeIvfHnswPq }
func (IvfHnswSq) Type() Type { return TypeIvfHnswSq }

func (Auto) isIndex()      {}
func (BTree) isIndex()     {}
func (Bitmap) isIndex()    {}
func (LabelList) isIndex() {}
func (FTS) isIndex()       {}
func (IvfPq) isIndex()     {}
func (IvfHnswPq) isIndex() {}
func (IvfHnswSq) isIndex() {}

// DistanceOf returns the distance type of a vector index.
func DistanceOf(idx Index) (distance.Type, bool) {
	switch v := idx.(type) {
	case IvfPq:
		return v.DistanceType, true
	case IvfHnswPq:
		return v.DistanceType, true
	case IvfHnswSq:
		return v.DistanceType, true
	default:
		return 0, false
	}
}
