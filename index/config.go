package index

import (
	"fmt"
	"strings"

	gojson "github.com/goccy/go-json"

	"github.com/hupe1980/vectable/errs"
)

// IndexConfig describes an existing index as listed by the engine.
type IndexConfig struct {
	IndexType string   `json:"index_type"`
	Columns   []string `json:"columns"`
	Name      string   `json:"name"`
}

// Get returns a field by its legacy key: "index_type", "columns", and
// "name" or "index_name".
func (c IndexConfig) Get(key string) (any, error) {
	switch key {
	case "index_type":
		return c.IndexType, nil
	case "columns":
		return append([]string(nil), c.Columns...), nil
	case "name", "index_name":
		return c.Name, nil
	default:
		return nil, errs.InvalidInput("invalid key: %s", key)
	}
}

func (c IndexConfig) String() string {
	quoted := make([]string, len(c.Columns))
	for i, col := range c.Columns {
		quoted[i] = fmt.Sprintf("%q", col)
	}
	return fmt.Sprintf("Index(%s, columns=[%s], name=%q)", c.IndexType, strings.Join(quoted, ", "), c.Name)
}

// Statistics reports index coverage.
type Statistics struct {
	IndexType        string `json:"index_type"`
	DistanceType     string `json:"distance_type,omitempty"`
	NumIndexedRows   int64  `json:"num_indexed_rows"`
	NumUnindexedRows int64  `json:"num_unindexed_rows"`
	NumIndices       int    `json:"num_indices,omitempty"`
}

// Marshal encodes a resolved index as JSON parameters.
func Marshal(idx Index) ([]byte, error) {
	return gojson.Marshal(idx)
}

// Unmarshal decodes parameters written by Marshal for an index of type t.
func Unmarshal(t Type, data []byte) (Index, error) {
	var (
		idx Index
		err error
	)
	switch t {
	case TypeAuto:
		return Auto{}, nil
	case TypeBTree:
		return BTree{}, nil
	case TypeBitmap:
		return Bitmap{}, nil
	case TypeLabelList:
		return LabelList{}, nil
	case TypeFTS:
		var v FTS
		err = gojson.Unmarshal(data, &v)
		idx = v
	case TypeIvfPq:
		var v IvfPq
		err = gojson.Unmarshal(data, &v)
		idx = v
	case TypeIvfHnswPq:
		var v IvfHnswPq
		err = gojson.Unmarshal(data, &v)
		idx = v
	case TypeIvfHnswSq:
		var v IvfHnswSq
		err = gojson.Unmarshal(data, &v)
		idx = v
	default:
		return nil, errs.InvalidInput("unknown index type %d", int(t))
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrRuntime, err, "decode %s index parameters", t)
	}
	return idx, nil
}
