package table

import (
	"github.com/hupe1980/vectable/distance"
	"github.com/hupe1980/vectable/errs"
)

// DefaultLimit is the number of rows a query returns when Limit is zero.
const DefaultLimit = 10

// Result columns appended by searches.
const (
	DistanceColumn = "_distance"
	ScoreColumn    = "_score"
)

// Query selects rows from a table.
//
// With Vector set it is a nearest-neighbor search ordered by ascending
// _distance. With FullText set it is a BM25 search over an FTS-indexed column
// ordered by descending _score. Otherwise it is a filtered scan.
type Query struct {
	Vector   []float32
	FullText string
	// Column is the vector or text column searched. It may be empty when the
	// table has exactly one candidate column.
	Column string
	// Filter is a SQL predicate applied before ranking.
	Filter string
	// Columns projects the result. Empty means all columns.
	Columns      []string
	Limit        int
	DistanceType *distance.Type
}

// Validate checks the query shape and applies the default limit.
func (q Query) Validate() (Query, error) {
	if len(q.Vector) > 0 && q.FullText != "" {
		return q, errs.InvalidInput("a query cannot combine a vector and a full-text search")
	}
	if q.Limit < 0 {
		return q, errs.InvalidInput("limit must not be negative, got %d", q.Limit)
	}
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	if q.DistanceType != nil && len(q.Vector) == 0 {
		return q, errs.InvalidInput("distance type requires a vector query")
	}
	return q, nil
}
