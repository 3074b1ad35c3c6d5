package benchmark_test

import (
	"context"
	"testing"

	"github.com/hupe1980/vectable"
	"github.com/hupe1980/vectable/testutil"
)

const (
	dimSmall  = 16
	dimMedium = 128
	dimLarge  = 768

	sizeSmall = 10_000
)

// openBenchTable creates a table of n random rows in a fresh in-memory
// database.
func openBenchTable(b *testing.B, n, dim int, opts ...vectable.Option) (vectable.Table, []testutil.Row) {
	b.Helper()
	ctx := context.Background()

	db, err := vectable.Connect(ctx, "memory://bench", opts...)
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { db.Close() })

	rows := testutil.Rows(testutil.NewRNG(42), 0, n, dim)
	tbl, err := db.CreateTable(ctx, "bench", testutil.Reader(rows, dim), vectable.ModeCreate)
	if err != nil {
		b.Fatal(err)
	}
	return tbl, rows
}

// recallAtK is the share of truth ids found in got.
func recallAtK(got []int64, truth []testutil.SearchResult) float64 {
	if len(truth) == 0 {
		return 1
	}
	want := make(map[int64]struct{}, len(truth))
	for _, t := range truth {
		want[t.ID] = struct{}{}
	}
	hits := 0
	for _, id := range got {
		if _, ok := want[id]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(truth))
}
