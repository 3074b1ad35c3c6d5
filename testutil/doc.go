// Package testutil provides testing utilities for vectable.
//
// This package is intended for use in tests only. It provides a seeded
// random generator, an Arrow fixture schema with builders and readers, and
// exact nearest-neighbor ground truth.
//
//	rng := testutil.NewRNG(42)
//	rows := testutil.Rows(rng, 0, 100, 8)
//	reader := testutil.Reader(rows, 8)
//	truth := testutil.ExactTopK(query, rows, 10, distance.SquaredL2)
package testutil
