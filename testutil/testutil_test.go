package testutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/vectable/distance"
)

func TestUniformVectors(t *testing.T) {
	rng := NewRNG(4711)

	v := rng.UniformVectors(8, 32)

	assert.Equal(t, 8, len(v))
	assert.Equal(t, 32, len(v[0]))
	assert.LessOrEqual(t, v[0][0], float32(1.0))
	assert.GreaterOrEqual(t, v[1][0], float32(0.0))
}

func TestUnitVectors(t *testing.T) {
	rng := NewRNG(4711)

	for _, vec := range rng.UnitVectors(8, 32) {
		var norm float64
		for _, x := range vec {
			norm += float64(x) * float64(x)
		}
		assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	rows := Rows(NewRNG(1), 10, 5, 4, "north", "")

	got := ReadRows(t, Reader(rows, 4))

	assert.Equal(t, rows, got)
	assert.Equal(t, []int64{10, 11, 12, 13, 14}, IDs(got))
	assert.Equal(t, "", got[1].Region)
}

func TestExactTopK(t *testing.T) {
	rows := []Row{
		{ID: 1, Vector: []float32{0, 0}},
		{ID: 2, Vector: []float32{5, 5}},
		{ID: 3, Vector: []float32{1, 1}},
	}

	got := ExactTopK([]float32{0, 0}, rows, 2, distance.SquaredL2)

	assert.Equal(t, []SearchResult{{ID: 1, Distance: 0}, {ID: 3, Distance: 2}}, got)
}
