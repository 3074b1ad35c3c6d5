// Package distance provides the distance types accepted by vector indexes and
// the scalar kernels used to evaluate them.
package distance

import (
	"fmt"
	"math"
	"math/bits"
	"strings"

	"github.com/hupe1980/vectable/errs"
)

// Type is the metric used to compare vectors.
type Type int

const (
	L2 Type = iota
	Cosine
	Dot
	Hamming
)

func (t Type) String() string {
	switch t {
	case L2:
		return "l2"
	case Cosine:
		return "cosine"
	case Dot:
		return "dot"
	case Hamming:
		return "hamming"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// Parse resolves a distance type name. Matching is case-insensitive.
func Parse(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "l2", "euclidean":
		return L2, nil
	case "cosine":
		return Cosine, nil
	case "dot":
		return Dot, nil
	case "hamming":
		return Hamming, nil
	default:
		return 0, errs.InvalidInput("invalid distance type '%s'. Must be one of l2, cosine, dot, hamming", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// DotProduct calculates the dot product of two vectors.
// Assumes vectors are the same length (caller's responsibility).
func DotProduct(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// SquaredL2 calculates the squared L2 (Euclidean) distance between two vectors.
func SquaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// CosineDistance returns 1 - cos(a, b). Zero vectors are at distance 1.
func CosineDistance(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return float32(1 - dot/(math.Sqrt(na)*math.Sqrt(nb)))
}

// HammingBytes counts the differing bits of two byte slices.
func HammingBytes(a, b []byte) float32 {
	var n int
	for i := range a {
		n += bits.OnesCount8(a[i] ^ b[i])
	}
	return float32(n)
}

// Func is a distance function over float32 vectors. Smaller is closer.
type Func func(a, b []float32) float32

// Provider returns the float32 distance function for t.
// Dot is returned negated so that smaller values are closer for every type.
func Provider(t Type) (Func, error) {
	switch t {
	case L2:
		return SquaredL2, nil
	case Cosine:
		return CosineDistance, nil
	case Dot:
		return func(a, b []float32) float32 { return -DotProduct(a, b) }, nil
	default:
		return nil, errs.InvalidInput("distance type %s is not supported for float vectors", t)
	}
}
