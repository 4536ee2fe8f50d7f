package rank

import (
	"math"

	"github.com/searchlab-dev/searchlab/internal/errors"
)

// Normalize returns a unit-L2-norm copy of v.
// A zero-norm vector cannot be normalized and yields a validation error
// rather than silently producing NaN components.
func Normalize(v []float32) ([]float32, error) {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return nil, errors.ZeroNorm("cannot normalize zero-norm vector (dim %d)", len(v))
	}

	inv := 1.0 / math.Sqrt(sumSquares)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out, nil
}

// Dot returns the dot product of two equal-length vectors.
// For unit vectors this is the cosine similarity, range [-1, 1].
// No clamping is applied.
func Dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// checkDim verifies that a candidate vector matches the query dimension.
func checkDim(expected, got int) error {
	if expected != got {
		return errors.Newf(errors.ErrCodeDimensionMismatch,
			"dimension mismatch: expected %d, got %d", expected, got)
	}
	return nil
}
