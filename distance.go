package denstream

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// DistanceMetric provides distance computation with optional reduced distance
// for comparisons that do not need the true metric value (e.g., squared
// Euclidean skips sqrt).
type DistanceMetric interface {
	Distance(a, b []float64) float64
	ReducedDistance(a, b []float64) float64
}

// DistanceFunc adapts a plain function into a DistanceMetric.
// ReducedDistance delegates to the same function.
type DistanceFunc func(a, b []float64) float64

func (f DistanceFunc) Distance(a, b []float64) float64        { return f(a, b) }
func (f DistanceFunc) ReducedDistance(a, b []float64) float64 { return f(a, b) }

// EuclideanMetric computes the Euclidean (L2) distance.
// ReducedDistance returns squared Euclidean distance (skips sqrt).
//
// Both methods assume len(a) == len(b); callers that cannot guarantee that
// should use EuclideanDistance.
type EuclideanMetric struct{}

func (EuclideanMetric) Distance(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}

func (EuclideanMetric) ReducedDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// EuclideanDistance is the checked form of EuclideanMetric.Distance. It
// returns a *DimensionMismatchError when the points differ in length.
func EuclideanDistance(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, &DimensionMismatchError{Expected: len(a), Actual: len(b)}
	}
	return EuclideanMetric{}.Distance(a, b), nil
}

// axisDistance is the distance from q to the axis-aligned hyperplane through
// p at the given axis.
func axisDistance(p, q []float64, axis int) float64 {
	return math.Abs(p[axis] - q[axis])
}
