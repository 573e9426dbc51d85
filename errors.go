package denstream

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyIndex is returned when a spatial index built over zero points
	// is queried.
	ErrEmptyIndex = errors.New("denstream: index contains no points")

	// ErrEmptyPoint is returned when a zero-dimensional point is supplied.
	ErrEmptyPoint = errors.New("denstream: point has no coordinates")

	// ErrInvalidRadius is returned for negative query radii.
	ErrInvalidRadius = errors.New("denstream: radius must be >= 0")

	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("denstream: k must be positive")

	// ErrInvalidConfig wraps every configuration validation failure.
	ErrInvalidConfig = errors.New("denstream: invalid config")
)

// DimensionMismatchError indicates that a point's dimensionality differs
// from the dimensionality established by an index, cluster or dataset.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("denstream: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// checkDims validates a batch of points: all must be non-empty and share the
// length of the first point. It returns that length.
func checkDims(points [][]float64) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}
	dims := len(points[0])
	if dims == 0 {
		return 0, ErrEmptyPoint
	}
	for _, p := range points[1:] {
		if len(p) != dims {
			return 0, &DimensionMismatchError{Expected: dims, Actual: len(p)}
		}
	}
	return dims, nil
}
