package denstream

// PointIndex pairs a point with its position in the source dataset. Index
// stays valid after an index reorders points internally.
type PointIndex struct {
	Point []float64
	Index int
}

// SpatialIndex is the read interface shared by KDTree and LinearIndex.
//
// Nearest resolves exact distance ties to the smallest Index, so every
// implementation agrees on the answer for the same point set.
type SpatialIndex interface {
	// Nearest returns the indexed point closest to query.
	Nearest(query []float64) (PointIndex, error)

	// Neighborhood returns every indexed point within radius of query
	// (inclusive), in no particular order.
	Neighborhood(query []float64, radius float64) ([]PointIndex, error)

	// Len returns the number of indexed points.
	Len() int

	// Dims returns the dimensionality of the indexed points, or 0 when empty.
	Dims() int
}

var (
	_ SpatialIndex = (*KDTree)(nil)
	_ SpatialIndex = (*LinearIndex)(nil)
)

// LinearIndex answers SpatialIndex queries by scanning every point. It does
// not copy its input; callers must not mutate the points while the index is
// in use.
type LinearIndex struct {
	points [][]float64
	dims   int
	metric EuclideanMetric
}

// NewLinearIndex wraps points without copying them.
func NewLinearIndex(points [][]float64) (*LinearIndex, error) {
	dims, err := checkDims(points)
	if err != nil {
		return nil, err
	}
	return &LinearIndex{points: points, dims: dims}, nil
}

func (l *LinearIndex) Len() int  { return len(l.points) }
func (l *LinearIndex) Dims() int { return l.dims }

func (l *LinearIndex) checkQuery(query []float64) error {
	if len(l.points) == 0 {
		return ErrEmptyIndex
	}
	if len(query) != l.dims {
		return &DimensionMismatchError{Expected: l.dims, Actual: len(query)}
	}
	return nil
}

// Nearest scans in index order and keeps the first strict minimum.
func (l *LinearIndex) Nearest(query []float64) (PointIndex, error) {
	if err := l.checkQuery(query); err != nil {
		return PointIndex{}, err
	}
	best := 0
	bestDist := l.metric.Distance(l.points[0], query)
	for i := 1; i < len(l.points); i++ {
		if d := l.metric.Distance(l.points[i], query); d < bestDist {
			bestDist = d
			best = i
		}
	}
	return PointIndex{Point: l.points[best], Index: best}, nil
}

// Neighborhood returns matches in index order.
func (l *LinearIndex) Neighborhood(query []float64, radius float64) ([]PointIndex, error) {
	if radius < 0 {
		return nil, ErrInvalidRadius
	}
	if err := l.checkQuery(query); err != nil {
		return nil, err
	}
	var out []PointIndex
	for i, p := range l.points {
		if l.metric.Distance(p, query) <= radius {
			out = append(out, PointIndex{Point: p, Index: i})
		}
	}
	return out, nil
}
