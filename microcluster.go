package denstream

import (
	"math"
)

// MicroCluster is a time-decayed summary of the points assigned to it: an
// exponentially weighted mean, an exponentially weighted mean of squared
// coordinates, and the accumulated weight.
//
// Decay is evaluated lazily. The stored weight is exact as of EditTime and is
// only rewritten by InsertPoint; Weight projects it forward without mutating
// anything.
type MicroCluster struct {
	id           uint64
	creationTime int64
	lambda       float64

	center     []float64
	avgSquares []float64
	weight     float64
	editTime   int64
}

// NewMicroCluster returns an empty cluster of the given dimensionality.
// Its center and radius are undefined until the first InsertPoint.
func NewMicroCluster(id uint64, creationTime int64, dims int, lambda float64) *MicroCluster {
	return &MicroCluster{
		id:           id,
		creationTime: creationTime,
		lambda:       lambda,
		center:       make([]float64, dims),
		avgSquares:   make([]float64, dims),
	}
}

func (c *MicroCluster) ID() uint64          { return c.id }
func (c *MicroCluster) CreationTime() int64 { return c.creationTime }
func (c *MicroCluster) EditTime() int64     { return c.editTime }
func (c *MicroCluster) Lambda() float64     { return c.lambda }
func (c *MicroCluster) Dims() int           { return len(c.center) }

// Center returns a copy of the weighted mean.
func (c *MicroCluster) Center() []float64 {
	out := make([]float64, len(c.center))
	copy(out, c.center)
	return out
}

// decay returns the factor 2^(-lambda*(t-editTime)).
func (c *MicroCluster) decay(timestamp int64) float64 {
	return math.Exp2(-c.lambda * float64(timestamp-c.editTime))
}

// Weight returns the weight decayed to timestamp.
func (c *MicroCluster) Weight(timestamp int64) float64 {
	return c.weight * c.decay(timestamp)
}

// checkPoint rejects points whose length differs from the cluster's.
func (c *MicroCluster) checkPoint(point []float64) error {
	if len(point) != len(c.center) {
		return &DimensionMismatchError{Expected: len(c.center), Actual: len(point)}
	}
	return nil
}

// InsertPoint folds point into the cluster at timestamp. A point of another
// dimensionality is rejected with *DimensionMismatchError and leaves the
// cluster unchanged.
func (c *MicroCluster) InsertPoint(point []float64, timestamp int64) error {
	if err := c.checkPoint(point); err != nil {
		return err
	}
	newWeight := c.weight*c.decay(timestamp) + 1

	if c.weight == 0 {
		copy(c.center, point)
		for i, v := range point {
			c.avgSquares[i] = v * v
		}
	} else {
		for i, v := range point {
			c.center[i] += (v - c.center[i]) / newWeight
			c.avgSquares[i] += (v*v - c.avgSquares[i]) / newWeight
		}
	}

	c.weight = newWeight
	c.editTime = timestamp
	return nil
}

// Radius returns sqrt(mean_i(avgSquares[i] - center[i]^2)), clamped at zero.
//
// The timestamp is accepted for symmetry with Weight; the dispersion reflects
// the cluster's shape at its last insertion and does not decay on its own.
func (c *MicroCluster) Radius(timestamp int64) float64 {
	var r2 float64
	for i, m := range c.center {
		r2 += c.avgSquares[i] - m*m
	}
	return clampedRoot(r2, len(c.center))
}

// MergeRadius returns the radius the cluster would have if point were
// inserted at timestamp. The cluster is not modified.
func (c *MicroCluster) MergeRadius(point []float64, timestamp int64) (float64, error) {
	if err := c.checkPoint(point); err != nil {
		return 0, err
	}
	if c.weight == 0 {
		return 0, nil
	}
	newWeight := c.weight*c.decay(timestamp) + 1

	var r2 float64
	for i, v := range point {
		m := c.center[i] + (v-c.center[i])/newWeight
		sq := c.avgSquares[i] + (v*v-c.avgSquares[i])/newWeight
		r2 += sq - m*m
	}
	return clampedRoot(r2, len(c.center)), nil
}

// clampedRoot returns sqrt(sum/dims), treating round-off below zero as zero.
func clampedRoot(sum float64, dims int) float64 {
	if dims == 0 {
		return 0
	}
	mean := sum / float64(dims)
	if mean <= 0 {
		return 0
	}
	return math.Sqrt(mean)
}

// ClusterSummary is a point-in-time copy of a MicroCluster.
type ClusterSummary struct {
	ID           uint64
	CreationTime int64
	EditTime     int64
	Center       []float64
	Radius       float64
	// Weight is the stored weight as of EditTime.
	Weight float64
	// DecayedWeight is Weight projected to the snapshot timestamp.
	DecayedWeight float64
}

// Summary snapshots the cluster at timestamp.
func (c *MicroCluster) Summary(timestamp int64) ClusterSummary {
	return ClusterSummary{
		ID:            c.id,
		CreationTime:  c.creationTime,
		EditTime:      c.editTime,
		Center:        c.Center(),
		Radius:        c.Radius(timestamp),
		Weight:        c.weight,
		DecayedWeight: c.Weight(timestamp),
	}
}
