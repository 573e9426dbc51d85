package denstream

import (
	"context"
	"fmt"
	"math"
	"slices"
)

// Outcome is the terminal state of one point processed by the engine.
type Outcome int

const (
	// OutcomeBuffered means the point was held for seed labelling.
	OutcomeBuffered Outcome = iota
	// OutcomeAbsorbedPotential means the point merged into its nearest
	// potential micro-cluster.
	OutcomeAbsorbedPotential
	// OutcomeAbsorbedOutlier means the point merged into its nearest outlier
	// micro-cluster, which stayed an outlier.
	OutcomeAbsorbedOutlier
	// OutcomePromoted means the point merged into an outlier micro-cluster
	// whose weight then exceeded Beta*Mu, moving it to the potential set.
	OutcomePromoted
	// OutcomeNewOutlier means the point seeded a new outlier micro-cluster.
	OutcomeNewOutlier
)

func (o Outcome) String() string {
	switch o {
	case OutcomeBuffered:
		return "buffered"
	case OutcomeAbsorbedPotential:
		return "absorbed_potential"
	case OutcomeAbsorbedOutlier:
		return "absorbed_outlier"
	case OutcomePromoted:
		return "promoted"
	case OutcomeNewOutlier:
		return "new_outlier"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

const (
	collectionPotential = "potential"
	collectionOutlier   = "outlier"
)

// Stats counts engine events since construction.
type Stats struct {
	Points            int
	Buffered          int
	AbsorbedPotential int
	AbsorbedOutlier   int
	Promoted          int
	NewOutliers       int
	Sweeps            int
	PrunedPotential   int
	PrunedOutlier     int
}

// Engine maintains DenStream potential and outlier micro-clusters over a
// point stream.
//
// Points must be inserted in arrival order. The first Config.InitPoints points
// are buffered and labelled to seed the potential clusters; every later point
// is merged online. Logical time advances by one unit every
// Config.StreamSpeed points, and every MaintenanceInterval units stale
// clusters are pruned.
//
// An Engine is not safe for concurrent use. Read methods return copies.
type Engine struct {
	cfg  Config
	opts options

	tp    int64
	xiDen float64 // 2^(-lambda*Tp) - 1

	dims   int
	buffer [][]float64
	seeded bool

	timestamp  int64
	numPerTime int

	potential []*MicroCluster
	outlier   []*MicroCluster
	nextID    uint64

	stats Stats
}

// NewEngine validates cfg (after filling zero fields with defaults) and
// returns an empty engine.
func NewEngine(cfg Config, optFns ...Option) (*Engine, error) {
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	tp := cfg.MaintenanceInterval()
	return &Engine{
		cfg:   cfg,
		opts:  opts,
		tp:    tp,
		xiDen: math.Exp2(-cfg.Lambda*float64(tp)) - 1,
	}, nil
}

// Config returns the effective configuration, defaults applied.
func (e *Engine) Config() Config { return e.cfg }

// MaintenanceInterval returns Tp, the number of time units between sweeps.
func (e *Engine) MaintenanceInterval() int64 { return e.tp }

// Timestamp returns the current logical time.
func (e *Engine) Timestamp() int64 { return e.timestamp }

// Seeded reports whether the potential clusters have been initialized.
func (e *Engine) Seeded() bool { return e.seeded }

// Dims returns the dimensionality fixed by the first inserted point.
func (e *Engine) Dims() int { return e.dims }

// Stats returns event counters.
func (e *Engine) Stats() Stats { return e.stats }

func (e *Engine) checkPoint(point []float64) error {
	if len(point) == 0 {
		return ErrEmptyPoint
	}
	if e.dims == 0 {
		e.dims = len(point)
		return nil
	}
	if len(point) != e.dims {
		return &DimensionMismatchError{Expected: e.dims, Actual: len(point)}
	}
	return nil
}

// Insert consumes the next point of the stream and reports what happened
// to it. The point is not retained.
func (e *Engine) Insert(point []float64) (Outcome, error) {
	if err := e.checkPoint(point); err != nil {
		return 0, err
	}
	e.stats.Points++

	if !e.seeded {
		e.buffer = append(e.buffer, slices.Clone(point))
		e.stats.Buffered++
		e.opts.metrics.RecordOutcome(OutcomeBuffered)
		if len(e.buffer) >= e.cfg.InitPoints {
			if err := e.Seed(); err != nil {
				return OutcomeBuffered, err
			}
		}
		return OutcomeBuffered, nil
	}

	e.numPerTime++
	if e.numPerTime == e.cfg.StreamSpeed {
		e.numPerTime = 0
		e.timestamp++
	}

	outcome, err := e.merge(point)
	if err != nil {
		return 0, err
	}
	e.opts.metrics.RecordOutcome(outcome)
	if outcome == OutcomeNewOutlier || outcome == OutcomePromoted {
		e.opts.metrics.RecordClusterCounts(len(e.potential), len(e.outlier))
	}

	if e.numPerTime == 0 && e.timestamp%e.tp == 0 {
		e.sweep()
	}
	return outcome, nil
}

// Run inserts every point in order, seeds the engine if the input was
// shorter than InitPoints, and returns the potential-cluster centers.
func (e *Engine) Run(points [][]float64) ([][]float64, error) {
	for i, p := range points {
		if _, err := e.Insert(p); err != nil {
			return nil, fmt.Errorf("denstream: point %d: %w", i, err)
		}
	}
	if err := e.Seed(); err != nil {
		return nil, err
	}
	return e.Centers(), nil
}

// Seed labels the buffered points and creates one potential cluster per
// label. Insert calls it once InitPoints points have arrived; call it
// directly to start online processing with fewer. When the labeler finds no
// cluster, all buffered points seed a single cluster. Seed is a no-op once
// the engine is seeded.
func (e *Engine) Seed() error {
	if e.seeded {
		return nil
	}

	n := len(e.buffer)
	e.timestamp = int64(n / e.cfg.StreamSpeed)
	e.numPerTime = n % e.cfg.StreamSpeed
	if n == 0 {
		e.seeded = true
		return nil
	}

	labels, err := e.opts.labeler(e.buffer, e.cfg.MinPoints, e.cfg.SeedRadius, n)
	if err != nil {
		return fmt.Errorf("denstream: seed labelling: %w", err)
	}
	if len(labels) != n {
		return fmt.Errorf("denstream: seed labeler returned %d labels for %d points", len(labels), n)
	}

	numClusters := 0
	noise := 0
	for i, l := range labels {
		switch {
		case l == NoiseLabel:
			noise++
		case l < 0 || l >= n:
			return fmt.Errorf("denstream: seed label %d for point %d out of range", l, i)
		default:
			numClusters = max(numClusters, l+1)
		}
	}

	fallback := numClusters == 0
	if fallback {
		numClusters = 1
		labels = make([]int, n) // every point in cluster 0
	}

	seeds := make([]*MicroCluster, numClusters)
	for i, l := range labels {
		if l == NoiseLabel {
			continue
		}
		if seeds[l] == nil {
			seeds[l] = e.newCluster()
		}
		if err := seeds[l].InsertPoint(e.buffer[i], e.timestamp); err != nil {
			return err
		}
	}
	for _, c := range seeds {
		if c != nil {
			e.potential = append(e.potential, c)
		}
	}

	e.buffer = nil
	e.seeded = true
	e.opts.logger.LogSeed(context.Background(), n, len(e.potential), noise, e.timestamp, fallback)
	e.opts.metrics.RecordClusterCounts(len(e.potential), len(e.outlier))
	return nil
}

func (e *Engine) newCluster() *MicroCluster {
	e.nextID++
	return NewMicroCluster(e.nextID, e.timestamp, e.dims, e.cfg.Lambda)
}

// merge runs the per-point state machine: try the nearest potential cluster,
// then the nearest outlier cluster, else start a new outlier cluster.
func (e *Engine) merge(point []float64) (Outcome, error) {
	ts := e.timestamp

	i, err := e.nearestCluster(e.potential, point)
	if err != nil {
		return 0, err
	}
	if i >= 0 {
		c := e.potential[i]
		r, err := c.MergeRadius(point, ts)
		if err != nil {
			return 0, err
		}
		if r <= e.cfg.Epsilon {
			if err := c.InsertPoint(point, ts); err != nil {
				return 0, err
			}
			e.stats.AbsorbedPotential++
			return OutcomeAbsorbedPotential, nil
		}
	}

	i, err = e.nearestCluster(e.outlier, point)
	if err != nil {
		return 0, err
	}
	if i >= 0 {
		c := e.outlier[i]
		r, err := c.MergeRadius(point, ts)
		if err != nil {
			return 0, err
		}
		if r <= e.cfg.Epsilon {
			if err := c.InsertPoint(point, ts); err != nil {
				return 0, err
			}
			if w := c.Weight(ts); w > e.cfg.Beta*e.cfg.Mu {
				e.promote(i)
				e.opts.logger.LogPromotion(context.Background(), c.ID(), w, ts)
				e.stats.Promoted++
				return OutcomePromoted, nil
			}
			e.stats.AbsorbedOutlier++
			return OutcomeAbsorbedOutlier, nil
		}
	}

	c := e.newCluster()
	if err := c.InsertPoint(point, ts); err != nil {
		return 0, err
	}
	e.outlier = append(e.outlier, c)
	e.stats.NewOutliers++
	return OutcomeNewOutlier, nil
}

// promote moves outlier[i] to the potential set. The same cluster value
// changes collection; nothing is copied.
func (e *Engine) promote(i int) {
	c := e.outlier[i]
	e.outlier = slices.Delete(e.outlier, i, i+1)
	e.potential = append(e.potential, c)
}

// nearestCluster returns the position of the cluster whose center is closest
// to point, or -1 for an empty collection. Ties go to the earliest cluster.
func (e *Engine) nearestCluster(clusters []*MicroCluster, point []float64) (int, error) {
	if len(clusters) == 0 {
		return -1, nil
	}

	centers := make([][]float64, len(clusters))
	for i, c := range clusters {
		centers[i] = c.center
	}

	var (
		idx SpatialIndex
		err error
	)
	// The kd-tree is rebuilt from the current centers on every call.
	if e.cfg.IndexThreshold > 0 && len(clusters) >= e.cfg.IndexThreshold {
		idx, err = NewKDTree(centers)
	} else {
		idx, err = NewLinearIndex(centers)
	}
	if err != nil {
		return -1, err
	}

	nearest, err := idx.Nearest(point)
	if err != nil {
		return -1, err
	}
	return nearest.Index, nil
}

// sweep drops potential clusters whose decayed weight fell below Beta*Mu and
// outlier clusters below their creation-time dependent bound xi.
func (e *Engine) sweep() {
	ts := e.timestamp
	threshold := e.cfg.Beta * e.cfg.Mu

	before := len(e.potential)
	e.potential = slices.DeleteFunc(e.potential, func(c *MicroCluster) bool {
		return c.Weight(ts) < threshold
	})
	prunedPotential := before - len(e.potential)

	before = len(e.outlier)
	e.outlier = slices.DeleteFunc(e.outlier, func(c *MicroCluster) bool {
		return c.Weight(ts) < e.outlierBound(c.CreationTime())
	})
	prunedOutlier := before - len(e.outlier)

	e.stats.Sweeps++
	e.stats.PrunedPotential += prunedPotential
	e.stats.PrunedOutlier += prunedOutlier

	e.opts.logger.LogSweep(context.Background(), ts, prunedPotential, prunedOutlier, len(e.potential), len(e.outlier))
	e.opts.metrics.RecordSweep(prunedPotential, prunedOutlier)
	e.opts.metrics.RecordClusterCounts(len(e.potential), len(e.outlier))
}

// outlierBound returns xi(t) = (2^(-lambda*(t-T0+Tp)) - 1) / (2^(-lambda*Tp) - 1)
// for a cluster created at T0.
func (e *Engine) outlierBound(creationTime int64) float64 {
	num := math.Exp2(-e.cfg.Lambda*float64(e.timestamp-creationTime+e.tp)) - 1
	return num / e.xiDen
}

// Centers returns copies of the potential-cluster centers, the engine's
// summary of the stream.
func (e *Engine) Centers() [][]float64 {
	out := make([][]float64, len(e.potential))
	for i, c := range e.potential {
		out[i] = c.Center()
	}
	return out
}

// PotentialClusters snapshots the potential clusters at the current time.
func (e *Engine) PotentialClusters() []ClusterSummary {
	return e.summaries(e.potential)
}

// OutlierClusters snapshots the outlier clusters at the current time.
func (e *Engine) OutlierClusters() []ClusterSummary {
	return e.summaries(e.outlier)
}

func (e *Engine) summaries(clusters []*MicroCluster) []ClusterSummary {
	out := make([]ClusterSummary, len(clusters))
	for i, c := range clusters {
		out[i] = c.Summary(e.timestamp)
	}
	return out
}
