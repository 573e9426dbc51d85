package denstream

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestCollector registers a collector on an isolated registry so tests
// don't collide on the global one.
func newTestCollector(t *testing.T) *PrometheusCollector {
	t.Helper()
	c, err := NewPrometheusCollector(prometheus.NewRegistry())
	require.NoError(t, err)
	return c
}

func TestPrometheusCollector_RecordOutcome(t *testing.T) {
	c := newTestCollector(t)
	c.RecordOutcome(OutcomeBuffered)
	c.RecordOutcome(OutcomeBuffered)
	c.RecordOutcome(OutcomePromoted)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.points.WithLabelValues("buffered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.points.WithLabelValues("promoted")))
	assert.Zero(t, testutil.ToFloat64(c.points.WithLabelValues("new_outlier")))
}

func TestPrometheusCollector_RecordSweep(t *testing.T) {
	c := newTestCollector(t)
	c.RecordSweep(2, 5)
	c.RecordSweep(0, 1)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.sweeps))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.pruned.WithLabelValues(collectionPotential)))
	assert.Equal(t, 6.0, testutil.ToFloat64(c.pruned.WithLabelValues(collectionOutlier)))
}

func TestPrometheusCollector_RecordClusterCounts(t *testing.T) {
	c := newTestCollector(t)
	c.RecordClusterCounts(3, 7)
	c.RecordClusterCounts(4, 1)

	assert.Equal(t, 4.0, testutil.ToFloat64(c.clusters.WithLabelValues(collectionPotential)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.clusters.WithLabelValues(collectionOutlier)))
}

func TestNewPrometheusCollector_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusCollector(reg)
	require.NoError(t, err)

	_, err = NewPrometheusCollector(reg)
	var already prometheus.AlreadyRegisteredError
	assert.ErrorAs(t, err, &already)
}

func TestEngine_ReportsMetrics(t *testing.T) {
	c := newTestCollector(t)

	cfg := DefaultConfig()
	cfg.InitPoints = 1
	cfg.StreamSpeed = 1000
	cfg.Epsilon = 3
	e := mustEngine(t, cfg, WithLabeler(oneClusterLabeler), WithMetricsCollector(c))

	far := []float64{100, 100}
	insertAll(t, e, [][]float64{{0, 0}, far, far, far, far})

	for outcome, want := range map[string]float64{
		"buffered":           1,
		"new_outlier":        1,
		"absorbed_outlier":   1,
		"promoted":           1,
		"absorbed_potential": 1,
	} {
		assert.Equal(t, want, testutil.ToFloat64(c.points.WithLabelValues(outcome)), outcome)
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(c.clusters.WithLabelValues(collectionPotential)))
	assert.Zero(t, testutil.ToFloat64(c.clusters.WithLabelValues(collectionOutlier)))
	assert.Zero(t, testutil.ToFloat64(c.sweeps))
}

func TestEngine_ReportsSweepMetrics(t *testing.T) {
	c := newTestCollector(t)

	cfg := DefaultConfig()
	cfg.InitPoints = 4
	cfg.StreamSpeed = 1
	e := mustEngine(t, cfg, WithLabeler(oneClusterLabeler), WithMetricsCollector(c))

	points := [][]float64{{0, 0}, {0, 0}, {0, 0}, {0, 0}}
	for i := 1; i <= 5; i++ {
		points = append(points, []float64{1000 * float64(i), 1000 * float64(i)})
	}
	insertAll(t, e, points)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.sweeps))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.pruned.WithLabelValues(collectionPotential)))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.pruned.WithLabelValues(collectionOutlier)))
	assert.Zero(t, testutil.ToFloat64(c.clusters.WithLabelValues(collectionPotential)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.clusters.WithLabelValues(collectionOutlier)))
}

func TestWithMetricsCollector_Nil(t *testing.T) {
	e := mustEngine(t, DefaultConfig(), WithMetricsCollector(nil))
	assert.IsType(t, NoopMetricsCollector{}, e.opts.metrics)
}
