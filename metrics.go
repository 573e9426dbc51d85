package denstream

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector receives engine events. Implementations must be cheap;
// they run inside the per-point hot path.
type MetricsCollector interface {
	// RecordOutcome is called once per inserted point.
	RecordOutcome(outcome Outcome)

	// RecordSweep is called after every maintenance sweep with the number of
	// clusters removed from each collection.
	RecordSweep(prunedPotential, prunedOutlier int)

	// RecordClusterCounts reports the collection sizes after a change.
	RecordClusterCounts(potential, outlier int)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordOutcome(Outcome)        {}
func (NoopMetricsCollector) RecordSweep(int, int)         {}
func (NoopMetricsCollector) RecordClusterCounts(int, int) {}

const metricsNamespace = "denstream"

// PrometheusCollector exports engine events as Prometheus metrics.
type PrometheusCollector struct {
	points   *prometheus.CounterVec
	pruned   *prometheus.CounterVec
	sweeps   prometheus.Counter
	clusters *prometheus.GaugeVec
}

// NewPrometheusCollector creates the collector's metrics and registers them
// with reg. A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &PrometheusCollector{
		points: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "points_total",
			Help:      "Points consumed by the engine, by outcome",
		}, []string{"outcome"}),
		pruned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "pruned_total",
			Help:      "Micro-clusters removed by maintenance sweeps, by collection",
		}, []string{"collection"}),
		sweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sweeps_total",
			Help:      "Maintenance sweeps run",
		}),
		clusters: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "clusters",
			Help:      "Current micro-clusters, by collection",
		}, []string{"collection"}),
	}
	for _, m := range []prometheus.Collector{c.points, c.pruned, c.sweeps, c.clusters} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// RecordOutcome implements MetricsCollector.
func (c *PrometheusCollector) RecordOutcome(outcome Outcome) {
	c.points.WithLabelValues(outcome.String()).Inc()
}

// RecordSweep implements MetricsCollector.
func (c *PrometheusCollector) RecordSweep(prunedPotential, prunedOutlier int) {
	c.sweeps.Inc()
	c.pruned.WithLabelValues(collectionPotential).Add(float64(prunedPotential))
	c.pruned.WithLabelValues(collectionOutlier).Add(float64(prunedOutlier))
}

// RecordClusterCounts implements MetricsCollector.
func (c *PrometheusCollector) RecordClusterCounts(potential, outlier int) {
	c.clusters.WithLabelValues(collectionPotential).Set(float64(potential))
	c.clusters.WithLabelValues(collectionOutlier).Set(float64(outlier))
}
