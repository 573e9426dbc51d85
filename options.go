package denstream

type options struct {
	logger  *Logger
	metrics MetricsCollector
	labeler Labeler
}

// Option configures NewEngine.
type Option func(*options)

// WithLogger sets the engine logger. Nil restores the default, which
// discards output.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector sets the collector notified of engine events.
// Nil disables collection.
func WithMetricsCollector(m MetricsCollector) Option {
	return func(o *options) {
		if m == nil {
			m = NoopMetricsCollector{}
		}
		o.metrics = m
	}
}

// WithLabeler replaces the seed labeler (DBSCANLabels by default).
func WithLabeler(l Labeler) Option {
	return func(o *options) {
		if l == nil {
			l = DBSCANLabels
		}
		o.labeler = l
	}
}

func defaultOptions() options {
	return options{
		logger:  NoopLogger(),
		metrics: NoopMetricsCollector{},
		labeler: DBSCANLabels,
	}
}
