package denstream

import (
	"fmt"
	"math"
)

// Config controls the streaming clustering engine.
// Start with [DefaultConfig] and override the fields you need. Zero-valued
// fields are replaced by their defaults when the engine is built.
type Config struct {
	// Lambda is the decay rate: a cluster's weight halves every 1/Lambda
	// time units without new points. Must be > 0. Default: 0.25.
	Lambda float64

	// Mu is the core weight threshold. Together with Beta it sets the
	// potential threshold Beta*Mu, which must be > 1. Default: 10.
	Mu float64

	// Beta is the outlier fraction, in (0, 1). Default: 0.2.
	Beta float64

	// Epsilon is the merge radius: a point joins a cluster only if the
	// cluster's radius after the merge is <= Epsilon. Must be > 0.
	// Default: 16.
	Epsilon float64

	// StreamSpeed is the number of points that make up one unit of logical
	// time. Must be >= 1. Default: 20.
	StreamSpeed int

	// InitPoints is the number of leading points buffered and handed to the
	// seed labeler before online processing begins. Must be >= 1.
	// Default: 1000.
	InitPoints int

	// MinPoints is the minimum neighborhood size (self included) for a seed
	// point to be dense. Must be >= 1. Default: 20.
	MinPoints int

	// SeedRadius is the neighborhood radius used by the seed labeler.
	// Must be >= 0. Default: Epsilon.
	SeedRadius float64

	// IndexThreshold switches nearest-cluster search from a linear scan to a
	// kd-tree once a collection holds at least this many clusters. 0 keeps
	// the linear scan. Must be >= 0. Default: 0.
	//
	// Centers move on every insert, so the tree is rebuilt for each lookup
	// at O(n log n) plus a copy of every center. That is slower than the
	// O(n) scan for any collection size; the option exists to cross-check
	// the two search paths, not as a speedup.
	IndexThreshold int
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		Lambda:      0.25,
		Mu:          10,
		Beta:        0.2,
		Epsilon:     16,
		StreamSpeed: 20,
		InitPoints:  1000,
		MinPoints:   20,
	}
}

// applyDefaults fills in zero-valued config fields with their defaults.
func applyDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.Lambda == 0 {
		cfg.Lambda = def.Lambda
	}
	if cfg.Mu == 0 {
		cfg.Mu = def.Mu
	}
	if cfg.Beta == 0 {
		cfg.Beta = def.Beta
	}
	if cfg.Epsilon == 0 {
		cfg.Epsilon = def.Epsilon
	}
	if cfg.StreamSpeed == 0 {
		cfg.StreamSpeed = def.StreamSpeed
	}
	if cfg.InitPoints == 0 {
		cfg.InitPoints = def.InitPoints
	}
	if cfg.MinPoints == 0 {
		cfg.MinPoints = def.MinPoints
	}
	if cfg.SeedRadius == 0 {
		cfg.SeedRadius = cfg.Epsilon
	}
}

// validateConfig checks that cfg fields are valid and returns a descriptive
// error wrapping ErrInvalidConfig if not.
func validateConfig(cfg *Config) error {
	if !(cfg.Lambda > 0) || math.IsInf(cfg.Lambda, 1) {
		return fmt.Errorf("%w: Lambda must be > 0, got %v", ErrInvalidConfig, cfg.Lambda)
	}
	if !(cfg.Mu > 0) {
		return fmt.Errorf("%w: Mu must be > 0, got %v", ErrInvalidConfig, cfg.Mu)
	}
	if !(cfg.Beta > 0 && cfg.Beta < 1) {
		return fmt.Errorf("%w: Beta must be in (0, 1), got %v", ErrInvalidConfig, cfg.Beta)
	}
	if !(cfg.Beta*cfg.Mu > 1) {
		return fmt.Errorf("%w: Beta*Mu must be > 1, got %v", ErrInvalidConfig, cfg.Beta*cfg.Mu)
	}
	if !(cfg.Epsilon > 0) {
		return fmt.Errorf("%w: Epsilon must be > 0, got %v", ErrInvalidConfig, cfg.Epsilon)
	}
	if cfg.StreamSpeed < 1 {
		return fmt.Errorf("%w: StreamSpeed must be >= 1, got %d", ErrInvalidConfig, cfg.StreamSpeed)
	}
	if cfg.InitPoints < 1 {
		return fmt.Errorf("%w: InitPoints must be >= 1, got %d", ErrInvalidConfig, cfg.InitPoints)
	}
	if cfg.MinPoints < 1 {
		return fmt.Errorf("%w: MinPoints must be >= 1, got %d", ErrInvalidConfig, cfg.MinPoints)
	}
	if cfg.SeedRadius < 0 {
		return fmt.Errorf("%w: SeedRadius must be >= 0, got %v", ErrInvalidConfig, cfg.SeedRadius)
	}
	if cfg.IndexThreshold < 0 {
		return fmt.Errorf("%w: IndexThreshold must be >= 0, got %d", ErrInvalidConfig, cfg.IndexThreshold)
	}
	return nil
}

// MaintenanceInterval returns Tp = ceil((1/Lambda) * ln(Beta*Mu / (Beta*Mu - 1))),
// the number of time units between pruning sweeps. The config must be valid.
func (cfg Config) MaintenanceInterval() int64 {
	bm := cfg.Beta * cfg.Mu
	tp := int64(math.Ceil((1 / cfg.Lambda) * math.Log(bm/(bm-1))))
	return max(tp, 1)
}
