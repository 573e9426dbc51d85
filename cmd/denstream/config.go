package main

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/TrevorS/denstream"
)

var configValidate = validator.New()

// fileConfig is the YAML form of denstream.Config. Keys left out of the file
// keep their defaults.
type fileConfig struct {
	Lambda         float64 `yaml:"lambda" validate:"gt=0"`
	Mu             float64 `yaml:"mu" validate:"gt=0"`
	Beta           float64 `yaml:"beta" validate:"gt=0,lt=1"`
	Epsilon        float64 `yaml:"epsilon" validate:"gt=0"`
	StreamSpeed    int     `yaml:"stream_speed" validate:"gte=1"`
	InitPoints     int     `yaml:"init_points" validate:"gte=1"`
	MinPoints      int     `yaml:"min_points" validate:"gte=1"`
	SeedRadius     float64 `yaml:"seed_radius" validate:"gte=0"`
	IndexThreshold int     `yaml:"index_threshold" validate:"gte=0"`
}

func defaultFileConfig() fileConfig {
	def := denstream.DefaultConfig()
	return fileConfig{
		Lambda:         def.Lambda,
		Mu:             def.Mu,
		Beta:           def.Beta,
		Epsilon:        def.Epsilon,
		StreamSpeed:    def.StreamSpeed,
		InitPoints:     def.InitPoints,
		MinPoints:      def.MinPoints,
		SeedRadius:     def.SeedRadius,
		IndexThreshold: def.IndexThreshold,
	}
}

func (fc fileConfig) engineConfig() denstream.Config {
	return denstream.Config{
		Lambda:         fc.Lambda,
		Mu:             fc.Mu,
		Beta:           fc.Beta,
		Epsilon:        fc.Epsilon,
		StreamSpeed:    fc.StreamSpeed,
		InitPoints:     fc.InitPoints,
		MinPoints:      fc.MinPoints,
		SeedRadius:     fc.SeedRadius,
		IndexThreshold: fc.IndexThreshold,
	}
}

// loadConfig reads the engine configuration from path. An empty path returns
// the defaults. Cross-field constraints such as Beta*Mu > 1 are checked by
// denstream.NewEngine.
func loadConfig(path string) (denstream.Config, error) {
	fc := defaultFileConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return denstream.Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return denstream.Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := configValidate.Struct(fc); err != nil {
		return denstream.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return fc.engineConfig(), nil
}
