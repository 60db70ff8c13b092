// Package config provides configuration loading and access for the physics
// core and its demo harness.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all tuning parameters.
type Config struct {
	Tick   TickConfig   `yaml:"tick"`
	Tree   TreeConfig   `yaml:"tree"`
	Stream StreamConfig `yaml:"stream"`
	Solver SolverConfig `yaml:"solver"`
	Demo   DemoConfig   `yaml:"demo"`
}

// TickConfig holds tick timing parameters.
type TickConfig struct {
	DT float64 `yaml:"dt"` // seconds per tick
}

// TreeConfig holds bounding-volume tree parameters.
type TreeConfig struct {
	// FatMargin grows leaf bounds on every side so small motions do not
	// force reinsertion.
	FatMargin float64 `yaml:"fat_margin"`
}

// StreamConfig holds contact event stream parameters.
type StreamConfig struct {
	// Capacity is the number of contact events retained for lagging
	// consumers before overwrites begin.
	Capacity int `yaml:"capacity"`
}

// SolverConfig holds contact resolution tuning.
type SolverConfig struct {
	Slop              float64 `yaml:"slop"`               // tolerated penetration before correction
	CorrectionPercent float64 `yaml:"correction_percent"` // fraction of penetration corrected per tick
}

// DemoConfig holds parameters for the bounce demo harness.
type DemoConfig struct {
	WorldWidth  float64 `yaml:"world_width"`
	WorldHeight float64 `yaml:"world_height"`
	Bodies      int     `yaml:"bodies"`
	BodyRadius  float64 `yaml:"body_radius"`
	BodyMass    float64 `yaml:"body_mass"`
	MaxSpeed    float64 `yaml:"max_speed"`
	Gravity     float64 `yaml:"gravity"`
	Restitution float64 `yaml:"restitution"`
	Friction    float64 `yaml:"friction"`
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if
// path is empty. Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into the same struct - only overwrites fields
		// present in the file.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	return cfg, nil
}
