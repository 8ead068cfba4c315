// Package config holds the YAML run configuration: which diagram to
// load, how to integrate it, and what to record.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/diagsim/diagsim/internal/sim"
)

const (
	DefaultSolver    = "rk45"
	DefaultDt        = 0.1
	DefaultDuration  = 5.0
	DefaultTolerance = 1e-6
	DefaultMinStep   = 1e-12
)

type Config struct {
	// Diagram is the path of the persisted diagram JSON.
	Diagram string `yaml:"diagram"`

	Solver      string   `yaml:"solver"`
	Dt          float64  `yaml:"dt"`
	Duration    float64  `yaml:"duration"`
	Adaptive    bool     `yaml:"adaptive"`
	Tolerance   float64  `yaml:"tolerance"`
	MinStep     float64  `yaml:"min_step"`
	CheckFinite bool     `yaml:"check_finite"`
	Graphics    bool     `yaml:"graphics"`
	Watch       []string `yaml:"watch"`

	// StoreDir, when set, persists run results under this directory.
	StoreDir string `yaml:"store_dir"`
}

func DefaultConfig() *Config {
	return &Config{
		Solver:      DefaultSolver,
		Dt:          DefaultDt,
		Duration:    DefaultDuration,
		Adaptive:    true,
		Tolerance:   DefaultTolerance,
		MinStep:     DefaultMinStep,
		CheckFinite: true,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Options translates the configuration to scheduler options. Watch
// entries and display wiring are the caller's concern beyond the
// recorded strings.
func (c *Config) Options() sim.Options {
	opts := sim.DefaultOptions()
	opts.Solver = c.Solver
	opts.Dt = c.Dt
	opts.T = c.Duration
	opts.Adaptive = c.Adaptive
	opts.Tolerance = c.Tolerance
	opts.MinStep = c.MinStep
	opts.CheckFinite = c.CheckFinite
	opts.Graphics = c.Graphics
	for _, w := range c.Watch {
		opts.Watch = append(opts.Watch, w)
	}
	return opts
}
