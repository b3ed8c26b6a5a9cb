package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/san-kum/primesync/internal/dynamo"
	"github.com/san-kum/primesync/internal/goldbach"
	"github.com/san-kum/primesync/internal/optim"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTarget           = 30
	DefaultDt               = 0.01
	DefaultDuration         = 50.0
	DefaultSamplesPerPeriod = 20
	DefaultIterations       = 12
	DefaultThreshold        = 0.5
	DefaultRepeats          = 1
	// DefaultHiFactor sets the upper search bound to DefaultHiFactor·N when
	// Search.Hi is zero.
	DefaultHiFactor = 2.5
)

type Config struct {
	Target      int     `yaml:"target" toml:"target"`
	Isolation   string  `yaml:"isolation" toml:"isolation"`
	Weight      float64 `yaml:"weight" toml:"weight"`
	Frequencies string  `yaml:"frequencies" toml:"frequencies"`
	MeanField   float64 `yaml:"mean_field" toml:"mean_field"`
	Kappa       float64 `yaml:"kappa" toml:"kappa"`
	Integrator  string  `yaml:"integrator" toml:"integrator"`
	Seed        int64   `yaml:"seed" toml:"seed"`

	Sim      SimConfig      `yaml:"sim" toml:"sim"`
	Search   SearchConfig   `yaml:"search" toml:"search"`
	Spectral SpectralConfig `yaml:"spectral" toml:"spectral"`
	Sweep    SweepConfig    `yaml:"sweep" toml:"sweep"`
}

type SimConfig struct {
	Dt               float64 `yaml:"dt" toml:"dt"`
	Duration         float64 `yaml:"duration" toml:"duration"`
	Adaptive         bool    `yaml:"adaptive" toml:"adaptive"`
	Tolerance        float64 `yaml:"tolerance" toml:"tolerance"`
	MinDt            float64 `yaml:"min_dt" toml:"min_dt"`
	MaxDt            float64 `yaml:"max_dt" toml:"max_dt"`
	SamplesPerPeriod int     `yaml:"samples_per_period" toml:"samples_per_period"`
	MaxSteps         int     `yaml:"max_steps" toml:"max_steps"`
	RecordEvery      int     `yaml:"record_every" toml:"record_every"`
	// AverageTail averages r over the last AverageTail time units instead of
	// reading it at the final time.
	AverageTail float64 `yaml:"average_tail" toml:"average_tail"`
}

type SearchConfig struct {
	Lo         float64 `yaml:"lo" toml:"lo"`
	Hi         float64 `yaml:"hi" toml:"hi"`
	Iterations int     `yaml:"iterations" toml:"iterations"`
	Threshold  float64 `yaml:"threshold" toml:"threshold"`
	Repeats    int     `yaml:"repeats" toml:"repeats"`
	Tolerance  float64 `yaml:"tolerance" toml:"tolerance"`
}

type SpectralConfig struct {
	Spread string `yaml:"spread" toml:"spread"`
}

type SweepConfig struct {
	KappaMin float64 `yaml:"kappa_min" toml:"kappa_min"`
	KappaMax float64 `yaml:"kappa_max" toml:"kappa_max"`
	Points   int     `yaml:"points" toml:"points"`
	Repeats  int     `yaml:"repeats" toml:"repeats"`

	TargetFrom int `yaml:"target_from" toml:"target_from"`
	TargetTo   int `yaml:"target_to" toml:"target_to"`
	TargetStep int `yaml:"target_step" toml:"target_step"`
	Workers    int `yaml:"workers" toml:"workers"`
}

func DefaultConfig() *Config {
	return &Config{
		Target:      DefaultTarget,
		Isolation:   "include",
		Weight:      1.0,
		Frequencies: "log",
		Integrator:  "rk4",
		Seed:        1,
		Sim: SimConfig{
			Dt:               DefaultDt,
			Duration:         DefaultDuration,
			Tolerance:        1e-6,
			MinDt:            1e-9,
			MaxDt:            0.1,
			SamplesPerPeriod: DefaultSamplesPerPeriod,
		},
		Search: SearchConfig{
			Iterations: DefaultIterations,
			Threshold:  DefaultThreshold,
			Repeats:    DefaultRepeats,
		},
		Spectral: SpectralConfig{Spread: "max"},
		Sweep: SweepConfig{
			KappaMax:   5,
			Points:     21,
			Repeats:    1,
			TargetFrom: 10,
			TargetTo:   100,
			TargetStep: 10,
		},
	}
}

type format int

const (
	formatYAML format = iota
	formatTOML
)

func formatOf(path string) (format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML, nil
	case ".toml":
		return formatTOML, nil
	default:
		return 0, fmt.Errorf("unsupported config format: %q", filepath.Ext(path))
	}
}

// Load reads a YAML or TOML file on top of DefaultConfig.
func Load(path string) (*Config, error) {
	f, err := formatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	switch f {
	case formatTOML:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	f, err := formatOf(path)
	if err != nil {
		return err
	}
	var data []byte
	switch f {
	case formatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return err
		}
		data = buf.Bytes()
	default:
		data, err = yaml.Marshal(cfg)
		if err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if err := goldbach.ValidateTarget(c.Target); err != nil {
		return err
	}
	switch c.Isolation {
	case "", "include", "exclude":
	default:
		return fmt.Errorf("isolation must be include or exclude, got %q", c.Isolation)
	}
	if c.Weight <= 0 {
		return fmt.Errorf("weight must be positive, got %g", c.Weight)
	}
	if c.Kappa < 0 {
		return fmt.Errorf("kappa must be non-negative, got %g", c.Kappa)
	}
	if c.Sim.Dt <= 0 || c.Sim.Duration <= 0 {
		return fmt.Errorf("sim dt and duration must be positive")
	}
	if c.Sim.AverageTail < 0 || c.Sim.AverageTail > c.Sim.Duration {
		return fmt.Errorf("average_tail must be within [0, duration]")
	}
	if err := c.Bisection().Validate(); err != nil {
		return err
	}
	if c.Sweep.Points < 1 || c.Sweep.KappaMax < c.Sweep.KappaMin {
		return fmt.Errorf("sweep needs at least one point and kappa_max >= kappa_min")
	}
	return nil
}

// SimConfig converts the sim section into integration settings.
func (c *Config) SimConfig() dynamo.Config {
	return dynamo.Config{
		Dt:               c.Sim.Dt,
		Duration:         c.Sim.Duration,
		Tolerance:        c.Sim.Tolerance,
		MaxDt:            c.Sim.MaxDt,
		MinDt:            c.Sim.MinDt,
		Adaptive:         c.Sim.Adaptive,
		SamplesPerPeriod: c.Sim.SamplesPerPeriod,
		MaxSteps:         c.Sim.MaxSteps,
		RecordEvery:      c.Sim.RecordEvery,
		WrapPhases:       true,
	}
}

// Bisection converts the search section. A zero Hi becomes 2.5·Target.
func (c *Config) Bisection() optim.Bisection {
	hi := c.Search.Hi
	if hi == 0 {
		hi = DefaultHiFactor * float64(c.Target)
	}
	return optim.Bisection{
		Lo:         c.Search.Lo,
		Hi:         hi,
		Iterations: c.Search.Iterations,
		Threshold:  c.Search.Threshold,
		Repeats:    c.Search.Repeats,
		Tolerance:  c.Search.Tolerance,
	}
}

// Targets lists the even N of the target sweep.
func (c *Config) Targets() []int {
	step := c.Sweep.TargetStep
	if step <= 0 {
		step = 2
	}
	if step%2 != 0 {
		step++
	}
	from := c.Sweep.TargetFrom
	if from < 4 {
		from = 4
	}
	if from%2 != 0 {
		from++
	}
	var out []int
	for n := from; n <= c.Sweep.TargetTo; n += step {
		out = append(out, n)
	}
	return out
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}
