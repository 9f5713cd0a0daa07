// Package config holds the tunables of a world, loaded from and saved to YAML.
package config

import (
	"fmt"
	"os"

	"github.com/akmonengine/quill/broadphase"
	"github.com/akmonengine/quill/constraint"
	"github.com/akmonengine/quill/contact"
	"github.com/akmonengine/quill/solver"
	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTimestep      = 1.0 / 60.0
	DefaultSubsteps      = 1
	DefaultWorkers       = 1
	DefaultSleepTime     = 0.1
	DefaultSleepVelocity = 0.05
	defaultGravityY      = -9.81
)

type Config struct {
	Timestep   float64          `yaml:"timestep"`
	Substeps   int              `yaml:"substeps"`
	Gravity    mgl64.Vec3       `yaml:"gravity,flow"`
	Workers    int              `yaml:"workers"`
	Broadphase BroadphaseConfig `yaml:"broadphase"`
	Contact    ContactConfig    `yaml:"contact"`
	Solver     SolverConfig     `yaml:"solver"`
	Sleep      SleepConfig      `yaml:"sleep"`
}

type BroadphaseConfig struct {
	MaxShapes int `yaml:"max_shapes"`
}

type ContactConfig struct {
	// Envelope overrides the shapes' own envelopes when positive
	Envelope         float64 `yaml:"envelope"`
	FeatureTolerance float64 `yaml:"feature_tolerance"`
	Epsilon          float64 `yaml:"epsilon"`
	MaxIterations    int     `yaml:"max_iterations"`
}

type SolverConfig struct {
	MaxIterations        int     `yaml:"max_iterations"`
	MaxRestarts          int     `yaml:"max_restarts"`
	Epsilon              float64 `yaml:"epsilon"`
	Baumgarte            float64 `yaml:"baumgarte"`
	MaxCorrection        float64 `yaml:"max_correction"`
	RestitutionThreshold float64 `yaml:"restitution_threshold"`
}

type SleepConfig struct {
	Enabled  bool    `yaml:"enabled"`
	Time     float64 `yaml:"time"`
	Velocity float64 `yaml:"velocity"`
}

func DefaultConfig() *Config {
	return &Config{
		Timestep: DefaultTimestep,
		Substeps: DefaultSubsteps,
		Gravity:  mgl64.Vec3{0, defaultGravityY, 0},
		Workers:  DefaultWorkers,
		Broadphase: BroadphaseConfig{
			MaxShapes: broadphase.DefaultMaxShapes,
		},
		Contact: ContactConfig{
			FeatureTolerance: contact.DefaultFeatureTolerance,
			Epsilon:          contact.DefaultEpsilon,
			MaxIterations:    contact.DefaultMaxIterations,
		},
		Solver: SolverConfig{
			MaxIterations:        solver.DefaultMaxIterations,
			MaxRestarts:          solver.DefaultMaxRestarts,
			Epsilon:              solver.DefaultEpsilon,
			Baumgarte:            constraint.DefaultBaumgarte,
			MaxCorrection:        constraint.DefaultMaxCorrection,
			RestitutionThreshold: constraint.DefaultRestitutionThreshold,
		},
		Sleep: SleepConfig{
			Enabled:  true,
			Time:     DefaultSleepTime,
			Velocity: DefaultSleepVelocity,
		},
	}
}

// Load reads a YAML file on top of the defaults and validates the result
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML on top of the defaults and validates the result
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Marshal encodes cfg as YAML
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

func (c *Config) Validate() error {
	switch {
	case !(c.Timestep > 0):
		return fmt.Errorf("%v: %w", c.Timestep, ErrInvalidTimestep)
	case c.Substeps < 1:
		return fmt.Errorf("%d: %w", c.Substeps, ErrInvalidSubsteps)
	case c.Workers < 1:
		return fmt.Errorf("%d: %w", c.Workers, ErrInvalidWorkers)
	case c.Broadphase.MaxShapes < 1:
		return fmt.Errorf("%d: %w", c.Broadphase.MaxShapes, ErrInvalidCapacity)
	}

	if c.Contact.Envelope < 0 || c.Contact.FeatureTolerance < 0 || c.Contact.Epsilon < 0 || c.Contact.MaxIterations < 0 {
		return fmt.Errorf("%+v: %w", c.Contact, ErrInvalidContact)
	}
	if c.Solver.MaxIterations < 1 || c.Solver.MaxRestarts < 0 || c.Solver.Epsilon < 0 ||
		c.Solver.Baumgarte < 0 || c.Solver.Baumgarte > 1 || c.Solver.MaxCorrection < 0 || c.Solver.RestitutionThreshold < 0 {
		return fmt.Errorf("%+v: %w", c.Solver, ErrInvalidSolver)
	}
	if c.Sleep.Enabled && (c.Sleep.Time <= 0 || c.Sleep.Velocity <= 0) {
		return fmt.Errorf("%+v: %w", c.Sleep, ErrInvalidSleep)
	}
	return nil
}

// Substep is the duration of a single substep
func (c *Config) Substep() float64 {
	return c.Timestep / float64(c.Substeps)
}

func (c *Config) ContactOptions() contact.Options {
	return contact.Options{
		Envelope:         c.Contact.Envelope,
		FeatureTolerance: c.Contact.FeatureTolerance,
		Epsilon:          c.Contact.Epsilon,
		MaxIterations:    c.Contact.MaxIterations,
	}
}

func (c *Config) NNCG() *solver.NNCG {
	return &solver.NNCG{
		MaxIterations: c.Solver.MaxIterations,
		MaxRestarts:   c.Solver.MaxRestarts,
		Epsilon:       c.Solver.Epsilon,
	}
}

// Params are the constraint parameters of one substep
func (c *Config) Params() constraint.Params {
	return constraint.Params{
		Timestep:             c.Substep(),
		Baumgarte:            c.Solver.Baumgarte,
		MaxCorrection:        c.Solver.MaxCorrection,
		RestitutionThreshold: c.Solver.RestitutionThreshold,
	}
}
