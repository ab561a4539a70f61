package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/san-kum/lqrdrive/internal/control"
	"github.com/san-kum/lqrdrive/internal/dynamo"
	"github.com/san-kum/lqrdrive/internal/experiment"
	"github.com/san-kum/lqrdrive/internal/plant"
	"github.com/san-kum/lqrdrive/internal/track"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDt          = 0.01
	DefaultDuration    = 10.0
	DefaultMaxSteerDeg = 30.0
	DefaultAddr        = ":8080"
	DefaultRecordPath  = "highscore.txt"
	DefaultDataDir     = "runs"
)

var ErrInvalid = errors.New("config: invalid configuration")

type Config struct {
	Plant      PlantConfig    `yaml:"plant"`
	Tuning     TuningConfig   `yaml:"tuning"`
	Actuator   ActuatorConfig `yaml:"actuator"`
	Sim        SimConfig      `yaml:"sim"`
	Track      track.Config   `yaml:"track"`
	Server     ServerConfig   `yaml:"server"`
	RecordPath string         `yaml:"record_path"`
	DataDir    string         `yaml:"data_dir"`
}

type PlantConfig struct {
	Model     string  `yaml:"model"`
	Speed     float64 `yaml:"speed"`
	Wheelbase float64 `yaml:"wheelbase"`
}

type TuningConfig struct {
	Q         float64       `yaml:"q"`
	R         float64       `yaml:"r"`
	Factor    float64       `yaml:"factor"`
	Secondary float64       `yaml:"secondary"`
	QRange    control.Range `yaml:"q_range"`
	RRange    control.Range `yaml:"r_range"`
}

// ActuatorConfig bounds the command and the states the loop may reach
// before a run is ended. Zero bounds are not checked.
type ActuatorConfig struct {
	MaxSteerDeg     float64 `yaml:"max_steer_deg"`
	LateralBound    float64 `yaml:"lateral_bound"`
	HeadingBoundDeg float64 `yaml:"heading_bound_deg"`
}

type SimConfig struct {
	Integrator string    `yaml:"integrator"`
	Controller string    `yaml:"controller"`
	Dt         float64   `yaml:"dt"`
	Duration   float64   `yaml:"duration"`
	Seed       int64     `yaml:"seed"`
	InitState  []float64 `yaml:"init_state"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

func DefaultConfig() *Config {
	return &Config{
		Plant: PlantConfig{
			Model:     string(plant.Bicycle),
			Speed:     plant.DefaultSpeed,
			Wheelbase: plant.DefaultWheelbase,
		},
		Tuning: TuningConfig{
			Q:         10,
			R:         1,
			Factor:    1.5,
			Secondary: 1,
			QRange:    control.Range{Min: 0.1, Max: 5000},
			RRange:    control.Range{Min: 0.01, Max: 1000},
		},
		Actuator: ActuatorConfig{
			MaxSteerDeg:     DefaultMaxSteerDeg,
			HeadingBoundDeg: 85,
		},
		Sim: SimConfig{
			Integrator: "euler",
			Controller: "lqr",
			Dt:         DefaultDt,
			Duration:   DefaultDuration,
			InitState:  []float64{2, 0},
		},
		Track:      track.DefaultConfig(),
		Server:     ServerConfig{Addr: DefaultAddr},
		RecordPath: DefaultRecordPath,
		DataDir:    DefaultDataDir,
	}
}

// Load reads a YAML file over the defaults, so a file only needs the
// fields it changes.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
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

func (c *Config) Validate() error {
	if _, err := c.BuildPlant(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := c.TunerConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Sim.Dt <= 0 || c.Sim.Duration <= 0 {
		return fmt.Errorf("%w: dt %g and duration %g must be positive", ErrInvalid, c.Sim.Dt, c.Sim.Duration)
	}
	if c.Actuator.MaxSteerDeg < 0 || c.Actuator.MaxSteerDeg >= 90 {
		return fmt.Errorf("%w: max steer %g°", ErrInvalid, c.Actuator.MaxSteerDeg)
	}
	if err := c.Track.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// BuildPlant builds the configured plant. A bicycle model at or below
// plant.MinSpeed is rejected here rather than left to the solver.
func (c *Config) BuildPlant() (plant.Model, error) {
	p, err := plant.Build(plant.Kind(c.Plant.Model), c.Plant.Speed, c.Plant.Wheelbase)
	if err != nil {
		return plant.Model{}, err
	}
	if p.Degenerate() {
		return plant.Model{}, fmt.Errorf("bicycle model needs speed > %g and wheelbase > 0, got v=%g L=%g",
			plant.MinSpeed, c.Plant.Speed, c.Plant.Wheelbase)
	}
	return p, nil
}

func (c *Config) TunerConfig() control.TunerConfig {
	return control.TunerConfig{
		Q:         c.Tuning.Q,
		R:         c.Tuning.R,
		Factor:    c.Tuning.Factor,
		QRange:    c.Tuning.QRange,
		RRange:    c.Tuning.RRange,
		Secondary: c.Tuning.Secondary,
	}
}

// MaxSteer is the actuator limit in radians.
func (c *Config) MaxSteer() float64 {
	return c.Actuator.MaxSteerDeg * math.Pi / 180
}

func (c *Config) Limits() control.Limits {
	return control.Limits{
		MaxControl:  c.MaxSteer(),
		SafetyBound: dynamo.State{c.Actuator.LateralBound, c.Actuator.HeadingBoundDeg * math.Pi / 180},
	}
}

// InitState returns the initial error state (e, θ) or (e, ė), padded with
// zeros.
func (c *Config) InitState() dynamo.State {
	x := make(dynamo.State, 2)
	copy(x, c.Sim.InitState)
	return x
}

// Experiment is the offline run described by the sim section.
func (c *Config) Experiment() experiment.Config {
	return experiment.Config{
		Plant:      c.Plant.Model,
		Speed:      c.Plant.Speed,
		Wheelbase:  c.Plant.Wheelbase,
		Tuning:     c.TunerConfig(),
		Integrator: c.Sim.Integrator,
		Controller: c.Sim.Controller,
		MaxControl: c.MaxSteer(),
		LaneBound:  c.Track.HalfWidth,
		InitState:  c.InitState(),
		Dt:         c.Sim.Dt,
		Duration:   c.Sim.Duration,
		Seed:       c.Sim.Seed,
	}
}
