package config

import (
	"math"
	"sort"

	"github.com/san-kum/lqrdrive/internal/control"
	"github.com/san-kum/lqrdrive/internal/plant"
)

// Presets are named starting points. Each function returns a fresh copy.
var Presets = map[string]func() *Config{
	// Tight tracking: heavy state penalty, cheap steering.
	"aggressive": func() *Config {
		cfg := DefaultConfig()
		cfg.Tuning.Q, cfg.Tuning.R = 10, 0.1
		return cfg
	},
	// Smooth ride: steering is expensive.
	"comfort": func() *Config {
		cfg := DefaultConfig()
		cfg.Tuning.Q, cfg.Tuning.R = 1, 10
		return cfg
	},
	"game": func() *Config {
		cfg := DefaultConfig()
		cfg.Plant.Speed = 15
		cfg.Tuning.QRange = control.Range{Min: 0.1, Max: 1000}
		cfg.Tuning.RRange = control.Range{Min: 0.01, Max: 100}
		cfg.Sim.Dt = 1.0 / 60
		return cfg
	},
	// Steering servo on the normalized model.
	"racing": func() *Config {
		cfg := DefaultConfig()
		cfg.Plant = PlantConfig{Model: string(plant.Normalized)}
		cfg.Tuning.Secondary = 0.1
		cfg.Actuator.MaxSteerDeg = 35
		cfg.Actuator.HeadingBoundDeg = 0
		cfg.Sim.Dt = 1.0 / 60
		cfg.Sim.InitState = []float64{35 * math.Pi / 180, 0}
		return cfg
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	fn, ok := Presets[name]
	if !ok {
		return nil
	}
	return fn()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
