package experiment

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/lqrdrive/internal/control"
)

func laneConfig(controller string) Config {
	tuning := control.DefaultTunerConfig()
	tuning.Q, tuning.R, tuning.Secondary = 10, 0.1, 1
	return Config{
		Plant:      "bicycle",
		Speed:      10,
		Wheelbase:  2.5,
		Tuning:     tuning,
		Integrator: "euler",
		Controller: controller,
		MaxControl: 30 * math.Pi / 180,
		LaneBound:  10,
		InitState:  []float64{2, 0},
		Dt:         0.01,
		Duration:   10,
	}
}

func run(t *testing.T, cfg Config) (*Experiment, map[string]float64) {
	t.Helper()
	exp := New(cfg)
	if err := exp.Setup(NewRegistry()); err != nil {
		t.Fatalf("setup: %v", err)
	}
	res, err := exp.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.StepsTaken != 1000 {
		t.Fatalf("took %d steps, want 1000", res.StepsTaken)
	}
	return exp, res.Metrics
}

func TestRunWithoutSetup(t *testing.T) {
	if _, err := New(laneConfig("lqr")).Run(context.Background()); !errors.Is(err, ErrNotSetup) {
		t.Errorf("err = %v, want ErrNotSetup", err)
	}
}

func TestSetupRejectsUnknownNames(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"plant", func(c *Config) { c.Plant = "hovercraft" }},
		{"integrator", func(c *Config) { c.Integrator = "verlet" }},
		{"controller", func(c *Config) { c.Controller = "pid" }},
		{"tuning", func(c *Config) { c.Tuning.Factor = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := laneConfig("lqr")
			tt.modify(&cfg)
			if err := New(cfg).Setup(NewRegistry()); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestUncontrolledRunHoldsError(t *testing.T) {
	_, m := run(t, laneConfig("none"))

	// 999 intervals of q·e² = 40
	if math.Abs(m["cost"]-399.6) > 1e-9 {
		t.Errorf("cost = %f, want 399.6", m["cost"])
	}
	if m["control_effort"] != 0 {
		t.Errorf("control effort = %f, want 0", m["control_effort"])
	}
	if m["stability"] != 1 {
		t.Errorf("stability = %f, want 1", m["stability"])
	}
}

func TestLQRBeatsSaturatedAndUncontrolled(t *testing.T) {
	exp, lqr := run(t, laneConfig("lqr"))
	if exp.Gain().Degraded() {
		t.Fatalf("unexpected fallback: %v", exp.Gain().Reason)
	}
	_, sat := run(t, laneConfig("saturated"))
	_, none := run(t, laneConfig("none"))

	if !(lqr["cost"] < sat["cost"] && sat["cost"] < none["cost"]) {
		t.Errorf("costs lqr=%f saturated=%f none=%f not ordered", lqr["cost"], sat["cost"], none["cost"])
	}
	if lqr["settling_time"] >= sat["settling_time"] {
		t.Errorf("settling lqr=%f saturated=%f", lqr["settling_time"], sat["settling_time"])
	}
	if lqr["settling_time"] > 0.5 {
		t.Errorf("lqr settling time %f", lqr["settling_time"])
	}
	if lqr["peak_overshoot"] > 0.1 {
		t.Errorf("lqr overshoot %f", lqr["peak_overshoot"])
	}
}

func TestRK4AgreesWithEuler(t *testing.T) {
	cfg := laneConfig("lqr")
	_, euler := run(t, cfg)
	cfg.Integrator = "rk4"
	_, rk4 := run(t, cfg)

	if math.Abs(euler["cost"]-rk4["cost"]) > 0.15*euler["cost"] {
		t.Errorf("cost euler=%f rk4=%f", euler["cost"], rk4["cost"])
	}
}

func TestDegeneratePlantUsesFallback(t *testing.T) {
	cfg := laneConfig("lqr")
	cfg.Speed = 0
	exp := New(cfg)
	if err := exp.Setup(NewRegistry()); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if !exp.Gain().Degraded() {
		t.Error("expected the fallback gain")
	}
}

func TestRegistryLists(t *testing.T) {
	r := NewRegistry()
	if got := r.ListControllers(); len(got) != 3 || got[0] != "lqr" || got[1] != "none" || got[2] != "saturated" {
		t.Errorf("controllers = %v", got)
	}
	if got := r.ListIntegrators(); len(got) != 2 || got[0] != "euler" || got[1] != "rk4" {
		t.Errorf("integrators = %v", got)
	}
}
