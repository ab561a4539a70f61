package experiment

import (
	"context"
	"errors"
	"fmt"

	"github.com/san-kum/lqrdrive/internal/control"
	"github.com/san-kum/lqrdrive/internal/dynamo"
	"github.com/san-kum/lqrdrive/internal/plant"
	"github.com/san-kum/lqrdrive/internal/riccati"
)

var ErrNotSetup = errors.New("experiment: not set up")

// Config is one offline closed-loop run: a plant, the weights to solve
// for, and how to replay the loop.
type Config struct {
	Plant      string
	Speed      float64
	Wheelbase  float64
	Tuning     control.TunerConfig
	Integrator string
	Controller string
	MaxControl float64
	LaneBound  float64
	InitState  []float64
	Dt         float64
	Duration   float64
	Seed       int64
}

type Experiment struct {
	cfg       Config
	plant     plant.Model
	gain      riccati.Result
	q, r      float64
	simulator *dynamo.Simulator
}

func New(cfg Config) *Experiment {
	return &Experiment{cfg: cfg}
}

// Setup builds the plant, solves for the gain and wires the simulator. A
// failed solve is not an error: the run uses the fallback gain and Gain
// reports it.
func (e *Experiment) Setup(reg *Registry) error {
	p, err := reg.GetPlant(e.cfg.Plant, e.cfg.Speed, e.cfg.Wheelbase)
	if err != nil {
		return err
	}
	tuner, err := control.NewTuner(p, e.cfg.Tuning)
	if err != nil {
		return err
	}
	integrator, err := reg.GetIntegrator(e.cfg.Integrator)
	if err != nil {
		return err
	}

	e.plant = p
	e.gain = tuner.Gain()
	ctrl, err := reg.GetController(e.cfg.Controller, e.gain.K, p, e.cfg.MaxControl)
	if err != nil {
		return err
	}

	e.q, e.r = tuner.Weights()
	e.simulator = dynamo.New(p, integrator, ctrl)
	for _, m := range reg.DefaultMetrics(e.q, e.cfg.Tuning.Secondary, e.r, e.cfg.LaneBound) {
		e.simulator.AddMetric(m)
	}
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*dynamo.Result, error) {
	if e.simulator == nil {
		return nil, ErrNotSetup
	}

	x0 := make(dynamo.State, e.plant.StateDim())
	copy(x0, e.cfg.InitState)

	res, err := e.simulator.Run(ctx, x0, dynamo.Config{
		Dt:            e.cfg.Dt,
		Duration:      e.cfg.Duration,
		Seed:          e.cfg.Seed,
		ValidateState: true,
	})
	if err != nil {
		return res, fmt.Errorf("run %s/%s: %w", e.cfg.Plant, e.cfg.Controller, err)
	}
	return res, nil
}

func (e *Experiment) Config() Config               { return e.cfg }
func (e *Experiment) Plant() plant.Model           { return e.plant }
func (e *Experiment) Gain() riccati.Result         { return e.gain }
func (e *Experiment) Simulator() *dynamo.Simulator { return e.simulator }

// Weights are the (q, r) the gain was solved for, after clamping.
func (e *Experiment) Weights() (q, r float64) { return e.q, e.r }
