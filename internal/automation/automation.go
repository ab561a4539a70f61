// Package automation runs scripted scenarios and Monte Carlo robustness
// checks over the offline closed loop.
package automation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/san-kum/lqrdrive/internal/dynamo"
	"github.com/san-kum/lqrdrive/internal/experiment"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"
)

var ErrEmptyScenario = errors.New("automation: scenario has no steps")

// Scenario is a scripted batch of closed-loop runs. Every step starts
// from the base experiment and overrides only the fields it sets.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Steps       []Step `yaml:"steps"`
}

type Step struct {
	Name       string    `yaml:"name"`
	Speed      float64   `yaml:"speed"`
	Q          float64   `yaml:"q"`
	R          float64   `yaml:"r"`
	Integrator string    `yaml:"integrator"`
	Controller string    `yaml:"controller"`
	InitState  []float64 `yaml:"init_state"`
	Duration   float64   `yaml:"duration"`
	Dt         float64   `yaml:"dt"`
	Save       bool      `yaml:"save"`
}

// Apply returns base with the step's non-zero fields written over it.
func (s Step) Apply(base experiment.Config) experiment.Config {
	cfg := base
	if s.Speed != 0 {
		cfg.Speed = s.Speed
	}
	if s.Q != 0 {
		cfg.Tuning.Q = s.Q
	}
	if s.R != 0 {
		cfg.Tuning.R = s.R
	}
	if s.Integrator != "" {
		cfg.Integrator = s.Integrator
	}
	if s.Controller != "" {
		cfg.Controller = s.Controller
	}
	if len(s.InitState) > 0 {
		cfg.InitState = append([]float64(nil), s.InitState...)
	}
	if s.Duration != 0 {
		cfg.Duration = s.Duration
	}
	if s.Dt != 0 {
		cfg.Dt = s.Dt
	}
	return cfg
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	if len(sc.Steps) == 0 {
		return nil, ErrEmptyScenario
	}
	return &sc, nil
}

type StepResult struct {
	Step       Step
	Experiment *experiment.Experiment
	Result     *dynamo.Result
}

// RunScenario runs the steps in order and stops at the first step that
// cannot be set up or run. Results of the completed steps are returned
// with the error.
func RunScenario(ctx context.Context, sc *Scenario, base experiment.Config, reg *experiment.Registry, logger *log.Logger) ([]StepResult, error) {
	if len(sc.Steps) == 0 {
		return nil, ErrEmptyScenario
	}
	if logger == nil {
		logger = log.Default()
	}

	results := make([]StepResult, 0, len(sc.Steps))
	for i, step := range sc.Steps {
		logger.Info("running step", "n", i+1, "of", len(sc.Steps), "name", step.Name)

		exp := experiment.New(step.Apply(base))
		if err := exp.Setup(reg); err != nil {
			return results, fmt.Errorf("step %d (%s) setup: %w", i+1, step.Name, err)
		}
		res, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d (%s): %w", i+1, step.Name, err)
		}
		results = append(results, StepResult{Step: step, Experiment: exp, Result: res})
	}
	return results, nil
}

// MonteCarloConfig perturbs each initial state component uniformly by up
// to ±Perturbation[i] around the base experiment's initial state.
type MonteCarloConfig struct {
	Trials       int
	Perturbation []float64
	// SettleTol is the largest final |e| that still counts as settled.
	SettleTol float64
	// Seed 0 seeds from the clock.
	Seed int64
}

type Trial struct {
	ID        int
	InitState dynamo.State
	Final     dynamo.State
	MaxError  float64
	KeptLane  bool
	Settled   bool
}

// RunMonteCarlo replays the base experiment from perturbed initial states
// in parallel. A trial keeps the lane when the run finished without a
// numerical failure and |e| never exceeded base.LaneBound.
func RunMonteCarlo(ctx context.Context, base experiment.Config, mc MonteCarloConfig, reg *experiment.Registry) ([]Trial, error) {
	if mc.Trials <= 0 {
		return nil, fmt.Errorf("monte carlo: %d trials", mc.Trials)
	}

	seed := mc.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	trials := make([]Trial, mc.Trials)
	for i := range trials {
		x0 := make(dynamo.State, max(len(base.InitState), len(mc.Perturbation)))
		copy(x0, base.InitState)
		for j, p := range mc.Perturbation {
			x0[j] += (rng.Float64()*2 - 1) * p
		}
		trials[i] = Trial{ID: i, InitState: x0}
	}

	errs := make([]error, mc.Trials)
	dynamo.ParallelFor(mc.Trials, 1, func(start, end int) {
		for i := start; i < end; i++ {
			errs[i] = runTrial(ctx, base, mc.SettleTol, reg, &trials[i])
		}
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("trial %d: %w", i, err)
		}
	}
	return trials, nil
}

func runTrial(ctx context.Context, base experiment.Config, tol float64, reg *experiment.Registry, t *Trial) error {
	cfg := base
	cfg.InitState = t.InitState
	exp := experiment.New(cfg)
	if err := exp.Setup(reg); err != nil {
		return err
	}
	res, err := exp.Run(ctx)
	if err != nil {
		return err
	}

	for _, x := range res.States {
		t.MaxError = math.Max(t.MaxError, math.Abs(x[0]))
	}
	if n := len(res.States); n > 0 {
		t.Final = res.States[n-1]
	}
	t.KeptLane = len(res.Errors) == 0 && (base.LaneBound <= 0 || t.MaxError <= base.LaneBound)
	t.Settled = t.KeptLane && len(t.Final) > 0 && math.Abs(t.Final[0]) <= tol
	return nil
}

func Stats(trials []Trial) (kept, lost, settled int) {
	for _, t := range trials {
		if t.KeptLane {
			kept++
		} else {
			lost++
		}
		if t.Settled {
			settled++
		}
	}
	return kept, lost, settled
}

// ErrorSpread is the mean and sample standard deviation of the trials'
// peak |e|.
func ErrorSpread(trials []Trial) (mean, std float64) {
	peaks := make([]float64, len(trials))
	for i, t := range trials {
		peaks[i] = t.MaxError
	}
	return stat.MeanStdDev(peaks, nil)
}
