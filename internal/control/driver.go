package control

import (
	"fmt"
	"math"

	"github.com/charmbracelet/log"
	"github.com/san-kum/lqrdrive/internal/dynamo"
	"github.com/san-kum/lqrdrive/internal/plant"
	"github.com/san-kum/lqrdrive/internal/riccati"
)

// Mode is the driver's run state.
type Mode int

const (
	// Idle: waiting for Start, or stopped after a terminal condition.
	Idle Mode = iota
	// Active: a gain is in place and every tick produces a command.
	Active
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case Active:
		return "active"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Limits bound the loop. MaxControl clamps every command component to
// ±MaxControl; zero disables clamping. SafetyBound[i] ends the run when
// |x[i]| exceeds it; zero or missing entries are not checked.
type Limits struct {
	MaxControl  float64
	SafetyBound dynamo.State
}

// Output is what one tick hands back to the caller.
type Output struct {
	// U is the clamped command to apply.
	U dynamo.Control
	// Raw is −Kx before clamping.
	Raw dynamo.Control
	// Predicted is the one-step Euler prediction of the error state under U.
	Predicted dynamo.State

	Saturated  bool
	Terminated bool
	Mode       Mode
	Degraded   bool
}

// Driver maps observed error states to clamped commands, one call per tick.
// It does not own the vehicle: the caller observes, applies U and decides
// what a termination means.
type Driver struct {
	tuner    *Tuner
	limits   Limits
	logger   *log.Logger
	mode     Mode
	degraded bool
	ticks    int
}

func NewDriver(tuner *Tuner, limits Limits, logger *log.Logger) (*Driver, error) {
	if tuner == nil {
		return nil, ErrNoTuner
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Driver{
		tuner:  tuner,
		limits: limits,
		logger: logger,
	}, nil
}

// Start solves for the current gain and enters Active.
func (d *Driver) Start() riccati.Result {
	res := d.refresh()
	d.mode = Active
	d.ticks = 0
	q, r := d.tuner.Weights()
	d.logger.Info("control loop started", "q", q, "r", r, "K", res.Gain(), "outcome", res.Outcome)
	return res
}

// Stop returns to Idle without reporting a termination.
func (d *Driver) Stop() {
	d.mode = Idle
}

func (d *Driver) Mode() Mode     { return d.mode }
func (d *Driver) Tuner() *Tuner  { return d.tuner }
func (d *Driver) Limits() Limits { return d.limits }
func (d *Driver) Ticks() int     { return d.ticks }

// SetSpeed rebuilds a bicycle plant for forward speed v. Speeds at or
// below plant.MinSpeed are refused since the linearization has no
// control authority there; the previous plant stays in use.
func (d *Driver) SetSpeed(v float64) {
	p := d.tuner.Plant()
	if p.Kind != plant.Bicycle || p.Speed == v {
		return
	}
	if !(v > plant.MinSpeed) {
		d.logger.Warn("ignoring speed below controllable minimum", "speed", v, "min", plant.MinSpeed)
		return
	}
	d.tuner.SetPlant(p.WithSpeed(v))
}

// Tick maps the observed error state to a command. In Idle it returns a
// zero command. A state outside the safety bound ends the run: the driver
// drops to Idle and reports Terminated.
func (d *Driver) Tick(observed dynamo.State, dt float64) Output {
	zero := make(dynamo.Control, d.tuner.Plant().ControlDim())
	if d.mode == Idle {
		return Output{U: zero, Mode: Idle, Degraded: d.degraded}
	}

	if d.breached(observed) {
		d.mode = Idle
		d.logger.Info("control loop terminated", "state", []float64(observed), "ticks", d.ticks)
		return Output{U: zero, Terminated: true, Mode: Idle, Degraded: d.degraded}
	}

	res := d.refresh()
	p := d.tuner.Plant()
	predicted, raw := Step(observed, res.K, p, dt)
	u, saturated := raw.Clamp(d.limits.MaxControl)
	if saturated {
		predicted = euler.Step(p, observed, u, 0, dt)
	}
	d.ticks++

	return Output{
		U:         u,
		Raw:       raw,
		Predicted: predicted,
		Saturated: saturated,
		Mode:      Active,
		Degraded:  res.Degraded(),
	}
}

func (d *Driver) breached(x dynamo.State) bool {
	if !x.IsValid() {
		return true
	}
	for i, bound := range d.limits.SafetyBound {
		if bound > 0 && i < len(x) && math.Abs(x[i]) > bound {
			return true
		}
	}
	return false
}

// refresh pulls the current gain and logs transitions into and out of
// the fallback gain.
func (d *Driver) refresh() riccati.Result {
	res := d.tuner.Gain()
	switch {
	case res.Degraded() && !d.degraded:
		d.logger.Warn("riccati solve failed, using fallback gain", "reason", res.Reason, "K", res.Gain())
	case !res.Degraded() && d.degraded:
		d.logger.Info("riccati solve recovered", "K", res.Gain())
	}
	d.degraded = res.Degraded()
	return res
}
