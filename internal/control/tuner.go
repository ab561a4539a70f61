package control

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/lqrdrive/internal/plant"
	"github.com/san-kum/lqrdrive/internal/riccati"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrInvalidTuning = errors.New("control: invalid tuning configuration")
	ErrNoTuner       = errors.New("control: driver needs a tuner")
)

// Range is the closed interval a weight is confined to.
type Range struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

func (r Range) Clamp(v float64) float64 {
	return math.Min(math.Max(v, r.Min), r.Max)
}

func (r Range) valid() bool {
	return r.Min > 0 && r.Min <= r.Max && !math.IsInf(r.Max, 0)
}

// TunerConfig parameterizes Q = diag(q, secondary, ...) and R = r·I.
type TunerConfig struct {
	Q         float64
	R         float64
	Factor    float64
	QRange    Range
	RRange    Range
	Secondary float64
}

// DefaultTunerConfig matches the gain service defaults on the normalized
// model.
func DefaultTunerConfig() TunerConfig {
	return TunerConfig{
		Q:         10,
		R:         1,
		Factor:    1.5,
		QRange:    Range{Min: 0.1, Max: 5000},
		RRange:    Range{Min: 0.01, Max: 1000},
		Secondary: 0.1,
	}
}

func (c TunerConfig) Validate() error {
	switch {
	case !c.QRange.valid():
		return fmt.Errorf("%w: q range [%g, %g]", ErrInvalidTuning, c.QRange.Min, c.QRange.Max)
	case !c.RRange.valid():
		return fmt.Errorf("%w: r range [%g, %g]", ErrInvalidTuning, c.RRange.Min, c.RRange.Max)
	case !(c.Factor > 1) || math.IsInf(c.Factor, 0):
		return fmt.Errorf("%w: factor %g must be greater than 1", ErrInvalidTuning, c.Factor)
	case !(c.Secondary >= 0) || math.IsInf(c.Secondary, 0):
		return fmt.Errorf("%w: secondary weight %g", ErrInvalidTuning, c.Secondary)
	}
	return nil
}

// Tuner owns the LQR weights for one plant and caches the gain solved for
// them. Every change that affects A, B, Q or R marks the cache stale and
// the next call to Gain re-solves, so a stale K is never handed out.
type Tuner struct {
	cfg    TunerConfig
	plant  plant.Model
	q, r   float64
	stale  bool
	result riccati.Result
	solves int
}

// NewTuner validates cfg and clamps its initial weights into range.
func NewTuner(p plant.Model, cfg TunerConfig) (*Tuner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if p.A == nil || p.B == nil {
		return nil, fmt.Errorf("%w: plant has no matrices", ErrInvalidTuning)
	}
	t := &Tuner{cfg: cfg, plant: p, stale: true}
	t.q = cfg.QRange.Clamp(nonNaN(cfg.Q, cfg.QRange.Min))
	t.r = cfg.RRange.Clamp(nonNaN(cfg.R, cfg.RRange.Min))
	return t, nil
}

func nonNaN(v, fallback float64) float64 {
	if math.IsNaN(v) {
		return fallback
	}
	return v
}

func (t *Tuner) IncreaseQ() { t.setQ(t.q * t.cfg.Factor) }
func (t *Tuner) DecreaseQ() { t.setQ(t.q / t.cfg.Factor) }
func (t *Tuner) IncreaseR() { t.setR(t.r * t.cfg.Factor) }
func (t *Tuner) DecreaseR() { t.setR(t.r / t.cfg.Factor) }

// SetWeights sets both weights, clamped into range. NaN leaves a weight
// unchanged.
func (t *Tuner) SetWeights(q, r float64) {
	t.setQ(q)
	t.setR(r)
}

func (t *Tuner) setQ(v float64) {
	if math.IsNaN(v) {
		return
	}
	if v = t.cfg.QRange.Clamp(v); v != t.q {
		t.q = v
		t.stale = true
	}
}

func (t *Tuner) setR(v float64) {
	if math.IsNaN(v) {
		return
	}
	if v = t.cfg.RRange.Clamp(v); v != t.r {
		t.r = v
		t.stale = true
	}
}

// SetPlant replaces the plant, e.g. after a speed change.
func (t *Tuner) SetPlant(p plant.Model) {
	t.plant = p
	t.stale = true
}

func (t *Tuner) Weights() (q, r float64) { return t.q, t.r }
func (t *Tuner) Plant() plant.Model      { return t.plant }
func (t *Tuner) Config() TunerConfig     { return t.cfg }

// Stale reports whether the next Gain call will re-solve.
func (t *Tuner) Stale() bool { return t.stale }

// Solves counts the Riccati solves performed so far.
func (t *Tuner) Solves() int { return t.solves }

// Q returns diag(q, secondary, ...) sized for the current plant.
func (t *Tuner) Q() *mat.Dense {
	n := t.plant.StateDim()
	diag := make([]float64, n)
	for i := range diag {
		diag[i] = t.cfg.Secondary
	}
	if n > 0 {
		diag[0] = t.q
	}
	return diagonal(diag)
}

// R returns r·I sized for the current plant.
func (t *Tuner) R() *mat.Dense {
	m := t.plant.ControlDim()
	diag := make([]float64, m)
	for i := range diag {
		diag[i] = t.r
	}
	return diagonal(diag)
}

// Gain returns the gain for the current weights and plant, solving first
// if anything changed since the last call. The returned matrices are
// shared with the cache and must not be modified.
func (t *Tuner) Gain() riccati.Result {
	if t.stale {
		t.result = riccati.Solve(t.plant.A, t.plant.B, t.Q(), t.R())
		t.stale = false
		t.solves++
	}
	return t.result
}

func diagonal(d []float64) *mat.Dense {
	m := mat.NewDense(len(d), len(d), nil)
	for i, v := range d {
		m.Set(i, i, v)
	}
	return m
}
