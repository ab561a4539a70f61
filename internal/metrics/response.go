package metrics

import (
	"math"

	"github.com/san-kum/lqrdrive/internal/dynamo"
)

// SettlingTime is the last time the lateral error was outside a band of
// Fraction·|e0| around zero. A run that never leaves the band settles at
// its first sample.
type SettlingTime struct {
	Fraction float64

	e0      float64
	last    float64
	samples int
}

func NewSettlingTime(fraction float64) *SettlingTime {
	return &SettlingTime{Fraction: fraction}
}

func (s *SettlingTime) Name() string { return "settling_time" }

func (s *SettlingTime) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if len(x) == 0 {
		return
	}
	if s.samples == 0 {
		s.e0 = math.Abs(x[0])
		s.last = t
	}
	s.samples++
	if math.Abs(x[0]) > s.Fraction*s.e0 {
		s.last = t
	}
}

func (s *SettlingTime) Value() float64 { return s.last }

func (s *SettlingTime) Reset() {
	s.e0, s.last, s.samples = 0, 0, 0
}

// PeakOvershoot is the largest excursion of the lateral error past zero,
// on the side opposite its initial value, relative to |e0|.
type PeakOvershoot struct {
	e0   float64
	peak float64
	seen bool
}

func NewPeakOvershoot() *PeakOvershoot { return &PeakOvershoot{} }

func (p *PeakOvershoot) Name() string { return "peak_overshoot" }

func (p *PeakOvershoot) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if len(x) == 0 {
		return
	}
	if !p.seen {
		p.e0 = x[0]
		p.seen = true
		return
	}
	if p.e0 == 0 {
		return
	}
	// positive when x[0] is on the other side of zero from e0
	if past := -x[0] * math.Copysign(1, p.e0); past > p.peak {
		p.peak = past
	}
}

func (p *PeakOvershoot) Value() float64 {
	if p.e0 == 0 {
		return 0
	}
	return p.peak / math.Abs(p.e0)
}

func (p *PeakOvershoot) Reset() {
	p.e0, p.peak, p.seen = 0, 0, false
}
