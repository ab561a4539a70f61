package control

import (
	"github.com/san-kum/lqrdrive/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// LQR applies u = −K(x − target).
type LQR struct {
	K      mat.Matrix
	Target dynamo.State
}

func NewLQR(k mat.Matrix, target dynamo.State) *LQR {
	return &LQR{K: k, Target: target}
}

func (l *LQR) Compute(x dynamo.State, t float64) dynamo.Control {
	if len(l.Target) == 0 {
		return Feedback(l.K, x)
	}
	return Feedback(l.K, x.Sub(l.Target))
}

// Feedback returns −Kx. Components of x beyond K's width are ignored and
// missing ones count as zero.
func Feedback(k mat.Matrix, x dynamo.State) dynamo.Control {
	rows, cols := k.Dims()
	u := make(dynamo.Control, rows)
	for i := range u {
		for j := 0; j < cols && j < len(x); j++ {
			u[i] -= k.At(i, j) * x[j]
		}
	}
	return u
}

// Saturated clamps another controller's output to ±Limit.
type Saturated struct {
	Inner dynamo.Controller
	Limit float64
}

func NewSaturated(inner dynamo.Controller, limit float64) *Saturated {
	return &Saturated{Inner: inner, Limit: limit}
}

func (s *Saturated) Compute(x dynamo.State, t float64) dynamo.Control {
	u, _ := s.Inner.Compute(x, t).Clamp(s.Limit)
	return u
}
