package riccati

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Outcome distinguishes a computed gain from the safety-net default.
type Outcome int

const (
	Solved Outcome = iota
	Fallback
)

func (o Outcome) String() string {
	switch o {
	case Solved:
		return "solved"
	case Fallback:
		return "fallback"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result is the outcome of one LQR solve. K is always usable. P is nil and
// Reason is set when Outcome is Fallback.
type Result struct {
	Outcome Outcome
	K       *mat.Dense
	P       *mat.Dense
	Reason  error
}

// Degraded reports whether K is the fallback gain.
func (r Result) Degraded() bool { return r.Outcome == Fallback }

// Gain returns K flattened row by row.
func (r Result) Gain() []float64 {
	if r.K == nil {
		return nil
	}
	rows, cols := r.K.Dims()
	out := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		out = append(out, mat.Row(nil, i, r.K)...)
	}
	return out
}

// Solve computes the LQR gain for (A, B, Q, R). It does not return an
// error: on any failure the result carries [FallbackGain] and the reason.
func Solve(a, b, q, r mat.Matrix) Result {
	p, err := SolveCARE(a, b, q, r)
	if err != nil {
		return fallback(a, b, err)
	}

	k, err := Gain(b, r, p)
	if err != nil {
		return fallback(a, b, err)
	}

	poles, err := ClosedLoopPoles(a, b, k)
	if err != nil {
		return fallback(a, b, err)
	}
	if abscissa := SpectralAbscissa(poles); abscissa >= 0 {
		return fallback(a, b, fmt.Errorf("%w: spectral abscissa %g", ErrNotStabilizing, abscissa))
	}

	return Result{Outcome: Solved, K: k, P: p}
}

func fallback(a, b mat.Matrix, reason error) Result {
	n, _ := a.Dims()
	_, m := b.Dims()
	if m == 0 {
		m = 1
	}
	return Result{Outcome: Fallback, K: FallbackGain(m, n), Reason: reason}
}

// FallbackGain returns the fixed gain used when no solution is available.
// For the two-state single-input plants it is the mild PD-like gain
// [1.0, 0.5], which stabilizes both the normalized and the bicycle model at
// ordinary speeds. It is a stability safety net, not an optimal or even
// correct LQR gain; other shapes get a zero gain.
func FallbackGain(m, n int) *mat.Dense {
	if m <= 0 || n <= 0 {
		return mat.NewDense(1, 1, nil)
	}
	k := mat.NewDense(m, n, nil)
	if m == 1 && n == 2 {
		k.SetRow(0, []float64{1.0, 0.5})
	}
	return k
}
