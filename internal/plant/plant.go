package plant

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/lqrdrive/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// Kind names a plant family.
type Kind string

const (
	Normalized Kind = "normalized"
	Bicycle    Kind = "bicycle"
)

// MinSpeed is the smallest forward speed for which the bicycle model is
// considered controllable.
const MinSpeed = 1e-3

const (
	DefaultSpeed     = 10.0
	DefaultWheelbase = 2.5
)

var ErrUnknownKind = errors.New("plant: unknown model kind")

// Model is a linear plant dx/dt = A x + B u. A is n×n, B is n×m.
// Model values are immutable once built; rebuild when speed or wheelbase
// change.
type Model struct {
	Kind      Kind
	Speed     float64
	Wheelbase float64
	A         *mat.Dense
	B         *mat.Dense
}

// NewNormalized returns the speed-independent (error, error rate) model.
func NewNormalized() Model {
	return Model{
		Kind: Normalized,
		A: mat.NewDense(2, 2, []float64{
			0, 1,
			0, 0,
		}),
		B: mat.NewDense(2, 1, []float64{
			0,
			1,
		}),
	}
}

// NewBicycle returns the linearized lateral/heading model for forward speed
// v and wheelbase L. It does not validate v; see [Model.Degenerate].
func NewBicycle(v, wheelbase float64) Model {
	b := 0.0
	if wheelbase != 0 {
		b = v / wheelbase
	}
	return Model{
		Kind:      Bicycle,
		Speed:     v,
		Wheelbase: wheelbase,
		A: mat.NewDense(2, 2, []float64{
			0, v,
			0, 0,
		}),
		B: mat.NewDense(2, 1, []float64{
			0,
			b,
		}),
	}
}

// Build returns the model named by kind. Speed and wheelbase are ignored
// for the normalized model.
func Build(kind Kind, v, wheelbase float64) (Model, error) {
	switch kind {
	case Normalized:
		return NewNormalized(), nil
	case Bicycle:
		return NewBicycle(v, wheelbase), nil
	default:
		return Model{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// Degenerate reports whether the model is outside its linearization's
// validity: a bicycle model below MinSpeed or with a non-positive wheelbase.
func (m Model) Degenerate() bool {
	if m.Kind != Bicycle {
		return false
	}
	return math.Abs(m.Speed) < MinSpeed || m.Wheelbase <= 0
}

// WithSpeed rebuilds a bicycle model at a new speed. Other kinds are
// returned unchanged.
func (m Model) WithSpeed(v float64) Model {
	if m.Kind != Bicycle {
		return m
	}
	return NewBicycle(v, m.Wheelbase)
}

func (m Model) StateDim() int {
	r, _ := m.A.Dims()
	return r
}

func (m Model) ControlDim() int {
	_, c := m.B.Dims()
	return c
}

// Derive evaluates A x + B u. A nil or short control is treated as zero.
func (m Model) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	n, k := m.StateDim(), m.ControlDim()
	dx := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		sum := 0.0
		for j := 0; j < n && j < len(x); j++ {
			sum += m.A.At(i, j) * x[j]
		}
		for j := 0; j < k && j < len(u); j++ {
			sum += m.B.At(i, j) * u[j]
		}
		dx[i] = sum
	}
	return dx
}

var _ dynamo.System = Model{}
