package integrators

import "github.com/san-kum/lqrdrive/internal/dynamo"

// Euler is the explicit first-order rule x_next = x + dt*f(x, u, t).
// It is only accurate when dt is small against the plant's time constants;
// fast feedback can make it diverge even when the continuous loop is stable.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t float64, dt float64) dynamo.State {
	dx := dyn.Derive(x, u, t)
	result := make(dynamo.State, len(x))
	for i := range x {
		result[i] = x[i] + dt*dx[i]
	}
	return result
}
