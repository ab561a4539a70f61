package integrators

import "github.com/san-kum/lqrdrive/internal/dynamo"

// RK4 is the classic fourth-order Runge-Kutta rule. The control is held
// constant across the step (zero-order hold), matching how the drive loop
// applies one steering command per tick. It serves as the accuracy
// reference when comparing against Euler replays.
type RK4 struct {
	scratch dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) stage(x, k dynamo.State, h float64) dynamo.State {
	if len(r.scratch) != len(x) {
		r.scratch = make(dynamo.State, len(x))
	}
	for i := range x {
		r.scratch[i] = x[i] + h*k[i]
	}
	return r.scratch
}

func (r *RK4) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	half := dt * 0.5

	k1 := dyn.Derive(x, u, t).Clone()
	k2 := dyn.Derive(r.stage(x, k1, half), u, t+half).Clone()
	k3 := dyn.Derive(r.stage(x, k2, half), u, t+half).Clone()
	k4 := dyn.Derive(r.stage(x, k3, dt), u, t+dt)

	result := make(dynamo.State, len(x))
	dt6 := dt / 6.0
	for i := range x {
		result[i] = x[i] + dt6*(k1[i]+2*k2[i]+2*k3[i]+k4[i])
	}

	return result
}
