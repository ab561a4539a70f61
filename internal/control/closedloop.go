package control

import (
	"github.com/san-kum/lqrdrive/internal/dynamo"
	"github.com/san-kum/lqrdrive/internal/integrators"
	"github.com/san-kum/lqrdrive/internal/plant"
	"gonum.org/v1/gonum/mat"
)

var euler = integrators.NewEuler()

// Step advances x by one forward-Euler step of the plant under u = −Kx and
// returns the new state and the applied control. x is not modified.
//
// The control is not clamped; actuator limits belong to the caller. dt must
// be small against the closed-loop time constants or the discrete loop can
// diverge even though the continuous one is stable.
func Step(x dynamo.State, k mat.Matrix, p plant.Model, dt float64) (dynamo.State, dynamo.Control) {
	u := Feedback(k, x)
	return euler.Step(p, x, u, 0, dt), u
}

// Simulate replays steps closed-loop Euler steps from x0 with a fixed dt.
// The result holds steps+1 states and steps controls unless the state
// stops being finite, in which case the run ends early with an error
// recorded.
func Simulate(x0 dynamo.State, k mat.Matrix, p plant.Model, dt float64, steps int) *dynamo.Result {
	res := &dynamo.Result{
		States:   make([]dynamo.State, 0, steps+1),
		Controls: make([]dynamo.Control, 0, steps),
		Times:    make([]float64, 0, steps+1),
		Metrics:  make(map[string]float64),
	}

	x := x0.Clone()
	res.States = append(res.States, x)
	res.Times = append(res.Times, 0)

	for i := 0; i < steps; i++ {
		next, u := Step(x, k, p, dt)
		if !next.IsValid() {
			res.Errors = append(res.Errors, &dynamo.SimError{
				Step: i, Time: float64(i) * dt, Message: "closed loop diverged", Wrapped: dynamo.ErrInvalidState,
			})
			break
		}
		x = next
		res.StepsTaken++
		res.States = append(res.States, x)
		res.Controls = append(res.Controls, u)
		res.Times = append(res.Times, float64(i+1)*dt)
	}

	return res
}
