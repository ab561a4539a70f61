package track

import (
	"math"

	"github.com/san-kum/lqrdrive/internal/control"
	"github.com/san-kum/lqrdrive/internal/dynamo"
	"github.com/san-kum/lqrdrive/internal/plant"
)

// Actuator is the steering servo: it drives the steering angle toward a
// commanded target through an LQR loop on the normalized model, with state
// (angle − target, angular rate) and the angular acceleration as input.
// The angle is held within ±MaxAngle.
type Actuator struct {
	driver   *control.Driver
	MaxAngle float64

	angle float64
	rate  float64
}

// NewActuator wraps a driver whose tuner runs the normalized model.
func NewActuator(driver *control.Driver, maxAngle float64) (*Actuator, error) {
	if driver == nil {
		return nil, ErrNilDependency
	}
	if driver.Tuner().Plant().Kind != plant.Normalized {
		return nil, ErrInvalidConfig
	}
	return &Actuator{driver: driver, MaxAngle: maxAngle}, nil
}

func (a *Actuator) Angle() float64 { return a.angle }
func (a *Actuator) Rate() float64  { return a.rate }

// Reset centres the wheel and restarts the loop.
func (a *Actuator) Reset() {
	a.angle, a.rate = 0, 0
	a.driver.Start()
}

// Step moves the steering toward target for dt seconds and returns the new
// angle.
func (a *Actuator) Step(target, dt float64) (float64, control.Output) {
	if a.driver.Mode() != control.Active {
		a.driver.Start()
	}
	target = math.Max(-a.MaxAngle, math.Min(a.MaxAngle, target))

	out := a.driver.Tick(dynamo.State{a.angle - target, a.rate}, dt)
	if out.Terminated {
		a.rate = 0
		return a.angle, out
	}

	a.angle = target + out.Predicted[0]
	a.rate = out.Predicted[1]
	if math.Abs(a.angle) > a.MaxAngle {
		a.angle = math.Copysign(a.MaxAngle, a.angle)
		a.rate = 0
	}
	return a.angle, out
}
