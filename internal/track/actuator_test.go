package track

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/lqrdrive/internal/control"
	"github.com/san-kum/lqrdrive/internal/plant"
)

func newActuator(t *testing.T, maxAngle float64) *Actuator {
	t.Helper()
	d := newDriver(t, plant.NewNormalized(), control.DefaultTunerConfig(), control.Limits{})
	a, err := NewActuator(d, maxAngle)
	if err != nil {
		t.Fatalf("NewActuator: %v", err)
	}
	return a
}

func TestActuatorSettlesOnTarget(t *testing.T) {
	a := newActuator(t, 35*math.Pi/180)
	target := 20 * math.Pi / 180
	dt := 1.0 / 60

	for i := 0; i < 600; i++ {
		a.Step(target, dt)
	}
	if math.Abs(a.Angle()-target) > 1e-3 {
		t.Errorf("angle = %f, want %f", a.Angle(), target)
	}
	if math.Abs(a.Rate()) > 1e-3 {
		t.Errorf("rate = %f, want about 0", a.Rate())
	}

	for i := 0; i < 600; i++ {
		a.Step(0, dt)
	}
	if math.Abs(a.Angle()) > 1e-3 {
		t.Errorf("angle = %f after release, want about 0", a.Angle())
	}
}

func TestActuatorHoldsLimit(t *testing.T) {
	limit := 35 * math.Pi / 180
	a := newActuator(t, limit)
	for i := 0; i < 600; i++ {
		angle, _ := a.Step(1.0, 1.0/60)
		if math.Abs(angle) > limit {
			t.Fatalf("step %d: angle %f beyond %f", i, angle, limit)
		}
	}
	if math.Abs(a.Angle()-limit) > 1e-3 {
		t.Errorf("angle = %f, want the limit %f", a.Angle(), limit)
	}

	a.Reset()
	if a.Angle() != 0 || a.Rate() != 0 {
		t.Error("reset should centre the wheel")
	}
}

func TestActuatorNeedsNormalizedModel(t *testing.T) {
	d := newDriver(t, plant.NewBicycle(10, 2.5), control.DefaultTunerConfig(), control.Limits{})
	if _, err := NewActuator(d, 1); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("err = %v, want ErrInvalidConfig", err)
	}
	if _, err := NewActuator(nil, 1); !errors.Is(err, ErrNilDependency) {
		t.Errorf("err = %v, want ErrNilDependency", err)
	}
}
