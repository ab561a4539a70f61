package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/lqrdrive/internal/dynamo"
)

func feed(m dynamo.Metric, xs []float64, us []float64) {
	for i, e := range xs {
		u := dynamo.Control{}
		if i < len(us) {
			u = dynamo.Control{us[i]}
		}
		m.Observe(dynamo.State{e, 0}, u, float64(i)*0.1)
	}
}

func TestControlEffort(t *testing.T) {
	m := NewControlEffort()
	if m.Value() != 0 {
		t.Errorf("expected 0 before samples, got %f", m.Value())
	}
	feed(m, []float64{0, 0}, []float64{1, -3})
	if m.Value() != 2 {
		t.Errorf("expected mean |u| 2, got %f", m.Value())
	}
	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero after reset")
	}
}

func TestStability(t *testing.T) {
	m := NewStability(1.0)
	if m.Value() != 1 {
		t.Errorf("expected 1 with no samples, got %f", m.Value())
	}
	feed(m, []float64{0.5, 2, -0.2, math.NaN()}, nil)
	if m.Value() != 0.5 {
		t.Errorf("expected 0.5, got %f", m.Value())
	}
}

func TestCost(t *testing.T) {
	m := NewCost([]float64{2, 0}, []float64{1})
	feed(m, []float64{1, 1, 2}, []float64{0, 1, 0})

	// (2·1 + 1·1)·0.1 + (2·4)·0.1
	if math.Abs(m.Value()-1.1) > 1e-12 {
		t.Errorf("expected 1.1, got %f", m.Value())
	}
	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero after reset")
	}
}

func TestSettlingTime(t *testing.T) {
	m := NewSettlingTime(0.02)
	feed(m, []float64{2, 1, 0.1, 0.03, 0.01}, nil)
	if math.Abs(m.Value()-0.2) > 1e-12 {
		t.Errorf("expected 0.2, got %f", m.Value())
	}

	m.Reset()
	feed(m, []float64{0, 0, 0}, nil)
	if m.Value() != 0 {
		t.Errorf("a run starting at rest settles immediately, got %f", m.Value())
	}
}

func TestPeakOvershoot(t *testing.T) {
	tests := []struct {
		name string
		xs   []float64
		want float64
	}{
		{"positive start", []float64{2, 0.5, -0.1, -0.3, 0.05}, 0.15},
		{"negative start", []float64{-1, 0.2, 0.1}, 0.2},
		{"no crossing", []float64{2, 1, 0.5}, 0},
		{"at rest", []float64{0, 1, -1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewPeakOvershoot()
			feed(m, tt.xs, nil)
			if math.Abs(m.Value()-tt.want) > 1e-12 {
				t.Errorf("expected %f, got %f", tt.want, m.Value())
			}
		})
	}
}
