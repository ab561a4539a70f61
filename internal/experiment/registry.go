package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/lqrdrive/internal/control"
	"github.com/san-kum/lqrdrive/internal/dynamo"
	"github.com/san-kum/lqrdrive/internal/integrators"
	"github.com/san-kum/lqrdrive/internal/metrics"
	"github.com/san-kum/lqrdrive/internal/plant"
	"gonum.org/v1/gonum/mat"
)

// ControllerFactory builds a controller from the solved gain, the plant it
// was solved for and the actuator limit.
type ControllerFactory func(k mat.Matrix, p plant.Model, limit float64) dynamo.Controller

type Registry struct {
	integrators map[string]func() dynamo.Integrator
	controllers map[string]ControllerFactory
}

func NewRegistry() *Registry {
	r := &Registry{
		integrators: make(map[string]func() dynamo.Integrator),
		controllers: make(map[string]ControllerFactory),
	}

	r.integrators["euler"] = func() dynamo.Integrator { return integrators.NewEuler() }
	r.integrators["rk4"] = func() dynamo.Integrator { return integrators.NewRK4() }

	r.controllers["none"] = func(k mat.Matrix, p plant.Model, limit float64) dynamo.Controller {
		return control.NewNone(p.ControlDim())
	}
	r.controllers["lqr"] = func(k mat.Matrix, p plant.Model, limit float64) dynamo.Controller {
		return control.NewLQR(k, nil)
	}
	r.controllers["saturated"] = func(k mat.Matrix, p plant.Model, limit float64) dynamo.Controller {
		return control.NewSaturated(control.NewLQR(k, nil), limit)
	}

	return r
}

// RegisterController adds or replaces a named controller.
func (r *Registry) RegisterController(name string, f ControllerFactory) {
	r.controllers[name] = f
}

func (r *Registry) GetPlant(name string, v, wheelbase float64) (plant.Model, error) {
	return plant.Build(plant.Kind(name), v, wheelbase)
}

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

func (r *Registry) GetController(name string, k mat.Matrix, p plant.Model, limit float64) (dynamo.Controller, error) {
	fn, ok := r.controllers[name]
	if !ok {
		return nil, fmt.Errorf("unknown controller: %s", name)
	}
	return fn(k, p, limit), nil
}

func (r *Registry) ListPlants() []string {
	return []string{string(plant.Bicycle), string(plant.Normalized)}
}

func (r *Registry) ListIntegrators() []string { return sortedKeys(r.integrators) }
func (r *Registry) ListControllers() []string { return sortedKeys(r.controllers) }

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultMetrics are recorded on every run. The cost metric uses the
// same weights as the solve, so an unsaturated LQR run approaches x0ᵀPx0.
func (r *Registry) DefaultMetrics(q, secondary, rWeight, laneBound float64) []dynamo.Metric {
	return []dynamo.Metric{
		metrics.NewCost([]float64{q, secondary}, []float64{rWeight}),
		metrics.NewControlEffort(),
		metrics.NewStability(laneBound),
		metrics.NewSettlingTime(0.02),
		metrics.NewPeakOvershoot(),
	}
}
