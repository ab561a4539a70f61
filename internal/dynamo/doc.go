// Package dynamo provides the simulation primitives shared by the lane-keeping
// control core and its batch tooling.
//
// The package defines the fundamental interfaces and types for fixed-step
// simulation of linear and nonlinear plants:
//
//   - [State]: vector representing the tracking error (or any plant state)
//   - [System]: interface for ODE systems (dX/dt = f(X, u, t))
//   - [Integrator]: numerical integrator interface
//   - [Controller]: feedback controller interface
//   - [Simulator]: orchestrates batch runs with metrics and observers
//
// # Example
//
//	p := plant.NewBicycle(10, 2.5)
//	ctrl := control.NewLQR(gain.K, nil)
//	s := dynamo.New(p, integrators.NewEuler(), ctrl)
//	result, _ := s.Run(ctx, dynamo.State{2, 0}, cfg)
//
// # Thread Safety
//
// Simulator instances are NOT thread-safe. Independent simulators may run
// in parallel; [ParallelFor] splits index ranges across goroutines.
package dynamo
