// Package control turns LQR gains into steering commands.
//
// The pieces, leaves first:
//
//   - [Step] and [Simulate]: the closed loop u = −Kx, ẋ = Ax + Bu, advanced
//     with forward Euler. Pure; no clamping.
//   - [Tuner]: owns the weights (q, r), clamps every adjustment to its range
//     and re-solves K lazily after a change.
//   - [Driver]: the tick-driven IDLE/ACTIVE loop. It steps, clamps the
//     command to the actuator limit and reports terminations; the caller
//     owns the vehicle.
//   - [LQR], [Saturated], [None]: [dynamo.Controller] adapters for batch
//     runs through [dynamo.Simulator].
//
// # Usage
//
//	tuner, _ := control.NewTuner(plant.NewBicycle(10, 2.5), control.DefaultTunerConfig())
//	drv, _ := control.NewDriver(tuner, control.Limits{MaxControl: maxSteer}, logger)
//	drv.Start()
//	for running {
//		out := drv.Tick(observe(), dt)
//		apply(out.U)
//	}
//
// Nothing here is safe for concurrent use; a loop owns its tuner and driver.
package control
