// Package track is the headless lane-keeping world the control loop drives
// through: a road with bounds, obstacles that force lane changes, a
// vehicle on nonlinear bicycle kinematics and a speed ramp.
//
// The world owns the vehicle. It only exposes the error state
// (lateral offset from the current target line, heading) to the controller
// and takes a steering angle back. [Session] ties a [World] to a
// [control.Driver] and a best-distance record.
package track
