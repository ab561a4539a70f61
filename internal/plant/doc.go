// Package plant builds the continuous-time state-space models used by the
// lane-keeping controller.
//
// Two linear models are provided:
//
//   - [NewNormalized]: a generic steering-actuator error model with state
//     (error, error rate), A = [[0,1],[0,0]], B = [[0],[1]].
//   - [NewBicycle]: small-angle bicycle kinematics around a straight path
//     with state (lateral offset e, heading error θ),
//     A = [[0,v],[0,0]], B = [[0],[v/L]].
//
// Both are pure functions of their scalar inputs. The bicycle model is
// degenerate at zero speed (B vanishes and the plant is uncontrollable);
// callers check [Model.Degenerate] before handing it to the solver.
package plant
