// Package riccati solves the continuous-time algebraic Riccati equation
//
//	AᵀP + PA − PBR⁻¹BᵀP + Q = 0
//
// for its stabilizing solution P and derives the LQR gain K = R⁻¹BᵀP.
//
// [SolveCARE] computes P from the stable invariant subspace of the
// Hamiltonian matrix, located with the scaled matrix sign function
// iteration. The result is checked against the equation residual, symmetry,
// positive semi-definiteness and closed-loop stability before it is
// accepted.
//
// [Solve] never fails: when the problem is ill-posed or the iteration does
// not converge it returns a [Fallback] result carrying a fixed mild gain
// and the reason, so a real-time loop always has a gain to apply.
package riccati
