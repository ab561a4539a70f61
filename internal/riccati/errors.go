package riccati

import "errors"

var (
	// ErrDimensionMismatch indicates A, B, Q, R do not describe one plant.
	ErrDimensionMismatch = errors.New("riccati: dimension mismatch")

	// ErrNonFinite indicates a NaN or Inf entry in an input matrix.
	ErrNonFinite = errors.New("riccati: non-finite matrix entry")

	// ErrNotSymmetric indicates Q or R is not symmetric.
	ErrNotSymmetric = errors.New("riccati: weight matrix not symmetric")

	// ErrNotPositiveDefinite indicates R is singular or indefinite.
	ErrNotPositiveDefinite = errors.New("riccati: R is not positive definite")

	// ErrIndefinite indicates Q has a negative eigenvalue.
	ErrIndefinite = errors.New("riccati: Q is not positive semi-definite")

	// ErrSingular indicates the Hamiltonian has eigenvalues on or near the
	// imaginary axis, which happens when (A, B) is not stabilizable or
	// (A, Q) is not detectable.
	ErrSingular = errors.New("riccati: Hamiltonian is singular")

	// ErrNoConvergence indicates the sign iteration hit its step limit.
	ErrNoConvergence = errors.New("riccati: sign iteration did not converge")

	// ErrResidual indicates the computed P does not satisfy the equation.
	ErrResidual = errors.New("riccati: residual above tolerance")

	// ErrNotStabilizing indicates A − BK has an eigenvalue with
	// non-negative real part.
	ErrNotStabilizing = errors.New("riccati: solution is not stabilizing")
)
