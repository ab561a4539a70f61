package riccati

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	maxSignIterations = 100
	signTolerance     = 1e-12
	residualTolerance = 1e-8
	symTolerance      = 1e-10
)

// SolveCARE returns the unique stabilizing, symmetric positive semi-definite
// solution of AᵀP + PA − PBR⁻¹BᵀP + Q = 0.
//
// A is n×n, B is n×m, Q is n×n symmetric positive semi-definite and R is
// m×m symmetric positive definite.
func SolveCARE(a, b, q, r mat.Matrix) (*mat.Dense, error) {
	n, err := checkInputs(a, b, q, r)
	if err != nil {
		return nil, err
	}

	rinvBt, err := solveR(b, r)
	if err != nil {
		return nil, err
	}
	g := mul(b, rinvBt)

	h := hamiltonian(a, g, q, n)
	w, err := matrixSign(h)
	if err != nil {
		return nil, err
	}

	p, err := stableSubspace(w, n)
	if err != nil {
		return nil, err
	}

	if err := checkSolution(a, g, q, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Gain returns K = R⁻¹BᵀP.
func Gain(b, r, p mat.Matrix) (*mat.Dense, error) {
	rinvBt, err := solveR(b, r)
	if err != nil {
		return nil, err
	}
	return mul(rinvBt, p), nil
}

func checkInputs(a, b, q, r mat.Matrix) (int, error) {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	qr, qc := q.Dims()
	rr, rc := r.Dims()

	switch {
	case ar == 0 || ar != ac:
		return 0, fmt.Errorf("%w: A is %d×%d", ErrDimensionMismatch, ar, ac)
	case br != ar || bc == 0:
		return 0, fmt.Errorf("%w: B is %d×%d for %d states", ErrDimensionMismatch, br, bc, ar)
	case qr != ar || qc != ar:
		return 0, fmt.Errorf("%w: Q is %d×%d for %d states", ErrDimensionMismatch, qr, qc, ar)
	case rr != bc || rc != bc:
		return 0, fmt.Errorf("%w: R is %d×%d for %d inputs", ErrDimensionMismatch, rr, rc, bc)
	}

	for _, m := range []mat.Matrix{a, b, q, r} {
		if !finite(m) {
			return 0, ErrNonFinite
		}
	}
	if !mat.EqualApprox(q, q.T(), symTolerance) {
		return 0, fmt.Errorf("%w: Q", ErrNotSymmetric)
	}
	if !mat.EqualApprox(r, r.T(), symTolerance) {
		return 0, fmt.Errorf("%w: R", ErrNotSymmetric)
	}

	var es mat.EigenSym
	if !es.Factorize(symmetrize(q), false) {
		return 0, fmt.Errorf("%w: eigen decomposition failed", ErrIndefinite)
	}
	vals := es.Values(nil)
	scale := 1.0
	for _, v := range vals {
		scale = math.Max(scale, math.Abs(v))
	}
	for _, v := range vals {
		if v < -symTolerance*scale {
			return 0, fmt.Errorf("%w: eigenvalue %g", ErrIndefinite, v)
		}
	}

	return ar, nil
}

// solveR returns R⁻¹Bᵀ through a Cholesky factorization of R.
func solveR(b, r mat.Matrix) (*mat.Dense, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(symmetrize(r)); !ok {
		return nil, ErrNotPositiveDefinite
	}
	var x mat.Dense
	if err := chol.SolveTo(&x, b.T()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPositiveDefinite, err)
	}
	return &x, nil
}

// hamiltonian assembles H = [[A, −G], [−Q, −Aᵀ]] with G = BR⁻¹Bᵀ.
func hamiltonian(a, g, q mat.Matrix, n int) *mat.Dense {
	h := mat.NewDense(2*n, 2*n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			h.Set(i, j, a.At(i, j))
			h.Set(i, n+j, -g.At(i, j))
			h.Set(n+i, j, -q.At(i, j))
			h.Set(n+i, n+j, -a.At(j, i))
		}
	}
	return h
}

// matrixSign runs the determinant-scaled Newton iteration
// Z ← (cZ + (cZ)⁻¹)/2 until successive iterates agree.
func matrixSign(h *mat.Dense) (*mat.Dense, error) {
	dim, _ := h.Dims()
	z := mat.DenseCopyOf(h)

	for iter := 0; iter < maxSignIterations; iter++ {
		logDet, sign := mat.LogDet(z)
		if sign == 0 || math.IsInf(logDet, 0) || math.IsNaN(logDet) {
			return nil, ErrSingular
		}

		var inv mat.Dense
		if err := inv.Inverse(z); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSingular, err)
		}

		c := math.Exp(-logDet / float64(dim))
		var scaled, scaledInv, next, step mat.Dense
		scaled.Scale(0.5*c, z)
		scaledInv.Scale(0.5/c, &inv)
		next.Add(&scaled, &scaledInv)
		step.Sub(&next, z)

		if !finite(&next) {
			return nil, ErrSingular
		}

		z = &next
		if mat.Norm(&step, 1) <= signTolerance*mat.Norm(z, 1) {
			return z, nil
		}
	}

	return nil, ErrNoConvergence
}

// stableSubspace solves [W12; W22+I] P = −[W11+I; W21] in the least-squares
// sense. The columns of [I; P] span the null space of W + I, which is the
// stable invariant subspace of H.
func stableSubspace(w *mat.Dense, n int) (*mat.Dense, error) {
	lhs := mat.NewDense(2*n, n, nil)
	rhs := mat.NewDense(2*n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			eye := 0.0
			if i == j {
				eye = 1
			}
			lhs.Set(i, j, w.At(i, n+j))
			lhs.Set(n+i, j, w.At(n+i, n+j)+eye)
			rhs.Set(i, j, -(w.At(i, j) + eye))
			rhs.Set(n+i, j, -w.At(n+i, j))
		}
	}

	var p mat.Dense
	if err := p.Solve(lhs, rhs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}

	sym := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			sym.Set(i, j, 0.5*(p.At(i, j)+p.At(j, i)))
		}
	}
	if !finite(sym) {
		return nil, ErrNonFinite
	}
	return sym, nil
}

func checkSolution(a, g, q mat.Matrix, p *mat.Dense) error {
	var lin, quad, res mat.Dense
	lin.Add(mul(a.T(), p), mul(p, a))
	quad.Sub(q, mul(mul(p, g), p))
	res.Add(&lin, &quad)

	pn := mat.Norm(p, 1)
	scale := 1 + mat.Norm(q, 1) + 2*mat.Norm(a, 1)*pn + pn*pn*mat.Norm(g, 1)
	if r := mat.Norm(&res, 1); r > residualTolerance*scale {
		return fmt.Errorf("%w: %g", ErrResidual, r/scale)
	}

	var es mat.EigenSym
	if !es.Factorize(symmetrize(p), false) {
		return fmt.Errorf("%w: eigen decomposition of P failed", ErrResidual)
	}
	vals := es.Values(nil)
	for _, v := range vals {
		if v < -residualTolerance*(1+pn) {
			return fmt.Errorf("%w: P has eigenvalue %g", ErrNotStabilizing, v)
		}
	}
	return nil
}

// ClosedLoopPoles returns the eigenvalues of A − BK.
func ClosedLoopPoles(a, b, k mat.Matrix) ([]complex128, error) {
	var acl mat.Dense
	acl.Sub(a, mul(b, k))

	var eig mat.Eigen
	if ok := eig.Factorize(&acl, mat.EigenNone); !ok {
		return nil, fmt.Errorf("%w: eigen decomposition of A-BK failed", ErrNotStabilizing)
	}
	return eig.Values(nil), nil
}

// SpectralAbscissa returns the largest real part among poles.
func SpectralAbscissa(poles []complex128) float64 {
	abscissa := math.Inf(-1)
	for _, p := range poles {
		abscissa = math.Max(abscissa, real(p))
	}
	return abscissa
}

func mul(a, b mat.Matrix) *mat.Dense {
	var d mat.Dense
	d.Mul(a, b)
	return &d
}

func symmetrize(m mat.Matrix) *mat.SymDense {
	n, _ := m.Dims()
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.SetSym(i, j, 0.5*(m.At(i, j)+m.At(j, i)))
		}
	}
	return s
}

func finite(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}
