package eigen

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// MulVec applies a symmetric linear operator: dst = A * x.
type MulVec func(dst, x []float64)

// breakdownTol is the beta threshold below which the Krylov subspace is
// treated as invariant and the iteration stops.
const breakdownTol = 1e-12

// UniformStart draws the Lanczos starting vector uniformly from [-1, 1)^n.
func UniformStart(n int, rng *rand.Rand) []float64 {
	v0 := make([]float64, n)
	for i := range v0 {
		v0[i] = rng.Float64()*2 - 1
	}
	return v0
}

// Lanczos computes the k largest-magnitude eigenpairs of a symmetric n x n
// operator, started from v0. Eigenvalues are returned in ascending
// algebraic order with the matching eigenvectors as columns of the second
// result, mirroring the convention of ARPACK-style symmetric solvers.
//
// Full reorthogonalization is used, so when the subspace dimension reaches
// n the decomposition is exact up to roundoff.
func Lanczos(mul MulVec, n, k int, v0 []float64) ([]float64, *mat.Dense, error) {
	if k <= 0 || k > n {
		return nil, nil, fmt.Errorf("lanczos: k=%d out of range for n=%d", k, n)
	}
	if len(v0) != n {
		return nil, nil, fmt.Errorf("lanczos: start vector has length %d, want %d", len(v0), n)
	}

	steps := 2*k + 10
	if steps < 40 {
		steps = 40
	}
	if steps > n {
		steps = n
	}

	basis := make([][]float64, 0, steps)
	alpha := make([]float64, 0, steps)
	beta := make([]float64, 0, steps)

	v := make([]float64, n)
	copy(v, v0)
	norm := floats.Norm(v, 2)
	if norm == 0 {
		return nil, nil, fmt.Errorf("lanczos: zero start vector")
	}
	floats.Scale(1/norm, v)
	basis = append(basis, v)

	w := make([]float64, n)
	for j := 0; j < steps; j++ {
		mul(w, basis[j])
		a := floats.Dot(w, basis[j])
		alpha = append(alpha, a)

		floats.AddScaled(w, -a, basis[j])
		if j > 0 {
			floats.AddScaled(w, -beta[j-1], basis[j-1])
		}
		// Two rounds of reorthogonalization keep the basis orthonormal
		// even for clustered eigenvalues.
		for round := 0; round < 2; round++ {
			for _, u := range basis {
				floats.AddScaled(w, -floats.Dot(w, u), u)
			}
		}

		b := floats.Norm(w, 2)
		if b < breakdownTol || j == steps-1 {
			break
		}
		beta = append(beta, b)
		next := make([]float64, n)
		copy(next, w)
		floats.Scale(1/b, next)
		basis = append(basis, next)
	}

	m := len(alpha)
	if m < k {
		return nil, nil, fmt.Errorf("lanczos: subspace collapsed after %d steps, need %d eigenpairs", m, k)
	}

	// Eigendecomposition of the tridiagonal projection.
	t := mat.NewSymDense(m, nil)
	for i := 0; i < m; i++ {
		t.SetSym(i, i, alpha[i])
		if i+1 < m {
			t.SetSym(i, i+1, beta[i])
		}
	}
	var es mat.EigenSym
	if ok := es.Factorize(t, true); !ok {
		return nil, nil, fmt.Errorf("lanczos: tridiagonal eigendecomposition failed")
	}
	ritz := es.Values(nil)
	var y mat.Dense
	es.VectorsTo(&y)

	// Keep the k largest-magnitude Ritz values, reported in ascending
	// algebraic order.
	order := make([]int, m)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return math.Abs(ritz[order[a]]) > math.Abs(ritz[order[b]]) })
	kept := order[:k]
	sort.Slice(kept, func(a, b int) bool { return ritz[kept[a]] < ritz[kept[b]] })

	vals := make([]float64, k)
	vecs := mat.NewDense(n, k, nil)
	for col, idx := range kept {
		vals[col] = ritz[idx]
		for row := 0; row < n; row++ {
			var s float64
			for l := 0; l < m; l++ {
				s += basis[l][row] * y.At(l, idx)
			}
			vecs.Set(row, col, s)
		}
	}
	return vals, vecs, nil
}
