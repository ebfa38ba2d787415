// Package eigen provides the two decomposition backends used by the
// diffusion map engine: a randomized truncated SVD (Halko, Martinsson and
// Tropp sketch-and-project scheme) and a Lanczos eigensolver for symmetric
// operators. Both take an explicit seeded random generator; neither touches
// process-global random state.
package eigen

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// Oversampling and subspace-iteration defaults for the randomized SVD.
// Ten extra sketch columns and two power iterations are the usual choice
// for matrices with decaying spectra.
const (
	defaultOversample = 10
	defaultPowerIters = 2
)

// RandomizedSVD computes a rank-k truncated SVD of a using a Gaussian
// sketch with power iterations. It returns U (r x k), the singular values
// in descending order, and V (c x k).
func RandomizedSVD(a mat.Matrix, k int, rng *rand.Rand) (*mat.Dense, []float64, *mat.Dense, error) {
	r, c := a.Dims()
	if k <= 0 || k > r || k > c {
		return nil, nil, nil, fmt.Errorf("randomized svd: k=%d out of range for %dx%d matrix", k, r, c)
	}

	p := k + defaultOversample
	if p > c {
		p = c
	}

	// Gaussian sketch Y = A * Omega.
	omega := mat.NewDense(c, p, nil)
	for i := 0; i < c; i++ {
		for j := 0; j < p; j++ {
			omega.Set(i, j, rng.NormFloat64())
		}
	}
	var y mat.Dense
	y.Mul(a, omega)

	q, err := thinQ(&y)
	if err != nil {
		return nil, nil, nil, err
	}

	// Power iterations sharpen the captured subspace.
	for iter := 0; iter < defaultPowerIters; iter++ {
		var z mat.Dense
		z.Mul(a.T(), q)
		qz, err := thinQ(&z)
		if err != nil {
			return nil, nil, nil, err
		}
		var y2 mat.Dense
		y2.Mul(a, qz)
		q, err = thinQ(&y2)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	// Project: B = Q^T A, then an exact SVD of the small B.
	var b mat.Dense
	b.Mul(q.T(), a)

	var svd mat.SVD
	if ok := svd.Factorize(&b, mat.SVDThin); !ok {
		return nil, nil, nil, fmt.Errorf("randomized svd: projected factorization failed")
	}
	var ub, vb mat.Dense
	svd.UTo(&ub)
	svd.VTo(&vb)
	s := svd.Values(nil)

	var uFull mat.Dense
	uFull.Mul(q, &ub)

	u := mat.DenseCopyOf(uFull.Slice(0, r, 0, k))
	v := mat.DenseCopyOf(vb.Slice(0, c, 0, k))
	return u, s[:k], v, nil
}

// thinQ returns the thin orthonormal factor of a (r x p, r >= p).
func thinQ(a *mat.Dense) (*mat.Dense, error) {
	r, p := a.Dims()
	if r < p {
		return nil, fmt.Errorf("qr: %dx%d matrix has more columns than rows", r, p)
	}
	var qr mat.QR
	qr.Factorize(a)
	var qFull mat.Dense
	qr.QTo(&qFull)
	return mat.DenseCopyOf(qFull.Slice(0, r, 0, p)), nil
}
