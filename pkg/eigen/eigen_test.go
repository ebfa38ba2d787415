package eigen

import (
	"math"
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// testSym builds a small symmetric matrix with a known, well-separated
// spectrum, including a negative eigenvalue.
func testSym(t *testing.T) *mat.SymDense {
	t.Helper()
	n := 8
	rng := rand.New(rand.NewPCG(7, 7))

	// Random orthogonal basis via QR of a Gaussian matrix.
	g := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			g.Set(i, j, rng.NormFloat64())
		}
	}
	var qr mat.QR
	qr.Factorize(g)
	var q mat.Dense
	qr.QTo(&q)

	evals := []float64{3.0, 2.2, 1.5, 0.9, 0.4, 0.1, -0.05, -1.1}
	d := mat.NewDiagDense(n, evals)
	var tmp, a mat.Dense
	tmp.Mul(&q, d)
	a.Mul(&tmp, q.T())

	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, (a.At(i, j)+a.At(j, i))/2)
		}
	}
	return sym
}

func exactEigs(t *testing.T, a *mat.SymDense) []float64 {
	t.Helper()
	var es mat.EigenSym
	require.True(t, es.Factorize(a, false))
	return es.Values(nil)
}

func TestRandomizedSVDMatchesExactSpectrum(t *testing.T) {
	a := testSym(t)
	k := 4

	rng := rand.New(rand.NewPCG(0, 0))
	u, s, v, err := RandomizedSVD(a, k, rng)
	require.NoError(t, err)

	r, c := u.Dims()
	assert.Equal(t, 8, r)
	assert.Equal(t, k, c)
	r, c = v.Dims()
	assert.Equal(t, 8, r)
	assert.Equal(t, k, c)

	exact := exactEigs(t, a)
	absExact := make([]float64, len(exact))
	for i, e := range exact {
		absExact[i] = math.Abs(e)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(absExact)))

	for j := 0; j < k; j++ {
		assert.InDelta(t, absExact[j], s[j], 1e-8, "singular value %d", j)
	}
	// Descending order.
	assert.True(t, sort.IsSorted(sort.Reverse(sort.Float64Slice(s))))
}

func TestRandomizedSVDSignRecovery(t *testing.T) {
	a := testSym(t)
	k := 8

	rng := rand.New(rand.NewPCG(1, 1))
	u, s, v, err := RandomizedSVD(a, k, rng)
	require.NoError(t, err)

	// For a symmetric matrix the sign of colsum(U .* V) times the
	// singular value recovers each eigenvalue.
	got := make([]float64, k)
	for j := 0; j < k; j++ {
		var dot float64
		for i := 0; i < 8; i++ {
			dot += u.At(i, j) * v.At(i, j)
		}
		if dot < 0 {
			got[j] = -s[j]
		} else {
			got[j] = s[j]
		}
	}
	sort.Float64s(got)

	exact := exactEigs(t, a)
	for i := range exact {
		assert.InDelta(t, exact[i], got[i], 1e-8)
	}
}

func TestLanczosMatchesExactSpectrum(t *testing.T) {
	a := testSym(t)
	n := 8
	k := 3

	mul := func(dst, x []float64) {
		for i := 0; i < n; i++ {
			var s float64
			for j := 0; j < n; j++ {
				s += a.At(i, j) * x[j]
			}
			dst[i] = s
		}
	}

	rng := rand.New(rand.NewPCG(3, 3))
	vals, vecs, err := Lanczos(mul, n, k, UniformStart(n, rng))
	require.NoError(t, err)
	require.Len(t, vals, k)

	// k=3 largest magnitude: 3.0, 2.2, 1.5; ascending output order.
	assert.InDelta(t, 1.5, vals[0], 1e-8)
	assert.InDelta(t, 2.2, vals[1], 1e-8)
	assert.InDelta(t, 3.0, vals[2], 1e-8)

	// Residual check: A v = lambda v for each pair.
	for j := 0; j < k; j++ {
		v := mat.Col(nil, j, vecs)
		av := make([]float64, n)
		mul(av, v)
		for i := 0; i < n; i++ {
			assert.InDelta(t, vals[j]*v[i], av[i], 1e-7)
		}
	}
}

func TestLanczosPicksLargestMagnitude(t *testing.T) {
	a := testSym(t)
	n := 8

	mul := func(dst, x []float64) {
		for i := 0; i < n; i++ {
			var s float64
			for j := 0; j < n; j++ {
				s += a.At(i, j) * x[j]
			}
			dst[i] = s
		}
	}

	rng := rand.New(rand.NewPCG(4, 4))
	vals, _, err := Lanczos(mul, n, 4, UniformStart(n, rng))
	require.NoError(t, err)

	// The negative eigenvalue -1.1 beats 0.9 on magnitude and must be
	// included, in ascending position 0.
	assert.InDelta(t, -1.1, vals[0], 1e-8)
	assert.InDelta(t, 3.0, vals[3], 1e-8)
}

func TestLanczosArgumentChecks(t *testing.T) {
	mul := func(dst, x []float64) { copy(dst, x) }

	_, _, err := Lanczos(mul, 4, 0, make([]float64, 4))
	require.Error(t, err)
	_, _, err = Lanczos(mul, 4, 5, make([]float64, 4))
	require.Error(t, err)
	_, _, err = Lanczos(mul, 4, 2, make([]float64, 3))
	require.Error(t, err)
	_, _, err = Lanczos(mul, 4, 2, make([]float64, 4))
	require.Error(t, err, "zero start vector")
}

func TestRandomizedSVDArgumentChecks(t *testing.T) {
	a := mat.NewDense(3, 3, nil)
	rng := rand.New(rand.NewPCG(0, 0))
	_, _, _, err := RandomizedSVD(a, 0, rng)
	require.Error(t, err)
	_, _, _, err = RandomizedSVD(a, 4, rng)
	require.Error(t, err)
}
