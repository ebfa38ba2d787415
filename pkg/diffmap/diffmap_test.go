package diffmap

import (
	"math"
	"sort"
	"testing"

	"github.com/james-bowman/sparse"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

type edge struct {
	i, j int
	w    float64
}

func affinity(n int, edges []edge) *sparse.CSR {
	dok := sparse.NewDOK(n, n)
	for _, e := range edges {
		dok.Set(e.i, e.j, e.w)
		dok.Set(e.j, e.i, e.w)
	}
	return dok.ToCSR()
}

func twoTriangles() []edge {
	return []edge{
		{0, 1, 1}, {1, 2, 1}, {0, 2, 1},
		{3, 4, 1}, {4, 5, 1}, {3, 5, 1},
	}
}

// connectedGraph is an irregularly weighted, non-bipartite graph on 8
// nodes used for solver comparisons.
func connectedGraph() *sparse.CSR {
	return affinity(8, []edge{
		{0, 1, 1.0}, {1, 2, 1.1}, {0, 2, 0.9},
		{2, 3, 0.7}, {3, 4, 0.6}, {4, 5, 0.9},
		{5, 6, 1.2}, {6, 7, 0.8}, {5, 7, 1.0},
	})
}

func TestNormalizedAffinity(t *testing.T) {
	// Complete triangle with unit weights: every degree is 2, every
	// normalized entry 1/2.
	w := affinity(3, []edge{{0, 1, 1}, {1, 2, 1}, {0, 2, 1}})
	wNorm, deg, degHalf, err := NormalizedAffinity(w)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		assert.InDelta(t, 2.0, deg[i], 1e-12)
		assert.InDelta(t, math.Sqrt2, degHalf[i], 1e-12)
	}
	assert.InDelta(t, 0.5, wNorm.At(0, 1), 1e-12)
	assert.InDelta(t, 0.0, wNorm.At(0, 0), 1e-12)

	// Renormalizing pushes every degree to 1.
	wNorm2, deg2, _, err := NormalizedAffinity(wNorm)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		assert.InDelta(t, 1.0, deg2[i], 1e-12)
	}
	_ = wNorm2
}

func TestNormalizedAffinityZeroDegree(t *testing.T) {
	// Node 2 is isolated.
	dok := sparse.NewDOK(3, 3)
	dok.Set(0, 1, 1)
	dok.Set(1, 0, 1)
	_, _, _, err := NormalizedAffinity(dok.ToCSR())
	require.ErrorIs(t, err, ErrZeroDegree)
}

func TestDiffusionMapDisconnected(t *testing.T) {
	w := affinity(6, twoTriangles())
	opts := DefaultOptions()
	opts.NComponents = 3

	_, _, err := DiffusionMap(w, opts, zerolog.Nop())
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestDiffusionMapBridgedTriangles(t *testing.T) {
	edges := append(twoTriangles(), edge{2, 3, 1})
	w := affinity(6, edges)

	for _, solver := range []Solver{SolverRandomized, SolverEigsh} {
		opts := DefaultOptions()
		opts.NComponents = 3
		opts.Solver = solver

		phi, evals, err := DiffusionMap(w, opts, zerolog.Nop())
		require.NoError(t, err, "solver %s", solver)

		r, c := phi.Dims()
		assert.Equal(t, 6, r)
		assert.Equal(t, 2, c, "n_components-1 coordinates")
		assert.Len(t, evals, 2)

		// The dropped leading eigenvalue is the only one at 1; the
		// retained spectrum stays strictly below it.
		for _, l := range evals {
			assert.Less(t, math.Abs(l), 1.0+1e-9)
		}
	}
}

func TestSolverAgreement(t *testing.T) {
	w := connectedGraph()

	run := func(solver Solver) (*mat.Dense, []float64) {
		opts := DefaultOptions()
		opts.NComponents = 4
		opts.Solver = solver
		phi, evals, err := DiffusionMap(w, opts, zerolog.Nop())
		require.NoError(t, err)
		return phi, evals
	}

	phiR, evalsR := run(SolverRandomized)
	phiE, evalsE := run(SolverEigsh)

	// Eigenvalues agree as sets up to ordering conventions.
	absR := absSorted(evalsR)
	absE := absSorted(evalsE)
	for i := range absR {
		assert.InDelta(t, absR[i], absE[i], 1e-6)
	}

	// Pairwise diffusion distances are invariant to column order and
	// eigenvector sign.
	n, _ := phiR.Dims()
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			assert.InDelta(t, rowDist(phiR, i, j), rowDist(phiE, i, j), 1e-6,
				"distance between cells %d and %d", i, j)
		}
	}
}

func TestDiffusionMapOptionValidation(t *testing.T) {
	w := connectedGraph()

	opts := DefaultOptions()
	opts.NComponents = 1
	_, _, err := DiffusionMap(w, opts, zerolog.Nop())
	require.Error(t, err)

	opts = DefaultOptions()
	opts.Alpha = 1.0
	_, _, err = DiffusionMap(w, opts, zerolog.Nop())
	require.Error(t, err)

	opts = DefaultOptions()
	opts.Solver = "lobpcg"
	_, _, err = DiffusionMap(w, opts, zerolog.Nop())
	require.Error(t, err)

	opts = DefaultOptions()
	opts.NComponents = 9 // more than cells
	_, _, err = DiffusionMap(w, opts, zerolog.Nop())
	require.Error(t, err)
}

func absSorted(vals []float64) []float64 {
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = math.Abs(v)
	}
	sort.Float64s(out)
	return out
}

func rowDist(x *mat.Dense, i, j int) float64 {
	_, d := x.Dims()
	var s float64
	for c := 0; c < d; c++ {
		diff := x.At(i, c) - x.At(j, c)
		s += diff * diff
	}
	return math.Sqrt(s)
}
