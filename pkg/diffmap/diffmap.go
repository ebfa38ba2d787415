// Package diffmap implements diffusion-map dimensionality reduction over a
// cell-cell affinity matrix: symmetric degree normalization, spectral
// decomposition through one of two solver backends, diffusion-time
// rescaling, an optional 3D PCA projection for visualization, and
// root-anchored pseudo-time.
package diffmap

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/james-bowman/sparse"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/mat"

	"github.com/gilchrisn/sc-analysis-service/pkg/anndata"
	"github.com/gilchrisn/sc-analysis-service/pkg/eigen"
)

var (
	// ErrNotConnected is returned when the affinity graph has more than one
	// strongly connected component; diffusion geometry is undefined there.
	ErrNotConnected = errors.New("affinity graph is not connected")

	// ErrZeroDegree is returned when a cell has zero total affinity.
	ErrZeroDegree = errors.New("zero-degree cell in affinity matrix")

	// ErrSingularRescale is returned when alpha puts 1 - alpha*lambda too
	// close to zero for a retained eigenvalue.
	ErrSingularRescale = errors.New("diffusion time rescaling is near-singular")
)

// rescaleEps bounds |1 - alpha*lambda| away from zero.
const rescaleEps = 1e-12

// DiffusionMap decomposes the affinity matrix into diffusion coordinates.
// It returns Phi (n x NComponents-1), the per-cell coordinates after
// diffusion-time rescaling, together with the retained eigenvalues before
// rescaling, ordered by descending eigenvalue.
func DiffusionMap(w *sparse.CSR, opts Options, logger zerolog.Logger) (*mat.Dense, []float64, error) {
	if err := opts.Validate(); err != nil {
		return nil, nil, err
	}
	n, c := w.Dims()
	if n != c {
		return nil, nil, fmt.Errorf("diffmap: affinity matrix is %dx%d, want square", n, c)
	}
	if opts.NComponents > n {
		return nil, nil, fmt.Errorf("diffmap: n_components=%d exceeds %d cells", opts.NComponents, n)
	}

	if err := checkConnected(w); err != nil {
		return nil, nil, err
	}
	logger.Debug().Int("cells", n).Msg("affinity graph is strongly connected")

	wNorm, _, degHalf, err := NormalizedAffinity(w)
	if err != nil {
		return nil, nil, err
	}

	k := opts.NComponents
	rng := rand.New(rand.NewPCG(opts.RandomState, opts.RandomState))

	var (
		lambda []float64
		u      *mat.Dense
	)
	switch opts.Solver {
	case SolverRandomized:
		uu, s, v, err := eigen.RandomizedSVD(wNorm, k, rng)
		if err != nil {
			return nil, nil, err
		}
		// W_norm is symmetric, so singular vectors are eigenvectors up to
		// sign; the sign of sum_i U_ij*V_ij recovers each eigenvalue sign.
		lambda = make([]float64, k)
		for j := 0; j < k; j++ {
			var dot float64
			for i := 0; i < n; i++ {
				dot += uu.At(i, j) * v.At(i, j)
			}
			if dot < 0 {
				lambda[j] = -s[j]
			} else {
				lambda[j] = s[j]
			}
		}
		u = uu
	case SolverEigsh:
		v0 := eigen.UniformStart(n, rng)
		vals, vecs, err := eigen.Lanczos(matVec(wNorm, n), n, k, v0)
		if err != nil {
			return nil, nil, err
		}
		// Ascending solver output reversed into descending order.
		lambda = make([]float64, k)
		u = mat.NewDense(n, k, nil)
		for j := 0; j < k; j++ {
			lambda[j] = vals[k-1-j]
			for i := 0; i < n; i++ {
				u.Set(i, j, vecs.At(i, k-1-j))
			}
		}
	}

	// Drop the leading eigenpair: its eigenvector is constant on a
	// connected graph and carries no geometry.
	lambda = lambda[1:]

	scale := make([]float64, k-1)
	for j, l := range lambda {
		denom := 1 - opts.Alpha*l
		if math.Abs(denom) < rescaleEps {
			return nil, nil, fmt.Errorf("%w: alpha=%g, lambda=%g", ErrSingularRescale, opts.Alpha, l)
		}
		scale[j] = l / denom
	}

	phi := mat.NewDense(n, k-1, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < k-1; j++ {
			phi.Set(i, j, u.At(i, j+1)/degHalf[i]*scale[j])
		}
	}
	return phi, lambda, nil
}

// Run computes the diffusion map for the configured representation and
// writes X_diffmap and diffmap_evals into the container.
func Run(data *anndata.AnnData, opts Options, logger zerolog.Logger) error {
	start := time.Now()

	w, err := data.Affinity(opts.Rep)
	if err != nil {
		return err
	}
	phi, evals, err := DiffusionMap(w, opts, logger)
	if err != nil {
		return err
	}
	if err := data.SetEmbedding("diffmap", phi); err != nil {
		return err
	}
	data.SetUns("diffmap_evals", evals)

	logger.Info().
		Int("n_components", opts.NComponents).
		Str("solver", string(opts.Solver)).
		Dur("elapsed", time.Since(start)).
		Msg("diffmap finished")
	return nil
}

// checkConnected verifies the affinity matrix, read as a directed graph,
// has exactly one strongly connected component.
func checkConnected(w *sparse.CSR) error {
	n, _ := w.Dims()
	g := simple.NewWeightedDirectedGraph(0, 0)
	for i := 0; i < n; i++ {
		g.AddNode(simple.Node(i))
	}
	w.DoNonZero(func(i, j int, v float64) {
		if i != j {
			g.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(i), T: simple.Node(j), W: v})
		}
	})
	if sccs := topo.TarjanSCC(g); len(sccs) != 1 {
		return fmt.Errorf("%w: found %d strongly connected components, want 1", ErrNotConnected, len(sccs))
	}
	return nil
}

// matVec adapts a CSR matrix to the solver's operator interface.
func matVec(w *sparse.CSR, n int) eigen.MulVec {
	rows := make([]int, 0)
	cols := make([]int, 0)
	vals := make([]float64, 0)
	w.DoNonZero(func(i, j int, v float64) {
		rows = append(rows, i)
		cols = append(cols, j)
		vals = append(vals, v)
	})
	return func(dst, x []float64) {
		for i := 0; i < n; i++ {
			dst[i] = 0
		}
		for t, v := range vals {
			dst[rows[t]] += v * x[cols[t]]
		}
	}
}
