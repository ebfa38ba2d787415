package diffmap

import (
	"fmt"
	"math"

	"github.com/james-bowman/sparse"
)

// NormalizedAffinity symmetrically normalizes a non-negative affinity
// matrix by node degree: entry (i,j) is divided by sqrt(deg_i)*sqrt(deg_j),
// preserving the sparsity pattern. It returns the normalized matrix, the
// degree vector and its elementwise square root.
//
// A zero-degree (isolated) cell makes the normalization undefined and is
// reported as ErrZeroDegree.
func NormalizedAffinity(w *sparse.CSR) (*sparse.CSR, []float64, []float64, error) {
	r, c := w.Dims()
	if r != c {
		return nil, nil, nil, fmt.Errorf("diffmap: affinity matrix is %dx%d, want square", r, c)
	}

	deg := make([]float64, r)
	nnz := 0
	w.DoNonZero(func(i, _ int, v float64) {
		deg[i] += v
		nnz++
	})

	degHalf := make([]float64, r)
	for i, d := range deg {
		if d == 0 {
			return nil, nil, nil, fmt.Errorf("%w: cell %d has no affinity to any other cell", ErrZeroDegree, i)
		}
		degHalf[i] = math.Sqrt(d)
	}

	rows := make([]int, 0, nnz)
	cols := make([]int, 0, nnz)
	data := make([]float64, 0, nnz)
	w.DoNonZero(func(i, j int, v float64) {
		rows = append(rows, i)
		cols = append(cols, j)
		data = append(data, v/(degHalf[i]*degHalf[j]))
	})

	wNorm := sparse.NewCOO(r, c, rows, cols, data).ToCSR()
	return wNorm, deg, degHalf, nil
}
