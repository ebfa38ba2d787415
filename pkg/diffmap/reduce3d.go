package diffmap

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/gilchrisn/sc-analysis-service/pkg/anndata"
)

// ReduceTo3D projects existing diffusion coordinates onto their first
// three principal components and stores the result as X_diffmap_pca.
// The projection uses an exact SVD, so randomState exists only for call
// parity with the solver-backed steps.
func ReduceTo3D(data *anndata.AnnData, randomState uint64, logger zerolog.Logger) error {
	start := time.Now()
	_ = randomState

	x, err := data.Embedding("diffmap")
	if err != nil {
		return err
	}
	n, d := x.Dims()
	if d < 3 {
		return fmt.Errorf("diffmap: need at least 3 diffusion components for a 3D reduction, have %d", d)
	}

	// Center columns, then project on the top right singular vectors.
	centered := mat.NewDense(n, d, nil)
	for j := 0; j < d; j++ {
		col := mat.Col(nil, j, x)
		mean := stat.Mean(col, nil)
		for i := 0; i < n; i++ {
			centered.Set(i, j, col[i]-mean)
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(centered, mat.SVDThin); !ok {
		return fmt.Errorf("diffmap: PCA factorization of diffusion coordinates failed")
	}
	var v mat.Dense
	svd.VTo(&v)

	var proj mat.Dense
	proj.Mul(centered, v.Slice(0, d, 0, 3))
	out := mat.DenseCopyOf(&proj)

	if err := data.SetEmbedding("diffmap_pca", out); err != nil {
		return err
	}
	logger.Info().Dur("elapsed", time.Since(start)).Msg("reduced diffmap to 3D")
	return nil
}
