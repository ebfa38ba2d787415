package diffmap

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/gilchrisn/sc-analysis-service/pkg/anndata"
)

// CalcPseudotime assigns every cell the mean Euclidean distance in
// diffusion space to the given root cells, min-max normalized to [0, 1],
// stored as the per-cell "pseudotime" column. The roots are echoed into
// the "roots" annotation slot.
//
// When every cell is equidistant from the roots (for example when all
// cells are roots) the distance range is zero and pseudotime is defined
// as 0 for every cell.
func CalcPseudotime(data *anndata.AnnData, roots []string, logger zerolog.Logger) error {
	start := time.Now()

	if len(roots) == 0 {
		return fmt.Errorf("diffmap: pseudotime needs at least one root cell")
	}
	x, err := data.Embedding("diffmap")
	if err != nil {
		return err
	}

	rootRows := make([]int, len(roots))
	for i, name := range roots {
		idx, err := data.ObsIndex(name)
		if err != nil {
			return err
		}
		rootRows[i] = idx
	}

	n, d := x.Dims()
	dist := make([]float64, n)
	for j := 0; j < n; j++ {
		var sum float64
		for _, r := range rootRows {
			var sq float64
			for c := 0; c < d; c++ {
				diff := x.At(r, c) - x.At(j, c)
				sq += diff * diff
			}
			sum += math.Sqrt(sq)
		}
		dist[j] = sum / float64(len(rootRows))
	}

	dmin, dmax := dist[0], dist[0]
	for _, v := range dist[1:] {
		if v < dmin {
			dmin = v
		}
		if v > dmax {
			dmax = v
		}
	}
	if dmax > dmin {
		for j := range dist {
			dist[j] = (dist[j] - dmin) / (dmax - dmin)
		}
	} else {
		for j := range dist {
			dist[j] = 0
		}
	}

	rootsCopy := make([]string, len(roots))
	copy(rootsCopy, roots)
	data.SetUns("roots", rootsCopy)
	if err := data.SetScalar("pseudotime", dist); err != nil {
		return err
	}

	logger.Info().
		Int("roots", len(roots)).
		Dur("elapsed", time.Since(start)).
		Msg("pseudotime calculation finished")
	return nil
}
