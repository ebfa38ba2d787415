package clustering

import (
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/gilchrisn/sc-analysis-service/pkg/anndata"
	"github.com/gilchrisn/sc-analysis-service/pkg/kmeans"
)

// PartitionCellsByKMeans produces the initial membership for the spectral
// clustering variants: a coarse k-means into nClusters groups, then an
// independent k-means within each coarse group into at most nClusters2
// sub-clusters. Fine cluster IDs are offset by the running total of fine
// clusters created so far, so they are globally unique and densely packed.
//
// The inner passes deliberately use a single restart; the coarse pass
// carries the nInit restarts.
func PartitionCellsByKMeans(data *anndata.AnnData, rep string, nJobs, nClusters, nClusters2, nInit int, randomState uint64, logger zerolog.Logger) ([]int, error) {
	start := time.Now()

	x, err := data.Embedding(rep)
	if err != nil {
		return nil, err
	}
	n, d := x.Dims()

	coarseOpts := kmeans.DefaultOptions(nClusters)
	coarseOpts.NInit = nInit
	coarseOpts.Workers = nJobs
	coarseOpts.Seed = randomState
	coarse, err := kmeans.Partition(x, coarseOpts)
	if err != nil {
		return nil, err
	}

	labels := make([]int, n)
	baseSum := 0
	for i := 0; i < nClusters; i++ {
		var rows []int
		for r, c := range coarse {
			if c == i {
				rows = append(rows, r)
			}
		}
		nc := nClusters2
		if len(rows) < nc {
			nc = len(rows)
		}
		if nc == 0 {
			continue
		}

		sub := mat.NewDense(len(rows), d, nil)
		for k, r := range rows {
			sub.SetRow(k, mat.Row(nil, r, x))
		}

		fineOpts := kmeans.DefaultOptions(nc)
		fineOpts.NInit = 1
		fineOpts.Workers = nJobs
		fineOpts.Seed = randomState + uint64(i) + 1
		fine, err := kmeans.Partition(sub, fineOpts)
		if err != nil {
			return nil, err
		}
		for k, r := range rows {
			labels[r] = baseSum + fine[k]
		}
		baseSum += nc
	}

	logger.Info().
		Int("coarse_clusters", nClusters).
		Int("fine_clusters", baseSum).
		Dur("elapsed", time.Since(start)).
		Msg("partition_cells_by_kmeans finished")
	return labels, nil
}
