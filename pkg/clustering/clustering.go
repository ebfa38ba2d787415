// Package clustering provides the graph-based cell clustering drivers:
// Louvain and Leiden on a precomputed affinity matrix, plus their spectral
// two-stage variants seeded by a two-level k-means partition of a
// coordinate representation. Every driver writes 1-indexed string labels
// back into the container as an ordered categorical with natural-sorted
// categories.
package clustering

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/gilchrisn/sc-analysis-service/pkg/anndata"
	"github.com/gilchrisn/sc-analysis-service/pkg/partition"
)

// Louvain clusters the cells with the Louvain optimizer on the affinity
// graph of the configured representation.
func Louvain(data *anndata.AnnData, opts LouvainOptions, logger zerolog.Logger) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	start := time.Now()

	p, err := buildPartition(data, opts.Rep, opts.Resolution, nil)
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewPCG(opts.RandomState, opts.RandomState))
	if _, err := (partition.Louvain{}).Optimize(p, rng); err != nil {
		return err
	}
	if err := writeLabels(data, p.Membership, opts.ClassLabel); err != nil {
		return err
	}

	logger.Info().
		Int("clusters", p.NComms()).
		Float64("modularity", p.Quality()).
		Dur("elapsed", time.Since(start)).
		Msg("Louvain clustering is done")
	return nil
}

// Leiden clusters the cells with the Leiden optimizer on the affinity
// graph of the configured representation.
func Leiden(data *anndata.AnnData, opts LeidenOptions, logger zerolog.Logger) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	start := time.Now()

	p, err := buildPartition(data, opts.Rep, opts.Resolution, nil)
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewPCG(opts.RandomState, opts.RandomState))
	if _, err := (partition.Leiden{NIterations: opts.NIter}).Optimize(p, rng); err != nil {
		return err
	}
	if err := writeLabels(data, p.Membership, opts.ClassLabel); err != nil {
		return err
	}

	logger.Info().
		Int("clusters", p.NComms()).
		Float64("modularity", p.Quality()).
		Dur("elapsed", time.Since(start)).
		Msg("Leiden clustering is done")
	return nil
}

// SpectralLouvain seeds Louvain with a two-level k-means partition and
// optimizes the aggregated graph before expanding back onto the cells.
func SpectralLouvain(data *anndata.AnnData, opts SpectralOptions, logger zerolog.Logger) error {
	return spectral(data, opts, partition.Louvain{}, "Spectral Louvain", logger)
}

// SpectralLeiden is the Leiden counterpart of SpectralLouvain.
func SpectralLeiden(data *anndata.AnnData, opts SpectralOptions, logger zerolog.Logger) error {
	return spectral(data, opts, partition.Leiden{NIterations: -1}, "Spectral Leiden", logger)
}

func spectral(data *anndata.AnnData, opts SpectralOptions, opt partition.Optimizer, name string, logger zerolog.Logger) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	start := time.Now()

	repKMeans := opts.RepKMeans
	if !data.HasEmbedding(repKMeans) {
		logger.Warn().Str("rep_kmeans", repKMeans).Msg("representation not calculated, switching to pca")
		repKMeans = "pca"
	}
	if _, err := data.Embedding(repKMeans); err != nil {
		return err
	}
	// The affinity must exist before the k-means stage spends any time.
	if _, err := data.Affinity(opts.Rep); err != nil {
		return err
	}

	initial, err := PartitionCellsByKMeans(data, repKMeans, opts.NJobs, opts.NClusters, opts.NClusters2, opts.NInit, opts.RandomState, logger)
	if err != nil {
		return err
	}

	p, err := buildPartition(data, opts.Rep, opts.Resolution, initial)
	if err != nil {
		return err
	}

	// Optimize a coarse graph induced by the k-means seed, then expand.
	coarseGraph := p.Aggregate()
	coarse, err := partition.NewPartition(coarseGraph, opts.Resolution, nil)
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewPCG(opts.RandomState, opts.RandomState))
	if _, err := opt.Optimize(coarse, rng); err != nil {
		return err
	}
	if err := p.FromCoarse(coarse); err != nil {
		return err
	}

	if err := writeLabels(data, p.Membership, opts.ClassLabel); err != nil {
		return err
	}

	logger.Info().
		Int("clusters", p.NComms()).
		Float64("modularity", p.Quality()).
		Dur("elapsed", time.Since(start)).
		Msgf("%s clustering is done", name)
	return nil
}

// buildPartition looks up the affinity matrix for rep and wraps it in a
// partition, optionally seeded with an initial membership.
func buildPartition(data *anndata.AnnData, rep string, resolution float64, initial []int) (*partition.Partition, error) {
	w, err := data.Affinity(rep)
	if err != nil {
		return nil, err
	}
	g, err := partition.NewGraph(w)
	if err != nil {
		return nil, err
	}
	return partition.NewPartition(g, resolution, initial)
}

// writeLabels converts a 0-indexed membership into 1-indexed string labels
// and stores them as an ordered categorical column.
func writeLabels(data *anndata.AnnData, membership []int, classLabel string) error {
	if len(membership) != data.NObs() {
		return fmt.Errorf("clustering: membership has %d entries for %d cells", len(membership), data.NObs())
	}
	labels := make([]string, len(membership))
	for i, c := range membership {
		labels[i] = strconv.Itoa(c + 1)
	}
	return data.SetLabels(classLabel, anndata.NewCategorical(labels))
}
