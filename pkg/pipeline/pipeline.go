package pipeline

import (
	"fmt"

	"github.com/gilchrisn/sc-analysis-service/pkg/anndata"
	"github.com/gilchrisn/sc-analysis-service/pkg/clustering"
	"github.com/gilchrisn/sc-analysis-service/pkg/diffmap"
)

// Run executes the enabled analysis steps in dependency order on the
// container. Each step writes its results into the container's named
// slots; a failing step aborts the run.
func Run(data *anndata.AnnData, cfg *Config) error {
	logger := cfg.CreateLogger()

	if cfg.DiffMapEnabled() {
		if err := diffmap.Run(data, cfg.DiffMapOptions(), logger); err != nil {
			return fmt.Errorf("pipeline: diffmap step failed: %w", err)
		}
		if cfg.DiffMapTo3D() {
			if err := diffmap.ReduceTo3D(data, cfg.RandomState(), logger); err != nil {
				return fmt.Errorf("pipeline: diffmap 3D reduction failed: %w", err)
			}
		}
	}

	if cfg.LouvainEnabled() {
		if err := clustering.Louvain(data, cfg.LouvainOptions(), logger); err != nil {
			return fmt.Errorf("pipeline: louvain step failed: %w", err)
		}
	}
	if cfg.LeidenEnabled() {
		if err := clustering.Leiden(data, cfg.LeidenOptions(), logger); err != nil {
			return fmt.Errorf("pipeline: leiden step failed: %w", err)
		}
	}
	if cfg.SpectralLouvainEnabled() {
		opts := cfg.SpectralOptions("spectral_louvain_labels")
		if err := clustering.SpectralLouvain(data, opts, logger); err != nil {
			return fmt.Errorf("pipeline: spectral louvain step failed: %w", err)
		}
	}
	if cfg.SpectralLeidenEnabled() {
		opts := cfg.SpectralOptions("spectral_leiden_labels")
		if err := clustering.SpectralLeiden(data, opts, logger); err != nil {
			return fmt.Errorf("pipeline: spectral leiden step failed: %w", err)
		}
	}

	if roots := cfg.PseudotimeRoots(); len(roots) > 0 {
		if err := diffmap.CalcPseudotime(data, roots, logger); err != nil {
			return fmt.Errorf("pipeline: pseudotime step failed: %w", err)
		}
	}
	return nil
}
