package clustering

import "fmt"

// LouvainOptions configures Louvain clustering.
type LouvainOptions struct {
	// Rep names the affinity representation, read from slot "W_<Rep>".
	Rep string
	// Resolution is the RB configuration resolution; higher values give
	// more, smaller clusters.
	Resolution float64
	// RandomState seeds the optimizer.
	RandomState uint64
	// ClassLabel is the per-cell column the labels are written to.
	ClassLabel string
}

// DefaultLouvainOptions returns the standard Louvain configuration.
func DefaultLouvainOptions() LouvainOptions {
	return LouvainOptions{Rep: "pca", Resolution: 1.3, RandomState: 0, ClassLabel: "louvain_labels"}
}

// Validate checks every recognized option.
func (o LouvainOptions) Validate() error {
	return validateCommon(o.Rep, o.Resolution, o.ClassLabel)
}

// LeidenOptions configures Leiden clustering.
type LeidenOptions struct {
	Rep         string
	Resolution  float64
	// NIter is the number of Leiden iterations; -1 runs until the
	// partition stops improving.
	NIter       int
	RandomState uint64
	ClassLabel  string
}

// DefaultLeidenOptions returns the standard Leiden configuration.
func DefaultLeidenOptions() LeidenOptions {
	return LeidenOptions{Rep: "pca", Resolution: 1.3, NIter: -1, RandomState: 0, ClassLabel: "leiden_labels"}
}

// Validate checks every recognized option.
func (o LeidenOptions) Validate() error {
	if o.NIter == 0 {
		return fmt.Errorf("clustering: n_iter must be positive or -1, got 0")
	}
	return validateCommon(o.Rep, o.Resolution, o.ClassLabel)
}

// SpectralOptions configures the spectral (two-stage) variants: a
// two-level k-means on one representation seeds the optimizer run on the
// affinity graph of another.
type SpectralOptions struct {
	Rep        string
	Resolution float64
	// RepKMeans names the coordinates the k-means stage runs on. When the
	// slot is absent the driver falls back once to "pca".
	RepKMeans string
	// NClusters is the number of first-level k-means clusters.
	NClusters int
	// NClusters2 caps the second-level clusters within each first-level
	// cluster.
	NClusters2 int
	// NInit is the restart count of the first-level k-means.
	NInit int
	// NJobs is the worker count for k-means; non-positive uses all CPUs.
	NJobs       int
	RandomState uint64
	ClassLabel  string
}

// DefaultSpectralLouvainOptions returns the standard spectral Louvain
// configuration.
func DefaultSpectralLouvainOptions() SpectralOptions {
	return SpectralOptions{
		Rep:        "pca",
		Resolution: 1.3,
		RepKMeans:  "diffmap",
		NClusters:  30,
		NClusters2: 50,
		NInit:      10,
		NJobs:      -1,
		ClassLabel: "spectral_louvain_labels",
	}
}

// DefaultSpectralLeidenOptions returns the standard spectral Leiden
// configuration.
func DefaultSpectralLeidenOptions() SpectralOptions {
	o := DefaultSpectralLouvainOptions()
	o.ClassLabel = "spectral_leiden_labels"
	return o
}

// Validate checks every recognized option.
func (o SpectralOptions) Validate() error {
	if o.RepKMeans == "" {
		return fmt.Errorf("clustering: rep_kmeans must not be empty")
	}
	if o.NClusters < 1 {
		return fmt.Errorf("clustering: n_clusters must be positive, got %d", o.NClusters)
	}
	if o.NClusters2 < 1 {
		return fmt.Errorf("clustering: n_clusters2 must be positive, got %d", o.NClusters2)
	}
	if o.NInit < 1 {
		return fmt.Errorf("clustering: n_init must be positive, got %d", o.NInit)
	}
	return validateCommon(o.Rep, o.Resolution, o.ClassLabel)
}

func validateCommon(rep string, resolution float64, classLabel string) error {
	if rep == "" {
		return fmt.Errorf("clustering: rep must not be empty")
	}
	if resolution <= 0 {
		return fmt.Errorf("clustering: resolution must be positive, got %g", resolution)
	}
	if classLabel == "" {
		return fmt.Errorf("clustering: class_label must not be empty")
	}
	return nil
}
