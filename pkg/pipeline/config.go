// Package pipeline chains the analysis steps of this service on a shared
// annotated container: diffusion map, 3D reduction, the enabled clustering
// drivers, and pseudo-time. Input loading, quality filtering, batch
// correction and visualization embeddings belong to the surrounding
// tooling, not to this core.
package pipeline

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/gilchrisn/sc-analysis-service/pkg/clustering"
	"github.com/gilchrisn/sc-analysis-service/pkg/diffmap"
)

// Config manages pipeline configuration using Viper.
type Config struct {
	v *viper.Viper
}

// NewConfig creates a new configuration with defaults.
func NewConfig() *Config {
	v := viper.New()

	// Shared parameters
	v.SetDefault("random_state", 0)
	v.SetDefault("n_jobs", -1)

	// Diffusion map
	v.SetDefault("diffmap.enabled", true)
	v.SetDefault("diffmap.rep", "pca")
	v.SetDefault("diffmap.n_components", 50)
	v.SetDefault("diffmap.alpha", 0.5)
	v.SetDefault("diffmap.solver", "randomized")
	v.SetDefault("diffmap.to_3d", false)

	// Clustering drivers
	v.SetDefault("louvain.enabled", false)
	v.SetDefault("louvain.rep", "pca")
	v.SetDefault("louvain.resolution", 1.3)
	v.SetDefault("louvain.class_label", "louvain_labels")

	v.SetDefault("leiden.enabled", false)
	v.SetDefault("leiden.rep", "pca")
	v.SetDefault("leiden.resolution", 1.3)
	v.SetDefault("leiden.n_iter", -1)
	v.SetDefault("leiden.class_label", "leiden_labels")

	v.SetDefault("spectral_louvain.enabled", false)
	v.SetDefault("spectral_leiden.enabled", false)
	v.SetDefault("spectral.rep", "pca")
	v.SetDefault("spectral.resolution", 1.3)
	v.SetDefault("spectral.rep_kmeans", "diffmap")
	v.SetDefault("spectral.n_clusters", 30)
	v.SetDefault("spectral.n_clusters2", 50)
	v.SetDefault("spectral.n_init", 10)

	// Pseudo-time; roots empty means the step is skipped.
	v.SetDefault("pseudotime.roots", []string{})

	// Logging
	v.SetDefault("logging.level", "info")

	return &Config{v: v}
}

// LoadFromFile loads configuration from file.
func (c *Config) LoadFromFile(path string) error {
	c.v.SetConfigFile(path)
	return c.v.ReadInConfig()
}

// Set allows dynamic configuration changes.
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

func (c *Config) RandomState() uint64 { return c.v.GetUint64("random_state") }
func (c *Config) NJobs() int          { return c.v.GetInt("n_jobs") }

func (c *Config) DiffMapEnabled() bool { return c.v.GetBool("diffmap.enabled") }
func (c *Config) DiffMapTo3D() bool    { return c.v.GetBool("diffmap.to_3d") }

func (c *Config) LouvainEnabled() bool         { return c.v.GetBool("louvain.enabled") }
func (c *Config) LeidenEnabled() bool          { return c.v.GetBool("leiden.enabled") }
func (c *Config) SpectralLouvainEnabled() bool { return c.v.GetBool("spectral_louvain.enabled") }
func (c *Config) SpectralLeidenEnabled() bool  { return c.v.GetBool("spectral_leiden.enabled") }

func (c *Config) PseudotimeRoots() []string { return c.v.GetStringSlice("pseudotime.roots") }

func (c *Config) LogLevel() string { return c.v.GetString("logging.level") }

// DiffMapOptions materializes the diffusion map options.
func (c *Config) DiffMapOptions() diffmap.Options {
	opts := diffmap.DefaultOptions()
	opts.Rep = c.v.GetString("diffmap.rep")
	opts.NComponents = c.v.GetInt("diffmap.n_components")
	opts.Alpha = c.v.GetFloat64("diffmap.alpha")
	opts.Solver = diffmap.Solver(c.v.GetString("diffmap.solver"))
	opts.RandomState = c.RandomState()
	return opts
}

// LouvainOptions materializes the Louvain driver options.
func (c *Config) LouvainOptions() clustering.LouvainOptions {
	opts := clustering.DefaultLouvainOptions()
	opts.Rep = c.v.GetString("louvain.rep")
	opts.Resolution = c.v.GetFloat64("louvain.resolution")
	opts.ClassLabel = c.v.GetString("louvain.class_label")
	opts.RandomState = c.RandomState()
	return opts
}

// LeidenOptions materializes the Leiden driver options.
func (c *Config) LeidenOptions() clustering.LeidenOptions {
	opts := clustering.DefaultLeidenOptions()
	opts.Rep = c.v.GetString("leiden.rep")
	opts.Resolution = c.v.GetFloat64("leiden.resolution")
	opts.NIter = c.v.GetInt("leiden.n_iter")
	opts.ClassLabel = c.v.GetString("leiden.class_label")
	opts.RandomState = c.RandomState()
	return opts
}

// SpectralOptions materializes the spectral driver options; the class
// label follows the chosen algorithm's default.
func (c *Config) SpectralOptions(classLabel string) clustering.SpectralOptions {
	opts := clustering.DefaultSpectralLouvainOptions()
	opts.Rep = c.v.GetString("spectral.rep")
	opts.Resolution = c.v.GetFloat64("spectral.resolution")
	opts.RepKMeans = c.v.GetString("spectral.rep_kmeans")
	opts.NClusters = c.v.GetInt("spectral.n_clusters")
	opts.NClusters2 = c.v.GetInt("spectral.n_clusters2")
	opts.NInit = c.v.GetInt("spectral.n_init")
	opts.NJobs = c.NJobs()
	opts.RandomState = c.RandomState()
	opts.ClassLabel = classLabel
	return opts
}

// CreateLogger creates a zerolog logger based on config.
func (c *Config) CreateLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "15:04:05",
	}).Level(level).With().Timestamp().Str("service", "sc-analysis").Logger()
}
