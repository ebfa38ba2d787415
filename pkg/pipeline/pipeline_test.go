package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/james-bowman/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilchrisn/sc-analysis-service/pkg/anndata"
)

func TestConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, uint64(0), cfg.RandomState())
	assert.Equal(t, -1, cfg.NJobs())
	assert.True(t, cfg.DiffMapEnabled())
	assert.False(t, cfg.DiffMapTo3D())
	assert.False(t, cfg.LouvainEnabled())
	assert.False(t, cfg.LeidenEnabled())
	assert.False(t, cfg.SpectralLouvainEnabled())
	assert.False(t, cfg.SpectralLeidenEnabled())
	assert.Empty(t, cfg.PseudotimeRoots())

	dm := cfg.DiffMapOptions()
	assert.Equal(t, 50, dm.NComponents)
	assert.Equal(t, "pca", dm.Rep)
	assert.InDelta(t, 0.5, dm.Alpha, 1e-12)
	assert.Equal(t, "randomized", string(dm.Solver))

	lo := cfg.LouvainOptions()
	assert.InDelta(t, 1.3, lo.Resolution, 1e-12)
	assert.Equal(t, "louvain_labels", lo.ClassLabel)

	le := cfg.LeidenOptions()
	assert.Equal(t, -1, le.NIter)

	sp := cfg.SpectralOptions("spectral_leiden_labels")
	assert.Equal(t, "diffmap", sp.RepKMeans)
	assert.Equal(t, 30, sp.NClusters)
	assert.Equal(t, 50, sp.NClusters2)
	assert.Equal(t, "spectral_leiden_labels", sp.ClassLabel)
}

func TestConfigLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
random_state: 7
diffmap:
  n_components: 5
  solver: eigsh
leiden:
  enabled: true
  resolution: 0.9
pseudotime:
  roots: ["cell-0", "cell-1"]
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg := NewConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, uint64(7), cfg.RandomState())
	assert.Equal(t, 5, cfg.DiffMapOptions().NComponents)
	assert.Equal(t, "eigsh", string(cfg.DiffMapOptions().Solver))
	assert.True(t, cfg.LeidenEnabled())
	assert.InDelta(t, 0.9, cfg.LeidenOptions().Resolution, 1e-12)
	assert.Equal(t, []string{"cell-0", "cell-1"}, cfg.PseudotimeRoots())

	// Unset keys keep their defaults.
	assert.False(t, cfg.LouvainEnabled())
	assert.Equal(t, "pca", cfg.DiffMapOptions().Rep)
}

func TestConfigLoadMissingFile(t *testing.T) {
	cfg := NewConfig()
	require.Error(t, cfg.LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml")))
}

// twoBlockContainer builds a 12-cell container with two densely connected
// blocks bridged by one weak edge, under slot W_pca.
func twoBlockContainer(t *testing.T) *anndata.AnnData {
	t.Helper()
	const per = 6
	n := 2 * per
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("cell-%d", i)
	}
	data, err := anndata.New(names)
	require.NoError(t, err)

	dok := sparse.NewDOK(n, n)
	link := func(i, j int, w float64) {
		dok.Set(i, j, w)
		dok.Set(j, i, w)
	}
	for _, base := range []int{0, per} {
		for i := base; i < base+per; i++ {
			for j := i + 1; j < base+per; j++ {
				link(i, j, 1)
			}
		}
	}
	link(per-1, per, 0.05)
	require.NoError(t, data.SetAffinity("pca", dok.ToCSR()))
	return data
}

func TestRunEndToEnd(t *testing.T) {
	data := twoBlockContainer(t)

	cfg := NewConfig()
	cfg.Set("logging.level", "error")
	cfg.Set("diffmap.n_components", 5)
	cfg.Set("diffmap.to_3d", true)
	cfg.Set("louvain.enabled", true)
	cfg.Set("leiden.enabled", true)
	cfg.Set("spectral_leiden.enabled", true)
	cfg.Set("spectral.n_clusters", 3)
	cfg.Set("spectral.n_clusters2", 2)
	cfg.Set("pseudotime.roots", []string{"cell-0"})

	require.NoError(t, Run(data, cfg))

	x, err := data.Embedding("diffmap")
	require.NoError(t, err)
	r, c := x.Dims()
	assert.Equal(t, 12, r)
	assert.Equal(t, 4, c)
	assert.True(t, data.HasEmbedding("diffmap_pca"))

	evals, ok := data.Uns("diffmap_evals")
	require.True(t, ok)
	assert.Len(t, evals.([]float64), 4)

	for _, col := range []string{"louvain_labels", "leiden_labels", "spectral_leiden_labels"} {
		cat, ok := data.Labels(col)
		require.True(t, ok, "column %s missing", col)
		assert.Len(t, cat.Values, 12)
	}

	pt, ok := data.Scalar("pseudotime")
	require.True(t, ok)
	assert.Len(t, pt, 12)
	assert.InDelta(t, 0.0, pt[0], 1e-12, "root cell sits at pseudotime zero")
	for _, v := range pt {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestRunDisconnectedAffinityFails(t *testing.T) {
	data, err := anndata.New([]string{"a", "b", "c", "d"})
	require.NoError(t, err)

	dok := sparse.NewDOK(4, 4)
	dok.Set(0, 1, 1)
	dok.Set(1, 0, 1)
	dok.Set(2, 3, 1)
	dok.Set(3, 2, 1)
	require.NoError(t, data.SetAffinity("pca", dok.ToCSR()))

	cfg := NewConfig()
	cfg.Set("logging.level", "error")
	cfg.Set("diffmap.n_components", 2)
	err = Run(data, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "diffmap step failed")
}

func TestRunSkipsDisabledSteps(t *testing.T) {
	data, err := anndata.New([]string{"a", "b"})
	require.NoError(t, err)

	// Nothing enabled: the run succeeds without touching the container.
	cfg := NewConfig()
	cfg.Set("diffmap.enabled", false)
	require.NoError(t, Run(data, cfg))
	assert.False(t, data.HasEmbedding("diffmap"))
}
