// Package anndata provides the in-memory annotated cell matrix container
// shared by all analysis steps. Embeddings, affinity matrices, cluster
// labels and per-cell scalars are read from and written into named slots
// of a single AnnData value; the container itself performs no computation.
package anndata

import (
	"errors"
	"fmt"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrMissingAffinity is returned when an operation needs an affinity
	// matrix that the neighbors step has not produced yet.
	ErrMissingAffinity = errors.New("affinity matrix does not exist")

	// ErrMissingEmbedding is returned when an operation needs a coordinate
	// matrix that no upstream step has produced yet.
	ErrMissingEmbedding = errors.New("embedding does not exist")

	// ErrUnknownCell is returned when a cell name cannot be resolved.
	ErrUnknownCell = errors.New("unknown cell name")
)

// AnnData is a cell-indexed annotated data container. Rows of every
// embedding and both axes of every affinity matrix index the same cell
// set, in the order of ObsNames.
type AnnData struct {
	obsNames []string
	obsIndex map[string]int

	obsm   map[string]*mat.Dense  // dense embeddings, keyed "X_<rep>"
	uns    map[string]interface{} // unstructured annotations (evals, roots, ...)
	affins map[string]*sparse.CSR // affinity matrices, keyed "W_<rep>"

	obsCat map[string]*Categorical // per-cell categorical columns
	obsNum map[string][]float64    // per-cell numeric columns
}

// New creates an empty container over the given cell names.
// Cell names must be unique.
func New(obsNames []string) (*AnnData, error) {
	idx := make(map[string]int, len(obsNames))
	for i, name := range obsNames {
		if _, dup := idx[name]; dup {
			return nil, fmt.Errorf("duplicate cell name %q", name)
		}
		idx[name] = i
	}
	names := make([]string, len(obsNames))
	copy(names, obsNames)

	return &AnnData{
		obsNames: names,
		obsIndex: idx,
		obsm:     make(map[string]*mat.Dense),
		uns:      make(map[string]interface{}),
		affins:   make(map[string]*sparse.CSR),
		obsCat:   make(map[string]*Categorical),
		obsNum:   make(map[string][]float64),
	}, nil
}

// NObs returns the number of cells.
func (d *AnnData) NObs() int { return len(d.obsNames) }

// ObsNames returns the cell names in container order.
func (d *AnnData) ObsNames() []string { return d.obsNames }

// ObsIndex resolves a cell name to its row index.
func (d *AnnData) ObsIndex(name string) (int, error) {
	i, ok := d.obsIndex[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCell, name)
	}
	return i, nil
}

// ===== AFFINITY MATRICES (uns slot "W_<rep>") =====

// Affinity returns the affinity matrix stored for the representation,
// e.g. rep "pca" reads slot "W_pca".
func (d *AnnData) Affinity(rep string) (*sparse.CSR, error) {
	w, ok := d.affins["W_"+rep]
	if !ok {
		return nil, fmt.Errorf("%w for rep %q: please run neighbors first", ErrMissingAffinity, rep)
	}
	return w, nil
}

// SetAffinity stores an affinity matrix under "W_<rep>". The matrix must
// be square over the container's cell set.
func (d *AnnData) SetAffinity(rep string, w *sparse.CSR) error {
	r, c := w.Dims()
	if r != d.NObs() || c != d.NObs() {
		return fmt.Errorf("affinity shape %dx%d does not match %d cells", r, c, d.NObs())
	}
	d.affins["W_"+rep] = w
	return nil
}

// HasAffinity reports whether "W_<rep>" exists.
func (d *AnnData) HasAffinity(rep string) bool {
	_, ok := d.affins["W_"+rep]
	return ok
}

// ===== EMBEDDINGS (obsm slot "X_<rep>") =====

// Embedding returns the coordinate matrix stored for the representation,
// e.g. rep "diffmap" reads slot "X_diffmap".
func (d *AnnData) Embedding(rep string) (*mat.Dense, error) {
	x, ok := d.obsm["X_"+rep]
	if !ok {
		return nil, fmt.Errorf("%w: please run %s first", ErrMissingEmbedding, rep)
	}
	return x, nil
}

// SetEmbedding stores a coordinate matrix under "X_<rep>". Row count must
// match the cell set.
func (d *AnnData) SetEmbedding(rep string, x *mat.Dense) error {
	r, _ := x.Dims()
	if r != d.NObs() {
		return fmt.Errorf("embedding has %d rows for %d cells", r, d.NObs())
	}
	d.obsm["X_"+rep] = x
	return nil
}

// HasEmbedding reports whether "X_<rep>" exists.
func (d *AnnData) HasEmbedding(rep string) bool {
	_, ok := d.obsm["X_"+rep]
	return ok
}

// ===== UNSTRUCTURED ANNOTATIONS =====

// Uns returns an unstructured annotation slot ("diffmap_evals", "roots", ...).
func (d *AnnData) Uns(key string) (interface{}, bool) {
	v, ok := d.uns[key]
	return v, ok
}

// SetUns stores an unstructured annotation.
func (d *AnnData) SetUns(key string, v interface{}) { d.uns[key] = v }

// ===== PER-CELL COLUMNS =====

// Labels returns a categorical per-cell column.
func (d *AnnData) Labels(name string) (*Categorical, bool) {
	c, ok := d.obsCat[name]
	return c, ok
}

// SetLabels attaches a categorical column to the cells.
func (d *AnnData) SetLabels(name string, c *Categorical) error {
	if len(c.Values) != d.NObs() {
		return fmt.Errorf("labels %q have %d values for %d cells", name, len(c.Values), d.NObs())
	}
	d.obsCat[name] = c
	return nil
}

// Scalar returns a numeric per-cell column ("pseudotime", ...).
func (d *AnnData) Scalar(name string) ([]float64, bool) {
	s, ok := d.obsNum[name]
	return s, ok
}

// SetScalar attaches a numeric column to the cells.
func (d *AnnData) SetScalar(name string, vals []float64) error {
	if len(vals) != d.NObs() {
		return fmt.Errorf("scalar %q has %d values for %d cells", name, len(vals), d.NObs())
	}
	d.obsNum[name] = vals
	return nil
}
