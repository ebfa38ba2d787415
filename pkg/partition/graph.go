// Package partition provides the community-detection capability used by
// the clustering drivers: a weighted undirected graph built from a cell
// affinity matrix, a Reichardt-Bornholdt configuration partition with a
// resolution parameter, coarse aggregation with coarse-to-fine expansion,
// and two interchangeable optimizers (Louvain and Leiden) selected by the
// caller.
package partition

import (
	"fmt"
	"sort"

	"github.com/james-bowman/sparse"
)

// Graph is a weighted undirected graph in compressed sparse row form.
// Self-loops are stored separately and count twice toward a node's degree,
// matching the usual modularity conventions.
type Graph struct {
	N       int
	Indptr  []int
	Indices []int
	Weights []float64

	Degree      []float64 // weighted degree, self-loops counted twice
	SelfLoop    []float64
	TotalWeight float64 // m: every undirected edge counted once
}

// NewGraph builds a graph from a symmetric non-negative affinity matrix.
// Every off-diagonal entry (i,j) is expected to have a matching (j,i)
// entry of equal weight; the matrix produced by the neighbors step has
// this property by construction.
func NewGraph(w *sparse.CSR) (*Graph, error) {
	n, c := w.Dims()
	if n != c {
		return nil, fmt.Errorf("partition: affinity matrix is %dx%d, want square", n, c)
	}

	g := &Graph{
		N:        n,
		Indptr:   make([]int, n+1),
		Degree:   make([]float64, n),
		SelfLoop: make([]float64, n),
	}

	counts := make([]int, n)
	w.DoNonZero(func(i, j int, v float64) {
		if v < 0 {
			return
		}
		if i == j {
			g.SelfLoop[i] = v
			return
		}
		counts[i]++
	})
	for i := 0; i < n; i++ {
		g.Indptr[i+1] = g.Indptr[i] + counts[i]
	}
	g.Indices = make([]int, g.Indptr[n])
	g.Weights = make([]float64, g.Indptr[n])

	fill := make([]int, n)
	copy(fill, g.Indptr[:n])
	w.DoNonZero(func(i, j int, v float64) {
		if v < 0 || i == j {
			return
		}
		g.Indices[fill[i]] = j
		g.Weights[fill[i]] = v
		fill[i]++
	})

	var offDiag float64
	for i := 0; i < n; i++ {
		var row float64
		for t := g.Indptr[i]; t < g.Indptr[i+1]; t++ {
			row += g.Weights[t]
		}
		g.Degree[i] = row + 2*g.SelfLoop[i]
		offDiag += row
		g.TotalWeight += g.SelfLoop[i]
	}
	g.TotalWeight += offDiag / 2

	if g.TotalWeight == 0 {
		return nil, fmt.Errorf("partition: affinity matrix has no positive weight")
	}
	return g, nil
}

// newGraphFromEdges assembles a graph from aggregated edge maps; used when
// contracting communities into super-nodes.
func newGraphFromEdges(n int, edges map[[2]int]float64, selfLoop []float64) *Graph {
	g := &Graph{
		N:        n,
		Indptr:   make([]int, n+1),
		Degree:   make([]float64, n),
		SelfLoop: selfLoop,
	}

	adj := make([]map[int]float64, n)
	for e, w := range edges {
		a, b := e[0], e[1]
		if adj[a] == nil {
			adj[a] = make(map[int]float64)
		}
		if adj[b] == nil {
			adj[b] = make(map[int]float64)
		}
		adj[a][b] += w
		adj[b][a] += w
	}

	for i := 0; i < n; i++ {
		g.Indptr[i+1] = g.Indptr[i] + len(adj[i])
	}
	g.Indices = make([]int, g.Indptr[n])
	g.Weights = make([]float64, g.Indptr[n])

	for i := 0; i < n; i++ {
		nbrs := make([]int, 0, len(adj[i]))
		for j := range adj[i] {
			nbrs = append(nbrs, j)
		}
		sort.Ints(nbrs)
		at := g.Indptr[i]
		var row float64
		for _, j := range nbrs {
			g.Indices[at] = j
			g.Weights[at] = adj[i][j]
			row += adj[i][j]
			at++
		}
		g.Degree[i] = row + 2*g.SelfLoop[i]
		g.TotalWeight += g.SelfLoop[i] + row/2
	}
	return g
}
