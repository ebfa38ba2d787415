// Package kmeans implements seeded k-means clustering with k-means++
// initialization, Lloyd iterations, independent restarts and
// worker-parallel point assignment. Results are deterministic for a fixed
// seed: all random draws come from one explicit generator and workers only
// parallelize the read-only assignment step.
package kmeans

import (
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// Options configures one clustering run.
type Options struct {
	// K is the number of clusters.
	K int
	// NInit is the number of independent restarts; the assignment with the
	// lowest inertia wins.
	NInit int
	// MaxIter bounds the Lloyd iterations of each restart.
	MaxIter int
	// Tol is the center-shift convergence threshold.
	Tol float64
	// Workers is the number of goroutines for the assignment step;
	// non-positive means all available CPUs.
	Workers int
	// Seed seeds the generator for initialization and restarts.
	Seed uint64
}

// DefaultOptions mirrors the usual k-means defaults for k clusters.
func DefaultOptions(k int) Options {
	return Options{K: k, NInit: 10, MaxIter: 300, Tol: 1e-4, Workers: -1, Seed: 0}
}

// Partition clusters the rows of x into K groups and returns one label in
// [0, K) per row.
func Partition(x *mat.Dense, opts Options) ([]int, error) {
	n, d := x.Dims()
	if opts.K < 1 {
		return nil, fmt.Errorf("kmeans: k must be positive, got %d", opts.K)
	}
	if opts.K > n {
		return nil, fmt.Errorf("kmeans: k=%d exceeds %d points", opts.K, n)
	}
	if opts.NInit < 1 {
		return nil, fmt.Errorf("kmeans: n_init must be positive, got %d", opts.NInit)
	}
	if opts.MaxIter < 1 {
		return nil, fmt.Errorf("kmeans: max_iter must be positive, got %d", opts.MaxIter)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	points := make([][]float64, n)
	for i := 0; i < n; i++ {
		points[i] = mat.Row(nil, i, x)
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))

	bestInertia := math.Inf(1)
	var bestLabels []int
	for restart := 0; restart < opts.NInit; restart++ {
		labels, inertia := lloyd(points, d, opts.K, opts.MaxIter, opts.Tol, workers, rng)
		if inertia < bestInertia {
			bestInertia = inertia
			bestLabels = labels
		}
	}
	return bestLabels, nil
}

// lloyd runs a single k-means restart.
func lloyd(points [][]float64, d, k, maxIter int, tol float64, workers int, rng *rand.Rand) ([]int, float64) {
	centers := plusPlusInit(points, d, k, rng)
	labels := make([]int, len(points))
	dists := make([]float64, len(points))

	for iter := 0; iter < maxIter; iter++ {
		assign(points, centers, labels, dists, workers)

		next := make([][]float64, k)
		counts := make([]int, k)
		for c := range next {
			next[c] = make([]float64, d)
		}
		for i, p := range points {
			c := labels[i]
			counts[c]++
			for j, v := range p {
				next[c][j] += v
			}
		}

		var shift float64
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				// Reseed an emptied cluster on the point farthest from its
				// center to keep exactly k clusters.
				far := farthest(dists)
				copy(next[c], points[far])
				counts[c] = 1
				dists[far] = 0
			} else {
				for j := range next[c] {
					next[c][j] /= float64(counts[c])
				}
			}
			shift += sqDist(centers[c], next[c])
		}
		centers = next
		if shift <= tol {
			break
		}
	}

	assign(points, centers, labels, dists, workers)
	var inertia float64
	for _, v := range dists {
		inertia += v
	}
	return labels, inertia
}

// plusPlusInit seeds centers with the k-means++ scheme.
func plusPlusInit(points [][]float64, d, k int, rng *rand.Rand) [][]float64 {
	centers := make([][]float64, 0, k)
	first := append([]float64(nil), points[rng.IntN(len(points))]...)
	centers = append(centers, first)

	minDist := make([]float64, len(points))
	for i, p := range points {
		minDist[i] = sqDist(p, first)
	}

	for len(centers) < k {
		var total float64
		for _, v := range minDist {
			total += v
		}
		var idx int
		if total == 0 {
			// All points coincide with a center; any choice is equivalent.
			idx = rng.IntN(len(points))
		} else {
			target := rng.Float64() * total
			var cum float64
			for i, v := range minDist {
				cum += v
				if cum >= target {
					idx = i
					break
				}
			}
		}
		next := append([]float64(nil), points[idx]...)
		centers = append(centers, next)
		for i, p := range points {
			if dd := sqDist(p, next); dd < minDist[i] {
				minDist[i] = dd
			}
		}
	}
	return centers
}

// assign labels every point with its nearest center, chunked over workers.
func assign(points [][]float64, centers [][]float64, labels []int, dists []float64, workers int) {
	n := len(points)
	chunk := (n + workers - 1) / workers
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		lo := w * chunk
		if lo >= n {
			break
		}
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				best, bestD := 0, math.Inf(1)
				for c, ctr := range centers {
					if dd := sqDist(points[i], ctr); dd < bestD {
						best, bestD = c, dd
					}
				}
				labels[i] = best
				dists[i] = bestD
			}
			return nil
		})
	}
	_ = g.Wait()
}

func farthest(dists []float64) int {
	best, bestD := 0, -1.0
	for i, v := range dists {
		if v > bestD {
			best, bestD = i, v
		}
	}
	return best
}

func sqDist(a, b []float64) float64 {
	var s float64
	for i, v := range a {
		diff := v - b[i]
		s += diff * diff
	}
	return s
}
