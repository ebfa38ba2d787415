package partition

import (
	"math/rand/v2"
)

// qualityEps is the minimum quality improvement treated as progress.
const qualityEps = 1e-12

// Optimizer improves a partition in place and reports the total quality
// gain. Implementations must be deterministic for a fixed rng.
type Optimizer interface {
	Optimize(p *Partition, rng *rand.Rand) (float64, error)
}

// Louvain is the classic two-phase optimizer: greedy local moves followed
// by community aggregation, repeated until the hierarchy stops
// compressing.
type Louvain struct {
	// MaxSweeps bounds the local-move passes per level; non-positive means
	// sweep until no node moves.
	MaxSweeps int
}

// Optimize runs hierarchical Louvain on p.
func (l Louvain) Optimize(p *Partition, rng *rand.Rand) (float64, error) {
	before := p.Quality()

	localMove(p, rng, l.MaxSweeps)
	for {
		coarseGraph := p.Aggregate()
		if coarseGraph.N == p.G.N {
			break
		}
		coarse, err := NewPartition(coarseGraph, p.Resolution, nil)
		if err != nil {
			return 0, err
		}
		if moves := localMove(coarse, rng, l.MaxSweeps); moves == 0 {
			break
		}
		if err := p.FromCoarse(coarse); err != nil {
			return 0, err
		}
	}
	return p.Quality() - before, nil
}

// Leiden alternates local moves with a refinement phase that splits
// disconnected communities before aggregation, guaranteeing connected
// communities at every level.
type Leiden struct {
	// NIterations is the number of outer iterations; negative means run
	// until the quality stops improving.
	NIterations int
}

// Optimize runs the Leiden loop on p.
func (l Leiden) Optimize(p *Partition, rng *rand.Rand) (float64, error) {
	before := p.Quality()

	prev := before
	for it := 0; l.NIterations < 0 || it < l.NIterations; it++ {
		moves := localMove(p, rng, 0)

		refined, err := refine(p)
		if err != nil {
			return 0, err
		}

		coarseGraph := refined.Aggregate()
		if coarseGraph.N < refined.G.N {
			// Seed the coarse level with the unrefined communities so
			// refinement-split pieces can rejoin.
			seed := make([]int, coarseGraph.N)
			for node, refComm := range refined.Membership {
				seed[refComm] = p.Membership[node]
			}
			coarse, err := NewPartition(coarseGraph, p.Resolution, seed)
			if err != nil {
				return 0, err
			}
			localMove(coarse, rng, 0)
			if err := refined.FromCoarse(coarse); err != nil {
				return 0, err
			}
			copy(p.Membership, refined.Membership)
			p.rebuild()
		}

		q := p.Quality()
		if moves == 0 && q-prev <= qualityEps {
			break
		}
		prev = q
	}
	return p.Quality() - before, nil
}

// localMove greedily reassigns nodes to the neighbor community with the
// best RB quality gain until a sweep makes no move. Returns the total
// number of accepted moves.
func localMove(p *Partition, rng *rand.Rand, maxSweeps int) int {
	g := p.G
	m2 := 2 * g.TotalWeight
	order := make([]int, g.N)
	for i := range order {
		order[i] = i
	}

	commWeight := make(map[int]float64, 16)

	total := 0
	for sweep := 0; maxSweeps <= 0 || sweep < maxSweeps; sweep++ {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		sweepMoves := 0
		for _, v := range order {
			old := p.Membership[v]

			clear(commWeight)
			commWeight[old] = 0
			for t := g.Indptr[v]; t < g.Indptr[v+1]; t++ {
				commWeight[p.Membership[g.Indices[t]]] += g.Weights[t]
			}

			p.remove(v)

			// gain(c) = k_in(c) - gamma * k_v * tot_c / 2m, compared
			// across candidates; constant terms cancel.
			best, bestGain := old, commWeight[old]-p.Resolution*g.Degree[v]*p.tot[old]/m2
			for c, kin := range commWeight {
				if c == best {
					continue
				}
				gain := kin - p.Resolution*g.Degree[v]*p.tot[c]/m2
				if gain > bestGain || (gain == bestGain && c < best) {
					best, bestGain = c, gain
				}
			}

			p.insert(v, best)
			if best != old {
				sweepMoves++
			}
		}

		total += sweepMoves
		if sweepMoves == 0 {
			break
		}
	}
	return total
}

// refine splits every community of p into its connected components,
// producing a finer partition of the same graph.
func refine(p *Partition) (*Partition, error) {
	g := p.G
	refined := make([]int, g.N)
	for i := range refined {
		refined[i] = -1
	}

	next := 0
	queue := make([]int, 0, g.N)
	for start := 0; start < g.N; start++ {
		if refined[start] >= 0 {
			continue
		}
		comm := p.Membership[start]
		refined[start] = next
		queue = append(queue[:0], start)
		for len(queue) > 0 {
			v := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			for t := g.Indptr[v]; t < g.Indptr[v+1]; t++ {
				u := g.Indices[t]
				if refined[u] < 0 && p.Membership[u] == comm {
					refined[u] = next
					queue = append(queue, u)
				}
			}
		}
		next++
	}
	return NewPartition(g, p.Resolution, refined)
}
