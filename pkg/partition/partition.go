package partition

import (
	"fmt"
)

// Partition assigns every graph node to a community and tracks the
// community aggregates needed for Reichardt-Bornholdt configuration
// quality at a given resolution. Community IDs are always dense, 0..C-1,
// in order of first appearance.
type Partition struct {
	G          *Graph
	Resolution float64
	Membership []int

	nComms int
	tot    []float64 // sum of member degrees per community
	in     []float64 // twice the internal weight per community
	size   []int
}

// NewPartition creates a partition of g. A nil initial membership places
// every node in its own community; otherwise initial labels are compacted
// to dense IDs in order of first appearance.
func NewPartition(g *Graph, resolution float64, initial []int) (*Partition, error) {
	if resolution <= 0 {
		return nil, fmt.Errorf("partition: resolution must be positive, got %g", resolution)
	}
	memb := make([]int, g.N)
	if initial == nil {
		for i := range memb {
			memb[i] = i
		}
	} else {
		if len(initial) != g.N {
			return nil, fmt.Errorf("partition: initial membership has %d entries for %d nodes", len(initial), g.N)
		}
		relabel := make(map[int]int)
		for i, c := range initial {
			dense, ok := relabel[c]
			if !ok {
				dense = len(relabel)
				relabel[c] = dense
			}
			memb[i] = dense
		}
	}

	p := &Partition{G: g, Resolution: resolution, Membership: memb}
	p.rebuild()
	return p, nil
}

// NComms returns the number of non-empty communities.
func (p *Partition) NComms() int {
	n := 0
	for _, s := range p.size {
		if s > 0 {
			n++
		}
	}
	return n
}

// rebuild recomputes the community aggregates from the membership.
func (p *Partition) rebuild() {
	p.nComms = 0
	for _, c := range p.Membership {
		if c+1 > p.nComms {
			p.nComms = c + 1
		}
	}
	p.tot = make([]float64, p.nComms)
	p.in = make([]float64, p.nComms)
	p.size = make([]int, p.nComms)

	g := p.G
	for i := 0; i < g.N; i++ {
		c := p.Membership[i]
		p.tot[c] += g.Degree[i]
		p.size[c]++
		p.in[c] += 2 * g.SelfLoop[i]
		for t := g.Indptr[i]; t < g.Indptr[i+1]; t++ {
			if p.Membership[g.Indices[t]] == c {
				p.in[c] += g.Weights[t]
			}
		}
	}
}

// Quality returns the RB configuration modularity
//
//	Q = sum_c [ in_c/(2m) - gamma*(tot_c/(2m))^2 ]
func (p *Partition) Quality() float64 {
	m2 := 2 * p.G.TotalWeight
	var q float64
	for c := 0; c < p.nComms; c++ {
		if p.size[c] == 0 {
			continue
		}
		q += p.in[c]/m2 - p.Resolution*(p.tot[c]/m2)*(p.tot[c]/m2)
	}
	return q
}

// linksTo sums edge weights from node v into community c, excluding v's
// self-loop.
func (p *Partition) linksTo(v, c int) float64 {
	g := p.G
	var w float64
	for t := g.Indptr[v]; t < g.Indptr[v+1]; t++ {
		if p.Membership[g.Indices[t]] == c {
			w += g.Weights[t]
		}
	}
	return w
}

// remove takes node v out of its community, leaving it unassigned.
func (p *Partition) remove(v int) {
	c := p.Membership[v]
	p.tot[c] -= p.G.Degree[v]
	p.in[c] -= 2*p.linksTo(v, c) + 2*p.G.SelfLoop[v]
	p.size[c]--
	p.Membership[v] = -1
}

// insert places an unassigned node v into community c.
func (p *Partition) insert(v, c int) {
	p.in[c] += 2*p.linksTo(v, c) + 2*p.G.SelfLoop[v]
	p.Membership[v] = c
	p.tot[c] += p.G.Degree[v]
	p.size[c]++
}

// Aggregate contracts every community into a super-node and returns the
// coarse graph. The receiving partition's membership indexes coarse nodes
// directly, so optimizing a partition of the coarse graph and expanding
// with FromCoarse refines this partition.
func (p *Partition) Aggregate() *Graph {
	// Compact community IDs for the coarse node set.
	compact := make([]int, p.nComms)
	for i := range compact {
		compact[i] = -1
	}
	nCoarse := 0
	for _, c := range p.Membership {
		if compact[c] < 0 {
			compact[c] = nCoarse
			nCoarse++
		}
	}
	for i, c := range p.Membership {
		p.Membership[i] = compact[c]
	}
	p.rebuild()

	edges := make(map[[2]int]float64)
	selfLoop := make([]float64, nCoarse)
	g := p.G
	for i := 0; i < g.N; i++ {
		a := p.Membership[i]
		selfLoop[a] += g.SelfLoop[i]
		for t := g.Indptr[i]; t < g.Indptr[i+1]; t++ {
			j := g.Indices[t]
			b := p.Membership[j]
			if a == b {
				// Internal edges become half a self-loop per direction.
				selfLoop[a] += g.Weights[t] / 2
				continue
			}
			if a < b {
				edges[[2]int{a, b}] += g.Weights[t] / 2
			} else {
				edges[[2]int{b, a}] += g.Weights[t] / 2
			}
		}
	}
	return newGraphFromEdges(nCoarse, edges, selfLoop)
}

// FromCoarse expands an optimized coarse partition back onto this
// partition's node set: node v moves to the community its super-node
// belongs to.
func (p *Partition) FromCoarse(coarse *Partition) error {
	for _, c := range p.Membership {
		if c < 0 || c >= coarse.G.N {
			return fmt.Errorf("partition: membership value %d does not index the %d coarse nodes", c, coarse.G.N)
		}
	}
	for i, c := range p.Membership {
		p.Membership[i] = coarse.Membership[c]
	}
	p.rebuild()
	return nil
}
