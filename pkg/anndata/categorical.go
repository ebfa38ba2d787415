package anndata

import (
	"sort"

	"github.com/maruel/natural"
)

// Categorical is an ordered categorical per-cell array. Categories are the
// distinct values in natural sort order, so numeric string labels order as
// "1", "2", ..., "10" rather than lexicographically.
type Categorical struct {
	Values     []string
	Categories []string
}

// NewCategorical builds an ordered categorical from raw values. The
// category order is fixed by natural-sorting the distinct values.
func NewCategorical(values []string) *Categorical {
	seen := make(map[string]struct{}, len(values))
	cats := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			cats = append(cats, v)
		}
	}
	sort.Slice(cats, func(i, j int) bool { return natural.Less(cats[i], cats[j]) })

	vals := make([]string, len(values))
	copy(vals, values)
	return &Categorical{Values: vals, Categories: cats}
}

// Codes returns, per cell, the index of its value in Categories.
func (c *Categorical) Codes() []int {
	idx := make(map[string]int, len(c.Categories))
	for i, cat := range c.Categories {
		idx[cat] = i
	}
	codes := make([]int, len(c.Values))
	for i, v := range c.Values {
		codes[i] = idx[v]
	}
	return codes
}

// NCategories returns the number of distinct categories.
func (c *Categorical) NCategories() int { return len(c.Categories) }
