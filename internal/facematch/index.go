package facematch

import (
	"github.com/coder/hnsw"
)

const indexMaxNeighbors = 16

// candidateIndex is an HNSW graph over sample descriptors keyed by sample
// position. It only preselects candidates; callers re-score them exactly.
type candidateIndex struct {
	graph *hnsw.Graph[int]
}

// buildIndex indexes every descriptor under its position in descs.
func buildIndex(descs []Histogram) *candidateIndex {
	g := hnsw.NewGraph[int]()
	g.M = indexMaxNeighbors
	g.Ml = 1.0 / float64(indexMaxNeighbors)
	g.EfSearch = 4 * indexMaxNeighbors
	g.Distance = chiSquare32

	for i, d := range descs {
		g.Add(hnsw.MakeNode(i, d.float32s()))
	}
	return &candidateIndex{graph: g}
}

// Search returns the positions of up to k approximate nearest descriptors.
func (c *candidateIndex) Search(query Histogram, k int) []int {
	if c == nil || c.graph == nil || c.graph.Len() == 0 {
		return nil
	}
	nodes := c.graph.Search(query.float32s(), k)
	keys := make([]int, len(nodes))
	for i, n := range nodes {
		keys[i] = n.Key
	}
	return keys
}
