package store

import (
	"sync"

	"github.com/coder/hnsw"
)

// vectorIndex is an in-memory nearest-neighbor accelerator over int64-keyed float32 vectors. It
// holds no durable state of its own: sqlite's embedding blob columns are the single source of
// truth, and vectorIndex is rebuilt from them at store open and kept incrementally in sync by
// every upsert/delete the Store performs in the same call. Losing the graph (process restart,
// panic) never loses data — only the cost of one rebuild pass.
type vectorIndex struct {
	mu    sync.RWMutex
	graph *hnsw.Graph[int64]
	ids   map[int64]struct{}
}

func newVectorIndex() *vectorIndex {
	g := hnsw.NewGraph[int64]()
	g.Distance = hnsw.CosineDistance
	g.M = 16
	g.EfSearch = 20
	g.Ml = 0.25
	return &vectorIndex{graph: g, ids: make(map[int64]struct{})}
}

// upsert inserts or replaces the vector for id. Vectors must already be L2-normalized by the
// caller (the embedder contract guarantees this).
func (v *vectorIndex) upsert(id int64, vec []float32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.graph.Add(hnsw.MakeNode(id, vec))
	v.ids[id] = struct{}{}
}

// delete removes id from the index. Uses lazy deletion rather than graph.Delete: the node stays
// reachable inside the graph but is filtered out of every search result and no longer counted.
func (v *vectorIndex) delete(id int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.ids, id)
}

// search returns up to k nearest neighbors to query, ordered by ascending distance.
func (v *vectorIndex) search(query []float32, k int) []VectorRow {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if len(v.ids) == 0 {
		return nil
	}

	nodes := v.graph.Search(query, k)
	results := make([]VectorRow, 0, len(nodes))
	for _, n := range nodes {
		if _, ok := v.ids[n.Key]; !ok {
			continue
		}
		results = append(results, VectorRow{
			ID:       n.Key,
			Distance: v.graph.Distance(query, n.Value),
		})
	}
	return results
}

func (v *vectorIndex) count() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.ids)
}
