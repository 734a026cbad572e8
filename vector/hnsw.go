// Copyright 2025 The Noesis Authors. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package vector implements the per-namespace approximate-nearest-neighbor
// index (an HNSW graph over L2-normalized embeddings) together with the
// embedder client and the asynchronous indexing queue.
package vector

import (
	"container/heap"
	"math"
	"math/rand"
	"sync"

	"github.com/noesisdb/noesis/graph"
)

// Params are the HNSW construction and search parameters.
type Params struct {
	M              int
	EfConstruction int
	EfSearch       int
}

// DefaultParams returns the namespace defaults.
func DefaultParams() Params {
	return Params{M: 16, EfConstruction: 200, EfSearch: 64}
}

func (p Params) sane() Params {
	if p.M <= 0 {
		p.M = 16
	}
	if p.EfConstruction < p.M {
		p.EfConstruction = 200
	}
	if p.EfSearch <= 0 {
		p.EfSearch = 64
	}
	return p
}

// Payload travels with each vector record.
type Payload struct {
	URI     string `json:"uri"`
	Snippet string `json:"snippet,omitempty"`
	Kind    string `json:"kind"` // "iri" or "literal"
}

// Hit is one search result; Score is cosine similarity mapped into [0,1].
type Hit struct {
	NodeID  int64
	Score   float64
	Payload Payload
}

type node struct {
	id      int64
	vec     []float32
	payload Payload
	level   int
	links   [][]int64 // neighbor ids per layer, layer 0 first
}

// Index is one namespace's HNSW graph. Writes are append-mostly and take the
// index's own lock, separate from the namespace triple-store lock.
type Index struct {
	mu       sync.RWMutex
	params   Params
	dim      int
	nodes    map[int64]*node
	entry    int64
	maxLevel int
	rng      *rand.Rand
	levelMul float64
}

// NewIndex returns an empty index. The dimension is pinned by the first
// Upsert.
func NewIndex(params Params) *Index {
	params = params.sane()
	return &Index{
		params:   params,
		nodes:    make(map[int64]*node),
		rng:      rand.New(rand.NewSource(1)),
		levelMul: 1 / math.Log(float64(params.M)),
	}
}

// Dimension returns the pinned dimension, 0 before the first insert.
func (ix *Index) Dimension() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dim
}

// Len returns the number of stored vectors.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.nodes)
}

// Has reports whether nodeID is indexed.
func (ix *Index) Has(nodeID int64) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.nodes[nodeID]
	return ok
}

// Upsert inserts or replaces the vector for nodeID. The first insert fixes
// the namespace dimension; later mismatches fail with a dimension error.
func (ix *Index) Upsert(nodeID int64, vec []float32, payload Payload) error {
	if len(vec) == 0 {
		return graph.Errorf(graph.KindValidation, "empty vector for node %d", nodeID)
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.dim == 0 {
		ix.dim = len(vec)
	} else if len(vec) != ix.dim {
		return graph.Errorf(graph.KindValidation,
			"dimension mismatch: namespace is fixed at %d, got %d", ix.dim, len(vec))
	}
	if _, ok := ix.nodes[nodeID]; ok {
		ix.unlink(nodeID)
	}
	ix.insert(nodeID, normalize(vec), payload)
	return nil
}

// Delete removes nodeID from the index.
func (ix *Index) Delete(nodeID int64) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, ok := ix.nodes[nodeID]; !ok {
		return false
	}
	ix.unlink(nodeID)
	return true
}

// Search returns the k nearest stored vectors by cosine similarity.
func (ix *Index) Search(query []float32, k int) ([]Hit, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if len(ix.nodes) == 0 || k <= 0 {
		return nil, nil
	}
	if ix.dim != 0 && len(query) != ix.dim {
		return nil, graph.Errorf(graph.KindValidation,
			"dimension mismatch: namespace is fixed at %d, got %d", ix.dim, len(query))
	}
	q := normalize(query)

	ep := ix.entry
	for layer := ix.maxLevel; layer > 0; layer-- {
		ep = ix.greedy(q, ep, layer)
	}
	ef := ix.params.EfSearch
	if ef < k {
		ef = k
	}
	cand := ix.searchLayer(q, ep, 0, ef)
	if len(cand) > k {
		cand = cand[:k]
	}
	hits := make([]Hit, 0, len(cand))
	for _, c := range cand {
		n := ix.nodes[c.id]
		hits = append(hits, Hit{NodeID: c.id, Score: (1 + float64(c.sim)) / 2, Payload: n.payload})
	}
	return hits, nil
}

// insert assumes the write lock and a normalized vector.
func (ix *Index) insert(id int64, vec []float32, payload Payload) {
	level := ix.randomLevel()
	n := &node{id: id, vec: vec, payload: payload, level: level, links: make([][]int64, level+1)}
	ix.nodes[id] = n

	if len(ix.nodes) == 1 {
		ix.entry = id
		ix.maxLevel = level
		return
	}

	ep := ix.entry
	for layer := ix.maxLevel; layer > level; layer-- {
		ep = ix.greedy(vec, ep, layer)
	}
	top := level
	if top > ix.maxLevel {
		top = ix.maxLevel
	}
	for layer := top; layer >= 0; layer-- {
		cand := ix.searchLayer(vec, ep, layer, ix.params.EfConstruction)
		m := ix.params.M
		if len(cand) < m {
			m = len(cand)
		}
		for _, c := range cand[:m] {
			n.links[layer] = append(n.links[layer], c.id)
			peer := ix.nodes[c.id]
			peer.links[layer] = append(peer.links[layer], id)
			ix.shrink(peer, layer)
		}
		if len(cand) > 0 {
			ep = cand[0].id
		}
	}
	if level > ix.maxLevel {
		ix.maxLevel = level
		ix.entry = id
	}
}

// unlink removes id and repairs its neighbors' lists; assumes the write lock.
func (ix *Index) unlink(id int64) {
	n := ix.nodes[id]
	for layer, links := range n.links {
		for _, peer := range links {
			if p, ok := ix.nodes[peer]; ok && layer < len(p.links) {
				p.links[layer] = removeID(p.links[layer], id)
			}
		}
	}
	delete(ix.nodes, id)
	if ix.entry == id {
		ix.entry = 0
		ix.maxLevel = 0
		for nid, nn := range ix.nodes {
			if ix.entry == 0 || nn.level > ix.maxLevel {
				ix.entry = nid
				ix.maxLevel = nn.level
			}
		}
	}
}

// shrink caps a node's neighbor list at the layer maximum, keeping the most
// similar neighbors.
func (ix *Index) shrink(n *node, layer int) {
	max := ix.params.M
	if layer == 0 {
		max = ix.params.M * 2
	}
	if len(n.links[layer]) <= max {
		return
	}
	ss := make([]candidate, 0, len(n.links[layer]))
	for _, peer := range n.links[layer] {
		if p, ok := ix.nodes[peer]; ok {
			ss = append(ss, candidate{peer, dot(n.vec, p.vec)})
		}
	}
	sortCandidates(ss)
	keep := make([]int64, 0, max)
	for i := 0; i < max && i < len(ss); i++ {
		keep = append(keep, ss[i].id)
	}
	n.links[layer] = keep
}

type candidate struct {
	id  int64
	sim float32
}

// candHeap is a max-heap on similarity.
type candHeap []candidate

func (h candHeap) Len() int            { return len(h) }
func (h candHeap) Less(i, j int) bool  { return h[i].sim > h[j].sim }
func (h candHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *candHeap) Push(x interface{}) { *h = append(*h, x.(candidate)) }
func (h *candHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// greedy walks one layer toward the query, returning the closest node seen.
func (ix *Index) greedy(q []float32, ep int64, layer int) int64 {
	cur := ep
	curSim := dot(q, ix.nodes[cur].vec)
	for {
		improved := false
		n := ix.nodes[cur]
		if layer < len(n.links) {
			for _, peer := range n.links[layer] {
				p, ok := ix.nodes[peer]
				if !ok {
					continue
				}
				if s := dot(q, p.vec); s > curSim {
					cur, curSim = peer, s
					improved = true
				}
			}
		}
		if !improved {
			return cur
		}
	}
}

// searchLayer is the ef-bounded best-first search of one layer. Results come
// back ordered by descending similarity.
func (ix *Index) searchLayer(q []float32, ep int64, layer, ef int) []candidate {
	visited := map[int64]bool{ep: true}
	start := candidate{ep, dot(q, ix.nodes[ep].vec)}
	frontier := &candHeap{start}
	heap.Init(frontier)
	results := []candidate{start}

	worst := func() float32 {
		w := results[0].sim
		for _, r := range results {
			if r.sim < w {
				w = r.sim
			}
		}
		return w
	}

	for frontier.Len() > 0 {
		c := heap.Pop(frontier).(candidate)
		if len(results) >= ef && c.sim < worst() {
			break
		}
		n := ix.nodes[c.id]
		if layer >= len(n.links) {
			continue
		}
		for _, peer := range n.links[layer] {
			if visited[peer] {
				continue
			}
			visited[peer] = true
			p, ok := ix.nodes[peer]
			if !ok {
				continue
			}
			sim := dot(q, p.vec)
			if len(results) < ef || sim > worst() {
				cand := candidate{peer, sim}
				heap.Push(frontier, cand)
				results = append(results, cand)
				if len(results) > ef {
					results = dropWorst(results)
				}
			}
		}
	}
	sortCandidates(results)
	return results
}

func dropWorst(cs []candidate) []candidate {
	wi := 0
	for i, c := range cs {
		if c.sim < cs[wi].sim {
			wi = i
		}
	}
	return append(cs[:wi], cs[wi+1:]...)
}

func sortCandidates(cs []candidate) {
	for i := 1; i < len(cs); i++ {
		for j := i; j > 0 && cs[j].sim > cs[j-1].sim; j-- {
			cs[j], cs[j-1] = cs[j-1], cs[j]
		}
	}
}

func (ix *Index) randomLevel() int {
	level := int(-math.Log(ix.rng.Float64()+1e-12) * ix.levelMul)
	const maxLayers = 16
	if level > maxLayers {
		level = maxLayers
	}
	return level
}

func removeID(ids []int64, id int64) []int64 {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

func dot(a, b []float32) float32 {
	var s float32
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return append([]float32(nil), v...)
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
