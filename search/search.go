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

// Package search composes vector ranking with graph expansion over the
// triple store.
package search

import (
	"context"
	"sort"

	"github.com/noesisdb/noesis/graph"
	"github.com/noesisdb/noesis/graph/memstore"
	"github.com/noesisdb/noesis/rdf"
	"github.com/noesisdb/noesis/vector"
)

// Mode selects which of the two rankers contribute results.
type Mode string

const (
	ModeVectorOnly Mode = "vector_only"
	ModeGraphOnly  Mode = "graph_only"
	ModeHybrid     Mode = "hybrid"
)

// ParseMode validates an external mode string; empty means hybrid.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeHybrid, nil
	case ModeVectorOnly, ModeGraphOnly, ModeHybrid:
		return Mode(s), nil
	}
	return "", graph.Errorf(graph.KindValidation, "unknown search mode %q", s)
}

// Decay dilutes a seed's score per hop of graph expansion.
const Decay = 0.7

// Options tune one search invocation.
type Options struct {
	K          int
	GraphDepth int
	Mode       Mode
}

// Result is one ranked entry.
type Result struct {
	URI     string  `json:"uri"`
	Score   float64 `json:"score"`
	Content string  `json:"content,omitempty"`
}

// Run executes a hybrid search: vector seeds, then breadth-first expansion
// through outgoing edges with exponential score decay, deduplicated by node
// keeping the maximum score. The caller holds the namespace read lock; the
// vector index synchronizes itself.
func Run(ctx context.Context, st *memstore.Store, ix *vector.Index, queryVec []float32, opts Options) ([]Result, error) {
	if opts.K <= 0 {
		opts.K = 10
	}
	if opts.Mode == "" {
		opts.Mode = ModeHybrid
	}

	hits, err := ix.Search(queryVec, opts.K)
	if err != nil {
		return nil, err
	}

	best := map[int64]float64{}
	content := map[int64]string{}
	if opts.Mode != ModeGraphOnly {
		for _, h := range hits {
			if h.Score > best[h.NodeID] {
				best[h.NodeID] = h.Score
				content[h.NodeID] = h.Payload.Snippet
			}
		}
	}

	if opts.Mode != ModeVectorOnly && opts.GraphDepth > 0 {
		for _, h := range hits {
			if err := ctx.Err(); err != nil {
				return nil, graph.Wrap(graph.KindTimeout, err, "search cancelled")
			}
			expand(st, h.NodeID, h.Score, opts.GraphDepth, best)
		}
	}

	out := make([]Result, 0, len(best))
	for id, score := range best {
		t, ok := st.Dict().Resolve(id)
		if !ok {
			continue
		}
		r := Result{Score: score}
		switch t.Kind {
		case rdf.IRI:
			r.URI = t.Value
			r.Content = content[id]
		case rdf.Literal:
			r.URI = ""
			r.Content = t.Value
		default:
			r.URI = t.String()
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].URI < out[j].URI
	})
	if len(out) > opts.K {
		out = out[:opts.K]
	}
	return out, nil
}

// expand walks outgoing edges breadth-first, scoring each reached node with
// the diluted seed score and keeping the maximum on revisits.
func expand(st *memstore.Store, seed int64, seedScore float64, depth int, best map[int64]float64) {
	type hop struct {
		id    int64
		hops  int
		score float64
	}
	visited := map[int64]bool{seed: true}
	frontier := []hop{{id: seed, hops: 0, score: seedScore}}
	for len(frontier) > 0 {
		var next []hop
		for _, h := range frontier {
			if h.hops >= depth {
				continue
			}
			score := h.score * Decay
			for it := st.Match(memstore.Pattern{Subject: h.id}); it.Next(); {
				obj := it.Quad().Object
				if score > best[obj] {
					best[obj] = score
				}
				if !visited[obj] {
					visited[obj] = true
					next = append(next, hop{id: obj, hops: h.hops + 1, score: score})
				}
			}
		}
		frontier = next
	}
}
