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

package sparql

import (
	"context"

	"github.com/noesisdb/noesis/graph/memstore"
	"github.com/noesisdb/noesis/rdf"
)

// joinPath extends solutions through a property-path predicate. Path joins
// are always nested-loop: each solution fixes the endpoints it can.
func (e *Executor) joinPath(ctx context.Context, cur []binding, tp *TriplePattern) ([]binding, error) {
	var out []binding
	for _, b := range cur {
		if err := e.tick(ctx); err != nil {
			return nil, err
		}
		starts, startsBound := e.endpointIDs(b, tp.S)
		ends, endsBound := e.endpointIDs(b, tp.O)

		switch {
		case startsBound:
			for _, s0 := range starts {
				reached := e.walkPath(tp.P.Path, s0, false)
				for o := range reached {
					if endsBound {
						if containsInt(ends, o) {
							out = append(out, b)
						}
						continue
					}
					nb := b.clone()
					if tp.O.IsVar() {
						nb[tp.O.Var] = value{id: o}
					}
					out = append(out, nb)
				}
			}
		case endsBound:
			for _, o0 := range ends {
				reached := e.walkPath(tp.P.Path, o0, true)
				for s0 := range reached {
					nb := b.clone()
					if tp.S.IsVar() {
						nb[tp.S.Var] = value{id: s0}
					}
					out = append(out, nb)
				}
			}
		default:
			// Both endpoints free: walk from every node that occurs in
			// subject or object position.
			for _, s0 := range e.allNodes() {
				reached := e.walkPath(tp.P.Path, s0, false)
				for o := range reached {
					nb := b.clone()
					if tp.S.IsVar() {
						nb[tp.S.Var] = value{id: s0}
					}
					if tp.O.IsVar() {
						if v, ok := nb[tp.O.Var]; ok {
							if v.id != o {
								continue
							}
						} else {
							nb[tp.O.Var] = value{id: o}
						}
					}
					out = append(out, nb)
				}
			}
		}
	}
	return out, nil
}

// endpointIDs resolves one endpoint of a path pattern under a binding.
func (e *Executor) endpointIDs(b binding, tv TermOrVar) ([]int64, bool) {
	if tv.IsVar() {
		if v, ok := b[tv.Var]; ok && v.id != 0 {
			return []int64{v.id}, true
		}
		return nil, false
	}
	id, ok := e.st.Dict().Find(tv.Term)
	if !ok {
		return nil, true // bound to a term the namespace has never seen
	}
	return []int64{id}, true
}

// walkPath evaluates a path from one node, producing the set of reachable
// nodes. reverse inverts the whole path, which turns an end-anchored walk
// into a start-anchored one.
func (e *Executor) walkPath(p *Path, from int64, reverse bool) map[int64]bool {
	switch p.Op {
	case PathIRI:
		out := map[int64]bool{}
		pid, ok := e.st.Dict().Find(rdf.NewIRI(p.IRI))
		if !ok {
			return out
		}
		var pat memstore.Pattern
		if reverse {
			pat = memstore.Pattern{Predicate: pid, Object: from}
		} else {
			pat = memstore.Pattern{Subject: from, Predicate: pid}
		}
		for it := e.st.Match(pat); it.Next(); {
			q := it.Quad()
			if reverse {
				out[q.Subject] = true
			} else {
				out[q.Object] = true
			}
		}
		return out
	case PathInverse:
		return e.walkPath(p.Left, from, !reverse)
	case PathAlt:
		out := e.walkPath(p.Left, from, reverse)
		for n := range e.walkPath(p.Right, from, reverse) {
			out[n] = true
		}
		return out
	case PathSeq:
		first, second := p.Left, p.Right
		if reverse {
			first, second = second, first
		}
		out := map[int64]bool{}
		for mid := range e.walkPath(first, from, reverse) {
			for n := range e.walkPath(second, mid, reverse) {
				out[n] = true
			}
		}
		return out
	case PathZeroOrOne:
		out := e.walkPath(p.Left, from, reverse)
		out[from] = true
		return out
	case PathZeroOrMore:
		return e.closure(p.Left, from, reverse, true)
	case PathOneOrMore:
		return e.closure(p.Left, from, reverse, false)
	}
	return nil
}

// closure is the BFS transitive closure of one path step.
func (e *Executor) closure(step *Path, from int64, reverse, includeZero bool) map[int64]bool {
	out := map[int64]bool{}
	visited := map[int64]bool{from: true}
	frontier := []int64{from}
	if includeZero {
		out[from] = true
	}
	for len(frontier) > 0 {
		var next []int64
		for _, n := range frontier {
			for m := range e.walkPath(step, n, reverse) {
				if !out[m] {
					out[m] = true
				}
				if !visited[m] {
					visited[m] = true
					next = append(next, m)
				}
			}
		}
		frontier = next
	}
	return out
}

// allNodes lists every node id occurring in subject or object position.
func (e *Executor) allNodes() []int64 {
	seen := map[int64]bool{}
	var out []int64
	for it := e.st.Match(memstore.Pattern{}); it.Next(); {
		q := it.Quad()
		if !seen[q.Subject] {
			seen[q.Subject] = true
			out = append(out, q.Subject)
		}
		if !seen[q.Object] {
			seen[q.Object] = true
			out = append(out, q.Object)
		}
	}
	return out
}

func containsInt(xs []int64, x int64) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
