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

// Package dict implements the per-namespace identifier dictionary: a
// bijective, monotone mapping between terms and compact 64-bit node ids.
package dict

import (
	"sync"

	"github.com/zeebo/xxh3"

	"github.com/noesisdb/noesis/rdf"
)

// Dict is the identifier dictionary for one namespace. Ids are assigned
// monotonically starting at 1; 0 is the reserved sentinel. Entries are never
// removed individually — an orphaned term keeps its id so re-insertion is
// stable — the whole dictionary is dropped when its namespace is deleted.
//
// Lookups take the read lock; Intern is the sole allocator and serializes
// under the write lock.
type Dict struct {
	mu   sync.RWMutex
	next int64
	// Forward lookup is keyed by the xxh3 digest of the term's canonical
	// string form; the candidate list resolves digest collisions.
	fwd map[uint64][]int64
	rev map[int64]rdf.Term
}

// New returns an empty dictionary.
func New() *Dict {
	return &Dict{
		fwd: make(map[uint64][]int64),
		rev: make(map[int64]rdf.Term),
	}
}

func digest(t rdf.Term) uint64 {
	return xxh3.HashString(t.String())
}

// Intern returns the id of t, allocating the next id on first sight.
func (d *Dict) Intern(t rdf.Term) int64 {
	h := digest(t)
	d.mu.RLock()
	if id := d.lookup(h, t); id != 0 {
		d.mu.RUnlock()
		return id
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()
	if id := d.lookup(h, t); id != 0 {
		return id
	}
	d.next++
	id := d.next
	d.fwd[h] = append(d.fwd[h], id)
	d.rev[id] = t
	return id
}

// InternAt inserts t under an explicit id during log replay. It keeps the
// allocator horizon ahead of every replayed id.
func (d *Dict) InternAt(id int64, t rdf.Term) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.rev[id]; ok {
		return
	}
	h := digest(t)
	d.fwd[h] = append(d.fwd[h], id)
	d.rev[id] = t
	if id > d.next {
		d.next = id
	}
}

// Find returns the id of t without allocating.
func (d *Dict) Find(t rdf.Term) (int64, bool) {
	h := digest(t)
	d.mu.RLock()
	defer d.mu.RUnlock()
	id := d.lookup(h, t)
	return id, id != 0
}

// Resolve is the reverse lookup.
func (d *Dict) Resolve(id int64) (rdf.Term, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.rev[id]
	return t, ok
}

// Len returns the number of interned terms.
func (d *Dict) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rev)
}

// Range calls fn for every (id, term) pair until fn returns false. Used by
// log compaction; the dictionary is read-locked for the duration.
func (d *Dict) Range(fn func(id int64, t rdf.Term) bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for id, t := range d.rev {
		if !fn(id, t) {
			return
		}
	}
}

// lookup must be called with at least the read lock held.
func (d *Dict) lookup(h uint64, t rdf.Term) int64 {
	for _, id := range d.fwd[h] {
		if d.rev[id] == t {
			return id
		}
	}
	return 0
}
