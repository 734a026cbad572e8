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

// Package memstore owns the authoritative quad set of a single namespace:
// the three index permutations, the provenance ledger and the
// append-only on-disk logs.
//
// The store is not internally synchronized. The namespace read-write lock
// held by the engine protects the store and its dictionary jointly, which
// is the locking discipline the whole engine follows.
package memstore

import (
	"fmt"
	"time"

	"github.com/noesisdb/noesis/graph"
	"github.com/noesisdb/noesis/graph/dict"
	"github.com/noesisdb/noesis/rdf"
)

// Provenance attributes one stored triple. Rule and Premises are set only
// for materialized (inferred) triples; Premises references the ordered
// premise triple ids the rule fired on.
type Provenance struct {
	Source    string
	Timestamp time.Time
	Method    string
	Rule      string
	Premises  []int64
}

// Inferred reports whether the row describes a materialized entailment.
func (p Provenance) Inferred() bool { return p.Rule != "" }

// Quad is the id-level form of a stored triple. The namespace itself is the
// graph component, so three ids suffice.
type Quad struct {
	ID        int64
	Subject   int64
	Predicate int64
	Object    int64
}

// Event describes a change the store applied; subscribers receive it after
// the indexes and the ledger are updated.
type Event struct {
	Added  bool
	Quad   Quad
	Triple rdf.Triple
}

// Store is the per-namespace triple store.
type Store struct {
	dict *dict.Dict

	// spo/pos/osp are the three index permutations, kept as nested hash
	// maps whose iteration order is not sorted (Match sorts its results by
	// triple id); the leaf maps the trailing component to the triple id.
	spo map[int64]map[int64]map[int64]int64
	pos map[int64]map[int64]map[int64]int64
	osp map[int64]map[int64]map[int64]int64

	byID map[int64]Quad
	prov map[int64]*Provenance
	// deps maps a premise triple id to the inferred triples derived from it,
	// for cascade retraction.
	deps map[int64][]int64

	last   int64
	wal    *wal
	notify []func(Event)
}

// New returns an empty, memory-only store over d.
func New(d *dict.Dict) *Store {
	return &Store{
		dict: d,
		spo:  make(map[int64]map[int64]map[int64]int64),
		pos:  make(map[int64]map[int64]map[int64]int64),
		osp:  make(map[int64]map[int64]map[int64]int64),
		byID: make(map[int64]Quad),
		prov: make(map[int64]*Provenance),
		deps: make(map[int64][]int64),
	}
}

// Open loads (or creates) the persistent store rooted at dir, replaying
// dict.log and then quads.log to rebuild the in-memory indexes.
func Open(dir string) (*Store, error) {
	s := New(dict.New())
	w, err := openWAL(dir)
	if err != nil {
		return nil, err
	}
	if err := w.replay(s); err != nil {
		w.Close()
		return nil, err
	}
	s.wal = w
	return s, nil
}

// Dict exposes the namespace dictionary; it shares the store's lock.
func (s *Store) Dict() *dict.Dict { return s.dict }

// Subscribe registers fn for change events.
func (s *Store) Subscribe(fn func(Event)) { s.notify = append(s.notify, fn) }

func (s *Store) emit(ev Event) {
	for _, fn := range s.notify {
		fn(ev)
	}
}

// Count returns the number of stored triples, inferred ones included.
func (s *Store) Count() int { return len(s.byID) }

// Insert stores one triple, interning its terms. It returns the existing id
// with added=false when the triple is already present.
func (s *Store) Insert(t rdf.Triple, p Provenance) (int64, bool, error) {
	if err := t.Validate(); err != nil {
		return 0, false, graph.Wrap(graph.KindValidation, err, "invalid triple")
	}
	id, added := s.insertTerms(t, p)
	return id, added, nil
}

// InsertBatch stores a batch under a single provenance record,
// all-or-nothing: the whole batch is validated before any index is touched.
// It returns the number of new dictionary entries and new triples.
func (s *Store) InsertBatch(ts []rdf.Triple, p Provenance) (nodesAdded, edgesAdded int, err error) {
	for i, t := range ts {
		if err := t.Validate(); err != nil {
			return 0, 0, graph.Wrap(graph.KindValidation, err, fmt.Sprintf("triple %d", i))
		}
	}
	before := s.dict.Len()
	for _, t := range ts {
		if _, added := s.insertTerms(t, p); added {
			edgesAdded++
		}
	}
	return s.dict.Len() - before, edgesAdded, nil
}

func (s *Store) insertTerms(t rdf.Triple, p Provenance) (int64, bool) {
	sub := s.internLogged(t.Subject)
	pred := s.internLogged(t.Predicate)
	obj := s.internLogged(t.Object)
	return s.insertIDs(sub, pred, obj, p)
}

// InternTerm interns a term through the store so that the allocation is
// logged. The reasoner uses it for consequent vocabulary (rdf:type and
// friends) that may not occur in any ingested triple yet.
func (s *Store) InternTerm(t rdf.Term) int64 { return s.internLogged(t) }

// internLogged interns a term and appends a dict record on first sight.
func (s *Store) internLogged(t rdf.Term) int64 {
	if id, ok := s.dict.Find(t); ok {
		return id
	}
	id := s.dict.Intern(t)
	if s.wal != nil {
		s.wal.appendDict(id, t)
	}
	return id
}

// InsertInferred stores one id-level triple produced by the reasoner. The
// ids must already be interned; the rule name and premise set become the
// provenance row and feed the cascade index.
func (s *Store) InsertInferred(sub, pred, obj int64, rule string, premises []int64, source string) (int64, bool) {
	return s.insertIDs(sub, pred, obj, Provenance{
		Source:    source,
		Timestamp: time.Now().UTC(),
		Method:    "inferred",
		Rule:      rule,
		Premises:  premises,
	})
}

func (s *Store) insertIDs(sub, pred, obj int64, p Provenance) (int64, bool) {
	if id, ok := s.probe(sub, pred, obj); ok {
		return id, false
	}
	s.last++
	id := s.last
	q := Quad{ID: id, Subject: sub, Predicate: pred, Object: obj}
	setIdx(s.spo, sub, pred, obj, id)
	setIdx(s.pos, pred, obj, sub, id)
	setIdx(s.osp, obj, sub, pred, id)
	s.byID[id] = q

	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now().UTC()
	}
	row := p
	s.prov[id] = &row
	for _, prem := range p.Premises {
		s.deps[prem] = append(s.deps[prem], id)
	}
	if s.wal != nil {
		s.wal.appendQuad(q, &row)
	}
	s.emit(Event{Added: true, Quad: q, Triple: s.mustResolve(q)})
	return id, true
}

// probe reports whether (sub, pred, obj) is already stored.
func (s *Store) probe(sub, pred, obj int64) (int64, bool) {
	if m1, ok := s.spo[sub]; ok {
		if m2, ok := m1[pred]; ok {
			if id, ok := m2[obj]; ok {
				return id, true
			}
		}
	}
	return 0, false
}

// Contains reports whether the term-level triple is stored, without
// interning anything.
func (s *Store) Contains(t rdf.Triple) (int64, bool) {
	sub, ok := s.dict.Find(t.Subject)
	if !ok {
		return 0, false
	}
	pred, ok := s.dict.Find(t.Predicate)
	if !ok {
		return 0, false
	}
	obj, ok := s.dict.Find(t.Object)
	if !ok {
		return 0, false
	}
	return s.probe(sub, pred, obj)
}

// Delete removes a triple and every triple transitively inferred from it.
// Dictionary entries are kept so identifiers stay stable across
// re-insertion. It returns the ids actually removed.
func (s *Store) Delete(id int64) ([]int64, error) {
	if _, ok := s.byID[id]; !ok {
		return nil, graph.Errorf(graph.KindNotFound, "triple %d", id)
	}
	// Collect the cascade closure before touching the indexes.
	order := []int64{id}
	seen := map[int64]bool{id: true}
	for i := 0; i < len(order); i++ {
		for _, dep := range s.deps[order[i]] {
			if !seen[dep] {
				seen[dep] = true
				order = append(order, dep)
			}
		}
	}
	for _, tid := range order {
		s.deleteOne(tid)
	}
	return order, nil
}

func (s *Store) deleteOne(id int64) {
	q, ok := s.byID[id]
	if !ok {
		return
	}
	delIdx(s.spo, q.Subject, q.Predicate, q.Object)
	delIdx(s.pos, q.Predicate, q.Object, q.Subject)
	delIdx(s.osp, q.Object, q.Subject, q.Predicate)
	delete(s.byID, id)
	if p := s.prov[id]; p != nil {
		for _, prem := range p.Premises {
			s.deps[prem] = removeID(s.deps[prem], id)
		}
	}
	delete(s.prov, id)
	delete(s.deps, id)
	if s.wal != nil {
		s.wal.appendDelete(id)
	}
	s.emit(Event{Added: false, Quad: q, Triple: s.mustResolve(q)})
}

func removeID(ids []int64, id int64) []int64 {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// ProvenanceOf returns the ledger row for a stored triple.
func (s *Store) ProvenanceOf(id int64) (Provenance, bool) {
	p, ok := s.prov[id]
	if !ok {
		return Provenance{}, false
	}
	return *p, true
}

// QuadOf returns the id-level quad for a stored triple id.
func (s *Store) QuadOf(id int64) (Quad, bool) {
	q, ok := s.byID[id]
	return q, ok
}

// ResolveQuad maps an id-level quad back to its terms.
func (s *Store) ResolveQuad(q Quad) (rdf.Triple, error) {
	sub, ok := s.dict.Resolve(q.Subject)
	if !ok {
		return rdf.Triple{}, graph.Errorf(graph.KindFatal, "dangling subject id %d", q.Subject)
	}
	pred, ok := s.dict.Resolve(q.Predicate)
	if !ok {
		return rdf.Triple{}, graph.Errorf(graph.KindFatal, "dangling predicate id %d", q.Predicate)
	}
	obj, ok := s.dict.Resolve(q.Object)
	if !ok {
		return rdf.Triple{}, graph.Errorf(graph.KindFatal, "dangling object id %d", q.Object)
	}
	return rdf.Triple{Subject: sub, Predicate: pred, Object: obj}, nil
}

func (s *Store) mustResolve(q Quad) rdf.Triple {
	t, err := s.ResolveQuad(q)
	if err != nil {
		// Unreachable unless the dictionary was mutated behind the store's
		// lock; treated as corruption.
		panic(err)
	}
	return t
}

// Flush forces buffered log writes to disk.
func (s *Store) Flush() error {
	if s.wal == nil {
		return nil
	}
	return s.wal.Flush()
}

// Compact rewrites the on-disk logs, dropping tombstoned quad records.
func (s *Store) Compact() error {
	if s.wal == nil {
		return nil
	}
	return s.wal.compact(s)
}

// Close flushes and closes the on-disk logs.
func (s *Store) Close() error {
	if s.wal == nil {
		return nil
	}
	return s.wal.Close()
}

func setIdx(idx map[int64]map[int64]map[int64]int64, a, b, c, id int64) {
	m1, ok := idx[a]
	if !ok {
		m1 = make(map[int64]map[int64]int64)
		idx[a] = m1
	}
	m2, ok := m1[b]
	if !ok {
		m2 = make(map[int64]int64)
		m1[b] = m2
	}
	m2[c] = id
}

func delIdx(idx map[int64]map[int64]map[int64]int64, a, b, c int64) {
	m1, ok := idx[a]
	if !ok {
		return
	}
	m2, ok := m1[b]
	if !ok {
		return
	}
	delete(m2, c)
	if len(m2) == 0 {
		delete(m1, b)
		if len(m1) == 0 {
			delete(idx, a)
		}
	}
}
