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

// Package reason materializes entailments over a namespace by semi-naive
// forward chaining.
//
// RDFS rules carried (rule names follow the W3C entailment rule catalog):
//
//	rdfs2   (p rdfs:domain c), (x p y)                      → (x rdf:type c)
//	rdfs3   (p rdfs:range c), (x p y)                       → (y rdf:type c)
//	rdfs5   (p rdfs:subPropertyOf q), (q rdfs:subPropertyOf r) → (p rdfs:subPropertyOf r)
//	rdfs7   (p rdfs:subPropertyOf q), (x p y)               → (x q y)
//	rdfs9   (c rdfs:subClassOf d), (x rdf:type c)           → (x rdf:type d)
//	rdfs11  (c rdfs:subClassOf d), (d rdfs:subClassOf e)    → (c rdfs:subClassOf e)
//
// OWL-RL adds:
//
//	prp-inv   inverseOf, both directions
//	prp-trp   TransitiveProperty
//	prp-symp  SymmetricProperty
//	cax-eqc   equivalentClass, both directions
//	prp-eqp   equivalentProperty, both directions
//	eq-sym / eq-trans / eq-rep  sameAs propagation
package reason

import (
	"context"
	"runtime"
	"strings"

	"github.com/noesisdb/noesis/graph"
	"github.com/noesisdb/noesis/graph/memstore"
	"github.com/noesisdb/noesis/rdf"
	"github.com/noesisdb/noesis/voc/owl"
	vocrdf "github.com/noesisdb/noesis/voc/rdf"
	"github.com/noesisdb/noesis/voc/rdfs"
)

// RuleSet selects the entailment regime.
type RuleSet int

const (
	None RuleSet = iota
	RDFS
	OWLRL
)

func (rs RuleSet) String() string {
	switch rs {
	case RDFS:
		return "rdfs"
	case OWLRL:
		return "owlrl"
	}
	return "none"
}

// ParseRuleSet maps the external strategy names.
func ParseRuleSet(s string) (RuleSet, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return None, nil
	case "rdfs":
		return RDFS, nil
	case "owlrl", "owl-rl", "owl_rl":
		return OWLRL, nil
	}
	return None, graph.Errorf(graph.KindValidation, "unknown reasoning strategy %q", s)
}

// DefaultMaxRounds is the per-invocation ceiling on fixpoint rounds.
const DefaultMaxRounds = 64

// Result reports one Apply invocation.
type Result struct {
	TriplesInferred int
	Rounds          int
}

// Fact is one derived triple at the id level. ID is the store id once
// materialized, or a negative placeholder when materialize was off.
type Fact struct {
	S, P, O  int64
	ID       int64
	Rule     string
	Premises []int64
}

type fact struct {
	s, p, o int64
}

type derivation struct {
	fact
	rule     string
	premises []int64
}

// engine holds the working set of one Apply invocation.
type engine struct {
	st  *memstore.Store
	ids vocab

	set map[fact]int64 // fact → id (store id, or negative for virtual)
	byS map[int64][]fact
	byP map[int64][]fact
	byO map[int64][]fact

	nextVirtual int64
}

type vocab struct {
	typ, subClass, subProp, domain, rng          int64
	inverseOf, sameAs, eqClass, eqProp           int64
	transitiveProperty, symmetricProperty int64
}

// Apply runs the fixpoint for the given rule set over st. When materialize
// is true every novel consequent is written back with provenance naming the
// rule and its premise triple ids; otherwise the derived facts are only
// returned. The caller must hold the namespace write lock for the duration;
// between rounds the loop yields and honors ctx cancellation, discarding the
// round in flight.
func Apply(ctx context.Context, st *memstore.Store, rs RuleSet, materialize bool, maxRounds int) (Result, []Fact, error) {
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	if rs == None {
		return Result{}, nil, nil
	}

	e := &engine{
		st:  st,
		set: make(map[fact]int64),
		byS: make(map[int64][]fact),
		byP: make(map[int64][]fact),
		byO: make(map[int64][]fact),
	}
	e.resolveVocab(rs)

	var delta []fact
	for it := st.Match(memstore.Pattern{}); it.Next(); {
		q := it.Quad()
		f := fact{q.Subject, q.Predicate, q.Object}
		e.add(f, q.ID)
		delta = append(delta, f)
	}

	res := Result{}
	var out []Fact
	for len(delta) > 0 {
		if err := ctx.Err(); err != nil {
			return res, out, graph.Wrap(graph.KindTimeout, err, "reasoning cancelled")
		}
		if res.Rounds >= maxRounds {
			return res, out, graph.Errorf(graph.KindReasoningBudget,
				"fixpoint still producing after %d rounds", maxRounds)
		}
		res.Rounds++

		derived := e.round(rs, delta)

		delta = delta[:0]
		for _, d := range derived {
			if _, ok := e.set[d.fact]; ok {
				continue
			}
			var id int64
			if materialize {
				id, _ = e.st.InsertInferred(d.s, d.p, d.o, d.rule, d.premises, "reasoner")
			} else {
				e.nextVirtual--
				id = e.nextVirtual
			}
			e.add(d.fact, id)
			delta = append(delta, d.fact)
			out = append(out, Fact{S: d.s, P: d.p, O: d.o, ID: id, Rule: d.rule, Premises: d.premises})
			res.TriplesInferred++
		}
		// The fixpoint loop is CPU-bound; let queries through between rounds.
		runtime.Gosched()
	}
	return res, out, nil
}

func (e *engine) resolveVocab(rs RuleSet) {
	intern := func(iri string) int64 { return e.st.InternTerm(rdf.NewIRI(iri)) }
	e.ids.typ = intern(vocrdf.Type)
	e.ids.subClass = intern(rdfs.SubClassOf)
	e.ids.subProp = intern(rdfs.SubPropertyOf)
	e.ids.domain = intern(rdfs.Domain)
	e.ids.rng = intern(rdfs.Range)
	if rs == OWLRL {
		e.ids.inverseOf = intern(owl.InverseOf)
		e.ids.sameAs = intern(owl.SameAs)
		e.ids.eqClass = intern(owl.EquivalentClass)
		e.ids.eqProp = intern(owl.EquivalentProperty)
		e.ids.transitiveProperty = intern(owl.TransitiveProperty)
		e.ids.symmetricProperty = intern(owl.SymmetricProperty)
	}
}

func (e *engine) add(f fact, id int64) {
	e.set[f] = id
	e.byS[f.s] = append(e.byS[f.s], f)
	e.byP[f.p] = append(e.byP[f.p], f)
	e.byO[f.o] = append(e.byO[f.o], f)
}

func (e *engine) id(f fact) int64 { return e.set[f] }

// facts with subject s and predicate p.
func (e *engine) withSP(s, p int64) []int64 {
	var out []int64
	for _, f := range e.byS[s] {
		if f.p == p {
			out = append(out, f.o)
		}
	}
	return out
}

// facts with predicate p and object o.
func (e *engine) withPO(p, o int64) []int64 {
	var out []int64
	for _, f := range e.byO[o] {
		if f.p == p {
			out = append(out, f.s)
		}
	}
	return out
}

// round derives every consequent reachable from the delta in one pass.
// Candidates may duplicate; the caller filters against the fact set.
func (e *engine) round(rs RuleSet, delta []fact) []derivation {
	var out []derivation
	emit := func(s, p, o int64, rule string, prem ...fact) {
		if s == 0 || p == 0 || o == 0 {
			return
		}
		d := derivation{fact: fact{s, p, o}, rule: rule}
		for _, pf := range prem {
			d.premises = append(d.premises, e.id(pf))
		}
		out = append(out, d)
	}

	for _, f := range delta {
		e.rdfsStep(f, emit)
		if rs == OWLRL {
			e.owlStep(f, emit)
		}
	}
	return out
}

type emitFn func(s, p, o int64, rule string, prem ...fact)

func (e *engine) rdfsStep(f fact, emit emitFn) {
	v := e.ids
	switch f.p {
	case v.subProp:
		// rdfs5, both join sides.
		for _, r := range e.withSP(f.o, v.subProp) {
			emit(f.s, v.subProp, r, "rdfs5", f, fact{f.o, v.subProp, r})
		}
		for _, p0 := range e.withPO(v.subProp, f.s) {
			emit(p0, v.subProp, f.o, "rdfs5", fact{p0, v.subProp, f.s}, f)
		}
		// rdfs7 with the schema triple in the delta.
		for _, xy := range e.byP[f.s] {
			emit(xy.s, f.o, xy.o, "rdfs7", f, xy)
		}
	case v.domain:
		for _, xy := range e.byP[f.s] {
			emit(xy.s, v.typ, f.o, "rdfs2", f, xy)
		}
	case v.rng:
		for _, xy := range e.byP[f.s] {
			emit(xy.o, v.typ, f.o, "rdfs3", f, xy)
		}
	case v.subClass:
		// rdfs11, both join sides.
		for _, ee := range e.withSP(f.o, v.subClass) {
			emit(f.s, v.subClass, ee, "rdfs11", f, fact{f.o, v.subClass, ee})
		}
		for _, c0 := range e.withPO(v.subClass, f.s) {
			emit(c0, v.subClass, f.o, "rdfs11", fact{c0, v.subClass, f.s}, f)
		}
		// rdfs9 with the schema triple in the delta.
		for _, x := range e.withPO(v.typ, f.s) {
			emit(x, v.typ, f.o, "rdfs9", f, fact{x, v.typ, f.s})
		}
	case v.typ:
		// rdfs9 with the instance triple in the delta.
		for _, d := range e.withSP(f.o, v.subClass) {
			emit(f.s, v.typ, d, "rdfs9", fact{f.o, v.subClass, d}, f)
		}
	}

	// rdfs2/3/7 with the instance triple (x p y) in the delta.
	for _, c := range e.withSP(f.p, v.domain) {
		emit(f.s, v.typ, c, "rdfs2", fact{f.p, v.domain, c}, f)
	}
	for _, c := range e.withSP(f.p, v.rng) {
		emit(f.o, v.typ, c, "rdfs3", fact{f.p, v.rng, c}, f)
	}
	for _, q := range e.withSP(f.p, v.subProp) {
		emit(f.s, q, f.o, "rdfs7", fact{f.p, v.subProp, q}, f)
	}
}

func (e *engine) owlStep(f fact, emit emitFn) {
	v := e.ids
	switch f.p {
	case v.inverseOf:
		for _, xy := range e.byP[f.s] {
			emit(xy.o, f.o, xy.s, "prp-inv1", f, xy)
		}
		for _, xy := range e.byP[f.o] {
			emit(xy.o, f.s, xy.s, "prp-inv2", f, xy)
		}
	case v.eqClass:
		for _, x := range e.withPO(v.typ, f.s) {
			emit(x, v.typ, f.o, "cax-eqc1", f, fact{x, v.typ, f.s})
		}
		for _, x := range e.withPO(v.typ, f.o) {
			emit(x, v.typ, f.s, "cax-eqc2", f, fact{x, v.typ, f.o})
		}
	case v.eqProp:
		for _, xy := range e.byP[f.s] {
			emit(xy.s, f.o, xy.o, "prp-eqp1", f, xy)
		}
		for _, xy := range e.byP[f.o] {
			emit(xy.s, f.s, xy.o, "prp-eqp2", f, xy)
		}
	case v.sameAs:
		emit(f.o, v.sameAs, f.s, "eq-sym", f)
		for _, z := range e.withSP(f.o, v.sameAs) {
			emit(f.s, v.sameAs, z, "eq-trans", f, fact{f.o, v.sameAs, z})
		}
		// eq-rep: replace the aliased node in subject and object position.
		for _, xy := range e.byS[f.s] {
			if xy.p != v.sameAs {
				emit(f.o, xy.p, xy.o, "eq-rep-s", f, xy)
			}
		}
		for _, xy := range e.byO[f.s] {
			if xy.p != v.sameAs {
				emit(xy.s, xy.p, f.o, "eq-rep-o", f, xy)
			}
		}
	case v.typ:
		switch f.o {
		case v.symmetricProperty:
			for _, xy := range e.byP[f.s] {
				emit(xy.o, xy.p, xy.s, "prp-symp", f, xy)
			}
		case v.transitiveProperty:
			for _, xy := range e.byP[f.s] {
				for _, z := range e.withSP(xy.o, xy.p) {
					emit(xy.s, xy.p, z, "prp-trp", f, xy, fact{xy.o, xy.p, z})
				}
			}
		}
	}

	// Instance triple (x p y) in the delta joining schema triples already
	// known.
	if f.p != v.typ && f.p != v.sameAs {
		for _, q := range e.withSP(f.p, v.inverseOf) {
			emit(f.o, q, f.s, "prp-inv1", fact{f.p, v.inverseOf, q}, f)
		}
		for _, p0 := range e.withPO(v.inverseOf, f.p) {
			emit(f.o, p0, f.s, "prp-inv2", fact{p0, v.inverseOf, f.p}, f)
		}
		for _, q := range e.withSP(f.p, v.eqProp) {
			emit(f.s, q, f.o, "prp-eqp1", fact{f.p, v.eqProp, q}, f)
		}
		for _, p0 := range e.withPO(v.eqProp, f.p) {
			emit(f.s, p0, f.o, "prp-eqp2", fact{p0, v.eqProp, f.p}, f)
		}
		if e.isType(f.p, v.symmetricProperty) {
			emit(f.o, f.p, f.s, "prp-symp", fact{f.p, v.typ, v.symmetricProperty}, f)
		}
		if e.isType(f.p, v.transitiveProperty) {
			schema := fact{f.p, v.typ, v.transitiveProperty}
			for _, z := range e.withSP(f.o, f.p) {
				emit(f.s, f.p, z, "prp-trp", schema, f, fact{f.o, f.p, z})
			}
			for _, w := range e.withPO(f.p, f.s) {
				emit(w, f.p, f.o, "prp-trp", schema, fact{w, f.p, f.s}, f)
			}
		}
	}
	if f.p == v.typ && f.o != 0 {
		for _, d := range e.withSP(f.o, v.eqClass) {
			emit(f.s, v.typ, d, "cax-eqc1", fact{f.o, v.eqClass, d}, f)
		}
		for _, c := range e.withPO(v.eqClass, f.o) {
			emit(f.s, v.typ, c, "cax-eqc2", fact{c, v.eqClass, f.o}, f)
		}
	}
	// eq-rep with the plain triple in the delta.
	for _, y := range e.withSP(f.s, v.sameAs) {
		if f.p != v.sameAs {
			emit(y, f.p, f.o, "eq-rep-s", fact{f.s, v.sameAs, y}, f)
		}
	}
	for _, y := range e.withSP(f.o, v.sameAs) {
		if f.p != v.sameAs {
			emit(f.s, f.p, y, "eq-rep-o", fact{f.o, v.sameAs, y}, f)
		}
	}
}

func (e *engine) isType(x, class int64) bool {
	for _, o := range e.withSP(x, e.ids.typ) {
		if o == class {
			return true
		}
	}
	return false
}
