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
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/noesisdb/noesis/graph"
	"github.com/noesisdb/noesis/graph/memstore"
	"github.com/noesisdb/noesis/rdf"
	"github.com/noesisdb/noesis/voc/xsd"
)

// smallInput is the solution-set size below which joins stay nested-loop;
// at or above it the executor materializes the pattern once and hash-joins.
const smallInput = 32

// Result is the evaluated query. Rows hold resolved terms for SELECT; Bool
// is set for ASK; Triples for CONSTRUCT.
type Result struct {
	Vars    []string
	Rows    []map[string]rdf.Term
	Bool    *bool
	Triples []rdf.Triple
}

// Executor evaluates parsed queries against one namespace's store. The
// caller must hold the namespace read lock for the duration of Execute.
type Executor struct {
	st    *memstore.Store
	steps int
}

// NewExecutor returns an executor over st.
func NewExecutor(st *memstore.Store) *Executor {
	return &Executor{st: st}
}

// Query parses and evaluates src in one call.
func (e *Executor) Query(ctx context.Context, src string) (*Result, error) {
	q, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return e.Execute(ctx, q)
}

// Execute evaluates a parsed query. Cancellation is checked between algebra
// operators and periodically inside scans; queries are read-only so a
// cancelled execution leaves no partial state.
func (e *Executor) Execute(ctx context.Context, q *Query) (*Result, error) {
	switch q.Type {
	case QuerySelect:
		return e.execSelect(ctx, q.Select)
	case QueryAsk:
		return e.execAsk(ctx, q.Ask)
	case QueryConstruct:
		return e.execConstruct(ctx, q.Construct)
	}
	return nil, &UnsupportedError{Feature: "query form"}
}

// value is one bound slot: a dictionary id, or a computed term with id 0.
type value struct {
	id   int64
	term rdf.Term
}

type binding map[string]value

func (b binding) clone() binding {
	nb := make(binding, len(b)+1)
	for k, v := range b {
		nb[k] = v
	}
	return nb
}

func (e *Executor) resolve(v value) rdf.Term {
	if v.id != 0 {
		if t, ok := e.st.Dict().Resolve(v.id); ok {
			return t
		}
	}
	return v.term
}

func sameValue(a, b value) bool {
	if a.id != 0 && b.id != 0 {
		return a.id == b.id
	}
	return a.term == b.term
}

func (e *Executor) tick(ctx context.Context) error {
	e.steps++
	if e.steps%1024 == 0 {
		if err := ctx.Err(); err != nil {
			return graph.Wrap(graph.KindTimeout, err, "query cancelled")
		}
	}
	return nil
}

func (e *Executor) execSelect(ctx context.Context, q *SelectQuery) (*Result, error) {
	sols, err := e.evalGroup(ctx, q.Where, []binding{{}})
	if err != nil {
		return nil, err
	}

	hasAgg := false
	for _, it := range q.Items {
		if it.Agg != nil {
			hasAgg = true
		}
	}
	if hasAgg || len(q.GroupBy) > 0 {
		sols, err = e.aggregate(q, sols)
		if err != nil {
			return nil, err
		}
	}

	if len(q.OrderBy) > 0 {
		e.order(sols, q.OrderBy)
	}

	vars := e.projectionVars(q, sols)
	rows := make([]map[string]rdf.Term, 0, len(sols))
	seen := map[string]bool{}
	for _, s := range sols {
		if err := e.tick(ctx); err != nil {
			return nil, err
		}
		row := make(map[string]rdf.Term, len(vars))
		for _, v := range vars {
			if bv, ok := s[v]; ok {
				row[v] = e.resolve(bv)
			}
		}
		if q.Distinct {
			key := rowKey(vars, row)
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		rows = append(rows, row)
	}

	rows = slice(rows, q.Offset, q.Limit)
	return &Result{Vars: vars, Rows: rows}, nil
}

func rowKey(vars []string, row map[string]rdf.Term) string {
	var b strings.Builder
	for _, v := range vars {
		if t, ok := row[v]; ok {
			b.WriteString(t.String())
		}
		b.WriteByte('\x00')
	}
	return b.String()
}

func slice(rows []map[string]rdf.Term, offset, limit *int) []map[string]rdf.Term {
	if offset != nil {
		if *offset >= len(rows) {
			return nil
		}
		rows = rows[*offset:]
	}
	if limit != nil && *limit < len(rows) {
		rows = rows[:*limit]
	}
	return rows
}

func (e *Executor) projectionVars(q *SelectQuery, sols []binding) []string {
	if !q.Star {
		var vars []string
		for _, it := range q.Items {
			if it.Agg != nil {
				vars = append(vars, it.Alias)
			} else {
				vars = append(vars, it.Var)
			}
		}
		return vars
	}
	set := map[string]bool{}
	var vars []string
	for _, s := range sols {
		for v := range s {
			if !set[v] {
				set[v] = true
				vars = append(vars, v)
			}
		}
	}
	sort.Strings(vars)
	return vars
}

func (e *Executor) execAsk(ctx context.Context, q *AskQuery) (*Result, error) {
	sols, err := e.evalGroup(ctx, q.Where, []binding{{}})
	if err != nil {
		return nil, err
	}
	b := len(sols) > 0
	return &Result{Bool: &b}, nil
}

func (e *Executor) execConstruct(ctx context.Context, q *ConstructQuery) (*Result, error) {
	sols, err := e.evalGroup(ctx, q.Where, []binding{{}})
	if err != nil {
		return nil, err
	}
	var out []rdf.Triple
	seen := map[string]bool{}
	for _, s := range sols {
		if err := e.tick(ctx); err != nil {
			return nil, err
		}
		for _, tp := range q.Template {
			t, ok := e.instantiate(tp, s)
			if !ok {
				continue
			}
			if t.Validate() != nil {
				continue
			}
			key := t.String()
			if !seen[key] {
				seen[key] = true
				out = append(out, t)
			}
		}
	}
	return &Result{Triples: out}, nil
}

func (e *Executor) instantiate(tp TriplePattern, s binding) (rdf.Triple, bool) {
	pos := func(tv TermOrVar) (rdf.Term, bool) {
		if tv.IsVar() {
			v, ok := s[tv.Var]
			if !ok {
				return rdf.Term{}, false
			}
			return e.resolve(v), true
		}
		if tv.Path != nil {
			return rdf.Term{}, false
		}
		return tv.Term, true
	}
	sub, ok := pos(tp.S)
	if !ok {
		return rdf.Triple{}, false
	}
	pred, ok := pos(tp.P)
	if !ok {
		return rdf.Triple{}, false
	}
	obj, ok := pos(tp.O)
	if !ok {
		return rdf.Triple{}, false
	}
	return rdf.NewTriple(sub, pred, obj), true
}

// evalGroup evaluates a group graph pattern over the incoming solutions.
// Filters scope over the whole group and apply last.
func (e *Executor) evalGroup(ctx context.Context, g *GroupPattern, in []binding) ([]binding, error) {
	cur := in
	var filters []Expression
	for _, elem := range g.Elems {
		if err := ctx.Err(); err != nil {
			return nil, graph.Wrap(graph.KindTimeout, err, "query cancelled")
		}
		var err error
		switch el := elem.(type) {
		case *TriplePattern:
			cur, err = e.joinPattern(ctx, cur, el)
		case *FilterElem:
			filters = append(filters, el.Expr)
		case *OptionalElem:
			cur, err = e.leftJoin(ctx, cur, el.Group)
		case *UnionElem:
			var next []binding
			for _, br := range el.Branches {
				r, berr := e.evalGroup(ctx, br, cur)
				if berr != nil {
					return nil, berr
				}
				next = append(next, r...)
			}
			cur = next
		default:
			return nil, &UnsupportedError{Feature: fmt.Sprintf("%T", elem)}
		}
		if err != nil {
			return nil, err
		}
	}
	for _, f := range filters {
		var kept []binding
		for _, b := range cur {
			if err := e.tick(ctx); err != nil {
				return nil, err
			}
			if e.truthy(f, b) {
				kept = append(kept, b)
			}
		}
		cur = kept
	}
	return cur, nil
}

func (e *Executor) leftJoin(ctx context.Context, cur []binding, g *GroupPattern) ([]binding, error) {
	var out []binding
	for _, b := range cur {
		r, err := e.evalGroup(ctx, g, []binding{b})
		if err != nil {
			return nil, err
		}
		if len(r) == 0 {
			out = append(out, b)
		} else {
			out = append(out, r...)
		}
	}
	return out, nil
}

// joinPattern extends every solution with the matches of one triple
// pattern. Large solution sets hash-join against a single materialized
// pattern scan; small ones use index nested loops with substitution.
func (e *Executor) joinPattern(ctx context.Context, cur []binding, tp *TriplePattern) ([]binding, error) {
	if len(cur) == 0 {
		return nil, nil
	}
	if tp.P.Path != nil {
		return e.joinPath(ctx, cur, tp)
	}

	// Constant positions resolve once; an unknown constant matches nothing.
	cs, ok := e.constID(tp.S)
	if !ok {
		return nil, nil
	}
	cp, ok := e.constID(tp.P)
	if !ok {
		return nil, nil
	}
	co, ok := e.constID(tp.O)
	if !ok {
		return nil, nil
	}

	if len(cur) >= smallInput {
		if shared := e.sharedVars(cur[0], tp); len(shared) > 0 {
			return e.hashJoin(ctx, cur, tp, memstore.Pattern{Subject: cs, Predicate: cp, Object: co}, shared)
		}
	}

	var out []binding
	for _, b := range cur {
		pat := memstore.Pattern{Subject: cs, Predicate: cp, Object: co}
		if tp.S.IsVar() {
			if v, ok := b[tp.S.Var]; ok {
				pat.Subject = v.id
				if v.id == 0 {
					continue // bound to a computed term; cannot match storage
				}
			}
		}
		if tp.P.IsVar() {
			if v, ok := b[tp.P.Var]; ok {
				pat.Predicate = v.id
				if v.id == 0 {
					continue
				}
			}
		}
		if tp.O.IsVar() {
			if v, ok := b[tp.O.Var]; ok {
				pat.Object = v.id
				if v.id == 0 {
					continue
				}
			}
		}
		for it := e.st.Match(pat); it.Next(); {
			if err := e.tick(ctx); err != nil {
				return nil, err
			}
			if nb, ok := e.extend(b, tp, it.Quad()); ok {
				out = append(out, nb)
			}
		}
	}
	return out, nil
}

// sharedVars lists the pattern variables already bound in the solutions.
func (e *Executor) sharedVars(sample binding, tp *TriplePattern) []string {
	var shared []string
	for _, tv := range []TermOrVar{tp.S, tp.P, tp.O} {
		if tv.IsVar() {
			if _, ok := sample[tv.Var]; ok {
				shared = append(shared, tv.Var)
			}
		}
	}
	return shared
}

func (e *Executor) hashJoin(ctx context.Context, cur []binding, tp *TriplePattern, pat memstore.Pattern, shared []string) ([]binding, error) {
	// Build side: one scan of the pattern with constants only.
	type row struct{ q memstore.Quad }
	table := make(map[string][]row)
	key := func(vals []int64) string {
		var b strings.Builder
		for _, v := range vals {
			b.WriteString(strconv.FormatInt(v, 10))
			b.WriteByte(':')
		}
		return b.String()
	}
	varPos := func(q memstore.Quad, name string) int64 {
		switch {
		case tp.S.IsVar() && tp.S.Var == name:
			return q.Subject
		case tp.P.IsVar() && tp.P.Var == name:
			return q.Predicate
		case tp.O.IsVar() && tp.O.Var == name:
			return q.Object
		}
		return 0
	}
	for it := e.st.Match(pat); it.Next(); {
		if err := e.tick(ctx); err != nil {
			return nil, err
		}
		q := it.Quad()
		vals := make([]int64, len(shared))
		for i, name := range shared {
			vals[i] = varPos(q, name)
		}
		k := key(vals)
		table[k] = append(table[k], row{q})
	}

	var out []binding
	for _, b := range cur {
		if err := e.tick(ctx); err != nil {
			return nil, err
		}
		vals := make([]int64, len(shared))
		miss := false
		for i, name := range shared {
			v := b[name]
			if v.id == 0 {
				miss = true
				break
			}
			vals[i] = v.id
		}
		if miss {
			continue
		}
		for _, r := range table[key(vals)] {
			if nb, ok := e.extend(b, tp, r.q); ok {
				out = append(out, nb)
			}
		}
	}
	return out, nil
}

// extend binds the pattern's variables from a matched quad, rejecting
// inconsistent repeats.
func (e *Executor) extend(b binding, tp *TriplePattern, q memstore.Quad) (binding, bool) {
	nb := b
	cloned := false
	bind := func(tv TermOrVar, id int64) bool {
		if !tv.IsVar() {
			return true
		}
		if v, ok := nb[tv.Var]; ok {
			return v.id == id
		}
		if !cloned {
			nb = b.clone()
			cloned = true
		}
		nb[tv.Var] = value{id: id}
		return true
	}
	if !bind(tp.S, q.Subject) {
		return nil, false
	}
	if !bind(tp.P, q.Predicate) {
		return nil, false
	}
	if !bind(tp.O, q.Object) {
		return nil, false
	}
	return nb, true
}

func (e *Executor) constID(tv TermOrVar) (int64, bool) {
	if tv.IsVar() || tv.Path != nil {
		return 0, true
	}
	id, ok := e.st.Dict().Find(tv.Term)
	if !ok {
		return 0, false
	}
	return id, true
}

// aggregate implements GROUP BY with the COUNT/SUM/MIN/MAX/AVG aggregates.
func (e *Executor) aggregate(q *SelectQuery, sols []binding) ([]binding, error) {
	type group struct {
		rep  binding
		rows []binding
	}
	groups := map[string]*group{}
	var order []string
	for _, s := range sols {
		var kb strings.Builder
		for _, gv := range q.GroupBy {
			if v, ok := s[gv]; ok {
				kb.WriteString(e.resolve(v).String())
			}
			kb.WriteByte('\x00')
		}
		k := kb.String()
		g, ok := groups[k]
		if !ok {
			g = &group{rep: binding{}}
			for _, gv := range q.GroupBy {
				if v, ok := s[gv]; ok {
					g.rep[gv] = v
				}
			}
			groups[k] = g
			order = append(order, k)
		}
		g.rows = append(g.rows, s)
	}
	// An aggregate query without GROUP BY aggregates everything, even when
	// there are no solutions.
	if len(q.GroupBy) == 0 && len(order) == 0 {
		groups[""] = &group{rep: binding{}}
		order = append(order, "")
	}

	var out []binding
	for _, k := range order {
		g := groups[k]
		b := g.rep.clone()
		for _, it := range q.Items {
			if it.Agg == nil {
				continue
			}
			t, err := e.computeAggregate(it.Agg, g.rows)
			if err != nil {
				return nil, err
			}
			b[it.Alias] = value{term: t}
		}
		out = append(out, b)
	}
	return out, nil
}

func (e *Executor) computeAggregate(a *Aggregate, rows []binding) (rdf.Term, error) {
	if a.Fn == "COUNT" {
		n := 0
		seen := map[string]bool{}
		for _, r := range rows {
			if a.Var == "" {
				n++
				continue
			}
			v, ok := r[a.Var]
			if !ok {
				continue
			}
			if a.Distinct {
				k := e.resolve(v).String()
				if seen[k] {
					continue
				}
				seen[k] = true
			}
			n++
		}
		return rdf.NewTypedLiteral(strconv.Itoa(n), xsd.Integer), nil
	}

	var nums []float64
	allInt := true
	seen := map[string]bool{}
	for _, r := range rows {
		v, ok := r[a.Var]
		if !ok {
			continue
		}
		t := e.resolve(v)
		if a.Distinct {
			if seen[t.String()] {
				continue
			}
			seen[t.String()] = true
		}
		f, isInt, err := numericValue(t)
		if err != nil {
			continue
		}
		if !isInt {
			allInt = false
		}
		nums = append(nums, f)
	}
	if len(nums) == 0 {
		return rdf.NewTypedLiteral("0", xsd.Integer), nil
	}
	var res float64
	switch a.Fn {
	case "SUM":
		for _, f := range nums {
			res += f
		}
	case "MIN":
		res = nums[0]
		for _, f := range nums {
			if f < res {
				res = f
			}
		}
	case "MAX":
		res = nums[0]
		for _, f := range nums {
			if f > res {
				res = f
			}
		}
	case "AVG":
		for _, f := range nums {
			res += f
		}
		res /= float64(len(nums))
		allInt = false
	}
	if allInt {
		return rdf.NewTypedLiteral(strconv.FormatInt(int64(res), 10), xsd.Integer), nil
	}
	return rdf.NewTypedLiteral(strconv.FormatFloat(res, 'g', -1, 64), xsd.Decimal), nil
}

func (e *Executor) order(sols []binding, conds []OrderCond) {
	sort.SliceStable(sols, func(i, j int) bool {
		for _, c := range conds {
			vi, oki := sols[i][c.Var]
			vj, okj := sols[j][c.Var]
			if !oki || !okj {
				if oki == okj {
					continue
				}
				less := !oki // unbound sorts first
				if c.Desc {
					return !less
				}
				return less
			}
			cmp := compareTerms(e.resolve(vi), e.resolve(vj))
			if cmp == 0 {
				continue
			}
			if c.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}
