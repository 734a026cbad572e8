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

import "github.com/noesisdb/noesis/rdf"

// QueryType tags the query form.
type QueryType int

const (
	QuerySelect QueryType = iota
	QueryAsk
	QueryConstruct
)

// Query is the parsed form of a SPARQL 1.1 query, prefixes already expanded.
type Query struct {
	Type      QueryType
	Select    *SelectQuery
	Ask       *AskQuery
	Construct *ConstructQuery
}

// SelectItem is one projection column: either a plain variable or an
// aggregate with an alias.
type SelectItem struct {
	Var   string
	Agg   *Aggregate
	Alias string
}

// Aggregate is a GROUP BY aggregate call.
type Aggregate struct {
	Fn       string // COUNT, SUM, MIN, MAX, AVG
	Var      string // argument variable; empty for COUNT(*)
	Distinct bool
}

// SelectQuery is the SELECT form.
type SelectQuery struct {
	Star     bool
	Items    []SelectItem
	Distinct bool
	Where    *GroupPattern
	GroupBy  []string
	OrderBy  []OrderCond
	Limit    *int
	Offset   *int
}

// AskQuery is the ASK form.
type AskQuery struct {
	Where *GroupPattern
}

// ConstructQuery is the CONSTRUCT form.
type ConstructQuery struct {
	Template []TriplePattern
	Where    *GroupPattern
}

// OrderCond is one ORDER BY key.
type OrderCond struct {
	Var  string
	Desc bool
}

// GroupPattern is a group graph pattern: an ordered list of elements.
type GroupPattern struct {
	Elems []PatternElem
}

// PatternElem is one element of a group pattern.
type PatternElem interface{ patternElem() }

// TriplePattern is a triple pattern; the predicate position may carry a
// property path instead of a term or variable.
type TriplePattern struct {
	S, P, O TermOrVar
}

func (*TriplePattern) patternElem() {}

// FilterElem holds a FILTER constraint; it applies to the whole group.
type FilterElem struct {
	Expr Expression
}

func (*FilterElem) patternElem() {}

// OptionalElem is an OPTIONAL sub-group.
type OptionalElem struct {
	Group *GroupPattern
}

func (*OptionalElem) patternElem() {}

// UnionElem is a chain of UNION branches.
type UnionElem struct {
	Branches []*GroupPattern
}

func (*UnionElem) patternElem() {}

// TermOrVar is one triple-pattern position.
type TermOrVar struct {
	Var  string
	Term rdf.Term
	Path *Path // predicate position only
}

// IsVar reports whether the position is a variable.
func (t TermOrVar) IsVar() bool { return t.Var != "" }

// PathOp is the property-path operator tag. The planner dispatches on the
// tag; the operator set is closed.
type PathOp int

const (
	PathIRI PathOp = iota
	PathSeq
	PathAlt
	PathInverse
	PathZeroOrMore
	PathOneOrMore
	PathZeroOrOne
)

// Path is a property-path tree over the operators *, +, ?, ^, / and |.
type Path struct {
	Op          PathOp
	IRI         string
	Left, Right *Path
}

// IsTrivial reports whether the path is a single forward IRI step.
func (p *Path) IsTrivial() bool { return p != nil && p.Op == PathIRI }

// Expression is a FILTER expression node.
type Expression interface{ exprNode() }

// BinaryExpr applies an infix operator.
type BinaryExpr struct {
	Op   string // || && = != < <= > >= + - * /
	L, R Expression
}

func (*BinaryExpr) exprNode() {}

// UnaryExpr applies ! or unary minus.
type UnaryExpr struct {
	Op string
	X  Expression
}

func (*UnaryExpr) exprNode() {}

// VarExpr references a binding.
type VarExpr struct {
	Name string
}

func (*VarExpr) exprNode() {}

// TermExpr holds a constant term.
type TermExpr struct {
	Term rdf.Term
}

func (*TermExpr) exprNode() {}

// CallExpr is a builtin function call.
type CallExpr struct {
	Fn   string // upper-cased
	Args []Expression
}

func (*CallExpr) exprNode() {}
