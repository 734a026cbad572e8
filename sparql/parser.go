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
	"fmt"
	"strings"

	"github.com/noesisdb/noesis/rdf"
	"github.com/noesisdb/noesis/voc"
	vocrdf "github.com/noesisdb/noesis/voc/rdf"
	"github.com/noesisdb/noesis/voc/xsd"
)

// Parse turns a SPARQL query string into its AST, expanding prefixed names
// against the query's PREFIX declarations and the global vocabulary
// registry.
func Parse(src string) (*Query, error) {
	p := &parser{lex: newLexer(src), prefixes: map[string]string{}}
	if err := p.read(); err != nil {
		return nil, err
	}
	return p.parseQuery()
}

type parser struct {
	lex      *lexer
	tok      token
	prefixes map[string]string
}

func (p *parser) read() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) errf(format string, args ...interface{}) error {
	return &ParseError{Line: p.tok.line, Col: p.tok.col, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) isKeyword(kw string) bool {
	return p.tok.kind == tokIdent && strings.EqualFold(p.tok.text, kw)
}

// matchKeyword consumes a keyword when present.
func (p *parser) matchKeyword(kw string) (bool, error) {
	if p.isKeyword(kw) {
		return true, p.read()
	}
	return false, nil
}

func (p *parser) expectKeyword(kw string) error {
	ok, err := p.matchKeyword(kw)
	if err != nil {
		return err
	}
	if !ok {
		return p.errf("expected %s, got %q", kw, p.tok.text)
	}
	return nil
}

func (p *parser) isPunct(s string) bool {
	return p.tok.kind == tokPunct && p.tok.text == s
}

func (p *parser) matchPunct(s string) (bool, error) {
	if p.isPunct(s) {
		return true, p.read()
	}
	return false, nil
}

func (p *parser) expectPunct(s string) error {
	ok, err := p.matchPunct(s)
	if err != nil {
		return err
	}
	if !ok {
		return p.errf("expected %q, got %q", s, p.tok.text)
	}
	return nil
}

func (p *parser) parseQuery() (*Query, error) {
	if err := p.parsePrologue(); err != nil {
		return nil, err
	}
	switch {
	case p.isKeyword("SELECT"):
		sel, err := p.parseSelect()
		if err != nil {
			return nil, err
		}
		return &Query{Type: QuerySelect, Select: sel}, nil
	case p.isKeyword("ASK"):
		if err := p.read(); err != nil {
			return nil, err
		}
		where, err := p.parseGroup()
		if err != nil {
			return nil, err
		}
		return &Query{Type: QueryAsk, Ask: &AskQuery{Where: where}}, nil
	case p.isKeyword("CONSTRUCT"):
		c, err := p.parseConstruct()
		if err != nil {
			return nil, err
		}
		return &Query{Type: QueryConstruct, Construct: c}, nil
	case p.isKeyword("DESCRIBE"):
		return nil, &UnsupportedError{Feature: "DESCRIBE"}
	case p.isKeyword("INSERT") || p.isKeyword("DELETE") || p.isKeyword("LOAD") || p.isKeyword("CLEAR"):
		return nil, &UnsupportedError{Feature: "SPARQL Update"}
	}
	return nil, p.errf("expected SELECT, ASK or CONSTRUCT, got %q", p.tok.text)
}

func (p *parser) parsePrologue() error {
	for {
		if ok, err := p.matchKeyword("PREFIX"); err != nil {
			return err
		} else if ok {
			if p.tok.kind != tokPName || !strings.HasSuffix(p.tok.text, ":") && !strings.Contains(p.tok.text, ":") {
				return p.errf("expected prefix declaration, got %q", p.tok.text)
			}
			name := p.tok.text
			if i := strings.IndexByte(name, ':'); i >= 0 {
				name = name[:i+1]
			}
			if err := p.read(); err != nil {
				return err
			}
			if p.tok.kind != tokIRI {
				return p.errf("expected IRI after PREFIX %s", name)
			}
			p.prefixes[name] = p.tok.text
			if err := p.read(); err != nil {
				return err
			}
			continue
		}
		if ok, err := p.matchKeyword("BASE"); err != nil {
			return err
		} else if ok {
			if p.tok.kind != tokIRI {
				return p.errf("expected IRI after BASE")
			}
			if err := p.read(); err != nil {
				return err
			}
			continue
		}
		return nil
	}
}

func (p *parser) expandPName(pname string) (string, error) {
	i := strings.IndexByte(pname, ':')
	pref := pname[:i+1]
	local := pname[i+1:]
	if ns, ok := p.prefixes[pref]; ok {
		return ns + local, nil
	}
	if full := voc.FullIRI(pname); full != pname {
		return full, nil
	}
	return "", p.errf("unknown prefix %q", pref)
}

func (p *parser) parseSelect() (*SelectQuery, error) {
	if err := p.read(); err != nil { // SELECT
		return nil, err
	}
	q := &SelectQuery{}
	if ok, err := p.matchKeyword("DISTINCT"); err != nil {
		return nil, err
	} else if ok {
		q.Distinct = true
	}
	if ok, err := p.matchKeyword("REDUCED"); err != nil {
		return nil, err
	} else if ok {
		q.Distinct = true
	}

	for {
		if p.isPunct("*") {
			q.Star = true
			if err := p.read(); err != nil {
				return nil, err
			}
			break
		}
		if p.tok.kind == tokVar {
			q.Items = append(q.Items, SelectItem{Var: p.tok.text})
			if err := p.read(); err != nil {
				return nil, err
			}
			continue
		}
		if p.isPunct("(") {
			item, err := p.parseAggregateItem()
			if err != nil {
				return nil, err
			}
			q.Items = append(q.Items, *item)
			continue
		}
		break
	}
	if !q.Star && len(q.Items) == 0 {
		return nil, p.errf("empty SELECT projection")
	}

	if _, err := p.matchKeyword("WHERE"); err != nil {
		return nil, err
	}
	where, err := p.parseGroup()
	if err != nil {
		return nil, err
	}
	q.Where = where

	if ok, err := p.matchKeyword("GROUP"); err != nil {
		return nil, err
	} else if ok {
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		for p.tok.kind == tokVar {
			q.GroupBy = append(q.GroupBy, p.tok.text)
			if err := p.read(); err != nil {
				return nil, err
			}
		}
		if len(q.GroupBy) == 0 {
			return nil, p.errf("empty GROUP BY")
		}
	}
	if p.isKeyword("HAVING") {
		return nil, &UnsupportedError{Feature: "HAVING"}
	}
	if ok, err := p.matchKeyword("ORDER"); err != nil {
		return nil, err
	} else if ok {
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		for {
			var cond OrderCond
			switch {
			case p.isKeyword("DESC") || p.isKeyword("ASC"):
				cond.Desc = p.isKeyword("DESC")
				if err := p.read(); err != nil {
					return nil, err
				}
				if err := p.expectPunct("("); err != nil {
					return nil, err
				}
				if p.tok.kind != tokVar {
					return nil, p.errf("expected variable in ORDER BY")
				}
				cond.Var = p.tok.text
				if err := p.read(); err != nil {
					return nil, err
				}
				if err := p.expectPunct(")"); err != nil {
					return nil, err
				}
			case p.tok.kind == tokVar:
				cond.Var = p.tok.text
				if err := p.read(); err != nil {
					return nil, err
				}
			default:
				if len(q.OrderBy) == 0 {
					return nil, p.errf("empty ORDER BY")
				}
				goto doneOrder
			}
			q.OrderBy = append(q.OrderBy, cond)
		}
	}
doneOrder:
	if err := p.parseLimitOffset(&q.Limit, &q.Offset); err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, p.errf("trailing input %q", p.tok.text)
	}
	return q, nil
}

func (p *parser) parseLimitOffset(limit, offset **int) error {
	for {
		switch {
		case p.isKeyword("LIMIT"):
			if err := p.read(); err != nil {
				return err
			}
			n, err := p.parseInt()
			if err != nil {
				return err
			}
			*limit = &n
		case p.isKeyword("OFFSET"):
			if err := p.read(); err != nil {
				return err
			}
			n, err := p.parseInt()
			if err != nil {
				return err
			}
			*offset = &n
		default:
			return nil
		}
	}
}

func (p *parser) parseInt() (int, error) {
	if p.tok.kind != tokNumber {
		return 0, p.errf("expected integer, got %q", p.tok.text)
	}
	var n int
	if _, err := fmt.Sscanf(p.tok.text, "%d", &n); err != nil || n < 0 {
		return 0, p.errf("expected non-negative integer, got %q", p.tok.text)
	}
	return n, p.read()
}

func (p *parser) parseAggregateItem() (*SelectItem, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	if p.tok.kind != tokIdent {
		return nil, p.errf("expected aggregate function, got %q", p.tok.text)
	}
	fn := strings.ToUpper(p.tok.text)
	switch fn {
	case "COUNT", "SUM", "MIN", "MAX", "AVG":
	default:
		return nil, &UnsupportedError{Feature: "aggregate " + fn}
	}
	if err := p.read(); err != nil {
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	agg := &Aggregate{Fn: fn}
	if ok, err := p.matchKeyword("DISTINCT"); err != nil {
		return nil, err
	} else if ok {
		agg.Distinct = true
	}
	switch {
	case p.isPunct("*"):
		if fn != "COUNT" {
			return nil, p.errf("%s(*) is not valid", fn)
		}
		if err := p.read(); err != nil {
			return nil, err
		}
	case p.tok.kind == tokVar:
		agg.Var = p.tok.text
		if err := p.read(); err != nil {
			return nil, err
		}
	default:
		return nil, p.errf("expected variable or * in aggregate")
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("AS"); err != nil {
		return nil, err
	}
	if p.tok.kind != tokVar {
		return nil, p.errf("expected alias variable after AS")
	}
	alias := p.tok.text
	if err := p.read(); err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return &SelectItem{Agg: agg, Alias: alias}, nil
}

func (p *parser) parseConstruct() (*ConstructQuery, error) {
	if err := p.read(); err != nil { // CONSTRUCT
		return nil, err
	}
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	var tmpl []TriplePattern
	for !p.isPunct("}") {
		tps, err := p.parseTripleBlock()
		if err != nil {
			return nil, err
		}
		tmpl = append(tmpl, tps...)
	}
	if err := p.read(); err != nil { // }
		return nil, err
	}
	if err := p.expectKeyword("WHERE"); err != nil {
		return nil, err
	}
	where, err := p.parseGroup()
	if err != nil {
		return nil, err
	}
	c := &ConstructQuery{Template: tmpl, Where: where}
	var limit, offset *int
	if err := p.parseLimitOffset(&limit, &offset); err != nil {
		return nil, err
	}
	return c, nil
}

func (p *parser) parseGroup() (*GroupPattern, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	g := &GroupPattern{}
	for {
		switch {
		case p.isPunct("}"):
			return g, p.read()
		case p.tok.kind == tokEOF:
			return nil, p.errf("unterminated group pattern")
		case p.isKeyword("FILTER"):
			if err := p.read(); err != nil {
				return nil, err
			}
			expr, err := p.parseFilterConstraint()
			if err != nil {
				return nil, err
			}
			g.Elems = append(g.Elems, &FilterElem{Expr: expr})
		case p.isKeyword("OPTIONAL"):
			if err := p.read(); err != nil {
				return nil, err
			}
			sub, err := p.parseGroup()
			if err != nil {
				return nil, err
			}
			g.Elems = append(g.Elems, &OptionalElem{Group: sub})
		case p.isKeyword("MINUS") || p.isKeyword("GRAPH") || p.isKeyword("SERVICE") || p.isKeyword("BIND") || p.isKeyword("VALUES"):
			return nil, &UnsupportedError{Feature: strings.ToUpper(p.tok.text)}
		case p.isPunct("{"):
			u := &UnionElem{}
			for {
				sub, err := p.parseGroup()
				if err != nil {
					return nil, err
				}
				u.Branches = append(u.Branches, sub)
				if ok, err := p.matchKeyword("UNION"); err != nil {
					return nil, err
				} else if !ok {
					break
				}
				if !p.isPunct("{") {
					return nil, p.errf("expected group after UNION")
				}
			}
			g.Elems = append(g.Elems, u)
		default:
			tps, err := p.parseTripleBlock()
			if err != nil {
				return nil, err
			}
			for i := range tps {
				tp := tps[i]
				g.Elems = append(g.Elems, &tp)
			}
		}
		// Optional dot separators between elements.
		for {
			if ok, err := p.matchPunct("."); err != nil {
				return nil, err
			} else if !ok {
				break
			}
		}
	}
}

// parseFilterConstraint reads either a parenthesized expression or a bare
// builtin call.
func (p *parser) parseFilterConstraint() (Expression, error) {
	if p.isPunct("(") {
		if err := p.read(); err != nil {
			return nil, err
		}
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return expr, nil
	}
	if p.tok.kind == tokIdent {
		return p.parseCall()
	}
	return nil, p.errf("expected FILTER constraint, got %q", p.tok.text)
}

// parseTripleBlock reads subject (predicate object-list)+ with ';' and ','
// continuations.
func (p *parser) parseTripleBlock() ([]TriplePattern, error) {
	subj, err := p.parseTermOrVar(false)
	if err != nil {
		return nil, err
	}
	var out []TriplePattern
	for {
		pred, err := p.parseVerb()
		if err != nil {
			return nil, err
		}
		for {
			obj, err := p.parseTermOrVar(true)
			if err != nil {
				return nil, err
			}
			out = append(out, TriplePattern{S: subj, P: pred, O: obj})
			if ok, err := p.matchPunct(","); err != nil {
				return nil, err
			} else if !ok {
				break
			}
		}
		if ok, err := p.matchPunct(";"); err != nil {
			return nil, err
		} else if !ok {
			return out, nil
		}
		// A dangling ';' before '}' or '.' ends the block.
		if p.isPunct("}") || p.isPunct(".") {
			return out, nil
		}
	}
}

// parseVerb reads the predicate position: a variable or a property path.
func (p *parser) parseVerb() (TermOrVar, error) {
	if p.tok.kind == tokVar {
		v := TermOrVar{Var: p.tok.text}
		return v, p.read()
	}
	path, err := p.parsePathAlt()
	if err != nil {
		return TermOrVar{}, err
	}
	if path.IsTrivial() {
		return TermOrVar{Term: rdf.NewIRI(path.IRI)}, nil
	}
	return TermOrVar{Path: path}, nil
}

func (p *parser) parsePathAlt() (*Path, error) {
	left, err := p.parsePathSeq()
	if err != nil {
		return nil, err
	}
	for {
		if ok, err := p.matchPunct("|"); err != nil {
			return nil, err
		} else if !ok {
			return left, nil
		}
		right, err := p.parsePathSeq()
		if err != nil {
			return nil, err
		}
		left = &Path{Op: PathAlt, Left: left, Right: right}
	}
}

func (p *parser) parsePathSeq() (*Path, error) {
	left, err := p.parsePathElt()
	if err != nil {
		return nil, err
	}
	for {
		if ok, err := p.matchPunct("/"); err != nil {
			return nil, err
		} else if !ok {
			return left, nil
		}
		right, err := p.parsePathElt()
		if err != nil {
			return nil, err
		}
		left = &Path{Op: PathSeq, Left: left, Right: right}
	}
}

func (p *parser) parsePathElt() (*Path, error) {
	inverse := false
	if ok, err := p.matchPunct("^"); err != nil {
		return nil, err
	} else if ok {
		inverse = true
	}
	prim, err := p.parsePathPrimary()
	if err != nil {
		return nil, err
	}
	if inverse {
		prim = &Path{Op: PathInverse, Left: prim}
	}
	switch {
	case p.isPunct("*"):
		if err := p.read(); err != nil {
			return nil, err
		}
		return &Path{Op: PathZeroOrMore, Left: prim}, nil
	case p.isPunct("+"):
		if err := p.read(); err != nil {
			return nil, err
		}
		return &Path{Op: PathOneOrMore, Left: prim}, nil
	case p.isPunct("?"):
		if err := p.read(); err != nil {
			return nil, err
		}
		return &Path{Op: PathZeroOrOne, Left: prim}, nil
	}
	return prim, nil
}

func (p *parser) parsePathPrimary() (*Path, error) {
	switch {
	case p.tok.kind == tokIRI:
		iri := p.tok.text
		return &Path{Op: PathIRI, IRI: iri}, p.read()
	case p.tok.kind == tokPName:
		full, err := p.expandPName(p.tok.text)
		if err != nil {
			return nil, err
		}
		return &Path{Op: PathIRI, IRI: full}, p.read()
	case p.isKeyword("a"):
		return &Path{Op: PathIRI, IRI: vocrdf.Type}, p.read()
	case p.isPunct("("):
		if err := p.read(); err != nil {
			return nil, err
		}
		inner, err := p.parsePathAlt()
		if err != nil {
			return nil, err
		}
		return inner, p.expectPunct(")")
	}
	return nil, p.errf("expected property path, got %q", p.tok.text)
}

// parseTermOrVar reads a subject or object position.
func (p *parser) parseTermOrVar(allowLiteral bool) (TermOrVar, error) {
	switch p.tok.kind {
	case tokVar:
		v := TermOrVar{Var: p.tok.text}
		return v, p.read()
	case tokIRI:
		t := rdf.NewIRI(p.tok.text)
		return TermOrVar{Term: t}, p.read()
	case tokPName:
		if strings.HasPrefix(p.tok.text, "_:") {
			t := rdf.NewBlank(p.tok.text[2:])
			return TermOrVar{Term: t}, p.read()
		}
		full, err := p.expandPName(p.tok.text)
		if err != nil {
			return TermOrVar{}, err
		}
		return TermOrVar{Term: rdf.NewIRI(full)}, p.read()
	case tokString:
		if !allowLiteral {
			return TermOrVar{}, p.errf("literal not allowed here")
		}
		return p.parseLiteralTail(p.tok.text)
	case tokNumber:
		if !allowLiteral {
			return TermOrVar{}, p.errf("literal not allowed here")
		}
		t := numberTerm(p.tok.text)
		return TermOrVar{Term: t}, p.read()
	case tokIdent:
		switch {
		case strings.EqualFold(p.tok.text, "true"), strings.EqualFold(p.tok.text, "false"):
			if !allowLiteral {
				return TermOrVar{}, p.errf("literal not allowed here")
			}
			t := rdf.NewTypedLiteral(strings.ToLower(p.tok.text), xsd.Boolean)
			return TermOrVar{Term: t}, p.read()
		}
	}
	return TermOrVar{}, p.errf("expected term or variable, got %q", p.tok.text)
}

func (p *parser) parseLiteralTail(lexical string) (TermOrVar, error) {
	if err := p.read(); err != nil {
		return TermOrVar{}, err
	}
	switch {
	case p.tok.kind == tokLangTag:
		t := rdf.NewLangLiteral(lexical, p.tok.text)
		return TermOrVar{Term: t}, p.read()
	case p.isPunct("^^"):
		if err := p.read(); err != nil {
			return TermOrVar{}, err
		}
		var dt string
		switch p.tok.kind {
		case tokIRI:
			dt = p.tok.text
		case tokPName:
			full, err := p.expandPName(p.tok.text)
			if err != nil {
				return TermOrVar{}, err
			}
			dt = full
		default:
			return TermOrVar{}, p.errf("expected datatype IRI after ^^")
		}
		t := rdf.NewTypedLiteral(lexical, dt)
		return TermOrVar{Term: t}, p.read()
	}
	return TermOrVar{Term: rdf.NewLiteral(lexical)}, nil
}

func numberTerm(lexical string) rdf.Term {
	if strings.ContainsAny(lexical, ".eE") {
		return rdf.NewTypedLiteral(lexical, xsd.Decimal)
	}
	return rdf.NewTypedLiteral(lexical, xsd.Integer)
}

// Expression grammar, loosest binding first.

func (p *parser) parseExpr() (Expression, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (Expression, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isPunct("||") {
		if err := p.read(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: "||", L: left, R: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expression, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for p.isPunct("&&") {
		if err := p.read(); err != nil {
			return nil, err
		}
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: "&&", L: left, R: right}
	}
	return left, nil
}

func (p *parser) parseRelational() (Expression, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for _, op := range []string{"=", "!=", "<=", ">=", "<", ">"} {
		if p.isPunct(op) {
			if err := p.read(); err != nil {
				return nil, err
			}
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			return &BinaryExpr{Op: op, L: left, R: right}, nil
		}
	}
	return left, nil
}

func (p *parser) parseAdditive() (Expression, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.isPunct("+") || p.isPunct("-") {
		op := p.tok.text
		if err := p.read(); err != nil {
			return nil, err
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, L: left, R: right}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (Expression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isPunct("*") || p.isPunct("/") {
		op := p.tok.text
		if err := p.read(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, L: left, R: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Expression, error) {
	if p.isPunct("!") || p.isPunct("-") {
		op := p.tok.text
		if err := p.read(); err != nil {
			return nil, err
		}
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: op, X: x}, nil
	}
	return p.parsePrimaryExpr()
}

func (p *parser) parsePrimaryExpr() (Expression, error) {
	switch p.tok.kind {
	case tokVar:
		e := &VarExpr{Name: p.tok.text}
		return e, p.read()
	case tokIRI:
		e := &TermExpr{Term: rdf.NewIRI(p.tok.text)}
		return e, p.read()
	case tokPName:
		full, err := p.expandPName(p.tok.text)
		if err != nil {
			return nil, err
		}
		return &TermExpr{Term: rdf.NewIRI(full)}, p.read()
	case tokString:
		tv, err := p.parseLiteralTail(p.tok.text)
		if err != nil {
			return nil, err
		}
		return &TermExpr{Term: tv.Term}, nil
	case tokNumber:
		e := &TermExpr{Term: numberTerm(p.tok.text)}
		return e, p.read()
	case tokIdent:
		switch {
		case strings.EqualFold(p.tok.text, "true"), strings.EqualFold(p.tok.text, "false"):
			e := &TermExpr{Term: rdf.NewTypedLiteral(strings.ToLower(p.tok.text), xsd.Boolean)}
			return e, p.read()
		}
		return p.parseCall()
	case tokPunct:
		if p.isPunct("(") {
			if err := p.read(); err != nil {
				return nil, err
			}
			inner, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			return inner, p.expectPunct(")")
		}
	}
	return nil, p.errf("expected expression, got %q", p.tok.text)
}

var builtins = map[string]int{ // name → arity, -1 for variadic tail
	"BOUND": 1, "ISIRI": 1, "ISURI": 1, "ISLITERAL": 1, "ISBLANK": 1,
	"STR": 1, "LANG": 1, "DATATYPE": 1, "STRLEN": 1, "LCASE": 1, "UCASE": 1,
	"CONTAINS": 2, "STRSTARTS": 2, "STRENDS": 2, "REGEX": -1,
}

func (p *parser) parseCall() (Expression, error) {
	name := strings.ToUpper(p.tok.text)
	arity, ok := builtins[name]
	if !ok {
		return nil, &UnsupportedError{Feature: "function " + name}
	}
	if err := p.read(); err != nil {
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var args []Expression
	for !p.isPunct(")") {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if ok, err := p.matchPunct(","); err != nil {
			return nil, err
		} else if !ok {
			break
		}
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	if arity >= 0 && len(args) != arity {
		return nil, p.errf("%s takes %d argument(s), got %d", name, arity, len(args))
	}
	if name == "REGEX" && (len(args) < 2 || len(args) > 3) {
		return nil, p.errf("REGEX takes 2 or 3 arguments, got %d", len(args))
	}
	return &CallExpr{Fn: name, Args: args}, nil
}
