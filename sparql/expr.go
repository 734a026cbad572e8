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
	"regexp"
	"strconv"
	"strings"

	"github.com/noesisdb/noesis/rdf"
	"github.com/noesisdb/noesis/voc/xsd"
)

// truthy applies a FILTER expression; evaluation errors make the constraint
// false, per SPARQL error semantics.
func (e *Executor) truthy(expr Expression, b binding) bool {
	t, err := e.eval(expr, b)
	if err != nil {
		return false
	}
	v, err := ebv(t)
	if err != nil {
		return false
	}
	return v
}

var errUnbound = fmt.Errorf("unbound variable")

// eval reduces an expression to a term under the binding.
func (e *Executor) eval(expr Expression, b binding) (rdf.Term, error) {
	switch ex := expr.(type) {
	case *TermExpr:
		return ex.Term, nil
	case *VarExpr:
		v, ok := b[ex.Name]
		if !ok {
			return rdf.Term{}, errUnbound
		}
		return e.resolve(v), nil
	case *UnaryExpr:
		return e.evalUnary(ex, b)
	case *BinaryExpr:
		return e.evalBinary(ex, b)
	case *CallExpr:
		return e.evalCall(ex, b)
	}
	return rdf.Term{}, fmt.Errorf("unknown expression %T", expr)
}

func boolTerm(v bool) rdf.Term {
	if v {
		return rdf.NewTypedLiteral("true", xsd.Boolean)
	}
	return rdf.NewTypedLiteral("false", xsd.Boolean)
}

// ebv is the SPARQL effective boolean value.
func ebv(t rdf.Term) (bool, error) {
	if t.Kind != rdf.Literal {
		return false, fmt.Errorf("no boolean value for %s", t.Kind)
	}
	switch t.DatatypeIRI() {
	case xsd.Boolean:
		return t.Value == "true" || t.Value == "1", nil
	case xsd.String:
		return t.Value != "", nil
	}
	if f, _, err := numericValue(t); err == nil {
		return f != 0, nil
	}
	return t.Value != "", nil
}

// numericValue parses a literal as a number, reporting whether it is
// integer-typed.
func numericValue(t rdf.Term) (float64, bool, error) {
	if t.Kind != rdf.Literal {
		return 0, false, fmt.Errorf("not a literal")
	}
	switch t.DatatypeIRI() {
	case xsd.Integer, xsd.Long, xsd.Int:
		n, err := strconv.ParseInt(t.Value, 10, 64)
		if err != nil {
			return 0, false, err
		}
		return float64(n), true, nil
	case xsd.Decimal, xsd.Double, xsd.Float:
		f, err := strconv.ParseFloat(t.Value, 64)
		return f, false, err
	}
	return 0, false, fmt.Errorf("not numeric: %s", t.DatatypeIRI())
}

func (e *Executor) evalUnary(ex *UnaryExpr, b binding) (rdf.Term, error) {
	x, err := e.eval(ex.X, b)
	if err != nil {
		return rdf.Term{}, err
	}
	switch ex.Op {
	case "!":
		v, err := ebv(x)
		if err != nil {
			return rdf.Term{}, err
		}
		return boolTerm(!v), nil
	case "-":
		f, isInt, err := numericValue(x)
		if err != nil {
			return rdf.Term{}, err
		}
		return numberResult(-f, isInt), nil
	}
	return rdf.Term{}, fmt.Errorf("unknown unary operator %q", ex.Op)
}

func numberResult(f float64, isInt bool) rdf.Term {
	if isInt {
		return rdf.NewTypedLiteral(strconv.FormatInt(int64(f), 10), xsd.Integer)
	}
	return rdf.NewTypedLiteral(strconv.FormatFloat(f, 'g', -1, 64), xsd.Decimal)
}

func (e *Executor) evalBinary(ex *BinaryExpr, b binding) (rdf.Term, error) {
	switch ex.Op {
	case "||", "&&":
		l, lerr := e.eval(ex.L, b)
		r, rerr := e.eval(ex.R, b)
		var lv, rv bool
		if lerr == nil {
			lv, lerr = ebv(l)
		}
		if rerr == nil {
			rv, rerr = ebv(r)
		}
		// Three-valued logic: one error side may still decide the result.
		if ex.Op == "||" {
			if lerr == nil && lv || rerr == nil && rv {
				return boolTerm(true), nil
			}
			if lerr != nil || rerr != nil {
				return rdf.Term{}, fmt.Errorf("error in ||")
			}
			return boolTerm(false), nil
		}
		if lerr == nil && !lv || rerr == nil && !rv {
			return boolTerm(false), nil
		}
		if lerr != nil || rerr != nil {
			return rdf.Term{}, fmt.Errorf("error in &&")
		}
		return boolTerm(true), nil
	}

	l, err := e.eval(ex.L, b)
	if err != nil {
		return rdf.Term{}, err
	}
	r, err := e.eval(ex.R, b)
	if err != nil {
		return rdf.Term{}, err
	}

	switch ex.Op {
	case "=", "!=":
		eq := termEquals(l, r)
		if ex.Op == "!=" {
			eq = !eq
		}
		return boolTerm(eq), nil
	case "<", "<=", ">", ">=":
		cmp := compareTerms(l, r)
		var v bool
		switch ex.Op {
		case "<":
			v = cmp < 0
		case "<=":
			v = cmp <= 0
		case ">":
			v = cmp > 0
		case ">=":
			v = cmp >= 0
		}
		return boolTerm(v), nil
	case "+", "-", "*", "/":
		lf, li, err := numericValue(l)
		if err != nil {
			return rdf.Term{}, err
		}
		rf, ri, err := numericValue(r)
		if err != nil {
			return rdf.Term{}, err
		}
		isInt := li && ri
		switch ex.Op {
		case "+":
			return numberResult(lf+rf, isInt), nil
		case "-":
			return numberResult(lf-rf, isInt), nil
		case "*":
			return numberResult(lf*rf, isInt), nil
		case "/":
			if rf == 0 {
				return rdf.Term{}, fmt.Errorf("division by zero")
			}
			return numberResult(lf/rf, false), nil
		}
	}
	return rdf.Term{}, fmt.Errorf("unknown operator %q", ex.Op)
}

func termEquals(l, r rdf.Term) bool {
	if l == r {
		return true
	}
	// Numeric literals compare by value across datatypes.
	if lf, _, lerr := numericValue(l); lerr == nil {
		if rf, _, rerr := numericValue(r); rerr == nil {
			return lf == rf
		}
	}
	return false
}

// compareTerms orders two terms: numerically when both are numeric,
// lexically otherwise, with IRIs ordered by IRI string.
func compareTerms(l, r rdf.Term) int {
	if lf, _, lerr := numericValue(l); lerr == nil {
		if rf, _, rerr := numericValue(r); rerr == nil {
			switch {
			case lf < rf:
				return -1
			case lf > rf:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(l.Value, r.Value)
}

func (e *Executor) evalCall(ex *CallExpr, b binding) (rdf.Term, error) {
	if ex.Fn == "BOUND" {
		v, ok := ex.Args[0].(*VarExpr)
		if !ok {
			return rdf.Term{}, fmt.Errorf("BOUND requires a variable")
		}
		_, bound := b[v.Name]
		return boolTerm(bound), nil
	}

	args := make([]rdf.Term, len(ex.Args))
	for i, a := range ex.Args {
		t, err := e.eval(a, b)
		if err != nil {
			return rdf.Term{}, err
		}
		args[i] = t
	}

	switch ex.Fn {
	case "ISIRI", "ISURI":
		return boolTerm(args[0].Kind == rdf.IRI), nil
	case "ISLITERAL":
		return boolTerm(args[0].Kind == rdf.Literal), nil
	case "ISBLANK":
		return boolTerm(args[0].Kind == rdf.Blank), nil
	case "STR":
		return rdf.NewLiteral(args[0].Value), nil
	case "LANG":
		if args[0].Kind != rdf.Literal {
			return rdf.Term{}, fmt.Errorf("LANG of non-literal")
		}
		return rdf.NewLiteral(args[0].Lang), nil
	case "DATATYPE":
		if args[0].Kind != rdf.Literal {
			return rdf.Term{}, fmt.Errorf("DATATYPE of non-literal")
		}
		return rdf.NewIRI(args[0].DatatypeIRI()), nil
	case "STRLEN":
		return rdf.NewTypedLiteral(strconv.Itoa(len([]rune(args[0].Value))), xsd.Integer), nil
	case "LCASE":
		return rdf.NewLiteral(strings.ToLower(args[0].Value)), nil
	case "UCASE":
		return rdf.NewLiteral(strings.ToUpper(args[0].Value)), nil
	case "CONTAINS":
		return boolTerm(strings.Contains(args[0].Value, args[1].Value)), nil
	case "STRSTARTS":
		return boolTerm(strings.HasPrefix(args[0].Value, args[1].Value)), nil
	case "STRENDS":
		return boolTerm(strings.HasSuffix(args[0].Value, args[1].Value)), nil
	case "REGEX":
		pattern := args[1].Value
		if len(args) == 3 && strings.Contains(args[2].Value, "i") {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return rdf.Term{}, err
		}
		return boolTerm(re.MatchString(args[0].Value)), nil
	}
	return rdf.Term{}, fmt.Errorf("unknown function %s", ex.Fn)
}
