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

// Package rdf defines the term, triple and quad model shared by the store,
// the reasoner and the SPARQL executor.
package rdf

import (
	"fmt"
	"strings"

	"github.com/noesisdb/noesis/voc/xsd"
)

// Kind is the tag of a term variant.
type Kind uint8

const (
	// Zero means "no term"; it never appears in a stored triple.
	Zero Kind = iota
	IRI
	Blank
	Literal
)

func (k Kind) String() string {
	switch k {
	case IRI:
		return "iri"
	case Blank:
		return "bnode"
	case Literal:
		return "literal"
	}
	return "zero"
}

// Term is a single RDF term. The zero value is "no term". Term is comparable
// and is used directly as a dictionary key; Value holds the IRI, the blank
// node label or the literal's exact lexical form.
type Term struct {
	Kind     Kind
	Value    string
	Datatype string // literal datatype IRI; empty means xsd:string
	Lang     string // literal language tag, exclusive with a non-string datatype
}

// NewIRI returns an IRI term.
func NewIRI(iri string) Term { return Term{Kind: IRI, Value: iri} }

// NewBlank returns a blank node term with the given label.
func NewBlank(label string) Term { return Term{Kind: Blank, Value: label} }

// NewLiteral returns a plain (xsd:string) literal.
func NewLiteral(lexical string) Term { return Term{Kind: Literal, Value: lexical} }

// NewLangLiteral returns a language-tagged string literal.
func NewLangLiteral(lexical, lang string) Term {
	return Term{Kind: Literal, Value: lexical, Lang: lang}
}

// NewTypedLiteral returns a literal with an explicit datatype IRI.
func NewTypedLiteral(lexical, datatype string) Term {
	if datatype == xsd.String {
		datatype = ""
	}
	return Term{Kind: Literal, Value: lexical, Datatype: datatype}
}

// IsZero reports whether t is the zero term.
func (t Term) IsZero() bool { return t.Kind == Zero }

// DatatypeIRI returns the effective datatype of a literal, defaulting to
// xsd:string (or rdf:langString for language-tagged literals).
func (t Term) DatatypeIRI() string {
	if t.Kind != Literal {
		return ""
	}
	if t.Lang != "" {
		return "http://www.w3.org/1999/02/22-rdf-syntax-ns#langString"
	}
	if t.Datatype == "" {
		return xsd.String
	}
	return t.Datatype
}

// String renders the term in N-Triples syntax. The rendered form is the
// canonical dictionary key for the term.
func (t Term) String() string {
	switch t.Kind {
	case IRI:
		return "<" + t.Value + ">"
	case Blank:
		return "_:" + t.Value
	case Literal:
		s := quoteLiteral(t.Value)
		if t.Lang != "" {
			return s + "@" + t.Lang
		}
		if t.Datatype != "" {
			return s + "^^<" + t.Datatype + ">"
		}
		return s
	}
	return ""
}

func quoteLiteral(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// Validate checks the structural constraints on the term itself.
func (t Term) Validate() error {
	switch t.Kind {
	case IRI:
		return validateIRI(t.Value)
	case Blank:
		if t.Value == "" {
			return fmt.Errorf("blank node label is empty")
		}
		return nil
	case Literal:
		if t.Lang != "" && t.Datatype != "" && t.Datatype != xsd.String {
			return fmt.Errorf("literal %q carries both language %q and datatype %q", t.Value, t.Lang, t.Datatype)
		}
		if t.Datatype != "" {
			return validateIRI(t.Datatype)
		}
		return nil
	}
	return fmt.Errorf("zero term")
}

func validateIRI(iri string) error {
	if iri == "" {
		return fmt.Errorf("IRI is empty")
	}
	for _, r := range iri {
		switch r {
		case ' ', '<', '>', '"', '{', '}', '|', '^', '`', '\\', '\n', '\r', '\t':
			return fmt.Errorf("IRI %q contains forbidden character %q", iri, r)
		}
	}
	return nil
}

// Triple is an ordered (subject, predicate, object) statement.
type Triple struct {
	Subject   Term
	Predicate Term
	Object    Term
}

// NewTriple builds a triple without validating it.
func NewTriple(s, p, o Term) Triple { return Triple{Subject: s, Predicate: p, Object: o} }

func (t Triple) String() string {
	return t.Subject.String() + " " + t.Predicate.String() + " " + t.Object.String() + " ."
}

// Validate enforces positional constraints: the subject is an IRI or blank
// node, the predicate an IRI, the object any term.
func (t Triple) Validate() error {
	switch t.Subject.Kind {
	case IRI, Blank:
	default:
		return fmt.Errorf("subject must be an IRI or blank node, got %s", t.Subject.Kind)
	}
	if t.Predicate.Kind != IRI {
		return fmt.Errorf("predicate must be an IRI, got %s", t.Predicate.Kind)
	}
	if t.Object.IsZero() {
		return fmt.Errorf("object is missing")
	}
	if err := t.Subject.Validate(); err != nil {
		return fmt.Errorf("subject: %w", err)
	}
	if err := t.Predicate.Validate(); err != nil {
		return fmt.Errorf("predicate: %w", err)
	}
	if err := t.Object.Validate(); err != nil {
		return fmt.Errorf("object: %w", err)
	}
	return nil
}
