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

package rdf

import (
	"fmt"
	"strings"

	"github.com/noesisdb/noesis/voc"
	// Register the standard prefixes that ParseTerm expands.
	_ "github.com/noesisdb/noesis/voc/owl"
	_ "github.com/noesisdb/noesis/voc/rdf"
	_ "github.com/noesisdb/noesis/voc/rdfs"
)

// ParseTerm reads a term from its external string form as it arrives over
// the tool and RPC surfaces:
//
//	<http://example.org/A>   IRI
//	_:b0                     blank node
//	"text"@en                language-tagged literal
//	"3"^^<...#integer>       typed literal
//	rdf:type                 prefixed IRI, expanded via the voc registry
//
// Anything that does not match one of the marked forms is taken as a plain
// string literal, which is what agent callers send for object values.
func ParseTerm(s string) (Term, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Term{}, fmt.Errorf("empty term")
	}
	switch {
	case strings.HasPrefix(s, "<"):
		if !strings.HasSuffix(s, ">") {
			return Term{}, fmt.Errorf("unterminated IRI %q", s)
		}
		t := NewIRI(s[1 : len(s)-1])
		return t, t.Validate()
	case strings.HasPrefix(s, "_:"):
		t := NewBlank(s[2:])
		return t, t.Validate()
	case strings.HasPrefix(s, `"`):
		return parseQuotedLiteral(s)
	}
	// A prefixed name resolvable through the vocabulary registry is an IRI.
	if full := voc.FullIRI(s); full != s {
		t := NewIRI(full)
		return t, t.Validate()
	}
	// Bare http(s) forms are IRIs; agents rarely wrap them in angle brackets.
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "urn:") {
		t := NewIRI(s)
		return t, t.Validate()
	}
	return NewLiteral(s), nil
}

// ParseSubject is ParseTerm restricted to subject position: a bare string is
// an error rather than a literal.
func ParseSubject(s string) (Term, error) {
	t, err := ParseTerm(s)
	if err != nil {
		return Term{}, err
	}
	if t.Kind == Literal && !strings.HasPrefix(strings.TrimSpace(s), `"`) {
		return Term{}, fmt.Errorf("subject %q is not an IRI or blank node", s)
	}
	if t.Kind == Literal {
		return Term{}, fmt.Errorf("subject cannot be a literal")
	}
	return t, nil
}

// ParsePredicate is ParseTerm restricted to predicate position.
func ParsePredicate(s string) (Term, error) {
	t, err := ParseTerm(s)
	if err != nil {
		return Term{}, err
	}
	if t.Kind != IRI {
		return Term{}, fmt.Errorf("predicate %q is not an IRI", s)
	}
	return t, nil
}

func parseQuotedLiteral(s string) (Term, error) {
	var b strings.Builder
	i := 1
	for i < len(s) {
		c := s[i]
		if c == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			default:
				b.WriteByte(s[i+1])
			}
			i += 2
			continue
		}
		if c == '"' {
			break
		}
		b.WriteByte(c)
		i++
	}
	if i >= len(s) || s[i] != '"' {
		return Term{}, fmt.Errorf("unterminated literal %q", s)
	}
	rest := s[i+1:]
	switch {
	case rest == "":
		return NewLiteral(b.String()), nil
	case strings.HasPrefix(rest, "@"):
		lang := rest[1:]
		if lang == "" {
			return Term{}, fmt.Errorf("empty language tag in %q", s)
		}
		return NewLangLiteral(b.String(), lang), nil
	case strings.HasPrefix(rest, "^^"):
		dt := rest[2:]
		if strings.HasPrefix(dt, "<") && strings.HasSuffix(dt, ">") {
			dt = dt[1 : len(dt)-1]
		} else {
			dt = voc.FullIRI(dt)
		}
		t := NewTypedLiteral(b.String(), dt)
		return t, t.Validate()
	}
	return Term{}, fmt.Errorf("trailing garbage after literal in %q", s)
}
