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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noesisdb/noesis/voc/xsd"
)

func TestTermString(t *testing.T) {
	cases := []struct {
		term Term
		want string
	}{
		{NewIRI("http://ex/A"), "<http://ex/A>"},
		{NewBlank("b0"), "_:b0"},
		{NewLiteral("v"), `"v"`},
		{NewLangLiteral("bonjour", "fr"), `"bonjour"@fr`},
		{NewTypedLiteral("3", xsd.Integer), `"3"^^<http://www.w3.org/2001/XMLSchema#integer>`},
		{NewLiteral("line\nbreak \"q\""), `"line\nbreak \"q\""`},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.term.String())
	}
}

func TestTypedLiteralStringNormalizes(t *testing.T) {
	// An explicit xsd:string datatype is the default and is dropped, so the
	// two spellings intern to the same dictionary entry.
	a := NewTypedLiteral("v", xsd.String)
	b := NewLiteral("v")
	assert.Equal(t, a, b)
}

func TestParseTerm(t *testing.T) {
	cases := []struct {
		in   string
		want Term
	}{
		{"<http://ex/A>", NewIRI("http://ex/A")},
		{"_:n1", NewBlank("n1")},
		{`"v"`, NewLiteral("v")},
		{`"chat"@fr`, NewLangLiteral("chat", "fr")},
		{`"5"^^<http://www.w3.org/2001/XMLSchema#integer>`, NewTypedLiteral("5", xsd.Integer)},
		{`"5"^^xsd:integer`, NewTypedLiteral("5", xsd.Integer)},
		{"rdf:type", NewIRI("http://www.w3.org/1999/02/22-rdf-syntax-ns#type")},
		{"http://ex/B", NewIRI("http://ex/B")},
		{"plain words", NewLiteral("plain words")},
	}
	for _, c := range cases {
		got, err := ParseTerm(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}
}

func TestParseTermErrors(t *testing.T) {
	for _, in := range []string{"", "<http://ex/a", `"open`, `"v"@`, "<http://ex/a b>"} {
		_, err := ParseTerm(in)
		assert.Error(t, err, in)
	}
}

func TestTripleValidate(t *testing.T) {
	ok := NewTriple(NewIRI("http://ex/A"), NewIRI("http://ex/p"), NewLiteral("v"))
	require.NoError(t, ok.Validate())

	bad := []Triple{
		NewTriple(NewLiteral("v"), NewIRI("http://ex/p"), NewLiteral("v")),
		NewTriple(NewIRI("http://ex/A"), NewBlank("b"), NewLiteral("v")),
		NewTriple(NewIRI("http://ex/A"), NewIRI("http://ex/p"), Term{}),
		NewTriple(NewIRI("http://ex/A"), NewIRI("http://ex/p"), Term{Kind: Literal, Value: "x", Lang: "en", Datatype: xsd.Integer}),
	}
	for i, tr := range bad {
		assert.Error(t, tr.Validate(), "case %d", i)
	}
}

func TestParseSubjectPredicate(t *testing.T) {
	_, err := ParseSubject(`"literal"`)
	assert.Error(t, err)
	_, err = ParseSubject("plain words")
	assert.Error(t, err)
	_, err = ParsePredicate(`"literal"`)
	assert.Error(t, err)

	s, err := ParseSubject("_:b1")
	require.NoError(t, err)
	assert.Equal(t, Blank, s.Kind)
}
