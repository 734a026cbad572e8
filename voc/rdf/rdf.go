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

// Package rdf contains constants of the RDF Concepts Vocabulary (RDF).
package rdf

import "github.com/noesisdb/noesis/voc"

func init() {
	voc.RegisterPrefix(Prefix, NS)
}

const (
	NS     = `http://www.w3.org/1999/02/22-rdf-syntax-ns#`
	Prefix = `rdf:`
)

const (
	// Types

	// The datatype of language-tagged string values
	LangString = NS + `langString`
	// The class of RDF properties.
	Property = NS + `Property`
	// The class of RDF statements.
	Statement = NS + `Statement`

	// Properties

	// The subject is an instance of a class.
	Type = NS + `type`
	// Idiomatic property used for structured values.
	Value = NS + `value`
	// The subject of the subject RDF statement.
	Subject = NS + `subject`
	// The predicate of the subject RDF statement.
	Predicate = NS + `predicate`
	// The object of the subject RDF statement.
	Object = NS + `object`
	// The first item in the subject RDF list.
	First = NS + `first`
	// The rest of the subject RDF list after the first item.
	Rest = NS + `rest`
	// The empty list.
	Nil = NS + `nil`
)
