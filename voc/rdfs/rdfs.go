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

// Package rdfs contains constants of the RDF Schema vocabulary (RDFS).
package rdfs

import "github.com/noesisdb/noesis/voc"

func init() {
	voc.RegisterPrefix(Prefix, NS)
}

const (
	NS     = `http://www.w3.org/2000/01/rdf-schema#`
	Prefix = `rdfs:`
)

const (
	// Classes

	// The class resource, everything.
	Resource = NS + `Resource`
	// The class of classes.
	Class = NS + `Class`
	// The class of literal values, eg. textual strings and integers.
	Literal = NS + `Literal`
	// The class of RDF datatypes.
	Datatype = NS + `Datatype`

	// Properties

	// The subject is a subclass of a class.
	SubClassOf = NS + `subClassOf`
	// The subject is a subproperty of a property.
	SubPropertyOf = NS + `subPropertyOf`
	// A domain of the subject property.
	Domain = NS + `domain`
	// A range of the subject property.
	Range = NS + `range`
	// A human-readable name for the subject.
	Label = NS + `label`
	// A description of the subject resource.
	Comment = NS + `comment`
	// A member of the subject resource.
	Member = NS + `member`
	// Further information about the subject resource.
	SeeAlso = NS + `seeAlso`
)
