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

// Package owl contains constants of the Web Ontology Language (OWL).
package owl

import "github.com/noesisdb/noesis/voc"

func init() {
	voc.RegisterPrefix(Prefix, NS)
}

const (
	NS     = `http://www.w3.org/2002/07/owl#`
	Prefix = `owl:`
)

const (
	// Classes

	Class              = NS + `Class`
	ObjectProperty     = NS + `ObjectProperty`
	DatatypeProperty   = NS + `DatatypeProperty`
	TransitiveProperty = NS + `TransitiveProperty`
	SymmetricProperty  = NS + `SymmetricProperty`
	FunctionalProperty = NS + `FunctionalProperty`
	Thing              = NS + `Thing`
	Nothing            = NS + `Nothing`

	// Properties

	InverseOf          = NS + `inverseOf`
	EquivalentClass    = NS + `equivalentClass`
	EquivalentProperty = NS + `equivalentProperty`
	SameAs             = NS + `sameAs`
	DifferentFrom      = NS + `differentFrom`
	DisjointWith       = NS + `disjointWith`
)
