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

// Package voc implements an RDF namespace (vocabulary) registry.
package voc

import (
	"strings"
	"sync"
)

// Namespace is a RDF namespace (vocabulary).
type Namespace struct {
	Full   string
	Prefix string
}

// Namespaces is a set of registered namespaces.
type Namespaces struct {
	mu       sync.RWMutex
	prefixes map[string]string
}

// Register adds namespace to registered list.
func (p *Namespaces) Register(ns Namespace) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.prefixes == nil {
		p.prefixes = make(map[string]string)
	}
	p.prefixes[ns.Prefix] = ns.Full
}

// ShortIRI replaces a base IRI of a known vocabulary with its prefix.
//
//	ShortIRI("http://www.w3.org/1999/02/22-rdf-syntax-ns#type") // returns "rdf:type"
func (p *Namespaces) ShortIRI(iri string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for pref, ns := range p.prefixes {
		if strings.HasPrefix(iri, ns) && len(iri) > len(ns) {
			return pref + iri[len(ns):]
		}
	}
	return iri
}

// FullIRI replaces a known prefix in IRI with its full vocabulary IRI.
//
//	FullIRI("rdf:type") // returns "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
func (p *Namespaces) FullIRI(iri string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for pref, ns := range p.prefixes {
		if strings.HasPrefix(iri, pref) {
			return ns + iri[len(pref):]
		}
	}
	return iri
}

// List enumerates all registered namespaces.
func (p *Namespaces) List() []Namespace {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Namespace, 0, len(p.prefixes))
	for pref, full := range p.prefixes {
		out = append(out, Namespace{Prefix: pref, Full: full})
	}
	return out
}

var global Namespaces

// Register adds namespace to the global registered list.
func Register(ns Namespace) { global.Register(ns) }

// RegisterPrefix globally associates a given prefix with a base vocabulary IRI.
func RegisterPrefix(pref, ns string) { Register(Namespace{Prefix: pref, Full: ns}) }

// ShortIRI replaces a base IRI of a known vocabulary with its prefix using
// the global registry.
func ShortIRI(iri string) string { return global.ShortIRI(iri) }

// FullIRI replaces a known prefix in IRI with its full vocabulary IRI using
// the global registry.
func FullIRI(iri string) string { return global.FullIRI(iri) }

// List enumerates all globally registered namespaces.
func List() []Namespace { return global.List() }
