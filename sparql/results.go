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
	"encoding/json"
	"strings"

	"github.com/noesisdb/noesis/rdf"
	"github.com/noesisdb/noesis/voc/xsd"
)

// The W3C SPARQL 1.1 Query Results JSON Format.
// https://www.w3.org/TR/sparql11-results-json/

// JSONResults is the serialized result document.
type JSONResults struct {
	Head    JSONHead      `json:"head"`
	Results *JSONBindings `json:"results,omitempty"`
	Boolean *bool         `json:"boolean,omitempty"`
}

// JSONHead carries the projected variable names.
type JSONHead struct {
	Vars []string `json:"vars"`
}

// JSONBindings carries the solution sequence.
type JSONBindings struct {
	Bindings []map[string]JSONTerm `json:"bindings"`
}

// JSONTerm is one bound RDF term. The writer is explicit and closed over
// the three term kinds; nothing here is reflective.
type JSONTerm struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
	Lang     string `json:"xml:lang,omitempty"`
}

func termToJSON(t rdf.Term) JSONTerm {
	switch t.Kind {
	case rdf.IRI:
		return JSONTerm{Type: "uri", Value: t.Value}
	case rdf.Blank:
		return JSONTerm{Type: "bnode", Value: t.Value}
	case rdf.Literal:
		out := JSONTerm{Type: "literal", Value: t.Value, Lang: t.Lang}
		if t.Lang == "" && t.Datatype != "" && t.Datatype != xsd.String {
			out.Datatype = t.Datatype
		}
		return out
	}
	return JSONTerm{}
}

// ToJSON renders the result in the W3C JSON shape: vars+bindings for
// SELECT, head+boolean for ASK, and an N-Triples document wrapped as a
// string list for CONSTRUCT.
func (r *Result) ToJSON() ([]byte, error) {
	if r.Bool != nil {
		return json.Marshal(JSONResults{Head: JSONHead{Vars: []string{}}, Boolean: r.Bool})
	}
	if r.Triples != nil {
		lines := make([]string, 0, len(r.Triples))
		for _, t := range r.Triples {
			lines = append(lines, t.String())
		}
		return json.Marshal(map[string]interface{}{"triples": lines})
	}
	vars := r.Vars
	if vars == nil {
		vars = []string{}
	}
	bindings := make([]map[string]JSONTerm, 0, len(r.Rows))
	for _, row := range r.Rows {
		jb := make(map[string]JSONTerm, len(row))
		for v, t := range row {
			jb[v] = termToJSON(t)
		}
		bindings = append(bindings, jb)
	}
	return json.Marshal(JSONResults{
		Head:    JSONHead{Vars: vars},
		Results: &JSONBindings{Bindings: bindings},
	})
}

// NTriples renders CONSTRUCT output as an N-Triples document.
func (r *Result) NTriples() string {
	var b strings.Builder
	for _, t := range r.Triples {
		b.WriteString(t.String())
		b.WriteByte('\n')
	}
	return b.String()
}
