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

package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/noesisdb/noesis/engine"
	"github.com/noesisdb/noesis/graph"
	"github.com/noesisdb/noesis/search"
)

func objSchema(required []string, props map[string]interface{}) map[string]interface{} {
	s := map[string]interface{}{"type": "object", "properties": props}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func strProp(desc string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": desc}
}

func intProp(desc string) map[string]interface{} {
	return map[string]interface{}{"type": "integer", "description": desc}
}

func boolProp(desc string) map[string]interface{} {
	return map[string]interface{}{"type": "boolean", "description": desc}
}

func toolCatalog() []toolDef {
	return []toolDef{
		{
			Name:        "ingest_triples",
			Description: "Store a batch of subject/predicate/object triples in a namespace. Terms may be <iri>, _:bnode, \"literal\", prefixed names (rdf:type) or plain strings.",
			InputSchema: objSchema([]string{"namespace", "triples"}, map[string]interface{}{
				"namespace": strProp("Target namespace; created on first write."),
				"triples": map[string]interface{}{
					"type": "array",
					"items": objSchema([]string{"subject", "predicate", "object"}, map[string]interface{}{
						"subject":    strProp("Subject IRI or blank node."),
						"predicate":  strProp("Predicate IRI."),
						"object":     strProp("Object term."),
						"provenance": strProp("Optional source tag for this triple."),
					}),
				},
				"validate": boolProp("Reject predicates not declared in the namespace ontology."),
			}),
		},
		{
			Name:        "ingest_text",
			Description: "Split free text into subject-predicate-object statements and store them.",
			InputSchema: objSchema([]string{"namespace", "text"}, map[string]interface{}{
				"namespace": strProp("Target namespace."),
				"text":      strProp("Free text; one statement per sentence."),
				"source":    strProp("Optional provenance source tag."),
			}),
		},
		{
			Name:        "list_triples",
			Description: "List stored triples in a namespace.",
			InputSchema: objSchema([]string{"namespace"}, map[string]interface{}{
				"namespace": strProp("Namespace to list."),
				"limit":     intProp("Maximum number of triples to return."),
			}),
		},
		{
			Name:        "get_neighbors",
			Description: "List the nodes adjacent to a node, with the connecting edge types.",
			InputSchema: objSchema([]string{"namespace"}, map[string]interface{}{
				"namespace": strProp("Namespace to inspect."),
				"uri":       strProp("Node IRI."),
				"node_id":   intProp("Node id, alternative to uri."),
				"direction": map[string]interface{}{
					"type": "string", "enum": []string{"outgoing", "incoming", "both"},
					"description": "Edge direction, default outgoing.",
				},
			}),
		},
		{
			Name:        "hybrid_search",
			Description: "Semantic search combining vector similarity with graph expansion.",
			InputSchema: objSchema([]string{"namespace", "query"}, map[string]interface{}{
				"namespace":   strProp("Namespace to search."),
				"query":       strProp("Natural-language query text."),
				"vector_k":    intProp("Number of vector seeds, default 10."),
				"graph_depth": intProp("Expansion hops from each seed, default 1."),
				"mode": map[string]interface{}{
					"type": "string", "enum": []string{"vector_only", "graph_only", "hybrid"},
					"description": "Ranking mode, default hybrid.",
				},
			}),
		},
		{
			Name:        "sparql_query",
			Description: "Run a SPARQL 1.1 SELECT, ASK or CONSTRUCT query against a namespace.",
			InputSchema: objSchema([]string{"namespace", "query"}, map[string]interface{}{
				"namespace": strProp("Namespace to query."),
				"query":     strProp("SPARQL query text."),
			}),
		},
		{
			Name:        "apply_reasoning",
			Description: "Materialize RDFS or OWL-RL entailments over a namespace.",
			InputSchema: objSchema([]string{"namespace", "strategy"}, map[string]interface{}{
				"namespace": strProp("Namespace to reason over."),
				"strategy": map[string]interface{}{
					"type": "string", "enum": []string{"rdfs", "owlrl"},
					"description": "Entailment rule set.",
				},
				"materialize": boolProp("Write inferred triples back to the store (default true)."),
			}),
		},
		{
			Name:        "namespace_stats",
			Description: "Report triple count, vector count, dimension and reasoning state of a namespace.",
			InputSchema: objSchema([]string{"namespace"}, map[string]interface{}{
				"namespace": strProp("Namespace to describe."),
			}),
		},
		{
			Name:        "delete_namespace",
			Description: "Destroy a namespace and all of its triples, provenance and vectors. Irreversible.",
			InputSchema: objSchema([]string{"namespace"}, map[string]interface{}{
				"namespace": strProp("Namespace to delete."),
			}),
		},
	}
}

func (s *Server) callTool(ctx context.Context, name string, raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	switch name {
	case "ingest_triples":
		var args struct {
			Namespace string              `json:"namespace"`
			Triples   []engine.TripleSpec `json:"triples"`
			Validate  bool                `json:"validate"`
		}
		if err := json.Unmarshal(raw, &args); err != nil {
			return "", fmt.Errorf("invalid arguments: %w", err)
		}
		stats, err := s.engine.IngestTriples(ctx, args.Namespace, args.Triples, engine.IngestOptions{Validate: args.Validate})
		if err != nil {
			return "", err
		}
		return marshal(map[string]interface{}{
			"nodes_added": stats.NodesAdded,
			"edges_added": stats.EdgesAdded,
			"message":     fmt.Sprintf("ingested %d triple(s) into %s", stats.EdgesAdded, args.Namespace),
		})

	case "ingest_text":
		var args struct {
			Namespace string `json:"namespace"`
			Text      string `json:"text"`
			Source    string `json:"source"`
		}
		if err := json.Unmarshal(raw, &args); err != nil {
			return "", fmt.Errorf("invalid arguments: %w", err)
		}
		stats, err := s.engine.IngestText(ctx, args.Namespace, args.Text, args.Source)
		if err != nil {
			return "", err
		}
		return marshal(map[string]interface{}{
			"nodes_added": stats.NodesAdded,
			"edges_added": stats.EdgesAdded,
			"message":     fmt.Sprintf("extracted %d statement(s)", stats.EdgesAdded),
		})

	case "list_triples":
		var args struct {
			Namespace string `json:"namespace"`
			Limit     int    `json:"limit"`
		}
		if err := json.Unmarshal(raw, &args); err != nil {
			return "", fmt.Errorf("invalid arguments: %w", err)
		}
		list, err := s.engine.ListTriples(ctx, args.Namespace, args.Limit)
		if err != nil {
			return "", err
		}
		if list == nil {
			list = []engine.TripleRecord{}
		}
		return marshal(map[string]interface{}{"triples": list})

	case "get_neighbors":
		var args struct {
			Namespace string `json:"namespace"`
			URI       string `json:"uri"`
			NodeID    int64  `json:"node_id"`
			Direction string `json:"direction"`
		}
		if err := json.Unmarshal(raw, &args); err != nil {
			return "", fmt.Errorf("invalid arguments: %w", err)
		}
		neighbors, err := s.engine.Neighbors(ctx, args.Namespace, args.URI, args.NodeID, args.Direction)
		if err != nil {
			return "", err
		}
		if neighbors == nil {
			neighbors = []engine.Neighbor{}
		}
		return marshal(map[string]interface{}{"neighbors": neighbors})

	case "hybrid_search":
		var args struct {
			Namespace  string    `json:"namespace"`
			Query      string    `json:"query"`
			Vector     []float32 `json:"vector"`
			VectorK    int       `json:"vector_k"`
			GraphDepth int       `json:"graph_depth"`
			Mode       string    `json:"mode"`
		}
		if err := json.Unmarshal(raw, &args); err != nil {
			return "", fmt.Errorf("invalid arguments: %w", err)
		}
		mode, err := search.ParseMode(args.Mode)
		if err != nil {
			return "", err
		}
		if args.GraphDepth == 0 {
			args.GraphDepth = 1
		}
		results, err := s.engine.HybridSearch(ctx, args.Namespace, args.Query, args.Vector, search.Options{
			K: args.VectorK, GraphDepth: args.GraphDepth, Mode: mode,
		})
		if err != nil {
			return "", err
		}
		if results == nil {
			results = []search.Result{}
		}
		return marshal(map[string]interface{}{"results": results})

	case "sparql_query":
		var args struct {
			Namespace string `json:"namespace"`
			Query     string `json:"query"`
		}
		if err := json.Unmarshal(raw, &args); err != nil {
			return "", fmt.Errorf("invalid arguments: %w", err)
		}
		res, err := s.engine.Query(ctx, args.Namespace, args.Query)
		if err != nil {
			return "", err
		}
		b, err := res.ToJSON()
		if err != nil {
			return "", err
		}
		return string(b), nil

	case "apply_reasoning":
		var args struct {
			Namespace   string `json:"namespace"`
			Strategy    string `json:"strategy"`
			Materialize *bool  `json:"materialize"`
		}
		if err := json.Unmarshal(raw, &args); err != nil {
			return "", fmt.Errorf("invalid arguments: %w", err)
		}
		materialize := true
		if args.Materialize != nil {
			materialize = *args.Materialize
		}
		out, err := s.engine.ApplyReasoning(ctx, args.Namespace, args.Strategy, materialize)
		if err != nil {
			return "", err
		}
		resp := map[string]interface{}{
			"success":          true,
			"triples_inferred": out.TriplesInferred,
			"rounds":           out.Rounds,
			"message":          fmt.Sprintf("inferred %d triple(s) in %d round(s)", out.TriplesInferred, out.Rounds),
		}
		if out.Inferred != nil {
			resp["inferred"] = out.Inferred
		}
		return marshal(resp)

	case "namespace_stats":
		var args struct {
			Namespace string `json:"namespace"`
		}
		if err := json.Unmarshal(raw, &args); err != nil {
			return "", fmt.Errorf("invalid arguments: %w", err)
		}
		stats, err := s.engine.Stats(ctx, args.Namespace)
		if err != nil {
			return "", err
		}
		return marshal(stats)

	case "delete_namespace":
		var args struct {
			Namespace string `json:"namespace"`
		}
		if err := json.Unmarshal(raw, &args); err != nil {
			return "", fmt.Errorf("invalid arguments: %w", err)
		}
		if err := s.engine.DeleteNamespace(ctx, args.Namespace); err != nil {
			return "", err
		}
		return marshal(map[string]interface{}{
			"success": true,
			"message": fmt.Sprintf("namespace %s deleted", args.Namespace),
		})
	}
	return "", graph.Errorf(graph.KindValidation, "unknown tool %q", name)
}

func marshal(v interface{}) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
