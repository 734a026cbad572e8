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

// Package rpc serves the binary RPC transport: the api/noesis.proto
// contract over gRPC with a JSON codec and bearer-token metadata auth. The
// message set below is maintained by hand against the schema file.
package rpc

// TripleSpec mirrors noesis.v1.TripleSpec.
type TripleSpec struct {
	Subject    string `json:"subject"`
	Predicate  string `json:"predicate"`
	Object     string `json:"object"`
	Provenance string `json:"provenance,omitempty"`
}

// scoped is implemented by every request carrying a namespace; the auth
// interceptors dispatch on it.
type scoped interface {
	GetNamespace() string
}

type IngestTriplesRequest struct {
	Namespace string       `json:"namespace"`
	Triples   []TripleSpec `json:"triples"`
	Validate  bool         `json:"validate,omitempty"`
}

func (r *IngestTriplesRequest) GetNamespace() string { return r.Namespace }

type IngestTriplesResponse struct {
	NodesAdded int64  `json:"nodes_added"`
	EdgesAdded int64  `json:"edges_added"`
	Message    string `json:"message,omitempty"`
}

type IngestTextRequest struct {
	Namespace string `json:"namespace"`
	Text      string `json:"text"`
	Source    string `json:"source,omitempty"`
}

func (r *IngestTextRequest) GetNamespace() string { return r.Namespace }

type SparqlQueryRequest struct {
	Namespace string `json:"namespace"`
	Query     string `json:"query"`
}

func (r *SparqlQueryRequest) GetNamespace() string { return r.Namespace }

type SparqlQueryResponse struct {
	ResultsJSON []byte `json:"results_json"`
}

type ApplyReasoningRequest struct {
	Namespace   string `json:"namespace"`
	Strategy    string `json:"strategy"`
	Materialize bool   `json:"materialize"`
}

func (r *ApplyReasoningRequest) GetNamespace() string { return r.Namespace }

type ApplyReasoningResponse struct {
	Success         bool     `json:"success"`
	TriplesInferred int64    `json:"triples_inferred"`
	Rounds          int64    `json:"rounds"`
	Message         string   `json:"message,omitempty"`
	Inferred        []Triple `json:"inferred,omitempty"`
}

type HybridSearchRequest struct {
	Namespace  string    `json:"namespace"`
	Query      string    `json:"query,omitempty"`
	Vector     []float32 `json:"vector,omitempty"`
	VectorK    int64     `json:"vector_k,omitempty"`
	GraphDepth int64     `json:"graph_depth,omitempty"`
	Mode       string    `json:"mode,omitempty"`
}

func (r *HybridSearchRequest) GetNamespace() string { return r.Namespace }

type SearchResult struct {
	URI     string  `json:"uri"`
	Score   float64 `json:"score"`
	Content string  `json:"content,omitempty"`
}

type HybridSearchResponse struct {
	Results []SearchResult `json:"results"`
}

type GetNeighborsRequest struct {
	Namespace string `json:"namespace"`
	URI       string `json:"uri,omitempty"`
	NodeID    int64  `json:"node_id,omitempty"`
	Direction string `json:"direction,omitempty"`
}

func (r *GetNeighborsRequest) GetNamespace() string { return r.Namespace }

type Neighbor struct {
	NodeID    int64   `json:"node_id"`
	URI       string  `json:"uri"`
	EdgeType  string  `json:"edge_type"`
	Direction string  `json:"direction"`
	Score     float64 `json:"score,omitempty"`
}

type GetNeighborsResponse struct {
	Neighbors []Neighbor `json:"neighbors"`
}

type ListTriplesRequest struct {
	Namespace string `json:"namespace"`
	Limit     int64  `json:"limit,omitempty"`
}

func (r *ListTriplesRequest) GetNamespace() string { return r.Namespace }

type GetAllTriplesRequest struct {
	Namespace string `json:"namespace"`
}

func (r *GetAllTriplesRequest) GetNamespace() string { return r.Namespace }

type Triple struct {
	ID        int64  `json:"id"`
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
	Inferred  bool   `json:"inferred,omitempty"`
}

type TriplesResponse struct {
	Triples []Triple `json:"triples"`
}

type ResolveIdRequest struct {
	Namespace string `json:"namespace"`
	NodeID    int64  `json:"node_id"`
}

func (r *ResolveIdRequest) GetNamespace() string { return r.Namespace }

type ResolveIdResponse struct {
	Kind     string `json:"kind"`
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
	Lang     string `json:"lang,omitempty"`
}

type NamespaceStatsRequest struct {
	Namespace string `json:"namespace"`
}

func (r *NamespaceStatsRequest) GetNamespace() string { return r.Namespace }

type NamespaceStatsResponse struct {
	Name           string `json:"name"`
	CreatedAt      string `json:"created_at"`
	TripleCount    int64  `json:"triple_count"`
	VectorCount    int64  `json:"vector_count"`
	Dimension      int64  `json:"dimension,omitempty"`
	ReasoningState string `json:"reasoning_state"`
}

type DeleteNamespaceRequest struct {
	Namespace string `json:"namespace"`
}

func (r *DeleteNamespaceRequest) GetNamespace() string { return r.Namespace }

type DeleteNamespaceResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
