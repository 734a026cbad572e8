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

package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noesisdb/noesis/graph"
	"github.com/noesisdb/noesis/search"
	"github.com/noesisdb/noesis/vector"
)

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := NewEngine(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func ingest(t *testing.T, e *Engine, ns string, specs ...TripleSpec) IngestStats {
	t.Helper()
	stats, err := e.IngestTriples(context.Background(), ns, specs, IngestOptions{})
	require.NoError(t, err)
	return stats
}

func TestIngestAndRoundTrip(t *testing.T) {
	e := newTestEngine(t, Config{})
	stats := ingest(t, e, "ns1", TripleSpec{
		Subject: "<http://ex/A>", Predicate: "<http://ex/p>", Object: "v",
	})
	assert.Equal(t, 1, stats.EdgesAdded)
	assert.Equal(t, 3, stats.NodesAdded)

	res, err := e.Query(context.Background(), "ns1",
		`SELECT ?o WHERE { <http://ex/A> <http://ex/p> ?o }`)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "v", res.Rows[0]["o"].Value)

	ask, err := e.Query(context.Background(), "ns1", `ASK { <http://ex/A> <http://ex/p> "v" }`)
	require.NoError(t, err)
	assert.True(t, *ask.Bool)

	list, err := e.ListTriples(context.Background(), "ns1", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "<http://ex/A>", list[0].Subject)
}

func TestNamespaceIsolation(t *testing.T) {
	e := newTestEngine(t, Config{})
	ingest(t, e, "ns_a", TripleSpec{Subject: "<http://ex/A>", Predicate: "<http://ex/p>", Object: "<http://ex/B>"})

	list, err := e.ListTriples(context.Background(), "ns_b", 0)
	require.NoError(t, err)
	assert.Empty(t, list)

	res, err := e.Query(context.Background(), "ns_b", `SELECT * WHERE { ?s ?p ?o }`)
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
}

func TestIngestValidation(t *testing.T) {
	e := newTestEngine(t, Config{})
	_, err := e.IngestTriples(context.Background(), "ns1", []TripleSpec{
		{Subject: `"literal subject"`, Predicate: "<http://ex/p>", Object: "v"},
	}, IngestOptions{})
	require.Error(t, err)
	assert.True(t, graph.IsKind(err, graph.KindValidation))

	_, err = e.IngestTriples(context.Background(), "ns1", nil, IngestOptions{})
	require.Error(t, err)
}

func TestStrictOntologyValidation(t *testing.T) {
	e := newTestEngine(t, Config{})
	// Declare one property.
	ingest(t, e, "ns1",
		TripleSpec{Subject: "<http://ex/knows>", Predicate: "rdf:type", Object: "rdf:Property"},
	)
	// Declared predicate passes.
	_, err := e.IngestTriples(context.Background(), "ns1", []TripleSpec{
		{Subject: "<http://ex/a>", Predicate: "<http://ex/knows>", Object: "<http://ex/b>"},
	}, IngestOptions{Validate: true})
	require.NoError(t, err)

	// Undeclared predicate is rejected with suggestions.
	_, err = e.IngestTriples(context.Background(), "ns1", []TripleSpec{
		{Subject: "<http://ex/a>", Predicate: "<http://ex/knowsWell>", Object: "<http://ex/b>"},
	}, IngestOptions{Validate: true})
	require.Error(t, err)
	var gerr *graph.Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, graph.KindValidation, gerr.Kind)
	assert.Contains(t, gerr.Suggestions, "http://ex/knows")
}

func TestQuotaExceeded(t *testing.T) {
	e := newTestEngine(t, Config{MaxTriples: 2})
	ingest(t, e, "ns1",
		TripleSpec{Subject: "<http://ex/a>", Predicate: "<http://ex/p>", Object: "1"},
		TripleSpec{Subject: "<http://ex/a>", Predicate: "<http://ex/p>", Object: "2"},
	)
	_, err := e.IngestTriples(context.Background(), "ns1", []TripleSpec{
		{Subject: "<http://ex/a>", Predicate: "<http://ex/p>", Object: "3"},
	}, IngestOptions{})
	require.Error(t, err)
	assert.True(t, graph.IsKind(err, graph.KindQuotaExceeded))
}

func TestReasoningLifecycle(t *testing.T) {
	e := newTestEngine(t, Config{})
	ingest(t, e, "ns2",
		TripleSpec{Subject: "<http://ex/spouse>", Predicate: "rdf:type", Object: "owl:SymmetricProperty"},
		TripleSpec{Subject: "<http://ex/Dave>", Predicate: "<http://ex/spouse>", Object: "<http://ex/Eve>"},
	)
	out, err := e.ApplyReasoning(context.Background(), "ns2", "owlrl", true)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, out.TriplesInferred, 1)

	neighbors, err := e.Neighbors(context.Background(), "ns2", "http://ex/Eve", 0, "outgoing")
	require.NoError(t, err)
	found := false
	for _, n := range neighbors {
		if n.EdgeType == "http://ex/spouse" && n.URI == "http://ex/Dave" {
			found = true
		}
	}
	assert.True(t, found)

	// Idempotent fixpoint.
	out, err = e.ApplyReasoning(context.Background(), "ns2", "owlrl", true)
	require.NoError(t, err)
	assert.Zero(t, out.TriplesInferred)

	stats, err := e.Stats(context.Background(), "ns2")
	require.NoError(t, err)
	assert.Equal(t, "owlrl", stats.Reasoning)

	_, err = e.ApplyReasoning(context.Background(), "ns2", "owl-dl-full", true)
	require.Error(t, err)
}

func TestCascadeRetractionThroughEngine(t *testing.T) {
	e := newTestEngine(t, Config{})
	ingest(t, e, "ns3",
		TripleSpec{Subject: "<http://ex/spouse>", Predicate: "rdf:type", Object: "owl:SymmetricProperty"},
		TripleSpec{Subject: "<http://ex/Dave>", Predicate: "<http://ex/spouse>", Object: "<http://ex/Eve>"},
	)
	_, err := e.ApplyReasoning(context.Background(), "ns3", "owlrl", true)
	require.NoError(t, err)

	// Find and retract the base triple.
	list, err := e.ListTriples(context.Background(), "ns3", 0)
	require.NoError(t, err)
	var baseID int64
	for _, rec := range list {
		if rec.Subject == "<http://ex/Dave>" && !rec.Inferred {
			baseID = rec.ID
		}
	}
	require.NotZero(t, baseID)
	removed, err := e.DeleteTriple(context.Background(), "ns3", baseID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, removed, 2)

	res, err := e.Query(context.Background(), "ns3",
		`SELECT ?x WHERE { <http://ex/Eve> <http://ex/spouse> ?x }`)
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
}

func TestGetNeighborsDirections(t *testing.T) {
	e := newTestEngine(t, Config{})
	ingest(t, e, "ns1",
		TripleSpec{Subject: "<http://ex/a>", Predicate: "<http://ex/p>", Object: "<http://ex/b>"},
		TripleSpec{Subject: "<http://ex/c>", Predicate: "<http://ex/q>", Object: "<http://ex/a>"},
	)
	out, err := e.Neighbors(context.Background(), "ns1", "http://ex/a", 0, "outgoing")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "http://ex/b", out[0].URI)

	in, err := e.Neighbors(context.Background(), "ns1", "http://ex/a", 0, "incoming")
	require.NoError(t, err)
	require.Len(t, in, 1)
	assert.Equal(t, "http://ex/c", in[0].URI)

	both, err := e.Neighbors(context.Background(), "ns1", "http://ex/a", 0, "both")
	require.NoError(t, err)
	assert.Len(t, both, 2)

	_, err = e.Neighbors(context.Background(), "ns1", "http://ex/zzz", 0, "outgoing")
	require.Error(t, err)
	assert.True(t, graph.IsKind(err, graph.KindNotFound))

	_, err = e.Neighbors(context.Background(), "ns1", "http://ex/a", 0, "sideways")
	require.Error(t, err)
}

func TestDeleteNamespace(t *testing.T) {
	e := newTestEngine(t, Config{})
	ingest(t, e, "doomed", TripleSpec{Subject: "<http://ex/a>", Predicate: "<http://ex/p>", Object: "v"})

	require.NoError(t, e.DeleteNamespace(context.Background(), "doomed"))

	list, err := e.ListTriples(context.Background(), "doomed", 0)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = e.Stats(context.Background(), "doomed")
	assert.True(t, graph.IsKind(err, graph.KindNotFound))

	err = e.DeleteNamespace(context.Background(), "doomed")
	assert.True(t, graph.IsKind(err, graph.KindNotFound))
}

func TestPersistenceAcrossEngines(t *testing.T) {
	dir := t.TempDir()
	e := newTestEngine(t, Config{DataDir: dir})
	ingest(t, e, "persisted", TripleSpec{Subject: "<http://ex/a>", Predicate: "<http://ex/p>", Object: "v"})
	require.NoError(t, e.Close())

	e2 := newTestEngine(t, Config{DataDir: dir})
	res, err := e2.Query(context.Background(), "persisted", `ASK { <http://ex/a> <http://ex/p> "v" }`)
	require.NoError(t, err)
	assert.True(t, *res.Bool)

	stats, err := e2.Stats(context.Background(), "persisted")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TripleCount)
}

func TestHybridSearchWithSuppliedVector(t *testing.T) {
	e := newTestEngine(t, Config{})
	ingest(t, e, "ns1", TripleSpec{Subject: "<http://ex/doc>", Predicate: "<http://ex/links>", Object: "<http://ex/other>"})

	id, err := e.ResolveNode(context.Background(), "ns1", "http://ex/doc")
	require.NoError(t, err)
	require.NoError(t, e.UpsertVector(context.Background(), "ns1", id, []float32{1, 0},
		vector.Payload{URI: "http://ex/doc", Snippet: "doc", Kind: "iri"}))

	res, err := e.HybridSearch(context.Background(), "ns1", "", []float32{1, 0},
		search.Options{K: 5, GraphDepth: 1, Mode: search.ModeHybrid})
	require.NoError(t, err)
	require.NotEmpty(t, res)
	assert.Equal(t, "http://ex/doc", res[0].URI)

	// Without an embedder, text-only search reports a validation error.
	_, err = e.HybridSearch(context.Background(), "ns1", "docs about things", nil,
		search.Options{K: 5})
	require.Error(t, err)
	assert.True(t, graph.IsKind(err, graph.KindValidation))
}

func TestIngestTextExtraction(t *testing.T) {
	e := newTestEngine(t, Config{})
	stats, err := e.IngestText(context.Background(), "notes",
		"Alice knows Bob. Bob likes strong coffee.", "")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.EdgesAdded)

	res, err := e.Query(context.Background(), "notes",
		`SELECT ?o WHERE { <urn:noesis:entity:bob> <urn:noesis:entity:likes> ?o }`)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "strong coffee", res.Rows[0]["o"].Value)

	_, err = e.IngestText(context.Background(), "notes", "short", "")
	require.Error(t, err)
}

func TestAuthScopes(t *testing.T) {
	scopes, err := graph.ParseAuthTokens(`{"t1": ["ns_a"], "admin": ["*"]}`)
	require.NoError(t, err)

	require.NoError(t, scopes.Check("t1", "ns_a"))
	err = scopes.Check("t1", "ns_b")
	assert.True(t, graph.IsKind(err, graph.KindPermissionDenied))
	err = scopes.Check("nope", "ns_a")
	assert.True(t, graph.IsKind(err, graph.KindUnauthenticated))
	require.NoError(t, scopes.Check("admin", "anything"))

	var none graph.Scopes
	require.NoError(t, none.Check("", "ns"))

	_, err = graph.ParseAuthTokens(`{broken`)
	require.Error(t, err)
}

func TestResolveIDRoundTrip(t *testing.T) {
	e := newTestEngine(t, Config{})
	ingest(t, e, "ns1", TripleSpec{Subject: "<http://ex/a>", Predicate: "<http://ex/p>", Object: "v"})
	id, err := e.ResolveNode(context.Background(), "ns1", "http://ex/a")
	require.NoError(t, err)
	term, err := e.ResolveID(context.Background(), "ns1", id)
	require.NoError(t, err)
	assert.Equal(t, "http://ex/a", term.Value)

	_, err = e.ResolveID(context.Background(), "ns1", 99999)
	assert.True(t, graph.IsKind(err, graph.KindNotFound))
}
