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

package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noesisdb/noesis/graph/dict"
	"github.com/noesisdb/noesis/graph/memstore"
	"github.com/noesisdb/noesis/rdf"
	"github.com/noesisdb/noesis/vector"
)

// buildFixture stores a small graph and indexes the subject node's vector.
func buildFixture(t *testing.T) (*memstore.Store, *vector.Index, int64) {
	t.Helper()
	st := memstore.New(dict.New())
	_, _, err := st.Insert(rdf.NewTriple(
		rdf.NewIRI("http://ex/seed"), rdf.NewIRI("http://ex/links"), rdf.NewIRI("http://ex/hop1")),
		memstore.Provenance{Source: "test", Method: "ingest"})
	require.NoError(t, err)
	_, _, err = st.Insert(rdf.NewTriple(
		rdf.NewIRI("http://ex/hop1"), rdf.NewIRI("http://ex/links"), rdf.NewIRI("http://ex/hop2")),
		memstore.Provenance{Source: "test", Method: "ingest"})
	require.NoError(t, err)

	seedID, ok := st.Dict().Find(rdf.NewIRI("http://ex/seed"))
	require.True(t, ok)

	ix := vector.NewIndex(vector.DefaultParams())
	require.NoError(t, ix.Upsert(seedID, []float32{1, 0, 0}, vector.Payload{
		URI: "http://ex/seed", Snippet: "the seed", Kind: "iri",
	}))
	return st, ix, seedID
}

func TestHybridExpandsWithDecay(t *testing.T) {
	st, ix, _ := buildFixture(t)
	res, err := Run(context.Background(), st, ix, []float32{1, 0, 0}, Options{K: 10, GraphDepth: 2, Mode: ModeHybrid})
	require.NoError(t, err)
	require.Len(t, res, 3)

	byURI := map[string]float64{}
	for _, r := range res {
		byURI[r.URI] = r.Score
	}
	require.Contains(t, byURI, "http://ex/seed")
	require.Contains(t, byURI, "http://ex/hop1")
	require.Contains(t, byURI, "http://ex/hop2")
	assert.InDelta(t, byURI["http://ex/seed"]*Decay, byURI["http://ex/hop1"], 1e-9)
	assert.InDelta(t, byURI["http://ex/seed"]*Decay*Decay, byURI["http://ex/hop2"], 1e-9)
	// Ordered by descending score.
	assert.Equal(t, "http://ex/seed", res[0].URI)
	assert.Equal(t, "the seed", res[0].Content)
}

func TestVectorOnlySkipsExpansion(t *testing.T) {
	st, ix, _ := buildFixture(t)
	res, err := Run(context.Background(), st, ix, []float32{1, 0, 0}, Options{K: 10, GraphDepth: 2, Mode: ModeVectorOnly})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "http://ex/seed", res[0].URI)
}

func TestGraphOnlyDropsSeeds(t *testing.T) {
	st, ix, _ := buildFixture(t)
	res, err := Run(context.Background(), st, ix, []float32{1, 0, 0}, Options{K: 10, GraphDepth: 1, Mode: ModeGraphOnly})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "http://ex/hop1", res[0].URI)
}

func TestDepthZeroHybridEqualsVector(t *testing.T) {
	st, ix, _ := buildFixture(t)
	res, err := Run(context.Background(), st, ix, []float32{1, 0, 0}, Options{K: 10, GraphDepth: 0, Mode: ModeHybrid})
	require.NoError(t, err)
	assert.Len(t, res, 1)
}

func TestKCapsResults(t *testing.T) {
	st, ix, _ := buildFixture(t)
	res, err := Run(context.Background(), st, ix, []float32{1, 0, 0}, Options{K: 2, GraphDepth: 2, Mode: ModeHybrid})
	require.NoError(t, err)
	assert.Len(t, res, 2)
	assert.Equal(t, "http://ex/seed", res[0].URI)
}

func TestLiteralNodesSurfaceAsContent(t *testing.T) {
	st := memstore.New(dict.New())
	_, _, err := st.Insert(rdf.NewTriple(
		rdf.NewIRI("http://ex/doc"), rdf.NewIRI("http://ex/body"), rdf.NewLiteral("important fact")),
		memstore.Provenance{Source: "test", Method: "ingest"})
	require.NoError(t, err)
	docID, _ := st.Dict().Find(rdf.NewIRI("http://ex/doc"))

	ix := vector.NewIndex(vector.DefaultParams())
	require.NoError(t, ix.Upsert(docID, []float32{0, 1}, vector.Payload{URI: "http://ex/doc", Kind: "iri"}))

	res, err := Run(context.Background(), st, ix, []float32{0, 1}, Options{K: 5, GraphDepth: 1, Mode: ModeHybrid})
	require.NoError(t, err)
	require.Len(t, res, 2)

	var litContent string
	for _, r := range res {
		if r.URI == "" {
			litContent = r.Content
		}
	}
	assert.Equal(t, "important fact", litContent)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeHybrid, m)
	_, err = ParseMode("fuzzy")
	assert.Error(t, err)
}
