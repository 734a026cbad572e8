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

package reason

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noesisdb/noesis/graph"
	"github.com/noesisdb/noesis/graph/dict"
	"github.com/noesisdb/noesis/graph/memstore"
	"github.com/noesisdb/noesis/rdf"
	"github.com/noesisdb/noesis/voc/owl"
	vocrdf "github.com/noesisdb/noesis/voc/rdf"
	"github.com/noesisdb/noesis/voc/rdfs"
)

func newStore(t *testing.T, triples ...rdf.Triple) *memstore.Store {
	t.Helper()
	st := memstore.New(dict.New())
	for _, tr := range triples {
		_, _, err := st.Insert(tr, memstore.Provenance{Source: "test", Method: "ingest"})
		require.NoError(t, err)
	}
	return st
}

func iri(s string) rdf.Term { return rdf.NewIRI(s) }

func contains(st *memstore.Store, s, p, o string) bool {
	_, ok := st.Contains(rdf.NewTriple(iri(s), iri(p), iri(o)))
	return ok
}

func TestParseRuleSet(t *testing.T) {
	rs, err := ParseRuleSet("rdfs")
	require.NoError(t, err)
	assert.Equal(t, RDFS, rs)
	rs, err = ParseRuleSet("OWLRL")
	require.NoError(t, err)
	assert.Equal(t, OWLRL, rs)
	_, err = ParseRuleSet("owl-dl")
	require.Error(t, err)
	assert.True(t, graph.IsKind(err, graph.KindValidation))
}

func TestSubClassTransitivityAndTypePropagation(t *testing.T) {
	st := newStore(t,
		rdf.NewTriple(iri("http://ex/Dog"), iri(rdfs.SubClassOf), iri("http://ex/Mammal")),
		rdf.NewTriple(iri("http://ex/Mammal"), iri(rdfs.SubClassOf), iri("http://ex/Animal")),
		rdf.NewTriple(iri("http://ex/Fido"), iri(vocrdf.Type), iri("http://ex/Dog")),
	)
	res, _, err := Apply(context.Background(), st, RDFS, true, 0)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.TriplesInferred, 3)

	assert.True(t, contains(st, "http://ex/Fido", vocrdf.Type, "http://ex/Mammal"))
	assert.True(t, contains(st, "http://ex/Fido", vocrdf.Type, "http://ex/Animal"))
	assert.True(t, contains(st, "http://ex/Dog", rdfs.SubClassOf, "http://ex/Animal"))
}

func TestDomainRangeTyping(t *testing.T) {
	st := newStore(t,
		rdf.NewTriple(iri("http://ex/owns"), iri(rdfs.Domain), iri("http://ex/Person")),
		rdf.NewTriple(iri("http://ex/owns"), iri(rdfs.Range), iri("http://ex/Thing")),
		rdf.NewTriple(iri("http://ex/Ann"), iri("http://ex/owns"), iri("http://ex/Car")),
	)
	_, _, err := Apply(context.Background(), st, RDFS, true, 0)
	require.NoError(t, err)
	assert.True(t, contains(st, "http://ex/Ann", vocrdf.Type, "http://ex/Person"))
	assert.True(t, contains(st, "http://ex/Car", vocrdf.Type, "http://ex/Thing"))
}

func TestSubPropertyPropagation(t *testing.T) {
	st := newStore(t,
		rdf.NewTriple(iri("http://ex/hasDog"), iri(rdfs.SubPropertyOf), iri("http://ex/hasPet")),
		rdf.NewTriple(iri("http://ex/hasPet"), iri(rdfs.SubPropertyOf), iri("http://ex/owns")),
		rdf.NewTriple(iri("http://ex/Ann"), iri("http://ex/hasDog"), iri("http://ex/Fido")),
	)
	_, _, err := Apply(context.Background(), st, RDFS, true, 0)
	require.NoError(t, err)
	assert.True(t, contains(st, "http://ex/Ann", "http://ex/hasPet", "http://ex/Fido"))
	assert.True(t, contains(st, "http://ex/Ann", "http://ex/owns", "http://ex/Fido"))
	assert.True(t, contains(st, "http://ex/hasDog", rdfs.SubPropertyOf, "http://ex/owns"))
}

func TestSymmetricProperty(t *testing.T) {
	st := newStore(t,
		rdf.NewTriple(iri("http://ex/spouse"), iri(vocrdf.Type), iri(owl.SymmetricProperty)),
		rdf.NewTriple(iri("http://ex/Dave"), iri("http://ex/spouse"), iri("http://ex/Eve")),
	)
	res, _, err := Apply(context.Background(), st, OWLRL, true, 0)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.TriplesInferred, 1)
	assert.True(t, contains(st, "http://ex/Eve", "http://ex/spouse", "http://ex/Dave"))
}

func TestTransitiveProperty(t *testing.T) {
	st := newStore(t,
		rdf.NewTriple(iri("http://ex/ancestor"), iri(vocrdf.Type), iri(owl.TransitiveProperty)),
		rdf.NewTriple(iri("http://ex/a"), iri("http://ex/ancestor"), iri("http://ex/b")),
		rdf.NewTriple(iri("http://ex/b"), iri("http://ex/ancestor"), iri("http://ex/c")),
		rdf.NewTriple(iri("http://ex/c"), iri("http://ex/ancestor"), iri("http://ex/d")),
	)
	_, _, err := Apply(context.Background(), st, OWLRL, true, 0)
	require.NoError(t, err)
	assert.True(t, contains(st, "http://ex/a", "http://ex/ancestor", "http://ex/c"))
	assert.True(t, contains(st, "http://ex/a", "http://ex/ancestor", "http://ex/d"))
	assert.True(t, contains(st, "http://ex/b", "http://ex/ancestor", "http://ex/d"))
}

func TestInverseOf(t *testing.T) {
	st := newStore(t,
		rdf.NewTriple(iri("http://ex/parentOf"), iri(owl.InverseOf), iri("http://ex/childOf")),
		rdf.NewTriple(iri("http://ex/Ann"), iri("http://ex/parentOf"), iri("http://ex/Bob")),
		rdf.NewTriple(iri("http://ex/Cid"), iri("http://ex/childOf"), iri("http://ex/Dan")),
	)
	_, _, err := Apply(context.Background(), st, OWLRL, true, 0)
	require.NoError(t, err)
	assert.True(t, contains(st, "http://ex/Bob", "http://ex/childOf", "http://ex/Ann"))
	assert.True(t, contains(st, "http://ex/Dan", "http://ex/parentOf", "http://ex/Cid"))
}

func TestSameAsPropagation(t *testing.T) {
	st := newStore(t,
		rdf.NewTriple(iri("http://ex/Clark"), iri(owl.SameAs), iri("http://ex/Superman")),
		rdf.NewTriple(iri("http://ex/Clark"), iri("http://ex/worksAt"), iri("http://ex/DailyPlanet")),
	)
	_, _, err := Apply(context.Background(), st, OWLRL, true, 0)
	require.NoError(t, err)
	assert.True(t, contains(st, "http://ex/Superman", owl.SameAs, "http://ex/Clark"))
	assert.True(t, contains(st, "http://ex/Superman", "http://ex/worksAt", "http://ex/DailyPlanet"))
}

func TestEquivalentClass(t *testing.T) {
	st := newStore(t,
		rdf.NewTriple(iri("http://ex/Person"), iri(owl.EquivalentClass), iri("http://ex/Human")),
		rdf.NewTriple(iri("http://ex/Ann"), iri(vocrdf.Type), iri("http://ex/Person")),
		rdf.NewTriple(iri("http://ex/Bob"), iri(vocrdf.Type), iri("http://ex/Human")),
	)
	_, _, err := Apply(context.Background(), st, OWLRL, true, 0)
	require.NoError(t, err)
	assert.True(t, contains(st, "http://ex/Ann", vocrdf.Type, "http://ex/Human"))
	assert.True(t, contains(st, "http://ex/Bob", vocrdf.Type, "http://ex/Person"))
}

func TestFixpointIdempotent(t *testing.T) {
	st := newStore(t,
		rdf.NewTriple(iri("http://ex/Dog"), iri(rdfs.SubClassOf), iri("http://ex/Animal")),
		rdf.NewTriple(iri("http://ex/Fido"), iri(vocrdf.Type), iri("http://ex/Dog")),
	)
	first, _, err := Apply(context.Background(), st, RDFS, true, 0)
	require.NoError(t, err)
	require.Greater(t, first.TriplesInferred, 0)

	second, _, err := Apply(context.Background(), st, RDFS, true, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, second.TriplesInferred)
}

func TestMaterializeFalseLeavesStoreUntouched(t *testing.T) {
	st := newStore(t,
		rdf.NewTriple(iri("http://ex/Dog"), iri(rdfs.SubClassOf), iri("http://ex/Animal")),
		rdf.NewTriple(iri("http://ex/Fido"), iri(vocrdf.Type), iri("http://ex/Dog")),
	)
	before := st.Count()
	res, facts, err := Apply(context.Background(), st, RDFS, false, 0)
	require.NoError(t, err)
	assert.Greater(t, res.TriplesInferred, 0)
	assert.Len(t, facts, res.TriplesInferred)
	assert.Equal(t, before, st.Count())
	for _, f := range facts {
		assert.NotEmpty(t, f.Rule)
		assert.NotEmpty(t, f.Premises)
	}
}

func TestPremiseRetractionCascades(t *testing.T) {
	st := newStore(t,
		rdf.NewTriple(iri("http://ex/spouse"), iri(vocrdf.Type), iri(owl.SymmetricProperty)),
	)
	base, _, err := st.Insert(
		rdf.NewTriple(iri("http://ex/Dave"), iri("http://ex/spouse"), iri("http://ex/Eve")),
		memstore.Provenance{Source: "test", Method: "ingest"})
	require.NoError(t, err)

	_, _, err = Apply(context.Background(), st, OWLRL, true, 0)
	require.NoError(t, err)
	require.True(t, contains(st, "http://ex/Eve", "http://ex/spouse", "http://ex/Dave"))

	_, err = st.Delete(base)
	require.NoError(t, err)
	assert.False(t, contains(st, "http://ex/Eve", "http://ex/spouse", "http://ex/Dave"))

	// Re-running reasoning does not re-derive the entailment.
	res, _, err := Apply(context.Background(), st, OWLRL, true, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, res.TriplesInferred)
	assert.False(t, contains(st, "http://ex/Eve", "http://ex/spouse", "http://ex/Dave"))
}

func TestRoundsCeiling(t *testing.T) {
	st := newStore(t,
		rdf.NewTriple(iri("http://ex/c0"), iri(rdfs.SubClassOf), iri("http://ex/c1")),
	)
	// A long subclass chain forces one new derivation frontier per round.
	for i := 1; i < 40; i++ {
		_, _, err := st.Insert(rdf.NewTriple(
			iri(fmt.Sprintf("http://ex/c%d", i)), iri(rdfs.SubClassOf), iri(fmt.Sprintf("http://ex/c%d", i+1))),
			memstore.Provenance{Source: "test", Method: "ingest"})
		require.NoError(t, err)
	}
	_, _, err := Apply(context.Background(), st, RDFS, true, 2)
	require.Error(t, err)
	assert.True(t, graph.IsKind(err, graph.KindReasoningBudget))
}

func TestCancellation(t *testing.T) {
	st := newStore(t,
		rdf.NewTriple(iri("http://ex/Dog"), iri(rdfs.SubClassOf), iri("http://ex/Animal")),
		rdf.NewTriple(iri("http://ex/Fido"), iri(vocrdf.Type), iri("http://ex/Dog")),
	)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := Apply(ctx, st, RDFS, true, 0)
	require.Error(t, err)
	assert.True(t, graph.IsKind(err, graph.KindTimeout))
}

func TestNoneRuleSetIsIdentity(t *testing.T) {
	st := newStore(t,
		rdf.NewTriple(iri("http://ex/Dog"), iri(rdfs.SubClassOf), iri("http://ex/Animal")),
	)
	res, facts, err := Apply(context.Background(), st, None, true, 0)
	require.NoError(t, err)
	assert.Zero(t, res.TriplesInferred)
	assert.Empty(t, facts)
}
