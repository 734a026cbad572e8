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

package memstore

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noesisdb/noesis/graph"
	"github.com/noesisdb/noesis/graph/dict"
	"github.com/noesisdb/noesis/rdf"
)

func tr(s, p, o string) rdf.Triple {
	return rdf.NewTriple(rdf.NewIRI(s), rdf.NewIRI(p), rdf.NewIRI(o))
}

func trLit(s, p, o string) rdf.Triple {
	return rdf.NewTriple(rdf.NewIRI(s), rdf.NewIRI(p), rdf.NewLiteral(o))
}

func ingested() Provenance {
	return Provenance{Source: "test", Method: "ingest"}
}

func TestInsertDeduplicates(t *testing.T) {
	s := New(dict.New())
	id1, added, err := s.Insert(trLit("http://ex/A", "http://ex/p", "v"), ingested())
	require.NoError(t, err)
	require.True(t, added)

	id2, added, err := s.Insert(trLit("http://ex/A", "http://ex/p", "v"), ingested())
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, id1, id2)
	assert.Equal(t, 1, s.Count())
}

func TestInsertRejectsInvalid(t *testing.T) {
	s := New(dict.New())
	_, _, err := s.Insert(rdf.NewTriple(rdf.NewLiteral("x"), rdf.NewIRI("http://ex/p"), rdf.NewLiteral("v")), ingested())
	require.Error(t, err)
	assert.True(t, graph.IsKind(err, graph.KindValidation))
	assert.Equal(t, 0, s.Count())
}

func TestInsertBatchAllOrNothing(t *testing.T) {
	s := New(dict.New())
	_, _, err := s.InsertBatch([]rdf.Triple{
		tr("http://ex/A", "http://ex/p", "http://ex/B"),
		rdf.NewTriple(rdf.NewLiteral("bad"), rdf.NewIRI("http://ex/p"), rdf.NewLiteral("v")),
	}, ingested())
	require.Error(t, err)
	assert.Equal(t, 0, s.Count())
	assert.Equal(t, 0, s.Dict().Len())

	nodes, edges, err := s.InsertBatch([]rdf.Triple{
		tr("http://ex/A", "http://ex/p", "http://ex/B"),
		tr("http://ex/B", "http://ex/p", "http://ex/C"),
		tr("http://ex/A", "http://ex/p", "http://ex/B"), // duplicate inside batch
	}, ingested())
	require.NoError(t, err)
	assert.Equal(t, 4, nodes) // A, p, B, C
	assert.Equal(t, 2, edges)
}

func TestMatchChoosesIndex(t *testing.T) {
	s := New(dict.New())
	for i := 0; i < 5; i++ {
		_, _, err := s.Insert(tr("http://ex/A", "http://ex/p", fmt.Sprintf("http://ex/o%d", i)), ingested())
		require.NoError(t, err)
	}
	_, _, err := s.Insert(tr("http://ex/B", "http://ex/p", "http://ex/o0"), ingested())
	require.NoError(t, err)

	d := s.Dict()
	a, _ := d.Find(rdf.NewIRI("http://ex/A"))
	p, _ := d.Find(rdf.NewIRI("http://ex/p"))
	o0, _ := d.Find(rdf.NewIRI("http://ex/o0"))

	count := func(pat Pattern) int {
		n := 0
		for it := s.Match(pat); it.Next(); {
			n++
		}
		return n
	}
	assert.Equal(t, 5, count(Pattern{Subject: a}))
	assert.Equal(t, 6, count(Pattern{Predicate: p}))
	assert.Equal(t, 2, count(Pattern{Object: o0}))
	assert.Equal(t, 1, count(Pattern{Subject: a, Object: o0}))
	assert.Equal(t, 6, count(Pattern{}))
	assert.Equal(t, 0, count(Pattern{Subject: 999}))
}

func TestDeleteCascadesInferred(t *testing.T) {
	s := New(dict.New())
	base, _, err := s.Insert(tr("http://ex/Dave", "http://ex/spouse", "http://ex/Eve"), ingested())
	require.NoError(t, err)

	d := s.Dict()
	dave, _ := d.Find(rdf.NewIRI("http://ex/Dave"))
	spouse, _ := d.Find(rdf.NewIRI("http://ex/spouse"))
	eve, _ := d.Find(rdf.NewIRI("http://ex/Eve"))

	inf1, added := s.InsertInferred(eve, spouse, dave, "prp-symp", []int64{base}, "reasoner")
	require.True(t, added)
	// A second-hop inference depending on the first.
	_, added = s.InsertInferred(dave, spouse, dave, "prp-trp", []int64{base, inf1}, "reasoner")
	require.True(t, added)
	require.Equal(t, 3, s.Count())

	removed, err := s.Delete(base)
	require.NoError(t, err)
	assert.Len(t, removed, 3)
	assert.Equal(t, 0, s.Count())

	// Dictionary entries survive the deletion.
	_, ok := d.Find(rdf.NewIRI("http://ex/Dave"))
	assert.True(t, ok)
}

func TestDeleteMissing(t *testing.T) {
	s := New(dict.New())
	_, err := s.Delete(42)
	require.Error(t, err)
	assert.True(t, graph.IsKind(err, graph.KindNotFound))
}

func TestProvenanceRecorded(t *testing.T) {
	s := New(dict.New())
	id, _, err := s.Insert(trLit("http://ex/A", "http://ex/p", "v"), Provenance{Source: "doc-1", Method: "ingest"})
	require.NoError(t, err)
	p, ok := s.ProvenanceOf(id)
	require.True(t, ok)
	assert.Equal(t, "doc-1", p.Source)
	assert.False(t, p.Inferred())
	assert.False(t, p.Timestamp.IsZero())
}

func TestChangeEvents(t *testing.T) {
	s := New(dict.New())
	var events []Event
	s.Subscribe(func(ev Event) { events = append(events, ev) })

	id, _, err := s.Insert(trLit("http://ex/A", "http://ex/p", "v"), ingested())
	require.NoError(t, err)
	_, _, err = s.Insert(trLit("http://ex/A", "http://ex/p", "v"), ingested())
	require.NoError(t, err)
	_, err = s.Delete(id)
	require.NoError(t, err)

	require.Len(t, events, 2) // duplicate insert emits nothing
	assert.True(t, events[0].Added)
	assert.False(t, events[1].Added)
	assert.Equal(t, "v", events[1].Triple.Object.Value)
}

func TestPersistReplay(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)
	id1, _, err := s.Insert(trLit("http://ex/A", "http://ex/p", "v"), Provenance{Source: "doc", Method: "ingest"})
	require.NoError(t, err)
	id2, _, err := s.Insert(tr("http://ex/A", "http://ex/q", "http://ex/B"), ingested())
	require.NoError(t, err)
	_, err = s.Delete(id2)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := Open(dir)
	require.NoError(t, err)
	defer s2.Close()
	assert.Equal(t, 1, s2.Count())

	q, ok := s2.QuadOf(id1)
	require.True(t, ok)
	got, err := s2.ResolveQuad(q)
	require.NoError(t, err)
	assert.Equal(t, trLit("http://ex/A", "http://ex/p", "v"), got)

	p, ok := s2.ProvenanceOf(id1)
	require.True(t, ok)
	assert.Equal(t, "doc", p.Source)

	// Dictionary entries of the deleted triple survive replay.
	d := s2.Dict()
	b, ok := d.Find(rdf.NewIRI("http://ex/B"))
	assert.True(t, ok)
	assert.NotZero(t, b)
}

func TestCompactDropsTombstones(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	keep, _, err := s.Insert(trLit("http://ex/A", "http://ex/p", "keep"), ingested())
	require.NoError(t, err)
	gone, _, err := s.Insert(trLit("http://ex/A", "http://ex/p", "gone"), ingested())
	require.NoError(t, err)
	_, err = s.Delete(gone)
	require.NoError(t, err)

	require.NoError(t, s.Compact())
	require.NoError(t, s.Close())

	s2, err := Open(dir)
	require.NoError(t, err)
	defer s2.Close()
	assert.Equal(t, 1, s2.Count())
	_, ok := s2.QuadOf(keep)
	assert.True(t, ok)
	_, ok = s2.QuadOf(gone)
	assert.False(t, ok)
	// The dictionary keeps the orphaned literal.
	_, ok = s2.Dict().Find(rdf.NewLiteral("gone"))
	assert.True(t, ok)
}
