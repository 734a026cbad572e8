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

package dict

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noesisdb/noesis/rdf"
)

func TestInternRoundTrip(t *testing.T) {
	d := New()
	terms := []rdf.Term{
		rdf.NewIRI("http://ex/A"),
		rdf.NewBlank("b0"),
		rdf.NewLiteral("v"),
		rdf.NewLangLiteral("v", "en"),
		rdf.NewTypedLiteral("3", "http://www.w3.org/2001/XMLSchema#integer"),
	}
	for _, term := range terms {
		id := d.Intern(term)
		require.NotZero(t, id)
		got, ok := d.Resolve(id)
		require.True(t, ok)
		assert.Equal(t, term, got)
	}
}

func TestInternIdempotent(t *testing.T) {
	d := New()
	a := d.Intern(rdf.NewIRI("http://ex/A"))
	b := d.Intern(rdf.NewIRI("http://ex/A"))
	assert.Equal(t, a, b)
	assert.Equal(t, 1, d.Len())
}

func TestInternMonotone(t *testing.T) {
	d := New()
	var prev int64
	for i := 0; i < 100; i++ {
		id := d.Intern(rdf.NewIRI(fmt.Sprintf("http://ex/n%d", i)))
		assert.Greater(t, id, prev)
		prev = id
	}
}

func TestLiteralAndIRIAreDistinct(t *testing.T) {
	d := New()
	iri := d.Intern(rdf.NewIRI("http://ex/A"))
	lit := d.Intern(rdf.NewLiteral("http://ex/A"))
	assert.NotEqual(t, iri, lit)
}

func TestFindDoesNotAllocate(t *testing.T) {
	d := New()
	_, ok := d.Find(rdf.NewIRI("http://ex/missing"))
	assert.False(t, ok)
	assert.Equal(t, 0, d.Len())
}

func TestInternAtReplay(t *testing.T) {
	d := New()
	d.InternAt(7, rdf.NewIRI("http://ex/A"))
	id, ok := d.Find(rdf.NewIRI("http://ex/A"))
	require.True(t, ok)
	assert.Equal(t, int64(7), id)

	// The allocator horizon moved past the replayed id.
	next := d.Intern(rdf.NewIRI("http://ex/B"))
	assert.Greater(t, next, int64(7))
}

func TestConcurrentIntern(t *testing.T) {
	d := New()
	var wg sync.WaitGroup
	ids := make([]int64, 32)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = d.Intern(rdf.NewIRI("http://ex/shared"))
		}(i)
	}
	wg.Wait()
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, 1, d.Len())
}
