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
	"time"

	"github.com/noesisdb/noesis/vector"
)

// Timeouts are the per-operation budgets. Exceeding one yields a Timeout
// error without corrupting state.
type Timeouts struct {
	Ingest time.Duration
	Query  time.Duration
	Reason time.Duration
	Search time.Duration
}

// DefaultTimeouts returns the stock budgets.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Ingest: 30 * time.Second,
		Query:  60 * time.Second,
		Reason: 300 * time.Second,
		Search: 15 * time.Second,
	}
}

func (t Timeouts) sane() Timeouts {
	d := DefaultTimeouts()
	if t.Ingest <= 0 {
		t.Ingest = d.Ingest
	}
	if t.Query <= 0 {
		t.Query = d.Query
	}
	if t.Reason <= 0 {
		t.Reason = d.Reason
	}
	if t.Search <= 0 {
		t.Search = d.Search
	}
	return t
}

// Config assembles one engine instance. The zero value is a memory-only
// engine with defaults and no authentication.
type Config struct {
	// DataDir is the persistence root; empty keeps everything in memory.
	DataDir string

	// Per-namespace quotas; zero means unlimited.
	MaxTriples int
	MaxVectors int

	// HNSW construction/search parameters for new namespaces.
	HNSW vector.Params

	// EmbedderURL enables automatic embedding of literals and IRIs; empty
	// disables the async indexing path and hybrid search over strings.
	EmbedderURL  string
	EmbedderRPS  float64
	EmbeddingDim int

	// Async embedding pool sizing.
	IndexWorkers    int
	IndexQueueDepth int

	// MaxReasoningRounds caps each reasoning invocation.
	MaxReasoningRounds int

	Timeouts Timeouts

	// AuthTokens maps bearer tokens to their namespace scopes; "*" grants
	// every namespace. A nil map disables authentication; an empty non-nil
	// map leaves it enabled and every request is rejected.
	AuthTokens map[string][]string
}
