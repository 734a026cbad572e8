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

package rpc

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/noesisdb/noesis/engine"
	"github.com/noesisdb/noesis/graph"
)

func newService(t *testing.T, cfg engine.Config) *Service {
	t.Helper()
	e, err := engine.NewEngine(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return NewService(e)
}

func TestIngestQueryRoundTrip(t *testing.T) {
	s := newService(t, engine.Config{})
	ctx := context.Background()

	resp, err := s.IngestTriples(ctx, &IngestTriplesRequest{
		Namespace: "ns1",
		Triples:   []TripleSpec{{Subject: "<http://ex/A>", Predicate: "<http://ex/p>", Object: "v"}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.EdgesAdded)

	q, err := s.SparqlQuery(ctx, &SparqlQueryRequest{
		Namespace: "ns1",
		Query:     `ASK { <http://ex/A> <http://ex/p> "v" }`,
	})
	require.NoError(t, err)
	var doc struct {
		Boolean *bool `json:"boolean"`
	}
	require.NoError(t, json.Unmarshal(q.ResultsJSON, &doc))
	require.NotNil(t, doc.Boolean)
	assert.True(t, *doc.Boolean)
}

func TestStatusCodeMapping(t *testing.T) {
	s := newService(t, engine.Config{})
	ctx := context.Background()

	_, err := s.SparqlQuery(ctx, &SparqlQueryRequest{Namespace: "ns", Query: "SELEC nope"})
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = s.ResolveId(ctx, &ResolveIdRequest{Namespace: "missing", NodeID: 1})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = s.DeleteNamespace(ctx, &DeleteNamespaceRequest{Namespace: "missing"})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestResolveIdAndStats(t *testing.T) {
	s := newService(t, engine.Config{})
	ctx := context.Background()
	_, err := s.IngestTriples(ctx, &IngestTriplesRequest{
		Namespace: "ns1",
		Triples:   []TripleSpec{{Subject: "<http://ex/A>", Predicate: "<http://ex/p>", Object: `"hello"@en`}},
	})
	require.NoError(t, err)

	// Node ids allocate in intern order: subject first.
	resolved, err := s.ResolveId(ctx, &ResolveIdRequest{Namespace: "ns1", NodeID: 1})
	require.NoError(t, err)
	assert.Equal(t, "iri", resolved.Kind)
	assert.Equal(t, "http://ex/A", resolved.Value)

	stats, err := s.NamespaceStats(ctx, &NamespaceStatsRequest{Namespace: "ns1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TripleCount)
	assert.Equal(t, "none", stats.ReasoningState)
}

type fakeStream struct {
	ctx  context.Context
	sent []*Triple
}

func (f *fakeStream) Send(t *Triple) error     { f.sent = append(f.sent, t); return nil }
func (f *fakeStream) Context() context.Context { return f.ctx }

func TestStreamTriples(t *testing.T) {
	s := newService(t, engine.Config{})
	ctx := context.Background()
	_, err := s.IngestTriples(ctx, &IngestTriplesRequest{
		Namespace: "ns1",
		Triples: []TripleSpec{
			{Subject: "<http://ex/a>", Predicate: "<http://ex/p>", Object: "1"},
			{Subject: "<http://ex/a>", Predicate: "<http://ex/p>", Object: "2"},
		},
	})
	require.NoError(t, err)

	fs := &fakeStream{ctx: ctx}
	require.NoError(t, s.StreamTriples(&GetAllTriplesRequest{Namespace: "ns1"}, fs))
	assert.Len(t, fs.sent, 2)
}

func TestAuthInterceptor(t *testing.T) {
	scopes := graph.Scopes{"t1": {"ns_a"}, "admin": {"*"}}
	intercept := unaryAuth(scopes)
	handler := func(ctx context.Context, req interface{}) (interface{}, error) { return "ok", nil }

	withToken := func(tok string) context.Context {
		md := metadata.Pairs("authorization", "Bearer "+tok)
		return metadata.NewIncomingContext(context.Background(), md)
	}
	req := &IngestTriplesRequest{Namespace: "ns_a"}

	_, err := intercept(withToken("t1"), req, nil, handler)
	require.NoError(t, err)

	_, err = intercept(withToken("admin"), &IngestTriplesRequest{Namespace: "ns_b"}, nil, handler)
	require.NoError(t, err)

	_, err = intercept(withToken("t1"), &IngestTriplesRequest{Namespace: "ns_b"}, nil, handler)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	_, err = intercept(context.Background(), req, nil, handler)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	// No scopes configured: everything passes.
	open := unaryAuth(nil)
	_, err = open(context.Background(), req, nil, handler)
	require.NoError(t, err)
}

func TestCodecRoundTrip(t *testing.T) {
	c := Codec{}
	in := &IngestTriplesRequest{Namespace: "ns", Triples: []TripleSpec{{Subject: "<a>", Predicate: "<b>", Object: "c"}}}
	b, err := c.Marshal(in)
	require.NoError(t, err)
	out := new(IngestTriplesRequest)
	require.NoError(t, c.Unmarshal(b, out))
	assert.Equal(t, in, out)
	assert.Equal(t, "json", c.Name())
}
