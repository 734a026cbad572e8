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

package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noesisdb/noesis/engine"
)

func newTestAPI(t *testing.T, cfg engine.Config) http.Handler {
	t.Helper()
	e, err := engine.NewEngine(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return NewAPI(e).Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	h := newTestAPI(t, engine.Config{})
	w := doJSON(t, h, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIngestAndSparql(t *testing.T) {
	h := newTestAPI(t, engine.Config{})
	w := doJSON(t, h, http.MethodPost, "/api/v1/namespaces/ns1/triples",
		`{"triples":[{"subject":"<http://ex/A>","predicate":"<http://ex/p>","object":"v"}]}`, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, h, http.MethodPost, "/api/v1/namespaces/ns1/sparql",
		`{"query":"SELECT ?o WHERE { <http://ex/A> <http://ex/p> ?o }"}`, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/sparql-results+json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), `"value":"v"`)

	// Raw SPARQL body.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/namespaces/ns1/sparql",
		strings.NewReader(`ASK { <http://ex/A> <http://ex/p> "v" }`))
	req.Header.Set("Content-Type", "application/sparql-query")
	w2 := httptest.NewRecorder()
	h.ServeHTTP(w2, req)
	require.Equal(t, http.StatusOK, w2.Code)
	assert.Contains(t, w2.Body.String(), `"boolean":true`)
}

func TestErrorMapping(t *testing.T) {
	h := newTestAPI(t, engine.Config{})
	w := doJSON(t, h, http.MethodPost, "/api/v1/namespaces/ns1/sparql", `{"query":"SELEC"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, h, http.MethodDelete, "/api/v1/namespaces/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var body struct {
		Kind string `json:"kind"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "NotFound", body.Kind)
}

func TestBearerAuth(t *testing.T) {
	h := newTestAPI(t, engine.Config{AuthTokens: map[string][]string{
		"t1":    {"ns_a"},
		"admin": {"*"},
	}})
	ingest := `{"triples":[{"subject":"<http://ex/A>","predicate":"<http://ex/p>","object":"v"}]}`

	w := doJSON(t, h, http.MethodPost, "/api/v1/namespaces/ns_a/triples", ingest, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, h, http.MethodPost, "/api/v1/namespaces/ns_b/triples", ingest,
		map[string]string{"Authorization": "Bearer t1"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, h, http.MethodPost, "/api/v1/namespaces/ns_a/triples", ingest,
		map[string]string{"Authorization": "Bearer t1"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, h, http.MethodPost, "/api/v1/namespaces/ns_b/triples", ingest,
		map[string]string{"Authorization": "Bearer admin"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStatsAndNeighbors(t *testing.T) {
	h := newTestAPI(t, engine.Config{})
	doJSON(t, h, http.MethodPost, "/api/v1/namespaces/ns1/triples",
		`{"triples":[{"subject":"<http://ex/a>","predicate":"<http://ex/p>","object":"<http://ex/b>"}]}`, nil)

	w := doJSON(t, h, http.MethodGet, "/api/v1/namespaces/ns1/stats", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"triple_count":1`)

	w = doJSON(t, h, http.MethodGet, "/api/v1/namespaces/ns1/neighbors?uri=http://ex/a&direction=outgoing", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http://ex/b")
}
