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

// Package http exposes the engine over a small REST surface for the SDKs,
// plus health and metrics endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noesisdb/noesis/clog"
	"github.com/noesisdb/noesis/engine"
	"github.com/noesisdb/noesis/graph"
	"github.com/noesisdb/noesis/search"
)

// API wires the engine into an http.Handler.
type API struct {
	engine *engine.Engine
}

// NewAPI builds the handler set over a shared engine.
func NewAPI(e *engine.Engine) *API { return &API{engine: e} }

// Handler assembles the router.
func (api *API) Handler() http.Handler {
	r := httprouter.New()
	r.GET("/healthz", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handler(http.MethodGet, "/metrics", promhttp.Handler())
	r.GET("/api/v1/namespaces", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"namespaces": api.engine.ListNamespaces()})
	})

	r.POST("/api/v1/namespaces/:ns/triples", api.instrument("ingest", api.handleIngest))
	r.GET("/api/v1/namespaces/:ns/triples", api.instrument("list", api.handleList))
	r.POST("/api/v1/namespaces/:ns/sparql", api.instrument("sparql", api.handleSparql))
	r.POST("/api/v1/namespaces/:ns/search", api.instrument("search", api.handleSearch))
	r.POST("/api/v1/namespaces/:ns/reason", api.instrument("reason", api.handleReason))
	r.POST("/api/v1/namespaces/:ns/text", api.instrument("text", api.handleText))
	r.GET("/api/v1/namespaces/:ns/neighbors", api.instrument("neighbors", api.handleNeighbors))
	r.GET("/api/v1/namespaces/:ns/stats", api.instrument("stats", api.handleStats))
	r.DELETE("/api/v1/namespaces/:ns", api.instrument("delete", api.handleDelete))
	return r
}

// Serve runs the HTTP front end until ctx is cancelled.
func Serve(ctx context.Context, e *engine.Engine, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewAPI(e).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	clog.Infof("http: listening on %s", addr)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

type handle func(w http.ResponseWriter, r *http.Request, ns string) error

// instrument applies auth, error mapping and metrics around one handler.
func (api *API) instrument(op string, h handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		start := time.Now()
		ns := ps.ByName("ns")
		err := api.authorize(r, ns)
		if err == nil {
			err = h(w, r, ns)
		}
		status := "ok"
		if err != nil {
			status = "error"
			writeError(w, err)
		}
		requestTotal.WithLabelValues(op, status).Inc()
		requestSeconds.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}

func (api *API) authorize(r *http.Request, ns string) error {
	scopes := api.engine.Scopes()
	if !scopes.Enabled() {
		return nil
	}
	token := ""
	if h := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(h), "bearer ") {
		token = strings.TrimSpace(h[len("bearer "):])
	}
	return scopes.Check(token, ns)
}

func (api *API) handleIngest(w http.ResponseWriter, r *http.Request, ns string) error {
	var body struct {
		Triples  []engine.TripleSpec `json:"triples"`
		Validate bool                `json:"validate"`
	}
	if err := decodeBody(r, &body); err != nil {
		return err
	}
	stats, err := api.engine.IngestTriples(r.Context(), ns, body.Triples, engine.IngestOptions{Validate: body.Validate})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, stats)
	return nil
}

func (api *API) handleList(w http.ResponseWriter, r *http.Request, ns string) error {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return graph.Errorf(graph.KindValidation, "invalid limit %q", s)
		}
		limit = n
	}
	list, err := api.engine.ListTriples(r.Context(), ns, limit)
	if err != nil {
		return err
	}
	if list == nil {
		list = []engine.TripleRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"triples": list})
	return nil
}

func (api *API) handleSparql(w http.ResponseWriter, r *http.Request, ns string) error {
	var body struct {
		Query string `json:"query"`
	}
	// Accept both JSON bodies and the raw application/sparql-query form.
	if strings.Contains(r.Header.Get("Content-Type"), "application/sparql-query") {
		raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			return graph.Wrap(graph.KindValidation, err, "read query")
		}
		body.Query = string(raw)
	} else if err := decodeBody(r, &body); err != nil {
		return err
	}
	res, err := api.engine.Query(r.Context(), ns, body.Query)
	if err != nil {
		return err
	}
	b, err := res.ToJSON()
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/sparql-results+json")
	w.WriteHeader(http.StatusOK)
	w.Write(b)
	return nil
}

func (api *API) handleSearch(w http.ResponseWriter, r *http.Request, ns string) error {
	var body struct {
		Query      string    `json:"query"`
		Vector     []float32 `json:"vector"`
		VectorK    int       `json:"vector_k"`
		GraphDepth int       `json:"graph_depth"`
		Mode       string    `json:"mode"`
	}
	if err := decodeBody(r, &body); err != nil {
		return err
	}
	mode, err := search.ParseMode(body.Mode)
	if err != nil {
		return err
	}
	if body.GraphDepth == 0 {
		body.GraphDepth = 1
	}
	results, err := api.engine.HybridSearch(r.Context(), ns, body.Query, body.Vector, search.Options{
		K: body.VectorK, GraphDepth: body.GraphDepth, Mode: mode,
	})
	if err != nil {
		return err
	}
	if results == nil {
		results = []search.Result{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
	return nil
}

func (api *API) handleReason(w http.ResponseWriter, r *http.Request, ns string) error {
	var body struct {
		Strategy    string `json:"strategy"`
		Materialize *bool  `json:"materialize"`
	}
	if err := decodeBody(r, &body); err != nil {
		return err
	}
	materialize := true
	if body.Materialize != nil {
		materialize = *body.Materialize
	}
	out, err := api.engine.ApplyReasoning(r.Context(), ns, body.Strategy, materialize)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":          true,
		"triples_inferred": out.TriplesInferred,
		"rounds":           out.Rounds,
	})
	return nil
}

func (api *API) handleText(w http.ResponseWriter, r *http.Request, ns string) error {
	var body struct {
		Text   string `json:"text"`
		Source string `json:"source"`
	}
	if err := decodeBody(r, &body); err != nil {
		return err
	}
	stats, err := api.engine.IngestText(r.Context(), ns, body.Text, body.Source)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, stats)
	return nil
}

func (api *API) handleNeighbors(w http.ResponseWriter, r *http.Request, ns string) error {
	q := r.URL.Query()
	var nodeID int64
	if s := q.Get("node_id"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return graph.Errorf(graph.KindValidation, "invalid node_id %q", s)
		}
		nodeID = n
	}
	neighbors, err := api.engine.Neighbors(r.Context(), ns, q.Get("uri"), nodeID, q.Get("direction"))
	if err != nil {
		return err
	}
	if neighbors == nil {
		neighbors = []engine.Neighbor{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"neighbors": neighbors})
	return nil
}

func (api *API) handleStats(w http.ResponseWriter, r *http.Request, ns string) error {
	stats, err := api.engine.Stats(r.Context(), ns)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, stats)
	return nil
}

func (api *API) handleDelete(w http.ResponseWriter, r *http.Request, ns string) error {
	if err := api.engine.DeleteNamespace(r.Context(), ns); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	return nil
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 32<<20))
	if err := dec.Decode(v); err != nil {
		return graph.Wrap(graph.KindValidation, err, "invalid request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error       string   `json:"error"`
	Kind        string   `json:"kind"`
	Suggestions []string `json:"suggestions,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	kind := graph.KindOf(err)
	code := http.StatusInternalServerError
	switch kind {
	case graph.KindValidation:
		code = http.StatusBadRequest
	case graph.KindNotFound:
		code = http.StatusNotFound
	case graph.KindConflict:
		code = http.StatusConflict
	case graph.KindQuotaExceeded, graph.KindReasoningBudget:
		code = http.StatusTooManyRequests
	case graph.KindUnauthenticated:
		code = http.StatusUnauthorized
	case graph.KindPermissionDenied:
		code = http.StatusForbidden
	case graph.KindTimeout:
		code = http.StatusGatewayTimeout
	case graph.KindTransient:
		code = http.StatusServiceUnavailable
	}
	body := errorBody{Error: err.Error(), Kind: kind.String()}
	var gerr *graph.Error
	if errors.As(err, &gerr) {
		body.Suggestions = gerr.Suggestions
	}
	writeJSON(w, code, body)
}
