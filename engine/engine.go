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

// Package engine hosts the shared engine value: the table of live
// namespaces, their quotas and locks, and the operation surface every
// transport dispatches into.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/noesisdb/noesis/clog"
	"github.com/noesisdb/noesis/graph"
	"github.com/noesisdb/noesis/graph/dict"
	"github.com/noesisdb/noesis/graph/memstore"
	"github.com/noesisdb/noesis/rdf"
	"github.com/noesisdb/noesis/reason"
	"github.com/noesisdb/noesis/search"
	"github.com/noesisdb/noesis/sparql"
	"github.com/noesisdb/noesis/vector"
	vocrdf "github.com/noesisdb/noesis/voc/rdf"
	"github.com/noesisdb/noesis/voc/rdfs"
)

// namespace is one tenant: its store, its vector index and the two locks of
// the locking discipline. mu protects store and dictionary jointly; the
// vector index carries its own synchronization.
type namespace struct {
	name      string
	mu        sync.RWMutex
	store     *memstore.Store
	vec       *vector.Index
	dir       string
	createdAt time.Time
	reasoning string
}

// Engine is the single shared engine value handed to every transport. It
// owns the namespace table; there is no other process-wide state.
type Engine struct {
	cfg      Config
	scopes   graph.Scopes
	embedder vector.Embedder
	indexer  *vector.Indexer

	mu         sync.RWMutex
	namespaces map[string]*namespace
}

// NewEngine assembles an engine from cfg. With a DataDir, namespaces found
// on disk are reopened lazily on first touch.
func NewEngine(cfg Config) (*Engine, error) {
	cfg.Timeouts = cfg.Timeouts.sane()
	if cfg.MaxReasoningRounds <= 0 {
		cfg.MaxReasoningRounds = reason.DefaultMaxRounds
	}
	e := &Engine{
		cfg:        cfg,
		scopes:     cfg.AuthTokens,
		namespaces: make(map[string]*namespace),
	}
	if cfg.EmbedderURL != "" {
		e.embedder = vector.NewHTTPEmbedder(cfg.EmbedderURL, cfg.EmbedderRPS)
		e.indexer = vector.NewIndexer(e.embedder, e.indexSink, cfg.IndexWorkers, cfg.IndexQueueDepth)
	} else {
		e.embedder = vector.NullEmbedder{}
	}
	if cfg.DataDir != "" {
		if err := os.MkdirAll(filepath.Join(cfg.DataDir, "namespaces"), 0o755); err != nil {
			return nil, graph.Wrap(graph.KindFatal, err, "create data dir")
		}
	}
	return e, nil
}

// Scopes exposes the configured token scopes for the transports.
func (e *Engine) Scopes() graph.Scopes { return e.scopes }

// Close flushes and closes every namespace and stops the embedding pool.
func (e *Engine) Close() error {
	if e.indexer != nil {
		e.indexer.Close()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	var first error
	for _, ns := range e.namespaces {
		ns.mu.Lock()
		if err := e.persist(ns); err != nil && first == nil {
			first = err
		}
		if err := ns.store.Close(); err != nil && first == nil {
			first = err
		}
		ns.mu.Unlock()
	}
	return first
}

func (e *Engine) nsDir(name string) string {
	if e.cfg.DataDir == "" {
		return ""
	}
	return filepath.Join(e.cfg.DataDir, "namespaces", name)
}

func validNamespace(name string) error {
	if name == "" {
		return graph.Errorf(graph.KindValidation, "namespace is required")
	}
	if strings.ContainsAny(name, "/\\.. \t\n") {
		return graph.Errorf(graph.KindValidation, "invalid namespace %q", name)
	}
	return nil
}

// namespaceFor fetches a namespace, creating it lazily when create is set.
func (e *Engine) namespaceFor(name string, create bool) (*namespace, error) {
	if err := validNamespace(name); err != nil {
		return nil, err
	}
	e.mu.RLock()
	ns, ok := e.namespaces[name]
	e.mu.RUnlock()
	if ok {
		return ns, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if ns, ok = e.namespaces[name]; ok {
		return ns, nil
	}
	dir := e.nsDir(name)
	onDisk := false
	if dir != "" {
		if _, err := os.Stat(dir); err == nil {
			onDisk = true
		}
	}
	if !create && !onDisk {
		return nil, graph.Errorf(graph.KindNotFound, "namespace %q", name)
	}

	ns = &namespace{name: name, dir: dir, createdAt: time.Now().UTC(), reasoning: "none"}
	var err error
	if dir != "" {
		ns.store, err = memstore.Open(dir)
		if err != nil {
			return nil, err
		}
		ns.vec, err = vector.Load(filepath.Join(dir, "index"), e.cfg.HNSW)
		if err != nil {
			return nil, err
		}
		if m, merr := readManifest(dir); merr == nil && m != nil {
			ns.reasoning = m.Reasoning
			if !m.CreatedAt.IsZero() {
				ns.createdAt = m.CreatedAt
			}
		}
	} else {
		ns.store = memstore.New(dict.New())
		ns.vec = vector.NewIndex(e.cfg.HNSW)
	}
	e.namespaces[name] = ns
	clog.Infof("graph: opened namespace %q (triples=%d vectors=%d)", name, ns.store.Count(), ns.vec.Len())
	return ns, nil
}

// withTimeout applies one of the per-operation budgets.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func mapCtxErr(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return graph.Wrap(graph.KindTimeout, err, "operation budget exceeded")
	}
	return err
}

// TripleSpec is the external triple shape accepted by the ingest surface.
type TripleSpec struct {
	Subject    string `json:"subject"`
	Predicate  string `json:"predicate"`
	Object     string `json:"object"`
	Provenance string `json:"provenance,omitempty"`
}

// IngestStats reports one ingest call.
type IngestStats struct {
	NodesAdded int `json:"nodes_added"`
	EdgesAdded int `json:"edges_added"`
}

// IngestOptions tune validation of one ingest call.
type IngestOptions struct {
	// Validate rejects triples whose predicate is not declared by the
	// namespace ontology.
	Validate bool
	// Source overrides the provenance source for rows that carry none.
	Source string
}

// IngestTriples parses, validates and stores a batch of triples under a
// single namespace write lock cycle.
func (e *Engine) IngestTriples(ctx context.Context, nsName string, specs []TripleSpec, opts IngestOptions) (IngestStats, error) {
	ctx, cancel := withTimeout(ctx, e.cfg.Timeouts.Ingest)
	defer cancel()

	if len(specs) == 0 {
		return IngestStats{}, graph.Errorf(graph.KindValidation, "no triples supplied")
	}
	triples := make([]rdf.Triple, 0, len(specs))
	for i, spec := range specs {
		s, err := rdf.ParseSubject(spec.Subject)
		if err != nil {
			return IngestStats{}, graph.Wrap(graph.KindValidation, err, "triple "+strconv.Itoa(i))
		}
		p, err := rdf.ParsePredicate(spec.Predicate)
		if err != nil {
			return IngestStats{}, graph.Wrap(graph.KindValidation, err, "triple "+strconv.Itoa(i))
		}
		o, err := rdf.ParseTerm(spec.Object)
		if err != nil {
			return IngestStats{}, graph.Wrap(graph.KindValidation, err, "triple "+strconv.Itoa(i))
		}
		triples = append(triples, rdf.NewTriple(s, p, o))
	}

	ns, err := e.namespaceFor(nsName, true)
	if err != nil {
		return IngestStats{}, err
	}

	ns.mu.Lock()
	defer ns.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return IngestStats{}, mapCtxErr(ctx, err)
	}
	if e.cfg.MaxTriples > 0 && ns.store.Count()+len(triples) > e.cfg.MaxTriples {
		return IngestStats{}, graph.Errorf(graph.KindQuotaExceeded,
			"namespace %q would exceed its %d-triple quota", nsName, e.cfg.MaxTriples)
	}
	if opts.Validate {
		if err := e.validateAgainstOntology(ns.store, triples); err != nil {
			return IngestStats{}, err
		}
	}

	source := opts.Source
	if source == "" {
		source = "api"
	}
	// The whole batch is validated before any index is touched; per-row
	// provenance sources override the batch source.
	for i, t := range triples {
		if err := t.Validate(); err != nil {
			return IngestStats{}, graph.Wrap(graph.KindValidation, err, "triple "+strconv.Itoa(i))
		}
	}
	prov := memstore.Provenance{Source: source, Timestamp: time.Now().UTC(), Method: "ingest"}
	nodes, edges, err := insertAll(ns.store, triples, specs, prov)
	if err != nil {
		return IngestStats{}, err
	}
	stats := IngestStats{NodesAdded: nodes, EdgesAdded: edges}
	e.enqueueVectors(ctx, ns, triples)
	if err := ns.store.Flush(); err != nil {
		return stats, err
	}
	if err := e.persist(ns); err != nil {
		return stats, err
	}
	return stats, nil
}

// insertAll applies the batch after validation; validation happened above,
// so failures here are internal.
func insertAll(st *memstore.Store, triples []rdf.Triple, specs []TripleSpec, base memstore.Provenance) (nodes, edges int, err error) {
	before := st.Dict().Len()
	for i, t := range triples {
		p := base
		if specs[i].Provenance != "" {
			p.Source = specs[i].Provenance
		}
		_, added, ierr := st.Insert(t, p)
		if ierr != nil {
			return 0, 0, ierr
		}
		if added {
			edges++
		}
	}
	return st.Dict().Len() - before, edges, nil
}

// validateAgainstOntology enforces the strict ingest pipeline: every
// predicate must be declared by the namespace ontology. Violations come
// back as Validation errors carrying near-miss suggestions.
func (e *Engine) validateAgainstOntology(st *memstore.Store, triples []rdf.Triple) error {
	declared := declaredPredicates(st)
	if len(declared) == 0 {
		return graph.Errorf(graph.KindValidation, "namespace has no ontology; ingest without validate or load property declarations first")
	}
	for _, t := range triples {
		iri := t.Predicate.Value
		if declared[iri] {
			continue
		}
		if isOntologyPredicate(iri) {
			continue
		}
		err := graph.Errorf(graph.KindValidation, "predicate %q is not declared in the ontology", iri)
		err.Suggestions = suggestPredicates(declared, iri)
		return err
	}
	return nil
}

func declaredPredicates(st *memstore.Store) map[string]bool {
	out := map[string]bool{}
	d := st.Dict()
	collect := func(pat memstore.Pattern, pick func(q memstore.Quad) int64) {
		for it := st.Match(pat); it.Next(); {
			if t, ok := d.Resolve(pick(it.Quad())); ok && t.Kind == rdf.IRI {
				out[t.Value] = true
			}
		}
	}
	if typeID, ok := d.Find(rdf.NewIRI(vocrdf.Type)); ok {
		if propID, ok := d.Find(rdf.NewIRI(vocrdf.Property)); ok {
			collect(memstore.Pattern{Predicate: typeID, Object: propID}, func(q memstore.Quad) int64 { return q.Subject })
		}
	}
	for _, decl := range []string{rdfs.Domain, rdfs.Range, rdfs.SubPropertyOf} {
		if pid, ok := d.Find(rdf.NewIRI(decl)); ok {
			collect(memstore.Pattern{Predicate: pid}, func(q memstore.Quad) int64 { return q.Subject })
		}
	}
	return out
}

// isOntologyPredicate whitelists the schema vocabulary itself.
func isOntologyPredicate(iri string) bool {
	return strings.HasPrefix(iri, vocrdf.NS) ||
		strings.HasPrefix(iri, rdfs.NS) ||
		strings.HasPrefix(iri, "http://www.w3.org/2002/07/owl#")
}

func suggestPredicates(declared map[string]bool, iri string) []string {
	needle := strings.ToLower(localName(iri))
	var out []string
	for d := range declared {
		if strings.Contains(strings.ToLower(localName(d)), needle) ||
			strings.Contains(needle, strings.ToLower(localName(d))) {
			out = append(out, d)
		}
	}
	sort.Strings(out)
	if len(out) > 5 {
		out = out[:5]
	}
	return out
}

func localName(iri string) string {
	if i := strings.LastIndexAny(iri, "#/"); i >= 0 && i+1 < len(iri) {
		return iri[i+1:]
	}
	return iri
}

// enqueueVectors schedules async embedding for literal objects and
// not-yet-indexed IRIs. Requires an embedder; without one the hybrid index
// is fed only by explicit vector upserts.
func (e *Engine) enqueueVectors(ctx context.Context, ns *namespace, triples []rdf.Triple) {
	if e.indexer == nil {
		return
	}
	seen := map[int64]bool{}
	for _, t := range triples {
		for _, term := range []rdf.Term{t.Subject, t.Object} {
			id, ok := ns.store.Dict().Find(term)
			if !ok || seen[id] || ns.vec.Has(id) {
				continue
			}
			seen[id] = true
			var task vector.Task
			switch term.Kind {
			case rdf.IRI:
				task = vector.Task{
					Namespace: ns.name, NodeID: id, Text: term.Value,
					Payload: vector.Payload{URI: term.Value, Kind: "iri"},
				}
			case rdf.Literal:
				task = vector.Task{
					Namespace: ns.name, NodeID: id, Text: term.Value,
					Payload: vector.Payload{Snippet: term.Value, Kind: "literal"},
				}
			default:
				continue
			}
			if err := e.indexer.Enqueue(ctx, task); err != nil {
				clog.Warningf("graph: embedding queue rejected %s/%d: %v", ns.name, id, err)
				return
			}
		}
	}
}

// indexSink lands finished embeddings in the owning namespace's index.
func (e *Engine) indexSink(ctx context.Context, t vector.Task, vec []float32) error {
	ns, err := e.namespaceFor(t.Namespace, false)
	if err != nil {
		return err
	}
	if e.cfg.MaxVectors > 0 && ns.vec.Len() >= e.cfg.MaxVectors && !ns.vec.Has(t.NodeID) {
		return graph.Errorf(graph.KindQuotaExceeded, "namespace %q vector quota reached", t.Namespace)
	}
	return ns.vec.Upsert(t.NodeID, vec, t.Payload)
}

// UpsertVector stores a caller-supplied embedding.
func (e *Engine) UpsertVector(ctx context.Context, nsName string, nodeID int64, vec []float32, payload vector.Payload) error {
	ns, err := e.namespaceFor(nsName, true)
	if err != nil {
		return err
	}
	if e.cfg.MaxVectors > 0 && ns.vec.Len() >= e.cfg.MaxVectors && !ns.vec.Has(nodeID) {
		return graph.Errorf(graph.KindQuotaExceeded, "namespace %q vector quota reached", nsName)
	}
	if e.cfg.EmbeddingDim > 0 && len(vec) != e.cfg.EmbeddingDim && ns.vec.Dimension() == 0 {
		return graph.Errorf(graph.KindValidation, "vector dimension %d does not match configured %d", len(vec), e.cfg.EmbeddingDim)
	}
	return ns.vec.Upsert(nodeID, vec, payload)
}

// TripleRecord is the external form of one stored triple.
type TripleRecord struct {
	ID        int64  `json:"id"`
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
	Inferred  bool   `json:"inferred,omitempty"`
}

// ListTriples returns up to limit stored triples.
func (e *Engine) ListTriples(ctx context.Context, nsName string, limit int) ([]TripleRecord, error) {
	ns, err := e.namespaceFor(nsName, false)
	if err != nil {
		if graph.IsKind(err, graph.KindNotFound) {
			return []TripleRecord{}, nil
		}
		return nil, err
	}
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	var out []TripleRecord
	for it := ns.store.Match(memstore.Pattern{}); it.Next(); {
		if limit > 0 && len(out) >= limit {
			break
		}
		q := it.Quad()
		t, err := ns.store.ResolveQuad(q)
		if err != nil {
			return nil, err
		}
		rec := TripleRecord{ID: q.ID, Subject: t.Subject.String(), Predicate: t.Predicate.String(), Object: t.Object.String()}
		if p, ok := ns.store.ProvenanceOf(q.ID); ok {
			rec.Inferred = p.Inferred()
		}
		out = append(out, rec)
	}
	return out, nil
}

// Query runs a SPARQL query under the namespace read lock.
func (e *Engine) Query(ctx context.Context, nsName, query string) (*sparql.Result, error) {
	ctx, cancel := withTimeout(ctx, e.cfg.Timeouts.Query)
	defer cancel()

	ns, err := e.namespaceFor(nsName, false)
	if err != nil {
		if graph.IsKind(err, graph.KindNotFound) {
			// Reads on a missing namespace behave like an empty one.
			return emptyResultFor(query)
		}
		return nil, err
	}
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	res, err := sparql.NewExecutor(ns.store).Query(ctx, query)
	if err != nil {
		return nil, wrapQueryErr(mapCtxErr(ctx, err))
	}
	return res, nil
}

func emptyResultFor(query string) (*sparql.Result, error) {
	q, err := sparql.Parse(query)
	if err != nil {
		return nil, wrapQueryErr(err)
	}
	if q.Type == sparql.QueryAsk {
		b := false
		return &sparql.Result{Bool: &b}, nil
	}
	return &sparql.Result{Vars: []string{}, Rows: nil}, nil
}

func wrapQueryErr(err error) error {
	var perr *sparql.ParseError
	if errors.As(err, &perr) {
		return graph.Wrap(graph.KindValidation, err, "invalid SPARQL")
	}
	var uerr *sparql.UnsupportedError
	if errors.As(err, &uerr) {
		return graph.Wrap(graph.KindValidation, err, "unsupported SPARQL")
	}
	return err
}

// ReasoningOutcome reports one ApplyReasoning call. Inferred carries the
// derived triples when materialize was off; materialized runs leave it nil
// because the triples are readable from the store.
type ReasoningOutcome struct {
	TriplesInferred int            `json:"triples_inferred"`
	Rounds          int            `json:"rounds"`
	Inferred        []TripleRecord `json:"inferred,omitempty"`
}

// ApplyReasoning materializes entailments for the namespace.
func (e *Engine) ApplyReasoning(ctx context.Context, nsName, strategy string, materialize bool) (ReasoningOutcome, error) {
	ctx, cancel := withTimeout(ctx, e.cfg.Timeouts.Reason)
	defer cancel()

	rs, err := reason.ParseRuleSet(strategy)
	if err != nil {
		return ReasoningOutcome{}, err
	}
	ns, err := e.namespaceFor(nsName, false)
	if err != nil {
		return ReasoningOutcome{}, err
	}
	ns.mu.Lock()
	defer ns.mu.Unlock()
	res, facts, err := reason.Apply(ctx, ns.store, rs, materialize, e.cfg.MaxReasoningRounds)
	if err != nil {
		return ReasoningOutcome{TriplesInferred: res.TriplesInferred, Rounds: res.Rounds}, mapCtxErr(ctx, err)
	}
	out := ReasoningOutcome{TriplesInferred: res.TriplesInferred, Rounds: res.Rounds}
	if materialize {
		ns.reasoning = rs.String()
		if err := ns.store.Flush(); err != nil {
			return ReasoningOutcome{}, err
		}
		if err := e.persist(ns); err != nil {
			return ReasoningOutcome{}, err
		}
		return out, nil
	}
	d := ns.store.Dict()
	for _, f := range facts {
		s, okS := d.Resolve(f.S)
		p, okP := d.Resolve(f.P)
		o, okO := d.Resolve(f.O)
		if !okS || !okP || !okO {
			continue
		}
		out.Inferred = append(out.Inferred, TripleRecord{
			Subject:   s.String(),
			Predicate: p.String(),
			Object:    o.String(),
			Inferred:  true,
		})
	}
	return out, nil
}

// HybridSearch embeds the query when no vector is supplied, then runs the
// vector+graph ranking.
func (e *Engine) HybridSearch(ctx context.Context, nsName, query string, queryVec []float32, opts search.Options) ([]search.Result, error) {
	ctx, cancel := withTimeout(ctx, e.cfg.Timeouts.Search)
	defer cancel()

	ns, err := e.namespaceFor(nsName, false)
	if err != nil {
		if graph.IsKind(err, graph.KindNotFound) {
			return []search.Result{}, nil
		}
		return nil, err
	}
	if len(queryVec) == 0 {
		if query == "" {
			return nil, graph.Errorf(graph.KindValidation, "either query text or query vector is required")
		}
		queryVec, err = vector.EmbedOne(ctx, e.embedder, query)
		if err != nil {
			return nil, mapCtxErr(ctx, err)
		}
	}
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	res, err := search.Run(ctx, ns.store, ns.vec, queryVec, opts)
	return res, mapCtxErr(ctx, err)
}

// Neighbor is one adjacency entry.
type Neighbor struct {
	NodeID    int64   `json:"node_id"`
	URI       string  `json:"uri"`
	EdgeType  string  `json:"edge_type"`
	Direction string  `json:"direction"`
	Score     float64 `json:"score,omitempty"`
}

// Neighbors lists the nodes adjacent to a given node.
func (e *Engine) Neighbors(ctx context.Context, nsName, uri string, nodeID int64, direction string) ([]Neighbor, error) {
	switch direction {
	case "", "outgoing", "incoming", "both":
	default:
		return nil, graph.Errorf(graph.KindValidation, "unknown direction %q", direction)
	}
	ns, err := e.namespaceFor(nsName, false)
	if err != nil {
		return nil, err
	}
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	d := ns.store.Dict()
	if nodeID == 0 {
		if uri == "" {
			return nil, graph.Errorf(graph.KindValidation, "uri or node_id is required")
		}
		id, ok := d.Find(rdf.NewIRI(uri))
		if !ok {
			return nil, graph.Errorf(graph.KindNotFound, "node %q", uri)
		}
		nodeID = id
	} else if _, ok := d.Resolve(nodeID); !ok {
		return nil, graph.Errorf(graph.KindNotFound, "node %d", nodeID)
	}

	var out []Neighbor
	add := func(q memstore.Quad, neighborID int64, dir string) {
		nt, ok := d.Resolve(neighborID)
		if !ok {
			return
		}
		pt, ok := d.Resolve(q.Predicate)
		if !ok {
			return
		}
		n := Neighbor{NodeID: neighborID, EdgeType: pt.Value, Direction: dir}
		if nt.Kind == rdf.IRI {
			n.URI = nt.Value
		} else {
			n.URI = nt.String()
		}
		out = append(out, n)
	}
	if direction == "" || direction == "outgoing" || direction == "both" {
		for it := ns.store.Match(memstore.Pattern{Subject: nodeID}); it.Next(); {
			q := it.Quad()
			add(q, q.Object, "outgoing")
		}
	}
	if direction == "incoming" || direction == "both" {
		for it := ns.store.Match(memstore.Pattern{Object: nodeID}); it.Next(); {
			q := it.Quad()
			add(q, q.Subject, "incoming")
		}
	}
	return out, nil
}

// ResolveID maps a node id back to its term.
func (e *Engine) ResolveID(ctx context.Context, nsName string, nodeID int64) (rdf.Term, error) {
	ns, err := e.namespaceFor(nsName, false)
	if err != nil {
		return rdf.Term{}, err
	}
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	t, ok := ns.store.Dict().Resolve(nodeID)
	if !ok {
		return rdf.Term{}, graph.Errorf(graph.KindNotFound, "node %d", nodeID)
	}
	return t, nil
}

// ResolveNode maps an IRI to its node id.
func (e *Engine) ResolveNode(ctx context.Context, nsName, uri string) (int64, error) {
	ns, err := e.namespaceFor(nsName, false)
	if err != nil {
		return 0, err
	}
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	id, ok := ns.store.Dict().Find(rdf.NewIRI(uri))
	if !ok {
		return 0, graph.Errorf(graph.KindNotFound, "node %q", uri)
	}
	return id, nil
}

// DeleteTriple retracts one triple and its entailments.
func (e *Engine) DeleteTriple(ctx context.Context, nsName string, tripleID int64) (int, error) {
	ns, err := e.namespaceFor(nsName, false)
	if err != nil {
		return 0, err
	}
	ns.mu.Lock()
	defer ns.mu.Unlock()
	removed, err := ns.store.Delete(tripleID)
	if err != nil {
		return 0, err
	}
	if err := ns.store.Flush(); err != nil {
		return len(removed), err
	}
	return len(removed), e.persist(ns)
}

// NamespaceStats is the external namespace descriptor.
type NamespaceStats struct {
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"created_at"`
	TripleCount int       `json:"triple_count"`
	VectorCount int       `json:"vector_count"`
	Dimension   int       `json:"dimension,omitempty"`
	Reasoning   string    `json:"reasoning_state"`
}

// Stats describes one namespace.
func (e *Engine) Stats(ctx context.Context, nsName string) (NamespaceStats, error) {
	ns, err := e.namespaceFor(nsName, false)
	if err != nil {
		return NamespaceStats{}, err
	}
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	return NamespaceStats{
		Name:        ns.name,
		CreatedAt:   ns.createdAt,
		TripleCount: ns.store.Count(),
		VectorCount: ns.vec.Len(),
		Dimension:   ns.vec.Dimension(),
		Reasoning:   ns.reasoning,
	}, nil
}

// ListNamespaces names the live namespaces.
func (e *Engine) ListNamespaces() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.namespaces))
	for name := range e.namespaces {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// DeleteNamespace destroys a namespace: indexes, ledger, vectors,
// dictionary and on-disk state. Destructive and immediate.
func (e *Engine) DeleteNamespace(ctx context.Context, nsName string) error {
	if err := validNamespace(nsName); err != nil {
		return err
	}
	e.mu.Lock()
	ns, ok := e.namespaces[nsName]
	delete(e.namespaces, nsName)
	e.mu.Unlock()

	dir := e.nsDir(nsName)
	if !ok && dir != "" {
		if _, err := os.Stat(dir); err == nil {
			ok = true
		}
	}
	if !ok {
		return graph.Errorf(graph.KindNotFound, "namespace %q", nsName)
	}
	if ns != nil {
		ns.mu.Lock()
		defer ns.mu.Unlock()
		if err := ns.store.Close(); err != nil {
			clog.Warningf("graph: closing %q during delete: %v", nsName, err)
		}
	}
	if dir != "" {
		if err := os.RemoveAll(dir); err != nil {
			return graph.Wrap(graph.KindFatal, err, "remove namespace dir")
		}
	}
	clog.Infof("graph: deleted namespace %q", nsName)
	return nil
}

// Compact rewrites a namespace's logs dropping tombstones.
func (e *Engine) Compact(ctx context.Context, nsName string) error {
	ns, err := e.namespaceFor(nsName, false)
	if err != nil {
		return err
	}
	ns.mu.Lock()
	defer ns.mu.Unlock()
	return ns.store.Compact()
}

// manifest is the per-namespace manifest.json.
type manifest struct {
	Dimension   int       `json:"dimension,omitempty"`
	TripleCount int       `json:"triple_count"`
	VectorCount int       `json:"vector_count"`
	Reasoning   string    `json:"reasoning_state"`
	CreatedAt   time.Time `json:"created_at"`
}

// persist writes the manifest and the vector shards. Callers hold the
// namespace write lock.
func (e *Engine) persist(ns *namespace) error {
	if ns.dir == "" {
		return nil
	}
	if err := ns.vec.Save(filepath.Join(ns.dir, "index")); err != nil {
		return err
	}
	m := manifest{
		Dimension:   ns.vec.Dimension(),
		TripleCount: ns.store.Count(),
		VectorCount: ns.vec.Len(),
		Reasoning:   ns.reasoning,
		CreatedAt:   ns.createdAt,
	}
	b, err := json.Marshal(m)
	if err != nil {
		return graph.Wrap(graph.KindFatal, err, "marshal manifest")
	}
	tmp := filepath.Join(ns.dir, "manifest.json.tmp")
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return graph.Wrap(graph.KindFatal, err, "write manifest")
	}
	if err := os.Rename(tmp, filepath.Join(ns.dir, "manifest.json")); err != nil {
		return graph.Wrap(graph.KindFatal, err, "swap manifest")
	}
	return nil
}

func readManifest(dir string) (*manifest, error) {
	b, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var m manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

