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

package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/noesisdb/noesis/graph"
)

// Embedder produces embeddings for text snippets. The engine treats the
// returned vectors as opaque float arrays.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// HTTPEmbedder calls a hosted embedding endpoint. Calls go through a token
// bucket; a transient failure is retried once with backoff before being
// surfaced.
type HTTPEmbedder struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPEmbedder builds an embedder for the endpoint at url. rps bounds the
// request rate; zero means 10 requests per second with a small burst.
func NewHTTPEmbedder(url string, rps float64) *HTTPEmbedder {
	if rps <= 0 {
		rps = 10
	}
	return &HTTPEmbedder{
		url:     url,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)+1),
	}
}

type embedRequest struct {
	Texts []string `json:"texts"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed implements Embedder.
func (e *HTTPEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, graph.Wrap(graph.KindTimeout, err, "embedder rate limit")
	}

	var out [][]float32
	op := func() error {
		vecs, err := e.call(ctx, texts)
		if err != nil {
			return err
		}
		out = vecs
		return nil
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 1), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, err
	}
	if len(out) != len(texts) {
		return nil, graph.Errorf(graph.KindTransient,
			"embedder returned %d vectors for %d texts", len(out), len(texts))
	}
	return out, nil
}

func (e *HTTPEmbedder) call(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Texts: texts})
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, graph.Wrap(graph.KindTransient, err, "embedder unreachable")
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return nil, graph.Errorf(graph.KindTransient, "embedder status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, backoff.Permanent(graph.Errorf(graph.KindValidation,
			"embedder status %d: %s", resp.StatusCode, string(b)))
	}
	var er embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, graph.Wrap(graph.KindTransient, err, "decode embedder response")
	}
	return er.Embeddings, nil
}

// NullEmbedder rejects every call; it serves namespaces that only receive
// caller-supplied vectors.
type NullEmbedder struct{}

func (NullEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, graph.Errorf(graph.KindValidation, "no embedder configured; supply query vectors explicitly")
}

var _ Embedder = (*HTTPEmbedder)(nil)
var _ Embedder = NullEmbedder{}

// EmbedOne is a convenience wrapper for single-text callers.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one text", len(vecs))
	}
	return vecs[0], nil
}
