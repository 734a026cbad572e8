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
	"context"
	"sync"

	"github.com/noesisdb/noesis/clog"
)

// Task asks the indexing pool to embed one snippet and store the vector for
// a node.
type Task struct {
	Namespace string
	NodeID    int64
	Text      string
	Payload   Payload
}

// Sink receives the finished embedding for a task.
type Sink func(ctx context.Context, t Task, vec []float32) error

// Indexer is the asynchronous embedding pool. Enqueue applies bounded
// backpressure: when the queue is full the ingest writer blocks until a
// worker drains a slot or the context is done.
type Indexer struct {
	embedder Embedder
	sink     Sink
	tasks    chan Task
	wg       sync.WaitGroup
	stop     chan struct{}
	once     sync.Once

	mu     sync.RWMutex
	closed bool
}

// NewIndexer starts workers goroutines draining a queue of the given depth.
func NewIndexer(embedder Embedder, sink Sink, workers, depth int) *Indexer {
	if workers <= 0 {
		workers = 2
	}
	if depth <= 0 {
		depth = 256
	}
	ix := &Indexer{
		embedder: embedder,
		sink:     sink,
		tasks:    make(chan Task, depth),
		stop:     make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		ix.wg.Add(1)
		go ix.worker()
	}
	return ix
}

// Enqueue submits a task, blocking when the queue is full.
func (ix *Indexer) Enqueue(ctx context.Context, t Task) error {
	// The read lock keeps Close from closing the channel mid-send.
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.closed {
		return context.Canceled
	}
	select {
	case ix.tasks <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-ix.stop:
		return context.Canceled
	}
}

func (ix *Indexer) worker() {
	defer ix.wg.Done()
	for t := range ix.tasks {
		ctx := context.Background()
		vec, err := EmbedOne(ctx, ix.embedder, t.Text)
		if err != nil {
			clog.Warningf("vector: embedding for %s/%d failed: %v", t.Namespace, t.NodeID, err)
			continue
		}
		if err := ix.sink(ctx, t, vec); err != nil {
			clog.Warningf("vector: indexing %s/%d failed: %v", t.Namespace, t.NodeID, err)
		}
	}
}

// Close stops intake, drains queued tasks and waits for the workers.
func (ix *Indexer) Close() {
	ix.once.Do(func() {
		close(ix.stop)
		ix.mu.Lock()
		ix.closed = true
		close(ix.tasks)
		ix.mu.Unlock()
	})
	ix.wg.Wait()
}
