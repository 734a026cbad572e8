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
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/noesisdb/noesis/graph"
)

// shardSize is the number of records per persisted shard file.
const shardSize = 8192

type shardHeader struct {
	Dim      int    `json:"dim"`
	Entry    int64  `json:"entry"`
	MaxLevel int    `json:"max_level"`
	Params   Params `json:"params"`
}

type shardRec struct {
	ID      int64     `json:"id"`
	Vec     []float32 `json:"vec"`
	Payload Payload   `json:"payload"`
	Level   int       `json:"level"`
	Links   [][]int64 `json:"links"`
}

// Save persists the index as shard files under dir, replacing any previous
// shards.
func (ix *Index) Save(dir string) error {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return graph.Wrap(graph.KindFatal, err, "create index dir")
	}
	old, _ := filepath.Glob(filepath.Join(dir, "shard-*.json"))

	ids := make([]int64, 0, len(ix.nodes))
	for id := range ix.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	header := shardHeader{Dim: ix.dim, Entry: ix.entry, MaxLevel: ix.maxLevel, Params: ix.params}
	for shard := 0; shard*shardSize < len(ids) || shard == 0; shard++ {
		lo := shard * shardSize
		hi := lo + shardSize
		if hi > len(ids) {
			hi = len(ids)
		}
		path := filepath.Join(dir, fmt.Sprintf("shard-%04d.json", shard))
		if err := writeShard(path, header, ix, ids[lo:hi], shard == 0); err != nil {
			return err
		}
		if hi >= len(ids) {
			break
		}
	}
	for _, p := range old {
		// Shards beyond the new count are stale.
		var n int
		if _, err := fmt.Sscanf(filepath.Base(p), "shard-%04d.json", &n); err == nil {
			if n > (len(ids)-1)/shardSize || (len(ids) == 0 && n > 0) {
				os.Remove(p)
			}
		}
	}
	return nil
}

func writeShard(path string, header shardHeader, ix *Index, ids []int64, withHeader bool) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return graph.Wrap(graph.KindFatal, err, "create shard")
	}
	out := bufio.NewWriter(f)
	if withHeader {
		b, _ := json.Marshal(header)
		out.Write(b)
		out.WriteByte('\n')
	}
	for _, id := range ids {
		n := ix.nodes[id]
		b, err := json.Marshal(shardRec{ID: n.id, Vec: n.vec, Payload: n.payload, Level: n.level, Links: n.links})
		if err != nil {
			f.Close()
			os.Remove(tmp)
			return graph.Wrap(graph.KindFatal, err, "marshal shard record")
		}
		out.Write(b)
		out.WriteByte('\n')
	}
	if err := out.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return graph.Wrap(graph.KindFatal, err, "flush shard")
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return graph.Wrap(graph.KindFatal, err, "close shard")
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return graph.Wrap(graph.KindFatal, err, "swap shard")
	}
	return nil
}

// Load rebuilds an index from the shard files under dir. A missing directory
// yields an empty index with the given params.
func Load(dir string, params Params) (*Index, error) {
	ix := NewIndex(params)
	paths, err := filepath.Glob(filepath.Join(dir, "shard-*.json"))
	if err != nil || len(paths) == 0 {
		return ix, nil
	}
	sort.Strings(paths)

	first := true
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, graph.Wrap(graph.KindFatal, err, "open shard")
		}
		sc := bufio.NewScanner(f)
		sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
		headerLine := first
		for sc.Scan() {
			line := sc.Bytes()
			if len(line) == 0 {
				continue
			}
			if headerLine {
				var h shardHeader
				if err := json.Unmarshal(line, &h); err != nil {
					f.Close()
					return nil, graph.Errorf(graph.KindFatal, "index shard %s: bad header", path)
				}
				ix.dim = h.Dim
				ix.entry = h.Entry
				ix.maxLevel = h.MaxLevel
				if h.Params.M != 0 {
					ix.params = h.Params.sane()
				}
				headerLine = false
				continue
			}
			var rec shardRec
			if err := json.Unmarshal(line, &rec); err != nil {
				f.Close()
				return nil, graph.Errorf(graph.KindFatal, "index shard %s: bad record", path)
			}
			links := rec.Links
			if links == nil {
				links = make([][]int64, rec.Level+1)
			}
			ix.nodes[rec.ID] = &node{id: rec.ID, vec: rec.Vec, payload: rec.Payload, level: rec.Level, links: links}
		}
		first = false
		if err := sc.Err(); err != nil {
			f.Close()
			return nil, graph.Wrap(graph.KindFatal, err, "scan shard")
		}
		f.Close()
	}
	if _, ok := ix.nodes[ix.entry]; !ok && len(ix.nodes) > 0 {
		// Entry point missing from shards: pick a replacement rather than
		// refusing to serve.
		for id, n := range ix.nodes {
			if ix.entry == 0 || n.level > ix.maxLevel {
				ix.entry = id
				ix.maxLevel = n.level
			}
		}
	}
	return ix, nil
}
