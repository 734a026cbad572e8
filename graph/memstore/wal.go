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
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/noesisdb/noesis/clog"
	"github.com/noesisdb/noesis/graph"
	"github.com/noesisdb/noesis/rdf"
)

const (
	dictLogName = "dict.log"
	quadLogName = "quads.log"
)

// dictRec is one line of dict.log.
type dictRec struct {
	ID    int64  `json:"id"`
	Kind  string `json:"kind"`
	Value string `json:"value"`
	Dtype string `json:"datatype,omitempty"`
	Lang  string `json:"lang,omitempty"`
}

// quadRec is one line of quads.log; op is "a" (add) or "d" (delete).
type quadRec struct {
	Op       string  `json:"op"`
	ID       int64   `json:"id"`
	S        int64   `json:"s,omitempty"`
	P        int64   `json:"p,omitempty"`
	O        int64   `json:"o,omitempty"`
	Source   string  `json:"src,omitempty"`
	Time     string  `json:"ts,omitempty"`
	Method   string  `json:"method,omitempty"`
	Rule     string  `json:"rule,omitempty"`
	Premises []int64 `json:"prem,omitempty"`
}

// wal holds the two append-only logs of one namespace directory.
type wal struct {
	dir   string
	dictF *os.File
	quadF *os.File
	dictW *bufio.Writer
	quadW *bufio.Writer
}

func openWAL(dir string) (*wal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, graph.Wrap(graph.KindFatal, err, "create namespace dir")
	}
	df, err := os.OpenFile(filepath.Join(dir, dictLogName), os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, graph.Wrap(graph.KindFatal, err, "open dict.log")
	}
	qf, err := os.OpenFile(filepath.Join(dir, quadLogName), os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		df.Close()
		return nil, graph.Wrap(graph.KindFatal, err, "open quads.log")
	}
	return &wal{
		dir:   dir,
		dictF: df,
		quadF: qf,
		dictW: bufio.NewWriter(df),
		quadW: bufio.NewWriter(qf),
	}, nil
}

// replay rebuilds the in-memory state from dict.log then quads.log. A torn
// trailing line (crash mid-append) is tolerated and truncated away on the
// next compaction; a record referencing an unknown dictionary id is
// corruption and fails the open.
func (w *wal) replay(s *Store) error {
	err := scanLines(filepath.Join(w.dir, dictLogName), func(line []byte) error {
		var rec dictRec
		if err := json.Unmarshal(line, &rec); err != nil {
			return errTorn
		}
		t, err := termFromRec(rec)
		if err != nil {
			return graph.Wrap(graph.KindFatal, err, "dict.log")
		}
		s.dict.InternAt(rec.ID, t)
		return nil
	})
	if err != nil {
		return err
	}
	return scanLines(filepath.Join(w.dir, quadLogName), func(line []byte) error {
		var rec quadRec
		if err := json.Unmarshal(line, &rec); err != nil {
			return errTorn
		}
		switch rec.Op {
		case "a":
			for _, id := range []int64{rec.S, rec.P, rec.O} {
				if _, ok := s.dict.Resolve(id); !ok {
					return graph.Errorf(graph.KindFatal, "quads.log references unknown node id %d", id)
				}
			}
			ts, _ := time.Parse(time.RFC3339Nano, rec.Time)
			q := Quad{ID: rec.ID, Subject: rec.S, Predicate: rec.P, Object: rec.O}
			setIdx(s.spo, q.Subject, q.Predicate, q.Object, q.ID)
			setIdx(s.pos, q.Predicate, q.Object, q.Subject, q.ID)
			setIdx(s.osp, q.Object, q.Subject, q.Predicate, q.ID)
			s.byID[q.ID] = q
			s.prov[q.ID] = &Provenance{
				Source:    rec.Source,
				Timestamp: ts,
				Method:    rec.Method,
				Rule:      rec.Rule,
				Premises:  rec.Premises,
			}
			for _, prem := range rec.Premises {
				s.deps[prem] = append(s.deps[prem], q.ID)
			}
			if q.ID > s.last {
				s.last = q.ID
			}
		case "d":
			s.deleteReplayed(rec.ID)
		default:
			return graph.Errorf(graph.KindFatal, "quads.log: unknown op %q", rec.Op)
		}
		return nil
	})
}

// deleteReplayed removes a quad during replay without writing a new
// tombstone.
func (s *Store) deleteReplayed(id int64) {
	q, ok := s.byID[id]
	if !ok {
		return
	}
	delIdx(s.spo, q.Subject, q.Predicate, q.Object)
	delIdx(s.pos, q.Predicate, q.Object, q.Subject)
	delIdx(s.osp, q.Object, q.Subject, q.Predicate)
	delete(s.byID, id)
	if p := s.prov[id]; p != nil {
		for _, prem := range p.Premises {
			s.deps[prem] = removeID(s.deps[prem], id)
		}
	}
	delete(s.prov, id)
	delete(s.deps, id)
}

var errTorn = fmt.Errorf("torn log line")

func scanLines(path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return graph.Wrap(graph.KindFatal, err, "open log")
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	n := 0
	for sc.Scan() {
		n++
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			if err == errTorn {
				clog.Warningf("memstore: %s: truncating torn record at line %d", path, n)
				return nil
			}
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return graph.Wrap(graph.KindFatal, err, "scan log")
	}
	return nil
}

func termFromRec(rec dictRec) (rdf.Term, error) {
	switch rec.Kind {
	case "iri":
		return rdf.NewIRI(rec.Value), nil
	case "bnode":
		return rdf.NewBlank(rec.Value), nil
	case "literal":
		if rec.Lang != "" {
			return rdf.NewLangLiteral(rec.Value, rec.Lang), nil
		}
		return rdf.NewTypedLiteral(rec.Value, rec.Dtype), nil
	}
	return rdf.Term{}, fmt.Errorf("unknown term kind %q", rec.Kind)
}

func recFromTerm(id int64, t rdf.Term) dictRec {
	rec := dictRec{ID: id, Kind: t.Kind.String(), Value: t.Value}
	if t.Kind == rdf.Literal {
		rec.Dtype = t.Datatype
		rec.Lang = t.Lang
	}
	return rec
}

func (w *wal) appendDict(id int64, t rdf.Term) {
	w.appendJSON(w.dictW, recFromTerm(id, t))
}

func (w *wal) appendQuad(q Quad, p *Provenance) {
	w.appendJSON(w.quadW, quadRec{
		Op:       "a",
		ID:       q.ID,
		S:        q.Subject,
		P:        q.Predicate,
		O:        q.Object,
		Source:   p.Source,
		Time:     p.Timestamp.Format(time.RFC3339Nano),
		Method:   p.Method,
		Rule:     p.Rule,
		Premises: p.Premises,
	})
}

func (w *wal) appendDelete(id int64) {
	w.appendJSON(w.quadW, quadRec{Op: "d", ID: id})
}

func (w *wal) appendJSON(buf *bufio.Writer, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		clog.Errorf("memstore: marshal log record: %v", err)
		return
	}
	buf.Write(b)
	buf.WriteByte('\n')
}

// Flush pushes both buffers to the OS.
func (w *wal) Flush() error {
	if err := w.dictW.Flush(); err != nil {
		return graph.Wrap(graph.KindFatal, err, "flush dict.log")
	}
	if err := w.quadW.Flush(); err != nil {
		return graph.Wrap(graph.KindFatal, err, "flush quads.log")
	}
	return nil
}

// compact rewrites both logs atomically: the dictionary in full (orphaned
// entries persist on purpose), the quad log with live rows only.
func (w *wal) compact(s *Store) error {
	if err := w.Flush(); err != nil {
		return err
	}

	type entry struct {
		id int64
		t  rdf.Term
	}
	var entries []entry
	s.dict.Range(func(id int64, t rdf.Term) bool {
		entries = append(entries, entry{id, t})
		return true
	})
	sort.Slice(entries, func(i, j int) bool { return entries[i].id < entries[j].id })

	if err := rewrite(filepath.Join(w.dir, dictLogName), func(out *bufio.Writer) error {
		for _, e := range entries {
			b, err := json.Marshal(recFromTerm(e.id, e.t))
			if err != nil {
				return err
			}
			out.Write(b)
			out.WriteByte('\n')
		}
		return nil
	}); err != nil {
		return err
	}

	ids := make([]int64, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if err := rewrite(filepath.Join(w.dir, quadLogName), func(out *bufio.Writer) error {
		for _, id := range ids {
			q := s.byID[id]
			p := s.prov[id]
			b, err := json.Marshal(quadRec{
				Op: "a", ID: q.ID, S: q.Subject, P: q.Predicate, O: q.Object,
				Source: p.Source, Time: p.Timestamp.Format(time.RFC3339Nano),
				Method: p.Method, Rule: p.Rule, Premises: p.Premises,
			})
			if err != nil {
				return err
			}
			out.Write(b)
			out.WriteByte('\n')
		}
		return nil
	}); err != nil {
		return err
	}

	// Reopen the append handles on the rewritten files.
	w.dictF.Close()
	w.quadF.Close()
	nw, err := openWAL(w.dir)
	if err != nil {
		return err
	}
	*w = *nw
	return nil
}

// rewrite writes a replacement log via temp file + rename.
func rewrite(path string, fill func(*bufio.Writer) error) error {
	tmp := path + ".compact"
	f, err := os.Create(tmp)
	if err != nil {
		return graph.Wrap(graph.KindFatal, err, "create compaction file")
	}
	out := bufio.NewWriter(f)
	if err := fill(out); err != nil {
		f.Close()
		os.Remove(tmp)
		return graph.Wrap(graph.KindFatal, err, "write compaction file")
	}
	if err := out.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return graph.Wrap(graph.KindFatal, err, "flush compaction file")
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return graph.Wrap(graph.KindFatal, err, "close compaction file")
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return graph.Wrap(graph.KindFatal, err, "swap compaction file")
	}
	return nil
}

func (w *wal) Close() error {
	err := w.Flush()
	if e := w.dictF.Close(); err == nil {
		err = e
	}
	if e := w.quadF.Close(); err == nil {
		err = e
	}
	return err
}
