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

// Package ntriples reads N-Triples documents plus the Turtle subset the
// ingest command needs: @prefix/PREFIX declarations, prefixed names, the
// 'a' keyword, and ';'/',' continuations.
package ntriples

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/noesisdb/noesis/rdf"
	vocrdf "github.com/noesisdb/noesis/voc/rdf"
)

// Reader decodes triples from a document.
type Reader struct {
	sc       *bufio.Scanner
	line     int
	prefixes map[string]string

	pending []rdf.Triple
	lastSub rdf.Term
	lastPrd rdf.Term
	haveSub bool
	havePrd bool
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &Reader{sc: sc, prefixes: map[string]string{}}
}

// Next returns the next triple, or io.EOF.
func (r *Reader) Next() (rdf.Triple, error) {
	for {
		if len(r.pending) > 0 {
			t := r.pending[0]
			r.pending = r.pending[1:]
			return t, nil
		}
		if !r.sc.Scan() {
			if err := r.sc.Err(); err != nil {
				return rdf.Triple{}, err
			}
			return rdf.Triple{}, io.EOF
		}
		r.line++
		line := strings.TrimSpace(r.sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := r.parseLine(line); err != nil {
			return rdf.Triple{}, fmt.Errorf("line %d: %w", r.line, err)
		}
	}
}

func (r *Reader) errf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

func (r *Reader) parseLine(line string) error {
	low := strings.ToLower(line)
	if strings.HasPrefix(low, "@prefix") || strings.HasPrefix(low, "prefix") {
		return r.parsePrefix(line)
	}
	if strings.HasPrefix(low, "@base") || strings.HasPrefix(low, "base") {
		return nil // base resolution is not needed for absolute-IRI documents
	}

	toks, err := tokenize(line)
	if err != nil {
		return err
	}
	i := 0
	// A line may continue the previous statement after ';' or ','.
	if !r.haveSub {
		if i >= len(toks) {
			return r.errf("missing subject")
		}
		sub, err := r.term(toks[i], false)
		if err != nil {
			return err
		}
		r.lastSub = sub
		r.haveSub = true
		r.havePrd = false
		i++
	}
	for i < len(toks) {
		switch toks[i] {
		case ".":
			r.haveSub = false
			r.havePrd = false
			i++
			continue
		case ";":
			r.havePrd = false
			i++
			continue
		case ",":
			i++
			continue
		}
		if !r.havePrd {
			prd, err := r.term(toks[i], true)
			if err != nil {
				return err
			}
			r.lastPrd = prd
			r.havePrd = true
			i++
			continue
		}
		obj, err := r.term(toks[i], false)
		if err != nil {
			return err
		}
		t := rdf.NewTriple(r.lastSub, r.lastPrd, obj)
		if err := t.Validate(); err != nil {
			return err
		}
		r.pending = append(r.pending, t)
		i++
	}
	return nil
}

func (r *Reader) parsePrefix(line string) error {
	fields := strings.Fields(strings.TrimSuffix(strings.TrimSpace(line), "."))
	if len(fields) < 3 {
		return r.errf("malformed prefix declaration %q", line)
	}
	pref := fields[1]
	iri := strings.Trim(fields[2], "<>")
	if !strings.HasSuffix(pref, ":") {
		return r.errf("malformed prefix name %q", pref)
	}
	r.prefixes[pref] = iri
	return nil
}

// term decodes one token into an RDF term.
func (r *Reader) term(tok string, predicate bool) (rdf.Term, error) {
	switch {
	case tok == "a":
		if !predicate {
			return rdf.Term{}, r.errf("'a' is only valid as a predicate")
		}
		return rdf.NewIRI(vocrdf.Type), nil
	case strings.HasPrefix(tok, "<"):
		t, err := rdf.ParseTerm(tok)
		if err != nil {
			return rdf.Term{}, err
		}
		return t, nil
	case strings.HasPrefix(tok, "_:"):
		return rdf.NewBlank(tok[2:]), nil
	case strings.HasPrefix(tok, `"`):
		return rdf.ParseTerm(r.expandDatatype(tok))
	}
	// Prefixed name.
	if i := strings.IndexByte(tok, ':'); i >= 0 {
		pref := tok[:i+1]
		if ns, ok := r.prefixes[pref]; ok {
			return rdf.NewIRI(ns + tok[i+1:]), nil
		}
	}
	return rdf.Term{}, r.errf("unrecognized term %q", tok)
}

// expandDatatype rewrites "lit"^^pref:name into the bracketed form
// rdf.ParseTerm accepts.
func (r *Reader) expandDatatype(tok string) string {
	i := strings.LastIndex(tok, "^^")
	if i < 0 || strings.HasPrefix(tok[i+2:], "<") {
		return tok
	}
	dt := tok[i+2:]
	if j := strings.IndexByte(dt, ':'); j >= 0 {
		if ns, ok := r.prefixes[dt[:j+1]]; ok {
			return tok[:i+2] + "<" + ns + dt[j+1:] + ">"
		}
	}
	return tok
}

// tokenize splits one statement line into term and punctuation tokens,
// respecting quoted literals and IRI brackets.
func tokenize(line string) ([]string, error) {
	var toks []string
	i := 0
	for i < len(line) {
		c := line[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '#':
			return toks, nil
		case c == '.' || c == ';' || c == ',':
			toks = append(toks, string(c))
			i++
		case c == '<':
			j := strings.IndexByte(line[i:], '>')
			if j < 0 {
				return nil, fmt.Errorf("unterminated IRI")
			}
			toks = append(toks, line[i:i+j+1])
			i += j + 1
		case c == '"':
			j := i + 1
			for j < len(line) {
				if line[j] == '\\' {
					j += 2
					continue
				}
				if line[j] == '"' {
					break
				}
				j++
			}
			if j >= len(line) {
				return nil, fmt.Errorf("unterminated literal")
			}
			// Attach any @lang or ^^datatype suffix.
			j++
			for j < len(line) && line[j] != ' ' && line[j] != '\t' &&
				line[j] != ';' && line[j] != ',' &&
				!(line[j] == '.' && (j+1 >= len(line) || line[j+1] == ' ' || line[j+1] == '\t')) {
				j++
			}
			toks = append(toks, line[i:j])
			i = j
		default:
			j := i
			for j < len(line) && line[j] != ' ' && line[j] != '\t' &&
				line[j] != ';' && line[j] != ',' &&
				!(line[j] == '.' && (j+1 >= len(line) || line[j+1] == ' ' || line[j+1] == '\t')) {
				j++
			}
			toks = append(toks, line[i:j])
			i = j
		}
	}
	return toks, nil
}

// ReadAll decodes the whole document.
func ReadAll(r io.Reader) ([]rdf.Triple, error) {
	rd := NewReader(r)
	var out []rdf.Triple
	for {
		t, err := rd.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
}
