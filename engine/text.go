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
	"context"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/noesisdb/noesis/graph"
)

// entityNS is the IRI namespace minted for entities and relations extracted
// from free text.
const entityNS = "urn:noesis:entity:"

// IngestText splits free text into subject-predicate-object clauses and
// feeds them through the normal ingest path. LLM-driven extraction lives
// outside the engine; this is the deterministic clause splitter that backs
// the ingest_text tool when no extractor is in front of it.
//
// Each sentence ("A B C[.]") becomes one triple: the first token is the
// subject, the second the relation, the remainder the object. Capitalized
// single-token objects mint entity IRIs; everything else stays a literal.
func (e *Engine) IngestText(ctx context.Context, nsName, text, source string) (IngestStats, error) {
	specs := ExtractTriples(text)
	if len(specs) == 0 {
		return IngestStats{}, graph.Errorf(graph.KindValidation, "no extractable statements in text")
	}
	if source == "" {
		source = "text:" + uuid.NewString()
	}
	return e.IngestTriples(ctx, nsName, specs, IngestOptions{Source: source})
}

// ExtractTriples is the clause splitter behind IngestText.
func ExtractTriples(text string) []TripleSpec {
	var out []TripleSpec
	for _, sentence := range splitSentences(text) {
		words := strings.Fields(sentence)
		if len(words) < 3 {
			continue
		}
		subject := strings.Trim(words[0], ",;:")
		predicate := strings.Trim(words[1], ",;:")
		object := strings.Trim(strings.Join(words[2:], " "), ",;:")
		if subject == "" || predicate == "" || object == "" {
			continue
		}
		spec := TripleSpec{
			Subject:   mintEntity(subject),
			Predicate: mintEntity(predicate),
		}
		if len(words) == 3 && isCapitalized(object) {
			spec.Object = mintEntity(object)
		} else {
			spec.Object = `"` + strings.ReplaceAll(object, `"`, `\"`) + `"`
		}
		out = append(out, spec)
	}
	return out
}

func splitSentences(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})
}

func mintEntity(token string) string {
	return "<" + entityNS + sanitizeToken(token) + ">"
}

func sanitizeToken(token string) string {
	var b strings.Builder
	for _, r := range token {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func isCapitalized(word string) bool {
	for _, r := range word {
		return unicode.IsUpper(r)
	}
	return false
}
