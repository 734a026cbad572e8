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

package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noesisdb/noesis/engine"
)

// drive runs one stdio session over the given request lines and returns the
// decoded responses.
func drive(t *testing.T, e *engine.Engine, lines ...string) []map[string]interface{} {
	t.Helper()
	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	var out bytes.Buffer
	srv := NewServer(e, in, &out)
	require.NoError(t, srv.Serve(context.Background()))

	var resps []map[string]interface{}
	sc := bufio.NewScanner(&out)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		resps = append(resps, m)
	}
	return resps
}

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	e, err := engine.NewEngine(engine.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

// toolText extracts the embedded JSON text of a tools/call response.
func toolText(t *testing.T, resp map[string]interface{}) (string, bool) {
	t.Helper()
	result, ok := resp["result"].(map[string]interface{})
	require.True(t, ok, "response has no result: %v", resp)
	content := result["content"].([]interface{})
	first := content[0].(map[string]interface{})
	isErr, _ := result["isError"].(bool)
	return first["text"].(string), isErr
}

func TestInitializeHandshake(t *testing.T) {
	resps := drive(t, newEngine(t),
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
	)
	require.Len(t, resps, 2) // the notification gets no response

	init := resps[0]["result"].(map[string]interface{})
	assert.Equal(t, "2024-11-05", init["protocolVersion"])
	assert.Equal(t, "noesis", init["serverInfo"].(map[string]interface{})["name"])

	tools := resps[1]["result"].(map[string]interface{})["tools"].([]interface{})
	names := map[string]bool{}
	for _, tl := range tools {
		td := tl.(map[string]interface{})
		names[td["name"].(string)] = true
		assert.NotNil(t, td["inputSchema"])
	}
	for _, want := range []string{
		"ingest_triples", "ingest_text", "list_triples", "get_neighbors",
		"hybrid_search", "sparql_query", "apply_reasoning", "delete_namespace",
	} {
		assert.True(t, names[want], "missing tool %s", want)
	}
}

func TestIngestThenQuery(t *testing.T) {
	e := newEngine(t)
	resps := drive(t, e,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"ingest_triples","arguments":{"namespace":"ns1","triples":[{"subject":"<http://ex/A>","predicate":"<http://ex/p>","object":"v"}]}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"sparql_query","arguments":{"namespace":"ns1","query":"SELECT ?o WHERE { <http://ex/A> <http://ex/p> ?o }"}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"list_triples","arguments":{"namespace":"ns1"}}}`,
	)
	require.Len(t, resps, 3)

	text, isErr := toolText(t, resps[0])
	require.False(t, isErr, text)
	var ingest struct {
		NodesAdded int `json:"nodes_added"`
		EdgesAdded int `json:"edges_added"`
	}
	require.NoError(t, json.Unmarshal([]byte(text), &ingest))
	assert.Equal(t, 1, ingest.EdgesAdded)
	assert.Equal(t, 3, ingest.NodesAdded)

	text, isErr = toolText(t, resps[1])
	require.False(t, isErr, text)
	var q struct {
		Results struct {
			Bindings []map[string]struct {
				Type  string `json:"type"`
				Value string `json:"value"`
			} `json:"bindings"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(text), &q))
	require.Len(t, q.Results.Bindings, 1)
	assert.Equal(t, "literal", q.Results.Bindings[0]["o"].Type)
	assert.Equal(t, "v", q.Results.Bindings[0]["o"].Value)

	text, _ = toolText(t, resps[2])
	assert.Contains(t, text, "<http://ex/A>")
}

func TestReasoningAndNeighborsTools(t *testing.T) {
	e := newEngine(t)
	resps := drive(t, e,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"ingest_triples","arguments":{"namespace":"ns2","triples":[{"subject":"<http://ex/spouse>","predicate":"rdf:type","object":"owl:SymmetricProperty"},{"subject":"<http://ex/Dave>","predicate":"<http://ex/spouse>","object":"<http://ex/Eve>"}]}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"apply_reasoning","arguments":{"namespace":"ns2","strategy":"owlrl","materialize":true}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"get_neighbors","arguments":{"namespace":"ns2","uri":"http://ex/Eve","direction":"outgoing"}}}`,
	)
	require.Len(t, resps, 3)

	text, isErr := toolText(t, resps[1])
	require.False(t, isErr, text)
	var reasonOut struct {
		Success         bool `json:"success"`
		TriplesInferred int  `json:"triples_inferred"`
	}
	require.NoError(t, json.Unmarshal([]byte(text), &reasonOut))
	assert.True(t, reasonOut.Success)
	assert.GreaterOrEqual(t, reasonOut.TriplesInferred, 1)

	text, isErr = toolText(t, resps[2])
	require.False(t, isErr, text)
	var nb struct {
		Neighbors []struct {
			URI      string `json:"uri"`
			EdgeType string `json:"edge_type"`
		} `json:"neighbors"`
	}
	require.NoError(t, json.Unmarshal([]byte(text), &nb))
	found := false
	for _, n := range nb.Neighbors {
		if n.URI == "http://ex/Dave" && n.EdgeType == "http://ex/spouse" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestToolErrorsAreIsError(t *testing.T) {
	e := newEngine(t)
	resps := drive(t, e,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"sparql_query","arguments":{"namespace":"ns1","query":"SELEC bogus"}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"no_such_tool","arguments":{}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"delete_namespace","arguments":{"namespace":"missing"}}}`,
	)
	require.Len(t, resps, 3)
	for i, resp := range resps {
		text, isErr := toolText(t, resp)
		assert.True(t, isErr, "response %d should be isError: %s", i, text)
	}
}

func TestProtocolErrors(t *testing.T) {
	resps := drive(t, newEngine(t),
		`this is not json`,
		`{"jsonrpc":"2.0","id":5,"method":"frobnicate"}`,
	)
	require.Len(t, resps, 2)
	errObj := resps[0]["error"].(map[string]interface{})
	assert.Equal(t, float64(-32700), errObj["code"])
	errObj = resps[1]["error"].(map[string]interface{})
	assert.Equal(t, float64(-32601), errObj["code"])
}

func TestDeleteNamespaceTool(t *testing.T) {
	e := newEngine(t)
	resps := drive(t, e,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"ingest_triples","arguments":{"namespace":"tmp","triples":[{"subject":"<http://ex/a>","predicate":"<http://ex/p>","object":"v"}]}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"delete_namespace","arguments":{"namespace":"tmp"}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"list_triples","arguments":{"namespace":"tmp"}}}`,
	)
	text, isErr := toolText(t, resps[1])
	require.False(t, isErr, text)
	assert.Contains(t, text, "deleted")

	text, isErr = toolText(t, resps[2])
	require.False(t, isErr, text)
	var lt struct {
		Triples []interface{} `json:"triples"`
	}
	require.NoError(t, json.Unmarshal([]byte(text), &lt))
	assert.Empty(t, lt.Triples)
}

func TestIngestTextTool(t *testing.T) {
	e := newEngine(t)
	resps := drive(t, e,
		fmt.Sprintf(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"ingest_text","arguments":{"namespace":"notes","text":%q}}}`,
			"Alice knows Bob."),
	)
	text, isErr := toolText(t, resps[0])
	require.False(t, isErr, text)
	assert.Contains(t, text, "extracted 1 statement")
}
