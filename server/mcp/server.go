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

// Package mcp serves the engine's tool surface over line-delimited JSON-RPC
// on stdio, implementing the initialize / tools/list / tools/call
// handshake.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/noesisdb/noesis/clog"
	"github.com/noesisdb/noesis/engine"
)

const (
	protocolVersion = "2024-11-05"
	serverName      = "noesis"
	serverVersion   = "1.0.0"
)

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      interface{}     `json:"id"`
}

type response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *rpcError   `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type toolDef struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema interface{} `json:"inputSchema"`
}

type contentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type callResult struct {
	Content []contentItem `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

// Server drives one stdio session over a shared engine handle.
type Server struct {
	engine *engine.Engine
	out    io.Writer
	in     io.Reader
	wmu    sync.Mutex
}

// NewServer builds a tool server reading requests from in and writing
// responses to out.
func NewServer(e *engine.Engine, in io.Reader, out io.Writer) *Server {
	return &Server{engine: e, in: in, out: out}
}

// Serve processes requests until in closes or ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			s.sendError(nil, codeParseError, "parse error")
			continue
		}
		s.dispatch(ctx, req)
	}
	return scanner.Err()
}

func (s *Server) dispatch(ctx context.Context, req request) {
	switch req.Method {
	case "initialize":
		s.sendResult(req.ID, map[string]interface{}{
			"protocolVersion": protocolVersion,
			"capabilities":    map[string]interface{}{"tools": map[string]interface{}{}},
			"serverInfo":      map[string]string{"name": serverName, "version": serverVersion},
		})
	case "notifications/initialized":
		// Notification, no response.
	case "tools/list":
		s.sendResult(req.ID, map[string]interface{}{"tools": toolCatalog()})
	case "tools/call":
		s.handleCall(ctx, req)
	case "ping":
		s.sendResult(req.ID, map[string]interface{}{})
	default:
		if req.ID != nil {
			s.sendError(req.ID, codeMethodNotFound, "method not found: "+req.Method)
		}
	}
}

func (s *Server) handleCall(ctx context.Context, req request) {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.sendError(req.ID, codeInvalidParams, "invalid params")
		return
	}
	out, err := s.callTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.sendResult(req.ID, callResult{
			Content: []contentItem{{Type: "text", Text: err.Error()}},
			IsError: true,
		})
		return
	}
	s.sendResult(req.ID, callResult{Content: []contentItem{{Type: "text", Text: out}}})
}

func (s *Server) send(resp response) {
	resp.JSONRPC = "2.0"
	b, err := json.Marshal(resp)
	if err != nil {
		clog.Errorf("mcp: marshal response: %v", err)
		return
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	s.out.Write(b)
	s.out.Write([]byte{'\n'})
}

func (s *Server) sendResult(id, result interface{}) {
	s.send(response{ID: id, Result: result})
}

func (s *Server) sendError(id interface{}, code int, msg string) {
	s.send(response{ID: id, Error: &rpcError{Code: code, Message: msg}})
}
