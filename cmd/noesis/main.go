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

// noesis is a multi-tenant semantic knowledge-graph engine: a triple store
// with SPARQL, RDFS/OWL-RL materialization and hybrid vector retrieval,
// served over stdio JSON-RPC, gRPC and HTTP.
package main

import (
	"os"

	"github.com/noesisdb/noesis/cmd/noesis/command"
)

func main() {
	os.Exit(command.Execute())
}
