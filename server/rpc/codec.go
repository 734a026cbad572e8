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

package rpc

import "encoding/json"

// CodecName is the content-subtype clients must request
// (application/grpc+json).
const CodecName = "json"

// Codec encodes the hand-maintained message set as JSON inside gRPC frames.
// The server forces it; clients opt in with
// grpc.CallContentSubtype(CodecName).
type Codec struct{}

func (Codec) Marshal(v interface{}) ([]byte, error) { return json.Marshal(v) }

func (Codec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }

func (Codec) Name() string { return CodecName }
