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

package graph

import "encoding/json"

// Scopes maps bearer tokens to the namespaces they may touch. The "*"
// namespace is the wildcard.
type Scopes map[string][]string

// ParseAuthTokens reads the AUTH_TOKENS JSON mapping.
func ParseAuthTokens(raw string) (Scopes, error) {
	if raw == "" {
		return nil, nil
	}
	var s Scopes
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, Wrap(KindValidation, err, "AUTH_TOKENS is not a valid token map")
	}
	return s, nil
}

// Check authorizes a token for a namespace. A nil scope set disables
// authentication entirely.
func (s Scopes) Check(token, namespace string) error {
	if s == nil {
		return nil
	}
	scopes, ok := s[token]
	if !ok || token == "" {
		return Errorf(KindUnauthenticated, "unknown or missing bearer token")
	}
	for _, ns := range scopes {
		if ns == "*" || ns == namespace {
			return nil
		}
	}
	return Errorf(KindPermissionDenied, "token has no access to namespace %q", namespace)
}

// Enabled reports whether a token map is configured (non-nil), even an
// empty one.
func (s Scopes) Enabled() bool { return s != nil }
