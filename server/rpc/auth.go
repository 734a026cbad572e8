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

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/noesisdb/noesis/graph"
)

// bearerToken pulls the bearer token from request metadata.
func bearerToken(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	for _, v := range md.Get("authorization") {
		if strings.HasPrefix(strings.ToLower(v), "bearer ") {
			return strings.TrimSpace(v[len("bearer "):])
		}
	}
	return ""
}

// authorize checks the token scope for the namespace a request names.
func authorize(ctx context.Context, scopes graph.Scopes, req interface{}) error {
	if !scopes.Enabled() {
		return nil
	}
	ns := ""
	if s, ok := req.(scoped); ok {
		ns = s.GetNamespace()
	}
	return toStatus(scopes.Check(bearerToken(ctx), ns))
}

func unaryAuth(scopes graph.Scopes) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if err := authorize(ctx, scopes, req); err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

func streamAuth(scopes graph.Scopes) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		// Stream requests are checked after the first Recv inside the
		// handler; the token itself must at least be known here.
		if scopes.Enabled() {
			if err := scopes.Check(bearerToken(ss.Context()), ""); err != nil {
				if graph.IsKind(err, graph.KindUnauthenticated) {
					return toStatus(err)
				}
			}
		}
		return handler(srv, ss)
	}
}

// toStatus maps engine error kinds onto gRPC status codes.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok && status.Code(err) != codes.Unknown {
		return err
	}
	var code codes.Code
	switch graph.KindOf(err) {
	case graph.KindValidation:
		code = codes.InvalidArgument
	case graph.KindNotFound:
		code = codes.NotFound
	case graph.KindConflict:
		code = codes.Aborted
	case graph.KindQuotaExceeded, graph.KindReasoningBudget:
		code = codes.ResourceExhausted
	case graph.KindUnauthenticated:
		code = codes.Unauthenticated
	case graph.KindPermissionDenied:
		code = codes.PermissionDenied
	case graph.KindTimeout:
		code = codes.DeadlineExceeded
	case graph.KindTransient:
		code = codes.Unavailable
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}
