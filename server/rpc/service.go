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
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"

	"github.com/noesisdb/noesis/clog"
	"github.com/noesisdb/noesis/engine"
	"github.com/noesisdb/noesis/search"
)

const serviceName = "noesis.v1.Engine"

// EngineServer is the service contract declared in api/noesis.proto.
type EngineServer interface {
	IngestTriples(ctx context.Context, req *IngestTriplesRequest) (*IngestTriplesResponse, error)
	IngestText(ctx context.Context, req *IngestTextRequest) (*IngestTriplesResponse, error)
	SparqlQuery(ctx context.Context, req *SparqlQueryRequest) (*SparqlQueryResponse, error)
	ApplyReasoning(ctx context.Context, req *ApplyReasoningRequest) (*ApplyReasoningResponse, error)
	HybridSearch(ctx context.Context, req *HybridSearchRequest) (*HybridSearchResponse, error)
	GetNeighbors(ctx context.Context, req *GetNeighborsRequest) (*GetNeighborsResponse, error)
	ListTriples(ctx context.Context, req *ListTriplesRequest) (*TriplesResponse, error)
	GetAllTriples(ctx context.Context, req *GetAllTriplesRequest) (*TriplesResponse, error)
	StreamTriples(req *GetAllTriplesRequest, stream TripleStream) error
	ResolveId(ctx context.Context, req *ResolveIdRequest) (*ResolveIdResponse, error)
	NamespaceStats(ctx context.Context, req *NamespaceStatsRequest) (*NamespaceStatsResponse, error)
	DeleteNamespace(ctx context.Context, req *DeleteNamespaceRequest) (*DeleteNamespaceResponse, error)
}

// TripleStream is the server side of StreamTriples.
type TripleStream interface {
	Send(*Triple) error
	Context() context.Context
}

// Service adapts the engine to the RPC contract.
type Service struct {
	engine *engine.Engine
}

// NewService wraps the shared engine handle.
func NewService(e *engine.Engine) *Service { return &Service{engine: e} }

var _ EngineServer = (*Service)(nil)

func (s *Service) IngestTriples(ctx context.Context, req *IngestTriplesRequest) (*IngestTriplesResponse, error) {
	specs := make([]engine.TripleSpec, len(req.Triples))
	for i, t := range req.Triples {
		specs[i] = engine.TripleSpec{Subject: t.Subject, Predicate: t.Predicate, Object: t.Object, Provenance: t.Provenance}
	}
	stats, err := s.engine.IngestTriples(ctx, req.Namespace, specs, engine.IngestOptions{Validate: req.Validate})
	if err != nil {
		return nil, toStatus(err)
	}
	return &IngestTriplesResponse{
		NodesAdded: int64(stats.NodesAdded),
		EdgesAdded: int64(stats.EdgesAdded),
		Message:    fmt.Sprintf("ingested %d triple(s)", stats.EdgesAdded),
	}, nil
}

func (s *Service) IngestText(ctx context.Context, req *IngestTextRequest) (*IngestTriplesResponse, error) {
	stats, err := s.engine.IngestText(ctx, req.Namespace, req.Text, req.Source)
	if err != nil {
		return nil, toStatus(err)
	}
	return &IngestTriplesResponse{
		NodesAdded: int64(stats.NodesAdded),
		EdgesAdded: int64(stats.EdgesAdded),
		Message:    fmt.Sprintf("extracted %d statement(s)", stats.EdgesAdded),
	}, nil
}

func (s *Service) SparqlQuery(ctx context.Context, req *SparqlQueryRequest) (*SparqlQueryResponse, error) {
	res, err := s.engine.Query(ctx, req.Namespace, req.Query)
	if err != nil {
		return nil, toStatus(err)
	}
	b, err := res.ToJSON()
	if err != nil {
		return nil, toStatus(err)
	}
	return &SparqlQueryResponse{ResultsJSON: b}, nil
}

func (s *Service) ApplyReasoning(ctx context.Context, req *ApplyReasoningRequest) (*ApplyReasoningResponse, error) {
	out, err := s.engine.ApplyReasoning(ctx, req.Namespace, req.Strategy, req.Materialize)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := &ApplyReasoningResponse{
		Success:         true,
		TriplesInferred: int64(out.TriplesInferred),
		Rounds:          int64(out.Rounds),
		Message:         fmt.Sprintf("inferred %d triple(s) in %d round(s)", out.TriplesInferred, out.Rounds),
	}
	for _, rec := range out.Inferred {
		resp.Inferred = append(resp.Inferred, Triple{
			Subject: rec.Subject, Predicate: rec.Predicate, Object: rec.Object, Inferred: true,
		})
	}
	return resp, nil
}

func (s *Service) HybridSearch(ctx context.Context, req *HybridSearchRequest) (*HybridSearchResponse, error) {
	mode, err := search.ParseMode(req.Mode)
	if err != nil {
		return nil, toStatus(err)
	}
	depth := int(req.GraphDepth)
	if depth == 0 {
		depth = 1
	}
	results, err := s.engine.HybridSearch(ctx, req.Namespace, req.Query, req.Vector, search.Options{
		K: int(req.VectorK), GraphDepth: depth, Mode: mode,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	out := make([]SearchResult, len(results))
	for i, r := range results {
		out[i] = SearchResult{URI: r.URI, Score: r.Score, Content: r.Content}
	}
	return &HybridSearchResponse{Results: out}, nil
}

func (s *Service) GetNeighbors(ctx context.Context, req *GetNeighborsRequest) (*GetNeighborsResponse, error) {
	neighbors, err := s.engine.Neighbors(ctx, req.Namespace, req.URI, req.NodeID, req.Direction)
	if err != nil {
		return nil, toStatus(err)
	}
	out := make([]Neighbor, len(neighbors))
	for i, n := range neighbors {
		out[i] = Neighbor{NodeID: n.NodeID, URI: n.URI, EdgeType: n.EdgeType, Direction: n.Direction, Score: n.Score}
	}
	return &GetNeighborsResponse{Neighbors: out}, nil
}

func (s *Service) ListTriples(ctx context.Context, req *ListTriplesRequest) (*TriplesResponse, error) {
	return s.triples(ctx, req.Namespace, int(req.Limit))
}

func (s *Service) GetAllTriples(ctx context.Context, req *GetAllTriplesRequest) (*TriplesResponse, error) {
	return s.triples(ctx, req.Namespace, 0)
}

func (s *Service) triples(ctx context.Context, ns string, limit int) (*TriplesResponse, error) {
	list, err := s.engine.ListTriples(ctx, ns, limit)
	if err != nil {
		return nil, toStatus(err)
	}
	out := make([]Triple, len(list))
	for i, rec := range list {
		out[i] = Triple{ID: rec.ID, Subject: rec.Subject, Predicate: rec.Predicate, Object: rec.Object, Inferred: rec.Inferred}
	}
	return &TriplesResponse{Triples: out}, nil
}

func (s *Service) StreamTriples(req *GetAllTriplesRequest, stream TripleStream) error {
	if err := authorize(stream.Context(), s.engine.Scopes(), req); err != nil {
		return err
	}
	list, err := s.engine.ListTriples(stream.Context(), req.Namespace, 0)
	if err != nil {
		return toStatus(err)
	}
	for i := range list {
		rec := list[i]
		if err := stream.Context().Err(); err != nil {
			return err
		}
		if err := stream.Send(&Triple{ID: rec.ID, Subject: rec.Subject, Predicate: rec.Predicate, Object: rec.Object, Inferred: rec.Inferred}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) ResolveId(ctx context.Context, req *ResolveIdRequest) (*ResolveIdResponse, error) {
	term, err := s.engine.ResolveID(ctx, req.Namespace, req.NodeID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ResolveIdResponse{
		Kind:     term.Kind.String(),
		Value:    term.Value,
		Datatype: term.Datatype,
		Lang:     term.Lang,
	}, nil
}

func (s *Service) NamespaceStats(ctx context.Context, req *NamespaceStatsRequest) (*NamespaceStatsResponse, error) {
	stats, err := s.engine.Stats(ctx, req.Namespace)
	if err != nil {
		return nil, toStatus(err)
	}
	return &NamespaceStatsResponse{
		Name:           stats.Name,
		CreatedAt:      stats.CreatedAt.Format(time.RFC3339),
		TripleCount:    int64(stats.TripleCount),
		VectorCount:    int64(stats.VectorCount),
		Dimension:      int64(stats.Dimension),
		ReasoningState: stats.Reasoning,
	}, nil
}

func (s *Service) DeleteNamespace(ctx context.Context, req *DeleteNamespaceRequest) (*DeleteNamespaceResponse, error) {
	if err := s.engine.DeleteNamespace(ctx, req.Namespace); err != nil {
		return nil, toStatus(err)
	}
	return &DeleteNamespaceResponse{Success: true, Message: fmt.Sprintf("namespace %s deleted", req.Namespace)}, nil
}

// NewServer assembles the gRPC server: forced JSON codec, auth
// interceptors, hand-maintained service descriptor.
func NewServer(e *engine.Engine) *grpc.Server {
	srv := grpc.NewServer(
		grpc.ForceServerCodec(Codec{}),
		grpc.ChainUnaryInterceptor(unaryAuth(e.Scopes())),
		grpc.ChainStreamInterceptor(streamAuth(e.Scopes())),
	)
	srv.RegisterService(&serviceDesc, NewService(e))
	return srv
}

// Serve listens on addr until ctx is cancelled.
func Serve(ctx context.Context, e *engine.Engine, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := NewServer(e)
	go func() {
		<-ctx.Done()
		srv.GracefulStop()
	}()
	clog.Infof("rpc: listening on %s", addr)
	return srv.Serve(lis)
}

// The descriptor below plays the role of generated service glue; it must
// stay in lockstep with api/noesis.proto.

// unaryMethod builds one MethodDesc in the shape protoc-gen-go-grpc emits:
// decode into a fresh request, then route through the interceptor chain to
// the typed service method.
func unaryMethod(name string, newReq func() interface{}, invoke func(srv EngineServer, ctx context.Context, req interface{}) (interface{}, error)) grpc.MethodDesc {
	full := "/" + serviceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return invoke(srv.(EngineServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
			return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
				return invoke(srv.(EngineServer), ctx, req)
			})
		},
	}
}

type tripleServerStream struct {
	grpc.ServerStream
}

func (x *tripleServerStream) Send(t *Triple) error { return x.ServerStream.SendMsg(t) }

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*EngineServer)(nil),
	Metadata:    "api/noesis.proto",
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamTriples",
			ServerStreams: true,
			Handler: func(srv interface{}, stream grpc.ServerStream) error {
				req := new(GetAllTriplesRequest)
				if err := stream.RecvMsg(req); err != nil {
					return err
				}
				return srv.(EngineServer).StreamTriples(req, &tripleServerStream{stream})
			},
		},
	},
	Methods: []grpc.MethodDesc{
		unaryMethod("IngestTriples",
			func() interface{} { return new(IngestTriplesRequest) },
			func(srv EngineServer, ctx context.Context, req interface{}) (interface{}, error) {
				return srv.IngestTriples(ctx, req.(*IngestTriplesRequest))
			}),
		unaryMethod("IngestText",
			func() interface{} { return new(IngestTextRequest) },
			func(srv EngineServer, ctx context.Context, req interface{}) (interface{}, error) {
				return srv.IngestText(ctx, req.(*IngestTextRequest))
			}),
		unaryMethod("SparqlQuery",
			func() interface{} { return new(SparqlQueryRequest) },
			func(srv EngineServer, ctx context.Context, req interface{}) (interface{}, error) {
				return srv.SparqlQuery(ctx, req.(*SparqlQueryRequest))
			}),
		unaryMethod("ApplyReasoning",
			func() interface{} { return new(ApplyReasoningRequest) },
			func(srv EngineServer, ctx context.Context, req interface{}) (interface{}, error) {
				return srv.ApplyReasoning(ctx, req.(*ApplyReasoningRequest))
			}),
		unaryMethod("HybridSearch",
			func() interface{} { return new(HybridSearchRequest) },
			func(srv EngineServer, ctx context.Context, req interface{}) (interface{}, error) {
				return srv.HybridSearch(ctx, req.(*HybridSearchRequest))
			}),
		unaryMethod("GetNeighbors",
			func() interface{} { return new(GetNeighborsRequest) },
			func(srv EngineServer, ctx context.Context, req interface{}) (interface{}, error) {
				return srv.GetNeighbors(ctx, req.(*GetNeighborsRequest))
			}),
		unaryMethod("ListTriples",
			func() interface{} { return new(ListTriplesRequest) },
			func(srv EngineServer, ctx context.Context, req interface{}) (interface{}, error) {
				return srv.ListTriples(ctx, req.(*ListTriplesRequest))
			}),
		unaryMethod("GetAllTriples",
			func() interface{} { return new(GetAllTriplesRequest) },
			func(srv EngineServer, ctx context.Context, req interface{}) (interface{}, error) {
				return srv.GetAllTriples(ctx, req.(*GetAllTriplesRequest))
			}),
		unaryMethod("ResolveId",
			func() interface{} { return new(ResolveIdRequest) },
			func(srv EngineServer, ctx context.Context, req interface{}) (interface{}, error) {
				return srv.ResolveId(ctx, req.(*ResolveIdRequest))
			}),
		unaryMethod("NamespaceStats",
			func() interface{} { return new(NamespaceStatsRequest) },
			func(srv EngineServer, ctx context.Context, req interface{}) (interface{}, error) {
				return srv.NamespaceStats(ctx, req.(*NamespaceStatsRequest))
			}),
		unaryMethod("DeleteNamespace",
			func() interface{} { return new(DeleteNamespaceRequest) },
			func(srv EngineServer, ctx context.Context, req interface{}) (interface{}, error) {
				return srv.DeleteNamespace(ctx, req.(*DeleteNamespaceRequest))
			}),
	},
}
