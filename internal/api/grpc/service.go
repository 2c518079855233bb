// Copyright 2026 fanjia1024
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

// Package grpc 提供 gRPC 服务端，与 HTTP 会话接口对齐；消息使用 google.protobuf.Struct
package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	chatapp "travel-agent/internal/app"
	"travel-agent/internal/runtime/session"
	pkgerrors "travel-agent/pkg/errors"
)

// ServiceName gRPC 服务全名
const ServiceName = "travelagent.v1.ChatService"

// ChatService Server 依赖的聊天服务
type ChatService interface {
	StartSession(ctx context.Context) (*session.Session, error)
	SendMessage(ctx context.Context, sessionID, text string) (*chatapp.Reply, error)
	EndSession(ctx context.Context, id string) error
}

// ChatServiceServer gRPC 服务接口
type ChatServiceServer interface {
	StartSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	SendMessage(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	EndSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// Server gRPC 服务端
type Server struct {
	chat ChatService
}

// NewServer 创建 gRPC Server
func NewServer(chat ChatService) *Server {
	return &Server{chat: chat}
}

// Register 注册 ChatService 到 grpc.Server
func (s *Server) Register(grpcServer *grpc.Server) {
	grpcServer.RegisterService(&ChatServiceDesc, s)
}

// StartSession {} -> {session_id, agent_id, thread_id}
func (s *Server) StartSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.chat.StartSession(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]any{
		"session_id": sess.ID,
		"agent_id":   sess.AgentID,
		"thread_id":  sess.ThreadID,
	})
}

// SendMessage {session_id, message} -> {response, run_id, status, sources}
func (s *Server) SendMessage(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := stringField(req, "session_id")
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id is required")
	}
	msg := stringField(req, "message")
	if msg == "" {
		return nil, status.Error(codes.InvalidArgument, "message is required")
	}
	reply, err := s.chat.SendMessage(ctx, id, msg)
	if err != nil {
		return nil, toStatus(err)
	}
	sources := make([]any, 0, len(reply.Sources))
	for _, src := range reply.Sources {
		sources = append(sources, src)
	}
	return structpb.NewStruct(map[string]any{
		"session_id": reply.SessionID,
		"run_id":     reply.RunID,
		"status":     reply.Status,
		"response":   reply.Response,
		"sources":    sources,
	})
}

// EndSession {session_id} -> {}
func (s *Server) EndSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := stringField(req, "session_id")
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id is required")
	}
	if err := s.chat.EndSession(ctx, id); err != nil {
		return nil, toStatus(err)
	}
	return &structpb.Struct{}, nil
}

func stringField(req *structpb.Struct, key string) string {
	if req == nil {
		return ""
	}
	v, ok := req.GetFields()[key]
	if !ok {
		return ""
	}
	return v.GetStringValue()
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, pkgerrors.ErrInvalidArg):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, session.ErrSessionNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, pkgerrors.ErrConflict):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Unavailable, err.Error())
	}
}

func unaryHandler(method string, call func(ChatServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ChatServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(ChatServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ChatServiceDesc 手写的服务描述，对应 travelagent.v1.ChatService
var ChatServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ChatServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "StartSession",
			Handler: unaryHandler("StartSession", func(s ChatServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return s.StartSession(ctx, in)
			}),
		},
		{
			MethodName: "SendMessage",
			Handler: unaryHandler("SendMessage", func(s ChatServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return s.SendMessage(ctx, in)
			}),
		},
		{
			MethodName: "EndSession",
			Handler: unaryHandler("EndSession", func(s ChatServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return s.EndSession(ctx, in)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "travelagent/v1/chat.proto",
}
