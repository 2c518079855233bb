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

package grpc

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	chatapp "travel-agent/internal/app"
	"travel-agent/internal/runtime/session"
)

type fakeChat struct {
	ended []string
}

func (f *fakeChat) StartSession(ctx context.Context) (*session.Session, error) {
	s := session.New("session-1")
	s.AgentID = "asst_1"
	s.ThreadID = "thread_1"
	return s, nil
}

func (f *fakeChat) SendMessage(ctx context.Context, id, text string) (*chatapp.Reply, error) {
	if id != "session-1" {
		return nil, session.ErrSessionNotFound
	}
	return &chatapp.Reply{SessionID: id, RunID: "run_1", Status: "completed", Response: "echo: " + text, Sources: []string{"Guide"}}, nil
}

func (f *fakeChat) EndSession(ctx context.Context, id string) error {
	f.ended = append(f.ended, id)
	return nil
}

func dial(t *testing.T, chat ChatService) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	NewServer(chat).Register(srv)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func invoke(t *testing.T, conn *grpc.ClientConn, method string, in map[string]any) (*structpb.Struct, error) {
	t.Helper()
	req, err := structpb.NewStruct(in)
	require.NoError(t, err)
	out := new(structpb.Struct)
	err = conn.Invoke(context.Background(), "/"+ServiceName+"/"+method, req, out)
	return out, err
}

func TestServer_Flow(t *testing.T) {
	chat := &fakeChat{}
	conn := dial(t, chat)

	out, err := invoke(t, conn, "StartSession", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "session-1", out.GetFields()["session_id"].GetStringValue())
	assert.Equal(t, "thread_1", out.GetFields()["thread_id"].GetStringValue())

	out, err = invoke(t, conn, "SendMessage", map[string]any{"session_id": "session-1", "message": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "echo: hi", out.GetFields()["response"].GetStringValue())
	assert.Equal(t, "Guide", out.GetFields()["sources"].GetListValue().GetValues()[0].GetStringValue())

	_, err = invoke(t, conn, "EndSession", map[string]any{"session_id": "session-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"session-1"}, chat.ended)
}

func TestServer_Errors(t *testing.T) {
	conn := dial(t, &fakeChat{})

	_, err := invoke(t, conn, "SendMessage", map[string]any{"message": "hi"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = invoke(t, conn, "SendMessage", map[string]any{"session_id": "session-x", "message": "hi"})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = invoke(t, conn, "EndSession", map[string]any{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestToStatus(t *testing.T) {
	assert.Equal(t, codes.FailedPrecondition, status.Code(toStatus(session.ErrRunInProgress)))
	assert.Equal(t, codes.InvalidArgument, status.Code(toStatus(chatapp.ErrEmptyMessage)))
	assert.Equal(t, codes.DeadlineExceeded, status.Code(toStatus(context.DeadlineExceeded)))
}
