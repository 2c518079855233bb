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

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chatapp "travel-agent/internal/app"
	"travel-agent/internal/runtime/driver"
	"travel-agent/internal/runtime/session"
	"travel-agent/internal/runtime/transcript"
	"travel-agent/pkg/errors"
)

type fakeChat struct {
	sessions map[string]*session.Session
	sendErr  error
	lastText string
	entries  []transcript.Entry
}

func newFakeChat() *fakeChat {
	return &fakeChat{sessions: map[string]*session.Session{}}
}

func (f *fakeChat) StartSession(ctx context.Context) (*session.Session, error) {
	s := session.New("session-1")
	s.AgentID = "asst_1"
	s.ThreadID = "thread_1"
	f.sessions[s.ID] = s
	return s, nil
}

func (f *fakeChat) GetSession(ctx context.Context, id string) (*session.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, session.ErrSessionNotFound
	}
	return s, nil
}

func (f *fakeChat) SendMessage(ctx context.Context, id, text string) (*chatapp.Reply, error) {
	if _, ok := f.sessions[id]; !ok {
		return nil, session.ErrSessionNotFound
	}
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.lastText = text
	return &chatapp.Reply{SessionID: id, RunID: "run_1", Status: "completed", Response: "Sunny, 25°C in New York.", CreatedAt: time.Now()}, nil
}

func (f *fakeChat) EndSession(ctx context.Context, id string) error {
	if _, ok := f.sessions[id]; !ok {
		return session.ErrSessionNotFound
	}
	delete(f.sessions, id)
	return nil
}

func (f *fakeChat) Transcript(ctx context.Context, id string) ([]transcript.Entry, error) {
	return f.entries, nil
}

func (f *fakeChat) Starters() []chatapp.Starter { return chatapp.Starters() }

func jsonBody(s string) *ut.Body {
	return &ut.Body{Body: bytes.NewReader([]byte(s)), Len: len(s)}
}

func emptyBody() *ut.Body {
	return &ut.Body{Body: bytes.NewReader(nil), Len: 0}
}

func TestHealthCheck(t *testing.T) {
	h := server.Default(server.WithHostPorts(":0"))
	handler := NewHandler(newFakeChat(), nil)
	h.GET("/api/health", func(ctx context.Context, c *app.RequestContext) {
		handler.HealthCheck(ctx, c)
	})
	w := ut.PerformRequest(h.Engine, "GET", "/api/health", emptyBody())
	resp := w.Result()
	if resp.StatusCode() != 200 {
		t.Errorf("HealthCheck status: got %d", resp.StatusCode())
	}
	if !bytes.Contains(resp.Body(), []byte("ok")) {
		t.Errorf("HealthCheck body: %s", resp.Body())
	}
}

func TestSendMessage_Validation(t *testing.T) {
	chat := newFakeChat()
	_, _ = chat.StartSession(context.Background())
	h := server.Default(server.WithHostPorts(":0"))
	handler := NewHandler(chat, nil)
	h.POST("/api/sessions/:id/messages", handler.SendMessage)

	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"invalid json", `{"message":`},
		{"blank message", `{"message":"   "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ut.PerformRequest(h.Engine, "POST", "/api/sessions/session-1/messages", jsonBody(tt.body))
			assert.Equal(t, 400, w.Result().StatusCode())
		})
	}
	assert.Empty(t, chat.lastText)
}

func TestSendMessage_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		session string
		err     error
		want    int
	}{
		{"unknown session", "session-missing", nil, 404},
		{"run in progress", "session-1", session.ErrRunInProgress, 409},
		{"run failed", "session-1", &driver.RunFailedError{RunID: "run_1", Code: "server_error"}, 502},
		{"upstream", "session-1", errors.Wrap(errors.ErrUnavailable, "create run"), 502},
		{"timeout", "session-1", context.DeadlineExceeded, 504},
		{"empty message", "session-1", chatapp.ErrEmptyMessage, 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := newFakeChat()
			_, _ = chat.StartSession(context.Background())
			chat.sendErr = tt.err
			h := server.Default(server.WithHostPorts(":0"))
			h.POST("/api/sessions/:id/messages", NewHandler(chat, nil).SendMessage)

			w := ut.PerformRequest(h.Engine, "POST", "/api/sessions/"+tt.session+"/messages", jsonBody(`{"message":"hi"}`))
			assert.Equal(t, tt.want, w.Result().StatusCode())
			assert.Contains(t, string(w.Result().Body()), `"error"`)
		})
	}
}

func TestTranscript_EmptyListNotNull(t *testing.T) {
	h := server.Default(server.WithHostPorts(":0"))
	h.GET("/api/sessions/:id/transcript", NewHandler(newFakeChat(), nil).Transcript)

	w := ut.PerformRequest(h.Engine, "GET", "/api/sessions/session-x/transcript", emptyBody())
	require.Equal(t, 200, w.Result().StatusCode())
	var body struct {
		SessionID string            `json:"session_id"`
		Entries   []json.RawMessage `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(w.Result().Body(), &body))
	assert.Equal(t, "session-x", body.SessionID)
	assert.NotNil(t, body.Entries)
	assert.Contains(t, string(w.Result().Body()), `"entries":[]`)
}

func TestMetricsEndpoint(t *testing.T) {
	h := server.Default(server.WithHostPorts(":0"))
	h.GET("/metrics", NewHandler(newFakeChat(), nil).Metrics)

	w := ut.PerformRequest(h.Engine, "GET", "/metrics", emptyBody())
	require.Equal(t, 200, w.Result().StatusCode())
	assert.Contains(t, string(w.Result().Body()), "travel_agent_sessions_active")
}
