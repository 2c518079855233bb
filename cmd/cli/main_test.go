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

package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu       sync.Mutex
	messages []string
	ended    []string
	auth     string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/auth/login":
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok"})
	case r.Method == http.MethodGet && r.URL.Path == "/api/health":
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	case r.Method == http.MethodGet && r.URL.Path == "/api/starters":
		_ = json.NewEncoder(w).Encode(map[string]any{"starters": []starter{
			{Label: "Weather", Message: "What's the weather in Paris?"},
			{Label: "Budget", Message: "Budget for Tokyo?"},
		}})
	case r.Method == http.MethodPost && r.URL.Path == "/api/sessions":
		f.auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(sessionInfo{ID: "s1", AgentID: "a1", ThreadID: "t1"})
	case r.Method == http.MethodPost && r.URL.Path == "/api/sessions/s1/messages":
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.messages = append(f.messages, body["message"])
		_ = json.NewEncoder(w).Encode(reply{SessionID: "s1", Status: "completed", Response: "re: " + body["message"]})
	case r.Method == http.MethodDelete && r.URL.Path == "/api/sessions/s1":
		f.ended = append(f.ended, "s1")
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "session not found"})
	}
}

func TestRunChat(t *testing.T) {
	api := &fakeAPI{}
	srv := httptest.NewServer(api)
	defer srv.Close()

	c := newClient(srv.URL)
	require.NoError(t, c.login("demo", "demo"))

	var out bytes.Buffer
	in := strings.NewReader("hello\n\n/2\nexit\nignored\n")
	require.NoError(t, runChat(c, in, &out))

	assert.Equal(t, []string{"hello", "Budget for Tokyo?"}, api.messages)
	assert.Equal(t, []string{"s1"}, api.ended)
	assert.Equal(t, "Bearer tok", api.auth)
	assert.Contains(t, out.String(), "re: hello")
	assert.Contains(t, out.String(), "session: s1")
}

func TestRunStartersAndHealth(t *testing.T) {
	srv := httptest.NewServer(&fakeAPI{})
	defer srv.Close()
	c := newClient(srv.URL)

	var out bytes.Buffer
	require.NoError(t, runStarters(c, &out))
	assert.Contains(t, out.String(), "/1  Weather: What's the weather in Paris?")

	out.Reset()
	require.NoError(t, runHealth(c, &out))
	assert.Equal(t, "ok\n", out.String())
}

func TestClientErrors(t *testing.T) {
	srv := httptest.NewServer(&fakeAPI{})
	defer srv.Close()
	c := newClient(srv.URL)

	_, err := c.transcript("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "session not found")

	assert.Error(t, c.endSession("missing"))
}

func TestExpandStarter(t *testing.T) {
	starters := []starter{{Message: "one"}, {Message: "two"}}
	assert.Equal(t, "two", expandStarter("/2", starters))
	assert.Equal(t, "/3", expandStarter("/3", starters))
	assert.Equal(t, "/x", expandStarter("/x", starters))
	assert.Equal(t, "plain", expandStarter("plain", starters))
}
