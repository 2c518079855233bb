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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_FromFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
api:
  port: 9000
  host: "127.0.0.1"
agent_service:
  endpoint: "http://localhost:7000"
  search:
    index_name: "bags"
    top_k: 3
run:
  poll_interval: "250ms"
log:
  level: "debug"
`
	path := filepath.Join(dir, "test.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.API.Port != 9000 {
		t.Errorf("API.Port: got %d", cfg.API.Port)
	}
	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host: got %q", cfg.API.Host)
	}
	if cfg.AgentService.Endpoint != "http://localhost:7000" {
		t.Errorf("AgentService.Endpoint: got %q", cfg.AgentService.Endpoint)
	}
	if cfg.AgentService.Search.IndexName != "bags" || cfg.AgentService.Search.TopK != 3 {
		t.Errorf("Search: got %+v", cfg.AgentService.Search)
	}
	if cfg.AgentService.Search.QueryType != "vector_semantic_hybrid" {
		t.Errorf("Search.QueryType default: got %q", cfg.AgentService.Search.QueryType)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level: got %q", cfg.Log.Level)
	}
	if got := ParseDuration(cfg.Run.PollInterval, time.Second); got != 250*time.Millisecond {
		t.Errorf("Run.PollInterval: got %v", got)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("API.Port default: got %d", cfg.API.Port)
	}
	if cfg.Agent.Model != "gpt-4o-mini" {
		t.Errorf("Agent.Model default: got %q", cfg.Agent.Model)
	}
	if cfg.Agent.Instructions != DefaultInstructions {
		t.Errorf("Agent.Instructions default: got %q", cfg.Agent.Instructions)
	}
	if cfg.AgentService.Search.IndexName != "travel-product-index" || cfg.AgentService.Search.TopK != 5 {
		t.Errorf("Search defaults: got %+v", cfg.AgentService.Search)
	}
	if cfg.Session.Store != "memory" || cfg.Transcript.Type != "memory" {
		t.Errorf("store defaults: session=%q transcript=%q", cfg.Session.Store, cfg.Transcript.Type)
	}
}

func TestLoadConfig_LegacyEnvNames(t *testing.T) {
	t.Setenv("PROJECT_CONNECTION_STRING", "eastus.api.azureml.ms;sub;rg;proj")
	t.Setenv("PROJECT_CONNECTION_ID_AZURE_AI_SEARCH", "search-conn")
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.AgentService.ConnectionString != "eastus.api.azureml.ms;sub;rg;proj" {
		t.Errorf("ConnectionString: got %q", cfg.AgentService.ConnectionString)
	}
	if cfg.AgentService.Search.ConnectionID != "search-conn" {
		t.Errorf("Search.ConnectionID: got %q", cfg.AgentService.Search.ConnectionID)
	}
}

func TestLoadConfig_PlaceholderSubstitution(t *testing.T) {
	t.Setenv("TRANSCRIPT_PG_DSN", "postgres://u:p@localhost/chat")
	dir := t.TempDir()
	path := filepath.Join(dir, "api.yaml")
	yaml := "transcript:\n  type: postgres\n  dsn: \"${TRANSCRIPT_PG_DSN}\"\n"
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Transcript.DSN != "postgres://u:p@localhost/chat" {
		t.Errorf("Transcript.DSN: got %q", cfg.Transcript.DSN)
	}
}

func TestParseDuration(t *testing.T) {
	if got := ParseDuration("", time.Second); got != time.Second {
		t.Errorf("empty: got %v", got)
	}
	if got := ParseDuration("bogus", time.Second); got != time.Second {
		t.Errorf("invalid: got %v", got)
	}
	if got := ParseDuration("2m", time.Second); got != 2*time.Minute {
		t.Errorf("2m: got %v", got)
	}
}
