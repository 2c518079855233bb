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

// Package transcript 保存每个会话的逐轮对话记录
package transcript

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Entry 一轮对话：用户输入与最终回复（或错误）
type Entry struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	ThreadID  string    `json:"thread_id"`
	RunID     string    `json:"run_id,omitempty"`
	Input     string    `json:"input"`
	Response  string    `json:"response,omitempty"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Sources   []string  `json:"sources,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store 追加写入的对话记录存储
type Store interface {
	Append(ctx context.Context, e *Entry) error
	// List 按写入顺序返回会话的全部记录
	List(ctx context.Context, sessionID string) ([]Entry, error)
	Close()
}

// Config 存储配置
type Config struct {
	Type string // memory | postgres
	DSN  string
}

// NewStore 按类型创建存储；postgres 会自动建表
func NewStore(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryStore(), nil
	case "postgres":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("transcript: postgres dsn is required")
		}
		st, err := NewPostgresStore(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := st.EnsureSchema(ctx); err != nil {
			st.Close()
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unsupported transcript store type: %s", cfg.Type)
	}
}

func prepare(e *Entry) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
}
