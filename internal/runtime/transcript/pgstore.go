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

package transcript

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS chat_transcripts (
	seq        BIGSERIAL PRIMARY KEY,
	id         TEXT NOT NULL UNIQUE,
	session_id TEXT NOT NULL,
	thread_id  TEXT NOT NULL,
	run_id     TEXT NOT NULL DEFAULT '',
	input      TEXT NOT NULL,
	response   TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL,
	error      TEXT NOT NULL DEFAULT '',
	sources    TEXT[] NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_transcripts_session ON chat_transcripts (session_id, seq);
`

// PgStore PostgreSQL 实现
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore 连接 PostgreSQL 并 Ping
func NewPostgresStore(ctx context.Context, dsn string) (*PgStore, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("transcript: parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("transcript: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("transcript: ping: %w", err)
	}
	return &PgStore{pool: pool}, nil
}

// EnsureSchema 建表（幂等）
func (s *PgStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("transcript: ensure schema: %w", err)
	}
	return nil
}

// Append 实现 Store
func (s *PgStore) Append(ctx context.Context, e *Entry) error {
	if e == nil || e.SessionID == "" {
		return fmt.Errorf("transcript: session id is required")
	}
	prepare(e)
	sources := e.Sources
	if sources == nil {
		sources = []string{}
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO chat_transcripts (id, session_id, thread_id, run_id, input, response, status, error, sources, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.SessionID, e.ThreadID, e.RunID, e.Input, e.Response, e.Status, e.Error, sources, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("transcript: append: %w", err)
	}
	return nil
}

// List 实现 Store
func (s *PgStore) List(ctx context.Context, sessionID string) ([]Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, thread_id, run_id, input, response, status, error, sources, created_at
		 FROM chat_transcripts WHERE session_id = $1 ORDER BY seq`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("transcript: list: %w", err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.SessionID, &e.ThreadID, &e.RunID, &e.Input, &e.Response, &e.Status, &e.Error, &e.Sources, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("transcript: scan: %w", err)
		}
		if len(e.Sources) == 0 {
			e.Sources = nil
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("transcript: list: %w", err)
	}
	return out, nil
}

// Close 关闭连接池
func (s *PgStore) Close() {
	s.pool.Close()
}
