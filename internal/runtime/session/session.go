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

// Package session 每个聊天会话对应的远端 Agent 与 Thread 的生命周期管理
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session 一次聊天会话：持有本会话专属的 Agent 与 Thread
type Session struct {
	ID        string    `json:"id"`
	AgentID   string    `json:"agent_id"`
	ThreadID  string    `json:"thread_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Messages  []*Message       `json:"messages,omitempty"`   // 对话历史
	ToolCalls []ToolCallRecord `json:"tool_calls,omitempty"` // 已提交的工具输出

	mu sync.RWMutex
}

// New 创建新 Session（id 为空时生成）
func New(id string) *Session {
	now := time.Now()
	if id == "" {
		id = "session-" + uuid.New().String()
	}
	return &Session{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddMessage 追加一条对话消息
func (s *Session) AddMessage(role, content, runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UpdatedAt = time.Now()
	s.Messages = append(s.Messages, &Message{Role: role, Content: content, RunID: runID, Timestamp: s.UpdatedAt})
}

// AddToolCall 记录一次已提交的工具输出
func (s *Session) AddToolCall(runID, toolCallID, output string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UpdatedAt = time.Now()
	s.ToolCalls = append(s.ToolCalls, ToolCallRecord{
		RunID:      runID,
		ToolCallID: toolCallID,
		Output:     output,
		At:         s.UpdatedAt,
	})
}

// CopyMessages 返回 Messages 的副本
func (s *Session) CopyMessages() []*Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.Messages) == 0 {
		return nil
	}
	out := make([]*Message, len(s.Messages))
	for i, m := range s.Messages {
		cp := *m
		out[i] = &cp
	}
	return out
}

// CopyToolCalls 返回 ToolCalls 的副本
func (s *Session) CopyToolCalls() []ToolCallRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.ToolCalls) == 0 {
		return nil
	}
	out := make([]ToolCallRecord, len(s.ToolCalls))
	copy(out, s.ToolCalls)
	return out
}

// Snapshot 返回不共享锁与切片的副本，供序列化或对外返回
func (s *Session) Snapshot() *Session {
	s.mu.RLock()
	cp := &Session{
		ID:        s.ID,
		AgentID:   s.AgentID,
		ThreadID:  s.ThreadID,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	s.mu.RUnlock()
	cp.Messages = s.CopyMessages()
	cp.ToolCalls = s.CopyToolCalls()
	return cp
}
