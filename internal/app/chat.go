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

package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"travel-agent/internal/runtime/driver"
	"travel-agent/internal/runtime/session"
	"travel-agent/internal/runtime/transcript"
	pkgerrors "travel-agent/pkg/errors"
	"travel-agent/pkg/log"
	"travel-agent/pkg/metrics"
)

// ErrEmptyMessage 用户消息为空
var ErrEmptyMessage = pkgerrors.Wrap(pkgerrors.ErrInvalidArg, "message is empty")

// Runner 执行一轮对话
type Runner interface {
	Run(ctx context.Context, turn driver.Turn) (*driver.Result, error)
}

// Reply 一轮对话的回复
type Reply struct {
	SessionID string    `json:"session_id"`
	RunID     string    `json:"run_id"`
	Status    string    `json:"status"`
	Response  string    `json:"response"`
	Sources   []string  `json:"sources,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatService 会话、Run Driver 与对话记录的组合，HTTP 与 gRPC 共用
type ChatService struct {
	sessions    *session.Manager
	runner      Runner
	transcripts transcript.Store
	logger      *log.Logger
}

// NewChatService 创建 ChatService
func NewChatService(sessions *session.Manager, runner Runner, transcripts transcript.Store, logger *log.Logger) *ChatService {
	if transcripts == nil {
		transcripts = transcript.NewMemoryStore()
	}
	return &ChatService{
		sessions:    sessions,
		runner:      runner,
		transcripts: transcripts,
		logger:      logger.Named("chat"),
	}
}

// StartSession 会话开始：创建 Agent 与 Thread
func (c *ChatService) StartSession(ctx context.Context) (*session.Session, error) {
	s, err := c.sessions.Start(ctx)
	if err != nil {
		return nil, err
	}
	c.logger.Info("session started", "session_id", s.ID, "agent_id", s.AgentID, "thread_id", s.ThreadID)
	return s.Snapshot(), nil
}

// GetSession 返回会话快照
func (c *ChatService) GetSession(ctx context.Context, id string) (*session.Session, error) {
	s, err := c.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Snapshot(), nil
}

// SendMessage 处理一条用户消息并返回最终回复；同一会话的消息串行处理
func (c *ChatService) SendMessage(ctx context.Context, sessionID, text string) (*Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		metrics.MessagesTotal.WithLabelValues("rejected").Inc()
		return nil, ErrEmptyMessage
	}
	lease, err := c.sessions.BeginRun(ctx, sessionID)
	if err != nil {
		metrics.MessagesTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}
	defer lease.Release()

	s := lease.Session
	s.AddMessage("user", text, "")
	res, runErr := c.runner.Run(lease.Ctx, driver.Turn{ThreadID: s.ThreadID, AgentID: s.AgentID, Input: text})
	if res == nil {
		res = &driver.Result{}
	}
	for _, out := range res.ToolOutputs {
		s.AddToolCall(res.RunID, out.ToolCallID, out.Output)
	}

	entry := &transcript.Entry{
		SessionID: s.ID,
		ThreadID:  s.ThreadID,
		RunID:     res.RunID,
		Input:     text,
		Status:    string(res.Status),
	}
	if runErr != nil {
		entry.Error = runErr.Error()
		if entry.Status == "" || errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
			entry.Status = "error"
		}
	} else {
		entry.Response = res.Text
		entry.Sources = res.Sources
		s.AddMessage("assistant", res.Text, res.RunID)
	}

	// 会话可能在本轮进行中被结束，记录写入使用独立上下文
	wctx := context.WithoutCancel(ctx)
	if err := c.transcripts.Append(wctx, entry); err != nil {
		c.logger.Warn("append transcript failed", "session_id", s.ID, "error", err)
	}
	if _, err := c.sessions.Get(wctx, s.ID); err == nil {
		if err := c.sessions.Save(wctx, s); err != nil {
			c.logger.Warn("save session failed", "session_id", s.ID, "error", err)
		}
	}

	if runErr != nil {
		metrics.MessagesTotal.WithLabelValues("error").Inc()
		c.logger.Error("run failed", "session_id", s.ID, "run_id", res.RunID, "error", runErr)
		return nil, runErr
	}
	metrics.MessagesTotal.WithLabelValues("ok").Inc()
	return &Reply{
		SessionID: s.ID,
		RunID:     res.RunID,
		Status:    string(res.Status),
		Response:  res.Text,
		Sources:   res.Sources,
		CreatedAt: entry.CreatedAt,
	}, nil
}

// EndSession 会话结束：删除 Thread 与 Agent
func (c *ChatService) EndSession(ctx context.Context, id string) error {
	if err := c.sessions.End(ctx, id); err != nil {
		return err
	}
	c.logger.Info("session ended", "session_id", id)
	return nil
}

// Transcript 会话的逐轮记录（会话结束后仍可读取）
func (c *ChatService) Transcript(ctx context.Context, id string) ([]transcript.Entry, error) {
	return c.transcripts.List(ctx, id)
}

// Starters 快捷提问
func (c *ChatService) Starters() []Starter {
	return Starters()
}
