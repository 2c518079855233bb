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
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	chatapp "travel-agent/internal/app"
	"travel-agent/internal/runtime/session"
	"travel-agent/internal/runtime/transcript"
	pkgerrors "travel-agent/pkg/errors"
	"travel-agent/pkg/log"
	"travel-agent/pkg/metrics"
)

// ChatService Handler 依赖的聊天服务
type ChatService interface {
	StartSession(ctx context.Context) (*session.Session, error)
	GetSession(ctx context.Context, id string) (*session.Session, error)
	SendMessage(ctx context.Context, sessionID, text string) (*chatapp.Reply, error)
	EndSession(ctx context.Context, id string) error
	Transcript(ctx context.Context, id string) ([]transcript.Entry, error)
	Starters() []chatapp.Starter
}

// Handler HTTP 处理器
type Handler struct {
	chat   ChatService
	logger *log.Logger
}

// NewHandler 创建 HTTP 处理器
func NewHandler(chat ChatService, logger *log.Logger) *Handler {
	return &Handler{chat: chat, logger: logger.Named("api")}
}

type sendMessageRequest struct {
	Message string `json:"message"`
}

type sessionResponse struct {
	ID        string             `json:"id"`
	AgentID   string             `json:"agent_id"`
	ThreadID  string             `json:"thread_id"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
	Messages  []*session.Message `json:"messages,omitempty"`
}

func toSessionResponse(s *session.Session, withMessages bool) sessionResponse {
	resp := sessionResponse{
		ID:        s.ID,
		AgentID:   s.AgentID,
		ThreadID:  s.ThreadID,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	if withMessages {
		resp.Messages = s.Messages
	}
	return resp
}

// HealthCheck 健康检查
func (h *Handler) HealthCheck(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, map[string]string{"status": "ok"})
}

// Starters 快捷提问
func (h *Handler) Starters(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, map[string]any{"starters": h.chat.Starters()})
}

// StartSession 会话开始
func (h *Handler) StartSession(ctx context.Context, c *app.RequestContext) {
	s, err := h.chat.StartSession(ctx)
	if err != nil {
		h.writeError(c, "start session", err)
		return
	}
	c.JSON(consts.StatusCreated, toSessionResponse(s, false))
}

// GetSession 会话信息（含对话历史）
func (h *Handler) GetSession(ctx context.Context, c *app.RequestContext) {
	s, err := h.chat.GetSession(ctx, c.Param("id"))
	if err != nil {
		h.writeError(c, "get session", err)
		return
	}
	c.JSON(consts.StatusOK, toSessionResponse(s, true))
}

// SendMessage 发送一条用户消息，阻塞到 Run 结束后返回回复
func (h *Handler) SendMessage(ctx context.Context, c *app.RequestContext) {
	var req sendMessageRequest
	body := bytes.TrimSpace(c.Request.Body())
	if len(body) == 0 {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": "request body is required"})
		return
	}
	if err := json.Unmarshal(body, &req); err != nil {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}

	reply, err := h.chat.SendMessage(ctx, c.Param("id"), req.Message)
	if err != nil {
		h.writeError(c, "send message", err)
		return
	}
	c.JSON(consts.StatusOK, reply)
}

// Transcript 会话的逐轮记录
func (h *Handler) Transcript(ctx context.Context, c *app.RequestContext) {
	id := c.Param("id")
	entries, err := h.chat.Transcript(ctx, id)
	if err != nil {
		h.writeError(c, "transcript", err)
		return
	}
	if entries == nil {
		entries = []transcript.Entry{}
	}
	c.JSON(consts.StatusOK, map[string]any{"session_id": id, "entries": entries})
}

// EndSession 会话结束
func (h *Handler) EndSession(ctx context.Context, c *app.RequestContext) {
	if err := h.chat.EndSession(ctx, c.Param("id")); err != nil {
		h.writeError(c, "end session", err)
		return
	}
	c.Status(consts.StatusNoContent)
}

// Metrics Prometheus 指标
func (h *Handler) Metrics(ctx context.Context, c *app.RequestContext) {
	var buf bytes.Buffer
	if err := metrics.WritePrometheus(&buf); err != nil {
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	c.Data(consts.StatusOK, "text/plain; version=0.0.4; charset=utf-8", buf.Bytes())
}

// writeError 按错误类型映射状态码
func (h *Handler) writeError(c *app.RequestContext, op string, err error) {
	status := statusFor(err)
	if status >= consts.StatusInternalServerError {
		h.logger.Error("request failed", "op", op, "error", err)
	}
	c.JSON(status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pkgerrors.ErrInvalidArg):
		return consts.StatusBadRequest
	case errors.Is(err, session.ErrSessionNotFound):
		return consts.StatusNotFound
	case errors.Is(err, pkgerrors.ErrConflict):
		return consts.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return consts.StatusGatewayTimeout
	default:
		return consts.StatusBadGateway
	}
}
