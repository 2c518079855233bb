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

package agentservice

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	pkgerrors "travel-agent/pkg/errors"
	"travel-agent/pkg/log"
	"travel-agent/pkg/metrics"
)

// TokenFunc 每次请求时提供 bearer token（便于 secret 轮换）
type TokenFunc func(ctx context.Context) (string, error)

// StaticToken 固定 token
func StaticToken(token string) TokenFunc {
	return func(context.Context) (string, error) { return token, nil }
}

// Options 客户端配置
type Options struct {
	BaseURL           string
	APIVersion        string
	Token             TokenFunc
	Timeout           time.Duration
	RetryCount        int
	RetryWaitTime     time.Duration
	RequestsPerSecond float64 // <=0 不限流
	Burst             int
	Logger            *log.Logger
}

// APIError 远端返回的非 2xx 响应
type APIError struct {
	Op         string
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("agent service %s: status %d: %s: %s", e.Op, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("agent service %s: status %d: %s", e.Op, e.StatusCode, e.Message)
}

// Unwrap 404 视为 ErrNotFound，其余视为上游不可用
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return pkgerrors.ErrNotFound
	}
	return pkgerrors.ErrUnavailable
}

// Client 托管 Agent 服务 REST 客户端
type Client struct {
	client     *resty.Client
	apiVersion string
	token      TokenFunc
	limiter    *rate.Limiter
	logger     *log.Logger
}

// NewClient 创建客户端
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("agent service base url is required")
	}
	if opts.APIVersion == "" {
		opts.APIVersion = "2024-12-01-preview"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RetryWaitTime <= 0 {
		opts.RetryWaitTime = 500 * time.Millisecond
	}
	if opts.Token == nil {
		opts.Token = StaticToken("")
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseURL)
	client.SetTimeout(opts.Timeout)
	client.SetRetryCount(opts.RetryCount)
	client.SetRetryWaitTime(opts.RetryWaitTime)
	client.SetRetryMaxWaitTime(5 * time.Second)
	client.SetHeader("Content-Type", "application/json")
	client.AddRetryCondition(shouldRetry)

	c := &Client{
		client:     client,
		apiVersion: opts.APIVersion,
		token:      opts.Token,
		logger:     opts.Logger.Named("agentservice"),
	}
	client.SetLogger(restyLogger{c.logger})
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return c, nil
}

// shouldRetry GET/DELETE 在传输错误、429、5xx 时重试；POST 可能已被远端执行，
// 只在 429 或连接未建立时重试，避免重复写入消息或创建 Run
func shouldRetry(r *resty.Response, err error) bool {
	if err != nil {
		if isDialError(err) {
			return true
		}
		return r != nil && r.Request != nil && idempotent(r.Request.Method)
	}
	if r == nil {
		return false
	}
	code := r.StatusCode()
	if code == http.StatusTooManyRequests {
		return true
	}
	return code >= http.StatusInternalServerError && r.Request != nil && idempotent(r.Request.Method)
}

func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodDelete:
		return true
	}
	return false
}

func isDialError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

// restyLogger 将 resty 的内部日志写入服务 logger
type restyLogger struct {
	l *log.Logger
}

func (r restyLogger) Errorf(format string, v ...interface{}) {
	r.l.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (r restyLogger) Warnf(format string, v ...interface{}) {
	r.l.Warn(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (r restyLogger) Debugf(format string, v ...interface{}) {
	r.l.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// CreateAgent POST /assistants
func (c *Client) CreateAgent(ctx context.Context, req CreateAgentRequest) (*Agent, error) {
	var out Agent
	if err := c.do(ctx, "create_agent", http.MethodPost, "/assistants", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteAgent DELETE /assistants/{id}
func (c *Client) DeleteAgent(ctx context.Context, agentID string) error {
	return c.do(ctx, "delete_agent", http.MethodDelete, "/assistants/"+agentID, nil, nil)
}

// CreateThread POST /threads
func (c *Client) CreateThread(ctx context.Context) (*Thread, error) {
	var out Thread
	if err := c.do(ctx, "create_thread", http.MethodPost, "/threads", struct{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteThread DELETE /threads/{id}
func (c *Client) DeleteThread(ctx context.Context, threadID string) error {
	return c.do(ctx, "delete_thread", http.MethodDelete, "/threads/"+threadID, nil, nil)
}

// CreateMessage 以 user 角色向线程追加消息
func (c *Client) CreateMessage(ctx context.Context, threadID, content string) (*Message, error) {
	var out Message
	body := createMessageRequest{Role: "user", Content: content}
	if err := c.do(ctx, "create_message", http.MethodPost, "/threads/"+threadID+"/messages", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListMessages 按时间倒序列出线程消息；limit<=0 使用服务端默认
func (c *Client) ListMessages(ctx context.Context, threadID string, limit int) ([]Message, error) {
	var out MessageList
	path := "/threads/" + threadID + "/messages?order=desc"
	if limit > 0 {
		path += "&limit=" + strconv.Itoa(limit)
	}
	if err := c.do(ctx, "list_messages", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// CreateRun 在线程上以指定 Agent 启动一次 Run
func (c *Client) CreateRun(ctx context.Context, threadID, agentID string) (*Run, error) {
	var out Run
	if err := c.do(ctx, "create_run", http.MethodPost, "/threads/"+threadID+"/runs", createRunRequest{AgentID: agentID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRun 获取 Run 当前状态
func (c *Client) GetRun(ctx context.Context, threadID, runID string) (*Run, error) {
	var out Run
	if err := c.do(ctx, "get_run", http.MethodGet, "/threads/"+threadID+"/runs/"+runID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitToolOutputs 批量提交工具输出
func (c *Client) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) (*Run, error) {
	var out Run
	path := "/threads/" + threadID + "/runs/" + runID + "/submit_tool_outputs"
	if err := c.do(ctx, "submit_tool_outputs", http.MethodPost, path, submitToolOutputsRequest{ToolOutputs: outputs}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelRun 取消 Run
func (c *Client) CancelRun(ctx context.Context, threadID, runID string) (*Run, error) {
	var out Run
	if err := c.do(ctx, "cancel_run", http.MethodPost, "/threads/"+threadID+"/runs/"+runID+"/cancel", struct{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body, result any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("agent service %s: rate limit wait: %w", op, err)
		}
	}
	token, err := c.token(ctx)
	if err != nil {
		return fmt.Errorf("agent service %s: get token: %w", op, err)
	}

	req := c.client.R().
		SetContext(ctx).
		SetQueryParam("api-version", c.apiVersion).
		SetError(&errorEnvelope{})
	if token != "" {
		req.SetAuthToken(token)
	}
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	metrics.AgentServiceRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AgentServiceRequestTotal.WithLabelValues(op, "error").Inc()
		return fmt.Errorf("agent service %s: %w", op, err)
	}
	metrics.AgentServiceRequestTotal.WithLabelValues(op, strconv.Itoa(resp.StatusCode())).Inc()

	if resp.IsError() {
		apiErr := &APIError{Op: op, StatusCode: resp.StatusCode(), Message: resp.String()}
		if env, ok := resp.Error().(*errorEnvelope); ok && env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		c.logger.Warn("agent service request failed", "op", op, "status", apiErr.StatusCode, "code", apiErr.Code)
		return apiErr
	}
	c.logger.Debug("agent service request", "op", op, "status", resp.StatusCode(), "elapsed", time.Since(start))
	return nil
}
