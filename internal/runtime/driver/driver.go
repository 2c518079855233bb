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

// Package driver 驱动一轮对话：发送用户消息、创建 Run、轮询状态、执行工具调用并取回回复
package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"travel-agent/internal/agentservice"
	"travel-agent/internal/citation"
	"travel-agent/pkg/log"
	"travel-agent/pkg/metrics"
	"travel-agent/pkg/tracing"
)

var (
	// ErrRunFailed Run 以 failed 结束；具体原因见 *RunFailedError
	ErrRunFailed = errors.New("run failed")
	// ErrRunCancelled Run 被取消或过期
	ErrRunCancelled = errors.New("run cancelled")
	// ErrRunIncomplete Run 以 incomplete 结束
	ErrRunIncomplete = errors.New("run incomplete")
	// ErrNoMessages Run 完成但线程中没有可用的文本回复
	ErrNoMessages = errors.New("no messages found")
	// ErrToolOutputsEmpty 本批工具调用全部失败，Run 已被取消
	ErrToolOutputsEmpty = errors.New("all tool calls failed")
)

// RunFailedError 携带远端 last_error
type RunFailedError struct {
	RunID   string
	Code    string
	Message string
}

func (e *RunFailedError) Error() string {
	if e.Code == "" && e.Message == "" {
		return fmt.Sprintf("run %s failed", e.RunID)
	}
	return fmt.Sprintf("run %s failed: %s: %s", e.RunID, e.Code, e.Message)
}

func (e *RunFailedError) Unwrap() error { return ErrRunFailed }

// Service Driver 依赖的远端操作
type Service interface {
	CreateMessage(ctx context.Context, threadID, content string) (*agentservice.Message, error)
	CreateRun(ctx context.Context, threadID, agentID string) (*agentservice.Run, error)
	GetRun(ctx context.Context, threadID, runID string) (*agentservice.Run, error)
	SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []agentservice.ToolOutput) (*agentservice.Run, error)
	CancelRun(ctx context.Context, threadID, runID string) (*agentservice.Run, error)
	ListMessages(ctx context.Context, threadID string, limit int) ([]agentservice.Message, error)
}

// ToolExecutor 执行一次工具调用
type ToolExecutor interface {
	Execute(ctx context.Context, call agentservice.ToolCall) (string, error)
}

// Options Driver 配置
type Options struct {
	PollInterval time.Duration // 默认 1s
	RunTimeout   time.Duration // 0 表示不限
	Logger       *log.Logger
}

// Turn 一轮对话的输入
type Turn struct {
	ThreadID string
	AgentID  string
	Input    string
}

// Result 一轮对话的输出
type Result struct {
	RunID       string
	Status      agentservice.RunStatus
	Text        string   // 引用已重排后的回复
	RawText     string   // 远端原始文本
	Sources     []string // url_citation 标题
	ToolOutputs []agentservice.ToolOutput
	Polls       int
}

// Driver Run 状态机
type Driver struct {
	svc          Service
	tools        ToolExecutor
	pollInterval time.Duration
	runTimeout   time.Duration
	logger       *log.Logger
}

const cancelTimeout = 10 * time.Second

// New 创建 Driver
func New(svc Service, tools ToolExecutor, opts Options) *Driver {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	return &Driver{
		svc:          svc,
		tools:        tools,
		pollInterval: opts.PollInterval,
		runTimeout:   opts.RunTimeout,
		logger:       opts.Logger.Named("driver"),
	}
}

// Run 执行一轮对话直到 Run 进入终态
func (d *Driver) Run(ctx context.Context, turn Turn) (res *Result, err error) {
	if d.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.runTimeout)
		defer cancel()
	}
	ctx, span := tracing.StartRunSpan(ctx, turn.ThreadID, turn.AgentID)
	start := time.Now()
	res = &Result{}
	defer func() {
		status := string(res.Status)
		if err != nil && (status == "" || res.Status.Continuing()) {
			status = "error"
		}
		metrics.RunTotal.WithLabelValues(status).Inc()
		metrics.RunDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
		if res.Polls > 0 {
			metrics.RunPolls.Observe(float64(res.Polls))
		}
		tracing.EndWithError(span, err)
	}()

	msg, err := d.svc.CreateMessage(ctx, turn.ThreadID, turn.Input)
	if err != nil {
		return res, fmt.Errorf("create message: %w", err)
	}
	d.logger.Debug("created message", "thread_id", turn.ThreadID, "message_id", msg.ID)

	run, err := d.svc.CreateRun(ctx, turn.ThreadID, turn.AgentID)
	if err != nil {
		return res, fmt.Errorf("create run: %w", err)
	}
	if run.Status == "" {
		run.Status = agentservice.RunStatusQueued
	}
	res.RunID = run.ID
	res.Status = run.Status
	d.logger.Info("created run", "thread_id", turn.ThreadID, "run_id", run.ID)

	handled := make(map[string]bool)
	for run.Status.Continuing() {
		if err := d.wait(ctx); err != nil {
			d.cancelDetached(ctx, turn.ThreadID, run.ID)
			return res, err
		}
		run, err = d.svc.GetRun(ctx, turn.ThreadID, res.RunID)
		if err != nil {
			if ctx.Err() != nil {
				d.cancelDetached(ctx, turn.ThreadID, res.RunID)
			}
			return res, fmt.Errorf("get run: %w", err)
		}
		res.Polls++
		res.Status = run.Status
		d.logger.Debug("run status", "run_id", run.ID, "status", run.Status)

		if run.Status != agentservice.RunStatusRequiresAction {
			continue
		}
		calls, ok := run.PendingToolCalls()
		if !ok {
			continue
		}
		if len(calls) == 0 {
			d.logger.Warn("no tool calls provided, cancelling run", "run_id", run.ID)
			if _, err := d.svc.CancelRun(ctx, turn.ThreadID, run.ID); err != nil {
				return res, fmt.Errorf("cancel run: %w", err)
			}
			res.Status = agentservice.RunStatusCancelled
			return res, ErrRunCancelled
		}

		outputs, attempted := d.executeTools(ctx, calls, handled)
		if attempted == 0 {
			continue
		}
		if len(outputs) == 0 {
			d.logger.Warn("all tool calls failed, cancelling run", "run_id", run.ID, "calls", attempted)
			if _, err := d.svc.CancelRun(ctx, turn.ThreadID, run.ID); err != nil {
				return res, fmt.Errorf("cancel run: %w", err)
			}
			res.Status = agentservice.RunStatusCancelled
			return res, ErrToolOutputsEmpty
		}
		if _, err := d.svc.SubmitToolOutputs(ctx, turn.ThreadID, run.ID, outputs); err != nil {
			return res, fmt.Errorf("submit tool outputs: %w", err)
		}
		res.ToolOutputs = append(res.ToolOutputs, outputs...)
	}

	switch run.Status {
	case agentservice.RunStatusCompleted:
		return d.collect(ctx, turn.ThreadID, res)
	case agentservice.RunStatusFailed:
		ferr := &RunFailedError{RunID: run.ID}
		if run.LastError != nil {
			ferr.Code = run.LastError.Code
			ferr.Message = run.LastError.Message
		}
		d.logger.Error("run failed", "run_id", run.ID, "code", ferr.Code, "message", ferr.Message)
		return res, ferr
	case agentservice.RunStatusIncomplete:
		return res, ErrRunIncomplete
	default:
		return res, fmt.Errorf("%w: status %s", ErrRunCancelled, run.Status)
	}
}

// executeTools 逐个执行尚未处理的调用；失败的调用只记录日志不提交
func (d *Driver) executeTools(ctx context.Context, calls []agentservice.ToolCall, handled map[string]bool) ([]agentservice.ToolOutput, int) {
	var outputs []agentservice.ToolOutput
	attempted := 0
	for _, call := range calls {
		if handled[call.ID] {
			continue
		}
		handled[call.ID] = true
		attempted++
		out, err := d.tools.Execute(ctx, call)
		if err != nil {
			d.logger.Error("tool call failed", "tool_call_id", call.ID, "tool", call.Function.Name, "error", err)
			continue
		}
		d.logger.Info("executed tool call", "tool_call_id", call.ID, "tool", call.Function.Name)
		outputs = append(outputs, agentservice.ToolOutput{ToolCallID: call.ID, Output: out})
	}
	return outputs, attempted
}

// collect 取最新一条消息的第一个文本块
func (d *Driver) collect(ctx context.Context, threadID string, res *Result) (*Result, error) {
	msgs, err := d.svc.ListMessages(ctx, threadID, 1)
	if err != nil {
		return res, fmt.Errorf("list messages: %w", err)
	}
	if len(msgs) == 0 {
		return res, ErrNoMessages
	}
	text, ok := msgs[0].FirstText()
	if !ok {
		return res, ErrNoMessages
	}
	res.RawText = text.Value
	res.Text = text.Value
	if len(text.Annotations) > 0 {
		res.Text = citation.Reformat(text.Value, text.Annotations)
		res.Sources = citation.Sources(text.Annotations)
	}
	return res, nil
}

func (d *Driver) wait(ctx context.Context) error {
	t := time.NewTimer(d.pollInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// cancelDetached 调用方已放弃本轮时尽力取消远端 Run
func (d *Driver) cancelDetached(ctx context.Context, threadID, runID string) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cancelTimeout)
	defer cancel()
	if _, err := d.svc.CancelRun(cctx, threadID, runID); err != nil {
		d.logger.Warn("cancel abandoned run failed", "run_id", runID, "error", err)
		return
	}
	d.logger.Info("cancelled abandoned run", "run_id", runID)
}
