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

package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"travel-agent/internal/agentservice"
	pkgerrors "travel-agent/pkg/errors"
	"travel-agent/pkg/log"
	"travel-agent/pkg/metrics"
	"travel-agent/pkg/tracing"
)

var (
	// ErrSessionNotFound 会话不存在或已结束
	ErrSessionNotFound = pkgerrors.Wrap(pkgerrors.ErrNotFound, "session")
	// ErrRunInProgress 同一会话上一条消息的 Run 尚未结束
	ErrRunInProgress = pkgerrors.Wrap(pkgerrors.ErrConflict, "run in progress")
)

const cleanupTimeout = 30 * time.Second

// AgentService 会话生命周期依赖的远端操作
type AgentService interface {
	CreateAgent(ctx context.Context, req agentservice.CreateAgentRequest) (*agentservice.Agent, error)
	DeleteAgent(ctx context.Context, agentID string) error
	CreateThread(ctx context.Context) (*agentservice.Thread, error)
	DeleteThread(ctx context.Context, threadID string) error
}

// ToolDefiner 提供创建 Agent 时声明的工具
type ToolDefiner interface {
	Definitions(ctx context.Context) ([]agentservice.ToolDefinition, *agentservice.ToolResources, error)
}

// AgentSpec 每个会话创建的 Agent 定义
type AgentSpec struct {
	Model        string
	Name         string
	Instructions string
}

// ManagerOptions Manager 配置
type ManagerOptions struct {
	Agent      AgentSpec
	RunLockTTL time.Duration
	Logger     *log.Logger
}

// Manager 管理会话的创建、Run 互斥与销毁
type Manager struct {
	store      SessionStore
	svc        AgentService
	tools      ToolDefiner
	agent      AgentSpec
	runLockTTL time.Duration
	logger     *log.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc // 本进程内会话上下文，End 时取消
	ctxs    map[string]context.Context
	running map[string]string // 本进程内进行中的 Run：session id -> 锁 token
}

// NewManager 创建 Manager
func NewManager(store SessionStore, svc AgentService, tools ToolDefiner, opts ManagerOptions) *Manager {
	return &Manager{
		store:      store,
		svc:        svc,
		tools:      tools,
		agent:      opts.Agent,
		runLockTTL: opts.RunLockTTL,
		logger:     opts.Logger.Named("session"),
		cancels:    make(map[string]context.CancelFunc),
		ctxs:       make(map[string]context.Context),
		running:    make(map[string]string),
	}
}

// Start 为新会话创建 Agent 与 Thread；任一步失败都会清理已创建的远端资源
func (m *Manager) Start(ctx context.Context) (s *Session, err error) {
	s = New("")
	ctx, span := tracing.StartSessionSpan(ctx, "start", s.ID)
	defer func() { tracing.EndWithError(span, err) }()

	defs, resources, err := m.tools.Definitions(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "tool definitions")
	}
	agent, err := m.svc.CreateAgent(ctx, agentservice.CreateAgentRequest{
		Model:         m.agent.Model,
		Name:          m.agent.Name,
		Instructions:  m.agent.Instructions,
		Tools:         defs,
		ToolResources: resources,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "create agent")
	}
	m.logger.Info("created agent", "session_id", s.ID, "agent_id", agent.ID)

	thread, err := m.svc.CreateThread(ctx)
	if err != nil {
		m.cleanup(ctx, s.ID, agent.ID, "")
		return nil, pkgerrors.Wrap(err, "create thread")
	}
	m.logger.Info("created thread", "session_id", s.ID, "thread_id", thread.ID)

	s.AgentID = agent.ID
	s.ThreadID = thread.ID
	if err := m.store.Put(ctx, s); err != nil {
		m.cleanup(ctx, s.ID, agent.ID, thread.ID)
		return nil, pkgerrors.Wrap(err, "save session")
	}

	sctx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.ctxs[s.ID] = sctx
	m.cancels[s.ID] = cancel
	m.mu.Unlock()
	metrics.SessionsActive.Inc()
	return s, nil
}

// Get 按 ID 获取会话
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	s, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Save 持久化会话
func (m *Manager) Save(ctx context.Context, s *Session) error {
	if s == nil {
		return nil
	}
	return m.store.Put(ctx, s)
}

// RunLease 持有会话 Run 锁期间的上下文；会话结束时 Ctx 被取消
type RunLease struct {
	Ctx     context.Context
	Session *Session

	release func()
	once    sync.Once
}

// Release 释放 Run 锁，可重复调用
func (l *RunLease) Release() {
	l.once.Do(l.release)
}

// BeginRun 获取会话的 Run 锁；同一会话已有进行中的 Run 时返回 ErrRunInProgress。
// 锁在 Run 期间按 RunLockTTL/3 续期，续期失败（锁已丢失）时取消 Run
func (m *Manager) BeginRun(ctx context.Context, id string) (*RunLease, error) {
	s, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	token := uuid.NewString()

	m.mu.Lock()
	if _, busy := m.running[id]; busy {
		m.mu.Unlock()
		return nil, ErrRunInProgress
	}
	m.running[id] = token
	m.mu.Unlock()

	ok, err := m.store.AcquireRunLock(ctx, id, token, m.runLockTTL)
	if err != nil || !ok {
		m.mu.Lock()
		delete(m.running, id)
		m.mu.Unlock()
		if err != nil {
			return nil, err
		}
		return nil, ErrRunInProgress
	}

	runCtx, cancel := context.WithCancel(ctx)
	stop := func() bool { return false }
	m.mu.Lock()
	if sctx, ok := m.ctxs[id]; ok {
		stop = context.AfterFunc(sctx, cancel)
	}
	m.mu.Unlock()

	done := make(chan struct{})
	heartbeat := make(chan struct{})
	if m.runLockTTL > 0 {
		go func() {
			defer close(heartbeat)
			m.keepRunLock(runCtx, id, token, cancel, done)
		}()
	} else {
		close(heartbeat)
	}

	lease := &RunLease{Ctx: runCtx, Session: s}
	lease.release = func() {
		close(done)
		<-heartbeat
		stop()
		cancel()
		rctx, rcancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
		defer rcancel()
		if err := m.store.ReleaseRunLock(rctx, id, token); err != nil {
			m.logger.Warn("release run lock failed", "session_id", id, "error", err)
		}
		m.mu.Lock()
		if m.running[id] == token {
			delete(m.running, id)
		}
		m.mu.Unlock()
	}
	return lease, nil
}

// keepRunLock 周期续期 Run 锁直到 done 关闭；锁丢失时取消 Run
func (m *Manager) keepRunLock(ctx context.Context, id, token string, cancel context.CancelFunc, done <-chan struct{}) {
	interval := m.runLockTTL / 3
	if interval <= 0 {
		interval = m.runLockTTL
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			rctx, rcancel := context.WithTimeout(context.WithoutCancel(ctx), interval)
			ok, err := m.store.RefreshRunLock(rctx, id, token, m.runLockTTL)
			rcancel()
			if err != nil {
				m.logger.Warn("refresh run lock failed", "session_id", id, "error", err)
				continue
			}
			if !ok {
				m.logger.Error("run lock lost, cancelling run", "session_id", id)
				cancel()
				return
			}
		}
	}
}

// End 取消进行中的 Run，删除 Thread 与 Agent 并移除会话
func (m *Manager) End(ctx context.Context, id string) (err error) {
	ctx, span := tracing.StartSessionSpan(ctx, "end", id)
	defer func() { tracing.EndWithError(span, err) }()

	s, err := m.Get(ctx, id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	cancel, local := m.cancels[id]
	delete(m.cancels, id)
	delete(m.ctxs, id)
	m.mu.Unlock()
	if local {
		cancel()
	}

	remoteErr := m.cleanup(ctx, id, s.AgentID, s.ThreadID)
	if err := m.store.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(err, "delete session")
	}
	if local {
		metrics.SessionsActive.Dec()
	}
	return remoteErr
}

// cleanup 删除远端资源；已不存在的资源视为成功
func (m *Manager) cleanup(ctx context.Context, sessionID, agentID, threadID string) error {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	var errs []error
	if threadID != "" {
		if err := m.svc.DeleteThread(cctx, threadID); err != nil && !errors.Is(err, pkgerrors.ErrNotFound) {
			m.logger.Warn("delete thread failed", "session_id", sessionID, "thread_id", threadID, "error", err)
			errs = append(errs, pkgerrors.Wrap(err, "delete thread"))
		} else {
			m.logger.Info("deleted thread", "session_id", sessionID, "thread_id", threadID)
		}
	}
	if agentID != "" {
		if err := m.svc.DeleteAgent(cctx, agentID); err != nil && !errors.Is(err, pkgerrors.ErrNotFound) {
			m.logger.Warn("delete agent failed", "session_id", sessionID, "agent_id", agentID, "error", err)
			errs = append(errs, pkgerrors.Wrap(err, "delete agent"))
		} else {
			m.logger.Info("deleted agent", "session_id", sessionID, "agent_id", agentID)
		}
	}
	return errors.Join(errs...)
}

// Close 取消本进程内所有会话上下文（不删除远端资源）
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, cancel := range m.cancels {
		cancel()
		delete(m.cancels, id)
		delete(m.ctxs, id)
	}
}
