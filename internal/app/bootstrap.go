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
	"fmt"
	"time"

	"travel-agent/internal/agentservice"
	"travel-agent/internal/runtime/driver"
	"travel-agent/internal/runtime/session"
	"travel-agent/internal/runtime/transcript"
	"travel-agent/internal/tool"
	"travel-agent/pkg/config"
	"travel-agent/pkg/log"
	"travel-agent/pkg/secrets"
)

// Bootstrap 统一初始化：供 api 进程复用，避免在 cmd 内组装业务组件
type Bootstrap struct {
	Config       *config.Config
	Logger       *log.Logger
	Secrets      secrets.Store
	AgentService *agentservice.Client
	Tools        *tool.Toolset
	Sessions     *session.Manager
	Transcripts  transcript.Store
	Chat         *ChatService

	closers []func()
}

// NewBootstrap 根据配置创建全部依赖
func NewBootstrap(ctx context.Context, cfg *config.Config) (*Bootstrap, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	logger, err := log.NewLogger(&log.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File})
	if err != nil {
		return nil, fmt.Errorf("初始化日志failed: %w", err)
	}
	b := &Bootstrap{Config: cfg, Logger: logger}

	b.Secrets, err = secrets.NewStore(secrets.Config{
		Provider: cfg.Secrets.Provider,
		Vault: secrets.VaultConfig{
			Address:    cfg.Secrets.Vault.Address,
			Token:      cfg.Secrets.Vault.Token,
			PathPrefix: cfg.Secrets.Vault.PathPrefix,
		},
		Values: cfg.Secrets.Values,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 secret store failed: %w", err)
	}

	baseURL, err := agentservice.ResolveBaseURL(cfg.AgentService.Endpoint, cfg.AgentService.ConnectionString)
	if err != nil {
		return nil, err
	}
	tokenKey := cfg.AgentService.TokenSecret
	store := b.Secrets
	b.AgentService, err = agentservice.NewClient(agentservice.Options{
		BaseURL:    baseURL,
		APIVersion: cfg.AgentService.APIVersion,
		Token: func(ctx context.Context) (string, error) {
			return secrets.Lookup(ctx, store, tokenKey, "")
		},
		Timeout:           config.ParseDuration(cfg.AgentService.Timeout, 30*time.Second),
		RetryCount:        cfg.AgentService.RetryCount,
		RequestsPerSecond: cfg.AgentService.RequestsPerSecond,
		Burst:             cfg.AgentService.Burst,
		Logger:            logger,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 agent service client failed: %w", err)
	}

	b.Tools, err = tool.NewToolset(ctx, tool.SearchConfig{
		ConnectionID: cfg.AgentService.Search.ConnectionID,
		IndexName:    cfg.AgentService.Search.IndexName,
		QueryType:    cfg.AgentService.Search.QueryType,
		TopK:         cfg.AgentService.Search.TopK,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化工具failed: %w", err)
	}
	if cfg.AgentService.Search.ConnectionID == "" {
		logger.Warn("search connection id not set, agents are created without the product search tool")
	}

	sessionStore, err := b.newSessionStore(ctx)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.Sessions = session.NewManager(sessionStore, b.AgentService, b.Tools, session.ManagerOptions{
		Agent: session.AgentSpec{
			Model:        cfg.Agent.Model,
			Name:         cfg.Agent.Name,
			Instructions: cfg.Agent.Instructions,
		},
		RunLockTTL: config.ParseDuration(cfg.Session.RunLockTTL, 10*time.Minute),
		Logger:     logger,
	})
	b.closers = append(b.closers, b.Sessions.Close)

	b.Transcripts, err = transcript.NewStore(ctx, transcript.Config{Type: cfg.Transcript.Type, DSN: cfg.Transcript.DSN})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("初始化对话记录存储failed: %w", err)
	}
	b.closers = append(b.closers, b.Transcripts.Close)

	runner := driver.New(b.AgentService, b.Tools, driver.Options{
		PollInterval: config.ParseDuration(cfg.Run.PollInterval, time.Second),
		RunTimeout:   config.ParseDuration(cfg.Run.Timeout, 0),
		Logger:       logger,
	})
	b.Chat = NewChatService(b.Sessions, runner, b.Transcripts, logger)
	return b, nil
}

func (b *Bootstrap) newSessionStore(ctx context.Context) (session.SessionStore, error) {
	cfg := b.Config.Session
	switch cfg.Store {
	case "", "memory":
		return session.NewMemoryStore(), nil
	case "redis":
		st, err := session.NewRedisStore(ctx, session.RedisConfig{
			Addr:      cfg.Addr,
			Password:  cfg.Password,
			DB:        cfg.DB,
			KeyPrefix: cfg.KeyPrefix,
			TTL:       config.ParseDuration(cfg.TTL, 24*time.Hour),
		})
		if err != nil {
			return nil, fmt.Errorf("初始化会话存储failed: %w", err)
		}
		b.closers = append(b.closers, func() { _ = st.Close() })
		return st, nil
	default:
		return nil, fmt.Errorf("unsupported session store: %s", cfg.Store)
	}
}

// Close 释放存储连接，按创建的逆序
func (b *Bootstrap) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}
