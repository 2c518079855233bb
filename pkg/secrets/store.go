// Copyright 2026 fanjia1024
// Secret management abstraction

package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrSecretNotFound 统一的未找到错误，各实现均包装它
var ErrSecretNotFound = errors.New("secret not found")

// Store 只读 secret 来源；未找到时返回包装 ErrSecretNotFound 的错误
type Store interface {
	Get(ctx context.Context, key string) (string, error)
}

// Config Secret Store 配置
type Config struct {
	Provider string      `mapstructure:"provider"` // env | memory | vault
	Vault    VaultConfig       `mapstructure:"vault"`
	Values   map[string]string `mapstructure:"values"` // provider=memory 时的初始值
}

// NewStore 创建 Secret Store；provider 为空时使用 env
func NewStore(config Config) (Store, error) {
	switch strings.ToLower(config.Provider) {
	case "", "env":
		return NewEnvStore(), nil
	case "memory":
		return NewMemoryStore(config.Values), nil
	case "vault":
		return NewVaultStore(config.Vault)
	default:
		return nil, fmt.Errorf("unsupported secret provider: %s", config.Provider)
	}
}

// Lookup 读取 key，未找到时返回 fallback；其他错误原样返回
func Lookup(ctx context.Context, s Store, key, fallback string) (string, error) {
	if s == nil || key == "" {
		return fallback, nil
	}
	v, err := s.Get(ctx, key)
	if errors.Is(err, ErrSecretNotFound) {
		return fallback, nil
	}
	if err != nil {
		return "", err
	}
	return v, nil
}
