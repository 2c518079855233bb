// Copyright 2026 fanjia1024
// In-memory secret store (for development and tests)

package secrets

import (
	"context"
	"fmt"
)

// staticStore 启动时给定的固定值，创建后只读
type staticStore map[string]string

// NewMemoryStore 以 values 的副本创建内存 secret store
func NewMemoryStore(values map[string]string) Store {
	s := make(staticStore, len(values))
	for k, v := range values {
		s[k] = v
	}
	return s
}

func (s staticStore) Get(ctx context.Context, key string) (string, error) {
	if v, ok := s[key]; ok {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s", ErrSecretNotFound, key)
}
