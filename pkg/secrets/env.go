// Copyright 2026 fanjia1024
// Environment variable based secret store

package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

var envKeyReplacer = strings.NewReplacer("/", "_", "-", "_", ".", "_")

// EnvName 将 secret key 映射为环境变量名，如 agent-service/token -> AGENT_SERVICE_TOKEN
func EnvName(key string) string {
	return strings.ToUpper(envKeyReplacer.Replace(strings.Trim(key, "/")))
}

type envStore struct {
	lookup func(string) (string, bool)
}

// NewEnvStore 从进程环境变量读取 secret
func NewEnvStore() Store {
	return envStore{lookup: os.LookupEnv}
}

func (e envStore) Get(ctx context.Context, key string) (string, error) {
	name := EnvName(key)
	if v, ok := e.lookup(name); ok && v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%w: env %s", ErrSecretNotFound, name)
}
