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
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig Redis 会话存储配置
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration // 会话记录过期时间，0 表示不过期
}

// RedisStore 会话以 JSON 存在 <prefix><id>，Run 锁为 <prefix><id>:run
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore 连接 Redis 并 Ping
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis session store: addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStoreWithClient(client, cfg.KeyPrefix, cfg.TTL), nil
}

// NewRedisStoreWithClient 使用已有 client
func NewRedisStoreWithClient(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "travel-agent:session:"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisStore) key(id string) string     { return r.prefix + id }
func (r *RedisStore) lockKey(id string) string { return r.prefix + id + ":run" }

// Get 实现 SessionStore
func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	raw, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session %s: %w", id, err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &s, nil
}

// Put 实现 SessionStore
func (r *RedisStore) Put(ctx context.Context, s *Session) error {
	if s == nil {
		return nil
	}
	raw, err := json.Marshal(s.Snapshot())
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.ID, err)
	}
	if err := r.client.Set(ctx, r.key(s.ID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis put session %s: %w", s.ID, err)
	}
	return nil
}

// Delete 实现 SessionStore
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id), r.lockKey(id)).Err(); err != nil {
		return fmt.Errorf("redis delete session %s: %w", id, err)
	}
	return nil
}

// refreshScript 仅当锁仍由 token 持有时续期
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// releaseScript 仅当锁仍由 token 持有时删除
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// AcquireRunLock 实现 SessionStore（SET NX，值为 token）
func (r *RedisStore) AcquireRunLock(ctx context.Context, id, token string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.lockKey(id), token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis acquire run lock %s: %w", id, err)
	}
	return ok, nil
}

// RefreshRunLock 实现 SessionStore；ttl<=0 时只校验持有者
func (r *RedisStore) RefreshRunLock(ctx context.Context, id, token string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		cur, err := r.client.Get(ctx, r.lockKey(id)).Result()
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("redis refresh run lock %s: %w", id, err)
		}
		return cur == token, nil
	}
	n, err := refreshScript.Run(ctx, r.client, []string{r.lockKey(id)}, token, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("redis refresh run lock %s: %w", id, err)
	}
	return n == 1, nil
}

// ReleaseRunLock 实现 SessionStore
func (r *RedisStore) ReleaseRunLock(ctx context.Context, id, token string) error {
	if err := releaseScript.Run(ctx, r.client, []string{r.lockKey(id)}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis release run lock %s: %w", id, err)
	}
	return nil
}

// Close 关闭连接
func (r *RedisStore) Close() error {
	return r.client.Close()
}
