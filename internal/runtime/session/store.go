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
	"sync"
	"time"
)

// SessionStore 存储抽象；Get 未找到时返回 (nil, nil)
type SessionStore interface {
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	// AcquireRunLock 以 token 获取会话的 Run 锁；已被持有时返回 false
	AcquireRunLock(ctx context.Context, id, token string, ttl time.Duration) (bool, error)
	// RefreshRunLock 延长 token 持有的锁；锁已过期或被他人持有时返回 false
	RefreshRunLock(ctx context.Context, id, token string, ttl time.Duration) (bool, error)
	// ReleaseRunLock 仅释放 token 持有的锁
	ReleaseRunLock(ctx context.Context, id, token string) error
}

type runLock struct {
	token string
	exp   time.Time // 零值表示不过期
}

func (l runLock) live(now time.Time) bool {
	return l.exp.IsZero() || now.Before(l.exp)
}

func lockExpiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

// MemoryStore 内存实现（map + mutex）
type MemoryStore struct {
	mu    sync.RWMutex
	sess  map[string]*Session
	locks map[string]runLock
}

// NewMemoryStore 创建内存 Session 存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sess:  make(map[string]*Session),
		locks: make(map[string]runLock),
	}
}

// Get 实现 SessionStore
func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sess[id]
	if !ok {
		return nil, nil
	}
	return s, nil
}

// Put 实现 SessionStore
func (m *MemoryStore) Put(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s == nil {
		return nil
	}
	m.sess[s.ID] = s
	return nil
}

// Delete 实现 SessionStore
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sess, id)
	delete(m.locks, id)
	return nil
}

// AcquireRunLock 实现 SessionStore；ttl<=0 表示不过期
func (m *MemoryStore) AcquireRunLock(ctx context.Context, id, token string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if l, held := m.locks[id]; held && l.live(now) {
		return false, nil
	}
	m.locks[id] = runLock{token: token, exp: lockExpiry(now, ttl)}
	return true, nil
}

// RefreshRunLock 实现 SessionStore
func (m *MemoryStore) RefreshRunLock(ctx context.Context, id, token string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	l, held := m.locks[id]
	if !held || l.token != token || !l.live(now) {
		return false, nil
	}
	m.locks[id] = runLock{token: token, exp: lockExpiry(now, ttl)}
	return true, nil
}

// ReleaseRunLock 实现 SessionStore
func (m *MemoryStore) ReleaseRunLock(ctx context.Context, id, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, held := m.locks[id]; held && l.token == token {
		delete(m.locks, id)
	}
	return nil
}
