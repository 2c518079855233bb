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

package transcript

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore 内存实现
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]Entry
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]Entry)}
}

// Append 实现 Store
func (m *MemoryStore) Append(ctx context.Context, e *Entry) error {
	if e == nil || e.SessionID == "" {
		return fmt.Errorf("transcript: session id is required")
	}
	prepare(e)
	cp := *e
	cp.Sources = append([]string(nil), e.Sources...)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.SessionID] = append(m.entries[e.SessionID], cp)
	return nil
}

// List 实现 Store
func (m *MemoryStore) List(ctx context.Context, sessionID string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.entries[sessionID]
	out := make([]Entry, len(list))
	copy(out, list)
	return out, nil
}

// Close 实现 Store
func (m *MemoryStore) Close() {}
