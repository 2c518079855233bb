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

package tool

import (
	"context"
	"sync"

	einotool "github.com/cloudwego/eino/components/tool"
)

// Registry 工具注册表：按名称注册、发现 eino InvokableTool，保持注册顺序
type Registry struct {
	mu    sync.RWMutex
	tools map[string]einotool.InvokableTool
	order []string
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]einotool.InvokableTool),
	}
}

// Register 以 ToolInfo.Name 注册工具；同名覆盖
func (r *Registry) Register(ctx context.Context, t einotool.InvokableTool) error {
	info, err := t.Info(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[info.Name]; !exists {
		r.order = append(r.order, info.Name)
	}
	r.tools[info.Name] = t
	return nil
}

// Get 按名称获取工具
func (r *Registry) Get(name string) (einotool.InvokableTool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List 按注册顺序返回所有工具
func (r *Registry) List() []einotool.InvokableTool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]einotool.InvokableTool, 0, len(r.order))
	for _, name := range r.order {
		list = append(list, r.tools[name])
	}
	return list
}
