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

// Package tool 旅行助手的本地工具：mock 数据查询函数及其 eino 封装
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"

	"travel-agent/internal/agentservice"
	"travel-agent/pkg/metrics"
	"travel-agent/pkg/tracing"
)

const (
	NameFetchWeather    = "fetch_weather"
	NameFetchRestaurant = "fetch_restaurant"
	NameFetchBudget     = "fetch_budget"
)

type locationInput struct {
	Location string `json:"location" jsonschema:"description=The location to fetch the information for."`
}

type noInput struct{}

// SearchConfig 托管搜索工具声明
type SearchConfig struct {
	ConnectionID string
	IndexName    string
	QueryType    string
	TopK         int
}

// Toolset 本地工具集合：执行远端请求的工具调用并对外声明工具定义
type Toolset struct {
	registry *Registry
	search   SearchConfig
}

// 测试中可替换，用于模拟工具创建失败
var inferLocationTool = func(name, desc string, fn func(context.Context, locationInput) (string, error)) (einotool.InvokableTool, error) {
	return utils.InferTool(name, desc, fn)
}

// NewToolset 注册三个 mock 工具；search.ConnectionID 为空时不声明托管搜索
func NewToolset(ctx context.Context, search SearchConfig) (*Toolset, error) {
	weather, err := inferLocationTool(NameFetchWeather,
		"Fetches the weather information for the specified location.",
		func(ctx context.Context, in locationInput) (string, error) {
			return FetchWeather(in.Location), nil
		})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", NameFetchWeather, err)
	}
	restaurant, err := inferLocationTool(NameFetchRestaurant,
		"Fetches the restaurant information for the specified location.",
		func(ctx context.Context, in locationInput) (string, error) {
			return FetchRestaurant(in.Location), nil
		})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", NameFetchRestaurant, err)
	}
	budget, err := utils.InferTool(NameFetchBudget,
		"Fetches the budget information for the specified location.",
		func(ctx context.Context, _ noInput) (string, error) {
			return FetchBudget(), nil
		})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", NameFetchBudget, err)
	}

	reg := NewRegistry()
	for _, t := range []einotool.InvokableTool{weather, restaurant, budget} {
		if err := reg.Register(ctx, t); err != nil {
			return nil, err
		}
	}
	return &Toolset{registry: reg, search: search}, nil
}

// Execute 按函数名分发一次工具调用，返回工具输出
func (s *Toolset) Execute(ctx context.Context, call agentservice.ToolCall) (out string, err error) {
	name := call.Function.Name
	ctx, span := tracing.StartToolSpan(ctx, name, call.ID)
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.ToolCallTotal.WithLabelValues(name, outcome).Inc()
		metrics.ToolDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		tracing.EndWithError(span, err)
	}()

	if call.Type != "" && call.Type != agentservice.ToolTypeFunction {
		return "", fmt.Errorf("unsupported tool call type %q", call.Type)
	}
	t, ok := s.registry.Get(name)
	if !ok {
		return "", fmt.Errorf("unknown tool %q", name)
	}
	args := strings.TrimSpace(call.Function.Arguments)
	if args == "" {
		args = "{}"
	}
	return t.InvokableRun(ctx, args)
}

// Names 已注册的工具名（注册顺序）
func (s *Toolset) Names() []string {
	list := s.registry.List()
	names := make([]string, 0, len(list))
	for _, t := range list {
		info, err := t.Info(context.Background())
		if err != nil {
			continue
		}
		names = append(names, info.Name)
	}
	return names
}

// Definitions 创建 Agent 时使用的工具声明与工具资源
func (s *Toolset) Definitions(ctx context.Context) ([]agentservice.ToolDefinition, *agentservice.ToolResources, error) {
	var defs []agentservice.ToolDefinition
	for _, t := range s.registry.List() {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, nil, err
		}
		params := json.RawMessage(`{"type":"object","properties":{}}`)
		if info.ParamsOneOf != nil {
			js, err := info.ParamsOneOf.ToJSONSchema()
			if err != nil {
				return nil, nil, fmt.Errorf("schema of %s: %w", info.Name, err)
			}
			if js != nil {
				raw, err := json.Marshal(js)
				if err != nil {
					return nil, nil, fmt.Errorf("schema of %s: %w", info.Name, err)
				}
				params = raw
			}
		}
		defs = append(defs, agentservice.ToolDefinition{
			Type: agentservice.ToolTypeFunction,
			Function: &agentservice.FunctionDefinition{
				Name:        info.Name,
				Description: info.Desc,
				Parameters:  params,
			},
		})
	}

	if s.search.ConnectionID == "" {
		return defs, nil, nil
	}
	defs = append(defs, agentservice.ToolDefinition{Type: agentservice.ToolTypeAzureAISearch})
	res := &agentservice.ToolResources{
		AzureAISearch: &agentservice.SearchResource{
			Indexes: []agentservice.SearchIndex{{
				IndexConnectionID: s.search.ConnectionID,
				IndexName:         s.search.IndexName,
				QueryType:         s.search.QueryType,
				TopK:              s.search.TopK,
			}},
		},
	}
	return defs, res, nil
}
