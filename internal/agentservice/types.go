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

// Package agentservice 托管 Agent 服务（assistants 风格 REST 接口）的客户端与数据模型
package agentservice

import "encoding/json"

// RunStatus 远端 Run 的状态
type RunStatus string

const (
	RunStatusQueued         RunStatus = "queued"
	RunStatusInProgress     RunStatus = "in_progress"
	RunStatusRequiresAction RunStatus = "requires_action"
	RunStatusCancelling     RunStatus = "cancelling"
	RunStatusCancelled      RunStatus = "cancelled"
	RunStatusFailed         RunStatus = "failed"
	RunStatusCompleted      RunStatus = "completed"
	RunStatusExpired        RunStatus = "expired"
	RunStatusIncomplete     RunStatus = "incomplete"
)

// Continuing 是否需要继续轮询（queued / in_progress / requires_action）
func (s RunStatus) Continuing() bool {
	switch s {
	case RunStatusQueued, RunStatusInProgress, RunStatusRequiresAction:
		return true
	}
	return false
}

const (
	// RequiredActionSubmitToolOutputs required_action.type 唯一被处理的取值
	RequiredActionSubmitToolOutputs = "submit_tool_outputs"
	// ToolTypeFunction 函数工具
	ToolTypeFunction = "function"
	// ToolTypeAzureAISearch 托管搜索工具
	ToolTypeAzureAISearch = "azure_ai_search"
	// AnnotationURLCitation 带 URL 的引用标注
	AnnotationURLCitation = "url_citation"
	// ContentTypeText 文本内容块
	ContentTypeText = "text"
)

// Agent 远端 Agent
type Agent struct {
	ID           string `json:"id"`
	Name         string `json:"name,omitempty"`
	Model        string `json:"model,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

// Thread 远端会话线程
type Thread struct {
	ID string `json:"id"`
}

// FunctionDefinition 函数工具声明
type FunctionDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// ToolDefinition 创建 Agent 时声明的工具
type ToolDefinition struct {
	Type     string              `json:"type"`
	Function *FunctionDefinition `json:"function,omitempty"`
}

// SearchIndex 托管搜索索引引用
type SearchIndex struct {
	IndexConnectionID string `json:"index_connection_id"`
	IndexName         string `json:"index_name"`
	QueryType         string `json:"query_type,omitempty"`
	TopK              int    `json:"top_k,omitempty"`
}

// SearchResource azure_ai_search 工具资源
type SearchResource struct {
	Indexes []SearchIndex `json:"indexes"`
}

// ToolResources 工具依赖的资源
type ToolResources struct {
	AzureAISearch *SearchResource `json:"azure_ai_search,omitempty"`
}

// CreateAgentRequest POST /assistants 请求体
type CreateAgentRequest struct {
	Model         string           `json:"model"`
	Name          string           `json:"name,omitempty"`
	Instructions  string           `json:"instructions,omitempty"`
	Tools         []ToolDefinition `json:"tools,omitempty"`
	ToolResources *ToolResources   `json:"tool_resources,omitempty"`
}

// FunctionCall 工具调用中的函数名与 JSON 参数
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolCall 远端请求的一次工具调用
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// ToolOutput 一次工具调用的结果
type ToolOutput struct {
	ToolCallID string `json:"tool_call_id"`
	Output     string `json:"output"`
}

// SubmitToolOutputs required_action 中待提交的工具调用
type SubmitToolOutputs struct {
	ToolCalls []ToolCall `json:"tool_calls"`
}

// RequiredAction Run 处于 requires_action 时附带的动作
type RequiredAction struct {
	Type              string             `json:"type"`
	SubmitToolOutputs *SubmitToolOutputs `json:"submit_tool_outputs,omitempty"`
}

// RunError Run 的 last_error
type RunError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Run 远端 Run
type Run struct {
	ID             string          `json:"id"`
	ThreadID       string          `json:"thread_id,omitempty"`
	AgentID        string          `json:"assistant_id,omitempty"`
	Status         RunStatus       `json:"status"`
	RequiredAction *RequiredAction `json:"required_action,omitempty"`
	LastError      *RunError       `json:"last_error,omitempty"`
}

// PendingToolCalls 返回 submit_tool_outputs 动作中的调用；ok 为 false 表示不是该类动作
func (r *Run) PendingToolCalls() (calls []ToolCall, ok bool) {
	if r == nil || r.RequiredAction == nil || r.RequiredAction.Type != RequiredActionSubmitToolOutputs {
		return nil, false
	}
	if r.RequiredAction.SubmitToolOutputs == nil {
		return nil, true
	}
	return r.RequiredAction.SubmitToolOutputs.ToolCalls, true
}

// URLCitation url_citation 标注的目标
type URLCitation struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Annotation 文本中的引用标注；Text 为正文中的占位符
type Annotation struct {
	Type        string       `json:"type"`
	Text        string       `json:"text"`
	StartIndex  int          `json:"start_index,omitempty"`
	EndIndex    int          `json:"end_index,omitempty"`
	URLCitation *URLCitation `json:"url_citation,omitempty"`
}

// TextContent 文本内容
type TextContent struct {
	Value       string       `json:"value"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

// ContentBlock 消息内容块
type ContentBlock struct {
	Type string       `json:"type"`
	Text *TextContent `json:"text,omitempty"`
}

// Message 线程中的消息
type Message struct {
	ID       string         `json:"id"`
	ThreadID string         `json:"thread_id,omitempty"`
	Role     string         `json:"role"`
	Content  []ContentBlock `json:"content"`
}

// FirstText 返回第一个文本块
func (m *Message) FirstText() (*TextContent, bool) {
	if m == nil {
		return nil, false
	}
	for _, c := range m.Content {
		if c.Type == ContentTypeText && c.Text != nil {
			return c.Text, true
		}
	}
	return nil, false
}

// MessageList GET /threads/{id}/messages 响应
type MessageList struct {
	Data []Message `json:"data"`
}

type createMessageRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type createRunRequest struct {
	AgentID string `json:"assistant_id"`
}

type submitToolOutputsRequest struct {
	ToolOutputs []ToolOutput `json:"tool_outputs"`
}

type errorEnvelope struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
