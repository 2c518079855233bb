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

import "time"

// Message 会话内的一条对话消息
type Message struct {
	Role      string    `json:"role"` // user | assistant
	Content   string    `json:"content"`
	RunID     string    `json:"run_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ToolCallRecord 一次已提交的工具调用结果
type ToolCallRecord struct {
	RunID      string    `json:"run_id"`
	ToolCallID string    `json:"tool_call_id"`
	Output     string    `json:"output"`
	At         time.Time `json:"at"`
}
