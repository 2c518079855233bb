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

package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// 全局 Registry，供 API 注册与暴露
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		RunTotal, RunDuration, RunPolls,
		ToolCallTotal, ToolDuration,
		AgentServiceRequestTotal, AgentServiceRequestDuration,
		SessionsActive, MessagesTotal,
	)
}

// RunTotal Run 总数（按终态）
var RunTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "travel_agent_run_total",
		Help: "Run 总数（按终态）",
	},
	[]string{"status"}, // completed | failed | cancelled | incomplete | error
)

// RunDuration 单轮对话（创建消息到拿到回复）耗时（秒）
var RunDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "travel_agent_run_duration_seconds",
		Help:    "单轮对话耗时（秒）",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	},
	[]string{"status"},
)

// RunPolls 每个 Run 的状态轮询次数
var RunPolls = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "travel_agent_run_polls",
		Help:    "每个 Run 的状态轮询次数",
		Buckets: prometheus.LinearBuckets(1, 2, 10),
	},
)

// ToolCallTotal 工具调用总数（按工具与结果）
var ToolCallTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "travel_agent_tool_call_total",
		Help: "工具调用总数",
	},
	[]string{"tool", "outcome"}, // ok | error
)

// ToolDuration 工具调用耗时（秒）
var ToolDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "travel_agent_tool_duration_seconds",
		Help:    "工具调用耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"tool"},
)

// AgentServiceRequestTotal 访问托管 Agent 服务的请求数（按操作与状态码）
var AgentServiceRequestTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "travel_agent_service_request_total",
		Help: "托管 Agent 服务请求数",
	},
	[]string{"op", "code"},
)

// AgentServiceRequestDuration 访问托管 Agent 服务的耗时（秒）
var AgentServiceRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "travel_agent_service_request_duration_seconds",
		Help:    "托管 Agent 服务请求耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"op"},
)

// SessionsActive 当前活跃会话数
var SessionsActive = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "travel_agent_sessions_active",
		Help: "当前活跃会话数",
	},
)

// MessagesTotal 收到的用户消息数（按处理结果）
var MessagesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "travel_agent_messages_total",
		Help: "用户消息总数",
	},
	[]string{"result"}, // ok | rejected | error
)

// WritePrometheus 将 Prometheus 文本格式写入 w（供 Hertz 等复用）
func WritePrometheus(w io.Writer) error {
	metrics, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range metrics {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
