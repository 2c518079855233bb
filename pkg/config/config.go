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

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置结构体
type Config struct {
	API          APIConfig          `mapstructure:"api"`
	AgentService AgentServiceConfig `mapstructure:"agent_service"`
	Agent        AgentConfig        `mapstructure:"agent"`
	Run          RunConfig          `mapstructure:"run"`
	Session      SessionConfig      `mapstructure:"session"`
	Transcript   TranscriptConfig   `mapstructure:"transcript"`
	Secrets      SecretsConfig      `mapstructure:"secrets"`
	Log          LogConfig          `mapstructure:"log"`
	Monitoring   MonitoringConfig   `mapstructure:"monitoring"`
}

// APIConfig API 服务配置
type APIConfig struct {
	Port       int              `mapstructure:"port"`
	Host       string           `mapstructure:"host"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Middleware MiddlewareConfig `mapstructure:"middleware"`
	Grpc       GrpcConfig       `mapstructure:"grpc"`
}

// GrpcConfig gRPC 服务配置
type GrpcConfig struct {
	Enable bool `mapstructure:"enable"`
	Port   int  `mapstructure:"port"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	Enable       bool     `mapstructure:"enable"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// MiddlewareConfig 中间件配置
type MiddlewareConfig struct {
	Auth          bool              `mapstructure:"auth"`
	RateLimit     bool              `mapstructure:"rate_limit"`
	RateLimitRPS  int               `mapstructure:"rate_limit_rps"`
	JWTKey        string            `mapstructure:"jwt_key"`
	JWTTimeout    string            `mapstructure:"jwt_timeout"`     // 如 "1h"
	JWTMaxRefresh string            `mapstructure:"jwt_max_refresh"` // 如 "1h"
	Users         map[string]string `mapstructure:"users"`           // 登录用户名 -> 密码，仅 demo 使用
}

// AgentServiceConfig 托管 Agent 服务连接配置
type AgentServiceConfig struct {
	// ConnectionString 形如 "<host>;<subscription>;<resource_group>;<project>"
	ConnectionString  string       `mapstructure:"connection_string"`
	Endpoint          string       `mapstructure:"endpoint"` // 非空时覆盖由 ConnectionString 推导的地址
	APIVersion        string       `mapstructure:"api_version"`
	TokenSecret       string       `mapstructure:"token_secret"` // secrets store 中 bearer token 的 key
	Timeout           string       `mapstructure:"timeout"`
	RetryCount        int          `mapstructure:"retry_count"`
	RequestsPerSecond float64      `mapstructure:"requests_per_second"`
	Burst             int          `mapstructure:"burst"`
	Search            SearchConfig `mapstructure:"search"`
}

// SearchConfig 托管搜索索引配置（由远端 Agent 调用，本地只负责声明）
type SearchConfig struct {
	ConnectionID string `mapstructure:"connection_id"`
	IndexName    string `mapstructure:"index_name"`
	QueryType    string `mapstructure:"query_type"`
	TopK         int    `mapstructure:"top_k"`
}

// AgentConfig 每个会话创建的远端 Agent 定义
type AgentConfig struct {
	Model        string `mapstructure:"model"`
	Name         string `mapstructure:"name"`
	Instructions string `mapstructure:"instructions"`
}

// RunConfig Run 轮询配置
type RunConfig struct {
	PollInterval string `mapstructure:"poll_interval"` // 默认 1s
	Timeout      string `mapstructure:"timeout"`       // 空或 0 表示不限
}

// SessionConfig 会话存储配置
type SessionConfig struct {
	Store      string `mapstructure:"store"` // memory | redis
	Addr       string `mapstructure:"addr"`
	DB         int    `mapstructure:"db"`
	Password   string `mapstructure:"password"`
	KeyPrefix  string `mapstructure:"key_prefix"`
	TTL        string `mapstructure:"ttl"`
	RunLockTTL string `mapstructure:"run_lock_ttl"`
}

// TranscriptConfig 对话记录存储配置
type TranscriptConfig struct {
	Type string `mapstructure:"type"` // memory | postgres
	DSN  string `mapstructure:"dsn"`  // Postgres 连接串，type=postgres 时必填
}

// SecretsConfig Secret Store 配置
type SecretsConfig struct {
	Provider string            `mapstructure:"provider"` // env | memory | vault
	Vault    VaultConfig       `mapstructure:"vault"`
	Values   map[string]string `mapstructure:"values"` // provider=memory 时使用，仅 demo/测试
}

// VaultConfig Vault 配置
type VaultConfig struct {
	Address    string `mapstructure:"address"`
	Token      string `mapstructure:"token"`
	PathPrefix string `mapstructure:"path_prefix"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// MonitoringConfig 监控配置
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// TracingConfig 链路追踪配置（OpenTelemetry）
type TracingConfig struct {
	Enable         bool   `mapstructure:"enable"`
	ServiceName    string `mapstructure:"service_name"`
	ExportEndpoint string `mapstructure:"export_endpoint"`
	Insecure       bool   `mapstructure:"insecure"`
}

// PrometheusConfig Prometheus 配置
type PrometheusConfig struct {
	Enable bool `mapstructure:"enable"`
}

// DefaultInstructions 旅行助手的默认系统提示
const DefaultInstructions = `You are an AI Travel Agent.
You will answer questions about travel based on the tools provided.
When asked questions about products, you will use the Azure AI Search tool to find relevant products.`

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.grpc.port", 9090)
	v.SetDefault("api.middleware.rate_limit_rps", 20)
	v.SetDefault("agent_service.api_version", "2024-12-01-preview")
	v.SetDefault("agent_service.token_secret", "AGENT_SERVICE_TOKEN")
	v.SetDefault("agent_service.timeout", "30s")
	v.SetDefault("agent_service.retry_count", 3)
	v.SetDefault("agent_service.requests_per_second", 10)
	v.SetDefault("agent_service.burst", 5)
	v.SetDefault("agent_service.search.index_name", "travel-product-index")
	v.SetDefault("agent_service.search.query_type", "vector_semantic_hybrid")
	v.SetDefault("agent_service.search.top_k", 5)
	v.SetDefault("agent.model", "gpt-4o-mini")
	v.SetDefault("agent.name", "my-chainlit-agent")
	v.SetDefault("agent.instructions", DefaultInstructions)
	v.SetDefault("run.poll_interval", "1s")
	v.SetDefault("session.store", "memory")
	v.SetDefault("session.key_prefix", "travel-agent:session:")
	v.SetDefault("session.ttl", "24h")
	v.SetDefault("session.run_lock_ttl", "10m")
	v.SetDefault("transcript.type", "memory")
	v.SetDefault("secrets.provider", "env")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// LoadConfig 加载配置文件；configPath 为空时只使用默认值与环境变量
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	// 兼容 PROJECT_* 环境变量名
	_ = v.BindEnv("agent_service.connection_string", "PROJECT_CONNECTION_STRING")
	_ = v.BindEnv("agent_service.search.connection_id", "PROJECT_CONNECTION_ID_AZURE_AI_SEARCH")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("无法读取配置文件: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("无法解析配置文件: %w", err)
	}

	replaceEnvVars(&config)
	return &config, nil
}

// LoadAPIConfig 加载 API 配置；CONFIG_PATH 未设置时读取 configs/api.yaml（文件不存在则仅用默认值）
func LoadAPIConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "configs/api.yaml"
		if _, err := os.Stat(path); err != nil {
			path = ""
		}
	}
	return LoadConfig(path)
}

// replaceEnvVars 替换配置中形如 ${VAR} 的值
func replaceEnvVars(config *Config) {
	for _, p := range []*string{
		&config.AgentService.ConnectionString,
		&config.AgentService.Endpoint,
		&config.AgentService.Search.ConnectionID,
		&config.Session.Password,
		&config.Transcript.DSN,
		&config.Secrets.Vault.Token,
		&config.API.Middleware.JWTKey,
	} {
		*p = expandEnv(*p)
	}
}

func expandEnv(s string) string {
	if !strings.HasPrefix(s, "${") || !strings.HasSuffix(s, "}") {
		return s
	}
	envVar := strings.TrimSuffix(strings.TrimPrefix(s, "${"), "}")
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return s
}

// ParseDuration 解析时长字符串，无效或空时返回 defaultVal
func ParseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}
