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

package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzslog "github.com/hertz-contrib/logger/slog"
	"github.com/hertz-contrib/jwt"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"google.golang.org/grpc"

	apigrpc "travel-agent/internal/api/grpc"
	"travel-agent/internal/api/http"
	"travel-agent/internal/api/http/middleware"
	"travel-agent/internal/app"
	pkgconfig "travel-agent/pkg/config"
	"travel-agent/pkg/log"
	"travel-agent/pkg/tracing"
)

// otelProviderShutdown 用于优雅关闭时关闭 OpenTelemetry provider
type otelProviderShutdown interface {
	Shutdown(ctx context.Context) error
}

// App API 应用（装配 HTTP Router、Handler、Middleware 与可选的 gRPC 服务）
type App struct {
	bootstrap    *app.Bootstrap
	router       *http.Router
	hertz        *server.Hertz
	grpcServer   *grpcRun
	otelProvider otelProviderShutdown
}

type grpcRun struct {
	srv *grpc.Server
	lis net.Listener
}

// GracefulStop 停止接收新请求并等待进行中的调用结束
func (g *grpcRun) GracefulStop() {
	if g.srv != nil {
		g.srv.GracefulStop()
	}
}

// NewApp 根据 Bootstrap 装配 HTTP 路由；api.grpc.enable 时同时启动 gRPC
func NewApp(bootstrap *app.Bootstrap) (*App, error) {
	if bootstrap == nil || bootstrap.Chat == nil {
		return nil, fmt.Errorf("bootstrap is not initialized")
	}
	cfg := bootstrap.Config
	if cfg == nil {
		cfg = &pkgconfig.Config{}
	}

	mw := middleware.NewMiddleware(middlewareOptions(cfg, bootstrap.Logger))
	handler := http.NewHandler(bootstrap.Chat, bootstrap.Logger)
	router := http.NewRouter(handler, mw)

	if cfg.API.Middleware.Auth {
		authMW, err := newJWT(cfg.API.Middleware)
		if err != nil {
			return nil, err
		}
		router.SetJWT(authMW)
	}

	a := &App{bootstrap: bootstrap, router: router}
	if cfg.API.Grpc.Enable && cfg.API.Grpc.Port > 0 {
		gs, err := startGRPC(bootstrap.Chat, cfg.API.Grpc.Port)
		if err != nil {
			bootstrap.Logger.Warn("gRPC 服务启动失败", "error", err)
		} else {
			a.grpcServer = gs
			bootstrap.Logger.Info("gRPC 服务已启动", "port", cfg.API.Grpc.Port)
		}
	}
	return a, nil
}

func middlewareOptions(cfg *pkgconfig.Config, logger *log.Logger) middleware.Options {
	opts := middleware.Options{Logger: logger}
	if cfg.API.CORS.Enable {
		opts.AllowOrigins = cfg.API.CORS.AllowOrigins
	}
	if cfg.API.Middleware.RateLimit {
		opts.RateLimitRPS = cfg.API.Middleware.RateLimitRPS
	}
	return opts
}

func newJWT(cfg pkgconfig.MiddlewareConfig) (*jwt.HertzJWTMiddleware, error) {
	if cfg.JWTKey == "" {
		return nil, fmt.Errorf("api.middleware.auth 已开启但 jwt_key 为空")
	}
	if len(cfg.Users) == 0 {
		return nil, fmt.Errorf("api.middleware.auth 已开启但未配置 users")
	}
	return middleware.NewJWTAuth(
		[]byte(cfg.JWTKey),
		pkgconfig.ParseDuration(cfg.JWTTimeout, time.Hour),
		pkgconfig.ParseDuration(cfg.JWTMaxRefresh, time.Hour),
		cfg.Users,
	)
}

// Run 启动 HTTP 服务，addr 如 ":8080"；阻塞直到服务关闭
func (a *App) Run(addr string) error {
	a.bootstrap.Logger.Info("API 服务启动", "addr", addr)
	cfg := a.bootstrap.Config
	if cfg == nil {
		cfg = &pkgconfig.Config{}
	}

	// 使用 Hertz slog 扩展，与 bootstrap 日志配置对齐
	output := os.Stdout
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("打开日志文件失败: %w", err)
		}
		output = f
	}
	hertzLogger := hertzslog.NewLogger(
		hertzslog.WithOutput(output),
		hertzslog.WithLevel(levelVar(cfg.Log.Level)),
	)
	hlog.SetLogger(hertzLogger)

	var opts []config.Option
	tracingEnabled := false
	if tc := cfg.Monitoring.Tracing; tc.Enable {
		serviceName := tc.ServiceName
		if serviceName == "" {
			serviceName = "travel-agent-api"
		}
		endpoint := tc.ExportEndpoint
		if endpoint == "" {
			endpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
		}
		if endpoint != "" {
			tp, err := tracing.InitTracer(tracing.OTelConfig{
				ServiceName:    serviceName,
				ExportEndpoint: endpoint,
				Insecure:       tc.Insecure,
			})
			if err != nil {
				a.bootstrap.Logger.Warn("链路追踪初始化失败", "error", err)
			} else {
				a.otelProvider = tp
				tracerOpt, tcfg := hertztracing.NewServerTracer()
				opts = append(opts, tracerOpt)
				a.hertz = a.router.Build(addr, opts...)
				a.hertz.Use(hertztracing.ServerMiddleware(tcfg))
				tracingEnabled = true
				a.bootstrap.Logger.Info("链路追踪已启用", "service_name", serviceName, "endpoint", endpoint)
			}
		}
	}
	if !tracingEnabled {
		a.hertz = a.router.Build(addr, opts...)
	}
	return a.hertz.Run()
}

func levelVar(level string) *slog.LevelVar {
	v := &slog.LevelVar{}
	v.Set(log.ParseLevel(level))
	return v
}

// Shutdown 优雅关闭（传入 ctx 以支持超时，如 cmd 层 WithTimeout）；最后结束全部会话并释放存储
func (a *App) Shutdown(ctx context.Context) error {
	if a.grpcServer != nil {
		a.grpcServer.GracefulStop()
	}
	var err error
	if a.hertz != nil {
		err = a.hertz.Shutdown(ctx)
	}
	if a.otelProvider != nil {
		_ = a.otelProvider.Shutdown(ctx)
	}
	a.bootstrap.Close()
	return err
}

// startGRPC 创建并启动 gRPC 服务（在 goroutine 中 Serve），返回 grpcRun 以便 Shutdown 时 GracefulStop
func startGRPC(chat apigrpc.ChatService, port int) (*grpcRun, error) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, err
	}
	srv := grpc.NewServer()
	apigrpc.NewServer(chat).Register(srv)
	go func() {
		_ = srv.Serve(lis)
	}()
	return &grpcRun{srv: srv, lis: lis}, nil
}
