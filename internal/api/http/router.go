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

package http

import (
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/config"
	"github.com/hertz-contrib/jwt"

	"travel-agent/internal/api/http/middleware"
)

// Router HTTP 路由器
type Router struct {
	handler    *Handler
	middleware *middleware.Middleware
	jwt        *jwt.HertzJWTMiddleware
}

// NewRouter 创建新的 HTTP 路由器
func NewRouter(handler *Handler, mw *middleware.Middleware) *Router {
	return &Router{handler: handler, middleware: mw}
}

// SetJWT 启用 JWT；/api/sessions 下的路由需要 Bearer token
func (r *Router) SetJWT(m *jwt.HertzJWTMiddleware) {
	r.jwt = m
}

// Build 创建 Hertz 服务并注册路由，addr 如 ":8080"
func (r *Router) Build(addr string, opts ...config.Option) *server.Hertz {
	opts = append([]config.Option{server.WithHostPorts(addr)}, opts...)
	h := server.Default(opts...)
	h.Use(r.middleware.AccessLog(), r.middleware.CORS(), r.middleware.RateLimit())

	h.GET("/metrics", r.handler.Metrics)

	api := h.Group("/api")
	api.GET("/health", r.handler.HealthCheck)
	api.GET("/starters", r.handler.Starters)

	if r.jwt != nil {
		auth := api.Group("/auth")
		auth.POST("/login", r.jwt.LoginHandler)
		auth.POST("/refresh", r.jwt.RefreshHandler)
	}

	var guards []app.HandlerFunc
	if r.jwt != nil {
		guards = append(guards, r.jwt.MiddlewareFunc())
	}
	sessions := api.Group("/sessions", guards...)
	sessions.POST("", r.handler.StartSession)
	sessions.GET("/:id", r.handler.GetSession)
	sessions.POST("/:id/messages", r.handler.SendMessage)
	sessions.GET("/:id/transcript", r.handler.Transcript)
	sessions.DELETE("/:id", r.handler.EndSession)

	return h
}
