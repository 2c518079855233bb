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

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
)

func apiBaseURL() string {
	if u := os.Getenv("TRAVEL_AGENT_API_URL"); u != "" {
		return u
	}
	return "http://localhost:8080"
}

// apiClient 面向 travel-agent HTTP 接口的 CLI 客户端
type apiClient struct {
	http *resty.Client
}

func newClient(baseURL string) *apiClient {
	return &apiClient{http: resty.New().
		SetBaseURL(baseURL).
		SetTimeout(5 * time.Minute).
		SetHeader("Content-Type", "application/json")}
}

type starter struct {
	Label   string `json:"label"`
	Message string `json:"message"`
	Icon    string `json:"icon"`
}

type sessionInfo struct {
	ID       string `json:"id"`
	AgentID  string `json:"agent_id"`
	ThreadID string `json:"thread_id"`
}

type reply struct {
	SessionID string   `json:"session_id"`
	RunID     string   `json:"run_id"`
	Status    string   `json:"status"`
	Response  string   `json:"response"`
	Sources   []string `json:"sources"`
}

type apiError struct {
	Error string `json:"error"`
}

func errorFor(op string, resp *resty.Response) error {
	if e, ok := resp.Error().(*apiError); ok && e.Error != "" {
		return fmt.Errorf("%s: %d %s", op, resp.StatusCode(), e.Error)
	}
	return fmt.Errorf("%s: %d %s", op, resp.StatusCode(), resp.String())
}

// login 在服务端开启鉴权时获取 JWT，之后的请求携带 Bearer token
func (c *apiClient) login(username, password string) error {
	var out struct {
		Token string `json:"token"`
	}
	resp, err := c.http.R().
		SetBody(map[string]string{"username": username, "password": password}).
		SetResult(&out).
		SetError(&apiError{}).
		Post("/api/auth/login")
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusOK {
		return errorFor("POST /api/auth/login", resp)
	}
	c.http.SetAuthToken(out.Token)
	return nil
}

func (c *apiClient) health() (string, error) {
	var out map[string]string
	resp, err := c.http.R().SetResult(&out).Get("/api/health")
	if err != nil {
		return "", err
	}
	if resp.StatusCode() != http.StatusOK {
		return "", errorFor("GET /api/health", resp)
	}
	return out["status"], nil
}

func (c *apiClient) starters() ([]starter, error) {
	var out struct {
		Starters []starter `json:"starters"`
	}
	resp, err := c.http.R().SetResult(&out).SetError(&apiError{}).Get("/api/starters")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, errorFor("GET /api/starters", resp)
	}
	return out.Starters, nil
}

func (c *apiClient) startSession() (*sessionInfo, error) {
	var out sessionInfo
	resp, err := c.http.R().SetResult(&out).SetError(&apiError{}).Post("/api/sessions")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusCreated {
		return nil, errorFor("POST /api/sessions", resp)
	}
	return &out, nil
}

func (c *apiClient) sendMessage(sessionID, message string) (*reply, error) {
	var out reply
	resp, err := c.http.R().
		SetBody(map[string]string{"message": message}).
		SetResult(&out).
		SetError(&apiError{}).
		Post("/api/sessions/" + sessionID + "/messages")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, errorFor("POST /api/sessions/"+sessionID+"/messages", resp)
	}
	return &out, nil
}

func (c *apiClient) transcript(sessionID string) (map[string]interface{}, error) {
	var out map[string]interface{}
	resp, err := c.http.R().SetResult(&out).SetError(&apiError{}).Get("/api/sessions/" + sessionID + "/transcript")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, errorFor("GET /api/sessions/"+sessionID+"/transcript", resp)
	}
	return out, nil
}

func (c *apiClient) endSession(sessionID string) error {
	resp, err := c.http.R().SetError(&apiError{}).Delete("/api/sessions/" + sessionID)
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusNoContent {
		return errorFor("DELETE /api/sessions/"+sessionID, resp)
	}
	return nil
}

func prettyJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
