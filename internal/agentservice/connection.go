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

package agentservice

import (
	"fmt"
	"net/url"
	"strings"
)

// ConnectionInfo 项目连接串解析结果
type ConnectionInfo struct {
	Host           string
	SubscriptionID string
	ResourceGroup  string
	ProjectName    string
}

// ParseConnectionString 解析 "<host>;<subscription>;<resource_group>;<project>"
func ParseConnectionString(s string) (ConnectionInfo, error) {
	parts := strings.Split(strings.TrimSpace(s), ";")
	if len(parts) != 4 {
		return ConnectionInfo{}, fmt.Errorf("invalid project connection string: want 4 ';'-separated parts, got %d", len(parts))
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
		if parts[i] == "" {
			return ConnectionInfo{}, fmt.Errorf("invalid project connection string: part %d is empty", i+1)
		}
	}
	host := strings.TrimPrefix(strings.TrimPrefix(parts[0], "https://"), "http://")
	host = strings.TrimSuffix(host, "/")
	return ConnectionInfo{
		Host:           host,
		SubscriptionID: parts[1],
		ResourceGroup:  parts[2],
		ProjectName:    parts[3],
	}, nil
}

// BaseURL 项目下 agents 接口的根地址
func (c ConnectionInfo) BaseURL() string {
	return fmt.Sprintf("https://%s/agents/v1.0/subscriptions/%s/resourceGroups/%s/providers/Microsoft.MachineLearningServices/workspaces/%s",
		c.Host,
		url.PathEscape(c.SubscriptionID),
		url.PathEscape(c.ResourceGroup),
		url.PathEscape(c.ProjectName),
	)
}

// ResolveBaseURL endpoint 非空时优先，否则由连接串推导
func ResolveBaseURL(endpoint, connectionString string) (string, error) {
	if endpoint != "" {
		return strings.TrimSuffix(endpoint, "/"), nil
	}
	if connectionString == "" {
		return "", fmt.Errorf("agent service endpoint or project connection string is required")
	}
	info, err := ParseConnectionString(connectionString)
	if err != nil {
		return "", err
	}
	return info.BaseURL(), nil
}
