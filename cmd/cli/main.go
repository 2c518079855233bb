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
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"travel-agent/pkg/config"
)

const version = "travel-agent cli 0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}
	cmd := os.Args[1]
	args := os.Args[2:]
	client := newClient(apiBaseURL())
	if user := os.Getenv("TRAVEL_AGENT_USER"); user != "" && cmd != "version" && cmd != "config" && cmd != "health" {
		if err := client.login(user, os.Getenv("TRAVEL_AGENT_PASSWORD")); err != nil {
			fmt.Fprintf(os.Stderr, "登录失败: %v\n", err)
			os.Exit(1)
		}
	}
	switch cmd {
	case "version":
		fmt.Println(version)
	case "health":
		exitOnError(runHealth(client, os.Stdout))
	case "config":
		runConfig()
	case "server":
		if len(args) > 0 && args[0] == "start" {
			runServerStart()
		} else {
			fmt.Fprintf(os.Stderr, "Usage: travel-agent server start\n")
			os.Exit(1)
		}
	case "starters":
		exitOnError(runStarters(client, os.Stdout))
	case "chat":
		exitOnError(runChat(client, os.Stdin, os.Stdout))
	case "transcript":
		if len(args) < 1 {
			fmt.Fprintf(os.Stderr, "Usage: travel-agent transcript <session_id>\n")
			os.Exit(1)
		}
		exitOnError(runTranscript(client, args[0], os.Stdout))
	case "end":
		if len(args) < 1 {
			fmt.Fprintf(os.Stderr, "Usage: travel-agent end <session_id>\n")
			os.Exit(1)
		}
		exitOnError(client.endSession(args[0]))
	default:
		printUsage()
		os.Exit(1)
	}
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: travel-agent <command> [args]")
	fmt.Println("  version               - 显示版本")
	fmt.Println("  health                - 健康检查")
	fmt.Println("  config                - 显示配置概要")
	fmt.Println("  server start          - 启动 API 服务（go run ./cmd/api）")
	fmt.Println("  starters              - 列出快捷提问")
	fmt.Println("  chat                  - 交互式对话；输入 /1../6 发送快捷提问，exit 结束会话")
	fmt.Println("  transcript <session>  - 输出会话逐轮记录")
	fmt.Println("  end <session>         - 结束会话")
	fmt.Println("环境变量: TRAVEL_AGENT_API_URL, TRAVEL_AGENT_USER, TRAVEL_AGENT_PASSWORD")
}

func runConfig() {
	cfg, err := config.LoadAPIConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("api.port=%d\n", cfg.API.Port)
	fmt.Printf("api.host=%s\n", cfg.API.Host)
	fmt.Printf("agent.model=%s\n", cfg.Agent.Model)
	fmt.Printf("session.store=%s\n", cfg.Session.Store)
	fmt.Printf("transcript.type=%s\n", cfg.Transcript.Type)
}

func runServerStart() {
	c := exec.Command("go", "run", "./cmd/api")
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	c.Dir = "."
	if err := c.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "server start: %v\n", err)
		os.Exit(1)
	}
}

func runHealth(c *apiClient, out io.Writer) error {
	status, err := c.health()
	if err != nil {
		return err
	}
	fmt.Fprintln(out, status)
	return nil
}

func runStarters(c *apiClient, out io.Writer) error {
	starters, err := c.starters()
	if err != nil {
		return err
	}
	for i, s := range starters {
		fmt.Fprintf(out, "/%d  %s: %s\n", i+1, s.Label, s.Message)
	}
	return nil
}

func runTranscript(c *apiClient, sessionID string, out io.Writer) error {
	t, err := c.transcript(sessionID)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, prettyJSON(t))
	return nil
}

// runChat 开启会话并逐行发送消息；输入结束或 exit 时结束会话
func runChat(c *apiClient, in io.Reader, out io.Writer) error {
	starters, err := c.starters()
	if err != nil {
		return err
	}
	sess, err := c.startSession()
	if err != nil {
		return err
	}
	defer func() {
		if err := c.endSession(sess.ID); err != nil {
			fmt.Fprintf(out, "结束会话失败: %v\n", err)
		}
	}()
	fmt.Fprintf(out, "session: %s\n", sess.ID)
	for i, s := range starters {
		fmt.Fprintf(out, "/%d  %s\n", i+1, s.Label)
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		msg := strings.TrimSpace(scanner.Text())
		if msg == "" {
			continue
		}
		if msg == "exit" || msg == "quit" {
			break
		}
		msg = expandStarter(msg, starters)
		r, err := c.sendMessage(sess.ID, msg)
		if err != nil {
			fmt.Fprintf(out, "发送失败: %v\n", err)
			continue
		}
		fmt.Fprintln(out, r.Response)
	}
	return scanner.Err()
}

// expandStarter 将 "/N" 替换为第 N 个快捷提问的内容
func expandStarter(msg string, starters []starter) string {
	if !strings.HasPrefix(msg, "/") {
		return msg
	}
	var n int
	if _, err := fmt.Sscanf(msg, "/%d", &n); err != nil || n < 1 || n > len(starters) {
		return msg
	}
	return starters[n-1].Message
}
