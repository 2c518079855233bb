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

package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewLoggerWithWriter_JSONAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter(&Config{Level: "warn"}, &buf)
	l.Info("hidden")
	l.Warn("shown", "run_id", "run_1")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"run_id":"run_1"`)
}

func TestNewLoggerWithWriter_Text(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter(&Config{Format: "text"}, &buf)
	l.Named("driver").Info("polling")
	out := buf.String()
	assert.True(t, strings.Contains(out, "component=driver"), out)
	assert.Contains(t, out, "msg=polling")
}

func TestNamed_NilLogger(t *testing.T) {
	var l *Logger
	assert.NotNil(t, l.Named("x"))
}
