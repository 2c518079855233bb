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

// Package citation 把回复中的引用占位符替换为末尾的 "Source:" 列表
package citation

import (
	"strings"

	"travel-agent/internal/agentservice"
)

// Reformat 删除所有 url_citation 占位符，并在末尾追加去重后的来源标题（按首次出现顺序）。
// 没有 url_citation 时原样返回 text。
func Reformat(text string, annotations []agentservice.Annotation) string {
	var titles []string
	placeholders := make(map[string]map[string]struct{})
	for _, a := range annotations {
		if a.Type != agentservice.AnnotationURLCitation || a.URLCitation == nil {
			continue
		}
		title := a.URLCitation.Title
		set, ok := placeholders[title]
		if !ok {
			set = make(map[string]struct{})
			placeholders[title] = set
			titles = append(titles, title)
		}
		set[a.Text] = struct{}{}
	}
	if len(titles) == 0 {
		return text
	}

	for _, set := range placeholders {
		for p := range set {
			if p == "" {
				continue
			}
			text = strings.ReplaceAll(text, p, "")
		}
	}
	return strings.TrimSpace(text) + " Source: " + strings.Join(titles, ", ")
}

// Sources 返回 url_citation 标注的来源标题（去重，按首次出现顺序）
func Sources(annotations []agentservice.Annotation) []string {
	var titles []string
	seen := make(map[string]bool)
	for _, a := range annotations {
		if a.Type != agentservice.AnnotationURLCitation || a.URLCitation == nil {
			continue
		}
		if seen[a.URLCitation.Title] {
			continue
		}
		seen[a.URLCitation.Title] = true
		titles = append(titles, a.URLCitation.Title)
	}
	return titles
}
