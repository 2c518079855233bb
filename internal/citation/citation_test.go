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

package citation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"travel-agent/internal/agentservice"
)

func urlCitation(placeholder, title string) agentservice.Annotation {
	return agentservice.Annotation{
		Type:        agentservice.AnnotationURLCitation,
		Text:        placeholder,
		URLCitation: &agentservice.URLCitation{URL: "https://example.com/" + title, Title: title},
	}
}

func TestReformat_SingleCitation(t *testing.T) {
	got := Reformat("We carry the X200 suitcase【3:0†source】.", []agentservice.Annotation{
		urlCitation("【3:0†source】", "X200 Product Page"),
	})
	assert.Equal(t, "We carry the X200 suitcase. Source: X200 Product Page", got)
}

func TestReformat_GroupsTitlesInFirstSeenOrder(t *testing.T) {
	text := "Bag A [1] and bag B [2] and bag A again [3]. "
	got := Reformat(text, []agentservice.Annotation{
		urlCitation("[1]", "Catalog A"),
		urlCitation("[2]", "Catalog B"),
		urlCitation("[3]", "Catalog A"),
	})
	assert.Equal(t, "Bag A  and bag B  and bag A again . Source: Catalog A, Catalog B", got)
	assert.Equal(t, 1, strings.Count(got, "Source:"))
}

func TestReformat_RemovesRepeatedPlaceholder(t *testing.T) {
	got := Reformat("a†1 b†1 c†1", []agentservice.Annotation{
		urlCitation("†1", "T"),
		urlCitation("†1", "T"),
	})
	assert.Equal(t, "a b c Source: T", got)
}

func TestReformat_NoURLCitations(t *testing.T) {
	text := "  untouched text [1]  "
	assert.Equal(t, text, Reformat(text, nil))
	assert.Equal(t, text, Reformat(text, []agentservice.Annotation{
		{Type: "file_citation", Text: "[1]"},
	}))
}

func TestReformat_IdempotentWithoutAnnotations(t *testing.T) {
	once := Reformat("Hello [x].", []agentservice.Annotation{urlCitation("[x]", "Doc")})
	assert.Equal(t, once, Reformat(once, nil))
}

func TestSources(t *testing.T) {
	got := Sources([]agentservice.Annotation{
		urlCitation("[1]", "B"),
		{Type: "file_citation", Text: "[9]"},
		urlCitation("[2]", "A"),
		urlCitation("[3]", "B"),
	})
	assert.Equal(t, []string{"B", "A"}, got)
	assert.Empty(t, Sources(nil))
}
