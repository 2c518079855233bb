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

package tool

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travel-agent/internal/agentservice"
)

func newTestToolset(t *testing.T, search SearchConfig) *Toolset {
	t.Helper()
	ts, err := NewToolset(context.Background(), search)
	require.NoError(t, err)
	return ts
}

func functionCall(id, name, args string) agentservice.ToolCall {
	return agentservice.ToolCall{
		ID:       id,
		Type:     agentservice.ToolTypeFunction,
		Function: agentservice.FunctionCall{Name: name, Arguments: args},
	}
}

func TestToolset_Execute(t *testing.T) {
	ts := newTestToolset(t, SearchConfig{})
	ctx := context.Background()

	out, err := ts.Execute(ctx, functionCall("c1", NameFetchWeather, `{"location":"London"}`))
	require.NoError(t, err)
	assert.Equal(t, FetchWeather("London"), out)

	out, err = ts.Execute(ctx, functionCall("c2", NameFetchRestaurant, `{"location":"Atlantis"}`))
	require.NoError(t, err)
	assert.Equal(t, FetchRestaurant("Atlantis"), out)

	out, err = ts.Execute(ctx, functionCall("c3", NameFetchBudget, ""))
	require.NoError(t, err)
	assert.Equal(t, FetchBudget(), out)
}

func TestToolset_ExecuteErrors(t *testing.T) {
	ts := newTestToolset(t, SearchConfig{})
	ctx := context.Background()

	_, err := ts.Execute(ctx, functionCall("c1", "fetch_flights", `{}`))
	assert.ErrorContains(t, err, "unknown tool")

	_, err = ts.Execute(ctx, functionCall("c2", NameFetchWeather, `{"location":`))
	assert.Error(t, err)

	call := functionCall("c3", NameFetchWeather, `{"location":"Tokyo"}`)
	call.Type = "code_interpreter"
	_, err = ts.Execute(ctx, call)
	assert.ErrorContains(t, err, "unsupported tool call type")
}

func TestToolset_Definitions(t *testing.T) {
	ts := newTestToolset(t, SearchConfig{})
	defs, res, err := ts.Definitions(context.Background())
	require.NoError(t, err)
	assert.Nil(t, res)
	require.Len(t, defs, 3)
	assert.Equal(t, []string{NameFetchWeather, NameFetchRestaurant, NameFetchBudget}, ts.Names())

	weather := defs[0]
	assert.Equal(t, agentservice.ToolTypeFunction, weather.Type)
	require.NotNil(t, weather.Function)
	assert.Equal(t, NameFetchWeather, weather.Function.Name)
	assert.NotEmpty(t, weather.Function.Description)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(weather.Function.Parameters, &schema))
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "location")
}

func TestToolset_DefinitionsWithSearch(t *testing.T) {
	ts := newTestToolset(t, SearchConfig{
		ConnectionID: "conn-1",
		IndexName:    "travel-product-index",
		QueryType:    "vector_semantic_hybrid",
		TopK:         5,
	})
	defs, res, err := ts.Definitions(context.Background())
	require.NoError(t, err)
	require.Len(t, defs, 4)
	assert.Equal(t, agentservice.ToolTypeAzureAISearch, defs[3].Type)
	require.NotNil(t, res)
	require.NotNil(t, res.AzureAISearch)
	require.Len(t, res.AzureAISearch.Indexes, 1)
	assert.Equal(t, agentservice.SearchIndex{
		IndexConnectionID: "conn-1",
		IndexName:         "travel-product-index",
		QueryType:         "vector_semantic_hybrid",
		TopK:              5,
	}, res.AzureAISearch.Indexes[0])
}

func TestNewToolset_CreateFailure(t *testing.T) {
	orig := inferLocationTool
	inferLocationTool = func(name, desc string, fn func(context.Context, locationInput) (string, error)) (einotool.InvokableTool, error) {
		return nil, errors.New("boom")
	}
	defer func() { inferLocationTool = orig }()

	_, err := NewToolset(context.Background(), SearchConfig{})
	assert.ErrorContains(t, err, "create fetch_weather")
}
