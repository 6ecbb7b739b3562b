// Copyright (c) Microsoft. All rights reserved.

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	af "github.com/jochenvw/agent-patterns/agentframework"
	"github.com/jochenvw/agent-patterns/patterns"
)

func weatherCall(id, args string) *af.ChatResponse {
	return &af.ChatResponse{
		Messages: []af.Message{{
			Role:     af.RoleAssistant,
			Contents: af.Contents{&af.FunctionCallContent{CallID: id, Name: "get_weather", Arguments: args}},
		}},
		FinishReason: af.FinishReasonToolCalls,
	}
}

func TestRunAgent(t *testing.T) {
	record := filepath.Join(t.TempDir(), "run.jsonl")
	client := &fakeClient{
		summary: `{"message":"I am checking the weather in Paris."}`,
		script: []*af.ChatResponse{
			weatherCall("c1", `{"location":"Paris","why":"the user asked about Paris"}`),
			{Messages: []af.Message{af.NewAssistantMessage("It is sunny in Paris.")}},
		},
	}

	var out, errOut bytes.Buffer
	ro := runOptions{turns: 5, requireWhy: true, record: record, maxIterations: 4}
	err := runAgent(context.Background(), client, testConfig(), ro, "Weather in Paris?", &out, &errOut)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "I am checking the weather in Paris.")
	assert.Contains(t, out.String(), "It is sunny in Paris.")
	assert.Equal(t, "why get_weather: the user asked about Paris\n", errOut.String())

	require.Len(t, client.requests, 2)
	var result string
	for _, m := range client.requests[1] {
		for _, c := range m.Contents {
			if r, ok := c.(*af.FunctionResultContent); ok {
				result, _ = r.Result.(string)
			}
		}
	}
	assert.True(t, strings.HasSuffix(result, "[Turns remaining: 4]"), result)
	assert.Contains(t, result, `"location":"Paris"`)

	data, err := os.ReadFile(record)
	require.NoError(t, err)
	updates, err := drain(t, replayStream(context.Background(), bytes.NewReader(data), 0))
	require.NoError(t, err)
	require.Len(t, updates, 3, "call, tool result, answer")
	assert.Equal(t, af.RoleTool, updates[1].Role)
	assert.Equal(t, "It is sunny in Paris.", updates[2].Text())
}

func TestRunAgent_ToolBudget(t *testing.T) {
	client := &fakeClient{
		summary: `{"message":"I am checking the weather."}`,
		script: []*af.ChatResponse{
			weatherCall("c1", `{"location":"Paris"}`),
			weatherCall("c2", `{"location":"Oslo"}`),
			{Messages: []af.Message{af.NewAssistantMessage("Done.")}},
		},
	}

	var out, errOut bytes.Buffer
	err := runAgent(context.Background(), client, testConfig(), runOptions{toolBudget: 1, maxIterations: 5}, "Compare", &out, &errOut)
	require.NoError(t, err)

	require.Len(t, client.requests, 3)
	last := client.requests[2]
	r, ok := last[len(last)-1].Contents[0].(*af.FunctionResultContent)
	require.True(t, ok)
	assert.Equal(t, patterns.BudgetExhaustedMessage("get_weather", 1), r.Result)
	assert.Empty(t, errOut.String())
}

func TestDemoTools(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o644))
	fixed := time.Date(2026, 10, 18, 15, 4, 0, 0, time.UTC)

	tools := map[string]af.Tool{}
	for _, tool := range demoTools(dir, func() time.Time { return fixed }) {
		tools[tool.Name()] = tool
	}
	require.Len(t, tools, 3)

	got, err := tools["get_weather"].Invoke(context.Background(), []byte(`{"location":"Oslo","unit":"fahrenheit"}`))
	require.NoError(t, err)
	assert.Equal(t, 72, got.(map[string]any)["temperature"])

	got, err = tools["get_time"].Invoke(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "3:04 PM", got.(map[string]string)["time"])

	got, err = tools["list_local_files"].Invoke(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"notes.txt"}, got.(map[string]any)["files"])
}
