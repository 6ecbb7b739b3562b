// Copyright (c) Microsoft. All rights reserved.

package patterns_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	af "github.com/jochenvw/agent-patterns/agentframework"
)

// recordingTool returns result and remembers the arguments of every call.
type recordingTool struct {
	*af.FunctionTool
	mu    sync.Mutex
	calls []json.RawMessage
}

func newRecordingTool(name string, result any, err error) *recordingTool {
	rt := &recordingTool{}
	rt.FunctionTool = af.NewTool(name, name+" tool",
		json.RawMessage(`{"type":"object","properties":{"q":{"type":"string"}},"required":["q"]}`),
		func(_ context.Context, args json.RawMessage) (any, error) {
			rt.mu.Lock()
			defer rt.mu.Unlock()
			rt.calls = append(rt.calls, args)
			return result, err
		})
	return rt
}

func (rt *recordingTool) Calls() []json.RawMessage {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return append([]json.RawMessage(nil), rt.calls...)
}

// scriptedClient replies with the scripted responses in order and records
// the messages it was sent.
type scriptedClient struct {
	mu        sync.Mutex
	responses []*af.ChatResponse
	requests  [][]af.Message
}

func (c *scriptedClient) Response(_ context.Context, messages []af.Message, _ *af.ChatOptions) (*af.ChatResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, messages)
	if len(c.responses) == 0 {
		return nil, errors.New("script exhausted")
	}
	resp := c.responses[0]
	c.responses = c.responses[1:]
	return resp, nil
}

func (c *scriptedClient) StreamResponse(context.Context, []af.Message, *af.ChatOptions) (*af.ResponseStream[af.ChatResponseUpdate], error) {
	return nil, errors.New("not implemented")
}

func callResponse(calls ...*af.FunctionCallContent) *af.ChatResponse {
	contents := make(af.Contents, len(calls))
	for i, c := range calls {
		contents[i] = c
	}
	return &af.ChatResponse{
		Messages:     []af.Message{{Role: af.RoleAssistant, Contents: contents}},
		FinishReason: af.FinishReasonToolCalls,
	}
}

// toolResults returns the results of every tool message sent to the model.
func toolResults(messages []af.Message) []any {
	var out []any
	for _, m := range messages {
		if m.Role != af.RoleTool {
			continue
		}
		for _, c := range m.Contents {
			if r, ok := c.(*af.FunctionResultContent); ok {
				out = append(out, r.Result)
			}
		}
	}
	return out
}
