// Copyright (c) Microsoft. All rights reserved.

package agentframework_test

import (
	"context"
	"encoding/json"
	"slices"
	"testing"

	af "github.com/jochenvw/agent-patterns/agentframework"
)

// trace records middleware entry and exit across all three layers.
type trace struct{ events []string }

func (tr *trace) agent(name string) af.AgentMiddleware {
	return func(next af.AgentHandler) af.AgentHandler {
		return func(ctx context.Context, req *af.AgentRequest) (*af.AgentResponse, error) {
			tr.events = append(tr.events, name+">")
			resp, err := next(ctx, req)
			tr.events = append(tr.events, "<"+name)
			return resp, err
		}
	}
}

func (tr *trace) chat(name string) af.ChatMiddleware {
	return func(next af.ChatHandler) af.ChatHandler {
		return func(ctx context.Context, msgs []af.Message, opts *af.ChatOptions) (*af.ChatResponse, error) {
			tr.events = append(tr.events, name+">")
			resp, err := next(ctx, msgs, opts)
			tr.events = append(tr.events, "<"+name)
			return resp, err
		}
	}
}

func (tr *trace) function(name string) af.FunctionMiddleware {
	return func(next af.FunctionHandler) af.FunctionHandler {
		return func(ctx context.Context, tool af.Tool, args json.RawMessage) (any, error) {
			tr.events = append(tr.events, name+">")
			res, err := next(ctx, tool, args)
			tr.events = append(tr.events, "<"+name)
			return res, err
		}
	}
}

// oneToolCall asks for "echo" once, then answers. The history sent with
// the second request is stored in seen when it is non-nil.
func oneToolCall(seen *[]af.Message) *mockClient {
	calls := 0
	return &mockClient{
		responseFn: func(ctx context.Context, msgs []af.Message, opts *af.ChatOptions) (*af.ChatResponse, error) {
			calls++
			if seen != nil {
				*seen = msgs
			}
			if calls == 1 {
				return &af.ChatResponse{
					Messages: []af.Message{{
						Role:     af.RoleAssistant,
						Contents: af.Contents{&af.FunctionCallContent{CallID: "c1", Name: "echo", Arguments: `{}`}},
					}},
				}, nil
			}
			return &af.ChatResponse{Messages: []af.Message{af.NewAssistantMessage("done")}}, nil
		},
	}
}

func TestMiddleware_LayerOrder(t *testing.T) {
	tr := &trace{}
	echo := af.NewTool("echo", "Echoes input", json.RawMessage(`{"type":"object"}`),
		func(ctx context.Context, args json.RawMessage) (any, error) {
			tr.events = append(tr.events, "tool")
			return "echoed", nil
		},
	)

	agent := af.NewAgent(oneToolCall(nil),
		af.WithTools(echo),
		af.WithAgentMiddleware(tr.agent("a1"), tr.agent("a2")),
		af.WithChatMiddleware(tr.chat("c1"), tr.chat("c2")),
		af.WithFunctionMiddleware(tr.function("f1"), tr.function("f2")),
	)
	if _, err := agent.Run(context.Background(), []af.Message{af.NewUserMessage("hi")}); err != nil {
		t.Fatalf("run: %v", err)
	}

	want := []string{
		"a1>", "a2>",
		"c1>", "c2>", "<c2", "<c1",
		"f1>", "f2>", "tool", "<f2", "<f1",
		"c1>", "c2>", "<c2", "<c1",
		"<a2", "<a1",
	}
	if !slices.Equal(tr.events, want) {
		t.Errorf("events =\n%v\nwant\n%v", tr.events, want)
	}
}

func TestFunctionMiddleware_ShortCircuit(t *testing.T) {
	invoked := false
	echo := af.NewTool("echo", "Echoes input", json.RawMessage(`{"type":"object"}`),
		func(ctx context.Context, args json.RawMessage) (any, error) {
			invoked = true
			return "echoed", nil
		},
	)
	deny := af.FunctionMiddleware(func(next af.FunctionHandler) af.FunctionHandler {
		return func(ctx context.Context, tool af.Tool, args json.RawMessage) (any, error) {
			return "denied: " + tool.Name(), nil
		}
	})

	var history []af.Message
	agent := af.NewAgent(oneToolCall(&history), af.WithTools(echo), af.WithFunctionMiddleware(deny))
	if _, err := agent.Run(context.Background(), []af.Message{af.NewUserMessage("hi")}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if invoked {
		t.Error("tool ran although middleware short-circuited")
	}

	var result *af.FunctionResultContent
	for _, msg := range history {
		for _, c := range msg.Contents {
			if fr, ok := c.(*af.FunctionResultContent); ok {
				result = fr
			}
		}
	}
	if result == nil {
		t.Fatal("no function result sent back to the model")
	}
	if result.Result != "denied: echo" {
		t.Errorf("result = %v, want %q", result.Result, "denied: echo")
	}
}

func TestChatMiddleware_RewritesOptions(t *testing.T) {
	var gotModel string
	client := &mockClient{
		responseFn: func(ctx context.Context, msgs []af.Message, opts *af.ChatOptions) (*af.ChatResponse, error) {
			if opts != nil {
				gotModel = opts.ModelID
			}
			return &af.ChatResponse{Messages: []af.Message{af.NewAssistantMessage("ok")}}, nil
		},
	}
	pin := af.ChatMiddleware(func(next af.ChatHandler) af.ChatHandler {
		return func(ctx context.Context, msgs []af.Message, opts *af.ChatOptions) (*af.ChatResponse, error) {
			o := af.ChatOptions{}
			if opts != nil {
				o = *opts
			}
			o.ModelID = "pinned"
			return next(ctx, msgs, &o)
		}
	})

	agent := af.NewAgent(client, af.WithChatMiddleware(pin))
	if _, err := agent.Run(context.Background(), []af.Message{af.NewUserMessage("hi")}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if gotModel != "pinned" {
		t.Errorf("ModelID = %q, want pinned", gotModel)
	}
}

// mockClient implements ChatClient for testing.
type mockClient struct {
	responseFn func(ctx context.Context, msgs []af.Message, opts *af.ChatOptions) (*af.ChatResponse, error)
}

func (m *mockClient) Response(ctx context.Context, msgs []af.Message, opts *af.ChatOptions) (*af.ChatResponse, error) {
	return m.responseFn(ctx, msgs, opts)
}

func (m *mockClient) StreamResponse(ctx context.Context, msgs []af.Message, opts *af.ChatOptions) (*af.ResponseStream[af.ChatResponseUpdate], error) {
	return af.NewResponseStream(ctx, func(ctx context.Context, ch chan<- af.ChatResponseUpdate) error {
		resp, err := m.responseFn(ctx, msgs, opts)
		if err != nil {
			return err
		}
		for _, msg := range resp.Messages {
			ch <- af.ChatResponseUpdate{
				Contents: msg.Contents,
				Role:     msg.Role,
			}
		}
		return nil
	}), nil
}
