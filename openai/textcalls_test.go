// Copyright (c) Microsoft. All rights reserved.

package openai_test

import (
	"context"
	"net/http"
	"testing"

	af "github.com/jochenvw/agent-patterns/agentframework"
	"github.com/jochenvw/agent-patterns/openai"
)

func replyWith(text string) af.ChatHandler {
	return func(context.Context, []af.Message, *af.ChatOptions) (*af.ChatResponse, error) {
		return &af.ChatResponse{
			Messages:     []af.Message{af.NewAssistantMessage(text)},
			FinishReason: af.FinishReasonStop,
		}, nil
	}
}

func TestTextToolCallMiddleware_Converts(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"bare", `[{"get_weather": {"location": "Paris"}}, {"get_time": {}}]`},
		{"fenced", "```json\n[{\"get_weather\": {\"location\": \"Paris\"}}, {\"get_time\": {}}]\n```"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := openai.TextToolCallMiddleware(nil)(replyWith(tc.text))
			resp, err := h(context.Background(), nil, nil)
			if err != nil {
				t.Fatalf("handler: %v", err)
			}
			if resp.FinishReason != af.FinishReasonToolCalls {
				t.Errorf("FinishReason = %q", resp.FinishReason)
			}
			calls := resp.Messages[0].FunctionCalls()
			if len(calls) != 2 {
				t.Fatalf("got %d calls, want 2", len(calls))
			}
			if calls[0].Name != "get_weather" || calls[0].Arguments != `{"location": "Paris"}` {
				t.Errorf("call 0 = %+v", calls[0])
			}
			if calls[1].Name != "get_time" || calls[1].Arguments != `{}` {
				t.Errorf("call 1 = %+v", calls[1])
			}
			if calls[0].CallID == calls[1].CallID {
				t.Errorf("call IDs not unique: %q", calls[0].CallID)
			}
		})
	}
}

func TestTextToolCallMiddleware_LeavesOtherRepliesAlone(t *testing.T) {
	for _, text := range []string{
		"The weather in Paris is sunny.",
		`[{"a": {}, "b": {}}]`,
		`[1, 2, 3]`,
		`[{"get_time": {}`,
	} {
		h := openai.TextToolCallMiddleware(nil)(replyWith(text))
		resp, err := h(context.Background(), nil, nil)
		if err != nil {
			t.Fatalf("handler: %v", err)
		}
		if got := resp.Messages[0].Text(); got != text {
			t.Errorf("text rewritten: %q -> %q", text, got)
		}
		if resp.FinishReason != af.FinishReasonStop {
			t.Errorf("%q: FinishReason = %q", text, resp.FinishReason)
		}
	}
}

func TestTextToolCallMiddleware_ThroughClient(t *testing.T) {
	httpClient := newMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, map[string]any{
			"id":    "chatcmpl-1",
			"model": "phi-4-mini",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": `[{"get_time": {}}]`},
				"finish_reason": "stop",
			}},
		}), nil
	})

	client := openai.New("",
		openai.WithBaseURL("http://localhost:5273/v1"),
		openai.WithHTTPClient(httpClient),
		openai.WithChatMiddleware(openai.TextToolCallMiddleware(nil)),
	)
	resp, err := client.Response(context.Background(), []af.Message{af.NewUserMessage("time?")}, nil)
	if err != nil {
		t.Fatalf("Response: %v", err)
	}
	calls := resp.Messages[0].FunctionCalls()
	if len(calls) != 1 || calls[0].Name != "get_time" {
		t.Fatalf("calls = %+v", calls)
	}
}
