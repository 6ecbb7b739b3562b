// Copyright (c) Microsoft. All rights reserved.

package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	af "github.com/jochenvw/agent-patterns/agentframework"
)

// textCallPattern matches a reply that is only a JSON array of single-key
// objects, optionally inside a Markdown code fence:
//
//	[{"get_weather": {"location": "Paris"}}]
var textCallPattern = regexp.MustCompile("(?s)^\\s*(?:`{3}(?:json)?\\s*)?\\[\\s*\\{.*\\}\\s*\\](?:\\s*`{3})?\\s*$")

// TextToolCallMiddleware converts tool calls that a model wrote as text
// into [af.FunctionCallContent]. Some local OpenAI-compatible runtimes
// answer that way instead of returning structured tool_calls.
//
// Install it with [WithChatMiddleware] so the conversion runs before the
// agent looks for tool calls. Only assistant messages made entirely of text
// are rewritten; anything that does not parse is left untouched.
func TextToolCallMiddleware(logger *slog.Logger) af.ChatMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next af.ChatHandler) af.ChatHandler {
		return func(ctx context.Context, messages []af.Message, opts *af.ChatOptions) (*af.ChatResponse, error) {
			resp, err := next(ctx, messages, opts)
			if err != nil || resp == nil {
				return resp, err
			}

			for i := range resp.Messages {
				msg := &resp.Messages[i]
				if msg.Role != af.RoleAssistant || !textOnly(msg) {
					continue
				}
				text := strings.TrimSpace(msg.Text())
				if !textCallPattern.MatchString(text) {
					continue
				}
				calls, err := parseTextCalls(text)
				if err != nil {
					logger.DebugContext(ctx, "text tool call not converted", "error", err)
					continue
				}
				if len(calls) == 0 {
					continue
				}

				logger.DebugContext(ctx, "converted text to tool calls", "count", len(calls))
				msg.Contents = make(af.Contents, len(calls))
				for j, c := range calls {
					msg.Contents[j] = c
				}
				resp.FinishReason = af.FinishReasonToolCalls
			}
			return resp, nil
		}
	}
}

func textOnly(msg *af.Message) bool {
	if len(msg.Contents) == 0 {
		return false
	}
	for _, c := range msg.Contents {
		if _, ok := c.(*af.TextContent); !ok {
			return false
		}
	}
	return true
}

// parseTextCalls decodes [{"name": {args}}, ...].
func parseTextCalls(text string) ([]*af.FunctionCallContent, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var items []map[string]json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &items); err != nil {
		return nil, fmt.Errorf("decode tool call array: %w", err)
	}

	calls := make([]*af.FunctionCallContent, 0, len(items))
	for i, item := range items {
		if len(item) != 1 {
			return nil, fmt.Errorf("tool call %d: want exactly one key, got %d", i, len(item))
		}
		for name, args := range item {
			if !json.Valid(args) {
				return nil, fmt.Errorf("tool call %d (%s): arguments are not JSON", i, name)
			}
			calls = append(calls, &af.FunctionCallContent{
				CallID:    fmt.Sprintf("call_text_%d", i),
				Name:      name,
				Arguments: string(args),
			})
		}
	}
	return calls, nil
}
