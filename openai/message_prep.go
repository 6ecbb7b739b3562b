// Copyright (c) Microsoft. All rights reserved.

package openai

import (
	"encoding/json"
	"strings"

	af "github.com/jochenvw/agent-patterns/agentframework"
)

// chatRequest is the OpenAI Chat Completions API request body.
type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    *float64          `json:"temperature,omitempty"`
	TopP           *float64          `json:"top_p,omitempty"`
	MaxTokens      *int              `json:"max_completion_tokens,omitempty"`
	Stop           []string          `json:"stop,omitempty"`
	Seed           *int              `json:"seed,omitempty"`
	Tools          []toolSpec        `json:"tools,omitempty"`
	ToolChoice     any               `json:"tool_choice,omitempty"`
	User           string            `json:"user,omitempty"`
	Stream         bool              `json:"stream,omitempty"`
	StreamOptions  *streamOptions    `json:"stream_options,omitempty"`
	ResponseFormat *responseFormat   `json:"response_format,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type responseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *jsonSchema `json:"json_schema,omitempty"`
}

type jsonSchema struct {
	Name   string          `json:"name"`
	Schema json.RawMessage `json:"schema"`
	Strict bool            `json:"strict,omitempty"`
}

type chatMessage struct {
	Role       string     `json:"role"`
	Content    any        `json:"content,omitempty"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []toolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type toolCall struct {
	// Index is only set on streamed deltas.
	Index    *int         `json:"index,omitempty"`
	ID       string       `json:"id,omitempty"`
	Type     string       `json:"type,omitempty"`
	Function functionCall `json:"function"`
}

type functionCall struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments"`
}

type toolSpec struct {
	Type     string       `json:"type"`
	Function functionSpec `json:"function"`
}

type functionSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// buildRequest converts framework types into an OpenAI API request.
func buildRequest(messages []af.Message, opts *af.ChatOptions, defaultModel string) *chatRequest {
	req := &chatRequest{
		Model: defaultModel,
	}
	if opts != nil {
		if opts.ModelID != "" {
			req.Model = opts.ModelID
		}
		req.Temperature = opts.Temperature
		req.TopP = opts.TopP
		req.MaxTokens = opts.MaxTokens
		req.Stop = opts.Stop
		req.Seed = opts.Seed
		req.User = opts.User
		req.Metadata = opts.Metadata
		req.ResponseFormat = convertResponseFormat(opts.ResponseFormat)

		for _, t := range opts.Tools {
			req.Tools = append(req.Tools, toolSpec{
				Type: "function",
				Function: functionSpec{
					Name:        t.Name(),
					Description: t.Description(),
					Parameters:  t.Parameters(),
				},
			})
		}

		req.ToolChoice = convertToolChoice(opts.ToolChoice)
	}

	req.Messages = convertMessages(messages)
	return req
}

func convertResponseFormat(rf *af.ResponseFormat) *responseFormat {
	if rf == nil {
		return nil
	}
	if len(rf.Schema) == 0 {
		return &responseFormat{Type: "json_object"}
	}
	name := rf.Name
	if name == "" {
		name = "response"
	}
	return &responseFormat{
		Type: "json_schema",
		JSONSchema: &jsonSchema{
			Name:   name,
			Schema: rf.Schema,
			Strict: rf.Strict,
		},
	}
}

// convertMessages translates framework Messages into OpenAI chat messages.
func convertMessages(messages []af.Message) []chatMessage {
	result := make([]chatMessage, 0, len(messages))

	for _, msg := range messages {
		cm := chatMessage{
			Role: string(msg.Role),
			Name: msg.AuthorName,
		}

		switch msg.Role {
		case af.RoleTool:
			// One function result per tool message.
			for _, c := range msg.Contents {
				if fr, ok := c.(*af.FunctionResultContent); ok {
					cm.ToolCallID = fr.CallID
					cm.Content = marshalResult(fr.Result)
				}
			}

		case af.RoleAssistant:
			var text strings.Builder
			for _, c := range msg.Contents {
				switch v := c.(type) {
				case *af.TextContent:
					text.WriteString(v.Text)
				case *af.FunctionCallContent:
					cm.ToolCalls = append(cm.ToolCalls, toolCall{
						ID:   v.CallID,
						Type: "function",
						Function: functionCall{
							Name:      v.Name,
							Arguments: v.Arguments,
						},
					})
				}
			}
			if text.Len() > 0 {
				cm.Content = text.String()
			}

		default:
			cm.Content = msg.Text()
		}

		result = append(result, cm)
	}

	return result
}

func convertToolChoice(tc af.ToolChoice) any {
	if tc == "" {
		return nil
	}
	switch tc {
	case af.ToolChoiceAuto, af.ToolChoiceRequired, af.ToolChoiceNone:
		return string(tc)
	}
	if name, ok := strings.CutPrefix(string(tc), "function:"); ok && name != "" {
		return map[string]any{
			"type": "function",
			"function": map[string]string{
				"name": name,
			},
		}
	}
	return string(tc)
}

func marshalResult(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "error: unserializable tool result"
	}
	return string(b)
}
