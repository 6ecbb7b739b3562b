// Copyright (c) Microsoft. All rights reserved.

// Package openai provides a [ChatClient] implementation backed by the
// OpenAI Chat Completions API.
//
// Create a client with [New] and pass it to [agentframework.NewAgent]:
//
//	client := openai.New(apiKey, openai.WithModel("gpt-4o"))
//	agent  := agentframework.NewAgent(client)
package openai

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	af "github.com/jochenvw/agent-patterns/agentframework"
)

// Client implements [agentframework.ChatClient] using the OpenAI Chat
// Completions API. Use [New] to create one.
type Client struct {
	tp      transport
	model   string
	handler af.ChatHandler
}

// Verify interface compliance at compile time.
var _ af.ChatClient = (*Client)(nil)

// New creates an OpenAI [Client] with the given API key and options.
//
//	client := openai.New(os.Getenv("OPENAI_API_KEY"),
//	    openai.WithModel("gpt-4o"),
//	)
func New(apiKey string, opts ...Option) *Client {
	cfg := &clientConfig{}
	for _, o := range opts {
		o(cfg)
	}
	c := &Client{
		tp:    newHTTPTransport(apiKey, cfg),
		model: cfg.model,
	}
	// Set up core handler
	c.handler = c.coreResponse
	// Apply middleware in order
	for i := len(cfg.chatMiddleware) - 1; i >= 0; i-- {
		c.handler = cfg.chatMiddleware[i](c.handler)
	}
	return c
}

// newWithTransport creates a Client with a custom transport (for testing).
func newWithTransport(tp transport, model string) *Client {
	c := &Client{tp: tp, model: model}
	c.handler = c.coreResponse
	return c
}

// Response sends a non-streaming chat completion request and returns the
// complete response.
func (c *Client) Response(ctx context.Context, messages []af.Message, opts *af.ChatOptions) (*af.ChatResponse, error) {
	return c.handler(ctx, messages, opts)
}

// coreResponse is the base implementation called by the middleware chain.
func (c *Client) coreResponse(ctx context.Context, messages []af.Message, opts *af.ChatOptions) (*af.ChatResponse, error) {
	req := buildRequest(messages, opts, c.model)
	req.Stream = false

	resp, err := c.tp.do(ctx, "POST", "/chat/completions", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response body: %v", af.ErrService, err)
	}

	raw, err := unmarshalChatResponse(body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse response: %v", af.ErrService, err)
	}

	result := parseChatResponse(raw)
	result.Raw = raw
	return result, nil
}

// StreamResponse sends a streaming chat completion request and returns
// a [ResponseStream] that yields incremental updates via server-sent events.
func (c *Client) StreamResponse(ctx context.Context, messages []af.Message, opts *af.ChatOptions) (*af.ResponseStream[af.ChatResponseUpdate], error) {
	req := buildRequest(messages, opts, c.model)
	req.Stream = true
	req.StreamOptions = &streamOptions{IncludeUsage: true}

	resp, err := c.tp.do(ctx, "POST", "/chat/completions", req)
	if err != nil {
		return nil, err
	}

	stream := af.NewResponseStream[af.ChatResponseUpdate](ctx, func(ctx context.Context, ch chan<- af.ChatResponseUpdate) error {
		defer resp.Body.Close()
		return parseSSEStream(ctx, resp.Body, ch)
	})

	return stream, nil
}

// parseSSEStream reads OpenAI server-sent events from r and sends parsed
// updates to ch. Text deltas are forwarded as they arrive. Tool call deltas
// are accumulated by index and sent as one update of complete
// [af.FunctionCallContent] items when the choice finishes or the stream
// ends, so consumers never see partial arguments.
func parseSSEStream(ctx context.Context, r io.Reader, ch chan<- af.ChatResponseUpdate) error {
	scanner := bufio.NewScanner(r)
	// Allow large SSE lines (some responses can be substantial).
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var calls toolCallAccumulator
	send := func(u af.ChatResponseUpdate) error {
		select {
		case ch <- u:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	flushCalls := func(responseID, modelID string) error {
		if calls.empty() {
			return nil
		}
		return send(af.ChatResponseUpdate{
			Role:         af.RoleAssistant,
			Contents:     calls.drain(),
			ResponseID:   responseID,
			ModelID:      modelID,
			FinishReason: af.FinishReasonToolCalls,
		})
	}

	var responseID, modelID string
	for scanner.Scan() {
		line := scanner.Text()

		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)

		if data == "[DONE]" {
			return flushCalls(responseID, modelID)
		}

		var chunk chatCompletionChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			slog.DebugContext(ctx, "skipping malformed SSE chunk", "error", err)
			continue
		}
		if chunk.ID != "" {
			responseID = chunk.ID
		}
		if chunk.Model != "" {
			modelID = chunk.Model
		}

		if len(chunk.Choices) > 0 {
			calls.add(chunk.Choices[0].Delta.ToolCalls)
		}

		update := parseChunk(&chunk)
		update.Raw = &chunk
		if len(update.Contents) > 0 || update.Role != "" || update.Usage.TotalTokens > 0 ||
			(update.FinishReason != "" && update.FinishReason != af.FinishReasonToolCalls) {
			if err := send(*update); err != nil {
				return err
			}
		}

		if update.FinishReason != "" {
			if err := flushCalls(responseID, modelID); err != nil {
				return err
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: read SSE stream: %v", af.ErrService, err)
	}

	return flushCalls(responseID, modelID)
}

// toolCallAccumulator stitches streamed tool call fragments back together.
// The first fragment of a call carries its id and name; later fragments with
// the same index only append to the arguments.
type toolCallAccumulator struct {
	order []int
	calls map[int]*af.FunctionCallContent
	args  map[int]*strings.Builder
}

func (a *toolCallAccumulator) add(deltas []toolCall) {
	for pos, d := range deltas {
		idx := pos
		if d.Index != nil {
			idx = *d.Index
		}
		if a.calls == nil {
			a.calls = make(map[int]*af.FunctionCallContent)
			a.args = make(map[int]*strings.Builder)
		}
		fc, ok := a.calls[idx]
		if !ok {
			fc = &af.FunctionCallContent{}
			a.calls[idx] = fc
			a.args[idx] = &strings.Builder{}
			a.order = append(a.order, idx)
		}
		if d.ID != "" {
			fc.CallID = d.ID
		}
		if d.Function.Name != "" {
			fc.Name = d.Function.Name
		}
		a.args[idx].WriteString(d.Function.Arguments)
	}
}

func (a *toolCallAccumulator) empty() bool { return len(a.order) == 0 }

func (a *toolCallAccumulator) drain() af.Contents {
	contents := make(af.Contents, 0, len(a.order))
	for _, idx := range a.order {
		fc := a.calls[idx]
		fc.Arguments = a.args[idx].String()
		contents = append(contents, fc)
	}
	a.order, a.calls, a.args = nil, nil, nil
	return contents
}
