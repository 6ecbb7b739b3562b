// Copyright (c) Microsoft. All rights reserved.

package main

import (
	"context"
	"errors"
	"sync"

	af "github.com/jochenvw/agent-patterns/agentframework"
)

// fakeClient answers paraphrase requests (those with a response format)
// with summary and replays script for everything else.
type fakeClient struct {
	mu       sync.Mutex
	summary  string
	script   []*af.ChatResponse
	requests [][]af.Message
}

func (c *fakeClient) Response(_ context.Context, messages []af.Message, opts *af.ChatOptions) (*af.ChatResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if opts != nil && opts.ResponseFormat != nil {
		return &af.ChatResponse{Messages: []af.Message{af.NewAssistantMessage(c.summary)}}, nil
	}
	c.requests = append(c.requests, messages)
	if len(c.script) == 0 {
		return nil, errors.New("script exhausted")
	}
	resp := c.script[0]
	c.script = c.script[1:]
	return resp, nil
}

// StreamResponse replays the scripted response one message per update.
func (c *fakeClient) StreamResponse(ctx context.Context, messages []af.Message, opts *af.ChatOptions) (*af.ResponseStream[af.ChatResponseUpdate], error) {
	resp, err := c.Response(ctx, messages, opts)
	if err != nil {
		return nil, err
	}
	return af.NewResponseStream(ctx, func(ctx context.Context, ch chan<- af.ChatResponseUpdate) error {
		for _, m := range resp.Messages {
			u := af.ChatResponseUpdate{Role: m.Role, Contents: m.Contents, FinishReason: resp.FinishReason}
			select {
			case ch <- u:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	}), nil
}

func testConfig() Config {
	return Config{
		Backend:   "openai",
		APIKey:    "test",
		Threshold: 3,
		Sentinel:  "Task finished",
		Format:    "text",
	}
}
