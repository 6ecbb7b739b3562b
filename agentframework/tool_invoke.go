// Copyright (c) Microsoft. All rights reserved.

package agentframework

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
)

// InvocationConfig controls the function invocation loop behavior.
type InvocationConfig struct {
	// MaxIterations is the maximum number of LLM round-trips for tool calling.
	// Default: 40.
	MaxIterations int

	// MaxConsecutiveErrors is the maximum number of consecutive tool errors
	// before aborting. Default: 3.
	MaxConsecutiveErrors int

	// TerminateOnUnknown aborts if the model calls an unknown tool.
	TerminateOnUnknown bool

	// IncludeDetailedErrors includes full error text in tool results sent
	// back to the model. When false, a generic error message is used.
	IncludeDetailedErrors bool
}

// DefaultInvocationConfig returns the default configuration.
func DefaultInvocationConfig() InvocationConfig {
	return InvocationConfig{
		MaxIterations:        40,
		MaxConsecutiveErrors: 3,
	}
}

// invocation is one run of the tool-calling loop. When emit is set, every
// assistant message and every tool result is reported as it happens.
type invocation struct {
	chat         ChatHandler
	config       InvocationConfig
	fnMiddleware []FunctionMiddleware
	agentID      string
	emit         func(AgentResponseUpdate) error

	// textStreamed is set when the current turn's text already went out as
	// deltas. Written by emitDelta, read once the turn's stream has ended.
	textStreamed bool
}

// run extracts function_call content from each response, invokes the
// matched tools, appends their results and calls the model again until it
// answers without tool calls or a limit is hit.
func (inv *invocation) run(ctx context.Context, messages []Message, opts *ChatOptions) (*ChatResponse, error) {
	config := inv.config
	if config.MaxIterations <= 0 {
		config.MaxIterations = 40
	}
	if config.MaxConsecutiveErrors <= 0 {
		config.MaxConsecutiveErrors = 3
	}

	toolMap := make(map[string]Tool, len(opts.Tools))
	for _, t := range opts.Tools {
		toolMap[t.Name()] = t
	}

	messages = slices.Clone(messages)
	consecutiveErrors := 0

	for iteration := 0; iteration < config.MaxIterations; iteration++ {
		resp, err := inv.chat(ctx, messages, opts)
		if err != nil {
			return nil, err
		}
		if err := inv.emitResponse(resp); err != nil {
			return nil, err
		}

		calls := extractFunctionCalls(resp)
		if len(calls) == 0 || len(toolMap) == 0 {
			return resp, nil
		}

		var resultMessages []Message
		for _, call := range calls {
			tool, ok := toolMap[call.Name]
			if !ok {
				if config.TerminateOnUnknown {
					return nil, fmt.Errorf("%w: unknown tool %q", ErrToolExecution, call.Name)
				}
				slog.WarnContext(ctx, "unknown tool called", "tool", call.Name)
				msg := NewToolMessage(call.CallID, call.Name, "error: unknown tool")
				if err := inv.emitMessage(msg); err != nil {
					return nil, err
				}
				resultMessages = append(resultMessages, msg)
				consecutiveErrors++
				continue
			}

			if tool.Approval() == ApprovalAlways {
				// The caller owns the approval flow.
				resp.Messages = append(resp.Messages, Message{
					Role: RoleAssistant,
					Contents: Contents{&ApprovalRequestContent{
						CallID:    call.CallID,
						Name:      call.Name,
						Arguments: call.Arguments,
					}},
				})
				return resp, nil
			}

			if tool.DeclarationOnly() {
				return resp, nil
			}

			result, invokeErr := invokeToolWithMiddleware(ctx, tool, json.RawMessage(call.Arguments), inv.fnMiddleware)
			if invokeErr != nil {
				consecutiveErrors++
				slog.WarnContext(ctx, "tool invocation error",
					"tool", call.Name,
					"error", invokeErr,
					"consecutive_errors", consecutiveErrors,
				)
				if consecutiveErrors >= config.MaxConsecutiveErrors {
					return nil, fmt.Errorf("%w: max consecutive errors reached (%d)", ErrToolExecution, consecutiveErrors)
				}
				errMsg := "error invoking tool"
				if config.IncludeDetailedErrors {
					errMsg = invokeErr.Error()
				}
				result = errMsg
			} else {
				consecutiveErrors = 0
			}

			msg := NewToolMessage(call.CallID, call.Name, result)
			if err := inv.emitMessage(msg); err != nil {
				return nil, err
			}
			resultMessages = append(resultMessages, msg)
		}

		messages = append(messages, resp.Messages...)
		messages = append(messages, resultMessages...)
	}

	return nil, fmt.Errorf("%w: max iterations reached (%d)", ErrExecution, config.MaxIterations)
}

// streamChat is the innermost chat handler of a streamed run. It forwards
// text deltas while the model writes and returns the merged turn, so
// function calls reach the loop complete.
func (inv *invocation) streamChat(client ChatClient) ChatHandler {
	return func(ctx context.Context, messages []Message, opts *ChatOptions) (*ChatResponse, error) {
		src, err := client.StreamResponse(ctx, messages, opts)
		if err != nil {
			return nil, err
		}

		// forward runs on the MapStream goroutine; emitErr is read only
		// after Collect has seen the stream end.
		var emitErr error
		forward := func(u ChatResponseUpdate) ChatResponseUpdate {
			if emitErr == nil {
				emitErr = inv.emitDelta(u)
			}
			return u
		}
		tee := MapStream(ctx, src, forward)
		defer tee.Close()

		updates, err := tee.Collect(ctx)
		if err != nil {
			return nil, err
		}
		if emitErr != nil {
			return nil, emitErr
		}
		return ChatResponseFromUpdates(updates), nil
	}
}

// emitDelta reports the text of u, if any.
func (inv *invocation) emitDelta(u ChatResponseUpdate) error {
	var text Contents
	for _, c := range u.Contents {
		if tc, ok := c.(*TextContent); ok && tc.Text != "" {
			text = append(text, tc)
		}
	}
	if len(text) == 0 {
		return nil
	}
	inv.textStreamed = true
	return inv.emit(AgentResponseUpdate{
		Contents:   text,
		Role:       RoleAssistant,
		AgentID:    inv.agentID,
		ResponseID: u.ResponseID,
		Raw:        u.Raw,
	})
}

func (inv *invocation) emitResponse(resp *ChatResponse) error {
	if inv.emit == nil {
		return nil
	}
	dropText := inv.textStreamed
	inv.textStreamed = false
	for i, m := range resp.Messages {
		contents := m.Contents
		if dropText {
			contents = withoutText(contents)
			if len(contents) == 0 && (i > 0 || resp.Usage.TotalTokens == 0) {
				continue
			}
		}
		u := AgentResponseUpdate{
			Contents:   contents,
			Role:       m.Role,
			AgentID:    inv.agentID,
			ResponseID: resp.ResponseID,
			Raw:        resp.Raw,
		}
		if i == 0 {
			u.Usage = resp.Usage
		}
		if err := inv.emit(u); err != nil {
			return err
		}
	}
	return nil
}

func withoutText(cs Contents) Contents {
	var out Contents
	for _, c := range cs {
		if _, ok := c.(*TextContent); !ok {
			out = append(out, c)
		}
	}
	return out
}

func (inv *invocation) emitMessage(m Message) error {
	if inv.emit == nil {
		return nil
	}
	return inv.emit(AgentResponseUpdate{
		Contents: m.Contents,
		Role:     m.Role,
		AgentID:  inv.agentID,
	})
}

// functionCall is an extracted function call from a response.
type functionCall struct {
	CallID    string
	Name      string
	Arguments string
}

// extractFunctionCalls finds all FunctionCallContent in a response's messages.
func extractFunctionCalls(resp *ChatResponse) []functionCall {
	var calls []functionCall
	for i := range resp.Messages {
		for _, fc := range resp.Messages[i].FunctionCalls() {
			calls = append(calls, functionCall{
				CallID:    fc.CallID,
				Name:      fc.Name,
				Arguments: fc.Arguments,
			})
		}
	}
	return calls
}

// invokeToolWithMiddleware runs the tool through the function middleware chain.
func invokeToolWithMiddleware(ctx context.Context, tool Tool, args json.RawMessage, mws []FunctionMiddleware) (any, error) {
	handler := func(ctx context.Context, t Tool, a json.RawMessage) (any, error) {
		return t.Invoke(ctx, a)
	}
	final := chain(FunctionHandler(handler), mws)
	return final(ctx, tool, args)
}
