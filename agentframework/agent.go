// Copyright (c) Microsoft. All rights reserved.

package agentframework

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Agent is the top-level conversational agent. It composes a [ChatClient] with
// tools, middleware and the function invocation loop.
//
// Create one with [NewAgent] and functional options:
//
//	agent := agentframework.NewAgent(client,
//	    agentframework.WithName("assistant"),
//	    agentframework.WithInstructions("You are helpful."),
//	    agentframework.WithTools(weatherTool),
//	)
type Agent struct {
	id                 string
	name               string
	description        string
	client             ChatClient
	instructions       string
	tools              []Tool
	defaultOptions     *ChatOptions
	agentMiddleware    []AgentMiddleware
	chatMiddleware     []ChatMiddleware
	functionMiddleware []FunctionMiddleware
	invocationConfig   InvocationConfig
}

// AgentOption configures an [Agent] via [NewAgent].
type AgentOption func(*Agent)

// WithName sets the agent's display name.
func WithName(name string) AgentOption {
	return func(a *Agent) { a.name = name }
}

// WithDescription sets the agent's description.
func WithDescription(desc string) AgentOption {
	return func(a *Agent) { a.description = desc }
}

// WithInstructions sets the system instructions for the agent.
func WithInstructions(instructions string) AgentOption {
	return func(a *Agent) { a.instructions = instructions }
}

// WithTools adds tools to the agent's default tool set.
func WithTools(tools ...Tool) AgentOption {
	return func(a *Agent) { a.tools = append(a.tools, tools...) }
}

// WithDefaultOptions sets default [ChatOptions] for all requests.
func WithDefaultOptions(opts *ChatOptions) AgentOption {
	return func(a *Agent) { a.defaultOptions = opts }
}

// WithAgentMiddleware adds [AgentMiddleware] to the agent pipeline.
func WithAgentMiddleware(mws ...AgentMiddleware) AgentOption {
	return func(a *Agent) { a.agentMiddleware = append(a.agentMiddleware, mws...) }
}

// WithChatMiddleware adds [ChatMiddleware] around every model call the
// agent makes, including each round-trip of the tool loop.
func WithChatMiddleware(mws ...ChatMiddleware) AgentOption {
	return func(a *Agent) { a.chatMiddleware = append(a.chatMiddleware, mws...) }
}

// WithFunctionMiddleware adds [FunctionMiddleware] to the tool invocation pipeline.
func WithFunctionMiddleware(mws ...FunctionMiddleware) AgentOption {
	return func(a *Agent) { a.functionMiddleware = append(a.functionMiddleware, mws...) }
}

// WithInvocationConfig overrides the default [InvocationConfig] for the
// function calling loop.
func WithInvocationConfig(cfg InvocationConfig) AgentOption {
	return func(a *Agent) { a.invocationConfig = cfg }
}

// NewAgent creates an Agent with the given [ChatClient] and options.
func NewAgent(client ChatClient, opts ...AgentOption) *Agent {
	a := &Agent{
		id:               uuid.NewString(),
		client:           client,
		invocationConfig: DefaultInvocationConfig(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ID returns the agent's unique identifier.
func (a *Agent) ID() string { return a.id }

// Name returns the agent's display name.
func (a *Agent) Name() string { return a.name }

// Description returns the agent's description.
func (a *Agent) Description() string { return a.description }

// RunOption configures a single [Agent.Run] or [Agent.RunStream] call.
type RunOption func(*runConfig)

type runConfig struct {
	tools   []Tool
	options *ChatOptions
}

// WithRunTools provides per-call tool overrides (merged with agent defaults).
func WithRunTools(tools ...Tool) RunOption {
	return func(c *runConfig) { c.tools = tools }
}

// WithRunOptions provides per-call [ChatOptions] overrides.
func WithRunOptions(opts *ChatOptions) RunOption {
	return func(c *runConfig) { c.options = opts }
}

// Run sends messages to the agent and returns a complete response.
func (a *Agent) Run(ctx context.Context, messages []Message, opts ...RunOption) (*AgentResponse, error) {
	cfg := buildRunConfig(opts)
	handler := chain(a.runHandler(nil), a.agentMiddleware)

	return handler(ctx, &AgentRequest{
		Messages: messages,
		Options:  a.prepareChatOptions(cfg),
	})
}

// RunStream runs the agent and reports its progress as a stream of updates.
//
// The model is called through [ChatClient.StreamResponse]; text deltas are
// emitted as they arrive. Function calls and reasoning are emitted whole
// once the model's turn is complete, and each tool result is emitted as a
// [RoleTool] update right after the tool returns. The stream ends after the
// final assistant answer.
//
// Agent middleware wraps the whole run. The response it returns is
// discarded; use [AgentResponseStream.FinalResponse] instead.
func (a *Agent) RunStream(ctx context.Context, messages []Message, opts ...RunOption) (*AgentResponseStream, error) {
	cfg := buildRunConfig(opts)
	req := &AgentRequest{
		Messages: messages,
		Options:  a.prepareChatOptions(cfg),
	}

	stream := NewResponseStream(ctx, func(ctx context.Context, ch chan<- AgentResponseUpdate) error {
		emit := func(u AgentResponseUpdate) error {
			select {
			case ch <- u:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		_, err := chain(a.runHandler(emit), a.agentMiddleware)(ctx, req)
		return err
	})

	return NewAgentResponseStream(stream), nil
}

func buildRunConfig(opts []RunOption) *runConfig {
	cfg := &runConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func (a *Agent) prepareChatOptions(cfg *runConfig) *ChatOptions {
	opts := MergeChatOptions(a.defaultOptions, cfg.options)

	tools := mergeTools(opts.Tools, a.tools)
	if len(cfg.tools) > 0 {
		tools = mergeTools(tools, cfg.tools)
	}
	if len(tools) > 0 {
		opts.Tools = tools
	}

	if a.instructions != "" {
		if opts.Instructions != "" {
			opts.Instructions = a.instructions + "\n" + opts.Instructions
		} else {
			opts.Instructions = a.instructions
		}
	}

	return opts
}

// newInvocation prepares one run of the tool loop. With emit set the model
// is streamed; chat middleware wraps the streamed call all the same.
func (a *Agent) newInvocation(emit func(AgentResponseUpdate) error) *invocation {
	inv := &invocation{
		config:       a.invocationConfig,
		fnMiddleware: a.functionMiddleware,
		agentID:      a.id,
		emit:         emit,
	}
	base := ChatHandler(a.client.Response)
	if emit != nil {
		base = inv.streamChat(a.client)
	}
	inv.chat = chain(base, a.chatMiddleware)
	return inv
}

func (a *Agent) runHandler(emit func(AgentResponseUpdate) error) AgentHandler {
	return func(ctx context.Context, req *AgentRequest) (*AgentResponse, error) {
		chatOpts := req.Options
		if chatOpts == nil {
			chatOpts = &ChatOptions{}
		}
		allMessages := PrependInstructions(req.Messages, chatOpts.Instructions)

		slog.DebugContext(ctx, "agent run",
			"agent_id", a.id,
			"agent_name", a.name,
			"message_count", len(allMessages),
			"tool_count", len(chatOpts.Tools),
		)

		chatResp, err := a.newInvocation(emit).run(ctx, allMessages, chatOpts)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrExecution, err)
		}

		return &AgentResponse{
			Messages:   chatResp.Messages,
			ResponseID: chatResp.ResponseID,
			AgentID:    a.id,
			Usage:      chatResp.Usage,
			Extra:      chatResp.Extra,
			Raw:        chatResp.Raw,
		}, nil
	}
}
