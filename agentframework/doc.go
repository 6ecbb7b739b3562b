// Copyright (c) Microsoft. All rights reserved.

// Package agentframework is the small agent runtime that the pattern
// packages decorate. It provides a tool-calling [Agent], the [Tool]
// capability interface, middleware chains and a pull-based streaming model.
//
// # Running an agent
//
//	client := openai.New(os.Getenv("OPENAI_API_KEY"), openai.WithModel("gpt-4o"))
//
//	agent := agentframework.NewAgent(client,
//	    agentframework.WithName("researcher"),
//	    agentframework.WithInstructions("Answer with sources."),
//	    agentframework.WithTools(searchTool, fetchTool),
//	)
//
//	stream, err := agent.RunStream(ctx, []agentframework.Message{
//	    agentframework.NewUserMessage("What changed in Go 1.24?"),
//	})
//
// [Agent.RunStream] streams the model's text as it is written, then emits
// each assistant turn's function calls whole and one update per tool result,
// so observers see complete tool calls in the order the agent made them. [AgentResponseStream.FinalResponse] returns the merged
// result once the stream is exhausted.
//
// # Tools
//
// Use [NewTypedTool] for tools whose JSON Schema is generated from an
// argument struct:
//
//	type SearchArgs struct {
//	    Query string `json:"query" jsonschema:"description=Search terms,required"`
//	    Limit int    `json:"limit" jsonschema:"description=Maximum results"`
//	}
//
//	tool := agentframework.NewTypedTool("search", "Search the web",
//	    func(ctx context.Context, args SearchArgs) (any, error) {
//	        return search(ctx, args.Query, args.Limit)
//	    },
//	)
//
// Decorators such as invocation budgets or required explanations implement
// [Tool] themselves and wrap another [Tool].
//
// # Middleware
//
// Cross-cutting behavior is added at three levels (agent, chat, function):
//
//	agent := agentframework.NewAgent(client,
//	    agentframework.WithAgentMiddleware(agentframework.LoggingMiddleware(logger)),
//	    agentframework.WithFunctionMiddleware(agentframework.FunctionLoggingMiddleware(logger)),
//	)
package agentframework
