// Copyright (c) Microsoft. All rights reserved.

// Package gemini provides a [agentframework.ChatClient] backed by the Google
// Gemini API through the google.golang.org/genai SDK.
//
//	client, err := gemini.New(ctx, os.Getenv("GEMINI_API_KEY"),
//	    gemini.WithModel("gemini-2.5-flash"),
//	)
//	if err != nil {
//	    return err
//	}
//	agent := agentframework.NewAgent(client)
//
// Tool calls are returned whole, so [agentframework.FunctionCallContent]
// always carries complete JSON arguments. Calls the API leaves without an ID
// get a generated one. [agentframework.ChatOptions.ResponseFormat] maps to a
// JSON response MIME type with a response schema.
package gemini
