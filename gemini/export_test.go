// Copyright (c) Microsoft. All rights reserved.

package gemini

import af "github.com/jochenvw/agent-patterns/agentframework"

// Generator exposes the SDK seam to external tests.
type Generator = generator

func NewWithGenerator(g Generator, model string, mws ...af.ChatMiddleware) *Client {
	return newWithGenerator(g, &clientConfig{model: model, chatMiddleware: mws})
}
