// Copyright (c) Microsoft. All rights reserved.

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	af "github.com/jochenvw/agent-patterns/agentframework"
	"github.com/jochenvw/agent-patterns/gemini"
	"github.com/jochenvw/agent-patterns/openai"
)

// newChatClient builds the chat client for cfg.Backend.
func newChatClient(ctx context.Context, cfg Config) (af.ChatClient, error) {
	var mws []af.ChatMiddleware
	if cfg.Debug {
		mws = append(mws, af.ChatLoggingMiddleware(slog.Default()))
	}

	switch cfg.Backend {
	case "gemini":
		opts := []gemini.Option{gemini.WithModel(cfg.Model), gemini.WithChatMiddleware(mws...)}
		if cfg.Endpoint != "" {
			opts = append(opts, gemini.WithBaseURL(cfg.Endpoint))
		}
		client, err := gemini.New(ctx, cfg.APIKey, opts...)
		if err != nil {
			return nil, fmt.Errorf("create gemini client: %w", err)
		}
		return client, nil

	case "azure":
		opts := []openai.Option{openai.WithBaseURL(cfg.Endpoint), openai.WithModel(cfg.Model)}
		if cfg.APIKey == "" {
			slog.Debug("using Azure AD authentication (DefaultAzureCredential)")
			cred, err := azidentity.NewDefaultAzureCredential(nil)
			if err != nil {
				return nil, fmt.Errorf("create Azure credential: %w", err)
			}
			opts = append(opts, openai.WithAzureCredential(cred))
		} else {
			// Azure expects the key in api-key rather than a bearer token.
			opts = append(opts, openai.WithHeaders(map[string]string{"api-key": cfg.APIKey}))
		}
		if cfg.TextToolCalls {
			mws = append(mws, openai.TextToolCallMiddleware(slog.Default()))
		}
		opts = append(opts, openai.WithChatMiddleware(mws...))
		return openai.New(cfg.APIKey, opts...), nil

	default:
		opts := []openai.Option{openai.WithModel(cfg.Model)}
		if cfg.Endpoint != "" {
			opts = append(opts, openai.WithBaseURL(cfg.Endpoint))
		}
		if cfg.TextToolCalls {
			mws = append(mws, openai.TextToolCallMiddleware(slog.Default()))
		}
		opts = append(opts, openai.WithChatMiddleware(mws...))
		return openai.New(cfg.APIKey, opts...), nil
	}
}
