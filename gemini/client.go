// Copyright (c) Microsoft. All rights reserved.

package gemini

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"

	"google.golang.org/genai"

	af "github.com/jochenvw/agent-patterns/agentframework"
)

const defaultModel = "gemini-2.5-flash"

// generator is the subset of [genai.Models] the client calls.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

// Client implements [agentframework.ChatClient] for the Gemini API.
type Client struct {
	models  generator
	model   string
	handler af.ChatHandler
}

var _ af.ChatClient = (*Client)(nil)

type clientConfig struct {
	model          string
	baseURL        string
	httpClient     *http.Client
	chatMiddleware []af.ChatMiddleware
}

// Option configures a [Client].
type Option func(*clientConfig)

// WithModel sets the default model. Default is gemini-2.5-flash.
func WithModel(model string) Option {
	return func(c *clientConfig) { c.model = model }
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(url string) Option {
	return func(c *clientConfig) { c.baseURL = url }
}

// WithHTTPClient provides a custom http.Client for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) { c.httpClient = client }
}

// WithChatMiddleware adds middleware to the chat pipeline.
// Middleware is applied in the order provided (first = outermost).
func WithChatMiddleware(mw ...af.ChatMiddleware) Option {
	return func(c *clientConfig) { c.chatMiddleware = append(c.chatMiddleware, mw...) }
}

// New creates a Gemini [Client] with the given API key and options.
func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	cfg := &clientConfig{model: defaultModel}
	for _, o := range opts {
		o(cfg)
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  cfg.httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return newWithGenerator(gc.Models, cfg), nil
}

func newWithGenerator(g generator, cfg *clientConfig) *Client {
	c := &Client{models: g, model: cfg.model}
	c.handler = c.coreResponse
	for i := len(cfg.chatMiddleware) - 1; i >= 0; i-- {
		c.handler = cfg.chatMiddleware[i](c.handler)
	}
	return c
}

// Response sends a non-streaming request and returns the complete response.
func (c *Client) Response(ctx context.Context, messages []af.Message, opts *af.ChatOptions) (*af.ChatResponse, error) {
	return c.handler(ctx, messages, opts)
}

func (c *Client) coreResponse(ctx context.Context, messages []af.Message, opts *af.ChatOptions) (*af.ChatResponse, error) {
	contents, config := buildRequest(messages, opts)

	raw, err := c.models.GenerateContent(ctx, c.modelFor(opts), contents, config)
	if err != nil {
		return nil, mapError(err)
	}

	resp := parseResponse(raw)
	resp.Raw = raw
	return resp, nil
}

// StreamResponse sends a streaming request. Each chunk from the API becomes
// one [agentframework.ChatResponseUpdate].
func (c *Client) StreamResponse(ctx context.Context, messages []af.Message, opts *af.ChatOptions) (*af.ResponseStream[af.ChatResponseUpdate], error) {
	contents, config := buildRequest(messages, opts)
	model := c.modelFor(opts)

	return af.NewResponseStream(ctx, func(ctx context.Context, ch chan<- af.ChatResponseUpdate) error {
		for chunk, err := range c.models.GenerateContentStream(ctx, model, contents, config) {
			if err != nil {
				return mapError(err)
			}
			update := parseChunk(chunk)
			update.Raw = chunk
			select {
			case ch <- *update:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	}), nil
}

func (c *Client) modelFor(opts *af.ChatOptions) string {
	if opts != nil && opts.ModelID != "" {
		return opts.ModelID
	}
	return c.model
}

// mapError translates SDK errors into the framework's error tree.
func mapError(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%w: gemini: %w", af.ErrService, err)
	}

	svcErr := &af.ServiceError{
		StatusCode: apiErr.Code,
		Message:    apiErr.Message,
		Code:       apiErr.Status,
	}
	switch {
	case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
		svcErr.Err = af.ErrAuth
	case apiErr.Code == http.StatusTooManyRequests:
		svcErr.Err = af.ErrRateLimit
	case apiErr.Code == http.StatusBadRequest:
		svcErr.Err = af.ErrInvalidRequest
	default:
		svcErr.Err = af.ErrService
	}
	return svcErr
}
