// Copyright (c) Microsoft. All rights reserved.

package tap

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	af "github.com/jochenvw/agent-patterns/agentframework"
)

// DefaultInstructions is the system instruction sent with every batch.
const DefaultInstructions = "Rewrite these agent-produced logs into plain, first-person, " +
	"present-tense, non-technical language, preserving the original language of the text. " +
	"Reply with JSON that matches the requested schema."

// Message is the default summary: one free-text field.
type Message struct {
	Message string `json:"message" jsonschema:"description=Plain-language summary of what the agent is doing,required"`
}

// Paraphraser turns an ordered batch of tap lines into one summary.
type Paraphraser[S any] interface {
	Paraphrase(ctx context.Context, lines []string) (S, error)
}

// ParaphraserFunc adapts a function to [Paraphraser].
type ParaphraserFunc[S any] func(ctx context.Context, lines []string) (S, error)

func (f ParaphraserFunc[S]) Paraphrase(ctx context.Context, lines []string) (S, error) {
	return f(ctx, lines)
}

func (f ParaphraserFunc[S]) validate() error {
	if f == nil {
		return errors.New("paraphraser func is nil")
	}
	return nil
}

type paraphraserConfig struct {
	instructions string
	schema       json.RawMessage
	schemaName   string
	strict       bool
	chatOptions  *af.ChatOptions
}

// ParaphraserOption configures a [ChatParaphraser].
type ParaphraserOption func(*paraphraserConfig)

// WithInstructions replaces [DefaultInstructions].
func WithInstructions(instructions string) ParaphraserOption {
	return func(c *paraphraserConfig) { c.instructions = instructions }
}

// WithSchema overrides the JSON Schema generated from the summary type.
func WithSchema(schema json.RawMessage) ParaphraserOption {
	return func(c *paraphraserConfig) { c.schema = schema }
}

// WithSchemaName sets the schema name reported to the provider. Default "tap_summary".
func WithSchemaName(name string) ParaphraserOption {
	return func(c *paraphraserConfig) { c.schemaName = name }
}

// WithStrictSchema asks providers that support it to enforce the schema exactly.
// OpenAI requires every property to be listed as required in strict mode.
func WithStrictSchema() ParaphraserOption {
	return func(c *paraphraserConfig) { c.strict = true }
}

// WithChatOptions sets base options (model, temperature, ...) for each call.
func WithChatOptions(opts *af.ChatOptions) ParaphraserOption {
	return func(c *paraphraserConfig) { c.chatOptions = opts }
}

// ChatParaphraser paraphrases batches with any [af.ChatClient] using
// structured output. The reply is decoded into S.
type ChatParaphraser[S any] struct {
	client       af.ChatClient
	instructions string
	format       *af.ResponseFormat
	required     []string
	known        map[string]bool
	chatOptions  *af.ChatOptions
}

var _ Paraphraser[Message] = (*ChatParaphraser[Message])(nil)

// NewChatParaphraser creates a [ChatParaphraser]. The output schema is
// generated from S unless [WithSchema] is given. client must not be nil;
// [New] rejects a paraphraser without one.
func NewChatParaphraser[S any](client af.ChatClient, opts ...ParaphraserOption) *ChatParaphraser[S] {
	cfg := &paraphraserConfig{
		instructions: DefaultInstructions,
		schemaName:   "tap_summary",
	}
	for _, o := range opts {
		o(cfg)
	}
	if len(cfg.schema) == 0 {
		cfg.schema = af.GenerateSchema[S]()
	}

	return &ChatParaphraser[S]{
		client:       client,
		instructions: cfg.instructions,
		format: &af.ResponseFormat{
			Name:   cfg.schemaName,
			Schema: cfg.schema,
			Strict: cfg.strict,
		},
		required:    af.RequiredProperties(cfg.schema),
		known:       closedProperties(cfg.schema),
		chatOptions: cfg.chatOptions,
	}
}

func (p *ChatParaphraser[S]) validate() error {
	if p == nil || p.client == nil {
		return errors.New("chat paraphraser has no client")
	}
	return nil
}

// Schema returns the JSON Schema replies must conform to.
func (p *ChatParaphraser[S]) Schema() json.RawMessage { return p.format.Schema }

// Paraphrase joins lines with newlines, asks the model for a summary and
// decodes it. It does not retry.
func (p *ChatParaphraser[S]) Paraphrase(ctx context.Context, lines []string) (S, error) {
	var zero S
	if err := p.validate(); err != nil {
		return zero, err
	}
	if len(lines) == 0 {
		return zero, ErrEmptyBatch
	}

	opts := af.MergeChatOptions(p.chatOptions, &af.ChatOptions{ResponseFormat: p.format})
	messages := []af.Message{
		af.NewSystemMessage(p.instructions),
		af.NewUserMessage(strings.Join(lines, "\n")),
	}

	resp, err := p.client.Response(ctx, messages, opts)
	if err != nil {
		return zero, fmt.Errorf("paraphrase request: %w", err)
	}
	return decodeSummary[S](resp.Text(), p.required, p.known)
}

// decodeSummary parses a model reply. Replies wrapped in a Markdown code
// fence are accepted. When known is non-nil the reply may only carry those
// top-level properties.
func decodeSummary[S any](text string, required []string, known map[string]bool) (S, error) {
	var zero S
	raw := bytes.TrimSpace([]byte(stripFence(text)))
	if len(raw) == 0 || !json.Valid(raw) {
		return zero, fmt.Errorf("%w: reply is not JSON", ErrMalformedSummary)
	}
	if bytes.Equal(raw, []byte("null")) {
		return zero, fmt.Errorf("%w: reply is null", ErrMalformedSummary)
	}

	if len(required) > 0 || known != nil {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return zero, fmt.Errorf("%w: reply is not an object", ErrMalformedSummary)
		}
		for _, name := range required {
			v, ok := fields[name]
			if !ok || bytes.Equal(v, []byte("null")) {
				return zero, fmt.Errorf("%w: missing %q", ErrMalformedSummary, name)
			}
		}
		if known != nil {
			for name := range fields {
				if !known[name] {
					return zero, fmt.Errorf("%w: unexpected property %q", ErrMalformedSummary, name)
				}
			}
		}
	}

	var s S
	if err := json.Unmarshal(raw, &s); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrMalformedSummary, err)
	}
	return s, nil
}

// closedProperties returns the top-level property names of an object schema
// that sets "additionalProperties": false, or nil when extra properties are
// allowed.
func closedProperties(schema json.RawMessage) map[string]bool {
	var s struct {
		Properties           map[string]json.RawMessage `json:"properties"`
		AdditionalProperties *bool                      `json:"additionalProperties"`
	}
	if err := json.Unmarshal(schema, &s); err != nil {
		return nil
	}
	if s.AdditionalProperties == nil || *s.AdditionalProperties {
		return nil
	}
	known := make(map[string]bool, len(s.Properties))
	for name := range s.Properties {
		known[name] = true
	}
	return known
}

func stripFence(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	if i := strings.IndexByte(t, '\n'); i >= 0 {
		t = t[i+1:]
	}
	t = strings.TrimSuffix(strings.TrimSpace(t), "```")
	return t
}
