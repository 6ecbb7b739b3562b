// Copyright (c) Microsoft. All rights reserved.

package patterns

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	af "github.com/jochenvw/agent-patterns/agentframework"
)

// DefaultExplanationField is the parameter the model fills with its reason.
const DefaultExplanationField = "why"

const defaultExplanationDescription = "Explain briefly why you are calling this tool and what you expect to learn."

// ErrMissingExplanation is returned when a call omits the explanation.
var ErrMissingExplanation = fmt.Errorf("%w: missing explanation", af.ErrToolArguments)

// Explanation is one recorded reason for a tool call.
type Explanation struct {
	Tool string `json:"tool"`

	// Arguments are the call arguments without the explanation field.
	Arguments json.RawMessage `json:"arguments"`

	Reason string    `json:"reason"`
	Time   time.Time `json:"time"`
}

// ExplanationLog collects explanations. The zero value is ready to use and
// safe for concurrent use.
type ExplanationLog struct {
	mu      sync.Mutex
	entries []Explanation
}

func (l *ExplanationLog) add(e Explanation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
}

// Entries returns a copy of the recorded explanations in call order.
func (l *ExplanationLog) Entries() []Explanation {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.entries)
}

type explainConfig struct {
	field       string
	description string
}

// ExplainOption configures [RequireExplanation].
type ExplainOption func(*explainConfig)

// WithExplanationField renames the explanation parameter.
func WithExplanationField(name string) ExplainOption {
	return func(c *explainConfig) { c.field = name }
}

// WithExplanationDescription sets the schema description of the parameter.
func WithExplanationDescription(desc string) ExplainOption {
	return func(c *explainConfig) { c.description = desc }
}

// RequireExplanation makes the model justify every call to tool. The tool's
// schema gains a required string parameter; on invoke the reason is
// recorded in log (when non-nil) and removed before the inner tool runs.
// A missing or blank reason fails with [ErrMissingExplanation] and the
// inner tool is not called.
func RequireExplanation(tool af.Tool, log *ExplanationLog, opts ...ExplainOption) af.Tool {
	cfg := explainConfig{
		field:       DefaultExplanationField,
		description: defaultExplanationDescription,
	}
	for _, o := range opts {
		o(&cfg)
	}
	return &explainTool{
		decorated:  decorated{tool},
		field:      cfg.field,
		log:        log,
		parameters: withRequiredString(tool.Parameters(), cfg.field, cfg.description),
	}
}

type explainTool struct {
	decorated
	field      string
	log        *ExplanationLog
	parameters json.RawMessage
}

func (t *explainTool) Parameters() json.RawMessage { return t.parameters }

func (t *explainTool) Invoke(ctx context.Context, args json.RawMessage) (any, error) {
	fields := map[string]json.RawMessage{}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &fields); err != nil {
			return nil, &af.ToolError{
				ToolName: t.Name(),
				Message:  "arguments must be a JSON object",
				Err:      af.ErrToolArguments,
			}
		}
	}

	var reason string
	if raw, ok := fields[t.field]; ok {
		if err := json.Unmarshal(raw, &reason); err != nil {
			return nil, &af.ToolError{
				ToolName: t.Name(),
				Message:  fmt.Sprintf("the %q parameter must be a string", t.field),
				Err:      af.ErrToolArguments,
			}
		}
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, &af.ToolError{
			ToolName: t.Name(),
			Message:  fmt.Sprintf("the %q parameter is required: say why you are calling this tool", t.field),
			Err:      ErrMissingExplanation,
		}
	}
	delete(fields, t.field)

	stripped, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: re-encode arguments: %w", af.ErrToolArguments, err)
	}
	if t.log != nil {
		t.log.add(Explanation{Tool: t.Name(), Arguments: stripped, Reason: reason, Time: time.Now()})
	}
	return t.Tool.Invoke(ctx, stripped)
}

// withRequiredString adds a required string property to an object schema.
// A schema that is empty or not an object is replaced by an object schema.
func withRequiredString(schema json.RawMessage, name, description string) json.RawMessage {
	var s map[string]any
	if err := json.Unmarshal(schema, &s); err != nil || s == nil {
		s = map[string]any{}
	}
	s["type"] = "object"

	props, _ := s["properties"].(map[string]any)
	if props == nil {
		props = map[string]any{}
	}
	props[name] = map[string]any{"type": "string", "description": description}
	s["properties"] = props

	var required []any
	if r, ok := s["required"].([]any); ok {
		required = r
	}
	if !slices.Contains(required, any(name)) {
		required = append(required, name)
	}
	s["required"] = required

	b, err := json.Marshal(s)
	if err != nil {
		return schema
	}
	return b
}
