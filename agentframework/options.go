// Copyright (c) Microsoft. All rights reserved.

package agentframework

import "encoding/json"

// ToolChoice controls how the model selects tools.
type ToolChoice string

const (
	ToolChoiceAuto     ToolChoice = "auto"
	ToolChoiceRequired ToolChoice = "required"
	ToolChoiceNone     ToolChoice = "none"
)

// ToolChoiceFunction returns a ToolChoice that forces the model to call
// the named function.
func ToolChoiceFunction(name string) ToolChoice {
	return ToolChoice("function:" + name)
}

// ResponseFormat asks the model for a JSON reply conforming to Schema.
// Providers translate it into their structured-output mechanism.
type ResponseFormat struct {
	// Name identifies the schema to the provider. Required by OpenAI.
	Name string

	// Schema is a JSON Schema object describing the reply.
	Schema json.RawMessage

	// Strict requests exact schema adherence where the provider supports it.
	Strict bool
}

// ChatOptions configures a single chat completion request.
// Pointer fields use nil to represent "unset" (use provider default).
type ChatOptions struct {
	ModelID        string
	Temperature    *float64
	TopP           *float64
	MaxTokens      *int
	Stop           []string
	Seed           *int
	Tools          []Tool
	ToolChoice     ToolChoice
	ResponseFormat *ResponseFormat
	Metadata       map[string]string
	User           string
	Instructions   string

	// Extra holds provider-specific options not covered by standard fields.
	Extra map[string]any
}

// MergeChatOptions produces a new ChatOptions by overlaying override values
// onto base. Nil or zero-value fields in override do not overwrite base.
// Tools are merged by name (override replaces same-named tools).
// Metadata is merged (override keys win). Instructions are concatenated.
func MergeChatOptions(base, override *ChatOptions) *ChatOptions {
	if base == nil {
		if override == nil {
			return &ChatOptions{}
		}
		cp := *override
		return &cp
	}
	if override == nil {
		cp := *base
		return &cp
	}

	merged := *base

	if override.ModelID != "" {
		merged.ModelID = override.ModelID
	}
	if override.Temperature != nil {
		merged.Temperature = override.Temperature
	}
	if override.TopP != nil {
		merged.TopP = override.TopP
	}
	if override.MaxTokens != nil {
		merged.MaxTokens = override.MaxTokens
	}
	if len(override.Stop) > 0 {
		merged.Stop = override.Stop
	}
	if override.Seed != nil {
		merged.Seed = override.Seed
	}
	if override.ToolChoice != "" {
		merged.ToolChoice = override.ToolChoice
	}
	if override.ResponseFormat != nil {
		merged.ResponseFormat = override.ResponseFormat
	}
	if override.User != "" {
		merged.User = override.User
	}

	if override.Instructions != "" {
		if merged.Instructions != "" {
			merged.Instructions += "\n" + override.Instructions
		} else {
			merged.Instructions = override.Instructions
		}
	}

	if len(override.Tools) > 0 {
		merged.Tools = mergeTools(merged.Tools, override.Tools)
	}

	if len(override.Metadata) > 0 {
		md := make(map[string]string, len(merged.Metadata)+len(override.Metadata))
		for k, v := range merged.Metadata {
			md[k] = v
		}
		for k, v := range override.Metadata {
			md[k] = v
		}
		merged.Metadata = md
	}

	if len(override.Extra) > 0 {
		extra := make(map[string]any, len(merged.Extra)+len(override.Extra))
		for k, v := range merged.Extra {
			extra[k] = v
		}
		for k, v := range override.Extra {
			extra[k] = v
		}
		merged.Extra = extra
	}

	return &merged
}

// mergeTools keeps base order, replaces same-named tools with the override
// and appends tools only present in override.
func mergeTools(base, override []Tool) []Tool {
	byName := make(map[string]Tool, len(override))
	for _, t := range override {
		byName[t.Name()] = t
	}
	tools := make([]Tool, 0, len(base)+len(override))
	seen := make(map[string]bool, len(base))
	for _, t := range base {
		if o, ok := byName[t.Name()]; ok {
			t = o
		}
		tools = append(tools, t)
		seen[t.Name()] = true
	}
	for _, t := range override {
		if !seen[t.Name()] {
			tools = append(tools, t)
			seen[t.Name()] = true
		}
	}
	return tools
}
