// Copyright (c) Microsoft. All rights reserved.

package gemini

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/genai"

	af "github.com/jochenvw/agent-patterns/agentframework"
)

const (
	roleUser  = "user"
	roleModel = "model"
)

// buildRequest converts framework messages and options into genai contents
// and a generation config. System messages become the system instruction.
func buildRequest(messages []af.Message, opts *af.ChatOptions) ([]*genai.Content, *genai.GenerateContentConfig) {
	config := buildConfig(opts)

	var system []*genai.Part
	var contents []*genai.Content
	for _, msg := range messages {
		switch msg.Role {
		case af.RoleSystem:
			if text := msg.Text(); text != "" {
				system = append(system, &genai.Part{Text: text})
			}
		case af.RoleTool:
			parts := functionResponseParts(msg.Contents)
			if len(parts) == 0 {
				continue
			}
			// Results for one model turn travel together.
			if n := len(contents); n > 0 && contents[n-1].Role == roleUser && isFunctionResponses(contents[n-1]) {
				contents[n-1].Parts = append(contents[n-1].Parts, parts...)
				continue
			}
			contents = append(contents, &genai.Content{Role: roleUser, Parts: parts})
		case af.RoleAssistant:
			if parts := modelParts(msg.Contents); len(parts) > 0 {
				contents = append(contents, &genai.Content{Role: roleModel, Parts: parts})
			}
		default:
			if text := msg.Text(); text != "" {
				contents = append(contents, &genai.Content{Role: roleUser, Parts: []*genai.Part{{Text: text}}})
			}
		}
	}

	if len(system) > 0 {
		config.SystemInstruction = &genai.Content{Parts: system}
	}
	return contents, config
}

func buildConfig(opts *af.ChatOptions) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if opts == nil {
		return config
	}

	if opts.Temperature != nil {
		v := float32(*opts.Temperature)
		config.Temperature = &v
	}
	if opts.TopP != nil {
		v := float32(*opts.TopP)
		config.TopP = &v
	}
	if opts.MaxTokens != nil {
		config.MaxOutputTokens = int32(*opts.MaxTokens)
	}
	if opts.Seed != nil {
		v := int32(*opts.Seed)
		config.Seed = &v
	}
	config.StopSequences = opts.Stop
	config.Tools = convertTools(opts.Tools)
	config.ToolConfig = convertToolChoice(opts.ToolChoice)

	if rf := opts.ResponseFormat; rf != nil {
		config.ResponseMIMEType = "application/json"
		if len(rf.Schema) > 0 {
			config.ResponseJsonSchema = decodeObject(rf.Schema)
		}
	}
	return config
}

func convertTools(tools []af.Tool) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, len(tools))
	for i, t := range tools {
		decls[i] = &genai.FunctionDeclaration{
			Name:                 t.Name(),
			Description:          t.Description(),
			ParametersJsonSchema: decodeObject(t.Parameters()),
		}
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func convertToolChoice(tc af.ToolChoice) *genai.ToolConfig {
	var fc genai.FunctionCallingConfig
	switch tc {
	case "":
		return nil
	case af.ToolChoiceAuto:
		fc.Mode = genai.FunctionCallingConfigModeAuto
	case af.ToolChoiceRequired:
		fc.Mode = genai.FunctionCallingConfigModeAny
	case af.ToolChoiceNone:
		fc.Mode = genai.FunctionCallingConfigModeNone
	default:
		name, ok := strings.CutPrefix(string(tc), "function:")
		if !ok {
			return nil
		}
		fc.Mode = genai.FunctionCallingConfigModeAny
		fc.AllowedFunctionNames = []string{name}
	}
	return &genai.ToolConfig{FunctionCallingConfig: &fc}
}

func modelParts(contents af.Contents) []*genai.Part {
	var parts []*genai.Part
	for _, c := range contents {
		switch v := c.(type) {
		case *af.TextContent:
			parts = append(parts, &genai.Part{Text: v.Text})
		case *af.TextReasoningContent:
			parts = append(parts, &genai.Part{Text: v.Text, Thought: true})
		case *af.FunctionCallContent:
			var args map[string]any
			if v.Arguments != "" {
				_ = json.Unmarshal([]byte(v.Arguments), &args)
			}
			parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
				ID:   v.CallID,
				Name: v.Name,
				Args: args,
			}})
		}
	}
	return parts
}

func functionResponseParts(contents af.Contents) []*genai.Part {
	var parts []*genai.Part
	for _, c := range contents {
		fr, ok := c.(*af.FunctionResultContent)
		if !ok {
			continue
		}
		parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
			ID:       fr.CallID,
			Name:     fr.Name,
			Response: responseObject(fr.Result),
		}})
	}
	return parts
}

func isFunctionResponses(c *genai.Content) bool {
	for _, p := range c.Parts {
		if p.FunctionResponse == nil {
			return false
		}
	}
	return len(c.Parts) > 0
}

// responseObject shapes a tool result into the JSON object Gemini expects.
// Objects pass through; anything else is wrapped under "output".
func responseObject(result any) map[string]any {
	switch v := result.(type) {
	case map[string]any:
		return v
	case string:
		var obj map[string]any
		if err := json.Unmarshal([]byte(v), &obj); err == nil && obj != nil {
			return obj
		}
		return map[string]any{"output": v}
	}
	b, err := json.Marshal(result)
	if err != nil {
		return map[string]any{"output": "error: unserializable tool result"}
	}
	var obj map[string]any
	if err := json.Unmarshal(b, &obj); err == nil && obj != nil {
		return obj
	}
	var anyVal any
	_ = json.Unmarshal(b, &anyVal)
	return map[string]any{"output": anyVal}
}

func decodeObject(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	return obj
}

// parseResponse converts the first candidate of a response.
func parseResponse(raw *genai.GenerateContentResponse) *af.ChatResponse {
	resp := &af.ChatResponse{
		ResponseID: raw.ResponseID,
		ModelID:    raw.ModelVersion,
		Usage:      convertUsage(raw.UsageMetadata),
	}
	if len(raw.Candidates) == 0 {
		return resp
	}

	cand := raw.Candidates[0]
	contents := candidateContents(cand)
	resp.FinishReason = finishReason(cand.FinishReason, contents)
	if len(contents) > 0 {
		resp.Messages = []af.Message{{Role: af.RoleAssistant, Contents: contents}}
	}
	return resp
}

func parseChunk(chunk *genai.GenerateContentResponse) *af.ChatResponseUpdate {
	update := &af.ChatResponseUpdate{
		Role:       af.RoleAssistant,
		ResponseID: chunk.ResponseID,
		ModelID:    chunk.ModelVersion,
		Usage:      convertUsage(chunk.UsageMetadata),
	}
	if len(chunk.Candidates) == 0 {
		return update
	}
	cand := chunk.Candidates[0]
	update.Contents = candidateContents(cand)
	update.FinishReason = finishReason(cand.FinishReason, update.Contents)
	return update
}

func candidateContents(cand *genai.Candidate) af.Contents {
	if cand == nil || cand.Content == nil {
		return nil
	}
	var contents af.Contents
	for _, p := range cand.Content.Parts {
		switch {
		case p.FunctionCall != nil:
			contents = append(contents, functionCallContent(p.FunctionCall))
		case p.Thought && p.Text != "":
			contents = append(contents, &af.TextReasoningContent{Text: p.Text})
		case p.Text != "":
			contents = append(contents, &af.TextContent{Text: p.Text})
		}
	}
	return contents
}

func functionCallContent(fc *genai.FunctionCall) *af.FunctionCallContent {
	id := fc.ID
	if id == "" {
		id = "call_" + uuid.NewString()
	}
	args := "{}"
	if len(fc.Args) > 0 {
		if b, err := json.Marshal(fc.Args); err == nil {
			args = string(b)
		}
	}
	return &af.FunctionCallContent{CallID: id, Name: fc.Name, Arguments: args}
}

func convertUsage(u *genai.GenerateContentResponseUsageMetadata) af.UsageDetails {
	if u == nil {
		return af.UsageDetails{}
	}
	return af.UsageDetails{
		InputTokens:  int(u.PromptTokenCount),
		OutputTokens: int(u.CandidatesTokenCount),
		TotalTokens:  int(u.TotalTokenCount),
	}
}

func finishReason(r genai.FinishReason, contents af.Contents) af.FinishReason {
	for _, c := range contents {
		if c.Type() == af.ContentTypeFunctionCall {
			return af.FinishReasonToolCalls
		}
	}
	switch r {
	case "":
		return ""
	case genai.FinishReasonStop:
		return af.FinishReasonStop
	case genai.FinishReasonMaxTokens:
		return af.FinishReasonLength
	case genai.FinishReasonSafety, genai.FinishReasonBlocklist,
		genai.FinishReasonProhibitedContent, genai.FinishReasonSPII:
		return af.FinishReasonContentFilter
	default:
		return af.FinishReason(strings.ToLower(string(r)))
	}
}
