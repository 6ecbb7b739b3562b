// Copyright (c) Microsoft. All rights reserved.

package agentframework

import "strings"

// ChatResponse is the complete (non-streaming) response from a [ChatClient].
type ChatResponse struct {
	Messages     []Message
	ResponseID   string
	ModelID      string
	FinishReason FinishReason
	Usage        UsageDetails
	Extra        map[string]any
	Raw          any
}

// Text returns the concatenated text of all messages in this response.
func (r *ChatResponse) Text() string {
	var b strings.Builder
	for i := range r.Messages {
		b.WriteString(r.Messages[i].Text())
	}
	return b.String()
}

// ChatResponseUpdate is a single chunk received during streaming from a [ChatClient].
type ChatResponseUpdate struct {
	Contents     Contents
	Role         Role
	ResponseID   string
	ModelID      string
	FinishReason FinishReason
	Usage        UsageDetails
	Raw          any
}

// Text returns the concatenated text of all [TextContent] items in this update.
func (u *ChatResponseUpdate) Text() string {
	var b strings.Builder
	for _, c := range u.Contents {
		if tc, ok := c.(*TextContent); ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

// AgentResponse is the complete response from an [Agent] run.
type AgentResponse struct {
	Messages   []Message
	ResponseID string
	AgentID    string
	Usage      UsageDetails
	Extra      map[string]any
	Raw        any
}

// Text returns the concatenated text of all messages in this agent response.
func (r *AgentResponse) Text() string {
	var b strings.Builder
	for i := range r.Messages {
		b.WriteString(r.Messages[i].Text())
	}
	return b.String()
}

// UserInputRequests returns all [ApprovalRequestContent] items across messages.
func (r *AgentResponse) UserInputRequests() []Content {
	var reqs []Content
	for _, m := range r.Messages {
		for _, c := range m.Contents {
			if c.Type() == ContentTypeApprovalRequest {
				reqs = append(reqs, c)
			}
		}
	}
	return reqs
}

// AgentResponseUpdate is a single streaming chunk from an [Agent] run.
type AgentResponseUpdate struct {
	Contents   Contents
	Role       Role
	AgentID    string
	ResponseID string
	Usage      UsageDetails
	Raw        any
}

// Text returns the concatenated text of all [TextContent] items in this update.
func (u *AgentResponseUpdate) Text() string {
	var b strings.Builder
	for _, c := range u.Contents {
		if tc, ok := c.(*TextContent); ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

// ChatResponseFromUpdates builds a complete [ChatResponse] by merging
// a sequence of streaming updates.
func ChatResponseFromUpdates(updates []ChatResponseUpdate) *ChatResponse {
	resp := &ChatResponse{}
	var allContents Contents
	for _, u := range updates {
		allContents = append(allContents, u.Contents...)
		if u.ResponseID != "" {
			resp.ResponseID = u.ResponseID
		}
		if u.ModelID != "" {
			resp.ModelID = u.ModelID
		}
		if u.FinishReason != "" {
			resp.FinishReason = u.FinishReason
		}
		if u.Usage.TotalTokens > 0 {
			resp.Usage = u.Usage
		}
	}

	// Merge text content deltas into a single TextContent.
	merged := mergeContentDeltas(allContents)
	if len(merged) > 0 {
		role := RoleAssistant
		if len(updates) > 0 && updates[0].Role != "" {
			role = updates[0].Role
		}
		resp.Messages = []Message{{Role: role, Contents: merged}}
	}
	return resp
}

// mergeContentDeltas consolidates runs of adjacent TextContent and runs of
// adjacent TextReasoningContent into single items. Other content passes
// through as-is.
func mergeContentDeltas(cs Contents) Contents {
	if len(cs) == 0 {
		return nil
	}
	var (
		merged    Contents
		text      strings.Builder
		reasoning strings.Builder
	)
	flush := func() {
		if reasoning.Len() > 0 {
			merged = append(merged, &TextReasoningContent{Text: reasoning.String()})
			reasoning.Reset()
		}
		if text.Len() > 0 {
			merged = append(merged, &TextContent{Text: text.String()})
			text.Reset()
		}
	}
	for _, c := range cs {
		switch c := c.(type) {
		case *TextContent:
			if reasoning.Len() > 0 {
				flush()
			}
			text.WriteString(c.Text)
		case *TextReasoningContent:
			if text.Len() > 0 {
				flush()
			}
			reasoning.WriteString(c.Text)
		default:
			flush()
			merged = append(merged, c)
		}
	}
	flush()
	return merged
}

// AgentResponseFromUpdates builds a complete [AgentResponse] by merging
// a sequence of streaming updates. A change of role starts a new message, so
// tool results stay separate from the assistant turns around them.
func AgentResponseFromUpdates(updates []AgentResponseUpdate) *AgentResponse {
	resp := &AgentResponse{}
	var (
		role     Role
		contents Contents
	)
	flush := func() {
		if merged := mergeContentDeltas(contents); len(merged) > 0 {
			if role == "" {
				role = RoleAssistant
			}
			resp.Messages = append(resp.Messages, Message{Role: role, Contents: merged})
		}
		contents = nil
	}
	for _, u := range updates {
		if u.Role != "" && u.Role != role {
			flush()
			role = u.Role
		}
		contents = append(contents, u.Contents...)
		if u.AgentID != "" {
			resp.AgentID = u.AgentID
		}
		if u.ResponseID != "" {
			resp.ResponseID = u.ResponseID
		}
		if u.Usage.TotalTokens > 0 {
			resp.Usage = resp.Usage.Add(u.Usage)
		}
	}
	flush()
	return resp
}

// FunctionCalls returns every [FunctionCallContent] across the response's
// messages, in order.
func (r *AgentResponse) FunctionCalls() []*FunctionCallContent {
	var calls []*FunctionCallContent
	for i := range r.Messages {
		calls = append(calls, r.Messages[i].FunctionCalls()...)
	}
	return calls
}
