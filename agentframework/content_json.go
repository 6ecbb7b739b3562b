// Copyright (c) Microsoft. All rights reserved.

package agentframework

import (
	"encoding/json"
	"fmt"
)

// contentWire is the JSON envelope for every Content type. The $type
// discriminator selects which of the optional fields are meaningful.
type contentWire struct {
	Type       string          `json:"$type"`
	Text       string          `json:"text,omitempty"`
	Message    string          `json:"message,omitempty"`
	ErrorCode  string          `json:"errorCode,omitempty"`
	Details    any             `json:"details,omitempty"`
	CallID     string          `json:"callId,omitempty"`
	ServerName string          `json:"serverName,omitempty"`
	Name       string          `json:"name,omitempty"`
	Arguments  json.RawMessage `json:"arguments,omitempty"`
	Result     any             `json:"result,omitempty"`
	Usage      *UsageDetails   `json:"usage,omitempty"`
	Approved   *bool           `json:"approved,omitempty"`
	Reason     string          `json:"reason,omitempty"`
}

// MarshalContentJSON marshals a single Content value into its JSON envelope.
func MarshalContentJSON(c Content) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("marshal content: nil content")
	}
	w := contentWire{Type: string(c.Type())}
	switch v := c.(type) {
	case *TextContent:
		w.Text = v.Text
	case *TextReasoningContent:
		w.Text = v.Text
	case *ErrorContent:
		w.Message, w.ErrorCode, w.Details = v.Message, v.ErrorCode, v.Details
	case *FunctionCallContent:
		w.CallID, w.Name, w.Arguments = v.CallID, v.Name, rawArguments(v.Arguments)
	case *FunctionResultContent:
		w.CallID, w.Name, w.Result = v.CallID, v.Name, v.Result
	case *UsageContent:
		u := v.Usage
		w.Usage = &u
	case *MCPServerCallContent:
		w.CallID, w.ServerName, w.Name, w.Arguments = v.CallID, v.ServerName, v.Name, rawArguments(v.Arguments)
	case *MCPServerResultContent:
		w.CallID, w.Result = v.CallID, v.Result
	case *ApprovalRequestContent:
		w.CallID, w.Name, w.Arguments = v.CallID, v.Name, rawArguments(v.Arguments)
	case *ApprovalResponseContent:
		approved := v.Approved
		w.CallID, w.Approved, w.Reason = v.CallID, &approved, v.Reason
	default:
		return nil, fmt.Errorf("unknown content type: %T", c)
	}
	return json.Marshal(w)
}

// UnmarshalContentJSON unmarshals a single Content value from its JSON envelope.
func UnmarshalContentJSON(data []byte) (Content, error) {
	var w contentWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal content envelope: %w", err)
	}

	switch ContentType(w.Type) {
	case ContentTypeText:
		return &TextContent{Text: w.Text}, nil
	case ContentTypeTextReasoning:
		return &TextReasoningContent{Text: w.Text}, nil
	case ContentTypeError:
		return &ErrorContent{Message: w.Message, ErrorCode: w.ErrorCode, Details: w.Details}, nil
	case ContentTypeFunctionCall:
		return &FunctionCallContent{CallID: w.CallID, Name: w.Name, Arguments: argumentsText(w.Arguments)}, nil
	case ContentTypeFunctionResult:
		return &FunctionResultContent{CallID: w.CallID, Name: w.Name, Result: w.Result}, nil
	case ContentTypeUsage:
		c := &UsageContent{}
		if w.Usage != nil {
			c.Usage = *w.Usage
		}
		return c, nil
	case ContentTypeMCPServerCall:
		return &MCPServerCallContent{CallID: w.CallID, ServerName: w.ServerName, Name: w.Name, Arguments: argumentsText(w.Arguments)}, nil
	case ContentTypeMCPServerResult:
		return &MCPServerResultContent{CallID: w.CallID, Result: w.Result}, nil
	case ContentTypeApprovalRequest:
		return &ApprovalRequestContent{CallID: w.CallID, Name: w.Name, Arguments: argumentsText(w.Arguments)}, nil
	case ContentTypeApprovalResponse:
		return &ApprovalResponseContent{CallID: w.CallID, Approved: w.Approved != nil && *w.Approved, Reason: w.Reason}, nil
	default:
		return nil, fmt.Errorf("unknown content $type: %q", w.Type)
	}
}

// rawArguments embeds valid JSON arguments as-is and anything else as a
// JSON string, so partial or malformed arguments survive a round trip.
func rawArguments(args string) json.RawMessage {
	if args == "" {
		return nil
	}
	if json.Valid([]byte(args)) {
		return json.RawMessage(args)
	}
	b, _ := json.Marshal(args)
	return b
}

func argumentsText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && !json.Valid([]byte(s)) {
			return s
		}
	}
	return string(raw)
}

// Contents is a typed slice enabling JSON marshal/unmarshal of polymorphic Content arrays.
type Contents []Content

// MarshalJSON serializes each Content item using its $type discriminator.
func (cs Contents) MarshalJSON() ([]byte, error) {
	items := make([]json.RawMessage, len(cs))
	for i, c := range cs {
		b, err := MarshalContentJSON(c)
		if err != nil {
			return nil, fmt.Errorf("marshal content[%d]: %w", i, err)
		}
		items[i] = b
	}
	return json.Marshal(items)
}

// UnmarshalJSON deserializes a JSON array of Content items using the $type discriminator.
func (cs *Contents) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make([]Content, len(raw))
	for i, r := range raw {
		c, err := UnmarshalContentJSON(r)
		if err != nil {
			return fmt.Errorf("unmarshal content[%d]: %w", i, err)
		}
		result[i] = c
	}
	*cs = result
	return nil
}
