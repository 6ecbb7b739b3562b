// Copyright (c) Microsoft. All rights reserved.

package tap

import (
	"bytes"
	"encoding/json"
	"fmt"

	af "github.com/jochenvw/agent-patterns/agentframework"
)

// UnserializableArguments replaces arguments that cannot be rendered as JSON.
const UnserializableArguments = "<unserializable arguments>"

// Filter decides whether a content item is tap-worthy and, if so, returns
// the line that describes it. Filters must not retain c.
type Filter func(c af.Content) (line string, ok bool)

// DefaultFilter selects function invocations only.
func DefaultFilter(c af.Content) (string, bool) {
	fc, ok := c.(*af.FunctionCallContent)
	if !ok {
		return "", false
	}
	return InvocationLine(fc.Name, fc.Arguments), true
}

// VerboseFilter selects function invocations, MCP server calls, function
// results and reasoning.
func VerboseFilter(c af.Content) (string, bool) {
	switch v := c.(type) {
	case *af.FunctionCallContent:
		return InvocationLine(v.Name, v.Arguments), true
	case *af.MCPServerCallContent:
		return fmt.Sprintf("Invoked %s tool %s with params (%s)", v.ServerName, v.Name, compactArguments(v.Arguments)), true
	case *af.FunctionResultContent:
		return fmt.Sprintf("Function %s returned (%s)", v.Name, renderValue(v.Result)), true
	case *af.TextReasoningContent:
		if v.Text == "" {
			return "", false
		}
		return "Reasoned: " + v.Text, true
	}
	return "", false
}

// InvocationLine formats one function invocation:
//
//	Invoked function search with params ({"q":"go"})
func InvocationLine(name, arguments string) string {
	return fmt.Sprintf("Invoked function %s with params (%s)", name, compactArguments(arguments))
}

// compactArguments renders JSON argument text in compact form. Empty
// arguments render as {}.
func compactArguments(args string) string {
	if args == "" {
		return "{}"
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(args)); err != nil {
		return UnserializableArguments
	}
	return buf.String()
}

func renderValue(v any) string {
	switch r := v.(type) {
	case string:
		return r
	case json.RawMessage:
		return compactArguments(string(r))
	}
	b, err := json.Marshal(v)
	if err != nil {
		return UnserializableArguments
	}
	return string(b)
}
