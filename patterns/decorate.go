// Copyright (c) Microsoft. All rights reserved.

package patterns

import (
	"encoding/json"
	"fmt"

	af "github.com/jochenvw/agent-patterns/agentframework"
)

// decorated forwards every Tool method to the wrapped tool. Decorators embed
// it and override Invoke (and Parameters when they change the schema).
type decorated struct {
	af.Tool
}

// resultText renders a tool result as the text the model will see.
func resultText(v any) string {
	switch r := v.(type) {
	case nil:
		return ""
	case string:
		return r
	case json.RawMessage:
		return string(r)
	case fmt.Stringer:
		return r.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
