// Copyright (c) Microsoft. All rights reserved.

package patterns

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	af "github.com/jochenvw/agent-patterns/agentframework"
)

// FinalTurnNotice is appended to tool results once no turns remain.
const FinalTurnNotice = "[No turns remaining. Provide your final answer now.]"

// Countdown tells the model how many tool turns it has left. Every
// invocation of a wrapped tool consumes one turn, and the remaining count
// is appended to the tool's result. Tools wrapped by the same Countdown
// share its turns.
type Countdown struct {
	mu        sync.Mutex
	remaining int
}

// NewCountdown creates a Countdown with turns available.
func NewCountdown(turns int) *Countdown {
	return &Countdown{remaining: max(turns, 0)}
}

// Remaining returns the turns left.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

func (c *Countdown) consume() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.remaining > 0 {
		c.remaining--
	}
	return c.remaining
}

// Wrap returns tool with its results annotated by the countdown.
func (c *Countdown) Wrap(tool af.Tool) af.Tool {
	return &countdownTool{decorated: decorated{tool}, countdown: c}
}

// CountdownSuffix returns the text appended to a result when remaining
// turns are left.
func CountdownSuffix(remaining int) string {
	if remaining <= 0 {
		return "\n\n" + FinalTurnNotice
	}
	return fmt.Sprintf("\n\n[Turns remaining: %d]", remaining)
}

type countdownTool struct {
	decorated
	countdown *Countdown
}

// Invoke consumes a turn before the call so failed calls count too.
func (t *countdownTool) Invoke(ctx context.Context, args json.RawMessage) (any, error) {
	remaining := t.countdown.consume()
	result, err := t.Tool.Invoke(ctx, args)
	if err != nil {
		return nil, err
	}
	return resultText(result) + CountdownSuffix(remaining), nil
}
