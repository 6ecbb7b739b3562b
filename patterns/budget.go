// Copyright (c) Microsoft. All rights reserved.

package patterns

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	af "github.com/jochenvw/agent-patterns/agentframework"
)

// BudgetExhaustedMessage is the tool result returned in place of a call that
// exceeds its budget.
func BudgetExhaustedMessage(name string, limit int) string {
	return fmt.Sprintf("Tool %q has reached its invocation budget of %d calls. Do not call it again.", name, limit)
}

// Budget caps how many times each tool may be invoked. It is safe for
// concurrent use.
//
// Every attempt counts against the budget, including attempts that fail.
// A call over budget does not reach the tool; the model receives
// [BudgetExhaustedMessage] as the result instead.
type Budget struct {
	mu           sync.Mutex
	limits       map[string]int
	used         map[string]int
	defaultLimit int
	hasDefault   bool
	logger       *slog.Logger
}

// BudgetOption configures a [Budget].
type BudgetOption func(*Budget)

// WithDefaultLimit applies limit to tools not listed in the limits map.
// Without it, unlisted tools are unlimited.
func WithDefaultLimit(limit int) BudgetOption {
	return func(b *Budget) {
		b.defaultLimit = max(limit, 0)
		b.hasDefault = true
	}
}

// WithBudgetLogger sets the logger. Default: slog.Default().
func WithBudgetLogger(l *slog.Logger) BudgetOption {
	return func(b *Budget) { b.logger = l }
}

// NewBudget creates a Budget with per-tool limits. Negative limits are
// treated as zero.
func NewBudget(limits map[string]int, opts ...BudgetOption) *Budget {
	b := &Budget{
		limits: maps.Clone(limits),
		used:   make(map[string]int),
		logger: slog.Default(),
	}
	if b.limits == nil {
		b.limits = make(map[string]int)
	}
	for name, n := range b.limits {
		b.limits[name] = max(n, 0)
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

func (b *Budget) limitLocked(name string) (int, bool) {
	if n, ok := b.limits[name]; ok {
		return n, true
	}
	return b.defaultLimit, b.hasDefault
}

// take reserves one invocation of name. It reports false and the limit when
// the budget is spent.
func (b *Budget) take(name string) (limit int, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	limit, limited := b.limitLocked(name)
	if limited && b.used[name] >= limit {
		return limit, false
	}
	b.used[name]++
	return limit, true
}

// Remaining returns how many invocations of name are left. The second
// result is false when name has no limit.
func (b *Budget) Remaining(name string) (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	limit, limited := b.limitLocked(name)
	if !limited {
		return 0, false
	}
	return max(limit-b.used[name], 0), true
}

// Used returns how many invocations of name have been attempted.
func (b *Budget) Used(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used[name]
}

func (b *Budget) invoke(ctx context.Context, tool af.Tool, args json.RawMessage, next af.FunctionHandler) (any, error) {
	name := tool.Name()
	limit, ok := b.take(name)
	if !ok {
		b.logger.WarnContext(ctx, "tool budget exhausted", "tool", name, "limit", limit)
		return BudgetExhaustedMessage(name, limit), nil
	}
	return next(ctx, tool, args)
}

// Wrap returns tool limited by this budget.
func (b *Budget) Wrap(tool af.Tool) af.Tool {
	return &budgetTool{decorated: decorated{tool}, budget: b}
}

// Middleware enforces the budget for every tool an agent invokes.
func (b *Budget) Middleware() af.FunctionMiddleware {
	return func(next af.FunctionHandler) af.FunctionHandler {
		return func(ctx context.Context, tool af.Tool, args json.RawMessage) (any, error) {
			return b.invoke(ctx, tool, args, next)
		}
	}
}

type budgetTool struct {
	decorated
	budget *Budget
}

func (t *budgetTool) Invoke(ctx context.Context, args json.RawMessage) (any, error) {
	return t.budget.invoke(ctx, t.Tool, args, func(ctx context.Context, tool af.Tool, args json.RawMessage) (any, error) {
		return tool.Invoke(ctx, args)
	})
}
