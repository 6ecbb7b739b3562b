// Copyright (c) Microsoft. All rights reserved.

// Package patterns provides tool decorators for steering tool-calling agents.
//
// Each decorator wraps an [agentframework.Tool] and returns another Tool, so
// decorators compose:
//
//	budget := patterns.NewBudget(map[string]int{"search": 3})
//	countdown := patterns.NewCountdown(10)
//	log := &patterns.ExplanationLog{}
//
//	tool := countdown.Wrap(budget.Wrap(patterns.RequireExplanation(search, log)))
//
// State lives in the decorator instance ([Budget], [Countdown],
// [ExplanationLog]); create one per agent run to start from zero.
package patterns
