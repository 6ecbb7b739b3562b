// Copyright (c) Microsoft. All rights reserved.

// Command taptail prints plain-language progress summaries of an agent run.
//
// It either replays a recorded JSONL stream of agent updates or runs a small
// demo agent live, and feeds the updates through a tap pipeline backed by
// the configured chat model.
//
//	taptail replay run.jsonl --threshold 2
//	taptail run "What's the weather in Paris?" --record run.jsonl
//
// Settings come from flags, TAPTAIL_* environment variables, an optional
// .taptail.yaml and a .env file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
