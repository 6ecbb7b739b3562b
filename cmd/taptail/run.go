// Copyright (c) Microsoft. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	af "github.com/jochenvw/agent-patterns/agentframework"
	"github.com/jochenvw/agent-patterns/patterns"
	"github.com/jochenvw/agent-patterns/tap"
)

const demoInstructions = "You are a helpful assistant. Use get_weather for weather questions, " +
	"get_time for the current time and list_local_files for questions about local files. " +
	"Keep answers concise."

// runOptions are the flags specific to "taptail run".
type runOptions struct {
	toolBudget    int
	turns         int
	requireWhy    bool
	record        string
	maxIterations int
}

func newRunCmd(a *app) *cobra.Command {
	var ro runOptions
	cmd := &cobra.Command{
		Use:   "run <prompt>",
		Short: "Run the demo agent live and summarize its progress",
		Long: `Run a small tool-calling agent (weather, time, local files) and print
plain-language progress summaries while it works.

Example:
  taptail run "Compare the weather in Paris and Oslo" --tool-budget 3 --require-why`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(a.v)
			if err != nil {
				return err
			}
			client, err := newChatClient(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return runAgent(cmd.Context(), client, cfg, ro, strings.Join(args, " "), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	f := cmd.Flags()
	f.IntVar(&ro.toolBudget, "tool-budget", 0, "max calls per tool (0 = unlimited)")
	f.IntVar(&ro.turns, "turns", 0, "tell the model how many tool turns remain (0 = off)")
	f.BoolVar(&ro.requireWhy, "require-why", false, "make the model explain every tool call")
	f.StringVar(&ro.record, "record", "", "write the agent's updates to this JSONL file for replay")
	f.IntVar(&ro.maxIterations, "max-iterations", 10, "max model round trips")
	return cmd
}

// runAgent runs the demo agent on prompt and taps its stream. Explanations
// collected with --require-why are listed on errOut.
func runAgent(ctx context.Context, client af.ChatClient, cfg Config, ro runOptions, prompt string, out, errOut io.Writer) error {
	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	tools := demoTools(root, time.Now)
	explanations := &patterns.ExplanationLog{}
	var countdown *patterns.Countdown
	if ro.turns > 0 {
		countdown = patterns.NewCountdown(ro.turns)
	}
	for i, t := range tools {
		if ro.requireWhy {
			t = patterns.RequireExplanation(t, explanations)
		}
		if countdown != nil {
			t = countdown.Wrap(t)
		}
		tools[i] = t
	}

	fnMiddleware := []af.FunctionMiddleware{af.FunctionLoggingMiddleware(slog.Default())}
	if ro.toolBudget > 0 {
		budget := patterns.NewBudget(nil, patterns.WithDefaultLimit(ro.toolBudget))
		fnMiddleware = append(fnMiddleware, budget.Middleware())
	}

	invocation := af.DefaultInvocationConfig()
	invocation.MaxIterations = ro.maxIterations
	invocation.IncludeDetailedErrors = true

	agent := af.NewAgent(client,
		af.WithName("taptail-demo"),
		af.WithInstructions(demoInstructions),
		af.WithTools(tools...),
		af.WithFunctionMiddleware(fnMiddleware...),
		af.WithInvocationConfig(invocation),
	)

	sess, err := newSession(client, cfg, out)
	if err != nil {
		return err
	}
	defer sess.Close()

	stream, err := agent.RunStream(ctx, []af.Message{af.NewUserMessage(prompt)})
	if err != nil {
		return err
	}
	defer stream.Close()

	var src tap.Stream = stream
	if ro.record != "" {
		rec, err := tap.NewFileSink(ro.record)
		if err != nil {
			return err
		}
		defer rec.Close()
		src = &recordingStream{Stream: stream, sink: rec}
	}

	resp, err := sess.pipeline.Wrap(ctx, src)
	if err != nil {
		return err
	}
	sess.printAnswer(resp)

	for _, e := range explanations.Entries() {
		fmt.Fprintf(errOut, "why %s: %s\n", e.Tool, e.Reason)
	}
	return nil
}

// recordingStream writes every update it passes on to sink.
type recordingStream struct {
	tap.Stream
	sink *tap.FileSink
}

func (s *recordingStream) Next(ctx context.Context) (af.AgentResponseUpdate, bool, error) {
	u, ok, err := s.Stream.Next(ctx)
	if ok {
		if rerr := s.sink.Record(recordOf(u)); rerr != nil {
			slog.WarnContext(ctx, "record update failed", "error", rerr)
		}
	}
	return u, ok, err
}
