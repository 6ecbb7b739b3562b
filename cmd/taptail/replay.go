// Copyright (c) Microsoft. All rights reserved.

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	af "github.com/jochenvw/agent-patterns/agentframework"
)

// updateRecord is one line of a recorded agent run.
type updateRecord struct {
	Role       af.Role     `json:"role,omitempty"`
	AgentID    string      `json:"agentId,omitempty"`
	ResponseID string      `json:"responseId,omitempty"`
	Contents   af.Contents `json:"contents"`
}

func recordOf(u af.AgentResponseUpdate) updateRecord {
	return updateRecord{Role: u.Role, AgentID: u.AgentID, ResponseID: u.ResponseID, Contents: u.Contents}
}

func (r updateRecord) update() af.AgentResponseUpdate {
	return af.AgentResponseUpdate{Role: r.Role, AgentID: r.AgentID, ResponseID: r.ResponseID, Contents: r.Contents}
}

const maxRecordSize = 4 << 20

// replayStream yields the updates recorded in r, waiting delay between
// them. A malformed line ends the stream with an error naming the line.
func replayStream(ctx context.Context, r io.Reader, delay time.Duration) *af.AgentResponseStream {
	return af.NewAgentResponseStream(af.NewResponseStream(ctx,
		func(ctx context.Context, ch chan<- af.AgentResponseUpdate) error {
			sc := bufio.NewScanner(r)
			sc.Buffer(make([]byte, 0, 64*1024), maxRecordSize)
			for n := 1; sc.Scan(); n++ {
				line := sc.Bytes()
				if len(line) == 0 {
					continue
				}
				var rec updateRecord
				if err := json.Unmarshal(line, &rec); err != nil {
					return fmt.Errorf("replay line %d: %w", n, err)
				}
				if delay > 0 {
					select {
					case <-time.After(delay):
					case <-ctx.Done():
						return ctx.Err()
					}
				}
				select {
				case ch <- rec.update():
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			if err := sc.Err(); err != nil {
				return fmt.Errorf("replay: %w", err)
			}
			return nil
		}))
}

func newReplayCmd(a *app) *cobra.Command {
	var delay time.Duration
	cmd := &cobra.Command{
		Use:   "replay [file]",
		Short: "Summarize a recorded agent run",
		Long: `Replay a JSONL file of agent updates (as written by "taptail run --record")
through the tap pipeline. Reads stdin when file is "-" or omitted.

Example:
  taptail replay run.jsonl --threshold 2 --delay 200ms`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if delay < 0 {
				return fmt.Errorf("--delay must not be negative, got %s", delay)
			}
			cfg, err := loadConfig(a.v)
			if err != nil {
				return err
			}

			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open recording: %w", err)
				}
				defer f.Close()
				in = f
			}

			ctx := cmd.Context()
			client, err := newChatClient(ctx, cfg)
			if err != nil {
				return err
			}
			sess, err := newSession(client, cfg, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer sess.Close()

			stream := replayStream(ctx, in, delay)
			defer stream.Close()

			resp, err := sess.pipeline.Wrap(ctx, stream)
			if err != nil {
				return err
			}
			sess.printAnswer(resp)
			return nil
		},
	}
	cmd.Flags().DurationVar(&delay, "delay", 0, "pause between replayed updates")
	return cmd
}
