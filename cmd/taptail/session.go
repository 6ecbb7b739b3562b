// Copyright (c) Microsoft. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/lipgloss"

	af "github.com/jochenvw/agent-patterns/agentframework"
	"github.com/jochenvw/agent-patterns/tap"
)

// session is one tap pipeline wired to the configured outputs.
type session struct {
	pipeline *tap.Pipeline[tap.Message]
	out      *WriterObserver
	sink     *tap.FileSink
	w        io.Writer
	format   string
}

func newSession(client af.ChatClient, cfg Config, w io.Writer) (*session, error) {
	var popts []tap.ParaphraserOption
	if cfg.Instructions != "" {
		popts = append(popts, tap.WithInstructions(cfg.Instructions))
	}
	paraphraser := tap.NewChatParaphraser[tap.Message](client, popts...)

	out, err := NewWriterObserver(w, cfg.Format, cfg.ShowLines)
	if err != nil {
		return nil, err
	}
	s := &session{out: out, w: w, format: cfg.Format}

	observers := []func(tap.Tap[tap.Message]){out.Observe}
	if cfg.Sink != "" {
		s.sink, err = tap.NewFileSink(cfg.Sink)
		if err != nil {
			return nil, err
		}
		observers = append(observers, tap.SinkObserver[tap.Message](s.sink, func(err error) {
			slog.Warn("tap sink write failed", "path", cfg.Sink, "error", err)
		}))
	}
	if cfg.Debug {
		observers = append(observers, tap.LogObserver[tap.Message](slog.Default()))
	}

	opts := []tap.Option{
		tap.WithFlushThreshold(cfg.Threshold),
		tap.WithSentinel(cfg.Sentinel),
		tap.WithLogger(slog.Default()),
	}
	if cfg.Ordered {
		opts = append(opts, tap.WithOrderedDelivery())
	}
	if cfg.VerboseFilter {
		opts = append(opts, tap.WithFilter(tap.VerboseFilter))
	}
	if cfg.Fallback {
		opts = append(opts, tap.WithFallback(rawSummary))
	}

	s.pipeline, err = tap.New[tap.Message](paraphraser, tap.Fanout(observers...), opts...)
	if err != nil {
		return nil, errors.Join(err, s.Close())
	}
	return s, nil
}

// rawSummary stands in for a paraphrase that failed.
func rawSummary(lines []string) tap.Message {
	return tap.Message{Message: strings.Join(lines, "; ")}
}

// printAnswer writes the agent's final text after the taps in text mode.
func (s *session) printAnswer(resp *af.AgentResponse) {
	if s.format != "text" || resp == nil {
		return
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return
	}
	label := lipgloss.NewStyle().Bold(true).Render("Answer:")
	fmt.Fprintf(s.w, "\n%s %s\n", label, text)
}

func (s *session) Close() error {
	var errs []error
	if s.out != nil {
		errs = append(errs, s.out.Close())
	}
	if s.sink != nil {
		errs = append(errs, s.sink.Close())
	}
	return errors.Join(errs...)
}
