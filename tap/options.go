// Copyright (c) Microsoft. All rights reserved.

package tap

import (
	"context"
	"log/slog"
)

const (
	// DefaultFlushThreshold is the batch size that triggers a flush.
	DefaultFlushThreshold = 3

	// DefaultSentinel closes the final batch of every run.
	DefaultSentinel = "Task finished"
)

type settings struct {
	threshold    int
	filter       Filter
	sentinel     string
	ordered      bool
	fallback     any
	errorHandler func(context.Context, error)
	logger       *slog.Logger
}

// Option configures a [Pipeline].
type Option func(*settings)

// WithFlushThreshold sets the number of lines per batch. Must be at least 1.
func WithFlushThreshold(n int) Option {
	return func(s *settings) { s.threshold = n }
}

// WithFilter replaces [DefaultFilter].
func WithFilter(f Filter) Option {
	return func(s *settings) { s.filter = f }
}

// WithSentinel replaces [DefaultSentinel]. An empty sentinel leaves the
// final batch empty when nothing is buffered, which paraphrasers reject.
func WithSentinel(line string) Option {
	return func(s *settings) { s.sentinel = line }
}

// WithOrderedDelivery delivers taps in dispatch order even when a later
// batch is paraphrased first.
func WithOrderedDelivery() Option {
	return func(s *settings) { s.ordered = true }
}

// WithFallback delivers fallback(lines) when paraphrasing a batch fails,
// instead of dropping it (or failing Wrap for the final batch). S must
// match the pipeline's summary type.
func WithFallback[S any](fallback func(lines []string) S) Option {
	return func(s *settings) { s.fallback = fallback }
}

// WithErrorHandler receives errors from batches flushed in the background.
// The default logs them at error level.
func WithErrorHandler(fn func(ctx context.Context, err error)) Option {
	return func(s *settings) { s.errorHandler = fn }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}
