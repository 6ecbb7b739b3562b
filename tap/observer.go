// Copyright (c) Microsoft. All rights reserved.

package tap

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// LogObserver returns an observer that logs every tap at info level.
func LogObserver[S any](logger *slog.Logger) func(Tap[S]) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(t Tap[S]) {
		logger.Info("tap",
			"batch_id", t.ID,
			"seq", t.Seq,
			"final", t.Final,
			"lines", len(t.Batch),
			"summary", t.Summary,
		)
	}
}

// Fanout returns an observer that calls each observer in order.
func Fanout[S any](observers ...func(Tap[S])) func(Tap[S]) {
	return func(t Tap[S]) {
		for _, o := range observers {
			o(t)
		}
	}
}

// FileSink appends records to a JSON Lines file. It is safe for concurrent use.
type FileSink struct {
	mu  sync.Mutex
	f   *os.File
	w   *bufio.Writer
	enc *json.Encoder
}

// NewFileSink opens path for appending, creating it if needed.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open tap sink: %w", err)
	}
	w := bufio.NewWriter(f)
	return &FileSink{f: f, w: w, enc: json.NewEncoder(w)}, nil
}

// Record writes v as one line.
func (s *FileSink) Record(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return fmt.Errorf("record tap: %w", os.ErrClosed)
	}
	if err := s.enc.Encode(v); err != nil {
		return fmt.Errorf("record tap: %w", err)
	}
	return nil
}

// Flush writes buffered records to the file.
func (s *FileSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	return s.w.Flush()
}

// Close flushes and closes the file. Further calls are no-ops.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	flushErr := s.w.Flush()
	closeErr := s.f.Close()
	s.f = nil
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

// SinkObserver returns an observer that records every tap to sink.
// Write errors go to onErr when it is non-nil.
func SinkObserver[S any](sink *FileSink, onErr func(error)) func(Tap[S]) {
	return func(t Tap[S]) {
		if err := sink.Record(t); err != nil && onErr != nil {
			onErr(err)
		}
	}
}
