// Copyright (c) Microsoft. All rights reserved.

package tap

import "sync"

// lineBuffer accumulates tap lines until a flush takes them. Every flush
// swaps the slice for an empty one under the lock, so a line lands in
// exactly one batch.
type lineBuffer struct {
	mu        sync.Mutex
	lines     []string
	threshold int
}

func newLineBuffer(threshold int) *lineBuffer {
	return &lineBuffer{threshold: threshold}
}

// append adds line and returns the batch to flush once the threshold is reached.
func (b *lineBuffer) append(line string) (batch []string, full bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lines = append(b.lines, line)
	if len(b.lines) < b.threshold {
		return nil, false
	}
	return b.takeLocked(), true
}

// drain appends sentinel (when non-empty) and takes whatever is buffered.
func (b *lineBuffer) drain(sentinel string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sentinel != "" {
		b.lines = append(b.lines, sentinel)
	}
	return b.takeLocked()
}

func (b *lineBuffer) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lines)
}

func (b *lineBuffer) takeLocked() []string {
	batch := b.lines
	b.lines = nil
	return batch
}
