// Copyright (c) Microsoft. All rights reserved.

package tap

import (
	"errors"
	"fmt"
)

var (
	// ErrTap is the base error for tap pipeline failures.
	ErrTap = errors.New("tap error")

	// ErrInvalidConfig is returned by [New] for unusable options.
	ErrInvalidConfig = fmt.Errorf("%w: invalid config", ErrTap)

	// ErrPipelineUsed is returned when [Pipeline.Wrap] is called twice.
	ErrPipelineUsed = fmt.Errorf("%w: pipeline already used", ErrTap)

	// ErrParaphrase marks every failure to turn a batch into a summary.
	ErrParaphrase = fmt.Errorf("%w: paraphrase", ErrTap)

	// ErrEmptyBatch is returned when a paraphraser is given no lines.
	ErrEmptyBatch = fmt.Errorf("%w: empty batch", ErrParaphrase)

	// ErrMalformedSummary is returned when the model's reply is not JSON,
	// is null, or lacks a property the schema requires.
	ErrMalformedSummary = fmt.Errorf("%w: malformed summary", ErrParaphrase)
)

// ParaphraseError reports a batch that could not be paraphrased.
// It matches [ErrParaphrase] and unwraps to the paraphraser's error.
type ParaphraseError struct {
	BatchID string
	Seq     int
	Lines   []string
	Final   bool
	Err     error
}

func (e *ParaphraseError) Error() string {
	kind := "batch"
	if e.Final {
		kind = "final batch"
	}
	return fmt.Sprintf("paraphrase %s %d (%d lines): %v", kind, e.Seq, len(e.Lines), e.Err)
}

func (e *ParaphraseError) Unwrap() []error { return []error{ErrParaphrase, e.Err} }
