// Copyright (c) Microsoft. All rights reserved.

package tap

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	af "github.com/jochenvw/agent-patterns/agentframework"
)

// Tap is one delivered summary of a batch of agent operations.
type Tap[S any] struct {
	// ID identifies the batch.
	ID string `json:"id" yaml:"id"`

	// Seq is the 1-based dispatch position of the batch within the run.
	Seq int `json:"seq" yaml:"seq"`

	// Batch holds the source lines in the order their events were consumed.
	Batch []string `json:"batch" yaml:"batch"`

	Summary S `json:"summary" yaml:"summary"`

	// Final marks the batch flushed when the stream ended.
	Final bool `json:"final" yaml:"final"`

	// Fallback is set when Summary came from the fallback function.
	Fallback bool `json:"fallback,omitempty" yaml:"fallback,omitempty"`

	Time time.Time `json:"time" yaml:"time"`
}

// Stream is the upstream the pipeline consumes. [*af.AgentResponseStream]
// implements it.
type Stream interface {
	Next(ctx context.Context) (af.AgentResponseUpdate, bool, error)
	FinalResponse(ctx context.Context) (*af.AgentResponse, error)
}

// State is the lifecycle position of a [Pipeline].
type State int32

const (
	StateIdle State = iota
	StateConsuming
	StateDraining
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConsuming:
		return "consuming"
	case StateDraining:
		return "draining"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Pipeline taps an agent's update stream: it filters tool invocations into
// lines, batches them, paraphrases each batch and hands the result to the
// observer. A Pipeline wraps exactly one stream.
type Pipeline[S any] struct {
	paraphraser Paraphraser[S]
	onTap       func(Tap[S])
	settings    settings
	fallback    func([]string) S

	buf   *lineBuffer
	state atomic.Int32

	// Owned by the Wrap goroutine.
	seq  int
	tail chan struct{}

	inflight  sync.WaitGroup
	deliverMu sync.Mutex
}

// New creates a Pipeline that delivers taps to onTap. onTap is never called
// concurrently with itself.
func New[S any](p Paraphraser[S], onTap func(Tap[S]), opts ...Option) (*Pipeline[S], error) {
	s := settings{
		threshold: DefaultFlushThreshold,
		filter:    DefaultFilter,
		sentinel:  DefaultSentinel,
	}
	for _, o := range opts {
		o(&s)
	}

	if p == nil {
		return nil, fmt.Errorf("%w: paraphraser is required", ErrInvalidConfig)
	}
	if v, ok := p.(interface{ validate() error }); ok {
		if err := v.validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	if onTap == nil {
		return nil, fmt.Errorf("%w: tap observer is required", ErrInvalidConfig)
	}
	if s.threshold < 1 {
		return nil, fmt.Errorf("%w: flush threshold must be at least 1, got %d", ErrInvalidConfig, s.threshold)
	}
	if s.filter == nil {
		return nil, fmt.Errorf("%w: filter is nil", ErrInvalidConfig)
	}

	pl := &Pipeline[S]{
		paraphraser: p,
		onTap:       onTap,
		settings:    s,
		buf:         newLineBuffer(s.threshold),
	}
	if s.fallback != nil {
		fb, ok := s.fallback.(func([]string) S)
		if !ok {
			var zero S
			return nil, fmt.Errorf("%w: fallback returns %T, want func([]string) %T", ErrInvalidConfig, s.fallback, zero)
		}
		pl.fallback = fb
	}
	if pl.settings.logger == nil {
		pl.settings.logger = slog.Default()
	}
	if pl.settings.errorHandler == nil {
		logger := pl.settings.logger
		pl.settings.errorHandler = func(ctx context.Context, err error) {
			logger.ErrorContext(ctx, "tap batch dropped", "error", err)
		}
	}
	return pl, nil
}

// State reports where the pipeline is in its lifecycle.
func (p *Pipeline[S]) State() State { return State(p.state.Load()) }

// Pending returns the number of buffered lines not yet flushed.
func (p *Pipeline[S]) Pending() int { return p.buf.len() }

// Wrap consumes stream to the end and returns its final response.
//
// Lines are flushed in the background whenever the threshold is reached.
// When the stream ends, the sentinel is appended and the remaining lines
// are flushed and delivered before Wrap returns; background flushes are
// awaited too. An error from the final flush is returned as a
// [*ParaphraseError]. An error from stream is returned unchanged and skips
// the final flush.
func (p *Pipeline[S]) Wrap(ctx context.Context, stream Stream) (*af.AgentResponse, error) {
	if !p.state.CompareAndSwap(int32(StateIdle), int32(StateConsuming)) {
		return nil, ErrPipelineUsed
	}
	defer p.state.Store(int32(StateDone))

	for {
		update, ok, err := stream.Next(ctx)
		if err != nil {
			p.inflight.Wait()
			return nil, err
		}
		if !ok {
			break
		}
		for _, c := range update.Contents {
			line, tapWorthy := p.settings.filter(c)
			if !tapWorthy {
				continue
			}
			if lines, full := p.buf.append(line); full {
				b := p.nextBatch(lines, false)
				p.inflight.Add(1)
				go func() {
					defer p.inflight.Done()
					if err := p.flush(ctx, b); err != nil {
						p.settings.errorHandler(ctx, err)
					}
				}()
			}
		}
	}

	p.state.Store(int32(StateDraining))
	final := p.nextBatch(p.buf.drain(p.settings.sentinel), true)
	err := p.flush(ctx, final)
	p.inflight.Wait()
	if err != nil {
		return nil, err
	}

	return stream.FinalResponse(ctx)
}

// batch is a flushed snapshot. With ordered delivery, prev is closed once
// the previous batch has been delivered or dropped.
type batch struct {
	id    string
	seq   int
	lines []string
	final bool
	prev  <-chan struct{}
	done  chan struct{}
}

func (p *Pipeline[S]) nextBatch(lines []string, final bool) *batch {
	p.seq++
	b := &batch{
		id:    uuid.NewString(),
		seq:   p.seq,
		lines: lines,
		final: final,
		done:  make(chan struct{}),
	}
	if p.settings.ordered {
		b.prev = p.tail
		p.tail = b.done
	}
	return b
}

// flush paraphrases b and delivers the tap.
func (p *Pipeline[S]) flush(ctx context.Context, b *batch) error {
	defer close(b.done)

	p.settings.logger.DebugContext(ctx, "tap flush",
		"batch_id", b.id,
		"seq", b.seq,
		"lines", len(b.lines),
		"final", b.final,
	)

	summary, err := p.paraphraser.Paraphrase(ctx, b.lines)
	usedFallback := false
	if err != nil {
		err = &ParaphraseError{BatchID: b.id, Seq: b.seq, Lines: b.lines, Final: b.final, Err: err}
		if p.fallback != nil {
			p.settings.logger.WarnContext(ctx, "tap paraphrase failed, using fallback",
				"batch_id", b.id,
				"seq", b.seq,
				"error", err,
			)
			summary, usedFallback, err = p.fallback(b.lines), true, nil
		}
	}

	if b.prev != nil {
		<-b.prev
	}
	if err != nil {
		return err
	}

	p.deliver(Tap[S]{
		ID:       b.id,
		Seq:      b.seq,
		Batch:    b.lines,
		Summary:  summary,
		Final:    b.final,
		Fallback: usedFallback,
		Time:     time.Now(),
	})
	return nil
}

func (p *Pipeline[S]) deliver(t Tap[S]) {
	p.deliverMu.Lock()
	defer p.deliverMu.Unlock()
	p.onTap(t)
}
