// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package demux

import (
	"context"
	"fmt"
	"sync"
)

// StreamSink is an append-only fragment log with fan-out iteration. Every
// subscriber, whenever it subscribes, replays the fragments already
// logged before seeing anything new.
type StreamSink struct {
	mu        sync.Mutex
	fragments []string
	closed    bool
	err       error
	wake      chan struct{}
}

// NewStreamSink returns an open, empty StreamSink.
func NewStreamSink() *StreamSink {
	return &StreamSink{wake: make(chan struct{})}
}

// Push appends a fragment. Pushing to a sink that has already closed or
// failed is a caller bug; it panics rather than silently dropping the
// fragment.
func (s *StreamSink) Push(fragment string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		panic(fmt.Errorf("%w: pushed to a closed stream", ErrAlreadyTerminal))
	}
	s.fragments = append(s.fragments, fragment)
	s.release()
}

// Close marks the sink terminal with no error. Closing an already-terminal
// sink is a caller bug; it panics rather than silently no-opping.
func (s *StreamSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		panic(fmt.Errorf("%w: stream closed a second time", ErrAlreadyTerminal))
	}
	s.closed = true
	s.release()
}

// Fail marks the sink terminal with err. Failing an already-terminal sink
// is a caller bug; it panics rather than silently discarding the error.
// Callers that need to fail a set of sinks where some may already be
// terminal (Demux.Abort) must check Snapshot first.
func (s *StreamSink) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		panic(fmt.Errorf("%w: stream failed a second time", ErrAlreadyTerminal))
	}
	s.closed = true
	s.err = err
	s.release()
}

func (s *StreamSink) release() {
	close(s.wake)
	s.wake = make(chan struct{})
}

// Iterate calls fn with each fragment in order, starting from index 0, and
// keeps delivering new fragments as they are pushed until the sink closes,
// fails, or ctx is done. fn receives only fragments it has not seen
// before, so a subscriber joining late still gets the full history.
func (s *StreamSink) Iterate(ctx context.Context, fn func(fragment string) error) error {
	next := 0
	for {
		s.mu.Lock()
		for next < len(s.fragments) {
			fragment := s.fragments[next]
			next++
			s.mu.Unlock()
			if err := fn(fragment); err != nil {
				return err
			}
			s.mu.Lock()
		}
		if s.closed {
			err := s.err
			s.mu.Unlock()
			return err
		}
		wake := s.wake
		s.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Snapshot returns a copy of every fragment logged so far, in order, plus
// whether the sink is terminal and its error if failed. It never blocks.
func (s *StreamSink) Snapshot() (fragments []string, terminal bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.fragments))
	copy(out, s.fragments)
	return out, s.closed, s.err
}
