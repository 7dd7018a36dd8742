// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package demux

import (
	"context"
	"fmt"
	"sync"
)

// singleState is the lifecycle of a Single sink.
type singleState int

const (
	pending singleState = iota
	resolved
	failed
)

// SingleSink is a rendezvous cell: it resolves at most once, to either a
// value or an error, and releases every current and future Awaiter at
// that point.
type SingleSink struct {
	mu    sync.Mutex
	state singleState
	value any
	err   error
	wake  chan struct{}
}

// NewSingleSink returns a pending SingleSink.
func NewSingleSink() *SingleSink {
	return &SingleSink{wake: make(chan struct{})}
}

// Resolve transitions the sink to resolved with v. Resolving a sink that
// has already reached a terminal state is a caller bug; it panics rather
// than silently discarding the second value.
func (s *SingleSink) Resolve(v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != pending {
		panic(fmt.Errorf("%w: sink resolved a second time", ErrAlreadyTerminal))
	}
	s.state = resolved
	s.value = v
	s.release()
}

// Fail transitions the sink to failed with err. Failing a sink that has
// already reached a terminal state is a caller bug; it panics rather than
// silently discarding the error. Callers that need to fail a set of sinks
// where some may already be terminal (Demux.Abort) must check Peek first.
func (s *SingleSink) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != pending {
		panic(fmt.Errorf("%w: sink failed a second time", ErrAlreadyTerminal))
	}
	s.state = failed
	s.err = err
	s.release()
}

// release wakes every current waiter and installs a fresh channel so a
// racing waiter that observed the old one pre-close still sees the new
// terminal state on its next read. Caller must hold mu.
func (s *SingleSink) release() {
	close(s.wake)
	s.wake = make(chan struct{})
}

// Await blocks until the sink resolves, fails, or ctx is done, whichever
// happens first.
func (s *SingleSink) Await(ctx context.Context) (any, error) {
	for {
		s.mu.Lock()
		switch s.state {
		case resolved:
			v := s.value
			s.mu.Unlock()
			return v, nil
		case failed:
			err := s.err
			s.mu.Unlock()
			return nil, err
		}
		wake := s.wake
		s.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Peek returns the current value/error without blocking, plus whether the
// sink is terminal.
func (s *SingleSink) Peek() (v any, err error, terminal bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case resolved:
		return s.value, nil, true
	case failed:
		return nil, s.err, true
	default:
		return nil, nil, false
	}
}
