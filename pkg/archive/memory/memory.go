// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"sync"
	"time"

	"github.com/leseb/jsondemux/pkg/archive"
)

func init() {
	archive.Providers.Register("memory", func(_ context.Context, _ map[string]string) (archive.Store, error) {
		return New(), nil
	})
}

// compile-time check
var _ archive.Store = (*Store)(nil)

// Store is an in-memory transcript archive.
type Store struct {
	mu          sync.Mutex
	transcripts map[string]*archive.Transcript
}

// New creates a new in-memory archive store.
func New() *Store {
	return &Store{
		transcripts: make(map[string]*archive.Transcript),
	}
}

// Append appends chunk to the session's transcript, creating it on first use.
func (s *Store) Append(_ context.Context, sessionID string, chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.transcripts[sessionID]
	if !exists {
		t = &archive.Transcript{SessionID: sessionID, CreatedAt: time.Now()}
		s.transcripts[sessionID] = t
	}
	t.Data = append(t.Data, chunk...)
	return nil
}

// Get returns a copy of the session's transcript.
func (s *Store) Get(_ context.Context, sessionID string) (*archive.Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.transcripts[sessionID]
	if !exists {
		return nil, archive.ErrNotFound
	}

	cp := *t
	cp.Data = append([]byte(nil), t.Data...)
	return &cp, nil
}

// Delete removes a session's transcript.
func (s *Store) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.transcripts[sessionID]; !exists {
		return archive.ErrNotFound
	}
	delete(s.transcripts, sessionID)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close(_ context.Context) error {
	return nil
}
