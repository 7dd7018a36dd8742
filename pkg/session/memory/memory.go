// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/leseb/jsondemux/pkg/session"
)

func init() {
	session.Providers.Register("memory", func(_ context.Context, _ map[string]string) (session.Store, error) {
		return New(), nil
	})
}

var _ session.Store = (*Store)(nil)

// Store is an in-memory session store.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
}

// New creates a new in-memory session store.
func New() *Store {
	return &Store{sessions: make(map[string]*session.Session)}
}

// Create stores a new session.
func (s *Store) Create(_ context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sess.ID]; exists {
		return fmt.Errorf("session %s already exists", sess.ID)
	}
	cp := *sess
	s.sessions[sess.ID] = &cp
	return nil
}

// Get retrieves a session by ID.
func (s *Store) Get(_ context.Context, id string) (*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, exists := s.sessions[id]
	if !exists {
		return nil, fmt.Errorf("session %s: %w", id, session.ErrNotFound)
	}
	cp := *sess
	return &cp, nil
}

// UpdateStatus updates a session's status, error, and snapshot fields.
func (s *Store) UpdateStatus(_ context.Context, id string, status session.Status, errMsg string, snapshot map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, exists := s.sessions[id]
	if !exists {
		return fmt.Errorf("session %s: %w", id, session.ErrNotFound)
	}
	sess.Status = status
	sess.Error = errMsg
	sess.Snapshot = snapshot
	sess.UpdatedAt = time.Now()
	return nil
}

// List returns every stored session.
func (s *Store) List(_ context.Context) ([]*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*session.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		cp := *sess
		out = append(out, &cp)
	}
	return out, nil
}

// Delete removes a session. Deleting a session that does not exist is not
// an error.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}
