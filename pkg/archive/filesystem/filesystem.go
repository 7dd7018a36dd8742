// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/leseb/jsondemux/pkg/archive"
)

func init() {
	archive.Providers.Register("filesystem", func(_ context.Context, params map[string]string) (archive.Store, error) {
		return New(params["base_dir"])
	})
}

// compile-time check
var _ archive.Store = (*Store)(nil)

// Store archives transcripts as one flat file per session under baseDir.
type Store struct {
	baseDir string
}

// New creates a filesystem-backed archive Store, creating baseDir if needed.
func New(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create base dir %s: %w", baseDir, err)
	}
	return &Store{baseDir: baseDir}, nil
}

func (s *Store) path(sessionID string) string {
	return filepath.Join(s.baseDir, sessionID+".transcript")
}

// Append opens the session's transcript file for append, creating it if it
// does not exist yet, and writes chunk.
func (s *Store) Append(_ context.Context, sessionID string, chunk []byte) error {
	f, err := os.OpenFile(s.path(sessionID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(chunk); err != nil {
		return fmt.Errorf("write chunk: %w", err)
	}
	return nil
}

// Get reads the full transcript for a session.
func (s *Store) Get(_ context.Context, sessionID string) (*archive.Transcript, error) {
	path := s.path(sessionID)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, archive.ErrNotFound
		}
		return nil, fmt.Errorf("read transcript: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat transcript: %w", err)
	}

	return &archive.Transcript{
		SessionID: sessionID,
		Data:      data,
		CreatedAt: info.ModTime(),
	}, nil
}

// Delete removes a session's transcript file.
func (s *Store) Delete(_ context.Context, sessionID string) error {
	if err := os.Remove(s.path(sessionID)); err != nil {
		if os.IsNotExist(err) {
			return archive.ErrNotFound
		}
		return fmt.Errorf("remove transcript: %w", err)
	}
	return nil
}

// Close is a no-op for the filesystem store.
func (s *Store) Close(_ context.Context) error {
	return nil
}
