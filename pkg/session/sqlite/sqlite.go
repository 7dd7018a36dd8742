// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/leseb/jsondemux/pkg/session"

	_ "modernc.org/sqlite"
)

func init() {
	session.Providers.Register("sqlite", func(ctx context.Context, params map[string]string) (session.Store, error) {
		return New(ctx, params["dsn"])
	})
}

var _ session.Store = (*Store)(nil)

// Store is a SQLite-backed implementation of session.Store, using the
// pure-Go modernc.org/sqlite driver (no cgo).
type Store struct {
	db *sql.DB
}

// New opens a SQLite store. dsn is a modernc.org/sqlite data source name,
// e.g. "file:sessions.db?_pragma=journal_mode(WAL)" or ":memory:".
func New(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite ping: %w", err)
	}

	s := &Store{db: db}
	if err := s.createTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables(ctx context.Context) error {
	const stmt = `CREATE TABLE IF NOT EXISTS demux_sessions (
		id TEXT PRIMARY KEY,
		schema_name TEXT NOT NULL,
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		snapshot TEXT NOT NULL DEFAULT '{}',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("sqlite create tables: %w", err)
	}
	return nil
}

// Create stores a new session.
func (s *Store) Create(ctx context.Context, sess *session.Session) error {
	snapJSON, err := json.Marshal(sess.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO demux_sessions (id, schema_name, status, error, snapshot, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.SchemaName, sess.Status, sess.Error, snapJSON, sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("session %s already exists: %w", sess.ID, err)
	}
	return nil
}

// Get retrieves a session by ID.
func (s *Store) Get(ctx context.Context, id string) (*session.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, schema_name, status, error, snapshot, created_at, updated_at
		 FROM demux_sessions WHERE id = ?`, id)

	var (
		sess     session.Session
		snapJSON string
	)
	err := row.Scan(&sess.ID, &sess.SchemaName, &sess.Status, &sess.Error, &snapJSON, &sess.CreatedAt, &sess.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %s: %w", id, session.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if err := json.Unmarshal([]byte(snapJSON), &sess.Snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &sess, nil
}

// UpdateStatus updates a session's status, error, and snapshot fields.
func (s *Store) UpdateStatus(ctx context.Context, id string, status session.Status, errMsg string, snapshot map[string]any) error {
	snapJSON, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE demux_sessions SET status=?, error=?, snapshot=?, updated_at=? WHERE id=?`,
		status, errMsg, snapJSON, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("session %s: %w", id, session.ErrNotFound)
	}
	return nil
}

// List returns every stored session.
func (s *Store) List(ctx context.Context) ([]*session.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, schema_name, status, error, snapshot, created_at, updated_at FROM demux_sessions`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*session.Session
	for rows.Next() {
		var (
			sess     session.Session
			snapJSON string
		)
		if err := rows.Scan(&sess.ID, &sess.SchemaName, &sess.Status, &sess.Error, &snapJSON, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if err := json.Unmarshal([]byte(snapJSON), &sess.Snapshot); err != nil {
			return nil, fmt.Errorf("unmarshal snapshot: %w", err)
		}
		out = append(out, &sess)
	}
	return out, rows.Err()
}

// Delete removes a session.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM demux_sessions WHERE id=?`, id)
	return err
}
