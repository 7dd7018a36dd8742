// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package sessiontest provides a shared conformance test suite for
// session.Store implementations. Each backend should call
// RunConformanceTests from its own _test.go file.
package sessiontest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leseb/jsondemux/pkg/session"
)

// RunConformanceTests exercises a session.Store implementation against the
// shared contract. newStore is called once per sub-test for an isolated
// store instance.
func RunConformanceTests(t *testing.T, newStore func(t *testing.T) session.Store) {
	t.Helper()

	t.Run("CreateAndGet", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		sess := &session.Session{
			ID:         "sess_abc123",
			SchemaName: "chat_response",
			Status:     session.StatusActive,
			CreatedAt:  time.Now().Truncate(time.Millisecond),
			UpdatedAt:  time.Now().Truncate(time.Millisecond),
		}
		if err := store.Create(ctx, sess); err != nil {
			t.Fatalf("Create: %v", err)
		}

		got, err := store.Get(ctx, sess.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.ID != sess.ID || got.SchemaName != sess.SchemaName || got.Status != sess.Status {
			t.Errorf("Get returned unexpected session: %+v", got)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		_, err := store.Get(ctx, "sess_nonexistent")
		if !errors.Is(err, session.ErrNotFound) {
			t.Errorf("Get expected ErrNotFound, got %v", err)
		}

		err = store.UpdateStatus(ctx, "sess_nonexistent", session.StatusDone, "", nil)
		if !errors.Is(err, session.ErrNotFound) {
			t.Errorf("UpdateStatus expected ErrNotFound, got %v", err)
		}
	})

	t.Run("UpdateStatus", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		sess := &session.Session{
			ID:         "sess_update1",
			SchemaName: "chat_response",
			Status:     session.StatusActive,
			CreatedAt:  time.Now().Truncate(time.Millisecond),
			UpdatedAt:  time.Now().Truncate(time.Millisecond),
		}
		if err := store.Create(ctx, sess); err != nil {
			t.Fatalf("Create: %v", err)
		}

		snapshot := map[string]any{"name": "Ada"}
		if err := store.UpdateStatus(ctx, sess.ID, session.StatusDone, "", snapshot); err != nil {
			t.Fatalf("UpdateStatus: %v", err)
		}

		got, err := store.Get(ctx, sess.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Status != session.StatusDone {
			t.Errorf("expected status done, got %v", got.Status)
		}
		if got.Snapshot["name"] != "Ada" {
			t.Errorf("expected snapshot name=Ada, got %v", got.Snapshot)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		sess := &session.Session{
			ID:         "sess_del1",
			SchemaName: "chat_response",
			Status:     session.StatusActive,
			CreatedAt:  time.Now().Truncate(time.Millisecond),
			UpdatedAt:  time.Now().Truncate(time.Millisecond),
		}
		if err := store.Create(ctx, sess); err != nil {
			t.Fatalf("Create: %v", err)
		}
		if err := store.Delete(ctx, sess.ID); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := store.Get(ctx, sess.ID); !errors.Is(err, session.ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		for i := 0; i < 3; i++ {
			sess := &session.Session{
				ID:         "sess_list" + string(rune('a'+i)),
				SchemaName: "chat_response",
				Status:     session.StatusActive,
				CreatedAt:  time.Now().Truncate(time.Millisecond),
				UpdatedAt:  time.Now().Truncate(time.Millisecond),
			}
			if err := store.Create(ctx, sess); err != nil {
				t.Fatalf("Create[%d]: %v", i, err)
			}
		}
		all, err := store.List(ctx)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(all) != 3 {
			t.Errorf("expected 3 sessions, got %d", len(all))
		}
	})

	t.Run("DuplicateCreate", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		sess := &session.Session{
			ID:         "sess_dup1",
			SchemaName: "chat_response",
			Status:     session.StatusActive,
			CreatedAt:  time.Now().Truncate(time.Millisecond),
			UpdatedAt:  time.Now().Truncate(time.Millisecond),
		}
		if err := store.Create(ctx, sess); err != nil {
			t.Fatalf("first Create: %v", err)
		}
		if err := store.Create(ctx, sess); err == nil {
			t.Errorf("expected error on duplicate Create")
		}
	})
}
