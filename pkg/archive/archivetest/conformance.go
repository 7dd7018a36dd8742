// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package archivetest provides a shared conformance test suite for
// archive.Store implementations. Each backend should call
// RunConformanceTests from its own _test.go file.
package archivetest

import (
	"context"
	"errors"
	"testing"

	"github.com/leseb/jsondemux/pkg/archive"
)

// RunConformanceTests exercises an archive.Store implementation against the
// shared contract. newStore is called once per sub-test for an isolated
// store instance.
func RunConformanceTests(t *testing.T, newStore func(t *testing.T) archive.Store) {
	t.Helper()

	t.Run("AppendAndGet", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		if err := store.Append(ctx, "sess_a", []byte("hello ")); err != nil {
			t.Fatalf("Append: %v", err)
		}
		if err := store.Append(ctx, "sess_a", []byte("world")); err != nil {
			t.Fatalf("Append: %v", err)
		}

		got, err := store.Get(ctx, "sess_a")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if string(got.Data) != "hello world" {
			t.Errorf("expected %q, got %q", "hello world", got.Data)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		_, err := store.Get(ctx, "sess_missing")
		if !errors.Is(err, archive.ErrNotFound) {
			t.Errorf("Get expected ErrNotFound, got %v", err)
		}

		err = store.Delete(ctx, "sess_missing")
		if !errors.Is(err, archive.ErrNotFound) {
			t.Errorf("Delete expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		if err := store.Append(ctx, "sess_del", []byte("x")); err != nil {
			t.Fatalf("Append: %v", err)
		}
		if err := store.Delete(ctx, "sess_del"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := store.Get(ctx, "sess_del"); !errors.Is(err, archive.ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
	})

	t.Run("AppendCreatesOnFirstUse", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		if err := store.Append(ctx, "sess_new", []byte("first chunk")); err != nil {
			t.Fatalf("Append: %v", err)
		}
		got, err := store.Get(ctx, "sess_new")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.SessionID != "sess_new" {
			t.Errorf("expected SessionID sess_new, got %q", got.SessionID)
		}
	})
}
