// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/leseb/jsondemux/pkg/session"
	sesspg "github.com/leseb/jsondemux/pkg/session/postgres"
	"github.com/leseb/jsondemux/pkg/session/sessiontest"
)

func TestPostgresConformance(t *testing.T) {
	dsn := os.Getenv("SESSION_STORE_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("Skipping postgres conformance tests: SESSION_STORE_POSTGRES_DSN must be set")
	}

	sessiontest.RunConformanceTests(t, func(t *testing.T) session.Store {
		store, err := sesspg.New(context.Background(), dsn)
		if err != nil {
			t.Fatalf("postgres.New: %v", err)
		}
		t.Cleanup(func() { store.Close() })
		return store
	})
}
