// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package sqlite_test

import (
	"context"
	"testing"

	"github.com/leseb/jsondemux/pkg/session"
	"github.com/leseb/jsondemux/pkg/session/sessiontest"
	sesssqlite "github.com/leseb/jsondemux/pkg/session/sqlite"
)

func TestSQLiteConformance(t *testing.T) {
	sessiontest.RunConformanceTests(t, func(t *testing.T) session.Store {
		store, err := sesssqlite.New(context.Background(), ":memory:")
		if err != nil {
			t.Fatalf("sqlite.New: %v", err)
		}
		t.Cleanup(func() { store.Close() })
		return store
	})
}
