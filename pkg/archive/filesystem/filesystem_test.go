// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package filesystem_test

import (
	"testing"

	"github.com/leseb/jsondemux/pkg/archive"
	"github.com/leseb/jsondemux/pkg/archive/archivetest"
	"github.com/leseb/jsondemux/pkg/archive/filesystem"
)

func TestFilesystemConformance(t *testing.T) {
	archivetest.RunConformanceTests(t, func(t *testing.T) archive.Store {
		store, err := filesystem.New(t.TempDir())
		if err != nil {
			t.Fatalf("filesystem.New: %v", err)
		}
		return store
	})
}
