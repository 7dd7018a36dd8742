// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package memory_test

import (
	"testing"

	"github.com/leseb/jsondemux/pkg/archive"
	"github.com/leseb/jsondemux/pkg/archive/archivetest"
	"github.com/leseb/jsondemux/pkg/archive/memory"
)

func TestMemoryConformance(t *testing.T) {
	archivetest.RunConformanceTests(t, func(t *testing.T) archive.Store {
		return memory.New()
	})
}
