// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package memory_test

import (
	"testing"

	"github.com/leseb/jsondemux/pkg/session"
	"github.com/leseb/jsondemux/pkg/session/memory"
	"github.com/leseb/jsondemux/pkg/session/sessiontest"
)

func TestMemoryConformance(t *testing.T) {
	sessiontest.RunConformanceTests(t, func(t *testing.T) session.Store {
		return memory.New()
	})
}
