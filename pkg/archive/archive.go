// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package archive stores the raw byte stream fed to a session, keyed by
// session ID, so a transcript can be replayed or audited after the fact.
// It never parses or extracts the bytes it holds.
package archive

import (
	"context"
	"errors"
	"time"

	"github.com/leseb/jsondemux/pkg/provider"
)

// ErrNotFound is returned when no transcript exists for a session ID.
var ErrNotFound = errors.New("archive: transcript not found")

// Providers is the registry of archive backend implementations.
// Import implementation packages with blank imports to register them:
//
//	import _ "github.com/leseb/jsondemux/pkg/archive/memory"
//	import _ "github.com/leseb/jsondemux/pkg/archive/filesystem"
//	import _ "github.com/leseb/jsondemux/pkg/archive/s3"
var Providers = provider.NewRegistry[Store]("archive_store")

// Transcript is the raw byte record archived for one session.
type Transcript struct {
	SessionID string
	Data      []byte
	CreatedAt time.Time
}

// Store defines the interface for pluggable transcript archive backends.
//
// Append lets callers archive a session incrementally as chunks arrive
// rather than buffering the whole transcript before the first write.
type Store interface {
	Append(ctx context.Context, sessionID string, chunk []byte) error
	Get(ctx context.Context, sessionID string) (*Transcript, error)
	Delete(ctx context.Context, sessionID string) error
	Close(ctx context.Context) error
}
