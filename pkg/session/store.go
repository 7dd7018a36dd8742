// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package session defines the Session metadata type and the pluggable
// SessionStore interface backing it. A Session tracks one demux.Demux's
// lifecycle (schema, status, timestamps, terminal snapshot); the sink-level
// data it carries lives only in the in-process Demux and is never itself
// persisted mid-flight, per the single-threaded-feeder model.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/leseb/jsondemux/pkg/provider"
)

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = errors.New("session not found")

// Providers is the registry of session store backend implementations.
// Import implementation packages with blank imports to register them:
//
//	import _ "github.com/leseb/jsondemux/pkg/session/memory"
//	import _ "github.com/leseb/jsondemux/pkg/session/postgres"
//	import _ "github.com/leseb/jsondemux/pkg/session/sqlite"
var Providers = provider.NewRegistry[Store]("session_store")

// Status is a Session's lifecycle state.
type Status string

const (
	StatusActive   Status = "active"
	StatusDone     Status = "done"
	StatusPoisoned Status = "poisoned"
)

// Session is the persisted metadata record for one demultiplexing session.
type Session struct {
	ID         string
	SchemaName string
	Status     Status
	Error      string
	Snapshot   map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Store defines session metadata storage, implemented by memory, postgres,
// and sqlite backends.
type Store interface {
	Create(ctx context.Context, sess *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	UpdateStatus(ctx context.Context, id string, status Status, errMsg string, snapshot map[string]any) error
	List(ctx context.Context) ([]*Session, error)
	Delete(ctx context.Context, id string) error
}
