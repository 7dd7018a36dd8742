// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package http exposes sessions backed by pkg/demux over a small JSON/SSE
// API: create a session from a registered schema, feed it raw characters,
// and await or stream individual field resolutions.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/leseb/jsondemux/pkg/archive"
	"github.com/leseb/jsondemux/pkg/demux"
	"github.com/leseb/jsondemux/pkg/observability/logging"
	"github.com/leseb/jsondemux/pkg/session"
)

// Handler implements the HTTP adapter over live demux sessions.
type Handler struct {
	logger      *logging.Logger
	mux         *http.ServeMux
	schemas     map[string]*demux.Schema
	sessions    session.Store
	archives    archive.Store
	unknownMode demux.UnknownFieldMode

	mu     sync.Mutex
	active map[string]*demux.Demux
}

// New creates a new HTTP handler. schemas maps a schema name (as passed in
// the POST /v1/sessions body) to its registered demux.Schema. unknownMode
// is applied to every session's demux.Demux at creation time.
func New(logger *logging.Logger, schemas map[string]*demux.Schema, sessions session.Store, archives archive.Store, unknownMode demux.UnknownFieldMode) *Handler {
	h := &Handler{
		logger:      logger,
		mux:         http.NewServeMux(),
		schemas:     schemas,
		sessions:    sessions,
		archives:    archives,
		unknownMode: unknownMode,
		active:      make(map[string]*demux.Demux),
	}

	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("POST /v1/sessions", h.handleCreateSession)
	h.mux.HandleFunc("GET /v1/sessions/{id}", h.handleGetSession)
	h.mux.HandleFunc("POST /v1/sessions/{id}/feed", h.handleFeedSession)
	h.mux.HandleFunc("GET /v1/sessions/{id}/fields/{name}", h.handleGetField)
	h.mux.HandleFunc("GET /v1/sessions/{id}/fields/{name}/stream", h.handleStreamField)

	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID := generateID("req_")
	h.logger.Info("request",
		"id", reqID,
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

type createSessionRequest struct {
	Schema string `json:"schema"`
}

type createSessionResponse struct {
	ID     string `json:"id"`
	Schema string `json:"schema"`
	Status string `json:"status"`
}

// handleCreateSession creates a session from a registered schema.
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "failed to parse request body")
		return
	}

	schema, ok := h.schemas[req.Schema]
	if !ok {
		h.writeError(w, http.StatusBadRequest, "unknown_schema", fmt.Sprintf("no schema registered as %q", req.Schema))
		return
	}

	id := generateID("sess_")
	d := demux.New(schema, demux.WithUnknownFieldMode(h.unknownMode))

	now := time.Now()
	if err := h.sessions.Create(r.Context(), &session.Session{
		ID:         id,
		SchemaName: req.Schema,
		Status:     session.StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}); err != nil {
		h.logger.Error("create session", "error", err)
		h.writeError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}

	h.mu.Lock()
	h.active[id] = d
	h.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(createSessionResponse{ID: id, Schema: req.Schema, Status: string(session.StatusActive)})
}

type feedResponse struct {
	TerminalFields []string `json:"terminal_fields"`
	Status         string   `json:"status"`
}

// handleFeedSession feeds the request body's raw bytes into the session's
// demux, archives the chunk, and reports which fields became terminal.
func (h *Handler) handleFeedSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	d, ok := h.lookupActive(id)
	if !ok {
		h.writeError(w, http.StatusNotFound, "not_found", fmt.Sprintf("no active session %q", id))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "failed to read request body")
		return
	}

	before := terminalFieldSet(d)
	feedErr := d.Feed(string(body))

	if h.archives != nil {
		if err := h.archives.Append(r.Context(), id, body); err != nil {
			h.logger.Error("archive append", "session_id", id, "error", err)
		}
	}

	after := terminalFieldSet(d)
	var nowTerminal []string
	for name := range after {
		if !before[name] {
			nowTerminal = append(nowTerminal, name)
		}
	}

	status := session.StatusActive
	if d.IsDone() {
		status = session.StatusDone
		h.finalizeSession(r.Context(), id, d, "")
	} else if feedErr != nil {
		status = session.StatusPoisoned
		h.finalizeSession(r.Context(), id, d, feedErr.Error())
	}

	if feedErr != nil {
		h.writeError(w, http.StatusUnprocessableEntity, "feed_error", feedErr.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(feedResponse{TerminalFields: nowTerminal, Status: string(status)})
}

func (h *Handler) finalizeSession(ctx context.Context, id string, d *demux.Demux, feedErrMsg string) {
	status := session.StatusDone
	if feedErrMsg != "" {
		status = session.StatusPoisoned
	}
	if err := h.sessions.UpdateStatus(ctx, id, status, feedErrMsg, d.Snapshot()); err != nil {
		h.logger.Error("update session status", "session_id", id, "error", err)
	}
}

type fieldResponse struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// handleGetField awaits a Single sink, bounded by the request's context.
func (h *Handler) handleGetField(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	name := r.PathValue("name")

	d, ok := h.lookupActive(id)
	if !ok {
		h.writeError(w, http.StatusNotFound, "not_found", fmt.Sprintf("no active session %q", id))
		return
	}

	sink, ok := d.Single(name)
	if !ok {
		h.writeError(w, http.StatusNotFound, "not_found", fmt.Sprintf("no single field %q", name))
		return
	}

	value, err := sink.Await(r.Context())
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			h.writeError(w, http.StatusAccepted, "not_ready", "field has not resolved yet")
			return
		}
		h.writeError(w, http.StatusConflict, "field_failed", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(fieldResponse{Name: name, Value: value})
}

// handleGetSession reports session status, fetching the persisted snapshot
// once the session has finished.
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	sess, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "not_found", fmt.Sprintf("no session %q", id))
			return
		}
		h.writeError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(sess)
}

func (h *Handler) lookupActive(id string) (*demux.Demux, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	d, ok := h.active[id]
	return d, ok
}

func (h *Handler) writeError(w http.ResponseWriter, status int, errType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"type":    errType,
			"message": message,
		},
	})
}

// generateID generates a unique ID with a prefix.
func generateID(prefix string) string {
	b := make([]byte, 16)
	rand.Read(b)
	return prefix + hex.EncodeToString(b)
}

// terminalFieldSet reports which top-level fields currently sit in a
// terminal state (resolved/failed for Single, closed/failed for Stream).
func terminalFieldSet(d *demux.Demux) map[string]bool {
	out := make(map[string]bool)
	for _, f := range d.Schema().Fields() {
		switch f.Sink {
		case demux.Single:
			if s, ok := d.Single(f.Name); ok {
				if _, _, terminal := s.Peek(); terminal {
					out[f.Name] = true
				}
			}
		case demux.Stream:
			if s, ok := d.Stream(f.Name); ok {
				if _, terminal, _ := s.Snapshot(); terminal {
					out[f.Name] = true
				}
			}
		}
	}
	return out
}
