// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	adapterhttp "github.com/leseb/jsondemux/pkg/adapters/http"
	"github.com/leseb/jsondemux/pkg/archive"
	archivemem "github.com/leseb/jsondemux/pkg/archive/memory"
	"github.com/leseb/jsondemux/pkg/demux"
	"github.com/leseb/jsondemux/pkg/observability/logging"
	"github.com/leseb/jsondemux/pkg/session"
	sessionmem "github.com/leseb/jsondemux/pkg/session/memory"
)

func testHandler(t *testing.T) http.Handler {
	t.Helper()
	schemas := map[string]*demux.Schema{
		"greeting": demux.NewSchema(
			demux.Field{Name: "name", Sink: demux.Single, Value: demux.KindString},
		),
	}
	logger := logging.New(logging.Config{Level: "error"})
	var archiveStore archive.Store = archivemem.New()
	var sessionStore session.Store = sessionmem.New()
	return adapterhttp.New(logger, schemas, sessionStore, archiveStore, demux.UnknownFieldStrict)
}

func TestCreateFeedAndGetField(t *testing.T) {
	h := testHandler(t)

	createBody, _ := json.Marshal(map[string]string{"schema": "greeting"})
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", bytes.NewReader(createBody))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("create session: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}

	feedReq := httptest.NewRequest(http.MethodPost, "/v1/sessions/"+created.ID+"/feed", bytes.NewReader([]byte(`{"name":"Ada"}`)))
	feedRec := httptest.NewRecorder()
	h.ServeHTTP(feedRec, feedReq)
	if feedRec.Code != http.StatusOK {
		t.Fatalf("feed session: expected 200, got %d: %s", feedRec.Code, feedRec.Body.String())
	}

	fieldReq := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+created.ID+"/fields/name", nil)
	fieldRec := httptest.NewRecorder()
	h.ServeHTTP(fieldRec, fieldReq)
	if fieldRec.Code != http.StatusOK {
		t.Fatalf("get field: expected 200, got %d: %s", fieldRec.Code, fieldRec.Body.String())
	}

	var field struct {
		Value string `json:"value"`
	}
	body, _ := io.ReadAll(fieldRec.Body)
	if err := json.Unmarshal(body, &field); err != nil {
		t.Fatalf("decode field response: %v", err)
	}
	if field.Value != "Ada" {
		t.Errorf("expected value Ada, got %q", field.Value)
	}
}

func TestCreateSessionUnknownSchema(t *testing.T) {
	h := testHandler(t)

	body, _ := json.Marshal(map[string]string{"schema": "does_not_exist"})
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
