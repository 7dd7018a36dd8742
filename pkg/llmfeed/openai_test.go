// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package llmfeed_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/leseb/jsondemux/pkg/demux"
	"github.com/leseb/jsondemux/pkg/llmfeed"
)

func greetingSchema() *demux.Schema {
	return demux.NewSchema(
		demux.Field{Name: "greeting", Sink: demux.Single, Value: demux.KindString},
	)
}

func TestStreamIntoFeedsContentDeltasIntoDemux(t *testing.T) {
	chunks := []string{
		`{"greeting":"`,
		`Hello`,
		`, world!"}`,
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for i, c := range chunks {
			fmt.Fprintf(w, "data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"test\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", c)
			_ = i
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}))
	defer server.Close()

	client := llmfeed.NewClient(server.URL, "test-key")
	target := demux.New(greetingSchema())

	err := client.StreamInto(context.Background(), "test-model", "greeting_schema",
		[]llmfeed.Message{{Role: "user", Content: "say hi"}}, target)
	if err != nil {
		t.Fatalf("StreamInto: %v", err)
	}

	sink, ok := target.Single("greeting")
	if !ok {
		t.Fatalf("expected greeting sink")
	}
	v, err, terminal := sink.Peek()
	if !terminal {
		t.Fatalf("expected terminal sink after stream completion")
	}
	if err != nil {
		t.Fatalf("unexpected sink error: %v", err)
	}
	if v != "Hello, world!" {
		t.Errorf("expected %q, got %q", "Hello, world!", v)
	}
}
