// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

type streamFragmentEvent struct {
	Fragment string `json:"fragment"`
	Index    int    `json:"index"`
}

// handleStreamField fans a Stream sink's fragments out over Server-Sent
// Events, replaying every fragment already emitted before the connection
// opened and then following along as new ones arrive.
func (h *Handler) handleStreamField(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	name := r.PathValue("name")

	d, ok := h.lookupActive(id)
	if !ok {
		h.writeError(w, http.StatusNotFound, "not_found", fmt.Sprintf("no active session %q", id))
		return
	}

	sink, ok := d.Stream(name)
	if !ok {
		h.writeError(w, http.StatusNotFound, "not_found", fmt.Sprintf("no stream field %q", name))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "streaming_not_supported", "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	index := 0
	err := sink.Iterate(r.Context(), func(fragment string) error {
		data, merr := json.Marshal(streamFragmentEvent{Fragment: fragment, Index: index})
		if merr != nil {
			return merr
		}
		fmt.Fprintf(w, "event: fragment\ndata: %s\n\n", data)
		flusher.Flush()
		index++
		return nil
	})

	if err != nil && err != context.Canceled {
		fmt.Fprintf(w, "event: error\ndata: %q\n\n", err.Error())
		flusher.Flush()
		return
	}

	fmt.Fprint(w, "event: done\ndata: {}\n\n")
	flusher.Flush()
}
