package service

import (
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"
)

/*
streamSSE writes a stream of items to an HTTP response as Server-Sent
Events, one `data: <json>` record per item.  The payload shape is decided
by the caller: JSON-RPC streams wrap each event in a response envelope,
REST streams emit the raw event.  A client disconnect ends the stream
silently; an error item is rendered best-effort as a final record.
*/
func streamSSE(w http.ResponseWriter, r *http.Request, items <-chan StreamItem, payload func(StreamItem) any) {
	flusher, ok := w.(http.Flusher)

	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-store")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case item, ok := <-items:
			if !ok {
				return
			}

			data, err := json.Marshal(payload(item))

			if err != nil {
				log.Error("failed to encode stream event", "error", err)
				continue
			}

			if _, err = w.Write([]byte("data: ")); err != nil {
				return
			}

			if _, err = w.Write(data); err != nil {
				return
			}

			if _, err = w.Write([]byte("\n\n")); err != nil {
				return
			}

			flusher.Flush()

			if item.Err != nil {
				return
			}
		}
	}
}
