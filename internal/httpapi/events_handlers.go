package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"jobmonitor-engine/internal/events"
)

// heartbeat keeps idle proxies from closing the stream between runs.
const heartbeat = 25 * time.Second

type EventsHandler struct {
	Hub *events.Hub
}

// ServeSSE streams run and source events. Each frame is named after the
// envelope's type so clients can listen for e.g. "postings.new" only.
func (h EventsHandler) ServeSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "stream_unsupported", "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := h.Hub.Subscribe()
	defer h.Hub.Unsubscribe(ch)

	send := func(msg string) {
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType(msg), msg)
		flusher.Flush()
	}
	send(events.MakeEvent(RequestIDFrom(r.Context()), "ping", 1, nil))

	tick := time.NewTicker(heartbeat)
	defer tick.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-tick.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			send(msg)
		}
	}
}

func eventType(msg string) string {
	var e struct {
		Type string `json:"type"`
	}
	if json.Unmarshal([]byte(msg), &e) != nil || e.Type == "" {
		return "message"
	}
	return e.Type
}
