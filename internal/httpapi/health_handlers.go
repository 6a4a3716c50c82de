package httpapi

import (
	"net/http"
	"time"

	"jobmonitor-engine/internal/events"
)

type HealthHandler struct {
	Hub     *events.Hub
	Started time.Time
}

func (h HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	body := map[string]any{
		"ok":          true,
		"time":        now.Format(time.RFC3339),
		"subscribers": h.Hub.Subscribers(),
	}
	if !h.Started.IsZero() {
		body["uptime_s"] = int(now.Sub(h.Started).Seconds())
	}
	writeJSON(w, http.StatusOK, body)
}
