package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"jobmonitor-engine/internal/domain"
	"jobmonitor-engine/internal/pipeline"
)

// errorBody is the envelope every non-2xx response uses.
type errorBody struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	var e errorBody
	e.Error.Code = code
	e.Error.Message = message
	e.Error.RequestID = RequestIDFrom(r.Context())
	writeJSON(w, status, e)
}

// writeErr maps the run error taxonomy onto HTTP statuses.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, pipeline.ErrAlreadyRunning):
		writeError(w, r, http.StatusConflict, "already_running", err.Error())
	case errors.Is(err, domain.ErrConfig):
		writeError(w, r, http.StatusBadRequest, "config_error", err.Error())
	case errors.Is(err, domain.ErrLedgerIO):
		writeError(w, r, http.StatusInternalServerError, "ledger_io", err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal", err.Error())
	}
}

func methodMux(m map[string]http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h, ok := m[r.Method]; ok {
			h(w, r)
			return
		}
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" not allowed on "+r.URL.Path)
	}
}
