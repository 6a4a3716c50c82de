package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
)

type SecretsHandler struct {
	Set func(key, value string) error
}

type setSecretReq struct {
	Value string `json:"value"`
}

// Put stores one credential: PUT /secrets/GOOGLE_API_KEY {"value": "..."}
func (h SecretsHandler) Put(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/secrets/")
	if key == "" || strings.Contains(key, "/") {
		writeError(w, r, http.StatusNotFound, "not_found", "expected /secrets/{KEY}")
		return
	}
	if h.Set == nil {
		writeError(w, r, http.StatusNotImplemented, "unsupported", "secret storage is not available")
		return
	}

	var req setSecretReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	if err := h.Set(key, req.Value); err != nil {
		writeError(w, r, http.StatusBadRequest, "store_failed", "failed to store secret: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
