package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/joseph-ayodele/paperflow/internal/common"
)

// defaultOwnerID is used when a request carries no X-Owner-ID header.
const defaultOwnerID = "default"

// ownerID extracts the owner identity from the request.
func ownerID(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get("X-Owner-ID")); v != "" {
		return v
	}
	return defaultOwnerID
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeAppError maps domain errors onto HTTP status codes.
func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, common.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
