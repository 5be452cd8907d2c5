package chi

import (
	"encoding/json"
	"net/http"
)

// statusNames are the envelope "status" labels clients switch on.
var statusNames = map[int]string{
	http.StatusOK:                  "ok",
	http.StatusAccepted:            "processing",
	http.StatusNotModified:         "not_modified",
	http.StatusBadRequest:          "bad_request",
	http.StatusUnauthorized:        "unauthorized",
	http.StatusNotFound:            "not_found",
	http.StatusMethodNotAllowed:    "method_not_allowed",
	http.StatusTooManyRequests:     "rate_limited",
	http.StatusInternalServerError: "internal_error",
	http.StatusBadGateway:          "bad_gateway",
	http.StatusServiceUnavailable:  "unavailable",
}

// envelope is the body shape of every API response.
type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func statusName(code int) string {
	if name, ok := statusNames[code]; ok {
		return name
	}
	if code >= http.StatusInternalServerError {
		return "internal_error"
	}
	return "bad_request"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeEnvelope writes {status, message, data}. 304 carries no body.
func writeEnvelope(w http.ResponseWriter, status int, message string, data any) {
	if status == http.StatusNotModified {
		w.WriteHeader(status)
		return
	}
	writeJSON(w, status, envelope{
		Status:  statusName(status),
		Message: message,
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeEnvelope(w, status, message, nil)
}
