package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"fambudget/internal/core"
)

// errorResponse is the JSON body for every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps a domain error onto an HTTP status and a stable machine
// code. Unknown errors become opaque 500s; their detail goes to the log,
// not the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)

	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, status, errorResponse{Error: "internal error", Code: code})
		return
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}

func statusFor(err error) (int, string) {
	switch {
	case core.IsClientError(err):
		return http.StatusUnprocessableEntity, "invalid_input"
	case core.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case core.IsTenancyViolation(err):
		return http.StatusForbidden, "forbidden"
	case core.IsConflict(err):
		return http.StatusConflict, "conflict"
	case core.IsRetryable(err):
		return http.StatusServiceUnavailable, "busy"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// badRequest reports a malformed request body or parameter. Distinct from
// 422, which means well-formed input the ledger rejected.
func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Code: "bad_request"})
}

func unauthorized(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusUnauthorized, errorResponse{Error: msg, Code: "unauthorized"})
}
