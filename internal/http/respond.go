package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fjod/go_storefront/internal/apperr"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// respondAppError renders err as {error, code, ...fields}. Causes are only
// exposed outside production.
func respondAppError(w http.ResponseWriter, r *http.Request, err error, production bool) {
	ae, ok := apperr.As(err)
	if !ok {
		ae = apperr.Wrap(err, apperr.KindFatal, "INTERNAL_ERROR", apperr.MsgInternal)
	}
	status := ae.Kind.HTTPStatus()

	body := make(map[string]any, len(ae.Fields)+3)
	for k, v := range ae.Fields {
		body[k] = v
	}
	body["error"] = ae.Message
	body["code"] = ae.Code
	if !production && ae.Err != nil {
		body["details"] = ae.Err.Error()
	}

	log := slog.With("code", ae.Code, "request_id", getRequestID(r.Context()))
	if userID := getUserIDFromContext(r.Context()); userID != "" {
		log = log.With("user_id", userID)
	}
	if status >= http.StatusInternalServerError {
		log.ErrorContext(r.Context(), "request failed", "error", err)
	} else {
		log.InfoContext(r.Context(), "request rejected", "error", err)
	}
	respondJSON(w, status, body)
}

func isBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
