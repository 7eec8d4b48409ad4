package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_storefront/internal/catalog"
)

type ImportHandler struct {
	importer *catalog.Importer
	secret   string
	timeout  time.Duration
}

func NewImportHandler(importer *catalog.Importer, secret string, timeout time.Duration) *ImportHandler {
	return &ImportHandler{
		importer: importer,
		secret:   secret,
		timeout:  timeout,
	}
}

type ImportResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Created int    `json:"created"`
	Skipped int    `json:"skipped"`
}

func (h *ImportHandler) MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusMethodNotAllowed, ImportResponse{Error: "Method not allowed. Use POST with authentication."})
}

func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if h.secret == "" {
		slog.ErrorContext(ctx, "catalog import secret is not configured")
		respondJSON(w, http.StatusInternalServerError, ImportResponse{Error: "Server configuration error"})
		return
	}
	if !h.authorized(r) {
		respondJSON(w, http.StatusUnauthorized, ImportResponse{Error: "Unauthorized: Invalid or missing secret key"})
		return
	}

	res, err := h.importer.Import(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "catalog import failed", "error", err)
		respondJSON(w, http.StatusInternalServerError, ImportResponse{
			Error:   "Import failed",
			Created: res.Created,
			Skipped: res.Skipped,
		})
		return
	}
	respondJSON(w, http.StatusOK, ImportResponse{
		Success: true,
		Message: "Catalog import finished",
		Created: res.Created,
		Skipped: res.Skipped,
	})
}

// authorized accepts the secret as a bearer token or as body secretKey.
func (h *ImportHandler) authorized(r *http.Request) bool {
	provided, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !found || provided == "" {
		var body struct {
			SecretKey string `json:"secretKey"`
		}
		// an empty or malformed body simply carries no key
		_ = json.NewDecoder(r.Body).Decode(&body)
		provided = body.SecretKey
	}
	return provided != "" && subtle.ConstantTimeCompare([]byte(provided), []byte(h.secret)) == 1
}
