package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/connecthub/backend/internal/logging"
)

// wantsStructured reports whether the client expects a JSON payload instead
// of a browser redirect. Checked once here rather than per handler.
func wantsStructured(r *http.Request) bool {
	if strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}

// respondMutation finishes a mutating request in whichever mode the client
// asked for: a JSON status payload for structured clients, a redirect for
// everyone else.
func respondMutation(ctx context.Context, w http.ResponseWriter, r *http.Request, status int, payload any, location string) {
	if wantsStructured(r) {
		respondJSON(ctx, w, status, payload)
		return
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func errorPayload(message string) map[string]string {
	return map[string]string{"status": "error", "error": message}
}
