package handlers

import (
	"errors"
	"net/http"

	"github.com/connecthub/backend/internal/logging"
	"github.com/connecthub/backend/internal/middleware"
	"github.com/connecthub/backend/internal/models"
	"github.com/connecthub/backend/internal/repositories"
)

// actingProfile resolves the authenticated account on the request to its
// profile. The link is a fallible lookup, never an assumed back-reference:
// a missing profile is a 404, not a panic. Writes the failure response and
// returns false when the lookup does not succeed.
func actingProfile(w http.ResponseWriter, r *http.Request, profiles ProfileStore) (models.Profile, bool) {
	ctx := r.Context()

	accountID, ok := middleware.AccountIDFromContext(ctx)
	if !ok {
		respondJSON(ctx, w, http.StatusUnauthorized, errorPayload("authentication required"))
		return models.Profile{}, false
	}

	if profiles == nil {
		logging.FromContext(ctx).Error("profile store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, errorPayload("profile service unavailable"))
		return models.Profile{}, false
	}

	profile, err := profiles.FindProfileByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, errorPayload("profile not found"))
		} else {
			logging.FromContext(ctx).Error("profile lookup failed", "error", err, "accountId", accountID)
			respondJSON(ctx, w, http.StatusInternalServerError, errorPayload("profile lookup failed"))
		}
		return models.Profile{}, false
	}

	return profile, true
}
