package handlers

import (
	"errors"
	"net/http"

	"github.com/connecthub/backend/internal/logging"
	"github.com/connecthub/backend/internal/media"
	"github.com/connecthub/backend/internal/models"
	"github.com/connecthub/backend/internal/repositories"
)

// ProfileHandler serves profile pages, profile editing, and search.
type ProfileHandler struct {
	Profiles       ProfileStore
	Posts          PostStore
	Media          BlobStorage
	MaxUploadBytes int64
}

// View handles GET /profile/{user_id}: the profile belonging to the given
// account plus that profile's posts, newest first.
func (h ProfileHandler) View(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	viewer, ok := actingProfile(w, r, h.Profiles)
	if !ok {
		return
	}

	profile, err := h.Profiles.FindProfileByAccountID(ctx, r.PathValue("user_id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, errorPayload("profile not found"))
			return
		}
		logging.FromContext(ctx).Error("profile lookup failed", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, errorPayload("failed to load profile"))
		return
	}

	posts, err := h.Posts.ListByProfile(ctx, profile.ID, viewer.ID)
	if err != nil {
		logging.FromContext(ctx).Error("profile post listing failed", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, errorPayload("failed to load posts"))
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{
		"profile": toProfilePayload(profile),
		"posts":   toPostPayloads(posts),
	})
}

// EditForm handles GET /profile/edit, returning the caller's current profile.
func (h ProfileHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	profile, ok := actingProfile(w, r, h.Profiles)
	if !ok {
		return
	}

	respondJSON(r.Context(), w, http.StatusOK, map[string]any{"profile": toProfilePayload(profile)})
}

// Edit handles POST /profile/edit. An empty age field clears the stored age;
// an omitted picture keeps the current one.
func (h ProfileHandler) Edit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	profile, ok := actingProfile(w, r, h.Profiles)
	if !ok {
		return
	}

	if err := parseForm(r, h.maxUpload()); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, errorPayload("invalid form data"))
		return
	}

	if _, ok := genderChoices[r.FormValue("gender")]; !ok {
		respondJSON(ctx, w, http.StatusBadRequest, errorPayload("invalid gender choice"))
		return
	}

	age, err := parseAge(r.FormValue("age"))
	if err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, errorPayload("invalid age"))
		return
	}

	update := models.ProfileUpdate{
		ProfileID: profile.ID,
		Bio:       r.FormValue("bio"),
		Gender:    r.FormValue("gender"),
		Age:       age,
	}

	if url, err := h.savePicture(r); err != nil {
		logger.Error("profile picture upload failed", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, errorPayload("failed to store profile picture"))
		return
	} else if url != "" {
		update.PictureURL = &url
	}

	updated, err := h.Profiles.UpdateProfile(ctx, update)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, errorPayload("profile not found"))
			return
		}
		logger.Error("profile update failed", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, errorPayload("failed to update profile"))
		return
	}

	respondMutation(ctx, w, r, http.StatusOK, map[string]any{
		"status":  "success",
		"profile": toProfilePayload(updated),
	}, "/profile/"+profile.AccountID)
}

// Search handles GET /search?q=: a case-insensitive substring match over
// username or bio, never including the caller.
func (h ProfileHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := actingProfile(w, r, h.Profiles)
	if !ok {
		return
	}

	query := r.URL.Query().Get("q")

	var results []models.Profile
	if query != "" {
		var err error
		results, err = h.Profiles.Search(ctx, query, actor.ID)
		if err != nil {
			logging.FromContext(ctx).Error("profile search failed", "error", err, "query", query)
			respondJSON(ctx, w, http.StatusInternalServerError, errorPayload("search failed"))
			return
		}
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{
		"query":   query,
		"results": toProfilePayloads(results),
	})
}

func (h ProfileHandler) savePicture(r *http.Request) (string, error) {
	file, header, err := r.FormFile("profile_pic")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", nil
		}
		return "", err
	}
	defer file.Close()

	if h.Media == nil {
		return "", errors.New("blob storage unavailable")
	}

	return h.Media.Save(r.Context(), media.ObjectKey("profiles", header.Filename), file)
}

func (h ProfileHandler) maxUpload() int64 {
	if h.MaxUploadBytes > 0 {
		return h.MaxUploadBytes
	}
	return 32 << 20
}
