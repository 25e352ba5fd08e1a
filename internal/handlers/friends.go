package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/connecthub/backend/internal/logging"
	"github.com/connecthub/backend/internal/middleware"
	"github.com/connecthub/backend/internal/models"
	"github.com/connecthub/backend/internal/repositories"
)

// FriendHandler provides the friend-request lifecycle and friend listing.
type FriendHandler struct {
	Friends  FriendStore
	Profiles ProfileStore
	NowFunc  func() time.Time
}

// Send handles POST /friend-request/send/{profile_id}. Re-sending an
// identical pending request is a silent no-op.
func (h FriendHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	sender, ok := actingProfile(w, r, h.Profiles)
	if !ok {
		return
	}

	receiverID := r.PathValue("profile_id")
	if receiverID == sender.ID {
		respondJSON(ctx, w, http.StatusBadRequest, errorPayload("cannot send a friend request to yourself"))
		return
	}

	if _, err := h.Profiles.FindProfileByID(ctx, receiverID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, errorPayload("profile not found"))
			return
		}
		logger.Error("receiver lookup failed", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, errorPayload("failed to send request"))
		return
	}

	request := models.FriendRequest{
		ID:         uuid.NewString(),
		SenderID:   sender.ID,
		ReceiverID: receiverID,
		CreatedAt:  h.now(),
	}

	if err := h.Friends.CreateRequest(ctx, request); err != nil {
		logger.Error("friend request creation failed", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, errorPayload("failed to send request"))
		return
	}

	respondMutation(ctx, w, r, http.StatusOK, map[string]string{"status": "success"}, "/")
}

// Accept handles POST /friend-request/accept/{id}. Only the receiver may
// accept; anyone else gets a silent no-op.
func (h FriendHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.Friends.AcceptRequest)
}

// Decline handles POST /friend-request/decline/{id}.
func (h FriendHandler) Decline(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.Friends.DeclineRequest)
}

// Unfriend handles POST /unfriend/{profile_id}. Removing someone you are not
// friends with is a no-op.
func (h FriendHandler) Unfriend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := actingProfile(w, r, h.Profiles)
	if !ok {
		return
	}

	if err := h.Friends.Unfriend(ctx, actor.ID, r.PathValue("profile_id")); err != nil {
		logging.FromContext(ctx).Error("unfriend failed", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, errorPayload("failed to unfriend"))
		return
	}

	respondMutation(ctx, w, r, http.StatusOK, map[string]string{"status": "success"}, "/friends")
}

// List handles GET /friends.
func (h FriendHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := actingProfile(w, r, h.Profiles)
	if !ok {
		return
	}

	friends, err := h.Friends.ListFriends(ctx, actor.ID)
	if err != nil {
		logging.FromContext(ctx).Error("friend listing failed", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, errorPayload("failed to list friends"))
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"friends": toProfilePayloads(friends)})
}

// Notifications handles GET /notifications: incoming friend requests for an
// authenticated caller, an empty list for everyone else.
func (h FriendHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accountID, authenticated := middleware.AccountIDFromContext(ctx)
	if !authenticated {
		respondJSON(ctx, w, http.StatusOK, map[string]any{"friendRequests": []requestPayload{}})
		return
	}

	profile, err := h.Profiles.FindProfileByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, errorPayload("profile not found"))
			return
		}
		logging.FromContext(ctx).Error("profile lookup failed", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, errorPayload("failed to load notifications"))
		return
	}

	requests, err := h.Friends.ListIncomingRequests(ctx, profile.ID)
	if err != nil {
		logging.FromContext(ctx).Error("incoming request listing failed", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, errorPayload("failed to load notifications"))
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"friendRequests": toRequestPayloads(requests)})
}

func (h FriendHandler) resolve(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, requestID, actingProfileID string) (bool, error)) {
	ctx := r.Context()

	actor, ok := actingProfile(w, r, h.Profiles)
	if !ok {
		return
	}

	resolved, err := action(ctx, r.PathValue("id"), actor.ID)
	if err != nil {
		logging.FromContext(ctx).Error("friend request resolution failed", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, errorPayload("failed to resolve request"))
		return
	}

	// resolved=false covers both a missing request and a non-receiver actor;
	// either way the browser lands back on the friends page.
	respondMutation(ctx, w, r, http.StatusOK, map[string]any{
		"status":   "success",
		"resolved": resolved,
	}, "/friends")
}

func (h FriendHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
