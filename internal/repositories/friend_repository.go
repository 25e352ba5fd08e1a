package repositories

import (
	"context"

	"github.com/connecthub/backend/internal/models"
)

// FriendRepository defines data access for friend requests and the undirected
// friendship edge set.
type FriendRepository interface {
	// CreateRequest records a pending request. A duplicate (sender, receiver)
	// pair is a silent no-op.
	CreateRequest(ctx context.Context, request models.FriendRequest) error
	// AcceptRequest deletes the request and inserts the friendship edge in one
	// transaction, but only when actingProfileID is the receiver. It reports
	// whether the edge was consumed; a no-op is not an error.
	AcceptRequest(ctx context.Context, requestID, actingProfileID string) (bool, error)
	// DeclineRequest deletes the request when actingProfileID is the receiver.
	DeclineRequest(ctx context.Context, requestID, actingProfileID string) (bool, error)
	// Unfriend removes the edge between the two profiles, idempotently.
	Unfriend(ctx context.Context, profileID, otherProfileID string) error
	ListFriends(ctx context.Context, profileID string) ([]models.Profile, error)
	ListIncomingRequests(ctx context.Context, profileID string) ([]models.FriendRequest, error)
}
