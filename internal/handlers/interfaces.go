package handlers

import (
	"context"
	"io"

	"github.com/connecthub/backend/internal/auth"
	"github.com/connecthub/backend/internal/models"
)

// ProfileStore captures the account and profile persistence operations
// required by the HTTP handlers.
type ProfileStore interface {
	Register(ctx context.Context, account models.Account, profile models.Profile) error
	FindAccountByUsername(ctx context.Context, username string) (models.Account, error)
	FindAccountByEmail(ctx context.Context, email string) (models.Account, error)
	FindProfileByAccountID(ctx context.Context, accountID string) (models.Profile, error)
	FindProfileByID(ctx context.Context, profileID string) (models.Profile, error)
	UpdateProfile(ctx context.Context, update models.ProfileUpdate) (models.Profile, error)
	Search(ctx context.Context, query, excludeProfileID string) ([]models.Profile, error)
}

// FriendStore captures operations required by the friend handlers.
type FriendStore interface {
	CreateRequest(ctx context.Context, request models.FriendRequest) error
	AcceptRequest(ctx context.Context, requestID, actingProfileID string) (bool, error)
	DeclineRequest(ctx context.Context, requestID, actingProfileID string) (bool, error)
	Unfriend(ctx context.Context, profileID, otherProfileID string) error
	ListFriends(ctx context.Context, profileID string) ([]models.Profile, error)
	ListIncomingRequests(ctx context.Context, profileID string) ([]models.FriendRequest, error)
}

// PostStore captures persistence for posts, media, and likes.
type PostStore interface {
	Create(ctx context.Context, post models.Post) error
	ToggleLike(ctx context.Context, postID, profileID string) (models.LikeResult, error)
	Delete(ctx context.Context, postID, actingAccountID string) error
	ListFeed(ctx context.Context, viewerProfileID string) ([]models.Post, error)
	ListByProfile(ctx context.Context, profileID, viewerProfileID string) ([]models.Post, error)
}

// StoryStore captures persistence for stories.
type StoryStore interface {
	Create(ctx context.Context, story models.Story) error
	Delete(ctx context.Context, storyID, actingAccountID string) error
	ListActive(ctx context.Context) ([]models.Story, error)
}

// SessionManager issues, validates, and revokes session tokens.
type SessionManager interface {
	Issue(ctx context.Context, accountID string) (auth.Session, error)
	Validate(ctx context.Context, token string) (string, error)
	Revoke(ctx context.Context, token string)
}

// BlobStorage saves uploaded files and returns the public location recorded
// on the owning entity.
type BlobStorage interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}
