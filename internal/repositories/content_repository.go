package repositories

import (
	"context"

	"github.com/connecthub/backend/internal/models"
)

// PostRepository exposes data access for posts, their media, and likes.
type PostRepository interface {
	// Create stores the post and all attached media rows in one transaction.
	Create(ctx context.Context, post models.Post) error
	// ToggleLike removes the like when present and adds it otherwise,
	// returning the resulting state and total count.
	ToggleLike(ctx context.Context, postID, profileID string) (models.LikeResult, error)
	// Delete removes a post owned by the acting account, cascading to media
	// and likes. ErrForbidden when the account does not own the post.
	Delete(ctx context.Context, postID, actingAccountID string) error
	ListFeed(ctx context.Context, viewerProfileID string) ([]models.Post, error)
	ListByProfile(ctx context.Context, profileID, viewerProfileID string) ([]models.Post, error)
}

// StoryRepository exposes data access for stories.
type StoryRepository interface {
	Create(ctx context.Context, story models.Story) error
	// Delete removes a story owned by the acting account.
	Delete(ctx context.Context, storyID, actingAccountID string) error
	ListActive(ctx context.Context) ([]models.Story, error)
}
