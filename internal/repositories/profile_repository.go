package repositories

import (
	"context"

	"github.com/connecthub/backend/internal/models"
)

// ProfileRepository defines data access for accounts and their profiles.
type ProfileRepository interface {
	// Register creates the account and its profile atomically; neither row
	// survives a partial failure.
	Register(ctx context.Context, account models.Account, profile models.Profile) error
	FindAccountByUsername(ctx context.Context, username string) (models.Account, error)
	FindAccountByEmail(ctx context.Context, email string) (models.Account, error)
	FindProfileByAccountID(ctx context.Context, accountID string) (models.Profile, error)
	FindProfileByID(ctx context.Context, profileID string) (models.Profile, error)
	UpdateProfile(ctx context.Context, update models.ProfileUpdate) (models.Profile, error)
	// Search matches the query case-insensitively against username or bio,
	// excluding the requesting profile. Results are ordered by id.
	Search(ctx context.Context, query, excludeProfileID string) ([]models.Profile, error)
}
