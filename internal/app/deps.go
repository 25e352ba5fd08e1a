package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/connecthub/backend/internal/auth"
	"github.com/connecthub/backend/internal/config"
	"github.com/connecthub/backend/internal/db"
	"github.com/connecthub/backend/internal/handlers"
	"github.com/connecthub/backend/internal/middleware"
	"github.com/connecthub/backend/internal/repositories"
	"github.com/connecthub/backend/internal/storage"
)

// buildDependencies assembles repositories, session management, and media
// storage into the handler dependency set. The returned cleanup releases any
// external clients and may be nil.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, func(context.Context) error, error) {
	media, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, nil, fmt.Errorf("configure media storage: %w", err)
	}

	var (
		sessionStore auth.SessionStore
		cleanup      func(context.Context) error
	)
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return handlers.Dependencies{}, nil, fmt.Errorf("ping redis: %w", err)
		}
		sessionStore = repositories.NewRedisSessionStore(client)
		cleanup = func(context.Context) error { return client.Close() }
	} else {
		sessionStore = auth.NewInMemorySessionStore()
	}

	sessions := auth.NewManager(cfg.SessionTTL, sessionStore)

	authLimiter := middleware.NewIPRateLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow, cfg.AuthRateLimit, cfg.AuthRateWindow*5)

	deps := handlers.Dependencies{
		Profiles:       repositories.NewPostgresProfileRepository(pool),
		Friends:        repositories.NewPostgresFriendRepository(pool),
		Posts:          repositories.NewPostgresPostRepository(pool),
		Stories:        repositories.NewPostgresStoryRepository(pool),
		Sessions:       sessions,
		Media:          media,
		AuthLimiter:    authLimiter,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}

	return deps, cleanup, nil
}
