package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/connecthub/backend/internal/auth"
)

const sessionKeyPrefix = "session:"

// RedisSessionStore persists session tokens in Redis with a TTL matching the
// session expiry, so stale sessions disappear without a sweeper.
type RedisSessionStore struct {
	client *redis.Client
}

// NewRedisSessionStore constructs a session store backed by the provided client.
func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

type sessionRecord struct {
	AccountID string    `json:"accountId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Save stores the session under its token, expiring with the session itself.
func (s *RedisSessionStore) Save(ctx context.Context, session auth.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	payload, err := json.Marshal(sessionRecord{AccountID: session.AccountID, ExpiresAt: session.ExpiresAt})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if err := s.client.Set(ctx, sessionKeyPrefix+session.Token, payload, ttl).Err(); err != nil {
		return fmt.Errorf("set session: %w", err)
	}

	return nil
}

// Find loads a session by its token.
func (s *RedisSessionStore) Find(ctx context.Context, token string) (auth.Session, error) {
	payload, err := s.client.Get(ctx, sessionKeyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return auth.Session{}, auth.ErrSessionNotFound
		}
		return auth.Session{}, fmt.Errorf("get session: %w", err)
	}

	var record sessionRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return auth.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}

	return auth.Session{
		Token:     token,
		AccountID: record.AccountID,
		ExpiresAt: record.ExpiresAt.UTC(),
	}, nil
}

// Delete removes a session by its token.
func (s *RedisSessionStore) Delete(ctx context.Context, token string) error {
	deleted, err := s.client.Del(ctx, sessionKeyPrefix+token).Result()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if deleted == 0 {
		return auth.ErrSessionNotFound
	}
	return nil
}

var _ auth.SessionStore = (*RedisSessionStore)(nil)
