package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"
)

var (
	// ErrSessionNotFound indicates the provided token does not map to an active session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired indicates the session has expired and must be re-established.
	ErrSessionExpired = errors.New("session expired")
)

// SessionStore persists issued session tokens so they can survive process restarts.
type SessionStore interface {
	Save(ctx context.Context, session Session) error
	Find(ctx context.Context, token string) (Session, error)
	Delete(ctx context.Context, token string) error
}

// Session maps an opaque token to an authenticated account.
type Session struct {
	Token     string
	AccountID string
	ExpiresAt time.Time
}

// Manager issues, validates, and revokes opaque session tokens backed by a
// persistent store.
type Manager struct {
	ttl   time.Duration
	store SessionStore

	nowFunc func() time.Time
}

// NewManager constructs a Manager that issues tokens valid for the provided TTL.
func NewManager(ttl time.Duration, store SessionStore) *Manager {
	if store == nil {
		panic("auth: session store must not be nil")
	}
	return &Manager{ttl: ttl, store: store, nowFunc: func() time.Time { return time.Now().UTC() }}
}

// Issue creates a new session for the provided account identifier.
func (m *Manager) Issue(ctx context.Context, accountID string) (Session, error) {
	if accountID == "" {
		return Session{}, errors.New("account id must be provided")
	}

	token, err := randomToken()
	if err != nil {
		return Session{}, err
	}

	session := Session{
		Token:     token,
		AccountID: accountID,
		ExpiresAt: m.nowFunc().Add(m.ttl),
	}

	if err := m.store.Save(ctx, session); err != nil {
		return Session{}, err
	}

	return session, nil
}

// Validate resolves a token to the owning account id. Expired sessions are
// removed from the store and reported as ErrSessionExpired.
func (m *Manager) Validate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrSessionNotFound
	}

	session, err := m.store.Find(ctx, token)
	if err != nil {
		return "", err
	}

	if m.nowFunc().After(session.ExpiresAt) {
		_ = m.store.Delete(ctx, token)
		return "", ErrSessionExpired
	}

	return session.AccountID, nil
}

// Revoke removes the provided token from the active session store.
func (m *Manager) Revoke(ctx context.Context, token string) {
	if token == "" {
		return
	}
	_ = m.store.Delete(ctx, token)
}

func randomToken() (string, error) {
	const size = 32
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
