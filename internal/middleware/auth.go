package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/connecthub/backend/internal/logging"
)

// SessionCookie is the cookie carrying the browser session token.
const SessionCookie = "connecthub_session"

// SessionValidator resolves a session token to an account identifier.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (string, error)
}

type accountIDKey struct{}

// WithAccountID stores the authenticated account id on the context.
func WithAccountID(ctx context.Context, accountID string) context.Context {
	if accountID == "" {
		return ctx
	}
	return context.WithValue(ctx, accountIDKey{}, accountID)
}

// AccountIDFromContext retrieves the authenticated account id, if any.
func AccountIDFromContext(ctx context.Context) (string, bool) {
	accountID, ok := ctx.Value(accountIDKey{}).(string)
	return accountID, ok && accountID != ""
}

// SessionToken extracts the session token from the Authorization header or
// the session cookie. The header wins when both are present.
func SessionToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// RequireSession rejects requests without a valid session and stores the
// account id on the context for downstream handlers.
func RequireSession(sessions SessionValidator, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := SessionToken(r)
		if token == "" {
			unauthenticated(w, r)
			return
		}

		accountID, err := sessions.Validate(r.Context(), token)
		if err != nil {
			logging.FromContext(r.Context()).Warn("session validation failed", "error", err)
			unauthenticated(w, r)
			return
		}

		next(w, r.WithContext(WithAccountID(r.Context(), accountID)))
	}
}

// OptionalSession attaches the account id when a valid session is present and
// passes the request through anonymously otherwise.
func OptionalSession(sessions SessionValidator, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := SessionToken(r)
		if token == "" {
			next(w, r)
			return
		}

		accountID, err := sessions.Validate(r.Context(), token)
		if err != nil {
			next(w, r)
			return
		}

		next(w, r.WithContext(WithAccountID(r.Context(), accountID)))
	}
}

// Anonymous browser requests are sent to the login page; structured clients
// get a 401 payload.
func unauthenticated(w http.ResponseWriter, r *http.Request) {
	if strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest") ||
		strings.Contains(r.Header.Get("Accept"), "application/json") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"authentication required"}`))
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
