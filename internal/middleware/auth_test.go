package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubValidator struct {
	accountID string
	err       error
}

func (s stubValidator) Validate(context.Context, string) (string, error) {
	return s.accountID, s.err
}

func TestSessionTokenPrecedence(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := SessionToken(r); got != "" {
		t.Fatalf("expected empty token, got %q", got)
	}

	r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "cookie-token"})
	if got := SessionToken(r); got != "cookie-token" {
		t.Fatalf("expected cookie token, got %q", got)
	}

	r.Header.Set("Authorization", "Bearer header-token")
	if got := SessionToken(r); got != "header-token" {
		t.Fatalf("expected header to win, got %q", got)
	}
}

func TestRequireSession(t *testing.T) {
	cases := []struct {
		name       string
		token      string
		validator  SessionValidator
		wantStatus int
		wantNext   bool
	}{
		{"valid session", "token-1", stubValidator{accountID: "acct-1"}, http.StatusOK, true},
		{"missing token", "", stubValidator{accountID: "acct-1"}, http.StatusUnauthorized, false},
		{"invalid token", "token-1", stubValidator{err: errors.New("no session")}, http.StatusUnauthorized, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var sawAccountID string
			next := func(w http.ResponseWriter, r *http.Request) {
				sawAccountID, _ = AccountIDFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}

			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set("Accept", "application/json")
			if tc.token != "" {
				r.Header.Set("Authorization", "Bearer "+tc.token)
			}

			rec := httptest.NewRecorder()
			RequireSession(tc.validator, next)(rec, r)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, rec.Code)
			}
			if tc.wantNext && sawAccountID != "acct-1" {
				t.Fatalf("expected account id on context, got %q", sawAccountID)
			}
			if !tc.wantNext && sawAccountID != "" {
				t.Fatal("expected handler to be skipped")
			}
		})
	}
}

func TestOptionalSession(t *testing.T) {
	var sawAccountID string
	var sawRequest bool
	next := func(w http.ResponseWriter, r *http.Request) {
		sawRequest = true
		sawAccountID, _ = AccountIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}

	// Anonymous requests pass through without an account id.
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	OptionalSession(stubValidator{accountID: "acct-1"}, next)(rec, r)
	if !sawRequest || sawAccountID != "" {
		t.Fatalf("expected anonymous pass-through, saw=%v account=%q", sawRequest, sawAccountID)
	}

	// A valid token attaches the account id.
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer token-1")
	rec = httptest.NewRecorder()
	OptionalSession(stubValidator{accountID: "acct-1"}, next)(rec, r)
	if sawAccountID != "acct-1" {
		t.Fatalf("expected account id, got %q", sawAccountID)
	}

	// An invalid token degrades to anonymous rather than failing.
	sawAccountID = ""
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer token-1")
	rec = httptest.NewRecorder()
	OptionalSession(stubValidator{err: errors.New("expired")}, next)(rec, r)
	if rec.Code != http.StatusOK || sawAccountID != "" {
		t.Fatalf("expected anonymous fallback, status=%d account=%q", rec.Code, sawAccountID)
	}
}
