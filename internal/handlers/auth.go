package handlers

import (
	"errors"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/connecthub/backend/internal/auth"
	"github.com/connecthub/backend/internal/logging"
	"github.com/connecthub/backend/internal/media"
	"github.com/connecthub/backend/internal/middleware"
	"github.com/connecthub/backend/internal/models"
	"github.com/connecthub/backend/internal/repositories"
)

// AuthHandler implements registration, login, and logout.
type AuthHandler struct {
	Profiles       ProfileStore
	Sessions       SessionManager
	Media          BlobStorage
	Limiter        RateLimiter
	MaxUploadBytes int64
	NowFunc        func() time.Time
}

var genderChoices = map[string]struct{}{"": {}, "Male": {}, "Female": {}, "Other": {}}

// RegisterForm handles GET /register. With no template layer, it describes
// the fields the POST accepts.
func (h AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	respondJSON(r.Context(), w, http.StatusOK, map[string]any{
		"fields": []string{"username", "email", "password", "password2", "bio", "gender", "age", "profile_pic"},
	})
}

// Register handles POST /register: validates the form, creates the account
// and profile atomically, and starts a session.
func (h AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Profiles == nil || h.Sessions == nil {
		logger.Error("registration dependencies unavailable", "hasProfiles", h.Profiles != nil, "hasSessions", h.Sessions != nil)
		respondJSON(ctx, w, http.StatusInternalServerError, errorPayload("registration services unavailable"))
		return
	}

	if !allowRequest(h.Limiter, r, "register") {
		respondJSON(ctx, w, http.StatusTooManyRequests, errorPayload("too many registration attempts"))
		return
	}

	if err := parseForm(r, h.maxUpload()); err != nil {
		logger.Warn("invalid registration form", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, errorPayload("invalid form data"))
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	email := strings.TrimSpace(strings.ToLower(r.FormValue("email")))
	password := r.FormValue("password")
	password2 := r.FormValue("password2")

	switch {
	case username == "" || email == "" || password == "":
		respondJSON(ctx, w, http.StatusBadRequest, errorPayload("username, email, and password are required"))
		return
	case password != password2:
		respondJSON(ctx, w, http.StatusBadRequest, errorPayload("passwords do not match"))
		return
	case len(password) < 8:
		respondJSON(ctx, w, http.StatusBadRequest, errorPayload("password must be at least 8 characters"))
		return
	}

	if _, err := mail.ParseAddress(email); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, errorPayload("invalid email address"))
		return
	}

	if _, ok := genderChoices[r.FormValue("gender")]; !ok {
		respondJSON(ctx, w, http.StatusBadRequest, errorPayload("invalid gender choice"))
		return
	}

	age, err := parseAge(r.FormValue("age"))
	if err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, errorPayload("invalid age"))
		return
	}

	// Duplicates surface here for a friendly message; the unique constraint
	// still backstops concurrent registrations.
	if _, err := h.Profiles.FindAccountByEmail(ctx, email); err == nil {
		logger.Warn("registration with existing email", "email", email)
		respondJSON(ctx, w, http.StatusConflict, errorPayload("email already registered"))
		return
	} else if !errors.Is(err, repositories.ErrNotFound) {
		logger.Error("registration email lookup failed", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, errorPayload("unable to verify existing accounts"))
		return
	}

	pictureURL, err := h.savePicture(r, "profile_pic")
	if err != nil {
		logger.Error("registration picture upload failed", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, errorPayload("failed to store profile picture"))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("registration failed to hash password", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, errorPayload("failed to secure password"))
		return
	}

	now := h.now()
	account := models.Account{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hashed),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	profile := models.Profile{
		ID:         uuid.NewString(),
		AccountID:  account.ID,
		Bio:        r.FormValue("bio"),
		Gender:     r.FormValue("gender"),
		Age:        age,
		PictureURL: pictureURL,
		CreatedAt:  now,
	}

	if err := h.Profiles.Register(ctx, account, profile); err != nil {
		switch {
		case errors.Is(err, repositories.ErrEmailTaken):
			respondJSON(ctx, w, http.StatusConflict, errorPayload("email already registered"))
		case errors.Is(err, repositories.ErrUsernameTaken), errors.Is(err, repositories.ErrConflict):
			respondJSON(ctx, w, http.StatusConflict, errorPayload("username already registered"))
		default:
			logger.Error("registration failed to create account", "error", err)
			respondJSON(ctx, w, http.StatusInternalServerError, errorPayload("failed to create account"))
		}
		return
	}

	session, err := h.Sessions.Issue(ctx, account.ID)
	if err != nil {
		logger.Error("registration failed to issue session", "error", err, "accountId", account.ID)
		respondJSON(ctx, w, http.StatusInternalServerError, errorPayload("failed to create session"))
		return
	}

	setSessionCookie(w, session)
	respondMutation(ctx, w, r, http.StatusCreated, map[string]any{
		"status":    "success",
		"accountId": account.ID,
		"token":     session.Token,
	}, "/")
}

// LoginForm handles GET /login.
func (h AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	respondJSON(r.Context(), w, http.StatusOK, map[string]any{
		"fields": []string{"username", "password"},
	})
}

// Login handles POST /login.
func (h AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Profiles == nil || h.Sessions == nil {
		logger.Error("authentication dependencies unavailable", "hasProfiles", h.Profiles != nil, "hasSessions", h.Sessions != nil)
		respondJSON(ctx, w, http.StatusInternalServerError, errorPayload("authentication services unavailable"))
		return
	}

	if !allowRequest(h.Limiter, r, "login") {
		respondJSON(ctx, w, http.StatusTooManyRequests, errorPayload("too many login attempts"))
		return
	}

	if err := parseForm(r, h.maxUpload()); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, errorPayload("invalid form data"))
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	if username == "" || password == "" {
		respondJSON(ctx, w, http.StatusBadRequest, errorPayload("username and password are required"))
		return
	}

	account, err := h.Profiles.FindAccountByUsername(ctx, username)
	if err != nil {
		logger.Warn("login account lookup failed", "username", username, "error", err)
		respondJSON(ctx, w, http.StatusUnauthorized, errorPayload("invalid credentials"))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		logger.Warn("login password mismatch", "accountId", account.ID)
		respondJSON(ctx, w, http.StatusUnauthorized, errorPayload("invalid credentials"))
		return
	}

	session, err := h.Sessions.Issue(ctx, account.ID)
	if err != nil {
		logger.Error("failed to issue session", "error", err, "accountId", account.ID)
		respondJSON(ctx, w, http.StatusInternalServerError, errorPayload("failed to create session"))
		return
	}

	setSessionCookie(w, session)
	respondMutation(ctx, w, r, http.StatusOK, map[string]any{
		"status":    "success",
		"accountId": account.ID,
		"token":     session.Token,
	}, "/")
}

// Logout handles POST /logout.
func (h AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Sessions != nil {
		if token := middleware.SessionToken(r); token != "" {
			h.Sessions.Revoke(ctx, token)
		}
	}

	clearSessionCookie(w)
	respondMutation(ctx, w, r, http.StatusOK, map[string]string{"status": "success"}, "/login")
}

// savePicture uploads the named optional file field and returns its location,
// or "" when the field is absent.
func (h AuthHandler) savePicture(r *http.Request, field string) (string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", nil
		}
		return "", err
	}
	defer file.Close()

	if h.Media == nil {
		return "", errors.New("blob storage unavailable")
	}

	return h.Media.Save(r.Context(), media.ObjectKey("profiles", header.Filename), file)
}

func (h AuthHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

func (h AuthHandler) maxUpload() int64 {
	if h.MaxUploadBytes > 0 {
		return h.MaxUploadBytes
	}
	return 32 << 20
}

func parseForm(r *http.Request, maxUpload int64) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		return r.ParseMultipartForm(maxUpload)
	}
	return r.ParseForm()
}

// parseAge maps an empty form value to nil so the stored age clears rather
// than coercing to zero.
func parseAge(value string) (*int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	age, err := strconv.Atoi(value)
	if err != nil || age < 0 {
		return nil, errors.New("age must be a non-negative integer")
	}
	return &age, nil
}

func setSessionCookie(w http.ResponseWriter, session auth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
