package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/connecthub/backend/internal/auth"
	"github.com/connecthub/backend/internal/middleware"
	"github.com/connecthub/backend/internal/models"
	"github.com/connecthub/backend/internal/repositories"
)

// In-memory fakes shared by the handler tests. They mirror the persistence
// invariants the Postgres repositories enforce so handlers can be exercised
// end to end without a database.

type memProfileStore struct {
	accounts map[string]models.Account
	profiles map[string]models.Profile
}

func newMemProfileStore() *memProfileStore {
	return &memProfileStore{
		accounts: make(map[string]models.Account),
		profiles: make(map[string]models.Profile),
	}
}

func (s *memProfileStore) add(account models.Account, profile models.Profile) {
	s.accounts[account.ID] = account
	profile.Username = account.Username
	s.profiles[profile.ID] = profile
}

func (s *memProfileStore) Register(_ context.Context, account models.Account, profile models.Profile) error {
	for _, existing := range s.accounts {
		if existing.Email == account.Email {
			return repositories.ErrEmailTaken
		}
		if existing.Username == account.Username {
			return repositories.ErrUsernameTaken
		}
	}
	s.add(account, profile)
	return nil
}

func (s *memProfileStore) FindAccountByUsername(_ context.Context, username string) (models.Account, error) {
	for _, account := range s.accounts {
		if account.Username == username {
			return account, nil
		}
	}
	return models.Account{}, repositories.ErrNotFound
}

func (s *memProfileStore) FindAccountByEmail(_ context.Context, email string) (models.Account, error) {
	for _, account := range s.accounts {
		if account.Email == email {
			return account, nil
		}
	}
	return models.Account{}, repositories.ErrNotFound
}

func (s *memProfileStore) FindProfileByAccountID(_ context.Context, accountID string) (models.Profile, error) {
	for _, profile := range s.profiles {
		if profile.AccountID == accountID {
			return profile, nil
		}
	}
	return models.Profile{}, repositories.ErrNotFound
}

func (s *memProfileStore) FindProfileByID(_ context.Context, profileID string) (models.Profile, error) {
	profile, ok := s.profiles[profileID]
	if !ok {
		return models.Profile{}, repositories.ErrNotFound
	}
	return profile, nil
}

func (s *memProfileStore) UpdateProfile(_ context.Context, update models.ProfileUpdate) (models.Profile, error) {
	profile, ok := s.profiles[update.ProfileID]
	if !ok {
		return models.Profile{}, repositories.ErrNotFound
	}
	profile.Bio = update.Bio
	profile.Gender = update.Gender
	profile.Age = update.Age
	if update.PictureURL != nil {
		profile.PictureURL = *update.PictureURL
	}
	s.profiles[update.ProfileID] = profile
	return profile, nil
}

func (s *memProfileStore) Search(_ context.Context, query, excludeProfileID string) ([]models.Profile, error) {
	needle := strings.ToLower(query)
	var out []models.Profile
	for _, profile := range s.profiles {
		if profile.ID == excludeProfileID {
			continue
		}
		if strings.Contains(strings.ToLower(profile.Username), needle) ||
			strings.Contains(strings.ToLower(profile.Bio), needle) {
			out = append(out, profile)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memFriendStore struct {
	profiles    *memProfileStore
	requests    map[string]models.FriendRequest
	friendships map[string]struct{}
}

func newMemFriendStore(profiles *memProfileStore) *memFriendStore {
	return &memFriendStore{
		profiles:    profiles,
		requests:    make(map[string]models.FriendRequest),
		friendships: make(map[string]struct{}),
	}
}

func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

func (s *memFriendStore) CreateRequest(_ context.Context, request models.FriendRequest) error {
	for _, existing := range s.requests {
		if existing.SenderID == request.SenderID && existing.ReceiverID == request.ReceiverID {
			return nil
		}
	}
	s.requests[request.ID] = request
	return nil
}

func (s *memFriendStore) AcceptRequest(_ context.Context, requestID, actingProfileID string) (bool, error) {
	request, ok := s.requests[requestID]
	if !ok || request.ReceiverID != actingProfileID {
		return false, nil
	}
	delete(s.requests, requestID)
	s.friendships[pairKey(request.SenderID, request.ReceiverID)] = struct{}{}
	return true, nil
}

func (s *memFriendStore) DeclineRequest(_ context.Context, requestID, actingProfileID string) (bool, error) {
	request, ok := s.requests[requestID]
	if !ok || request.ReceiverID != actingProfileID {
		return false, nil
	}
	delete(s.requests, requestID)
	return true, nil
}

func (s *memFriendStore) Unfriend(_ context.Context, profileID, otherProfileID string) error {
	delete(s.friendships, pairKey(profileID, otherProfileID))
	return nil
}

func (s *memFriendStore) ListFriends(_ context.Context, profileID string) ([]models.Profile, error) {
	var out []models.Profile
	for key := range s.friendships {
		a, b, _ := strings.Cut(key, "|")
		other := ""
		switch profileID {
		case a:
			other = b
		case b:
			other = a
		default:
			continue
		}
		if profile, ok := s.profiles.profiles[other]; ok {
			out = append(out, profile)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memFriendStore) ListIncomingRequests(_ context.Context, profileID string) ([]models.FriendRequest, error) {
	var out []models.FriendRequest
	for _, request := range s.requests {
		if request.ReceiverID != profileID {
			continue
		}
		if sender, ok := s.profiles.profiles[request.SenderID]; ok {
			request.SenderUsername = sender.Username
		}
		out = append(out, request)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type memPostStore struct {
	profiles *memProfileStore
	posts    map[string]models.Post
	likes    map[string]map[string]struct{}
}

func newMemPostStore(profiles *memProfileStore) *memPostStore {
	return &memPostStore{
		profiles: profiles,
		posts:    make(map[string]models.Post),
		likes:    make(map[string]map[string]struct{}),
	}
}

func (s *memPostStore) Create(_ context.Context, post models.Post) error {
	s.posts[post.ID] = post
	return nil
}

func (s *memPostStore) ToggleLike(_ context.Context, postID, profileID string) (models.LikeResult, error) {
	if _, ok := s.posts[postID]; !ok {
		return models.LikeResult{}, repositories.ErrNotFound
	}
	likers := s.likes[postID]
	if likers == nil {
		likers = make(map[string]struct{})
		s.likes[postID] = likers
	}
	result := models.LikeResult{}
	if _, liked := likers[profileID]; liked {
		delete(likers, profileID)
	} else {
		likers[profileID] = struct{}{}
		result.Liked = true
	}
	result.TotalLikes = len(likers)
	return result, nil
}

func (s *memPostStore) Delete(_ context.Context, postID, actingAccountID string) error {
	post, ok := s.posts[postID]
	if !ok {
		return repositories.ErrNotFound
	}
	owner, ok := s.profiles.profiles[post.ProfileID]
	if !ok || owner.AccountID != actingAccountID {
		return repositories.ErrForbidden
	}
	delete(s.posts, postID)
	delete(s.likes, postID)
	return nil
}

func (s *memPostStore) ListFeed(_ context.Context, viewerProfileID string) ([]models.Post, error) {
	return s.list(func(models.Post) bool { return true }, viewerProfileID), nil
}

func (s *memPostStore) ListByProfile(_ context.Context, profileID, viewerProfileID string) ([]models.Post, error) {
	return s.list(func(p models.Post) bool { return p.ProfileID == profileID }, viewerProfileID), nil
}

func (s *memPostStore) list(keep func(models.Post) bool, viewerProfileID string) []models.Post {
	var out []models.Post
	for _, post := range s.posts {
		if !keep(post) {
			continue
		}
		post.LikeCount = len(s.likes[post.ID])
		_, post.LikedByViewer = s.likes[post.ID][viewerProfileID]
		out = append(out, post)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

type memStoryStore struct {
	profiles *memProfileStore
	stories  map[string]models.Story
}

func newMemStoryStore(profiles *memProfileStore) *memStoryStore {
	return &memStoryStore{profiles: profiles, stories: make(map[string]models.Story)}
}

func (s *memStoryStore) Create(_ context.Context, story models.Story) error {
	s.stories[story.ID] = story
	return nil
}

func (s *memStoryStore) Delete(_ context.Context, storyID, actingAccountID string) error {
	story, ok := s.stories[storyID]
	if !ok {
		return repositories.ErrNotFound
	}
	owner, ok := s.profiles.profiles[story.ProfileID]
	if !ok || owner.AccountID != actingAccountID {
		return repositories.ErrForbidden
	}
	delete(s.stories, storyID)
	return nil
}

func (s *memStoryStore) ListActive(_ context.Context) ([]models.Story, error) {
	var out []models.Story
	for _, story := range s.stories {
		if story.IsActive {
			out = append(out, story)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type fakeSessionManager struct {
	sessions map[string]string
	issued   int
	revoked  []string
	issueErr error
}

func newFakeSessionManager() *fakeSessionManager {
	return &fakeSessionManager{sessions: make(map[string]string)}
}

func (m *fakeSessionManager) Issue(_ context.Context, accountID string) (auth.Session, error) {
	if m.issueErr != nil {
		return auth.Session{}, m.issueErr
	}
	m.issued++
	token := fmt.Sprintf("token-%d", m.issued)
	m.sessions[token] = accountID
	return auth.Session{Token: token, AccountID: accountID}, nil
}

func (m *fakeSessionManager) Validate(_ context.Context, token string) (string, error) {
	accountID, ok := m.sessions[token]
	if !ok {
		return "", auth.ErrSessionNotFound
	}
	return accountID, nil
}

func (m *fakeSessionManager) Revoke(_ context.Context, token string) {
	delete(m.sessions, token)
	m.revoked = append(m.revoked, token)
}

type fakeBlobStorage struct {
	saved   []string
	saveErr error
}

func (s *fakeBlobStorage) Save(_ context.Context, name string, r io.Reader) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	s.saved = append(s.saved, name)
	return "https://cdn.test/" + name, nil
}

// formRequest builds an authenticated urlencoded POST that asks for a JSON
// response.
func formRequest(method, target, accountID string, form url.Values) *http.Request {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	r := httptest.NewRequest(method, target, body)
	if form != nil {
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	r.Header.Set("Accept", "application/json")
	if accountID != "" {
		r = r.WithContext(middleware.WithAccountID(r.Context(), accountID))
	}
	return r
}

// multipartRequest builds an authenticated multipart POST with the provided
// form fields and file uploads (field name to filename).
func multipartRequest(t *testing.T, target, accountID string, fields map[string]string, files map[string][]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("write field %s: %v", key, err)
		}
	}
	for field, names := range files {
		for _, name := range names {
			part, err := writer.CreateFormFile(field, name)
			if err != nil {
				t.Fatalf("create file part %s: %v", name, err)
			}
			if _, err := part.Write([]byte("file-bytes")); err != nil {
				t.Fatalf("write file part %s: %v", name, err)
			}
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	r := httptest.NewRequest(http.MethodPost, target, &buf)
	r.Header.Set("Content-Type", writer.FormDataContentType())
	r.Header.Set("Accept", "application/json")
	if accountID != "" {
		r = r.WithContext(middleware.WithAccountID(r.Context(), accountID))
	}
	return r
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	return payload
}

var (
	_ ProfileStore   = (*memProfileStore)(nil)
	_ FriendStore    = (*memFriendStore)(nil)
	_ PostStore      = (*memPostStore)(nil)
	_ StoryStore     = (*memStoryStore)(nil)
	_ SessionManager = (*fakeSessionManager)(nil)
	_ BlobStorage    = (*fakeBlobStorage)(nil)
)
