package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/connecthub/backend/internal/models"
)

func seedTwoProfiles() *memProfileStore {
	profiles := newMemProfileStore()
	profiles.add(
		models.Account{ID: "acct-alice", Username: "alice", Email: "alice@example.com"},
		models.Profile{ID: "prof-alice", AccountID: "acct-alice"},
	)
	profiles.add(
		models.Account{ID: "acct-bob", Username: "bob", Email: "bob@example.com"},
		models.Profile{ID: "prof-bob", AccountID: "acct-bob"},
	)
	return profiles
}

func TestCreatePostRequiresContent(t *testing.T) {
	profiles := seedTwoProfiles()
	posts := newMemPostStore(profiles)
	handler := FeedHandler{Posts: posts, Profiles: profiles}

	req := multipartRequest(t, "/", "acct-alice", map[string]string{"caption": ""}, nil)
	rec := httptest.NewRecorder()
	handler.CreatePost(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	payload := decodeBody(t, rec)
	if payload["error"] != "add caption or media" {
		t.Fatalf("unexpected error message: %v", payload["error"])
	}
	if len(posts.posts) != 0 {
		t.Fatal("expected no post to be created")
	}
}

func TestCreatePostWithMedia(t *testing.T) {
	profiles := seedTwoProfiles()
	posts := newMemPostStore(profiles)
	blobs := &fakeBlobStorage{}
	handler := FeedHandler{Posts: posts, Profiles: profiles, Media: blobs}

	req := multipartRequest(t, "/", "acct-alice",
		map[string]string{"caption": "weekend trip"},
		map[string][]string{"media": {"photo.jpg", "Clip.MP4"}},
	)
	rec := httptest.NewRecorder()
	handler.CreatePost(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	payload := decodeBody(t, rec)
	if payload["caption"] != "weekend trip" {
		t.Fatalf("unexpected caption: %v", payload["caption"])
	}
	if likes, _ := payload["likes"].(float64); likes != 0 {
		t.Fatalf("expected zero likes on creation, got %v", payload["likes"])
	}

	if len(posts.posts) != 1 {
		t.Fatalf("expected one post, got %d", len(posts.posts))
	}
	for _, post := range posts.posts {
		if len(post.Media) != 2 {
			t.Fatalf("expected two media items, got %d", len(post.Media))
		}
		videos := 0
		for _, m := range post.Media {
			if m.IsVideo {
				videos++
			}
		}
		if videos != 1 {
			t.Fatalf("expected one video item, got %d", videos)
		}
	}
	if len(blobs.saved) != 2 {
		t.Fatalf("expected two stored objects, got %v", blobs.saved)
	}
}

func TestCreatePostCaptionOnly(t *testing.T) {
	profiles := seedTwoProfiles()
	posts := newMemPostStore(profiles)
	handler := FeedHandler{Posts: posts, Profiles: profiles}

	req := multipartRequest(t, "/", "acct-alice", map[string]string{"caption": "just words"}, nil)
	rec := httptest.NewRecorder()
	handler.CreatePost(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(posts.posts) != 1 {
		t.Fatalf("expected one post, got %d", len(posts.posts))
	}
}

func TestToggleLike(t *testing.T) {
	profiles := seedTwoProfiles()
	posts := newMemPostStore(profiles)
	posts.posts["post-1"] = models.Post{ID: "post-1", ProfileID: "prof-alice"}

	handler := FeedHandler{Posts: posts, Profiles: profiles}

	like := func(accountID string) map[string]any {
		req := formRequest(http.MethodPost, "/post/post-1/like", accountID, nil)
		req.SetPathValue("id", "post-1")
		rec := httptest.NewRecorder()
		handler.ToggleLike(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		return decodeBody(t, rec)
	}

	payload := like("acct-bob")
	if payload["liked"] != true {
		t.Fatalf("expected liked=true, got %v", payload)
	}
	if likes, _ := payload["likes"].(float64); likes != 1 {
		t.Fatalf("expected 1 like, got %v", payload["likes"])
	}

	// A second toggle by the same profile removes the like.
	payload = like("acct-bob")
	if payload["liked"] != false {
		t.Fatalf("expected liked=false, got %v", payload)
	}
	if likes, _ := payload["likes"].(float64); likes != 0 {
		t.Fatalf("expected 0 likes, got %v", payload["likes"])
	}
}

func TestToggleLikeMissingPost(t *testing.T) {
	profiles := seedTwoProfiles()
	handler := FeedHandler{Posts: newMemPostStore(profiles), Profiles: profiles}

	req := formRequest(http.MethodPost, "/post/nope/like", "acct-bob", nil)
	req.SetPathValue("id", "nope")
	rec := httptest.NewRecorder()
	handler.ToggleLike(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDeletePostAuthorization(t *testing.T) {
	cases := []struct {
		name       string
		accountID  string
		wantStatus int
		wantKept   bool
	}{
		{"owner deletes", "acct-alice", http.StatusOK, false},
		{"non-owner is refused", "acct-bob", http.StatusForbidden, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			profiles := seedTwoProfiles()
			posts := newMemPostStore(profiles)
			posts.posts["post-1"] = models.Post{ID: "post-1", ProfileID: "prof-alice"}

			handler := FeedHandler{Posts: posts, Profiles: profiles}

			req := formRequest(http.MethodPost, "/delete_post/post-1", tc.accountID, nil)
			req.SetPathValue("id", "post-1")
			rec := httptest.NewRecorder()
			handler.DeletePost(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tc.wantStatus, rec.Code, rec.Body.String())
			}
			if _, kept := posts.posts["post-1"]; kept != tc.wantKept {
				t.Fatalf("expected kept=%v, got %v", tc.wantKept, kept)
			}
		})
	}
}

func TestDeletePostQuietForBrowsers(t *testing.T) {
	profiles := seedTwoProfiles()
	posts := newMemPostStore(profiles)
	posts.posts["post-1"] = models.Post{ID: "post-1", ProfileID: "prof-alice"}

	handler := FeedHandler{Posts: posts, Profiles: profiles}

	req := formRequest(http.MethodPost, "/delete_post/post-1", "acct-bob", nil)
	req.SetPathValue("id", "post-1")
	req.Header.Del("Accept")
	rec := httptest.NewRecorder()
	handler.DeletePost(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 for browser clients, got %d", rec.Code)
	}
	if _, kept := posts.posts["post-1"]; !kept {
		t.Fatal("expected post to survive a non-owner delete")
	}
}

func TestFeedOrdering(t *testing.T) {
	profiles := seedTwoProfiles()
	posts := newMemPostStore(profiles)
	stories := newMemStoryStore(profiles)

	base := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	posts.posts["post-old"] = models.Post{ID: "post-old", ProfileID: "prof-alice", Caption: "older", CreatedAt: base}
	posts.posts["post-new"] = models.Post{ID: "post-new", ProfileID: "prof-bob", Caption: "newer", CreatedAt: base.Add(time.Hour)}
	stories.stories["story-1"] = models.Story{ID: "story-1", ProfileID: "prof-alice", ImageURL: "img", IsActive: true, CreatedAt: base}
	stories.stories["story-2"] = models.Story{ID: "story-2", ProfileID: "prof-bob", ImageURL: "img", IsActive: false, CreatedAt: base}

	handler := FeedHandler{Posts: posts, Stories: stories, Profiles: profiles}

	rec := httptest.NewRecorder()
	handler.Show(rec, formRequest(http.MethodGet, "/", "acct-alice", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	payload := decodeBody(t, rec)
	feed, _ := payload["posts"].([]any)
	if len(feed) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(feed))
	}
	first, _ := feed[0].(map[string]any)
	if first["id"] != "post-new" {
		t.Fatalf("expected newest post first, got %v", first["id"])
	}

	feedStories, _ := payload["stories"].([]any)
	if len(feedStories) != 1 {
		t.Fatalf("expected only the active story, got %d", len(feedStories))
	}
}

func TestAddStory(t *testing.T) {
	profiles := seedTwoProfiles()
	stories := newMemStoryStore(profiles)
	blobs := &fakeBlobStorage{}
	handler := FeedHandler{Stories: stories, Profiles: profiles, Media: blobs}

	req := multipartRequest(t, "/story/add", "acct-alice", nil, map[string][]string{"image": {"sunset.png"}})
	rec := httptest.NewRecorder()
	handler.AddStory(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	payload := decodeBody(t, rec)
	if id, _ := payload["story_id"].(string); id == "" {
		t.Fatalf("expected story_id in payload: %v", payload)
	}
	if image, _ := payload["story_image"].(string); image == "" {
		t.Fatalf("expected story_image in payload: %v", payload)
	}
	if len(stories.stories) != 1 {
		t.Fatalf("expected one story, got %d", len(stories.stories))
	}
	for _, story := range stories.stories {
		if !story.IsActive {
			t.Fatal("expected new story to be active")
		}
	}
}

func TestAddStoryRequiresImage(t *testing.T) {
	profiles := seedTwoProfiles()
	stories := newMemStoryStore(profiles)
	handler := FeedHandler{Stories: stories, Profiles: profiles}

	req := multipartRequest(t, "/story/add", "acct-alice", map[string]string{"unused": "x"}, nil)
	rec := httptest.NewRecorder()
	handler.AddStory(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(stories.stories) != 0 {
		t.Fatal("expected no story to be created")
	}
}

func TestDeleteStoryAuthorization(t *testing.T) {
	profiles := seedTwoProfiles()
	stories := newMemStoryStore(profiles)
	stories.stories["story-1"] = models.Story{ID: "story-1", ProfileID: "prof-alice", IsActive: true}

	handler := FeedHandler{Stories: stories, Profiles: profiles}

	req := formRequest(http.MethodPost, "/delete_story/story-1", "acct-bob", nil)
	req.SetPathValue("id", "story-1")
	rec := httptest.NewRecorder()
	handler.DeleteStory(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if _, kept := stories.stories["story-1"]; !kept {
		t.Fatal("expected story to survive a non-owner delete")
	}
}

func TestFeedRequiresProfile(t *testing.T) {
	// An authenticated account with no profile row is a 404, not a panic.
	profiles := newMemProfileStore()
	handler := FeedHandler{Posts: newMemPostStore(profiles), Stories: newMemStoryStore(profiles), Profiles: profiles}

	rec := httptest.NewRecorder()
	handler.Show(rec, formRequest(http.MethodGet, "/", "acct-ghost", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
