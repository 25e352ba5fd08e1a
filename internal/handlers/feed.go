package handlers

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/connecthub/backend/internal/logging"
	"github.com/connecthub/backend/internal/media"
	"github.com/connecthub/backend/internal/models"
	"github.com/connecthub/backend/internal/repositories"
)

// FeedHandler serves the global feed and the post, like, and story endpoints.
type FeedHandler struct {
	Posts          PostStore
	Stories        StoryStore
	Profiles       ProfileStore
	Media          BlobStorage
	MaxUploadBytes int64
	NowFunc        func() time.Time
}

// Show handles GET /: the global reverse-chronological feed of posts and
// active stories, not filtered by friendship.
func (h FeedHandler) Show(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	viewer, ok := actingProfile(w, r, h.Profiles)
	if !ok {
		return
	}

	posts, err := h.Posts.ListFeed(ctx, viewer.ID)
	if err != nil {
		logger.Error("feed post listing failed", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, errorPayload("failed to load feed"))
		return
	}

	stories, err := h.Stories.ListActive(ctx)
	if err != nil {
		logger.Error("feed story listing failed", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, errorPayload("failed to load stories"))
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{
		"posts":   toPostPayloads(posts),
		"stories": toStoryPayloads(stories),
	})
}

// CreatePost handles POST /: a caption plus zero or more media files. A post
// with neither caption nor media is rejected.
func (h FeedHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	owner, ok := actingProfile(w, r, h.Profiles)
	if !ok {
		return
	}

	if err := parseForm(r, h.maxUpload()); err != nil {
		logger.Warn("invalid post form", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, errorPayload("invalid form data"))
		return
	}

	caption := r.FormValue("caption")

	var files []*multipart.FileHeader
	if r.MultipartForm != nil {
		files = r.MultipartForm.File["media"]
	}

	if caption == "" && len(files) == 0 {
		respondMutation(ctx, w, r, http.StatusBadRequest, errorPayload("add caption or media"), "/")
		return
	}

	post := models.Post{
		ID:             uuid.NewString(),
		ProfileID:      owner.ID,
		AuthorUsername: owner.Username,
		Caption:        caption,
		CreatedAt:      h.now(),
	}

	for _, header := range files {
		url, err := h.saveUpload(r, header)
		if err != nil {
			logger.Error("post media upload failed", "error", err, "file", header.Filename)
			respondJSON(ctx, w, http.StatusInternalServerError, errorPayload("failed to store media"))
			return
		}
		post.Media = append(post.Media, models.PostMedia{
			ID:      uuid.NewString(),
			PostID:  post.ID,
			FileURL: url,
			IsVideo: media.IsVideo(header.Filename),
		})
	}

	if err := h.Posts.Create(ctx, post); err != nil {
		logger.Error("post creation failed", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, errorPayload("failed to create post"))
		return
	}

	respondMutation(ctx, w, r, http.StatusCreated, map[string]any{
		"status":  "success",
		"post_id": post.ID,
		"caption": post.Caption,
		"likes":   0,
	}, "/")
}

// ToggleLike handles POST /post/{id}/like.
func (h FeedHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	viewer, ok := actingProfile(w, r, h.Profiles)
	if !ok {
		return
	}

	result, err := h.Posts.ToggleLike(ctx, r.PathValue("id"), viewer.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, errorPayload("post not found"))
			return
		}
		logging.FromContext(ctx).Error("like toggle failed", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, errorPayload("failed to toggle like"))
		return
	}

	respondMutation(ctx, w, r, http.StatusOK, map[string]any{
		"liked": result.Liked,
		"likes": result.TotalLikes,
	}, "/")
}

// DeletePost handles POST /delete_post/{id}. Only the owner may delete; for
// anyone else the post is left untouched.
func (h FeedHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	h.deleteOwned(w, r, "post", h.Posts.Delete)
}

// AddStory handles POST /story/add. The image is required.
func (h FeedHandler) AddStory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	owner, ok := actingProfile(w, r, h.Profiles)
	if !ok {
		return
	}

	if err := parseForm(r, h.maxUpload()); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, errorPayload("invalid form data"))
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		respondMutation(ctx, w, r, http.StatusBadRequest, errorPayload("story image is required"), "/")
		return
	}
	defer file.Close()

	if h.Media == nil {
		logger.Error("blob storage unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, errorPayload("media storage unavailable"))
		return
	}

	imageURL, err := h.Media.Save(ctx, media.ObjectKey("stories", header.Filename), file)
	if err != nil {
		logger.Error("story image upload failed", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, errorPayload("failed to store image"))
		return
	}

	story := models.Story{
		ID:             uuid.NewString(),
		ProfileID:      owner.ID,
		AuthorUsername: owner.Username,
		ImageURL:       imageURL,
		IsActive:       true,
		CreatedAt:      h.now(),
	}

	if err := h.Stories.Create(ctx, story); err != nil {
		logger.Error("story creation failed", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, errorPayload("failed to create story"))
		return
	}

	respondMutation(ctx, w, r, http.StatusCreated, map[string]any{
		"status":      "success",
		"story_id":    story.ID,
		"story_image": story.ImageURL,
	}, "/")
}

// DeleteStory handles POST /delete_story/{id}.
func (h FeedHandler) DeleteStory(w http.ResponseWriter, r *http.Request) {
	h.deleteOwned(w, r, "story", h.Stories.Delete)
}

func (h FeedHandler) deleteOwned(w http.ResponseWriter, r *http.Request, kind string, del func(ctx context.Context, id, actingAccountID string) error) {
	ctx := r.Context()

	actor, ok := actingProfile(w, r, h.Profiles)
	if !ok {
		return
	}

	err := del(ctx, r.PathValue("id"), actor.AccountID)
	switch {
	case err == nil:
		respondMutation(ctx, w, r, http.StatusOK, map[string]string{"status": "success"}, "/")
	case errors.Is(err, repositories.ErrNotFound):
		respondJSON(ctx, w, http.StatusNotFound, errorPayload(kind+" not found"))
	case errors.Is(err, repositories.ErrForbidden):
		// Ownership failures stay quiet for browsers, matching the rest of
		// the authorization handling.
		respondMutation(ctx, w, r, http.StatusForbidden, errorPayload("not the "+kind+" owner"), "/")
	default:
		logging.FromContext(ctx).Error(kind+" deletion failed", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, errorPayload("failed to delete "+kind))
	}
}

func (h FeedHandler) saveUpload(r *http.Request, header *multipart.FileHeader) (string, error) {
	if h.Media == nil {
		return "", errors.New("blob storage unavailable")
	}

	file, err := header.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	return h.Media.Save(r.Context(), media.ObjectKey("posts", header.Filename), file)
}

func (h FeedHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

func (h FeedHandler) maxUpload() int64 {
	if h.MaxUploadBytes > 0 {
		return h.MaxUploadBytes
	}
	return 32 << 20
}
