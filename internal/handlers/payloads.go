package handlers

import (
	"time"

	"github.com/connecthub/backend/internal/models"
)

type profilePayload struct {
	ID         string `json:"id"`
	AccountID  string `json:"accountId"`
	Username   string `json:"username"`
	Bio        string `json:"bio"`
	Gender     string `json:"gender,omitempty"`
	Age        *int   `json:"age,omitempty"`
	PictureURL string `json:"pictureUrl,omitempty"`
}

func toProfilePayload(p models.Profile) profilePayload {
	return profilePayload{
		ID:         p.ID,
		AccountID:  p.AccountID,
		Username:   p.Username,
		Bio:        p.Bio,
		Gender:     p.Gender,
		Age:        p.Age,
		PictureURL: p.PictureURL,
	}
}

func toProfilePayloads(profiles []models.Profile) []profilePayload {
	out := make([]profilePayload, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, toProfilePayload(p))
	}
	return out
}

type mediaPayload struct {
	ID      string `json:"id"`
	FileURL string `json:"fileUrl"`
	IsVideo bool   `json:"isVideo"`
}

type postPayload struct {
	ID            string         `json:"id"`
	ProfileID     string         `json:"profileId"`
	Author        string         `json:"author"`
	Caption       string         `json:"caption"`
	CreatedAt     time.Time      `json:"createdAt"`
	Media         []mediaPayload `json:"media"`
	Likes         int            `json:"likes"`
	LikedByViewer bool           `json:"likedByViewer"`
}

func toPostPayload(p models.Post) postPayload {
	media := make([]mediaPayload, 0, len(p.Media))
	for _, m := range p.Media {
		media = append(media, mediaPayload{ID: m.ID, FileURL: m.FileURL, IsVideo: m.IsVideo})
	}
	return postPayload{
		ID:            p.ID,
		ProfileID:     p.ProfileID,
		Author:        p.AuthorUsername,
		Caption:       p.Caption,
		CreatedAt:     p.CreatedAt,
		Media:         media,
		Likes:         p.LikeCount,
		LikedByViewer: p.LikedByViewer,
	}
}

func toPostPayloads(posts []models.Post) []postPayload {
	out := make([]postPayload, 0, len(posts))
	for _, p := range posts {
		out = append(out, toPostPayload(p))
	}
	return out
}

type storyPayload struct {
	ID        string    `json:"id"`
	ProfileID string    `json:"profileId"`
	Author    string    `json:"author"`
	ImageURL  string    `json:"imageUrl"`
	CreatedAt time.Time `json:"createdAt"`
}

func toStoryPayloads(stories []models.Story) []storyPayload {
	out := make([]storyPayload, 0, len(stories))
	for _, s := range stories {
		out = append(out, storyPayload{
			ID:        s.ID,
			ProfileID: s.ProfileID,
			Author:    s.AuthorUsername,
			ImageURL:  s.ImageURL,
			CreatedAt: s.CreatedAt,
		})
	}
	return out
}

type requestPayload struct {
	ID        string    `json:"id"`
	SenderID  string    `json:"senderId"`
	Sender    string    `json:"sender"`
	CreatedAt time.Time `json:"createdAt"`
}

func toRequestPayloads(requests []models.FriendRequest) []requestPayload {
	out := make([]requestPayload, 0, len(requests))
	for _, req := range requests {
		out = append(out, requestPayload{
			ID:        req.ID,
			SenderID:  req.SenderID,
			Sender:    req.SenderUsername,
			CreatedAt: req.CreatedAt,
		})
	}
	return out
}
