package models

import "time"

// Account holds the login credentials for a ConnectHub member.
type Account struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile carries the social data attached to exactly one account. Age is a
// pointer because an unset age is stored as NULL, never as zero.
type Profile struct {
	ID         string
	AccountID  string
	Username   string
	Bio        string
	Gender     string
	Age        *int
	PictureURL string
	CreatedAt  time.Time
}

// ProfileUpdate describes a profile edit. A nil Age clears the stored age,
// a nil PictureURL keeps the current picture.
type ProfileUpdate struct {
	ProfileID  string
	Bio        string
	Gender     string
	Age        *int
	PictureURL *string
}

// FriendRequest is a directed pending edge between two profiles. It is
// deleted on accept or decline; an accepted request becomes a friendship.
type FriendRequest struct {
	ID             string
	SenderID       string
	ReceiverID     string
	SenderUsername string
	CreatedAt      time.Time
}

// Post is a feed entry with zero or more attached media items.
type Post struct {
	ID             string
	ProfileID      string
	AuthorUsername string
	Caption        string
	CreatedAt      time.Time
	Media          []PostMedia
	LikeCount      int
	LikedByViewer  bool
}

// PostMedia references one uploaded file belonging to a post.
type PostMedia struct {
	ID      string
	PostID  string
	FileURL string
	IsVideo bool
}

// LikeResult reports the outcome of a like toggle.
type LikeResult struct {
	Liked      bool
	TotalLikes int
}

// Story is a single-image post. IsActive defaults to true; nothing in the
// system flips it automatically, expiry is an explicit non-feature.
type Story struct {
	ID             string
	ProfileID      string
	AuthorUsername string
	ImageURL       string
	IsActive       bool
	CreatedAt      time.Time
}
