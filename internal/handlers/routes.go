package handlers

import (
	"net/http"
	"time"

	"github.com/connecthub/backend/internal/middleware"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Profiles       ProfileStore
	Friends        FriendStore
	Posts          PostStore
	Stories        StoryStore
	Sessions       SessionManager
	Media          BlobStorage
	AuthLimiter    RateLimiter
	MaxUploadBytes int64
	NowFunc        func() time.Time
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	auth := AuthHandler{
		Profiles:       deps.Profiles,
		Sessions:       deps.Sessions,
		Media:          deps.Media,
		Limiter:        deps.AuthLimiter,
		MaxUploadBytes: deps.MaxUploadBytes,
		NowFunc:        deps.NowFunc,
	}
	feed := FeedHandler{
		Posts:          deps.Posts,
		Stories:        deps.Stories,
		Profiles:       deps.Profiles,
		Media:          deps.Media,
		MaxUploadBytes: deps.MaxUploadBytes,
		NowFunc:        deps.NowFunc,
	}
	friends := FriendHandler{Friends: deps.Friends, Profiles: deps.Profiles, NowFunc: deps.NowFunc}
	profiles := ProfileHandler{
		Profiles:       deps.Profiles,
		Posts:          deps.Posts,
		Media:          deps.Media,
		MaxUploadBytes: deps.MaxUploadBytes,
	}

	protect := func(next http.HandlerFunc) http.HandlerFunc {
		return middleware.RequireSession(deps.Sessions, next)
	}

	mux.HandleFunc("GET /healthz", health.Handle)

	mux.HandleFunc("GET /register", auth.RegisterForm)
	mux.HandleFunc("POST /register", auth.Register)
	mux.HandleFunc("GET /login", auth.LoginForm)
	mux.HandleFunc("POST /login", auth.Login)
	mux.HandleFunc("POST /logout", protect(auth.Logout))

	mux.HandleFunc("GET /{$}", protect(feed.Show))
	mux.HandleFunc("POST /{$}", protect(feed.CreatePost))
	mux.HandleFunc("POST /post/{id}/like", protect(feed.ToggleLike))
	mux.HandleFunc("POST /delete_post/{id}", protect(feed.DeletePost))
	mux.HandleFunc("POST /story/add", protect(feed.AddStory))
	mux.HandleFunc("POST /delete_story/{id}", protect(feed.DeleteStory))

	mux.HandleFunc("GET /friends", protect(friends.List))
	mux.HandleFunc("POST /friend-request/send/{profile_id}", protect(friends.Send))
	mux.HandleFunc("POST /friend-request/accept/{id}", protect(friends.Accept))
	mux.HandleFunc("POST /friend-request/decline/{id}", protect(friends.Decline))
	mux.HandleFunc("POST /unfriend/{profile_id}", protect(friends.Unfriend))
	mux.HandleFunc("GET /notifications", middleware.OptionalSession(deps.Sessions, friends.Notifications))

	mux.HandleFunc("GET /profile/edit", protect(profiles.EditForm))
	mux.HandleFunc("POST /profile/edit", protect(profiles.Edit))
	mux.HandleFunc("GET /profile/{user_id}", protect(profiles.View))
	mux.HandleFunc("GET /search", protect(profiles.Search))
}
