package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/inkwell/internal/auth"
	"github.com/sakif/inkwell/internal/model"
	"github.com/sakif/inkwell/internal/service"
)

// UserHandler serves public profiles and the follow graph.
type UserHandler struct {
	users   *service.UserService
	posts   *service.PostService
	follows *service.FollowService
	logger  *slog.Logger
}

func NewUserHandler(users *service.UserService, posts *service.PostService, follows *service.FollowService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, posts: posts, follows: follows, logger: logger}
}

// publicUser is what other people see of an account: no email.
type publicUser struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	ProfilePicture string    `json:"profilePicture,omitempty"`
	Bio            string    `json:"bio,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

func toPublic(u *model.User) publicUser {
	return publicUser{
		ID:             u.ID,
		Username:       u.Username,
		ProfilePicture: u.ProfilePicture,
		Bio:            u.Bio,
		CreatedAt:      u.CreatedAt,
	}
}

func toPublicList(users []model.User) []publicUser {
	out := make([]publicUser, len(users))
	for i := range users {
		out[i] = toPublic(&users[i])
	}
	return out
}

type profileResponse struct {
	publicUser
	Followers   int   `json:"followers"`
	Following   int   `json:"following"`
	IsFollowing *bool `json:"isFollowing,omitempty"`
}

// HandleProfile returns a public profile with follower counts. Signed-in
// callers also learn whether they follow the user.
//
// HTTP: GET /api/users/{username}
func (h *UserHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := r.PathValue("username")

	user, err := h.users.GetByUsername(ctx, username)
	if err != nil {
		writeError(w, err)
		return
	}
	followers, err := h.follows.Followers(ctx, username)
	if err != nil {
		writeError(w, err)
		return
	}
	following, err := h.follows.Following(ctx, username)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := profileResponse{
		publicUser: toPublic(user),
		Followers:  len(followers),
		Following:  len(following),
	}
	if id, ok := auth.IdentityFromContext(ctx); ok && id.UserID != user.ID {
		isFollowing, err := h.follows.IsFollowing(ctx, id.UserID, username)
		if err != nil {
			writeError(w, err)
			return
		}
		resp.IsFollowing = &isFollowing
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandlePosts returns a user's posts, newest first.
//
// HTTP: GET /api/users/{username}/posts
func (h *UserHandler) HandlePosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.ListPostsByUser(r.Context(), r.PathValue("username"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// HandleFollowers: GET /api/users/{username}/followers
func (h *UserHandler) HandleFollowers(w http.ResponseWriter, r *http.Request) {
	users, err := h.follows.Followers(r.Context(), r.PathValue("username"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPublicList(users))
}

// HandleFollowing: GET /api/users/{username}/following
func (h *UserHandler) HandleFollowing(w http.ResponseWriter, r *http.Request) {
	users, err := h.follows.Following(r.Context(), r.PathValue("username"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPublicList(users))
}

// HandleFollow makes the caller follow {username}. Repeats succeed.
//
// HTTP: POST /api/users/{username}/follow
func (h *UserHandler) HandleFollow(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	if err := h.follows.Follow(r.Context(), userID, r.PathValue("username")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleUnfollow removes the caller's edge to {username}, if any.
//
// HTTP: DELETE /api/users/{username}/follow
func (h *UserHandler) HandleUnfollow(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	if err := h.follows.Unfollow(r.Context(), userID, r.PathValue("username")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
