package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/inkwell/internal/model"
	"github.com/sakif/inkwell/internal/service"
)

// PostHandler serves posts, their comments and the tag catalog.
type PostHandler struct {
	posts  *service.PostService
	tags   *service.TagService
	logger *slog.Logger
}

func NewPostHandler(posts *service.PostService, tags *service.TagService, logger *slog.Logger) *PostHandler {
	return &PostHandler{posts: posts, tags: tags, logger: logger}
}

// postRequest is the body of create and edit. Tags is the raw
// comma-separated field, e.g. "go, databases".
type postRequest struct {
	Title string `json:"title" validate:"required,max=100"`
	Body  string `json:"body" validate:"required"`
	Tags  string `json:"tags"`
}

type commentRequest struct {
	Body string `json:"body" validate:"required"`
}

// postDetail is a post with its comments, oldest first.
type postDetail struct {
	*model.Post
	Comments []model.Comment `json:"comments"`
}

// HandleList returns every post, newest first.
//
// HTTP: GET /api/posts
func (h *PostHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.ListPostsNewestFirst(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// HandleGet returns one post with its tags and comments.
//
// HTTP: GET /api/posts/{id}
func (h *PostHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	post, err := h.posts.GetPost(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	comments, err := h.posts.ListComments(r.Context(), post.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, postDetail{Post: post, Comments: comments})
}

// HandleCreate publishes a post owned by the caller.
//
// HTTP: POST /api/posts
// REQUEST BODY: {"title": "...", "body": "...", "tags": "go, rust"}
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req postRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := validateRequest(req); err != nil {
		writeError(w, err)
		return
	}

	post, err := h.posts.CreatePost(r.Context(), userID, req.Title, req.Body, req.Tags)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", "/api/posts/"+post.ID)
	writeJSON(w, http.StatusCreated, post)
}

// HandleUpdate edits a post owned by the caller, replacing its tag set.
//
// HTTP: PUT /api/posts/{id}
func (h *PostHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req postRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := validateRequest(req); err != nil {
		writeError(w, err)
		return
	}

	post, err := h.posts.EditPost(r.Context(), r.PathValue("id"), userID, req.Title, req.Body, req.Tags)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// HandleDelete deletes a post owned by the caller.
//
// HTTP: DELETE /api/posts/{id}
func (h *PostHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	if err := h.posts.DeletePost(r.Context(), r.PathValue("id"), userID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAddComment comments on any post as the caller.
//
// HTTP: POST /api/posts/{id}/comments
func (h *PostHandler) HandleAddComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := validateRequest(req); err != nil {
		writeError(w, err)
		return
	}

	comment, err := h.posts.AddComment(r.Context(), r.PathValue("id"), userID, req.Body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

// HandleListByTag returns the posts carrying a tag, newest first.
//
// HTTP: GET /api/tags/{name}/posts
func (h *PostHandler) HandleListByTag(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.ListPostsByTag(r.Context(), r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// HandleListTags returns the whole tag catalog.
//
// HTTP: GET /api/tags
func (h *PostHandler) HandleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.tags.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}
