package handler

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/inkwell/internal/model"
)

func TestHandleCreate(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")

	rec := serve(t, env.postH.HandleCreate, request{
		method: http.MethodPost,
		target: "/api/posts",
		body:   `{"title":"Hello World","body":"first!","tags":"go, intro, go"}`,
		caller: alice.ID,
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	post := decode[model.Post](t, rec)
	assert.Equal(t, "/api/posts/"+post.ID, rec.Header().Get("Location"))
	assert.Equal(t, "hello-world", post.Slug)
	assert.Equal(t, alice.ID, post.UserID)
	assert.Equal(t, []string{"go", "intro"}, post.TagNames())
}

func TestHandleCreate_Invalid(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	env.createPost(t, alice, "Taken", "")

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantField  string
	}{
		{"missing title", `{"body":"x"}`, http.StatusBadRequest, "title"},
		{"title too long", `{"title":"` + strings.Repeat("t", 101) + `","body":"x"}`, http.StatusBadRequest, "title"},
		{"missing body", `{"title":"Fine"}`, http.StatusBadRequest, "body"},
		{"duplicate title", `{"title":"Taken","body":"x"}`, http.StatusConflict, "title"},
		{"unknown field", `{"title":"Fine","body":"x","author":"mallory"}`, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, env.postH.HandleCreate, request{
				method: http.MethodPost,
				target: "/api/posts",
				body:   tt.body,
				caller: alice.ID,
			})
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantField, decode[ErrorResponse](t, rec).Field)
		})
	}
}

func TestHandleCreate_MultiByteTitle(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")

	title := strings.Repeat("日", 40)
	rec := serve(t, env.postH.HandleCreate, request{
		method: http.MethodPost,
		target: "/api/posts",
		body:   `{"title":"` + title + `","body":"本文"}`,
		caller: alice.ID,
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, title, decode[model.Post](t, rec).Title)
}

func TestHandleCreate_Anonymous(t *testing.T) {
	env := newTestEnv(t)

	rec := serve(t, env.postH.HandleCreate, request{
		method: http.MethodPost,
		target: "/api/posts",
		body:   `{"title":"Hello","body":"x"}`,
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleGet(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	bobby := env.register(t, "bobby")
	post := env.createPost(t, alice, "Hello", "go")

	for _, body := range []string{"first", "second"} {
		rec := serve(t, env.postH.HandleAddComment, request{
			method: http.MethodPost,
			target: "/api/posts/" + post.ID + "/comments",
			body:   `{"body":"` + body + `"}`,
			caller: bobby.ID,
			params: map[string]string{"id": post.ID},
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := serve(t, env.postH.HandleGet, request{
		method: http.MethodGet,
		target: "/api/posts/" + post.ID,
		params: map[string]string{"id": post.ID},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[struct {
		model.Post
		Comments []model.Comment `json:"comments"`
	}](t, rec)
	assert.Equal(t, "Hello", got.Title)
	assert.Equal(t, "alice", got.Author)
	assert.Equal(t, []string{"go"}, got.TagNames())
	require.Len(t, got.Comments, 2)
	assert.Equal(t, "first", got.Comments[0].Body)
	assert.Equal(t, "second", got.Comments[1].Body)
	assert.Equal(t, "bobby", got.Comments[0].Author)
}

func TestHandleGet_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := serve(t, env.postH.HandleGet, request{
		method: http.MethodGet,
		target: "/api/posts/missing",
		params: map[string]string{"id": "missing"},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleUpdate(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	bobby := env.register(t, "bobby")
	post := env.createPost(t, alice, "Draft", "old, tags")
	env.createPost(t, bobby, "Bobby's", "")

	tests := []struct {
		name       string
		id         string
		caller     string
		body       string
		wantStatus int
	}{
		{"not found", "missing", alice.ID, `{"title":"X","body":"y"}`, http.StatusNotFound},
		{"not owner", post.ID, bobby.ID, `{"title":"Stolen","body":"y"}`, http.StatusForbidden},
		{"title of another post", post.ID, alice.ID, `{"title":"Bobby's","body":"y"}`, http.StatusConflict},
		{"empty body", post.ID, alice.ID, `{"title":"Final","body":""}`, http.StatusBadRequest},
		{"owner", post.ID, alice.ID, `{"title":"Final","body":"done","tags":"new"}`, http.StatusOK},
		{"same title again", post.ID, alice.ID, `{"title":"Final","body":"done again"}`, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, env.postH.HandleUpdate, request{
				method: http.MethodPut,
				target: "/api/posts/" + tt.id,
				body:   tt.body,
				caller: tt.caller,
				params: map[string]string{"id": tt.id},
			})
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}

	rec := serve(t, env.postH.HandleGet, request{
		method: http.MethodGet,
		target: "/api/posts/" + post.ID,
		params: map[string]string{"id": post.ID},
	})
	got := decode[model.Post](t, rec)
	assert.Equal(t, "Final", got.Title)
	assert.Equal(t, "done again", got.Body)
	assert.Empty(t, got.Tags)
}

func TestHandleDelete(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	bobby := env.register(t, "bobby")
	post := env.createPost(t, alice, "Short lived", "go")

	del := func(caller string) int {
		return serve(t, env.postH.HandleDelete, request{
			method: http.MethodDelete,
			target: "/api/posts/" + post.ID,
			caller: caller,
			params: map[string]string{"id": post.ID},
		}).Code
	}

	assert.Equal(t, http.StatusForbidden, del(bobby.ID))
	assert.Equal(t, http.StatusNoContent, del(alice.ID))
	assert.Equal(t, http.StatusNotFound, del(alice.ID))

	// The tag outlives its only post.
	rec := serve(t, env.postH.HandleListTags, request{method: http.MethodGet, target: "/api/tags"})
	require.Equal(t, http.StatusOK, rec.Code)
	tags := decode[[]model.Tag](t, rec)
	require.Len(t, tags, 1)
	assert.Equal(t, "go", tags[0].Name)
}

func TestHandleAddComment_Errors(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	post := env.createPost(t, alice, "Hello", "")

	tests := []struct {
		name       string
		id         string
		body       string
		wantStatus int
	}{
		{"empty body", post.ID, `{"body":""}`, http.StatusBadRequest},
		{"unknown post", "missing", `{"body":"hi"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, env.postH.HandleAddComment, request{
				method: http.MethodPost,
				target: "/api/posts/" + tt.id + "/comments",
				body:   tt.body,
				caller: alice.ID,
				params: map[string]string{"id": tt.id},
			})
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestHandleList(t *testing.T) {
	env := newTestEnv(t)

	rec := serve(t, env.postH.HandleList, request{method: http.MethodGet, target: "/api/posts"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	alice := env.register(t, "alice")
	env.createPost(t, alice, "One", "")
	env.createPost(t, alice, "Two", "")

	rec = serve(t, env.postH.HandleList, request{method: http.MethodGet, target: "/api/posts"})
	posts := decode[[]model.Post](t, rec)
	assert.Len(t, posts, 2)
}

func TestHandleListByTag(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	env.createPost(t, alice, "Tagged", "go")
	env.createPost(t, alice, "Untagged", "")

	rec := serve(t, env.postH.HandleListByTag, request{
		method: http.MethodGet,
		target: "/api/tags/go/posts",
		params: map[string]string{"name": "go"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	posts := decode[[]model.Post](t, rec)
	require.Len(t, posts, 1)
	assert.Equal(t, "Tagged", posts[0].Title)

	rec = serve(t, env.postH.HandleListByTag, request{
		method: http.MethodGet,
		target: "/api/tags/Go/posts",
		params: map[string]string{"name": "Go"},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
