package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/inkwell/internal/auth"
	"github.com/sakif/inkwell/internal/model"
	"github.com/sakif/inkwell/internal/repository/sqlite"
	"github.com/sakif/inkwell/internal/service"
)

// testEnv wires every handler to real services over a fresh database.
type testEnv struct {
	db      *sqlite.DB
	authSvc *service.AuthService
	posts   *service.PostService
	follows *service.FollowService

	authH *AuthHandler
	postH *PostHandler
	userH *UserHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.New(filepath.Join(t.TempDir(), "handler.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("handler-test-secret-0123456789", time.Hour)
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	authSvc := service.NewAuthService(db, tokens, auth.NewPasswordServiceForTest(bcrypt.MinCost), logger)
	users := service.NewUserService(db, nil, logger)
	posts := service.NewPostService(db, db, db, db, nil, logger)
	tags := service.NewTagService(db, logger)
	follows := service.NewFollowService(db, db, logger)

	return &testEnv{
		db:      db,
		authSvc: authSvc,
		posts:   posts,
		follows: follows,
		authH:   NewAuthHandler(authSvc, users, logger),
		postH:   NewPostHandler(posts, tags, logger),
		userH:   NewUserHandler(users, posts, follows, logger),
	}
}

func (e *testEnv) register(t *testing.T, username string) *model.User {
	t.Helper()
	u, err := e.authSvc.Register(context.Background(), username, username+"@example.com", "secret")
	require.NoError(t, err)
	return u
}

func (e *testEnv) createPost(t *testing.T, owner *model.User, title, tags string) *model.Post {
	t.Helper()
	p, err := e.posts.CreatePost(context.Background(), owner.ID, title, "body of "+title, tags)
	require.NoError(t, err)
	return p
}

// request describes one call straight into a handler, bypassing the router.
type request struct {
	method string
	target string
	body   string
	caller string            // user ID placed in the context, "" for anonymous
	params map[string]string // path values
}

func serve(t *testing.T, h http.HandlerFunc, r request) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader = http.NoBody
	if r.body != "" {
		body = strings.NewReader(r.body)
	}
	req := httptest.NewRequest(r.method, r.target, body)
	for k, v := range r.params {
		req.SetPathValue(k, v)
	}
	if r.caller != "" {
		req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: r.caller}))
	}

	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), "body: %s", rec.Body.String())
	return v
}
