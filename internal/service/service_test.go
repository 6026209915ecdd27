package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/sakif/inkwell/internal/auth"
	"github.com/sakif/inkwell/internal/cache"
	"github.com/sakif/inkwell/internal/model"
	"github.com/sakif/inkwell/internal/repository/sqlite"
	"golang.org/x/crypto/bcrypt"
)

// testEnv bundles every service over one fresh SQLite database.
type testEnv struct {
	db      *sqlite.DB
	auth    *AuthService
	posts   *PostService
	tags    *TagService
	follows *FollowService
	users   *UserService
	tokens  *auth.TokenService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithFeed(t, nil)
}

func newTestEnvWithFeed(t *testing.T, feed *cache.FeedCache) *testEnv {
	t.Helper()

	db, err := sqlite.New(filepath.Join(t.TempDir(), "service.db"))
	if err != nil {
		t.Fatalf("sqlite.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	logger := discardLogger()

	return &testEnv{
		db:      db,
		auth:    NewAuthService(db, tokens, auth.NewPasswordServiceForTest(bcrypt.MinCost), logger),
		posts:   NewPostService(db, db, db, db, feed, logger),
		tags:    NewTagService(db, logger),
		follows: NewFollowService(db, db, logger),
		users:   NewUserService(db, feed, logger),
		tokens:  tokens,
	}
}

// register creates an account with a derived email and password "pw1234".
func (e *testEnv) register(t *testing.T, username string) *model.User {
	t.Helper()
	u, err := e.auth.Register(context.Background(), username, username+"@example.com", "pw1234")
	if err != nil {
		t.Fatalf("Register(%q): %v", username, err)
	}
	return u
}

func (e *testEnv) createPost(t *testing.T, owner *model.User, title, rawTags string) *model.Post {
	t.Helper()
	p, err := e.posts.CreatePost(context.Background(), owner.ID, title, "body of "+title, rawTags)
	if err != nil {
		t.Fatalf("CreatePost(%q): %v", title, err)
	}
	return p
}
