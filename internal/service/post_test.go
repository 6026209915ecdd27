package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/sakif/inkwell/internal/apperror"
	"github.com/sakif/inkwell/internal/cache"
	"github.com/sakif/inkwell/internal/model"
	"github.com/sakif/inkwell/internal/repository"
)

func TestCreatePost_TagsInFirstOccurrenceOrder(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register(t, "owner")

	post, err := env.posts.CreatePost(context.Background(), owner.ID, "Hello World", "body", "go, rust, go")
	if err != nil {
		t.Fatalf("CreatePost() error = %v", err)
	}
	if got := post.TagNames(); !reflect.DeepEqual(got, []string{"go", "rust"}) {
		t.Errorf("tags = %v, want [go rust]", got)
	}
	if post.Slug != "hello-world" {
		t.Errorf("Slug = %q, want hello-world", post.Slug)
	}
	if post.Author != "owner" {
		t.Errorf("Author = %q, want owner", post.Author)
	}
}

func TestCreatePost_DuplicateTitleAnyOwner(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	ctx := context.Background()
	env.createPost(t, alice, "Hello World", "go")

	for _, owner := range []string{alice.ID, bob.ID} {
		_, err := env.posts.CreatePost(ctx, owner, "Hello World", "again", "new")
		if !errors.Is(err, apperror.ErrDuplicateTitle) {
			t.Errorf("CreatePost(owner=%s) error = %v, want ErrDuplicateTitle", owner, err)
		}
	}

	posts, _ := env.posts.ListPostsNewestFirst(ctx)
	if len(posts) != 1 {
		t.Errorf("posts = %d, want 1", len(posts))
	}
	if _, err := env.posts.ListPostsByTag(ctx, "new"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("tag from rejected post exists: %v", err)
	}
}

func TestCreatePost_Validation(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register(t, "owner")
	long := make([]byte, MaxTitleLength+1)
	for i := range long {
		long[i] = 'x'
	}

	tests := []struct {
		name, title, body, field string
	}{
		{"blank title", "   ", "body", "title"},
		{"long title", string(long), "body", "title"},
		{"blank body", "Title", " \n ", "body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.posts.CreatePost(context.Background(), owner.ID, tt.title, tt.body, "")
			var appErr *apperror.AppError
			if !errors.As(err, &appErr) || !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("CreatePost() error = %v, want validation error", err)
			}
			if appErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", appErr.Field, tt.field)
			}
		})
	}
}

func TestCreatePost_LengthCountsCharacters(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register(t, "owner")
	ctx := context.Background()

	// 40 characters, 120 bytes.
	title := strings.Repeat("日", 40)
	post, err := env.posts.CreatePost(ctx, owner.ID, title, "本文", "")
	if err != nil {
		t.Fatalf("CreatePost(40 CJK characters) error = %v", err)
	}
	if post.Title != title {
		t.Errorf("Title = %q, want %q", post.Title, title)
	}

	full := strings.Repeat("ü", MaxTitleLength)
	if _, err := env.posts.EditPost(ctx, post.ID, owner.ID, full, "body", ""); err != nil {
		t.Errorf("EditPost(%d two-byte characters) error = %v", MaxTitleLength, err)
	}

	over := strings.Repeat("日", MaxTitleLength+1)
	if _, err := env.posts.CreatePost(ctx, owner.ID, over, "body", ""); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("CreatePost(%d characters) error = %v, want ErrValidation", MaxTitleLength+1, err)
	}

	if _, err := env.posts.AddComment(ctx, post.ID, owner.ID, strings.Repeat("語", 40000)); err != nil {
		t.Errorf("AddComment(40000 CJK characters) error = %v", err)
	}
}

func TestCreatePost_UnknownOwner(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.posts.CreatePost(context.Background(), "ghost", "Title", "body", "")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("CreatePost() error = %v, want ErrNotFound", err)
	}
}

func TestEditPost(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register(t, "owner")
	post := env.createPost(t, owner, "Draft", "go, rust")
	ctx := context.Background()

	edited, err := env.posts.EditPost(ctx, post.ID, owner.ID, "Final Cut", "new body", "sql")
	if err != nil {
		t.Fatalf("EditPost() error = %v", err)
	}
	if edited.Title != "Final Cut" || edited.Slug != "final-cut" || edited.Body != "new body" {
		t.Errorf("EditPost() = %+v", edited)
	}

	got, err := env.posts.GetPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("GetPost() error = %v", err)
	}
	if names := got.TagNames(); !reflect.DeepEqual(names, []string{"sql"}) {
		t.Errorf("tags after edit = %v, want [sql]", names)
	}
}

func TestEditPost_ErrorOrder(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register(t, "owner")
	intruder := env.register(t, "intruder")
	env.createPost(t, owner, "Taken", "")
	post := env.createPost(t, owner, "Mine", "go")
	ctx := context.Background()

	tests := []struct {
		name     string
		postID   string
		callerID string
		title    string
		want     error
	}{
		{"missing post", "ghost", owner.ID, "Taken", apperror.ErrNotFound},
		{"not owner, even with a taken title", post.ID, intruder.ID, "Taken", apperror.ErrForbidden},
		{"owner, taken title", post.ID, owner.ID, "Taken", apperror.ErrDuplicateTitle},
		{"owner, blank title", post.ID, owner.ID, " ", apperror.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.posts.EditPost(ctx, tt.postID, tt.callerID, tt.title, "body", "other")
			if !errors.Is(err, tt.want) {
				t.Errorf("EditPost() error = %v, want %v", err, tt.want)
			}
		})
	}

	got, _ := env.posts.GetPost(ctx, post.ID)
	if got.Title != "Mine" || !reflect.DeepEqual(got.TagNames(), []string{"go"}) {
		t.Errorf("rejected edits changed the post: %+v", got)
	}
}

func TestEditPost_KeepOwnTitle(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register(t, "owner")
	post := env.createPost(t, owner, "Same", "go")

	if _, err := env.posts.EditPost(context.Background(), post.ID, owner.ID, "Same", "changed", "go"); err != nil {
		t.Errorf("EditPost(same title) error = %v", err)
	}
}

func TestDeletePost_NonOwnerForbidden(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register(t, "owner")
	intruder := env.register(t, "intruder")
	post := env.createPost(t, owner, "Guarded", "go")
	ctx := context.Background()
	if _, err := env.posts.AddComment(ctx, post.ID, intruder.ID, "hmm"); err != nil {
		t.Fatalf("AddComment() error = %v", err)
	}

	err := env.posts.DeletePost(ctx, post.ID, intruder.ID)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("DeletePost() error = %v, want ErrForbidden", err)
	}

	if _, err := env.posts.GetPost(ctx, post.ID); err != nil {
		t.Errorf("post gone after forbidden delete: %v", err)
	}
	comments, _ := env.posts.ListComments(ctx, post.ID)
	if len(comments) != 1 {
		t.Errorf("comments = %d, want 1", len(comments))
	}
}

func TestDeletePost_CascadesComments(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register(t, "owner")
	reader := env.register(t, "reader")
	post := env.createPost(t, owner, "Doomed", "go")
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := env.posts.AddComment(ctx, post.ID, reader.ID, "comment"); err != nil {
			t.Fatalf("AddComment() error = %v", err)
		}
	}

	if err := env.posts.DeletePost(ctx, post.ID, owner.ID); err != nil {
		t.Fatalf("DeletePost() error = %v", err)
	}

	if _, err := env.posts.ListComments(ctx, post.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("ListComments(deleted) error = %v, want ErrNotFound", err)
	}
	if _, err := env.users.GetByUsername(ctx, "reader"); err != nil {
		t.Errorf("commenter deleted: %v", err)
	}
	tags, _ := env.tags.List(ctx)
	if len(tags) != 1 {
		t.Errorf("tags = %d, want the orphan to remain", len(tags))
	}
	if err := env.posts.DeletePost(ctx, post.ID, owner.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second DeletePost() error = %v, want ErrNotFound", err)
	}
}

func TestAddComment(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register(t, "owner")
	post := env.createPost(t, owner, "Open", "")
	ctx := context.Background()

	c, err := env.posts.AddComment(ctx, post.ID, owner.ID, "own comment")
	if err != nil {
		t.Fatalf("AddComment() error = %v", err)
	}
	if c.Author != "owner" || c.PostID != post.ID {
		t.Errorf("AddComment() = %+v", c)
	}

	if _, err := env.posts.AddComment(ctx, "ghost", owner.ID, "x"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("AddComment(ghost) error = %v, want ErrNotFound", err)
	}
	if _, err := env.posts.AddComment(ctx, post.ID, owner.ID, "  "); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("AddComment(blank) error = %v, want ErrValidation", err)
	}
}

func TestListPostsByTagAndUser(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	env.createPost(t, alice, "A1", "go")
	env.createPost(t, bob, "B1", "go, rust")
	env.createPost(t, bob, "B2", "rust")
	ctx := context.Background()

	byTag, err := env.posts.ListPostsByTag(ctx, "go")
	if err != nil {
		t.Fatalf("ListPostsByTag() error = %v", err)
	}
	if len(byTag) != 2 {
		t.Errorf("ListPostsByTag(go) = %d posts, want 2", len(byTag))
	}
	if _, err := env.posts.ListPostsByTag(ctx, "cobol"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("ListPostsByTag(unknown) error = %v, want ErrNotFound", err)
	}

	byUser, err := env.posts.ListPostsByUser(ctx, "bob")
	if err != nil {
		t.Fatalf("ListPostsByUser() error = %v", err)
	}
	if len(byUser) != 2 {
		t.Errorf("ListPostsByUser(bob) = %d posts, want 2", len(byUser))
	}
	if _, err := env.posts.ListPostsByUser(ctx, "nobody"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("ListPostsByUser(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestGetPost_Validation(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.posts.GetPost(context.Background(), " "); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("GetPost(blank) error = %v, want ErrValidation", err)
	}
}

func TestListPostsNewestFirst_UsesFeedCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := cache.NewClient(context.Background(), mr.Addr())
	if err != nil {
		t.Fatalf("cache.NewClient: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	feed := cache.NewFeedCache(client, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))

	env := newTestEnvWithFeed(t, feed)
	owner := env.register(t, "owner")
	ctx := context.Background()
	first := env.createPost(t, owner, "First", "")

	posts, err := env.posts.ListPostsNewestFirst(ctx)
	if err != nil {
		t.Fatalf("ListPostsNewestFirst() error = %v", err)
	}
	if len(posts) != 1 || !mr.Exists(cache.FeedKey) {
		t.Fatalf("feed not cached after a cold read (posts=%d)", len(posts))
	}

	// A mutation drops the cached feed and the next read sees it.
	env.createPost(t, owner, "Second", "")
	if mr.Exists(cache.FeedKey) {
		t.Error("feed still cached after CreatePost")
	}
	posts, _ = env.posts.ListPostsNewestFirst(ctx)
	if len(posts) != 2 {
		t.Errorf("posts = %d, want 2", len(posts))
	}

	env.posts.ListPostsNewestFirst(ctx)
	if err := env.posts.DeletePost(ctx, first.ID, owner.ID); err != nil {
		t.Fatalf("DeletePost() error = %v", err)
	}
	if mr.Exists(cache.FeedKey) {
		t.Error("feed still cached after DeletePost")
	}
}

// midReadPostRepo runs afterList once, right after ListPosts has read the
// database and before the caller sees the rows.
type midReadPostRepo struct {
	repository.PostRepository
	afterList func()
}

func (r *midReadPostRepo) ListPosts(ctx context.Context) ([]model.Post, error) {
	posts, err := r.PostRepository.ListPosts(ctx)
	if r.afterList != nil {
		hook := r.afterList
		r.afterList = nil
		hook()
	}
	return posts, err
}

func TestListPostsNewestFirst_WriteDuringReadIsNotCached(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := cache.NewClient(context.Background(), mr.Addr())
	if err != nil {
		t.Fatalf("cache.NewClient: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	feed := cache.NewFeedCache(client, time.Minute, logger)

	env := newTestEnvWithFeed(t, feed)
	owner := env.register(t, "owner")
	env.createPost(t, owner, "First", "")
	ctx := context.Background()

	repo := &midReadPostRepo{PostRepository: env.db}
	reader := NewPostService(repo, env.db, env.db, env.db, feed, logger)
	repo.afterList = func() {
		env.createPost(t, owner, "Second", "")
	}

	posts, err := reader.ListPostsNewestFirst(ctx)
	if err != nil {
		t.Fatalf("ListPostsNewestFirst() error = %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("racing read returned %d posts, want the 1 it loaded", len(posts))
	}
	if mr.Exists(cache.FeedKey) {
		t.Error("list loaded before the second post was committed got cached")
	}

	posts, err = reader.ListPostsNewestFirst(ctx)
	if err != nil {
		t.Fatalf("ListPostsNewestFirst() error = %v", err)
	}
	if len(posts) != 2 {
		t.Errorf("posts after the race = %d, want 2", len(posts))
	}
}
