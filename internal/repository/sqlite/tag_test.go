package sqlite

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/sakif/inkwell/internal/apperror"
)

func TestResolveTags_GetOrCreate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first, err := db.ResolveTags(ctx, []string{"go", "rust", "go"})
	if err != nil {
		t.Fatalf("ResolveTags() error = %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("ResolveTags() returned %d tags, want 2", len(first))
	}

	second, err := db.ResolveTags(ctx, []string{"rust", "go"})
	if err != nil {
		t.Fatalf("second ResolveTags() error = %v", err)
	}
	if second[0].ID != first[1].ID || second[1].ID != first[0].ID {
		t.Errorf("re-resolving produced new ids: first=%v second=%v", first, second)
	}
	if n := countRows(t, db, `SELECT COUNT(*) FROM tags`); n != 2 {
		t.Errorf("tags = %d, want 2", n)
	}
}

func TestResolveTags_CaseSensitive(t *testing.T) {
	db := newTestDB(t)

	tags, err := db.ResolveTags(context.Background(), []string{"Go", "go"})
	if err != nil {
		t.Fatalf("ResolveTags() error = %v", err)
	}
	if len(tags) != 2 || tags[0].ID == tags[1].ID {
		t.Errorf("Go and go collapsed into one tag: %v", tags)
	}
}

func TestResolveTags_Empty(t *testing.T) {
	db := newTestDB(t)

	tags, err := db.ResolveTags(context.Background(), nil)
	if err != nil {
		t.Fatalf("ResolveTags(nil) error = %v", err)
	}
	if len(tags) != 0 {
		t.Errorf("ResolveTags(nil) = %v, want empty", tags)
	}
}

func TestGetTagByName(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	created, _ := db.ResolveTags(ctx, []string{"sql"})

	got, err := db.GetTagByName(ctx, "sql")
	if err != nil {
		t.Fatalf("GetTagByName() error = %v", err)
	}
	if got.ID != created[0].ID {
		t.Errorf("ID = %s, want %s", got.ID, created[0].ID)
	}

	if _, err := db.GetTagByName(ctx, "SQL"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetTagByName(SQL) error = %v, want ErrNotFound", err)
	}
}

func TestListTags_IncludesOrphans(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner")
	post := createTestPost(t, db, owner, "Short lived", "zig", "ada")
	ctx := context.Background()

	if err := db.DeletePost(ctx, post.ID); err != nil {
		t.Fatalf("DeletePost() error = %v", err)
	}

	tags, err := db.ListTags(ctx)
	if err != nil {
		t.Fatalf("ListTags() error = %v", err)
	}
	names := make([]string, len(tags))
	for i, tag := range tags {
		names[i] = tag.Name
	}
	if !reflect.DeepEqual(names, []string{"ada", "zig"}) {
		t.Errorf("ListTags() = %v, want [ada zig]", names)
	}
}
