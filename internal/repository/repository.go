// Package repository declares the storage contracts the service layer
// depends on. Implementations live in sub-packages (see repository/sqlite).
//
// Every mutating method is a single transaction: either all of its rows are
// written or none are. Uniqueness is enforced by the store itself; the
// friendly pre-checks done inside these methods only choose which domain
// error to return.
package repository

import (
	"context"

	"github.com/sakif/inkwell/internal/model"
)

type UserRepository interface {
	// CreateUser fails with apperror.ErrDuplicateUsername or
	// apperror.ErrDuplicateEmail, checked in that order.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateProfile(ctx context.Context, user *model.User) error
	// DeleteUser removes the user together with their posts, the comments on
	// those posts, the comments they wrote elsewhere and every follow edge
	// touching them.
	DeleteUser(ctx context.Context, id string) error
}

type TagRepository interface {
	// ResolveTags returns one tag per name, in the given order, creating the
	// missing ones.
	ResolveTags(ctx context.Context, names []string) ([]model.Tag, error)
	GetTagByName(ctx context.Context, name string) (*model.Tag, error)
	ListTags(ctx context.Context) ([]model.Tag, error)
}

type PostRepository interface {
	// CreatePost inserts the post and links it to tagNames (get-or-create).
	CreatePost(ctx context.Context, post *model.Post, tagNames []string) error
	GetPostByID(ctx context.Context, id string) (*model.Post, error)
	// UpdatePost overwrites title, body and slug and replaces the entire tag
	// set. The new title must not belong to another post.
	UpdatePost(ctx context.Context, post *model.Post, tagNames []string) error
	// DeletePost deletes comments, then tag links, then the post.
	DeletePost(ctx context.Context, id string) error
	ListPosts(ctx context.Context) ([]model.Post, error)
	ListPostsByTag(ctx context.Context, tagID string) ([]model.Post, error)
	ListPostsByUser(ctx context.Context, userID string) ([]model.Post, error)
}

type CommentRepository interface {
	CreateComment(ctx context.Context, comment *model.Comment) error
	ListComments(ctx context.Context, postID string) ([]model.Comment, error)
}

type FollowRepository interface {
	// Follow is idempotent: an existing edge is left untouched.
	Follow(ctx context.Context, followerID, followedID string) error
	// Unfollow is idempotent: a missing edge is not an error.
	Unfollow(ctx context.Context, followerID, followedID string) error
	IsFollowing(ctx context.Context, followerID, followedID string) (bool, error)
	Followers(ctx context.Context, userID string) ([]model.User, error)
	Following(ctx context.Context, userID string) ([]model.User, error)
}
