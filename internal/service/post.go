package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/inkwell/internal/apperror"
	"github.com/sakif/inkwell/internal/auth"
	"github.com/sakif/inkwell/internal/cache"
	"github.com/sakif/inkwell/internal/metrics"
	"github.com/sakif/inkwell/internal/model"
	"github.com/sakif/inkwell/internal/repository"
)

const (
	MaxTitleLength = 100
	MaxBodyLength  = 100000
)

// PostService is the content store: posts, their tag sets and comments.
type PostService struct {
	posts    repository.PostRepository
	comments repository.CommentRepository
	tags     repository.TagRepository
	users    repository.UserRepository
	feed     *cache.FeedCache
	logger   *slog.Logger
}

// NewPostService wires the repositories. feed may be nil to run without a
// feed cache.
func NewPostService(
	posts repository.PostRepository,
	comments repository.CommentRepository,
	tags repository.TagRepository,
	users repository.UserRepository,
	feed *cache.FeedCache,
	logger *slog.Logger,
) *PostService {
	return &PostService{
		posts:    posts,
		comments: comments,
		tags:     tags,
		users:    users,
		feed:     feed,
		logger:   logger,
	}
}

func validatePost(title, body string) error {
	if title == "" {
		return apperror.ValidationFailed("title", "title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	if strings.TrimSpace(body) == "" {
		return apperror.ValidationFailed("body", "body is required")
	}
	if utf8.RuneCountInString(body) > MaxBodyLength {
		return apperror.ValidationFailed("body",
			fmt.Sprintf("body must be %d characters or less", MaxBodyLength))
	}
	return nil
}

// CreatePost publishes a new post owned by ownerID. rawTags is the
// comma-separated tag field. The post, any new tags and the links are
// written together or not at all.
func (s *PostService) CreatePost(ctx context.Context, ownerID, title, body, rawTags string) (*model.Post, error) {
	title = strings.TrimSpace(title)
	if err := validatePost(title, body); err != nil {
		return nil, err
	}

	post := &model.Post{
		Title:     title,
		Body:      body,
		Slug:      Slugify(title),
		Published: true,
		UserID:    ownerID,
	}
	if err := s.posts.CreatePost(ctx, post, ParseTags(rawTags)); err != nil {
		if isDomainError(err) {
			return nil, err
		}
		s.logger.Error("failed to create post",
			slog.String("ownerID", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/post: creating post: %w", err)
	}

	s.feed.Invalidate(ctx)
	metrics.PostMutations.WithLabelValues(metrics.ActionCreate).Inc()
	s.logger.Info("post created",
		slog.String("id", post.ID),
		slog.String("ownerID", ownerID),
		slog.Int("tags", len(post.Tags)),
	)
	return post, nil
}

// loadOwned fetches a post and applies the ownership guard.
func (s *PostService) loadOwned(ctx context.Context, postID, callerID string) (*model.Post, error) {
	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !auth.CanMutate(post, auth.Identity{UserID: callerID}) {
		return nil, apperror.Forbidden("you can only change your own posts")
	}
	return post, nil
}

// EditPost overwrites the title and body of a post owned by callerID and
// replaces its entire tag set with the one parsed from rawTags. Errors come
// in this order: not found, forbidden, validation, duplicate title.
func (s *PostService) EditPost(ctx context.Context, postID, callerID, title, body, rawTags string) (*model.Post, error) {
	post, err := s.loadOwned(ctx, postID, callerID)
	if err != nil {
		return nil, err
	}

	title = strings.TrimSpace(title)
	if err := validatePost(title, body); err != nil {
		return nil, err
	}

	post.Title = title
	post.Body = body
	post.Slug = Slugify(title)
	if err := s.posts.UpdatePost(ctx, post, ParseTags(rawTags)); err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("service/post: editing post %s: %w", postID, err)
	}

	s.feed.Invalidate(ctx)
	metrics.PostMutations.WithLabelValues(metrics.ActionEdit).Inc()
	s.logger.Info("post edited", slog.String("id", post.ID))
	return post, nil
}

// DeletePost removes a post owned by callerID together with its comments and
// tag links. Tags stay in the catalog.
func (s *PostService) DeletePost(ctx context.Context, postID, callerID string) error {
	if _, err := s.loadOwned(ctx, postID, callerID); err != nil {
		return err
	}

	if err := s.posts.DeletePost(ctx, postID); err != nil {
		if isDomainError(err) {
			return err
		}
		return fmt.Errorf("service/post: deleting post %s: %w", postID, err)
	}

	s.feed.Invalidate(ctx)
	metrics.PostMutations.WithLabelValues(metrics.ActionDelete).Inc()
	s.logger.Info("post deleted", slog.String("id", postID))
	return nil
}

// AddComment appends a comment by authorID to an existing post. Any
// authenticated user may comment on any post.
func (s *PostService) AddComment(ctx context.Context, postID, authorID, body string) (*model.Comment, error) {
	if strings.TrimSpace(body) == "" {
		return nil, apperror.ValidationFailed("body", "comment body is required")
	}
	if utf8.RuneCountInString(body) > MaxBodyLength {
		return nil, apperror.ValidationFailed("body",
			fmt.Sprintf("comment must be %d characters or less", MaxBodyLength))
	}

	comment := &model.Comment{Body: body, UserID: authorID, PostID: postID}
	if err := s.comments.CreateComment(ctx, comment); err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("service/post: adding comment to %s: %w", postID, err)
	}

	metrics.CommentsAdded.Inc()
	s.logger.Info("comment added",
		slog.String("id", comment.ID),
		slog.String("postID", postID),
	)
	return comment, nil
}

// GetPost returns one post with its tags.
func (s *PostService) GetPost(ctx context.Context, id string) (*model.Post, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "post ID is required")
	}
	return s.posts.GetPostByID(ctx, id)
}

// ListComments returns the comments of a post, oldest first.
func (s *PostService) ListComments(ctx context.Context, postID string) ([]model.Comment, error) {
	if _, err := s.posts.GetPostByID(ctx, postID); err != nil {
		return nil, err
	}
	comments, err := s.comments.ListComments(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("service/post: listing comments of %s: %w", postID, err)
	}
	return comments, nil
}

// ListPostsNewestFirst returns every post, newest first; posts created at the
// same instant keep insertion order. Served from the feed cache when warm.
func (s *PostService) ListPostsNewestFirst(ctx context.Context) ([]model.Post, error) {
	if posts, ok := s.feed.Get(ctx); ok {
		return posts, nil
	}

	// The generation is read before the database so that a post committed
	// during the read keeps this (older) list out of the cache.
	gen, cacheable := s.feed.Generation(ctx)

	posts, err := s.posts.ListPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/post: listing posts: %w", err)
	}
	if cacheable {
		s.feed.Set(ctx, gen, posts)
	}
	return posts, nil
}

// ListPostsByTag returns the posts carrying the named tag, newest first.
// An unknown tag name is apperror.ErrNotFound.
func (s *PostService) ListPostsByTag(ctx context.Context, tagName string) ([]model.Post, error) {
	tag, err := s.tags.GetTagByName(ctx, tagName)
	if err != nil {
		return nil, err
	}
	posts, err := s.posts.ListPostsByTag(ctx, tag.ID)
	if err != nil {
		return nil, fmt.Errorf("service/post: listing posts tagged %q: %w", tagName, err)
	}
	return posts, nil
}

// ListPostsByUser returns the posts owned by username, newest first.
func (s *PostService) ListPostsByUser(ctx context.Context, username string) ([]model.Post, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	posts, err := s.posts.ListPostsByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/post: listing posts of %q: %w", username, err)
	}
	return posts, nil
}

// isDomainError reports whether err already carries an apperror kind and
// should travel up unwrapped.
func isDomainError(err error) bool {
	var appErr *apperror.AppError
	return errors.As(err, &appErr)
}
