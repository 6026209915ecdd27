package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/inkwell/internal/apperror"
	"github.com/sakif/inkwell/internal/cache"
	"github.com/sakif/inkwell/internal/metrics"
	"github.com/sakif/inkwell/internal/model"
	"github.com/sakif/inkwell/internal/repository"
)

const (
	MaxBioLength        = 500
	MaxPictureURLLength = 2048
)

// UserService covers public profiles and account management.
type UserService struct {
	users  repository.UserRepository
	feed   *cache.FeedCache
	logger *slog.Logger
}

func NewUserService(users repository.UserRepository, feed *cache.FeedCache, logger *slog.Logger) *UserService {
	return &UserService{users: users, feed: feed, logger: logger}
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}
	return s.users.GetUserByUsername(ctx, username)
}

// UpdateProfile replaces the bio and profile picture of userID.
func (s *UserService) UpdateProfile(ctx context.Context, userID, bio, profilePicture string) (*model.User, error) {
	bio = strings.TrimSpace(bio)
	profilePicture = strings.TrimSpace(profilePicture)
	if utf8.RuneCountInString(bio) > MaxBioLength {
		return nil, apperror.ValidationFailed("bio",
			fmt.Sprintf("bio must be %d characters or less", MaxBioLength))
	}
	if utf8.RuneCountInString(profilePicture) > MaxPictureURLLength {
		return nil, apperror.ValidationFailed("profilePicture", "profile picture URL is too long")
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Bio = bio
	user.ProfilePicture = profilePicture

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("service/user: updating profile of %s: %w", userID, err)
	}
	return user, nil
}

// DeleteUser removes the account and everything hanging off it: posts, the
// comments on them, the comments the user wrote and every follow edge.
func (s *UserService) DeleteUser(ctx context.Context, userID string) error {
	if err := s.users.DeleteUser(ctx, userID); err != nil {
		if isDomainError(err) {
			return err
		}
		return fmt.Errorf("service/user: deleting %s: %w", userID, err)
	}

	s.feed.Invalidate(ctx)
	metrics.UsersDeleted.Inc()
	s.logger.Info("user deleted", slog.String("userID", userID))
	return nil
}
