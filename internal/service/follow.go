package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/inkwell/internal/apperror"
	"github.com/sakif/inkwell/internal/metrics"
	"github.com/sakif/inkwell/internal/model"
	"github.com/sakif/inkwell/internal/repository"
)

// FollowService is the social graph: directed follower → followed edges.
type FollowService struct {
	follows repository.FollowRepository
	users   repository.UserRepository
	logger  *slog.Logger
}

func NewFollowService(follows repository.FollowRepository, users repository.UserRepository, logger *slog.Logger) *FollowService {
	return &FollowService{follows: follows, users: users, logger: logger}
}

// target resolves the other end of an edge and rejects self edges.
func (s *FollowService) target(ctx context.Context, followerID, username string) (*model.User, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user.ID == followerID {
		return nil, apperror.SelfFollow()
	}
	return user, nil
}

// Follow makes followerID follow username. Following twice is a no-op.
func (s *FollowService) Follow(ctx context.Context, followerID, username string) error {
	target, err := s.target(ctx, followerID, username)
	if err != nil {
		return err
	}
	if err := s.follows.Follow(ctx, followerID, target.ID); err != nil {
		return fmt.Errorf("service/follow: %s following %s: %w", followerID, target.ID, err)
	}

	metrics.FollowEdges.WithLabelValues(metrics.ActionFollow).Inc()
	s.logger.Info("user followed",
		slog.String("followerID", followerID),
		slog.String("followedID", target.ID),
	)
	return nil
}

// Unfollow removes the edge followerID → username. Removing a missing edge
// is a no-op.
func (s *FollowService) Unfollow(ctx context.Context, followerID, username string) error {
	target, err := s.target(ctx, followerID, username)
	if err != nil {
		return err
	}
	if err := s.follows.Unfollow(ctx, followerID, target.ID); err != nil {
		return fmt.Errorf("service/follow: %s unfollowing %s: %w", followerID, target.ID, err)
	}

	metrics.FollowEdges.WithLabelValues(metrics.ActionUnfollow).Inc()
	s.logger.Info("user unfollowed",
		slog.String("followerID", followerID),
		slog.String("followedID", target.ID),
	)
	return nil
}

// IsFollowing reports whether followerID currently follows username.
func (s *FollowService) IsFollowing(ctx context.Context, followerID, username string) (bool, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return false, err
	}
	ok, err := s.follows.IsFollowing(ctx, followerID, user.ID)
	if err != nil {
		return false, fmt.Errorf("service/follow: %w", err)
	}
	return ok, nil
}

// Followers lists the users who follow username.
func (s *FollowService) Followers(ctx context.Context, username string) ([]model.User, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	users, err := s.follows.Followers(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/follow: followers of %q: %w", username, err)
	}
	return users, nil
}

// Following lists the users username follows.
func (s *FollowService) Following(ctx context.Context, username string) ([]model.User, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	users, err := s.follows.Following(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/follow: following of %q: %w", username, err)
	}
	return users, nil
}
