package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/blog-backend/internal/apperror"
	"github.com/sakif/blog-backend/internal/model"
	"github.com/sakif/blog-backend/internal/repository"
)

// FollowService maintains the follow graph and builds feeds from it.
type FollowService struct {
	users   repository.UserRepository
	follows repository.FollowRepository
	logger  *slog.Logger
}

func NewFollowService(users repository.UserRepository, follows repository.FollowRepository, logger *slog.Logger) *FollowService {
	return &FollowService{users: users, follows: follows, logger: logger}
}

// Follow makes followerID follow followingID.
//
// The existence check gives a NotFound for the obvious case; the duplicate
// check is left to the repository, whose unique key also covers two
// concurrent follows of the same user.
func (s *FollowService) Follow(ctx context.Context, followerID, followingID int64) error {
	if _, err := s.users.GetUserByID(ctx, followingID); err != nil {
		return err
	}

	if err := s.follows.Follow(ctx, followerID, followingID); err != nil {
		return err
	}

	s.logger.Info("user followed",
		slog.Int64("followerID", followerID),
		slog.Int64("followingID", followingID),
	)
	return nil
}

// Unfollow removes the edge. NotFollowing if there was none.
func (s *FollowService) Unfollow(ctx context.Context, followerID, followingID int64) error {
	if err := s.follows.Unfollow(ctx, followerID, followingID); err != nil {
		return err
	}

	s.logger.Info("user unfollowed",
		slog.Int64("followerID", followerID),
		slog.Int64("followingID", followingID),
	)
	return nil
}

// ListRelations returns who follows userID and whom userID follows.
func (s *FollowService) ListRelations(ctx context.Context, userID int64) (*model.Relations, error) {
	followers, err := s.follows.Followers(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/follow: listing followers of %d: %w", userID, err)
	}
	following, err := s.follows.Following(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/follow: listing following of %d: %w", userID, err)
	}
	return &model.Relations{Followers: followers, Following: following}, nil
}

// FeedParams is the caller's view of a feed page. NewFeedParams fills in the
// defaults (limit 5, offset 0, no search).
type FeedParams struct {
	Limit  int
	Offset int
	Search string
}

func NewFeedParams() FeedParams {
	return FeedParams{Limit: DefaultFeedLimit}
}

// ComputeFeed returns articles by the users userID follows, newest first,
// filtered by a case-insensitive substring of title or content.
//
// Out-of-range paging is rejected rather than clamped, so a client bug shows
// up as a 400 instead of a silently different page.
func (s *FollowService) ComputeFeed(ctx context.Context, userID int64, p FeedParams) ([]model.Article, error) {
	if p.Limit < 0 || p.Limit > MaxFeedLimit {
		return nil, apperror.ValidationFailed("limit",
			fmt.Sprintf("limit must be between 0 and %d", MaxFeedLimit))
	}
	if p.Offset < 0 {
		return nil, apperror.ValidationFailed("offset", "offset must not be negative")
	}

	articles, err := s.follows.Feed(ctx, repository.FeedQuery{
		FollowerID:  userID,
		Search:      strings.TrimSpace(p.Search),
		ListOptions: repository.ListOptions{Limit: p.Limit, Offset: p.Offset},
	})
	if err != nil {
		return nil, fmt.Errorf("service/follow: computing feed for %d: %w", userID, err)
	}
	return articles, nil
}
