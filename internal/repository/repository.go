// Package repository declares the persistence interfaces the services depend on.
//
// The services never import a concrete store. server.New wires the sqlstore
// implementation in; tests pass in-memory fakes.
package repository

import (
	"context"

	"github.com/sakif/blog-backend/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// FeedQuery selects articles written by the users FollowerID follows.
// An empty Search matches every article.
type FeedQuery struct {
	FollowerID int64
	Search     string
	ListOptions
}

type UserRepository interface {
	// Create inserts a user and fills in ID and timestamps.
	// Returns apperror.ErrEmailTaken when the email is already registered.
	Create(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByOAuthID(ctx context.Context, oauthID string) (*model.User, error)
	LinkOAuthID(ctx context.Context, userID int64, oauthID string) error
	SetRole(ctx context.Context, userID int64, role model.Role) error
}

type RoleRequestRepository interface {
	Create(ctx context.Context, req *model.RoleRequest) error
	GetByID(ctx context.Context, id int64) (*model.RoleRequest, error)
	ListByStatus(ctx context.Context, status model.RoleRequestStatus) ([]model.RoleRequest, error)

	// ApplyDecision moves a PENDING request to decision. For ACCEPTED the
	// owner's role is updated in the same transaction. If the request is no
	// longer PENDING when the write happens, nothing is changed and
	// apperror.ErrRequestAlreadyProcessed is returned.
	ApplyDecision(ctx context.Context, req *model.RoleRequest, decision model.RoleRequestStatus) error
}

type FollowRepository interface {
	// Follow returns apperror.ErrAlreadyFollowing if the edge exists.
	Follow(ctx context.Context, followerID, followingID int64) error
	// Unfollow returns apperror.ErrNotFollowing if there is no edge.
	Unfollow(ctx context.Context, followerID, followingID int64) error
	Followers(ctx context.Context, userID int64) ([]model.PublicProfile, error)
	Following(ctx context.Context, userID int64) ([]model.PublicProfile, error)
	Feed(ctx context.Context, q FeedQuery) ([]model.Article, error)
}

type ArticleRepository interface {
	Create(ctx context.Context, article *model.Article) error
	GetByID(ctx context.Context, id int64) (*model.Article, error)
	List(ctx context.Context) ([]model.Article, error)
	Update(ctx context.Context, article *model.Article) error
	Delete(ctx context.Context, id int64) error
}
