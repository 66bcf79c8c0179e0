package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/blog-backend/internal/apperror"
	"github.com/sakif/blog-backend/internal/auth"
	"github.com/sakif/blog-backend/internal/model"
	"github.com/sakif/blog-backend/internal/service"
)

// Follows is the part of service.FollowService the routes use.
type Follows interface {
	Follow(ctx context.Context, followerID, followingID int64) error
	Unfollow(ctx context.Context, followerID, followingID int64) error
	ListRelations(ctx context.Context, userID int64) (*model.Relations, error)
	ComputeFeed(ctx context.Context, userID int64, p service.FeedParams) ([]model.Article, error)
}

// FollowingHandler serves /following: the follow graph and the feed.
// Every route acts on behalf of the authenticated user.
type FollowingHandler struct {
	follows Follows
	logger  *slog.Logger
}

func NewFollowingHandler(follows Follows, logger *slog.Logger) *FollowingHandler {
	return &FollowingHandler{follows: follows, logger: logger}
}

// HandleFollow makes the caller follow {userId}.
//
// HTTP: POST /following/{userId}/follow → 201
func (h *FollowingHandler) HandleFollow(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.UserIDFromContext(r.Context())
	target, err := pathID(r, "userId")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.follows.Follow(r.Context(), me, target); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, MessageResponse{Message: "User Followed Successfully"})
}

// HandleUnfollow removes the edge caller → {userId}.
//
// HTTP: DELETE /following/{userId}/unfollow → 204
func (h *FollowingHandler) HandleUnfollow(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.UserIDFromContext(r.Context())
	target, err := pathID(r, "userId")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.follows.Unfollow(r.Context(), me, target); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleFeed returns the caller's feed.
//
// HTTP: GET /following/feed?limit=5&offset=0&search=go
//
// Missing parameters take the defaults; present but non-numeric ones are a
// validation error rather than silently defaulted.
func (h *FollowingHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.UserIDFromContext(r.Context())
	q := r.URL.Query()

	params := service.NewFeedParams()
	params.Search = q.Get("search")

	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"limit", &params.Limit},
		{"offset", &params.Offset},
	} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, h.logger, apperror.ValidationFailed(p.name, p.name+" must be an integer"))
			return
		}
		*p.dst = n
	}

	articles, err := h.follows.ComputeFeed(r.Context(), me, params)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, articles)
}

// HandleRelations returns {followers, following} for the caller.
//
// HTTP: GET /following/users
func (h *FollowingHandler) HandleRelations(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.UserIDFromContext(r.Context())

	rel, err := h.follows.ListRelations(r.Context(), me)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rel)
}
