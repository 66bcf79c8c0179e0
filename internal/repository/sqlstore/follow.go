package sqlstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/blog-backend/internal/apperror"
	"github.com/sakif/blog-backend/internal/model"
	"github.com/sakif/blog-backend/internal/repository"
)

var _ repository.FollowRepository = (*FollowStore)(nil)

// FollowStore is the user_followers edge table.
type FollowStore struct {
	db *DB
}

// Follow inserts the edge follower → following.
//
// The (follower_id, following_id) primary key is what makes a duplicate
// follow fail; there is no SELECT beforehand.
func (s *FollowStore) Follow(ctx context.Context, followerID, followingID int64) error {
	query := s.db.conn.Rebind(
		`INSERT INTO user_followers (follower_id, following_id, created_at) VALUES (?, ?, ?)`)

	_, err := s.db.conn.ExecContext(ctx, query, followerID, followingID, time.Now().UTC())
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return apperror.AlreadyFollowing()
		case isForeignKeyViolation(err):
			return apperror.NotFound("user", strconv.FormatInt(followingID, 10))
		}
		return fmt.Errorf("sqlstore: following user %d from %d: %w", followingID, followerID, err)
	}
	return nil
}

// Unfollow deletes the edge. Zero rows deleted means there was none.
func (s *FollowStore) Unfollow(ctx context.Context, followerID, followingID int64) error {
	query := s.db.conn.Rebind(`DELETE FROM user_followers WHERE follower_id = ? AND following_id = ?`)

	res, err := s.db.conn.ExecContext(ctx, query, followerID, followingID)
	if err != nil {
		return fmt.Errorf("sqlstore: unfollowing user %d from %d: %w", followingID, followerID, err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFollowing()
	}
	return nil
}

// Followers lists the users who follow userID.
func (s *FollowStore) Followers(ctx context.Context, userID int64) ([]model.PublicProfile, error) {
	return s.profiles(ctx,
		`SELECT u.id, u.username, u.email
		 FROM user_followers f
		 JOIN users u ON u.id = f.follower_id
		 WHERE f.following_id = ?
		 ORDER BY f.created_at ASC, u.id ASC`, userID)
}

// Following lists the users userID follows.
func (s *FollowStore) Following(ctx context.Context, userID int64) ([]model.PublicProfile, error) {
	return s.profiles(ctx,
		`SELECT u.id, u.username, u.email
		 FROM user_followers f
		 JOIN users u ON u.id = f.following_id
		 WHERE f.follower_id = ?
		 ORDER BY f.created_at ASC, u.id ASC`, userID)
}

func (s *FollowStore) profiles(ctx context.Context, query string, userID int64) ([]model.PublicProfile, error) {
	out := []model.PublicProfile{}
	if err := s.db.conn.SelectContext(ctx, &out, s.db.conn.Rebind(query), userID); err != nil {
		return nil, fmt.Errorf("sqlstore: listing relations of user %d: %w", userID, err)
	}
	return out, nil
}

// Feed returns articles whose author is followed by q.FollowerID, newest
// first, optionally filtered by a case-insensitive substring of the title or
// the content.
//
// The search clause is only added when there is a search term, so an empty
// Search matches everything instead of relying on LIKE '%%'. The term is
// escaped so "%" and "_" typed by a user match literally.
//
// id DESC breaks ties between articles created in the same instant, which
// keeps offset pagination stable.
func (s *FollowStore) Feed(ctx context.Context, q repository.FeedQuery) ([]model.Article, error) {
	var sb strings.Builder
	args := []any{q.FollowerID}

	sb.WriteString(`SELECT a.id, a.title, a.content, a.author_id, a.created_at, a.updated_at
		FROM articles a
		JOIN user_followers f ON f.following_id = a.author_id
		WHERE f.follower_id = ?`)

	if q.Search != "" {
		like := s.db.dialect.like
		fmt.Fprintf(&sb, ` AND (a.title %s ? ESCAPE '\' OR a.content %s ? ESCAPE '\')`, like, like)
		pattern := containsPattern(q.Search)
		args = append(args, pattern, pattern)
	}

	sb.WriteString(` ORDER BY a.created_at DESC, a.id DESC LIMIT ? OFFSET ?`)
	args = append(args, q.Limit, q.Offset)

	articles := []model.Article{}
	if err := s.db.conn.SelectContext(ctx, &articles, s.db.conn.Rebind(sb.String()), args...); err != nil {
		return nil, fmt.Errorf("sqlstore: building feed for user %d: %w", q.FollowerID, err)
	}
	return articles, nil
}
