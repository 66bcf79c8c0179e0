package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sakif/blog-backend/internal/apperror"
	"github.com/sakif/blog-backend/internal/model"
	"github.com/sakif/blog-backend/internal/repository"
)

// compile-time check that *UserStore implements repository.UserRepository
var _ repository.UserRepository = (*UserStore)(nil)

// UserStore is the users table.
type UserStore struct {
	db *DB
}

const userColumns = `id, email, username, password_hash, role, oauth_id, created_at, updated_at`

// Create inserts a user and fills in ID and timestamps in place.
//
// An empty Role defaults to READER. Email uniqueness is left to the UNIQUE
// constraint: the duplicate check and the insert are one statement, so two
// concurrent registrations with the same email cannot both succeed.
func (s *UserStore) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Role == "" {
		user.Role = model.RoleReader
	}

	query := s.db.conn.Rebind(
		`INSERT INTO users (email, username, password_hash, role, oauth_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`)

	err := s.db.conn.QueryRowxContext(ctx, query,
		user.Email,
		user.Username,
		user.PasswordHash,
		user.Role,
		user.OAuthID,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			if user.OAuthID != nil {
				// Either the email or the oauth id collided. The email case
				// is the one a caller can act on, so check it first.
				if existing, lookupErr := s.GetByEmail(ctx, user.Email); lookupErr == nil && existing != nil {
					return apperror.EmailTaken(user.Email)
				}
				return apperror.Conflict("user oauth", *user.OAuthID)
			}
			return apperror.EmailTaken(user.Email)
		}
		return fmt.Errorf("sqlstore: inserting user %s: %w", user.Email, err)
	}

	return nil
}

// GetUserByID returns apperror.ErrNotFound if no user has that id.
func (s *UserStore) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: getting user %d: %w", id, err)
	}
	return u, nil
}

// GetByEmail returns apperror.ErrNotFound if no user has that email.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("user", email)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: getting user by email: %w", err)
	}
	return u, nil
}

// GetByOAuthID looks up a user by provider-qualified id ("google:<sub>").
func (s *UserStore) GetByOAuthID(ctx context.Context, oauthID string) (*model.User, error) {
	u, err := s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE oauth_id = ?`, oauthID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("user", oauthID)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: getting user by oauth id: %w", err)
	}
	return u, nil
}

// LinkOAuthID attaches an OAuth identity to an existing account, which is
// how a user who registered with a password can later sign in with Google.
func (s *UserStore) LinkOAuthID(ctx context.Context, userID int64, oauthID string) error {
	query := s.db.conn.Rebind(`UPDATE users SET oauth_id = ?, updated_at = ? WHERE id = ?`)
	res, err := s.db.conn.ExecContext(ctx, query, oauthID, time.Now().UTC(), userID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user oauth", oauthID)
		}
		return fmt.Errorf("sqlstore: linking oauth id to user %d: %w", userID, err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("user", strconv.FormatInt(userID, 10))
	}
	return nil
}

func (s *UserStore) SetRole(ctx context.Context, userID int64, role model.Role) error {
	return setRole(ctx, s.db.conn, userID, role)
}

func (s *UserStore) getOne(ctx context.Context, query string, arg any) (*model.User, error) {
	var u model.User
	if err := s.db.conn.GetContext(ctx, &u, s.db.conn.Rebind(query), arg); err != nil {
		return nil, err
	}
	return &u, nil
}
