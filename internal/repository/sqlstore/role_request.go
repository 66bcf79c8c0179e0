package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sakif/blog-backend/internal/apperror"
	"github.com/sakif/blog-backend/internal/model"
	"github.com/sakif/blog-backend/internal/repository"
)

var _ repository.RoleRequestRepository = (*RoleRequestStore)(nil)

// RoleRequestStore is the role_requests table.
type RoleRequestStore struct {
	db *DB
}

const roleRequestColumns = `id, user_id, role, status, created_at, updated_at`

// Create inserts a PENDING request. Status is forced to PENDING regardless of
// what the caller set.
func (s *RoleRequestStore) Create(ctx context.Context, req *model.RoleRequest) error {
	now := time.Now().UTC()
	req.Status = model.StatusPending
	req.CreatedAt = now
	req.UpdatedAt = now

	query := s.db.conn.Rebind(
		`INSERT INTO role_requests (user_id, role, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 RETURNING id`)

	err := s.db.conn.QueryRowxContext(ctx, query,
		req.UserID, req.Role, req.Status, req.CreatedAt, req.UpdatedAt,
	).Scan(&req.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("user", strconv.FormatInt(req.UserID, 10))
		}
		return fmt.Errorf("sqlstore: inserting role request for user %d: %w", req.UserID, err)
	}
	return nil
}

// GetByID returns apperror.ErrRequestNotFound if there is no such request.
func (s *RoleRequestStore) GetByID(ctx context.Context, id int64) (*model.RoleRequest, error) {
	var req model.RoleRequest
	query := s.db.conn.Rebind(`SELECT ` + roleRequestColumns + ` FROM role_requests WHERE id = ?`)
	if err := s.db.conn.GetContext(ctx, &req, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.RequestNotFound(id)
		}
		return nil, fmt.Errorf("sqlstore: getting role request %d: %w", id, err)
	}
	return &req, nil
}

// ListByStatus returns requests in creation order. Never nil.
func (s *RoleRequestStore) ListByStatus(ctx context.Context, status model.RoleRequestStatus) ([]model.RoleRequest, error) {
	reqs := []model.RoleRequest{}
	query := s.db.conn.Rebind(`SELECT ` + roleRequestColumns + ` FROM role_requests WHERE status = ? ORDER BY id ASC`)
	if err := s.db.conn.SelectContext(ctx, &reqs, query, status); err != nil {
		return nil, fmt.Errorf("sqlstore: listing %s role requests: %w", status, err)
	}
	return reqs, nil
}

// ApplyDecision resolves a PENDING request and, when accepted, grants the role.
//
// TRANSACTION AND THE CONDITIONAL UPDATE:
// The status change is written as
//
//	UPDATE role_requests SET status = ? WHERE id = ? AND status = 'PENDING'
//
// so the PENDING check and the write are one atomic step. If two admins
// resolve the same request at once, exactly one UPDATE matches a row; the
// other sees zero rows affected and gets ErrRequestAlreadyProcessed. The role
// change runs in the same transaction, so a request is never marked ACCEPTED
// without the user actually holding the role, or the reverse.
//
// All statements inside the closure go through tx. On SQLite the pool has a
// single connection, and touching s.db.conn here would wait on the
// connection the transaction already holds.
func (s *RoleRequestStore) ApplyDecision(ctx context.Context, req *model.RoleRequest, decision model.RoleRequestStatus) error {
	if !decision.IsDecision() {
		return apperror.ValidationFailed("status", fmt.Sprintf("invalid decision %q", decision))
	}

	tx, err := s.db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: beginning transaction: %w", err)
	}
	// Rollback after a successful Commit is a no-op returning sql.ErrTxDone.
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		tx.Rebind(`UPDATE role_requests SET status = ?, updated_at = ? WHERE id = ? AND status = ?`),
		decision, now, req.ID, model.StatusPending,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: updating role request %d: %w", req.ID, err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.RequestAlreadyProcessed(req.ID)
	}

	if decision == model.StatusAccepted {
		if err := setRole(ctx, tx, req.UserID, req.Role); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlstore: committing role request %d: %w", req.ID, err)
	}

	req.Status = decision
	req.UpdatedAt = now
	return nil
}

// setRole runs on either the pool or an open transaction.
func setRole(ctx context.Context, ext sqlx.ExtContext, userID int64, role model.Role) error {
	res, err := ext.ExecContext(ctx,
		ext.Rebind(`UPDATE users SET role = ?, updated_at = ? WHERE id = ?`),
		role, time.Now().UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: setting role of user %d: %w", userID, err)
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
