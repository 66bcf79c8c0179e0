package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/blog-backend/internal/apperror"
	"github.com/sakif/blog-backend/internal/model"
	"github.com/sakif/blog-backend/internal/repository"
)

// RoleRequestService runs the role-change workflow.
//
// STATE MACHINE:
//
//	PENDING ──► ACCEPTED   (user.role := request.role, same transaction)
//	   │
//	   └──────► REJECTED   (user.role untouched)
//
// A request is created PENDING by the user and resolved exactly once by an
// admin. The "exactly once" part is enforced by the repository's conditional
// update, not by the status check here. The check here only gives a clean
// error for the common, non-racing case.
type RoleRequestService struct {
	users    repository.UserRepository
	requests repository.RoleRequestRepository
	logger   *slog.Logger
}

func NewRoleRequestService(
	users repository.UserRepository,
	requests repository.RoleRequestRepository,
	logger *slog.Logger,
) *RoleRequestService {
	return &RoleRequestService{users: users, requests: requests, logger: logger}
}

// RequestRoleChange records userID's ask for role. It fails with
// AlreadyInRole when the user already holds it. Several PENDING requests from
// one user are allowed.
func (s *RoleRequestService) RequestRoleChange(ctx context.Context, userID int64, role model.Role) (*model.RoleRequest, error) {
	if !role.Valid() {
		return nil, apperror.ValidationFailed("role", fmt.Sprintf("unknown role %q", role))
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role == role {
		return nil, apperror.AlreadyInRole(string(role))
	}

	req := &model.RoleRequest{UserID: userID, Role: role}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("service/roles: creating request for user %d: %w", userID, err)
	}

	s.logger.Info("role request submitted",
		slog.Int64("requestID", req.ID),
		slog.Int64("userID", userID),
		slog.String("role", string(role)),
	)
	return req, nil
}

// ListPendingRequests returns every PENDING request, oldest first.
func (s *RoleRequestService) ListPendingRequests(ctx context.Context) ([]model.RoleRequest, error) {
	reqs, err := s.requests.ListByStatus(ctx, model.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("service/roles: listing pending requests: %w", err)
	}
	return reqs, nil
}

// ResolveRoleRequest accepts or rejects a PENDING request.
func (s *RoleRequestService) ResolveRoleRequest(ctx context.Context, requestID int64, decision model.RoleRequestStatus) (*model.RoleRequest, error) {
	if !decision.IsDecision() {
		return nil, apperror.ValidationFailed("status", "status must be ACCEPTED or REJECTED")
	}

	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != model.StatusPending {
		return nil, apperror.RequestAlreadyProcessed(requestID)
	}

	if err := s.requests.ApplyDecision(ctx, req, decision); err != nil {
		if errors.Is(err, apperror.ErrRequestAlreadyProcessed) {
			s.logger.Warn("role request resolved concurrently", slog.Int64("requestID", requestID))
			return nil, err
		}
		return nil, fmt.Errorf("service/roles: resolving request %d: %w", requestID, err)
	}

	s.logger.Info("role request resolved",
		slog.Int64("requestID", req.ID),
		slog.Int64("userID", req.UserID),
		slog.String("role", string(req.Role)),
		slog.String("status", string(req.Status)),
	)
	return req, nil
}
