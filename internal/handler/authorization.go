package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/blog-backend/internal/auth"
	"github.com/sakif/blog-backend/internal/model"
)

// RoleRequests is the part of service.RoleRequestService the routes use.
type RoleRequests interface {
	RequestRoleChange(ctx context.Context, userID int64, role model.Role) (*model.RoleRequest, error)
	ListPendingRequests(ctx context.Context) ([]model.RoleRequest, error)
	ResolveRoleRequest(ctx context.Context, requestID int64, decision model.RoleRequestStatus) (*model.RoleRequest, error)
}

// AuthorizationHandler serves /authorization, the role-request workflow.
type AuthorizationHandler struct {
	requests RoleRequests
	validate *Validator
	logger   *slog.Logger
}

func NewAuthorizationHandler(requests RoleRequests, validate *Validator, logger *slog.Logger) *AuthorizationHandler {
	return &AuthorizationHandler{requests: requests, validate: validate, logger: logger}
}

// HandleRequestWriter files a request to become a WRITER. No body.
//
// HTTP: POST /authorization/request-writer
func (h *AuthorizationHandler) HandleRequestWriter(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	if _, err := h.requests.RequestRoleChange(r.Context(), userID, model.RoleWriter); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Request to become a writer submitted"})
}

// HandleListPending lists PENDING requests, oldest first. ADMIN only.
//
// HTTP: GET /authorization/role-requests
func (h *AuthorizationHandler) HandleListPending(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.requests.ListPendingRequests(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

type resolveRequest struct {
	Status model.RoleRequestStatus `json:"status" validate:"required,oneof=ACCEPTED REJECTED"`
}

// HandleResolve accepts or rejects a request. ADMIN only.
//
// HTTP: POST /authorization/role-requests/{id}
// BODY: {"status": "ACCEPTED" | "REJECTED"}
func (h *AuthorizationHandler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var body resolveRequest
	if err := h.validate.decodeJSON(w, r, &body); err != nil {
		writeError(w, h.logger, err)
		return
	}

	req, err := h.requests.ResolveRoleRequest(r.Context(), id, body.Status)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	// RequireRole already loaded the admin.
	if admin, ok := auth.UserFromContext(r.Context()); ok {
		h.logger.Info("role request resolved by admin",
			slog.Int64("requestID", req.ID),
			slog.Int64("adminID", admin.ID),
			slog.String("status", string(req.Status)),
		)
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Role request " + string(req.Status)})
}
