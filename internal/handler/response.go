package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON / writeError, so every error body
// has the same shape:
//
//	{"error": "already_following", "message": "User already followed"}
//
// "error" is a stable machine-readable code; "message" is for humans.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/blog-backend/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// MessageResponse is the body of endpoints that only confirm an action.
type MessageResponse struct {
	Message string `json:"message"`
}

// writeJSON sends a JSON response with the given status code.
//
// Headers and status must be written before the body. Once Encode writes,
// later header changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// errorMapping is the kind → HTTP table. Order matters only in that the
// first matching kind wins; no error wraps two kinds.
//
// The domain kinds all answer 400, the status API clients already expect,
// but each gets its own code so clients can branch without parsing text.
var errorMapping = []struct {
	kind   error
	status int
	code   string
}{
	{apperror.ErrValidation, http.StatusBadRequest, "validation_error"},
	{apperror.ErrUnauthenticated, http.StatusUnauthorized, "unauthorized"},
	{apperror.ErrForbidden, http.StatusForbidden, "forbidden"},
	{apperror.ErrNotFound, http.StatusNotFound, "not_found"},
	{apperror.ErrConflict, http.StatusConflict, "conflict"},

	{apperror.ErrAlreadyInRole, http.StatusBadRequest, "already_in_role"},
	{apperror.ErrRequestNotFound, http.StatusBadRequest, "request_not_found"},
	{apperror.ErrRequestAlreadyProcessed, http.StatusBadRequest, "request_already_processed"},
	{apperror.ErrAlreadyFollowing, http.StatusBadRequest, "already_following"},
	{apperror.ErrNotFollowing, http.StatusBadRequest, "not_following"},
	{apperror.ErrArticleNotFound, http.StatusBadRequest, "article_not_found"},
	{apperror.ErrNotAuthor, http.StatusBadRequest, "not_author"},
	{apperror.ErrInvalidCredentials, http.StatusBadRequest, "invalid_credentials"},
	{apperror.ErrEmailTaken, http.StatusBadRequest, "email_taken"},
}

// writeError maps a service error to an HTTP response.
//
// Anything that is not an *apperror.AppError is an unexpected failure: it is
// logged with its full chain and the client only sees a generic 500. Raw
// errors can carry SQL or file paths.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		for _, m := range errorMapping {
			if errors.Is(err, m.kind) {
				writeJSON(w, m.status, ErrorResponse{
					Error:   m.code,
					Message: appErr.Message,
					Field:   appErr.Field,
				})
				return
			}
		}
	}

	logger.Error("unhandled error", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// pathID reads a positive integer URL parameter such as {articleId}.
func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed(name, name+" must be a positive integer")
	}
	return id, nil
}
