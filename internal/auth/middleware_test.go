package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/sakif/blog-backend/internal/apperror"
	"github.com/sakif/blog-backend/internal/model"
)

// echoUserID writes the context user id so tests can see what got through.
var echoUserID = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	id, ok := UserIDFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, strconv.FormatInt(id, 10))
})

func TestRequireAuth(t *testing.T) {
	ts := newTestTokenService(t)
	valid, _ := ts.Generate(3)
	expired, _ := ts.GenerateWithDuration(3, -time.Minute)

	tests := []struct {
		name       string
		setup      func(r *http.Request)
		wantStatus int
	}{
		{
			name:       "bearer header",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+valid) },
			wantStatus: http.StatusOK,
		},
		{
			name:       "lowercase scheme",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "bearer "+valid) },
			wantStatus: http.StatusOK,
		},
		{
			name:       "cookie fallback",
			setup:      func(r *http.Request) { r.AddCookie(&http.Cookie{Name: TokenCookie, Value: valid}) },
			wantStatus: http.StatusOK,
		},
		{
			name:       "no credentials",
			setup:      func(r *http.Request) {},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "basic scheme",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "Basic Zm9vOmJhcg==") },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "expired",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+expired) },
			wantStatus: http.StatusUnauthorized,
		},
		{
			// A bad header is not rescued by a good cookie.
			name: "bad header with good cookie",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer nope")
				r.AddCookie(&http.Cookie{Name: TokenCookie, Value: valid})
			},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()

			RequireAuth(ts)(echoUserID).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus == http.StatusUnauthorized && rec.Header().Get("Content-Type") != "application/json" {
				t.Errorf("401 Content-Type = %q, want application/json", rec.Header().Get("Content-Type"))
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	ts := newTestTokenService(t)
	valid, _ := ts.Generate(3)

	anon := httptest.NewRecorder()
	OptionalAuth(ts)(echoUserID).ServeHTTP(anon, httptest.NewRequest(http.MethodGet, "/", nil))
	if anon.Code != http.StatusNoContent {
		t.Errorf("anonymous status = %d, want 204", anon.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+valid)
	authed := httptest.NewRecorder()
	OptionalAuth(ts)(echoUserID).ServeHTTP(authed, req)
	if authed.Code != http.StatusOK {
		t.Errorf("authenticated status = %d, want 200", authed.Code)
	}
}

type stubUsers map[int64]*model.User

func (s stubUsers) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	if id == 500 {
		return nil, errors.New("db down")
	}
	u, ok := s[id]
	if !ok {
		return nil, apperror.NotFound("user", "x")
	}
	return u, nil
}

func TestRequireRole(t *testing.T) {
	users := stubUsers{
		1: {ID: 1, Role: model.RoleAdmin},
		2: {ID: 2, Role: model.RoleWriter},
		3: {ID: 3, Role: model.RoleReader},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var seen *model.User
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	writersOnly := RequireRole(users, logger, model.RoleWriter)(final)

	tests := []struct {
		name       string
		userID     int64
		wantStatus int
	}{
		{"writer allowed", 2, http.StatusOK},
		{"admin is not a writer", 1, http.StatusForbidden},
		{"reader forbidden", 3, http.StatusForbidden},
		{"deleted account", 99, http.StatusUnauthorized},
		{"anonymous", 0, http.StatusUnauthorized},
		{"lookup failure", 500, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodPost, "/articles", nil)
			if tt.userID != 0 {
				req = req.WithContext(WithUserID(req.Context(), tt.userID))
			}
			rec := httptest.NewRecorder()

			writersOnly.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && (seen == nil || seen.ID != tt.userID) {
				t.Errorf("UserFromContext() = %+v, want user %d", seen, tt.userID)
			}
		})
	}
}
