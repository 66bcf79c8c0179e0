package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sakif/blog-backend/internal/auth"
	"github.com/sakif/blog-backend/internal/handler"
	"github.com/sakif/blog-backend/internal/model"
	"github.com/sakif/blog-backend/internal/service"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// MockAuthenticator records the arguments of the last call and returns
// whatever the test put in Result/Err.
type MockAuthenticator struct {
	Result *service.AuthResult
	User   *model.User
	Err    error

	CapturedEmail   string
	CapturedProfile *auth.OAuthProfile
}

func (m *MockAuthenticator) Register(ctx context.Context, email, username, password string) (*service.AuthResult, error) {
	m.CapturedEmail = email
	return m.Result, m.Err
}

func (m *MockAuthenticator) Login(ctx context.Context, email, password string) (*service.AuthResult, error) {
	m.CapturedEmail = email
	return m.Result, m.Err
}

func (m *MockAuthenticator) LoginOrRegisterOAuth(ctx context.Context, profile *auth.OAuthProfile) (*service.AuthResult, error) {
	m.CapturedProfile = profile
	return m.Result, m.Err
}

func (m *MockAuthenticator) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return m.User, m.Err
}

func (m *MockAuthenticator) TokenTTL() int { return 3600 }

// MockProvider is an OAuth provider that never leaves the process.
type MockProvider struct {
	Profile *auth.OAuthProfile
	Err     error

	CapturedCode string
}

func (m *MockProvider) Name() string { return "github" }

func (m *MockProvider) AuthURL(state string) string {
	return "https://provider.example/authorize?state=" + state
}

func (m *MockProvider) Exchange(ctx context.Context, code string) (*auth.OAuthProfile, error) {
	m.CapturedCode = code
	return m.Profile, m.Err
}

type MockRoleRequests struct {
	Request *model.RoleRequest
	List    []model.RoleRequest
	Err     error

	CapturedID       int64
	CapturedDecision model.RoleRequestStatus
	CapturedUserID   int64
}

func (m *MockRoleRequests) RequestRoleChange(ctx context.Context, userID int64, role model.Role) (*model.RoleRequest, error) {
	m.CapturedUserID = userID
	return m.Request, m.Err
}

func (m *MockRoleRequests) ListPendingRequests(ctx context.Context) ([]model.RoleRequest, error) {
	return m.List, m.Err
}

func (m *MockRoleRequests) ResolveRoleRequest(ctx context.Context, id int64, decision model.RoleRequestStatus) (*model.RoleRequest, error) {
	m.CapturedID = id
	m.CapturedDecision = decision
	if m.Err != nil {
		return nil, m.Err
	}
	return &model.RoleRequest{ID: id, Status: decision}, nil
}

type MockFollows struct {
	Relations *model.Relations
	Feed      []model.Article
	Err       error

	CapturedFollower  int64
	CapturedFollowing int64
	CapturedParams    service.FeedParams
}

func (m *MockFollows) Follow(ctx context.Context, followerID, followingID int64) error {
	m.CapturedFollower, m.CapturedFollowing = followerID, followingID
	return m.Err
}

func (m *MockFollows) Unfollow(ctx context.Context, followerID, followingID int64) error {
	m.CapturedFollower, m.CapturedFollowing = followerID, followingID
	return m.Err
}

func (m *MockFollows) ListRelations(ctx context.Context, userID int64) (*model.Relations, error) {
	return m.Relations, m.Err
}

func (m *MockFollows) ComputeFeed(ctx context.Context, userID int64, p service.FeedParams) ([]model.Article, error) {
	m.CapturedParams = p
	return m.Feed, m.Err
}

type MockArticles struct {
	Article  *model.Article
	Articles []model.Article
	Err      error

	CapturedAuthor int64
	CapturedID     int64
	CapturedTitle  string
}

func (m *MockArticles) List(ctx context.Context) ([]model.Article, error) {
	return m.Articles, m.Err
}

func (m *MockArticles) Get(ctx context.Context, id int64) (*model.Article, error) {
	m.CapturedID = id
	return m.Article, m.Err
}

func (m *MockArticles) Create(ctx context.Context, authorID int64, title, content string) (*model.Article, error) {
	m.CapturedAuthor, m.CapturedTitle = authorID, title
	return m.Article, m.Err
}

func (m *MockArticles) Update(ctx context.Context, authorID, id int64, title, content string) (*model.Article, error) {
	m.CapturedAuthor, m.CapturedID, m.CapturedTitle = authorID, id, title
	return m.Article, m.Err
}

func (m *MockArticles) Delete(ctx context.Context, authorID, id int64) error {
	m.CapturedAuthor, m.CapturedID = authorID, id
	return m.Err
}

// serve routes one request through a chi router with a single route, so
// URL parameters resolve exactly as in production. userID > 0 marks the
// request as authenticated.
func serve(method, pattern, target, body string, userID int64, h http.HandlerFunc) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Method(method, pattern, h)

	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID > 0 {
		req = req.WithContext(auth.WithUserID(req.Context(), userID))
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) handler.ErrorResponse {
	t.Helper()
	var body handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	return body
}

func decodeMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body handler.MessageResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	return body.Message
}
