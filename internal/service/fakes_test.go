package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sakif/blog-backend/internal/apperror"
	"github.com/sakif/blog-backend/internal/model"
	"github.com/sakif/blog-backend/internal/repository"
)

// =========================================================================
// FAKES
// =========================================================================
//
// In-memory stand-ins for the repositories. They follow the same error
// contract as sqlstore (which kinds come back for which situation), so the
// service tests exercise real branching without a database. Each fake has
// an "err" field to simulate a database failure.

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[int64]*model.User
	nextID int64
	err    error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*model.User), nextID: 1}
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, u := range f.users {
		if u.Email == user.Email {
			return apperror.EmailTaken(user.Email)
		}
		if user.OAuthID != nil && u.OAuthID != nil && *u.OAuthID == *user.OAuthID {
			return apperror.Conflict("user oauth", *user.OAuthID)
		}
	}
	if user.Role == "" {
		user.Role = model.RoleReader
	}
	user.ID = f.nextID
	f.nextID++
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.Email == email }, email)
}

func (f *fakeUserRepo) GetByOAuthID(_ context.Context, oauthID string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.OAuthID != nil && *u.OAuthID == oauthID }, oauthID)
}

func (f *fakeUserRepo) find(match func(*model.User) bool, key string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if match(u) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", key)
}

func (f *fakeUserRepo) LinkOAuthID(_ context.Context, userID int64, oauthID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return apperror.NotFound("user", strconv.FormatInt(userID, 10))
	}
	u.OAuthID = &oauthID
	return nil
}

func (f *fakeUserRepo) SetRole(_ context.Context, userID int64, role model.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return apperror.NotFound("user", strconv.FormatInt(userID, 10))
	}
	u.Role = role
	return nil
}

// add stores a user directly, bypassing the service under test.
func (f *fakeUserRepo) add(username string, role model.Role) *model.User {
	u := &model.User{Email: username + "@example.com", Username: username, Role: role}
	if err := f.Create(context.Background(), u); err != nil {
		panic(err)
	}
	return u
}

type fakeRoleRequestRepo struct {
	mu     sync.Mutex
	reqs   map[int64]*model.RoleRequest
	users  *fakeUserRepo
	nextID int64

	// applyHook runs at the start of ApplyDecision. Tests use it to resolve
	// the request "concurrently" between the service's read and its write.
	applyHook func()
}

func newFakeRoleRequestRepo(users *fakeUserRepo) *fakeRoleRequestRepo {
	return &fakeRoleRequestRepo{reqs: make(map[int64]*model.RoleRequest), users: users, nextID: 1}
}

var _ repository.RoleRequestRepository = (*fakeRoleRequestRepo)(nil)

func (f *fakeRoleRequestRepo) Create(_ context.Context, req *model.RoleRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	req.ID = f.nextID
	f.nextID++
	req.Status = model.StatusPending
	req.CreatedAt = time.Now().UTC()
	req.UpdatedAt = req.CreatedAt
	stored := *req
	f.reqs[req.ID] = &stored
	return nil
}

func (f *fakeRoleRequestRepo) GetByID(_ context.Context, id int64) (*model.RoleRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reqs[id]
	if !ok {
		return nil, apperror.RequestNotFound(id)
	}
	copied := *r
	return &copied, nil
}

func (f *fakeRoleRequestRepo) ListByStatus(_ context.Context, status model.RoleRequestStatus) ([]model.RoleRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.RoleRequest{}
	for _, r := range f.reqs {
		if r.Status == status {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRoleRequestRepo) ApplyDecision(ctx context.Context, req *model.RoleRequest, decision model.RoleRequestStatus) error {
	if f.applyHook != nil {
		f.applyHook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.reqs[req.ID]
	if !ok || stored.Status != model.StatusPending {
		return apperror.RequestAlreadyProcessed(req.ID)
	}
	if decision == model.StatusAccepted {
		if err := f.users.SetRole(ctx, req.UserID, req.Role); err != nil {
			return err
		}
	}
	stored.Status = decision
	req.Status = decision
	return nil
}

type fakeFollowRepo struct {
	mu       sync.Mutex
	edges    []model.FollowEdge
	users    *fakeUserRepo
	articles *fakeArticleRepo
	err      error
}

var _ repository.FollowRepository = (*fakeFollowRepo)(nil)

func (f *fakeFollowRepo) Follow(_ context.Context, followerID, followingID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, e := range f.edges {
		if e.FollowerID == followerID && e.FollowingID == followingID {
			return apperror.AlreadyFollowing()
		}
	}
	f.edges = append(f.edges, model.FollowEdge{FollowerID: followerID, FollowingID: followingID, CreatedAt: time.Now()})
	return nil
}

func (f *fakeFollowRepo) Unfollow(_ context.Context, followerID, followingID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, e := range f.edges {
		if e.FollowerID == followerID && e.FollowingID == followingID {
			f.edges = append(f.edges[:i], f.edges[i+1:]...)
			return nil
		}
	}
	return apperror.NotFollowing()
}

func (f *fakeFollowRepo) Followers(ctx context.Context, userID int64) ([]model.PublicProfile, error) {
	return f.profiles(ctx, func(e model.FollowEdge) (int64, bool) { return e.FollowerID, e.FollowingID == userID })
}

func (f *fakeFollowRepo) Following(ctx context.Context, userID int64) ([]model.PublicProfile, error) {
	return f.profiles(ctx, func(e model.FollowEdge) (int64, bool) { return e.FollowingID, e.FollowerID == userID })
}

func (f *fakeFollowRepo) profiles(ctx context.Context, pick func(model.FollowEdge) (int64, bool)) ([]model.PublicProfile, error) {
	f.mu.Lock()
	edges := append([]model.FollowEdge(nil), f.edges...)
	f.mu.Unlock()

	out := []model.PublicProfile{}
	for _, e := range edges {
		id, ok := pick(e)
		if !ok {
			continue
		}
		u, err := f.users.GetUserByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, model.PublicProfile{ID: u.ID, Username: u.Username, Email: u.Email})
	}
	return out, nil
}

func (f *fakeFollowRepo) Feed(ctx context.Context, q repository.FeedQuery) ([]model.Article, error) {
	if f.err != nil {
		return nil, f.err
	}
	following, _ := f.Following(ctx, q.FollowerID)
	followed := make(map[int64]bool, len(following))
	for _, p := range following {
		followed[p.ID] = true
	}

	all, _ := f.articles.List(ctx)
	term := strings.ToLower(q.Search)
	out := []model.Article{}
	for _, a := range all {
		if !followed[a.AuthorID] {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(a.Title), term) && !strings.Contains(strings.ToLower(a.Content), term) {
			continue
		}
		out = append(out, a)
	}

	if q.Offset >= len(out) {
		return []model.Article{}, nil
	}
	out = out[q.Offset:]
	if q.Limit < len(out) {
		out = out[:q.Limit]
	}
	return out, nil
}

type fakeArticleRepo struct {
	mu       sync.Mutex
	articles map[int64]*model.Article
	nextID   int64
}

func newFakeArticleRepo() *fakeArticleRepo {
	return &fakeArticleRepo{articles: make(map[int64]*model.Article), nextID: 1}
}

var _ repository.ArticleRepository = (*fakeArticleRepo)(nil)

func (f *fakeArticleRepo) Create(_ context.Context, a *model.Article) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.ID = f.nextID
	f.nextID++
	// Spread creation times so newest-first ordering is deterministic.
	a.CreatedAt = time.Unix(1_700_000_000+a.ID, 0).UTC()
	a.UpdatedAt = a.CreatedAt
	stored := *a
	f.articles[a.ID] = &stored
	return nil
}

func (f *fakeArticleRepo) GetByID(_ context.Context, id int64) (*model.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.articles[id]
	if !ok {
		return nil, apperror.ArticleNotFound(id)
	}
	copied := *a
	return &copied, nil
}

// List is newest first, like sqlstore.
func (f *fakeArticleRepo) List(_ context.Context) ([]model.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Article{}
	for _, a := range f.articles {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeArticleRepo) Update(_ context.Context, a *model.Article) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.articles[a.ID]
	if !ok {
		return apperror.ArticleNotFound(a.ID)
	}
	stored.Title, stored.Content = a.Title, a.Content
	return nil
}

func (f *fakeArticleRepo) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.articles[id]; !ok {
		return apperror.ArticleNotFound(id)
	}
	delete(f.articles, id)
	return nil
}
