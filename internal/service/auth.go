package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/sakif/blog-backend/internal/apperror"
	"github.com/sakif/blog-backend/internal/auth"
	"github.com/sakif/blog-backend/internal/model"
	"github.com/sakif/blog-backend/internal/repository"
)

// AuthService handles registration, login and OAuth sign-in.
//
//	AuthHandler (HTTP) → AuthService → UserRepository (DB)
//	                               ↘ TokenService (JWT), PasswordService (bcrypt)
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user and the issued token so the handler can set
// the cookie and write the response in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// Register creates a local account with role READER and returns a token
// for it.
func (s *AuthService) Register(ctx context.Context, email, username, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	username = strings.TrimSpace(username)

	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, apperror.ValidationFailed("email", "a valid email is required")
	}
	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}
	if len(username) > MaxUsernameLength {
		return nil, apperror.ValidationFailed("username",
			fmt.Sprintf("username must be %d characters or less", MaxUsernameLength))
	}
	if len(password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperror.ValidationFailed("password", "password must be 72 bytes or fewer")
		}
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Email:        email,
		Username:     username,
		PasswordHash: &hash,
		Role:         model.RoleReader,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		slog.Int64("userID", user.ID),
		slog.String("username", user.Username),
	)

	return s.issue(user)
}

// Login checks an email/password pair.
//
// An unknown email, an OAuth-only account and a wrong password all return
// the same InvalidCredentials error, so the response does not reveal which
// emails are registered. The unknown-email path still spends a bcrypt
// comparison for the same reason.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.passwords.VerifyDummy(password)
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: looking up %s: %w", email, err)
	}

	if user.PasswordHash == nil {
		s.passwords.VerifyDummy(password)
		return nil, apperror.InvalidCredentials()
	}

	if err := s.passwords.Verify(*user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: verifying password of user %d: %w", user.ID, err)
	}

	s.logger.Info("user logged in", slog.Int64("userID", user.ID))
	return s.issue(user)
}

// LoginOrRegisterOAuth signs in a user coming back from Google or GitHub.
//
//  1. A user already linked to this provider id is signed in.
//  2. Otherwise, a local account with the same email gets the provider id
//     linked to it and is signed in.
//  3. Otherwise a new READER account without a password is created.
//
// Step 2 trusts the provider's email. Both providers only return verified
// addresses (see auth.GoogleProvider and auth.GitHubProvider).
func (s *AuthService) LoginOrRegisterOAuth(ctx context.Context, profile *auth.OAuthProfile) (*AuthResult, error) {
	if profile == nil || profile.Subject == "" || profile.Email == "" {
		return nil, errors.New("service/auth: oauth profile must have a subject and an email")
	}
	oauthID := profile.OAuthID()

	user, err := s.users.GetByOAuthID(ctx, oauthID)
	if err == nil {
		s.logger.Info("user authenticated via oauth",
			slog.Int64("userID", user.ID),
			slog.String("provider", profile.Provider),
		)
		return s.issue(user)
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: looking up %s: %w", oauthID, err)
	}

	email := normalizeEmail(profile.Email)
	user, err = s.linkExisting(ctx, email, oauthID)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return s.issue(user)
	}

	user = &model.User{
		Email:    email,
		Username: oauthUsername(profile),
		Role:     model.RoleReader,
		OAuthID:  &oauthID,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if !errors.Is(err, apperror.ErrEmailTaken) {
			return nil, err
		}
		// Someone registered the email between our lookup and the insert.
		user, err = s.linkExisting(ctx, email, oauthID)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, fmt.Errorf("service/auth: user %s vanished during oauth sign-in", email)
		}
		return s.issue(user)
	}

	s.logger.Info("user registered via oauth",
		slog.Int64("userID", user.ID),
		slog.String("provider", profile.Provider),
	)
	return s.issue(user)
}

// linkExisting links oauthID to the account with email, if there is one.
// It returns (nil, nil) when no account has that email.
func (s *AuthService) linkExisting(ctx context.Context, email, oauthID string) (*model.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: looking up %s: %w", email, err)
	}

	if err := s.users.LinkOAuthID(ctx, user.ID, oauthID); err != nil {
		return nil, fmt.Errorf("service/auth: linking %s to user %d: %w", oauthID, user.ID, err)
	}
	user.OAuthID = &oauthID

	s.logger.Info("oauth identity linked", slog.Int64("userID", user.ID), slog.String("oauthID", oauthID))
	return user, nil
}

// GetUserByID returns the user behind an authenticated request.
func (s *AuthService) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	if id <= 0 {
		return nil, apperror.ValidationFailed("id", "user id must be positive")
	}
	return s.users.GetUserByID(ctx, id)
}

// TokenTTL is the lifetime of issued tokens, for the cookie's Max-Age.
func (s *AuthService) TokenTTL() int {
	return int(s.tokens.TTL().Seconds())
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %d: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// oauthUsername picks a display name: the provider's name, or the local
// part of the email.
func oauthUsername(p *auth.OAuthProfile) string {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name, _, _ = strings.Cut(p.Email, "@")
	}
	if len(name) > MaxUsernameLength {
		name = name[:MaxUsernameLength]
	}
	return name
}
