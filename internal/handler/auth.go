package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/blog-backend/internal/auth"
	"github.com/sakif/blog-backend/internal/model"
	"github.com/sakif/blog-backend/internal/service"
)

// Authenticator is the part of service.AuthService the auth routes use.
type Authenticator interface {
	Register(ctx context.Context, email, username, password string) (*service.AuthResult, error)
	Login(ctx context.Context, email, password string) (*service.AuthResult, error)
	LoginOrRegisterOAuth(ctx context.Context, profile *auth.OAuthProfile) (*service.AuthResult, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	TokenTTL() int
}

// AuthHandler serves /authentication: local register/login, the OAuth
// redirects and callbacks, logout and "who am I".
type AuthHandler struct {
	auth      Authenticator
	providers map[string]auth.OAuthProvider
	validate  *Validator
	logger    *slog.Logger
}

// NewAuthHandler takes the OAuth providers that are configured. A provider
// that is not passed has no routes.
func NewAuthHandler(a Authenticator, validate *Validator, logger *slog.Logger, providers ...auth.OAuthProvider) *AuthHandler {
	byName := make(map[string]auth.OAuthProvider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &AuthHandler{auth: a, providers: byName, validate: validate, logger: logger}
}

// Providers lists the configured provider names, for route registration.
func (h *AuthHandler) Providers() []string {
	names := make([]string, 0, len(h.providers))
	for name := range h.providers {
		names = append(names, name)
	}
	return names
}

// TokenResponse is the body of every successful login.
type TokenResponse struct {
	Token string `json:"token"`
}

type registerRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// HandleRegister creates a READER account.
//
// HTTP: POST /authentication/register
// BODY: {"email": "...", "username": "...", "password": "..."}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := h.validate.decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.auth.Register(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.setTokenCookie(w, res.Token)
	writeJSON(w, http.StatusOK, TokenResponse{Token: res.Token})
}

// HandleLogin exchanges an email/password pair for a token.
//
// HTTP: POST /authentication/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.validate.decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.setTokenCookie(w, res.Token)
	writeJSON(w, http.StatusOK, TokenResponse{Token: res.Token})
}

const stateCookie = "oauth_state"

// HandleOAuthLogin redirects to the provider's consent page.
//
// HTTP: GET /authentication/{provider}
//
// CSRF PROTECTION VIA STATE:
// A random state goes into a short-lived HttpOnly cookie and into the
// redirect. The callback only proceeds if the provider echoes the same value.
func (h *AuthHandler) HandleOAuthLogin(provider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := h.providers[provider]
		if !ok {
			http.NotFound(w, r)
			return
		}

		state := xid.New().String()
		http.SetCookie(w, &http.Cookie{
			Name:     stateCookie,
			Value:    state,
			Path:     "/authentication",
			MaxAge:   600,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		http.Redirect(w, r, p.AuthURL(state), http.StatusTemporaryRedirect)
	}
}

// HandleOAuthCallback finishes the code flow and answers with a token.
//
// HTTP: GET /authentication/{provider}/callback?code=...&state=...
//
// Any failure in the dance (bad state, user denied, provider error) sends
// the browser to /authentication/failure.
func (h *AuthHandler) HandleOAuthCallback(provider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := h.providers[provider]
		if !ok {
			http.NotFound(w, r)
			return
		}

		q := r.URL.Query()
		cookie, err := r.Cookie(stateCookie)
		if err != nil || cookie.Value == "" || q.Get("state") != cookie.Value {
			h.logger.Warn("oauth callback: state mismatch", slog.String("provider", provider))
			h.failOAuth(w, r)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/authentication", MaxAge: -1})

		if errParam := q.Get("error"); errParam != "" || q.Get("code") == "" {
			h.logger.Info("oauth callback: authorization denied",
				slog.String("provider", provider),
				slog.String("error", errParam),
			)
			h.failOAuth(w, r)
			return
		}

		profile, err := p.Exchange(r.Context(), q.Get("code"))
		if err != nil {
			h.logger.Error("oauth callback: exchange failed",
				slog.String("provider", provider),
				slog.String("error", err.Error()),
			)
			h.failOAuth(w, r)
			return
		}

		res, err := h.auth.LoginOrRegisterOAuth(r.Context(), profile)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}

		h.setTokenCookie(w, res.Token)
		writeJSON(w, http.StatusOK, TokenResponse{Token: res.Token})
	}
}

func (h *AuthHandler) failOAuth(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/authentication/failure", http.StatusSeeOther)
}

// HandleFailure is where failed OAuth attempts land.
//
// HTTP: GET /authentication/failure
func (h *AuthHandler) HandleFailure(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusUnauthorized, MessageResponse{Message: "Google Authentication Failed"})
}

// HandleLogout clears the token cookie. Bearer tokens stay valid until they
// expire; there is no server-side session to destroy.
//
// HTTP: POST /authentication/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if userID, ok := auth.UserIDFromContext(r.Context()); ok {
		h.logger.Info("user logged out", slog.Int64("userID", userID))
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, MessageResponse{Message: "logged out"})
}

// HandleMe returns the authenticated user.
//
// HTTP: GET /authentication/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	user, err := h.auth.GetUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// setTokenCookie stores the token for browser clients. API clients use the
// token from the body as a bearer header instead.
func (h *AuthHandler) setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   h.auth.TokenTTL(),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
