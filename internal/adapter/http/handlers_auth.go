package adapthttp

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"msgboard/internal/app"

	"github.com/coreos/go-oidc/v3/oidc"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const stateCookieName = "oauth_state"

// OIDCConfig holds the provider and OAuth2 client used for single sign-on.
type OIDCConfig struct {
	Provider     *oidc.Provider
	OAuth2Config oauth2.Config
}

// NewOIDCConfig discovers issuer and builds the OAuth2 client.
func NewOIDCConfig(ctx context.Context, issuer, clientID, clientSecret, redirectURL string) (*OIDCConfig, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}
	return &OIDCConfig{
		Provider: provider,
		OAuth2Config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		},
	}, nil
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		s.render(w, r, http.StatusOK, "register", pageData{})
		return
	case http.MethodPost:
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
		return
	}

	username := r.PostFormValue("username")
	_, err := s.auth.Register(r.Context(), username, r.PostFormValue("password"))
	switch {
	case err == nil:
		s.cookies.setFlash(w, "Registration successful. Please log in.")
		redirect(w, r, "/login")
	case errors.Is(err, app.ErrMissingCredentials):
		s.render(w, r, http.StatusBadRequest, "register", pageData{Username: username, Flash: "Username and password are required."})
	case errors.Is(err, app.ErrUsernameTaken):
		s.render(w, r, http.StatusConflict, "register", pageData{Username: username, Flash: "Username already taken."})
	default:
		s.serverError(w, r, err)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		s.render(w, r, http.StatusOK, "login", pageData{})
		return
	case http.MethodPost:
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
		return
	}

	username := r.PostFormValue("username")
	token, user, err := s.auth.Login(r.Context(), username, r.PostFormValue("password"))
	if errors.Is(err, app.ErrInvalidCredentials) {
		s.render(w, r, http.StatusUnauthorized, "login", pageData{Username: username, Flash: "Invalid username or password."})
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	if err := s.cookies.setSession(w, token, s.auth.SessionTTL()); err != nil {
		s.serverError(w, r, err)
		return
	}
	s.cookies.setFlash(w, fmt.Sprintf("Welcome back, %s!", user.Username))
	redirect(w, r, "/")
}

// handleLogout clears the session unconditionally.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
		return
	}
	if token := identityFromContext(r).token; token != "" {
		if err := s.auth.Logout(r.Context(), token); err != nil {
			s.logger().Warn("delete session", zap.Error(err))
		}
	}
	s.cookies.clearSession(w)
	s.cookies.setFlash(w, "You have been logged out.")
	redirect(w, r, "/")
}

func (s *Server) handleSSOLogin(w http.ResponseWriter, r *http.Request) {
	if !s.ssoEnabled() {
		s.renderError(w, r, http.StatusNotFound, "Single sign-on is not enabled.")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	state, err := generateState()
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cookies.secure || r.TLS != nil,
		SameSite: http.SameSiteLaxMode, // Lax required for cross-site redirect returns
		MaxAge:   300,
	})
	http.Redirect(w, r, s.oidcConfig.OAuth2Config.AuthCodeURL(state), http.StatusFound)
}

func (s *Server) handleSSOCallback(w http.ResponseWriter, r *http.Request) {
	if !s.ssoEnabled() {
		s.renderError(w, r, http.StatusNotFound, "Single sign-on is not enabled.")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	state, err := r.Cookie(stateCookieName)
	if err != nil || !app.ConstantTimeCompare(r.URL.Query().Get("state"), state.Value) {
		s.renderError(w, r, http.StatusBadRequest, "Invalid login state.")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, MaxAge: -1, Path: "/"})

	ctx := r.Context()
	token, err := s.oidcConfig.OAuth2Config.Exchange(ctx, r.URL.Query().Get("code"))
	if err != nil {
		s.serverError(w, r, fmt.Errorf("exchange token: %w", err))
		return
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		s.serverError(w, r, errors.New("no id_token in token response"))
		return
	}

	idToken, err := s.oidcConfig.Provider.Verifier(&oidc.Config{ClientID: s.oidcConfig.OAuth2Config.ClientID}).Verify(ctx, rawIDToken)
	if err != nil {
		s.serverError(w, r, fmt.Errorf("verify id_token: %w", err))
		return
	}

	var claims struct {
		Email string `json:"email"`
		Sub   string `json:"sub"`
	}
	if err = idToken.Claims(&claims); err != nil {
		s.serverError(w, r, fmt.Errorf("parse claims: %w", err))
		return
	}

	username := claims.Email
	if username == "" {
		username = claims.Sub
	}

	sessionToken, user, err := s.auth.LoginWithUser(ctx, username)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if err := s.cookies.setSession(w, sessionToken, s.auth.SessionTTL()); err != nil {
		s.serverError(w, r, err)
		return
	}
	s.cookies.setFlash(w, fmt.Sprintf("Welcome back, %s!", user.Username))
	http.Redirect(w, r, "/", http.StatusFound)
}

func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
