// Package adapthttp implements the HTTP adapter for the message board:
// form handlers, session cookies and server-rendered HTML views.
package adapthttp

import (
	"errors"
	"net/http"
	"time"

	"msgboard/internal/app"

	"go.uber.org/zap"
)

// Options configures a Server.
type Options struct {
	// SecretKey signs session and flash cookies. Required.
	SecretKey []byte
	// SecureCookies marks cookies Secure (HTTPS only).
	SecureCookies bool
	// TrustForwardAuth accepts the Remote-User header from an authenticating proxy.
	TrustForwardAuth bool
	// OIDC enables single sign-on when non-nil.
	OIDC   *OIDCConfig
	Logger *zap.Logger
}

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	board    *app.BoardService
	auth     *app.AuthService
	profiles *app.ProfileService

	cookies          *cookieCodec
	views            *views
	oidcConfig       *OIDCConfig
	trustForwardAuth bool
	log              *zap.Logger
}

// New creates a Server wired to the given application services.
func New(board *app.BoardService, auth *app.AuthService, profiles *app.ProfileService, opts Options) (*Server, error) {
	if len(opts.SecretKey) == 0 {
		return nil, errors.New("secret key is required")
	}
	v, err := loadViews()
	if err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		board:            board,
		auth:             auth,
		profiles:         profiles,
		cookies:          &cookieCodec{key: opts.SecretKey, secure: opts.SecureCookies},
		views:            v,
		oidcConfig:       opts.OIDC,
		trustForwardAuth: opts.TrustForwardAuth,
		log:              log,
	}, nil
}

func (s *Server) logger() *zap.Logger {
	if s.log == nil {
		return zap.NewNop()
	}
	return s.log
}

func (s *Server) ssoEnabled() bool {
	return s.oidcConfig != nil
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	mux.HandleFunc("/{$}", s.handleIndex)
	mux.HandleFunc("/reply/{id}", s.handleReply)
	mux.HandleFunc("/like/{id}", s.handleLike)

	mux.HandleFunc("/register", s.handleRegister)
	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/logout", s.handleLogout)
	mux.HandleFunc("/auth/sso/login", s.handleSSOLogin)
	mux.HandleFunc("/auth/sso/callback", s.handleSSOCallback)

	mux.HandleFunc("/profile/{username}", s.handleProfile)
	mux.HandleFunc("/clear_notifications", s.handleClearNotifications)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		s.renderError(w, r, http.StatusNotFound, "Page not found!")
	})

	return s.loggingMiddleware(withNoCache(s.identify(mux)))
}

// HTTPServer wraps Handler in an *http.Server with the given timeouts.
func (s *Server) HTTPServer(addr string, readTimeout, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
		ErrorLog:          zap.NewStdLog(s.logger().Named("server")),
	}
}
