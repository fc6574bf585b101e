package adapthttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"msgboard/internal/app"
	"msgboard/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const identityContextKey contextKey = "identity"

// identity is the request-scoped view of who is calling. token is empty for
// anonymous requests and for forward-auth requests.
type identity struct {
	user  *domain.User
	token string
}

func identityFromContext(r *http.Request) identity {
	id, _ := r.Context().Value(identityContextKey).(identity)
	return id
}

// currentUser returns the authenticated user, or nil for anonymous requests.
func currentUser(r *http.Request) *domain.User {
	return identityFromContext(r).user
}

// identify resolves the caller into a request-scoped identity. It never
// rejects a request: routes that need a user check currentUser themselves.
func (s *Server) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		// Forward-auth header from a trusted proxy takes precedence.
		if s.trustForwardAuth {
			if remoteUser := r.Header.Get("Remote-User"); remoteUser != "" {
				user, err := s.auth.ValidateForwardAuth(ctx, remoteUser)
				if err == nil && user != nil {
					next.ServeHTTP(w, withIdentity(r, identity{user: user}))
					return
				}
				s.logger().Warn("forward auth rejected", zap.String("remote_user", remoteUser), zap.Error(err))
			}
		}

		token, present := s.cookies.sessionToken(r)
		if !present {
			next.ServeHTTP(w, r)
			return
		}
		if token == "" {
			s.cookies.clearSession(w)
			next.ServeHTTP(w, r)
			return
		}

		user, err := s.auth.ValidateSession(ctx, token)
		switch {
		case err == nil:
			next.ServeHTTP(w, withIdentity(r, identity{user: user, token: token}))
		case errors.Is(err, app.ErrSessionNotFound),
			errors.Is(err, app.ErrSessionExpired),
			errors.Is(err, app.ErrUserNotFound):
			s.cookies.clearSession(w)
			next.ServeHTTP(w, r)
		default:
			s.serverError(w, r, err)
		}
	})
}

func withIdentity(r *http.Request, id identity) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), identityContextKey, id))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rec *statusRecorder) WriteHeader(code int) {
	if rec.status == 0 {
		rec.status = code
	}
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	if rec.status == 0 {
		rec.status = http.StatusOK
	}
	n, err := rec.ResponseWriter.Write(b)
	rec.bytes += n
	return n, err
}

// loggingMiddleware writes one access-log line per request and tags the
// response with a request id.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}

		s.logger().Info("request",
			zap.String("request_id", reqID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Int("bytes", rec.bytes),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote_addr", r.RemoteAddr),
		)
	})
}
