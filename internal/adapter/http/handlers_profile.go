package adapthttp

import (
	"errors"
	"net/http"
	"net/url"

	"msgboard/internal/app"
)

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	profile, err := s.profiles.Get(r.Context(), r.PathValue("username"), currentUser(r))
	if errors.Is(err, app.ErrUserNotFound) {
		s.renderError(w, r, http.StatusNotFound, "User not found!")
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "profile", pageData{Profile: profile})
}

func (s *Server) handleClearNotifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	user := s.requireUser(w, r)
	if user == nil {
		return
	}

	if _, err := s.profiles.ClearNotifications(r.Context(), user.ID); err != nil {
		s.serverError(w, r, err)
		return
	}
	s.cookies.setFlash(w, "Notifications cleared.")
	redirect(w, r, "/profile/"+url.PathEscape(user.Username))
}
