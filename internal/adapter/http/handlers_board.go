package adapthttp

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"msgboard/internal/app"
	"msgboard/internal/domain"
)

const (
	flashMessageNotFound = "Message not found."
	flashLoginRequired   = "Please log in first."
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		msgs, err := s.board.List(r.Context())
		if err != nil {
			s.serverError(w, r, err)
			return
		}
		s.render(w, r, http.StatusOK, "index", pageData{Messages: msgs})

	case http.MethodPost:
		s.handlePost(w, r)

	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// handlePost stores a message, or a reply when reply_to is set. Empty content
// is silently ignored.
func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	post := app.Post{
		Content: r.PostFormValue("content"),
		Name:    r.PostFormValue("username"),
		User:    currentUser(r),
	}

	var err error
	if replyTo := strings.TrimSpace(r.PostFormValue("reply_to")); replyTo != "" {
		id, perr := strconv.ParseInt(replyTo, 10, 64)
		if perr != nil {
			err = app.ErrMessageNotFound
		} else {
			_, err = s.board.Reply(r.Context(), id, post)
		}
	} else {
		_, err = s.board.Post(r.Context(), post)
	}

	switch {
	case err == nil, errors.Is(err, app.ErrEmptyContent):
	case errors.Is(err, app.ErrMessageNotFound):
		s.cookies.setFlash(w, flashMessageNotFound)
	default:
		s.serverError(w, r, err)
		return
	}
	redirect(w, r, "/")
}

func (s *Server) handleReply(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	user := s.requireUser(w, r)
	if user == nil {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		s.renderError(w, r, http.StatusNotFound, "Message not found!")
		return
	}

	_, err = s.board.Reply(r.Context(), id, app.Post{Content: r.PostFormValue("content"), User: user})
	switch {
	case err == nil, errors.Is(err, app.ErrEmptyContent):
		redirect(w, r, "/")
	case errors.Is(err, app.ErrMessageNotFound):
		s.renderError(w, r, http.StatusNotFound, "Message not found!")
	default:
		s.serverError(w, r, err)
	}
}

func (s *Server) handleLike(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if s.requireUser(w, r) == nil {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		s.renderError(w, r, http.StatusNotFound, "Message not found!")
		return
	}

	_, err = s.board.Like(r.Context(), id)
	switch {
	case err == nil:
		redirect(w, r, "/")
	case errors.Is(err, app.ErrMessageNotFound):
		s.renderError(w, r, http.StatusNotFound, "Message not found!")
	default:
		s.serverError(w, r, err)
	}
}

// requireUser returns the caller or, for anonymous callers, redirects to the
// login page and returns nil.
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) *domain.User {
	user := currentUser(r)
	if user == nil {
		s.cookies.setFlash(w, flashLoginRequired)
		redirect(w, r, "/login")
		return nil
	}
	return user
}
