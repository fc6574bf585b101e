package adapthttp

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"msgboard/internal/app"
	"msgboard/internal/domain"

	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"index", "register", "login", "profile", "error"}

const timestampLayout = "2006-01-02 15:04:05"

type views struct {
	pages map[string]*template.Template
}

func loadViews() (*views, error) {
	// html/template only normalizes the path part of a URL; names used as a
	// path segment go through pathEscape.
	funcs := template.FuncMap{
		"timestamp":  func(t time.Time) string { return t.Local().Format(timestampLayout) },
		"isoTime":    func(t time.Time) string { return t.UTC().Format(time.RFC3339) },
		"pathEscape": url.PathEscape,
	}
	v := &views{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		v.pages[name] = t
	}
	return v, nil
}

// pageData is the single view model shared by every page.
type pageData struct {
	CurrentUser *domain.User
	Flash       string
	SSOEnabled  bool

	Messages []domain.Message
	Profile  *app.Profile
	Username string
	Status   int
	Error    string
}

// render executes page into a buffer first so template failures become a
// clean 500 instead of a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data pageData) {
	t, ok := s.views.pages[page]
	if !ok {
		s.serverError(w, r, fmt.Errorf("unknown page %q", page))
		return
	}

	data.CurrentUser = currentUser(r)
	data.SSOEnabled = s.ssoEnabled()
	// A pending flash is consumed even when the page carries its own notice.
	if pending := s.cookies.popFlash(w, r); data.Flash == "" {
		data.Flash = pending
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		s.logger().Error("render template", zap.String("page", page), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.render(w, r, status, "error", pageData{Status: status, Error: msg})
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger().Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	s.renderError(w, r, http.StatusInternalServerError, "Something went wrong.")
}
