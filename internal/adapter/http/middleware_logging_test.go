package adapthttp

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggingMiddleware(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := &Server{log: zap.New(core)}
	// Create a dummy handler
	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("OK"))
	})

	// Wrap it
	handler := s.loggingMiddleware(nextHandler)

	req := httptest.NewRequest("GET", "/test-path", nil)
	req.Header.Set("X-Request-ID", "req-1")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	// Check response
	if w.Code != http.StatusTeapot {
		t.Errorf("Expected status %d, got %d", http.StatusTeapot, w.Code)
	}
	if got := w.Header().Get("X-Request-ID"); got != "req-1" {
		t.Errorf("Expected request id to be echoed, got %q", got)
	}

	// Check log
	entries := logs.FilterMessage("request").All()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["method"] != "GET" || fields["path"] != "/test-path" || fields["status"] != int64(418) {
		t.Errorf("Log entry missing expected fields. Got: %v", fields)
	}
	if fields["request_id"] != "req-1" || fields["bytes"] != int64(2) {
		t.Errorf("Log entry has wrong request id or size. Got: %v", fields)
	}
}

func TestLoggingMiddlewareDefaultsStatus(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := &Server{log: zap.New(core)}
	handler := s.loggingMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	entries := logs.All()
	if len(entries) != 1 || entries[0].ContextMap()["status"] != int64(200) {
		t.Fatalf("Expected a single 200 entry, got %v", entries)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("Expected a generated request id")
	}
}

func TestCookieCodecRoundTrip(t *testing.T) {
	c := &cookieCodec{key: []byte("0123456789abcdef")}

	w := httptest.NewRecorder()
	if err := c.setSession(w, "tok-1", time.Hour); err != nil {
		t.Fatal(err)
	}
	c.setFlash(w, "hello")

	req := httptest.NewRequest("GET", "/", nil)
	for _, ck := range w.Result().Cookies() {
		if !ck.HttpOnly || ck.SameSite != http.SameSiteLaxMode {
			t.Errorf("cookie %s should be HttpOnly and SameSite=Lax", ck.Name)
		}
		req.AddCookie(ck)
	}

	token, present := c.sessionToken(req)
	if !present || token != "tok-1" {
		t.Errorf("Expected session token tok-1, got %q (present=%v)", token, present)
	}

	w2 := httptest.NewRecorder()
	if msg := c.popFlash(w2, req); msg != "hello" {
		t.Errorf("Expected flash 'hello', got %q", msg)
	}
	cleared := w2.Result().Cookies()
	if len(cleared) != 1 || cleared[0].Name != flashCookieName || cleared[0].MaxAge >= 0 {
		t.Errorf("Expected popFlash to clear the flash cookie, got %v", cleared)
	}
}

func TestCookieCodecRejectsForeignKey(t *testing.T) {
	signer := &cookieCodec{key: []byte("key-one-0123456789")}
	verifier := &cookieCodec{key: []byte("key-two-0123456789")}

	w := httptest.NewRecorder()
	if err := signer.setSession(w, "tok", time.Hour); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest("GET", "/", nil)
	for _, ck := range w.Result().Cookies() {
		req.AddCookie(ck)
	}

	token, present := verifier.sessionToken(req)
	if !present || token != "" {
		t.Errorf("Expected a present but invalid session, got %q (present=%v)", token, present)
	}
}

func TestCookieCodecNoCookie(t *testing.T) {
	c := &cookieCodec{key: []byte("0123456789abcdef")}
	req := httptest.NewRequest("GET", "/", nil)

	if _, present := c.sessionToken(req); present {
		t.Error("Expected no session")
	}
	if msg := c.popFlash(httptest.NewRecorder(), req); msg != "" {
		t.Errorf("Expected no flash, got %q", msg)
	}
}
