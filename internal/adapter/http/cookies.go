package adapthttp

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	sessionCookieName = "session"
	flashCookieName   = "flash"
	flashTTL          = time.Minute
)

// cookieCodec signs and verifies cookie payloads as HS256 tokens keyed by the
// configured secret. The session cookie only carries the opaque session token.
type cookieCodec struct {
	key    []byte
	secure bool
}

type sessionClaims struct {
	jwt.RegisteredClaims
}

type flashClaims struct {
	Message string `json:"msg"`
	jwt.RegisteredClaims
}

func (c *cookieCodec) sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
}

func (c *cookieCodec) parse(raw string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return c.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return err
	}
	if !token.Valid {
		return errors.New("invalid cookie token")
	}
	return nil
}

func (c *cookieCodec) setCookie(w http.ResponseWriter, name, value string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge.Seconds()),
	})
}

func (c *cookieCodec) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		MaxAge:   -1,
	})
}

func (c *cookieCodec) setSession(w http.ResponseWriter, token string, ttl time.Duration) error {
	now := time.Now()
	signed, err := c.sign(sessionClaims{jwt.RegisteredClaims{
		ID:        token,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}})
	if err != nil {
		return err
	}
	c.setCookie(w, sessionCookieName, signed, ttl)
	return nil
}

// sessionToken returns the session token carried by r. present is true when a
// session cookie exists at all, so callers can clear a tampered one.
func (c *cookieCodec) sessionToken(r *http.Request) (token string, present bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	var claims sessionClaims
	if err := c.parse(cookie.Value, &claims); err != nil || claims.ID == "" {
		return "", true
	}
	return claims.ID, true
}

func (c *cookieCodec) clearSession(w http.ResponseWriter) {
	c.clearCookie(w, sessionCookieName)
}

func (c *cookieCodec) setFlash(w http.ResponseWriter, msg string) {
	signed, err := c.sign(flashClaims{
		Message:          msg,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(flashTTL))},
	})
	if err != nil {
		return
	}
	c.setCookie(w, flashCookieName, signed, flashTTL)
}

// popFlash returns the pending flash message, if any, and clears it. It must
// be called before the response header is written.
func (c *cookieCodec) popFlash(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	c.clearCookie(w, flashCookieName)
	var claims flashClaims
	if err := c.parse(cookie.Value, &claims); err != nil {
		return ""
	}
	return claims.Message
}
