package api

import (
	"crypto/sha256"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"golang.org/x/crypto/pbkdf2"

	"yumetv/internal/models"
)

// SessionCookieName matches the key the front end historically used for the
// persisted login, so existing clients keep their sessions across the
// migration.
const SessionCookieName = "yume_tv_currentUser"

// DefaultSessionMaxAge keeps users signed in for a year, mirroring the
// remember-forever behaviour of the original client-side session.
const DefaultSessionMaxAge = 365 * 24 * time.Hour

const (
	sessionHashSalt  = "yumetv-session-hash"
	sessionBlockSalt = "yumetv-session-block"
	keyIterations    = 4096
)

// sessionPayload is the authenticated identity stored in the cookie. The user
// record itself is re-read from the store on every request so role changes
// take effect immediately.
type sessionPayload struct {
	UserID   int         `json:"id"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
}

// SessionCodecConfig configures the session cookie codec.
type SessionCodecConfig struct {
	// Secret seeds the signing and encryption keys. Required.
	Secret string
	// CookieDomain overrides the domain derived from the request host.
	CookieDomain string
	// MaxAge bounds the session lifetime; defaults to DefaultSessionMaxAge.
	MaxAge time.Duration
}

// SessionCodec signs and encrypts the session cookie.
type SessionCodec struct {
	codec  *securecookie.SecureCookie
	domain string
	maxAge time.Duration
}

// NewSessionCodec derives cookie keys from cfg.Secret and returns the codec.
func NewSessionCodec(cfg SessionCodecConfig) (*SessionCodec, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, fmt.Errorf("session secret is required")
	}
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultSessionMaxAge
	}

	hashKey := pbkdf2.Key([]byte(secret), []byte(sessionHashSalt), keyIterations, 64, sha256.New)
	blockKey := pbkdf2.Key([]byte(secret), []byte(sessionBlockSalt), keyIterations, 32, sha256.New)

	codec := securecookie.New(hashKey, blockKey)
	codec.MaxAge(int(maxAge.Seconds()))

	return &SessionCodec{
		codec:  codec,
		domain: strings.TrimSpace(cfg.CookieDomain),
		maxAge: maxAge,
	}, nil
}

// Set writes the session cookie for user.
func (c *SessionCodec) Set(w http.ResponseWriter, r *http.Request, user models.User) error {
	payload := sessionPayload{UserID: user.ID, Username: user.Username, Role: user.Role}
	encoded, err := c.codec.Encode(SessionCookieName, payload)
	if err != nil {
		return fmt.Errorf("encode session cookie: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    encoded,
		Path:     "/",
		Domain:   c.cookieDomain(r),
		Expires:  time.Now().Add(c.maxAge).UTC(),
		MaxAge:   int(c.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Get decodes the session cookie on r.
func (c *SessionCodec) Get(r *http.Request) (sessionPayload, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return sessionPayload{}, false
	}
	var payload sessionPayload
	if err := c.codec.Decode(SessionCookieName, cookie.Value, &payload); err != nil {
		return sessionPayload{}, false
	}
	return payload, true
}

// Clear removes the session cookie.
func (c *SessionCodec) Clear(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   c.cookieDomain(r),
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func (c *SessionCodec) cookieDomain(r *http.Request) string {
	if c.domain != "" {
		return c.domain
	}
	if r == nil {
		return ""
	}
	return rootDomain(r.Host)
}

// rootDomain reduces a request host to its registrable-ish root so the cookie
// is shared across subdomains. Localhost, bare hostnames, and IP literals get
// no Domain attribute and stay host-only.
func rootDomain(host string) string {
	host = strings.TrimSpace(strings.ToLower(host))
	if host == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	if host == "localhost" || net.ParseIP(host) != nil {
		return ""
	}
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return ""
	}
	return strings.Join(labels[len(labels)-2:], ".")
}

func isSecureRequest(r *http.Request) bool {
	if r == nil {
		return false
	}
	if r.TLS != nil {
		return true
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		for _, p := range strings.Split(proto, ",") {
			if strings.EqualFold(strings.TrimSpace(p), "https") {
				return true
			}
		}
	}
	if r.URL != nil && strings.EqualFold(r.URL.Scheme, "https") {
		return true
	}
	return false
}
