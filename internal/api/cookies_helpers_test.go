package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"yumetv/internal/models"
)

func newTestCodec(t *testing.T) *SessionCodec {
	t.Helper()
	codec, err := NewSessionCodec(SessionCodecConfig{Secret: "test-secret"})
	if err != nil {
		t.Fatalf("new session codec: %v", err)
	}
	return codec
}

func TestSessionCookieRoundTrip(t *testing.T) {
	codec := newTestCodec(t)
	user := models.User{ID: 7, Username: "aya", Role: models.RoleMod}

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "http://app.yume.tv/api/auth/login", nil)
	if err := codec.Set(recorder, req, user); err != nil {
		t.Fatalf("set: %v", err)
	}

	cookies := recorder.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("got %d cookies, want 1", len(cookies))
	}
	cookie := cookies[0]
	if cookie.Name != SessionCookieName {
		t.Fatalf("cookie name = %q", cookie.Name)
	}
	if !cookie.HttpOnly {
		t.Fatal("cookie must be HttpOnly")
	}
	if cookie.Domain != "yume.tv" {
		t.Fatalf("cookie domain = %q, want yume.tv", cookie.Domain)
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Fatalf("samesite = %v", cookie.SameSite)
	}

	next := httptest.NewRequest(http.MethodGet, "http://app.yume.tv/api/auth/session", nil)
	next.AddCookie(cookie)
	payload, ok := codec.Get(next)
	if !ok {
		t.Fatal("cookie should decode")
	}
	if payload.UserID != 7 || payload.Username != "aya" || payload.Role != models.RoleMod {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestSessionCookieRejectsTampering(t *testing.T) {
	codec := newTestCodec(t)
	other := newTestCodec(t)
	// Same secret decodes; a garbage value does not.
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	if err := codec.Set(recorder, req, models.User{ID: 1, Username: "aya", Role: models.RoleUser}); err != nil {
		t.Fatalf("set: %v", err)
	}
	cookie := recorder.Result().Cookies()[0]

	if _, ok := other.Get(requestWithCookie(cookie)); !ok {
		t.Fatal("same secret should decode")
	}

	cookie.Value = cookie.Value[:len(cookie.Value)-4] + "AAAA"
	if _, ok := codec.Get(requestWithCookie(cookie)); ok {
		t.Fatal("tampered cookie must not decode")
	}

	wrongSecret, err := NewSessionCodec(SessionCodecConfig{Secret: "other-secret"})
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	recorder = httptest.NewRecorder()
	if err := codec.Set(recorder, req, models.User{ID: 1, Username: "aya", Role: models.RoleUser}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, ok := wrongSecret.Get(requestWithCookie(recorder.Result().Cookies()[0])); ok {
		t.Fatal("cookie from a different secret must not decode")
	}
}

func requestWithCookie(cookie *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	return req
}

func TestClearExpiresCookie(t *testing.T) {
	codec := newTestCodec(t)
	recorder := httptest.NewRecorder()
	codec.Clear(recorder, httptest.NewRequest(http.MethodPost, "/", nil))

	cookies := recorder.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("got %d cookies, want 1", len(cookies))
	}
	if cookies[0].MaxAge != -1 {
		t.Fatalf("maxage = %d, want -1", cookies[0].MaxAge)
	}
	if cookies[0].Value != "" {
		t.Fatal("cleared cookie should carry no value")
	}
}

func TestRootDomain(t *testing.T) {
	cases := []struct {
		host string
		want string
	}{
		{"app.yume.tv", "yume.tv"},
		{"app.yume.tv:8443", "yume.tv"},
		{"yume.tv", "yume.tv"},
		{"deep.sub.app.yume.tv", "yume.tv"},
		{"localhost", ""},
		{"localhost:4200", ""},
		{"127.0.0.1", ""},
		{"127.0.0.1:8080", ""},
		{"[::1]:8080", ""},
		{"intranet-host", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := rootDomain(tc.host); got != tc.want {
			t.Errorf("rootDomain(%q) = %q, want %q", tc.host, got, tc.want)
		}
	}
}

func TestNewSessionCodecRequiresSecret(t *testing.T) {
	if _, err := NewSessionCodec(SessionCodecConfig{Secret: "   "}); err == nil {
		t.Fatal("expected an error for a blank secret")
	}
}
