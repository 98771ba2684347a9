package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"yumetv/internal/api"
	"yumetv/internal/models"
	"yumetv/internal/storage"
)

func newTestServer(t *testing.T, cfg Config) (*Server, *storage.Store) {
	t.Helper()
	backing, err := storage.NewFileStore(filepath.Join(t.TempDir(), "yumetv.json"))
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	synchronizer := storage.NewSynchronizer(backing, storage.WithDebounce(time.Hour))
	if err := synchronizer.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	tokens := 0
	store := storage.NewStore(synchronizer, storage.WithTokenFactory(func() string {
		tokens++
		return fmt.Sprintf("token-%d", tokens)
	}))

	codec, err := api.NewSessionCodec(api.SessionCodecConfig{Secret: "test-secret"})
	if err != nil {
		t.Fatalf("new session codec: %v", err)
	}
	handler := api.NewHandler(store, codec)

	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:0"
	}
	srv, err := New(handler, cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv, store
}

func doRequest(srv *Server, method, target, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	recorder := httptest.NewRecorder()
	srv.Handler().ServeHTTP(recorder, req)
	return recorder
}

// loginAsAdmin walks the real signup flow and promotes the account, so the
// session cookie comes from the server itself.
func loginAsAdmin(t *testing.T, srv *Server, store *storage.Store) *http.Cookie {
	t.Helper()
	resp := doRequest(srv, http.MethodPost, "/api/auth/register",
		`{"username":"root","email":"root@example.com","password":"correct horse"}`, nil)
	if resp.Code != http.StatusCreated {
		t.Fatalf("register: status %d, body %s", resp.Code, resp.Body.String())
	}
	user, err := store.VerifyEmail("token-1")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if _, err := store.UpdateUserRole(user.ID, models.RoleAdmin); err != nil {
		t.Fatalf("promote: %v", err)
	}
	resp = doRequest(srv, http.MethodPost, "/api/auth/login", `{"username":"root","password":"correct horse"}`, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("login: status %d, body %s", resp.Code, resp.Body.String())
	}
	cookies := resp.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("got %d cookies, want 1", len(cookies))
	}
	return cookies[0]
}

func TestHealthAndRequestHeaders(t *testing.T) {
	srv, _ := newTestServer(t, Config{})

	resp := doRequest(srv, http.MethodGet, "/healthz", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("health status = %d", resp.Code)
	}
	headers := resp.Header()
	for _, name := range []string{
		"Content-Security-Policy",
		"X-Frame-Options",
		"X-Content-Type-Options",
		"Referrer-Policy",
		"Permissions-Policy",
	} {
		if headers.Get(name) == "" {
			t.Errorf("missing %s header", name)
		}
	}
	if got := headers.Get("Content-Security-Policy"); got != "default-src 'none'; frame-ancestors 'none'" {
		t.Errorf("csp = %q, want the deny-all API policy", got)
	}
	if headers.Get("X-Request-Id") == "" {
		t.Error("missing X-Request-Id header")
	}
}

func TestMetricsEndpointExposesCounters(t *testing.T) {
	srv, _ := newTestServer(t, Config{})

	doRequest(srv, http.MethodGet, "/healthz", "", nil)
	resp := doRequest(srv, http.MethodGet, "/metrics", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "yumetv_http_requests_total") {
		t.Fatalf("metrics body lacks request counter: %s", resp.Body.String())
	}
}

func TestMaintenanceModeGatesAPI(t *testing.T) {
	srv, store := newTestServer(t, Config{})

	if _, err := store.SetMaintenanceMode(models.MaintenanceMode{Enabled: true, Message: "back soon"}); err != nil {
		t.Fatalf("enable maintenance: %v", err)
	}

	resp := doRequest(srv, http.MethodGet, "/api/media", "", nil)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.Code)
	}
	if resp.Header().Get("Retry-After") == "" {
		t.Error("503 should carry Retry-After")
	}
	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Success || body.Message != "back soon" {
		t.Fatalf("body = %+v", body)
	}

	// Auth endpoints and the public settings read stay reachable so admins
	// can sign in and clients can render the maintenance banner.
	if resp := doRequest(srv, http.MethodPost, "/api/auth/login", `{"username":"x","password":"y"}`, nil); resp.Code == http.StatusServiceUnavailable {
		t.Fatal("login must stay reachable during maintenance")
	}
	if resp := doRequest(srv, http.MethodGet, "/api/settings", "", nil); resp.Code != http.StatusOK {
		t.Fatalf("settings read during maintenance: status %d", resp.Code)
	}
	// Non-API paths are untouched.
	if resp := doRequest(srv, http.MethodGet, "/healthz", "", nil); resp.Code != http.StatusOK {
		t.Fatalf("health during maintenance: status %d", resp.Code)
	}
}

func TestMaintenanceModeAdmitsAdmins(t *testing.T) {
	srv, store := newTestServer(t, Config{})
	cookie := loginAsAdmin(t, srv, store)

	if _, err := store.SetMaintenanceMode(models.MaintenanceMode{Enabled: true}); err != nil {
		t.Fatalf("enable maintenance: %v", err)
	}

	if resp := doRequest(srv, http.MethodGet, "/api/media", "", cookie); resp.Code != http.StatusOK {
		t.Fatalf("admin during maintenance: status %d, body %s", resp.Code, resp.Body.String())
	}
	if resp := doRequest(srv, http.MethodGet, "/api/media", "", nil); resp.Code != http.StatusServiceUnavailable {
		t.Fatal("anonymous traffic should still be gated")
	}
}

func TestAdminEndpointsRequireRole(t *testing.T) {
	srv, _ := newTestServer(t, Config{})

	if resp := doRequest(srv, http.MethodGet, "/api/users", "", nil); resp.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous user list: status %d", resp.Code)
	}
	if resp := doRequest(srv, http.MethodPost, "/api/media", `{"title":"x","type":"Movie"}`, nil); resp.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous media create: status %d", resp.Code)
	}
}

func TestLoginThrottlePerClientIP(t *testing.T) {
	srv, _ := newTestServer(t, Config{
		RateLimit: RateLimitConfig{LoginLimit: 2, LoginWindow: time.Hour},
	})

	body := `{"username":"nobody","password":"wrong"}`
	for i := 0; i < 2; i++ {
		if resp := doRequest(srv, http.MethodPost, "/api/auth/login", body, nil); resp.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status %d, want 401", i+1, resp.Code)
		}
	}
	resp := doRequest(srv, http.MethodPost, "/api/auth/login", body, nil)
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("throttled attempt: status %d, want 429", resp.Code)
	}
	if resp.Header().Get("Retry-After") == "" {
		t.Error("throttled response should carry Retry-After")
	}

	// Another client is unaffected.
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	recorder := httptest.NewRecorder()
	srv.Handler().ServeHTTP(recorder, req)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("other client: status %d, want 401", recorder.Code)
	}
}

func TestGlobalRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, Config{
		RateLimit: RateLimitConfig{GlobalRPS: 0.001, GlobalBurst: 1},
	})

	if resp := doRequest(srv, http.MethodGet, "/healthz", "", nil); resp.Code != http.StatusOK {
		t.Fatalf("first request: status %d", resp.Code)
	}
	if resp := doRequest(srv, http.MethodGet, "/healthz", "", nil); resp.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: status %d, want 429", resp.Code)
	}
}
