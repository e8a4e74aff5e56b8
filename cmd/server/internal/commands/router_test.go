package commands

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/logingate/internal/auth"
	"github.com/wolfeidau/logingate/internal/login"
	"github.com/wolfeidau/logingate/internal/store/memory"
)

type testServer struct {
	handler  http.Handler
	sessions *memory.SessionStore
}

func newTestServer(t *testing.T, cfg RouterConfig) *testServer {
	t.Helper()

	sessions := memory.NewSessionStore()
	authenticator, err := auth.NewStatic("admin", "password")
	require.NoError(t, err)

	gate, err := login.New(login.Config{Sessions: sessions, Authenticator: authenticator})
	require.NoError(t, err)

	cfg.Logger = zerolog.Nop()
	if cfg.CORSOrigins == nil {
		cfg.CORSOrigins = []string{"http://localhost:3000"}
	}

	handler, err := NewHandler(gate, cfg)
	require.NoError(t, err)

	return &testServer{handler: handler, sessions: sessions}
}

func (s *testServer) do(r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, r)
	return w
}

func loginForm(username, password string) *http.Request {
	form := url.Values{"username": {username}, "password": {password}}
	r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func findSessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == login.SessionCookieName {
			return c
		}
	}
	return nil
}

func TestNewHandler_loginScenario(t *testing.T) {
	srv := newTestServer(t, RouterConfig{})

	// login page
	w := srv.do(httptest.NewRequest(http.MethodGet, "/login", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "<form")

	// bad credentials
	w = srv.do(loginForm("admin", "wrong"))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Invalid username or password")
	require.Nil(t, findSessionCookie(w))

	// good credentials
	w = srv.do(loginForm("admin", "password"))
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/dashboard", w.Header().Get("Location"))
	cookie := findSessionCookie(w)
	require.NotNil(t, cookie)

	// dashboard
	r := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	r.AddCookie(cookie)
	w = srv.do(r)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Welcome to your dashboard, admin!", w.Body.String())
	require.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))

	// logout
	r = httptest.NewRequest(http.MethodGet, "/logout", nil)
	r.AddCookie(cookie)
	w = srv.do(r)
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/login", w.Header().Get("Location"))

	// gated again
	r = httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	r.AddCookie(cookie)
	w = srv.do(r)
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/login", w.Header().Get("Location"))
}

func TestNewHandler_routes(t *testing.T) {
	srv := newTestServer(t, RouterConfig{})

	tests := []struct {
		name             string
		method           string
		path             string
		expectedCode     int
		expectedLocation string
	}{
		{name: "root redirects to dashboard", method: http.MethodGet, path: "/", expectedCode: http.StatusFound, expectedLocation: "/dashboard"},
		{name: "anonymous dashboard", method: http.MethodGet, path: "/dashboard", expectedCode: http.StatusFound, expectedLocation: "/login"},
		{name: "post logout", method: http.MethodPost, path: "/logout", expectedCode: http.StatusFound, expectedLocation: "/login"},
		{name: "healthz", method: http.MethodGet, path: "/healthz", expectedCode: http.StatusOK},
		{name: "static css", method: http.MethodGet, path: "/public/login.css", expectedCode: http.StatusOK},
		{name: "unknown path", method: http.MethodGet, path: "/admin", expectedCode: http.StatusNotFound},
		{name: "wrong method", method: http.MethodDelete, path: "/dashboard", expectedCode: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := srv.do(httptest.NewRequest(tt.method, tt.path, nil))
			require.Equal(t, tt.expectedCode, w.Code)
			require.Equal(t, tt.expectedLocation, w.Header().Get("Location"))
		})
	}
}

func TestNewHandler_securityHeaders(t *testing.T) {
	srv := newTestServer(t, RouterConfig{})

	w := srv.do(httptest.NewRequest(http.MethodGet, "/login", nil))
	require.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	require.NotEmpty(t, w.Header().Get("Content-Security-Policy"))
}

func TestNewHandler_crossOriginFormRejected(t *testing.T) {
	srv := newTestServer(t, RouterConfig{})

	r := loginForm("admin", "password")
	r.Header.Set("Sec-Fetch-Site", "cross-site")
	r.Header.Set("Origin", "https://evil.example")

	w := srv.do(r)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Nil(t, findSessionCookie(w))
	require.Equal(t, 0, srv.sessions.Len())
}

func TestNewHandler_trustedOriginAllowed(t *testing.T) {
	srv := newTestServer(t, RouterConfig{TrustedOrigins: []string{"https://portal.example.com"}})

	r := loginForm("admin", "password")
	r.Header.Set("Sec-Fetch-Site", "cross-site")
	r.Header.Set("Origin", "https://portal.example.com")

	w := srv.do(r)
	require.Equal(t, http.StatusFound, w.Code)
	require.NotNil(t, findSessionCookie(w))
}

func TestNewHandler_invalidTrustedOrigin(t *testing.T) {
	sessions := memory.NewSessionStore()
	authenticator, err := auth.NewStatic("admin", "password")
	require.NoError(t, err)
	gate, err := login.New(login.Config{Sessions: sessions, Authenticator: authenticator})
	require.NoError(t, err)

	_, err = NewHandler(gate, RouterConfig{Logger: zerolog.Nop(), TrustedOrigins: []string{"not a url"}})
	require.Error(t, err)
}

func TestNewHandler_sessionAPI(t *testing.T) {
	srv := newTestServer(t, RouterConfig{})

	r := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	r.Header.Set("Origin", "http://localhost:3000")
	w := srv.do(r)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.JSONEq(t, `{"error":"unauthenticated"}`, w.Body.String())
	require.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	w = srv.do(loginForm("admin", "password"))
	cookie := findSessionCookie(w)
	require.NotNil(t, cookie)

	r = httptest.NewRequest(http.MethodGet, "/api/session", nil)
	r.AddCookie(cookie)
	w = srv.do(r)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"username":"admin"`)
}

func TestNewHandler_corsPreflight(t *testing.T) {
	srv := newTestServer(t, RouterConfig{})

	r := httptest.NewRequest(http.MethodOptions, "/api/session", nil)
	r.Header.Set("Origin", "http://localhost:3000")
	r.Header.Set("Access-Control-Request-Method", http.MethodGet)

	w := srv.do(r)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	r = httptest.NewRequest(http.MethodOptions, "/api/session", nil)
	r.Header.Set("Origin", "https://evil.example")
	r.Header.Set("Access-Control-Request-Method", http.MethodGet)

	w = srv.do(r)
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewHandler_healthChecks(t *testing.T) {
	srv := newTestServer(t, RouterConfig{
		HealthChecks: map[string]func(context.Context) error{
			"postgres": func(context.Context) error { return errors.New("connection refused") },
		},
	})

	w := srv.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.Contains(t, w.Body.String(), "postgres unavailable")
}

func TestNewHandler_recordsClientIP(t *testing.T) {
	srv := newTestServer(t, RouterConfig{TrustProxy: true})

	r := loginForm("admin", "password")
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	w := srv.do(r)
	require.Equal(t, http.StatusFound, w.Code)

	cookie := findSessionCookie(w)
	require.NotNil(t, cookie)

	sessionID, err := uuid.Parse(cookie.Value)
	require.NoError(t, err)

	session, err := srv.sessions.Get(context.Background(), sessionID)
	require.NoError(t, err)
	require.Equal(t, "203.0.113.9", session.IPAddress)
}

func TestIsAPIRoute(t *testing.T) {
	require.True(t, isAPIRoute("/api/session"))
	require.False(t, isAPIRoute("/login"))
	require.False(t, isAPIRoute("/apis"))
}
