package assets

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_embeddedLoginPage(t *testing.T) {
	pages, err := New(Config{})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	err = pages.Render(w, "login", http.StatusOK, map[string]any{
		"Title":    "Sign in",
		"Error":    "Invalid username or password",
		"Username": `<script>alert(1)</script>`,
	})
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	require.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	body := w.Body.String()
	require.Contains(t, body, `<form method="post" action="/login">`)
	require.Contains(t, body, "Invalid username or password")
	require.NotContains(t, body, "<script>alert(1)</script>")
	require.Contains(t, body, "&lt;script&gt;")
}

func TestNew_override(t *testing.T) {
	file := filepath.Join(t.TempDir(), "custom.html")
	require.NoError(t, os.WriteFile(file, []byte(`<p>custom {{.Error}}</p>`), 0o600))

	pages, err := New(Config{Overrides: map[string]string{"login": file}})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	require.NoError(t, pages.Render(w, "login", http.StatusOK, map[string]any{"Error": "oops"}))
	require.Equal(t, "<p>custom oops</p>", w.Body.String())
}

func TestNew_overrideEmptyPathIgnored(t *testing.T) {
	pages, err := New(Config{Overrides: map[string]string{"login": ""}})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	require.NoError(t, pages.Render(w, "login", http.StatusOK, map[string]any{}))
	require.Contains(t, w.Body.String(), "<form")
}

func TestNew_overrideMissingFile(t *testing.T) {
	_, err := New(Config{Overrides: map[string]string{"login": filepath.Join(t.TempDir(), "missing.html")}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to parse template")
}

func TestPages_Render_unknownPage(t *testing.T) {
	pages, err := New(Config{})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	err = pages.Render(w, "missing", http.StatusOK, nil)
	require.Error(t, err)
	require.Empty(t, w.Body.String())
}

func TestPages_Render_executionError(t *testing.T) {
	file := filepath.Join(t.TempDir(), "broken.html")
	require.NoError(t, os.WriteFile(file, []byte(`{{.Missing.Field}}`), 0o600))

	pages, err := New(Config{})
	require.NoError(t, err)
	require.NoError(t, pages.Load("broken", file))

	w := httptest.NewRecorder()
	err = pages.Render(w, "broken", http.StatusOK, struct{ Missing *struct{ Field string } }{})
	require.Error(t, err)
	require.Empty(t, w.Body.String())
}

func TestStaticHandler(t *testing.T) {
	handler := http.StripPrefix("/public/", StaticHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/public/login.css", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body, err := io.ReadAll(w.Result().Body)
	require.NoError(t, err)
	require.Contains(t, string(body), ".login")
}
