package assets

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Config controls where page templates are loaded from.
type Config struct {
	// Overrides maps a page name (e.g. "login") to a template file on disk
	// that replaces the embedded page.
	Overrides map[string]string
}

// Pages holds parsed page templates keyed by name.
type Pages struct {
	mu        sync.RWMutex
	templates map[string]*template.Template
}

// New parses the embedded pages and applies any configured overrides.
func New(cfg Config) (*Pages, error) {
	p := &Pages{templates: make(map[string]*template.Template)}

	entries, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		name := strings.TrimSuffix(path.Base(entry), ".html")

		tmpl, err := template.ParseFS(templateFS, entry)
		if err != nil {
			return nil, fmt.Errorf("failed to parse embedded template %s: %w", entry, err)
		}
		p.templates[name] = tmpl
	}

	for name, file := range cfg.Overrides {
		if file == "" {
			continue
		}

		if err := p.Load(name, file); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Load replaces the page name with a template parsed from file.
func (p *Pages) Load(name, file string) error {
	tmpl, err := template.ParseFiles(file)
	if err != nil {
		return fmt.Errorf("failed to parse template %s: %w", file, err)
	}

	p.mu.Lock()
	p.templates[name] = tmpl
	p.mu.Unlock()

	log.Info().Str("page", name).Str("path", file).Msg("Loaded page template override")

	return nil
}

// Render executes the named page into a buffer and writes it with status.
// Nothing is written to w when rendering fails.
func (p *Pages) Render(w http.ResponseWriter, name string, status int, data any) error {
	p.mu.RLock()
	tmpl, ok := p.templates[name]
	p.mu.RUnlock()

	if !ok {
		return fmt.Errorf("page %q not found", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to render page %q: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// StaticHandler serves the embedded static files. Mount it with http.StripPrefix.
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServerFS(sub)
}
