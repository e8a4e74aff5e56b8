package commands

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"filippo.io/csrf"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/logingate/internal/assets"
	httpmiddleware "github.com/wolfeidau/logingate/internal/http"
	"github.com/wolfeidau/logingate/internal/logger"
	"github.com/wolfeidau/logingate/internal/login"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// RouterConfig configures the middleware around the login routes.
type RouterConfig struct {
	Logger         zerolog.Logger
	CORSOrigins    []string
	TrustedOrigins []string
	TrustProxy     bool

	// HealthChecks are run by /healthz; any failure reports 503.
	HealthChecks map[string]func(context.Context) error
}

// NewHandler composes the full HTTP handler: login routes, static assets, health and
// the session API, wrapped with CSRF protection on HTML routes and CORS on API routes.
func NewHandler(gate *login.Handler, cfg RouterConfig) (http.Handler, error) {
	mux := http.NewServeMux()

	gate.RegisterRoutes(mux)

	mux.Handle("GET /public/", http.StripPrefix("/public/", assets.StaticHandler()))
	mux.HandleFunc("GET /healthz", healthHandler(cfg.HealthChecks))
	mux.HandleFunc("GET /api/session", gate.SessionAPIHandler)
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, login.DashboardPath, http.StatusFound)
	})

	// CSRF protection for HTML pages (not applied to API routes)
	protection := csrf.New()
	for _, origin := range cfg.TrustedOrigins {
		if err := protection.AddTrustedOrigin(origin); err != nil {
			return nil, fmt.Errorf("invalid trusted origin %q: %w", origin, err)
		}
	}

	htmlHandler := protection.Handler(mux)
	apiHandler := withCORS(cfg.CORSOrigins, mux)

	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isAPIRoute(r.URL.Path) {
			apiHandler.ServeHTTP(w, r)
			return
		}
		htmlHandler.ServeHTTP(w, r)
	})

	handler = httpmiddleware.SecurityHeaders()(handler)
	handler = gzhttp.GzipHandler(handler)
	handler = logger.RequestLogger(cfg.Logger)(handler)
	handler = httpmiddleware.ClientIPMiddleware(cfg.TrustProxy)(handler)

	return otelhttp.NewHandler(handler, "logingate",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/healthz"
		}),
	), nil
}

// isAPIRoute returns true if the path is an API route that needs CORS instead of CSRF
func isAPIRoute(path string) bool {
	return strings.HasPrefix(path, "/api/")
}

func withCORS(allowedOrigins []string, h http.Handler) http.Handler {
	middleware := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true, // Required for cookie-based authentication
		MaxAge:           300,
	})
	return middleware.Handler(h)
}

func healthHandler(checks map[string]func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		for name, check := range checks {
			if err := check(ctx); err != nil {
				log.Warn().Err(err).Str("check", name).Msg("Health check failed")
				http.Error(w, name+" unavailable", http.StatusServiceUnavailable)
				return
			}
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write([]byte("ok"))
	}
}
