package login

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wolfeidau/logingate/internal/assets"
	"github.com/wolfeidau/logingate/internal/auth"
	"github.com/wolfeidau/logingate/internal/models"
	"github.com/wolfeidau/logingate/internal/store"
	"github.com/wolfeidau/logingate/internal/telemetry"
)

var (
	ErrInvalidSession = errors.New("invalid session")
	ErrExpiredSession = errors.New("session expired")
)

const (
	// DefaultSessionTTL is the absolute lifetime of a session from login.
	DefaultSessionTTL = time.Hour

	SessionCookieName = "_session"

	LoginPath     = "/login"
	DashboardPath = "/dashboard"

	// ErrorCodeExpired is sent as the error_code query parameter when a gated
	// request carried an expired session.
	ErrorCodeExpired = "expired"

	invalidCredentialsMessage = "Invalid username or password"
	expiredSessionMessage     = "Your session has expired, please sign in again"
)

type contextKey string

const sessionContextKey contextKey = "session"

// Config holds the dependencies of the login flow.
type Config struct {
	Sessions      store.SessionStore
	Authenticator auth.Authenticator
	Pages         *assets.Pages

	// SessionTTL defaults to DefaultSessionTTL.
	SessionTTL    time.Duration
	SecureCookies bool
}

// Handler serves the login form, issues and destroys sessions, and gates protected routes.
type Handler struct {
	sessions      store.SessionStore
	authenticator auth.Authenticator
	pages         *assets.Pages
	sessionTTL    time.Duration
	secureCookies bool
	metrics       *telemetry.Metrics
}

// New validates cfg and returns a Handler.
func New(cfg Config) (*Handler, error) {
	if cfg.Sessions == nil {
		return nil, errors.New("session store is required")
	}

	if cfg.Authenticator == nil {
		return nil, errors.New("authenticator is required")
	}

	if cfg.SessionTTL < 0 {
		return nil, fmt.Errorf("session TTL must be greater than 0, got %s", cfg.SessionTTL)
	}

	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}

	pages := cfg.Pages
	if pages == nil {
		var err error
		pages, err = assets.New(assets.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to load pages: %w", err)
		}
	}

	return &Handler{
		sessions:      cfg.Sessions,
		authenticator: cfg.Authenticator,
		pages:         pages,
		sessionTTL:    cfg.SessionTTL,
		secureCookies: cfg.SecureCookies,
		metrics:       telemetry.GetMetrics(),
	}, nil
}

// SessionTTL returns the configured session lifetime.
func (h *Handler) SessionTTL() time.Duration {
	return h.sessionTTL
}

// SessionFromContext extracts the session placed in the context by RequireAuth.
func SessionFromContext(ctx context.Context) (*models.Session, bool) {
	session, ok := ctx.Value(sessionContextKey).(*models.Session)
	return session, ok
}

func withSession(ctx context.Context, session *models.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}
