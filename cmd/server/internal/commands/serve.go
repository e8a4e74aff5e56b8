package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/wolfeidau/logingate/internal/assets"
	"github.com/wolfeidau/logingate/internal/logger"
	"github.com/wolfeidau/logingate/internal/login"
	"github.com/wolfeidau/logingate/internal/store"
	"github.com/wolfeidau/logingate/internal/telemetry"
)

const (
	defaultUsername = "admin"
	defaultPassword = "password"
)

type ServeCmd struct {
	// Server configuration
	Listen          string        `help:"HTTP server listen address" default:"127.0.0.1:3000" env:"LOGINGATE_LISTEN"`
	Cert            string        `help:"path to TLS cert file, serves plain HTTP when empty" default:"" env:"LOGINGATE_TLS_CERT"`
	Key             string        `help:"path to TLS key file" default:"" env:"LOGINGATE_TLS_KEY"`
	ShutdownTimeout time.Duration `help:"grace period for in-flight requests on shutdown" default:"10s" env:"LOGINGATE_SHUTDOWN_TIMEOUT"`
	TrustProxy      bool          `help:"trust X-Forwarded-For and X-Real-IP for the client address" default:"false" env:"LOGINGATE_TRUST_PROXY"`

	// Origin configuration
	CORSOrigins    []string `help:"allowed CORS origins for API requests" default:"http://localhost:3000" env:"LOGINGATE_CORS_ORIGINS"`
	TrustedOrigins []string `help:"extra origins allowed to submit HTML forms cross-origin" env:"LOGINGATE_TRUSTED_ORIGINS"`

	// Session configuration
	SessionTTL      time.Duration `help:"absolute session lifetime" default:"1h" env:"LOGINGATE_SESSION_TTL"`
	SecureCookies   bool          `help:"set the Secure flag on the session cookie" default:"false" env:"LOGINGATE_SECURE_COOKIES"`
	CleanupInterval time.Duration `help:"interval between expired session sweeps, 0 disables" default:"5m" env:"LOGINGATE_CLEANUP_INTERVAL"`
	LoginTemplate   string        `help:"path to an html/template file replacing the built in login page" default:"" env:"LOGINGATE_LOGIN_TEMPLATE"`

	// Authentication configuration
	AuthType  string `help:"authenticator (static, file or postgres)" default:"static" env:"LOGINGATE_AUTH_TYPE" enum:"static,file,postgres"`
	Username  string `help:"username accepted by the static authenticator" default:"admin" env:"LOGINGATE_USERNAME"`
	Password  string `help:"password accepted by the static authenticator" default:"password" env:"LOGINGATE_PASSWORD"`
	UsersFile string `help:"YAML user directory for the file authenticator" default:"" env:"LOGINGATE_USERS_FILE"`

	// Observability
	Tracing          bool    `help:"enable OTLP tracing and metrics export" default:"false" env:"LOGINGATE_TRACING"`
	TraceSampleRatio float64 `help:"fraction of traces sampled when tracing is enabled" default:"1" env:"LOGINGATE_TRACE_SAMPLE_RATIO"`

	// Store configuration
	StoreType     string        `help:"session store type (memory, postgres or redis)" default:"memory" env:"LOGINGATE_STORE_TYPE" enum:"memory,postgres,redis"`
	PostgresStore PostgresFlags `embed:"" prefix:"postgres-"`
	RedisStore    RedisFlags    `embed:"" prefix:"redis-"`
}

func (c *ServeCmd) Validate() error {
	if c.SessionTTL <= 0 {
		return errors.New("session TTL must be greater than 0")
	}
	if (c.Cert == "") != (c.Key == "") {
		return errors.New("TLS certificate and key must be provided together (--cert and --key)")
	}
	if c.CleanupInterval < 0 {
		return errors.New("cleanup interval must not be negative")
	}
	return nil
}

func (c *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting login gate")

	if c.Tracing {
		log.Info().Msg("Tracing is enabled")
		shutdown, err := telemetry.InitTelemetry(ctx, telemetry.Config{
			ServiceName: "logingate",
			Version:     globals.Version,
			SampleRatio: c.TraceSampleRatio,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
			shutdown = func(ctx context.Context) error { return nil }
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
	}

	deps, err := c.buildDependencies(ctx)
	if err != nil {
		return err
	}
	defer deps.Close()

	pages, err := assets.New(assets.Config{
		Overrides: map[string]string{"login": c.LoginTemplate},
	})
	if err != nil {
		return fmt.Errorf("failed to load pages: %w", err)
	}

	gate, err := login.New(login.Config{
		Sessions:      deps.sessions,
		Authenticator: deps.authenticator,
		Pages:         pages,
		SessionTTL:    c.SessionTTL,
		SecureCookies: c.SecureCookies,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize login handler: %w", err)
	}

	if c.CleanupInterval > 0 && !deps.expiresNatively {
		metrics := telemetry.GetMetrics()
		cleaner := store.NewCleaner(ctx, deps.sessions, c.CleanupInterval, func(count int) {
			metrics.SessionsExpiredTotal.Add(ctx, int64(count))
		})
		defer cleaner.Stop()
	}

	handler, err := NewHandler(gate, RouterConfig{
		Logger:         log,
		CORSOrigins:    c.CORSOrigins,
		TrustedOrigins: c.TrustedOrigins,
		TrustProxy:     c.TrustProxy,
		HealthChecks:   deps.checks,
	})
	if err != nil {
		return err
	}

	if c.Cert != "" {
		if _, err := os.Stat(c.Cert); err != nil {
			return fmt.Errorf("TLS certificate not found at %s: %w", c.Cert, err)
		}
		if _, err := os.Stat(c.Key); err != nil {
			return fmt.Errorf("TLS key not found at %s: %w", c.Key, err)
		}
	}

	srv := configureHTTPServer(c.Listen, handler)

	errCh := make(chan error, 1)
	go func() {
		if c.Cert != "" {
			log.Info().Str("addr", c.Listen).Msg("Starting HTTPS server")
			errCh <- srv.ListenAndServeTLS(c.Cert, c.Key)
			return
		}
		if !c.SecureCookies {
			log.Warn().Msg("Serving plain HTTP without secure cookies, terminate TLS in front of this server in production")
		}
		log.Info().Str("addr", c.Listen).Msg("Starting HTTP server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), c.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}
