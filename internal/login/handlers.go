package login

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	httpmiddleware "github.com/wolfeidau/logingate/internal/http"
	"github.com/wolfeidau/logingate/internal/models"
	"github.com/wolfeidau/logingate/internal/store"
	"github.com/wolfeidau/logingate/internal/telemetry"
)

const (
	maxLoginBodyBytes = 64 * 1024
	maxUserAgentLen   = 512
)

type loginPage struct {
	Title    string
	Error    string
	Username string
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRoutes mounts the login flow on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET "+LoginPath, h.LoginPage)
	mux.HandleFunc("POST "+LoginPath, h.LoginSubmit)
	mux.HandleFunc("GET /logout", h.LogoutHandler)
	mux.HandleFunc("POST /logout", h.LogoutHandler)
	mux.Handle("GET "+DashboardPath, h.RequireAuth(LoginPath)(http.HandlerFunc(h.DashboardHandler)))
}

// LoginPage renders the login form. The only error_code understood is "expired".
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	page := loginPage{Title: "Sign in"}
	if r.URL.Query().Get("error_code") == ErrorCodeExpired {
		page.Error = expiredSessionMessage
	}

	h.renderLogin(w, page)
}

// LoginSubmit validates the submitted credentials. On success a new session is issued
// and the client is redirected to the dashboard; on failure the form is rendered again
// with an error and no session state is touched.
func (h *Handler) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	creds, err := readCredentials(w, r)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("Failed to read login form")
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	ok := false
	if creds.Username != "" && creds.Password != "" {
		ok, err = h.authenticator.Authenticate(ctx, creds.Username, creds.Password)
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Str("user", creds.Username).Msg("Authenticator failed")
			h.metrics.RecordLoginAttempt(ctx, telemetry.LoginResultError)
			ok = false
		}
	}

	if !ok {
		if err == nil {
			h.metrics.RecordLoginAttempt(ctx, telemetry.LoginResultFailure)
		}
		log.Ctx(ctx).Info().Str("user", creds.Username).Msg("Login failed")
		h.renderLogin(w, loginPage{
			Title:    "Sign in",
			Error:    invalidCredentialsMessage,
			Username: creds.Username,
		})
		return
	}

	session, err := h.newSession(r, creds.Username)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("user", creds.Username).Msg("Failed to create session")
		h.metrics.SessionStoreErrors.Add(ctx, 1)
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	// a session presented before login is never reused
	if previousID, ok := sessionIDFromRequest(r); ok && previousID != session.SessionID {
		h.destroySession(r, previousID)
	}

	h.metrics.RecordLoginAttempt(ctx, telemetry.LoginResultSuccess)
	h.metrics.SessionsCreatedTotal.Add(ctx, 1)

	log.Ctx(ctx).Info().
		Str("user", session.Username).
		Str("session_id", session.SessionID.String()).
		Time("expires_at", session.ExpiresAt).
		Msg("User authenticated successfully")

	h.setSessionCookie(w, session.SessionID)
	http.Redirect(w, r, DashboardPath, http.StatusFound)
}

func (h *Handler) newSession(r *http.Request, username string) (*models.Session, error) {
	sessionID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	userAgent := r.UserAgent()
	if len(userAgent) > maxUserAgentLen {
		userAgent = userAgent[:maxUserAgentLen]
	}

	now := time.Now()
	session := &models.Session{
		SessionID:  sessionID,
		Username:   username,
		CreatedAt:  now,
		ExpiresAt:  now.Add(h.sessionTTL),
		LastUsedAt: now,
		UserAgent:  userAgent,
		IPAddress:  httpmiddleware.ClientIPFromContext(r.Context()),
	}

	if err := h.sessions.Create(r.Context(), session); err != nil {
		return nil, err
	}

	return session, nil
}

// LogoutHandler destroys the current session. Store failures are logged and the
// client is redirected to the login page regardless.
func (h *Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if sessionID, ok := sessionIDFromRequest(r); ok {
		h.destroySession(r, sessionID)
	}

	h.clearSessionCookie(w)
	http.Redirect(w, r, LoginPath, http.StatusFound)
}

func (h *Handler) destroySession(r *http.Request, sessionID uuid.UUID) {
	err := h.sessions.Delete(r.Context(), sessionID)
	switch {
	case err == nil:
		h.metrics.SessionsDestroyedTotal.Add(r.Context(), 1)
		log.Ctx(r.Context()).Debug().Str("session_id", sessionID.String()).Msg("Session destroyed")
	case errors.Is(err, store.ErrSessionNotFound):
		log.Ctx(r.Context()).Debug().Str("session_id", sessionID.String()).Msg("Session already gone")
	default:
		h.metrics.SessionStoreErrors.Add(r.Context(), 1)
		log.Ctx(r.Context()).Warn().Err(err).Str("session_id", sessionID.String()).Msg("Failed to destroy session")
	}
}

// DashboardHandler greets the user of the session in the request context.
// It must be wrapped by RequireAuth.
func (h *Handler) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, LoginPath, http.StatusFound)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "Welcome to your dashboard, %s!", session.Username)
}

type sessionResponse struct {
	Username   string    `json:"username"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	LastUsedAt time.Time `json:"last_used_at"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// SessionAPIHandler reports the current session as JSON, or 401 when there is none.
func (h *Handler) SessionAPIHandler(w http.ResponseWriter, r *http.Request) {
	session, err := h.GetSession(r)
	if err != nil {
		if !errors.Is(err, ErrInvalidSession) && !errors.Is(err, ErrExpiredSession) {
			log.Ctx(r.Context()).Error().Err(err).Msg("Session lookup failed")
		}
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthenticated"})
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		Username:   session.Username,
		CreatedAt:  session.CreatedAt.UTC(),
		ExpiresAt:  session.ExpiresAt.UTC(),
		LastUsedAt: session.LastUsedAt.UTC(),
	})
}

func (h *Handler) renderLogin(w http.ResponseWriter, page loginPage) {
	if err := h.pages.Render(w, "login", http.StatusOK, page); err != nil {
		log.Error().Err(err).Msg("Failed to render login page")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// readCredentials accepts url-encoded or multipart forms and JSON bodies.
func readCredentials(w http.ResponseWriter, r *http.Request) (credentials, error) {
	var creds credentials

	r.Body = http.MaxBytesReader(w, r.Body, maxLoginBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			return creds, fmt.Errorf("failed to decode json body: %w", err)
		}
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxLoginBodyBytes); err != nil {
			return creds, fmt.Errorf("failed to parse multipart form: %w", err)
		}
		creds.Username = r.PostFormValue("username")
		creds.Password = r.PostFormValue("password")
	default:
		if err := r.ParseForm(); err != nil {
			return creds, fmt.Errorf("failed to parse form: %w", err)
		}
		creds.Username = r.PostForm.Get("username")
		creds.Password = r.PostForm.Get("password")
	}

	return creds, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
