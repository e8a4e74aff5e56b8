package login

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/logingate/internal/models"
	"github.com/wolfeidau/logingate/internal/store"
)

// GetSession loads and validates the session referenced by the request cookie.
// It returns ErrInvalidSession when there is no usable session, ErrExpiredSession
// when the session has expired, and a wrapped error for store failures.
func (h *Handler) GetSession(r *http.Request) (*models.Session, error) {
	sessionID, ok := sessionIDFromRequest(r)
	if !ok {
		return nil, ErrInvalidSession
	}

	session, err := h.sessions.Get(r.Context(), sessionID)
	switch {
	case errors.Is(err, store.ErrSessionNotFound):
		return nil, ErrInvalidSession
	case errors.Is(err, store.ErrSessionExpired):
		h.discardExpired(r, sessionID)
		return nil, ErrExpiredSession
	case err != nil:
		h.metrics.SessionStoreErrors.Add(r.Context(), 1)
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if session.IsExpired() {
		h.discardExpired(r, sessionID)
		return nil, ErrExpiredSession
	}

	if !session.IsAuthenticated() {
		return nil, ErrInvalidSession
	}

	return session, nil
}

func (h *Handler) discardExpired(r *http.Request, sessionID uuid.UUID) {
	if err := h.sessions.Delete(r.Context(), sessionID); err != nil && !errors.Is(err, store.ErrSessionNotFound) {
		log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Failed to delete expired session")
	}
}

// RequireAuth protects routes by requiring an authenticated session.
// Requests without one are redirected to redirectURL; an expired session adds
// error_code=expired. On success the session is added to the request context.
func (h *Handler) RequireAuth(redirectURL string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := h.GetSession(r)
			if err != nil {
				target := redirectURL
				reason := "invalid"

				switch {
				case errors.Is(err, ErrExpiredSession):
					reason = ErrorCodeExpired
					target = redirectURL + "?" + url.Values{"error_code": {ErrorCodeExpired}}.Encode()
					log.Debug().Str("path", r.URL.Path).Msg("Session expired, redirecting to login")
				case errors.Is(err, ErrInvalidSession):
					log.Debug().Str("path", r.URL.Path).Msg("No valid session, redirecting to login")
				default:
					reason = "error"
					log.Error().Err(err).Str("path", r.URL.Path).Msg("Session lookup failed, redirecting to login")
				}

				h.metrics.RecordGateRedirect(r.Context(), reason)
				http.Redirect(w, r, target, http.StatusFound)
				return
			}

			if err := h.sessions.UpdateLastUsed(r.Context(), session.SessionID); err != nil {
				log.Debug().Err(err).Str("session_id", session.SessionID.String()).Msg("Failed to update session last used")
			}

			log.Debug().Str("user", session.Username).Str("path", r.URL.Path).Msg("Session validated, allowing access")

			next.ServeHTTP(w, r.WithContext(withSession(r.Context(), session)))
		})
	}
}
