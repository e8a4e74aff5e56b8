package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/logingate/internal/models"
	"github.com/wolfeidau/logingate/internal/store"
)

const defaultKeyPrefix = "logingate:session:"

var _ store.SessionStore = (*SessionStore)(nil)

// SessionStore implements store.SessionStore using Redis.
// Each session is a JSON value whose key TTL matches the session's remaining lifetime,
// so Redis evicts expired sessions itself and an expired session reads as not found.
type SessionStore struct {
	client goredis.UniversalClient
	prefix string
}

// NewSessionStore creates a Redis-backed session store. An empty prefix uses the default.
func NewSessionStore(client goredis.UniversalClient, prefix string) *SessionStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &SessionStore{
		client: client,
		prefix: prefix,
	}
}

type sessionRecord struct {
	SessionID  uuid.UUID `json:"session_id"`
	Username   string    `json:"username"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	LastUsedAt time.Time `json:"last_used_at"`
	UserAgent  string    `json:"user_agent,omitempty"`
	IPAddress  string    `json:"ip_address,omitempty"`
}

func toRecord(s *models.Session) sessionRecord {
	return sessionRecord{
		SessionID:  s.SessionID,
		Username:   s.Username,
		CreatedAt:  s.CreatedAt,
		ExpiresAt:  s.ExpiresAt,
		LastUsedAt: s.LastUsedAt,
		UserAgent:  s.UserAgent,
		IPAddress:  s.IPAddress,
	}
}

func (r sessionRecord) toModel() *models.Session {
	return &models.Session{
		SessionID:  r.SessionID,
		Username:   r.Username,
		CreatedAt:  r.CreatedAt,
		ExpiresAt:  r.ExpiresAt,
		LastUsedAt: r.LastUsedAt,
		UserAgent:  r.UserAgent,
		IPAddress:  r.IPAddress,
	}
}

func (s *SessionStore) key(sessionID uuid.UUID) string {
	return s.prefix + sessionID.String()
}

// Create stores the session with a TTL equal to its remaining lifetime.
// A session that has already expired is not stored.
func (s *SessionStore) Create(ctx context.Context, session *models.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("failed to create session: %w", store.ErrSessionExpired)
	}

	data, err := json.Marshal(toRecord(session))
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := s.client.Set(ctx, s.key(session.SessionID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	log.Debug().
		Str("session_id", session.SessionID.String()).
		Str("username", session.Username).
		Dur("ttl", ttl).
		Msg("Created session")

	return nil
}

// Get retrieves a session by ID.
func (s *SessionStore) Get(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	record, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	session := record.toModel()

	// guards against clock skew between this process and redis
	if session.IsExpired() {
		return nil, store.ErrSessionExpired
	}

	return session, nil
}

// UpdateLastUsed updates the last used timestamp, keeping the key's TTL.
func (s *SessionStore) UpdateLastUsed(ctx context.Context, sessionID uuid.UUID) error {
	record, err := s.load(ctx, sessionID)
	if err != nil {
		return err
	}

	record.LastUsedAt = time.Now()

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	// XX so a session evicted between load and write is not resurrected
	err = s.client.SetArgs(ctx, s.key(sessionID), data, goredis.SetArgs{Mode: "XX", KeepTTL: true}).Err()
	if errors.Is(err, goredis.Nil) {
		return store.ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update session last used: %w", err)
	}

	return nil
}

// Delete deletes a session by ID (logout).
func (s *SessionStore) Delete(ctx context.Context, sessionID uuid.UUID) error {
	deleted, err := s.client.Del(ctx, s.key(sessionID)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	if deleted == 0 {
		return store.ErrSessionNotFound
	}

	log.Debug().
		Str("session_id", sessionID.String()).
		Msg("Deleted session")

	return nil
}

// DeleteExpired is a no-op, Redis expires session keys via TTL.
func (s *SessionStore) DeleteExpired(ctx context.Context) (int, error) {
	return 0, nil
}

func (s *SessionStore) load(ctx context.Context, sessionID uuid.UUID) (sessionRecord, error) {
	var record sessionRecord

	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return record, store.ErrSessionNotFound
	}
	if err != nil {
		return record, fmt.Errorf("failed to get session: %w", err)
	}

	if err := json.Unmarshal(data, &record); err != nil {
		return record, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return record, nil
}
