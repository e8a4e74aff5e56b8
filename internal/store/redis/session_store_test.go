package redis

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/logingate/internal/models"
	"github.com/wolfeidau/logingate/internal/store"
)

func TestNewSessionStore_prefix(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{Addr: "localhost:0"})
	defer client.Close()

	id := uuid.MustParse("0190b6c4-6c1e-7cc4-9a53-3b1c1d5e7f00")

	st := NewSessionStore(client, "")
	require.Equal(t, "logingate:session:"+id.String(), st.key(id))

	st = NewSessionStore(client, "custom:")
	require.Equal(t, "custom:"+id.String(), st.key(id))
}

func TestSessionRecord_roundTrip(t *testing.T) {
	now := time.Now()
	session := &models.Session{
		SessionID:  uuid.New(),
		Username:   "admin",
		CreatedAt:  now,
		ExpiresAt:  now.Add(time.Hour),
		LastUsedAt: now,
		UserAgent:  "curl/8.0",
		IPAddress:  "192.0.2.1",
	}

	require.Equal(t, session, toRecord(session).toModel())
}

func TestSessionStore_Create_expired(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{Addr: "localhost:0"})
	defer client.Close()

	st := NewSessionStore(client, "")

	// rejected before any network call is made
	err := st.Create(context.Background(), &models.Session{
		SessionID: uuid.New(),
		Username:  "admin",
		ExpiresAt: time.Now().Add(-time.Minute),
	})
	require.ErrorIs(t, err, store.ErrSessionExpired)
}

func TestSessionStore_DeleteExpired_noop(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{Addr: "localhost:0"})
	defer client.Close()

	count, err := NewSessionStore(client, "").DeleteExpired(context.Background())
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestNewClient_missingAddr(t *testing.T) {
	_, err := NewClient(context.Background(), ClientConfig{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "redis address is required")
}
