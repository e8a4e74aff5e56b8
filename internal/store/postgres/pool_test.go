package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPoolConfig_ApplyDefaults(t *testing.T) {
	cfg := &PoolConfig{ConnString: "postgres://localhost/test"}
	cfg.ApplyDefaults()

	require.Equal(t, int32(10), cfg.MaxConns)
	require.Equal(t, int32(1), cfg.MinConns)
	require.Equal(t, time.Hour, cfg.MaxConnLifetime)
	require.Equal(t, 30*time.Minute, cfg.MaxConnIdleTime)
	require.Equal(t, time.Minute, cfg.HealthCheckPeriod)
	require.Equal(t, 10*time.Second, cfg.ConnectTimeout)
}

func TestPoolConfig_ApplyDefaults_keepsExplicitValues(t *testing.T) {
	cfg := &PoolConfig{ConnString: "postgres://localhost/test", MaxConns: 3, MinConns: 2}
	cfg.ApplyDefaults()

	require.Equal(t, int32(3), cfg.MaxConns)
	require.Equal(t, int32(2), cfg.MinConns)
}

func TestPoolConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     PoolConfig
		wantErr string
	}{
		{
			name:    "missing connection string",
			cfg:     PoolConfig{MaxConns: 1, MinConns: 1},
			wantErr: "connection string is required",
		},
		{
			name:    "min exceeds max",
			cfg:     PoolConfig{ConnString: "postgres://localhost/test", MaxConns: 1, MinConns: 5},
			wantErr: "exceeds max conns",
		},
		{
			name: "valid",
			cfg:  PoolConfig{ConnString: "postgres://localhost/test", MaxConns: 5, MinConns: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewPool_nilConfig(t *testing.T) {
	_, err := NewPool(context.Background(), nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "pool config is required")
}

func TestNewPool_invalidConnString(t *testing.T) {
	_, err := NewPool(context.Background(), &PoolConfig{ConnString: "://not a url"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to parse connection string")
}

func TestLoadMigrations(t *testing.T) {
	migrations, err := loadMigrations()
	require.NoError(t, err)
	require.Len(t, migrations, 2)

	require.Equal(t, 1, migrations[0].version)
	require.Equal(t, "1_sessions.sql", migrations[0].name)
	require.Contains(t, migrations[0].content, "CREATE TABLE IF NOT EXISTS sessions")

	require.Equal(t, 2, migrations[1].version)
	require.Contains(t, migrations[1].content, "CREATE TABLE IF NOT EXISTS users")
}
