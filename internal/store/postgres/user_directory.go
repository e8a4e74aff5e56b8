package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/logingate/internal/auth"
	"github.com/wolfeidau/logingate/internal/store"
)

var _ auth.Authenticator = (*UserDirectory)(nil)

// UserDirectory authenticates users against the users table.
// Passwords are stored as bcrypt hashes.
type UserDirectory struct {
	pool *pgxpool.Pool
}

// NewUserDirectory creates a new PostgreSQL-backed user directory.
func NewUserDirectory(pool *pgxpool.Pool) *UserDirectory {
	return &UserDirectory{
		pool: pool,
	}
}

// Authenticate implements auth.Authenticator.
// Unknown and disabled users are rejected without an error.
func (d *UserDirectory) Authenticate(ctx context.Context, username, password string) (bool, error) {
	query := `SELECT password_hash, disabled FROM users WHERE username = $1`

	var (
		passwordHash string
		disabled     bool
	)
	err := d.pool.QueryRow(ctx, query, username).Scan(&passwordHash, &disabled)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			auth.RejectPassword(password)
			return false, nil
		}
		return false, fmt.Errorf("failed to lookup user: %w", mapPostgresError(err))
	}

	if disabled {
		log.Debug().Str("username", username).Msg("Login attempt for disabled user")
		auth.RejectPassword(password)
		return false, nil
	}

	return auth.VerifyPassword(passwordHash, password), nil
}

// CreateUser adds a user with an already hashed password.
// Returns store.ErrUserExists if the username is taken.
func (d *UserDirectory) CreateUser(ctx context.Context, username, passwordHash string) error {
	query := `INSERT INTO users (username, password_hash) VALUES ($1, $2)`

	if _, err := d.pool.Exec(ctx, query, username, passwordHash); err != nil {
		return fmt.Errorf("failed to create user: %w", mapPostgresError(err))
	}

	log.Info().Str("username", username).Msg("Created user")
	return nil
}

// SetDisabled enables or disables a user.
func (d *UserDirectory) SetDisabled(ctx context.Context, username string, disabled bool) error {
	query := `UPDATE users SET disabled = $2, updated_at = now() WHERE username = $1`

	result, err := d.pool.Exec(ctx, query, username, disabled)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrUserNotFound
	}

	return nil
}
