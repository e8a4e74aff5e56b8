package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/logingate/internal/auth"
	"github.com/wolfeidau/logingate/internal/logger"
	postgresstore "github.com/wolfeidau/logingate/internal/store/postgres"
)

// UsersCmd manages the PostgreSQL user directory.
type UsersCmd struct {
	Add     UserAddCmd     `cmd:"" help:"Add a user, reading the password from stdin or a prompt"`
	Disable UserDisableCmd `cmd:"" help:"Disable a user so it can no longer sign in"`
	Enable  UserEnableCmd  `cmd:"" help:"Re-enable a disabled user"`
}

type UserAddCmd struct {
	Username string        `arg:"" help:"username to create"`
	Postgres PostgresFlags `embed:"" prefix:"postgres-"`
}

func (c *UserAddCmd) Run(ctx context.Context, globals *Globals) error {
	logger.Setup(globals.Debug)

	password, err := promptPassword(os.Stdin, os.Stderr)
	if err != nil {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	return withUserDirectory(ctx, &c.Postgres, func(directory *postgresstore.UserDirectory) error {
		if err := directory.CreateUser(ctx, c.Username, hash); err != nil {
			return fmt.Errorf("failed to add user %q: %w", c.Username, err)
		}
		log.Info().Str("user", c.Username).Msg("User added")
		return nil
	})
}

type UserDisableCmd struct {
	Username string        `arg:"" help:"username to disable"`
	Postgres PostgresFlags `embed:"" prefix:"postgres-"`
}

func (c *UserDisableCmd) Run(ctx context.Context, globals *Globals) error {
	logger.Setup(globals.Debug)
	return setUserDisabled(ctx, &c.Postgres, c.Username, true)
}

type UserEnableCmd struct {
	Username string        `arg:"" help:"username to enable"`
	Postgres PostgresFlags `embed:"" prefix:"postgres-"`
}

func (c *UserEnableCmd) Run(ctx context.Context, globals *Globals) error {
	logger.Setup(globals.Debug)
	return setUserDisabled(ctx, &c.Postgres, c.Username, false)
}

func setUserDisabled(ctx context.Context, flags *PostgresFlags, username string, disabled bool) error {
	return withUserDirectory(ctx, flags, func(directory *postgresstore.UserDirectory) error {
		if err := directory.SetDisabled(ctx, username, disabled); err != nil {
			return fmt.Errorf("failed to update user %q: %w", username, err)
		}
		log.Info().Str("user", username).Bool("disabled", disabled).Msg("User updated")
		return nil
	})
}

func withUserDirectory(ctx context.Context, flags *PostgresFlags, fn func(*postgresstore.UserDirectory) error) error {
	if err := flags.Validate(); err != nil {
		return err
	}

	pool, err := postgresstore.NewPool(ctx, flags.poolConfig())
	if err != nil {
		return fmt.Errorf("failed to create postgres pool: %w", err)
	}
	defer pool.Close()

	return fn(postgresstore.NewUserDirectory(pool))
}
