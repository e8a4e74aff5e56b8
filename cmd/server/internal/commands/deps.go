package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/logingate/internal/auth"
	"github.com/wolfeidau/logingate/internal/store"
	memorystore "github.com/wolfeidau/logingate/internal/store/memory"
	postgresstore "github.com/wolfeidau/logingate/internal/store/postgres"
	redisstore "github.com/wolfeidau/logingate/internal/store/redis"
)

// dependencies are the backends selected by ServeCmd flags.
type dependencies struct {
	sessions      store.SessionStore
	authenticator auth.Authenticator

	// expiresNatively is set when the store drops expired sessions itself.
	expiresNatively bool

	checks  map[string]func(context.Context) error
	closers []func()

	pool *pgxpool.Pool
}

func (d *dependencies) addCheck(name string, fn func(context.Context) error) {
	if d.checks == nil {
		d.checks = make(map[string]func(context.Context) error)
	}
	d.checks[name] = fn
}

// Close releases backend connections in reverse order of creation.
func (d *dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func (c *ServeCmd) buildDependencies(ctx context.Context) (_ *dependencies, err error) {
	deps := &dependencies{}
	defer func() {
		if err != nil {
			deps.Close()
		}
	}()

	switch c.StoreType {
	case "postgres":
		pool, err := deps.postgresPool(ctx, &c.PostgresStore)
		if err != nil {
			return nil, err
		}
		deps.sessions = postgresstore.NewSessionStore(pool)
		log.Info().Msg("Using PostgreSQL session store")

	case "redis":
		if err := c.RedisStore.Validate(); err != nil {
			return nil, fmt.Errorf("failed to validate redis flags: %w", err)
		}
		client, err := redisstore.NewClient(ctx, c.RedisStore.clientConfig())
		if err != nil {
			return nil, err
		}
		deps.closers = append(deps.closers, func() {
			if err := client.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close redis client")
			}
		})
		deps.addCheck("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		deps.sessions = redisstore.NewSessionStore(client, c.RedisStore.KeyPrefix)
		deps.expiresNatively = true
		log.Info().Str("addr", c.RedisStore.Addr).Msg("Using Redis session store")

	default:
		deps.sessions = memorystore.NewSessionStore()
		log.Info().Msg("Using in-memory session store")
	}

	switch c.AuthType {
	case "file":
		if c.UsersFile == "" {
			return nil, errors.New("users file is required for file authentication (--users-file or LOGINGATE_USERS_FILE)")
		}
		directory, err := auth.LoadFileDirectory(c.UsersFile)
		if err != nil {
			return nil, err
		}
		deps.authenticator = directory
		log.Info().Str("path", c.UsersFile).Msg("Using YAML user directory")

	case "postgres":
		pool, err := deps.postgresPool(ctx, &c.PostgresStore)
		if err != nil {
			return nil, err
		}
		deps.authenticator = postgresstore.NewUserDirectory(pool)
		log.Info().Msg("Using PostgreSQL user directory")

	default:
		static, err := auth.NewStatic(c.Username, c.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to configure static authenticator: %w", err)
		}
		deps.authenticator = static
		if c.Username == defaultUsername && c.Password == defaultPassword {
			log.Warn().Msg("Using the default static credentials, set --username and --password for anything but local testing")
		}
		log.Info().Str("user", c.Username).Msg("Using static authenticator")
	}

	return deps, nil
}

// postgresPool opens the shared pool on first use.
func (d *dependencies) postgresPool(ctx context.Context, flags *PostgresFlags) (*pgxpool.Pool, error) {
	if d.pool != nil {
		return d.pool, nil
	}

	if err := flags.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate postgres flags: %w", err)
	}

	pool, err := postgresstore.NewPool(ctx, flags.poolConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	d.pool = pool
	d.closers = append(d.closers, pool.Close)
	d.addCheck("postgres", pool.Ping)

	return pool, nil
}
