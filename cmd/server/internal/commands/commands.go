package commands

import (
	"errors"
	"net/http"
	"time"

	postgresstore "github.com/wolfeidau/logingate/internal/store/postgres"
	redisstore "github.com/wolfeidau/logingate/internal/store/redis"
)

type Globals struct {
	Debug   bool
	Version string
}

func configureHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
		MaxHeaderBytes:    8 * 1024, // 8KiB
	}
}

type PostgresFlags struct {
	ConnString string `help:"PostgreSQL connection string" env:"LOGINGATE_POSTGRES_CONNECTION_STRING"`

	// Connection Pool Configuration
	MaxConns        int32         `help:"maximum number of connections in pool" default:"10" env:"LOGINGATE_POSTGRES_MAX_CONNS"`
	MinConns        int32         `help:"minimum number of connections in pool" default:"1" env:"LOGINGATE_POSTGRES_MIN_CONNS"`
	MaxConnLifetime time.Duration `help:"maximum connection lifetime" default:"1h"`
	MaxConnIdleTime time.Duration `help:"maximum connection idle time" default:"30m"`

	AutoMigrate bool `help:"run database migrations on startup" default:"false" env:"LOGINGATE_POSTGRES_AUTO_MIGRATE"`
}

func (f *PostgresFlags) Validate() error {
	if f.ConnString == "" {
		return errors.New("PostgreSQL connection string is required (--postgres-conn-string or LOGINGATE_POSTGRES_CONNECTION_STRING)")
	}
	return nil
}

func (f *PostgresFlags) poolConfig() *postgresstore.PoolConfig {
	return &postgresstore.PoolConfig{
		ConnString:      f.ConnString,
		MaxConns:        f.MaxConns,
		MinConns:        f.MinConns,
		MaxConnLifetime: f.MaxConnLifetime,
		MaxConnIdleTime: f.MaxConnIdleTime,
		AutoMigrate:     f.AutoMigrate,
	}
}

type RedisFlags struct {
	Addr      string `help:"Redis address (host:port)" env:"LOGINGATE_REDIS_ADDR"`
	Username  string `help:"Redis ACL username" env:"LOGINGATE_REDIS_USERNAME"`
	Password  string `help:"Redis password" env:"LOGINGATE_REDIS_PASSWORD"`
	DB        int    `help:"Redis database number" default:"0" env:"LOGINGATE_REDIS_DB"`
	KeyPrefix string `help:"prefix for session keys" default:"logingate:session:" env:"LOGINGATE_REDIS_KEY_PREFIX"`
}

func (f *RedisFlags) Validate() error {
	if f.Addr == "" {
		return errors.New("Redis address is required (--redis-addr or LOGINGATE_REDIS_ADDR)")
	}
	return nil
}

func (f *RedisFlags) clientConfig() redisstore.ClientConfig {
	return redisstore.ClientConfig{
		Addr:     f.Addr,
		Username: f.Username,
		Password: f.Password,
		DB:       f.DB,
	}
}
