package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/wolfeidau/logingate/cmd/server/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Debug        bool                     `help:"Enable debug mode." env:"LOGINGATE_DEBUG"`
		Version      kong.VersionFlag
		Serve        commands.ServeCmd        `cmd:"" default:"withargs" help:"Start the login gate HTTP server"`
		HashPassword commands.HashPasswordCmd `cmd:"" help:"Print a bcrypt hash of a password read from stdin"`
		Users        commands.UsersCmd        `cmd:"" help:"Manage users in the PostgreSQL user directory"`
	}
)

func main() {
	// .env is optional, real environment variables take precedence
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := kong.Parse(&cli,
		kong.Name("logingate"),
		kong.Description("A minimal web login gate with server-side sessions."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
