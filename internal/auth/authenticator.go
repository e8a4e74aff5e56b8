package auth

import (
	"context"
	"crypto/subtle"
	"errors"
)

// Authenticator verifies a username and password.
// Implementations return false, nil for rejected credentials and reserve
// errors for failures of the backing directory.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (bool, error)
}

// AuthenticatorFunc adapts a function to the Authenticator interface.
type AuthenticatorFunc func(ctx context.Context, username, password string) (bool, error)

// Authenticate implements Authenticator.
func (f AuthenticatorFunc) Authenticate(ctx context.Context, username, password string) (bool, error) {
	return f(ctx, username, password)
}

var _ Authenticator = (*Static)(nil)

// Static accepts a single configured username and password pair.
type Static struct {
	username []byte
	password []byte
}

// NewStatic creates an authenticator for exactly one credential pair.
func NewStatic(username, password string) (*Static, error) {
	if username == "" || password == "" {
		return nil, errors.New("username and password are required")
	}

	return &Static{
		username: []byte(username),
		password: []byte(password),
	}, nil
}

// Authenticate implements Authenticator using constant time comparisons.
func (s *Static) Authenticate(_ context.Context, username, password string) (bool, error) {
	userOK := subtle.ConstantTimeCompare(s.username, []byte(username))
	passOK := subtle.ConstantTimeCompare(s.password, []byte(password))

	return userOK&passOK == 1, nil
}
