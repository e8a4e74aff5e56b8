package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewStatic(t *testing.T) {
	_, err := NewStatic("", "password")
	require.Error(t, err)

	_, err = NewStatic("admin", "")
	require.Error(t, err)

	s, err := NewStatic("admin", "password")
	require.NoError(t, err)
	require.NotNil(t, s)
}

func TestStatic_Authenticate(t *testing.T) {
	s, err := NewStatic("admin", "password")
	require.NoError(t, err)

	tests := []struct {
		name     string
		username string
		password string
		expected bool
	}{
		{name: "valid credentials", username: "admin", password: "password", expected: true},
		{name: "wrong password", username: "admin", password: "wrong", expected: false},
		{name: "wrong username", username: "root", password: "password", expected: false},
		{name: "both wrong", username: "root", password: "wrong", expected: false},
		{name: "empty", username: "", password: "", expected: false},
		{name: "username is case sensitive", username: "Admin", password: "password", expected: false},
		{name: "password prefix", username: "admin", password: "pass", expected: false},
		{name: "trailing whitespace", username: "admin ", password: "password", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := s.Authenticate(context.Background(), tt.username, tt.password)
			require.NoError(t, err)
			require.Equal(t, tt.expected, ok)
		})
	}
}

func TestAuthenticatorFunc(t *testing.T) {
	var gotUser, gotPass string
	fn := AuthenticatorFunc(func(_ context.Context, username, password string) (bool, error) {
		gotUser, gotPass = username, password
		return true, nil
	})

	ok, err := fn.Authenticate(context.Background(), "alice", "secret")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "alice", gotUser)
	require.Equal(t, "secret", gotPass)
}
