package auth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

var _ Authenticator = (*FileDirectory)(nil)

// FileUser is a single entry in a YAML user directory.
type FileUser struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
	Disabled     bool   `yaml:"disabled,omitempty"`
}

type fileDirectoryDocument struct {
	Users []FileUser `yaml:"users"`
}

// FileDirectory authenticates against users loaded from a YAML document:
//
//	users:
//	  - username: admin
//	    password_hash: $2a$10$...
//
// The directory is read once and is immutable afterwards.
type FileDirectory struct {
	users map[string]FileUser
}

// LoadFileDirectory reads a YAML user directory from path.
func LoadFileDirectory(path string) (*FileDirectory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open user directory: %w", err)
	}
	defer f.Close()

	dir, err := ParseFileDirectory(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load user directory %s: %w", path, err)
	}

	log.Info().Str("path", path).Int("users", len(dir.users)).Msg("Loaded user directory")

	return dir, nil
}

// ParseFileDirectory decodes and validates a YAML user directory.
func ParseFileDirectory(r io.Reader) (*FileDirectory, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var doc fileDirectoryDocument
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode yaml: %w", err)
	}

	if len(doc.Users) == 0 {
		return nil, errors.New("no users defined")
	}

	users := make(map[string]FileUser, len(doc.Users))
	for i, u := range doc.Users {
		if u.Username == "" {
			return nil, fmt.Errorf("user %d: username is required", i)
		}
		if _, exists := users[u.Username]; exists {
			return nil, fmt.Errorf("user %q: defined more than once", u.Username)
		}
		if err := ValidateHash(u.PasswordHash); err != nil {
			return nil, fmt.Errorf("user %q: %w", u.Username, err)
		}
		users[u.Username] = u
	}

	return &FileDirectory{users: users}, nil
}

// Authenticate implements Authenticator.
func (d *FileDirectory) Authenticate(_ context.Context, username, password string) (bool, error) {
	user, exists := d.users[username]
	if !exists || user.Disabled {
		return RejectPassword(password), nil
	}

	return VerifyPassword(user.PasswordHash, password), nil
}

// Len returns the number of users in the directory.
func (d *FileDirectory) Len() int {
	return len(d.users)
}
