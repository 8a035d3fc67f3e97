package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"fleettrack/models"
)

// SessionStore persists the selected user across restarts. It restores UI
// session state only; it is not an authentication mechanism.
type SessionStore interface {
	Save(user models.User) error
	Load() (*models.User, error)
	Clear() error
}

// FileSession keeps the serialized user in a single JSON file, the durable
// key-value slot equivalent of the browser client's localStorage entry.
type FileSession struct {
	Path string
}

func (f *FileSession) Save(user models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.WriteFile(f.Path, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

func (f *FileSession) Load() (*models.User, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session: %w", err)
	}
	var user models.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &user, nil
}

func (f *FileSession) Clear() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// NoSession discards session state; used by tests.
type NoSession struct{}

func (NoSession) Save(models.User) error      { return nil }
func (NoSession) Load() (*models.User, error) { return nil, nil }
func (NoSession) Clear() error                { return nil }
