package discovery

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/rebelice/lazyadmin/internal/models"
)

const serviceName = "lazyadmin"

// ErrPasswordNotFound is returned when the keyring has no password for a
// connection
var ErrPasswordNotFound = errors.New("password not found in keyring")

// SavePassword stores a connection password in the OS keyring
func SavePassword(cfg models.ConnectionConfig, password string) error {
	if password == "" {
		// Don't save empty passwords
		return nil
	}
	if err := keyring.Set(serviceName, keyringKey(cfg), password); err != nil {
		return fmt.Errorf("failed to save password to keyring: %w", err)
	}
	return nil
}

// KeyringPassword retrieves a connection password from the OS keyring
func KeyringPassword(cfg models.ConnectionConfig) (string, error) {
	password, err := keyring.Get(serviceName, keyringKey(cfg))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrPasswordNotFound
		}
		return "", fmt.Errorf("failed to read password from keyring: %w", err)
	}
	return password, nil
}

// DeletePassword removes a connection password from the OS keyring
func DeletePassword(cfg models.ConnectionConfig) error {
	err := keyring.Delete(serviceName, keyringKey(cfg))
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete password from keyring: %w", err)
	}
	return nil
}

// keyringKey identifies a connection: "host:port:database:user"
func keyringKey(cfg models.ConnectionConfig) string {
	return fmt.Sprintf("%s:%d:%s:%s", cfg.Host, cfg.Port, cfg.Database, cfg.User)
}
