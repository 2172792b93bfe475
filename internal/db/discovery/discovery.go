// Package discovery completes connection settings from the environment the
// way libpq clients do and finds the password to connect with.
package discovery

import (
	"os"

	"github.com/rebelice/lazyadmin/internal/models"
)

// PasswordSource tells where a password was found
type PasswordSource string

const (
	SourceNone        PasswordSource = "none"
	SourceConfig      PasswordSource = "config"
	SourceEnvironment PasswordSource = "environment"
	SourcePgPass      PasswordSource = "pgpass"
	SourceKeyring     PasswordSource = "keyring"
)

// ResolvePassword looks for the connection password in the configuration,
// $PGPASSWORD, the .pgpass file and the OS keyring, in that order. Finding no
// password is not an error: the server may not require one.
func ResolvePassword(cfg models.ConnectionConfig) (string, PasswordSource, error) {
	if cfg.Password != "" {
		return cfg.Password, SourceConfig, nil
	}

	if p := os.Getenv("PGPASSWORD"); p != "" {
		return p, SourceEnvironment, nil
	}

	path, err := PgPassPath()
	if err == nil {
		entries, err := ParsePgPassFile(path)
		if err != nil {
			return "", SourceNone, err
		}
		if p, ok := FindPassword(entries, cfg); ok {
			return p, SourcePgPass, nil
		}
	}

	// A missing entry and an unusable keyring (headless machines) both mean
	// no password
	if p, err := KeyringPassword(cfg); err == nil {
		return p, SourceKeyring, nil
	}
	return "", SourceNone, nil
}

// Resolve applies the environment to cfg and fills in its password
func Resolve(cfg models.ConnectionConfig) (models.ConnectionConfig, PasswordSource, error) {
	cfg = ApplyEnvironment(cfg)
	password, source, err := ResolvePassword(cfg)
	if err != nil {
		return cfg, SourceNone, err
	}
	cfg.Password = password
	return cfg, source, nil
}
