package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, GetDefaults(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  listen: ":9000"
  cors_origins: ["http://localhost:3000"]
  read_timeout: 5s
database:
  host: db.example.com
  name: shop
  user: admin
  max_conns: 12
schema:
  file: models.yaml
pagination:
  default_page_size: 50
log:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Listen)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, "db.example.com", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, int32(12), cfg.Database.MaxConns)
	assert.Equal(t, "models.yaml", cfg.Schema.File)
	assert.Equal(t, 50, cfg.Pagination.DefaultPageSize)
	assert.Equal(t, 200, cfg.Pagination.MaxPageSize)
	assert.Equal(t, "debug", cfg.Log.Level)

	conn := cfg.ConnectionConfig()
	assert.Equal(t, "shop", conn.Database)
	assert.Equal(t, "admin@db.example.com:5432/shop", conn.String())
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("LAZYADMIN_DATABASE_HOST", "from-env")
	t.Setenv("LAZYADMIN_PAGINATION_MAX_PAGE_SIZE", "500")

	cfg, err := Load(writeConfig(t, "database:\n  host: from-file\n"))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Database.Host)
	assert.Equal(t, 500, cfg.Pagination.MaxPageSize)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero page size", func(c *Config) { c.Pagination.DefaultPageSize = 0 }},
		{"max below default", func(c *Config) { c.Pagination.MaxPageSize = 10 }},
		{"bad port", func(c *Config) { c.Database.Port = 70000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaults()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, GetDefaults().Validate())
}

func TestHistoryPath(t *testing.T) {
	cfg := GetDefaults()
	cfg.History.Path = "/tmp/h.db"

	path, err := cfg.HistoryPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/h.db", path)
}
