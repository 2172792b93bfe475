package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/rebelice/lazyadmin/internal/models"
)

func clearPGEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"PGHOST", "PGPORT", "PGUSER", "PGDATABASE", "PGSSLMODE", "PGPASSWORD"} {
		t.Setenv(name, "")
	}
	t.Setenv("PGPASSFILE", filepath.Join(t.TempDir(), "missing"))
}

func writePgPass(t *testing.T, content string, perm os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".pgpass")
	require.NoError(t, os.WriteFile(path, []byte(content), perm))
	return path
}

func TestParsePgPassLine(t *testing.T) {
	tests := []struct {
		line    string
		want    PgPassEntry
		wantErr bool
	}{
		{
			line: "localhost:5432:shop:admin:secret",
			want: PgPassEntry{Host: "localhost", Port: "5432", Database: "shop", User: "admin", Password: "secret"},
		},
		{
			line: `*:*:*:admin:pa\:ss\\word`,
			want: PgPassEntry{Host: "*", Port: "*", Database: "*", User: "admin", Password: `pa:ss\word`},
		},
		{line: "localhost:5432:shop:admin", wantErr: true},
		{line: "localhost:port:shop:admin:x", wantErr: true},
		{line: "localhost:70000:shop:admin:x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := parsePgPassLine(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePgPassFile(t *testing.T) {
	path := writePgPass(t, "# comment\n\nlocalhost:5432:shop:admin:one\nbroken line\n*:*:*:*:two\n", 0o600)

	entries, err := ParsePgPassFile(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	cfg := models.ConnectionConfig{Host: "localhost", Port: 5432, Database: "shop", User: "admin"}
	p, ok := FindPassword(entries, cfg)
	assert.True(t, ok)
	assert.Equal(t, "one", p)

	cfg.Port = 6543
	p, ok = FindPassword(entries, cfg)
	assert.True(t, ok)
	assert.Equal(t, "two", p, "wildcard port matches any port")
}

func TestParsePgPassFileMissing(t *testing.T) {
	entries, err := ParsePgPassFile(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestParsePgPassFileInsecure(t *testing.T) {
	path := writePgPass(t, "*:*:*:*:x\n", 0o644)
	require.NoError(t, os.Chmod(path, 0o644))

	_, err := ParsePgPassFile(path)
	assert.Error(t, err)
}

func TestApplyEnvironment(t *testing.T) {
	clearPGEnv(t)
	t.Setenv("PGHOST", "db.internal")
	t.Setenv("PGPORT", "6432")
	t.Setenv("PGUSER", "reader")

	cfg := ApplyEnvironment(models.ConnectionConfig{Database: "shop"})
	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, 6432, cfg.Port)
	assert.Equal(t, "reader", cfg.User)
	assert.Equal(t, "shop", cfg.Database)
	assert.Equal(t, "prefer", cfg.SSLMode)

	cfg = ApplyEnvironment(models.ConnectionConfig{Host: "explicit", Port: 5433})
	assert.Equal(t, "explicit", cfg.Host)
	assert.Equal(t, 5433, cfg.Port)
	assert.Equal(t, "reader", cfg.Database, "database defaults to the user")
}

func TestResolvePassword(t *testing.T) {
	keyring.MockInit()
	cfg := models.ConnectionConfig{Host: "localhost", Port: 5432, Database: "shop", User: "admin"}

	t.Run("config wins", func(t *testing.T) {
		clearPGEnv(t)
		t.Setenv("PGPASSWORD", "env")
		c := cfg
		c.Password = "cfg"

		p, source, err := ResolvePassword(c)
		require.NoError(t, err)
		assert.Equal(t, "cfg", p)
		assert.Equal(t, SourceConfig, source)
	})

	t.Run("environment", func(t *testing.T) {
		clearPGEnv(t)
		t.Setenv("PGPASSWORD", "env")

		p, source, err := ResolvePassword(cfg)
		require.NoError(t, err)
		assert.Equal(t, "env", p)
		assert.Equal(t, SourceEnvironment, source)
	})

	t.Run("pgpass", func(t *testing.T) {
		clearPGEnv(t)
		t.Setenv("PGPASSFILE", writePgPass(t, "localhost:5432:shop:admin:file\n", 0o600))

		p, source, err := ResolvePassword(cfg)
		require.NoError(t, err)
		assert.Equal(t, "file", p)
		assert.Equal(t, SourcePgPass, source)
	})

	t.Run("keyring", func(t *testing.T) {
		clearPGEnv(t)
		require.NoError(t, SavePassword(cfg, "stored"))
		t.Cleanup(func() { _ = DeletePassword(cfg) })

		p, source, err := ResolvePassword(cfg)
		require.NoError(t, err)
		assert.Equal(t, "stored", p)
		assert.Equal(t, SourceKeyring, source)
	})

	t.Run("nothing", func(t *testing.T) {
		clearPGEnv(t)

		p, source, err := ResolvePassword(cfg)
		require.NoError(t, err)
		assert.Empty(t, p)
		assert.Equal(t, SourceNone, source)
	})
}

func TestKeyringPasswordNotFound(t *testing.T) {
	keyring.MockInit()

	_, err := KeyringPassword(models.ConnectionConfig{Host: "nowhere"})
	assert.ErrorIs(t, err, ErrPasswordNotFound)
	assert.NoError(t, DeletePassword(models.ConnectionConfig{Host: "nowhere"}))
}
