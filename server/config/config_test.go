package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"SPOTFORGE_CONFIG", "SPOT_STORE", "DATABASE_URL", "SQLITE_PATH", "PORT",
	"FREQ_TABLE", "VALIDATE_WORKERS", "AUTO_MIGRATE", "LOG_LEVEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "file", cfg.Backend())
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "spotforge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
spot_store: data/spots.json
sqlite_path: data/spots.db
port: 9000
validate_workers: 2
auto_migrate: true
log_level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "data/spots.json", cfg.SpotStore)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 2, cfg.ValidateWorkers)
	assert.True(t, cfg.AutoMigrate)
	assert.Equal(t, "sqlite", cfg.Backend())

	t.Setenv("PORT", "7000")
	t.Setenv("AUTO_MIGRATE", "no")
	t.Setenv("DATABASE_URL", "postgres://localhost/spots")
	t.Setenv("VALIDATE_WORKERS", "not-a-number")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Port)
	assert.False(t, cfg.AutoMigrate)
	assert.Equal(t, 2, cfg.ValidateWorkers)
	assert.Equal(t, "postgres", cfg.Backend())

	opts := cfg.StoreOptions(nil)
	assert.Equal(t, "postgres://localhost/spots", opts.DatabaseURL)
	assert.Equal(t, "data/spots.db", opts.SQLitePath)
	assert.Equal(t, "data/spots.json", opts.FilePath)
}

func TestLoadConfigFromEnvPath(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("freq_table: table.yaml\n"), 0o644))
	t.Setenv("SPOTFORGE_CONFIG", path)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "table.yaml", cfg.FreqTable)
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [1"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)

	t.Setenv("PORT", "70000")
	t.Setenv("LOG_LEVEL", "loud")
	_, err = Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port 70000")
	assert.Contains(t, err.Error(), "log_level")
}

func TestAsBool(t *testing.T) {
	for _, s := range []string{"1", "true", "YES", " on "} {
		assert.True(t, asBool(s), s)
	}
	for _, s := range []string{"", "0", "off", "nope"} {
		assert.False(t, asBool(s), s)
	}
}
