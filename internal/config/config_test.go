package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/habitkeep/internal/models"
)

func env(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := load(filepath.Join(t.TempDir(), "absent.yaml"), env(nil))
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	policy, err := cfg.OrderPolicy()
	require.NoError(t, err)
	assert.Equal(t, models.OrderUnion, policy)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
data_dir: /srv/habitkeep
debug: true
user:
  id: "7"
  email: me@example.com
storage:
  user: sqlite
  session: redis
redis:
  addr: cache:6379
  db: 2
  session_ttl: 12h
http:
  listen: 127.0.0.1:9000
merge:
  order_policy: receiver
`)

	cfg, err := load(path, env(nil))
	require.NoError(t, err)

	assert.Equal(t, "/srv/habitkeep", cfg.DataDir)
	assert.True(t, cfg.Debug)
	assert.Equal(t, UserConfig{ID: "7", Email: "me@example.com"}, cfg.User)
	assert.Equal(t, UserStorageSQLite, cfg.Storage.User)
	assert.Equal(t, SessionStorageRedis, cfg.Storage.Session)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 12*time.Hour, cfg.Redis.SessionTTL)
	assert.Equal(t, 30*time.Second, cfg.Redis.ConnectTimeout, "unset keys keep defaults")
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTP.Listen)

	policy, err := cfg.OrderPolicy()
	require.NoError(t, err)
	assert.Equal(t, models.OrderReceiver, policy)

	dbPath, err := cfg.SQLitePath()
	require.NoError(t, err)
	assert.Equal(t, "/srv/habitkeep/habitkeep.db", dbPath)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "storage:\n  user: sqlite\n")

	cfg, err := load(path, env(map[string]string{
		"HABITKEEP_USER_STORAGE":  "postgres",
		"HABITKEEP_DB_CONNECTION": "postgres://me@db/habits",
		"HABITKEEP_REDIS_DB":      "4",
		"HABITKEEP_SESSION_TTL":   "90m",
		"HABITKEEP_DEBUG":         "true",
	}))
	require.NoError(t, err)

	assert.Equal(t, UserStoragePostgres, cfg.Storage.User)
	assert.Equal(t, "postgres://me@db/habits", cfg.Postgres.DSN)
	assert.Equal(t, 4, cfg.Redis.DB)
	assert.Equal(t, 90*time.Minute, cfg.Redis.SessionTTL)
	assert.True(t, cfg.Debug)
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
	}{
		{name: "unknown user storage", body: "storage:\n  user: mongo\n"},
		{name: "unknown session storage", body: "storage:\n  session: memcached\n"},
		{name: "unknown order policy", body: "merge:\n  order_policy: newest\n"},
		{name: "malformed yaml", body: "storage: [\n"},
		{name: "blank user", body: "user:\n  id: \"\"\n"},
		{name: "bad env integer", env: map[string]string{"HABITKEEP_REDIS_DB": "two"}},
		{name: "bad env duration", env: map[string]string{"HABITKEEP_SESSION_TTL": "soon"}},
		{name: "bad env bool", env: map[string]string{"HABITKEEP_DEBUG": "maybe"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(writeConfig(t, tt.body), env(tt.env))
			assert.Error(t, err)
		})
	}
}

func TestSaveRoundTripOmitsRedisPassword(t *testing.T) {
	cfg := Default()
	cfg.Storage.User = UserStorageSQLite
	cfg.Redis.Password = "secret"
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")

	loaded, err := load(path, env(nil))
	require.NoError(t, err)
	assert.Equal(t, UserStorageSQLite, loaded.Storage.User)
	assert.Empty(t, loaded.Redis.Password)
	assert.Equal(t, "secret", cfg.Redis.Password, "Save does not mutate the receiver")
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := ExpandPath("~/.config/habitkeep")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config/habitkeep"), got)

	got, err = ExpandPath("/abs/path")
	require.NoError(t, err)
	assert.Equal(t, "/abs/path", got)

	got, err = ExpandPath("~other/x")
	require.NoError(t, err)
	assert.Equal(t, "~other/x", got)
}
