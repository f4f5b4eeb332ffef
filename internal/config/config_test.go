package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/nutri/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) config.LookupFunc {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.LoadWith("", env(nil))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, config.BackendMemory, cfg.Store.Backend)
	assert.Equal(t, "nutri:session:", cfg.Store.Prefix)
	assert.Equal(t, 30*time.Second, cfg.Lock.TTL)
	assert.Equal(t, 3, cfg.ConflictRetries)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, []string{"DEMO"}, cfg.Gateway.OfflineCodes)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nutri.yaml")
	yaml := `
store:
  backend: redis
  ttl: 720h
  redis:
    addr: redis:6379
gateway:
  base_url: https://backend.example
  timeout: 5s
timezone: America/Bogota
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := config.LoadWith(path, env(map[string]string{
		"NUTRI_REDIS_DB":              "2",
		"NUTRI_LOCK_DISTRIBUTED":      "true",
		"NUTRI_GATEWAY_TIMEOUT":       "2s",
		"NUTRI_LOG_FORMAT":            "json",
		"NUTRI_GATEWAY_OFFLINE_CODES": "A1,B2",
	}))
	require.NoError(t, err)

	assert.Equal(t, config.BackendRedis, cfg.Store.Backend)
	assert.Equal(t, 720*time.Hour, cfg.Store.TTL)
	assert.Equal(t, "redis:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, 2, cfg.Store.Redis.DB, "env wins and is weakly typed")
	assert.Equal(t, "nutri:session:", cfg.Store.Prefix, "untouched defaults survive the merge")
	assert.True(t, cfg.Lock.Distributed)
	assert.Equal(t, 2*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, []string{"A1", "B2"}, cfg.Gateway.OfflineCodes)
	require.NoError(t, cfg.Validate())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/Bogota", loc.String())
}

func TestLoad_Errors(t *testing.T) {
	_, err := config.LoadWith(filepath.Join(t.TempDir(), "missing.yaml"), env(nil))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "typo.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stroe:\n  backend: redis\n"), 0o644))
	_, err = config.LoadWith(path, env(nil))
	assert.ErrorContains(t, err, "stroe", "unknown keys are rejected")

	_, err = config.LoadWith("", env(map[string]string{"NUTRI_STORE_TTL": "forever"}))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := config.LoadWith("", env(map[string]string{
		"NUTRI_STORE_BACKEND":    "postgres",
		"NUTRI_LOCK_DISTRIBUTED": "1",
		"NUTRI_TIMEZONE":         "Mars/Olympus",
	}))
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "store.backend")
	assert.ErrorContains(t, err, "lock.distributed")
	assert.ErrorContains(t, err, "gateway.base_url")
	assert.ErrorContains(t, err, "Mars/Olympus")

	cfg, err = config.LoadWith("", env(map[string]string{"NUTRI_GATEWAY_OFFLINE": "true"}))
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("NUTRI_TEST_DOTENV=from-file\n"), 0o644))
	t.Setenv("NUTRI_TEST_DOTENV", "")
	os.Unsetenv("NUTRI_TEST_DOTENV")

	require.NoError(t, config.LoadDotEnv(filepath.Join(dir, "absent.env"), path))
	assert.Equal(t, "from-file", os.Getenv("NUTRI_TEST_DOTENV"))
}
