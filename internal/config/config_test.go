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
	path := filepath.Join(t.TempDir(), "pokerrating.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestMissingFileUsesDefaults(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.loadFile(filepath.Join(t.TempDir(), "missing.hcl")))

	assert.Equal(t, Default(), cfg)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, int64(10000), cfg.Store.DefaultRating)
	assert.True(t, cfg.ConcurrentRules())
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server {
  address = ":9090"
}

oracle {
  url         = "http://oracle:5000"
  attempts    = 3
  max_backoff = "2s"
}

store {
  driver = "postgres"
  dsn    = "postgres://localhost/ratings"
}

engine {
  parallelism      = 8
  concurrent_rules = false
}
`)
	cfg := Default()
	require.NoError(t, cfg.loadFile(path))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "5s", cfg.Server.ShutdownTimeout)
	assert.Equal(t, "http://oracle:5000", cfg.Oracle.URL)
	assert.Equal(t, 3, cfg.Oracle.Attempts)
	assert.Equal(t, 2*time.Second, Duration(cfg.Oracle.MaxBackoff))
	assert.Equal(t, "100ms", cfg.Oracle.MinBackoff)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 50, cfg.Store.RetryAttempts)
	assert.Equal(t, "memory", cfg.Cache.Driver)
	assert.Equal(t, 8, cfg.Engine.Parallelism)
	assert.False(t, cfg.ConcurrentRules())

	client := cfg.OracleClient()
	assert.Equal(t, "http://oracle:5000", client.Endpoint)
	assert.Equal(t, 3, client.Retry.Attempts)
	assert.Equal(t, 100*time.Millisecond, client.Retry.MinDelay)
	assert.Equal(t, 120*time.Second, client.RequestTimeout)

	policy := cfg.ConflictPolicy()
	assert.Equal(t, 50, policy.Attempts)
	assert.Equal(t, 5*time.Minute, policy.MaxElapsed)
	assert.True(t, policy.Jitter)
}

func TestLoadFileRejectsBadHCL(t *testing.T) {
	path := writeConfig(t, `server { address = `)
	err := Default().loadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse HCL file")

	path = writeConfig(t, `unknown { }`)
	err = Default().loadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode HCL")
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"POKERRATING_ORACLE_URL":   "http://env-oracle:5000",
		"POKERRATING_STORE_DRIVER": "memory",
		"POKERRATING_REDIS_ADDR":   "redis:6379",
		"POKERRATING_ADDR":         "",
	}
	cfg := Default()
	cfg.applyEnv(func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "http://env-oracle:5000", cfg.Oracle.URL)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "redis:6379", cfg.Cache.RedisAddr)
	assert.Equal(t, "redis", cfg.Cache.Driver)
	require.NoError(t, cfg.Validate())
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("POKERRATING_ADDR", ":7070")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Address)
}

func TestValidate(t *testing.T) {
	cases := map[string]struct {
		mutate func(*Config)
		want   string
	}{
		"bad duration": {
			mutate: func(c *Config) { c.Oracle.RequestTimeout = "soon" },
			want:   "invalid duration oracle.request_timeout",
		},
		"missing oracle": {
			mutate: func(c *Config) { c.Oracle.URL = "" },
			want:   "oracle url must be set",
		},
		"unknown store": {
			mutate: func(c *Config) { c.Store.Driver = "mongo" },
			want:   "invalid store driver: mongo",
		},
		"postgres without dsn": {
			mutate: func(c *Config) { c.Store.Driver = "postgres"; c.Store.DSN = "" },
			want:   "store postgres: dsn must be set",
		},
		"redis without address": {
			mutate: func(c *Config) { c.Cache.Driver = "redis" },
			want:   "redis_addr must be set",
		},
		"parallelism": {
			mutate: func(c *Config) { c.Engine.Parallelism = 0 },
			want:   "engine parallelism must be between 1 and 64",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
