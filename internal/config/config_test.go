package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 9095, cfg.Server.Port)
	assert.Equal(t, 100, cfg.Sessions.MaxSessions)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 7000
sessions:
  max_sessions: 5
  idle_timeout: 10m
security:
  max_code_length: 500
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Sessions.MaxSessions)
	assert.Equal(t, 500, cfg.Security.MaxCodeLength)
	assert.Equal(t, 10*time.Minute, cfg.SessionIdleTimeout())
	// Untouched sections keep their defaults.
	assert.NotEmpty(t, cfg.Security.AllowedImports)
	assert.Equal(t, "localhost:9000", cfg.Storage.Endpoint)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := DefaultConfig()
	cfg.Server.Port = 7777
	cfg.History.Path = "/var/lib/cellexec/history.db"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("config changed across save/load (-saved +loaded):\n%s", diff)
	}
}

func TestDurations_FallBackOnGarbage(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sessions.IdleTimeout = "soon"
	cfg.Sessions.SweepInterval = "eventually"
	cfg.Server.ShutdownGrace = "later"

	assert.Equal(t, 240*time.Minute, cfg.SessionIdleTimeout())
	assert.Equal(t, 5*time.Minute, cfg.SweepInterval())
	assert.Equal(t, 15*time.Second, cfg.ShutdownGrace())
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"zero sessions", func(c *Config) { c.Sessions.MaxSessions = 0 }},
		{"zero code length", func(c *Config) { c.Security.MaxCodeLength = 0 }},
		{"empty allowlist", func(c *Config) { c.Security.AllowedImports = nil }},
		{"empty endpoint", func(c *Config) { c.Storage.Endpoint = "" }},
		{"bad idle timeout", func(c *Config) { c.Sessions.IdleTimeout = "whenever" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, DefaultConfig().Validate())
}
