package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		PathEnv, "PORT", "CORS_ALLOWED_ORIGINS", "CHATBOT_MAX_SESSIONS", "CHATBOT_HISTORY_LIMIT",
		"CHATBOT_SESSION_TIMEOUT", "CHATBOT_SWEEP_INTERVAL", "SERVER_READ_HEADER_TIMEOUT",
		"SERVER_SHUTDOWN_TIMEOUT", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 100, cfg.Session.MaxSessions)
	assert.Equal(t, 4*time.Hour, cfg.Session.Timeout)
	assert.Equal(t, 30*time.Minute, cfg.Session.SweepInterval)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadYAMLThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "chatbot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: "127.0.0.1:9000"
session:
  max_sessions: 5
  timeout: 10m
  sweep_interval: 1m
log:
  format: console
`), 0o600))

	t.Setenv("CHATBOT_MAX_SESSIONS", "7")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 7, cfg.Session.MaxSessions)
	assert.Equal(t, 10*time.Minute, cfg.Session.Timeout)
	assert.Equal(t, time.Minute, cfg.Session.SweepInterval)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadPathFromEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("session:\n  max_sessions: 3\n"), 0o600))
	t.Setenv(PathEnv, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Session.MaxSessions)
}

func TestLoadPortForms(t *testing.T) {
	clearEnv(t)

	t.Setenv("PORT", "9090")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)

	t.Setenv("PORT", "0.0.0.0:7070")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:7070", cfg.Server.Addr)

	t.Setenv("PORT", "80 80")
	_, err = Load("")
	assert.Error(t, err)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string][2]string{
		"zero sessions":     {"CHATBOT_MAX_SESSIONS", "0"},
		"negative sessions": {"CHATBOT_MAX_SESSIONS", "-4"},
		"not a number":      {"CHATBOT_MAX_SESSIONS", "many"},
		"zero timeout":      {"CHATBOT_SESSION_TIMEOUT", "0s"},
		"bad duration":      {"CHATBOT_SESSION_TIMEOUT", "forever"},
		"bad log format":    {"LOG_FORMAT", "xml"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(kv[0], kv[1])
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.Unsetenv("CHATBOT_MAX_SESSIONS"))

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CHATBOT_MAX_SESSIONS=12\n"), 0o600))
	require.NoError(t, LoadEnvFile(path))
	t.Cleanup(func() { os.Unsetenv("CHATBOT_MAX_SESSIONS") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Session.MaxSessions)

	assert.Error(t, LoadEnvFile(filepath.Join(t.TempDir(), "nope.env")))
}
