package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, bracket.DefaultPolicy(), cfg.Policy())
	assert.Equal(t, 3, cfg.Engine.RetryAttempts)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
http:
  addr: ":9000"
engine:
  ready_grace: 5m
  veto_buffer: 1m
  veto_turn: 45s
  turn_timeout_policy: none
  default_map_pool: [Dust, Mirage, Nuke]
  default_best_of: 3
auth:
  admin_emails: [Root@Example.com]
`)
	t.Setenv("VETO_TURN", "1m")
	t.Setenv("RETRY_ATTEMPTS", "5")
	t.Setenv("DATABASE_PATH", "/tmp/x.db")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, "/tmp/x.db", cfg.Database.Path)
	assert.Equal(t, 5, cfg.Engine.RetryAttempts)
	assert.Equal(t, []string{"Dust", "Mirage", "Nuke"}, cfg.Engine.DefaultMapPool)
	assert.Equal(t, bracket.Policy{
		ReadyGrace:   5 * time.Minute,
		VetoBuffer:   time.Minute,
		TurnDuration: time.Minute,
		TurnTimeout:  bracket.TimeoutNone,
	}, cfg.Policy())

	assert.True(t, cfg.IsAdminEmail("root@example.com"))
	assert.False(t, cfg.IsAdminEmail("someone@example.com"))
	assert.False(t, cfg.IsAdminEmail(""))
}

func TestLoadRejectsBadValues(t *testing.T) {
	testCases := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{name: "unknown timeout policy", yaml: "engine:\n  turn_timeout_policy: skip\n"},
		{name: "best of four", yaml: "engine:\n  default_best_of: 4\n"},
		{name: "bad duration env", env: map[string]string{"READY_GRACE": "soon"}},
		{name: "no retries", env: map[string]string{"RETRY_ATTEMPTS": "0"}},
		{name: "broken yaml", yaml: "engine: [\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeConfig(t, tc.yaml))
			assert.Error(t, err)
		})
	}
}
