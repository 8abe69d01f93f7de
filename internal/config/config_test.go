package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	path := writeFile(t, "client.yaml", `
server:
  url: ws://game.example:9000/ws
  reconnect_per_minute: 3
game:
  extended_options: true
  notice_limit: 10
log:
  level: debug
`)
	t.Setenv("RPS_COOLDOWN", "true")
	t.Setenv("RPS_LISTEN_ADDR", "127.0.0.1:9999")
	t.Setenv("RPS_NOTICE_LIMIT", "not-a-number")

	cfg, err := Load(path)
	require.NoError(t, err)

	want := Default()
	want.Server.URL = "ws://game.example:9000/ws"
	want.Server.ReconnectPerMinute = 3
	want.Game.ExtendedOptions = true
	want.Game.Cooldown = true
	want.Game.NoticeLimit = 10
	want.HTTP.ListenAddr = "127.0.0.1:9999"
	want.Log.Level = "debug"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_NATSTransportFromEnv(t *testing.T) {
	t.Setenv("RPS_TRANSPORT", "NATS")
	t.Setenv("RPS_NATS_URL", "nats://bus:4222")
	t.Setenv("RPS_NATS_PREFIX", "rps.room1")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, TransportNATS, cfg.Server.Transport)
	assert.Equal(t, "nats://bus:4222", cfg.NATS.URL)
	assert.Equal(t, "rps.room1", cfg.NATS.Prefix)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "unknown transport", yaml: "server:\n  transport: carrier-pigeon\n"},
		{name: "empty websocket url", yaml: "server:\n  url: \"\"\n"},
		{name: "bad log level", yaml: "log:\n  level: loud\n"},
		{name: "invalid yaml", yaml: "server: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "client.yaml", tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))

	t.Setenv("RPS_LOG_LEVEL", "warn")
	path := writeFile(t, ".env", "RPS_LOG_LEVEL=error\nRPS_COOLDOWN=1\n")
	t.Cleanup(func() { os.Unsetenv("RPS_COOLDOWN") })
	require.NoError(t, LoadDotEnv(path))

	assert.Equal(t, "warn", os.Getenv("RPS_LOG_LEVEL"), "existing variables win")
	assert.Equal(t, "1", os.Getenv("RPS_COOLDOWN"))
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	_, err = ParseLevel("chatty")
	assert.Error(t, err)
}
