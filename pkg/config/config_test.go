package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 40, cfg.Threshold)
	assert.Equal(t, 4*time.Second, cfg.Probes.WebRTC.Window)
	assert.Len(t, cfg.Probes.Latency.URLs, 4)
	assert.Equal(t, 3, cfg.Probes.Latency.Rounds)
	assert.Equal(t, 3, cfg.Probes.Latency.PerRound)
	assert.Equal(t, 10*time.Second, cfg.EngineConfig().DefaultCeiling)
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vpnsense.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
threshold: 50
log_level: debug
probes:
  webrtc:
    window: 2500ms
    stun_servers: ["stun:stun.example.org:3478"]
  latency:
    rounds: 2
history:
  backend: none
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Threshold)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 2500*time.Millisecond, cfg.Probes.WebRTC.Window)
	assert.Equal(t, []string{"stun:stun.example.org:3478"}, cfg.Probes.WebRTC.STUNServers)
	assert.Equal(t, 2, cfg.Probes.Latency.Rounds)
	// Untouched keys keep their defaults.
	assert.Equal(t, 3, cfg.Probes.Latency.PerRound)
	assert.True(t, cfg.Probes.WebRTC.Enabled)
	assert.Equal(t, HistoryNone, cfg.History.Backend)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("threshold: 0\nlog_level: loud\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "threshold")
	assert.Contains(t, err.Error(), "log level")
}

func TestEnvOverrides(t *testing.T) {
	env := map[string]string{
		"VPNSENSE_THRESHOLD":  "35",
		"VPNSENSE_LOG_LEVEL":  "warn",
		"VPNSENSE_ADDR":       "127.0.0.1:9000",
		"VPNSENSE_REDIS_ADDR": "redis:6379",
	}
	cfg := Default()
	require.NoError(t, cfg.applyEnv(func(k string) string { return env[k] }))

	assert.Equal(t, 35, cfg.Threshold)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, "redis:6379", cfg.History.RedisAddr)
}

func TestEnvOverrideBadThreshold(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(func(k string) string {
		if k == "VPNSENSE_THRESHOLD" {
			return "forty"
		}
		return ""
	})
	assert.Error(t, err)
}

func TestValidateRedisNeedsAddr(t *testing.T) {
	cfg := Default()
	cfg.History.Backend = HistoryRedis
	assert.Error(t, cfg.Validate())

	cfg.History.RedisAddr = "localhost:6379"
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsKeywordUserAgent(t *testing.T) {
	cfg := Default()
	cfg.HTTP.UserAgent = "SecureTunnel/2.0"
	assert.ErrorContains(t, cfg.Validate(), "http.user_agent")
}
