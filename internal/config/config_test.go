package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enclave-sdk/internal/message"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "sdk.yaml", `
api:
  base_url: https://api.example.com
  timeout: 5
realtime:
  ping_interval: 15
  reconnect_initial_ms: 250
language: ja
nats:
  url: nats://127.0.0.1:4222
log:
  level: debug
  format: json
`)
	t.Setenv("ENCLAVE_CHAIN_ID", "195")
	t.Setenv("ENCLAVE_LANGUAGE", "zh-TW")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.API.BaseURL)
	assert.Equal(t, 3, cfg.API.ReadAttempts, "unset keys keep defaults")
	assert.Equal(t, uint32(195), cfg.Signer.ChainID)
	assert.Equal(t, message.LanguageChineseTraditional, cfg.MessageLanguage())

	api := cfg.APIClientConfig()
	assert.Equal(t, 5*time.Second, api.Timeout)

	rt := cfg.RealtimeOptions()
	assert.Equal(t, "https://api.example.com", rt.URL)
	assert.Equal(t, 15*time.Second, rt.PingInterval)
	assert.Equal(t, 250*time.Millisecond, rt.Backoff.Initial)
	assert.Equal(t, 30*time.Second, rt.Backoff.Max)

	assert.Equal(t, "nats://127.0.0.1:4222", cfg.NATSClientConfig().URL)

	logger := cfg.NewLogger()
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
}

func TestLoad_PrefersLocalFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", "api:\n  base_url: http://shared\n")
	writeFile(t, dir, "config.local.yaml", "api:\n  base_url: http://local\n")
	t.Chdir(dir)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://local", cfg.API.BaseURL)
}

func TestLoad_MissingDefaultFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENCLAVE_API_URL", "http://env")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://env", cfg.API.BaseURL)
	assert.Equal(t, "enclave.sdk", cfg.NATS.SubjectPrefix)

	_, err = Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err, "an explicit path must exist")
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		body string
		env  map[string]string
	}{
		{"bad yaml", "api: [", nil},
		{"language", "language: xx\n", nil},
		{"log level", "log:\n  level: loud\n", nil},
		{"multiplier", "realtime:\n  reconnect_multiplier: 0.5\n", nil},
		{"chain id", "", map[string]string{"ENCLAVE_CHAIN_ID": "tron"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := writeFile(t, dir, "c.yaml", tt.body)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
