package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
cert_path: certs/server.crt
key_path: certs/server.key
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultListenPort, cfg.ListenPort)
	assert.Equal(t, DefaultHeartbeatTimeoutS, cfg.HeartbeatTimeoutS)
	assert.Equal(t, DefaultReadTimeoutS, cfg.ReadTimeoutS)
	assert.Equal(t, DefaultRateMax, cfg.RateMax)
	assert.Equal(t, DefaultRateWindowS, cfg.RateWindowS)
	assert.Equal(t, "certs/server.crt", cfg.CertPath)
}

func TestLoadRespectsExplicitValues(t *testing.T) {
	path := writeTempConfig(t, `
listen_port: 9999
cert_path: c.crt
key_path: c.key
ca_path: ca.crt
heartbeat_timeout_s: 60
read_timeout_s: 10
rate_max: 20
rate_window_s: 2
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.ListenPort)
	assert.Equal(t, "ca.crt", cfg.CAPath)
	assert.Equal(t, 60, cfg.HeartbeatTimeoutS)
	assert.Equal(t, 10, cfg.ReadTimeoutS)
	assert.Equal(t, 20, cfg.RateMax)
	assert.Equal(t, 2, cfg.RateWindowS)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
