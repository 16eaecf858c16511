package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Config Loading Tests
// =============================================================================

func TestLoadConfig_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 10*time.Minute, cfg.Server.WriteTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.False(t, cfg.Server.DevMode)
	assert.Equal(t, "./data/berth.db", cfg.Database.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "header", cfg.Auth.Mode)
	assert.Equal(t, "/tmp/build-sources", cfg.Workspace.Dir)
	assert.Equal(t, []string{"1.1.1.1", "8.8.8.8"}, cfg.DNS.Servers)
	assert.Equal(t, 5*time.Second, cfg.DNS.Timeout)
	assert.Empty(t, cfg.Secrets.Key)
}

func TestLoadConfig_FromFile(t *testing.T) {
	clearEnv(t)

	configContent := `
server:
  host: "127.0.0.1"
  port: 9000
  read_timeout: 60s
  write_timeout: 60s
  shutdown_timeout: 15s
  dev_mode: true

database:
  dsn: "/tmp/test.db"

log:
  level: "debug"
  format: "text"

auth:
  mode: dev

workspace:
  dir: /srv/berth/sources

dns:
  servers: ["9.9.9.9"]
  timeout: 2s

docker:
  cert_path: /etc/berth/certs
`
	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(configContent), 0644))

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
	assert.True(t, cfg.Server.DevMode)
	assert.Equal(t, "/tmp/test.db", cfg.Database.DSN)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "dev", cfg.Auth.Mode)
	assert.Equal(t, "/srv/berth/sources", cfg.Workspace.Dir)
	assert.Equal(t, []string{"9.9.9.9"}, cfg.DNS.Servers)
	assert.Equal(t, 2*time.Second, cfg.DNS.Timeout)
	assert.Equal(t, "/etc/berth/certs", cfg.Docker.CertPath)
}

func TestLoadConfig_EnvironmentOverride(t *testing.T) {
	clearEnv(t)

	t.Setenv("BERTH_SERVER_HOST", "192.168.1.1")
	t.Setenv("BERTH_SERVER_PORT", "3000")
	t.Setenv("BERTH_SERVER_DEV_MODE", "true")
	t.Setenv("BERTH_DATABASE_DSN", "/custom/path.db")
	t.Setenv("BERTH_LOG_LEVEL", "warn")
	t.Setenv("BERTH_LOG_FORMAT", "text")
	t.Setenv("BERTH_SECRETS_KEY", "a-long-master-secret")
	t.Setenv("BERTH_AUTH_SHARED_SECRET", "gw")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "192.168.1.1", cfg.Server.Host)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.True(t, cfg.Server.DevMode)
	assert.Equal(t, "/custom/path.db", cfg.Database.DSN)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "a-long-master-secret", cfg.Secrets.Key)
	assert.Equal(t, "gw", cfg.Auth.SharedSecret)
}

func TestLoadConfig_FileNotFound_UsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("/nonexistent/path/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	clearEnv(t)

	tmpFile := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte("invalid: yaml: content: [[["), 0644))

	_, err := LoadConfig(tmpFile)
	assert.Error(t, err)
}

func TestLoadConfig_InvalidAuthMode(t *testing.T) {
	clearEnv(t)
	t.Setenv("BERTH_AUTH_MODE", "none")

	_, err := LoadConfig("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.mode")
}

// =============================================================================
// Logger Setup Tests
// =============================================================================

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		level  string
		format string
	}{
		{"info", "json"},
		{"info", "text"},
		{"invalid", "json"},
		{"debug", "json"},
		{"warn", "json"},
		{"error", "text"},
	}

	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.format, func(t *testing.T) {
			cfg := &Config{Log: LogConfig{Level: tt.level, Format: tt.format}}
			assert.NotNil(t, SetupLogger(cfg))
		})
	}
}

// =============================================================================
// Config Validation Tests
// =============================================================================

func TestConfig_Address(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
	}

	assert.Equal(t, "localhost:8080", cfg.Server.Address())
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{
		Server:    ServerConfig{Port: 8080},
		Auth:      AuthConfig{Mode: "header"},
		Workspace: WorkspaceConfig{Dir: "/tmp/build-sources"},
	}
	require.NoError(t, valid.Validate())

	badPort := valid
	badPort.Server.Port = 70000
	assert.Error(t, badPort.Validate())

	noDir := valid
	noDir.Workspace.Dir = ""
	assert.Error(t, noDir.Validate())
}

// =============================================================================
// Test Helpers
// =============================================================================

func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"BERTH_SERVER_HOST",
		"BERTH_SERVER_PORT",
		"BERTH_SERVER_DEV_MODE",
		"BERTH_DATABASE_DSN",
		"BERTH_LOG_LEVEL",
		"BERTH_LOG_FORMAT",
		"BERTH_AUTH_MODE",
		"BERTH_AUTH_SHARED_SECRET",
		"BERTH_SECRETS_KEY",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}
}
