package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Docker    DockerConfig    `mapstructure:"docker"`
	Log       LogConfig       `mapstructure:"log"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Workspace WorkspaceConfig `mapstructure:"workspace"`
	DNS       DNSConfig       `mapstructure:"dns"`
	Secrets   SecretsConfig   `mapstructure:"secrets"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// DevMode disables DNS verification of custom domains.
	DevMode bool `mapstructure:"dev_mode"`
}

// Address returns the server address in host:port format.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// DockerConfig holds engine client configuration.
type DockerConfig struct {
	// CertPath is a directory with ca.pem, cert.pem and key.pem for tcp:// engines.
	CertPath string `mapstructure:"cert_path"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	// Mode determines how authentication is handled.
	// "header" - identity from gateway headers (production)
	// "dev" - every request is the dev user
	Mode string `mapstructure:"mode"`

	// SharedSecret is an optional secret to validate X-Gateway-Secret header.
	SharedSecret string `mapstructure:"shared_secret"`
}

// WorkspaceConfig holds the location of generated deployment files.
type WorkspaceConfig struct {
	Dir string `mapstructure:"dir"`
}

// DNSConfig holds the resolvers used for domain verification.
type DNSConfig struct {
	Servers []string      `mapstructure:"servers"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SecretsConfig holds the master key for service secrets at rest.
type SecretsConfig struct {
	// Key enables encryption of stored secret values. Set via BERTH_SECRETS_KEY.
	Key string `mapstructure:"key"`
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "10m")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.dev_mode", false)
	v.SetDefault("database.dsn", "./data/berth.db")
	v.SetDefault("docker.cert_path", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("auth.mode", "header")
	v.SetDefault("auth.shared_secret", "")
	v.SetDefault("workspace.dir", "/tmp/build-sources")
	v.SetDefault("dns.servers", []string{"1.1.1.1", "8.8.8.8"})
	v.SetDefault("dns.timeout", "5s")
	v.SetDefault("secrets.key", "")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// A missing file falls back to defaults; a broken one does not.
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix("BERTH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Auth.Mode {
	case "header", "dev":
	default:
		return fmt.Errorf("auth.mode must be header or dev, got %q", c.Auth.Mode)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Workspace.Dir == "" {
		return fmt.Errorf("workspace.dir is required")
	}
	return nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format.
func SetupLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
