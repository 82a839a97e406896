// Package config holds the service configuration: YAML file with defaults,
// environment overrides matching the deployment's variable names, and typed
// duration getters.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all cellexec configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// gRPC server settings
	Server ServerConfig `yaml:"server"`

	// Session registry limits
	Sessions SessionsConfig `yaml:"sessions"`

	// Static-analysis policy for submitted cells
	Security SecurityConfig `yaml:"security"`

	// Object store holding notebook sources and component assets
	Storage StorageConfig `yaml:"storage"`

	// Output marshalling limits
	Output OutputConfig `yaml:"output"`

	// Optional execution history database
	History HistoryConfig `yaml:"history"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the gRPC listener.
type ServerConfig struct {
	Port           int    `yaml:"port"`
	MaxConnections int    `yaml:"max_connections"`
	ShutdownGrace  string `yaml:"shutdown_grace"`
}

// SessionsConfig configures the session registry.
type SessionsConfig struct {
	MaxSessions   int    `yaml:"max_sessions"`
	IdleTimeout   string `yaml:"idle_timeout"`
	SweepInterval string `yaml:"sweep_interval"`
}

// SecurityConfig configures cell validation.
type SecurityConfig struct {
	MaxCodeLength  int      `yaml:"max_code_length"`
	AllowedImports []string `yaml:"allowed_imports"`
	BlockedImports []string `yaml:"blocked_imports"`
}

// StorageConfig configures the MinIO client.
type StorageConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// OutputConfig configures marshalling limits.
type OutputConfig struct {
	// MaxOutputBytes caps a single output's content; larger payloads are
	// truncated with a marker.
	MaxOutputBytes int `yaml:"max_output_bytes"`

	// ArraySummaryThreshold is the element count above which numeric arrays
	// render as a head/tail summary.
	ArraySummaryThreshold int `yaml:"array_summary_threshold"`

	// Rendered plot size in pixels.
	PlotWidth  int `yaml:"plot_width"`
	PlotHeight int `yaml:"plot_height"`
}

// HistoryConfig configures the execution audit database. An empty path
// disables it.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "cellexec",
		Version: "1.0.0",

		Server: ServerConfig{
			Port:           9095,
			MaxConnections: 256,
			ShutdownGrace:  "15s",
		},

		Sessions: SessionsConfig{
			MaxSessions:   100,
			IdleTimeout:   "240m",
			SweepInterval: "5m",
		},

		Security: SecurityConfig{
			MaxCodeLength: 25000,
			AllowedImports: []string{
				"bytes", "encoding/base64", "encoding/csv", "encoding/json",
				"errors", "fmt", "math", "math/rand", "regexp", "sort",
				"strconv", "strings", "time", "unicode", "unicode/utf8",
				"ui", "charts", "frames", "nbsdk",
			},
			BlockedImports: []string{
				"os", "net", "syscall", "unsafe", "plugin", "runtime", "reflect",
			},
		},

		Storage: StorageConfig{
			Endpoint:  "localhost:9000",
			AccessKey: "minioadmin",
			SecretKey: "minioadmin",
			Bucket:    "marimo",
			UseSSL:    false,
		},

		Output: OutputConfig{
			MaxOutputBytes:        1 << 20,
			ArraySummaryThreshold: 100,
			PlotWidth:             640,
			PlotHeight:            480,
		},

		History: HistoryConfig{
			Path: "",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides. The variable
// names follow the deployment manifests, so the binary drops into the same
// compose files the service has always used.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("GRPC_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("MAX_SESSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Sessions.MaxSessions = n
		}
	}
	if v := os.Getenv("SESSION_TIMEOUT_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Sessions.IdleTimeout = fmt.Sprintf("%dm", n)
		}
	}
	if v := os.Getenv("MAX_CODE_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Security.MaxCodeLength = n
		}
	}

	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		c.Storage.Endpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		c.Storage.AccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		c.Storage.SecretKey = v
	}
	if v := os.Getenv("MINIO_BUCKET"); v != "" {
		c.Storage.Bucket = v
	}
	if v := os.Getenv("MINIO_SECURE"); v != "" {
		c.Storage.UseSSL = v == "true" || v == "1"
	}

	if v := os.Getenv("HISTORY_PATH"); v != "" {
		c.History.Path = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
}

// SessionIdleTimeout returns the session idle timeout as a duration.
func (c *Config) SessionIdleTimeout() time.Duration {
	d, err := time.ParseDuration(c.Sessions.IdleTimeout)
	if err != nil {
		return 240 * time.Minute
	}
	return d
}

// SweepInterval returns the expiry sweep interval as a duration.
func (c *Config) SweepInterval() time.Duration {
	d, err := time.ParseDuration(c.Sessions.SweepInterval)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}

// ShutdownGrace returns how long a graceful stop may take before the server
// is stopped hard.
func (c *Config) ShutdownGrace() time.Duration {
	d, err := time.ParseDuration(c.Server.ShutdownGrace)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Sessions.MaxSessions < 1 {
		return fmt.Errorf("max_sessions must be positive, got %d", c.Sessions.MaxSessions)
	}
	if c.Security.MaxCodeLength < 1 {
		return fmt.Errorf("max_code_length must be positive, got %d", c.Security.MaxCodeLength)
	}
	if len(c.Security.AllowedImports) == 0 {
		return fmt.Errorf("allowed_imports must not be empty")
	}
	if c.Storage.Endpoint == "" {
		return fmt.Errorf("storage endpoint must not be empty")
	}
	if _, err := time.ParseDuration(c.Sessions.IdleTimeout); err != nil {
		return fmt.Errorf("invalid idle_timeout: %w", err)
	}
	return nil
}
