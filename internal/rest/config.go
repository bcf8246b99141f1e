package rest

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds the HTTP server settings. YAML fields may be overridden
// by environment variables.
type ServerConfig struct {
	// ListenAddr is the TCP address the API server listens on.
	ListenAddr string `yaml:"listen_addr"`
	// CacheSize bounds the in-memory compute result cache.
	CacheSize int `yaml:"cache_size"`
	// ShutdownTimeout caps graceful shutdown on SIGINT.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// UnmarshalYAML accepts shutdown_timeout as a Go duration string and leaves
// fields absent from the document untouched.
func (c *ServerConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		ListenAddr      *string `yaml:"listen_addr"`
		CacheSize       *int    `yaml:"cache_size"`
		ShutdownTimeout *string `yaml:"shutdown_timeout"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.ListenAddr != nil {
		c.ListenAddr = *raw.ListenAddr
	}
	if raw.CacheSize != nil {
		c.CacheSize = *raw.CacheSize
	}
	if raw.ShutdownTimeout != nil {
		d, err := time.ParseDuration(*raw.ShutdownTimeout)
		if err != nil {
			return fmt.Errorf("shutdown_timeout: %w", err)
		}
		c.ShutdownTimeout = d
	}
	return nil
}

// DefaultServerConfig returns the settings used when no file is given.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr:      ":8080",
		CacheSize:       0, // service default
		ShutdownTimeout: 5 * time.Second,
	}
}

// LoadServerConfig reads a YAML config file and applies environment
// overrides. An empty path yields the defaults plus overrides.
func LoadServerConfig(path string) (ServerConfig, error) {
	cfg := DefaultServerConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if v := os.Getenv("EMFIELD_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("EMFIELD_CACHE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("EMFIELD_CACHE_SIZE: not a number: %q", v)
		}
		cfg.CacheSize = n
	}
	if v := os.Getenv("EMFIELD_SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("EMFIELD_SHUTDOWN_TIMEOUT: not a duration: %q", v)
		}
		cfg.ShutdownTimeout = d
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	return cfg, nil
}
