// ABOUTME: Server configuration from an optional YAML file overlaid with INFRACACHE_* environment variables.
// ABOUTME: Enforces security constraint: remote access requires opting in and an auth token.
package server

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrRemoteWithoutToken = errors.New(
		"INFRACACHE_ALLOW_REMOTE is true but INFRACACHE_AUTH_TOKEN is not set; refusing to start without authentication",
	)
	ErrNonLoopbackBind = errors.New(
		"INFRACACHE_BIND is a non-loopback address but INFRACACHE_ALLOW_REMOTE is not true; set INFRACACHE_ALLOW_REMOTE=true and INFRACACHE_AUTH_TOKEN to allow remote access",
	)
)

// Config holds the server settings. Every field may come from the YAML file
// and is then overridden by its environment variable when that one is set.
type Config struct {
	Home        string `yaml:"home"`         // INFRACACHE_HOME, data directory
	Database    string `yaml:"database"`     // INFRACACHE_DATABASE, default <home>/infracache.db
	Bind        string `yaml:"bind"`         // INFRACACHE_BIND, default 127.0.0.1:7780
	AllowRemote bool   `yaml:"allow_remote"` // INFRACACHE_ALLOW_REMOTE
	AuthToken   string `yaml:"auth_token"`   // INFRACACHE_AUTH_TOKEN
	LogLevel    string `yaml:"log_level"`    // INFRACACHE_LOG_LEVEL, default info
	LogFormat   string `yaml:"log_format"`   // INFRACACHE_LOG_FORMAT, text or json
}

// LoadConfig reads path (or INFRACACHE_CONFIG when path is empty), applies
// the environment and validates the result. defaultHome is used when no
// home is configured. A missing file is an error only when it was named.
func LoadConfig(path, defaultHome string) (*Config, error) {
	cfg := &Config{
		Bind:      "127.0.0.1:7780",
		LogLevel:  "info",
		LogFormat: "text",
	}

	if path == "" {
		path = os.Getenv("INFRACACHE_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	overrideString(&cfg.Home, "INFRACACHE_HOME")
	overrideString(&cfg.Database, "INFRACACHE_DATABASE")
	overrideString(&cfg.Bind, "INFRACACHE_BIND")
	overrideString(&cfg.AuthToken, "INFRACACHE_AUTH_TOKEN")
	overrideString(&cfg.LogLevel, "INFRACACHE_LOG_LEVEL")
	overrideString(&cfg.LogFormat, "INFRACACHE_LOG_FORMAT")
	if v, ok := os.LookupEnv("INFRACACHE_ALLOW_REMOTE"); ok {
		cfg.AllowRemote = isTruthy(v)
	}

	if cfg.Home == "" {
		cfg.Home = defaultHome
	}
	if cfg.Database == "" {
		cfg.Database = filepath.Join(cfg.Home, "infracache.db")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigFromEnv is LoadConfig without an explicit file.
func ConfigFromEnv(defaultHome string) (*Config, error) {
	return LoadConfig("", defaultHome)
}

func (c *Config) validate() error {
	if c.AllowRemote && c.AuthToken == "" {
		return ErrRemoteWithoutToken
	}
	if c.AllowRemote {
		return nil
	}

	// Only 127.0.0.0/8, ::1 and "localhost" count as local.
	host, _, err := net.SplitHostPort(c.Bind)
	if err != nil || host == "" {
		return nil
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() {
			return nil
		}
		return fmt.Errorf("%w: INFRACACHE_BIND=%s", ErrNonLoopbackBind, c.Bind)
	}
	if host == "localhost" {
		return nil
	}
	return fmt.Errorf("%w: INFRACACHE_BIND=%s", ErrNonLoopbackBind, c.Bind)
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		return true
	}
	return false
}
