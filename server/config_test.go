// ABOUTME: Tests for configuration loading from YAML files and INFRACACHE_* variables.
// ABOUTME: Also covers the remote access safety checks.
package server_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/2389-research/infracache/server"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"INFRACACHE_CONFIG", "INFRACACHE_HOME", "INFRACACHE_DATABASE", "INFRACACHE_BIND",
		"INFRACACHE_ALLOW_REMOTE", "INFRACACHE_AUTH_TOKEN", "INFRACACHE_LOG_LEVEL", "INFRACACHE_LOG_FORMAT",
	} {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := server.LoadConfig("", "/data/infracache")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Bind != "127.0.0.1:7780" {
		t.Errorf("bind = %q", cfg.Bind)
	}
	if cfg.Home != "/data/infracache" || cfg.Database != filepath.Join("/data/infracache", "infracache.db") {
		t.Errorf("home = %q, database = %q", cfg.Home, cfg.Database)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "text" {
		t.Errorf("log = %q/%q", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	clearConfigEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "home: /srv/infra\nbind: localhost:9000\nlog_level: debug\nlog_format: json\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("INFRACACHE_LOG_LEVEL", "warn")

	cfg, err := server.LoadConfig(path, "/unused")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Home != "/srv/infra" || cfg.Bind != "localhost:9000" || cfg.LogFormat != "json" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("log level = %q, want the environment to win", cfg.LogLevel)
	}
}

func TestLoadConfig_FromConfigVariable(t *testing.T) {
	clearConfigEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("database: /tmp/x.db\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("INFRACACHE_CONFIG", path)

	cfg, err := server.ConfigFromEnv("/home")
	if err != nil {
		t.Fatalf("ConfigFromEnv: %v", err)
	}
	if cfg.Database != "/tmp/x.db" {
		t.Errorf("database = %q", cfg.Database)
	}
}

func TestLoadConfig_MissingNamedFile(t *testing.T) {
	clearConfigEnv(t)
	if _, err := server.LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), "/home"); err == nil {
		t.Error("expected an error for a missing config file")
	}
}

func TestLoadConfig_RemoteSafety(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr error
	}{
		{"public bind refused", map[string]string{"INFRACACHE_BIND": "0.0.0.0:7780"}, server.ErrNonLoopbackBind},
		{"hostname refused", map[string]string{"INFRACACHE_BIND": "example.com:7780"}, server.ErrNonLoopbackBind},
		{"ipv6 loopback", map[string]string{"INFRACACHE_BIND": "[::1]:7780"}, nil},
		{"remote without token", map[string]string{"INFRACACHE_ALLOW_REMOTE": "true"}, server.ErrRemoteWithoutToken},
		{"remote with token", map[string]string{
			"INFRACACHE_ALLOW_REMOTE": "yes",
			"INFRACACHE_AUTH_TOKEN":   "t",
			"INFRACACHE_BIND":         "0.0.0.0:7780",
		}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := server.LoadConfig("", "/home")
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}
