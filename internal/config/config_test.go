package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_ConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  listen: ":8080"

logging:
  level: "INFO"

auth:
  mode: debug

shares:
  - prefix: /files
    path: /srv/webdav
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Listen != ":8080" {
		t.Errorf("Expected listen ':8080', got %q", cfg.Server.Listen)
	}
	// Defaults fill in what the file leaves out.
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("Expected default shutdown_timeout 10s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected default format 'json', got %q", cfg.Logging.Format)
	}
	// Levels normalize to lowercase.
	if cfg.Logging.Level != "info" {
		t.Errorf("Expected level 'info', got %q", cfg.Logging.Level)
	}
	if len(cfg.Shares) != 1 || cfg.Shares[0].Prefix != "/files" {
		t.Fatalf("Unexpected shares: %+v", cfg.Shares)
	}
	if cfg.Shares[0].Operator != "none" {
		t.Errorf("Expected default operator 'none', got %q", cfg.Shares[0].Operator)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	// Loading with no config file returns the default config so the server
	// can start for quick testing without one.
	tmpDir := t.TempDir()
	nonExistentPath := filepath.Join(tmpDir, "nonexistent.yaml")

	cfg, err := Load(nonExistentPath)
	if err != nil {
		t.Fatalf("Expected no error when loading default config, got: %v", err)
	}
	if cfg == nil {
		t.Fatal("Expected default config to be returned")
	}
	if cfg.Server.Listen != ":8000" {
		t.Errorf("Expected default listen ':8000', got %q", cfg.Server.Listen)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	configContent := `
logging:
  level: info
  invalid yaml here [[[
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error with invalid YAML, got nil")
	}
}

func TestLoad_InvalidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	// Static auth without users must not load.
	configContent := `
auth:
  mode: static

shares:
  - prefix: /files
    path: /srv/webdav
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected validation error, got nil")
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	_ = os.Setenv("WEBDAVD_LOGGING_LEVEL", "ERROR")
	defer func() {
		_ = os.Unsetenv("WEBDAVD_LOGGING_LEVEL")
	}()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "INFO"

auth:
  mode: debug

shares:
  - prefix: /files
    path: /srv/webdav
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Environment variables override the config file.
	if cfg.Logging.Level != "error" {
		t.Errorf("Expected level 'error' from env var, got %q", cfg.Logging.Level)
	}
}

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if cfg.Server.Listen != ":8000" {
		t.Errorf("Expected default listen ':8000', got %q", cfg.Server.Listen)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("Expected default shutdown timeout 10s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Expected default log level 'info', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected default log format 'json', got %q", cfg.Logging.Format)
	}
	if cfg.Auth.Mode != "static" {
		t.Errorf("Expected default auth mode 'static', got %q", cfg.Auth.Mode)
	}
	if len(cfg.Shares) != 1 || cfg.Shares[0].Prefix != "/files" {
		t.Errorf("Unexpected default shares: %+v", cfg.Shares)
	}
	if cfg.Metrics.Enabled {
		t.Error("Expected metrics disabled by default")
	}
}

func TestApplyDefaults_MetricsListen(t *testing.T) {
	cfg := &Config{Metrics: MetricsConfig{Enabled: true}}
	ApplyDefaults(cfg)
	if cfg.Metrics.Listen != ":9090" {
		t.Errorf("Expected metrics listen ':9090', got %q", cfg.Metrics.Listen)
	}

	cfg = &Config{}
	ApplyDefaults(cfg)
	if cfg.Metrics.Listen != "" {
		t.Errorf("Expected no metrics listen when disabled, got %q", cfg.Metrics.Listen)
	}
}

func TestSaveConfig_Roundtrip(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "sub", "config.yaml")

	cfg := GetDefaultConfig()
	cfg.Auth.Users = map[string]string{"alice": "$2a$10$fakehashfakehashfakehash"}

	if err := SaveConfig(cfg, configPath); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	// The file carries password hashes and must be owner-only.
	fi, err := os.Stat(configPath)
	if err != nil {
		t.Fatalf("Config file was not created: %v", err)
	}
	if fi.Mode().Perm() != 0o600 {
		t.Errorf("Expected mode 0600, got %v", fi.Mode().Perm())
	}

	loaded, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if loaded.Auth.Users["alice"] != cfg.Auth.Users["alice"] {
		t.Errorf("User table did not survive the roundtrip: %+v", loaded.Auth.Users)
	}
	if loaded.Shares[0].Prefix != "/files" {
		t.Errorf("Shares did not survive the roundtrip: %+v", loaded.Shares)
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	path := GetDefaultConfigPath()
	if filepath.Base(path) != "config.yaml" {
		t.Errorf("Expected filename 'config.yaml', got %q", filepath.Base(path))
	}
	if filepath.Base(filepath.Dir(path)) != "webdavd" {
		t.Errorf("Expected directory 'webdavd', got %q", filepath.Dir(path))
	}
}
