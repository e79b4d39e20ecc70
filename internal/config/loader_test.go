package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// setupTestHome points HOME at a temporary directory for the duration of the test.
func setupTestHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func writeConfig(t *testing.T, home, content string, perm os.FileMode) string {
	t.Helper()
	dir := filepath.Join(home, ".config", "jarvis")
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestLoadWithFile_ValidYAML(t *testing.T) {
	home := setupTestHome(t)

	path := writeConfig(t, home, `server:
  http_port: 8181
  http_host: 127.0.0.1
openai:
  api_key: sk-from-file
  model: gpt-4o
command:
  default_timezone: America/Recife
  attempt_timeout: 5s
  repair_json: true
`, 0600)

	cfg, err := LoadWithFile(path)
	if err != nil {
		t.Fatalf("LoadWithFile() error = %v, want nil", err)
	}

	if cfg.Server.Port != 8181 {
		t.Errorf("Server.Port = %d, want 8181", cfg.Server.Port)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.OpenAI.APIKey.Value() != "sk-from-file" {
		t.Errorf("OpenAI.APIKey not loaded from file")
	}
	if cfg.OpenAI.Model != "gpt-4o" {
		t.Errorf("OpenAI.Model = %q, want gpt-4o", cfg.OpenAI.Model)
	}
	if cfg.Command.DefaultTimeZone != "America/Recife" {
		t.Errorf("Command.DefaultTimeZone = %q", cfg.Command.DefaultTimeZone)
	}
	if cfg.Command.AttemptTimeout != 5*time.Second {
		t.Errorf("Command.AttemptTimeout = %v, want 5s", cfg.Command.AttemptTimeout)
	}
	if !cfg.Command.RepairJSON {
		t.Error("Command.RepairJSON = false, want true")
	}
	// Defaults fill the rest
	if cfg.Gemini.Model != "gemini-1.5-flash" {
		t.Errorf("Gemini.Model = %q, want default", cfg.Gemini.Model)
	}
}

func TestLoadWithFile_EnvOverridesFile(t *testing.T) {
	home := setupTestHome(t)
	path := writeConfig(t, home, "server:\n  http_port: 8181\n", 0600)

	t.Setenv("SERVER_HTTP_PORT", "7070")
	t.Setenv("GEMINI_API_KEY", "gm-env-key")

	cfg, err := LoadWithFile(path)
	if err != nil {
		t.Fatalf("LoadWithFile() error = %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070 from env", cfg.Server.Port)
	}
	if !cfg.Gemini.Enabled() {
		t.Error("Gemini.Enabled() = false, want true from env key")
	}
	if cfg.OpenAI.Enabled() {
		t.Error("OpenAI.Enabled() = true, want false")
	}
}

func TestLoadWithFile_MissingFileUsesDefaults(t *testing.T) {
	home := setupTestHome(t)

	cfg, err := LoadWithFile(filepath.Join(home, ".config", "jarvis", "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadWithFile() error = %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
}

func TestLoadWithFile_RejectsInsecurePermissions(t *testing.T) {
	home := setupTestHome(t)
	path := writeConfig(t, home, "server:\n  http_port: 8181\n", 0644)

	if _, err := LoadWithFile(path); err == nil {
		t.Error("LoadWithFile() = nil error, want permission error")
	}
}

func TestValidateConfigPath(t *testing.T) {
	home := setupTestHome(t)

	valid := []string{
		filepath.Join(home, ".config", "jarvis", "config.yaml"),
		"/etc/jarvis/config.yaml",
	}
	for _, p := range valid {
		if err := validateConfigPath(p); err != nil {
			t.Errorf("validateConfigPath(%q) = %v, want nil", p, err)
		}
	}

	invalid := []string{
		"/etc/jarvis../etc/passwd",
		"/tmp/config.yaml",
		filepath.Join(home, ".config", "jarvis", "..", "..", "evil.yaml"),
	}
	for _, p := range invalid {
		if err := validateConfigPath(p); err == nil {
			t.Errorf("validateConfigPath(%q) = nil, want error", p)
		}
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"SERVER_HTTP_PORT":    "server.http_port",
		"OPENAI_API_KEY":      "openai.api_key",
		"COMMAND_REPAIR_JSON": "command.repair_json",
		"HOME":                "home",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}
