// Package config provides configuration loading for jarvis.
//
// Configuration is read from an optional YAML file and overridden by
// environment variables. See LoadWithFile for precedence and mapping rules.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete jarvis configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	OpenAI        ProviderConfig      `koanf:"openai"`
	Gemini        ProviderConfig      `koanf:"gemini"`
	Command       CommandConfig       `koanf:"command"`
	Supabase      SupabaseConfig      `koanf:"supabase"`
	NATS          NATSConfig          `koanf:"nats"`
	Observability ObservabilityConfig `koanf:"observability"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"http_host"`
	Port            int           `koanf:"http_port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// ProviderConfig holds settings for one generative model backend.
// A provider is enabled only when its API key is set.
type ProviderConfig struct {
	APIKey     Secret        `koanf:"api_key"`
	Model      string        `koanf:"model"`
	BaseURL    string        `koanf:"base_url"`
	Timeout    time.Duration `koanf:"timeout"`
	RateLimit  float64       `koanf:"rate_limit"` // requests per second
	MaxRetries int           `koanf:"max_retries"`
}

// Enabled reports whether the provider has a credential configured.
func (p ProviderConfig) Enabled() bool {
	return p.APIKey.IsSet()
}

// CommandConfig controls how natural-language commands are interpreted.
type CommandConfig struct {
	DefaultTimeZone string        `koanf:"default_timezone"`
	AttemptTimeout  time.Duration `koanf:"attempt_timeout"`
	RepairJSON      bool          `koanf:"repair_json"`
	EventWindow     time.Duration `koanf:"event_window"`
}

// SupabaseConfig holds the PostgREST endpoint used by the finance and
// calendar collaborators. When URL is empty an in-memory store is used.
type SupabaseConfig struct {
	URL        string        `koanf:"url"`
	ServiceKey Secret        `koanf:"service_key"`
	Timeout    time.Duration `koanf:"timeout"`
}

// Enabled reports whether a Supabase endpoint is configured.
func (s SupabaseConfig) Enabled() bool {
	return s.URL != ""
}

// NATSConfig holds the outcome event bus configuration.
// Publishing is disabled when URL is empty.
type NATSConfig struct {
	URL           string `koanf:"url"`
	SubjectPrefix string `koanf:"subject_prefix"`
}

// ObservabilityConfig holds logging and OpenTelemetry configuration.
type ObservabilityConfig struct {
	EnableTelemetry bool   `koanf:"enable_telemetry"`
	ServiceName     string `koanf:"service_name"`
	Endpoint        string `koanf:"endpoint"`
	LogLevel        string `koanf:"log_level"`
	LogFormat       string `koanf:"log_format"`
}

// Default returns a configuration populated with defaults only.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Validate validates the configuration.
//
// Returns an error if:
//   - Server port is not between 1 and 65535
//   - Shutdown or attempt timeouts are not positive
//   - The default time zone cannot be loaded
//   - Supabase is configured without a service key
//   - Service name is empty (when telemetry is enabled)
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}

	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	if c.Command.AttemptTimeout <= 0 {
		return errors.New("command attempt timeout must be positive")
	}

	if _, err := time.LoadLocation(c.Command.DefaultTimeZone); err != nil {
		return fmt.Errorf("invalid default timezone %q: %w", c.Command.DefaultTimeZone, err)
	}

	for name, p := range map[string]ProviderConfig{"openai": c.OpenAI, "gemini": c.Gemini} {
		if p.RateLimit < 0 {
			return fmt.Errorf("%s rate limit cannot be negative", name)
		}
		if p.MaxRetries < 0 {
			return fmt.Errorf("%s max retries cannot be negative", name)
		}
	}

	if c.Supabase.Enabled() && !c.Supabase.ServiceKey.IsSet() {
		return errors.New("supabase service key required when supabase url is set")
	}

	if c.Observability.EnableTelemetry && c.Observability.ServiceName == "" {
		return errors.New("service name required when telemetry is enabled")
	}

	return nil
}
