// Package config loads application configuration from a YAML file with
// environment-variable overrides. A .env file is honored for local
// development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Octave   OctaveConfig   `yaml:"octave"`
	Notify   NotifyConfig   `yaml:"notify"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig holds PostgreSQL settings.
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds Redis settings for the per-campaign generation lock.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AuthConfig holds credential verification settings. AdminEmails is the
// single source of truth for the elevated-principal allowlist; nothing
// outside the actor resolver reads it.
type AuthConfig struct {
	JWTSecret   string   `yaml:"jwt_secret"`
	AdminEmails []string `yaml:"admin_emails"`
}

// OctaveConfig holds settings for the content-generation gateway.
type OctaveConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
}

// Timeout returns the request timeout as a duration.
func (o OctaveConfig) Timeout() time.Duration {
	if o.TimeoutSeconds <= 0 {
		return 3 * time.Minute
	}
	return time.Duration(o.TimeoutSeconds) * time.Second
}

// NotifyConfig holds settings for the webhook notification dispatcher.
type NotifyConfig struct {
	WebhookURL          string `yaml:"webhook_url"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	MaxAttempts         int    `yaml:"max_attempts"`
}

// PollInterval returns the dispatcher poll interval as a duration.
func (n NotifyConfig) PollInterval() time.Duration {
	if n.PollIntervalSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(n.PollIntervalSeconds) * time.Second
}

// Load reads configuration from the given YAML path (if it exists) and then
// applies environment overrides. Missing file is not an error: everything
// can come from the environment.
func Load(path string) (*Config, error) {
	// .env for local development; absence is fine.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		Database: DatabaseConfig{
			MaxOpenConns: 25,
			MaxIdleConns: 5,
		},
		Redis:  RedisConfig{Addr: "localhost:6379"},
		Octave: OctaveConfig{BaseURL: "https://app.octavehq.com/api/v2", TimeoutSeconds: 180, MaxRetries: 3},
		Notify: NotifyConfig{PollIntervalSeconds: 15, MaxAttempts: 3},
	}

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("ADMIN_EMAILS"); v != "" {
		parts := strings.Split(v, ",")
		emails := make([]string, 0, len(parts))
		for _, p := range parts {
			if e := strings.TrimSpace(p); e != "" {
				emails = append(emails, e)
			}
		}
		cfg.Auth.AdminEmails = emails
	}
	if v := os.Getenv("OCTAVE_BASE_URL"); v != "" {
		cfg.Octave.BaseURL = v
	}
	if v := os.Getenv("OCTAVE_API_KEY"); v != "" {
		cfg.Octave.APIKey = v
	}
	if v := os.Getenv("NOTIFY_WEBHOOK_URL"); v != "" {
		cfg.Notify.WebhookURL = v
	}
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database url is required (DATABASE_URL or database.url)")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("jwt secret is required (JWT_SECRET or auth.jwt_secret)")
	}
	return nil
}
