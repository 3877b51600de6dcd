// Package config loads the server configuration from a YAML file with
// environment overrides for deployment secrets.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig is the full server configuration.
type AppConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	QR       QRConfig       `yaml:"qr"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr string `yaml:"addr"` // Listen address, e.g. ":8080".
}

// DatabaseConfig holds the storage connection settings.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"` // Postgres or SQLite DSN.
}

// JWTConfig holds the login token settings.
type JWTConfig struct {
	Secret        string `yaml:"secret"`
	ExpiryMinutes int    `yaml:"expiry-minutes"`
}

// Expiry returns the login token lifetime.
func (c JWTConfig) Expiry() time.Duration {
	if c.ExpiryMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.ExpiryMinutes) * time.Minute
}

// QRConfig holds the QR token signing settings. The secret is loaded once at
// startup and passed to the issuer at construction; it is never logged.
type QRConfig struct {
	Secret string `yaml:"secret"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `yaml:"level"`       // logrus level name, default info.
	File       string `yaml:"file"`        // Log file path; empty logs to stderr.
	MaxSizeMB  int    `yaml:"max-size-mb"` // Rotation threshold, default 100.
	MaxBackups int    `yaml:"max-backups"` // Rotated files kept, default 3.
}

// Load reads the YAML file at path and applies environment overrides.
// A missing file is not an error; env-only deployments are supported.
func Load(path string) (AppConfig, error) {
	cfg := AppConfig{
		Server: ServerConfig{Addr: ":8080"},
		JWT:    JWTConfig{ExpiryMinutes: 60},
		Log:    LogConfig{Level: "info", MaxSizeMB: 100, MaxBackups: 3},
	}

	if strings.TrimSpace(path) != "" {
		data, errRead := os.ReadFile(path)
		switch {
		case errRead == nil:
			if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
				return AppConfig{}, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
			}
		case os.IsNotExist(errRead):
			// fall through to env overrides
		default:
			return AppConfig{}, fmt.Errorf("config: read %s: %w", path, errRead)
		}
	}

	applyEnvOverrides(&cfg)

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return AppConfig{}, fmt.Errorf("config: database dsn is required")
	}
	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		return AppConfig{}, fmt.Errorf("config: jwt secret is required")
	}
	if strings.TrimSpace(cfg.QR.Secret) == "" {
		return AppConfig{}, fmt.Errorf("config: qr secret is required")
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv("FARECARD_ADDR")); v != "" {
		cfg.Server.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("FARECARD_DSN")); v != "" {
		cfg.Database.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv("FARECARD_JWT_SECRET")); v != "" {
		cfg.JWT.Secret = v
	}
	if v := strings.TrimSpace(os.Getenv("FARECARD_QR_SECRET")); v != "" {
		cfg.QR.Secret = v
	}
	if v := strings.TrimSpace(os.Getenv("FARECARD_LOG_LEVEL")); v != "" {
		cfg.Log.Level = v
	}
}
