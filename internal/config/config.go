// Package config provides configuration management for taskdeck.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rmallory/taskdeck/internal/deckerr"
)

// Backend identifies a storage backend kind. Selection is by declared
// configuration; path/URL sniffing exists only as a convenience helper
// (DetectBackend) and is never applied implicitly.
type Backend string

const (
	// BackendFile persists the whole snapshot to a single JSON file.
	BackendFile Backend = "file"
	// BackendSQLite persists to an embedded single-file database.
	BackendSQLite Backend = "sqlite"
	// BackendRemote persists to a remote relational service.
	BackendRemote Backend = "remote"
)

// ValidBackends returns all valid backend kinds.
func ValidBackends() []Backend {
	return []Backend{BackendFile, BackendSQLite, BackendRemote}
}

// ParseBackend parses a backend kind string.
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "file", "json":
		return BackendFile, nil
	case "sqlite", "sqlite3", "db":
		return BackendSQLite, nil
	case "remote", "postgres", "postgresql":
		return BackendRemote, nil
	default:
		return "", fmt.Errorf("unknown storage backend: %q", s)
	}
}

// DetectBackend guesses a backend kind from a connection target. This is a
// convenience default for CLI use only; explicit configuration wins.
func DetectBackend(target string) Backend {
	switch {
	case strings.HasPrefix(target, "postgres://"),
		strings.HasPrefix(target, "postgresql://"):
		return BackendRemote
	case strings.HasSuffix(target, ".db"),
		strings.HasSuffix(target, ".sqlite"),
		strings.HasSuffix(target, ".sqlite3"):
		return BackendSQLite
	default:
		return BackendFile
	}
}

// StorageConfig selects and parameterizes the storage backend.
type StorageConfig struct {
	// Backend is the storage backend kind.
	Backend Backend `yaml:"backend" mapstructure:"backend"`

	// Path is the snapshot file or database file path
	// (file and sqlite backends).
	Path string `yaml:"path,omitempty" mapstructure:"path"`

	// DSN is the remote service connection string (remote backend).
	DSN string `yaml:"dsn,omitempty" mapstructure:"dsn"`

	// Realtime enables the remote backend's push subscription.
	Realtime bool `yaml:"realtime,omitempty" mapstructure:"realtime"`

	// RealtimeURL is the websocket endpoint for change notifications.
	RealtimeURL string `yaml:"realtime_url,omitempty" mapstructure:"realtime_url"`
}

// WebhookConfig parameterizes outbound webhook delivery.
type WebhookConfig struct {
	// Timeout bounds a single delivery attempt.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// DeliveryRetention is how long delivery log records are kept
	// before cleanup prunes them.
	DeliveryRetention time.Duration `yaml:"delivery_retention" mapstructure:"delivery_retention"`
}

// Config represents the taskdeck configuration.
type Config struct {
	Storage  StorageConfig `yaml:"storage" mapstructure:"storage"`
	Webhooks WebhookConfig `yaml:"webhooks" mapstructure:"webhooks"`
}

// Default returns the default configuration: a snapshot file in the
// working directory, no realtime subscription.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: BackendFile,
			Path:    "taskdeck.json",
		},
		Webhooks: WebhookConfig{
			Timeout:           5 * time.Second,
			DeliveryRetention: 7 * 24 * time.Hour,
		},
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFile, BackendSQLite:
		if c.Storage.Path == "" {
			return deckerr.Newf(deckerr.CodeConfigInvalid,
				"storage path required", fmt.Sprintf("backend %q needs storage.path", c.Storage.Backend))
		}
	case BackendRemote:
		if c.Storage.DSN == "" {
			return deckerr.New(deckerr.CodeConfigInvalid, "remote backend needs storage.dsn")
		}
		if c.Storage.Realtime && c.Storage.RealtimeURL == "" {
			return deckerr.New(deckerr.CodeConfigInvalid, "realtime enabled without storage.realtime_url")
		}
	default:
		return deckerr.Newf(deckerr.CodeConfigInvalid,
			"unknown storage backend", string(c.Storage.Backend))
	}
	return nil
}
