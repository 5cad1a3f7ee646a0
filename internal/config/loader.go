package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides,
// e.g. TASKDECK_STORAGE_BACKEND=sqlite.
const EnvPrefix = "TASKDECK"

// Load reads configuration from the given file path (optional) layered
// with environment variables and defaults. An empty path skips file
// loading entirely; a missing file at an explicit path is an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("storage.backend", string(def.Storage.Backend))
	v.SetDefault("storage.path", def.Storage.Path)
	v.SetDefault("webhooks.timeout", def.Webhooks.Timeout)
	v.SetDefault("webhooks.delivery_retention", def.Webhooks.DeliveryRetention)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Normalize backend aliases (e.g. "postgres" -> remote).
	if cfg.Storage.Backend != "" {
		backend, err := ParseBackend(string(cfg.Storage.Backend))
		if err != nil {
			return nil, err
		}
		cfg.Storage.Backend = backend
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
