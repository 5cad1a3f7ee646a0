package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rmallory/taskdeck/internal/util"
)

// WriteFile serializes the configuration to YAML at the given path,
// replacing the file atomically. Refuses to overwrite an existing file.
func WriteFile(cfg *Config, path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat config %s: %w", path, err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
