package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML configuration file over the defaults and validates
// the result. An empty path returns the validated defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, &ConfigurationError{Err: fmt.Errorf("read %s: %w", path, err)}
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, &ConfigurationError{Err: fmt.Errorf("parse %s: %w", path, err)}
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
