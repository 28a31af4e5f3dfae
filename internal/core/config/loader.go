package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults if necessary
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Inference.Model == "" {
		cfg.Inference.Model = "gemini-2.5-flash-lite"
	}
	if cfg.Inference.MaxAttempts == 0 {
		cfg.Inference.MaxAttempts = 3
	}
	if cfg.Inference.MaxDelay == 0 {
		cfg.Inference.MaxDelay = 30 * time.Second
	}
	if cfg.Inference.RequestTimeout == 0 {
		cfg.Inference.RequestTimeout = 60 * time.Second
	}
	if cfg.Pipeline.SyncInterval == 0 {
		cfg.Pipeline.SyncInterval = 5 * time.Minute
	}
	if len(cfg.Pipeline.Roles) == 0 {
		cfg.Pipeline.Roles = DefaultRoles
	}

	if len(cfg.Inference.Credentials) == 0 {
		return nil, fmt.Errorf("no inference credentials configured")
	}

	return &cfg, nil
}
