package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SettingsFile is the name of the YAML file Initialize looks for in
// configDir.
const SettingsFile = "settings.yaml"

// Initialize loads, validates, and returns ready-to-use configuration.
//
// Steps performed:
//  1. Start from DefaultConfig()
//  2. Read settings.yaml from configDir, if present
//  3. Expand environment variables in its contents
//  4. Parse YAML and merge non-zero fields over the defaults
//  5. Derive the time.Duration fields from their *_seconds inputs
//  6. Validate the result
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log.Info("configuration initialized",
		"max_concurrent_tasks", cfg.MaxConcurrentTasks,
		"gdelt_interval_minutes", cfg.GDELT.IntervalMinutes,
		"retention_enabled", cfg.Retention.Enabled,
		"masking_enabled", cfg.Masking.Enabled)

	return cfg, nil
}

func load(_ context.Context, configDir string) (*Config, error) {
	base := DefaultConfig()
	base.configDir = configDir

	overlay, err := loadOverlay(configDir)
	if err != nil {
		return nil, err
	}

	merged, err := mergeOverlay(base, overlay)
	if err != nil {
		return nil, fmt.Errorf("failed to merge settings: %w", err)
	}
	merged.configDir = configDir
	merged.resolveDurations()
	return merged, nil
}

// loadOverlay reads settings.yaml, expands its environment variable
// references, and parses it into a Config. A missing file is not an
// error — it yields a zero-value overlay so every field falls back to
// DefaultConfig().
func loadOverlay(configDir string) (*Config, error) {
	var overlay Config
	path := filepath.Join(configDir, SettingsFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &overlay, nil
		}
		return nil, NewLoadError(SettingsFile, err)
	}

	data = ExpandEnv(data)
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, NewLoadError(SettingsFile, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}
	return &overlay, nil
}

func validate(cfg *Config) error {
	if cfg.MaxConcurrentTasks <= 0 {
		return NewValidationError("config", "max_concurrent_tasks", "", fmt.Errorf("%w: must be > 0", ErrInvalidValue))
	}
	if cfg.TaskTimeoutSeconds <= 0 {
		return NewValidationError("config", "task_timeout_seconds", "", fmt.Errorf("%w: must be > 0", ErrInvalidValue))
	}
	if cfg.ShutdownTimeoutSeconds <= 0 {
		return NewValidationError("config", "shutdown_timeout", "", fmt.Errorf("%w: must be > 0", ErrInvalidValue))
	}
	if cfg.PushMaxPerHour < 0 {
		return NewValidationError("config", "push_max_per_hour", "", fmt.Errorf("%w: must be >= 0", ErrInvalidValue))
	}
	if cfg.GDELT.IntervalMinutes <= 0 {
		return NewValidationError("config", "gdelt.interval_minutes", "", fmt.Errorf("%w: must be > 0", ErrInvalidValue))
	}
	if cfg.Retention.Enabled {
		if cfg.Retention.IntervalSeconds <= 0 {
			return NewValidationError("config", "retention.interval_seconds", "", fmt.Errorf("%w: must be > 0", ErrInvalidValue))
		}
		if cfg.Retention.BatchSize <= 0 {
			return NewValidationError("config", "retention.batch_size", "", fmt.Errorf("%w: must be > 0", ErrInvalidValue))
		}
		if cfg.Retention.GraceDays < 0 {
			return NewValidationError("config", "retention.grace_days", "", fmt.Errorf("%w: must be >= 0", ErrInvalidValue))
		}
	}
	if cfg.Qdrant.Collection == "" {
		return NewValidationError("config", "qdrant.collection", "", ErrMissingRequiredField)
	}
	if cfg.Qdrant.VectorSize <= 0 {
		return NewValidationError("config", "qdrant.vector_size", "", fmt.Errorf("%w: must be > 0", ErrInvalidValue))
	}
	if cfg.Neo4j.URI == "" {
		return NewValidationError("config", "neo4j.uri", "", ErrMissingRequiredField)
	}
	return nil
}

// ResolveNeo4jPassword reads the Neo4j credential from the environment
// variable named by cfg.Neo4j.PasswordEnv.
func (c *Config) ResolveNeo4jPassword() string {
	if c.Neo4j.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(c.Neo4j.PasswordEnv)
}
