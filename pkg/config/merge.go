package config

import "dario.cat/mergo"

// mergeOverlay merges overlay (parsed from settings.yaml) onto base
// (DefaultConfig()), with overlay's non-zero fields taking precedence.
// Mirrors the reference backend's built-in+user merge pipeline,
// collapsed from per-registry merges onto one flat settings struct.
func mergeOverlay(base, overlay *Config) (*Config, error) {
	if err := mergo.Merge(base, overlay, mergo.WithOverride); err != nil {
		return nil, err
	}
	return base, nil
}
