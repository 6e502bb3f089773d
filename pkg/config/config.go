// Package config loads AEGI Core's settings.yaml, expands environment
// variables into it, merges the result over built-in defaults, and
// validates the outcome before any service starts. Adapted from the
// reference backend's pkg/config loader (same env-expand/merge/
// validate pipeline), re-targeted from its agent/chain/MCP registries
// onto the flat settings table of spec.md §6.
package config

import "time"

// Config is the fully resolved, validated settings object every
// long-running component is constructed from.
type Config struct {
	configDir string

	MaxConcurrentTasks     int           `yaml:"max_concurrent_tasks"`
	TaskTimeout            time.Duration `yaml:"-"`
	TaskTimeoutSeconds     int           `yaml:"task_timeout_seconds"`
	ShutdownTimeout        time.Duration `yaml:"-"`
	ShutdownTimeoutSeconds int           `yaml:"shutdown_timeout"`
	PushMaxPerHour         int           `yaml:"push_max_per_hour"`

	GDELT      GDELTConfig      `yaml:"gdelt"`
	Retention  RetentionConfig  `yaml:"retention"`
	Qdrant     QdrantConfig     `yaml:"qdrant"`
	Neo4j      Neo4jConfig      `yaml:"neo4j"`
	ToolRunner ToolRunnerConfig `yaml:"toolrunner"`
	Masking    MaskingConfig    `yaml:"masking"`
}

// GDELTConfig tunes the GDELT poll scheduler, spec.md §4.14.
type GDELTConfig struct {
	IntervalMinutes     int `yaml:"interval_minutes"`
	InitialDelaySeconds int `yaml:"initial_delay_seconds"`
}

// QdrantConfig shapes the vector store collection, spec.md §6.
type QdrantConfig struct {
	Collection string `yaml:"collection"`
	VectorSize int    `yaml:"vector_size"`
}

// Neo4jConfig addresses the property-graph store. PasswordEnv names
// the environment variable holding the credential, mirroring the
// reference backend's *_TokenEnv convention — the plaintext secret
// never lives in the YAML file itself.
type Neo4jConfig struct {
	URI         string `yaml:"uri"`
	User        string `yaml:"user"`
	PasswordEnv string `yaml:"password_env"`
	Database    string `yaml:"database"`
}

// ToolRunnerConfig bounds the external-fetch capability, pkg/toolrunner.
type ToolRunnerConfig struct {
	AllowedDomains []string `yaml:"allowed_domains"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// MaskingConfig toggles PII/credential redaction, pkg/masking.
type MaskingConfig struct {
	Enabled      bool   `yaml:"enabled"`
	PatternGroup string `yaml:"pattern_group"`
}

// ConfigDir returns the directory the settings were loaded from.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// resolveDurations fills the unexported time.Duration fields derived
// from the YAML second-count fields, and is called once after
// load+merge, before validation.
func (c *Config) resolveDurations() {
	c.TaskTimeout = time.Duration(c.TaskTimeoutSeconds) * time.Second
	c.ShutdownTimeout = time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}
