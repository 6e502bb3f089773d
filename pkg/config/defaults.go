package config

// DefaultConfig returns the built-in settings every field falls back
// to before settings.yaml and environment overrides are merged in.
func DefaultConfig() *Config {
	return &Config{
		MaxConcurrentTasks:     4,
		TaskTimeoutSeconds:     120,
		ShutdownTimeoutSeconds: 30,
		PushMaxPerHour:         60,

		GDELT: GDELTConfig{
			IntervalMinutes:     15,
			InitialDelaySeconds: 30,
		},
		Retention: RetentionConfig{
			Enabled:         true,
			IntervalSeconds: 3600,
			BatchSize:       500,
			GraceDays:       90,
		},
		Qdrant: QdrantConfig{
			Collection: "aegi_chunks",
			VectorSize: 1024,
		},
		Neo4j: Neo4jConfig{
			URI:         "bolt://localhost:7687",
			User:        "neo4j",
			PasswordEnv: "NEO4J_PASSWORD",
			Database:    "neo4j",
		},
		ToolRunner: ToolRunnerConfig{
			AllowedDomains:  nil,
			CacheTTLSeconds: 60,
		},
		Masking: MaskingConfig{
			Enabled:      true,
			PatternGroup: "pii",
		},
	}
}
