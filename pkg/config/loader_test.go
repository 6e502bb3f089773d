package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, dir, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, SettingsFile), []byte(contents), 0o644))
}

func TestInitialize_NoSettingsFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().MaxConcurrentTasks, cfg.MaxConcurrentTasks)
	assert.Equal(t, dir, cfg.ConfigDir())
}

func TestInitialize_OverlayOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeSettings(t, dir, `
max_concurrent_tasks: 12
gdelt:
  interval_minutes: 5
qdrant:
  collection: custom_collection
  vector_size: 768
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.MaxConcurrentTasks)
	assert.Equal(t, 5, cfg.GDELT.IntervalMinutes)
	assert.Equal(t, "custom_collection", cfg.Qdrant.Collection)
	assert.Equal(t, 768, cfg.Qdrant.VectorSize)
	// Untouched fields keep their default.
	assert.Equal(t, DefaultConfig().PushMaxPerHour, cfg.PushMaxPerHour)
}

func TestInitialize_ExpandsEnvVars(t *testing.T) {
	t.Setenv("AEGI_TEST_NEO4J_URI", "bolt://db.internal:7687")
	dir := t.TempDir()
	writeSettings(t, dir, `
neo4j:
  uri: "${AEGI_TEST_NEO4J_URI}"
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "bolt://db.internal:7687", cfg.Neo4j.URI)
}

func TestInitialize_InvalidYAMLFails(t *testing.T) {
	dir := t.TempDir()
	writeSettings(t, dir, "max_concurrent_tasks: [this is not an int\n")
	_, err := Initialize(context.Background(), dir)
	assert.Error(t, err)
}

func TestInitialize_ValidationFailsOnZeroMaxConcurrentTasks(t *testing.T) {
	dir := t.TempDir()
	writeSettings(t, dir, "max_concurrent_tasks: 0\n")
	_, err := Initialize(context.Background(), dir)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestResolveNeo4jPassword(t *testing.T) {
	t.Setenv("AEGI_TEST_NEO4J_PASSWORD", "s3cr3t")
	cfg := &Config{Neo4j: Neo4jConfig{PasswordEnv: "AEGI_TEST_NEO4J_PASSWORD"}}
	assert.Equal(t, "s3cr3t", cfg.ResolveNeo4jPassword())
}

func TestResolveNeo4jPassword_EmptyEnvName(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, "", cfg.ResolveNeo4jPassword())
}
