package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeOverlay_OverridesOnlySetFields(t *testing.T) {
	base := DefaultConfig()
	overlay := &Config{MaxConcurrentTasks: 9, Qdrant: QdrantConfig{Collection: "case_files"}}

	merged, err := mergeOverlay(base, overlay)
	require.NoError(t, err)

	assert.Equal(t, 9, merged.MaxConcurrentTasks)
	assert.Equal(t, "case_files", merged.Qdrant.Collection)
	// Fields the overlay left zero keep the default's value.
	assert.Equal(t, DefaultConfig().Qdrant.VectorSize, merged.Qdrant.VectorSize)
	assert.Equal(t, DefaultConfig().GDELT.IntervalMinutes, merged.GDELT.IntervalMinutes)
}

func TestMergeOverlay_EmptyOverlayKeepsDefaults(t *testing.T) {
	base := DefaultConfig()
	merged, err := mergeOverlay(base, &Config{})
	require.NoError(t, err)
	assert.Equal(t, *DefaultConfig(), *merged)
}
