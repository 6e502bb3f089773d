package api

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

func TestNarrativeClaimUIDs(t *testing.T) {
	narratives := []contracts.Narrative{
		{UID: "n1", SourceClaimUIDs: []string{"c1", "c2"}},
		{UID: "n2", SourceClaimUIDs: []string{"c3"}},
	}

	got := narrativeClaimUIDs(narratives)

	assert.Equal(t, map[string][]string{
		"n1": {"c1", "c2"},
		"n2": {"c3"},
	}, got)
}

func TestNarrativeClaimUIDs_Empty(t *testing.T) {
	assert.Empty(t, narrativeClaimUIDs(nil))
}
