package narrative

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

func sc(uid, text, attributedTo string, at time.Time) contracts.SourceClaim {
	return contracts.SourceClaim{UID: uid, Text: text, AttributedTo: attributedTo, CreatedAt: at}
}

func TestBuildNarratives_EmptyInput(t *testing.T) {
	narratives, uidMap := BuildNarratives("case1", nil, Config{})
	assert.Empty(t, narratives)
	assert.Empty(t, uidMap)
}

func TestBuildNarratives_SimilarClaimsWithinWindowCluster(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	claims := []contracts.SourceClaim{
		sc("sc1", "Exampleland troops massed near the border", "wire", base),
		sc("sc2", "Exampleland troops massed near the border region", "wire2", base.Add(2*time.Hour)),
		sc("sc3", "completely unrelated harvest festival report", "wire3", base.Add(3*time.Hour)),
	}

	narratives, uidMap := BuildNarratives("case1", claims, Config{})
	require.Len(t, narratives, 2)

	var found bool
	for _, n := range narratives {
		if len(n.SourceClaimUIDs) == 2 {
			found = true
			assert.ElementsMatch(t, []string{"sc1", "sc2"}, n.SourceClaimUIDs)
			assert.ElementsMatch(t, []string{"sc1", "sc2"}, uidMap[n.UID])
		}
	}
	assert.True(t, found, "expected the two similar claims to cluster together")
}

func TestBuildNarratives_OutsideTimeWindowSplits(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	claims := []contracts.SourceClaim{
		sc("sc1", "border troop buildup reported", "wire", base),
		sc("sc2", "border troop buildup reported again", "wire2", base.Add(400*time.Hour)),
	}

	narratives, _ := BuildNarratives("case1", claims, Config{TimeWindow: 24 * time.Hour})
	assert.Len(t, narratives, 2)
}

func TestBuildNarratives_EmbeddingsRaiseThreshold(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	claims := []contracts.SourceClaim{
		sc("sc1", "alpha report", "wire", base),
		sc("sc2", "beta report", "wire2", base.Add(time.Hour)),
	}
	embeddings := map[string][]float32{
		"sc1": {1, 0, 0},
		"sc2": {0.4, 0.6, 0.6},
	}

	narratives, _ := BuildNarratives("case1", claims, Config{Embeddings: embeddings})
	assert.Len(t, narratives, 2, "moderate cosine similarity should not clear the raised embedding floor")
}

func TestAssertionsForNarratives_DeduplicatesInOrder(t *testing.T) {
	uidMap := map[string][]string{"nar1": {"sc1", "sc2"}}
	claimToAssertions := map[string][]string{
		"sc1": {"a1", "a2"},
		"sc2": {"a2", "a3"},
	}
	result := AssertionsForNarratives(uidMap, claimToAssertions)
	assert.Equal(t, []string{"a1", "a2", "a3"}, result["nar1"])
}

func TestTraceNarrative_ReturnsTimeOrderedChain(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	claims := []contracts.SourceClaim{
		sc("sc2", "second", "w", base.Add(2*time.Hour)),
		sc("sc1", "first", "w", base),
		sc("sc3", "unrelated, not in this narrative", "w", base.Add(time.Hour)),
	}
	uidMap := map[string][]string{"nar1": {"sc1", "sc2"}}

	chain := TraceNarrative("nar1", claims, uidMap)
	require.Len(t, chain, 2)
	assert.Equal(t, "sc1", chain[0].UID)
	assert.Equal(t, "sc2", chain[1].UID)
}

func TestTraceNarrative_UnknownNarrativeReturnsEmpty(t *testing.T) {
	chain := TraceNarrative("missing", nil, map[string][]string{})
	assert.Empty(t, chain)
}

func TestTokenSimilarity_IdenticalIsOne(t *testing.T) {
	assert.Equal(t, 1.0, tokenSimilarity("same text here", "same text here"))
}

func TestTokenSimilarity_DisjointIsLow(t *testing.T) {
	assert.Less(t, tokenSimilarity("alpha bravo charlie", "xray yankee zulu whiskey tango victor"), 0.5)
}
