package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func triangleSubgraph() Subgraph {
	return Subgraph{
		Nodes: []Node{{UID: "a", Name: "A", Type: "GPE"}, {UID: "b", Name: "B", Type: "GPE"}, {UID: "c", Name: "C", Type: "GPE"}},
		Edges: []Edge{{Source: "a", Target: "b", RelType: "ALLY"}, {Source: "b", Target: "c", RelType: "ALLY"}, {Source: "a", Target: "c", RelType: "ALLY"}},
	}
}

func TestDetectCommunitiesIn_EmptyGraph(t *testing.T) {
	result := detectCommunitiesIn(Subgraph{}, "louvain", 2)
	assert.Equal(t, 0, result.NodeCount)
	assert.Empty(t, result.Communities)
}

func TestDetectCommunitiesIn_FullyConnectedTriangleIsOneCommunity(t *testing.T) {
	result := detectCommunitiesIn(triangleSubgraph(), "", 2)
	require.Len(t, result.Communities, 1)
	assert.Equal(t, 3, result.Communities[0].Size)
}

func TestDetectCommunitiesIn_DisconnectedPairsStaySeparate(t *testing.T) {
	sub := Subgraph{
		Nodes: []Node{{UID: "a"}, {UID: "b"}, {UID: "c"}, {UID: "d"}},
		Edges: []Edge{{Source: "a", Target: "b"}, {Source: "c", Target: "d"}},
	}
	result := detectCommunitiesIn(sub, "label_propagation", 2)
	assert.Len(t, result.Communities, 2)
}

func TestComputeCentralityIn_DegreeRanksHighestConnectivityFirst(t *testing.T) {
	sub := Subgraph{
		Nodes: []Node{{UID: "hub"}, {UID: "a"}, {UID: "b"}, {UID: "c"}},
		Edges: []Edge{{Source: "hub", Target: "a"}, {Source: "hub", Target: "b"}, {Source: "hub", Target: "c"}},
	}
	scores := computeCentralityIn(sub, "degree", 10)
	require.NotEmpty(t, scores)
	assert.Equal(t, "hub", scores[0].UID)
}

func TestComputeCentralityIn_PagerankSumsToApproximatelyOne(t *testing.T) {
	scores := computeCentralityIn(triangleSubgraph(), "pagerank", 10)
	var total float64
	for _, s := range scores {
		total += s.Score
	}
	assert.InDelta(t, 1.0, total, 0.05)
}

func TestComputeCentralityIn_BetweennessOfLineGraphPeaksAtMiddle(t *testing.T) {
	sub := Subgraph{
		Nodes: []Node{{UID: "a"}, {UID: "mid"}, {UID: "b"}},
		Edges: []Edge{{Source: "a", Target: "mid"}, {Source: "mid", Target: "b"}},
	}
	scores := computeCentralityIn(sub, "betweenness", 10)
	require.NotEmpty(t, scores)
	assert.Equal(t, "mid", scores[0].UID)
	assert.Greater(t, scores[0].Score, 0.0)
}

func TestComputeCentralityIn_EmptyGraphReturnsEmpty(t *testing.T) {
	scores := computeCentralityIn(Subgraph{}, "pagerank", 10)
	assert.Empty(t, scores)
}

func TestAnalyzeGapsIn_ComputesDensityAndComponents(t *testing.T) {
	sub := Subgraph{
		Nodes: []Node{{UID: "a"}, {UID: "b"}, {UID: "c"}, {UID: "isolated"}},
		Edges: []Edge{{Source: "a", Target: "b"}},
	}
	result := analyzeGapsIn(sub, []IsolatedNode{{UID: "isolated"}}, nil)
	assert.Equal(t, 4, result.NodeCount)
	assert.Equal(t, 1, result.EdgeCount)
	assert.Equal(t, 3, result.WeaklyConnectedComponents) // {a,b}, {c}, {isolated}
	assert.Equal(t, 2, result.LargestComponentSize)
	assert.Equal(t, 1, result.SmallestComponentSize)
	assert.Len(t, result.IsolatedNodes, 1)
	assert.Greater(t, result.Density, 0.0)
}

func TestAnalyzeGapsIn_EmptyGraphHasZeroDensity(t *testing.T) {
	result := analyzeGapsIn(Subgraph{}, nil, nil)
	assert.Equal(t, 0.0, result.Density)
	assert.Equal(t, 0, result.WeaklyConnectedComponents)
}
