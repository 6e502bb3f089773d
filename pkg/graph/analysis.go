package graph

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// CommunityResult is the outcome of DetectCommunities.
type CommunityResult struct {
	Communities     []Community
	Algorithm       string
	NodeCount       int
	CommunityCount  int
}

// Community is one detected cluster of nodes.
type Community struct {
	ID    int
	Nodes []Node
	Size  int
}

// DetectCommunities partitions a case's subgraph using asynchronous
// label propagation: every node adopts the majority label among its
// neighbors, iterating until stable or a round cap is hit. "louvain" is
// accepted as an algorithm name for API compatibility but resolves to
// the same label-propagation pass, since modularity-optimizing
// community detection has no in-process Go equivalent available here.
func DetectCommunities(ctx context.Context, store *Store, caseUID string, algorithm string, minCommunitySize int) (CommunityResult, error) {
	sub, err := store.GetSubgraph(ctx, caseUID)
	if err != nil {
		return CommunityResult{}, err
	}
	return detectCommunitiesIn(sub, algorithm, minCommunitySize), nil
}

// detectCommunitiesIn is the pure, store-free core of DetectCommunities.
func detectCommunitiesIn(sub Subgraph, algorithm string, minCommunitySize int) CommunityResult {
	if algorithm == "" {
		algorithm = "louvain"
	}
	if minCommunitySize <= 0 {
		minCommunitySize = 2
	}
	if len(sub.Nodes) == 0 {
		return CommunityResult{Algorithm: algorithm}
	}

	adjacency := buildAdjacency(sub)
	labels := labelPropagation(sub, adjacency)

	groups := make(map[string][]Node)
	var order []string
	for _, n := range sub.Nodes {
		label := labels[n.UID]
		if _, seen := groups[label]; !seen {
			order = append(order, label)
		}
		groups[label] = append(groups[label], n)
	}
	sort.Strings(order)

	var communities []Community
	for i, label := range order {
		members := groups[label]
		if len(members) < minCommunitySize {
			continue
		}
		communities = append(communities, Community{ID: i, Nodes: members, Size: len(members)})
	}

	return CommunityResult{
		Communities:    communities,
		Algorithm:      algorithm,
		NodeCount:      len(sub.Nodes),
		CommunityCount: len(communities),
	}
}

func buildAdjacency(sub Subgraph) map[string][]string {
	adjacency := make(map[string][]string, len(sub.Nodes))
	for _, n := range sub.Nodes {
		adjacency[n.UID] = nil
	}
	for _, e := range sub.Edges {
		adjacency[e.Source] = append(adjacency[e.Source], e.Target)
		adjacency[e.Target] = append(adjacency[e.Target], e.Source)
	}
	return adjacency
}

func labelPropagation(sub Subgraph, adjacency map[string][]string) map[string]string {
	labels := make(map[string]string, len(sub.Nodes))
	order := make([]string, 0, len(sub.Nodes))
	for _, n := range sub.Nodes {
		labels[n.UID] = n.UID
		order = append(order, n.UID)
	}
	sort.Strings(order)

	const maxRounds = 20
	for round := 0; round < maxRounds; round++ {
		changed := false
		for _, uid := range order {
			neighbors := adjacency[uid]
			if len(neighbors) == 0 {
				continue
			}
			counts := make(map[string]int, len(neighbors))
			for _, nb := range neighbors {
				counts[labels[nb]]++
			}
			best, bestCount := labels[uid], -1
			var candidates []string
			for label, count := range counts {
				if count > bestCount {
					bestCount = count
				}
			}
			for label, count := range counts {
				if count == bestCount {
					candidates = append(candidates, label)
				}
			}
			sort.Strings(candidates)
			if len(candidates) > 0 {
				best = candidates[0]
			}
			if best != labels[uid] {
				labels[uid] = best
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return labels
}

// CentralityScore is one node's score under a given algorithm.
type CentralityScore struct {
	UID, Name, Type string
	Score           float64
}

// ComputeCentrality runs degree, betweenness, or PageRank centrality
// in-process over the fetched subgraph and returns the top-K nodes.
func ComputeCentrality(ctx context.Context, store *Store, caseUID, algorithm string, topK int) ([]CentralityScore, error) {
	sub, err := store.GetSubgraph(ctx, caseUID)
	if err != nil {
		return nil, err
	}
	return computeCentralityIn(sub, algorithm, topK), nil
}

// computeCentralityIn is the pure, store-free core of ComputeCentrality.
func computeCentralityIn(sub Subgraph, algorithm string, topK int) []CentralityScore {
	if algorithm == "" {
		algorithm = "pagerank"
	}
	if topK <= 0 {
		topK = 20
	}
	if len(sub.Nodes) == 0 {
		return []CentralityScore{}
	}

	adjacency := buildAdjacency(sub)
	var scores map[string]float64
	switch algorithm {
	case "betweenness":
		scores = betweennessCentrality(sub, adjacency)
	case "degree":
		scores = degreeCentrality(sub, adjacency)
	default:
		scores = pagerank(sub, adjacency, 0.85, 100)
	}

	nodesByUID := make(map[string]Node, len(sub.Nodes))
	for _, n := range sub.Nodes {
		nodesByUID[n.UID] = n
	}

	out := make([]CentralityScore, 0, len(scores))
	for uid, score := range scores {
		n := nodesByUID[uid]
		out = append(out, CentralityScore{UID: uid, Name: n.Name, Type: n.Type, Score: round6(score)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].UID < out[j].UID
	})
	if len(out) > topK {
		out = out[:topK]
	}
	return out
}

func round6(v float64) float64 {
	const p = 1e6
	return float64(int64(v*p+0.5)) / p
}

func degreeCentrality(sub Subgraph, adjacency map[string][]string) map[string]float64 {
	n := len(sub.Nodes)
	scores := make(map[string]float64, n)
	denom := float64(n - 1)
	if denom <= 0 {
		denom = 1
	}
	for uid, neighbors := range adjacency {
		scores[uid] = float64(len(neighbors)) / denom
	}
	return scores
}

// pagerank runs the standard power-iteration PageRank over an
// undirected graph treated as symmetric directed edges.
func pagerank(sub Subgraph, adjacency map[string][]string, damping float64, iterations int) map[string]float64 {
	n := len(sub.Nodes)
	if n == 0 {
		return nil
	}
	scores := make(map[string]float64, n)
	for _, node := range sub.Nodes {
		scores[node.UID] = 1.0 / float64(n)
	}

	for iter := 0; iter < iterations; iter++ {
		next := make(map[string]float64, n)
		base := (1 - damping) / float64(n)
		for _, node := range sub.Nodes {
			next[node.UID] = base
		}
		var danglingMass float64
		for _, node := range sub.Nodes {
			out := adjacency[node.UID]
			if len(out) == 0 {
				danglingMass += scores[node.UID]
				continue
			}
			share := damping * scores[node.UID] / float64(len(out))
			for _, target := range out {
				next[target] += share
			}
		}
		if danglingMass > 0 {
			redistribute := damping * danglingMass / float64(n)
			for uid := range next {
				next[uid] += redistribute
			}
		}
		scores = next
	}
	return scores
}

// betweennessCentrality computes unweighted shortest-path betweenness
// via Brandes' algorithm over the undirected subgraph.
func betweennessCentrality(sub Subgraph, adjacency map[string][]string) map[string]float64 {
	scores := make(map[string]float64, len(sub.Nodes))
	for _, n := range sub.Nodes {
		scores[n.UID] = 0
	}

	for _, s := range sub.Nodes {
		stack := make([]string, 0, len(sub.Nodes))
		pred := make(map[string][]string, len(sub.Nodes))
		sigma := make(map[string]float64, len(sub.Nodes))
		dist := make(map[string]int, len(sub.Nodes))
		for _, n := range sub.Nodes {
			sigma[n.UID] = 0
			dist[n.UID] = -1
		}
		sigma[s.UID] = 1
		dist[s.UID] = 0

		queue := []string{s.UID}
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			stack = append(stack, v)
			for _, w := range adjacency[v] {
				if dist[w] < 0 {
					dist[w] = dist[v] + 1
					queue = append(queue, w)
				}
				if dist[w] == dist[v]+1 {
					sigma[w] += sigma[v]
					pred[w] = append(pred[w], v)
				}
			}
		}

		delta := make(map[string]float64, len(sub.Nodes))
		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, v := range pred[w] {
				delta[v] += (sigma[v] / sigma[w]) * (1 + delta[w])
			}
			if w != s.UID {
				scores[w] += delta[w]
			}
		}
	}

	n := len(sub.Nodes)
	if n > 2 {
		scale := 1.0 / float64((n-1)*(n-2))
		for uid := range scores {
			scores[uid] *= scale
		}
	}
	return scores
}

// GapAnalysisResult reports structural gaps in a case's graph.
type GapAnalysisResult struct {
	IsolatedNodes              []IsolatedNode
	WeaklyConnectedComponents  int
	LargestComponentSize       int
	SmallestComponentSize      int
	Density                    float64
	RelationshipDistribution   []RelationshipCount
	NodeCount                  int
	EdgeCount                  int
}

// AnalyzeGaps reports isolated nodes, connected-component sizes, graph
// density, and the relation-type distribution for a case.
func AnalyzeGaps(ctx context.Context, store *Store, caseUID string) (GapAnalysisResult, error) {
	sub, err := store.GetSubgraph(ctx, caseUID)
	if err != nil {
		return GapAnalysisResult{}, err
	}
	isolated, err := store.GetIsolatedNodes(ctx, caseUID)
	if err != nil {
		return GapAnalysisResult{}, err
	}
	relStats, err := store.GetRelationshipStats(ctx, caseUID)
	if err != nil {
		return GapAnalysisResult{}, err
	}

	return analyzeGapsIn(sub, isolated, relStats), nil
}

// analyzeGapsIn is the pure, store-free core of AnalyzeGaps.
func analyzeGapsIn(sub Subgraph, isolated []IsolatedNode, relStats []RelationshipCount) GapAnalysisResult {
	adjacency := buildAdjacency(sub)
	components := connectedComponents(sub, adjacency)

	largest, smallest := 0, 0
	if len(components) > 0 {
		smallest = len(components[0])
		for _, c := range components {
			if len(c) > largest {
				largest = len(c)
			}
			if len(c) < smallest {
				smallest = len(c)
			}
		}
	}

	n := len(sub.Nodes)
	var density float64
	if n > 1 {
		density = float64(2*len(sub.Edges)) / float64(n*(n-1))
	}

	return GapAnalysisResult{
		IsolatedNodes:             isolated,
		WeaklyConnectedComponents: len(components),
		LargestComponentSize:      largest,
		SmallestComponentSize:     smallest,
		Density:                   density,
		RelationshipDistribution:  relStats,
		NodeCount:                 n,
		EdgeCount:                 len(sub.Edges),
	}
}

func connectedComponents(sub Subgraph, adjacency map[string][]string) [][]string {
	visited := make(map[string]bool, len(sub.Nodes))
	var components [][]string
	for _, n := range sub.Nodes {
		if visited[n.UID] {
			continue
		}
		var component []string
		queue := []string{n.UID}
		visited[n.UID] = true
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			component = append(component, v)
			for _, w := range adjacency[v] {
				if !visited[w] {
					visited[w] = true
					queue = append(queue, w)
				}
			}
		}
		components = append(components, component)
	}
	return components
}

// TemporalAnalysisResult bundles a case's event timeline with any
// requested entity-specific activity timelines.
type TemporalAnalysisResult struct {
	Events          []TemporalEvent
	EntityTimelines map[string][]RelationshipCount
	Start, End      *time.Time
	EventCount      int
}

// AnalyzeTemporal fetches the case's event timeline, optionally scoped
// to [start, end), plus per-entity activity timelines.
func AnalyzeTemporal(ctx context.Context, store *Store, caseUID string, start, end *time.Time, entityUIDs []string) (TemporalAnalysisResult, error) {
	events, err := store.GetTemporalEvents(ctx, caseUID, start, end)
	if err != nil {
		return TemporalAnalysisResult{}, fmt.Errorf("analyze temporal: %w", err)
	}

	timelines := make(map[string][]RelationshipCount, len(entityUIDs))
	for _, uid := range entityUIDs {
		tl, err := store.GetEntityTimeline(ctx, uid)
		if err != nil {
			return TemporalAnalysisResult{}, fmt.Errorf("entity timeline %s: %w", uid, err)
		}
		timelines[uid] = tl
	}

	return TemporalAnalysisResult{
		Events: events, EntityTimelines: timelines, Start: start, End: end, EventCount: len(events),
	}, nil
}
