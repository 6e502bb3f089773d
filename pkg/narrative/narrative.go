// Package narrative groups SourceClaims into time-windowed thematic
// clusters (Narratives) and reconstructs the time-ordered claim chain
// behind any one of them.
package narrative

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

const (
	defaultTimeWindow        = 168 * time.Hour
	defaultSimilarityThresh  = 0.35
	embeddingSimilarityFloor = 0.6
)

// Config tunes the clustering pass. Zero values fall back to the
// production defaults.
type Config struct {
	TimeWindow           time.Duration
	SimilarityThreshold   float64
	Embeddings            map[string][]float32 // claim UID -> vector
}

func (c Config) resolved() Config {
	if c.TimeWindow <= 0 {
		c.TimeWindow = defaultTimeWindow
	}
	if c.SimilarityThreshold <= 0 {
		c.SimilarityThreshold = defaultSimilarityThresh
	}
	return c
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot, normA, normB float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// tokenSimilarity is the no-embedding fallback: a Levenshtein-distance
// ratio over whitespace tokens, approximating difflib's token-overlap
// behavior without requiring a sequence-matcher dependency.
func tokenSimilarity(a, b string) float64 {
	ta := strings.Fields(strings.ToLower(a))
	tb := strings.Fields(strings.ToLower(b))
	if len(ta) == 0 && len(tb) == 0 {
		return 1
	}
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	joinedA, joinedB := strings.Join(ta, " "), strings.Join(tb, " ")
	dist := levenshtein.ComputeDistance(joinedA, joinedB)
	maxLen := len(joinedA)
	if len(joinedB) > maxLen {
		maxLen = len(joinedB)
	}
	if maxLen == 0 {
		return 1
	}
	return 1.0 - float64(dist)/float64(maxLen)
}

func similarity(a, b contracts.SourceClaim, embeddings map[string][]float32) float64 {
	if embeddings != nil {
		va, okA := embeddings[a.UID]
		vb, okB := embeddings[b.UID]
		if okA && okB {
			return cosineSimilarity(va, vb)
		}
	}
	return tokenSimilarity(a.Text, b.Text)
}

// BuildNarratives greedily clusters claims by time-window proximity and
// similarity to the earliest claim already placed in each cluster. Each
// claim is assigned to the first cluster it fits; if none fits, it
// starts a new one. Returns the resulting Narratives plus a map from
// narrative UID to the source claim UIDs it was built from, so callers
// can subsequently associate fused assertions or trace the chain.
func BuildNarratives(caseUID string, claims []contracts.SourceClaim, cfg Config) ([]contracts.Narrative, map[string][]string) {
	if len(claims) == 0 {
		return []contracts.Narrative{}, map[string][]string{}
	}
	cfg = cfg.resolved()

	threshold := cfg.SimilarityThreshold
	if cfg.Embeddings != nil && threshold < embeddingSimilarityFloor {
		threshold = embeddingSimilarityFloor
	}

	sorted := make([]contracts.SourceClaim, len(claims))
	copy(sorted, claims)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.Before(sorted[j].CreatedAt) })

	var clusters [][]contracts.SourceClaim
	for _, c := range sorted {
		placed := false
		for i, cluster := range clusters {
			rep := cluster[0]
			if c.CreatedAt.Sub(rep.CreatedAt) <= cfg.TimeWindow &&
				similarity(rep, c, cfg.Embeddings) >= threshold {
				clusters[i] = append(cluster, c)
				placed = true
				break
			}
		}
		if !placed {
			clusters = append(clusters, []contracts.SourceClaim{c})
		}
	}

	narratives := make([]contracts.Narrative, 0, len(clusters))
	uidMap := make(map[string][]string, len(clusters))
	for _, cluster := range clusters {
		uid := "nar-" + uuid.NewString()[:12]
		claimUIDs := make([]string, 0, len(cluster))
		starts, ends := cluster[0].CreatedAt, cluster[0].CreatedAt
		for _, c := range cluster {
			claimUIDs = append(claimUIDs, c.UID)
			if c.CreatedAt.Before(starts) {
				starts = c.CreatedAt
			}
			if c.CreatedAt.After(ends) {
				ends = c.CreatedAt
			}
		}
		theme := cluster[0].Text
		if len(theme) > 120 {
			theme = theme[:120]
		}
		narratives = append(narratives, contracts.Narrative{
			UID:             uid,
			CaseUID:         caseUID,
			Theme:           theme,
			SourceClaimUIDs: claimUIDs,
			StartsAt:        starts,
			EndsAt:          ends,
		})
		uidMap[uid] = claimUIDs
	}

	return narratives, uidMap
}

// AssertionsForNarratives derives, for each narrative UID, the set of
// assertion UIDs supported by its member claims, deduplicated and in
// first-seen order. claimToAssertions maps a source claim UID to every
// assertion it contributed to (the reverse of Assertion.SourceClaimUIDs).
func AssertionsForNarratives(uidMap map[string][]string, claimToAssertions map[string][]string) map[string][]string {
	out := make(map[string][]string, len(uidMap))
	for narUID, claimUIDs := range uidMap {
		seen := make(map[string]bool)
		var ordered []string
		for _, claimUID := range claimUIDs {
			for _, assertionUID := range claimToAssertions[claimUID] {
				if !seen[assertionUID] {
					seen[assertionUID] = true
					ordered = append(ordered, assertionUID)
				}
			}
		}
		if ordered == nil {
			ordered = []string{}
		}
		out[narUID] = ordered
	}
	return out
}

// TracedClaim is one entry in a narrative's reconstructed time-ordered
// chain.
type TracedClaim struct {
	UID          string    `json:"claim_uid"`
	Quote        string    `json:"quote"`
	AttributedTo string    `json:"attributed_to"`
	CreatedAt    time.Time `json:"created_at"`
}

// TraceNarrative reconstructs the time-ordered chain of claims behind a
// narrative, given the full claim set and the narrative-to-claim-UIDs
// map produced by BuildNarratives.
func TraceNarrative(narrativeUID string, claims []contracts.SourceClaim, uidMap map[string][]string) []TracedClaim {
	claimUIDs, ok := uidMap[narrativeUID]
	if !ok {
		return []TracedClaim{}
	}
	wanted := make(map[string]bool, len(claimUIDs))
	for _, uid := range claimUIDs {
		wanted[uid] = true
	}

	out := make([]TracedClaim, 0, len(claimUIDs))
	for _, c := range claims {
		if wanted[c.UID] {
			out = append(out, TracedClaim{
				UID: c.UID, Quote: c.Text, AttributedTo: c.AttributedTo, CreatedAt: c.CreatedAt,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
