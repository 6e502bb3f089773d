// Package disambiguate proposes merges between knowledge-graph entity
// nodes that refer to the same real-world thing: a rule layer for exact
// alias/normalization matches, followed by an optional embedding layer
// for everything the rules left unresolved.
package disambiguate

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
	"github.com/google/uuid"
)

const (
	// UncertaintyThreshold marks merge groups below this average
	// similarity as uncertain: they are recorded for human review and
	// must never be auto-merged.
	UncertaintyThreshold = 0.7
	// SimilarityThreshold is the minimum embedding cosine similarity for
	// two otherwise-unresolved entities to be proposed as a merge.
	SimilarityThreshold = 0.82
	ruleMergeConfidence  = 0.95
)

// knownAliases maps common surface forms to a canonical normalized label.
var knownAliases = map[string]string{
	"prc":                         "china",
	"people's republic of china":  "china",
	"dprk":                        "north korea",
	"rok":                         "south korea",
	"usa":                         "united states",
	"us":                          "united states",
	"rf":                          "russia",
	"russian federation":          "russia",
	"eu":                          "european union",
	"nato":                        "north atlantic treaty organization",
	"un":                          "united nations",
}

var punctuation = regexp.MustCompile(`[^\w\s]`)
var whitespace = regexp.MustCompile(`\s+`)

// normalizeLabel lowercases, strips punctuation, and NFKC-folds a label
// so surface variants of the same name compare equal.
func normalizeLabel(label string) string {
	folded := norm.NFKC.String(label)
	folded = strings.ToLower(strings.TrimSpace(folded))
	folded = punctuation.ReplaceAllString(folded, "")
	folded = whitespace.ReplaceAllString(folded, " ")
	return strings.TrimSpace(folded)
}

func aliasCanonical(label string) string {
	normalized := normalizeLabel(label)
	if canonical, ok := knownAliases[normalized]; ok {
		return canonical
	}
	return normalized
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

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// MergeGroup proposes that CanonicalUID absorb every entity in
// AliasUIDs as the same real-world entity.
type MergeGroup struct {
	CanonicalUID   string   `json:"canonical_uid"`
	CanonicalLabel string   `json:"canonical_label"`
	AliasUIDs      []string `json:"alias_uids"`
	AliasLabels    []string `json:"alias_labels"`
	Confidence     float64  `json:"confidence"`
	Uncertain      bool     `json:"uncertain"`
	Explanation    string   `json:"explanation"`
}

// Result is the full output of Disambiguate.
type Result struct {
	MergeGroups   []MergeGroup
	UnmatchedUIDs []string
	Action        contracts.Action
	ToolTrace     contracts.ToolTrace
}

// Embedder returns an embedding vector for a label. The semantic layer
// is skipped entirely when Embedder is nil, leaving only rule-based
// merges.
type Embedder interface {
	Embed(ctx context.Context, budget contracts.BudgetContext, texts []string) ([][]float32, error)
}

// Disambiguate proposes merge groups for a case's entities. Rule-layer
// merges (alias table or identical normalized label) are confidence
// 0.95 and never uncertain. Semantic-layer merges run only when embed
// is non-nil and at least two entities remain unresolved after the
// rule pass; they greedily group by cosine similarity and are flagged
// uncertain below UncertaintyThreshold so callers never auto-merge them.
func Disambiguate(ctx context.Context, caseUID string, entities []contracts.Entity, embed Embedder, traceID string) Result {
	if traceID == "" {
		traceID = uuid.NewString()
	}
	spanID := uuid.NewString()[:16]
	now := time.Now().UTC()

	ruleGroups := make(map[string][]contracts.Entity)
	var ruleOrder []string
	for _, e := range entities {
		key := aliasCanonical(e.Name)
		if _, seen := ruleGroups[key]; !seen {
			ruleOrder = append(ruleOrder, key)
		}
		ruleGroups[key] = append(ruleGroups[key], e)
	}

	var mergeGroups []MergeGroup
	var unresolved []contracts.Entity
	for _, key := range ruleOrder {
		group := ruleGroups[key]
		if len(group) >= 2 {
			primary := group[0]
			aliasUIDs := make([]string, 0, len(group)-1)
			aliasLabels := make([]string, 0, len(group)-1)
			for _, e := range group[1:] {
				aliasUIDs = append(aliasUIDs, e.UID)
				aliasLabels = append(aliasLabels, e.Name)
			}
			mergeGroups = append(mergeGroups, MergeGroup{
				CanonicalUID: primary.UID, CanonicalLabel: primary.Name,
				AliasUIDs: aliasUIDs, AliasLabels: aliasLabels,
				Confidence: ruleMergeConfidence, Uncertain: false,
				Explanation: "rule-based normalization match (alias table or identical normalized label)",
			})
		} else {
			unresolved = append(unresolved, group[0])
		}
	}

	if embed != nil && len(unresolved) >= 2 {
		labels := make([]string, len(unresolved))
		for i, e := range unresolved {
			labels[i] = e.Name
		}
		vectors, err := embed.Embed(ctx, contracts.BudgetContext{}, labels)
		embeddings := make(map[string][]float32, len(unresolved))
		if err == nil {
			for i, e := range unresolved {
				if i < len(vectors) && vectors[i] != nil {
					embeddings[e.UID] = vectors[i]
				}
			}
		}

		matched := make(map[string]bool)
		for i, e1 := range unresolved {
			if matched[e1.UID] || embeddings[e1.UID] == nil {
				continue
			}
			var members []contracts.Entity
			for _, e2 := range unresolved[i+1:] {
				if matched[e2.UID] || embeddings[e2.UID] == nil {
					continue
				}
				if cosineSimilarity(embeddings[e1.UID], embeddings[e2.UID]) >= SimilarityThreshold {
					members = append(members, e2)
					matched[e2.UID] = true
				}
			}
			if len(members) > 0 {
				matched[e1.UID] = true
				var sum float64
				aliasUIDs := make([]string, 0, len(members))
				aliasLabels := make([]string, 0, len(members))
				for _, m := range members {
					sum += cosineSimilarity(embeddings[e1.UID], embeddings[m.UID])
					aliasUIDs = append(aliasUIDs, m.UID)
					aliasLabels = append(aliasLabels, m.Name)
				}
				avgSim := sum / float64(len(members))
				mergeGroups = append(mergeGroups, MergeGroup{
					CanonicalUID: e1.UID, CanonicalLabel: e1.Name,
					AliasUIDs: aliasUIDs, AliasLabels: aliasLabels,
					Confidence:  round3(avgSim),
					Uncertain:   avgSim < UncertaintyThreshold,
					Explanation: fmt.Sprintf("embedding semantic similarity %.3f", avgSim),
				})
			}
		}

		remaining := unresolved[:0:0]
		for _, e := range unresolved {
			if !matched[e.UID] {
				remaining = append(remaining, e)
			}
		}
		unresolved = remaining
	}

	unmatchedUIDs := make([]string, 0, len(unresolved))
	for _, e := range unresolved {
		unmatchedUIDs = append(unmatchedUIDs, e.UID)
	}

	mergedCount := 0
	for _, g := range mergeGroups {
		mergedCount += len(g.AliasUIDs)
	}

	action := contracts.Action{
		UID: uuid.NewString(), CaseUID: caseUID, TraceID: traceID, SpanID: spanID,
		Kind: "kg_disambiguate",
		Rationale: fmt.Sprintf(
			"disambiguation complete: %d merge groups involving %d entities, %d unmatched",
			len(mergeGroups), mergedCount+len(mergeGroups), len(unmatchedUIDs),
		),
		CreatedAt: now,
	}
	toolTrace := contracts.ToolTrace{
		UID: uuid.NewString(), TraceID: traceID, Capability: "entity_disambiguator",
		Status: "ok", CreatedAt: now,
	}

	return Result{
		MergeGroups:   nonNilGroups(mergeGroups),
		UnmatchedUIDs: unmatchedUIDs,
		Action:        action,
		ToolTrace:     toolTrace,
	}
}

func nonNilGroups(groups []MergeGroup) []MergeGroup {
	if groups == nil {
		return []MergeGroup{}
	}
	return groups
}
