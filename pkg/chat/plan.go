// Package chat implements grounded question answering over a case: a
// rule-based query planner, vector-first evidence retrieval with a
// keyword fallback, risk-flag detection, and grounding-gated answer
// rendering.
package chat

import (
	"strings"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

// graphKeywords trigger an extra knowledge-graph traversal step in the
// plan when the question is asking about relationships rather than
// facts.
var graphKeywords = []string{
	"connect", "connected", "relationship", "related", "network",
	"linked", "link between", "associate", "who knows", "how are",
}

// planQuery builds the fixed rule-based plan every question receives:
// retrieve relevant claims, then synthesize an answer from them — with
// an extra knowledge-graph step spliced in when the question's wording
// suggests it is asking about entity relationships. Always at least 2
// steps.
func planQuery(question string) []contracts.QueryPlanStep {
	steps := []contracts.QueryPlanStep{
		{Description: "Retrieve source claims relevant to the question", Kind: "retrieve"},
	}
	if mentionsGraph(question) {
		steps = append(steps, contracts.QueryPlanStep{Description: "Traverse the knowledge graph for related entities", Kind: "kg"})
	}
	steps = append(steps, contracts.QueryPlanStep{Description: "Synthesize a grounded answer from retrieved evidence", Kind: "synthesize"})
	return steps
}

func mentionsGraph(question string) bool {
	lower := strings.ToLower(question)
	for _, kw := range graphKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
