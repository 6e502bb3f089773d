// Package causal builds temporal-consistency causal chains between the
// assertions supporting a hypothesis, and augments the rule-based
// baseline with an optional LLM pass for counterfactual scoring.
package causal

import (
	"context"
	"log/slog"
	"sort"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

// StructuredInvoker is the narrow LLM slice the augmentation pass needs.
type StructuredInvoker interface {
	InvokeStructured(ctx context.Context, req contracts.LLMInvocationRequest, prompt string, out any) (contracts.ToolTrace, error)
}

// Analyze sorts a hypothesis's supporting assertions by timestamp and
// builds one causal link per adjacent pair. A single assertion yields a
// perfect consistency score (there is nothing to contradict); an empty
// set yields zero links and a score of 1.0 for the same reason.
func Analyze(hypothesisUID string, assertions []contracts.Assertion) contracts.CausalAnalysis {
	sorted := make([]contracts.Assertion, len(assertions))
	copy(sorted, assertions)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	if len(sorted) < 2 {
		return contracts.CausalAnalysis{HypothesisUID: hypothesisUID, Links: []contracts.CausalLink{}, ConsistencyScore: 1.0}
	}

	links := make([]contracts.CausalLink, 0, len(sorted)-1)
	consistent := 0
	for i := 0; i < len(sorted)-1; i++ {
		src, tgt := sorted[i], sorted[i+1]
		ok := !src.Timestamp.After(tgt.Timestamp)
		if ok {
			consistent++
		}
		links = append(links, contracts.CausalLink{
			SourceAssertionUID: src.UID,
			TargetAssertionUID: tgt.UID,
			TemporalConsistent: ok,
			Strength:           (confidenceOf(src) + confidenceOf(tgt)) / 2,
		})
	}

	return contracts.CausalAnalysis{
		HypothesisUID:    hypothesisUID,
		Links:            links,
		ConsistencyScore: float64(consistent) / float64(len(links)),
	}
}

// confidenceOf derives a pignistic point confidence from an assertion's
// DS belief/uncertainty, the same formula the fuser itself reports.
func confidenceOf(a contracts.Assertion) float64 {
	return a.Value.Belief + 0.5*a.Value.Uncertainty
}

// augmentation is the schema the LLM fills per link.
type augmentation struct {
	Links []struct {
		SourceAssertionUID  string   `json:"source_assertion_uid"`
		TargetAssertionUID  string   `json:"target_assertion_uid"`
		CounterfactualScore float64  `json:"counterfactual_score"`
		Confounders         []string `json:"confounders"`
	} `json:"links"`
}

// Augment asks the LLM for a counterfactual score and confounders per
// link, leaving the rule-based baseline untouched on failure.
func Augment(ctx context.Context, llm StructuredInvoker, analysis contracts.CausalAnalysis, assertionText map[string]string, traceID string, budget contracts.BudgetContext) contracts.CausalAnalysis {
	if llm == nil || len(analysis.Links) == 0 {
		return analysis
	}

	var resp augmentation
	_, err := llm.InvokeStructured(ctx, contracts.LLMInvocationRequest{TraceID: traceID, Budget: budget},
		buildAugmentPrompt(analysis.Links, assertionText), &resp)
	if err != nil {
		slog.Default().With("component", "causal").Warn("augment: llm invocation failed, keeping rule-based baseline", "error", err)
		return analysis
	}

	byPair := make(map[[2]string]struct {
		score       float64
		confounders []string
	}, len(resp.Links))
	for _, l := range resp.Links {
		byPair[[2]string{l.SourceAssertionUID, l.TargetAssertionUID}] = struct {
			score       float64
			confounders []string
		}{l.CounterfactualScore, l.Confounders}
	}

	out := analysis
	out.Links = make([]contracts.CausalLink, len(analysis.Links))
	copy(out.Links, analysis.Links)
	for i, l := range out.Links {
		if v, ok := byPair[[2]string{l.SourceAssertionUID, l.TargetAssertionUID}]; ok {
			score := v.score
			out.Links[i].CounterfactualScore = &score
			out.Links[i].Confounders = v.confounders
		}
	}
	return out
}

func buildAugmentPrompt(links []contracts.CausalLink, text map[string]string) string {
	prompt := "For each causal link below, estimate a counterfactual_score in [0,1] (how much the outcome would differ absent the source event) and list any confounders. Return one entry per link keyed by source_assertion_uid and target_assertion_uid.\n\n"
	for _, l := range links {
		prompt += "- " + l.SourceAssertionUID + " -> " + l.TargetAssertionUID + ": " + text[l.SourceAssertionUID] + " => " + text[l.TargetAssertionUID] + "\n"
	}
	return prompt
}
