// Package scenario generates one Forecast per hypothesis from its
// supporting assertions, causal chain, and optional leading indicators,
// applying the grounding gate so a probability is only ever stamped
// when it is backed by at least one cited evidence item.
package scenario

import (
	"time"

	"github.com/google/uuid"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

const noAlternatives = "No alternative hypotheses available"

// pendingReviewThreshold marks a high-confidence forecast for human
// review rather than auto-publishing it.
const pendingReviewThreshold = 0.8

// Indicator is an external leading signal (e.g. a GDELT surge) that may
// contribute a trigger condition when its trend is rising.
type Indicator struct {
	Label   string
	Rising  bool
}

// Generate produces one Forecast per hypothesis. assertionsByHyp maps a
// hypothesis UID to its supporting assertions; claimsByAssertion maps an
// assertion UID to the source claims behind it, used both for the
// grounding gate and the forecast's evidence citations.
func Generate(
	caseUID string,
	hypotheses []contracts.Hypothesis,
	assertionsByHyp map[string][]contracts.Assertion,
	claimsByAssertion map[string][]contracts.SourceClaim,
	causalByHyp map[string]contracts.CausalAnalysis,
	indicators []Indicator,
) []contracts.Forecast {
	out := make([]contracts.Forecast, 0, len(hypotheses))
	labels := make([]string, len(hypotheses))
	for i, h := range hypotheses {
		labels[i] = h.Label
	}

	for i, h := range hypotheses {
		assertions := assertionsByHyp[h.UID]
		citations := evidenceCitations(assertions, claimsByAssertion)
		hasCitation := len(citations) > 0 && len(assertions) >= 1

		requested := contracts.FACT
		level := contracts.Gate(hasCitation, requested)

		var probability *float64
		if level == contracts.FACT {
			p := h.Posterior
			probability = &p
		}

		trigger := triggerConditions(causalByHyp[h.UID], indicators)
		alternatives := otherLabels(labels, i)

		forecast := contracts.Forecast{
			UID:               uuid.NewString(),
			CaseUID:           caseUID,
			HypothesisUID:     h.UID,
			Probability:       probability,
			GroundingLevel:     level,
			TriggerConditions: trigger,
			EvidenceCitations: citations,
			Alternatives:      alternatives,
			Status:            statusFor(level, probability, len(hypotheses)),
			CreatedAt:         time.Now().UTC(),
		}
		out = append(out, forecast)
	}
	return out
}

func statusFor(level contracts.GroundingLevel, probability *float64, hypothesisCount int) contracts.ForecastStatus {
	if level != contracts.FACT || probability == nil {
		return contracts.ForecastDegraded
	}
	if *probability >= pendingReviewThreshold || hypothesisCount > 1 {
		return contracts.ForecastPendingReview
	}
	return contracts.ForecastPublished
}

func otherLabels(labels []string, exclude int) []string {
	var out []string
	for i, l := range labels {
		if i != exclude {
			out = append(out, l)
		}
	}
	if len(out) == 0 {
		return []string{noAlternatives}
	}
	return out
}

func triggerConditions(analysis contracts.CausalAnalysis, indicators []Indicator) []string {
	var triggers []string
	for _, l := range analysis.Links {
		if l.TemporalConsistent {
			triggers = append(triggers, l.SourceAssertionUID+" preceding "+l.TargetAssertionUID)
		}
	}
	for _, ind := range indicators {
		if ind.Rising {
			triggers = append(triggers, "rising trend: "+ind.Label)
		}
	}
	if triggers == nil {
		triggers = []string{}
	}
	return triggers
}

func evidenceCitations(assertions []contracts.Assertion, claimsByAssertion map[string][]contracts.SourceClaim) []contracts.EvidenceCitation {
	seen := make(map[string]bool)
	var out []contracts.EvidenceCitation
	for _, a := range assertions {
		for _, c := range claimsByAssertion[a.UID] {
			if seen[c.UID] {
				continue
			}
			seen[c.UID] = true
			out = append(out, contracts.EvidenceCitation{ClaimUID: c.UID, Quote: c.Text, AttributedTo: c.AttributedTo})
		}
	}
	if out == nil {
		out = []contracts.EvidenceCitation{}
	}
	return out
}

// Backtest scores a set of forecasts against realized outcomes (true if
// the hypothesis the forecast names in fact occurred), using the
// predicted_positive = probability > 0.5 rule.
func Backtest(forecasts []contracts.Forecast, realized map[string]bool) contracts.BacktestResult {
	var truePos, falsePos, falseNeg, total int
	for _, f := range forecasts {
		predictedPositive := f.Probability != nil && *f.Probability > 0.5
		actual := realized[f.HypothesisUID]
		total++
		switch {
		case predictedPositive && actual:
			truePos++
		case predictedPositive && !actual:
			falsePos++
		case !predictedPositive && actual:
			falseNeg++
		}
	}
	if total == 0 {
		return contracts.BacktestResult{}
	}
	result := contracts.BacktestResult{}
	if truePos+falsePos > 0 {
		result.Precision = float64(truePos) / float64(truePos+falsePos)
	}
	result.FalseAlarm = float64(falsePos) / float64(total)
	result.MissedAlert = float64(falseNeg) / float64(total)
	return result
}
