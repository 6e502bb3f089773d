// Package fusion combines SourceClaims into fused Assertions using the
// Dempster-Shafer theory of evidence: each claim contributes a mass
// function over {true, false, uncertain}, combined pairwise with
// Dempster's rule, tracking the accumulated conflict degree.
package fusion

import (
	"sort"
	"time"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

const (
	eps                    = 1e-9
	defaultCredibility     = 0.5
	defaultClaimConfidence = 0.75
)

// mass is a normalized (true, false, uncertain) triple.
type mass struct {
	trueM, falseM, uncertainM float64
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func normalizeMass(trueM, falseM, uncertainM float64) mass {
	mt := max0(trueM)
	mf := max0(falseM)
	mu := max0(uncertainM)
	total := mt + mf + mu
	if total <= eps {
		return mass{0, 0, 1}
	}
	return mass{mt / total, mf / total, mu / total}
}

func max0(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func claimToMass(claimConfidence, sourceCredibility float64) mass {
	confidence := clamp01(claimConfidence)
	credibility := clamp01(sourceCredibility)
	trueM := confidence * credibility
	falseM := (1.0 - confidence) * credibility
	uncertainM := 1.0 - credibility
	return normalizeMass(trueM, falseM, uncertainM)
}

// combineTwo applies Dempster's combination rule to two mass functions,
// returning the combined mass and this pair's conflict K.
func combineTwo(left, right mass) (mass, float64) {
	conflict := clamp01(left.trueM*right.falseM + left.falseM*right.trueM)
	normalizer := 1.0 - conflict
	if normalizer <= eps {
		return mass{0, 0, 1}, 1.0
	}

	trueM := (left.trueM*right.trueM + left.trueM*right.uncertainM + left.uncertainM*right.trueM) / normalizer
	falseM := (left.falseM*right.falseM + left.falseM*right.uncertainM + left.uncertainM*right.falseM) / normalizer
	uncertainM := (left.uncertainM * right.uncertainM) / normalizer
	return normalizeMass(trueM, falseM, uncertainM), conflict
}

func pignisticTrue(trueM, uncertainM float64) float64 {
	return clamp01(trueM + 0.5*uncertainM)
}

// Result is the combined outcome of fusing a set of claim masses.
type Result struct {
	Confidence     float64
	Belief         float64
	Plausibility   float64
	Uncertainty    float64
	ConflictDegree float64
	MassTrue       float64
	MassFalse      float64
	SourceCount    int
}

// combineMasses folds masses left-to-right with Dempster's rule,
// accumulating conflict via 1 - Π(1 - K_i).
func combineMasses(masses []mass) Result {
	if len(masses) == 0 {
		return Result{Confidence: 0.5, Belief: 0, Plausibility: 1, Uncertainty: 1}
	}

	current := masses[0]
	conflictDegree := 0.0
	for _, m := range masses[1:] {
		combined, conflict := combineTwo(current, m)
		current = combined
		conflictDegree = 1.0 - ((1.0 - conflictDegree) * (1.0 - conflict))
	}

	return Result{
		Confidence:     pignisticTrue(current.trueM, current.uncertainM),
		Belief:         clamp01(current.trueM),
		Plausibility:   clamp01(current.trueM + current.uncertainM),
		Uncertainty:    clamp01(current.uncertainM),
		ConflictDegree: clamp01(conflictDegree),
		MassTrue:       clamp01(current.trueM),
		MassFalse:      clamp01(current.falseM),
		SourceCount:    len(masses),
	}
}

func resolveClaimConfidence(claim contracts.SourceClaim) float64 {
	if claim.Confidence > 0 {
		return clamp01(claim.Confidence)
	}
	return defaultClaimConfidence
}

func resolveCredibility(claim contracts.SourceClaim) float64 {
	if claim.SourceCredibility > 0 {
		return clamp01(claim.SourceCredibility)
	}
	return defaultCredibility
}

// Fuse combines every claim into a single fused Assertion. Claims are
// sorted by UID before combining so the fold order, and therefore the
// result, is deterministic regardless of input ordering.
func Fuse(caseUID string, claims []contracts.SourceClaim) contracts.Assertion {
	sorted := make([]contracts.SourceClaim, len(claims))
	copy(sorted, claims)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].UID < sorted[j].UID })

	masses := make([]mass, 0, len(sorted))
	claimUIDs := make([]string, 0, len(sorted))
	var text string
	for _, c := range sorted {
		masses = append(masses, claimToMass(resolveClaimConfidence(c), resolveCredibility(c)))
		claimUIDs = append(claimUIDs, c.UID)
		if text == "" {
			text = c.Text
		}
	}

	result := combineMasses(masses)
	return contracts.Assertion{
		CaseUID:         caseUID,
		Text:            text,
		SourceClaimUIDs: claimUIDs,
		Value: contracts.AssertionValue{
			Belief:         result.Belief,
			Plausibility:   result.Plausibility,
			Uncertainty:    result.Uncertainty,
			ConflictDegree: result.ConflictDegree,
			SourceCount:    result.SourceCount,
			HasConflict:    result.ConflictDegree > 0.3,
		},
		Timestamp: time.Now().UTC(),
	}
}
