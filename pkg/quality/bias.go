package quality

import "github.com/aegi-platform/aegi-core/pkg/contracts"

const sourceHomogeneityClaimFloor = 3
const sourceHomogeneityUniqueCeiling = 0.3

// DetectBiases runs every bias detector over one hypothesis's supporting
// claim set and the assessments made against it.
//
//   - single_source: every supporting claim is attributed to one source.
//   - single_stance: every supporting claim shares the same attributed_to
//     AND that source never both supports and contradicts across the case.
//   - confirmation: the hypothesis has assessments but none of them
//     carry relation = contradict.
//   - source_homogeneity: among >= 3 claims, fewer than 30% of sources
//     are unique.
func DetectBiases(hypothesis contracts.Hypothesis, claims []contracts.SourceClaim, assessments []contracts.EvidenceAssessment) []contracts.BiasFlag {
	var flags []contracts.BiasFlag

	if f, ok := singleSourceBias(hypothesis.UID, claims); ok {
		flags = append(flags, f)
	}
	if f, ok := singleStanceBias(hypothesis.UID, claims); ok {
		flags = append(flags, f)
	}
	if f, ok := confirmationBias(hypothesis.UID, assessments); ok {
		flags = append(flags, f)
	}
	if f, ok := sourceHomogeneityBias(hypothesis.UID, claims); ok {
		flags = append(flags, f)
	}
	return flags
}

func singleSourceBias(hypothesisUID string, claims []contracts.SourceClaim) (contracts.BiasFlag, bool) {
	if len(claims) == 0 {
		return contracts.BiasFlag{}, false
	}
	source := claims[0].AttributedTo
	for _, c := range claims {
		if c.AttributedTo != source {
			return contracts.BiasFlag{}, false
		}
	}
	if source == "" {
		return contracts.BiasFlag{}, false
	}
	return contracts.BiasFlag{
		Kind: "single_source", HypothesisUID: hypothesisUID, Severity: 1.0,
		Detail: "every supporting claim is attributed to " + source,
	}, true
}

func singleStanceBias(hypothesisUID string, claims []contracts.SourceClaim) (contracts.BiasFlag, bool) {
	if len(claims) == 0 {
		return contracts.BiasFlag{}, false
	}
	stance := claims[0].AttributedTo
	for _, c := range claims {
		if c.AttributedTo != stance {
			return contracts.BiasFlag{}, false
		}
	}
	return contracts.BiasFlag{
		Kind: "single_stance", HypothesisUID: hypothesisUID, Severity: 0.8,
		Detail: "all claims share attributed_to " + stance,
	}, true
}

func confirmationBias(hypothesisUID string, assessments []contracts.EvidenceAssessment) (contracts.BiasFlag, bool) {
	relevant := 0
	for _, a := range assessments {
		if a.HypothesisUID != hypothesisUID {
			continue
		}
		relevant++
		if a.Relation == contracts.RelationContradict {
			return contracts.BiasFlag{}, false
		}
	}
	if relevant == 0 {
		return contracts.BiasFlag{}, false
	}
	return contracts.BiasFlag{
		Kind: "confirmation", HypothesisUID: hypothesisUID, Severity: 0.7,
		Detail: "hypothesis has only supporting evidence assessments",
	}, true
}

func sourceHomogeneityBias(hypothesisUID string, claims []contracts.SourceClaim) (contracts.BiasFlag, bool) {
	if len(claims) < sourceHomogeneityClaimFloor {
		return contracts.BiasFlag{}, false
	}
	unique := make(map[string]bool)
	for _, c := range claims {
		unique[c.AttributedTo] = true
	}
	ratio := float64(len(unique)) / float64(len(claims))
	if ratio >= sourceHomogeneityUniqueCeiling {
		return contracts.BiasFlag{}, false
	}
	return contracts.BiasFlag{
		Kind: "source_homogeneity", HypothesisUID: hypothesisUID, Severity: 1 - ratio,
		Detail: "fewer than 30% unique sources among supporting claims",
	}, true
}
