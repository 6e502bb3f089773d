package ach

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

func TestBayesianUpdate_UniformPriorStaysUniformUnderEqualLikelihoods(t *testing.T) {
	priors := map[string]float64{"h1": 0.5, "h2": 0.5}
	likelihoods := map[string]float64{"h1": 0.7, "h2": 0.7}

	posteriors := bayesianUpdate(priors, likelihoods)
	assert.InDelta(t, 0.5, posteriors["h1"], 1e-9)
	assert.InDelta(t, 0.5, posteriors["h2"], 1e-9)
}

func TestBayesianUpdate_SingleSupportFavorsSupportedHypothesis(t *testing.T) {
	priors := map[string]float64{"h1": 0.5, "h2": 0.5}
	likelihoods := map[string]float64{
		"h1": relationStrengthToLikelihood(contracts.RelationSupport, 0.8),
		"h2": relationStrengthToLikelihood(contracts.RelationIrrelevant, 0),
	}

	posteriors := bayesianUpdate(priors, likelihoods)
	assert.Greater(t, posteriors["h1"], posteriors["h2"])
	assert.InDelta(t, 1.0, posteriors["h1"]+posteriors["h2"], 1e-9)
}

func TestBayesianUpdate_SingleContradictDisfavorsHypothesis(t *testing.T) {
	priors := map[string]float64{"h1": 0.5, "h2": 0.5}
	likelihoods := map[string]float64{
		"h1": relationStrengthToLikelihood(contracts.RelationContradict, 0.8),
		"h2": relationStrengthToLikelihood(contracts.RelationIrrelevant, 0),
	}

	posteriors := bayesianUpdate(priors, likelihoods)
	assert.Less(t, posteriors["h1"], posteriors["h2"])
}

func TestBayesianUpdate_IrrelevantEvidenceLeavesPriorsUnchanged(t *testing.T) {
	priors := map[string]float64{"h1": 0.3, "h2": 0.7}
	likelihoods := map[string]float64{
		"h1": relationStrengthToLikelihood(contracts.RelationIrrelevant, 0),
		"h2": relationStrengthToLikelihood(contracts.RelationIrrelevant, 0),
	}

	posteriors := bayesianUpdate(priors, likelihoods)
	assert.InDelta(t, 0.3, posteriors["h1"], 1e-9)
	assert.InDelta(t, 0.7, posteriors["h2"], 1e-9)
}

func TestBayesianUpdate_StrongerSupportShiftsPosteriorMore(t *testing.T) {
	priors := map[string]float64{"h1": 0.5, "h2": 0.5}

	weak := bayesianUpdate(priors, map[string]float64{
		"h1": relationStrengthToLikelihood(contracts.RelationSupport, 0.2),
		"h2": relationStrengthToLikelihood(contracts.RelationIrrelevant, 0),
	})
	strong := bayesianUpdate(priors, map[string]float64{
		"h1": relationStrengthToLikelihood(contracts.RelationSupport, 0.9),
		"h2": relationStrengthToLikelihood(contracts.RelationIrrelevant, 0),
	})

	assert.Greater(t, strong["h1"], weak["h1"])
}

func TestBayesianUpdate_SequentialUpdatesStaySumToOne(t *testing.T) {
	priors := map[string]float64{"h1": 0.5, "h2": 0.5}

	round1 := bayesianUpdate(priors, map[string]float64{
		"h1": relationStrengthToLikelihood(contracts.RelationSupport, 0.6),
		"h2": relationStrengthToLikelihood(contracts.RelationContradict, 0.6),
	})
	round2 := bayesianUpdate(round1, map[string]float64{
		"h1": relationStrengthToLikelihood(contracts.RelationContradict, 0.3),
		"h2": relationStrengthToLikelihood(contracts.RelationSupport, 0.3),
	})

	assert.InDelta(t, 1.0, round2["h1"]+round2["h2"], 1e-9)
}

func TestRelationStrengthToLikelihood_SupportAndContradictAreSymmetric(t *testing.T) {
	for _, s := range []float64{0, 0.25, 0.5, 0.75, 1} {
		support := relationStrengthToLikelihood(contracts.RelationSupport, s)
		contradict := relationStrengthToLikelihood(contracts.RelationContradict, s)
		assert.InDelta(t, 1.0, support+contradict, 1e-9)
	}
}

func TestRelationStrengthToLikelihood_StaysWithinOpenUnitInterval(t *testing.T) {
	for _, relation := range []contracts.EvidenceRelation{contracts.RelationSupport, contracts.RelationContradict, contracts.RelationIrrelevant} {
		for _, s := range []float64{0, 0.5, 1} {
			v := relationStrengthToLikelihood(relation, s)
			assert.Greater(t, v, 0.0)
			assert.Less(t, v, 1.0)
		}
	}
}

func TestRelationStrengthToLikelihood_IrrelevantIsAlwaysNeutral(t *testing.T) {
	for _, s := range []float64{0, 0.25, 0.5, 0.75, 1} {
		assert.Equal(t, 0.5, relationStrengthToLikelihood(contracts.RelationIrrelevant, s))
	}
}

func TestRelationStrengthToLikelihood_SupportIncreasesMonotonicallyWithStrength(t *testing.T) {
	prev := relationStrengthToLikelihood(contracts.RelationSupport, 0)
	for _, s := range []float64{0.25, 0.5, 0.75, 1} {
		next := relationStrengthToLikelihood(contracts.RelationSupport, s)
		assert.Greater(t, next, prev)
		prev = next
	}
}

func TestDiagnosticity_UnanimousLikelihoodsScoreOne(t *testing.T) {
	likelihoods := map[string]float64{"h1": 0.6, "h2": 0.6, "h3": 0.6}
	scores := Diagnosticity(likelihoods)
	for _, v := range scores {
		assert.InDelta(t, 1.0, v, 1e-9)
	}
}

func TestDiagnosticity_OneHypothesisMuchMoreLikelyScoresHigh(t *testing.T) {
	likelihoods := map[string]float64{"h1": 0.9, "h2": 0.1}
	scores := Diagnosticity(likelihoods)
	assert.InDelta(t, 9.0, scores["h1"], 1e-9)
	assert.InDelta(t, 1.0/9.0, scores["h2"], 1e-9)
	assert.Greater(t, scores["h1"], scores["h2"])
}

func TestDiagnosticity_ZeroLikelihoodPeersAreSkippedNotDivByZero(t *testing.T) {
	likelihoods := map[string]float64{"h1": 0.5, "h2": 0}
	scores := Diagnosticity(likelihoods)
	assert.Equal(t, 0.0, scores["h1"])
}
