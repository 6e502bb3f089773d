// Package ach implements Analysis of Competing Hypotheses: a Bayesian
// posterior over a fixed set of hypotheses, updated one evidence
// assessment at a time, plus diagnosticity scoring used to rank which
// evidence actually discriminates between hypotheses.
package ach

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
	"github.com/aegi-platform/aegi-core/pkg/store"
)

// epsilon floors P(E) away from zero so a unanimous zero-likelihood
// evidence set never produces a divide-by-zero.
const epsilon = 1e-10

// supportSpan is how far support/contradict likelihoods are allowed to
// swing away from the neutral 0.5, so that strength=1 never reaches the
// open interval's edge.
const supportSpan = 0.45

// InitializePriors creates one Hypothesis per label with a uniform prior
// of 1/n, persists them, and returns the created rows.
func InitializePriors(ctx context.Context, hypotheses store.HypothesisStore, caseUID string, labels []string) ([]contracts.Hypothesis, error) {
	if len(labels) == 0 {
		return nil, nil
	}
	prior := 1.0 / float64(len(labels))
	out := make([]contracts.Hypothesis, 0, len(labels))
	for _, label := range labels {
		h := contracts.Hypothesis{
			UID: uuid.NewString(), CaseUID: caseUID, Label: label,
			Prior: prior, Posterior: prior, CreatedAt: time.Now().UTC(),
		}
		created, err := hypotheses.Create(ctx, h)
		if err != nil {
			return nil, fmt.Errorf("create hypothesis %q: %w", label, err)
		}
		out = append(out, created)
	}
	return out, nil
}

// clamp01 restricts s to [0, 1].
func clamp01(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// relationStrengthToLikelihood maps a qualitative relation and its
// strength in [0, 1] to a likelihood P(E|H) in the open interval (0, 1).
//
// support and contradict are symmetric around the neutral 0.5: for any
// strength s, support(s) + contradict(s) == 1. Stronger support pushes
// the likelihood up toward (but never reaching) 1; stronger contradiction
// pushes it down toward (but never reaching) 0. irrelevant evidence
// carries no information either way and always returns exactly 0.5,
// regardless of strength.
func relationStrengthToLikelihood(relation contracts.EvidenceRelation, strength float64) float64 {
	s := clamp01(strength)
	switch relation {
	case contracts.RelationSupport:
		return 0.5 + supportSpan*s
	case contracts.RelationContradict:
		return 0.5 - supportSpan*s
	default: // contracts.RelationIrrelevant and any unrecognized relation
		return 0.5
	}
}

// bayesianUpdate applies one step of Bayes' rule across every hypothesis
// sharing the same evidence: posterior_i = likelihood_i * prior_i / P(E),
// where P(E) = sum_i likelihood_i * prior_i, floored at epsilon so a
// unanimous-zero-likelihood evidence item never divides by zero. The
// result is renormalized to sum to 1 when the raw total is positive.
func bayesianUpdate(priors, likelihoods map[string]float64) map[string]float64 {
	pe := 0.0
	for uid, prior := range priors {
		pe += likelihoods[uid] * prior
	}
	if pe == 0 {
		pe = epsilon
	}

	posteriors := make(map[string]float64, len(priors))
	total := 0.0
	for uid, prior := range priors {
		p := likelihoods[uid] * prior / pe
		posteriors[uid] = p
		total += p
	}
	if total > 0 {
		for uid, p := range posteriors {
			posteriors[uid] = p / total
		}
	}
	return posteriors
}

// Diagnosticity scores each hypothesis by the largest likelihood ratio
// between it and every other hypothesis for the same evidence: evidence
// that makes one hypothesis much more likely than the rest is highly
// diagnostic, while evidence every hypothesis explains equally well is
// not.
func Diagnosticity(likelihoods map[string]float64) map[string]float64 {
	scores := make(map[string]float64, len(likelihoods))
	for uidA, la := range likelihoods {
		best := 0.0
		for uidB, lb := range likelihoods {
			if uidA == uidB || lb == 0 {
				continue
			}
			ratio := la / lb
			if ratio > best {
				best = ratio
			}
		}
		scores[uidA] = best
	}
	return scores
}
