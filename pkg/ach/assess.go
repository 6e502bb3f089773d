package ach

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
	"github.com/aegi-platform/aegi-core/pkg/store"
)

// StructuredInvoker is the narrow slice of *llmclient.Client that
// AssessEvidence needs: one structured call per evidence item, scored
// against every live hypothesis at once.
type StructuredInvoker interface {
	InvokeStructured(ctx context.Context, req contracts.LLMInvocationRequest, prompt string, out any) (contracts.ToolTrace, error)
}

// judgment is one hypothesis's relation/strength verdict against a
// single piece of evidence, as returned by a structured LLM call.
type judgment struct {
	HypothesisUID string                     `json:"hypothesis_uid"`
	Relation      contracts.EvidenceRelation `json:"relation"`
	Strength      float64                    `json:"strength"`
	Rationale     string                     `json:"rationale"`
}

// judgmentRequest is the schema the LLM is asked to fill: one judgment
// per live hypothesis.
type judgmentRequest struct {
	Judgments []judgment `json:"judgments"`
}

// Engine wires the ACH math to durable storage and a structured LLM
// invoker.
type Engine struct {
	Hypotheses  store.HypothesisStore
	Assessments store.AssessmentStore
	LLM         StructuredInvoker
	Logger      *slog.Logger
}

// NewEngine builds an Engine, defaulting Logger to slog.Default.
func NewEngine(hypotheses store.HypothesisStore, assessments store.AssessmentStore, llm StructuredInvoker) *Engine {
	return &Engine{
		Hypotheses: hypotheses, Assessments: assessments, LLM: llm,
		Logger: slog.Default().With("component", "ach"),
	}
}

// AssessEvidence scores one evidence item against every live hypothesis
// in a case with a single structured LLM call, persists one
// EvidenceAssessment per hypothesis (upserting by hypothesis+evidence so
// re-assessment never duplicates rows), applies the Bayesian update to
// each hypothesis's posterior, and returns the assessments written.
//
// An LLM failure degrades to an empty result rather than propagating an
// error: a case's posteriors simply hold at their last known values
// until assessment can be retried.
func (e *Engine) AssessEvidence(ctx context.Context, caseUID, evidenceUID, evidenceText, traceID string, budget contracts.BudgetContext) []contracts.EvidenceAssessment {
	hypotheses, err := e.Hypotheses.ListByCase(ctx, caseUID)
	if err != nil || len(hypotheses) == 0 {
		e.Logger.Warn("ach assess: no hypotheses for case", "case_uid", caseUID, "error", err)
		return nil
	}

	var req judgmentRequest
	_, err = e.LLM.InvokeStructured(ctx, contracts.LLMInvocationRequest{
		TraceID: traceID, Budget: budget,
	}, buildAssessPrompt(hypotheses, evidenceText), &req)
	if err != nil {
		e.Logger.Warn("ach assess: llm invocation failed, holding priors", "case_uid", caseUID, "evidence_uid", evidenceUID, "error", err)
		return nil
	}

	byUID := make(map[string]judgment, len(req.Judgments))
	for _, j := range req.Judgments {
		byUID[j.HypothesisUID] = j
	}

	likelihoods := make(map[string]float64, len(hypotheses))
	priors := make(map[string]float64, len(hypotheses))
	assessments := make([]contracts.EvidenceAssessment, 0, len(hypotheses))

	now := time.Now().UTC()
	for _, h := range hypotheses {
		j, ok := byUID[h.UID]
		if !ok {
			j = judgment{HypothesisUID: h.UID, Relation: contracts.RelationIrrelevant, Strength: 0}
		}
		likelihood := relationStrengthToLikelihood(j.Relation, j.Strength)

		assessment := contracts.EvidenceAssessment{
			UID: uuid.NewString(), HypothesisUID: h.UID, EvidenceUID: evidenceUID,
			Relation: j.Relation, Strength: clamp01(j.Strength), Likelihood: likelihood, UpdatedAt: now,
		}
		if _, err := e.Assessments.Upsert(ctx, assessment); err != nil {
			e.Logger.Warn("ach assess: upsert failed", "hypothesis_uid", h.UID, "error", err)
			continue
		}
		assessments = append(assessments, assessment)
		likelihoods[h.UID] = likelihood
		priors[h.UID] = h.Posterior // the rolling posterior is the prior for the next evidence item
	}

	if len(assessments) == 0 {
		return nil
	}

	e.apply(ctx, caseUID, evidenceUID, priors, likelihoods)
	return assessments
}

// apply runs bayesianUpdate across the case's current priors, records
// one ProbabilityUpdate row per hypothesis, and persists the new
// posteriors as the case's priors for the next evidence item.
func (e *Engine) apply(ctx context.Context, caseUID, evidenceUID string, priors, likelihoods map[string]float64) {
	posteriors := bayesianUpdate(priors, likelihoods)

	for uid, posterior := range posteriors {
		update := contracts.ProbabilityUpdate{
			UID: uuid.NewString(), CaseUID: caseUID, HypothesisUID: uid, EvidenceUID: evidenceUID,
			Prior: priors[uid], Posterior: posterior, Likelihood: likelihoods[uid], CreatedAt: time.Now().UTC(),
		}
		if err := e.Assessments.RecordProbabilityUpdate(ctx, update); err != nil {
			e.Logger.Warn("ach apply: record probability update failed", "hypothesis_uid", uid, "error", err)
		}
	}

	if err := e.Hypotheses.UpdatePosteriors(ctx, caseUID, posteriors); err != nil {
		e.Logger.Warn("ach apply: update posteriors failed", "case_uid", caseUID, "error", err)
	}
}

// Recalculate replays every ProbabilityUpdate recorded for a case,
// re-running the Bayesian update from a uniform prior in the original
// evidence order, and persists the recomputed posteriors. The result is
// bit-for-bit equivalent to the sequential AssessEvidence path and is
// used to repair a case's posteriors after an assessment is edited or
// removed out of order.
func (e *Engine) Recalculate(ctx context.Context, caseUID string) (map[string]float64, error) {
	hypotheses, err := e.Hypotheses.ListByCase(ctx, caseUID)
	if err != nil {
		return nil, fmt.Errorf("recalculate: list hypotheses: %w", err)
	}
	if len(hypotheses) == 0 {
		return map[string]float64{}, nil
	}

	updates, err := e.Assessments.ListProbabilityUpdates(ctx, caseUID)
	if err != nil {
		return nil, fmt.Errorf("recalculate: list probability updates: %w", err)
	}

	prior := 1.0 / float64(len(hypotheses))
	posteriors := make(map[string]float64, len(hypotheses))
	for _, h := range hypotheses {
		posteriors[h.UID] = prior
	}

	byEvidence := groupByEvidence(updates)
	for _, evidenceUID := range byEvidence.order {
		likelihoods := make(map[string]float64, len(hypotheses))
		for _, u := range byEvidence.updates[evidenceUID] {
			likelihoods[u.HypothesisUID] = u.Likelihood
		}
		for uid := range posteriors {
			if _, ok := likelihoods[uid]; !ok {
				likelihoods[uid] = 0.5 // irrelevant default for hypotheses with no recorded update this round
			}
		}
		posteriors = bayesianUpdate(posteriors, likelihoods)
	}

	if err := e.Hypotheses.UpdatePosteriors(ctx, caseUID, posteriors); err != nil {
		return nil, fmt.Errorf("recalculate: update posteriors: %w", err)
	}
	return posteriors, nil
}

// evidenceGroups preserves the first-seen order of evidence UIDs so
// Recalculate replays updates in the same sequence they were originally
// applied.
type evidenceGroups struct {
	order   []string
	updates map[string][]contracts.ProbabilityUpdate
}

func groupByEvidence(updates []contracts.ProbabilityUpdate) evidenceGroups {
	g := evidenceGroups{updates: make(map[string][]contracts.ProbabilityUpdate)}
	for _, u := range updates {
		if _, ok := g.updates[u.EvidenceUID]; !ok {
			g.order = append(g.order, u.EvidenceUID)
		}
		g.updates[u.EvidenceUID] = append(g.updates[u.EvidenceUID], u)
	}
	return g
}

// OverrideAssessment lets an analyst directly replace a judgment the
// model made, re-deriving its likelihood from the new relation/strength,
// persisting the assessment, and re-applying the Bayesian update so the
// case's posteriors reflect the correction immediately.
func (e *Engine) OverrideAssessment(ctx context.Context, caseUID, hypothesisUID, evidenceUID string, relation contracts.EvidenceRelation, strength float64) (contracts.EvidenceAssessment, error) {
	likelihood := relationStrengthToLikelihood(relation, strength)
	assessment := contracts.EvidenceAssessment{
		UID: uuid.NewString(), HypothesisUID: hypothesisUID, EvidenceUID: evidenceUID,
		Relation: relation, Strength: clamp01(strength), Likelihood: likelihood, UpdatedAt: time.Now().UTC(),
	}
	saved, err := e.Assessments.Upsert(ctx, assessment)
	if err != nil {
		return contracts.EvidenceAssessment{}, fmt.Errorf("override assessment: %w", err)
	}

	hypotheses, err := e.Hypotheses.ListByCase(ctx, caseUID)
	if err != nil {
		return saved, fmt.Errorf("override assessment: list hypotheses: %w", err)
	}
	priors := make(map[string]float64, len(hypotheses))
	likelihoods := make(map[string]float64, len(hypotheses))
	for _, h := range hypotheses {
		priors[h.UID] = h.Posterior
		if h.UID == hypothesisUID {
			likelihoods[h.UID] = likelihood
		} else {
			likelihoods[h.UID] = 0.5
		}
	}
	e.apply(ctx, caseUID, evidenceUID, priors, likelihoods)
	return saved, nil
}

func buildAssessPrompt(hypotheses []contracts.Hypothesis, evidenceText string) string {
	prompt := "Judge how this evidence relates to each hypothesis. For each hypothesis, return its hypothesis_uid, a relation of \"support\", \"contradict\", or \"irrelevant\", a strength in [0, 1], and a short rationale.\n\nEvidence:\n" + evidenceText + "\n\nHypotheses:\n"
	for _, h := range hypotheses {
		prompt += fmt.Sprintf("- %s: %s\n", h.UID, h.Label)
	}
	return prompt
}
