package ach

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

type fakeHypothesisStore struct {
	byCase map[string][]contracts.Hypothesis
}

func newFakeHypothesisStore() *fakeHypothesisStore {
	return &fakeHypothesisStore{byCase: map[string][]contracts.Hypothesis{}}
}

func (f *fakeHypothesisStore) Create(_ context.Context, h contracts.Hypothesis) (contracts.Hypothesis, error) {
	f.byCase[h.CaseUID] = append(f.byCase[h.CaseUID], h)
	return h, nil
}

func (f *fakeHypothesisStore) ListByCase(_ context.Context, caseUID string) ([]contracts.Hypothesis, error) {
	return append([]contracts.Hypothesis(nil), f.byCase[caseUID]...), nil
}

func (f *fakeHypothesisStore) UpdatePosteriors(_ context.Context, caseUID string, posteriors map[string]float64) error {
	for i, h := range f.byCase[caseUID] {
		if p, ok := posteriors[h.UID]; ok {
			f.byCase[caseUID][i].Posterior = p
		}
	}
	return nil
}

type fakeAssessmentStore struct {
	assessments map[string]contracts.EvidenceAssessment // key: hypothesisUID+"|"+evidenceUID
	updates     []contracts.ProbabilityUpdate
}

func newFakeAssessmentStore() *fakeAssessmentStore {
	return &fakeAssessmentStore{assessments: map[string]contracts.EvidenceAssessment{}}
}

func (f *fakeAssessmentStore) key(hypothesisUID, evidenceUID string) string {
	return hypothesisUID + "|" + evidenceUID
}

func (f *fakeAssessmentStore) Upsert(_ context.Context, a contracts.EvidenceAssessment) (contracts.EvidenceAssessment, error) {
	f.assessments[f.key(a.HypothesisUID, a.EvidenceUID)] = a
	return a, nil
}

func (f *fakeAssessmentStore) ListByHypothesis(_ context.Context, hypothesisUID string) ([]contracts.EvidenceAssessment, error) {
	var out []contracts.EvidenceAssessment
	for _, a := range f.assessments {
		if a.HypothesisUID == hypothesisUID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAssessmentStore) RecordProbabilityUpdate(_ context.Context, u contracts.ProbabilityUpdate) error {
	f.updates = append(f.updates, u)
	return nil
}

func (f *fakeAssessmentStore) ListProbabilityUpdates(_ context.Context, caseUID string) ([]contracts.ProbabilityUpdate, error) {
	var out []contracts.ProbabilityUpdate
	for _, u := range f.updates {
		if u.CaseUID == caseUID {
			out = append(out, u)
		}
	}
	return out, nil
}

// fakeInvoker returns a canned judgmentRequest by marshaling it through
// the same JSON path InvokeStructured uses in production, so a schema
// typo in the test would fail the same way a real model response would.
type fakeInvoker struct {
	judgments []judgment
	err       error
}

func (f *fakeInvoker) InvokeStructured(_ context.Context, _ contracts.LLMInvocationRequest, _ string, out any) (contracts.ToolTrace, error) {
	if f.err != nil {
		return contracts.ToolTrace{Status: "error"}, f.err
	}
	raw, _ := json.Marshal(judgmentRequest{Judgments: f.judgments})
	return contracts.ToolTrace{Status: "ok"}, json.Unmarshal(raw, out)
}

func TestInitializePriors_AssignsUniformPriorAcrossLabels(t *testing.T) {
	hypotheses := newFakeHypothesisStore()
	created, err := InitializePriors(context.Background(), hypotheses, "case-1", []string{"A", "B", "C"})
	require.NoError(t, err)
	require.Len(t, created, 3)
	for _, h := range created {
		assert.InDelta(t, 1.0/3.0, h.Prior, 1e-9)
		assert.InDelta(t, 1.0/3.0, h.Posterior, 1e-9)
	}
}

func TestInitializePriors_EmptyLabelsReturnsNothing(t *testing.T) {
	created, err := InitializePriors(context.Background(), newFakeHypothesisStore(), "case-1", nil)
	require.NoError(t, err)
	assert.Empty(t, created)
}

func TestAssessEvidence_SupportingJudgmentRaisesSupportedHypothesisPosterior(t *testing.T) {
	ctx := context.Background()
	hypotheses := newFakeHypothesisStore()
	created, _ := InitializePriors(ctx, hypotheses, "case-1", []string{"theory-a", "theory-b"})

	invoker := &fakeInvoker{judgments: []judgment{
		{HypothesisUID: created[0].UID, Relation: contracts.RelationSupport, Strength: 0.9},
		{HypothesisUID: created[1].UID, Relation: contracts.RelationContradict, Strength: 0.9},
	}}
	engine := NewEngine(hypotheses, newFakeAssessmentStore(), invoker)

	assessments := engine.AssessEvidence(ctx, "case-1", "ev-1", "some evidence text", "trace-1", contracts.BudgetContext{})
	require.Len(t, assessments, 2)

	updated, _ := hypotheses.ListByCase(ctx, "case-1")
	var posteriorA, posteriorB float64
	for _, h := range updated {
		if h.UID == created[0].UID {
			posteriorA = h.Posterior
		} else {
			posteriorB = h.Posterior
		}
	}
	assert.Greater(t, posteriorA, posteriorB)
	assert.InDelta(t, 1.0, posteriorA+posteriorB, 1e-9)
}

func TestAssessEvidence_MissingJudgmentDefaultsToIrrelevant(t *testing.T) {
	ctx := context.Background()
	hypotheses := newFakeHypothesisStore()
	created, _ := InitializePriors(ctx, hypotheses, "case-1", []string{"theory-a", "theory-b"})

	invoker := &fakeInvoker{judgments: []judgment{
		{HypothesisUID: created[0].UID, Relation: contracts.RelationSupport, Strength: 0.5},
		// theory-b's judgment is omitted entirely
	}}
	engine := NewEngine(hypotheses, newFakeAssessmentStore(), invoker)

	assessments := engine.AssessEvidence(ctx, "case-1", "ev-1", "evidence", "trace-1", contracts.BudgetContext{})
	require.Len(t, assessments, 2)
	for _, a := range assessments {
		if a.HypothesisUID == created[1].UID {
			assert.Equal(t, contracts.RelationIrrelevant, a.Relation)
		}
	}
}

func TestAssessEvidence_LLMFailureDegradesToEmptyWithoutError(t *testing.T) {
	ctx := context.Background()
	hypotheses := newFakeHypothesisStore()
	_, _ = InitializePriors(ctx, hypotheses, "case-1", []string{"theory-a", "theory-b"})

	invoker := &fakeInvoker{err: assertError{}}
	engine := NewEngine(hypotheses, newFakeAssessmentStore(), invoker)

	assessments := engine.AssessEvidence(ctx, "case-1", "ev-1", "evidence", "trace-1", contracts.BudgetContext{})
	assert.Empty(t, assessments)
}

func TestAssessEvidence_NoHypothesesReturnsEmpty(t *testing.T) {
	ctx := context.Background()
	engine := NewEngine(newFakeHypothesisStore(), newFakeAssessmentStore(), &fakeInvoker{})
	assessments := engine.AssessEvidence(ctx, "case-unknown", "ev-1", "evidence", "trace-1", contracts.BudgetContext{})
	assert.Empty(t, assessments)
}

func TestAssessEvidence_UpsertByHypothesisAndEvidenceNeverDuplicates(t *testing.T) {
	ctx := context.Background()
	hypotheses := newFakeHypothesisStore()
	created, _ := InitializePriors(ctx, hypotheses, "case-1", []string{"theory-a"})
	assessments := newFakeAssessmentStore()
	invoker := &fakeInvoker{judgments: []judgment{{HypothesisUID: created[0].UID, Relation: contracts.RelationSupport, Strength: 0.5}}}
	engine := NewEngine(hypotheses, assessments, invoker)

	engine.AssessEvidence(ctx, "case-1", "ev-1", "evidence", "trace-1", contracts.BudgetContext{})
	engine.AssessEvidence(ctx, "case-1", "ev-1", "evidence (re-assessed)", "trace-2", contracts.BudgetContext{})

	assert.Len(t, assessments.assessments, 1)
}

func TestOverrideAssessment_DirectlyReplacesJudgmentAndReappliesUpdate(t *testing.T) {
	ctx := context.Background()
	hypotheses := newFakeHypothesisStore()
	created, _ := InitializePriors(ctx, hypotheses, "case-1", []string{"theory-a", "theory-b"})
	assessments := newFakeAssessmentStore()
	engine := NewEngine(hypotheses, assessments, &fakeInvoker{})

	saved, err := engine.OverrideAssessment(ctx, "case-1", created[0].UID, "ev-1", contracts.RelationSupport, 1.0)
	require.NoError(t, err)
	assert.Equal(t, contracts.RelationSupport, saved.Relation)

	updated, _ := hypotheses.ListByCase(ctx, "case-1")
	for _, h := range updated {
		if h.UID == created[0].UID {
			assert.Greater(t, h.Posterior, 0.5)
		}
	}
}

func TestRecalculate_MatchesSequentialApplicationFromUniformPrior(t *testing.T) {
	ctx := context.Background()
	hypotheses := newFakeHypothesisStore()
	created, _ := InitializePriors(ctx, hypotheses, "case-1", []string{"theory-a", "theory-b"})
	assessments := newFakeAssessmentStore()
	invoker := &fakeInvoker{judgments: []judgment{
		{HypothesisUID: created[0].UID, Relation: contracts.RelationSupport, Strength: 0.7},
		{HypothesisUID: created[1].UID, Relation: contracts.RelationContradict, Strength: 0.7},
	}}
	engine := NewEngine(hypotheses, assessments, invoker)
	engine.AssessEvidence(ctx, "case-1", "ev-1", "evidence one", "trace-1", contracts.BudgetContext{})

	sequential, _ := hypotheses.ListByCase(ctx, "case-1")
	sequentialPosteriors := map[string]float64{}
	for _, h := range sequential {
		sequentialPosteriors[h.UID] = h.Posterior
	}

	recalculated, err := engine.Recalculate(ctx, "case-1")
	require.NoError(t, err)
	for uid, p := range sequentialPosteriors {
		assert.InDelta(t, p, recalculated[uid], 1e-9)
	}
}

type assertError struct{}

func (assertError) Error() string { return "llm unavailable" }
