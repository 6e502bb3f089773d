package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

func TestPlanQuery_AlwaysAtLeastTwoSteps(t *testing.T) {
	plan := planQuery("What happened in Springfield yesterday?")
	assert.GreaterOrEqual(t, len(plan), 2)
	assert.Equal(t, "retrieve", plan[0].Kind)
	assert.Equal(t, "synthesize", plan[len(plan)-1].Kind)
}

func TestPlanQuery_GraphKeywordsAddKGStep(t *testing.T) {
	plan := planQuery("How are these two organizations connected?")
	require.Len(t, plan, 3)
	assert.Equal(t, "kg", plan[1].Kind)
}

func TestKeywordSearch_MatchesSignificantTokens(t *testing.T) {
	claims := []contracts.SourceClaim{
		{UID: "c1", Text: "The convoy crossed the border at midnight."},
		{UID: "c2", Text: "Weather remained calm throughout the region."},
	}
	result := keywordSearch(claims, "What happened at the border?")
	require.Len(t, result, 1)
	assert.Equal(t, "c1", result[0].UID)
}

func TestKeywordSearch_NoSignificantTokensReturnsNil(t *testing.T) {
	claims := []contracts.SourceClaim{{UID: "c1", Text: "something"}}
	assert.Nil(t, keywordSearch(claims, "is the a of"))
}

type fakeInvoker struct {
	resp synthesisResponse
	err  error
}

func (f fakeInvoker) InvokeStructured(ctx context.Context, req contracts.LLMInvocationRequest, prompt string, out any) (contracts.ToolTrace, error) {
	if f.err != nil {
		return contracts.ToolTrace{}, f.err
	}
	target := out.(*synthesisResponse)
	*target = f.resp
	return contracts.ToolTrace{}, nil
}

func TestSynthesize_NoClaimsWithholdsAnswer(t *testing.T) {
	answer := synthesize(t.Context(), fakeInvoker{}, "case-1", "what happened?", "trace-1", nil, contracts.BudgetContext{})
	assert.Equal(t, contracts.HYPOTHESIS, answer.AnswerType)
	assert.Equal(t, "evidence_insufficient", answer.CannotAnswerReason)
	assert.Empty(t, answer.AnswerText)
}

func TestSynthesize_CitedAnswerReachesFact(t *testing.T) {
	claims := []contracts.SourceClaim{
		{UID: "c1", Text: "Convoy crossed the border.", AttributedTo: "wire service"},
		{UID: "c2", Text: "Local police confirmed the crossing.", AttributedTo: "local news"},
	}
	invoker := fakeInvoker{resp: synthesisResponse{
		AnswerText: "The convoy crossed the border [1], confirmed by police [2].",
		CitedUIDs:  []string{"c1", "c2"},
	}}

	answer := synthesize(t.Context(), invoker, "case-1", "did the convoy cross?", "trace-2", claims, contracts.BudgetContext{})
	assert.Equal(t, contracts.FACT, answer.AnswerType)
	assert.NotEmpty(t, answer.AnswerText)
	assert.Len(t, answer.EvidenceCitations, 2)
}

func TestSynthesize_UncitedAnswerIsWithheld(t *testing.T) {
	claims := []contracts.SourceClaim{{UID: "c1", Text: "Some claim text."}}
	invoker := fakeInvoker{resp: synthesisResponse{AnswerText: "An answer with no citations."}}

	answer := synthesize(t.Context(), invoker, "case-1", "what happened?", "trace-3", claims, contracts.BudgetContext{})
	assert.Equal(t, contracts.HYPOTHESIS, answer.AnswerType)
	assert.Equal(t, "evidence_insufficient", answer.CannotAnswerReason)
	assert.Empty(t, answer.AnswerText)
}

func TestRiskFlagsFor_FewSourcesFlagged(t *testing.T) {
	flags := riskFlagsFor([]contracts.SourceClaim{{UID: "c1"}})
	assert.Contains(t, flags, "sources_insufficient")
}

func TestRiskFlagsFor_WideTimeSpanFlagged(t *testing.T) {
	now := time.Now()
	claims := []contracts.SourceClaim{
		{UID: "c1", CreatedAt: now.Add(-400 * 24 * time.Hour)},
		{UID: "c2", CreatedAt: now},
	}
	flags := riskFlagsFor(claims)
	assert.Contains(t, flags, "time_range_conflict")
}

func TestRiskFlagsFor_ConsistentEvidenceHasNoFlags(t *testing.T) {
	now := time.Now()
	claims := []contracts.SourceClaim{
		{UID: "c1", CreatedAt: now},
		{UID: "c2", CreatedAt: now.Add(time.Hour)},
	}
	assert.Empty(t, riskFlagsFor(claims))
}
