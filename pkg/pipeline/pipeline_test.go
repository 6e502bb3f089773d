package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStage struct {
	name      string
	skipMsg   string
	skip      bool
	err       error
	ran       *bool
}

func (f fakeStage) Name() string { return f.name }

func (f fakeStage) ShouldSkip(sc *StageContext) (string, bool) {
	return f.skipMsg, f.skip
}

func (f fakeStage) Run(ctx context.Context, sc *StageContext) (any, error) {
	if f.ran != nil {
		*f.ran = true
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.name, nil
}

func TestOrchestrator_SkipsDeclinedStage(t *testing.T) {
	ran := false
	o := &Orchestrator{Stages: []Stage{fakeStage{name: "a", skip: true, skipMsg: "nothing to do", ran: &ran}}, Tracker: NewTracker()}
	results := o.Run(t.Context(), &StageContext{RunID: "run-1", CaseUID: "case-1"})

	require.Len(t, results, 1)
	assert.Equal(t, "skipped", results[0].Status)
	assert.Equal(t, "nothing to do", results[0].Error)
	assert.False(t, ran)
}

func TestOrchestrator_IsolatesStageFailure(t *testing.T) {
	secondRan := false
	o := &Orchestrator{Stages: []Stage{
		fakeStage{name: "a", err: errors.New("boom")},
		fakeStage{name: "b", ran: &secondRan},
	}, Tracker: NewTracker()}

	results := o.Run(t.Context(), &StageContext{RunID: "run-2", CaseUID: "case-1"})

	require.Len(t, results, 2)
	assert.Equal(t, "error", results[0].Status)
	assert.Equal(t, "boom", results[0].Error)
	assert.Equal(t, "success", results[1].Status)
	assert.True(t, secondRan)
}

func TestOrchestrator_UpdatesTrackerProgress(t *testing.T) {
	tracker := NewTracker()
	o := &Orchestrator{Stages: []Stage{fakeStage{name: "a"}, fakeStage{name: "b"}}, Tracker: tracker}
	o.Run(t.Context(), &StageContext{RunID: "run-3", CaseUID: "case-1"})

	state, ok := tracker.Get("run-3")
	require.True(t, ok)
	assert.Equal(t, "completed", state.Status)
	assert.Equal(t, float64(100), state.ProgressPct)
}

func TestDefaultStages_FixedOrder(t *testing.T) {
	stages := DefaultStages()
	require.Len(t, stages, 13)
	assert.Equal(t, "osint_collect", stages[0].Name())
	assert.Equal(t, "report_generate", stages[len(stages)-1].Name())
}
