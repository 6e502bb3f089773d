package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_StartAndGet(t *testing.T) {
	tr := NewTracker()
	state := tr.Start("run-1", "case-1", "default", 13)
	assert.Equal(t, "running", state.Status)

	got, ok := tr.Get("run-1")
	require.True(t, ok)
	assert.Equal(t, "case-1", got.CaseUID)
	assert.Equal(t, 13, got.StagesTotal)
}

func TestTracker_UpdateWakesSubscriber(t *testing.T) {
	tr := NewTracker()
	tr.Start("run-1", "case-1", "default", 1)
	sub := tr.Subscribe("run-1")

	go func() {
		tr.Update("run-1", func(s *RunState) { s.CurrentStage = "claim_extract" })
	}()

	select {
	case <-sub:
	case <-time.After(time.Second):
		t.Fatal("subscriber was not woken within timeout")
	}

	got, ok := tr.Get("run-1")
	require.True(t, ok)
	assert.Equal(t, "claim_extract", got.CurrentStage)
}

func TestTracker_UpdateOnUnknownRunIsNoOp(t *testing.T) {
	tr := NewTracker()
	tr.Update("missing", func(s *RunState) { s.Status = "whatever" })
	_, ok := tr.Get("missing")
	assert.False(t, ok)
}

func TestTracker_SubscribeToUnknownRunReturnsClosedChannel(t *testing.T) {
	tr := NewTracker()
	ch := tr.Subscribe("missing")
	select {
	case <-ch:
	default:
		t.Fatal("expected an already-closed channel for an unknown run")
	}
}

func TestTracker_CleanupRemovesState(t *testing.T) {
	tr := NewTracker()
	tr.Start("run-1", "case-1", "default", 1)
	tr.Cleanup("run-1")
	_, ok := tr.Get("run-1")
	assert.False(t, ok)
}
