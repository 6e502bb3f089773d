package eventbus

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeAndEmit(t *testing.T) {
	b := New()
	var received atomic.Int32
	b.Subscribe("case.created", func(ctx context.Context, evt Event) error {
		received.Add(1)
		return nil
	})

	evt := b.Emit(t.Context(), Event{EventType: "case.created", CaseUID: "case-1"})
	require.NotEmpty(t, evt.SourceEventUID)
	require.NoError(t, b.Drain(t.Context()))
	assert.Equal(t, int32(1), received.Load())
}

func TestWildcardSubscriberReceivesEveryType(t *testing.T) {
	b := New()
	var count atomic.Int32
	b.Subscribe(Wildcard, func(ctx context.Context, evt Event) error {
		count.Add(1)
		return nil
	})

	b.Emit(t.Context(), Event{EventType: "case.created"})
	b.Emit(t.Context(), Event{EventType: "gdelt.anomaly_detected"})
	require.NoError(t, b.Drain(t.Context()))
	assert.Equal(t, int32(2), count.Load())
}

func TestEmitAndWaitBlocksUntilHandlersFinish(t *testing.T) {
	b := New()
	var ran atomic.Bool
	b.Subscribe("x", func(ctx context.Context, evt Event) error {
		time.Sleep(5 * time.Millisecond)
		ran.Store(true)
		return nil
	})

	b.EmitAndWait(t.Context(), Event{EventType: "x"})
	assert.True(t, ran.Load())
}

func TestHandlerErrorDoesNotStopOtherHandlers(t *testing.T) {
	b := New()
	var secondRan atomic.Bool
	b.Subscribe("x", func(ctx context.Context, evt Event) error {
		return errors.New("boom")
	})
	b.Subscribe("x", func(ctx context.Context, evt Event) error {
		secondRan.Store(true)
		return nil
	})

	b.EmitAndWait(t.Context(), Event{EventType: "x"})
	assert.True(t, secondRan.Load())
}

func TestHandlerPanicIsIsolated(t *testing.T) {
	b := New()
	var secondRan atomic.Bool
	b.Subscribe("x", func(ctx context.Context, evt Event) error {
		panic("handler exploded")
	})
	b.Subscribe("x", func(ctx context.Context, evt Event) error {
		secondRan.Store(true)
		return nil
	})

	assert.NotPanics(t, func() {
		b.EmitAndWait(t.Context(), Event{EventType: "x"})
	})
	assert.True(t, secondRan.Load())
}

func TestEmitStampsSourceEventUIDAndTimestamp(t *testing.T) {
	b := New()
	evt := b.Emit(t.Context(), Event{EventType: "x"})
	assert.NotEmpty(t, evt.SourceEventUID)
	assert.False(t, evt.CreatedAt.IsZero())
}

func TestEmitPreservesExplicitSourceEventUID(t *testing.T) {
	b := New()
	evt := b.Emit(t.Context(), Event{EventType: "x", SourceEventUID: "explicit-1"})
	assert.Equal(t, "explicit-1", evt.SourceEventUID)
}

func TestDrainRespectsContextCancellation(t *testing.T) {
	b := New()
	b.Subscribe("x", func(ctx context.Context, evt Event) error {
		time.Sleep(50 * time.Millisecond)
		return nil
	})
	b.Emit(t.Context(), Event{EventType: "x"})

	ctx, cancel := context.WithTimeout(t.Context(), time.Millisecond)
	defer cancel()
	err := b.Drain(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGetIsSingletonUntilReset(t *testing.T) {
	first := Get()
	second := Get()
	assert.Same(t, first, second)

	Reset()
	third := Get()
	assert.NotSame(t, first, third)
}
