package gdelt

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingPoller struct {
	calls atomic.Int32
}

func (p *countingPoller) Poll(ctx context.Context) (int, error) {
	p.calls.Add(1)
	return 0, nil
}

func TestScheduler_RejectsNonPositiveInterval(t *testing.T) {
	_, err := NewScheduler(&countingPoller{}, 0, 0, "", nil)
	assert.Error(t, err)
}

func TestScheduler_PollsRepeatedlyThenStops(t *testing.T) {
	poller := &countingPoller{}
	s, err := NewScheduler(poller, 20*time.Millisecond, 0, "", nil)
	require.NoError(t, err)

	s.Start(t.Context())
	time.Sleep(90 * time.Millisecond)
	s.Stop()

	assert.False(t, s.IsRunning())
	assert.GreaterOrEqual(t, poller.calls.Load(), int32(2))
}

func TestScheduler_IsRunningReflectsLifecycle(t *testing.T) {
	s, err := NewScheduler(&countingPoller{}, time.Hour, 0, "", nil)
	require.NoError(t, err)
	assert.False(t, s.IsRunning())

	s.Start(t.Context())
	assert.True(t, s.IsRunning())
	s.Stop()
	assert.False(t, s.IsRunning())
}
