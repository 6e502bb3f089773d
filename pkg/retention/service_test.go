package retention

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

type fakeEvidenceStore struct {
	calls []contracts.RetentionCutoff
	n     int64
	err   error
}

func (f *fakeEvidenceStore) Create(ctx context.Context, e contracts.Evidence) (contracts.Evidence, error) {
	return e, nil
}

func (f *fakeEvidenceStore) Get(ctx context.Context, uid string) (contracts.Evidence, error) {
	return contracts.Evidence{}, nil
}

func (f *fakeEvidenceStore) ExpireOlderThan(ctx context.Context, before contracts.RetentionCutoff) (int64, error) {
	f.calls = append(f.calls, before)
	return f.n, f.err
}

type fakeActionStore struct {
	purgeCalls []contracts.RetentionCutoff
	n          int64
	err        error
}

func (f *fakeActionStore) RecordAction(ctx context.Context, a contracts.Action) error { return nil }
func (f *fakeActionStore) RecordToolTrace(ctx context.Context, t contracts.ToolTrace) error {
	return nil
}
func (f *fakeActionStore) ListActionsByCase(ctx context.Context, caseUID string, limit int) ([]contracts.Action, error) {
	return nil, nil
}
func (f *fakeActionStore) GetByTraceID(ctx context.Context, traceID string) (contracts.Action, error) {
	return contracts.Action{}, nil
}
func (f *fakeActionStore) PurgeOlderThan(ctx context.Context, before contracts.RetentionCutoff) (int64, error) {
	f.purgeCalls = append(f.purgeCalls, before)
	return f.n, f.err
}

func TestService_StartIsNoOpWhenDisabled(t *testing.T) {
	evidence := &fakeEvidenceStore{}
	actions := &fakeActionStore{}
	svc := NewService(Config{Enabled: false}, evidence, actions)

	svc.Start(t.Context())
	time.Sleep(10 * time.Millisecond)
	svc.Stop()

	assert.Empty(t, evidence.calls)
	assert.Empty(t, actions.purgeCalls)
}

func TestService_ExpireEvidenceSweepsTwoCutoffs(t *testing.T) {
	evidence := &fakeEvidenceStore{n: 3}
	actions := &fakeActionStore{}
	svc := NewService(Config{EvidenceTTL: time.Hour, GraceDays: 5}, evidence, actions)

	svc.expireEvidence(t.Context())

	require.Len(t, evidence.calls, 2)
	assert.True(t, evidence.calls[1].Before.Before(evidence.calls[0].Before),
		"hard-delete cutoff should be older than the expiry cutoff")
}

func TestService_PurgeActionsUsesActionTTL(t *testing.T) {
	evidence := &fakeEvidenceStore{}
	actions := &fakeActionStore{n: 7}
	svc := NewService(Config{ActionTTL: 2 * time.Hour}, evidence, actions)

	svc.purgeActions(t.Context())

	require.Len(t, actions.purgeCalls, 1)
	assert.WithinDuration(t, time.Now().Add(-2*time.Hour), actions.purgeCalls[0].Before, 5*time.Second)
}

func TestService_SweepToleratesStoreErrors(t *testing.T) {
	evidence := &fakeEvidenceStore{err: assertError("boom")}
	actions := &fakeActionStore{err: assertError("boom")}
	svc := NewService(Config{Enabled: true, Interval: time.Hour}, evidence, actions)

	assert.NotPanics(t, func() { svc.sweep(t.Context()) })
}

func TestService_StartAndStopLifecycle(t *testing.T) {
	evidence := &fakeEvidenceStore{}
	actions := &fakeActionStore{}
	svc := NewService(Config{Enabled: true, Interval: time.Hour}, evidence, actions)

	svc.Start(t.Context())
	time.Sleep(10 * time.Millisecond)
	svc.Stop()

	assert.NotEmpty(t, evidence.calls)
}

type assertError string

func (e assertError) Error() string { return string(e) }
