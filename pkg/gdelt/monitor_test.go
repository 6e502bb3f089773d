package gdelt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

type fakeGDELTStore struct {
	marked  map[string]string
	recent  int
	history int
}

func (f *fakeGDELTStore) Create(ctx context.Context, e contracts.GDELTEvent) (contracts.GDELTEvent, error) {
	if e.UID == "" {
		e.UID = e.GlobalEventID
	}
	return e, nil
}

func (f *fakeGDELTStore) MarkAnomaly(ctx context.Context, uid, anomalyType string) error {
	if f.marked == nil {
		f.marked = map[string]string{}
	}
	f.marked[uid] = anomalyType
	return nil
}

func (f *fakeGDELTStore) CountSince(ctx context.Context, country string, since time.Time) (int, error) {
	return f.recent, nil
}

func (f *fakeGDELTStore) CountBetween(ctx context.Context, country string, start, end time.Time) (int, error) {
	return f.history, nil
}

func TestDetectAnomalies_ExtremeGoldstein(t *testing.T) {
	s := &fakeGDELTStore{}
	m := NewMonitor(nil, s, nil)
	out, err := m.DetectAnomalies(t.Context(), []contracts.GDELTEvent{{UID: "e1", GoldsteinScale: -8.5, CAMEORoot: "02"}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, anomalyExtremeConflict, out[0].AnomalyType)
}

func TestDetectAnomalies_HighConflictCAMEO(t *testing.T) {
	s := &fakeGDELTStore{}
	m := NewMonitor(nil, s, nil)
	out, err := m.DetectAnomalies(t.Context(), []contracts.GDELTEvent{{UID: "e1", GoldsteinScale: -1.0, CAMEORoot: "19"}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, anomalyHighConflictCAMEO, out[0].AnomalyType)
}

func TestDetectAnomalies_EventSurge(t *testing.T) {
	s := &fakeGDELTStore{recent: 30, history: 14}
	m := NewMonitor(nil, s, nil)
	out, err := m.DetectAnomalies(t.Context(), []contracts.GDELTEvent{{UID: "e1", GoldsteinScale: -1.0, CAMEORoot: "02", ActorCountry: "US"}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, anomalyEventSurge, out[0].AnomalyType)
}

func TestDetectAnomalies_NormalEventNoAnomaly(t *testing.T) {
	s := &fakeGDELTStore{recent: 5, history: 14}
	m := NewMonitor(nil, s, nil)
	out, err := m.DetectAnomalies(t.Context(), []contracts.GDELTEvent{{UID: "e1", GoldsteinScale: 1.5, CAMEORoot: "02", ActorCountry: "US"}})
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Empty(t, s.marked)
}
