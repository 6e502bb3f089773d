package gdelt

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
	"github.com/aegi-platform/aegi-core/pkg/eventbus"
	"github.com/aegi-platform/aegi-core/pkg/store"
)

const (
	// extremeGoldsteinFloor is the absolute Goldstein magnitude above
	// which an event is flagged regardless of CAMEO root.
	extremeGoldsteinFloor = 8.0

	// surgeWindow is the recent window checked against the trailing
	// historical average of the same width.
	surgeWindow     = 24 * time.Hour
	surgeRatioFloor = 2.0

	anomalyExtremeConflict  = "extreme_conflict"
	anomalyEventSurge       = "event_surge"
	anomalyHighConflictCAMEO = "high_conflict_cameo"
)

// highConflictCAMEORoots are CAMEO root codes treated as high-conflict
// regardless of reported tone: protest (14) and the material-conflict
// bracket (18 assault, 19 fight, 20 mass violence).
var highConflictCAMEORoots = map[string]bool{
	"14": true, "18": true, "19": true, "20": true,
}

// Client fetches raw GDELT events from the upstream feed. The actual
// HTTP/CSV fetch runs through the tool runner's external-fetch
// capability (pkg/toolrunner); Monitor only needs the narrow slice
// that returns already-parsed rows.
type Client interface {
	FetchRecent(ctx context.Context) ([]contracts.GDELTEvent, error)
}

// Monitor ingests GDELT events, persists them, and applies the three
// anomaly detectors of spec.md §4.14.
type Monitor struct {
	Client Client
	Store  store.GDELTStore
	Bus    *eventbus.Bus
	Logger *slog.Logger
}

// NewMonitor constructs a Monitor, defaulting Logger to slog.Default.
func NewMonitor(client Client, gdeltStore store.GDELTStore, bus *eventbus.Bus) *Monitor {
	return &Monitor{Client: client, Store: gdeltStore, Bus: bus, Logger: slog.Default().With("component", "gdelt_monitor")}
}

// Poll fetches the latest batch, persists it, and runs anomaly
// detection, returning the count of newly ingested events.
func (m *Monitor) Poll(ctx context.Context) (int, error) {
	events, err := m.Client.FetchRecent(ctx)
	if err != nil {
		return 0, fmt.Errorf("gdelt poll: fetch: %w", err)
	}

	for i, e := range events {
		if e.Status == "" {
			e.Status = "normal"
		}
		if e.EventDate.IsZero() {
			e.EventDate = time.Now().UTC()
		}
		saved, err := m.Store.Create(ctx, e)
		if err != nil {
			m.Logger.Warn("gdelt poll: failed to persist event", "global_event_id", e.GlobalEventID, "error", err)
			continue
		}
		events[i] = saved
	}

	anomalies, err := m.DetectAnomalies(ctx, events)
	if err != nil {
		m.Logger.Warn("gdelt poll: anomaly detection failed", "error", err)
	}
	if len(anomalies) > 0 {
		m.Logger.Info("gdelt poll: anomalies detected", "count", len(anomalies))
	}
	return len(events), nil
}

// DetectAnomalies applies the three detectors to events in order,
// flagging and emitting the first anomaly type that matches each
// event (an event is never double-counted across detectors).
func (m *Monitor) DetectAnomalies(ctx context.Context, events []contracts.GDELTEvent) ([]contracts.GDELTEvent, error) {
	var anomalies []contracts.GDELTEvent
	for _, e := range events {
		anomalyType, isAnomaly := m.classify(ctx, e)
		if !isAnomaly {
			continue
		}
		e.Status = "anomaly"
		e.AnomalyType = anomalyType
		if m.Store != nil {
			if err := m.Store.MarkAnomaly(ctx, e.UID, anomalyType); err != nil {
				m.Logger.Warn("gdelt anomaly: failed to persist status", "event_uid", e.UID, "error", err)
			}
		}
		m.emit(ctx, e)
		anomalies = append(anomalies, e)
	}
	return anomalies, nil
}

func (m *Monitor) classify(ctx context.Context, e contracts.GDELTEvent) (string, bool) {
	if abs(e.GoldsteinScale) >= extremeGoldsteinFloor {
		return anomalyExtremeConflict, true
	}
	if highConflictCAMEORoots[e.CAMEORoot] {
		return anomalyHighConflictCAMEO, true
	}
	if m.isSurging(ctx, e) {
		return anomalyEventSurge, true
	}
	return "", false
}

// isSurging compares the recent window's count for an event's country
// against the trailing historical window of equal width.
func (m *Monitor) isSurging(ctx context.Context, e contracts.GDELTEvent) bool {
	if m.Store == nil || e.ActorCountry == "" {
		return false
	}
	now := time.Now()
	recent, err := m.Store.CountSince(ctx, e.ActorCountry, now.Add(-surgeWindow))
	if err != nil {
		return false
	}
	historical, err := m.Store.CountBetween(ctx, e.ActorCountry, now.Add(-2*surgeWindow), now.Add(-surgeWindow))
	if err != nil || historical == 0 {
		return false
	}
	return float64(recent) >= surgeRatioFloor*float64(historical)
}

func (m *Monitor) emit(ctx context.Context, e contracts.GDELTEvent) {
	if m.Bus == nil {
		return
	}
	severity := "medium"
	if e.AnomalyType == anomalyExtremeConflict {
		severity = "high"
	}
	m.Bus.Emit(ctx, eventbus.Event{
		EventType: "gdelt.anomaly_detected",
		CaseUID:   "",
		Severity:  severity,
		Payload:   e,
		Regions:   []string{e.ActorCountry},
	})
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
