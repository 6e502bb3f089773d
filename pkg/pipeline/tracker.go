package pipeline

import (
	"sync"
	"time"
)

// RunState is the tracker's per-run snapshot. Unknown/extra fields an
// older client might send when polling are ignored silently by callers
// that decode this into a looser shape; the tracker itself never
// validates the contents it is handed.
type RunState struct {
	RunID        string
	CaseUID      string
	Playbook     string
	Status       string // "running" | "completed" | "failed" | "cancelled"
	CurrentStage string
	ProgressPct  float64
	StagesTotal  int
	StartedAt    time.Time
	CompletedAt  time.Time
	Error        string
}

type runEntry struct {
	state RunState
	done  chan struct{}
}

// Tracker holds per-run progress state and a cooperative notification
// channel per run, grounded directly on the reference backend's
// WorkerPool.activeSessions registry in pkg/queue/pool.go: one
// entry per resource (there, a session and its CancelFunc; here, a
// pipeline run and its state), guarded by the same mutex-protected map
// pattern. Where the reference pool signals cancellation by invoking a
// stored context.CancelFunc, Tracker signals an update by closing a
// channel and replacing it with a fresh one — a subscriber that has
// already fired re-subscribes for the next update.
type Tracker struct {
	mu      sync.RWMutex
	runs    map[string]*runEntry
}

// NewTracker constructs an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{runs: make(map[string]*runEntry)}
}

// Start registers a new run and returns its initial state.
func (t *Tracker) Start(runID, caseUID, playbook string, stagesTotal int) RunState {
	t.mu.Lock()
	defer t.mu.Unlock()
	state := RunState{
		RunID: runID, CaseUID: caseUID, Playbook: playbook,
		Status: "running", StagesTotal: stagesTotal, StartedAt: time.Now().UTC(),
	}
	t.runs[runID] = &runEntry{state: state, done: make(chan struct{})}
	return state
}

// Update merges a partial update into runID's state and wakes every
// subscriber. A call against an unknown runID is a silent no-op.
func (t *Tracker) Update(runID string, fn func(*RunState)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.runs[runID]
	if !ok {
		return
	}
	fn(&entry.state)
	close(entry.done)
	entry.done = make(chan struct{})
}

// Get returns the current state for runID.
func (t *Tracker) Get(runID string) (RunState, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	entry, ok := t.runs[runID]
	if !ok {
		return RunState{}, false
	}
	return entry.state, true
}

// Subscribe returns a channel that is closed on the next Update call
// for runID. A subscription against an unknown runID returns a
// channel that is already closed, so callers never block forever on a
// run that has already finished and been cleaned up.
func (t *Tracker) Subscribe(runID string) <-chan struct{} {
	t.mu.RLock()
	defer t.mu.RUnlock()
	entry, ok := t.runs[runID]
	if !ok {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return entry.done
}

// Cleanup removes runID's state and notifies any remaining subscriber
// one last time so nothing blocks forever.
func (t *Tracker) Cleanup(runID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.runs[runID]
	if !ok {
		return
	}
	close(entry.done)
	delete(t.runs, runID)
}
