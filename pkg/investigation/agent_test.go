package investigation

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
	"github.com/aegi-platform/aegi-core/pkg/eventbus"
)

type fakeInvestigationStore struct {
	mu      sync.Mutex
	byUID   map[string]contracts.Investigation
	updates int
}

func newFakeInvestigationStore() *fakeInvestigationStore {
	return &fakeInvestigationStore{byUID: make(map[string]contracts.Investigation)}
}

func (f *fakeInvestigationStore) Create(ctx context.Context, i contracts.Investigation) (contracts.Investigation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byUID[i.UID] = i
	return i, nil
}

func (f *fakeInvestigationStore) Get(ctx context.Context, uid string) (contracts.Investigation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byUID[uid], nil
}

func (f *fakeInvestigationStore) Update(ctx context.Context, i contracts.Investigation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byUID[i.UID] = i
	f.updates++
	return nil
}

func (f *fakeInvestigationStore) ListActive(ctx context.Context) ([]contracts.Investigation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []contracts.Investigation
	for _, i := range f.byUID {
		out = append(out, i)
	}
	return out, nil
}

func (f *fakeInvestigationStore) snapshot(uid string) contracts.Investigation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byUID[uid]
}

// fakeLLM returns queuedPlans in order, one per call, looping on the
// last entry once exhausted.
type fakeLLM struct {
	mu          sync.Mutex
	queuedPlans []roundPlan
	calls       int
	err         error
}

func (f *fakeLLM) InvokeStructured(ctx context.Context, req contracts.LLMInvocationRequest, prompt string, out any) (contracts.ToolTrace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return contracts.ToolTrace{}, f.err
	}
	idx := f.calls
	if idx >= len(f.queuedPlans) {
		idx = len(f.queuedPlans) - 1
	}
	f.calls++
	plan := f.queuedPlans[idx]
	raw, _ := json.Marshal(plan)
	return contracts.ToolTrace{}, json.Unmarshal(raw, out)
}

type fakeFetcher struct {
	content string
	err     error
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.content, nil
}

type fakeClaimIngester struct {
	claimsPerCall int
	err           error
}

func (f *fakeClaimIngester) Extract(ctx context.Context, caseUID string, chunk contracts.Chunk, traceID string, budget contracts.BudgetContext) ([]contracts.SourceClaim, *contracts.DegradedOutput, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	claims := make([]contracts.SourceClaim, f.claimsPerCall)
	return claims, nil, nil
}

func newTestAgent(t *testing.T, llm *fakeLLM, fetch Fetcher, claims ClaimIngester, investigations *fakeInvestigationStore) *Agent {
	t.Helper()
	return &Agent{
		LLM: llm, Fetch: fetch, Claims: claims, Store: investigations, Bus: eventbus.New(),
		Logger:  slog.Default(),
		running: make(map[string]context.CancelFunc),
	}
}

func waitForTerminal(t *testing.T, store *fakeInvestigationStore, uid string) contracts.Investigation {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		inv := store.snapshot(uid)
		if inv.Status == contracts.InvestigationCompleted || inv.Status == contracts.InvestigationCancelled || inv.Status == contracts.InvestigationFailed {
			return inv
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("investigation did not reach a terminal state in time")
	return contracts.Investigation{}
}

func TestAgent_RunCompletesWhenGapResolvedFirstRound(t *testing.T) {
	llm := &fakeLLM{queuedPlans: []roundPlan{{Queries: []string{"https://example.com/a"}, GapResolved: true}}}
	investigations := newFakeInvestigationStore()
	agent := newTestAgent(t, llm, &fakeFetcher{content: "some source text"}, &fakeClaimIngester{claimsPerCall: 2}, investigations)

	inv := contracts.Investigation{UID: "inv-1", CaseUID: "case-1", MaxRounds: 5, Status: contracts.InvestigationPending}
	_, err := investigations.Create(context.Background(), inv)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	agent.run(ctx, inv, eventbus.Event{EventType: "case.alert", CaseUID: "case-1"})

	final := investigations.snapshot("inv-1")
	assert.Equal(t, contracts.InvestigationCompleted, final.Status)
	assert.True(t, final.GapResolved)
	assert.Len(t, final.Rounds, 1)
	assert.Equal(t, 2, final.TotalClaims)
	assert.NotNil(t, final.CompletedAt)
}

func TestAgent_RunStopsAtMaxRounds(t *testing.T) {
	llm := &fakeLLM{queuedPlans: []roundPlan{{Queries: []string{"https://example.com/a"}, GapResolved: false}}}
	investigations := newFakeInvestigationStore()
	agent := newTestAgent(t, llm, &fakeFetcher{content: "text"}, &fakeClaimIngester{claimsPerCall: 1}, investigations)

	inv := contracts.Investigation{UID: "inv-2", CaseUID: "case-1", MaxRounds: 3, Status: contracts.InvestigationPending}
	_, err := investigations.Create(context.Background(), inv)
	require.NoError(t, err)

	agent.run(context.Background(), inv, eventbus.Event{EventType: "case.alert", CaseUID: "case-1"})

	final := investigations.snapshot("inv-2")
	assert.Equal(t, contracts.InvestigationCompleted, final.Status)
	assert.False(t, final.GapResolved)
	assert.Len(t, final.Rounds, 3)
	assert.Equal(t, 3, final.TotalClaims)
}

func TestAgent_StartFromEventRegistersAndCompletes(t *testing.T) {
	llm := &fakeLLM{queuedPlans: []roundPlan{{Queries: []string{"https://example.com/a"}, GapResolved: true}}}
	investigations := newFakeInvestigationStore()
	agent := newTestAgent(t, llm, &fakeFetcher{content: "text"}, &fakeClaimIngester{claimsPerCall: 1}, investigations)

	err := agent.StartFromEvent(context.Background(), eventbus.Event{EventType: "gdelt.surge", CaseUID: "case-9", SourceEventUID: "evt-9"})
	require.NoError(t, err)

	var uid string
	for _, inv := range func() []contracts.Investigation {
		active, _ := investigations.ListActive(context.Background())
		return active
	}() {
		uid = inv.UID
	}
	require.NotEmpty(t, uid)

	final := waitForTerminal(t, investigations, uid)
	assert.Equal(t, contracts.InvestigationCompleted, final.Status)
	assert.Equal(t, "case-9", final.CaseUID)
	assert.Equal(t, "evt-9", final.TriggerEventUID)
}

func TestAgent_CancelStopsRunBeforeMaxRounds(t *testing.T) {
	llm := &fakeLLM{queuedPlans: []roundPlan{{Queries: []string{"https://example.com/a"}, GapResolved: false}}}
	investigations := newFakeInvestigationStore()
	agent := newTestAgent(t, llm, &fakeFetcher{content: "text"}, &fakeClaimIngester{claimsPerCall: 1}, investigations)

	inv := contracts.Investigation{UID: "inv-3", CaseUID: "case-1", MaxRounds: 100, Status: contracts.InvestigationPending}
	_, err := investigations.Create(context.Background(), inv)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	agent.mu.Lock()
	agent.running["inv-3"] = cancel
	agent.mu.Unlock()

	go agent.run(ctx, inv, eventbus.Event{EventType: "case.alert", CaseUID: "case-1"})

	ok := agent.Cancel("inv-3", "analyst-1")
	assert.True(t, ok)

	final := waitForTerminal(t, investigations, "inv-3")
	assert.Equal(t, contracts.InvestigationCancelled, final.Status)
	assert.Equal(t, "analyst-1", final.CancelledBy)
}

func TestAgent_CancelUnknownUIDReturnsFalse(t *testing.T) {
	agent := newTestAgent(t, &fakeLLM{}, &fakeFetcher{}, &fakeClaimIngester{}, newFakeInvestigationStore())
	assert.False(t, agent.Cancel("does-not-exist", "someone"))
}

func TestAgent_RunToleratesFetchFailuresWithinARound(t *testing.T) {
	llm := &fakeLLM{queuedPlans: []roundPlan{{Queries: []string{"https://example.com/a"}, GapResolved: true}}}
	investigations := newFakeInvestigationStore()
	agent := newTestAgent(t, llm, &fakeFetcher{err: assertErr("fetch unreachable")}, &fakeClaimIngester{claimsPerCall: 1}, investigations)

	inv := contracts.Investigation{UID: "inv-4", CaseUID: "case-1", MaxRounds: 2, Status: contracts.InvestigationPending}
	_, err := investigations.Create(context.Background(), inv)
	require.NoError(t, err)

	agent.run(context.Background(), inv, eventbus.Event{EventType: "case.alert", CaseUID: "case-1"})

	final := investigations.snapshot("inv-4")
	assert.Equal(t, contracts.InvestigationCompleted, final.Status)
	assert.Len(t, final.Rounds, 1)
	assert.Equal(t, 0, final.TotalClaims)
}

func TestAgent_RunRunsFullBudgetWhenPlanningKeepsFailing(t *testing.T) {
	llm := &fakeLLM{err: assertErr("model unavailable")}
	investigations := newFakeInvestigationStore()
	agent := newTestAgent(t, llm, &fakeFetcher{content: "text"}, &fakeClaimIngester{claimsPerCall: 1}, investigations)

	inv := contracts.Investigation{UID: "inv-5", CaseUID: "case-1", MaxRounds: 2, Status: contracts.InvestigationPending}
	_, err := investigations.Create(context.Background(), inv)
	require.NoError(t, err)

	agent.run(context.Background(), inv, eventbus.Event{EventType: "case.alert", CaseUID: "case-1"})

	final := investigations.snapshot("inv-5")
	assert.Equal(t, contracts.InvestigationCompleted, final.Status)
	assert.Len(t, final.Rounds, 2)
	assert.Equal(t, 0, final.TotalClaims)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
