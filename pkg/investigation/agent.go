// Package investigation runs the event-triggered evidence-gathering
// loop: when a subscribed trigger event lands on the bus, the agent
// asks the LLM for search queries, fetches external sources through
// the tool runner, ingests what comes back as claims, and repeats
// until the LLM reports the gap resolved, MaxRounds is hit, or an
// operator cancels the run. Adapted from the reference backend's
// pkg/agent/iteration.go loop and pkg/queue/pool.go's
// activeSessions-map cancellation pattern.
package investigation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
	"github.com/aegi-platform/aegi-core/pkg/eventbus"
	"github.com/aegi-platform/aegi-core/pkg/store"
)

// DefaultMaxRounds bounds an investigation run when the trigger does
// not specify one.
const DefaultMaxRounds = 5

// StructuredInvoker is the narrow LLM slice the agent needs to plan
// each round's search queries and judge whether the gap is resolved.
type StructuredInvoker interface {
	InvokeStructured(ctx context.Context, req contracts.LLMInvocationRequest, prompt string, out any) (contracts.ToolTrace, error)
}

// Fetcher is the narrow tool-runner slice the agent needs to resolve
// a query into external source text.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// ClaimIngester is the narrow claims slice the agent needs to turn
// fetched text into anchored SourceClaims.
type ClaimIngester interface {
	Extract(ctx context.Context, caseUID string, chunk contracts.Chunk, traceID string, budget contracts.BudgetContext) ([]contracts.SourceClaim, *contracts.DegradedOutput, error)
}

type roundPlan struct {
	Queries     []string `json:"queries"`
	GapResolved bool     `json:"gap_resolved"`
	Rationale   string   `json:"rationale"`
}

// Agent runs and tracks investigation loops, one goroutine per active
// run, with cooperative cancellation keyed by investigation UID.
type Agent struct {
	LLM    StructuredInvoker
	Fetch  Fetcher
	Claims ClaimIngester
	Store  store.InvestigationStore
	Bus    *eventbus.Bus
	Logger *slog.Logger

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

// NewAgent constructs an Agent and subscribes it to triggerEventTypes
// on bus. Passing eventbus.Wildcard subscribes to every event type.
func NewAgent(llm StructuredInvoker, fetch Fetcher, claims ClaimIngester, investigations store.InvestigationStore, bus *eventbus.Bus, triggerEventTypes ...string) *Agent {
	a := &Agent{
		LLM: llm, Fetch: fetch, Claims: claims, Store: investigations, Bus: bus,
		Logger:  slog.Default().With("component", "investigation"),
		running: make(map[string]context.CancelFunc),
	}
	for _, t := range triggerEventTypes {
		eventType := t
		bus.Subscribe(eventType, func(ctx context.Context, evt eventbus.Event) error {
			return a.StartFromEvent(context.Background(), evt)
		})
	}
	return a
}

// StartFromEvent creates an Investigation run for evt and launches its
// loop in a new goroutine, returning once the run is persisted and
// registered for cancellation.
func (a *Agent) StartFromEvent(ctx context.Context, evt eventbus.Event) error {
	inv := contracts.Investigation{
		UID:             contracts.MintUID("inv"),
		CaseUID:         evt.CaseUID,
		TriggerEventUID: evt.SourceEventUID,
		MaxRounds:       DefaultMaxRounds,
		Status:          contracts.InvestigationPending,
		CreatedAt:       time.Now().UTC(),
	}
	inv, err := a.Store.Create(ctx, inv)
	if err != nil {
		return fmt.Errorf("investigation start: create: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	a.mu.Lock()
	a.running[inv.UID] = cancel
	a.mu.Unlock()

	go a.run(runCtx, inv, evt)
	return nil
}

// Cancel requests cooperative cancellation of investigationUID's run.
// actor identifies who requested the cancellation and is recorded as
// CancelledBy. Returns false if no matching run is currently active
// on this agent.
func (a *Agent) Cancel(investigationUID, actor string) bool {
	a.mu.Lock()
	cancel, ok := a.running[investigationUID]
	a.mu.Unlock()
	if !ok {
		return false
	}
	a.cancelledBy(investigationUID, actor)
	cancel()
	return true
}

var cancelActors sync.Map // investigationUID -> actor string, read by run() after ctx.Err()

func (a *Agent) cancelledBy(investigationUID, actor string) {
	cancelActors.Store(investigationUID, actor)
}

// run drives one investigation's round loop to completion, failure,
// or cancellation, persisting state after every round.
func (a *Agent) run(ctx context.Context, inv contracts.Investigation, trigger eventbus.Event) {
	defer a.unregister(inv.UID)

	inv.Status = contracts.InvestigationRunning
	if err := a.Store.Update(ctx, inv); err != nil {
		a.Logger.Warn("investigation: failed to mark running", "uid", inv.UID, "error", err)
	}

	state := &IterationState{MaxIterations: inv.MaxRounds}
	budget := contracts.BudgetContext{DeadlineUnixMS: time.Now().Add(10 * time.Minute).UnixMilli(), MaxTokens: 4000}

	for state.CurrentIteration < state.MaxIterations {
		if ctx.Err() != nil {
			a.finish(ctx, &inv, contracts.InvestigationCancelled, actorFor(inv.UID))
			return
		}

		round, err := a.runRound(ctx, inv, trigger, state.CurrentIteration, budget)
		state.CurrentIteration++

		if err != nil {
			isTimeout := ctx.Err() == context.DeadlineExceeded
			state.RecordFailure(err.Error(), isTimeout)
			a.Logger.Warn("investigation round failed", "uid", inv.UID, "round", round.Index, "error", err)
			if state.ShouldAbortOnTimeouts() {
				a.finish(ctx, &inv, contracts.InvestigationFailed, "")
				return
			}
			inv.Rounds = append(inv.Rounds, round)
			_ = a.Store.Update(ctx, inv)
			continue
		}

		state.RecordSuccess()
		inv.Rounds = append(inv.Rounds, round)
		inv.TotalClaims += round.ClaimsFound
		if err := a.Store.Update(ctx, inv); err != nil {
			a.Logger.Warn("investigation: failed to persist round", "uid", inv.UID, "round", round.Index, "error", err)
		}

		if round.GapResolved {
			inv.GapResolved = true
			a.finish(ctx, &inv, contracts.InvestigationCompleted, "")
			return
		}
	}

	a.finish(ctx, &inv, contracts.InvestigationCompleted, "")
}

// runRound plans queries, fetches each one, and extracts claims from
// whatever comes back, returning the round record regardless of
// partial failures within it.
func (a *Agent) runRound(ctx context.Context, inv contracts.Investigation, trigger eventbus.Event, index int, budget contracts.BudgetContext) (contracts.InvestigationRound, error) {
	round := contracts.InvestigationRound{Index: index, StartedAt: time.Now().UTC()}

	plan, err := a.plan(ctx, inv, trigger, round, budget)
	if err != nil {
		round.CompletedAt = time.Now().UTC()
		return round, fmt.Errorf("plan round %d: %w", index, err)
	}
	round.Queries = plan.Queries
	round.GapResolved = plan.GapResolved

	for _, query := range plan.Queries {
		if ctx.Err() != nil {
			break
		}
		content, err := a.Fetch.Fetch(ctx, query)
		if err != nil {
			a.Logger.Warn("investigation: fetch failed, skipping query", "uid", inv.UID, "round", index, "query", query, "error", err)
			continue
		}
		if content == "" {
			continue
		}
		chunk := contracts.Chunk{
			UID:     contracts.MintUID("chunk"),
			CaseUID: inv.CaseUID,
			Ordinal: len(round.Queries),
			Text:    content,
		}
		claimsFound, _, err := a.Claims.Extract(ctx, inv.CaseUID, chunk, inv.UID, budget)
		if err != nil {
			a.Logger.Warn("investigation: claim extraction failed", "uid", inv.UID, "round", index, "query", query, "error", err)
			continue
		}
		round.ClaimsFound += len(claimsFound)
	}

	round.CompletedAt = time.Now().UTC()
	return round, nil
}

// plan asks the LLM to propose this round's search queries and judge
// whether the investigative gap is already resolved.
func (a *Agent) plan(ctx context.Context, inv contracts.Investigation, trigger eventbus.Event, round contracts.InvestigationRound, budget contracts.BudgetContext) (roundPlan, error) {
	prompt := fmt.Sprintf(
		"Investigate the gap behind trigger event %q (case %s). This is round %d of up to %d. "+
			"Propose specific search queries or source URLs to fetch next, and report whether the "+
			"evidence gathered so far resolves the gap.",
		trigger.EventType, inv.CaseUID, round.Index+1, inv.MaxRounds,
	)
	req := contracts.LLMInvocationRequest{TraceID: inv.UID, Budget: budget}
	var plan roundPlan
	if _, err := a.LLM.InvokeStructured(ctx, req, prompt, &plan); err != nil {
		return roundPlan{}, err
	}
	return plan, nil
}

func (a *Agent) finish(ctx context.Context, inv *contracts.Investigation, status contracts.InvestigationStatus, cancelledBy string) {
	inv.Status = status
	inv.CancelledBy = cancelledBy
	now := time.Now().UTC()
	inv.CompletedAt = &now
	// Persist with a fresh context: ctx may already be cancelled when
	// this is the cancellation path itself.
	if err := a.Store.Update(context.Background(), *inv); err != nil {
		a.Logger.Warn("investigation: failed to persist final state", "uid", inv.UID, "status", status, "error", err)
	}
	a.Bus.Emit(context.Background(), eventbus.Event{
		EventType: "investigation." + string(status),
		CaseUID:   inv.CaseUID,
		Payload:   inv,
	})
}

func (a *Agent) unregister(investigationUID string) {
	a.mu.Lock()
	delete(a.running, investigationUID)
	a.mu.Unlock()
	cancelActors.Delete(investigationUID)
}

func actorFor(investigationUID string) string {
	if v, ok := cancelActors.Load(investigationUID); ok {
		return v.(string)
	}
	return ""
}
