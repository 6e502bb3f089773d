// Package push implements the push engine: a wildcard eventbus handler
// that matches each domain event against subscriptions by rule and by
// semantic similarity, merges per-user candidates, throttles, and
// delivers through an external notify capability.
package push

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
	"github.com/aegi-platform/aegi-core/pkg/eventbus"
	"github.com/aegi-platform/aegi-core/pkg/store"
)

// severityRank orders priority_threshold / severity strings so a
// subscription's floor can be compared against an event's severity.
var severityRank = map[string]int{"low": 0, "medium": 1, "high": 2, "critical": 3}

func rank(severity string) int {
	if r, ok := severityRank[severity]; ok {
		return r
	}
	return severityRank["low"]
}

// Embedder embeds free text for the semantic-match step. Engines
// without a configured Embedder skip semantic matching entirely and
// rely on rule matching alone.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Notifier is the external delivery capability — Slack today, anything
// else tomorrow — invoked once per matched subscriber.
type Notifier interface {
	Notify(ctx context.Context, sub contracts.Subscription, d Delivery) error
}

// Delivery is the rendered content of one push, independent of the
// transport that ends up carrying it.
type Delivery struct {
	CaseUID   string
	EventType string
	Severity  string
	Headline  string
	Detail    string
}

// semanticMatchFloor is the minimum cosine similarity between an
// event's payload embedding and a subscriber's interest embedding for
// a semantic candidate to be considered.
const semanticMatchFloor = 0.5

// Engine wires the stores, embedder, and notifier the push pipeline
// needs and registers itself on an eventbus.Bus as a wildcard handler.
type Engine struct {
	Subscriptions  store.SubscriptionStore
	EventLog       store.EventLogStore
	Embedder       Embedder
	Notifier       Notifier
	MaxPerHour     int
	RenderHeadline func(eventbus.Event) (headline, detail string)
	Logger         *slog.Logger
}

// NewEngine constructs an Engine with a default headline renderer and
// logger.
func NewEngine(subs store.SubscriptionStore, eventLog store.EventLogStore, embedder Embedder, notifier Notifier, maxPerHour int) *Engine {
	return &Engine{
		Subscriptions: subs, EventLog: eventLog, Embedder: embedder, Notifier: notifier,
		MaxPerHour: maxPerHour, RenderHeadline: defaultHeadline,
		Logger: slog.Default().With("component", "push"),
	}
}

// Register subscribes the Engine's HandleEvent as a wildcard handler
// on bus.
func (e *Engine) Register(bus *eventbus.Bus) {
	bus.Subscribe(eventbus.Wildcard, func(ctx context.Context, evt eventbus.Event) error {
		return e.HandleEvent(ctx, evt)
	})
}

type candidate struct {
	sub         contracts.Subscription
	matchMethod string
	score       float64
	reason      string
}

// HandleEvent runs the 7-step push pipeline for one event: dedup, rule
// match, semantic match, per-user merge, throttle, deliver, and
// EventLog update.
func (e *Engine) HandleEvent(ctx context.Context, evt eventbus.Event) error {
	alreadySeen, err := e.EventLog.MarkSeen(ctx, evt.SourceEventUID, evt.EventType)
	if err != nil {
		return fmt.Errorf("push dedup: %w", err)
	}
	if alreadySeen {
		return nil
	}

	subs, err := e.Subscriptions.ListEnabled(ctx)
	if err != nil {
		return fmt.Errorf("push list subscriptions: %w", err)
	}

	candidates := e.ruleMatch(subs, evt)
	candidates = e.semanticMatch(ctx, subs, evt, candidates)

	merged := mergeByUser(candidates)

	delivered := 0
	headline, detail := e.RenderHeadline(evt)
	for _, c := range merged {
		ok, err := e.throttleAllows(ctx, c.sub.UserID, evt.Severity)
		if err != nil {
			e.Logger.Warn("push throttle check failed", "user_id", c.sub.UserID, "error", err)
			continue
		}
		if !ok {
			continue
		}

		d := Delivery{CaseUID: evt.CaseUID, EventType: evt.EventType, Severity: evt.Severity, Headline: headline, Detail: detail}
		status, deliveryErr := "delivered", ""
		if notifyErr := e.Notifier.Notify(ctx, c.sub, d); notifyErr != nil {
			status, deliveryErr = "failed", notifyErr.Error()
		} else {
			delivered++
		}

		if err := e.EventLog.RecordPush(ctx, contracts.PushLog{
			UID: contracts.MintUID("push"), EventUID: evt.SourceEventUID, UserID: c.sub.UserID,
			MatchMethod: c.matchMethod, Score: c.score, Reason: c.reason,
			Status: status, Error: deliveryErr, CreatedAt: time.Now().UTC(),
		}); err != nil {
			e.Logger.Warn("push record failed", "user_id", c.sub.UserID, "error", err)
		}
	}

	if err := e.EventLog.IncrementPushCount(ctx, evt.SourceEventUID, delivered); err != nil {
		return fmt.Errorf("push update event log: %w", err)
	}
	return nil
}

// ruleMatch selects subscriptions whose sub_type/sub_target, priority
// threshold, and event_types filter all match evt.
func (e *Engine) ruleMatch(subs []contracts.Subscription, evt eventbus.Event) []candidate {
	var out []candidate
	for _, s := range subs {
		if !targetMatches(s, evt) {
			continue
		}
		if rank(evt.Severity) < rank(s.PriorityThreshold) {
			continue
		}
		if len(s.EventTypes) > 0 && !slices.Contains(s.EventTypes, evt.EventType) {
			continue
		}
		out = append(out, candidate{
			sub: s, matchMethod: "rule", score: 1.0,
			reason: fmt.Sprintf("rule match: sub_type=%s sub_target=%s", s.SubType, s.SubTarget),
		})
	}
	return out
}

func targetMatches(s contracts.Subscription, evt eventbus.Event) bool {
	switch s.SubType {
	case "global":
		return true
	case "case":
		return s.SubTarget == evt.CaseUID
	case "entity":
		return slices.Contains(evt.Entities, s.SubTarget)
	case "region":
		return slices.Contains(evt.Regions, s.SubTarget)
	case "topic":
		return slices.Contains(evt.Topics, s.SubTarget)
	default:
		return false
	}
}

// semanticMatch appends a candidate for every subscription that
// carries an interest embedding and scores at or above
// semanticMatchFloor against the event's payload text, skipping
// subscriptions already chosen by rule matching's reason — duplicates
// are resolved later in mergeByUser, which keeps the highest score.
func (e *Engine) semanticMatch(ctx context.Context, subs []contracts.Subscription, evt eventbus.Event, out []candidate) []candidate {
	if e.Embedder == nil {
		return out
	}
	var withInterest []contracts.Subscription
	for _, s := range subs {
		if len(s.InterestEmbedding) > 0 {
			withInterest = append(withInterest, s)
		}
	}
	if len(withInterest) == 0 {
		return out
	}

	payloadText := fmt.Sprintf("%s %s %v", evt.EventType, evt.CaseUID, evt.Payload)
	embedding, err := e.Embedder.Embed(ctx, payloadText)
	if err != nil || len(embedding) == 0 {
		if e.Logger != nil {
			e.Logger.Warn("push semantic match: embedding unavailable", "error", err)
		}
		return out
	}

	for _, s := range withInterest {
		score := cosineSimilarity(embedding, s.InterestEmbedding)
		if score < semanticMatchFloor {
			continue
		}
		out = append(out, candidate{
			sub: s, matchMethod: "semantic", score: score,
			reason: fmt.Sprintf("semantic match score=%.2f", score),
		})
	}
	return out
}

// mergeByUser keeps only the highest-scoring candidate per user_id.
func mergeByUser(candidates []candidate) []candidate {
	best := make(map[string]candidate, len(candidates))
	var order []string
	for _, c := range candidates {
		existing, ok := best[c.sub.UserID]
		if !ok {
			best[c.sub.UserID] = c
			order = append(order, c.sub.UserID)
			continue
		}
		if c.score > existing.score {
			best[c.sub.UserID] = c
		}
	}
	out := make([]candidate, 0, len(order))
	for _, userID := range order {
		out = append(out, best[userID])
	}
	return out
}

// throttleAllows reports whether userID may receive another push this
// hour. Critical-severity events always bypass the throttle.
func (e *Engine) throttleAllows(ctx context.Context, userID, severity string) (bool, error) {
	if severity == "critical" {
		return true, nil
	}
	if e.MaxPerHour <= 0 {
		return true, nil
	}
	count, err := e.EventLog.CountRecentPushes(ctx, userID, time.Now().Add(-time.Hour))
	if err != nil {
		return false, err
	}
	return count < e.MaxPerHour, nil
}

func defaultHeadline(evt eventbus.Event) (string, string) {
	return fmt.Sprintf("%s (%s)", evt.EventType, evt.Severity), fmt.Sprintf("%v", evt.Payload)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot, normA, normB float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
