// Package eventbus is the in-process domain event bus: every pipeline
// stage, the GDELT monitor, the investigation agent, and the push
// engine emit through it rather than calling each other directly.
// Subscribers register by event type (or "*" for everything) and a
// single handler panic or error never takes down the emitter.
package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

// Wildcard subscribes a handler to every event type.
const Wildcard = "*"

// Event is one domain occurrence carried over the bus.
type Event struct {
	EventType      string
	SourceEventUID string
	CaseUID        string
	Severity       string // "low" | "medium" | "high" | "critical"
	Payload        any
	Entities       []string
	Regions        []string
	Topics         []string
	CreatedAt      time.Time
}

// Handler processes one Event. A returned error is logged, not
// propagated — handlers never block or fail delivery to other
// subscribers.
type Handler func(ctx context.Context, evt Event) error

// Bus is a typed, in-process pub/sub dispatcher. The zero value is not
// usable; construct with New.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	wildcard []Handler
	logger   *slog.Logger
	inflight sync.WaitGroup
}

// New constructs an empty Bus.
func New() *Bus {
	return &Bus{handlers: make(map[string][]Handler), logger: slog.Default().With("component", "eventbus")}
}

var (
	singletonOnce sync.Once
	singleton     *Bus
)

// Get returns the process-wide singleton Bus, constructing it on first
// use.
func Get() *Bus {
	singletonOnce.Do(func() { singleton = New() })
	return singleton
}

// Reset replaces the singleton with a fresh Bus. Test-only: it lets
// each test start from a clean subscriber set without leaking handlers
// registered by a previous test.
func Reset() {
	singletonOnce = sync.Once{}
	singleton = nil
	Get()
}

// Subscribe registers handler for eventType, or Wildcard to receive
// every event type regardless of its EventType.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if eventType == Wildcard {
		b.wildcard = append(b.wildcard, handler)
		return
	}
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Emit fires evt to every matching subscriber (type-specific plus
// wildcard) without waiting for any of them — handlers run in their
// own goroutines, and a handler error is logged and swallowed. Use
// Drain to wait for asynchronous handlers dispatched this way.
func (b *Bus) Emit(ctx context.Context, evt Event) Event {
	evt = stamp(evt)
	for _, h := range b.matching(evt.EventType) {
		h := h
		b.inflight.Add(1)
		go func() {
			defer b.inflight.Done()
			b.invoke(ctx, h, evt)
		}()
	}
	return evt
}

// EmitAndWait fires evt synchronously, running every matching handler
// and returning only once all have completed. Handler errors are
// collected and logged but do not stop the other handlers from
// running.
func (b *Bus) EmitAndWait(ctx context.Context, evt Event) Event {
	evt = stamp(evt)
	handlers := b.matching(evt.EventType)
	var wg sync.WaitGroup
	wg.Add(len(handlers))
	for _, h := range handlers {
		h := h
		go func() {
			defer wg.Done()
			b.invoke(ctx, h, evt)
		}()
	}
	wg.Wait()
	return evt
}

// Drain blocks until every handler dispatched by a prior Emit call has
// finished running, or ctx is cancelled first.
func (b *Bus) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func stamp(evt Event) Event {
	if evt.SourceEventUID == "" {
		evt.SourceEventUID = contracts.MintUID("event")
	}
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = time.Now().UTC()
	}
	return evt
}

func (b *Bus) matching(eventType string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Handler, 0, len(b.handlers[eventType])+len(b.wildcard))
	out = append(out, b.handlers[eventType]...)
	out = append(out, b.wildcard...)
	return out
}

func (b *Bus) invoke(ctx context.Context, h Handler, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("eventbus handler panicked", "event_type", evt.EventType, "source_event_uid", evt.SourceEventUID, "panic", fmt.Sprint(r))
		}
	}()
	if err := h(ctx, evt); err != nil {
		b.logger.Warn("eventbus handler returned error", "event_type", evt.EventType, "source_event_uid", evt.SourceEventUID, "error", err)
	}
}
