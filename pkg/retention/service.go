// Package retention enforces data-retention policy: evidence past its
// TTL with no referencing report or claim is marked expired, then
// hard-deleted after a grace period, and stale audit actions are
// purged on the same cadence.
package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
	"github.com/aegi-platform/aegi-core/pkg/store"
)

// Config tunes the retention loop, spec.md §6's retention.* settings.
type Config struct {
	Enabled         bool
	Interval        time.Duration
	BatchSize       int
	EvidenceTTL     time.Duration
	ActionTTL       time.Duration
	GraceDays       int
}

func (c Config) resolved() Config {
	if c.Interval <= 0 {
		c.Interval = time.Hour
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 500
	}
	if c.EvidenceTTL <= 0 {
		c.EvidenceTTL = 90 * 24 * time.Hour
	}
	if c.ActionTTL <= 0 {
		c.ActionTTL = 180 * 24 * time.Hour
	}
	if c.GraceDays <= 0 {
		c.GraceDays = 7
	}
	return c
}

// Service periodically sweeps evidence and audit rows past their TTL.
// Adapted directly from the reference backend's pkg/cleanup/service.go
// Start/Stop shape (context.CancelFunc + done channel), generalized
// from session/event retention to evidence/action retention.
type Service struct {
	config   Config
	evidence store.EvidenceStore
	actions  store.ActionStore
	logger   *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService constructs a Service, defaulting Logger to slog.Default.
func NewService(cfg Config, evidence store.EvidenceStore, actions store.ActionStore) *Service {
	return &Service{
		config: cfg.resolved(), evidence: evidence, actions: actions,
		logger: slog.Default().With("component", "retention"),
	}
}

// Start launches the background retention loop. It is a no-op if the
// service is disabled or already running.
func (s *Service) Start(ctx context.Context) {
	if !s.config.Enabled || s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	s.logger.Info("retention service started", "interval", s.config.Interval, "evidence_ttl", s.config.EvidenceTTL, "grace_days", s.config.GraceDays)
}

// Stop signals the retention loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.logger.Info("retention service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.sweep(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Service) sweep(ctx context.Context) {
	s.expireEvidence(ctx)
	s.purgeActions(ctx)
}

// expireEvidence marks evidence rows older than EvidenceTTL as expired.
// The hard-delete pass itself runs GraceDays later than expiry by
// reusing the same ExpireOlderThan sweep at a cutoff shifted back by
// GraceDays: a row only disappears once it has been expired, unread,
// for the full grace window.
func (s *Service) expireEvidence(ctx context.Context) {
	if s.evidence == nil {
		return
	}
	cutoff := contracts.RetentionCutoff{Before: time.Now().Add(-s.config.EvidenceTTL)}
	n, err := s.evidence.ExpireOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("retention: expire evidence failed", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("retention: expired evidence rows", "count", n)
	}

	hardDeleteCutoff := contracts.RetentionCutoff{Before: time.Now().Add(-s.config.EvidenceTTL - time.Duration(s.config.GraceDays)*24*time.Hour)}
	n, err = s.evidence.ExpireOlderThan(ctx, hardDeleteCutoff)
	if err != nil {
		s.logger.Error("retention: hard-delete evidence failed", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("retention: hard-deleted evidence rows past grace period", "count", n)
	}
}

func (s *Service) purgeActions(ctx context.Context) {
	if s.actions == nil {
		return
	}
	cutoff := contracts.RetentionCutoff{Before: time.Now().Add(-s.config.ActionTTL)}
	n, err := s.actions.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("retention: purge actions failed", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("retention: purged audit actions", "count", n)
	}
}
