package slack

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ServiceConfig holds the parameters needed to construct a Service.
type ServiceConfig struct {
	Token        string
	Channel      string
	DashboardURL string
}

// Service handles Slack notification delivery for the push engine.
// Nil-safe: all methods are no-ops when service is nil.
type Service struct {
	client       *Client
	dashboardURL string
	logger       *slog.Logger
}

// NewService creates a new Slack notification service.
// Returns nil if Token or Channel is empty.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Token == "" || cfg.Channel == "" {
		return nil
	}
	return &Service{
		client:       NewClient(cfg.Token, cfg.Channel),
		dashboardURL: cfg.DashboardURL,
		logger:       slog.Default().With("component", "slack-service"),
	}
}

// NewServiceWithClient creates a Service backed by a pre-built Client.
// Useful for testing with a mock API server.
func NewServiceWithClient(client *Client, dashboardURL string) *Service {
	return &Service{
		client:       client,
		dashboardURL: dashboardURL,
		logger:       slog.Default().With("component", "slack-service"),
	}
}

// NotifyPush delivers one push alert to channel (a subscriber's
// Subscription.SlackChannel, or the service default if empty). Unlike
// the session-notification idiom this replaces, delivery failures are
// returned rather than swallowed: the push engine needs them to mark
// the PushLog row as failed.
func (s *Service) NotifyPush(ctx context.Context, channel string, alert Alert) error {
	if s == nil {
		return nil
	}
	alert.DashboardURL = s.dashboardURL
	blocks := BuildAlertMessage(alert)
	if err := s.client.PostMessageToChannel(ctx, channel, blocks, "", 10*time.Second); err != nil {
		s.logger.Error("failed to deliver push alert", "case_uid", alert.CaseUID, "event_type", alert.EventType, "error", err)
		return fmt.Errorf("slack push delivery: %w", err)
	}
	return nil
}
