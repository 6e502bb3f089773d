package push

import (
	"context"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
	"github.com/aegi-platform/aegi-core/pkg/slack"
)

// SlackNotifier adapts *slack.Service to the push Notifier interface.
// A subscription with no SlackChannel configured is treated as a
// successful no-op: WebSocket-only delivery still counts as delivered.
type SlackNotifier struct {
	Service *slack.Service
}

func (n SlackNotifier) Notify(ctx context.Context, sub contracts.Subscription, d Delivery) error {
	if sub.SlackChannel == "" || n.Service == nil {
		return nil
	}
	return n.Service.NotifyPush(ctx, sub.SlackChannel, slack.Alert{
		CaseUID: d.CaseUID, EventType: d.EventType, Severity: d.Severity,
		Headline: d.Headline, Detail: d.Detail,
	})
}
