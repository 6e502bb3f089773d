package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

// PostgresSubscriptionStore implements SubscriptionStore using PostgreSQL.
type PostgresSubscriptionStore struct{ db *sql.DB }

func NewPostgresSubscriptionStore(db *sql.DB) *PostgresSubscriptionStore {
	return &PostgresSubscriptionStore{db: db}
}

func (s *PostgresSubscriptionStore) Create(ctx context.Context, sub contracts.Subscription) (contracts.Subscription, error) {
	eventTypes, err := json.Marshal(sub.EventTypes)
	if err != nil {
		return contracts.Subscription{}, fmt.Errorf("marshal event types: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO subscriptions (
			subscription_uid, user_id, sub_type, sub_target, priority_threshold,
			event_types, enabled, interest_text, slack_channel, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
	`, sub.UID, sub.UserID, sub.SubType, sub.SubTarget, sub.PriorityThreshold,
		eventTypes, sub.Enabled, sub.InterestText, sub.SlackChannel)
	if err != nil {
		return contracts.Subscription{}, fmt.Errorf("create subscription: %w", err)
	}
	return sub, nil
}

func (s *PostgresSubscriptionStore) ListEnabled(ctx context.Context) ([]contracts.Subscription, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT subscription_uid, user_id, sub_type, sub_target, priority_threshold,
			event_types, enabled, interest_text, slack_channel, created_at
		FROM subscriptions WHERE enabled = true
	`)
	if err != nil {
		return nil, fmt.Errorf("list enabled subscriptions: %w", err)
	}
	defer rows.Close()

	var out []contracts.Subscription
	for rows.Next() {
		var sub contracts.Subscription
		var eventTypesRaw []byte
		if err := rows.Scan(&sub.UID, &sub.UserID, &sub.SubType, &sub.SubTarget, &sub.PriorityThreshold,
			&eventTypesRaw, &sub.Enabled, &sub.InterestText, &sub.SlackChannel, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		if err := json.Unmarshal(eventTypesRaw, &sub.EventTypes); err != nil {
			return nil, fmt.Errorf("unmarshal event types: %w", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *PostgresSubscriptionStore) SetEnabled(ctx context.Context, uid string, enabled bool) error {
	_, err := s.db.ExecContext(ctx, `UPDATE subscriptions SET enabled = $1 WHERE subscription_uid = $2`, enabled, uid)
	if err != nil {
		return fmt.Errorf("set subscription enabled: %w", err)
	}
	return nil
}
