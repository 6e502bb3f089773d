package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

// PostgresGDELTStore implements GDELTStore using PostgreSQL.
type PostgresGDELTStore struct{ db *sql.DB }

func NewPostgresGDELTStore(db *sql.DB) *PostgresGDELTStore { return &PostgresGDELTStore{db: db} }

func (s *PostgresGDELTStore) Create(ctx context.Context, e contracts.GDELTEvent) (contracts.GDELTEvent, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO gdelt_events (
			gdelt_event_uid, global_event_id, cameo_code, cameo_root, actor_country,
			goldstein_scale, avg_tone, event_date, status, anomaly_type, source_url, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
		ON CONFLICT (global_event_id) DO NOTHING
	`, e.UID, e.GlobalEventID, e.CAMEOCode, e.CAMEORoot, e.ActorCountry,
		e.GoldsteinScale, e.AvgTone, e.EventDate, e.Status, e.AnomalyType, e.SourceURL)
	if err != nil {
		return contracts.GDELTEvent{}, fmt.Errorf("create gdelt event: %w", err)
	}
	return e, nil
}

func (s *PostgresGDELTStore) MarkAnomaly(ctx context.Context, uid, anomalyType string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE gdelt_events SET status = 'anomaly', anomaly_type = $2 WHERE gdelt_event_uid = $1
	`, uid, anomalyType)
	if err != nil {
		return fmt.Errorf("mark gdelt anomaly: %w", err)
	}
	return nil
}

func (s *PostgresGDELTStore) CountSince(ctx context.Context, country string, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*) FROM gdelt_events WHERE actor_country = $1 AND event_date >= $2
	`, country, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count gdelt events since: %w", err)
	}
	return n, nil
}

func (s *PostgresGDELTStore) CountBetween(ctx context.Context, country string, start, end time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*) FROM gdelt_events WHERE actor_country = $1 AND event_date >= $2 AND event_date < $3
	`, country, start, end).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count gdelt events between: %w", err)
	}
	return n, nil
}
