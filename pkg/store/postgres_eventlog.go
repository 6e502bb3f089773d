package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
	"github.com/google/uuid"
)

// PostgresEventLogStore implements EventLogStore using PostgreSQL. The
// UNIQUE constraint on source_event_uid is the dedup mechanism: a second
// insert for the same upstream event is rejected and reported as
// already-seen rather than raced against in application code.
type PostgresEventLogStore struct{ db *sql.DB }

func NewPostgresEventLogStore(db *sql.DB) *PostgresEventLogStore { return &PostgresEventLogStore{db: db} }

func (s *PostgresEventLogStore) MarkSeen(ctx context.Context, sourceEventUID, eventType string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO event_log (event_log_uid, source_event_uid, event_type, status, push_count, created_at)
		VALUES ($1, $2, $3, 'done', 0, now())
		ON CONFLICT (source_event_uid) DO NOTHING
	`, uuid.NewString(), sourceEventUID, eventType)
	if err != nil {
		return false, fmt.Errorf("mark event seen: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check event seen: %w", err)
	}
	return n == 0, nil
}

func (s *PostgresEventLogStore) IncrementPushCount(ctx context.Context, sourceEventUID string, n int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE event_log SET push_count = push_count + $1 WHERE source_event_uid = $2
	`, n, sourceEventUID)
	if err != nil {
		return fmt.Errorf("increment push count: %w", err)
	}
	return nil
}

func (s *PostgresEventLogStore) CountRecentPushes(ctx context.Context, userID string, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*) FROM push_log WHERE user_id = $1 AND status = 'delivered' AND created_at >= $2
	`, userID, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count recent pushes: %w", err)
	}
	return n, nil
}

func (s *PostgresEventLogStore) RecordPush(ctx context.Context, p contracts.PushLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO push_log (push_log_uid, event_uid, user_id, match_method, score, reason, status, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
	`, p.UID, p.EventUID, p.UserID, p.MatchMethod, p.Score, p.Reason, p.Status, p.Error)
	if err != nil {
		return fmt.Errorf("record push log: %w", err)
	}
	return nil
}
