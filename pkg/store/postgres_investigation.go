package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/aegi-platform/aegi-core/pkg/apperrors"
	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

// PostgresInvestigationStore implements InvestigationStore using PostgreSQL.
type PostgresInvestigationStore struct{ db *sql.DB }

func NewPostgresInvestigationStore(db *sql.DB) *PostgresInvestigationStore {
	return &PostgresInvestigationStore{db: db}
}

func (s *PostgresInvestigationStore) Create(ctx context.Context, i contracts.Investigation) (contracts.Investigation, error) {
	rounds, err := json.Marshal(i.Rounds)
	if err != nil {
		return contracts.Investigation{}, fmt.Errorf("marshal rounds: %w", err)
	}
	if i.Status == "" {
		i.Status = contracts.InvestigationPending
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO investigations (
			investigation_uid, case_uid, trigger_event_uid, max_rounds, status,
			rounds, total_claims, gap_resolved, cancelled_by, created_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), $10)
	`, i.UID, i.CaseUID, i.TriggerEventUID, i.MaxRounds, string(i.Status),
		rounds, i.TotalClaims, i.GapResolved, i.CancelledBy, i.CompletedAt)
	if err != nil {
		return contracts.Investigation{}, fmt.Errorf("create investigation: %w", err)
	}
	return s.Get(ctx, i.UID)
}

func (s *PostgresInvestigationStore) Get(ctx context.Context, uid string) (contracts.Investigation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT investigation_uid, case_uid, trigger_event_uid, max_rounds, status,
			rounds, total_claims, gap_resolved, cancelled_by, created_at, completed_at
		FROM investigations WHERE investigation_uid = $1
	`, uid)
	return scanInvestigation(row)
}

func (s *PostgresInvestigationStore) Update(ctx context.Context, i contracts.Investigation) error {
	rounds, err := json.Marshal(i.Rounds)
	if err != nil {
		return fmt.Errorf("marshal rounds: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE investigations SET
			status = $1, rounds = $2, total_claims = $3, gap_resolved = $4,
			cancelled_by = $5, completed_at = $6
		WHERE investigation_uid = $7
	`, string(i.Status), rounds, i.TotalClaims, i.GapResolved, i.CancelledBy, i.CompletedAt, i.UID)
	if err != nil {
		return fmt.Errorf("update investigation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update investigation rows affected: %w", err)
	}
	if n == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (s *PostgresInvestigationStore) ListActive(ctx context.Context) ([]contracts.Investigation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT investigation_uid, case_uid, trigger_event_uid, max_rounds, status,
			rounds, total_claims, gap_resolved, cancelled_by, created_at, completed_at
		FROM investigations WHERE status IN ('pending', 'running')
	`)
	if err != nil {
		return nil, fmt.Errorf("list active investigations: %w", err)
	}
	defer rows.Close()

	var out []contracts.Investigation
	for rows.Next() {
		i, err := scanInvestigation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

func scanInvestigation(row scannableRow) (contracts.Investigation, error) {
	var i contracts.Investigation
	var status string
	var roundsRaw []byte
	if err := row.Scan(&i.UID, &i.CaseUID, &i.TriggerEventUID, &i.MaxRounds, &status,
		&roundsRaw, &i.TotalClaims, &i.GapResolved, &i.CancelledBy, &i.CreatedAt, &i.CompletedAt); err != nil {
		if err == sql.ErrNoRows {
			return contracts.Investigation{}, apperrors.ErrNotFound
		}
		return contracts.Investigation{}, fmt.Errorf("scan investigation: %w", err)
	}
	i.Status = contracts.InvestigationStatus(status)
	if err := json.Unmarshal(roundsRaw, &i.Rounds); err != nil {
		return contracts.Investigation{}, fmt.Errorf("unmarshal rounds: %w", err)
	}
	return i, nil
}
