package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/aegi-platform/aegi-core/pkg/apperrors"
	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

// PostgresAssertionStore implements AssertionStore using PostgreSQL.
type PostgresAssertionStore struct{ db *sql.DB }

func NewPostgresAssertionStore(db *sql.DB) *PostgresAssertionStore { return &PostgresAssertionStore{db: db} }

func (s *PostgresAssertionStore) Upsert(ctx context.Context, a contracts.Assertion) (contracts.Assertion, error) {
	if len(a.SourceClaimUIDs) == 0 {
		return contracts.Assertion{}, apperrors.NewValidationError("source_claim_uids", "assertions must cite at least one source claim")
	}
	claimUIDs, err := json.Marshal(a.SourceClaimUIDs)
	if err != nil {
		return contracts.Assertion{}, fmt.Errorf("marshal source claim uids: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO assertions (
			assertion_uid, case_uid, text, source_claim_uids, belief, plausibility,
			uncertainty, conflict_degree, source_count, has_conflict, "timestamp", created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
		ON CONFLICT (assertion_uid) DO UPDATE SET
			text = EXCLUDED.text,
			source_claim_uids = EXCLUDED.source_claim_uids,
			belief = EXCLUDED.belief,
			plausibility = EXCLUDED.plausibility,
			uncertainty = EXCLUDED.uncertainty,
			conflict_degree = EXCLUDED.conflict_degree,
			source_count = EXCLUDED.source_count,
			has_conflict = EXCLUDED.has_conflict
	`, a.UID, a.CaseUID, a.Text, claimUIDs, a.Value.Belief, a.Value.Plausibility,
		a.Value.Uncertainty, a.Value.ConflictDegree, a.Value.SourceCount, a.Value.HasConflict, a.Timestamp)
	if err != nil {
		return contracts.Assertion{}, fmt.Errorf("upsert assertion: %w", err)
	}
	return a, nil
}

func (s *PostgresAssertionStore) ListByCase(ctx context.Context, caseUID string) ([]contracts.Assertion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT assertion_uid, case_uid, text, source_claim_uids, belief, plausibility,
			uncertainty, conflict_degree, source_count, has_conflict, "timestamp", created_at
		FROM assertions WHERE case_uid = $1 ORDER BY "timestamp"
	`, caseUID)
	if err != nil {
		return nil, fmt.Errorf("list assertions: %w", err)
	}
	defer rows.Close()
	return scanAssertions(rows)
}

func (s *PostgresAssertionStore) ListBySourceClaim(ctx context.Context, claimUID string) ([]contracts.Assertion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT assertion_uid, case_uid, text, source_claim_uids, belief, plausibility,
			uncertainty, conflict_degree, source_count, has_conflict, "timestamp", created_at
		FROM assertions WHERE source_claim_uids @> to_jsonb($1::text)
	`, claimUID)
	if err != nil {
		return nil, fmt.Errorf("list assertions by source claim: %w", err)
	}
	defer rows.Close()
	return scanAssertions(rows)
}

func scanAssertions(rows *sql.Rows) ([]contracts.Assertion, error) {
	var out []contracts.Assertion
	for rows.Next() {
		var a contracts.Assertion
		var claimUIDsRaw []byte
		if err := rows.Scan(&a.UID, &a.CaseUID, &a.Text, &claimUIDsRaw, &a.Value.Belief, &a.Value.Plausibility,
			&a.Value.Uncertainty, &a.Value.ConflictDegree, &a.Value.SourceCount, &a.Value.HasConflict, &a.Timestamp, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan assertion: %w", err)
		}
		if err := json.Unmarshal(claimUIDsRaw, &a.SourceClaimUIDs); err != nil {
			return nil, fmt.Errorf("unmarshal source claim uids: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
