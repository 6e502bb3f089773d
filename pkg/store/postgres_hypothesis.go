package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

// PostgresHypothesisStore implements HypothesisStore using PostgreSQL.
type PostgresHypothesisStore struct{ db *sql.DB }

func NewPostgresHypothesisStore(db *sql.DB) *PostgresHypothesisStore { return &PostgresHypothesisStore{db: db} }

func (s *PostgresHypothesisStore) Create(ctx context.Context, h contracts.Hypothesis) (contracts.Hypothesis, error) {
	supporting, err := json.Marshal(h.SupportingAssertionUIDs)
	if err != nil {
		return contracts.Hypothesis{}, fmt.Errorf("marshal supporting assertions: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO hypotheses (hypothesis_uid, case_uid, label, prior, posterior, supporting_assertion_uids, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
	`, h.UID, h.CaseUID, h.Label, h.Prior, h.Posterior, supporting)
	if err != nil {
		return contracts.Hypothesis{}, fmt.Errorf("create hypothesis: %w", err)
	}
	return h, nil
}

func (s *PostgresHypothesisStore) ListByCase(ctx context.Context, caseUID string) ([]contracts.Hypothesis, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT hypothesis_uid, case_uid, label, prior, posterior, supporting_assertion_uids, created_at
		FROM hypotheses WHERE case_uid = $1 ORDER BY created_at
	`, caseUID)
	if err != nil {
		return nil, fmt.Errorf("list hypotheses: %w", err)
	}
	defer rows.Close()

	var out []contracts.Hypothesis
	for rows.Next() {
		var h contracts.Hypothesis
		var supportingRaw []byte
		if err := rows.Scan(&h.UID, &h.CaseUID, &h.Label, &h.Prior, &h.Posterior, &supportingRaw, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan hypothesis: %w", err)
		}
		if err := json.Unmarshal(supportingRaw, &h.SupportingAssertionUIDs); err != nil {
			return nil, fmt.Errorf("unmarshal supporting assertions: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// UpdatePosteriors applies a full posterior re-normalization in one
// transaction: every hypothesis in the case must be addressed together so
// the sum-to-one invariant never observes a partial write.
func (s *PostgresHypothesisStore) UpdatePosteriors(ctx context.Context, caseUID string, posteriors map[string]float64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin posterior update: %w", err)
	}
	defer tx.Rollback()

	for uid, posterior := range posteriors {
		if _, err := tx.ExecContext(ctx, `
			UPDATE hypotheses SET posterior = $1 WHERE hypothesis_uid = $2 AND case_uid = $3
		`, posterior, uid, caseUID); err != nil {
			return fmt.Errorf("update posterior for %s: %w", uid, err)
		}
	}
	return tx.Commit()
}
