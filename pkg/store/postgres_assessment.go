package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

// PostgresAssessmentStore implements AssessmentStore using PostgreSQL.
type PostgresAssessmentStore struct{ db *sql.DB }

func NewPostgresAssessmentStore(db *sql.DB) *PostgresAssessmentStore { return &PostgresAssessmentStore{db: db} }

func (s *PostgresAssessmentStore) Upsert(ctx context.Context, a contracts.EvidenceAssessment) (contracts.EvidenceAssessment, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO evidence_assessments (assessment_uid, hypothesis_uid, evidence_uid, relation, strength, likelihood, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (hypothesis_uid, evidence_uid) DO UPDATE SET
			relation = EXCLUDED.relation, strength = EXCLUDED.strength, likelihood = EXCLUDED.likelihood, updated_at = now()
	`, a.UID, a.HypothesisUID, a.EvidenceUID, string(a.Relation), a.Strength, a.Likelihood)
	if err != nil {
		return contracts.EvidenceAssessment{}, fmt.Errorf("upsert evidence assessment: %w", err)
	}
	return a, nil
}

func (s *PostgresAssessmentStore) ListByHypothesis(ctx context.Context, hypothesisUID string) ([]contracts.EvidenceAssessment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT assessment_uid, hypothesis_uid, evidence_uid, relation, strength, likelihood, updated_at
		FROM evidence_assessments WHERE hypothesis_uid = $1
	`, hypothesisUID)
	if err != nil {
		return nil, fmt.Errorf("list evidence assessments: %w", err)
	}
	defer rows.Close()

	var out []contracts.EvidenceAssessment
	for rows.Next() {
		var a contracts.EvidenceAssessment
		var relation string
		if err := rows.Scan(&a.UID, &a.HypothesisUID, &a.EvidenceUID, &relation, &a.Strength, &a.Likelihood, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan evidence assessment: %w", err)
		}
		a.Relation = contracts.EvidenceRelation(relation)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresAssessmentStore) RecordProbabilityUpdate(ctx context.Context, u contracts.ProbabilityUpdate) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO probability_updates (update_uid, case_uid, hypothesis_uid, evidence_uid, prior, posterior, likelihood, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
	`, u.UID, u.CaseUID, u.HypothesisUID, u.EvidenceUID, u.Prior, u.Posterior, u.Likelihood)
	if err != nil {
		return fmt.Errorf("record probability update: %w", err)
	}
	return nil
}

func (s *PostgresAssessmentStore) ListProbabilityUpdates(ctx context.Context, caseUID string) ([]contracts.ProbabilityUpdate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT update_uid, case_uid, hypothesis_uid, evidence_uid, prior, posterior, likelihood, created_at
		FROM probability_updates WHERE case_uid = $1 ORDER BY created_at ASC
	`, caseUID)
	if err != nil {
		return nil, fmt.Errorf("list probability updates: %w", err)
	}
	defer rows.Close()

	var out []contracts.ProbabilityUpdate
	for rows.Next() {
		var u contracts.ProbabilityUpdate
		if err := rows.Scan(&u.UID, &u.CaseUID, &u.HypothesisUID, &u.EvidenceUID, &u.Prior, &u.Posterior, &u.Likelihood, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan probability update: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
