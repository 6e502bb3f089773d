package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aegi-platform/aegi-core/pkg/apperrors"
	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

// PostgresEvidenceStore implements EvidenceStore using PostgreSQL.
type PostgresEvidenceStore struct{ db *sql.DB }

func NewPostgresEvidenceStore(db *sql.DB) *PostgresEvidenceStore { return &PostgresEvidenceStore{db: db} }

func (s *PostgresEvidenceStore) Create(ctx context.Context, e contracts.Evidence) (contracts.Evidence, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO evidence (evidence_uid, case_uid, chunk_uid, kind, contains_pii, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
	`, e.UID, e.CaseUID, e.ChunkUID, e.Kind, e.ContainsPII, e.ExpiresAt)
	if err != nil {
		return contracts.Evidence{}, fmt.Errorf("create evidence: %w", err)
	}
	return s.Get(ctx, e.UID)
}

func (s *PostgresEvidenceStore) Get(ctx context.Context, uid string) (contracts.Evidence, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT evidence_uid, case_uid, chunk_uid, kind, contains_pii, expires_at, created_at
		FROM evidence WHERE evidence_uid = $1
	`, uid)
	var e contracts.Evidence
	if err := row.Scan(&e.UID, &e.CaseUID, &e.ChunkUID, &e.Kind, &e.ContainsPII, &e.ExpiresAt, &e.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return contracts.Evidence{}, apperrors.ErrNotFound
		}
		return contracts.Evidence{}, fmt.Errorf("get evidence: %w", err)
	}
	return e, nil
}

func (s *PostgresEvidenceStore) ExpireOlderThan(ctx context.Context, before contracts.RetentionCutoff) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM evidence WHERE expires_at IS NOT NULL AND expires_at < $1
	`, before.Before)
	if err != nil {
		return 0, fmt.Errorf("expire evidence: %w", err)
	}
	return res.RowsAffected()
}
