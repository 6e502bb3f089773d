package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aegi-platform/aegi-core/pkg/apperrors"
	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

// PostgresCaseStore implements CaseStore using PostgreSQL.
type PostgresCaseStore struct{ db *sql.DB }

func NewPostgresCaseStore(db *sql.DB) *PostgresCaseStore { return &PostgresCaseStore{db: db} }

func (s *PostgresCaseStore) Create(ctx context.Context, c contracts.Case) (contracts.Case, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cases (case_uid, name, created_at) VALUES ($1, $2, now())
		ON CONFLICT (case_uid) DO NOTHING
	`, c.UID, c.Name)
	if err != nil {
		return contracts.Case{}, fmt.Errorf("create case: %w", err)
	}
	return s.Get(ctx, c.UID)
}

func (s *PostgresCaseStore) Get(ctx context.Context, uid string) (contracts.Case, error) {
	row := s.db.QueryRowContext(ctx, `SELECT case_uid, name, created_at FROM cases WHERE case_uid = $1`, uid)
	var c contracts.Case
	if err := row.Scan(&c.UID, &c.Name, &c.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return contracts.Case{}, apperrors.ErrNotFound
		}
		return contracts.Case{}, fmt.Errorf("get case: %w", err)
	}
	return c, nil
}
