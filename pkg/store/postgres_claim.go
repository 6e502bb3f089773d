package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/aegi-platform/aegi-core/pkg/apperrors"
	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

// PostgresClaimStore implements ClaimStore using PostgreSQL.
type PostgresClaimStore struct{ db *sql.DB }

func NewPostgresClaimStore(db *sql.DB) *PostgresClaimStore { return &PostgresClaimStore{db: db} }

func (s *PostgresClaimStore) Create(ctx context.Context, c contracts.SourceClaim) (contracts.SourceClaim, error) {
	if len(c.Selectors) == 0 {
		return contracts.SourceClaim{}, apperrors.NewValidationError("selectors", "source claims must carry at least one selector")
	}
	selectors, err := json.Marshal(c.Selectors)
	if err != nil {
		return contracts.SourceClaim{}, fmt.Errorf("marshal selectors: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO source_claims (
			claim_uid, case_uid, chunk_uid, text, selectors, modality, language,
			translation, attributed_to, confidence, source_credibility, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
	`, c.UID, c.CaseUID, c.ChunkUID, c.Text, selectors, c.Modality, c.Language,
		c.Translation, c.AttributedTo, c.Confidence, c.SourceCredibility)
	if err != nil {
		return contracts.SourceClaim{}, fmt.Errorf("create source claim: %w", err)
	}
	return s.Get(ctx, c.UID)
}

func (s *PostgresClaimStore) Get(ctx context.Context, uid string) (contracts.SourceClaim, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT claim_uid, case_uid, chunk_uid, text, selectors, modality, language,
			translation, attributed_to, confidence, source_credibility, created_at
		FROM source_claims WHERE claim_uid = $1
	`, uid)
	return scanClaim(row)
}

func (s *PostgresClaimStore) ListByCase(ctx context.Context, caseUID string, limit int) ([]contracts.SourceClaim, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT claim_uid, case_uid, chunk_uid, text, selectors, modality, language,
			translation, attributed_to, confidence, source_credibility, created_at
		FROM source_claims WHERE case_uid = $1 ORDER BY created_at DESC LIMIT $2
	`, caseUID, limit)
	if err != nil {
		return nil, fmt.Errorf("list source claims: %w", err)
	}
	defer rows.Close()
	return scanClaims(rows)
}

func (s *PostgresClaimStore) SearchFullText(ctx context.Context, caseUID, query string, limit int) ([]contracts.SourceClaim, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT claim_uid, case_uid, chunk_uid, text, selectors, modality, language,
			translation, attributed_to, confidence, source_credibility, created_at
		FROM source_claims
		WHERE case_uid = $1 AND to_tsvector('english', text) @@ plainto_tsquery('english', $2)
		ORDER BY created_at DESC LIMIT $3
	`, caseUID, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search source claims: %w", err)
	}
	defer rows.Close()
	return scanClaims(rows)
}

type scannableRow interface {
	Scan(dest ...any) error
}

func scanClaim(row scannableRow) (contracts.SourceClaim, error) {
	var c contracts.SourceClaim
	var selectorsRaw []byte
	if err := row.Scan(&c.UID, &c.CaseUID, &c.ChunkUID, &c.Text, &selectorsRaw, &c.Modality,
		&c.Language, &c.Translation, &c.AttributedTo, &c.Confidence, &c.SourceCredibility, &c.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return contracts.SourceClaim{}, apperrors.ErrNotFound
		}
		return contracts.SourceClaim{}, fmt.Errorf("scan source claim: %w", err)
	}
	if err := json.Unmarshal(selectorsRaw, &c.Selectors); err != nil {
		return contracts.SourceClaim{}, fmt.Errorf("unmarshal selectors: %w", err)
	}
	return c, nil
}

func scanClaims(rows *sql.Rows) ([]contracts.SourceClaim, error) {
	var out []contracts.SourceClaim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
