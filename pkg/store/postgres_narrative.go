package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

// PostgresNarrativeStore implements NarrativeStore using PostgreSQL.
type PostgresNarrativeStore struct{ db *sql.DB }

func NewPostgresNarrativeStore(db *sql.DB) *PostgresNarrativeStore { return &PostgresNarrativeStore{db: db} }

func (s *PostgresNarrativeStore) Upsert(ctx context.Context, n contracts.Narrative) (contracts.Narrative, error) {
	claims, err := json.Marshal(n.SourceClaimUIDs)
	if err != nil {
		return contracts.Narrative{}, fmt.Errorf("marshal source claim uids: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO narratives (narrative_uid, case_uid, theme, source_claim_uids, starts_at, ends_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (narrative_uid) DO UPDATE SET
			theme = EXCLUDED.theme, source_claim_uids = EXCLUDED.source_claim_uids,
			starts_at = EXCLUDED.starts_at, ends_at = EXCLUDED.ends_at
	`, n.UID, n.CaseUID, n.Theme, claims, n.StartsAt, n.EndsAt)
	if err != nil {
		return contracts.Narrative{}, fmt.Errorf("upsert narrative: %w", err)
	}
	return n, nil
}

func (s *PostgresNarrativeStore) ListByCase(ctx context.Context, caseUID string) ([]contracts.Narrative, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT narrative_uid, case_uid, theme, source_claim_uids, starts_at, ends_at
		FROM narratives WHERE case_uid = $1 ORDER BY starts_at
	`, caseUID)
	if err != nil {
		return nil, fmt.Errorf("list narratives: %w", err)
	}
	defer rows.Close()

	var out []contracts.Narrative
	for rows.Next() {
		var n contracts.Narrative
		var claimsRaw []byte
		if err := rows.Scan(&n.UID, &n.CaseUID, &n.Theme, &claimsRaw, &n.StartsAt, &n.EndsAt); err != nil {
			return nil, fmt.Errorf("scan narrative: %w", err)
		}
		if err := json.Unmarshal(claimsRaw, &n.SourceClaimUIDs); err != nil {
			return nil, fmt.Errorf("unmarshal source claim uids: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
