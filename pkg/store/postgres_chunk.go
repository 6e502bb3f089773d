package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

// PostgresChunkStore implements ChunkStore using PostgreSQL.
type PostgresChunkStore struct{ db *sql.DB }

func NewPostgresChunkStore(db *sql.DB) *PostgresChunkStore { return &PostgresChunkStore{db: db} }

func (s *PostgresChunkStore) Create(ctx context.Context, c contracts.Chunk) (contracts.Chunk, error) {
	anchors, err := json.Marshal(c.Anchors)
	if err != nil {
		return contracts.Chunk{}, fmt.Errorf("marshal anchors: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chunks (chunk_uid, version_uid, case_uid, ordinal, text, anchors, anchor_healthy, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
	`, c.UID, c.VersionUID, c.CaseUID, c.Ordinal, c.Text, anchors, c.AnchorHealthy)
	if err != nil {
		return contracts.Chunk{}, fmt.Errorf("create chunk: %w", err)
	}
	return c, nil
}

func (s *PostgresChunkStore) ListByVersion(ctx context.Context, versionUID string) ([]contracts.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_uid, version_uid, case_uid, ordinal, text, anchors, anchor_healthy, created_at
		FROM chunks WHERE version_uid = $1 ORDER BY ordinal
	`, versionUID)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	var out []contracts.Chunk
	for rows.Next() {
		var c contracts.Chunk
		var anchorsRaw []byte
		if err := rows.Scan(&c.UID, &c.VersionUID, &c.CaseUID, &c.Ordinal, &c.Text, &anchorsRaw, &c.AnchorHealthy, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if err := json.Unmarshal(anchorsRaw, &c.Anchors); err != nil {
			return nil, fmt.Errorf("unmarshal anchors: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresChunkStore) MarkAnchorHealth(ctx context.Context, uid string, healthy bool) error {
	_, err := s.db.ExecContext(ctx, `UPDATE chunks SET anchor_healthy = $1 WHERE chunk_uid = $2`, healthy, uid)
	if err != nil {
		return fmt.Errorf("mark anchor health: %w", err)
	}
	return nil
}
