package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

// PostgresArtifactStore implements ArtifactStore using PostgreSQL.
type PostgresArtifactStore struct{ db *sql.DB }

func NewPostgresArtifactStore(db *sql.DB) *PostgresArtifactStore { return &PostgresArtifactStore{db: db} }

func (s *PostgresArtifactStore) UpsertIdentity(ctx context.Context, a contracts.ArtifactIdentity) (contracts.ArtifactIdentity, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO artifact_identities (artifact_uid, case_uid, url, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (artifact_uid) DO UPDATE SET url = EXCLUDED.url
	`, a.UID, a.CaseUID, a.URL)
	if err != nil {
		return contracts.ArtifactIdentity{}, fmt.Errorf("upsert artifact identity: %w", err)
	}
	row := s.db.QueryRowContext(ctx, `SELECT artifact_uid, case_uid, url, created_at FROM artifact_identities WHERE artifact_uid = $1`, a.UID)
	var out contracts.ArtifactIdentity
	if err := row.Scan(&out.UID, &out.CaseUID, &out.URL, &out.CreatedAt); err != nil {
		return contracts.ArtifactIdentity{}, fmt.Errorf("read artifact identity: %w", err)
	}
	return out, nil
}

func (s *PostgresArtifactStore) GetIdentityByURL(ctx context.Context, caseUID, url string) (contracts.ArtifactIdentity, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT artifact_uid, case_uid, url, created_at FROM artifact_identities
		WHERE case_uid = $1 AND url = $2
	`, caseUID, url)
	var out contracts.ArtifactIdentity
	if err := row.Scan(&out.UID, &out.CaseUID, &out.URL, &out.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return contracts.ArtifactIdentity{}, false, nil
		}
		return contracts.ArtifactIdentity{}, false, fmt.Errorf("get artifact identity by url: %w", err)
	}
	return out, true, nil
}

func (s *PostgresArtifactStore) AddVersion(ctx context.Context, v contracts.ArtifactVersion) (contracts.ArtifactVersion, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO artifact_versions (version_uid, artifact_uid, storage_ref, content_type, created_at)
		VALUES ($1, $2, $3, $4, now())
	`, v.UID, v.ArtifactUID, v.StorageRef, v.ContentType)
	if err != nil {
		return contracts.ArtifactVersion{}, fmt.Errorf("add artifact version: %w", err)
	}
	row := s.db.QueryRowContext(ctx, `SELECT version_uid, artifact_uid, storage_ref, content_type, created_at FROM artifact_versions WHERE version_uid = $1`, v.UID)
	var out contracts.ArtifactVersion
	if err := row.Scan(&out.UID, &out.ArtifactUID, &out.StorageRef, &out.ContentType, &out.CreatedAt); err != nil {
		return contracts.ArtifactVersion{}, fmt.Errorf("read artifact version: %w", err)
	}
	return out, nil
}
