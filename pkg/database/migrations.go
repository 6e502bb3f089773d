package database

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateGINIndexes creates full-text search GIN indexes for PostgreSQL.
// These enable efficient full-text search over claim and evidence text,
// which the plain migration files don't express well as declarative SQL
// shared across dialects.
func CreateGINIndexes(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_source_claims_text_gin
		ON source_claims USING gin(to_tsvector('english', text))`)
	if err != nil {
		return fmt.Errorf("failed to create source_claims text GIN index: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_assertions_text_gin
		ON assertions USING gin(to_tsvector('english', text))`)
	if err != nil {
		return fmt.Errorf("failed to create assertions text GIN index: %w", err)
	}

	return nil
}
