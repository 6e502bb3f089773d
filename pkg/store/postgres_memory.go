package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

// PostgresMemoryStore implements MemoryStore using PostgreSQL. Embeddings
// are stored and queried via the vector store (pkg/vectorstore), not here;
// this table is the relational record of scenario/conclusion/outcome.
type PostgresMemoryStore struct{ db *sql.DB }

func NewPostgresMemoryStore(db *sql.DB) *PostgresMemoryStore { return &PostgresMemoryStore{db: db} }

func (s *PostgresMemoryStore) Create(ctx context.Context, m contracts.AnalysisMemoryRecord) (contracts.AnalysisMemoryRecord, error) {
	tags, err := json.Marshal(m.PatternTags)
	if err != nil {
		return contracts.AnalysisMemoryRecord{}, fmt.Errorf("marshal pattern tags: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO analysis_memory_records (memory_uid, case_uid, scenario, pattern_tags, conclusion, confidence, outcome, lessons, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
	`, m.UID, m.CaseUID, m.Scenario, tags, m.Conclusion, m.Confidence, m.Outcome, m.Lessons)
	if err != nil {
		return contracts.AnalysisMemoryRecord{}, fmt.Errorf("create analysis memory record: %w", err)
	}
	return m, nil
}

func (s *PostgresMemoryStore) UpdateOutcome(ctx context.Context, memoryUID string, outcome float64, lessons string) (contracts.AnalysisMemoryRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE analysis_memory_records SET outcome = $2, lessons = $3
		WHERE memory_uid = $1
		RETURNING memory_uid, case_uid, scenario, pattern_tags, conclusion, confidence, outcome, lessons, created_at
	`, memoryUID, outcome, lessons)

	var m contracts.AnalysisMemoryRecord
	var tagsRaw []byte
	if err := row.Scan(&m.UID, &m.CaseUID, &m.Scenario, &tagsRaw, &m.Conclusion, &m.Confidence, &m.Outcome, &m.Lessons, &m.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return contracts.AnalysisMemoryRecord{}, fmt.Errorf("update outcome: memory record %s not found", memoryUID)
		}
		return contracts.AnalysisMemoryRecord{}, fmt.Errorf("update outcome: %w", err)
	}
	if err := json.Unmarshal(tagsRaw, &m.PatternTags); err != nil {
		return contracts.AnalysisMemoryRecord{}, fmt.Errorf("unmarshal pattern tags: %w", err)
	}
	return m, nil
}

func (s *PostgresMemoryStore) ListByCase(ctx context.Context, caseUID string) ([]contracts.AnalysisMemoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT memory_uid, case_uid, scenario, pattern_tags, conclusion, confidence, outcome, lessons, created_at
		FROM analysis_memory_records WHERE case_uid = $1 ORDER BY created_at DESC
	`, caseUID)
	if err != nil {
		return nil, fmt.Errorf("list analysis memory records: %w", err)
	}
	defer rows.Close()

	var out []contracts.AnalysisMemoryRecord
	for rows.Next() {
		var m contracts.AnalysisMemoryRecord
		var tagsRaw []byte
		if err := rows.Scan(&m.UID, &m.CaseUID, &m.Scenario, &tagsRaw, &m.Conclusion, &m.Confidence, &m.Outcome, &m.Lessons, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan analysis memory record: %w", err)
		}
		if err := json.Unmarshal(tagsRaw, &m.PatternTags); err != nil {
			return nil, fmt.Errorf("unmarshal pattern tags: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
