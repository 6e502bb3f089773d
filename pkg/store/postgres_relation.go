package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

// PostgresRelationFactStore implements RelationFactStore using PostgreSQL.
// It mirrors the graph store's typed edges for relational queries and
// audit that don't warrant a Cypher round trip.
type PostgresRelationFactStore struct{ db *sql.DB }

func NewPostgresRelationFactStore(db *sql.DB) *PostgresRelationFactStore {
	return &PostgresRelationFactStore{db: db}
}

func (s *PostgresRelationFactStore) Create(ctx context.Context, r contracts.RelationFact) (contracts.RelationFact, error) {
	claims, err := json.Marshal(r.SupportingClaims)
	if err != nil {
		return contracts.RelationFact{}, fmt.Errorf("marshal supporting claims: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO relation_facts (
			relation_uid, case_uid, type, source_entity_uid, target_entity_uid,
			supporting_claims, evidence_strength, has_conflict, valid_from, valid_until, ontology_version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, r.UID, r.CaseUID, r.Type, r.SourceEntityUID, r.TargetEntityUID,
		claims, r.EvidenceStrength, r.HasConflict, r.ValidFrom, r.ValidUntil, r.OntologyVersion)
	if err != nil {
		return contracts.RelationFact{}, fmt.Errorf("create relation fact: %w", err)
	}
	return r, nil
}

func (s *PostgresRelationFactStore) ListByCase(ctx context.Context, caseUID string) ([]contracts.RelationFact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT relation_uid, case_uid, type, source_entity_uid, target_entity_uid,
			supporting_claims, evidence_strength, has_conflict, valid_from, valid_until, ontology_version
		FROM relation_facts WHERE case_uid = $1
	`, caseUID)
	if err != nil {
		return nil, fmt.Errorf("list relation facts: %w", err)
	}
	defer rows.Close()

	var out []contracts.RelationFact
	for rows.Next() {
		var r contracts.RelationFact
		var claimsRaw []byte
		if err := rows.Scan(&r.UID, &r.CaseUID, &r.Type, &r.SourceEntityUID, &r.TargetEntityUID,
			&claimsRaw, &r.EvidenceStrength, &r.HasConflict, &r.ValidFrom, &r.ValidUntil, &r.OntologyVersion); err != nil {
			return nil, fmt.Errorf("scan relation fact: %w", err)
		}
		if err := json.Unmarshal(claimsRaw, &r.SupportingClaims); err != nil {
			return nil, fmt.Errorf("unmarshal supporting claims: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
