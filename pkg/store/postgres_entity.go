package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/aegi-platform/aegi-core/pkg/apperrors"
	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

// PostgresEntityStore implements EntityStore using PostgreSQL. It is the
// relational mirror of the graph store's node set, consulted for
// case-scoped listing where a Cypher traversal isn't needed.
type PostgresEntityStore struct{ db *sql.DB }

func NewPostgresEntityStore(db *sql.DB) *PostgresEntityStore { return &PostgresEntityStore{db: db} }

func (s *PostgresEntityStore) Upsert(ctx context.Context, e contracts.Entity) (contracts.Entity, error) {
	props, err := json.Marshal(e.Props)
	if err != nil {
		return contracts.Entity{}, fmt.Errorf("marshal entity properties: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entities (entity_uid, case_uid, type, name, properties)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (entity_uid) DO UPDATE SET name = EXCLUDED.name, properties = EXCLUDED.properties
	`, e.UID, e.CaseUID, e.Type, e.Name, props)
	if err != nil {
		return contracts.Entity{}, fmt.Errorf("upsert entity: %w", err)
	}
	return e, nil
}

func (s *PostgresEntityStore) Get(ctx context.Context, uid string) (contracts.Entity, error) {
	row := s.db.QueryRowContext(ctx, `SELECT entity_uid, case_uid, type, name, properties FROM entities WHERE entity_uid = $1`, uid)
	return scanEntity(row)
}

func (s *PostgresEntityStore) ListByCase(ctx context.Context, caseUID string) ([]contracts.Entity, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT entity_uid, case_uid, type, name, properties FROM entities WHERE case_uid = $1`, caseUID)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	defer rows.Close()

	var out []contracts.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEntity(row scannableRow) (contracts.Entity, error) {
	var e contracts.Entity
	var propsRaw []byte
	if err := row.Scan(&e.UID, &e.CaseUID, &e.Type, &e.Name, &propsRaw); err != nil {
		if err == sql.ErrNoRows {
			return contracts.Entity{}, apperrors.ErrNotFound
		}
		return contracts.Entity{}, fmt.Errorf("scan entity: %w", err)
	}
	if err := json.Unmarshal(propsRaw, &e.Props); err != nil {
		return contracts.Entity{}, fmt.Errorf("unmarshal entity properties: %w", err)
	}
	return e, nil
}

func (s *PostgresEntityStore) CreateIdentityAction(ctx context.Context, a contracts.EntityIdentityAction) (contracts.EntityIdentityAction, error) {
	entityUIDs, err := json.Marshal(a.EntityUIDs)
	if err != nil {
		return contracts.EntityIdentityAction{}, fmt.Errorf("marshal entity uids: %w", err)
	}
	if a.Status == "" {
		a.Status = contracts.IdentityActionPending
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entity_identity_actions (action_uid, case_uid, type, entity_uids, confidence, uncertain, status, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
	`, a.UID, a.CaseUID, a.Type, entityUIDs, a.Confidence, a.Uncertain, string(a.Status), a.Reason)
	if err != nil {
		return contracts.EntityIdentityAction{}, fmt.Errorf("create identity action: %w", err)
	}
	return a, nil
}

func (s *PostgresEntityStore) ListPendingIdentityActions(ctx context.Context, caseUID string) ([]contracts.EntityIdentityAction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT action_uid, case_uid, type, entity_uids, confidence, uncertain, status, reason, created_at
		FROM entity_identity_actions WHERE case_uid = $1 AND status = 'pending' ORDER BY created_at
	`, caseUID)
	if err != nil {
		return nil, fmt.Errorf("list pending identity actions: %w", err)
	}
	defer rows.Close()

	var out []contracts.EntityIdentityAction
	for rows.Next() {
		var a contracts.EntityIdentityAction
		var entityUIDsRaw []byte
		var status string
		if err := rows.Scan(&a.UID, &a.CaseUID, &a.Type, &entityUIDsRaw, &a.Confidence, &a.Uncertain, &status, &a.Reason, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan identity action: %w", err)
		}
		if err := json.Unmarshal(entityUIDsRaw, &a.EntityUIDs); err != nil {
			return nil, fmt.Errorf("unmarshal entity uids: %w", err)
		}
		a.Status = contracts.EntityIdentityActionStatus(status)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresEntityStore) ResolveIdentityAction(ctx context.Context, uid string, status contracts.EntityIdentityActionStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE entity_identity_actions SET status = $1 WHERE action_uid = $2`, string(status), uid)
	if err != nil {
		return fmt.Errorf("resolve identity action: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve identity action rows affected: %w", err)
	}
	if n == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
