package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

// PostgresActionStore implements ActionStore using PostgreSQL.
type PostgresActionStore struct{ db *sql.DB }

func NewPostgresActionStore(db *sql.DB) *PostgresActionStore { return &PostgresActionStore{db: db} }

func (s *PostgresActionStore) RecordAction(ctx context.Context, a contracts.Action) error {
	inputs, err := json.Marshal(a.Inputs)
	if err != nil {
		return fmt.Errorf("marshal action inputs: %w", err)
	}
	outputs, err := json.Marshal(a.Outputs)
	if err != nil {
		return fmt.Errorf("marshal action outputs: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO actions (action_uid, case_uid, trace_id, span_id, kind, inputs, outputs, rationale, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
	`, a.UID, a.CaseUID, a.TraceID, a.SpanID, a.Kind, inputs, outputs, a.Rationale)
	if err != nil {
		return fmt.Errorf("record action: %w", err)
	}
	return nil
}

func (s *PostgresActionStore) RecordToolTrace(ctx context.Context, t contracts.ToolTrace) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tool_traces (trace_uid, trace_id, capability, request, response, error, policy_decision, status, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
	`, t.UID, t.TraceID, t.Capability, t.Request, t.Response, t.Error, t.PolicyDecision, t.Status, t.DurationMS)
	if err != nil {
		return fmt.Errorf("record tool trace: %w", err)
	}
	return nil
}

func (s *PostgresActionStore) ListActionsByCase(ctx context.Context, caseUID string, limit int) ([]contracts.Action, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT action_uid, case_uid, trace_id, span_id, kind, inputs, outputs, rationale, created_at
		FROM actions WHERE case_uid = $1 ORDER BY created_at DESC LIMIT $2
	`, caseUID, limit)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()

	var out []contracts.Action
	for rows.Next() {
		var a contracts.Action
		var inputsRaw, outputsRaw []byte
		if err := rows.Scan(&a.UID, &a.CaseUID, &a.TraceID, &a.SpanID, &a.Kind, &inputsRaw, &outputsRaw, &a.Rationale, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		if err := json.Unmarshal(inputsRaw, &a.Inputs); err != nil {
			return nil, fmt.Errorf("unmarshal action inputs: %w", err)
		}
		if err := json.Unmarshal(outputsRaw, &a.Outputs); err != nil {
			return nil, fmt.Errorf("unmarshal action outputs: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresActionStore) GetByTraceID(ctx context.Context, traceID string) (contracts.Action, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT action_uid, case_uid, trace_id, span_id, kind, inputs, outputs, rationale, created_at
		FROM actions WHERE trace_id = $1 ORDER BY created_at DESC LIMIT 1
	`, traceID)

	var a contracts.Action
	var inputsRaw, outputsRaw []byte
	if err := row.Scan(&a.UID, &a.CaseUID, &a.TraceID, &a.SpanID, &a.Kind, &inputsRaw, &outputsRaw, &a.Rationale, &a.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return contracts.Action{}, fmt.Errorf("get action by trace %s: not found", traceID)
		}
		return contracts.Action{}, fmt.Errorf("get action by trace: %w", err)
	}
	if err := json.Unmarshal(inputsRaw, &a.Inputs); err != nil {
		return contracts.Action{}, fmt.Errorf("unmarshal action inputs: %w", err)
	}
	if err := json.Unmarshal(outputsRaw, &a.Outputs); err != nil {
		return contracts.Action{}, fmt.Errorf("unmarshal action outputs: %w", err)
	}
	return a, nil
}

func (s *PostgresActionStore) PurgeOlderThan(ctx context.Context, before contracts.RetentionCutoff) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM actions WHERE created_at < $1`, before.Before)
	if err != nil {
		return 0, fmt.Errorf("purge actions: %w", err)
	}
	return res.RowsAffected()
}
