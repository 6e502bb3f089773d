package api

import (
	"context"
	"time"

	"github.com/aegi-platform/aegi-core/pkg/apperrors"
	"github.com/aegi-platform/aegi-core/pkg/contracts"
	"github.com/aegi-platform/aegi-core/pkg/pipeline"
)

// newStageContext builds a StageContext against every dependency the
// server has been wired with, for an on-demand pipeline run triggered
// by an API call rather than a scheduled or event-driven one.
func (s *Server) newStageContext(caseUID, traceID string, budget contracts.BudgetContext) *pipeline.StageContext {
	return &pipeline.StageContext{
		CaseUID:     caseUID,
		RunID:       contracts.MintUID("run"),
		TraceID:     traceID,
		Budget:      budget,
		Stores:      s.store,
		Graph:       s.graph,
		Vectors:     s.vectors,
		OntologyReg: s.ontologyReg,
		LLM:         s.llm,
		Embedder:    s.embedder,
		ACH:         s.ach,
		Masker:      s.masker,
		Bus:         s.bus,
	}
}

// runPipeline drives the full 13-stage DAG for caseUID and returns the
// populated StageContext. Used by handlers that need a fresh analytical
// pass rather than a read of already-persisted state.
func (s *Server) runPipeline(ctx context.Context, caseUID, traceID string) (*pipeline.StageContext, []pipeline.StageResult, error) {
	if s.orchestrator == nil {
		return nil, nil, apperrors.ErrInternal
	}
	budget := contracts.BudgetContext{DeadlineUnixMS: time.Now().Add(5 * time.Minute).UnixMilli(), MaxTokens: 8000}
	sc := s.newStageContext(caseUID, traceID, budget)
	results := s.orchestrator.Run(ctx, sc)
	return sc, results, nil
}
