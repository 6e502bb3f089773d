// Package memory records case scenarios into durable + vector storage
// for later recall, and tracks their real-world outcomes so pattern
// statistics can be aggregated over time.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
	"github.com/aegi-platform/aegi-core/pkg/llmclient"
	"github.com/aegi-platform/aegi-core/pkg/store"
	"github.com/aegi-platform/aegi-core/pkg/vectorstore"
)

// Embedder is the narrow LLM slice Record needs to embed a scenario
// string.
type Embedder interface {
	Embed(ctx context.Context, budget contracts.BudgetContext, texts []string) (llmclient.EmbedResult, error)
}

// StructuredInvoker is the narrow LLM slice used to produce a scenario
// summary and conclusion from raw case material.
type StructuredInvoker interface {
	InvokeStructured(ctx context.Context, req contracts.LLMInvocationRequest, prompt string, out any) (contracts.ToolTrace, error)
}

// Service wires durable and vector storage for analysis memory records.
type Service struct {
	Records  store.MemoryStore
	Vectors  *vectorstore.Store
	Embedder Embedder
	LLM      StructuredInvoker
	Logger   *slog.Logger
}

// NewService constructs a Service, defaulting Logger to slog.Default.
func NewService(records store.MemoryStore, vectors *vectorstore.Store, embedder Embedder, llm StructuredInvoker) *Service {
	return &Service{
		Records: records, Vectors: vectors, Embedder: embedder, LLM: llm,
		Logger: slog.Default().With("component", "memory"),
	}
}

type summaryResponse struct {
	Conclusion  string   `json:"conclusion"`
	PatternTags []string `json:"pattern_tags"`
	Confidence  float64  `json:"confidence"`
}

// Record summarizes a case's current state via the LLM, embeds the
// scenario text, persists the record relationally and in the vector
// store, and returns the saved row. LLM or embedding failure degrades
// to a record with an empty conclusion/tags rather than failing the
// whole pipeline stage.
func (s *Service) Record(ctx context.Context, caseUID, scenario string, traceID string, budget contracts.BudgetContext) (contracts.AnalysisMemoryRecord, error) {
	summary := s.summarize(ctx, scenario, traceID, budget)

	record := contracts.AnalysisMemoryRecord{
		UID: uuid.NewString(), CaseUID: caseUID, Scenario: scenario,
		PatternTags: summary.PatternTags, Conclusion: summary.Conclusion,
		Confidence: summary.Confidence, CreatedAt: time.Now().UTC(),
	}

	saved, err := s.Records.Create(ctx, record)
	if err != nil {
		return contracts.AnalysisMemoryRecord{}, fmt.Errorf("record analysis memory: %w", err)
	}

	if s.Embedder != nil && s.Vectors != nil {
		embedded, embErr := s.Embedder.Embed(ctx, budget, []string{scenario})
		if embErr != nil || embedded.Degraded != nil || len(embedded.Vectors) == 0 {
			s.Logger.Warn("memory record: embedding unavailable, skipping vector index", "case_uid", caseUID)
		} else {
			saved.Embedding = embedded.Vectors[0]
			if upErr := s.Vectors.Upsert(ctx, saved.UID, saved.Embedding, scenario, map[string]string{
				"case_uid": caseUID, "conclusion": saved.Conclusion,
			}); upErr != nil {
				s.Logger.Warn("memory record: vector upsert failed", "error", upErr)
			}
		}
	}
	return saved, nil
}

func (s *Service) summarize(ctx context.Context, scenario, traceID string, budget contracts.BudgetContext) summaryResponse {
	if s.LLM == nil {
		return summaryResponse{}
	}
	var resp summaryResponse
	prompt := "Summarize this case scenario into a one-sentence conclusion, a list of short pattern_tags, and a confidence in [0,1].\n\n" + scenario
	_, err := s.LLM.InvokeStructured(ctx, contracts.LLMInvocationRequest{TraceID: traceID, Budget: budget}, prompt, &resp)
	if err != nil {
		s.Logger.Warn("memory summarize: llm invocation failed", "error", err)
		return summaryResponse{}
	}
	return resp
}

// Recall searches the vector store for scenarios similar to the given
// query string, falling back to an empty result (never an error) when
// embedding is unavailable.
func (s *Service) Recall(ctx context.Context, scenario string, limit int, budget contracts.BudgetContext) ([]vectorstore.Result, error) {
	if s.Embedder == nil || s.Vectors == nil {
		return []vectorstore.Result{}, nil
	}
	embedded, err := s.Embedder.Embed(ctx, budget, []string{scenario})
	if err != nil || embedded.Degraded != nil || len(embedded.Vectors) == 0 {
		s.Logger.Warn("memory recall: embedding unavailable", "error", err)
		return []vectorstore.Result{}, nil
	}
	return s.Vectors.Search(ctx, embedded.Vectors[0], limit, 0)
}

// UpdateOutcome attaches a real-world accuracy score and lessons learned
// to a previously recorded scenario, refining the existing row in place
// rather than inserting a duplicate.
func (s *Service) UpdateOutcome(ctx context.Context, caseUID, memoryUID string, outcome float64, lessons string) (contracts.AnalysisMemoryRecord, error) {
	updated, err := s.Records.UpdateOutcome(ctx, memoryUID, outcome, lessons)
	if err != nil {
		return contracts.AnalysisMemoryRecord{}, fmt.Errorf("update outcome: %w", err)
	}
	if updated.CaseUID != caseUID {
		return contracts.AnalysisMemoryRecord{}, fmt.Errorf("update outcome: memory record %s does not belong to case %s", memoryUID, caseUID)
	}
	return updated, nil
}

// PatternStats aggregates recorded outcomes by pattern tag across every
// memory record the store holds for a case.
func PatternStats(records []contracts.AnalysisMemoryRecord) []contracts.PatternStats {
	type acc struct {
		count int
		sum   float64
	}
	byTag := make(map[string]*acc)
	var order []string
	for _, r := range records {
		if r.Outcome == nil {
			continue
		}
		for _, tag := range r.PatternTags {
			a, ok := byTag[tag]
			if !ok {
				a = &acc{}
				byTag[tag] = a
				order = append(order, tag)
			}
			a.count++
			a.sum += *r.Outcome
		}
	}
	out := make([]contracts.PatternStats, 0, len(order))
	for _, tag := range order {
		a := byTag[tag]
		out = append(out, contracts.PatternStats{Tag: tag, Count: a.count, AvgAccuracy: a.sum / float64(a.count)})
	}
	return out
}
