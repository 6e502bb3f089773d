package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
	"github.com/aegi-platform/aegi-core/pkg/store"
	"github.com/aegi-platform/aegi-core/pkg/vectorstore"
)

const actionKindChatAnswer = "chat.answer"

// Masker redacts PII/credential-shaped text from a synthesized answer
// before it is persisted or returned. Satisfied by *masking.Service.
type Masker interface {
	MaskText(content string) string
}

// Service answers case-scoped questions, grounding every factual claim
// in retrieved source claims and persisting the full trace for replay.
type Service struct {
	Claims   store.ClaimStore
	Actions  store.ActionStore
	Embedder Embedder
	Vectors  *vectorstore.Store
	LLM      StructuredInvoker
	Masker   Masker
	Logger   *slog.Logger
}

// NewService constructs a Service, defaulting Logger to slog.Default.
func NewService(claims store.ClaimStore, actions store.ActionStore, embedder Embedder, vectors *vectorstore.Store, llm StructuredInvoker) *Service {
	return &Service{
		Claims: claims, Actions: actions, Embedder: embedder, Vectors: vectors, LLM: llm,
		Logger: slog.Default().With("component", "chat"),
	}
}

// Ask answers question against caseUID's claims, persists the full
// AnswerV1 to the action log keyed by traceID, and returns it.
func (s *Service) Ask(ctx context.Context, caseUID, question, traceID string, budget contracts.BudgetContext) (contracts.AnswerV1, error) {
	if traceID == "" {
		traceID = uuid.NewString()
	}

	claims, err := s.Claims.ListByCase(ctx, caseUID, 500)
	if err != nil {
		return contracts.AnswerV1{}, fmt.Errorf("chat ask: list claims: %w", err)
	}

	relevant := retrieve(ctx, s.Embedder, vectorSearcher(s.Vectors), claims, question, budget, s.Logger)
	answer := synthesize(ctx, s.LLM, caseUID, question, traceID, relevant, budget)

	if s.Masker != nil {
		answer.AnswerText = s.Masker.MaskText(answer.AnswerText)
	}

	if err := s.persist(ctx, answer); err != nil {
		s.Logger.Warn("chat ask: failed to persist trace", "trace_id", traceID, "error", err)
	}
	return answer, nil
}

// Replay returns the previously computed answer for traceID, as
// recorded by a prior Ask call.
func (s *Service) Replay(ctx context.Context, traceID string) (contracts.AnswerV1, error) {
	action, err := s.Actions.GetByTraceID(ctx, traceID)
	if err != nil {
		return contracts.AnswerV1{}, fmt.Errorf("chat replay: %w", err)
	}
	raw, ok := action.Outputs["answer_json"]
	if !ok {
		return contracts.AnswerV1{}, fmt.Errorf("chat replay: trace %s has no recorded answer", traceID)
	}
	var answer contracts.AnswerV1
	if err := json.Unmarshal([]byte(raw), &answer); err != nil {
		return contracts.AnswerV1{}, fmt.Errorf("chat replay: unmarshal answer: %w", err)
	}
	return answer, nil
}

func (s *Service) persist(ctx context.Context, answer contracts.AnswerV1) error {
	raw, err := json.Marshal(answer)
	if err != nil {
		return fmt.Errorf("marshal answer: %w", err)
	}
	return s.Actions.RecordAction(ctx, contracts.Action{
		UID: uuid.NewString(), CaseUID: answer.CaseUID, TraceID: answer.TraceID,
		Kind: actionKindChatAnswer, Inputs: map[string]string{"question": answer.Question},
		Outputs: map[string]string{"answer_json": string(raw)}, CreatedAt: answer.CreatedAt,
	})
}

// vectorSearcher adapts a possibly-nil *vectorstore.Store to the
// VectorSearcher interface without panicking on a nil receiver call.
func vectorSearcher(v *vectorstore.Store) VectorSearcher {
	if v == nil {
		return nil
	}
	return v
}
