// Package claims turns an ingested chunk of source text into
// selector-anchored SourceClaim rows via one structured LLM call per
// chunk.
package claims

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
	"github.com/aegi-platform/aegi-core/pkg/eventbus"
)

// StructuredInvoker is the narrow LLM slice Extract needs.
type StructuredInvoker interface {
	InvokeStructured(ctx context.Context, req contracts.LLMInvocationRequest, prompt string, out any) (contracts.ToolTrace, error)
}

// ActionRecorder is the narrow store slice Extract needs to persist
// its audit trail.
type ActionRecorder interface {
	RecordAction(ctx context.Context, a contracts.Action) error
	RecordToolTrace(ctx context.Context, t contracts.ToolTrace) error
}

// Extractor pulls SourceClaims out of chunk text.
type Extractor struct {
	LLM     StructuredInvoker
	Actions ActionRecorder
	Bus     *eventbus.Bus
}

// NewExtractor constructs an Extractor. bus may be nil, in which case
// extraction proceeds without emitting claim.extracted events.
func NewExtractor(llm StructuredInvoker, actions ActionRecorder, bus *eventbus.Bus) *Extractor {
	return &Extractor{LLM: llm, Actions: actions, Bus: bus}
}

type extractedClaim struct {
	Text         string              `json:"text"`
	Selectors    []contracts.Selector `json:"selectors"`
	Modality     string              `json:"modality"`
	Language     string              `json:"language"`
	Translation  string              `json:"translation"`
	AttributedTo string              `json:"attributed_to"`
	Confidence   float64             `json:"confidence"`
}

type extractionResponse struct {
	Claims []extractedClaim `json:"claims"`
}

// Extract issues one invoke_structured call against chunk's text and
// returns the claims it supports with a non-empty selector set.
// Claims with empty selectors are rejected rather than kept
// unanchored. On LLM failure it returns a DegradedOutput instead of a
// bare error, after writing a failing ToolTrace.
func (e *Extractor) Extract(ctx context.Context, caseUID string, chunk contracts.Chunk, traceID string, budget contracts.BudgetContext) ([]contracts.SourceClaim, *contracts.DegradedOutput, error) {
	if e.LLM == nil {
		return nil, &contracts.DegradedOutput{Reason: contracts.ReasonModelUnavailable, Detail: "no LLM configured"}, nil
	}

	var resp extractionResponse
	started := time.Now()
	trace, err := e.LLM.InvokeStructured(ctx, contracts.LLMInvocationRequest{TraceID: traceID, Budget: budget}, buildExtractionPrompt(chunk), &resp)
	if err != nil {
		if e.Actions != nil {
			e.Actions.RecordToolTrace(ctx, contracts.ToolTrace{
				UID: uuid.NewString(), TraceID: traceID, Capability: "claim_extract",
				Request: chunk.UID, Error: err.Error(), Status: "error",
				DurationMS: time.Since(started).Milliseconds(), CreatedAt: time.Now().UTC(),
			})
		}
		return nil, &contracts.DegradedOutput{Reason: contracts.ReasonModelUnavailable, Detail: err.Error()}, nil
	}
	if e.Actions != nil {
		trace.TraceID = traceID
		e.Actions.RecordToolTrace(ctx, trace)
	}

	out := make([]contracts.SourceClaim, 0, len(resp.Claims))
	for i, c := range resp.Claims {
		if len(c.Selectors) == 0 {
			continue
		}
		claim := contracts.SourceClaim{
			UID: uuid.NewString(), CaseUID: caseUID, ChunkUID: chunk.UID,
			Text: c.Text, Selectors: c.Selectors, Modality: c.Modality,
			Language: c.Language, Translation: c.Translation,
			AttributedTo: c.AttributedTo, Confidence: c.Confidence,
			CreatedAt: time.Now().UTC(),
		}
		out = append(out, claim)
		e.emit(ctx, caseUID, claim, chunk, i)
	}

	if e.Actions != nil {
		e.Actions.RecordAction(ctx, contracts.Action{
			UID: uuid.NewString(), CaseUID: caseUID, TraceID: traceID,
			Kind: "claim_extract", Inputs: map[string]string{"chunk_uid": chunk.UID},
			Outputs:   map[string]string{"claims_extracted": fmt.Sprintf("%d", len(out))},
			CreatedAt: time.Now().UTC(),
		})
	}
	return out, nil, nil
}

func (e *Extractor) emit(ctx context.Context, caseUID string, claim contracts.SourceClaim, chunk contracts.Chunk, i int) {
	if e.Bus == nil {
		return
	}
	e.Bus.Emit(ctx, eventbus.Event{
		EventType:      "claim.extracted",
		SourceEventUID: fmt.Sprintf("claim:%s:%s:%d", caseUID, chunk.UID, i),
		CaseUID:        caseUID,
		Severity:       "low",
		Payload:        claim,
	})
}

func buildExtractionPrompt(chunk contracts.Chunk) string {
	return fmt.Sprintf(
		"Extract verifiable claims from the text below. For each claim, return the exact quoted span as a TextQuoteSelector "+
			"(exact/prefix/suffix), a modality of assertion|denial|speculation, an attributed_to source if stated, a language "+
			"code if not English, and a confidence 0..1. Reject any claim you cannot anchor to an exact quote.\n\n%s",
		chunk.Text,
	)
}
