// Package pipeline runs the fixed 13-stage case-analysis DAG: collect
// raw material, extract and fuse claims into assertions, project the
// knowledge graph, generate and assess hypotheses, analyze causality,
// forecast, build narratives, detect coordination, score quality,
// record memory, and render the final report. Stage failures are
// isolated — one stage erroring does not halt the run, though a
// downstream stage may itself choose to skip on thin input.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/aegi-platform/aegi-core/pkg/ach"
	"github.com/aegi-platform/aegi-core/pkg/contracts"
	"github.com/aegi-platform/aegi-core/pkg/eventbus"
	"github.com/aegi-platform/aegi-core/pkg/graph"
	"github.com/aegi-platform/aegi-core/pkg/llmclient"
	"github.com/aegi-platform/aegi-core/pkg/memory"
	"github.com/aegi-platform/aegi-core/pkg/narrative"
	"github.com/aegi-platform/aegi-core/pkg/ontology"
	"github.com/aegi-platform/aegi-core/pkg/report"
	"github.com/aegi-platform/aegi-core/pkg/store"
	"github.com/aegi-platform/aegi-core/pkg/vectorstore"
)

// StructuredInvoker is the narrow LLM slice stages that call the model
// need.
type StructuredInvoker interface {
	InvokeStructured(ctx context.Context, req contracts.LLMInvocationRequest, prompt string, out any) (contracts.ToolTrace, error)
}

// Embedder is the narrow LLM slice stages that embed text need.
type Embedder interface {
	Embed(ctx context.Context, budget contracts.BudgetContext, texts []string) (llmclient.EmbedResult, error)
}

// StageContext is the shared, mutating state every stage reads from
// and writes back into. Stores and service handles are wired once by
// the caller; the accumulated-data fields are populated stage by
// stage as the DAG progresses.
type StageContext struct {
	CaseUID  string
	RunID    string
	TraceID  string
	Playbook string
	Budget   contracts.BudgetContext
	Config   map[string]string

	Stores        *store.Stores
	Graph         *graph.Store
	Vectors       *vectorstore.Store
	OntologyReg   *ontology.Registry
	LLM           StructuredInvoker
	Embedder      Embedder
	ACH           *ach.Engine
	MemoryService *memory.Service
	Masker        report.Masker
	Bus           *eventbus.Bus
	Logger        *slog.Logger

	HypothesisLabels []string

	Claims        []contracts.SourceClaim
	Assertions    []contracts.Assertion
	Entities      []contracts.Entity
	Relations     []contracts.RelationFact
	Hypotheses    []contracts.Hypothesis
	Assessments   []contracts.EvidenceAssessment
	CausalByHyp   map[string]contracts.CausalAnalysis
	Forecasts     []contracts.Forecast
	Narratives    []contracts.Narrative
	NarrativeUIDs map[string][]string
	Coordination  []narrative.CoordinationSignal
	Quality       contracts.QualityReport
	Biases        []contracts.BiasFlag
	Blindspots    []contracts.Blindspot
	Memory        contracts.AnalysisMemoryRecord
	Report        contracts.Report
}

func (sc *StageContext) logger() *slog.Logger {
	if sc.Logger != nil {
		return sc.Logger
	}
	return slog.Default()
}

// Stage is one node of the pipeline DAG.
type Stage interface {
	Name() string
	Run(ctx context.Context, sc *StageContext) (any, error)
}

// Skippable is implemented by a Stage that can decline to run against
// the current StageContext, e.g. because an upstream stage produced
// nothing for it to act on.
type Skippable interface {
	ShouldSkip(sc *StageContext) (string, bool)
}

// StageResult records the outcome of running one stage.
type StageResult struct {
	Stage      string
	Status     string // "success" | "skipped" | "error"
	DurationMS int64
	Output     any
	Error      string
}

// Orchestrator runs an ordered Stage list against a StageContext,
// reporting progress through a Tracker.
type Orchestrator struct {
	Stages  []Stage
	Tracker *Tracker
}

// NewOrchestrator builds an Orchestrator over the default 13-stage DAG.
func NewOrchestrator(tracker *Tracker) *Orchestrator {
	return &Orchestrator{Stages: DefaultStages(), Tracker: tracker}
}

// DefaultStages returns the fixed-order stage list, spec.md §4.12.
func DefaultStages() []Stage {
	return []Stage{
		osintCollectStage{},
		claimExtractStage{},
		assertionFuseStage{},
		kgBuildStage{},
		hypothesisGenerateStage{},
		bayesianACHAssessStage{},
		causalAnalyzeStage{},
		forecastGenerateStage{},
		narrativeBuildStage{},
		coordinationDetectStage{},
		qualityScoreStage{},
		memoryRecordStage{},
		reportGenerateStage{},
	}
}

// Run executes every stage against sc in order, isolating failures:
// an "error" status stops the failing stage alone, never the run.
func (o *Orchestrator) Run(ctx context.Context, sc *StageContext) []StageResult {
	if o.Tracker != nil {
		o.Tracker.Start(sc.RunID, sc.CaseUID, sc.Playbook, len(o.Stages))
	}
	results := make([]StageResult, 0, len(o.Stages))

	for i, stage := range o.Stages {
		if ctx.Err() != nil {
			results = append(results, StageResult{Stage: stage.Name(), Status: "skipped", Error: "run cancelled"})
			o.updateTracker(sc, stage.Name(), i, len(o.Stages), "cancelled", ctx.Err().Error())
			continue
		}

		if skippable, ok := stage.(Skippable); ok {
			if reason, skip := skippable.ShouldSkip(sc); skip {
				results = append(results, StageResult{Stage: stage.Name(), Status: "skipped", Error: reason})
				o.updateTracker(sc, stage.Name(), i, len(o.Stages), "running", "")
				continue
			}
		}

		start := time.Now()
		output, err := stage.Run(ctx, sc)
		duration := time.Since(start).Milliseconds()

		result := StageResult{Stage: stage.Name(), DurationMS: duration, Output: output}
		if err != nil {
			result.Status = "error"
			result.Error = err.Error()
			sc.logger().Warn("pipeline stage failed, continuing", "run_id", sc.RunID, "stage", stage.Name(), "error", err)
		} else {
			result.Status = "success"
		}
		results = append(results, result)
		o.updateTracker(sc, stage.Name(), i+1, len(o.Stages), "running", "")
	}

	status := "completed"
	for _, r := range results {
		if r.Status == "error" {
			status = "completed"
		}
	}
	if o.Tracker != nil {
		o.Tracker.Update(sc.RunID, func(s *RunState) {
			s.Status = status
			s.CompletedAt = time.Now().UTC()
			s.ProgressPct = 100
		})
	}
	return results
}

func (o *Orchestrator) updateTracker(sc *StageContext, stageName string, done, total int, status, errMsg string) {
	if o.Tracker == nil {
		return
	}
	o.Tracker.Update(sc.RunID, func(s *RunState) {
		s.CurrentStage = stageName
		s.StagesTotal = total
		s.ProgressPct = 100 * float64(done) / float64(total)
		if status != "running" {
			s.Status = status
		}
		if errMsg != "" {
			s.Error = errMsg
		}
	})
}
