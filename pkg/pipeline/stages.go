package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aegi-platform/aegi-core/pkg/ach"
	"github.com/aegi-platform/aegi-core/pkg/causal"
	"github.com/aegi-platform/aegi-core/pkg/contracts"
	"github.com/aegi-platform/aegi-core/pkg/fusion"
	"github.com/aegi-platform/aegi-core/pkg/graph"
	"github.com/aegi-platform/aegi-core/pkg/narrative"
	"github.com/aegi-platform/aegi-core/pkg/quality"
	"github.com/aegi-platform/aegi-core/pkg/report"
	"github.com/aegi-platform/aegi-core/pkg/scenario"
)

// osintCollectStage pulls the case's already-ingested claims into the
// run. Active external collection happens ahead of the pipeline, via
// the ingest API and the investigation agent's tool-runner fetches;
// this stage's job is to materialize their result set into context.
type osintCollectStage struct{}

func (osintCollectStage) Name() string { return "osint_collect" }

func (osintCollectStage) Run(ctx context.Context, sc *StageContext) (any, error) {
	if sc.Stores == nil || sc.Stores.Claims == nil {
		return nil, fmt.Errorf("osint_collect: no claim store wired")
	}
	claims, err := sc.Stores.Claims.ListByCase(ctx, sc.CaseUID, 2000)
	if err != nil {
		return nil, fmt.Errorf("osint_collect: %w", err)
	}
	sc.Claims = claims
	return len(claims), nil
}

// claimExtractStage confirms the collected claim set is non-empty.
// Per-chunk LLM extraction itself runs synchronously inside the
// ingest pipeline (pkg/claims.Extractor) as each chunk arrives; this
// stage's place in the DAG records that the case had something to
// extract before assertion fusion proceeds.
type claimExtractStage struct{}

func (claimExtractStage) Name() string { return "claim_extract" }

func (s claimExtractStage) ShouldSkip(sc *StageContext) (string, bool) {
	if len(sc.Claims) == 0 {
		return "no claims collected", true
	}
	return "", false
}

func (claimExtractStage) Run(ctx context.Context, sc *StageContext) (any, error) {
	return len(sc.Claims), nil
}

// assertionFuseStage combines claims into Dempster-Shafer assertions.
type assertionFuseStage struct{}

func (assertionFuseStage) Name() string { return "assertion_fuse" }

func (s assertionFuseStage) ShouldSkip(sc *StageContext) (string, bool) {
	if len(sc.Claims) == 0 {
		return "no claims to fuse", true
	}
	return "", false
}

func (assertionFuseStage) Run(ctx context.Context, sc *StageContext) (any, error) {
	result := fusion.FuseClaims(sc.CaseUID, sc.Claims)
	sc.Assertions = result.Assertions
	if sc.Stores != nil && sc.Stores.Assertions != nil {
		for _, a := range result.Assertions {
			if _, err := sc.Stores.Assertions.Upsert(ctx, a); err != nil {
				sc.logger().Warn("assertion_fuse: upsert failed", "assertion_uid", a.UID, "error", err)
			}
		}
	}
	return len(result.Assertions), nil
}

// kgBuildStage validates and projects the case's already-resolved
// entities and relations (produced by the disambiguator and ingest
// pipeline ahead of this run) into the graph store.
type kgBuildStage struct{}

func (kgBuildStage) Name() string { return "kg_build" }

func (s kgBuildStage) ShouldSkip(sc *StageContext) (string, bool) {
	if sc.Graph == nil {
		return "no graph store wired", true
	}
	return "", false
}

func (kgBuildStage) Run(ctx context.Context, sc *StageContext) (any, error) {
	if sc.Stores != nil && sc.Stores.Entities != nil {
		entities, err := sc.Stores.Entities.ListByCase(ctx, sc.CaseUID)
		if err == nil {
			sc.Entities = entities
		}
	}
	if sc.Stores != nil && sc.Stores.RelationFacts != nil {
		relations, err := sc.Stores.RelationFacts.ListByCase(ctx, sc.CaseUID)
		if err == nil {
			sc.Relations = relations
		}
	}
	ontologyVersion := sc.Config["ontology_version"]
	if ontologyVersion == "" {
		ontologyVersion = "v1"
	}
	action, errs := graph.BuildFromAssertions(ctx, sc.OntologyReg, sc.Graph, sc.CaseUID, ontologyVersion, sc.Entities, sc.Relations)
	if sc.Stores != nil && sc.Stores.Actions != nil {
		sc.Stores.Actions.RecordAction(ctx, action)
	}
	if len(errs) > 0 {
		return action, fmt.Errorf("kg_build: %d validation errors", len(errs))
	}
	return action, nil
}

// hypothesisGenerateStage seeds ACH priors for the case's candidate
// hypothesis labels.
type hypothesisGenerateStage struct{}

func (hypothesisGenerateStage) Name() string { return "hypothesis_generate" }

func (s hypothesisGenerateStage) ShouldSkip(sc *StageContext) (string, bool) {
	if len(sc.HypothesisLabels) == 0 {
		return "no candidate hypothesis labels configured", true
	}
	if sc.Stores == nil || sc.Stores.Hypotheses == nil {
		return "no hypothesis store wired", true
	}
	return "", false
}

func (hypothesisGenerateStage) Run(ctx context.Context, sc *StageContext) (any, error) {
	hypotheses, err := ach.InitializePriors(ctx, sc.Stores.Hypotheses, sc.CaseUID, sc.HypothesisLabels)
	if err != nil {
		return nil, fmt.Errorf("hypothesis_generate: %w", err)
	}
	sc.Hypotheses = hypotheses
	return len(hypotheses), nil
}

// bayesianACHAssessStage scores each source claim as evidence against
// every live hypothesis and folds the result into the posteriors.
type bayesianACHAssessStage struct{}

func (bayesianACHAssessStage) Name() string { return "bayesian_ach_assess" }

func (s bayesianACHAssessStage) ShouldSkip(sc *StageContext) (string, bool) {
	if sc.ACH == nil {
		return "no ACH engine wired", true
	}
	if len(sc.Hypotheses) == 0 {
		return "no hypotheses to assess", true
	}
	return "", false
}

func (bayesianACHAssessStage) Run(ctx context.Context, sc *StageContext) (any, error) {
	var assessments []contracts.EvidenceAssessment
	for _, c := range sc.Claims {
		out := sc.ACH.AssessEvidence(ctx, sc.CaseUID, c.UID, c.Text, sc.TraceID, sc.Budget)
		assessments = append(assessments, out...)
	}
	sc.Assessments = assessments

	if sc.Stores != nil && sc.Stores.Hypotheses != nil {
		if hypotheses, err := sc.Stores.Hypotheses.ListByCase(ctx, sc.CaseUID); err == nil {
			sc.Hypotheses = hypotheses
		}
	}
	return len(assessments), nil
}

// causalAnalyzeStage builds a causal chain per hypothesis from its
// supporting assertions, then augments it with LLM-derived mechanism
// narration when an LLM is wired.
type causalAnalyzeStage struct{}

func (causalAnalyzeStage) Name() string { return "causal_analyze" }

func (s causalAnalyzeStage) ShouldSkip(sc *StageContext) (string, bool) {
	if len(sc.Hypotheses) == 0 {
		return "no hypotheses to analyze", true
	}
	return "", false
}

func (causalAnalyzeStage) Run(ctx context.Context, sc *StageContext) (any, error) {
	assertionsByUID := make(map[string]contracts.Assertion, len(sc.Assertions))
	assertionText := make(map[string]string, len(sc.Assertions))
	for _, a := range sc.Assertions {
		assertionsByUID[a.UID] = a
		assertionText[a.UID] = a.Text
	}

	byHyp := make(map[string]contracts.CausalAnalysis, len(sc.Hypotheses))
	for _, h := range sc.Hypotheses {
		var supporting []contracts.Assertion
		for _, uid := range h.SupportingAssertionUIDs {
			if a, ok := assertionsByUID[uid]; ok {
				supporting = append(supporting, a)
			}
		}
		analysis := causal.Analyze(h.UID, supporting)
		if sc.LLM != nil {
			analysis = causal.Augment(ctx, sc.LLM, analysis, assertionText, sc.TraceID, sc.Budget)
		}
		byHyp[h.UID] = analysis
	}
	sc.CausalByHyp = byHyp
	return len(byHyp), nil
}

// forecastGenerateStage renders one grounding-gated Forecast per
// hypothesis.
type forecastGenerateStage struct{}

func (forecastGenerateStage) Name() string { return "forecast_generate" }

func (s forecastGenerateStage) ShouldSkip(sc *StageContext) (string, bool) {
	if len(sc.Hypotheses) == 0 {
		return "no hypotheses to forecast", true
	}
	return "", false
}

func (forecastGenerateStage) Run(ctx context.Context, sc *StageContext) (any, error) {
	assertionsByHyp := make(map[string][]contracts.Assertion, len(sc.Hypotheses))
	assertionsByUID := make(map[string]contracts.Assertion, len(sc.Assertions))
	for _, a := range sc.Assertions {
		assertionsByUID[a.UID] = a
	}
	for _, h := range sc.Hypotheses {
		for _, uid := range h.SupportingAssertionUIDs {
			if a, ok := assertionsByUID[uid]; ok {
				assertionsByHyp[h.UID] = append(assertionsByHyp[h.UID], a)
			}
		}
	}

	claimsByUID := make(map[string]contracts.SourceClaim, len(sc.Claims))
	for _, c := range sc.Claims {
		claimsByUID[c.UID] = c
	}
	claimsByAssertion := make(map[string][]contracts.SourceClaim, len(sc.Assertions))
	for _, a := range sc.Assertions {
		for _, uid := range a.SourceClaimUIDs {
			if c, ok := claimsByUID[uid]; ok {
				claimsByAssertion[a.UID] = append(claimsByAssertion[a.UID], c)
			}
		}
	}

	forecasts := scenario.Generate(sc.CaseUID, sc.Hypotheses, assertionsByHyp, claimsByAssertion, sc.CausalByHyp, nil)
	sc.Forecasts = forecasts
	return len(forecasts), nil
}

// narrativeBuildStage clusters the case's claims into time-windowed
// thematic narratives.
type narrativeBuildStage struct{}

func (narrativeBuildStage) Name() string { return "narrative_build" }

func (s narrativeBuildStage) ShouldSkip(sc *StageContext) (string, bool) {
	if len(sc.Claims) == 0 {
		return "no claims to cluster", true
	}
	return "", false
}

func (narrativeBuildStage) Run(ctx context.Context, sc *StageContext) (any, error) {
	narratives, uidMap := narrative.BuildNarratives(sc.CaseUID, sc.Claims, narrative.Config{})
	sc.Narratives = narratives
	sc.NarrativeUIDs = uidMap
	if sc.Stores != nil && sc.Stores.Narratives != nil {
		for _, n := range narratives {
			if _, err := sc.Stores.Narratives.Upsert(ctx, n); err != nil {
				sc.logger().Warn("narrative_build: upsert failed", "narrative_uid", n.UID, "error", err)
			}
		}
	}
	return len(narratives), nil
}

// coordinationDetectStage flags narrative clusters whose propagation
// pattern suggests coordinated rather than organic spread.
type coordinationDetectStage struct{}

func (coordinationDetectStage) Name() string { return "coordination_detect" }

func (s coordinationDetectStage) ShouldSkip(sc *StageContext) (string, bool) {
	if len(sc.Narratives) == 0 {
		return "no narratives to inspect", true
	}
	return "", false
}

func (coordinationDetectStage) Run(ctx context.Context, sc *StageContext) (any, error) {
	signals := narrative.DetectCoordination(sc.NarrativeUIDs, sc.Claims, narrative.CoordinationConfig{})
	sc.Coordination = signals
	return len(signals), nil
}

// qualityScoreStage scans the case's analytical state for coverage
// gaps and flags systematic biases and blindspots per hypothesis.
type qualityScoreStage struct{}

func (qualityScoreStage) Name() string { return "quality_score" }

func (qualityScoreStage) Run(ctx context.Context, sc *StageContext) (any, error) {
	var evidenceTimes []time.Time
	for _, c := range sc.Claims {
		evidenceTimes = append(evidenceTimes, c.CreatedAt)
	}
	diagnosticity := make(map[string]float64, len(sc.Hypotheses))
	assertionsByUID := make(map[string]contracts.Assertion, len(sc.Assertions))
	for _, a := range sc.Assertions {
		assertionsByUID[a.UID] = a
	}

	sc.Quality = quality.Scan(quality.Input{
		CaseUID: sc.CaseUID, Assertions: sc.Assertions, Hypotheses: sc.Hypotheses,
		Entities: sc.Entities, RelationFacts: sc.Relations, Assessments: sc.Assessments,
		Diagnosticity: diagnosticity, EvidenceCreatedAt: evidenceTimes,
	})

	var biases []contracts.BiasFlag
	var blindspots []contracts.Blindspot
	for _, h := range sc.Hypotheses {
		biases = append(biases, quality.DetectBiases(h, sc.Claims, sc.Assessments)...)
		blindspots = append(blindspots, quality.DetectBlindspots(h, assertionsByUID, sc.Assertions, evidenceTimes)...)
	}
	sc.Biases = biases
	sc.Blindspots = blindspots
	return sc.Quality, nil
}

// memoryRecordStage summarizes the case's outcome into durable and
// vector-indexed analysis memory for future recall.
type memoryRecordStage struct{}

func (memoryRecordStage) Name() string { return "memory_record" }

func (s memoryRecordStage) ShouldSkip(sc *StageContext) (string, bool) {
	if sc.MemoryService == nil {
		return "no memory service wired", true
	}
	if len(sc.Hypotheses) == 0 {
		return "nothing to summarize", true
	}
	return "", false
}

func (memoryRecordStage) Run(ctx context.Context, sc *StageContext) (any, error) {
	scenarioText := summarizeScenario(sc)
	record, err := sc.MemoryService.Record(ctx, sc.CaseUID, scenarioText, sc.TraceID, sc.Budget)
	if err != nil {
		return nil, fmt.Errorf("memory_record: %w", err)
	}
	sc.Memory = record
	return record, nil
}

func summarizeScenario(sc *StageContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Case %s: %d hypotheses, %d assertions, %d narratives.\n", sc.CaseUID, len(sc.Hypotheses), len(sc.Assertions), len(sc.Narratives))
	for _, h := range sc.Hypotheses {
		fmt.Fprintf(&b, "- %s (posterior %.2f)\n", h.Label, h.Posterior)
	}
	return b.String()
}

// reportGenerateStage renders the final structured Report from every
// upstream artifact the run produced.
type reportGenerateStage struct{}

func (reportGenerateStage) Name() string { return "report_generate" }

func (reportGenerateStage) Run(ctx context.Context, sc *StageContext) (any, error) {
	var qualityPtr *contracts.QualityReport
	if sc.Quality.CaseUID != "" {
		q := sc.Quality
		qualityPtr = &q
	}
	rep := report.Generate(report.Input{
		CaseUID: sc.CaseUID, TraceID: sc.TraceID, Hypotheses: sc.Hypotheses,
		Forecasts: sc.Forecasts, Narratives: sc.Narratives, Quality: qualityPtr,
		Biases: sc.Biases, Blindspots: sc.Blindspots, Masker: sc.Masker,
	})
	sc.Report = rep

	if sc.Stores != nil && sc.Stores.Actions != nil {
		raw, err := json.Marshal(rep)
		outputs := map[string]string{}
		if err == nil {
			outputs["report_json"] = string(raw)
		}
		sc.Stores.Actions.RecordAction(ctx, contracts.Action{
			UID: uuid.NewString(), CaseUID: sc.CaseUID, TraceID: rep.UID,
			Kind: "report_generate", Outputs: outputs,
			Rationale: fmt.Sprintf("%d sections, degraded=%v", len(rep.Sections), rep.Degraded),
			CreatedAt: time.Now().UTC(),
		})
	}
	return rep, nil
}
