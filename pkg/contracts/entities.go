package contracts

import "time"

// Case is the top-level analytical workspace. Every other entity is
// scoped to a CaseUID. Created externally; soft-immutable thereafter.
type Case struct {
	UID       string    `json:"case_uid"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ArtifactIdentity is the canonical identity of a source document.
type ArtifactIdentity struct {
	UID        string    `json:"artifact_uid"`
	CaseUID    string    `json:"case_uid"`
	URL        string    `json:"url"`
	CreatedAt  time.Time `json:"created_at"`
}

// ArtifactVersion is one stored rendering of an ArtifactIdentity. Versions
// are append-only.
type ArtifactVersion struct {
	UID         string    `json:"version_uid"`
	ArtifactUID string    `json:"artifact_uid"`
	StorageRef  string    `json:"storage_ref"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}

// Selector locates a quotation inside its original artifact version.
type Selector struct {
	Type        string `json:"type"` // e.g. "TextQuoteSelector"
	Exact       string `json:"exact"`
	Prefix      string `json:"prefix,omitempty"`
	Suffix      string `json:"suffix,omitempty"`
}

// Chunk is an ordered, text-bearing slice of an artifact version.
type Chunk struct {
	UID          string     `json:"chunk_uid"`
	VersionUID   string     `json:"version_uid"`
	CaseUID      string     `json:"case_uid"`
	Ordinal      int        `json:"ordinal"`
	Text         string     `json:"text"`
	Anchors      []Selector `json:"anchors"`
	AnchorHealthy bool      `json:"anchor_healthy"`
	CreatedAt    time.Time  `json:"created_at"`
}

// SourceClaim is a verbatim quotation attributable to a chunk. Invariant:
// Selectors must be non-empty.
type SourceClaim struct {
	UID           string     `json:"claim_uid"`
	CaseUID       string     `json:"case_uid"`
	ChunkUID      string     `json:"chunk_uid"`
	Text          string     `json:"text"`
	Selectors     []Selector `json:"selectors"`
	Modality      string     `json:"modality"` // e.g. "assertion", "denial", "speculation"
	Language      string     `json:"language,omitempty"`
	Translation   string     `json:"translation,omitempty"`
	AttributedTo  string     `json:"attributed_to,omitempty"`
	Confidence    float64    `json:"confidence"`
	SourceCredibility float64 `json:"source_credibility"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Evidence is the citable unit pairing a chunk with a case.
type Evidence struct {
	UID        string     `json:"evidence_uid"`
	CaseUID    string     `json:"case_uid"`
	ChunkUID   string     `json:"chunk_uid"`
	Kind       string     `json:"kind"`
	ContainsPII bool      `json:"contains_pii"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// AssertionValue carries the Dempster-Shafer fusion outputs for an
// Assertion.
type AssertionValue struct {
	Belief        float64 `json:"belief"`
	Plausibility  float64 `json:"plausibility"`
	Uncertainty   float64 `json:"uncertainty"`
	ConflictDegree float64 `json:"conflict_degree"`
	SourceCount   int     `json:"source_count"`
	HasConflict   bool    `json:"has_conflict"`
}

// Assertion is a fused factual claim derived from one or more
// SourceClaims. Invariant: SourceClaimUIDs non-empty.
type Assertion struct {
	UID             string         `json:"assertion_uid"`
	CaseUID         string         `json:"case_uid"`
	Text            string         `json:"text"`
	SourceClaimUIDs []string       `json:"source_claim_uids"`
	Value           AssertionValue `json:"value"`
	Timestamp       time.Time      `json:"timestamp"`
	CreatedAt       time.Time      `json:"created_at"`
}

// Hypothesis is a labeled competing explanation participating in the ACH
// posterior. Probabilities across all live hypotheses in a case sum to
// 1.0 within epsilon.
type Hypothesis struct {
	UID                      string    `json:"hypothesis_uid"`
	CaseUID                  string    `json:"case_uid"`
	Label                    string    `json:"label"`
	Prior                    float64   `json:"prior"`
	Posterior                float64   `json:"posterior"`
	SupportingAssertionUIDs  []string  `json:"supporting_assertion_uids"`
	CreatedAt                time.Time `json:"created_at"`
}

// EvidenceRelation is the qualitative relation of an EvidenceAssessment.
type EvidenceRelation string

const (
	RelationSupport    EvidenceRelation = "support"
	RelationContradict EvidenceRelation = "contradict"
	RelationIrrelevant EvidenceRelation = "irrelevant"
)

// EvidenceAssessment is the per-(hypothesis, evidence) relation/strength
// row. Unique by (HypothesisUID, EvidenceUID); re-assessment upserts.
type EvidenceAssessment struct {
	UID           string           `json:"assessment_uid"`
	HypothesisUID string           `json:"hypothesis_uid"`
	EvidenceUID   string           `json:"evidence_uid"`
	Relation      EvidenceRelation `json:"relation"`
	Strength      float64          `json:"strength"`
	Likelihood    float64          `json:"likelihood"` // P(E|H)
	UpdatedAt     time.Time        `json:"updated_at"`
}

// ProbabilityUpdate is one append-only prior->posterior transition.
type ProbabilityUpdate struct {
	UID           string    `json:"update_uid"`
	CaseUID       string    `json:"case_uid"`
	HypothesisUID string    `json:"hypothesis_uid"`
	EvidenceUID   string    `json:"evidence_uid"`
	Prior         float64   `json:"prior"`
	Posterior     float64   `json:"posterior"`
	Likelihood    float64   `json:"likelihood"`
	CreatedAt     time.Time `json:"created_at"`
}

// Narrative is a cluster of SourceClaims sharing a theme and time span.
// Conflicting narratives co-exist; the builder never merges them.
type Narrative struct {
	UID             string    `json:"narrative_uid"`
	CaseUID         string    `json:"case_uid"`
	Theme           string    `json:"theme"`
	SourceClaimUIDs []string  `json:"source_claim_uids"`
	StartsAt        time.Time `json:"starts_at"`
	EndsAt          time.Time `json:"ends_at"`
}

// RelationFact is a typed edge between two entities.
type RelationFact struct {
	UID               string     `json:"relation_uid"`
	CaseUID           string     `json:"case_uid"`
	Type              string     `json:"type"`
	SourceEntityUID   string     `json:"source_entity_uid"`
	TargetEntityUID   string     `json:"target_entity_uid"`
	SupportingClaims  []string   `json:"supporting_claim_uids"`
	EvidenceStrength  float64    `json:"evidence_strength"`
	HasConflict       bool       `json:"has_conflict"`
	ValidFrom         *time.Time `json:"valid_from,omitempty"`
	ValidUntil        *time.Time `json:"valid_until,omitempty"`
	OntologyVersion   string     `json:"ontology_version"`
}

// Entity is a graph-projected entity.
type Entity struct {
	UID     string            `json:"entity_uid"`
	CaseUID string            `json:"case_uid"`
	Type    string            `json:"type"`
	Name    string            `json:"name"`
	Props   map[string]string `json:"properties,omitempty"`
}

// Event is a graph-projected event.
type Event struct {
	UID       string            `json:"event_uid"`
	CaseUID   string            `json:"case_uid"`
	Type      string            `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Props     map[string]string `json:"properties,omitempty"`
}

// EntityIdentityActionStatus is the lifecycle state of a merge/split proposal.
type EntityIdentityActionStatus string

const (
	IdentityActionPending    EntityIdentityActionStatus = "pending"
	IdentityActionApproved   EntityIdentityActionStatus = "approved"
	IdentityActionRejected   EntityIdentityActionStatus = "rejected"
	IdentityActionRolledBack EntityIdentityActionStatus = "rolled_back"
)

// EntityIdentityAction is a pending/approved/rejected merge or split
// proposal against the graph.
type EntityIdentityAction struct {
	UID         string                      `json:"action_uid"`
	CaseUID     string                      `json:"case_uid"`
	Type        string                      `json:"type"` // "merge" | "split"
	EntityUIDs  []string                    `json:"entity_uids"`
	Confidence  float64                     `json:"confidence"`
	Uncertain   bool                        `json:"uncertain"`
	Status      EntityIdentityActionStatus  `json:"status"`
	Reason      string                      `json:"reason,omitempty"`
	CreatedAt   time.Time                   `json:"created_at"`
}

// PropertyDef describes one property of an ontology entity/event/relation type.
type PropertyDef struct {
	Name     string `json:"name"`
	Required bool   `json:"required"`
}

// OntologyTypeDef is a single entity, event, or relation type definition.
type OntologyTypeDef struct {
	Name        string        `json:"name"`
	Properties  []PropertyDef `json:"properties"`
	Domain      string        `json:"domain,omitempty"` // relation types only
	Range       string        `json:"range,omitempty"`  // relation types only
	Cardinality string        `json:"cardinality,omitempty"`
	Deprecated  bool          `json:"deprecated"`
	DeprecatedBy string       `json:"deprecated_by,omitempty"`
}

// OntologyVersion is a named, immutable snapshot of the typed schema
// governing graph writes.
type OntologyVersion struct {
	Version       string            `json:"version"`
	EntityTypes   []OntologyTypeDef `json:"entity_types"`
	EventTypes    []OntologyTypeDef `json:"event_types"`
	RelationTypes []OntologyTypeDef `json:"relation_types"`
	PublishedAt   time.Time         `json:"published_at"`
}

// RetentionCutoff bounds a purge/expiry sweep to rows created before it.
type RetentionCutoff struct {
	Before time.Time
}

// Action is an audit row. Every mutating operation emits at least one.
type Action struct {
	UID       string            `json:"action_uid"`
	CaseUID   string            `json:"case_uid"`
	TraceID   string            `json:"trace_id"`
	SpanID    string            `json:"span_id,omitempty"`
	Kind      string            `json:"kind"`
	Inputs    map[string]string `json:"inputs,omitempty"`
	Outputs   map[string]string `json:"outputs,omitempty"`
	Rationale string            `json:"rationale,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// ToolTrace records one external-capability invocation.
type ToolTrace struct {
	UID            string    `json:"trace_uid"`
	TraceID        string    `json:"trace_id"`
	Capability     string    `json:"capability"`
	Request        string    `json:"request"`
	Response       string    `json:"response,omitempty"`
	Error          string    `json:"error,omitempty"`
	PolicyDecision string    `json:"policy_decision"`
	Status         string    `json:"status"` // "ok" | "rejected" | "error"
	DurationMS     int64     `json:"duration_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

// Subscription describes what a user wants pushed and how to match it.
type Subscription struct {
	UID               string    `json:"subscription_uid"`
	UserID            string    `json:"user_id"`
	SubType           string    `json:"sub_type"` // case | entity | region | topic | global
	SubTarget         string    `json:"sub_target"`
	PriorityThreshold string    `json:"priority_threshold"` // severity floor
	EventTypes        []string  `json:"event_types"`
	Enabled           bool      `json:"enabled"`
	InterestText      string    `json:"interest_text,omitempty"`
	InterestEmbedding []float32 `json:"-"`
	SlackChannel      string    `json:"slack_channel,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// EventLog is the per-distinct-source_event_uid dedup row.
type EventLog struct {
	UID           string    `json:"event_log_uid"`
	SourceEventUID string   `json:"source_event_uid"`
	EventType     string    `json:"event_type"`
	Status        string    `json:"status"` // "done"
	PushCount     int       `json:"push_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// PushLog is one delivery attempt.
type PushLog struct {
	UID          string    `json:"push_log_uid"`
	EventUID     string    `json:"event_uid"`
	UserID       string    `json:"user_id"`
	MatchMethod  string    `json:"match_method"` // "rule" | "semantic"
	Score        float64   `json:"score"`
	Reason       string    `json:"reason"`
	Status       string    `json:"status"` // "delivered" | "failed"
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// AnalysisMemoryRecord is a recorded case scenario used for recall.
type AnalysisMemoryRecord struct {
	UID         string    `json:"memory_uid"`
	CaseUID     string    `json:"case_uid"`
	Scenario    string    `json:"scenario"`
	PatternTags []string  `json:"pattern_tags"`
	Conclusion  string    `json:"conclusion"`
	Confidence  float64   `json:"confidence"`
	Outcome     *float64  `json:"outcome,omitempty"` // real-world accuracy in [0,1]
	Lessons     string    `json:"lessons,omitempty"`
	Embedding   []float32 `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// InvestigationStatus is the lifecycle state of an Investigation run.
type InvestigationStatus string

const (
	InvestigationPending   InvestigationStatus = "pending"
	InvestigationRunning   InvestigationStatus = "running"
	InvestigationCompleted InvestigationStatus = "completed"
	InvestigationCancelled InvestigationStatus = "cancelled"
	InvestigationFailed    InvestigationStatus = "failed"
)

// InvestigationRound is one round of the investigation agent's loop.
type InvestigationRound struct {
	Index        int       `json:"index"`
	Queries      []string  `json:"queries"`
	ClaimsFound  int       `json:"claims_found"`
	GapResolved  bool      `json:"gap_resolved"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at"`
}

// Investigation is a long-running, event-triggered agent run.
type Investigation struct {
	UID             string               `json:"investigation_uid"`
	CaseUID         string               `json:"case_uid"`
	TriggerEventUID string               `json:"trigger_event_uid"`
	MaxRounds       int                  `json:"max_rounds"`
	Status          InvestigationStatus  `json:"status"`
	Rounds          []InvestigationRound `json:"rounds"`
	TotalClaims     int                  `json:"total_claims_extracted"`
	GapResolved     bool                 `json:"gap_resolved"`
	CancelledBy     string               `json:"cancelled_by,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	CompletedAt     *time.Time           `json:"completed_at,omitempty"`
}

// CausalLink is one adjacent-pair causal edge between two assertions
// supporting the same hypothesis, ordered by timestamp.
type CausalLink struct {
	SourceAssertionUID  string   `json:"source_assertion_uid"`
	TargetAssertionUID  string   `json:"target_assertion_uid"`
	TemporalConsistent  bool     `json:"temporal_consistent"`
	Strength            float64  `json:"strength"`
	CounterfactualScore *float64 `json:"counterfactual_score,omitempty"`
	Confounders         []string `json:"confounders,omitempty"`
}

// CausalAnalysis is the full causal-chain result for one hypothesis.
type CausalAnalysis struct {
	HypothesisUID    string       `json:"hypothesis_uid"`
	Links            []CausalLink `json:"links"`
	ConsistencyScore float64      `json:"consistency_score"`
}

// EvidenceCitation is a single citable pointer into a SourceClaim used
// by forecasts, chat answers, and reports.
type EvidenceCitation struct {
	ClaimUID     string `json:"claim_uid"`
	Quote        string `json:"quote"`
	AttributedTo string `json:"attributed_to,omitempty"`
}

// ForecastStatus is the publication status of a Forecast.
type ForecastStatus string

const (
	ForecastDegraded       ForecastStatus = "degraded"
	ForecastPendingReview  ForecastStatus = "pending_review"
	ForecastPublished      ForecastStatus = "published"
)

// Forecast is one hypothesis's scenario projection: a probability (only
// when the grounding gate allows FACT), trigger conditions, citations,
// and a mandatory non-empty set of alternatives.
type Forecast struct {
	UID                string             `json:"forecast_uid"`
	CaseUID            string             `json:"case_uid"`
	HypothesisUID      string             `json:"hypothesis_uid"`
	Probability        *float64           `json:"probability,omitempty"`
	GroundingLevel     GroundingLevel     `json:"grounding_level"`
	TriggerConditions  []string           `json:"trigger_conditions"`
	EvidenceCitations  []EvidenceCitation `json:"evidence_citations"`
	Alternatives       []string           `json:"alternatives"`
	Status             ForecastStatus     `json:"status"`
	CreatedAt          time.Time          `json:"created_at"`
}

// BacktestResult summarizes a forecast's predictive performance against
// realized outcomes under the predicted_positive = probability > 0.5 rule.
type BacktestResult struct {
	Precision   float64 `json:"precision"`
	FalseAlarm  float64 `json:"false_alarm"`
	MissedAlert float64 `json:"missed_alert"`
}

// QualityReport is the quality gate's scan of one case.
type QualityReport struct {
	CaseUID                  string    `json:"case_uid"`
	EntityResolutionRate     float64   `json:"entity_resolution_rate"`
	RelationCoverage         float64   `json:"relation_coverage"`
	UnresolvedConflictCount  int       `json:"unresolved_conflict_count"`
	EvidenceCoverage         float64   `json:"evidence_coverage"`
	AvgDiagnosticity         float64   `json:"avg_diagnosticity"`
	HistoricalAccuracy       float64   `json:"historical_accuracy"`
	AvgEvidenceAgeHours      float64   `json:"avg_evidence_age_hours"`
	Alerts                   []string  `json:"alerts"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// BiasFlag is one detected analytical bias over a case's evidence base.
type BiasFlag struct {
	Kind      string  `json:"kind"` // single_source | single_stance | confirmation | source_homogeneity
	Detail    string  `json:"detail"`
	Severity  float64 `json:"severity"`
	HypothesisUID string `json:"hypothesis_uid,omitempty"`
}

// Blindspot is a gap the analysis should have covered but did not.
type Blindspot struct {
	Kind     string `json:"kind"` // missing_assertion | narrow_temporal_spread | periodic_gap
	Detail   string `json:"detail"`
	Severity string `json:"severity"` // low | medium | high
}

// PatternStats aggregates AnalysisMemoryRecord outcomes by pattern tag.
type PatternStats struct {
	Tag         string  `json:"tag"`
	Count       int     `json:"count"`
	AvgAccuracy float64 `json:"avg_accuracy"`
}

// ReportSection is one titled section of a generated report.
type ReportSection struct {
	Title   string `json:"title"`
	Markdown string `json:"markdown"`
}

// Report is a structured analytical report over a case.
type Report struct {
	UID       string          `json:"report_uid"`
	CaseUID   string          `json:"case_uid"`
	TraceID   string          `json:"trace_id"`
	Sections  []ReportSection `json:"sections"`
	Degraded  bool            `json:"degraded"`
	CreatedAt time.Time       `json:"created_at"`
}

// QueryPlanStep is one step of a chat query plan.
type QueryPlanStep struct {
	Description string `json:"description"`
	Kind        string `json:"kind"` // "retrieve" | "kg" | "filter" | "synthesize"
}

// AnswerV1 is the grounded Q&A response. Always carries a trace_id and
// evidence_citations, even when empty.
type AnswerV1 struct {
	TraceID            string             `json:"trace_id"`
	CaseUID            string             `json:"case_uid"`
	Question           string             `json:"question"`
	Plan               []QueryPlanStep    `json:"plan"`
	AnswerText         string             `json:"answer_text"`
	AnswerType         GroundingLevel     `json:"answer_type"`
	EvidenceCitations  []EvidenceCitation `json:"evidence_citations"`
	RiskFlags          []string           `json:"risk_flags,omitempty"`
	CannotAnswerReason string             `json:"cannot_answer_reason,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
}

// GDELTEvent is one ingested GDELT event record.
type GDELTEvent struct {
	UID              string    `json:"gdelt_event_uid"`
	GlobalEventID    string    `json:"global_event_id"`
	CAMEOCode        string    `json:"cameo_code"`
	CAMEORoot        string    `json:"cameo_root"`
	ActorCountry     string    `json:"actor_country,omitempty"`
	GoldsteinScale   float64   `json:"goldstein_scale"`
	AvgTone          float64   `json:"avg_tone"`
	EventDate        time.Time `json:"event_date"`
	Status           string    `json:"status"` // "normal" | "anomaly"
	AnomalyType      string    `json:"anomaly_type,omitempty"`
	SourceURL        string    `json:"source_url,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}
