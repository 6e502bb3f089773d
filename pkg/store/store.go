// Package store defines the narrow persistence interfaces each pipeline
// stage and service depends on, plus their PostgreSQL-backed
// implementations over database/sql.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

// CaseStore persists Case rows.
type CaseStore interface {
	Create(ctx context.Context, c contracts.Case) (contracts.Case, error)
	Get(ctx context.Context, uid string) (contracts.Case, error)
}

// ArtifactStore persists ArtifactIdentity and ArtifactVersion rows.
type ArtifactStore interface {
	UpsertIdentity(ctx context.Context, a contracts.ArtifactIdentity) (contracts.ArtifactIdentity, error)
	GetIdentityByURL(ctx context.Context, caseUID, url string) (contracts.ArtifactIdentity, bool, error)
	AddVersion(ctx context.Context, v contracts.ArtifactVersion) (contracts.ArtifactVersion, error)
}

// ChunkStore persists Chunk rows.
type ChunkStore interface {
	Create(ctx context.Context, c contracts.Chunk) (contracts.Chunk, error)
	ListByVersion(ctx context.Context, versionUID string) ([]contracts.Chunk, error)
	MarkAnchorHealth(ctx context.Context, uid string, healthy bool) error
}

// ClaimStore persists SourceClaim rows.
type ClaimStore interface {
	Create(ctx context.Context, c contracts.SourceClaim) (contracts.SourceClaim, error)
	Get(ctx context.Context, uid string) (contracts.SourceClaim, error)
	ListByCase(ctx context.Context, caseUID string, limit int) ([]contracts.SourceClaim, error)
	SearchFullText(ctx context.Context, caseUID, query string, limit int) ([]contracts.SourceClaim, error)
}

// EvidenceStore persists Evidence rows.
type EvidenceStore interface {
	Create(ctx context.Context, e contracts.Evidence) (contracts.Evidence, error)
	Get(ctx context.Context, uid string) (contracts.Evidence, error)
	ExpireOlderThan(ctx context.Context, before contracts.RetentionCutoff) (int64, error)
}

// AssertionStore persists fused Assertion rows.
type AssertionStore interface {
	Upsert(ctx context.Context, a contracts.Assertion) (contracts.Assertion, error)
	ListByCase(ctx context.Context, caseUID string) ([]contracts.Assertion, error)
	ListBySourceClaim(ctx context.Context, claimUID string) ([]contracts.Assertion, error)
}

// HypothesisStore persists Hypothesis rows and their posterior history.
type HypothesisStore interface {
	Create(ctx context.Context, h contracts.Hypothesis) (contracts.Hypothesis, error)
	ListByCase(ctx context.Context, caseUID string) ([]contracts.Hypothesis, error)
	UpdatePosteriors(ctx context.Context, caseUID string, posteriors map[string]float64) error
}

// AssessmentStore persists EvidenceAssessment and ProbabilityUpdate rows.
type AssessmentStore interface {
	Upsert(ctx context.Context, a contracts.EvidenceAssessment) (contracts.EvidenceAssessment, error)
	ListByHypothesis(ctx context.Context, hypothesisUID string) ([]contracts.EvidenceAssessment, error)
	RecordProbabilityUpdate(ctx context.Context, u contracts.ProbabilityUpdate) error
	ListProbabilityUpdates(ctx context.Context, caseUID string) ([]contracts.ProbabilityUpdate, error)
}

// NarrativeStore persists Narrative clusters.
type NarrativeStore interface {
	Upsert(ctx context.Context, n contracts.Narrative) (contracts.Narrative, error)
	ListByCase(ctx context.Context, caseUID string) ([]contracts.Narrative, error)
}

// RelationFactStore persists typed graph edges mirrored from the graph
// store for relational queries and audit.
type RelationFactStore interface {
	Create(ctx context.Context, r contracts.RelationFact) (contracts.RelationFact, error)
	ListByCase(ctx context.Context, caseUID string) ([]contracts.RelationFact, error)
}

// EntityStore persists graph-projected Entity rows and pending identity
// actions.
type EntityStore interface {
	Upsert(ctx context.Context, e contracts.Entity) (contracts.Entity, error)
	Get(ctx context.Context, uid string) (contracts.Entity, error)
	ListByCase(ctx context.Context, caseUID string) ([]contracts.Entity, error)
	CreateIdentityAction(ctx context.Context, a contracts.EntityIdentityAction) (contracts.EntityIdentityAction, error)
	ListPendingIdentityActions(ctx context.Context, caseUID string) ([]contracts.EntityIdentityAction, error)
	ResolveIdentityAction(ctx context.Context, uid string, status contracts.EntityIdentityActionStatus) error
}

// ActionStore persists audit Action rows and ToolTrace rows.
type ActionStore interface {
	RecordAction(ctx context.Context, a contracts.Action) error
	RecordToolTrace(ctx context.Context, t contracts.ToolTrace) error
	ListActionsByCase(ctx context.Context, caseUID string, limit int) ([]contracts.Action, error)
	GetByTraceID(ctx context.Context, traceID string) (contracts.Action, error)
	PurgeOlderThan(ctx context.Context, before contracts.RetentionCutoff) (int64, error)
}

// SubscriptionStore persists push Subscription rows.
type SubscriptionStore interface {
	Create(ctx context.Context, s contracts.Subscription) (contracts.Subscription, error)
	ListEnabled(ctx context.Context) ([]contracts.Subscription, error)
	SetEnabled(ctx context.Context, uid string, enabled bool) error
}

// EventLogStore persists dedup EventLog rows and delivery PushLog rows.
type EventLogStore interface {
	MarkSeen(ctx context.Context, sourceEventUID, eventType string) (alreadySeen bool, err error)
	IncrementPushCount(ctx context.Context, sourceEventUID string, n int) error
	RecordPush(ctx context.Context, p contracts.PushLog) error
	CountRecentPushes(ctx context.Context, userID string, since time.Time) (int, error)
}

// MemoryStore persists AnalysisMemoryRecord rows.
type MemoryStore interface {
	Create(ctx context.Context, m contracts.AnalysisMemoryRecord) (contracts.AnalysisMemoryRecord, error)
	ListByCase(ctx context.Context, caseUID string) ([]contracts.AnalysisMemoryRecord, error)
	UpdateOutcome(ctx context.Context, memoryUID string, outcome float64, lessons string) (contracts.AnalysisMemoryRecord, error)
}

// InvestigationStore persists Investigation runs.
type InvestigationStore interface {
	Create(ctx context.Context, i contracts.Investigation) (contracts.Investigation, error)
	Get(ctx context.Context, uid string) (contracts.Investigation, error)
	Update(ctx context.Context, i contracts.Investigation) error
	ListActive(ctx context.Context) ([]contracts.Investigation, error)
}

// GDELTStore persists ingested GDELTEvent rows and answers the
// country-level windowed counts the surge detector needs.
type GDELTStore interface {
	Create(ctx context.Context, e contracts.GDELTEvent) (contracts.GDELTEvent, error)
	MarkAnomaly(ctx context.Context, uid, anomalyType string) error
	CountSince(ctx context.Context, country string, since time.Time) (int, error)
	CountBetween(ctx context.Context, country string, start, end time.Time) (int, error)
}

// Stores bundles every store interface behind one handle for service
// wiring, mirroring the server's builder-via-setters construction.
type Stores struct {
	Cases          CaseStore
	Artifacts      ArtifactStore
	Chunks         ChunkStore
	Claims         ClaimStore
	Evidence       EvidenceStore
	Assertions     AssertionStore
	Hypotheses     HypothesisStore
	Assessments    AssessmentStore
	Narratives     NarrativeStore
	RelationFacts  RelationFactStore
	Entities       EntityStore
	Actions        ActionStore
	Subscriptions  SubscriptionStore
	EventLog       EventLogStore
	Memory         MemoryStore
	Investigations InvestigationStore
	GDELT          GDELTStore
}

// NewPostgresStores wires every PostgreSQL-backed implementation against
// one shared *sql.DB.
func NewPostgresStores(db *sql.DB) *Stores {
	return &Stores{
		Cases:          &PostgresCaseStore{db: db},
		Artifacts:      &PostgresArtifactStore{db: db},
		Chunks:         &PostgresChunkStore{db: db},
		Claims:         &PostgresClaimStore{db: db},
		Evidence:       &PostgresEvidenceStore{db: db},
		Assertions:     &PostgresAssertionStore{db: db},
		Hypotheses:     &PostgresHypothesisStore{db: db},
		Assessments:    &PostgresAssessmentStore{db: db},
		Narratives:     &PostgresNarrativeStore{db: db},
		RelationFacts:  &PostgresRelationFactStore{db: db},
		Entities:       &PostgresEntityStore{db: db},
		Actions:        &PostgresActionStore{db: db},
		Subscriptions:  &PostgresSubscriptionStore{db: db},
		EventLog:       &PostgresEventLogStore{db: db},
		Memory:         &PostgresMemoryStore{db: db},
		Investigations: &PostgresInvestigationStore{db: db},
		GDELT:          &PostgresGDELTStore{db: db},
	}
}
