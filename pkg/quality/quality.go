// Package quality scans a case's analytical state for coverage gaps,
// scores it against alert thresholds, and separately flags systematic
// biases and blindspots in the evidence base.
package quality

import (
	"time"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

// Alert thresholds, per spec.
const (
	evidenceCoverageAlertFloor  = 0.5
	unresolvedConflictAlertMax = 3
	avgDiagnosticityAlertFloor = 1.5
)

// Input bundles everything the quality gate needs to score one case.
type Input struct {
	CaseUID            string
	Assertions         []contracts.Assertion
	Hypotheses         []contracts.Hypothesis
	Entities           []contracts.Entity
	RelationFacts      []contracts.RelationFact
	Assessments        []contracts.EvidenceAssessment
	Diagnosticity      map[string]float64 // hypothesis UID -> score
	HistoricalAccuracy float64
	EvidenceCreatedAt  []time.Time
}

// Scan computes the full QualityReport and applies the alert thresholds.
func Scan(in Input) contracts.QualityReport {
	report := contracts.QualityReport{
		CaseUID:              in.CaseUID,
		EntityResolutionRate: entityResolutionRate(in.Entities),
		RelationCoverage:     relationCoverage(in.Entities, in.RelationFacts),
		UnresolvedConflictCount: unresolvedConflicts(in.Assertions),
		EvidenceCoverage:     evidenceCoverage(in.Hypotheses, in.Assessments),
		AvgDiagnosticity:     avg(in.Diagnosticity),
		HistoricalAccuracy:   in.HistoricalAccuracy,
		AvgEvidenceAgeHours:  avgAgeHours(in.EvidenceCreatedAt),
		GeneratedAt:          time.Now().UTC(),
	}

	var alerts []string
	if report.EvidenceCoverage < evidenceCoverageAlertFloor {
		alerts = append(alerts, "evidence_coverage_low")
	}
	if report.UnresolvedConflictCount > unresolvedConflictAlertMax {
		alerts = append(alerts, "unresolved_conflicts_high")
	}
	if report.AvgDiagnosticity < avgDiagnosticityAlertFloor {
		alerts = append(alerts, "avg_diagnosticity_low")
	}
	if alerts == nil {
		alerts = []string{}
	}
	report.Alerts = alerts
	return report
}

func entityResolutionRate(entities []contracts.Entity) float64 {
	if len(entities) == 0 {
		return 0
	}
	resolved := 0
	for _, e := range entities {
		if e.Name != "" {
			resolved++
		}
	}
	return float64(resolved) / float64(len(entities))
}

func relationCoverage(entities []contracts.Entity, relations []contracts.RelationFact) float64 {
	if len(entities) == 0 {
		return 0
	}
	connected := make(map[string]bool)
	for _, r := range relations {
		connected[r.SourceEntityUID] = true
		connected[r.TargetEntityUID] = true
	}
	count := 0
	for _, e := range entities {
		if connected[e.UID] {
			count++
		}
	}
	return float64(count) / float64(len(entities))
}

func unresolvedConflicts(assertions []contracts.Assertion) int {
	n := 0
	for _, a := range assertions {
		if a.Value.HasConflict {
			n++
		}
	}
	return n
}

// evidenceCoverage is the share of hypotheses carrying at least one
// evidence assessment.
func evidenceCoverage(hypotheses []contracts.Hypothesis, assessments []contracts.EvidenceAssessment) float64 {
	if len(hypotheses) == 0 {
		return 0
	}
	assessed := make(map[string]bool)
	for _, a := range assessments {
		assessed[a.HypothesisUID] = true
	}
	count := 0
	for _, h := range hypotheses {
		if assessed[h.UID] {
			count++
		}
	}
	return float64(count) / float64(len(hypotheses))
}

func avg(m map[string]float64) float64 {
	if len(m) == 0 {
		return 0
	}
	var sum float64
	for _, v := range m {
		sum += v
	}
	return sum / float64(len(m))
}

func avgAgeHours(timestamps []time.Time) float64 {
	if len(timestamps) == 0 {
		return 0
	}
	now := time.Now().UTC()
	var total float64
	for _, t := range timestamps {
		total += now.Sub(t).Hours()
	}
	return total / float64(len(timestamps))
}
