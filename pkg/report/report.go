// Package report renders a case's analytical state into a structured,
// citation-bearing Report, degrading gracefully (missing sections
// rather than a failed request) when any upstream input is thin.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

// Masker redacts PII/credential-shaped text before it is surfaced in a
// rendered report section. Satisfied by *masking.Service; kept as a
// narrow interface here to avoid report depending on masking's
// pattern-compilation internals.
type Masker interface {
	MaskText(content string) string
}

// Input bundles every upstream artifact the report draws sections from.
type Input struct {
	CaseUID    string
	TraceID    string
	Hypotheses []contracts.Hypothesis
	Forecasts  []contracts.Forecast
	Narratives []contracts.Narrative
	Quality    *contracts.QualityReport
	Biases     []contracts.BiasFlag
	Blindspots []contracts.Blindspot
	Masker     Masker
}

// Generate builds a Report from in. Any missing upstream slice simply
// omits its section rather than failing the whole report, and Degraded
// is set when at least one expected section could not be produced.
func Generate(in Input) contracts.Report {
	var sections []contracts.ReportSection
	degraded := false

	if len(in.Hypotheses) > 0 {
		sections = append(sections, hypothesesSection(in.Hypotheses))
	} else {
		degraded = true
	}

	if len(in.Forecasts) > 0 {
		sections = append(sections, forecastsSection(in.Forecasts, in.Hypotheses))
	} else {
		degraded = true
	}

	if len(in.Narratives) > 0 {
		sections = append(sections, narrativesSection(in.Narratives))
	}

	if in.Quality != nil {
		sections = append(sections, qualitySection(*in.Quality))
	} else {
		degraded = true
	}

	if len(in.Biases) > 0 || len(in.Blindspots) > 0 {
		sections = append(sections, cautionsSection(in.Biases, in.Blindspots))
	}

	if in.Masker != nil {
		for i := range sections {
			sections[i].Markdown = in.Masker.MaskText(sections[i].Markdown)
		}
	}

	return contracts.Report{
		UID: contracts.MintUID("report"), CaseUID: in.CaseUID, TraceID: in.TraceID,
		Sections: sections, Degraded: degraded, CreatedAt: time.Now().UTC(),
	}
}

func hypothesesSection(hypotheses []contracts.Hypothesis) contracts.ReportSection {
	sorted := make([]contracts.Hypothesis, len(hypotheses))
	copy(sorted, hypotheses)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Posterior > sorted[j].Posterior })

	var b strings.Builder
	for _, h := range sorted {
		fmt.Fprintf(&b, "- **%s** — posterior %.2f (prior %.2f)\n", h.Label, h.Posterior, h.Prior)
	}
	return contracts.ReportSection{Title: "Competing Hypotheses", Markdown: b.String()}
}

func forecastsSection(forecasts []contracts.Forecast, hypotheses []contracts.Hypothesis) contracts.ReportSection {
	labelByUID := make(map[string]string, len(hypotheses))
	for _, h := range hypotheses {
		labelByUID[h.UID] = h.Label
	}

	var b strings.Builder
	for _, f := range forecasts {
		label := labelByUID[f.HypothesisUID]
		if label == "" {
			label = f.HypothesisUID
		}
		b.WriteString("### " + label + "\n")
		b.WriteString("Status: " + string(f.Status) + "\n\n")
		if f.Probability != nil {
			fmt.Fprintf(&b, "Probability: %.2f\n\n", *f.Probability)
		} else {
			b.WriteString("Probability: withheld (insufficient grounding)\n\n")
		}
		for _, c := range f.EvidenceCitations {
			b.WriteString(fmt.Sprintf("  [%s] %q\n", c.ClaimUID, c.Quote))
		}
		b.WriteString("\nAlternatives: " + strings.Join(f.Alternatives, "; ") + "\n\n")
	}
	return contracts.ReportSection{Title: "Forecasts", Markdown: b.String()}
}

func narrativesSection(narratives []contracts.Narrative) contracts.ReportSection {
	var b strings.Builder
	for _, n := range narratives {
		fmt.Fprintf(&b, "- %s (%d claims, %s to %s)\n", n.Theme, len(n.SourceClaimUIDs),
			n.StartsAt.Format(time.RFC3339), n.EndsAt.Format(time.RFC3339))
	}
	return contracts.ReportSection{Title: "Narratives", Markdown: b.String()}
}

func qualitySection(q contracts.QualityReport) contracts.ReportSection {
	var b strings.Builder
	fmt.Fprintf(&b, "- Entity resolution rate: %.0f%%\n", q.EntityResolutionRate*100)
	fmt.Fprintf(&b, "- Relation coverage: %.0f%%\n", q.RelationCoverage*100)
	fmt.Fprintf(&b, "- Unresolved conflicts: %d\n", q.UnresolvedConflictCount)
	fmt.Fprintf(&b, "- Evidence coverage: %.0f%%\n", q.EvidenceCoverage*100)
	fmt.Fprintf(&b, "- Average diagnosticity: %.2f\n", q.AvgDiagnosticity)
	if len(q.Alerts) > 0 {
		b.WriteString("- Alerts: " + strings.Join(q.Alerts, ", ") + "\n")
	}
	return contracts.ReportSection{Title: "Quality Gate", Markdown: b.String()}
}

func cautionsSection(biases []contracts.BiasFlag, blindspots []contracts.Blindspot) contracts.ReportSection {
	var b strings.Builder
	for _, bf := range biases {
		fmt.Fprintf(&b, "- bias(%s): %s\n", bf.Kind, bf.Detail)
	}
	for _, bs := range blindspots {
		fmt.Fprintf(&b, "- blindspot(%s, %s): %s\n", bs.Kind, bs.Severity, bs.Detail)
	}
	return contracts.ReportSection{Title: "Analytical Cautions", Markdown: b.String()}
}
