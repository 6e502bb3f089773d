package fusion

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
	"github.com/google/uuid"
)

// Conflict records one detected contradiction between two claims folded
// into the same assertion group.
type Conflict struct {
	ClaimUIDA    string `json:"claim_uid_a"`
	ClaimUIDB    string `json:"claim_uid_b"`
	ConflictType string `json:"conflict_type"` // "value_conflict" | "modality_conflict"
	Rationale    string `json:"rationale"`
}

var (
	negationMarkers = []string{"denied", "denies", "deny", "refuted", "refutes", "did not"}
	assertionMarkers = []string{"confirmed", "confirms", "deployed", "conducted", "announced"}
)

func containsAny(text string, markers []string) bool {
	lower := strings.ToLower(text)
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// conflicts reports whether two claims attributed to the same source
// contradict each other: one asserts an action occurred, the other
// denies it.
func conflictBetween(a, b contracts.SourceClaim) (Conflict, bool) {
	if a.AttributedTo == "" || a.AttributedTo != b.AttributedTo {
		return Conflict{}, false
	}
	aNeg, bNeg := containsAny(a.Text, negationMarkers), containsAny(b.Text, negationMarkers)
	aPos, bPos := containsAny(a.Text, assertionMarkers), containsAny(b.Text, assertionMarkers)

	if (aPos && bNeg) || (aNeg && bPos) {
		return Conflict{
			ClaimUIDA: a.UID, ClaimUIDB: b.UID, ConflictType: "value_conflict",
			Rationale: fmt.Sprintf("%s both asserts and denies the same action across claims %s/%s", a.AttributedTo, a.UID, b.UID),
		}, true
	}
	if a.Modality != "" && b.Modality != "" && a.Modality != b.Modality {
		return Conflict{
			ClaimUIDA: a.UID, ClaimUIDB: b.UID, ConflictType: "modality_conflict",
			Rationale: fmt.Sprintf("claims %s/%s carry incompatible modalities %q/%q", a.UID, b.UID, a.Modality, b.Modality),
		}, true
	}
	return Conflict{}, false
}

// group is a union-find partition of claims: conflicting claims are
// folded into the same group so the resulting assertion carries
// has_conflict and cites every party to the disagreement.
type group struct {
	parent map[string]string
}

func newGroup(claims []contracts.SourceClaim) *group {
	g := &group{parent: make(map[string]string, len(claims))}
	for _, c := range claims {
		g.parent[c.UID] = c.UID
	}
	return g
}

func (g *group) find(x string) string {
	for g.parent[x] != x {
		g.parent[x] = g.parent[g.parent[x]]
		x = g.parent[x]
	}
	return x
}

func (g *group) union(a, b string) {
	ra, rb := g.find(a), g.find(b)
	if ra != rb {
		g.parent[ra] = rb
	}
}

// FuseResult is the complete output of FuseClaims: fused assertions, the
// conflicts folded into them, and the audit trail of the operation.
type FuseResult struct {
	Assertions []contracts.Assertion
	Conflicts  []Conflict
	Action     contracts.Action
	ToolTrace  contracts.ToolTrace
}

// FuseClaims groups claims into assertions, merging contradicting claims
// from the same attributed source into one conflicted assertion and
// leaving every other claim as its own single-source assertion. The
// fold order within each group is fixed by claim UID, so conflict
// detection and DS combination are both deterministic across runs.
func FuseClaims(caseUID string, claims []contracts.SourceClaim) FuseResult {
	traceID := uuid.NewString()
	started := time.Now()

	if len(claims) == 0 {
		return FuseResult{
			Assertions: []contracts.Assertion{},
			Conflicts:  []Conflict{},
			Action: contracts.Action{
				UID: uuid.NewString(), CaseUID: caseUID, TraceID: traceID,
				Kind: "assertion_fuse", Rationale: "empty claim set, nothing to fuse",
				CreatedAt: time.Now().UTC(),
			},
			ToolTrace: contracts.ToolTrace{
				UID: uuid.NewString(), TraceID: traceID, Capability: "fusion.fuse_claims",
				Status: "rejected", DurationMS: time.Since(started).Milliseconds(),
				CreatedAt: time.Now().UTC(),
			},
		}
	}

	sorted := make([]contracts.SourceClaim, len(claims))
	copy(sorted, claims)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].UID < sorted[j].UID })

	g := newGroup(sorted)
	var conflicts []Conflict
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if c, ok := conflictBetween(sorted[i], sorted[j]); ok {
				conflicts = append(conflicts, c)
				g.union(sorted[i].UID, sorted[j].UID)
			}
		}
	}
	if conflicts == nil {
		conflicts = []Conflict{}
	}

	byRoot := make(map[string][]contracts.SourceClaim)
	var rootOrder []string
	for _, c := range sorted {
		root := g.find(c.UID)
		if _, seen := byRoot[root]; !seen {
			rootOrder = append(rootOrder, root)
		}
		byRoot[root] = append(byRoot[root], c)
	}

	conflictedRoots := make(map[string]bool)
	for _, c := range conflicts {
		conflictedRoots[g.find(c.ClaimUIDA)] = true
	}

	assertions := make([]contracts.Assertion, 0, len(rootOrder))
	for _, root := range rootOrder {
		members := byRoot[root]
		a := Fuse(caseUID, members)
		a.UID = uuid.NewString()
		if conflictedRoots[root] {
			a.Value.HasConflict = true
		}
		assertions = append(assertions, a)
	}

	return FuseResult{
		Assertions: assertions,
		Conflicts:  conflicts,
		Action: contracts.Action{
			UID: uuid.NewString(), CaseUID: caseUID, TraceID: traceID,
			Kind: "assertion_fuse", CreatedAt: time.Now().UTC(),
		},
		ToolTrace: contracts.ToolTrace{
			UID: uuid.NewString(), TraceID: traceID, Capability: "fusion.fuse_claims",
			Status: "ok", DurationMS: time.Since(started).Milliseconds(),
			CreatedAt: time.Now().UTC(),
		},
	}
}
