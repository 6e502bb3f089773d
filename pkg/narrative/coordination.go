package narrative

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

func timeHours(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}

// CoordinationSignal flags a narrative cluster whose claims propagated
// with both high mutual similarity and a sharp time burst, a pattern
// consistent with coordinated dissemination rather than organic spread.
// It is never asserted as fact: false_positive_explanation is always
// populated so downstream consumers can render the caveat.
type CoordinationSignal struct {
	GroupID                  string   `json:"group_id"`
	NarrativeUID              string   `json:"narrative_uid"`
	SourceClaimUIDs           []string `json:"source_claim_uids"`
	SimilarityScore           float64  `json:"similarity_score"`
	TimeBurstScore            float64  `json:"time_burst_score"`
	Confidence                float64  `json:"confidence"`
	FalsePositiveExplanation string   `json:"false_positive_explanation"`
}

// CoordinationConfig tunes DetectCoordination. Zero values fall back to
// production defaults.
type CoordinationConfig struct {
	BurstWindowHours    float64
	SimilarityThreshold float64
	MinClusterSize      int
	ConfidenceThreshold float64
	Embeddings          map[string][]float32
}

func (c CoordinationConfig) resolved() CoordinationConfig {
	if c.BurstWindowHours <= 0 {
		c.BurstWindowHours = 1.0
	}
	if c.SimilarityThreshold <= 0 {
		c.SimilarityThreshold = 0.5
	}
	if c.MinClusterSize <= 0 {
		c.MinClusterSize = 3
	}
	if c.ConfidenceThreshold <= 0 {
		c.ConfidenceThreshold = 0.6
	}
	return c
}

func pairwiseSimilarity(claims []contracts.SourceClaim, embeddings map[string][]float32) float64 {
	if len(claims) < 2 {
		return 0
	}
	var total float64
	var count int
	for i := 0; i < len(claims); i++ {
		for j := i + 1; j < len(claims); j++ {
			total += similarity(claims[i], claims[j], embeddings)
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

func timeBurstScore(claims []contracts.SourceClaim, burstWindowHours float64) float64 {
	if len(claims) < 2 {
		return 0
	}
	earliest := claims[0].CreatedAt
	for _, c := range claims[1:] {
		if c.CreatedAt.Before(earliest) {
			earliest = c.CreatedAt
		}
	}
	window := timeHours(burstWindowHours)
	var inWindow int
	for _, c := range claims {
		if c.CreatedAt.Sub(earliest) <= window {
			inWindow++
		}
	}
	return float64(inWindow) / float64(len(claims))
}

func round4(v float64) float64 {
	return float64(int(v*10000+0.5)) / 10000
}

// DetectCoordination scans every narrative cluster produced by
// BuildNarratives for signs of coordinated propagation: clusters with
// at least MinClusterSize claims, whose average pairwise similarity
// clears SimilarityThreshold, are scored on a 0-1 confidence blending
// similarity and a time-burst fraction. Every signal carries a
// false_positive_explanation — natural viral spread is never ruled out.
func DetectCoordination(sourceClaimUIDsMap map[string][]string, claims []contracts.SourceClaim, cfg CoordinationConfig) []CoordinationSignal {
	cfg = cfg.resolved()

	claimByUID := make(map[string]contracts.SourceClaim, len(claims))
	for _, c := range claims {
		claimByUID[c.UID] = c
	}

	var signals []CoordinationSignal
	for narUID, claimUIDs := range sourceClaimUIDsMap {
		var cluster []contracts.SourceClaim
		for _, uid := range claimUIDs {
			if c, ok := claimByUID[uid]; ok {
				cluster = append(cluster, c)
			}
		}
		if len(cluster) < cfg.MinClusterSize {
			continue
		}

		sim := pairwiseSimilarity(cluster, cfg.Embeddings)
		burst := timeBurstScore(cluster, cfg.BurstWindowHours)
		confidence := (sim + burst) / 2.0

		if sim < cfg.SimilarityThreshold {
			continue
		}

		var explanation string
		if confidence < cfg.ConfidenceThreshold {
			explanation = fmt.Sprintf(
				"low_confidence: similarity=%.2f, burst=%.2f; natural propagation cannot be ruled out",
				sim, burst,
			)
		} else {
			explanation = fmt.Sprintf(
				"high similarity (%.2f) with time burst (%.2f) suggests coordinated dissemination",
				sim, burst,
			)
		}

		signals = append(signals, CoordinationSignal{
			GroupID:                   "coord-" + uuid.NewString()[:8],
			NarrativeUID:              narUID,
			SourceClaimUIDs:           claimUIDs,
			SimilarityScore:           round4(sim),
			TimeBurstScore:            round4(burst),
			Confidence:                round4(confidence),
			FalsePositiveExplanation: explanation,
		})
	}
	if signals == nil {
		signals = []CoordinationSignal{}
	}
	return signals
}
