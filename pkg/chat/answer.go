package chat

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

// minClaimsForConfidence is the claim count below which sources are
// flagged insufficient regardless of what the LLM produced.
const minClaimsForConfidence = 2

// StructuredInvoker is the narrow LLM slice used to synthesize an
// answer and its citations from retrieved claims.
type StructuredInvoker interface {
	InvokeStructured(ctx context.Context, req contracts.LLMInvocationRequest, prompt string, out any) (contracts.ToolTrace, error)
}

type synthesisResponse struct {
	AnswerText string   `json:"answer_text"`
	CitedUIDs  []string `json:"cited_claim_uids"`
}

var citationIndexRe = regexp.MustCompile(`\[(\d+)\]`)

// synthesize asks the LLM to answer question from claims, renders the
// response through the grounding gate, and derives risk flags. An LLM
// failure or an uncited synthesis both degrade to a withheld answer
// rather than an unsupported assertion.
func synthesize(ctx context.Context, llm StructuredInvoker, caseUID, question, traceID string, claims []contracts.SourceClaim, budget contracts.BudgetContext) contracts.AnswerV1 {
	answer := contracts.AnswerV1{
		TraceID: traceID, CaseUID: caseUID, Question: question,
		Plan: planQuery(question), CreatedAt: time.Now().UTC(),
	}

	riskFlags := riskFlagsFor(claims)
	answer.RiskFlags = riskFlags

	if llm == nil || len(claims) == 0 {
		answer.AnswerType = contracts.HYPOTHESIS
		answer.CannotAnswerReason = "evidence_insufficient"
		return answer
	}

	var resp synthesisResponse
	_, err := llm.InvokeStructured(ctx, contracts.LLMInvocationRequest{TraceID: traceID, Budget: budget}, buildSynthesisPrompt(question, claims), &resp)
	if err != nil {
		answer.AnswerType = contracts.HYPOTHESIS
		answer.CannotAnswerReason = "evidence_insufficient"
		return answer
	}

	citations := citationsFor(resp, claims)
	answer.EvidenceCitations = citations

	gated := contracts.Gate(len(citations) > 0, contracts.FACT)
	answer.AnswerType = gated

	if gated == contracts.HYPOTHESIS {
		answer.AnswerText = ""
		answer.CannotAnswerReason = "evidence_insufficient"
		return answer
	}

	answer.AnswerText = resp.AnswerText
	return answer
}

func citationsFor(resp synthesisResponse, claims []contracts.SourceClaim) []contracts.EvidenceCitation {
	byUID := make(map[string]contracts.SourceClaim, len(claims))
	for _, c := range claims {
		byUID[c.UID] = c
	}

	seen := make(map[string]bool)
	var out []contracts.EvidenceCitation
	for _, uid := range resp.CitedUIDs {
		if c, ok := byUID[uid]; ok && !seen[uid] {
			seen[uid] = true
			out = append(out, contracts.EvidenceCitation{ClaimUID: c.UID, Quote: c.Text, AttributedTo: c.AttributedTo})
		}
	}

	// Also honor [N]-style inline citation indices against the
	// retrieved claim order, in case the model cited by index instead
	// of UID.
	for _, m := range citationIndexRe.FindAllStringSubmatch(resp.AnswerText, -1) {
		idx, err := strconv.Atoi(m[1])
		if err != nil || idx < 1 || idx > len(claims) {
			continue
		}
		c := claims[idx-1]
		if !seen[c.UID] {
			seen[c.UID] = true
			out = append(out, contracts.EvidenceCitation{ClaimUID: c.UID, Quote: c.Text, AttributedTo: c.AttributedTo})
		}
	}
	return out
}

// riskFlagsFor inspects the retrieved claim set itself, independent of
// what the LLM ultimately says.
func riskFlagsFor(claims []contracts.SourceClaim) []string {
	var flags []string
	if len(claims) < minClaimsForConfidence {
		flags = append(flags, "sources_insufficient")
	}
	if conflictingTimeRanges(claims) {
		flags = append(flags, "time_range_conflict")
	}
	return flags
}

// conflictingTimeRanges reports whether the claim set spans a gap so
// large it suggests two unrelated events were retrieved together: the
// newest claim is more than 365 days after the oldest.
func conflictingTimeRanges(claims []contracts.SourceClaim) bool {
	if len(claims) < 2 {
		return false
	}
	var min, max time.Time
	for i, c := range claims {
		if i == 0 || c.CreatedAt.Before(min) {
			min = c.CreatedAt
		}
		if i == 0 || c.CreatedAt.After(max) {
			max = c.CreatedAt
		}
	}
	return max.Sub(min) > 365*24*time.Hour
}

func buildSynthesisPrompt(question string, claims []contracts.SourceClaim) string {
	var b strings.Builder
	b.WriteString("Answer the question using ONLY the numbered claims below. Cite every fact with its claim UID in cited_claim_uids and with a [N] index inline in answer_text. If the claims do not support an answer, return an empty answer_text.\n\n")
	fmt.Fprintf(&b, "Question: %s\n\n", question)
	for i, c := range claims {
		fmt.Fprintf(&b, "[%d] (%s) %s\n", i+1, c.UID, c.Text)
	}
	return b.String()
}
