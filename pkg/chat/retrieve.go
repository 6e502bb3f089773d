package chat

import (
	"context"
	"log/slog"
	"strings"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
	"github.com/aegi-platform/aegi-core/pkg/llmclient"
	"github.com/aegi-platform/aegi-core/pkg/vectorstore"
)

// vectorSearchFloor is the minimum similarity score for a vector hit
// to be treated as relevant, below which retrieve falls back to a
// keyword scan.
const vectorSearchFloor = 0.3

// Embedder is the narrow LLM slice retrieve needs to embed a question.
type Embedder interface {
	Embed(ctx context.Context, budget contracts.BudgetContext, texts []string) (llmclient.EmbedResult, error)
}

// VectorSearcher is the narrow vectorstore.Store slice retrieve needs.
type VectorSearcher interface {
	Search(ctx context.Context, embedding []float32, limit int, scoreThreshold float32) ([]vectorstore.Result, error)
}

// retrieve finds claims relevant to question: a vector search over
// embedded claim text when available and above vectorSearchFloor,
// falling back to a plain keyword scan of claims otherwise.
func retrieve(ctx context.Context, embedder Embedder, vectors VectorSearcher, claims []contracts.SourceClaim, question string, budget contracts.BudgetContext, logger *slog.Logger) []contracts.SourceClaim {
	if embedder != nil && vectors != nil {
		embedded, err := embedder.Embed(ctx, budget, []string{question})
		if err == nil && embedded.Degraded == nil && len(embedded.Vectors) > 0 {
			hits, searchErr := vectors.Search(ctx, embedded.Vectors[0], 10, vectorSearchFloor)
			if searchErr == nil && len(hits) > 0 {
				return claimsFromHits(hits, claims)
			}
		} else if logger != nil {
			logger.Warn("chat retrieve: embedding unavailable, falling back to keyword search", "error", err)
		}
	}
	return keywordSearch(claims, question)
}

func claimsFromHits(hits []vectorstore.Result, claims []contracts.SourceClaim) []contracts.SourceClaim {
	byUID := make(map[string]contracts.SourceClaim, len(claims))
	for _, c := range claims {
		byUID[c.UID] = c
	}
	out := make([]contracts.SourceClaim, 0, len(hits))
	for _, h := range hits {
		if c, ok := byUID[h.ID]; ok {
			out = append(out, c)
		}
	}
	return out
}

// keywordSearch returns every claim whose text contains at least one
// non-trivial token from question, case-insensitively.
func keywordSearch(claims []contracts.SourceClaim, question string) []contracts.SourceClaim {
	tokens := significantTokens(question)
	if len(tokens) == 0 {
		return nil
	}

	var out []contracts.SourceClaim
	for _, c := range claims {
		lowerText := strings.ToLower(c.Text)
		for _, tok := range tokens {
			if strings.Contains(lowerText, tok) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true, "was": true,
	"were": true, "of": true, "to": true, "in": true, "on": true, "and": true,
	"or": true, "what": true, "who": true, "how": true, "did": true, "does": true,
	"do": true, "with": true, "for": true, "that": true, "this": true, "it": true,
}

func significantTokens(question string) []string {
	var out []string
	for _, tok := range strings.Fields(strings.ToLower(question)) {
		tok = strings.Trim(tok, ".,?!;:\"'")
		if len(tok) < 3 || stopwords[tok] {
			continue
		}
		out = append(out, tok)
	}
	return out
}
