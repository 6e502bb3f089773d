// Package llmclient provides the single capability abstraction every
// analysis stage uses to reach a language model: embed, invoke, and
// invoke_structured, each honoring a BudgetContext deadline and token cap
// and degrading to a DegradedOutput rather than panicking or blocking
// forever when the model is unavailable or the budget is exhausted.
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aegi-platform/aegi-core/pkg/apperrors"
	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

// Client talks to an OpenAI-compatible completion/embedding endpoint
// (a LiteLLM proxy in front of the deployed model).
type Client struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	defaultModel string
	embedModel   string
	extraHeaders map[string]string
	logger       *slog.Logger
}

// Config configures Client construction.
type Config struct {
	BaseURL      string
	APIKey       string
	DefaultModel string
	EmbedModel   string
	ExtraHeaders map[string]string
	Timeout      time.Duration
}

// NewClient builds a Client against an OpenAI-compatible base URL.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		httpClient:   &http.Client{Timeout: timeout},
		baseURL:      cfg.BaseURL,
		apiKey:       cfg.APIKey,
		defaultModel: cfg.DefaultModel,
		embedModel:   cfg.EmbedModel,
		extraHeaders: cfg.ExtraHeaders,
		logger:       slog.Default().With("component", "llmclient"),
	}
}

// InvocationResult is the outcome of Invoke: either Text is populated, or
// Degraded is non-nil and Text must not be consulted.
type InvocationResult struct {
	Text     string
	Trace    contracts.ToolTrace
	Degraded *contracts.DegradedOutput
}

// Invoke sends a single-turn prompt and returns the model's text plus a
// ToolTrace recording the call, honoring req.Budget.DeadlineUnixMS.
func (c *Client) Invoke(ctx context.Context, req contracts.LLMInvocationRequest, prompt string) (InvocationResult, error) {
	ctx, cancel := c.boundContext(ctx, req.Budget)
	defer cancel()

	model := req.ModelID
	if model == "" {
		model = c.defaultModel
	}

	body := chatRequest{
		Model:     model,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens: req.Budget.MaxTokens,
	}

	started := time.Now()
	var resp chatResponse
	if err := c.doJSON(ctx, "/chat/completions", body, &resp); err != nil {
		trace := contracts.ToolTrace{
			TraceID: req.TraceID, Capability: "llm.invoke", Request: prompt,
			Error: err.Error(), Status: "error", DurationMS: time.Since(started).Milliseconds(),
		}
		degraded := contracts.DegradedOutput{Reason: contracts.ReasonModelUnavailable, Detail: err.Error()}
		return InvocationResult{Trace: trace, Degraded: &degraded}, apperrors.NewDegradedError(degraded)
	}

	text := ""
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
	}
	trace := contracts.ToolTrace{
		TraceID: req.TraceID, Capability: "llm.invoke", Request: prompt, Response: text,
		Status: "ok", DurationMS: time.Since(started).Milliseconds(),
	}
	return InvocationResult{Text: text, Trace: trace}, nil
}

// InvokeStructured invokes the model and unmarshals its response into out,
// which must be a pointer. The caller supplies a JSON schema description
// inlined into the prompt by convention (LiteLLM response_format support
// varies by backend, so the schema is carried in-band rather than assumed).
func (c *Client) InvokeStructured(ctx context.Context, req contracts.LLMInvocationRequest, prompt string, out any) (contracts.ToolTrace, error) {
	result, err := c.Invoke(ctx, req, prompt)
	if err != nil {
		return result.Trace, err
	}
	if jsonErr := json.Unmarshal([]byte(result.Text), out); jsonErr != nil {
		return result.Trace, apperrors.NewDegradedError(contracts.DegradedOutput{
			Reason: contracts.ReasonModelUnavailable,
			Detail: fmt.Sprintf("model response was not valid JSON for the requested schema: %v", jsonErr),
		})
	}
	return result.Trace, nil
}

// EmbedResult is the outcome of Embed.
type EmbedResult struct {
	Vectors  [][]float32
	Degraded *contracts.DegradedOutput
}

// Embed returns one embedding vector per input text.
func (c *Client) Embed(ctx context.Context, budget contracts.BudgetContext, texts []string) (EmbedResult, error) {
	ctx, cancel := c.boundContext(ctx, budget)
	defer cancel()

	model := c.embedModel
	if model == "" {
		model = c.defaultModel
	}

	body := embedRequest{Model: model, Input: texts}
	var resp embedResponse
	if err := c.doJSON(ctx, "/embeddings", body, &resp); err != nil {
		degraded := contracts.DegradedOutput{Reason: contracts.ReasonModelUnavailable, Detail: err.Error()}
		return EmbedResult{Degraded: &degraded}, apperrors.NewDegradedError(degraded)
	}

	vectors := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		if d.Index >= 0 && d.Index < len(vectors) {
			vectors[d.Index] = d.Embedding
		}
	}
	return EmbedResult{Vectors: vectors}, nil
}

func (c *Client) boundContext(ctx context.Context, budget contracts.BudgetContext) (context.Context, context.CancelFunc) {
	if budget.DeadlineUnixMS <= 0 {
		return context.WithTimeout(ctx, 60*time.Second)
	}
	deadline := time.UnixMilli(budget.DeadlineUnixMS)
	return context.WithDeadline(ctx, deadline)
}

func (c *Client) doJSON(ctx context.Context, path string, reqBody, respBody any) error {
	raw, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	for k, v := range c.extraHeaders {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("llm request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read llm response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("llm endpoint returned status %d: %s", resp.StatusCode, string(data))
	}
	if err := json.Unmarshal(data, respBody); err != nil {
		return fmt.Errorf("unmarshal llm response: %w", err)
	}
	return nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}
