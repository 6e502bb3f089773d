package llmclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegi-platform/aegi-core/pkg/apperrors"
	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

func TestInvoke_ReturnsModelText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "hello"}},
			},
		})
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL, DefaultModel: "test-model"})
	result, err := c.Invoke(context.Background(), contracts.LLMInvocationRequest{TraceID: "t1"}, "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello", result.Text)
	assert.Equal(t, "ok", result.Trace.Status)
}

func TestInvoke_DegradesOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL})
	result, err := c.Invoke(context.Background(), contracts.LLMInvocationRequest{}, "hi")
	require.Error(t, err)
	require.NotNil(t, result.Degraded)
	assert.Equal(t, contracts.ReasonModelUnavailable, result.Degraded.Reason)

	var de *apperrors.DegradedError
	require.ErrorAs(t, err, &de)
}

func TestInvoke_DegradesOnBudgetDeadlineAlreadyPassed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{"choices": []map[string]any{}})
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL})
	budget := contracts.BudgetContext{DeadlineUnixMS: time.Now().Add(-time.Second).UnixMilli()}
	_, err := c.Invoke(context.Background(), contracts.LLMInvocationRequest{Budget: budget}, "hi")
	require.Error(t, err)
}

func TestEmbed_PreservesInputOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"index": 1, "embedding": []float32{0.2}},
				{"index": 0, "embedding": []float32{0.1}},
			},
		})
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL})
	result, err := c.Embed(context.Background(), contracts.BudgetContext{}, []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, result.Vectors, 2)
	assert.Equal(t, float32(0.1), result.Vectors[0][0])
	assert.Equal(t, float32(0.2), result.Vectors[1][0])
}

func TestInvokeStructured_UnmarshalsJSONResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": `{"label":"x","confidence":0.5}`}},
			},
		})
	}))
	defer server.Close()

	var out struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	}
	c := NewClient(Config{BaseURL: server.URL})
	_, err := c.InvokeStructured(context.Background(), contracts.LLMInvocationRequest{}, "classify", &out)
	require.NoError(t, err)
	assert.Equal(t, "x", out.Label)
	assert.Equal(t, 0.5, out.Confidence)
}
