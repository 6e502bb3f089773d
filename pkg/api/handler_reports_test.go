package api

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aegi-platform/aegi-core/pkg/pipeline"
)

func TestStageErrors_FiltersNonErrorStatuses(t *testing.T) {
	results := []pipeline.StageResult{
		{Stage: "claims", Status: "success"},
		{Stage: "forecast", Status: "error", Error: "llm timeout"},
		{Stage: "report", Status: "skipped"},
	}

	got := stageErrors(results)

	assert.Equal(t, []string{"forecast: llm timeout"}, got)
}

func TestStageErrors_NoErrors(t *testing.T) {
	results := []pipeline.StageResult{{Stage: "claims", Status: "success"}}
	assert.Nil(t, stageErrors(results))
}
