package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewService(t *testing.T) {
	svc := NewService(Config{Enabled: true})

	assert.NotNil(t, svc)
	assert.NotEmpty(t, svc.patterns, "should have compiled patterns")
	assert.NotEmpty(t, svc.codeMaskers, "should have registered code maskers")
	assert.Contains(t, svc.codeMaskers, "structured_credential")
}

func TestMaskText_EmptyContent(t *testing.T) {
	svc := NewService(Config{Enabled: true})
	assert.Empty(t, svc.MaskText(""))
}

func TestMaskText_Disabled(t *testing.T) {
	svc := NewService(Config{Enabled: false})
	content := "contact analyst at jane.doe@example.com"
	assert.Equal(t, content, svc.MaskText(content))
}

func TestMaskText_MasksEmail(t *testing.T) {
	svc := NewService(Config{Enabled: true, PatternGroup: "pii"})
	result := svc.MaskText("contact jane.doe@example.com for follow-up")
	assert.NotContains(t, result, "jane.doe@example.com")
	assert.Contains(t, result, "[MASKED_EMAIL]")
}

func TestMaskText_MasksSSN(t *testing.T) {
	svc := NewService(Config{Enabled: true, PatternGroup: "pii"})
	result := svc.MaskText("subject SSN 123-45-6789 on file")
	assert.NotContains(t, result, "123-45-6789")
	assert.Contains(t, result, "[MASKED_SSN]")
}

func TestMaskText_UnknownGroupPassesThrough(t *testing.T) {
	svc := NewService(Config{Enabled: true, PatternGroup: "nonexistent"})
	content := "jane.doe@example.com"
	assert.Equal(t, content, svc.MaskText(content))
}

func TestMaskText_MasksStructuredCredential(t *testing.T) {
	svc := NewService(Config{Enabled: true, PatternGroup: "pii"})
	content := `{"kind":"ScrapedConfig","password":"hunter2"}`
	result := svc.MaskText(content)
	assert.NotContains(t, result, "hunter2")
	assert.Contains(t, result, MaskedCredentialValue)
}

func TestMaskText_DefaultsPatternGroupToPII(t *testing.T) {
	svc := NewService(Config{Enabled: true})
	result := svc.MaskText("jane.doe@example.com")
	assert.Contains(t, result, "[MASKED_EMAIL]")
}
