package slack

import (
	"strings"
	"testing"
	"unicode/utf8"

	goslack "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAlertMessage_Critical(t *testing.T) {
	blocks := BuildAlertMessage(Alert{
		CaseUID: "case-1", EventType: "gdelt.anomaly_detected", Severity: "critical",
		Headline: "Extreme conflict escalation detected", Detail: "Goldstein -9.2 in region X",
		DashboardURL: "https://dash.example.com",
	})

	require.Len(t, blocks, 3)

	header := blocks[0].(*goslack.SectionBlock)
	assert.Contains(t, header.Text.Text, ":rotating_light:")
	assert.Contains(t, header.Text.Text, "Extreme conflict escalation detected")

	detail := blocks[1].(*goslack.SectionBlock)
	assert.Contains(t, detail.Text.Text, "Goldstein -9.2 in region X")

	action := blocks[2].(*goslack.ActionBlock)
	btn := action.Elements.ElementSet[0].(*goslack.ButtonBlockElement)
	assert.Equal(t, "View Case", btn.Text.Text)
	assert.Contains(t, btn.URL, "https://dash.example.com/cases/case-1")
}

func TestBuildAlertMessage_UnknownSeverityFallsBackToBell(t *testing.T) {
	blocks := BuildAlertMessage(Alert{CaseUID: "case-2", Headline: "New narrative formed"})
	header := blocks[0].(*goslack.SectionBlock)
	assert.Contains(t, header.Text.Text, ":bell:")
}

func TestBuildAlertMessage_NoDetailOrURLOmitsBlocks(t *testing.T) {
	blocks := BuildAlertMessage(Alert{CaseUID: "case-3", Severity: "low", Headline: "Minor update"})
	require.Len(t, blocks, 1)
}

func TestTruncateForSlack(t *testing.T) {
	t.Run("short text unchanged", func(t *testing.T) {
		assert.Equal(t, "hello", truncateForSlack("hello"))
	})

	t.Run("exact limit unchanged", func(t *testing.T) {
		text := strings.Repeat("a", maxBlockTextLength)
		assert.Equal(t, text, truncateForSlack(text))
	})

	t.Run("over limit truncated", func(t *testing.T) {
		text := strings.Repeat("a", maxBlockTextLength+100)
		result := truncateForSlack(text)
		assert.True(t, len(result) < len(text))
		assert.Contains(t, result, "truncated")
	})

	t.Run("multi-byte runes not split", func(t *testing.T) {
		text := strings.Repeat("🔥", maxBlockTextLength+10)
		result := truncateForSlack(text)
		assert.Contains(t, result, "truncated")
		assert.True(t, utf8.ValidString(result), "result should be valid UTF-8")
		prefix := strings.Split(result, "\n\n_...")[0]
		assert.Equal(t, maxBlockTextLength, utf8.RuneCountInString(prefix))
	})
}
