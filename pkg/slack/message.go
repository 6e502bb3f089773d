package slack

import (
	"fmt"

	goslack "github.com/slack-go/slack"
)

const maxBlockTextLength = 2900

var severityEmoji = map[string]string{
	"critical": ":rotating_light:",
	"high":     ":warning:",
	"medium":   ":large_orange_diamond:",
	"low":      ":information_source:",
}

// Alert is the content of one push delivery rendered as a Slack message.
type Alert struct {
	CaseUID     string
	EventType   string
	Severity    string
	Headline    string
	Detail      string
	DashboardURL string
}

func caseURL(caseUID, dashboardURL string) string {
	return fmt.Sprintf("%s/cases/%s", dashboardURL, caseUID)
}

// BuildAlertMessage renders an Alert into Block Kit blocks.
func BuildAlertMessage(a Alert) []goslack.Block {
	emoji := severityEmoji[a.Severity]
	if emoji == "" {
		emoji = ":bell:"
	}

	headerText := fmt.Sprintf("%s *%s*", emoji, a.Headline)
	blocks := []goslack.Block{
		goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, headerText, false, false),
			nil, nil,
		),
	}

	if a.Detail != "" {
		blocks = append(blocks, goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, truncateForSlack(a.Detail), false, false),
			nil, nil,
		))
	}

	if a.DashboardURL != "" {
		btn := goslack.NewButtonBlockElement("", "", goslack.NewTextBlockObject(goslack.PlainTextType, "View Case", false, false))
		btn.URL = caseURL(a.CaseUID, a.DashboardURL)
		blocks = append(blocks, goslack.NewActionBlock("", btn))
	}

	return blocks
}

func truncateForSlack(text string) string {
	if len(text) <= maxBlockTextLength {
		return text
	}
	return text[:maxBlockTextLength] + "\n\n_... (truncated — view full case in dashboard)_"
}
