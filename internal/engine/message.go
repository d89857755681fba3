package engine

import (
	"fmt"
	"strconv"
	"strings"

	"vidria/internal/rules"
	"vidria/pkg/models"
)

// RenderMessage builds the alert text for a matched rule. Custom messages
// support {camera}, {label}, {frigate_type}, {score}, {duration}, {event_id}
// and {rule_name} placeholders; without one, a standard multi-line alert is
// produced. A custom template that renders to nothing but whitespace falls
// back to the minimal alert so a matched rule never dispatches blank.
func RenderMessage(rule *rules.Rule, event *models.DetectionEvent) string {
	if rule.CustomMessage != nil && *rule.CustomMessage != "" {
		rendered := interpolate(*rule.CustomMessage, rule, event)
		if strings.TrimSpace(rendered) == "" {
			return FallbackMessage(rule)
		}
		return rendered
	}

	return fmt.Sprintf(
		"Alert: %s\nCamera: %s\nObject: %s\nType: %s\nScore: %s%%\nDuration: %ss\nEvent ID: %d",
		rule.Name,
		orNA(event.Camera),
		orNA(event.Label),
		orNA(event.Type),
		formatScore(event),
		formatDuration(event),
		event.RecordID,
	)
}

// FallbackMessage is the minimal alert used when nothing richer can be
// produced for a rule.
func FallbackMessage(rule *rules.Rule) string {
	return "Alert: " + rule.Name
}

func interpolate(template string, rule *rules.Rule, event *models.DetectionEvent) string {
	replacer := strings.NewReplacer(
		"{camera}", orNA(event.Camera),
		"{label}", orNA(event.Label),
		"{frigate_type}", orNA(event.Type),
		"{score}", formatScore(event),
		"{duration}", formatDuration(event),
		"{event_id}", strconv.FormatInt(event.RecordID, 10),
		"{rule_name}", rule.Name,
	)
	return replacer.Replace(template)
}

// formatScore renders the effective score as a percentage with one decimal.
func formatScore(event *models.DetectionEvent) string {
	return strconv.FormatFloat(event.EffectiveScore()*100, 'f', 1, 64)
}

func formatDuration(event *models.DetectionEvent) string {
	duration := 0.0
	if event.DurationSeconds != nil {
		duration = *event.DurationSeconds
	}
	return strconv.FormatFloat(duration, 'f', 1, 64)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
