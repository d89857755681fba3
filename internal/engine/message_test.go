package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"vidria/internal/rules"
	"vidria/pkg/models"
)

func TestRenderMessageDefault(t *testing.T) {
	rule := rules.Rule{Name: "Person at front door"}
	event := models.DetectionEvent{
		RecordID:        7,
		Camera:          "front_door",
		Label:           "person",
		Type:            models.EventTypeEnd,
		Score:           floatPtr(0.85),
		DurationSeconds: floatPtr(12.34),
	}

	message := RenderMessage(&rule, &event)

	assert.Contains(t, message, "Alert: Person at front door")
	assert.Contains(t, message, "Camera: front_door")
	assert.Contains(t, message, "Object: person")
	assert.Contains(t, message, "Score: 85.0%")
	assert.Contains(t, message, "Duration: 12.3s")
	assert.Contains(t, message, "Event ID: 7")
}

func TestRenderMessageDefaultFillsMissingFields(t *testing.T) {
	rule := rules.Rule{Name: "bare"}
	event := models.DetectionEvent{RecordID: 1}

	message := RenderMessage(&rule, &event)

	assert.Contains(t, message, "Camera: N/A")
	assert.Contains(t, message, "Object: N/A")
	assert.Contains(t, message, "Type: N/A")
	assert.Contains(t, message, "Score: 0.0%")
	assert.Contains(t, message, "Duration: 0.0s")
}

func TestRenderMessageCustom(t *testing.T) {
	rule := rules.Rule{
		Name:          "night watch",
		CustomMessage: strPtr("{label} on {camera} ({score}%) rule={rule_name} id={event_id}"),
	}
	event := models.DetectionEvent{
		RecordID: 99,
		Camera:   "backyard",
		Label:    "dog",
		Score:    floatPtr(0.5),
		TopScore: floatPtr(0.72),
	}

	message := RenderMessage(&rule, &event)

	// score placeholder uses the effective (max) score
	assert.Equal(t, "dog on backyard (72.0%) rule=night watch id=99", message)
}

func TestRenderMessageCustomLeavesUnknownPlaceholders(t *testing.T) {
	rule := rules.Rule{Name: "r", CustomMessage: strPtr("hello {nope} {camera}")}
	event := models.DetectionEvent{Camera: "garage"}

	assert.Equal(t, "hello {nope} garage", RenderMessage(&rule, &event))
}

func TestRenderMessageEmptyCustomFallsBackToDefault(t *testing.T) {
	rule := rules.Rule{Name: "r", CustomMessage: strPtr("")}
	event := models.DetectionEvent{Camera: "garage"}

	assert.Contains(t, RenderMessage(&rule, &event), "Alert: r\n")
}

func TestRenderMessageBlankCustomRenderFallsBackToMinimal(t *testing.T) {
	rule := rules.Rule{Name: "porch watch", CustomMessage: strPtr("   ")}
	event := models.DetectionEvent{Camera: "porch"}

	assert.Equal(t, "Alert: porch watch", RenderMessage(&rule, &event))
}

func TestFallbackMessage(t *testing.T) {
	rule := rules.Rule{Name: "garage door"}
	assert.Equal(t, "Alert: garage door", FallbackMessage(&rule))
}
