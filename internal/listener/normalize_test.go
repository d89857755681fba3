package listener

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const endEvent = `{
	"type": "end",
	"before": {
		"id": "1700000000.123-abc",
		"camera": "front_door",
		"label": "person",
		"score": 0.7,
		"start_time": 1700000000.0
	},
	"after": {
		"id": "1700000000.123-abc",
		"camera": "front_door",
		"label": "person",
		"sub_label": "delivery",
		"score": 0.82,
		"top_score": 0.91,
		"start_time": 1700000000.0,
		"end_time": 1700000014.5,
		"has_clip": true,
		"has_snapshot": true,
		"current_zones": ["porch"],
		"entered_zones": ["porch", "driveway"]
	}
}`

func TestNormalizePrefersAfter(t *testing.T) {
	event, err := Normalize([]byte(endEvent))
	require.NoError(t, err)

	assert.Equal(t, "1700000000.123-abc", event.EventID)
	assert.Equal(t, "end", event.FrigateType)
	assert.Equal(t, "front_door", event.Camera)
	assert.Equal(t, "person", event.Label)
	assert.Equal(t, "delivery", event.SubLabel)
	assert.Equal(t, 0.82, *event.Score)
	assert.Equal(t, 0.91, *event.TopScore)
	assert.True(t, event.HasClip)
	assert.True(t, event.HasSnapshot)
	assert.Equal(t, []string{"porch"}, event.Zones)
	assert.Equal(t, []string{"porch", "driveway"}, event.EnteredZones)
	assert.JSONEq(t, endEvent, string(event.Raw))
}

func TestNormalizeComputesDuration(t *testing.T) {
	event, err := Normalize([]byte(endEvent))
	require.NoError(t, err)

	require.NotNil(t, event.DurationSeconds)
	assert.Equal(t, 14.5, *event.DurationSeconds)
}

func TestNormalizeFallsBackToBefore(t *testing.T) {
	payload := `{
		"type": "new",
		"before": {
			"id": "ev-1",
			"camera": "garage",
			"label": "car",
			"score": 0.6,
			"start_time": 1700000000.0
		},
		"after": null
	}`

	event, err := Normalize([]byte(payload))
	require.NoError(t, err)

	assert.Equal(t, "ev-1", event.EventID)
	assert.Equal(t, "garage", event.Camera)
	// no end_time yet means no duration
	assert.Nil(t, event.DurationSeconds)
	assert.Nil(t, event.EndTime)
}

func TestNormalizeRejectsEmptyMessage(t *testing.T) {
	_, err := Normalize([]byte(`{"type": "new"}`))
	assert.Error(t, err)
}

func TestNormalizeRejectsBadJSON(t *testing.T) {
	_, err := Normalize([]byte(`not json`))
	assert.Error(t, err)
}

func TestNormalizeNegativeDurationDropped(t *testing.T) {
	payload := `{
		"type": "end",
		"after": {
			"id": "ev-2",
			"camera": "garage",
			"label": "car",
			"start_time": 2000.0,
			"end_time": 1000.0
		}
	}`

	event, err := Normalize([]byte(payload))
	require.NoError(t, err)
	assert.Nil(t, event.DurationSeconds)
}
