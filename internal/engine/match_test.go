package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"vidria/internal/rules"
	"vidria/pkg/models"
)

func strPtr(s string) *string       { return &s }
func floatPtr(f float64) *float64   { return &f }
func atUTC(hhmm string) time.Time   {
	parsed, _ := time.Parse("15:04", hhmm)
	return time.Date(2026, 3, 10, parsed.Hour(), parsed.Minute(), 0, 0, time.UTC)
}

func baseEvent() models.DetectionEvent {
	return models.DetectionEvent{
		RecordID:    42,
		TenantToken: "tok-1",
		Camera:      "front_door",
		Label:       "person",
		Type:        models.EventTypeEnd,
		Score:       floatPtr(0.85),
	}
}

func TestMatchRuleUnconstrained(t *testing.T) {
	event := baseEvent()
	rule := rules.Rule{ID: 1, Name: "anything"}

	result := MatchRule(&rule, &event, atUTC("12:00"))
	assert.True(t, result.Matched)
	assert.Empty(t, result.Reasons)
}

func TestMatchRuleCamera(t *testing.T) {
	event := baseEvent()

	tests := []struct {
		name   string
		camera string
		want   bool
	}{
		{"exact match", "front_door", true},
		{"case insensitive", "Front_Door", true},
		{"mismatch", "backyard", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := rules.Rule{Camera: strPtr(tt.camera)}
			result := MatchRule(&rule, &event, atUTC("12:00"))
			assert.Equal(t, tt.want, result.Matched)
		})
	}
}

func TestMatchRuleLabelList(t *testing.T) {
	event := baseEvent()

	tests := []struct {
		name  string
		label string
		want  bool
	}{
		{"single match", "person", true},
		{"list match", "car, person, dog", true},
		{"case insensitive", "PERSON", true},
		{"list mismatch", "car, dog", false},
		{"trailing comma ignored", "person,", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := rules.Rule{Label: strPtr(tt.label)}
			result := MatchRule(&rule, &event, atUTC("12:00"))
			assert.Equal(t, tt.want, result.Matched)
		})
	}
}

func TestMatchRuleFrigateType(t *testing.T) {
	event := baseEvent()
	event.Type = models.EventTypeNew

	matched := MatchRule(&rules.Rule{FrigateType: strPtr("new")}, &event, atUTC("12:00"))
	assert.True(t, matched.Matched)

	mismatched := MatchRule(&rules.Rule{FrigateType: strPtr("end")}, &event, atUTC("12:00"))
	assert.False(t, mismatched.Matched)
}

func TestMatchRuleUpdateEventsNeedExplicitType(t *testing.T) {
	event := baseEvent()
	event.Type = models.EventTypeUpdate

	// A rule without a type predicate must not fire on updates.
	unconstrained := rules.Rule{Label: strPtr("person")}
	assert.False(t, MatchRule(&unconstrained, &event, atUTC("12:00")).Matched)

	// An explicit update predicate still works.
	explicit := rules.Rule{FrigateType: strPtr("update")}
	assert.True(t, MatchRule(&explicit, &event, atUTC("12:00")).Matched)
}

func TestMatchRuleMinScoreUsesEffectiveScore(t *testing.T) {
	event := baseEvent()
	event.Score = floatPtr(0.4)
	event.TopScore = floatPtr(0.9)

	// top_score rescues a low current score
	rule := rules.Rule{MinScore: floatPtr(0.8)}
	assert.True(t, MatchRule(&rule, &event, atUTC("12:00")).Matched)

	event.TopScore = floatPtr(0.5)
	assert.False(t, MatchRule(&rule, &event, atUTC("12:00")).Matched)
}

func TestMatchRuleMinScoreMissingScores(t *testing.T) {
	event := baseEvent()
	event.Score = nil
	event.TopScore = nil

	rule := rules.Rule{MinScore: floatPtr(0.1)}
	assert.False(t, MatchRule(&rule, &event, atUTC("12:00")).Matched)

	zero := rules.Rule{MinScore: floatPtr(0.0)}
	assert.True(t, MatchRule(&zero, &event, atUTC("12:00")).Matched)
}

func TestMatchRuleMinDuration(t *testing.T) {
	event := baseEvent()
	rule := rules.Rule{MinDurationSeconds: floatPtr(10.0)}

	event.DurationSeconds = floatPtr(12.0)
	assert.True(t, MatchRule(&rule, &event, atUTC("12:00")).Matched)

	event.DurationSeconds = floatPtr(5.0)
	assert.False(t, MatchRule(&rule, &event, atUTC("12:00")).Matched)

	event.DurationSeconds = nil
	assert.False(t, MatchRule(&rule, &event, atUTC("12:00")).Matched)
}

func TestMatchRuleTimeWindow(t *testing.T) {
	event := baseEvent()

	tests := []struct {
		name  string
		start *string
		end   *string
		now   string
		want  bool
	}{
		{"inside normal window", strPtr("08:00"), strPtr("22:00"), "12:00", true},
		{"before normal window", strPtr("08:00"), strPtr("22:00"), "07:59", false},
		{"after normal window", strPtr("08:00"), strPtr("22:00"), "22:01", false},
		{"window boundary start", strPtr("08:00"), strPtr("22:00"), "08:00", true},
		{"overnight window late", strPtr("22:00"), strPtr("06:00"), "23:30", true},
		{"overnight window early", strPtr("22:00"), strPtr("06:00"), "05:00", true},
		{"overnight window midday", strPtr("22:00"), strPtr("06:00"), "12:00", false},
		{"start only before", strPtr("18:00"), nil, "17:00", false},
		{"start only after", strPtr("18:00"), nil, "19:00", true},
		{"end only before", nil, strPtr("18:00"), "17:00", true},
		{"end only after", nil, strPtr("18:00"), "19:00", false},
		{"unpadded start midday", strPtr("9:30"), nil, "12:00", true},
		{"unpadded start too early", strPtr("9:30"), nil, "08:00", false},
		{"unpadded full window", strPtr("8:00"), strPtr("9:45"), "09:00", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := rules.Rule{TimeStart: tt.start, TimeEnd: tt.end}
			result := MatchRule(&rule, &event, atUTC(tt.now))
			assert.Equal(t, tt.want, result.Matched)
		})
	}
}

func TestMatchRuleMalformedTimeWindowDegrades(t *testing.T) {
	event := baseEvent()
	rule := rules.Rule{TimeStart: strPtr("25:99"), Label: strPtr("person")}

	// The broken window must not block an otherwise matching rule.
	assert.True(t, MatchRule(&rule, &event, atUTC("12:00")).Matched)
	assert.Error(t, TimeWindowError(&rule))
}

func TestMatchRuleCollectsAllReasons(t *testing.T) {
	event := baseEvent()
	rule := rules.Rule{
		Camera:   strPtr("backyard"),
		Label:    strPtr("car"),
		MinScore: floatPtr(0.99),
	}

	result := MatchRule(&rule, &event, atUTC("12:00"))
	assert.False(t, result.Matched)
	assert.Len(t, result.Reasons, 3)
}
