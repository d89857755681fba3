package cel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidria/pkg/models"
)

func floatPtr(f float64) *float64 {
	return &f
}

func TestNewEvaluator(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)
	assert.NotNil(t, eval)
}

func TestValidateExpression(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	tests := []struct {
		name      string
		expr      string
		wantError bool
	}{
		{
			name:      "valid simple expression",
			expr:      `camera == "front_door"`,
			wantError: false,
		},
		{
			name:      "valid numeric comparison",
			expr:      `score > 0.8`,
			wantError: false,
		},
		{
			name:      "zones membership",
			expr:      `"driveway" in zones`,
			wantError: false,
		},
		{
			name:      "invalid expression",
			expr:      `invalid syntax here!!!`,
			wantError: true,
		},
		{
			name:      "undefined variable",
			expr:      `undefinedVar == "test"`,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := eval.ValidateExpression(tt.expr)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateFilterExpression(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	tests := []struct {
		name      string
		expr      string
		wantError bool
	}{
		{
			name:      "valid bool expression",
			expr:      `label == "person"`,
			wantError: false,
		},
		{
			name:      "non-bool expression",
			expr:      `score`,
			wantError: true,
		},
		{
			name:      "compound bool expression",
			expr:      `label == "person" && score >= 0.7`,
			wantError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := eval.ValidateFilterExpression(tt.expr)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEvaluateFilter(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	event := models.DetectionEvent{
		Camera:          "front_door",
		Label:           "person",
		Type:            "end",
		Score:           floatPtr(0.85),
		TopScore:        floatPtr(0.91),
		DurationSeconds: floatPtr(12.5),
		Zones:           []string{"porch", "driveway"},
		HasSnapshot:     true,
	}

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{
			name: "camera match",
			expr: `camera == "front_door"`,
			want: true,
		},
		{
			name: "camera mismatch",
			expr: `camera == "backyard"`,
			want: false,
		},
		{
			name: "score threshold",
			expr: `score >= 0.8 && top_score >= 0.9`,
			want: true,
		},
		{
			name: "zone membership",
			expr: `"driveway" in zones`,
			want: true,
		},
		{
			name: "duration and snapshot",
			expr: `duration > 10.0 && has_snapshot`,
			want: true,
		},
		{
			name: "detection type",
			expr: `detection_type == "update"`,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eval.EvaluateFilter(context.Background(), tt.expr, event)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateFilterMissingScores(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	event := models.DetectionEvent{
		Camera: "garage",
		Label:  "car",
		Type:   "new",
	}

	got, err := eval.EvaluateFilter(context.Background(), `score == 0.0 && duration == 0.0`, event)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestEvaluateFilterRejectsNonBool(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	_, err = eval.EvaluateFilter(context.Background(), `camera`, models.DetectionEvent{Camera: "x"})
	assert.Error(t, err)
}
