package cel

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"

	"vidria/pkg/models"
)

// Evaluator compiles and runs CEL filter expressions against detection
// events. Expressions see the detection as flat typed variables.
type Evaluator struct {
	env *cel.Env
}

func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("camera", cel.StringType),
		cel.Variable("label", cel.StringType),
		cel.Variable("detection_type", cel.StringType),
		cel.Variable("score", cel.DoubleType),
		cel.Variable("top_score", cel.DoubleType),
		cel.Variable("duration", cel.DoubleType),
		cel.Variable("zones", cel.ListType(cel.StringType)),
		cel.Variable("has_snapshot", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Evaluator{env: env}, nil
}

func (e *Evaluator) ValidateExpression(expression string) error {
	_, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("CEL expression validation failed: %w", issues.Err())
	}
	return nil
}

// ValidateFilterExpression validates that expression compiles and returns bool.
func (e *Evaluator) ValidateFilterExpression(expression string) error {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("CEL expression validation failed: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return fmt.Errorf("filter expression must return bool, got %v", ast.OutputType())
	}

	return nil
}

// EvaluateFilter runs a boolean filter expression against a detection event.
func (e *Evaluator) EvaluateFilter(ctx context.Context, expression string, event models.DetectionEvent) (bool, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return false, fmt.Errorf("failed to compile CEL expression: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return false, fmt.Errorf("filter expression must return bool, got %v", ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return false, fmt.Errorf("failed to create CEL program: %w", err)
	}

	result, _, err := program.ContextEval(ctx, e.eventToVars(event))
	if err != nil {
		return false, fmt.Errorf("failed to evaluate CEL expression: %w", err)
	}

	boolVal, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return bool, got %T", result.Value())
	}

	return boolVal, nil
}

func (e *Evaluator) CompileExpression(expression string) (cel.Program, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile CEL expression: %w", issues.Err())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return program, nil
}

func (e *Evaluator) eventToVars(event models.DetectionEvent) map[string]interface{} {
	score := 0.0
	if event.Score != nil {
		score = *event.Score
	}
	topScore := 0.0
	if event.TopScore != nil {
		topScore = *event.TopScore
	}
	duration := 0.0
	if event.DurationSeconds != nil {
		duration = *event.DurationSeconds
	}
	zones := event.Zones
	if zones == nil {
		zones = []string{}
	}

	return map[string]interface{}{
		"camera":         event.Camera,
		"label":          event.Label,
		"detection_type": event.Type,
		"score":          score,
		"top_score":      topScore,
		"duration":       duration,
		"zones":          zones,
		"has_snapshot":   event.HasSnapshot,
	}
}
