package expression

import (
	"context"
	"strings"

	api "github.com/mikesparr/redis-workflow/api/v1"
)

type EvaluatorType string

const EVALUATOR_JAVASCRIPT EvaluatorType = "javascript"
const EVALUATOR_JSONPATH EvaluatorType = "jsonpath"

// Evaluator decides whether a rule expression holds for an event context.
// Only a literal boolean true counts as a pass.
type Evaluator interface {
	Evaluate(ctx context.Context, expression string, data map[string]any) (bool, error)
}

func NewEvaluator(evaluatorType string) (Evaluator, error) {
	switch EvaluatorType(strings.ToLower(evaluatorType)) {
	case EVALUATOR_JAVASCRIPT, "js", "":
		return NewJsEvaluator(), nil
	case EVALUATOR_JSONPATH:
		return NewJsonPathEvaluator(), nil
	}
	return nil, api.NewError(api.CONFIGURATION_ERROR, "unknown evaluator %q", evaluatorType)
}

// EvaluatorFunc adapts a plain function to Evaluator.
type EvaluatorFunc func(ctx context.Context, expression string, data map[string]any) (bool, error)

func (f EvaluatorFunc) Evaluate(ctx context.Context, expression string, data map[string]any) (bool, error) {
	return f(ctx, expression, data)
}
