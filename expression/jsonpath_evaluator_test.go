package expression

import (
	"context"
	"testing"

	api "github.com/mikesparr/redis-workflow/api/v1"
	"github.com/stretchr/testify/require"
)

func TestJsonPathEvaluator(t *testing.T) {
	eval := NewJsonPathEvaluator()
	data := map[string]any{
		"adult":   true,
		"age":     float64(77),
		"flag":    "true",
		"profile": map[string]any{"verified": true, "banned": false},
	}
	for expression, expected := range map[string]bool{
		"$.adult":            true,
		"{$.adult}":          true,
		"$.profile.verified": true,
		"$.profile.banned":   false,
		"$.age":              false,
		"$.flag":             false,
		"$.missing":          false,
	} {
		res, err := eval.Evaluate(context.Background(), expression, data)
		require.NoError(t, err, expression)
		require.Equal(t, expected, res, expression)
	}
}

func TestJsonPathEvaluatorInvalidPath(t *testing.T) {
	_, err := NewJsonPathEvaluator().Evaluate(context.Background(), "adult", map[string]any{"adult": true})
	require.True(t, api.IsKind(err, api.EVALUATION_ERROR))
}

func TestNewEvaluator(t *testing.T) {
	for name, expected := range map[string]any{
		"javascript": &JsEvaluator{},
		"JS":         &JsEvaluator{},
		"":           &JsEvaluator{},
		"jsonpath":   &JsonPathEvaluator{},
	} {
		eval, err := NewEvaluator(name)
		require.NoError(t, err)
		require.IsType(t, expected, eval)
	}
	_, err := NewEvaluator("jexl")
	require.True(t, api.IsKind(err, api.CONFIGURATION_ERROR))
}
