package expression

import (
	"context"
	"testing"
	"time"

	api "github.com/mikesparr/redis-workflow/api/v1"
	"github.com/stretchr/testify/require"
)

func TestJsEvaluator(t *testing.T) {
	eval := NewJsEvaluator()
	ctx := context.Background()
	data := map[string]any{
		"age":  float64(77),
		"name": "kim",
		"cart": map[string]any{"total": float64(120)},

		"undefined": float64(1),
		"NaN":       float64(2),
		"Infinity":  float64(3),
	}
	for expression, expected := range map[string]bool{
		"age == 77":                        true,
		"age == 50":                        false,
		"age > 18 && name == 'kim'":        true,
		"cart.total >= 100":                true,
		"$.age === 77":                     true,
		"age":                              false,
		"name":                             false,
		"missing == 1":                     false,
		"missing.nested == 1":              false,
		"typeof missing === 'undefined'":   true,
		"['a', 'b'].indexOf(name) === -1":  true,
		"$.undefined === 1 && $.NaN === 2": true,
		"$['Infinity'] === 3":              true,
		"isNaN(NaN) && Infinity > 1e308":   true,
	} {
		res, err := eval.Evaluate(ctx, expression, data)
		require.NoError(t, err, expression)
		require.Equal(t, expected, res, expression)
	}
}

func TestJsEvaluatorIntegerContext(t *testing.T) {
	res, err := NewJsEvaluator().Evaluate(context.Background(), "age == 77", map[string]any{"age": 77})
	require.NoError(t, err)
	require.True(t, res)
}

func TestJsEvaluatorMalformedExpression(t *testing.T) {
	eval := NewJsEvaluator()
	_, err := eval.Evaluate(context.Background(), "age ==", map[string]any{"age": 1})
	require.Error(t, err)
	require.True(t, api.IsKind(err, api.EVALUATION_ERROR))

	_, err = eval.Evaluate(context.Background(), "(function(){ throw new Error('no') })()", nil)
	require.True(t, api.IsKind(err, api.EVALUATION_ERROR))
}

func TestJsEvaluatorHonoursContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewJsEvaluator().Evaluate(ctx, "(function(){ while(true){} })()", nil)
	require.True(t, api.IsKind(err, api.EVALUATION_ERROR))
}

func TestJsEvaluatorReusesPrograms(t *testing.T) {
	eval := NewJsEvaluator()
	for i := 0; i < 3; i++ {
		res, err := eval.Evaluate(context.Background(), "n % 2 == 0", map[string]any{"n": i})
		require.NoError(t, err)
		require.Equal(t, i%2 == 0, res)
	}
	require.Equal(t, 1, eval.programs.ItemCount())
}
