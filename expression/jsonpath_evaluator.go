package expression

import (
	"context"
	"strings"
	"time"

	api "github.com/mikesparr/redis-workflow/api/v1"
	"github.com/oliveagle/jsonpath"
	c "github.com/patrickmn/go-cache"
)

var _ Evaluator = new(JsonPathEvaluator)

// JsonPathEvaluator treats a rule as a jsonpath, optionally wrapped in {},
// that has to resolve to true in the context.
type JsonPathEvaluator struct {
	paths *c.Cache
}

func NewJsonPathEvaluator() *JsonPathEvaluator {
	return &JsonPathEvaluator{
		paths: c.New(time.Hour, 10*time.Minute),
	}
}

func (e *JsonPathEvaluator) compile(expression string) (*jsonpath.Compiled, error) {
	tmatch := strings.ReplaceAll(expression, "{", "")
	tmatch = strings.ReplaceAll(tmatch, "}", "")
	tmatch = strings.TrimSpace(tmatch)
	if compiled, found := e.paths.Get(tmatch); found {
		return compiled.(*jsonpath.Compiled), nil
	}
	compiled, err := jsonpath.Compile(tmatch)
	if err != nil {
		return nil, api.WrapError(api.EVALUATION_ERROR, err, "invalid jsonpath %q", expression)
	}
	e.paths.Set(tmatch, compiled, c.DefaultExpiration)
	return compiled, nil
}

func (e *JsonPathEvaluator) Evaluate(ctx context.Context, expression string, data map[string]any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, api.WrapError(api.EVALUATION_ERROR, err, "evaluating %q", expression)
	}
	compiled, err := e.compile(expression)
	if err != nil {
		return false, err
	}
	value, err := compiled.Lookup(data)
	if err != nil {
		// missing keys fail the rule
		return false, nil
	}
	res, ok := value.(bool)
	return ok && res, nil
}
