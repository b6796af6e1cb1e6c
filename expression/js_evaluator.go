package expression

import (
	"context"
	"errors"
	"time"

	"github.com/dop251/goja"
	api "github.com/mikesparr/redis-workflow/api/v1"
	"github.com/mikesparr/redis-workflow/logger"
	c "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

var _ Evaluator = new(JsEvaluator)

// JsEvaluator runs rule expressions as JavaScript. Every context key is a
// global and the whole context is also bound to $. Compiled programs are
// shared between runs, runtimes are not.
type JsEvaluator struct {
	programs *c.Cache
}

func NewJsEvaluator() *JsEvaluator {
	return &JsEvaluator{
		programs: c.New(time.Hour, 10*time.Minute),
	}
}

func (e *JsEvaluator) compile(expression string) (*goja.Program, error) {
	if prog, found := e.programs.Get(expression); found {
		return prog.(*goja.Program), nil
	}
	prog, err := goja.Compile("rule", "("+expression+")", false)
	if err != nil {
		return nil, api.WrapError(api.EVALUATION_ERROR, err, "invalid expression %q", expression)
	}
	e.programs.Set(expression, prog, c.DefaultExpiration)
	return prog, nil
}

func (e *JsEvaluator) Evaluate(ctx context.Context, expression string, data map[string]any) (bool, error) {
	prog, err := e.compile(expression)
	if err != nil {
		return false, err
	}
	vm := goja.New()
	for k, v := range data {
		// read only globals such as undefined or NaN stay reachable through $
		if err := vm.Set(k, v); err != nil {
			logger.Debug("context key not bound as global", zap.String("key", k), zap.Error(err))
		}
	}
	if err := vm.Set("$", data); err != nil {
		return false, api.WrapError(api.EVALUATION_ERROR, err, "can not bind context")
	}
	stop := context.AfterFunc(ctx, func() {
		vm.Interrupt(ctx.Err())
	})
	defer stop()

	val, err := vm.RunProgram(prog)
	if err != nil {
		var exception *goja.Exception
		if errors.As(err, &exception) && isMissingValue(vm, exception) {
			return false, nil
		}
		return false, api.WrapError(api.EVALUATION_ERROR, err, "evaluating %q", expression)
	}
	res, ok := val.Export().(bool)
	return ok && res, nil
}

// isMissingValue reports errors caused by referring to context keys that are absent.
func isMissingValue(vm *goja.Runtime, exception *goja.Exception) bool {
	val := exception.Value()
	if val == nil {
		return false
	}
	obj := val.ToObject(vm)
	if obj == nil {
		return false
	}
	name := obj.Get("name")
	if name == nil {
		return false
	}
	switch name.String() {
	case "ReferenceError", "TypeError":
		return true
	}
	return false
}
