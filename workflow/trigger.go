package workflow

import (
	api "github.com/mikesparr/redis-workflow/api/v1"
	"github.com/mikesparr/redis-workflow/model"
)

// Trigger names the event a workflow responds to.
type Trigger struct {
	name string
}

func NewTrigger(name string) *Trigger {
	return &Trigger{name: name}
}

func (t *Trigger) GetName() string {
	return t.name
}

func (t *Trigger) SetName(name string) {
	t.name = name
}

func (t *Trigger) Validate() error {
	if len(t.name) == 0 {
		return api.NewError(api.VALIDATION_ERROR, "trigger name can not be empty")
	}
	return nil
}

func (t *Trigger) ToRecord() *model.TriggerRecord {
	return &model.TriggerRecord{Name: t.name}
}

// Rule is a named boolean expression checked against the event context.
// An empty expression always passes.
type Rule struct {
	name       string
	expression string
}

func NewRule(name string, expression string) *Rule {
	return &Rule{name: name, expression: expression}
}

func (r *Rule) GetName() string {
	return r.name
}

func (r *Rule) SetName(name string) {
	r.name = name
}

func (r *Rule) GetExpression() string {
	return r.expression
}

func (r *Rule) SetExpression(expression string) {
	r.expression = expression
}

func (r *Rule) Validate() error {
	if len(r.name) == 0 {
		return api.NewError(api.VALIDATION_ERROR, "rule name can not be empty")
	}
	return nil
}

func (r *Rule) ToRecord() model.RuleRecord {
	return model.RuleRecord{Name: r.name, Expression: r.expression}
}
