package workflow

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/mikesparr/redis-workflow/action"
	api "github.com/mikesparr/redis-workflow/api/v1"
	"github.com/mikesparr/redis-workflow/expression"
	"github.com/mikesparr/redis-workflow/model"
	"github.com/mikesparr/redis-workflow/util"
	"golang.org/x/sync/errgroup"
)

var recordEncDec = util.NewJsonEncoderDecoder[model.WorkflowRecord]()

type Option func(*Workflow)

func WithID(id string) Option {
	return func(w *Workflow) {
		w.id = id
	}
}

func WithEvaluator(evaluator expression.Evaluator) Option {
	return func(w *Workflow) {
		w.evaluator = evaluator
	}
}

// Workflow fires its actions when an event for its trigger satisfies every rule.
// A workflow without a trigger is never dispatched.
type Workflow struct {
	mu        sync.RWMutex
	id        string
	name      string
	trigger   *Trigger
	rules     []*Rule
	actions   []action.Action
	evaluator expression.Evaluator
}

func NewWorkflow(name string, trigger *Trigger, rules []*Rule, actions []action.Action, opts ...Option) *Workflow {
	w := &Workflow{
		name:    name,
		trigger: trigger,
		rules:   rules,
		actions: actions,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Workflow) GetId() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.id
}

func (w *Workflow) SetId(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.id = id
}

func (w *Workflow) GetName() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.name
}

func (w *Workflow) SetName(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.name = name
}

func (w *Workflow) GetTrigger() *Trigger {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.trigger
}

func (w *Workflow) SetTrigger(trigger *Trigger) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.trigger = trigger
}

func (w *Workflow) GetRules() []*Rule {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Clone(w.rules)
}

func (w *Workflow) SetRules(rules []*Rule) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rules = rules
}

func (w *Workflow) GetActions() []action.Action {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Clone(w.actions)
}

func (w *Workflow) SetActions(actions []action.Action) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.actions = actions
}

func (w *Workflow) GetEvaluator() expression.Evaluator {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.evaluator
}

func (w *Workflow) SetEvaluator(evaluator expression.Evaluator) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.evaluator = evaluator
}

func (w *Workflow) AddRule(rule *Rule) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rules = append(w.rules, rule)
}

// RemoveRule drops every rule called name. Unknown names are ignored.
func (w *Workflow) RemoveRule(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rules = slices.DeleteFunc(w.rules, func(r *Rule) bool {
		return r.GetName() == name
	})
}

func (w *Workflow) AddAction(act action.Action) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.actions = append(w.actions, act)
}

// RemoveAction drops every action called name. Unknown names are ignored.
func (w *Workflow) RemoveAction(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.actions = slices.DeleteFunc(w.actions, func(a action.Action) bool {
		return a.GetName() == name
	})
}

// GetActionsForContext evaluates all rules concurrently. When every rule
// passes it returns copies of the actions carrying data as their context,
// otherwise an empty list. Only a broken expression returns an error.
func (w *Workflow) GetActionsForContext(ctx context.Context, data map[string]any) ([]action.Action, error) {
	w.mu.RLock()
	name := w.name
	evaluator := w.evaluator
	actions := slices.Clone(w.actions)
	rules := make([]*Rule, 0, len(w.rules))
	for _, rule := range w.rules {
		if len(rule.GetExpression()) > 0 {
			rules = append(rules, rule)
		}
	}
	w.mu.RUnlock()

	if len(rules) > 0 && evaluator == nil {
		return nil, api.NewError(api.CONFIGURATION_ERROR, "workflow %s has rules but no evaluator", name)
	}

	passed := make([]bool, len(rules))
	g, gctx := errgroup.WithContext(ctx)
	for i, rule := range rules {
		i, rule := i, rule
		g.Go(func() error {
			res, err := evaluator.Evaluate(gctx, rule.GetExpression(), data)
			if err != nil {
				return api.WrapError(api.EVALUATION_ERROR, err, "rule %s of workflow %s", rule.GetName(), name)
			}
			passed[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, ok := range passed {
		if !ok {
			return []action.Action{}, nil
		}
	}

	res := make([]action.Action, 0, len(actions))
	for _, act := range actions {
		clone := act.Clone()
		clone.SetContext(maps.Clone(data))
		res = append(res, clone)
	}
	return res, nil
}

func (w *Workflow) Validate() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if len(w.name) == 0 {
		return api.NewError(api.VALIDATION_ERROR, "workflow name can not be empty")
	}
	if w.trigger != nil {
		if err := w.trigger.Validate(); err != nil {
			return api.WrapError(api.VALIDATION_ERROR, err, "workflow %s", w.name)
		}
	}
	for _, rule := range w.rules {
		if err := rule.Validate(); err != nil {
			return api.WrapError(api.VALIDATION_ERROR, err, "workflow %s", w.name)
		}
	}
	for _, act := range w.actions {
		if err := act.Validate(); err != nil {
			return api.WrapError(api.VALIDATION_ERROR, err, "workflow %s", w.name)
		}
	}
	return nil
}

func (w *Workflow) ToRecord() model.WorkflowRecord {
	w.mu.RLock()
	defer w.mu.RUnlock()
	rec := model.WorkflowRecord{
		Id:      w.id,
		Name:    w.name,
		Rules:   make([]model.RuleRecord, 0, len(w.rules)),
		Actions: make([]model.ActionRecord, 0, len(w.actions)),
	}
	if w.trigger != nil {
		rec.Trigger = w.trigger.ToRecord()
	}
	for _, rule := range w.rules {
		rec.Rules = append(rec.Rules, rule.ToRecord())
	}
	for _, act := range w.actions {
		rec.Actions = append(rec.Actions, act.ToRecord())
	}
	return rec
}

// FromRecord builds a validated workflow from its persisted form.
func FromRecord(rec model.WorkflowRecord, opts ...Option) (*Workflow, error) {
	w := NewWorkflow("", nil, nil, nil, opts...)
	if err := w.load(rec); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Workflow) load(rec model.WorkflowRecord) error {
	var trigger *Trigger
	if rec.Trigger != nil {
		trigger = NewTrigger(rec.Trigger.Name)
	}
	rules := make([]*Rule, 0, len(rec.Rules))
	for _, r := range rec.Rules {
		rules = append(rules, NewRule(r.Name, r.Expression))
	}
	actions := make([]action.Action, 0, len(rec.Actions))
	for _, a := range rec.Actions {
		act, err := action.FromRecord(a)
		if err != nil {
			return api.WrapError(api.VALIDATION_ERROR, err, "workflow %s", rec.Name)
		}
		actions = append(actions, act)
	}
	candidate := NewWorkflow(rec.Name, trigger, rules, actions, WithID(rec.Id))
	if err := candidate.Validate(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.id = rec.Id
	w.name = rec.Name
	w.trigger = trigger
	w.rules = rules
	w.actions = actions
	return nil
}

func (w *Workflow) Serialize() ([]byte, error) {
	return recordEncDec.Encode(w.ToRecord())
}

// Deserialize replaces id, name, trigger, rules and actions with the ones in data.
// The evaluator is kept.
func (w *Workflow) Deserialize(data []byte) error {
	rec, err := recordEncDec.Decode(data)
	if err != nil {
		return api.WrapError(api.VALIDATION_ERROR, err, "invalid workflow record")
	}
	return w.load(*rec)
}
