package action

import (
	"maps"

	api "github.com/mikesparr/redis-workflow/api/v1"
	"github.com/mikesparr/redis-workflow/model"
)

type ActionType = model.ActionType

const ACTION_TYPE_IMMEDIATE = model.ACTION_TYPE_IMMEDIATE
const ACTION_TYPE_DELAYED = model.ACTION_TYPE_DELAYED

// Action is implemented only by *ImmediateAction and *DelayedAction.
type Action interface {
	GetName() string
	GetType() ActionType
	GetContext() map[string]any
	SetContext(context map[string]any)
	Validate() error
	Clone() Action
	ToRecord() model.ActionRecord
	sealed()
}

type baseAction struct {
	name    string
	actType ActionType
	context map[string]any
}

func (ba *baseAction) GetName() string {
	return ba.name
}

func (ba *baseAction) GetType() ActionType {
	return ba.actType
}

func (ba *baseAction) GetContext() map[string]any {
	return ba.context
}

func (ba *baseAction) SetContext(context map[string]any) {
	ba.context = context
}

func (ba *baseAction) Validate() error {
	if len(ba.name) == 0 {
		return api.NewError(api.VALIDATION_ERROR, "action name can not be empty")
	}
	return nil
}

func (ba *baseAction) sealed() {}

func (ba baseAction) copy() baseAction {
	return baseAction{
		name:    ba.name,
		actType: ba.actType,
		context: maps.Clone(ba.context),
	}
}

func (ba *baseAction) record() model.ActionRecord {
	return model.ActionRecord{
		Name:    ba.name,
		Type:    ba.actType,
		Context: ba.context,
	}
}

var _ Action = new(ImmediateAction)

type ImmediateAction struct {
	baseAction
}

func NewImmediateAction(name string) *ImmediateAction {
	return &ImmediateAction{
		baseAction: baseAction{name: name, actType: ACTION_TYPE_IMMEDIATE},
	}
}

func (a *ImmediateAction) Clone() Action {
	return &ImmediateAction{baseAction: a.baseAction.copy()}
}

func (a *ImmediateAction) ToRecord() model.ActionRecord {
	return a.record()
}

// FromRecord rebuilds the concrete action variant described by rec.
func FromRecord(rec model.ActionRecord) (Action, error) {
	var act Action
	switch rec.Type {
	case ACTION_TYPE_IMMEDIATE:
		act = NewImmediateAction(rec.Name)
	case ACTION_TYPE_DELAYED:
		delayed := NewDelayedAction(rec.Name)
		if rec.ScheduledAt != nil {
			delayed.SetScheduledAt(*rec.ScheduledAt)
		}
		if rec.IntervalMillis != nil {
			delayed.SetInterval(*rec.IntervalMillis)
		}
		if rec.Recurrences != nil {
			delayed.recurrences = *rec.Recurrences
		}
		act = delayed
	default:
		return nil, api.NewError(api.VALIDATION_ERROR, "action %s has invalid type %q", rec.Name, rec.Type)
	}
	act.SetContext(rec.Context)
	if err := act.Validate(); err != nil {
		return nil, err
	}
	return act, nil
}
