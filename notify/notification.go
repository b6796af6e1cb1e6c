package notify

import (
	"maps"
	"time"

	"github.com/mikesparr/redis-workflow/action"
	api "github.com/mikesparr/redis-workflow/api/v1"
)

type Kind string

const (
	ERROR     Kind = "error"
	ADD       Kind = "add"
	REMOVE    Kind = "remove"
	LOAD      Kind = "load"
	SAVE      Kind = "save"
	DELETE    Kind = "delete"
	READY     Kind = "ready"
	START     Kind = "start"
	STOP      Kind = "stop"
	RESET     Kind = "reset"
	KILL      Kind = "kill"
	IMMEDIATE Kind = "immediate"
	SCHEDULE  Kind = "schedule"
	AUDIT     Kind = "audit"
	// ACTION is emitted under the fired action's own name.
	ACTION Kind = "action"
	// FIRE is emitted by the scheduler when a delayed action is due.
	FIRE Kind = "fire"
)

var kinds = []Kind{ERROR, ADD, REMOVE, LOAD, SAVE, DELETE, READY, START, STOP, RESET, KILL, IMMEDIATE, SCHEDULE, AUDIT, ACTION, FIRE}

func Kinds() []Kind {
	return append([]Kind(nil), kinds...)
}

type Notification struct {
	Id      string
	Kind    Kind
	Channel string
	// Name is the action name for action notifications and the workflow
	// name for add and remove.
	Name      string
	Action    action.Action
	// Context is shared by every handler of the notification, handlers must not modify it.
	Context   map[string]any
	ErrorKind api.ErrorKind
	Message   string
	Time      time.Time
}

func (n Notification) IsAction() bool {
	switch n.Kind {
	case ACTION, IMMEDIATE, SCHEDULE, AUDIT, FIRE:
		return true
	}
	return false
}

// ErrorNotification describes err on channel.
func ErrorNotification(channel string, err error) Notification {
	return Notification{
		Kind:      ERROR,
		Channel:   channel,
		ErrorKind: api.KindOf(err),
		Message:   err.Error(),
	}
}

// ActionNotification carries act and its context.
func ActionNotification(kind Kind, channel string, act action.Action) Notification {
	return Notification{
		Kind:    kind,
		Channel: channel,
		Name:    act.GetName(),
		Action:  act,
		Context: maps.Clone(act.GetContext()),
	}
}
