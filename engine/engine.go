package engine

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/mikesparr/redis-workflow/action"
	api "github.com/mikesparr/redis-workflow/api/v1"
	"github.com/mikesparr/redis-workflow/logger"
	"github.com/mikesparr/redis-workflow/notify"
	"github.com/mikesparr/redis-workflow/transport"
	"github.com/mikesparr/redis-workflow/workflow"
	"go.uber.org/zap"
)

type State string

const STATE_IDLE State = "IDLE"
const STATE_LISTENING State = "LISTENING"
const STATE_STOPPED State = "STOPPED"

// WorkflowSource provides the registered workflows of a channel.
type WorkflowSource interface {
	GetWorkflowsForChannel(channel string) ([]*workflow.Workflow, error)
}

type Option func(*DispatchEngine)

// WithClock replaces the time source used to schedule delayed actions.
func WithClock(now func() time.Time) Option {
	return func(e *DispatchEngine) {
		e.now = now
	}
}

// WithEvaluationTimeout bounds the rule evaluation of a single message.
func WithEvaluationTimeout(timeout time.Duration) Option {
	return func(e *DispatchEngine) {
		e.evaluationTimeout = timeout
	}
}

// DispatchEngine listens on channels and turns inbound events into action
// notifications. Each channel has its own listener goroutine and handles one
// message at a time.
type DispatchEngine struct {
	mu                sync.Mutex
	source            WorkflowSource
	transport         transport.Transport
	bus               *notify.Bus
	listeners         map[string]*listener
	states            map[string]State
	now               func() time.Time
	evaluationTimeout time.Duration
	wg                sync.WaitGroup
}

func NewDispatchEngine(source WorkflowSource, tr transport.Transport, bus *notify.Bus, opts ...Option) *DispatchEngine {
	e := &DispatchEngine{
		source:    source,
		transport: tr,
		bus:       bus,
		listeners: make(map[string]*listener),
		states:    make(map[string]State),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *DispatchEngine) State(channel string) State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if state, ok := e.states[channel]; ok {
		return state
	}
	return STATE_IDLE
}

func (e *DispatchEngine) Listening() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	channels := make([]string, 0, len(e.listeners))
	for channel := range e.listeners {
		channels = append(channels, channel)
	}
	slices.Sort(channels)
	return channels
}

// buildTriggerMap indexes workflows by trigger name. Later workflows win on
// collisions, workflows without a trigger are left out.
func buildTriggerMap(list []*workflow.Workflow) map[string]*workflow.Workflow {
	triggers := make(map[string]*workflow.Workflow, len(list))
	for _, wf := range list {
		trigger := wf.GetTrigger()
		if trigger == nil || len(trigger.GetName()) == 0 {
			continue
		}
		if prev, ok := triggers[trigger.GetName()]; ok {
			logger.Warn("trigger registered twice, last one wins",
				zap.String("trigger", trigger.GetName()),
				zap.String("previous", prev.GetName()),
				zap.String("workflow", wf.GetName()))
		}
		triggers[trigger.GetName()] = wf
	}
	return triggers
}

// Start subscribes to channel with a trigger map built from its current
// workflows. Workflows added or removed later are not seen until the next Start.
func (e *DispatchEngine) Start(ctx context.Context, channel string) error {
	if err := api.ValidateChannel(channel); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.listeners[channel]; ok {
		return api.NewError(api.CONFIGURATION_ERROR, "channel %s is already listening", channel)
	}
	list, err := e.source.GetWorkflowsForChannel(channel)
	if err != nil || len(list) == 0 {
		return api.WrapError(api.CONFIGURATION_ERROR, err, "no workflows defined for channel %s", channel)
	}
	sub, err := e.transport.Subscribe(ctx, channel)
	if err != nil {
		return api.WrapError(api.PERSISTENCE_ERROR, err, "can not subscribe to channel %s", channel)
	}

	lctx, cancel := context.WithCancel(context.Background())
	l := &listener{
		engine:   e,
		channel:  channel,
		triggers: buildTriggerMap(list),
		sub:      sub,
		cancel:   cancel,
	}
	e.listeners[channel] = l
	e.states[channel] = STATE_LISTENING
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		l.run(lctx)
	}()
	logger.Info("listening", zap.String("channel", channel), zap.Int("triggers", len(l.triggers)))
	e.bus.Emit(notify.Notification{Kind: notify.START, Channel: channel})
	return nil
}

// Stop publishes the control message on channel. Every listener of the
// channel, local or remote, stops when it receives it.
func (e *DispatchEngine) Stop(ctx context.Context, channel string) error {
	if err := api.ValidateChannel(channel); err != nil {
		return err
	}
	if err := e.transport.Publish(ctx, channel, api.KillMessage); err != nil {
		return api.WrapError(api.PERSISTENCE_ERROR, err, "can not publish stop on channel %s", channel)
	}
	e.bus.Emit(notify.Notification{Kind: notify.STOP, Channel: channel})
	return nil
}

func (e *DispatchEngine) finish(l *listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listeners[l.channel] == l {
		delete(e.listeners, l.channel)
		e.states[l.channel] = STATE_STOPPED
	}
}

// Close ends every local listener without publishing anything and waits for them.
func (e *DispatchEngine) Close() {
	e.mu.Lock()
	listeners := make([]*listener, 0, len(e.listeners))
	for _, l := range e.listeners {
		listeners = append(listeners, l)
	}
	e.mu.Unlock()
	for _, l := range listeners {
		l.close()
	}
	e.wg.Wait()
}

func (e *DispatchEngine) emitActions(channel string, actions []action.Action) {
	dispatchedAt := e.now().UnixMilli()
	for _, act := range actions {
		switch a := act.(type) {
		case *action.ImmediateAction:
			e.bus.Emit(notify.ActionNotification(notify.ACTION, channel, a))
			e.bus.Emit(notify.ActionNotification(notify.IMMEDIATE, channel, a))
			e.bus.Emit(notify.ActionNotification(notify.AUDIT, channel, a))
		case *action.DelayedAction:
			if a.ScheduledAt() == 0 {
				a.SetScheduledDateFrom(dispatchedAt)
			}
			e.bus.Emit(notify.ActionNotification(notify.ACTION, channel, a))
			e.bus.Emit(notify.ActionNotification(notify.SCHEDULE, channel, a))
			e.bus.Emit(notify.ActionNotification(notify.AUDIT, channel, a))
		}
	}
}
