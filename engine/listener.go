package engine

import (
	"context"
	"sync"

	api "github.com/mikesparr/redis-workflow/api/v1"
	"github.com/mikesparr/redis-workflow/logger"
	"github.com/mikesparr/redis-workflow/notify"
	"github.com/mikesparr/redis-workflow/transport"
	"github.com/mikesparr/redis-workflow/workflow"
	"go.uber.org/zap"
)

// listener owns the trigger map of one channel for the lifetime of a subscription.
type listener struct {
	engine   *DispatchEngine
	channel  string
	triggers map[string]*workflow.Workflow
	sub      transport.Subscription
	cancel   context.CancelFunc
	once     sync.Once
}

func (l *listener) run(ctx context.Context) {
	defer l.engine.finish(l)
	for {
		select {
		case payload := <-l.sub.Messages():
			if api.IsKillMessage(payload) {
				l.close()
				logger.Info("kill message received", zap.String("channel", l.channel))
				l.engine.bus.Emit(notify.Notification{Kind: notify.KILL, Channel: l.channel})
				return
			}
			l.handle(ctx, payload)
		case <-l.sub.Done():
			logger.Info("stopped listening", zap.String("channel", l.channel))
			return
		case <-ctx.Done():
			return
		}
	}
}

func (l *listener) handle(ctx context.Context, payload string) {
	msg, err := api.ParseMessage(payload)
	if err != nil {
		logger.Warn("malformed message", zap.String("channel", l.channel), zap.Error(err))
		l.engine.bus.Emit(notify.ErrorNotification(l.channel, err))
		return
	}
	wf, ok := l.triggers[msg.Event]
	if !ok {
		err := api.NewError(api.UNKNOWN_TRIGGER, "no workflow for event %s on channel %s", msg.Event, l.channel)
		l.engine.bus.Emit(notify.ErrorNotification(l.channel, err))
		return
	}

	if l.engine.evaluationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.engine.evaluationTimeout)
		defer cancel()
	}
	actions, err := wf.GetActionsForContext(ctx, msg.Context)
	if err != nil {
		if len(api.KindOf(err)) == 0 {
			err = api.WrapError(api.EVALUATION_ERROR, err, "workflow %s", wf.GetName())
		}
		logger.Warn("rule evaluation failed", zap.String("channel", l.channel), zap.String("workflow", wf.GetName()), zap.Error(err))
		l.engine.bus.Emit(notify.ErrorNotification(l.channel, err))
		return
	}
	logger.Debug("event handled", zap.String("channel", l.channel), zap.String("event", msg.Event), zap.Int("actions", len(actions)))
	l.engine.emitActions(l.channel, actions)
}

func (l *listener) close() {
	l.once.Do(func() {
		l.cancel()
		if err := l.sub.Close(); err != nil {
			logger.Warn("error closing subscription", zap.String("channel", l.channel), zap.Error(err))
		}
	})
}
