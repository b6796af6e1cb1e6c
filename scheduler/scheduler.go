package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mikesparr/redis-workflow/action"
	api "github.com/mikesparr/redis-workflow/api/v1"
	"github.com/mikesparr/redis-workflow/logger"
	"github.com/mikesparr/redis-workflow/model"
	"github.com/mikesparr/redis-workflow/notify"
	"github.com/mikesparr/redis-workflow/persistence"
	"github.com/mikesparr/redis-workflow/util"
	"go.uber.org/zap"
)

const SCHEDULE_QUEUE string = "scheduled_actions"

// ScheduledEntry is a delayed action parked in the delay queue. Id keeps
// identical actions apart.
type ScheduledEntry struct {
	Id      string             `json:"id"`
	Channel string             `json:"channel"`
	Action  model.ActionRecord `json:"action"`
}

type Option func(*Scheduler)

func WithPollInterval(interval time.Duration) Option {
	return func(s *Scheduler) {
		s.interval = interval
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

func WithQueueName(name string) Option {
	return func(s *Scheduler) {
		s.queueName = name
	}
}

// Scheduler parks every scheduled action until it is due, emits a FIRE
// notification for it and queues the next recurrence.
type Scheduler struct {
	queue     persistence.DelayQueue
	bus       *notify.Bus
	queueName string
	interval  time.Duration
	now       func() time.Time
	encDec    util.EncoderDecoder[ScheduledEntry]
	tw        *util.TickWorker
	wg        sync.WaitGroup
	once      sync.Once
}

func NewScheduler(queue persistence.DelayQueue, bus *notify.Bus, opts ...Option) *Scheduler {
	s := &Scheduler{
		queue:     queue,
		bus:       bus,
		queueName: SCHEDULE_QUEUE,
		interval:  time.Second,
		now:       time.Now,
		encDec:    util.NewJsonEncoderDecoder[ScheduledEntry](),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start subscribes to SCHEDULE notifications and begins polling.
func (s *Scheduler) Start() {
	s.once.Do(func() {
		s.bus.On(notify.SCHEDULE, s.onSchedule)
		s.tw = util.NewTickWorker("scheduler", s.interval, s.tick, &s.wg)
		s.tw.Start()
	})
}

func (s *Scheduler) Stop() {
	if s.tw != nil {
		s.tw.Stop()
	}
	s.wg.Wait()
}

func (s *Scheduler) onSchedule(n notify.Notification) {
	delayed, ok := n.Action.(*action.DelayedAction)
	if !ok {
		return
	}
	if err := s.Schedule(context.Background(), n.Channel, delayed); err != nil {
		logger.Error("can not schedule action", zap.String("channel", n.Channel), zap.String("action", delayed.GetName()), zap.Error(err))
		s.bus.Emit(notify.ErrorNotification(n.Channel, err))
	}
}

// Schedule queues act for its scheduled time, one interval from now when it has none.
func (s *Scheduler) Schedule(ctx context.Context, channel string, act *action.DelayedAction) error {
	if act.ScheduledAt() == 0 {
		act = act.Clone().(*action.DelayedAction)
		act.SetScheduledAt(act.ScheduledDateAsTimestamp(s.now()))
	}
	entry := ScheduledEntry{
		Id:      uuid.NewString(),
		Channel: channel,
		Action:  act.ToRecord(),
	}
	data, err := s.encDec.Encode(entry)
	if err != nil {
		return api.WrapError(api.VALIDATION_ERROR, err, "can not encode action %s", act.GetName())
	}
	if err := s.queue.Push(ctx, s.queueName, act.ScheduledAt()*1000, data); err != nil {
		return api.WrapError(api.PERSISTENCE_ERROR, err, "can not queue action %s", act.GetName())
	}
	logger.Debug("action scheduled", zap.String("channel", channel), zap.String("action", act.GetName()), zap.Int64("scheduledAt", act.ScheduledAt()))
	return nil
}

func (s *Scheduler) tick() {
	if _, err := s.Poll(context.Background()); err != nil {
		logger.Error("error while polling scheduled actions", zap.Error(err))
	}
}

// Poll fires every due action and returns how many fired.
func (s *Scheduler) Poll(ctx context.Context) (int, error) {
	res, err := s.queue.PopDue(ctx, s.queueName, s.now().UnixMilli())
	if err != nil {
		return 0, api.WrapError(api.PERSISTENCE_ERROR, err, "can not poll %s", s.queueName)
	}
	fired := 0
	for _, r := range res {
		entry, err := s.encDec.Decode([]byte(r))
		if err != nil {
			logger.Error("can not decode scheduled entry", zap.Error(err))
			continue
		}
		act, err := action.FromRecord(entry.Action)
		if err != nil {
			logger.Error("invalid scheduled action", zap.String("channel", entry.Channel), zap.Error(err))
			continue
		}
		delayed, ok := act.(*action.DelayedAction)
		if !ok {
			continue
		}
		s.bus.Emit(notify.ActionNotification(notify.FIRE, entry.Channel, delayed))
		fired++
		if err := s.reschedule(ctx, entry.Channel, delayed); err != nil {
			logger.Error("can not reschedule action", zap.String("channel", entry.Channel), zap.String("action", delayed.GetName()), zap.Error(err))
			s.bus.Emit(notify.ErrorNotification(entry.Channel, err))
		}
	}
	return fired, nil
}

// reschedule queues the next recurrence one interval after the fired one.
// Zero recurrences repeat forever, one means this was the last.
func (s *Scheduler) reschedule(ctx context.Context, channel string, fired *action.DelayedAction) error {
	if !fired.IsRepeat() {
		return nil
	}
	next := fired.Clone().(*action.DelayedAction)
	next.SetScheduledDateFrom(fired.ScheduledAt() * 1000)
	if fired.Recurrences() > 1 {
		next.Repeat(fired.Recurrences() - 1)
	}
	return s.Schedule(ctx, channel, next)
}
