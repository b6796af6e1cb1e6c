package action

import (
	"time"

	api "github.com/mikesparr/redis-workflow/api/v1"
	"github.com/mikesparr/redis-workflow/model"
)

var _ Action = new(DelayedAction)

// DelayedAction fires at scheduledAt (unix seconds) and then every
// intervalMillis, recurrences times. Zero recurrences repeats forever.
type DelayedAction struct {
	baseAction
	scheduledAt    int64
	intervalMillis int64
	recurrences    int
}

func NewDelayedAction(name string) *DelayedAction {
	return &DelayedAction{
		baseAction:  baseAction{name: name, actType: ACTION_TYPE_DELAYED},
		recurrences: 1,
	}
}

// Delay sets the interval from a symbolic unit. Unknown units count as days.
func (d *DelayedAction) Delay(amount int64, unit string) *DelayedAction {
	d.intervalMillis = amount * UnitMillis(unit)
	return d
}

// Repeat bounds the recurrences to times, or repeats forever when times is omitted or zero.
func (d *DelayedAction) Repeat(times ...int) *DelayedAction {
	d.recurrences = 0
	if len(times) > 0 {
		d.recurrences = times[0]
	}
	return d
}

func (d *DelayedAction) Recurrences() int {
	return d.recurrences
}

func (d *DelayedAction) IsRepeat() bool {
	return d.recurrences != 1
}

func (d *DelayedAction) SetScheduledAt(seconds int64) *DelayedAction {
	d.scheduledAt = seconds
	return d
}

// ScheduledAt returns the explicit schedule in unix seconds, zero when unset.
func (d *DelayedAction) ScheduledAt() int64 {
	return d.scheduledAt
}

func (d *DelayedAction) SetInterval(millis int64) *DelayedAction {
	d.intervalMillis = millis
	return d
}

func (d *DelayedAction) IntervalMillis() int64 {
	return d.intervalMillis
}

func (d *DelayedAction) Interval() time.Duration {
	return time.Duration(d.intervalMillis) * time.Millisecond
}

// ScheduledDateAsTimestamp returns the explicit schedule or one interval past now, in whole seconds.
func (d *DelayedAction) ScheduledDateAsTimestamp(now time.Time) int64 {
	if d.scheduledAt > 0 {
		return d.scheduledAt
	}
	return scheduleFrom(now.UnixMilli(), d.intervalMillis)
}

// SetScheduledDateFrom schedules the action one interval after fromMillis.
func (d *DelayedAction) SetScheduledDateFrom(fromMillis int64) *DelayedAction {
	d.scheduledAt = scheduleFrom(fromMillis, d.intervalMillis)
	return d
}

func scheduleFrom(fromMillis int64, intervalMillis int64) int64 {
	return (fromMillis + intervalMillis) / 1000
}

func (d *DelayedAction) Validate() error {
	if err := d.baseAction.Validate(); err != nil {
		return err
	}
	if d.intervalMillis < 0 {
		return api.NewError(api.VALIDATION_ERROR, "action %s interval must be positive, got %d", d.name, d.intervalMillis)
	}
	if d.recurrences < 0 {
		return api.NewError(api.VALIDATION_ERROR, "action %s recurrences can not be negative, got %d", d.name, d.recurrences)
	}
	// a one shot action without interval or schedule fires as soon as it is dispatched
	if d.intervalMillis == 0 && d.IsRepeat() {
		return api.NewError(api.VALIDATION_ERROR, "action %s repeats without an interval", d.name)
	}
	return nil
}

func (d *DelayedAction) Clone() Action {
	return &DelayedAction{
		baseAction:     d.baseAction.copy(),
		scheduledAt:    d.scheduledAt,
		intervalMillis: d.intervalMillis,
		recurrences:    d.recurrences,
	}
}

func (d *DelayedAction) ToRecord() model.ActionRecord {
	rec := d.record()
	interval := d.intervalMillis
	recurrences := d.recurrences
	rec.IntervalMillis = &interval
	rec.Recurrences = &recurrences
	if d.scheduledAt > 0 {
		scheduledAt := d.scheduledAt
		rec.ScheduledAt = &scheduledAt
	}
	return rec
}
