package action

import (
	"testing"

	api "github.com/mikesparr/redis-workflow/api/v1"
	"github.com/mikesparr/redis-workflow/model"
	"github.com/stretchr/testify/require"
)

func TestImmediateAction(t *testing.T) {
	act := NewImmediateAction("ship")
	require.Equal(t, "ship", act.GetName())
	require.Equal(t, ACTION_TYPE_IMMEDIATE, act.GetType())
	require.Nil(t, act.GetContext())
	require.NoError(t, act.Validate())

	err := NewImmediateAction("").Validate()
	require.True(t, api.IsKind(err, api.VALIDATION_ERROR))
}

func TestRecordRoundTrip(t *testing.T) {
	for scenario, act := range map[string]Action{
		"immediate": NewImmediateAction("ship"),
		"delayed":   NewDelayedAction("remind").Delay(1, "day").Repeat(3),
		"scheduled": NewDelayedAction("once").Delay(5, "minutes").SetScheduledAt(1700000000),
	} {
		t.Run(scenario, func(t *testing.T) {
			act.SetContext(map[string]any{"age": 77})
			res, err := FromRecord(act.ToRecord())
			require.NoError(t, err)
			require.Equal(t, act, res)
		})
	}
}

func TestDelayedRecordFields(t *testing.T) {
	rec := NewDelayedAction("remind").Delay(1, "day").Repeat(3).ToRecord()
	require.Equal(t, ACTION_TYPE_DELAYED, rec.Type)
	require.Equal(t, int64(86400000), *rec.IntervalMillis)
	require.Equal(t, 3, *rec.Recurrences)
	require.Nil(t, rec.ScheduledAt)

	immediate := NewImmediateAction("ship").ToRecord()
	require.Nil(t, immediate.IntervalMillis)
	require.Nil(t, immediate.Recurrences)
}

func TestFromRecordErrors(t *testing.T) {
	_, err := FromRecord(model.ActionRecord{Name: "x", Type: "Later"})
	require.True(t, api.IsKind(err, api.VALIDATION_ERROR))

	_, err = FromRecord(model.ActionRecord{Type: ACTION_TYPE_IMMEDIATE})
	require.True(t, api.IsKind(err, api.VALIDATION_ERROR))

	// a delayed record without recurrences fires once
	interval := int64(1000)
	act, err := FromRecord(model.ActionRecord{Name: "d", Type: ACTION_TYPE_DELAYED, IntervalMillis: &interval})
	require.NoError(t, err)
	require.Equal(t, 1, act.(*DelayedAction).Recurrences())
}
