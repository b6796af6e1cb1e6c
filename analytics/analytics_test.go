package analytics

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mikesparr/redis-workflow/action"
	api "github.com/mikesparr/redis-workflow/api/v1"
	"github.com/mikesparr/redis-workflow/notify"
	"github.com/stretchr/testify/require"
)

func readLines(t *testing.T, fileName string) []map[string]any {
	f, err := os.Open(fileName)
	require.NoError(t, err)
	defer f.Close()
	lines := []map[string]any{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		lines = append(lines, line)
	}
	return lines
}

func TestLogFileDataCollector(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "audit.log")
	collector, err := NewDataCollector(DataCollectorConfig{FileName: fileName, CollectorType: LOG_FILE_DATA_COLLECTOR})
	require.NoError(t, err)

	bus := notify.NewBus(8)
	Attach(bus, collector)

	ship := action.NewImmediateAction("ship")
	ship.SetContext(map[string]any{"age": 77})
	remind := action.NewDelayedAction("remind").Delay(1, "day").Repeat(3).SetScheduledAt(1700086400)
	bus.Emit(notify.ActionNotification(notify.ACTION, "c1", ship))
	bus.Emit(notify.ActionNotification(notify.AUDIT, "c1", ship))
	bus.Emit(notify.ActionNotification(notify.FIRE, "c1", remind))
	bus.Emit(notify.ErrorNotification("c1", api.NewError(api.UNKNOWN_TRIGGER, "no workflow for evt")))
	bus.Close()
	require.NoError(t, collector.Close())

	lines := readLines(t, fileName)
	require.Len(t, lines, 3)
	require.Equal(t, "action", lines[0]["msg"])
	require.Equal(t, "audit", lines[0]["kind"])
	require.Equal(t, "ship", lines[0]["action"])
	require.Equal(t, map[string]any{"age": float64(77)}, lines[0]["context"])
	require.Equal(t, "fire", lines[1]["kind"])
	require.Equal(t, float64(1700086400), lines[1]["scheduledAt"])
	require.Equal(t, float64(3), lines[1]["recurrences"])
	require.Equal(t, "failure", lines[2]["msg"])
	require.Equal(t, "UnknownTrigger", lines[2]["errorKind"])
}

func TestNewDataCollector(t *testing.T) {
	collector, err := NewDataCollector(DataCollectorConfig{})
	require.NoError(t, err)
	collector.RecordAction(notify.Notification{})
	require.NoError(t, collector.Close())

	_, err = NewDataCollector(DataCollectorConfig{CollectorType: "ELASTIC"})
	require.Error(t, err)

	_, err = NewDataCollector(DataCollectorConfig{FileName: t.TempDir(), CollectorType: LOG_FILE_DATA_COLLECTOR})
	require.Error(t, err)
}
