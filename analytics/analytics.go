package analytics

import (
	"fmt"

	"github.com/mikesparr/redis-workflow/notify"
)

type DataCollectorConfig struct {
	FileName      string
	CollectorType DataCollectorType
}

type DataCollectorType string

const LOG_FILE_DATA_COLLECTOR DataCollectorType = "LOG_FILE_DATA_COLLECTOR"
const NOOP_DATA_COLLECTOR DataCollectorType = "NOOP_DATA_COLLECTOR"

// AuditCollector keeps a trail of fired actions and dispatch errors.
type AuditCollector interface {
	RecordAction(n notify.Notification)
	RecordError(n notify.Notification)
	Close() error
}

func NewDataCollector(config DataCollectorConfig) (AuditCollector, error) {
	switch config.CollectorType {
	case LOG_FILE_DATA_COLLECTOR:
		return NewLogFileDataCollector(config.FileName)
	case NOOP_DATA_COLLECTOR, "":
		return noopCollector{}, nil
	}
	return nil, fmt.Errorf("unknown data collector %s", config.CollectorType)
}

// Attach records every AUDIT and FIRE notification and every ERROR of bus.
func Attach(bus *notify.Bus, collector AuditCollector) {
	bus.On(notify.AUDIT, collector.RecordAction)
	bus.On(notify.FIRE, collector.RecordAction)
	bus.On(notify.ERROR, collector.RecordError)
}

type noopCollector struct{}

func (noopCollector) RecordAction(notify.Notification) {}
func (noopCollector) RecordError(notify.Notification)  {}
func (noopCollector) Close() error                     { return nil }
