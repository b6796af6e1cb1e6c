package analytics

import (
	"os"

	"github.com/mikesparr/redis-workflow/action"
	"github.com/mikesparr/redis-workflow/notify"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _ AuditCollector = new(LogFileDataCollector)

// LogFileDataCollector appends one JSON line per notification to a file.
type LogFileDataCollector struct {
	fileName string
	logger   *zap.Logger
}

func NewLogFileDataCollector(fileName string) (*LogFileDataCollector, error) {
	logFile, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &LogFileDataCollector{
		fileName: fileName,
		logger:   newAuditLogger(zapcore.AddSync(logFile)),
	}, nil
}

func newAuditLogger(writer zapcore.WriteSyncer) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.StacktraceKey = ""
	encoderConfig.CallerKey = ""
	fileEncoder := zapcore.NewJSONEncoder(encoderConfig)
	core := zapcore.NewCore(fileEncoder, writer, zapcore.InfoLevel)
	return zap.New(core)
}

func (lc *LogFileDataCollector) RecordAction(n notify.Notification) {
	fields := []zap.Field{
		zap.String("id", n.Id),
		zap.String("kind", string(n.Kind)),
		zap.String("channel", n.Channel),
		zap.String("action", n.Name),
		zap.Time("emittedAt", n.Time),
		zap.Any("context", n.Context),
	}
	if delayed, ok := n.Action.(*action.DelayedAction); ok {
		fields = append(fields,
			zap.Int64("scheduledAt", delayed.ScheduledAt()),
			zap.Int64("intervalMillis", delayed.IntervalMillis()),
			zap.Int("recurrences", delayed.Recurrences()))
	}
	lc.logger.Info("action", fields...)
}

func (lc *LogFileDataCollector) RecordError(n notify.Notification) {
	lc.logger.Info("failure",
		zap.String("id", n.Id),
		zap.String("channel", n.Channel),
		zap.String("errorKind", string(n.ErrorKind)),
		zap.String("reason", n.Message))
}

func (lc *LogFileDataCollector) Close() error {
	return lc.logger.Sync()
}
