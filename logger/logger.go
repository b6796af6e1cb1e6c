package logger

import (
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log atomic.Pointer[zap.Logger]

func init() {
	log.Store(zap.NewNop())
}

// Init replaces the process wide logger. Until it is called every log call is a no-op.
func Init(level string, development bool) error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return err
	}
	var conf zap.Config
	if development {
		conf = zap.NewDevelopmentConfig()
	} else {
		conf = zap.NewProductionConfig()
		conf.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	conf.Level = zap.NewAtomicLevelAt(lvl)
	l, err := conf.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}
	log.Store(l)
	return nil
}

func Set(l *zap.Logger) {
	log.Store(l.WithOptions(zap.AddCallerSkip(1)))
}

func Debug(msg string, fields ...zap.Field) {
	log.Load().Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	log.Load().Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	log.Load().Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	log.Load().Error(msg, fields...)
}

func Sync() error {
	return log.Load().Sync()
}
