package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log *zap.Logger

func init() {
	l, err := newLogger(zapcore.InfoLevel, false)
	if err != nil {
		l = zap.NewNop()
	}
	log = l
}

// Init replaces the package logger. level is one of debug, info, warn, error.
func Init(level string, development bool) error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return err
	}
	l, err := newLogger(lvl, development)
	if err != nil {
		return err
	}
	log = l
	return nil
}

func newLogger(level zapcore.Level, development bool) (*zap.Logger, error) {
	var conf zap.Config
	if development {
		conf = zap.NewDevelopmentConfig()
	} else {
		conf = zap.NewProductionConfig()
		conf.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	conf.Level = zap.NewAtomicLevelAt(level)
	return conf.Build(zap.AddCallerSkip(1))
}

// Use swaps the package logger for l, returning the previous one.
func Use(l *zap.Logger) *zap.Logger {
	prev := log
	log = l
	return prev
}

func Logger() *zap.Logger {
	return log
}

func Debug(msg string, fields ...zap.Field) {
	log.Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	log.Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	log.Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	log.Error(msg, fields...)
}

func Sync() error {
	return log.Sync()
}
