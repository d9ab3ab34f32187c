package logger

import (
	"fmt"

	"go.uber.org/zap"
)

// Logger wraps a zap sugared logger so every package logs the same
// key/value style without importing zap directly.
type Logger struct {
	sugar *zap.SugaredLogger
}

// New builds a logger for the given mode, "development" or "production".
func New(mode string) (*Logger, error) {
	var (
		z   *zap.Logger
		err error
	)
	switch mode {
	case "production":
		z, err = zap.NewProduction()
	case "development", "":
		z, err = zap.NewDevelopment()
	default:
		return nil, fmt.Errorf("unknown log mode %q", mode)
	}
	if err != nil {
		return nil, err
	}
	return &Logger{sugar: z.Sugar()}, nil
}

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{sugar: l.sugar.With(keysAndValues...)}
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, keysAndValues...)
}

func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, keysAndValues...)
}

func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, keysAndValues...)
}

func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

// NewNop returns a logger that discards everything. Used in tests.
func NewNop() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}
