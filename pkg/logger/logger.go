package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap's sugared logger with loosely-typed key-value pairs
type Logger struct {
	sugar *zap.SugaredLogger
	zap   *zap.Logger
}

// New creates a logger for the given level and environment.
// Production uses JSON encoding; everything else uses the console encoder.
// Unknown levels fall back to info.
func New(level, environment string) (*Logger, error) {
	var cfg zap.Config
	if environment == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	base, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}

	return &Logger{sugar: base.Sugar(), zap: base}, nil
}

// NewNop returns a no-op logger for tests.
func NewNop() *Logger {
	nop := zap.NewNop()
	return &Logger{sugar: nop.Sugar(), zap: nop}
}

// Zap returns the underlying structured logger for components that take
// *zap.Logger directly.
func (l *Logger) Zap() *zap.Logger {
	return l.zap
}

// With returns a child logger with the given key-value pairs attached.
func (l *Logger) With(keysAndValues ...any) *Logger {
	s := l.sugar.With(keysAndValues...)
	return &Logger{sugar: s, zap: s.Desugar()}
}

func (l *Logger) Debug(msg string, keysAndValues ...any) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l *Logger) Info(msg string, keysAndValues ...any) {
	l.sugar.Infow(msg, keysAndValues...)
}

func (l *Logger) Warn(msg string, keysAndValues ...any) {
	l.sugar.Warnw(msg, keysAndValues...)
}

func (l *Logger) Error(msg string, keysAndValues ...any) {
	l.sugar.Errorw(msg, keysAndValues...)
}

func (l *Logger) Fatal(msg string, keysAndValues ...any) {
	l.sugar.Fatalw(msg, keysAndValues...)
}

// Sync flushes buffered log entries.
func (l *Logger) Sync() error {
	return l.zap.Sync()
}
