package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a sugared zap logger behind the small surface the rest of the
// code uses. Constructed once in main and passed by pointer; there is no
// package-level instance.
type Logger struct {
	zap         *zap.SugaredLogger
	atomicLevel zap.AtomicLevel
}

type Config struct {
	Level       string
	Environment string
}

func New(cfg Config) (*Logger, error) {
	level := zap.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zap.DebugLevel
	case "info", "":
		level = zap.InfoLevel
	case "warn", "warning":
		level = zap.WarnLevel
	case "error":
		level = zap.ErrorLevel
	default:
		fmt.Printf("WARN: invalid log level %q, defaulting to info\n", cfg.Level)
	}

	atomicLevel := zap.NewAtomicLevelAt(level)

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.LevelKey = "severity"
	encoderConfig.MessageKey = "message"
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	var encoder zapcore.Encoder
	if cfg.Environment == "development" {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), atomicLevel)

	// AddCallerSkip(1) so the caller shown is the code calling these
	// methods, not the wrapper itself.
	zl := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))

	return &Logger{zap: zl.Sugar(), atomicLevel: atomicLevel}, nil
}

// Zap exposes the underlying sugared logger for call sites that want the
// full zap surface.
func (l *Logger) Zap() *zap.SugaredLogger { return l.zap }

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.zap.Debugw(msg, keysAndValues...)
}

func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.zap.Infow(msg, keysAndValues...)
}

func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.zap.Warnw(msg, keysAndValues...)
}

func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.zap.Errorw(msg, keysAndValues...)
}

func (l *Logger) Fatal(msg string, keysAndValues ...interface{}) {
	l.zap.Fatalw(msg, keysAndValues...)
}

// SetLevel changes the minimum level at runtime.
func (l *Logger) SetLevel(level string) {
	switch strings.ToLower(level) {
	case "debug":
		l.atomicLevel.SetLevel(zap.DebugLevel)
	case "info":
		l.atomicLevel.SetLevel(zap.InfoLevel)
	case "warn", "warning":
		l.atomicLevel.SetLevel(zap.WarnLevel)
	case "error":
		l.atomicLevel.SetLevel(zap.ErrorLevel)
	default:
		l.zap.Warnf("invalid log level %q provided to SetLevel, level unchanged", level)
	}
}
