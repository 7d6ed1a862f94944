package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogFields map[string]interface{}

// Logger is the structured logging interface used across the service.
// Every entry carries an action tag so log lines can be grouped by the
// operation that produced them.
type Logger interface {
	WithFields(fields LogFields) Logger

	Info(action, message string)
	Debug(action, message string)
	Warn(action, message string)
	Error(action string, err error)
}

// zapLogger backs the Logger interface with zap's JSON encoder.
type zapLogger struct {
	z *zap.Logger
}

// NewLogger creates a JSON logger for a specific service.
func NewLogger(serviceName, level string) Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.TimeKey = "timestamp"

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(os.Stdout),
		levelFromString(level),
	)

	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}

	z := zap.New(core, zap.AddStacktrace(zapcore.ErrorLevel)).With(
		zap.String("service", serviceName),
		zap.String("hostname", host),
	)
	return &zapLogger{z: z}
}

func levelFromString(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *zapLogger) WithFields(fields LogFields) Logger {
	zf := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zf = append(zf, zap.Any(k, v))
	}
	return &zapLogger{z: l.z.With(zf...)}
}

func (l *zapLogger) Info(action, message string) {
	l.z.Info(message, zap.String("action", action))
}

func (l *zapLogger) Debug(action, message string) {
	l.z.Debug(message, zap.String("action", action))
}

func (l *zapLogger) Warn(action, message string) {
	l.z.Warn(message, zap.String("action", action))
}

func (l *zapLogger) Error(action string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	l.z.Error(msg, zap.String("action", action), zap.Error(err))
}

// Nop returns a logger that discards everything. Useful in tests.
func Nop() Logger {
	return &zapLogger{z: zap.NewNop()}
}
