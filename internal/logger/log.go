package logger

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/zappabad/liquidbook/internal/util"
)

// Interface is an interface that wraps the Logger methods.
type Interface interface {
	Debug(message string, fields ...Field)
	DebugContext(ctx context.Context, message string, fields ...Field)
	Error(err error, fields ...Field)
	ErrorContext(ctx context.Context, err error, fields ...Field)
	GetZap() *zap.Logger
	Info(message string, fields ...Field)
	InfoContext(ctx context.Context, message string, fields ...Field)
	Sync() error
	Warn(message string, fields ...Field)
	WarnContext(ctx context.Context, message string, fields ...Field)
	WithFields(fields ...Field) Interface
}

// Logger is a wrapper around zap.Logger to provide structured logging.
type Logger struct {
	logger *zap.Logger
}

// Field holds key-value to be written to log.
type Field struct {
	Key   string
	Value any
}

// Options holds configuration options for the logger.
type Options struct {
	level       Level
	outputPaths []string
	timeKey     string
	development bool
}

// Level represents the severity level of the log.
type Level string

var (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"

	messageKey = "message"
)

func (level Level) zapLevel() zapcore.Level {
	switch Level(strings.ToLower(string(level))) {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// NewLogger creates a new Logger with the given options.
func NewLogger(opts ...Options) (*Logger, error) {
	cfg := zap.NewProductionConfig()
	for _, opt := range opts {
		if opt.development {
			cfg.Development = true
			cfg.Sampling = nil
		}
		if opt.level != "" {
			cfg.Level = zap.NewAtomicLevelAt(opt.level.zapLevel())
		}
		if opt.outputPaths != nil {
			cfg.OutputPaths = opt.outputPaths
			cfg.ErrorOutputPaths = opt.outputPaths
		}
		if opt.timeKey != "" {
			cfg.EncoderConfig.TimeKey = opt.timeKey
		}
	}
	cfg.EncoderConfig.MessageKey = messageKey
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{logger: logger}, nil
}

// NewNop returns a logger that writes nothing.
func NewNop() *Logger {
	return &Logger{logger: zap.NewNop()}
}

// WithLoggingLevel sets the minimum level written. Defaults to info.
func WithLoggingLevel(level Level) Options {
	return Options{level: level}
}

// WithOutputPaths sets where logs go. "stdout" and "stderr" are special;
// anything else is a file path.
func WithOutputPaths(paths []string) Options {
	return Options{outputPaths: paths}
}

// WithTimeKey renames the time field.
func WithTimeKey(key string) Options {
	return Options{timeKey: key}
}

// WithDevelopment disables sampling and turns DPanic into panic.
func WithDevelopment() Options {
	return Options{development: true}
}

// NewField returns Field with given key and value.
func NewField(key string, value any) Field {
	return Field{key, value}
}

// Sync flushes buffered log entries.
func (l *Logger) Sync() error {
	return l.logger.Sync()
}

// GetZap returns the underlying zap.Logger.
func (l *Logger) GetZap() *zap.Logger {
	return l.logger
}

func (l *Logger) Info(message string, fields ...Field) {
	l.logger.Info(message, convertFields(fields...)...)
}

func (l *Logger) InfoContext(ctx context.Context, message string, fields ...Field) {
	l.Info(message, appendRequestID(ctx, fields)...)
}

func (l *Logger) Warn(message string, fields ...Field) {
	l.logger.Warn(message, convertFields(fields...)...)
}

func (l *Logger) WarnContext(ctx context.Context, message string, fields ...Field) {
	l.Warn(message, appendRequestID(ctx, fields)...)
}

func (l *Logger) Debug(message string, fields ...Field) {
	l.logger.Debug(message, convertFields(fields...)...)
}

func (l *Logger) DebugContext(ctx context.Context, message string, fields ...Field) {
	l.Debug(message, appendRequestID(ctx, fields)...)
}

// Error logs err at error level. Errors carrying a pkg/errors stack trace
// have it written in place of the logger's own.
func (l *Logger) Error(err error, fields ...Field) {
	if err == nil {
		return
	}
	stacktrace := ""
	var st stackTracer
	if errors.As(err, &st) {
		stacktrace = strings.TrimSpace(fmt.Sprintf("%+v", st.StackTrace()))
	}

	if ce := l.logger.Check(zapcore.ErrorLevel, err.Error()); ce != nil {
		if stacktrace != "" {
			ce.Stack = stacktrace
		}
		ce.Write(convertFields(fields...)...)
	}
}

func (l *Logger) ErrorContext(ctx context.Context, err error, fields ...Field) {
	l.Error(err, appendRequestID(ctx, fields)...)
}

// WithFields returns a child logger with additional fields.
func (l *Logger) WithFields(fields ...Field) Interface {
	return &Logger{logger: l.logger.With(convertFields(fields...)...)}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func convertFields(fields ...Field) []zapcore.Field {
	zapFields := make([]zapcore.Field, 0, len(fields))
	for _, field := range fields {
		zapFields = append(zapFields, zap.Any(field.Key, field.Value))
	}
	return zapFields
}

func appendRequestID(ctx context.Context, fields []Field) []Field {
	id := util.GetRequestID(ctx)
	if id == "" {
		return fields
	}
	return append(fields, NewField("request_id", id))
}
