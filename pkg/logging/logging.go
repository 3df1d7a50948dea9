package logging

import (
	"context"
	"fmt"
	"os"
	"strings"

	commonlog "github.com/RyanBlaney/latency-benchmark-common/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger, Fields and Level are the shared logging contract; this package
// backs it with zap.
type (
	Logger = commonlog.Logger
	Fields = commonlog.Fields
	Level  = commonlog.Level
)

const (
	DebugLevel = commonlog.DebugLevel
	InfoLevel  = commonlog.InfoLevel
	WarnLevel  = commonlog.WarnLevel
	ErrorLevel = commonlog.ErrorLevel
	FatalLevel = commonlog.FatalLevel
)

// contextFieldsKey is the context key commonlog loggers read fields from
const contextFieldsKey = "logger_fields"

// Options controls how the root logger is built
type Options struct {
	Level  string // debug, info, warn or error
	Format string // "console" or "json"
	Output string // "stderr", "stdout" or a file path
}

var rootLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)

func init() {
	commonlog.SetGlobalLogger(&zapLogger{
		z:     newZap(Options{Format: "console", Output: "stderr"}, rootLevel),
		level: &rootLevel,
	})
}

// Configure rebuilds the root logger and installs it as the global logger.
// Loggers created afterwards use the new output and encoder; the level is
// shared with every existing logger.
func Configure(opts Options) error {
	if opts.Level != "" {
		lvl, err := ParseLevel(opts.Level)
		if err != nil {
			return err
		}
		rootLevel.SetLevel(zapLevel(lvl))
	}

	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	commonlog.SetGlobalLogger(&zapLogger{z: newZap(opts, rootLevel), level: &rootLevel})
	return nil
}

// ParseLevel converts a configured level name
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return InfoLevel, fmt.Errorf("log level: unsupported value %q", level)
	}
}

// SetLevel changes the level of every logger derived from the root
func SetLevel(level Level) {
	commonlog.SetLevel(level)
}

// NewDefaultLogger returns the global logger
func NewDefaultLogger() Logger {
	return commonlog.GetGlobalLogger()
}

// WithFields returns the global logger carrying the given fields
func WithFields(fields Fields) Logger {
	return commonlog.WithFields(fields)
}

// Error logs an error through the global logger
func Error(err error, msg string, fields ...Fields) {
	commonlog.Error(err, msg, fields...)
}

// NewNop returns a logger that discards everything
func NewNop() Logger {
	return &commonlog.NoOpLogger{}
}

// FromZap adapts an existing zap logger, mostly for tests using observers.
// SetLevel on the result is a no-op.
func FromZap(z *zap.Logger) Logger {
	if z == nil {
		return NewNop()
	}
	return &zapLogger{z: z}
}

type zapLogger struct {
	z     *zap.Logger
	level *zap.AtomicLevel // nil when the core's level is not ours to change
}

func (l *zapLogger) Debug(msg string, fields ...Fields) {
	l.z.Debug(msg, toZap(fields)...)
}

func (l *zapLogger) Info(msg string, fields ...Fields) {
	l.z.Info(msg, toZap(fields)...)
}

func (l *zapLogger) Warn(msg string, fields ...Fields) {
	l.z.Warn(msg, toZap(fields)...)
}

func (l *zapLogger) Error(err error, msg string, fields ...Fields) {
	l.z.Error(msg, withError(toZap(fields), err)...)
}

func (l *zapLogger) Fatal(err error, msg string, fields ...Fields) {
	l.z.Fatal(msg, withError(toZap(fields), err)...)
}

func (l *zapLogger) WithFields(fields Fields) Logger {
	if len(fields) == 0 {
		return l
	}
	return &zapLogger{z: l.z.With(toZap([]Fields{fields})...), level: l.level}
}

func (l *zapLogger) WithContext(ctx context.Context) Logger {
	if fields, ok := ctx.Value(contextFieldsKey).(Fields); ok {
		return l.WithFields(fields)
	}
	return l
}

func (l *zapLogger) SetLevel(level Level) {
	if l.level != nil {
		l.level.SetLevel(zapLevel(level))
	}
}

func withError(fields []zap.Field, err error) []zap.Field {
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	return fields
}

func toZap(fieldSets []Fields) []zap.Field {
	var out []zap.Field
	for _, fields := range fieldSets {
		for k, v := range fields {
			out = append(out, zap.Any(k, v))
		}
	}
	return out
}

func zapLevel(level Level) zapcore.Level {
	switch level {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	case FatalLevel:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func newZap(opts Options, level zap.AtomicLevel) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if strings.EqualFold(opts.Format, "json") {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	return zap.New(zapcore.NewCore(encoder, openSink(opts.Output), level))
}

func openSink(output string) zapcore.WriteSyncer {
	switch strings.TrimSpace(output) {
	case "", "stderr":
		return zapcore.Lock(os.Stderr)
	case "stdout":
		return zapcore.Lock(os.Stdout)
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return zapcore.Lock(os.Stderr)
		}
		return zapcore.AddSync(f)
	}
}
