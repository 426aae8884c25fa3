package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Output formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Logger is a leveled zerolog logger carrying service-wide fields.
type Logger struct {
	zl zerolog.Logger
}

// Init installs a logger built from cfg as the global logger and drops any
// named loggers derived from the previous one.
func Init(cfg Config, serviceName string) {
	cfg.ApplyDefaults()
	SetGlobalLogger(New(&cfg, serviceName))
	registry.reset()
}

// New builds a logger writing to cfg.Output.
func New(cfg *Config, serviceName string) *Logger {
	out := io.Writer(os.Stdout)
	if strings.EqualFold(cfg.Output, "stderr") {
		out = os.Stderr
	}
	return NewWithWriter(cfg, serviceName, out)
}

// NewWithWriter builds a logger writing to w.
func NewWithWriter(cfg *Config, serviceName string, w io.Writer) *Logger {
	level := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(cfg.Level); err == nil && cfg.Level != "" {
		level = parsed
	}
	if strings.EqualFold(cfg.Format, FormatConsole) {
		w = consoleWriter(w, cfg.NoColor)
	}

	zc := zerolog.New(w).Level(level).With().Timestamp()
	if serviceName != "" {
		zc = zc.Str("service", serviceName)
	}
	if cfg.Caller {
		zc = zc.Caller()
	}
	return &Logger{zl: zc.Logger()}
}

// NewDefault builds an info-level console logger on stdout.
func NewDefault(serviceName string) *Logger {
	return New(&Config{Level: "info", Format: FormatConsole, Output: "stdout"}, serviceName)
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

type ctxKey int

const (
	requestIDKey ctxKey = iota
	transcriptionIDKey
)

// ContextWithRequestID stores a request ID for later log enrichment.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request ID stored in ctx, if any.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// ContextWithTranscriptionID marks ctx as working on one transcription.
func ContextWithTranscriptionID(ctx context.Context, id uint) context.Context {
	return context.WithValue(ctx, transcriptionIDKey, id)
}

// TranscriptionIDFromContext returns the transcription stored in ctx.
func TranscriptionIDFromContext(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(transcriptionIDKey).(uint)
	return id, ok
}

func (l *Logger) derive(fn func(zerolog.Context) zerolog.Context) *Logger {
	return &Logger{zl: fn(l.zl.With()).Logger()}
}

// WithContext adds the request ID, transcription ID and active trace ID
// found in ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	return l.derive(func(zc zerolog.Context) zerolog.Context {
		if id := RequestIDFromContext(ctx); id != "" {
			zc = zc.Str(FieldRequestID, id)
		}
		if id, ok := TranscriptionIDFromContext(ctx); ok {
			zc = zc.Uint(FieldTranscriptionID, id)
		}
		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			zc = zc.Str(FieldTraceID, sc.TraceID().String())
		}
		return zc
	})
}

func (l *Logger) WithComponent(name string) *Logger {
	return l.derive(func(zc zerolog.Context) zerolog.Context {
		return zc.Str(FieldComponent, name)
	})
}

func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return l.derive(func(zc zerolog.Context) zerolog.Context {
		return zc.Fields(fields)
	})
}

func (l *Logger) WithError(err error) *Logger {
	return l.derive(func(zc zerolog.Context) zerolog.Context {
		return zc.Err(err)
	})
}

// Zerolog exposes the underlying logger for libraries that take one.
func (l *Logger) Zerolog() zerolog.Logger {
	return l.zl
}

func emit(ev *zerolog.Event, msg string, fields []map[string]interface{}) {
	for _, f := range fields {
		ev = ev.Fields(f)
	}
	ev.Msg(msg)
}

func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	emit(l.zl.Debug(), msg, fields)
}

func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	emit(l.zl.Info(), msg, fields)
}

func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	emit(l.zl.Warn(), msg, fields)
}

func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	emit(l.zl.Error(), msg, fields)
}

// Fatal logs at fatal level and exits the process.
func (l *Logger) Fatal(msg string, fields ...map[string]interface{}) {
	emit(l.zl.Fatal(), msg, fields)
}

var global atomic.Pointer[Logger]

// SetGlobalLogger replaces the process-wide logger.
func SetGlobalLogger(l *Logger) { global.Store(l) }

// GetGlobalLogger returns the process-wide logger, installing a default
// console logger on first use.
func GetGlobalLogger() *Logger {
	if l := global.Load(); l != nil {
		return l
	}
	global.CompareAndSwap(nil, NewDefault(""))
	return global.Load()
}

func Debug(msg string, fields ...map[string]interface{}) { GetGlobalLogger().Debug(msg, fields...) }
func Info(msg string, fields ...map[string]interface{})  { GetGlobalLogger().Info(msg, fields...) }
func Warn(msg string, fields ...map[string]interface{})  { GetGlobalLogger().Warn(msg, fields...) }
func Error(msg string, fields ...map[string]interface{}) { GetGlobalLogger().Error(msg, fields...) }

// WithContext enriches the global logger from ctx.
func WithContext(ctx context.Context) *Logger {
	return GetGlobalLogger().WithContext(ctx)
}

// levelBadges maps zerolog level names to console badges and ANSI colors.
var levelBadges = map[string][2]string{
	"trace": {"TRC", "\033[90m"},
	"debug": {"DBG", "\033[36m"},
	"info":  {"INF", "\033[32m"},
	"warn":  {"WRN", "\033[33m"},
	"error": {"ERR", "\033[31m"},
	"fatal": {"FTL", "\033[35m"},
}

func consoleWriter(w io.Writer, noColor bool) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
		NoColor:    noColor,
		FormatLevel: func(i interface{}) string {
			name := fmt.Sprint(i)
			badge, ok := levelBadges[name]
			switch {
			case !ok:
				return "[" + strings.ToUpper(name) + "]"
			case noColor:
				return "[" + badge[0] + "]"
			default:
				return badge[1] + "[" + badge[0] + "]\033[0m"
			}
		},
		FormatFieldName: func(i interface{}) string { return fmt.Sprint(i) + ":" },
	}
}
