// Package logger wraps zap with request-scoped fields.
package logger

import (
	"context"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	appctx "cannapos/internal/core/context"
)

// Logger is a zap.SugaredLogger that can be enriched from a request context.
type Logger struct {
	*zap.SugaredLogger
}

type loggerKey struct{}

// Config selects the level and encoding.
type Config struct {
	Level       string // debug, info, warn, error
	Development bool   // console encoding with colored levels
	OutputPaths []string
}

// New builds a logger. An unparsable level falls back to info.
func New(cfg Config) (*Logger, error) {
	zl, err := buildConfig(cfg).Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return FromZap(zl), nil
}

// FromZap wraps an existing zap logger.
func FromZap(zl *zap.Logger) *Logger {
	return &Logger{zl.Sugar()}
}

func buildConfig(cfg Config) zap.Config {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	if len(cfg.OutputPaths) > 0 {
		zc.OutputPaths = cfg.OutputPaths
	}
	return zc
}

var defaultLogger = sync.OnceValue(func() *Logger {
	l, err := New(Config{Level: "info", OutputPaths: []string{"stdout"}})
	if err != nil {
		return FromZap(zap.NewNop())
	}
	return l
})

// Default returns the process-wide fallback logger.
func Default() *Logger {
	return defaultLogger()
}

// Fields returns the correlation fields carried by ctx: trace and request
// ids, then the caller's user and dispensary.
func Fields(ctx context.Context) []any {
	var kv []any
	if trace := appctx.GetTrace(ctx); trace != nil {
		kv = append(kv, "trace_id", trace.TraceID, "request_id", trace.RequestID)
	}
	if user := appctx.GetUser(ctx); user != nil {
		kv = append(kv, "user_id", user.UserID, "dispensary_id", user.DispensaryID)
	}
	return kv
}

// WithContext adds the correlation fields of ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	kv := Fields(ctx)
	if len(kv) == 0 {
		return l
	}
	return &Logger{l.SugaredLogger.With(kv...)}
}

// With adds key-value pairs.
func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{l.SugaredLogger.With(keysAndValues...)}
}

// WithComponent tags entries with a component name (worker, invalidator, ...).
func (l *Logger) WithComponent(name string) *Logger {
	return l.With("component", name)
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger stored in ctx, or Default, enriched with
// the correlation fields of ctx.
func FromContext(ctx context.Context) *Logger {
	l, ok := ctx.Value(loggerKey{}).(*Logger)
	if !ok {
		l = Default()
	}
	return l.WithContext(ctx)
}

func Debug(ctx context.Context, msg string, keysAndValues ...any) {
	FromContext(ctx).Debugw(msg, keysAndValues...)
}

func Info(ctx context.Context, msg string, keysAndValues ...any) {
	FromContext(ctx).Infow(msg, keysAndValues...)
}

func Warn(ctx context.Context, msg string, keysAndValues ...any) {
	FromContext(ctx).Warnw(msg, keysAndValues...)
}

func Error(ctx context.Context, msg string, keysAndValues ...any) {
	FromContext(ctx).Errorw(msg, keysAndValues...)
}

// Fatal logs and exits with status 1.
func Fatal(ctx context.Context, msg string, keysAndValues ...any) {
	FromContext(ctx).Fatalw(msg, keysAndValues...)
	os.Exit(1)
}
