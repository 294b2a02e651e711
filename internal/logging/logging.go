package logging

import (
	"context"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	sugar *zap.SugaredLogger
	once  sync.Once
)

// Logger is the structured logging interface used across the calculator
// binaries. Keep it small and focused on key/value events.
type Logger interface {
	Infow(msg string, keysAndValues ...interface{})
	Debugw(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
	Fatalw(msg string, keysAndValues ...interface{})
	Sync() error
}

type noopLogger struct{}

func (n noopLogger) Infow(msg string, keysAndValues ...interface{})  {}
func (n noopLogger) Debugw(msg string, keysAndValues ...interface{}) {}
func (n noopLogger) Warnw(msg string, keysAndValues ...interface{})  {}
func (n noopLogger) Errorw(msg string, keysAndValues ...interface{}) {}
func (n noopLogger) Fatalw(msg string, keysAndValues ...interface{}) {}
func (n noopLogger) Sync() error                                     { return nil }

// current holds the active Logger. It starts as a no-op so logging calls
// are safe before Init runs.
var current Logger = noopLogger{}

// Init initializes the global sugared logger. The level comes from
// LOG_LEVEL and the destination from LOG_OUTPUT (default stdout). It is safe
// to call multiple times; only the first call has an effect.
func Init() *zap.SugaredLogger {
	output := os.Getenv("LOG_OUTPUT")
	if output == "" {
		output = "stdout"
	}
	return InitTo(output)
}

// InitTo is Init with an explicit output path. The stdio server uses it to
// keep stdout free for protocol frames.
func InitTo(output string) *zap.SugaredLogger {
	once.Do(func() {
		cfg := zap.Config{
			Encoding:         "json",
			EncoderConfig:    zap.NewProductionEncoderConfig(),
			OutputPaths:      []string{output},
			ErrorOutputPaths: []string{"stderr"},
		}
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncoderConfig.CallerKey = "caller"
		cfg.Level = zap.NewAtomicLevelAt(levelFromEnv())

		logger, err := cfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
		if err != nil {
			logger = zap.NewNop()
		}
		// Route the standard library logger (used by the MCP SDK) into zap.
		_ = zap.RedirectStdLog(logger)
		sugar = logger.Sugar()
		current = sugar
	})
	return sugar
}

func levelFromEnv() zapcore.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return zap.DebugLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

// Sugar returns the initialized sugared logger (nil if Init was not called).
func Sugar() *zap.SugaredLogger { return sugar }

// SetLogger replaces the package-level logger. Pass nil to reset to the
// logger built by Init, or to the no-op logger if Init never ran.
func SetLogger(l Logger) {
	if l == nil {
		if sugar != nil {
			current = sugar
		} else {
			current = noopLogger{}
		}
		return
	}
	current = l
}

// GetLogger returns the current Logger.
func GetLogger() Logger { return current }

func Infow(msg string, keysAndValues ...interface{}) {
	if current != nil {
		current.Infow(msg, keysAndValues...)
	}
}

func Debugw(msg string, keysAndValues ...interface{}) {
	if current != nil {
		current.Debugw(msg, keysAndValues...)
	}
}

func Warnw(msg string, keysAndValues ...interface{}) {
	if current != nil {
		current.Warnw(msg, keysAndValues...)
	}
}

func Errorw(msg string, keysAndValues ...interface{}) {
	if current != nil {
		current.Errorw(msg, keysAndValues...)
	}
}

func Fatalw(msg string, keysAndValues ...interface{}) {
	if current != nil {
		current.Fatalw(msg, keysAndValues...)
	}
}

// FatalExitf logs a fatal message and exits the process with code 1.
func FatalExitf(msg string, keysAndValues ...interface{}) {
	if current != nil {
		current.Errorw(msg, keysAndValues...)
		_ = current.Sync()
	}
	os.Exit(1)
}

// Sync flushes any buffered logs.
func Sync() error {
	if current != nil {
		return current.Sync()
	}
	return nil
}

type ctxKeyType struct{}

// WithFields returns a context carrying the provided key/value pairs,
// appended to any fields already present.
func WithFields(ctx context.Context, kv ...interface{}) context.Context {
	if len(kv) == 0 {
		return ctx
	}
	prev, _ := ctx.Value(ctxKeyType{}).([]interface{})
	merged := make([]interface{}, 0, len(prev)+len(kv))
	merged = append(merged, prev...)
	merged = append(merged, kv...)
	return context.WithValue(ctx, ctxKeyType{}, merged)
}

// FromContext returns any fields previously attached with WithFields.
func FromContext(ctx context.Context) []interface{} {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxKeyType{}).([]interface{}); ok {
		return v
	}
	return nil
}

func merge(ctx context.Context, kv []interface{}) []interface{} {
	ctxFields := FromContext(ctx)
	if len(ctxFields) == 0 {
		return kv
	}
	merged := make([]interface{}, 0, len(ctxFields)+len(kv))
	merged = append(merged, ctxFields...)
	merged = append(merged, kv...)
	return merged
}

// InfowCtx merges fields from ctx with kv and logs at info level.
func InfowCtx(ctx context.Context, msg string, kv ...interface{}) {
	Infow(msg, merge(ctx, kv)...)
}

// WarnwCtx merges fields from ctx with kv and logs at warn level.
func WarnwCtx(ctx context.Context, msg string, kv ...interface{}) {
	Warnw(msg, merge(ctx, kv)...)
}

// Field helpers use dot-separated keys so log queries stay uniform.

func SessionFields(sessionID, kind string) []interface{} {
	if kind == "" {
		return []interface{}{"session.id", sessionID}
	}
	return []interface{}{"session.id", sessionID, "session.kind", kind}
}

func ToolFields(name string, isError bool) []interface{} {
	return []interface{}{"tool.name", name, "tool.error", isError}
}

func ServerFields(name, transport string) []interface{} {
	return []interface{}{"server.name", name, "server.transport", transport}
}
