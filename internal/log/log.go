package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelError Level = "ERROR"
)

// Options configures the process-wide logger.
type Options struct {
	// Level is the minimum level written; empty means INFO.
	Level Level
	// JSON switches from logfmt-style text lines to JSON lines.
	JSON bool
	// Output defaults to stderr.
	Output io.Writer

	// SentryDSN, if set, also ships warnings and errors to Sentry.
	SentryDSN         string
	SentryEnvironment string
}

var (
	mu       sync.RWMutex
	logger   *slog.Logger
	levelVar = new(slog.LevelVar)
	sentryOn bool
)

func init() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}))
}

// Setup replaces the global logger. A Sentry init failure is logged and the
// logger keeps writing locally.
func Setup(opts Options) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	SetLevel(opts.Level)

	hopts := &slog.HandlerOptions{Level: levelVar}
	var local slog.Handler
	if opts.JSON {
		local = slog.NewJSONHandler(out, hopts)
	} else {
		local = slog.NewTextHandler(out, hopts)
	}

	handler := local
	useSentry := false
	if opts.SentryDSN != "" {
		env := opts.SentryEnvironment
		if env == "" {
			env = "production"
		}
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         opts.SentryDSN,
			Environment: env,
			EnableLogs:  true,
		})
		if err != nil {
			slog.New(local).Error("failed to initialize Sentry", "err", err)
		} else {
			sentryHandler := sentryslog.Option{
				EventLevel: []slog.Level{slog.LevelError},
				LogLevel:   []slog.Level{slog.LevelWarn, slog.LevelError},
			}.NewSentryHandler(context.Background())
			handler = slog.NewMultiHandler(local, sentryHandler)
			useSentry = true
		}
	}

	mu.Lock()
	logger = slog.New(handler)
	sentryOn = useSentry
	mu.Unlock()
}

// Close flushes buffered Sentry events, if Sentry is enabled.
func Close() {
	mu.RLock()
	on := sentryOn
	mu.RUnlock()
	if on {
		sentry.Flush(2 * time.Second)
	}
}

// SetLevel changes the minimum level. Unknown values select INFO.
func SetLevel(l Level) {
	switch Level(strings.ToUpper(string(l))) {
	case LevelDebug:
		levelVar.Set(slog.LevelDebug)
	case LevelError:
		levelVar.Set(slog.LevelError)
	default:
		levelVar.Set(slog.LevelInfo)
	}
}

// Logger exposes the underlying slog logger for libraries that take one.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func Debug(msg string, kv ...any) {
	Logger().Debug(msg, kv...)
}

func Info(msg string, kv ...any) {
	Logger().Info(msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	// Prepend error into key-value list.
	extended := append([]any{"err", err}, kv...)
	Logger().Error(msg, extended...)
}
