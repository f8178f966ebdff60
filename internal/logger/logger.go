// Package logger provides the process-wide structured logger used across
// the accounting core: a package-level *slog.Logger configurable once at
// startup, with level/format switchable at runtime and typed field
// constructors in fields.go for the recurring domain keys (storage index,
// prefix, share number, owner number, cycle id).
package logger

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

// Config controls the initial logger setup.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // text, json
	Output string // stdout, stderr, or a file path
}

var (
	currentLevel = new(slog.LevelVar)

	mu      sync.RWMutex
	slogger *slog.Logger
	output  io.Writer = os.Stdout
)

func init() {
	currentLevel.Set(slog.LevelInfo)
	slogger = slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: currentLevel}))
}

// Init (re)configures the package logger. Safe to call once at process
// startup, before any other goroutine logs.
func Init(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	switch cfg.Output {
	case "", "stdout":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		output = f
	}

	currentLevel.Set(parseLevel(cfg.Level))

	opts := &slog.HandlerOptions{Level: currentLevel}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}
	slogger = slog.New(handler)
	return nil
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// SetLevel changes the minimum level logged, without touching the handler
// or output, so verbosity can be adjusted at runtime.
func SetLevel(level string) {
	currentLevel.Set(parseLevel(level))
}

func get() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return slogger
}

// Debug logs at debug level. args are alternating key/value pairs, or
// slog.Attr values produced by the constructors in fields.go.
func Debug(msg string, args ...any) { get().Debug(msg, args...) }

// Info logs at info level.
func Info(msg string, args ...any) { get().Info(msg, args...) }

// Warn logs at warn level.
func Warn(msg string, args ...any) { get().Warn(msg, args...) }

// Error logs at error level.
func Error(msg string, args ...any) { get().Error(msg, args...) }

// With returns a logger pre-populated with args, for a component that logs
// the same fields (e.g. a crawler cycle id) repeatedly.
func With(args ...any) *slog.Logger { return get().With(args...) }
