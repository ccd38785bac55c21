// Package logger provides the process-wide leveled logger used by the server.
//
// The printf-style helpers mirror the call sites used across the codebase
// while the output itself is produced by zerolog, either as JSON lines or in
// the human-readable console format.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Level is a logging severity.
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

var (
	mu  sync.RWMutex
	log = newLogger(os.Stderr, "console")
)

func newLogger(w io.Writer, format string) zerolog.Logger {
	if format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).With().Timestamp().Logger().Level(zerolog.InfoLevel)
}

// Configure sets the output format ("json" or "console") and the minimum
// level. Unknown levels fall back to info.
func Configure(w io.Writer, format, level string) {
	if w == nil {
		w = os.Stderr
	}
	l := newLogger(w, format)

	mu.Lock()
	log = l.Level(toZerolog(ParseLevel(level)))
	mu.Unlock()
}

// SetOutput redirects log output, keeping the current level. Used by tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	log = log.Output(w)
}

// SetLevel changes the minimum level that is emitted.
func SetLevel(level Level) {
	mu.Lock()
	defer mu.Unlock()
	log = log.Level(toZerolog(level))
}

// ParseLevel maps a level name to a Level. Unknown names map to LevelInfo.
func ParseLevel(name string) Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return LevelTrace
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func toZerolog(level Level) zerolog.Level {
	switch level {
	case LevelTrace:
		return zerolog.TraceLevel
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Logger returns a copy of the underlying zerolog logger for callers that
// want structured fields.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

func emit(level zerolog.Level, format string, args ...any) {
	mu.RLock()
	l := log
	mu.RUnlock()
	l.WithLevel(level).Msg(fmt.Sprintf(format, args...))
}

func Tracef(format string, args ...any) { emit(zerolog.TraceLevel, format, args...) }
func Debugf(format string, args ...any) { emit(zerolog.DebugLevel, format, args...) }
func Infof(format string, args ...any)  { emit(zerolog.InfoLevel, format, args...) }
func Warnf(format string, args ...any)  { emit(zerolog.WarnLevel, format, args...) }
func Errorf(format string, args ...any) { emit(zerolog.ErrorLevel, format, args...) }
