package logengine

import (
	"sync"
	"time"
)

var (
	defaultOnce   sync.Once
	defaultLogger *Logger
)

// Default returns the process-wide Logger, building it with
// DefaultConfig on first use. Most applications only need one Logger;
// this lets library code log through a shared instance without
// threading a *Logger through every call site, while still allowing a
// real application to build its own Logger explicitly and ignore this
// entirely.
func Default() *Logger {
	defaultOnce.Do(func() {
		defaultLogger = NewLogger(nil)
	})
	return defaultLogger
}

// SetDefault replaces the process-wide Logger. Intended to be called
// once at startup, before any package-level convenience function runs.
func SetDefault(l *Logger) {
	defaultOnce.Do(func() {})
	defaultLogger = l
}

// Init initializes the default Logger.
func Init() error { return Default().Init() }

// AddSink registers a Sink with the default Logger.
func AddSink(s Sink) { Default().AddSink(s) }

// Debug logs at debug level through the default Logger.
func Debug(args ...any) { Default().Debug(args...) }

// Info logs at info level through the default Logger.
func Info(args ...any) { Default().Info(args...) }

// Warn logs at warn level through the default Logger.
func Warn(args ...any) { Default().Warn(args...) }

// Error logs at error level through the default Logger.
func Error(args ...any) { Default().Error(args...) }

// Fatal logs at fatal level through the default Logger.
func Fatal(args ...any) { Default().Fatal(args...) }

// Flush flushes the default Logger.
func Flush(timeout time.Duration) error { return Default().Flush(timeout) }

// Shutdown shuts down the default Logger.
func Shutdown(timeout time.Duration) error { return Default().Shutdown(timeout) }
