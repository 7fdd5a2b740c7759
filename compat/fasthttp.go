package compat

import (
	"fmt"
	"strings"

	"github.com/corvid-systems/logengine"
)

// FastHTTPAdapter wraps a *logengine.Logger to satisfy fasthttp's
// Logger interface (a single Printf method), so an application
// embedding a fasthttp server can route the server's own internal
// logging through this engine instead of fasthttp's default
// os.Stderr writer.
type FastHTTPAdapter struct {
	logger        *logengine.Logger
	defaultLevel  logengine.LogLevel
	levelDetector func(string) logengine.LogLevel
}

// NewFastHTTPAdapter builds an adapter around logger.
func NewFastHTTPAdapter(logger *logengine.Logger, opts ...FastHTTPOption) *FastHTTPAdapter {
	adapter := &FastHTTPAdapter{
		logger:        logger,
		defaultLevel:  logengine.LevelInfo,
		levelDetector: DetectLogLevel,
	}
	for _, opt := range opts {
		opt(adapter)
	}
	return adapter
}

// FastHTTPOption customizes adapter behavior.
type FastHTTPOption func(*FastHTTPAdapter)

// WithDefaultLevel sets the level used when the detector finds no
// signal in the message.
func WithDefaultLevel(level logengine.LogLevel) FastHTTPOption {
	return func(a *FastHTTPAdapter) { a.defaultLevel = level }
}

// WithLevelDetector overrides the message-content level detector.
func WithLevelDetector(detector func(string) logengine.LogLevel) FastHTTPOption {
	return func(a *FastHTTPAdapter) { a.levelDetector = detector }
}

// Printf implements fasthttp's Logger interface. fasthttp's server
// calls this both for routine status lines and, on a recovered
// handler panic, with a "panic: %v\n%s" message carrying a full
// goroutine stack trace — the stack gets pulled into its own field
// so the rendered record stays a single log line rather than an
// embedded multi-line dump.
func (a *FastHTTPAdapter) Printf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	level := a.defaultLevel
	if a.levelDetector != nil {
		if detected := a.levelDetector(msg); detected != 0 {
			level = detected
		}
	}

	head, stack, hasStack := splitPanicStack(msg)
	fields := []any{"source", "fasthttp"}
	if hasStack {
		level = logengine.LevelError
		fields = append(fields, "stack", stack)
	}

	logArgs := append([]any{"msg", head}, fields...)
	switch level {
	case logengine.LevelDebug:
		a.logger.Debug(logArgs...)
	case logengine.LevelWarn:
		a.logger.Warn(logArgs...)
	case logengine.LevelError, logengine.LevelFatal:
		a.logger.Error(logArgs...)
	default:
		a.logger.Info(logArgs...)
	}
}

// splitPanicStack separates a recovered-panic message's first line
// from the trailing goroutine dump fasthttp appends after it, if any.
func splitPanicStack(msg string) (head, stack string, hasStack bool) {
	if !strings.HasPrefix(msg, "panic:") {
		return msg, "", false
	}
	nl := strings.IndexByte(msg, '\n')
	if nl < 0 {
		return msg, "", false
	}
	return msg[:nl], strings.TrimSpace(msg[nl+1:]), true
}

// levelSignal pairs a level with the substrings whose presence in a
// message implies it, checked most-severe first so a message
// mentioning both, e.g. "warning: retrying after failed dial", still
// resolves to the stronger signal.
type levelSignal struct {
	level    logengine.LogLevel
	keywords []string
}

var levelSignals = []levelSignal{
	{logengine.LevelError, []string{"error", "failed", "fatal", "panic"}},
	{logengine.LevelWarn, []string{"warn", "warning", "deprecated"}},
	{logengine.LevelDebug, []string{"debug", "trace"}},
}

// DetectLogLevel guesses a level from message content, for fasthttp
// internal messages that carry no structured level of their own.
func DetectLogLevel(msg string) logengine.LogLevel {
	msgLower := strings.ToLower(msg)
	for _, signal := range levelSignals {
		for _, kw := range signal.keywords {
			if strings.Contains(msgLower, kw) {
				return signal.level
			}
		}
	}
	return logengine.LevelInfo
}
