package logengine

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Level parses a level name ("debug", "info", "warn", "error",
// "fatal") or a bare numeric string into a LogLevel.
func Level(levelStr string) (LogLevel, error) {
	s := strings.ToLower(strings.TrimSpace(levelStr))
	switch s {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "fatal":
		return LevelFatal, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return LogLevel(n), nil
	}
	return 0, fmtErrorf("invalid level string: %q (use debug, info, warn, error, fatal, or a number)", levelStr)
}

// stringToLogLevelHook lets mapstructure decode a "level" override
// given as either a name or a number into a LogLevel field.
func stringToLogLevelHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(LogLevel(0)) {
		return data, nil
	}
	return Level(data.(string))
}

var overrideDecodeHook = mapstructure.ComposeDecodeHookFunc(
	stringToLogLevelHook,
	mapstructure.StringToTimeDurationHookFunc(),
)
