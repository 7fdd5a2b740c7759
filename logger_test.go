package logengine

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T, configure func(*Config)) (*Logger, *fakeSink) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.SinkConsoleEnabled = false
	cfg.InternalDiagnostics = false
	cfg.HeartbeatIntervalS = 0
	if configure != nil {
		configure(cfg)
	}
	l := NewLogger(cfg)
	require.NoError(t, l.Init())
	s := newFakeSink("fake")
	l.AddSink(s)
	t.Cleanup(func() { _ = l.Shutdown(time.Second) })
	return l, s
}

func TestLoggerInitIsIdempotent(t *testing.T) {
	l, _ := newTestLogger(t, nil)
	require.NoError(t, l.Init())
}

func TestLoggerSubmitBelowLevelIsDropped(t *testing.T) {
	l, s := newTestLogger(t, func(c *Config) { c.Level = LevelWarn })
	l.Info("should not appear")
	require.NoError(t, l.Flush(time.Second))
	assert.Empty(t, s.snapshot())
}

func TestLoggerInfoReachesSinkAndFlushBlocksUntilWritten(t *testing.T) {
	l, s := newTestLogger(t, nil)
	l.Info("hello", 42)
	require.NoError(t, l.Flush(time.Second))

	lines := s.snapshot()
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "INFO")
	assert.Contains(t, lines[0], "hello")
}

func TestLoggerConcurrentFlushesCoalesce(t *testing.T) {
	l, _ := newTestLogger(t, nil)
	l.Info("one")
	l.Info("two")

	done := make(chan error, 4)
	for i := 0; i < 4; i++ {
		go func() { done <- l.Flush(time.Second) }()
	}
	for i := 0; i < 4; i++ {
		require.NoError(t, <-done)
	}
}

func TestLoggerShutdownIsIdempotentAndStopsSubmits(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SinkConsoleEnabled = false
	cfg.InternalDiagnostics = false
	cfg.HeartbeatIntervalS = 0
	l := NewLogger(cfg)
	require.NoError(t, l.Init())
	s := newFakeSink("fake")
	l.AddSink(s)

	require.NoError(t, l.Shutdown(time.Second))
	require.NoError(t, l.Shutdown(time.Second))

	l.Info("after shutdown, dropped silently")
	assert.Empty(t, s.snapshot())
}

func TestLoggerStatsReflectsProcessedCount(t *testing.T) {
	l, _ := newTestLogger(t, nil)
	l.Info("a")
	l.Info("b")
	require.NoError(t, l.Flush(time.Second))

	stats := l.Stats()
	assert.EqualValues(t, 2, stats.Processed)
}

func TestLoggerSubmitBypassesFacadeRendering(t *testing.T) {
	l, s := newTestLogger(t, nil)
	cache := NewLocalCache(l.pool, 4)
	buf := cache.Alloc()
	_, _ = buf.WriteString("caller-rendered line\n")

	accepted := l.Submit(LevelInfo, "caller.go", 7, cache.TIDHash(), l.clock.now(), buf)
	require.True(t, accepted)
	require.NoError(t, l.Flush(time.Second))

	lines := s.snapshot()
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "caller-rendered line")
}

func TestLoggerSubmitBelowLevelReleasesBufferAndRejects(t *testing.T) {
	l, s := newTestLogger(t, func(c *Config) { c.Level = LevelWarn })
	buf := l.pool.Alloc()
	_, _ = buf.WriteString("filtered\n")

	accepted := l.Submit(LevelInfo, "caller.go", 7, 0, l.clock.now(), buf)
	assert.False(t, accepted)
	require.NoError(t, l.Flush(time.Second))
	assert.Empty(t, s.snapshot())
}

func TestSubmitTIDHashIsStablePerGoroutine(t *testing.T) {
	l, s := newTestLogger(t, nil)
	l.Info("first")
	l.Info("second")
	require.NoError(t, l.Flush(time.Second))

	lines := s.snapshot()
	require.Len(t, lines, 2)
	// Rendered line is "<date> <time> <level> <tidhash> <file>:<line> ...".
	fieldsOf := func(line string) []string { return strings.Fields(line) }
	f1, f2 := fieldsOf(lines[0]), fieldsOf(lines[1])
	require.True(t, len(f1) >= 4 && len(f2) >= 4)
	assert.Equal(t, f1[3], f2[3], "tid hash field should match for the same producer goroutine")
}

func TestLoggerApplyConfigHonorsLevelLive(t *testing.T) {
	l, s := newTestLogger(t, func(c *Config) { c.Level = LevelInfo })

	newCfg := l.GetConfig()
	newCfg.Level = LevelError
	require.NoError(t, l.ApplyConfig(newCfg))

	l.Info("now filtered out")
	require.NoError(t, l.Flush(time.Second))
	assert.Empty(t, s.snapshot())

	l.Error("still gets through")
	require.NoError(t, l.Flush(time.Second))
	lines := s.snapshot()
	require.Len(t, lines, 1)
	assert.True(t, strings.Contains(lines[0], "ERROR"))
}
