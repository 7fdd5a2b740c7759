package logengine

import (
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/corvid-systems/logengine/formatter"
	"github.com/corvid-systems/logengine/sanitizer"
)

// Logger is the engine facade: it owns the Pool, Queue, worker and
// coarse clock, and exposes the submit/flush/shutdown surface
// applications call. One Logger is meant to be built once at process
// startup and shared; Init is idempotent so a package-level singleton
// wrapped in sync.Once (see default.go) is safe to reuse across
// ApplyConfig calls.
type Logger struct {
	cfg atomic.Pointer[Config]
	fmt atomic.Pointer[formatter.Formatter]

	state *state
	pool  *Pool
	queue *Queue
	clock *coarseClock
	diag  *diagnostics
	wk    *worker
	hb    *heartbeat

	initMu  sync.Mutex
	flushes singleflight.Group
}

// NewLogger builds an un-started Logger around cfg. Pass nil for
// DefaultConfig.
func NewLogger(cfg *Config) *Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	l := &Logger{state: newState()}
	l.cfg.Store(cfg)
	l.fmt.Store(newFormatterFromConfig(cfg))
	return l
}

func newFormatterFromConfig(cfg *Config) *formatter.Formatter {
	kind := cfg.FormatterType()
	policy := sanitizer.PolicyTxt
	switch kind {
	case formatter.JSON:
		policy = sanitizer.PolicyJSON
	case formatter.Raw:
		policy = sanitizer.PolicyRaw
	}
	san := sanitizer.New().Policy(policy)
	return formatter.New(kind, cfg.TimeFormat, san)
}

// Init validates cfg, builds the Pool/Queue/worker/clock, and starts
// the consumer loop. Calling Init again after a prior Shutdown
// rebuilds everything from the currently stored Config; calling it
// while already running is a no-op.
func (l *Logger) Init() error {
	l.initMu.Lock()
	defer l.initMu.Unlock()

	if l.state.initialized.Load() {
		return nil
	}

	cfg := l.GetConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}

	l.pool = NewPool(int(cfg.BufferPoolSize))
	l.queue = NewQueue(cfg.QueueCapacity, cfg.BackpressurePolicy(), cfg.blockTimeout())
	l.clock = newCoarseClock()
	l.diag = newDiagnostics(cfg.InternalDiagnostics)

	l.wk = newWorker(l.queue, int(cfg.WorkerBatchSize), l.diag, func(n uint64) {
		l.state.processed.Add(n)
	})

	l.registerBuiltinSinks(cfg)

	l.clock.start()
	l.wk.start()

	l.hb = newHeartbeat(l, time.Duration(cfg.HeartbeatIntervalS)*time.Second)
	l.hb.start()

	l.state.initialized.Store(true)
	l.state.started.Store(true)
	l.state.shutdown.Store(false)
	return nil
}

// AddSink registers an extra Sink with the running worker, on top of
// whatever built-in sinks Init already constructed from Config via the
// SinkFactory registry. Must be called after Init; a call before Init
// has built the worker is a no-op.
func (l *Logger) AddSink(s Sink) {
	l.initMu.Lock()
	defer l.initMu.Unlock()
	if l.wk == nil {
		return
	}
	l.wk.addSink(s)
}

// registerBuiltinSinks asks every registered SinkFactory (console,
// file, http, whichever packages have been imported for their init()
// side effect) whether cfg's flags want it built, in a fixed name
// order so AddSink ordering is deterministic across runs regardless of
// Go's unordered map iteration. A factory returning an error does not
// abort Init: the failure goes to diagnostics and the Logger keeps
// running without that one sink, matching the documented contract for
// sink-initialization errors.
func (l *Logger) registerBuiltinSinks(cfg *Config) {
	factories := snapshotSinkFactories()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		s, err := factories[name](cfg, l)
		if err != nil {
			l.diag.sinkInitError(name, err)
			continue
		}
		if s == nil {
			continue
		}
		l.wk.addSink(s)
	}
}

// GetConfig returns a copy of the active configuration.
func (l *Logger) GetConfig() *Config {
	return l.cfg.Load().Clone()
}

// ApplyConfig swaps in a new configuration. Level is honored live
// while running, and so are the render settings (Format, TimeFormat):
// when anything besides Level changes, the formatter is rebuilt at
// once. Every other change requires Shutdown+Init to take effect.
func (l *Logger) ApplyConfig(cfg *Config) error {
	if cfg == nil {
		return fmtErrorf("configuration cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	old := l.cfg.Load()
	l.cfg.Store(cfg)
	if old == nil || requiresRestart(old, cfg) {
		l.fmt.Store(newFormatterFromConfig(cfg))
	}
	return nil
}

// Flush enqueues a FLUSH barrier and waits for the worker to drain
// everything ahead of it and flush every sink, or until timeout
// elapses. Concurrent Flush calls within the same instant are
// coalesced into a single barrier via singleflight so a flush storm
// from many goroutines costs one round trip through the queue.
func (l *Logger) Flush(timeout time.Duration) error {
	if !l.state.IsRunning() {
		return fmtErrorf("logger not running")
	}

	v, err, _ := l.flushes.Do("flush", func() (any, error) {
		rec := newFlushRecord()
		if !l.queue.Push(rec, true) {
			return nil, fmtErrorf("failed to enqueue flush barrier")
		}
		done := make(chan struct{})
		go func() {
			rec.Wait()
			close(done)
		}()
		select {
		case <-done:
			return nil, nil
		case <-time.After(timeout):
			return nil, fmtErrorf("timeout waiting for flush confirmation (%v)", timeout)
		}
	})
	if err != nil {
		return err
	}
	_ = v
	return nil
}

// Shutdown stops the worker after draining the queue, flushing and
// closing every sink, and stopping the coarse clock. It subsumes a
// final flush: callers do not need to call Flush before Shutdown.
// Idempotent; a second call returns nil immediately.
func (l *Logger) Shutdown(timeout time.Duration) error {
	l.initMu.Lock()
	defer l.initMu.Unlock()

	if !l.state.shutdown.CompareAndSwap(false, true) {
		return nil
	}
	if !l.state.initialized.Load() {
		return nil
	}

	l.queue.Close()

	done := make(chan struct{})
	go func() {
		l.wk.stopAndWait()
		close(done)
	}()

	var timedOut error
	select {
	case <-done:
	case <-time.After(timeout):
		timedOut = fmtErrorf("worker did not drain within timeout (%v)", timeout)
	}

	closeErr := l.wk.closeSinks()
	l.hb.stopAndWait()
	l.clock.stopAndWait()
	l.diag.sync()

	l.state.started.Store(false)
	l.state.initialized.Store(false)

	return combineErrors(timedOut, closeErr)
}

func callerInfo(skip int) (file string, line uint32) {
	_, f, ln, ok := runtime.Caller(skip)
	if !ok {
		return "", 0
	}
	return filepath.Base(f), uint32(ln)
}

// submit renders args through the active formatter into a pooled
// Buffer and pushes the resulting Record onto the Queue. Records
// below the configured Level are dropped before any buffer is
// allocated. The thread-id hash is derived from the calling
// goroutine's runtime id, so repeated calls from the same goroutine
// hash to the same value, matching the Record invariant that
// ThreadIDHash identifies a producer rather than a single call.
func (l *Logger) submit(level LogLevel, skip int, args []any) {
	cfg := l.cfg.Load()
	if level < cfg.Level {
		return
	}
	if !l.state.IsRunning() {
		return
	}

	file, line := callerInfo(skip)
	timeNS := l.clock.now()
	tid := tidHash(goroutineID())

	buf := l.pool.Alloc()
	rendered := l.fmt.Load().Render(buf.Bytes()[:0], timeNS, level.String(), tid, file, line, args)
	buf.Reset()
	_, _ = buf.Write(rendered)

	rec := NewRecord(level, file, line, tid, timeNS, buf, l.pool)
	l.queue.Push(rec, false)
}

// Submit is the hot-path entry point external collaborators are
// expected to use directly: the caller obtains buf from the Pool (or
// its own LocalCache), renders the payload into it, and hands metadata
// in rather than letting the facade render anything itself. Level
// filtering is advisory at the call site and repeated here as the
// authoritative safety net. Returns whether the record was accepted;
// a false return means the caller's buf has already been returned to
// its pool and must not be touched again.
func (l *Logger) Submit(level LogLevel, file string, line uint32, tidHash uint64, timeNS int64, buf *Buffer) bool {
	if level < l.cfg.Load().Level || level == levelFlush {
		buf.Release()
		return false
	}
	if !l.state.IsRunning() {
		buf.Release()
		return false
	}
	rec := NewRecord(level, file, line, tidHash, timeNS, buf, l.pool)
	return l.queue.Push(rec, false)
}

// Debug submits a debug-level record.
func (l *Logger) Debug(args ...any) { l.submit(LevelDebug, 3, args) }

// Info submits an info-level record.
func (l *Logger) Info(args ...any) { l.submit(LevelInfo, 3, args) }

// Warn submits a warn-level record.
func (l *Logger) Warn(args ...any) { l.submit(LevelWarn, 3, args) }

// Error submits an error-level record.
func (l *Logger) Error(args ...any) { l.submit(LevelError, 3, args) }

// Fatal submits a fatal-level record. It does not call os.Exit; the
// caller decides whether and when to terminate the process.
func (l *Logger) Fatal(args ...any) { l.submit(LevelFatal, 3, args) }

// Stats returns a point-in-time snapshot of the engine's counters.
type Stats struct {
	Processed       uint64
	Dropped         uint64
	QueueDepth      int64
	Rotations       uint64
	RetentionSweeps uint64
	CurrentFilePath string
}

// Stats returns a snapshot of the Logger's runtime counters.
func (l *Logger) Stats() Stats {
	var depth int64
	if l.queue != nil {
		depth = l.queue.ApproxSize()
	}
	return Stats{
		Processed:       l.state.Processed(),
		Dropped:         l.queueDropped(),
		QueueDepth:      depth,
		Rotations:       l.state.Rotations(),
		RetentionSweeps: l.state.RetentionSweeps(),
		CurrentFilePath: l.state.CurrentFilePath(),
	}
}

// ReportRotation lets a Sink implementation (the file sink) record
// that it rotated, without the root package importing sink types to
// detect it itself.
func (l *Logger) ReportRotation() { l.state.rotations.Add(1) }

// ReportRetentionSweep lets a Sink implementation record that it ran
// a retention pass.
func (l *Logger) ReportRetentionSweep() { l.state.retentionSweeps.Add(1) }

// ReportCurrentFilePath lets a Sink implementation publish its live
// file path as a facade-level observable.
func (l *Logger) ReportCurrentFilePath(path string) { l.state.setCurrentFilePath(path) }

// ReportRotationError routes a sink's best-effort-recovered rotation
// failure to the internal diagnostic channel, distinct from the
// generic write-error category a failed Write/WriteBatch reports.
func (l *Logger) ReportRotationError(path string, err error) {
	l.diag.rotationError(path, err)
}

func (l *Logger) queueDropped() uint64 {
	if l.queue == nil {
		return 0
	}
	return l.queue.Dropped()
}
