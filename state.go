package logengine

import "sync/atomic"

// state holds the Logger's runtime atomics. It carries no behavior of
// its own — Flush and Shutdown live on Logger — so those methods can
// make idempotence and lifecycle decisions off plain atomic loads
// without a mutex on the hot path, in the same spirit as the teacher's
// atomics-heavy State struct.
type state struct {
	initialized  atomic.Bool
	started      atomic.Bool
	shuttingDown atomic.Bool
	shutdown     atomic.Bool

	processed atomic.Uint64
	dropped   atomic.Uint64
	written   atomic.Uint64

	rotations       atomic.Uint64
	retentionSweeps atomic.Uint64

	currentFilePath atomic.Pointer[string]
}

func newState() *state {
	return &state{}
}

func (s *state) setCurrentFilePath(path string) {
	s.currentFilePath.Store(&path)
}

// CurrentFilePath returns the live file sink's current path, or "" if
// no file sink is active.
func (s *state) CurrentFilePath() string {
	p := s.currentFilePath.Load()
	if p == nil {
		return ""
	}
	return *p
}

func (s *state) Processed() uint64       { return s.processed.Load() }
func (s *state) Dropped() uint64         { return s.dropped.Load() }
func (s *state) Written() uint64         { return s.written.Load() }
func (s *state) Rotations() uint64       { return s.rotations.Load() }
func (s *state) RetentionSweeps() uint64 { return s.retentionSweeps.Load() }

// IsRunning reports whether the Logger has been started and not yet
// shut down.
func (s *state) IsRunning() bool {
	return s.started.Load() && !s.shutdown.Load()
}
