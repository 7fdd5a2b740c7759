package logengine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSink is a minimal in-memory Sink used to assert what the worker
// hands each sink without touching real I/O.
type fakeSink struct {
	mu      sync.Mutex
	name    string
	lines   []string
	flushes int
	closed  bool
}

func newFakeSink(name string) *fakeSink { return &fakeSink{name: name} }

func (s *fakeSink) Name() string { return s.name }

func (s *fakeSink) Write(rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, string(rec.Buffer().Bytes()))
	return nil
}

func (s *fakeSink) WriteBatch(recs []*Record) error {
	for _, rec := range recs {
		if err := s.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

func (s *fakeSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	return nil
}

func (s *fakeSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSink) RecommendedBatchSize() int { return 0 }
func (s *fakeSink) SupportsAsync() bool       { return false }

func (s *fakeSink) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.lines))
	copy(out, s.lines)
	return out
}

func newTestRecordWithText(text string) *Record {
	p := NewPool(1)
	buf := p.Alloc()
	_, _ = buf.WriteString(text)
	return NewRecord(LevelInfo, "worker_test.go", 1, 0, 0, buf, p)
}

func TestWorkerDispatchesBatchToEverySink(t *testing.T) {
	q := NewQueue(16, PolicyDrop, 0)
	diag := newDiagnostics(false)
	var processed uint64
	w := newWorker(q, 8, diag, func(n uint64) { processed += n })

	a, b := newFakeSink("a"), newFakeSink("b")
	w.setSinks([]Sink{a, b})
	w.start()

	require.True(t, q.Push(newTestRecordWithText("line-1"), false))
	require.True(t, q.Push(newTestRecordWithText("line-2"), false))

	require.Eventually(t, func() bool {
		return len(a.snapshot()) == 2 && len(b.snapshot()) == 2
	}, time.Second, 5*time.Millisecond)

	q.Close()
	w.stopAndWait()

	assert.Equal(t, uint64(2), processed)
	assert.Equal(t, []string{"line-1", "line-2"}, a.snapshot())
}

func TestWorkerFlushBarrierFiresAfterPriorRecords(t *testing.T) {
	q := NewQueue(16, PolicyDrop, 0)
	diag := newDiagnostics(false)
	w := newWorker(q, 8, diag, nil)

	s := newFakeSink("s")
	w.setSinks([]Sink{s})
	w.start()

	require.True(t, q.Push(newTestRecordWithText("before-flush"), false))
	flush := newFlushRecord()
	require.True(t, q.Push(flush, true))

	done := make(chan struct{})
	go func() { flush.Wait(); close(done) }()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("flush barrier never fired")
	}

	assert.Equal(t, []string{"before-flush"}, s.snapshot())
	assert.GreaterOrEqual(t, s.flushes, 1)

	q.Close()
	w.stopAndWait()
}

func TestWorkerCloseSinksClosesEveryRegisteredSink(t *testing.T) {
	q := NewQueue(4, PolicyDrop, 0)
	diag := newDiagnostics(false)
	w := newWorker(q, 8, diag, nil)

	a, b := newFakeSink("a"), newFakeSink("b")
	w.setSinks([]Sink{a, b})
	w.start()

	q.Close()
	w.stopAndWait()

	require.NoError(t, w.closeSinks())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}
