package logengine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecord() *Record {
	return NewRecord(LevelInfo, "test.go", 1, 0, 0, &Buffer{}, nil)
}

func TestQueuePushPopPreservesFIFOPerProducer(t *testing.T) {
	q := NewQueue(16, PolicyBlock, time.Second)
	for i := 0; i < 8; i++ {
		rec := NewRecord(LevelInfo, "test.go", uint32(i), 0, int64(i), &Buffer{}, nil)
		require.True(t, q.Push(rec, false))
	}
	for i := 0; i < 8; i++ {
		rec, ok := q.PopOne()
		require.True(t, ok)
		assert.EqualValues(t, i, rec.Line)
	}
}

func TestQueueDropPolicyRefusesOnceFull(t *testing.T) {
	q := NewQueue(2, PolicyDrop, 0)
	require.True(t, q.Push(newTestRecord(), false))
	require.True(t, q.Push(newTestRecord(), false))
	ok := q.Push(newTestRecord(), false)
	assert.False(t, ok)
	assert.Equal(t, uint64(1), q.Dropped())
}

func TestQueueForcePushBypassesAdmission(t *testing.T) {
	q := NewQueue(1, PolicyDrop, 0)
	require.True(t, q.Push(newTestRecord(), false))
	// A FLUSH barrier uses force=true and must still get in.
	flush := newFlushRecord()
	require.True(t, q.Push(flush, true))
}

func TestQueueBlockPolicyTimesOutAndCountsDrop(t *testing.T) {
	q := NewQueue(1, PolicyBlock, 20*time.Millisecond)
	require.True(t, q.Push(newTestRecord(), false))
	start := time.Now()
	ok := q.Push(newTestRecord(), false)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
	assert.Equal(t, uint64(1), q.Dropped())
}

func TestQueuePopBatchDrainsUpToMax(t *testing.T) {
	q := NewQueue(16, PolicyDrop, 0)
	for i := 0; i < 5; i++ {
		require.True(t, q.Push(newTestRecord(), false))
	}
	batch := q.PopBatch(3)
	assert.Len(t, batch, 3)
	assert.EqualValues(t, 2, q.ApproxSize())
}

func TestQueueCloseUnblocksPopOne(t *testing.T) {
	q := NewQueue(4, PolicyDrop, 0)
	q.Close()
	_, ok := q.PopOne()
	assert.False(t, ok)
}

func TestQueueConcurrentProducersNoPanic(t *testing.T) {
	q := NewQueue(1024, PolicyDrop, 0)
	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				q.Push(newTestRecord(), false)
			}
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, q.ApproxSize(), int64(1024))
}
