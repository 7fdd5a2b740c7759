package logengine

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// worker is the single consumer draining a Queue and fanning each
// batch out to every registered Sink. It replaces the teacher's
// processor.go select loop: batching and the FLUSH barrier take the
// place of the teacher's flush-ticker/flush-request-channel pair,
// since Record now carries its own completion signal instead of a
// shared channel-of-channels.
type worker struct {
	queue     *Queue
	batchSize int

	mu    sync.RWMutex
	sinks []Sink

	diag *diagnostics

	onProcessed func(uint64)

	done chan struct{}
}

func newWorker(q *Queue, batchSize int, diag *diagnostics, onProcessed func(uint64)) *worker {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &worker{
		queue:       q,
		batchSize:   batchSize,
		diag:        diag,
		onProcessed: onProcessed,
		done:        make(chan struct{}),
	}
}

func (w *worker) setSinks(sinks []Sink) {
	w.mu.Lock()
	w.sinks = sinks
	w.mu.Unlock()
}

func (w *worker) addSink(s Sink) {
	w.mu.Lock()
	w.sinks = append(w.sinks, s)
	w.mu.Unlock()
}

func (w *worker) snapshotSinks() []Sink {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]Sink, len(w.sinks))
	copy(out, w.sinks)
	return out
}

// start launches the consumer loop. It runs until the Queue is closed
// and fully drained; stopAndWait relies on the caller having closed
// the Queue first so the final blocking pop returns ok=false.
func (w *worker) start() {
	go func() {
		defer close(w.done)
		for {
			batch := w.queue.PopBatch(w.batchSize)
			if len(batch) == 0 {
				rec, ok := w.queue.PopOne()
				if !ok {
					return
				}
				batch = append(batch, rec)
			}
			w.processBatch(batch)
		}
	}()
}

// stopAndWait waits for the loop to exit. Callers close the Queue
// before calling this so the loop observes closure and returns.
func (w *worker) stopAndWait() {
	<-w.done
}

// processBatch splits a batch into data records and FLUSH barriers,
// fans the data records out to every sink concurrently, and fires
// barriers in original order once everything ahead of them has been
// written and flushed.
func (w *worker) processBatch(batch []*Record) {
	var data []*Record
	writeData := func() {
		if len(data) == 0 {
			return
		}
		w.writeRecords(data)
		data = nil
	}
	for _, rec := range batch {
		if rec.IsFlush() {
			writeData()
			w.flushSinks()
			rec.fireAndRelease()
			continue
		}
		data = append(data, rec)
	}
	writeData()
}

// writeRecords fans data out to every sink concurrently, then releases
// each record and reports the processed count.
func (w *worker) writeRecords(data []*Record) {
	sinks := w.snapshotSinks()
	if len(sinks) > 0 {
		g, _ := errgroup.WithContext(context.Background())
		for _, s := range sinks {
			s := s
			g.Go(func() error {
				if err := s.WriteBatch(data); err != nil {
					w.diag.sinkWriteError(s.Name(), err)
				}
				return nil
			})
		}
		_ = g.Wait()
	}

	for _, rec := range data {
		rec.release()
	}
	if w.onProcessed != nil {
		w.onProcessed(uint64(len(data)))
	}
}

func (w *worker) flushSinks() {
	sinks := w.snapshotSinks()
	if len(sinks) == 0 {
		return
	}
	g, _ := errgroup.WithContext(context.Background())
	for _, s := range sinks {
		s := s
		g.Go(func() error {
			if err := s.Flush(); err != nil {
				w.diag.sinkWriteError(s.Name(), err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (w *worker) closeSinks() error {
	sinks := w.snapshotSinks()
	var err error
	for _, s := range sinks {
		if cerr := s.Close(); cerr != nil {
			err = combineErrors(err, cerr)
		}
	}
	return err
}
