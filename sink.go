package logengine

import "sync"

// Sink is anything the worker can hand a drained batch of Records to.
// Concrete sinks (console, file, HTTP) live in the sink subpackage and
// are wired into a Logger with AddSink; this interface is declared at
// the root so the worker never needs to import sink implementations.
type Sink interface {
	// Name identifies the sink in diagnostics output.
	Name() string
	// Write consumes rec. It must not retain rec or its Buffer past
	// return; the worker releases rec back to the Pool immediately
	// after every sink's Write call returns.
	Write(rec *Record) error
	// WriteBatch consumes an entire batch. The default behavior every
	// sink should fall back to is looping Write; sinks for which
	// amortizing across a batch is cheaper (the file sink flushing
	// once at batch end rather than per record) override it.
	WriteBatch(recs []*Record) error
	// Flush forces any buffered bytes out to the sink's underlying
	// destination. Called on every FLUSH barrier and on Shutdown.
	Flush() error
	// Close flushes and releases the sink's resources. Called once,
	// on Shutdown; fulfills the same role as an explicit shutdown()
	// method while staying compatible with io.Closer.
	Close() error
	// RecommendedBatchSize hints how many records the worker should
	// try to hand this sink at once; 0 means no preference.
	RecommendedBatchSize() int
	// SupportsAsync reports whether this sink's Write/WriteBatch
	// already hands off to background delivery (the HTTP sink's ants
	// pool) rather than blocking the worker until bytes reach the
	// destination.
	SupportsAsync() bool
}

// SinkFactory builds a built-in Sink from a validated Config and the
// owning Logger (so it can wire observable callbacks like
// Logger.ReportRotation without the sink package needing to see
// inside Logger). Returning (nil, nil) means this sink's config flag
// says it is disabled; Init skips it silently. Returning a non-nil
// error means construction failed; Init logs it through diagnostics
// and keeps running without that sink.
type SinkFactory func(cfg *Config, l *Logger) (Sink, error)

var sinkFactories = struct {
	mu sync.Mutex
	m  map[string]SinkFactory
}{m: make(map[string]SinkFactory)}

// RegisterSinkFactory registers a named built-in sink constructor so
// Init can build console/file/http sinks straight from config flags.
// The root package cannot import the sink subpackage directly (sink
// imports logengine for the Sink/Record/Config types, which would be
// a cycle), so sink registers itself here the way a database/sql
// driver or an image format codec registers itself with its host
// package: the caller imports the sink package for its init() side
// effect, and this package never needs to know the concrete type.
func RegisterSinkFactory(name string, f SinkFactory) {
	sinkFactories.mu.Lock()
	defer sinkFactories.mu.Unlock()
	sinkFactories.m[name] = f
}

func snapshotSinkFactories() map[string]SinkFactory {
	sinkFactories.mu.Lock()
	defer sinkFactories.mu.Unlock()
	out := make(map[string]SinkFactory, len(sinkFactories.m))
	for k, v := range sinkFactories.m {
		out[k] = v
	}
	return out
}
