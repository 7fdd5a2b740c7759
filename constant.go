package logengine

import "time"

// LogLevel constants, total order DEBUG < INFO < WARN < ERROR < FATAL.
// levelFlush is reserved for internal barrier records and is never
// produced by a call-site; Submit rejects it from external callers.
const (
	LevelDebug LogLevel = -4
	LevelInfo  LogLevel = 0
	LevelWarn  LogLevel = 4
	LevelError LogLevel = 8
	LevelFatal LogLevel = 12
	levelFlush LogLevel = 1 << 30
)

// Backpressure policies for the record queue.
const (
	PolicyBlock BackpressurePolicy = iota
	PolicyDrop
)

// File sink rotation policies.
const (
	RotateNone RotatePolicy = iota
	RotateDaily
	RotateSize
	RotateSizeAndTime
)

// Compression codecs available for rotated-out files.
const (
	CompressNone CompressionCodec = iota
	CompressGzip
	CompressBrotli
)

const (
	// DefaultBufferSize is 4 KiB. Pooled Buffers are not capped at this
	// size: Buffer.Write grows the backing array as needed.
	DefaultBufferSize = 4 * 1024

	// DefaultPoolSize is the initial Buffer count a Pool preallocates.
	DefaultPoolSize = 256

	// DefaultLocalCacheSize is the per-producer batching size for LocalCache.
	DefaultLocalCacheSize = 64

	// DefaultQueueCapacity is the default soft cap on outstanding
	// records, and also the channel size a Queue gets when its capacity
	// is 0 (no admission check).
	DefaultQueueCapacity = 1 << 16

	// DefaultBatchSize bounds how many records the worker pops per iteration.
	DefaultBatchSize = 2048

	// defaultBlockSpinIterations is how many times Push spins before sleeping
	// under BLOCK backpressure.
	defaultBlockSpinIterations = 100

	// idleSleepFloor and idleSleepCeil bound Queue.blockingPush's
	// exponential backoff while a producer waits under BLOCK policy.
	idleSleepFloor = time.Millisecond
	idleSleepCeil  = 100 * time.Millisecond

	// coarseClockResolution is the refresh period of the cached clock.
	coarseClockResolution = time.Millisecond
)
