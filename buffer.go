package logengine

import "github.com/valyala/bytebufferpool"

// Buffer is a scratch buffer loaned from a Pool. Its capacity is not
// fixed: Write grows the backing array like append, and nothing caps
// it at DefaultBufferSize. Bytes beyond Len() are undefined; callers
// must never index past it.
type Buffer struct {
	bb   *bytebufferpool.ByteBuffer
	pool *Pool
}

// Bytes returns the written portion of the buffer.
func (b *Buffer) Bytes() []byte {
	if b == nil || b.bb == nil {
		return nil
	}
	return b.bb.B
}

// Len reports the used length.
func (b *Buffer) Len() int {
	if b == nil || b.bb == nil {
		return 0
	}
	return len(b.bb.B)
}

// Cap reports the current backing capacity; Write grows it like append.
func (b *Buffer) Cap() int {
	if b == nil || b.bb == nil {
		return 0
	}
	return cap(b.bb.B)
}

// Write appends p to the buffer, growing the backing array as needed.
// Matches io.Writer so render paths can use fmt.Fprintf etc.
func (b *Buffer) Write(p []byte) (int, error) {
	return b.bb.Write(p)
}

// WriteString appends a string without an intermediate []byte conversion.
func (b *Buffer) WriteString(s string) (int, error) {
	return b.bb.WriteString(s)
}

// Reset zeroes the used length while retaining the backing array.
func (b *Buffer) Reset() {
	if b != nil && b.bb != nil {
		b.bb.Reset()
	}
}

// Release returns b to the Pool it was allocated from. Safe to call
// on a nil Buffer or one already released.
func (b *Buffer) Release() {
	if b == nil || b.pool == nil {
		return
	}
	b.pool.Free(b)
}

// Pool hands out and reclaims Buffers. Alloc never fails: once any
// preallocated buffers are exhausted it falls back to a fresh
// allocation, mirroring bytebufferpool's own get/put contract (the
// same pool fasthttp itself uses internally). Double-free is a usage
// bug the pool does not detect, matching the source contract.
type Pool struct {
	bbp *bytebufferpool.Pool
}

// NewPool creates a Pool. size preallocates that many Buffers so early
// producers do not pay the first-allocation cost; bytebufferpool has
// no explicit preallocation hook, so this warms it by an alloc/free
// round-trip of `size` buffers.
func NewPool(size int) *Pool {
	p := &Pool{bbp: &bytebufferpool.Pool{}}
	if size <= 0 {
		size = DefaultPoolSize
	}
	warm := make([]*Buffer, 0, size)
	for i := 0; i < size; i++ {
		warm = append(warm, p.Alloc())
	}
	p.FreeBatch(warm)
	return p
}

// Alloc returns a zero-length Buffer. Never fails.
func (p *Pool) Alloc() *Buffer {
	return &Buffer{bb: p.bbp.Get(), pool: p}
}

// Free returns ownership of b to its originating Pool. Calling Free
// on a Buffer not obtained from this Pool, or calling it twice on the
// same Buffer, is a usage bug; no detection is performed.
func (p *Pool) Free(b *Buffer) {
	if b == nil || b.bb == nil {
		return
	}
	p.bbp.Put(b.bb)
	b.bb = nil
}

// AllocBatch returns up to n Buffers in one call, used by LocalCache
// to amortize pool contention.
func (p *Pool) AllocBatch(n int) []*Buffer {
	out := make([]*Buffer, n)
	for i := range out {
		out[i] = p.Alloc()
	}
	return out
}

// FreeBatch returns a batch of Buffers at once.
func (p *Pool) FreeBatch(bufs []*Buffer) {
	for _, b := range bufs {
		p.Free(b)
	}
}

// LocalCache is a per-producer batching cache over a shared Pool. Go
// has no automatic thread-local storage and goroutines are not pinned
// to OS threads, so the "per-producer TLS cache" described for
// RAII/destructor-driven languages becomes an object the producer
// goroutine owns explicitly for the lifetime of its own loop and tears
// down itself by calling Close (the idiomatic analogue of
// "registered teardown" for languages without destructors).
type LocalCache struct {
	pool     *Pool
	cacheCap int
	free     []*Buffer
	tidHash  uint64
}

// NewLocalCache creates a cache of capacity cap backed by pool. The
// owning goroutine's thread-id hash is computed once here and cached
// for the cache's lifetime, the Go analogue of the original's
// `static thread_local size_t hash_tid_cache`.
func NewLocalCache(pool *Pool, cap int) *LocalCache {
	if cap <= 0 {
		cap = DefaultLocalCacheSize
	}
	return &LocalCache{pool: pool, cacheCap: cap, tidHash: tidHash(goroutineID())}
}

// TIDHash returns the cached per-producer thread-id hash to pass to
// Logger.Submit, computed once at NewLocalCache time rather than on
// every call.
func (c *LocalCache) TIDHash() uint64 { return c.tidHash }

// Alloc returns a Buffer from the local cache, refilling from the
// shared Pool in one batched call when the cache runs dry.
func (c *LocalCache) Alloc() *Buffer {
	if len(c.free) == 0 {
		c.free = append(c.free, c.pool.AllocBatch(c.cacheCap)...)
	}
	n := len(c.free) - 1
	b := c.free[n]
	c.free = c.free[:n]
	return b
}

// Free returns a Buffer to the local cache, batching it back to the
// shared Pool once the cache exceeds twice its target capacity.
func (c *LocalCache) Free(b *Buffer) {
	c.free = append(c.free, b)
	if len(c.free) > 2*c.cacheCap {
		drain := c.free[:c.cacheCap]
		c.pool.FreeBatch(drain)
		remaining := make([]*Buffer, len(c.free)-c.cacheCap)
		copy(remaining, c.free[c.cacheCap:])
		c.free = remaining
	}
}

// Close drains every buffer still held by the cache back to the
// shared Pool. Call this when the owning producer goroutine exits.
func (c *LocalCache) Close() {
	c.pool.FreeBatch(c.free)
	c.free = nil
}
