package sink

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/panjf2000/ants/v2"
	"github.com/valyala/fasthttp"

	"github.com/corvid-systems/logengine"
)

// HTTP batches rendered records and POSTs them to a collector
// endpoint. Delivery runs on a bounded worker pool (ants) so a slow
// or unreachable collector backs up at most poolSize in-flight
// requests instead of spawning one goroutine per batch.
type HTTP struct {
	mu sync.Mutex

	url         string
	contentType string
	timeout     time.Duration
	maxRetries  int
	batchSize   int
	compress    logengine.CompressionCodec

	pending []byte
	count   int

	client *fasthttp.Client
	pool   *ants.Pool

	wg sync.WaitGroup
}

// HTTPOptions configures NewHTTP.
type HTTPOptions struct {
	URL         string
	ContentType string
	Timeout     time.Duration
	MaxRetries  int
	BatchSize   int
	Compress    logengine.CompressionCodec
	PoolSize    int
}

// NewHTTP builds an HTTP sink posting to opts.URL.
func NewHTTP(opts HTTPOptions) (*HTTP, error) {
	poolSize := opts.PoolSize
	if poolSize <= 0 {
		poolSize = 8
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("logengine/sink: failed to create delivery pool: %w", err)
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 256
	}

	return &HTTP{
		url:         opts.URL,
		contentType: contentType,
		timeout:     opts.Timeout,
		maxRetries:  opts.MaxRetries,
		batchSize:   batchSize,
		compress:    opts.Compress,
		client:      &fasthttp.Client{},
		pool:        pool,
	}, nil
}

func (h *HTTP) Name() string { return "http" }

// Write appends rec's rendered bytes to the current batch, flushing
// (asynchronously, via the delivery pool) once the batch fills.
func (h *HTTP) Write(rec *logengine.Record) error {
	h.mu.Lock()
	h.pending = append(h.pending, rec.Buffer().Bytes()...)
	h.count++
	full := h.count >= h.batchSize
	var payload []byte
	if full {
		payload = h.pending
		h.pending = nil
		h.count = 0
	}
	h.mu.Unlock()

	if full {
		h.dispatch(payload)
	}
	return nil
}

// WriteBatch appends every record's bytes under a single lock
// acquisition rather than one Write call per record.
func (h *HTTP) WriteBatch(recs []*logengine.Record) error {
	h.mu.Lock()
	for _, rec := range recs {
		h.pending = append(h.pending, rec.Buffer().Bytes()...)
		h.count++
	}
	full := h.count >= h.batchSize
	var payload []byte
	if full {
		payload = h.pending
		h.pending = nil
		h.count = 0
	}
	h.mu.Unlock()

	if full {
		h.dispatch(payload)
	}
	return nil
}

func (h *HTTP) RecommendedBatchSize() int { return h.batchSize }

func (h *HTTP) SupportsAsync() bool { return true }

// Flush sends whatever is currently batched, synchronously, so a
// FLUSH barrier observes delivery (or its failure) before it fires.
func (h *HTTP) Flush() error {
	h.mu.Lock()
	payload := h.pending
	h.pending = nil
	h.count = 0
	h.mu.Unlock()

	if len(payload) == 0 {
		h.wg.Wait()
		return nil
	}
	err := h.send(payload)
	h.wg.Wait()
	return err
}

func (h *HTTP) Close() error {
	err := h.Flush()
	h.pool.Release()
	return err
}

func (h *HTTP) dispatch(payload []byte) {
	h.wg.Add(1)
	submitErr := h.pool.Submit(func() {
		defer h.wg.Done()
		_ = h.send(payload)
	})
	if submitErr != nil {
		defer h.wg.Done()
		_ = h.send(payload)
	}
}

func (h *HTTP) send(payload []byte) error {
	body, encoding, err := h.encode(payload)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt <= h.maxRetries; attempt++ {
		req := fasthttp.AcquireRequest()
		resp := fasthttp.AcquireResponse()

		req.SetRequestURI(h.url)
		req.Header.SetMethod(fasthttp.MethodPost)
		req.Header.SetContentType(h.contentType)
		if encoding != "" {
			req.Header.Set("Content-Encoding", encoding)
		}
		req.SetBody(body)

		err := h.client.DoTimeout(req, resp, h.timeout)
		status := resp.StatusCode()

		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)

		if err == nil && status >= 200 && status < 300 {
			return nil
		}
		if err == nil {
			lastErr = fmt.Errorf("logengine/sink: http collector returned status %d", status)
		} else {
			lastErr = err
		}
		if attempt < h.maxRetries {
			time.Sleep(backoff(attempt))
		}
	}
	return lastErr
}

func (h *HTTP) encode(payload []byte) (body []byte, encoding string, err error) {
	switch h.compress {
	case logengine.CompressGzip:
		var buf bytes.Buffer
		gw := gzip.NewWriter(&buf)
		if _, err = gw.Write(payload); err != nil {
			return nil, "", err
		}
		if err = gw.Close(); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "gzip", nil
	case logengine.CompressBrotli:
		var buf bytes.Buffer
		bw := brotli.NewWriterLevel(&buf, brotli.DefaultCompression)
		if _, err = bw.Write(payload); err != nil {
			return nil, "", err
		}
		if err = bw.Close(); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "br", nil
	default:
		return payload, "", nil
	}
}

func backoff(attempt int) time.Duration {
	d := 50 * time.Millisecond * time.Duration(1<<attempt)
	if d > 2*time.Second {
		d = 2 * time.Second
	}
	return d
}
