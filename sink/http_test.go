package sink

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvid-systems/logengine"
)

func TestHTTPSinkFlushDeliversPendingBatchSynchronously(t *testing.T) {
	var received atomic.Int64
	var mu sync.Mutex
	var bodies [][]byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, r.ContentLength)
		_, _ = r.Body.Read(buf)
		mu.Lock()
		bodies = append(bodies, buf)
		mu.Unlock()
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	h, err := NewHTTP(HTTPOptions{
		URL:       srv.URL,
		BatchSize: 100,
		Timeout:   time.Second,
	})
	require.NoError(t, err)
	defer h.Close()

	require.NoError(t, h.Write(newTestRecord(logengine.LevelInfo, "one\n")))
	require.NoError(t, h.Write(newTestRecord(logengine.LevelInfo, "two\n")))
	require.NoError(t, h.Flush())

	assert.Equal(t, int64(1), received.Load())
}

func TestHTTPSinkDispatchesAsyncOnceBatchFills(t *testing.T) {
	var received atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	h, err := NewHTTP(HTTPOptions{
		URL:       srv.URL,
		BatchSize: 2,
		Timeout:   time.Second,
	})
	require.NoError(t, err)
	defer h.Close()

	require.NoError(t, h.Write(newTestRecord(logengine.LevelInfo, "one\n")))
	require.NoError(t, h.Write(newTestRecord(logengine.LevelInfo, "two\n")))

	require.Eventually(t, func() bool { return received.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestHTTPSinkRetriesOnFailureThenSucceeds(t *testing.T) {
	var attempts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	h, err := NewHTTP(HTTPOptions{
		URL:        srv.URL,
		BatchSize:  10,
		Timeout:    time.Second,
		MaxRetries: 5,
	})
	require.NoError(t, err)
	defer h.Close()

	require.NoError(t, h.Write(newTestRecord(logengine.LevelError, "boom\n")))
	require.NoError(t, h.Flush())

	assert.GreaterOrEqual(t, attempts.Load(), int64(3))
}

func TestHTTPSinkReportsErrorWhenRetriesExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	h, err := NewHTTP(HTTPOptions{
		URL:        srv.URL,
		BatchSize:  10,
		Timeout:    time.Second,
		MaxRetries: 1,
	})
	require.NoError(t, err)
	defer h.Close()

	require.NoError(t, h.Write(newTestRecord(logengine.LevelError, "boom\n")))
	assert.Error(t, h.Flush())
}
