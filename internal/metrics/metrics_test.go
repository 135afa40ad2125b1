package metrics

import (
	"bytes"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aldergrove/dealsense/internal/logging"
)

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.MatchesRecorded.Inc()
	m.DetectRuns.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "dealsense_matches_recorded_total 1")
	assert.Contains(t, body, "dealsense_detect_runs_total 1")
}

// syncBuffer makes the log writer safe to read while the listener goroutine
// may still be writing.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestServeReportsListenFailure(t *testing.T) {
	// Occupy a port so the listener cannot bind it.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	var buf syncBuffer
	logging.InitConsole(&buf, "error")

	m := New()
	srv := m.Serve(ln.Addr().String())
	defer srv.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(buf.String(), "Metrics listener failed") {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("listen failure was not reported; log output: %q", buf.String())
}
