package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadyEndpointGate(t *testing.T) {
	h := New()

	rec := httptest.NewRecorder()
	h.ReadyEndpoint(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	h.SetReady(true)
	rec = httptest.NewRecorder()
	h.ReadyEndpoint(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProbeThresholds(t *testing.T) {
	p := newProbe("flaky", time.Second, func(context.Context) error {
		return errors.New("down")
	})

	// A probe stays healthy until it fails consecutively failAfter times.
	for i := 0; i < failAfter-1; i++ {
		p.tick(context.Background())
		assert.True(t, p.ok.Load(), "tick %d", i)
	}
	p.tick(context.Background())
	assert.False(t, p.ok.Load())

	p.check = func(context.Context) error { return nil }
	p.tick(context.Background())
	assert.True(t, p.ok.Load())
}

func TestLiveEndpointReportsFailures(t *testing.T) {
	h := New()
	h.AddLiveness("db", time.Second, func(context.Context) error {
		return errors.New("connection refused")
	})

	h.mu.RLock()
	p := h.live[0]
	h.mu.RUnlock()
	for i := 0; i < failAfter; i++ {
		p.tick(context.Background())
	}

	rec := httptest.NewRecorder()
	h.LiveEndpoint(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var report probeReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "unhealthy", report.Status)
	assert.Equal(t, "connection refused", report.Failures["db"])
}

func TestGoroutineCount(t *testing.T) {
	assert.NoError(t, GoroutineCount(100000)(context.Background()))
	assert.Error(t, GoroutineCount(0)(context.Background()))
}
