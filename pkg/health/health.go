// Package health exposes liveness and readiness probes for the API server.
//
// Probes run in background goroutines on a fixed interval. A probe flips to
// failing only after several consecutive errors so a single slow database
// round trip does not bounce the pod out of the load balancer.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Check reports nil when the probed component is healthy.
type Check func(ctx context.Context) error

const (
	failAfter = 3
	passAfter = 1
)

type probe struct {
	name    string
	timeout time.Duration
	check   Check

	ok      atomic.Bool
	lastErr atomic.Pointer[error]

	// fails and passes are touched only by the single loop goroutine.
	fails  int
	passes int
}

func newProbe(name string, timeout time.Duration, check Check) *probe {
	p := &probe{name: name, timeout: timeout, check: check}
	p.ok.Store(true)
	return p
}

func (p *probe) tick(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.check(ctx)
	p.lastErr.Store(&err)

	if err != nil {
		p.passes = 0
		if p.fails++; p.fails >= failAfter {
			p.ok.Store(false)
		}
		return
	}
	p.fails = 0
	if p.passes++; p.passes >= passAfter {
		p.ok.Store(true)
	}
}

func (p *probe) failure() (string, bool) {
	if p.ok.Load() {
		return "", false
	}
	if errp := p.lastErr.Load(); errp != nil && *errp != nil {
		return (*errp).Error(), true
	}
	return "probe failing", true
}

// Health aggregates liveness and readiness probes for one service.
type Health struct {
	ready atomic.Bool

	mu     sync.RWMutex
	live   []*probe
	readyP []*probe
	cancel context.CancelFunc
}

func New() *Health {
	return &Health{}
}

// AddLiveness registers a probe answering "is the process functional".
func (h *Health) AddLiveness(name string, timeout time.Duration, check Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.live = append(h.live, newProbe(name, timeout, check))
}

// AddReadiness registers a probe answering "can we serve traffic".
func (h *Health) AddReadiness(name string, timeout time.Duration, check Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readyP = append(h.readyP, newProbe(name, timeout, check))
}

// Start launches one goroutine per registered probe. Register all probes
// before calling Start.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	probes := make([]*probe, 0, len(h.live)+len(h.readyP))
	probes = append(probes, h.live...)
	probes = append(probes, h.readyP...)
	h.mu.Unlock()

	for _, p := range probes {
		go func(p *probe) {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			p.tick(ctx)
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					p.tick(ctx)
				}
			}
		}(p)
	}
}

// Stop cancels the probe goroutines.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady flips the manual readiness gate. Set it true once startup has
// finished and false at the start of graceful shutdown.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

type probeReport struct {
	Status   string            `json:"status"`
	Failures map[string]string `json:"failures,omitempty"`
}

// LiveEndpoint serves GET /livez.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	probes := append([]*probe(nil), h.live...)
	h.mu.RUnlock()

	writeReport(w, failures(probes))
}

// ReadyEndpoint serves GET /readyz. It fails while the manual gate is closed
// even if every probe passes.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	probes := append([]*probe(nil), h.readyP...)
	h.mu.RUnlock()

	fs := failures(probes)
	if !h.ready.Load() {
		fs["_gate"] = "service not marked ready"
	}
	writeReport(w, fs)
}

func failures(probes []*probe) map[string]string {
	fs := make(map[string]string)
	for _, p := range probes {
		if msg, failing := p.failure(); failing {
			fs[p.name] = msg
		}
	}
	return fs
}

func writeReport(w http.ResponseWriter, fs map[string]string) {
	report := probeReport{Status: "ok"}
	code := http.StatusOK
	if len(fs) > 0 {
		report.Status = "unhealthy"
		report.Failures = fs
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(report)
}
