// Package health serves the /livez and /readyz endpoints of the till API.
//
// Checks run in the background; requests to the endpoints only read the last outcome.
// A check turns unhealthy after FailAfter consecutive failures and healthy
// again after RecoverAfter consecutive successes.
package health

import (
	"context"
	"maps"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
)

// CheckFunc reports the health of one dependency. A nil error is healthy.
type CheckFunc func(ctx context.Context) error

// Kind selects the endpoint a check contributes to.
type Kind uint8

const (
	Liveness Kind = iota
	Readiness
)

// Check describes a registered check.
type Check struct {
	Name    string
	Kind    Kind
	Timeout time.Duration
	Run     CheckFunc
	// FailAfter and RecoverAfter default to 3 and 1.
	FailAfter    int
	RecoverAfter int
}

// monitor tracks the outcome of one check.
type monitor struct {
	Check

	mu      sync.Mutex
	healthy bool
	lastErr error
	streak  int // >0 successes in a row, <0 failures in a row
}

func newMonitor(c Check) *monitor {
	if c.FailAfter <= 0 {
		c.FailAfter = 3
	}
	if c.RecoverAfter <= 0 {
		c.RecoverAfter = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = time.Second
	}
	return &monitor{Check: c, healthy: true}
}

func (m *monitor) check(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, m.Timeout)
	err := m.Run(ctx)
	cancel()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastErr = err
	if err != nil {
		m.streak = min(m.streak, 0) - 1
		if -m.streak >= m.FailAfter {
			m.healthy = false
		}
		return
	}
	m.streak = max(m.streak, 0) + 1
	if m.streak >= m.RecoverAfter {
		m.healthy = true
	}
}

// failure returns the failure message, or "" while the check is healthy.
func (m *monitor) failure() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.healthy:
		return ""
	case m.lastErr != nil:
		return m.lastErr.Error()
	default:
		return "check is unhealthy"
	}
}

// Health owns the registered checks and the manual readiness flag. The
// service starts not ready.
type Health struct {
	ready atomic.Bool

	mu       sync.RWMutex
	monitors []*monitor
	stop     context.CancelFunc
	wg       sync.WaitGroup
}

// New creates an empty Health.
func New() *Health {
	return &Health{}
}

// Register adds c. Checks registered after Start are not run.
func (h *Health) Register(c Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.monitors = append(h.monitors, newMonitor(c))
}

// AddLivenessCheck registers a check of process health.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.Register(Check{Name: name, Kind: Liveness, Timeout: timeout, Run: fn})
}

// AddReadinessCheck registers a check of a dependency needed to serve traffic.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.Register(Check{Name: name, Kind: Readiness, Timeout: timeout, Run: fn})
}

// Start runs every check now and then once per interval until Stop or ctx
// is done.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	if h.stop != nil {
		h.stop()
	}
	h.stop = cancel
	monitors := slices.Clone(h.monitors)
	h.mu.Unlock()

	for _, m := range monitors {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			m.check(ctx)

			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					m.check(ctx)
				}
			}
		}()
	}
}

// Stop halts the background checks and waits for them to return. It may be
// called more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	stop := h.stop
	h.stop = nil
	h.mu.Unlock()

	if stop != nil {
		stop()
	}
	h.wg.Wait()
}

// SetReady flips the manual readiness flag: true once wiring is done, false
// when draining for shutdown.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the service is marked ready and every readiness
// check passes.
func (h *Health) IsReady() bool {
	return h.ready.Load() && len(h.failures(Readiness)) == 0
}

func (h *Health) failures(kind Kind) map[string]string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[string]string)
	for _, m := range h.monitors {
		if m.Kind != kind {
			continue
		}
		if msg := m.failure(); msg != "" {
			out[m.Name] = msg
		}
	}
	return out
}

// LiveEndpoint serves /livez.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeReport(w, Report{Checks: h.failures(Liveness)})
}

// ReadyEndpoint serves /readyz. A service not marked ready reports the
// pseudo check "_readiness".
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	failures := h.failures(Readiness)
	if !h.ready.Load() {
		failures["_readiness"] = "service is not ready"
	}
	writeReport(w, Report{Checks: failures})
}

// Report is the endpoint response. Checks maps failing check names to their
// last error; an empty map is healthy.
type Report struct {
	Checks map[string]string
}

// Healthy reports whether no check failed.
func (r Report) Healthy() bool {
	return len(r.Checks) == 0
}

// Encode writes {"status":"ok"} or {"status":"unhealthy","checks":{...}} with
// checks sorted by name.
func (r Report) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("status")
	if r.Healthy() {
		e.Str("ok")
		e.ObjEnd()
		return
	}
	e.Str("unhealthy")
	e.FieldStart("checks")
	e.ObjStart()
	for _, name := range slices.Sorted(maps.Keys(r.Checks)) {
		e.FieldStart(name)
		e.Str(r.Checks[name])
	}
	e.ObjEnd()
	e.ObjEnd()
}

func writeReport(w http.ResponseWriter, r Report) {
	status := http.StatusOK
	if !r.Healthy() {
		status = http.StatusServiceUnavailable
	}

	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	r.Encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
