package observability

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Counter is a monotonically increasing count, safe for concurrent use.
type Counter struct {
	v atomic.Int64
}

func (c *Counter) Inc()       { c.v.Add(1) }
func (c *Counter) Get() int64 { return c.v.Load() }

// Gauge tracks a value that moves both ways, like in-flight requests.
type Gauge struct {
	v atomic.Int64
}

func (g *Gauge) Inc()       { g.v.Add(1) }
func (g *Gauge) Dec()       { g.v.Add(-1) }
func (g *Gauge) Get() int64 { return g.v.Load() }

// CounterVec is a labelled counter family. Labels join into one key, so the
// cardinality stays bounded by the route table.
type CounterVec struct {
	mu     sync.Mutex
	counts map[string]int64
}

func NewCounterVec() *CounterVec {
	return &CounterVec{counts: make(map[string]int64)}
}

func (v *CounterVec) Inc(labels ...string) {
	key := strings.Join(labels, "|")
	v.mu.Lock()
	v.counts[key]++
	v.mu.Unlock()
}

func (v *CounterVec) Snapshot() map[string]int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make(map[string]int64, len(v.counts))
	for k, n := range v.counts {
		out[k] = n
	}
	return out
}

// LatencyVec accumulates request durations per route.
type LatencyVec struct {
	mu    sync.Mutex
	count map[string]int64
	total map[string]time.Duration
}

func NewLatencyVec() *LatencyVec {
	return &LatencyVec{count: make(map[string]int64), total: make(map[string]time.Duration)}
}

func (v *LatencyVec) Observe(route string, d time.Duration) {
	v.mu.Lock()
	v.count[route]++
	v.total[route] += d
	v.mu.Unlock()
}

func (v *LatencyVec) Snapshot() map[string]map[string]int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make(map[string]map[string]int64, len(v.count))
	for route, n := range v.count {
		avg := int64(0)
		if n > 0 {
			avg = v.total[route].Milliseconds() / n
		}
		out[route] = map[string]int64{"count": n, "avg_ms": avg}
	}
	return out
}

// Metrics is the process-wide instrument set, served as JSON on the metrics
// endpoint. A nil *Metrics is a valid no-op receiver.
type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *LatencyVec
	apiInflight *Gauge

	narrationServed *Counter
	narrationMissed *Counter
	sessionStarts   *Counter
	sessionResets   *Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		apiRequests:     NewCounterVec(),
		apiLatency:      NewLatencyVec(),
		apiInflight:     &Gauge{},
		narrationServed: &Counter{},
		narrationMissed: &Counter{},
		sessionStarts:   &Counter{},
		sessionResets:   &Counter{},
	}
}

func (m *Metrics) ApiInflightInc() {
	if m != nil {
		m.apiInflight.Inc()
	}
}

func (m *Metrics) ApiInflightDec() {
	if m != nil {
		m.apiInflight.Dec()
	}
}

func (m *Metrics) ObserveAPI(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(route, d)
}

func (m *Metrics) NarrationServed() {
	if m != nil {
		m.narrationServed.Inc()
	}
}

func (m *Metrics) NarrationMissed() {
	if m != nil {
		m.narrationMissed.Inc()
	}
}

func (m *Metrics) SessionStarted() {
	if m != nil {
		m.sessionStarts.Inc()
	}
}

func (m *Metrics) SessionReset() {
	if m != nil {
		m.sessionResets.Inc()
	}
}

func (m *Metrics) Snapshot() map[string]any {
	if m == nil {
		return map[string]any{}
	}
	requests := m.apiRequests.Snapshot()
	keys := make([]string, 0, len(requests))
	for k := range requests {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ordered := make(map[string]int64, len(requests))
	for _, k := range keys {
		ordered[k] = requests[k]
	}
	return map[string]any{
		"api_requests":     ordered,
		"api_latency":      m.apiLatency.Snapshot(),
		"api_inflight":     m.apiInflight.Get(),
		"narration_served": m.narrationServed.Get(),
		"narration_missed": m.narrationMissed.Get(),
		"session_starts":   m.sessionStarts.Get(),
		"session_resets":   m.sessionResets.Get(),
	}
}
