package metrics

import "sync"

// Counter names tracked by the signaling service.
const (
	ConnectionsActive = "connections_active"
	ConnectionsTotal  = "connections_total"
	MessagesRouted    = "messages_routed"
	HandlerErrors     = "handler_errors"
)

// Drop reasons for transport-level enforcement.
const (
	DropReasonRateLimited = "rate_limited"
	DropReasonSendFailed  = "send_failed"
)

// Metrics is a minimal, concurrency-safe counter registry.
//
// The zero value is usable; New is provided for symmetry with the rest of
// the codebase.
type Metrics struct {
	mu sync.Mutex
	m  map[string]uint64
}

func New() *Metrics {
	return &Metrics{
		m: make(map[string]uint64),
	}
}

func (m *Metrics) Inc(name string) {
	m.Add(name, 1)
}

func (m *Metrics) Add(name string, n uint64) {
	m.mu.Lock()
	if m.m == nil {
		m.m = make(map[string]uint64)
	}
	m.m[name] += n
	m.mu.Unlock()
}

// Dec decrements a counter, clamping at zero. A gauge-like counter such as
// connections_active must never report below zero even when a disconnect is
// signaled more than once.
func (m *Metrics) Dec(name string) {
	m.mu.Lock()
	if m.m[name] > 0 {
		m.m[name]--
	}
	m.mu.Unlock()
}

func (m *Metrics) Get(name string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.m[name]
}

// Snapshot returns a point-in-time copy of all counters.
func (m *Metrics) Snapshot() map[string]uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := make(map[string]uint64, len(m.m))
	for k, v := range m.m {
		snap[k] = v
	}
	return snap
}
